package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/medicamp/internal/model"
)

const feedbackColumns = `id, camp_id, camp_name, organizer_email, participant_name,
	participant_email, rating, comment, approved, created_at`

// FeedbackRepository handles persistence for camp feedback.
type FeedbackRepository struct {
	db *pgxpool.Pool
}

// NewFeedbackRepository constructs a FeedbackRepository.
func NewFeedbackRepository(db *pgxpool.Pool) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

func scanFeedback(row pgx.Row) (*model.Feedback, error) {
	var f model.Feedback
	if err := row.Scan(&f.ID, &f.CampID, &f.CampName, &f.OrganizerEmail, &f.ParticipantName,
		&f.ParticipantEmail, &f.Rating, &f.Comment, &f.Approved, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FeedbackRepository) list(ctx context.Context, where string, args ...any) ([]model.Feedback, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+feedbackColumns+` FROM feedback `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []model.Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// Create inserts feedback; a second entry for the same camp and participant
// returns ErrDuplicate.
func (r *FeedbackRepository) Create(ctx context.Context, f *model.Feedback) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	f.CreatedAt = time.Now().UTC()
	tag, err := r.db.Exec(ctx,
		`INSERT INTO feedback (`+feedbackColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (camp_id, participant_email) DO NOTHING`,
		f.ID, f.CampID, f.CampName, f.OrganizerEmail, f.ParticipantName, f.ParticipantEmail,
		f.Rating, f.Comment, f.Approved, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

// GetByID returns one feedback entry or ErrNotFound.
func (r *FeedbackRepository) GetByID(ctx context.Context, id string) (*model.Feedback, error) {
	f, err := scanFeedback(r.db.QueryRow(ctx, `SELECT `+feedbackColumns+` FROM feedback WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get feedback: %w", err)
	}
	return f, nil
}

// ListByParticipant returns feedback written by one participant.
func (r *FeedbackRepository) ListByParticipant(ctx context.Context, email string) ([]model.Feedback, error) {
	return r.list(ctx, `WHERE participant_email = $1`, email)
}

// ListByOrganizer returns feedback on one organizer's camps.
func (r *FeedbackRepository) ListByOrganizer(ctx context.Context, email string, pendingOnly bool) ([]model.Feedback, error) {
	if pendingOnly {
		return r.list(ctx, `WHERE organizer_email = $1 AND NOT approved`, email)
	}
	return r.list(ctx, `WHERE organizer_email = $1`, email)
}

// ListApproved returns all approved feedback.
func (r *FeedbackRepository) ListApproved(ctx context.Context) ([]model.Feedback, error) {
	return r.list(ctx, `WHERE approved`)
}

// Approve marks feedback as approved.
func (r *FeedbackRepository) Approve(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE feedback SET approved = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("approve feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes feedback.
func (r *FeedbackRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM feedback WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

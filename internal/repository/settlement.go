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

const settlementColumns = `id, registration_id, camp_id, camp_name, participant_email, amount,
	transaction_id, status, created_at`

// SettlementRepository is the append-only settlement log.
type SettlementRepository struct {
	db *pgxpool.Pool
}

// NewSettlementRepository constructs a SettlementRepository.
func NewSettlementRepository(db *pgxpool.Pool) *SettlementRepository {
	return &SettlementRepository{db: db}
}

func scanSettlement(row pgx.Row) (*model.Settlement, error) {
	var s model.Settlement
	if err := row.Scan(&s.ID, &s.RegistrationID, &s.CampID, &s.CampName, &s.ParticipantEmail,
		&s.Amount, &s.TransactionID, &s.Status, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Append inserts a settlement unless it would violate the one-Paid-per-
// registration index or reuse a transaction id, in which case ErrDuplicate is
// returned and nothing is written. Two concurrent appends for the same
// registration therefore produce exactly one row.
func (r *SettlementRepository) Append(ctx context.Context, s *model.Settlement) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	tag, err := r.db.Exec(ctx,
		`INSERT INTO settlements (`+settlementColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT DO NOTHING`,
		s.ID, s.RegistrationID, s.CampID, s.CampName, s.ParticipantEmail, s.Amount,
		s.TransactionID, s.Status, s.CreatedAt,
	)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("insert settlement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

// FindPaidByRegistration returns the Paid settlement of a registration.
func (r *SettlementRepository) FindPaidByRegistration(ctx context.Context, registrationID string) (*model.Settlement, error) {
	s, err := scanSettlement(r.db.QueryRow(ctx,
		`SELECT `+settlementColumns+` FROM settlements
		 WHERE registration_id = $1 AND status = $2`, registrationID, model.SettlementPaid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find settlement: %w", err)
	}
	return s, nil
}

// ListByParticipant returns one page of a participant's settlements, newest
// first, with the total count.
func (r *SettlementRepository) ListByParticipant(ctx context.Context, email string, limit, offset int) ([]model.Settlement, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM settlements WHERE participant_email = $1`, email).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count settlements: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+settlementColumns+` FROM settlements
		 WHERE participant_email = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, email, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list settlements: %w", err)
	}
	defer rows.Close()

	var out []model.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan settlement: %w", err)
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}

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

// OrganizerRepository is the organizer directory.
type OrganizerRepository struct {
	db *pgxpool.Pool
}

// NewOrganizerRepository constructs an OrganizerRepository.
func NewOrganizerRepository(db *pgxpool.Pool) *OrganizerRepository {
	return &OrganizerRepository{db: db}
}

// GetByEmail returns the organizer with the given (normalised) email.
func (r *OrganizerRepository) GetByEmail(ctx context.Context, email string) (*model.Organizer, error) {
	var o model.Organizer
	err := r.db.QueryRow(ctx,
		`SELECT id, name, email, image, telegram_chat_id, updated_at
		 FROM organizers WHERE email = $1`, email,
	).Scan(&o.ID, &o.Name, &o.Email, &o.Image, &o.TelegramChatID, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get organizer: %w", err)
	}
	return &o, nil
}

// Upsert creates or updates the profile keyed by email.
func (r *OrganizerRepository) Upsert(ctx context.Context, o *model.Organizer) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	o.UpdatedAt = time.Now().UTC()
	err := r.db.QueryRow(ctx,
		`INSERT INTO organizers (id, name, email, image, telegram_chat_id, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (email) DO UPDATE
		 SET name = EXCLUDED.name, image = EXCLUDED.image,
		     telegram_chat_id = EXCLUDED.telegram_chat_id, updated_at = EXCLUDED.updated_at
		 RETURNING id`,
		o.ID, o.Name, o.Email, o.Image, o.TelegramChatID, o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("upsert organizer: %w", err)
	}
	return nil
}

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

// UserRepository is the participant directory.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(ctx,
		`SELECT id, name, email, image, phone, updated_at
		 FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Image, &u.Phone, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// Upsert creates or updates the profile keyed by email.
func (r *UserRepository) Upsert(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.UpdatedAt = time.Now().UTC()
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (id, name, email, image, phone, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (email) DO UPDATE
		 SET name = EXCLUDED.name, image = EXCLUDED.image,
		     phone = EXCLUDED.phone, updated_at = EXCLUDED.updated_at
		 RETURNING id`,
		u.ID, u.Name, u.Email, u.Image, u.Phone, u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// Package gormstore implements the repositories on gorm, used with SQLite
// for local runs and tests, or with PostgreSQL through the gorm driver.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Shivanand-hulikatti/medicamp/internal/model"
	"github.com/Shivanand-hulikatti/medicamp/internal/repository"
)

// Migrate creates tables and the indexes gorm tags cannot express.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Camp{},
		&model.Registration{},
		&model.Settlement{},
		&model.Feedback{},
		&model.Organizer{},
		&model.User{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	// Duplicate-payment guard: at most one Paid settlement per registration.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_settlements_one_paid
		ON settlements (registration_id) WHERE status = 'Paid'`).Error; err != nil {
		return fmt.Errorf("create settlement index: %w", err)
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_camps_participant_count
		ON camps (participant_count DESC)`).Error; err != nil {
		return fmt.Errorf("create camp index: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	return err
}

// ─── Camps ────────────────────────────────────────────────────────────────────

// CampRepository handles persistence for camps.
type CampRepository struct {
	db *gorm.DB
}

// NewCampRepository constructs a CampRepository.
func NewCampRepository(db *gorm.DB) *CampRepository {
	return &CampRepository{db: db}
}

func (r *CampRepository) Create(ctx context.Context, c *model.Camp) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("insert camp: %w", err)
	}
	return nil
}

func (r *CampRepository) GetByID(ctx context.Context, id string) (*model.Camp, error) {
	var c model.Camp
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *CampRepository) List(ctx context.Context) ([]model.Camp, error) {
	var camps []model.Camp
	err := r.db.WithContext(ctx).
		Order("participant_count DESC").Order("created_at DESC").
		Find(&camps).Error
	return camps, err
}

func (r *CampRepository) ListTop(ctx context.Context, n int) ([]model.Camp, error) {
	var camps []model.Camp
	err := r.db.WithContext(ctx).Order("participant_count DESC").Limit(n).Find(&camps).Error
	return camps, err
}

func (r *CampRepository) ListByOrganizer(ctx context.Context, email string) ([]model.Camp, error) {
	var camps []model.Camp
	err := r.db.WithContext(ctx).
		Where("organizer_email = ?", email).
		Order("created_at DESC").
		Find(&camps).Error
	return camps, err
}

// Update writes the editable fields only; participant_count is owned by
// AdjustParticipantCount.
func (r *CampRepository) Update(ctx context.Context, c *model.Camp) error {
	res := r.db.WithContext(ctx).Model(&model.Camp{}).Where("id = ?", c.ID).Updates(map[string]any{
		"name":                    c.Name,
		"image":                   c.Image,
		"fee":                     c.Fee,
		"scheduled_at":            c.ScheduledAt,
		"location":                c.Location,
		"healthcare_professional": c.HealthcareProfessional,
		"description":             c.Description,
		"updated_at":              time.Now().UTC(),
	})
	if res.Error != nil {
		return fmt.Errorf("update camp: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a camp; ErrInUse while registrations still reference it.
func (r *CampRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Registration{}).Where("camp_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return repository.ErrInUse
		}
		res := tx.Where("id = ?", id).Delete(&model.Camp{})
		if res.Error != nil {
			return fmt.Errorf("delete camp: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

// AdjustParticipantCount applies delta in one UPDATE statement, floored at zero.
func (r *CampRepository) AdjustParticipantCount(ctx context.Context, id string, delta int) error {
	res := r.db.WithContext(ctx).Model(&model.Camp{}).Where("id = ?", id).
		UpdateColumn("participant_count", gorm.Expr(
			"CASE WHEN participant_count + ? < 0 THEN 0 ELSE participant_count + ? END", delta, delta))
	if res.Error != nil {
		return fmt.Errorf("adjust participant_count: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *CampRepository) RecountParticipants(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Exec(repository.RecountSQL)
	return res.RowsAffected, res.Error
}

// ─── Registrations ────────────────────────────────────────────────────────────

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db *gorm.DB
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *gorm.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create inserts a registration; the (camp_id, participant_email) unique
// index makes a second enrollment a no-op reported as ErrAlreadyRegistered.
func (r *RegistrationRepository) Create(ctx context.Context, reg *model.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.New().String()
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(reg)
	if res.Error != nil {
		return fmt.Errorf("insert registration: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrAlreadyRegistered
	}
	return nil
}

func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	var reg model.Registration
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&reg).Error; err != nil {
		return nil, notFound(err)
	}
	return &reg, nil
}

func (r *RegistrationRepository) FindByCampAndParticipant(ctx context.Context, campID, email string) (*model.Registration, error) {
	var reg model.Registration
	err := r.db.WithContext(ctx).
		Where("camp_id = ? AND participant_email = ?", campID, email).
		First(&reg).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &reg, nil
}

func (r *RegistrationRepository) ListByParticipant(ctx context.Context, email string) ([]model.Registration, error) {
	var regs []model.Registration
	err := r.db.WithContext(ctx).Where("participant_email = ?", email).Order("created_at DESC").Find(&regs).Error
	return regs, err
}

func (r *RegistrationRepository) ListByOrganizer(ctx context.Context, email string) ([]model.Registration, error) {
	var regs []model.Registration
	err := r.db.WithContext(ctx).Where("organizer_email = ?", email).Order("created_at DESC").Find(&regs).Error
	return regs, err
}

func (r *RegistrationRepository) CountByCamp(ctx context.Context, campID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Registration{}).Where("camp_id = ?", campID).Count(&n).Error
	return n, err
}

func (r *RegistrationRepository) MarkPaid(ctx context.Context, id, transactionID string, confirm bool) (bool, error) {
	confirmation := model.ConfirmationPending
	if confirm {
		confirmation = model.ConfirmationConfirmed
	}
	res := r.db.WithContext(ctx).Model(&model.Registration{}).
		Where("id = ? AND payment_status = ?", id, model.PaymentPending).
		Updates(map[string]any{
			"payment_status":      model.PaymentPaid,
			"confirmation_status": confirmation,
			"transaction_id":      transactionID,
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark registration paid: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *RegistrationRepository) ReleasePaid(ctx context.Context, id, transactionID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Registration{}).
		Where("id = ? AND payment_status = ? AND transaction_id = ?", id, model.PaymentPaid, transactionID).
		Updates(map[string]any{
			"payment_status":      model.PaymentPending,
			"confirmation_status": model.ConfirmationPending,
			"transaction_id":      "",
		})
	if res.Error != nil {
		return false, fmt.Errorf("release paid registration: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *RegistrationRepository) MarkConfirmed(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Registration{}).
		Where("id = ? AND payment_status = ? AND confirmation_status = ?",
			id, model.PaymentPaid, model.ConfirmationPending).
		Update("confirmation_status", model.ConfirmationConfirmed)
	if res.Error != nil {
		return false, fmt.Errorf("confirm registration: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *RegistrationRepository) MarkFeedbackGiven(ctx context.Context, campID, email string) error {
	return r.db.WithContext(ctx).Model(&model.Registration{}).
		Where("camp_id = ? AND participant_email = ?", campID, email).
		Update("feedback_given", true).Error
}

func (r *RegistrationRepository) DeleteUnpaid(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND payment_status = ?", id, model.PaymentPending).
		Delete(&model.Registration{})
	if res.Error != nil {
		return false, fmt.Errorf("delete unpaid registration: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *RegistrationRepository) DeleteUnlessSettled(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND NOT (payment_status = ? AND confirmation_status = ?)",
			id, model.PaymentPaid, model.ConfirmationConfirmed).
		Delete(&model.Registration{})
	if res.Error != nil {
		return false, fmt.Errorf("delete registration: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

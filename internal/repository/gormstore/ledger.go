package gormstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Shivanand-hulikatti/medicamp/internal/model"
	"github.com/Shivanand-hulikatti/medicamp/internal/repository"
)

// SettlementRepository is the append-only settlement log.
type SettlementRepository struct {
	db *gorm.DB
}

// NewSettlementRepository constructs a SettlementRepository.
func NewSettlementRepository(db *gorm.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// Append inserts the settlement or returns ErrDuplicate when the one-Paid-
// per-registration index or the transaction id index already holds a row.
func (r *SettlementRepository) Append(ctx context.Context, s *model.Settlement) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(s)
	if res.Error != nil {
		return fmt.Errorf("insert settlement: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrDuplicate
	}
	return nil
}

func (r *SettlementRepository) FindPaidByRegistration(ctx context.Context, registrationID string) (*model.Settlement, error) {
	var s model.Settlement
	err := r.db.WithContext(ctx).
		Where("registration_id = ? AND status = ?", registrationID, model.SettlementPaid).
		First(&s).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *SettlementRepository) ListByParticipant(ctx context.Context, email string, limit, offset int) ([]model.Settlement, int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&model.Settlement{}).Where("participant_email = ?", email)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count settlements: %w", err)
	}
	var out []model.Settlement
	err := r.db.WithContext(ctx).
		Where("participant_email = ?", email).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&out).Error
	return out, total, err
}

// FeedbackRepository handles persistence for camp feedback.
type FeedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository constructs a FeedbackRepository.
func NewFeedbackRepository(db *gorm.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

func (r *FeedbackRepository) Create(ctx context.Context, f *model.Feedback) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f)
	if res.Error != nil {
		return fmt.Errorf("insert feedback: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrDuplicate
	}
	return nil
}

func (r *FeedbackRepository) GetByID(ctx context.Context, id string) (*model.Feedback, error) {
	var f model.Feedback
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func (r *FeedbackRepository) ListByParticipant(ctx context.Context, email string) ([]model.Feedback, error) {
	var out []model.Feedback
	err := r.db.WithContext(ctx).Where("participant_email = ?", email).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *FeedbackRepository) ListByOrganizer(ctx context.Context, email string, pendingOnly bool) ([]model.Feedback, error) {
	q := r.db.WithContext(ctx).Where("organizer_email = ?", email)
	if pendingOnly {
		q = q.Where("approved = ?", false)
	}
	var out []model.Feedback
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *FeedbackRepository) ListApproved(ctx context.Context) ([]model.Feedback, error) {
	var out []model.Feedback
	err := r.db.WithContext(ctx).Where("approved = ?", true).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *FeedbackRepository) Approve(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&model.Feedback{}).Where("id = ?", id).Update("approved", true)
	if res.Error != nil {
		return fmt.Errorf("approve feedback: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *FeedbackRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Feedback{})
	if res.Error != nil {
		return fmt.Errorf("delete feedback: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// OrganizerRepository is the organizer directory.
type OrganizerRepository struct {
	db *gorm.DB
}

// NewOrganizerRepository constructs an OrganizerRepository.
func NewOrganizerRepository(db *gorm.DB) *OrganizerRepository {
	return &OrganizerRepository{db: db}
}

func (r *OrganizerRepository) GetByEmail(ctx context.Context, email string) (*model.Organizer, error) {
	var o model.Organizer
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&o).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

// Upsert creates or updates the profile keyed by email.
func (r *OrganizerRepository) Upsert(ctx context.Context, o *model.Organizer) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	o.UpdatedAt = time.Now().UTC()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "image", "telegram_chat_id", "updated_at"}),
	}).Create(o).Error
	if err != nil {
		return fmt.Errorf("upsert organizer: %w", err)
	}
	stored, err := r.GetByEmail(ctx, o.Email)
	if err != nil {
		return err
	}
	o.ID = stored.ID
	return nil
}

// UserRepository is the participant directory.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepository) Upsert(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.UpdatedAt = time.Now().UTC()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "image", "phone", "updated_at"}),
	}).Create(u).Error
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	stored, err := r.GetByEmail(ctx, u.Email)
	if err != nil {
		return err
	}
	u.ID = stored.ID
	return nil
}

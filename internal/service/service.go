// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer. Every error leaving this
// package is an *apperr.Error.
package service

import (
	"context"
	"errors"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Shivanand-hulikatti/medicamp/internal/apperr"
	"github.com/Shivanand-hulikatti/medicamp/internal/config"
	"github.com/Shivanand-hulikatti/medicamp/internal/model"
	"github.com/Shivanand-hulikatti/medicamp/internal/repository"
)

// CampStore persists camps. AdjustParticipantCount must be a single atomic
// storage operation floored at zero.
type CampStore interface {
	Create(ctx context.Context, c *model.Camp) error
	GetByID(ctx context.Context, id string) (*model.Camp, error)
	List(ctx context.Context) ([]model.Camp, error)
	ListTop(ctx context.Context, n int) ([]model.Camp, error)
	ListByOrganizer(ctx context.Context, email string) ([]model.Camp, error)
	Update(ctx context.Context, c *model.Camp) error
	Delete(ctx context.Context, id string) error
	AdjustParticipantCount(ctx context.Context, id string, delta int) error
	RecountParticipants(ctx context.Context) (int64, error)
}

// RegistrationStore persists registrations. The Mark* and Delete* methods are
// conditional and report whether a row changed.
type RegistrationStore interface {
	Create(ctx context.Context, reg *model.Registration) error
	GetByID(ctx context.Context, id string) (*model.Registration, error)
	FindByCampAndParticipant(ctx context.Context, campID, email string) (*model.Registration, error)
	ListByParticipant(ctx context.Context, email string) ([]model.Registration, error)
	ListByOrganizer(ctx context.Context, email string) ([]model.Registration, error)
	CountByCamp(ctx context.Context, campID string) (int64, error)
	MarkPaid(ctx context.Context, id, transactionID string, confirm bool) (bool, error)
	ReleasePaid(ctx context.Context, id, transactionID string) (bool, error)
	MarkConfirmed(ctx context.Context, id string) (bool, error)
	MarkFeedbackGiven(ctx context.Context, campID, email string) error
	DeleteUnpaid(ctx context.Context, id string) (bool, error)
	DeleteUnlessSettled(ctx context.Context, id string) (bool, error)
}

// SettlementStore is the append-only settlement log.
type SettlementStore interface {
	Append(ctx context.Context, s *model.Settlement) error
	FindPaidByRegistration(ctx context.Context, registrationID string) (*model.Settlement, error)
	ListByParticipant(ctx context.Context, email string, limit, offset int) ([]model.Settlement, int64, error)
}

// FeedbackStore persists camp feedback.
type FeedbackStore interface {
	Create(ctx context.Context, f *model.Feedback) error
	GetByID(ctx context.Context, id string) (*model.Feedback, error)
	ListByParticipant(ctx context.Context, email string) ([]model.Feedback, error)
	ListByOrganizer(ctx context.Context, email string, pendingOnly bool) ([]model.Feedback, error)
	ListApproved(ctx context.Context) ([]model.Feedback, error)
	Approve(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// OrganizerStore is the organizer directory.
type OrganizerStore interface {
	GetByEmail(ctx context.Context, email string) (*model.Organizer, error)
	Upsert(ctx context.Context, o *model.Organizer) error
}

// UserStore is the participant directory.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Upsert(ctx context.Context, u *model.User) error
}

// Store bundles one backend's repositories.
type Store struct {
	Camps         CampStore
	Registrations RegistrationStore
	Settlements   SettlementStore
	Feedback      FeedbackStore
	Organizers    OrganizerStore
	Users         UserStore
}

// Policy holds the payment settings the services run with.
type Policy struct {
	Confirmation    string // config.PolicyDirect or config.PolicyManual
	Currency        string
	SuccessURL      string
	CancelURL       string
	FallbackTxnID   bool
	UpstreamTimeout time.Duration
}

// PolicyFromConfig copies the payment settings out of cfg.
func PolicyFromConfig(cfg config.Config) Policy {
	return Policy{
		Confirmation:    cfg.ConfirmationPolicy,
		Currency:        cfg.Currency,
		SuccessURL:      cfg.SuccessURL,
		CancelURL:       cfg.CancelURL,
		FallbackTxnID:   cfg.FallbackTxnID,
		UpstreamTimeout: cfg.UpstreamTimeout,
	}
}

// confirmOnPayment is true under the direct policy: payment confirms.
func (p Policy) confirmOnPayment() bool {
	return p.Confirmation != config.PolicyManual
}

func (p Policy) upstreamContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.UpstreamTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.UpstreamTimeout)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report json names so messages match the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateRequest runs struct validation and folds failures into one
// ValidationError naming every offending field.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("invalid request: %v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "email":
			msgs = append(msgs, fe.Field()+" must be a valid email")
		default:
			msgs = append(msgs, strings.TrimSpace(fe.Field()+" fails "+fe.Tag()+" "+fe.Param()))
		}
	}
	return apperr.Validation("%s", strings.Join(msgs, "; "))
}

// storeErr logs an unexpected store failure and wraps it for the caller.
func storeErr(op string, err error) error {
	log.Printf("[store] %s: %v", op, err)
	return apperr.Persistence("failed to "+op, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

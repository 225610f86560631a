package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/Shivanand-hulikatti/medicamp/internal/apperr"
	"github.com/Shivanand-hulikatti/medicamp/internal/auth"
	"github.com/Shivanand-hulikatti/medicamp/internal/model"
	"github.com/Shivanand-hulikatti/medicamp/internal/repository"
)

// RegistrationService owns the registration ledger: enrollment, cancellation
// and organizer confirmation. The camp counter is adjusted through the
// CampService after each ledger change.
type RegistrationService struct {
	camps *CampService
	regs  RegistrationStore
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(camps *CampService, regs RegistrationStore) *RegistrationService {
	return &RegistrationService{camps: camps, regs: regs}
}

// Create enrolls the caller in a camp. The new registration starts Pending and
// the camp's participant count goes up by one.
func (s *RegistrationService) Create(ctx context.Context, p auth.Principal, req model.RegisterRequest) (*model.Registration, error) {
	if p.IsOrganizer() {
		return nil, apperr.Forbidden("organizers cannot register for camps")
	}
	req.ParticipantName = strings.TrimSpace(req.ParticipantName)
	req.ParticipantEmail = strings.TrimSpace(req.ParticipantEmail)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if !p.Owns(req.ParticipantEmail) {
		return nil, apperr.Forbidden("you can only register yourself")
	}

	camp, err := s.camps.Get(ctx, req.CampID)
	if err != nil {
		return nil, err
	}

	reg := &model.Registration{
		CampID:                 camp.ID,
		CampName:               camp.Name,
		CampFee:                camp.Fee,
		Location:               camp.Location,
		HealthcareProfessional: camp.HealthcareProfessional,
		ParticipantName:        req.ParticipantName,
		ParticipantEmail:       p.Email,
		Age:                    req.Age,
		Phone:                  strings.TrimSpace(req.Phone),
		Gender:                 req.Gender,
		EmergencyContact:       strings.TrimSpace(req.EmergencyContact),
		OrganizerEmail:         camp.OrganizerEmail,
		PaymentStatus:          model.PaymentPending,
		ConfirmationStatus:     model.ConfirmationPending,
	}
	if err := s.regs.Create(ctx, reg); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyRegistered):
			return nil, apperr.Conflict("you are already registered for this camp")
		case isNotFound(err):
			return nil, apperr.NotFound("camp not found")
		default:
			return nil, storeErr("create registration", err)
		}
	}

	if err := s.camps.AdjustParticipantCount(ctx, camp.ID, +1); err != nil {
		// Undo the insert so the counter never lags a live registration.
		if _, delErr := s.regs.DeleteUnpaid(ctx, reg.ID); delErr != nil {
			log.Printf("[ledger] rollback of registration %s failed: %v", reg.ID, delErr)
		}
		return nil, err
	}
	log.Printf("[ledger] %s registered for camp %s (%s)", p.Email, camp.ID, reg.ID)
	return reg, nil
}

// Get returns a registration visible to the caller: its participant or its
// organizer.
func (s *RegistrationService) Get(ctx context.Context, p auth.Principal, id string) (*model.Registration, error) {
	reg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Owns(reg.ParticipantEmail) && !(p.IsOrganizer() && p.Owns(reg.OrganizerEmail)) {
		return nil, apperr.Forbidden("registration belongs to someone else")
	}
	return reg, nil
}

func (s *RegistrationService) load(ctx context.Context, id string) (*model.Registration, error) {
	if id == "" {
		return nil, apperr.Validation("registration id is required")
	}
	reg, err := s.regs.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("registration not found")
		}
		return nil, storeErr("get registration", err)
	}
	return reg, nil
}

// Cancel deletes a registration on behalf of its participant or its
// organizer, depending on the caller's role.
func (s *RegistrationService) Cancel(ctx context.Context, p auth.Principal, id string) error {
	if p.IsOrganizer() {
		return s.CancelByOrganizer(ctx, p, id)
	}
	return s.CancelByParticipant(ctx, p, id)
}

// CancelByParticipant deletes the caller's own registration while it is
// still unpaid.
func (s *RegistrationService) CancelByParticipant(ctx context.Context, p auth.Principal, id string) error {
	reg, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !p.Owns(reg.ParticipantEmail) {
		return apperr.Forbidden("registration belongs to someone else")
	}
	if reg.IsPaid() {
		return apperr.Conflict("registration is already paid, contact support to cancel")
	}

	deleted, err := s.regs.DeleteUnpaid(ctx, id)
	if err != nil {
		return storeErr("cancel registration", err)
	}
	if !deleted {
		// Lost a race with a payment or another cancel.
		return s.explainMissedDelete(ctx, id, "registration is already paid, contact support to cancel")
	}
	return s.afterCancel(ctx, reg, p)
}

// CancelByOrganizer deletes a registration for one of the caller's camps
// unless it is both paid and confirmed.
func (s *RegistrationService) CancelByOrganizer(ctx context.Context, p auth.Principal, id string) error {
	if !p.IsOrganizer() {
		return apperr.Forbidden("only organizers can cancel on behalf of participants")
	}
	reg, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !p.Owns(reg.OrganizerEmail) {
		return apperr.Forbidden("registration belongs to another organizer's camp")
	}
	if reg.IsSettled() {
		return apperr.Conflict("registration is paid and confirmed and cannot be cancelled")
	}

	deleted, err := s.regs.DeleteUnlessSettled(ctx, id)
	if err != nil {
		return storeErr("cancel registration", err)
	}
	if !deleted {
		return s.explainMissedDelete(ctx, id, "registration is paid and confirmed and cannot be cancelled")
	}
	return s.afterCancel(ctx, reg, p)
}

// explainMissedDelete turns a conditional delete that matched nothing into
// NotFound (already gone) or Conflict (state moved on).
func (s *RegistrationService) explainMissedDelete(ctx context.Context, id, conflictMsg string) error {
	_, err := s.regs.GetByID(ctx, id)
	switch {
	case isNotFound(err):
		return apperr.NotFound("registration not found")
	case err != nil:
		return storeErr("get registration", err)
	default:
		return apperr.Conflict("%s", conflictMsg)
	}
}

func (s *RegistrationService) afterCancel(ctx context.Context, reg *model.Registration, p auth.Principal) error {
	if err := s.camps.AdjustParticipantCount(ctx, reg.CampID, -1); err != nil {
		// The registration is gone; the recount job repairs the counter.
		if apperr.IsKind(err, apperr.KindNotFound) {
			log.Printf("[ledger] camp %s vanished while cancelling %s", reg.CampID, reg.ID)
			return nil
		}
		return err
	}
	log.Printf("[ledger] %s cancelled registration %s for camp %s", p.Email, reg.ID, reg.CampID)
	return nil
}

// Confirm is the organizer's acknowledgement of a paid registration under the
// manual confirmation policy.
func (s *RegistrationService) Confirm(ctx context.Context, p auth.Principal, id string) (*model.Registration, error) {
	if !p.IsOrganizer() {
		return nil, apperr.Forbidden("only organizers can confirm registrations")
	}
	reg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Owns(reg.OrganizerEmail) {
		return nil, apperr.Forbidden("registration belongs to another organizer's camp")
	}
	if reg.IsSettled() {
		return reg, nil
	}
	if !reg.IsPaid() {
		return nil, apperr.Conflict("registration has not been paid yet")
	}

	if _, err := s.regs.MarkConfirmed(ctx, id); err != nil {
		return nil, storeErr("confirm registration", err)
	}
	reg, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !reg.IsSettled() {
		return nil, apperr.Conflict("registration could not be confirmed")
	}
	return reg, nil
}

// ListForParticipant returns the registrations of email, which must be the
// caller's own.
func (s *RegistrationService) ListForParticipant(ctx context.Context, p auth.Principal, email string) ([]model.Registration, error) {
	if email != "" && !p.Owns(email) {
		return nil, apperr.Forbidden("you can only list your own registrations")
	}
	regs, err := s.regs.ListByParticipant(ctx, p.Email)
	if err != nil {
		return nil, storeErr("list participant registrations", err)
	}
	return nonNil(regs), nil
}

// ListForOrganizer returns registrations across the camps of email, which
// must be the calling organizer.
func (s *RegistrationService) ListForOrganizer(ctx context.Context, p auth.Principal, email string) ([]model.Registration, error) {
	if !p.IsOrganizer() {
		return nil, apperr.Forbidden("only organizers can list camp registrations")
	}
	if email != "" && !p.Owns(email) {
		return nil, apperr.Forbidden("you can only list registrations for your own camps")
	}
	regs, err := s.regs.ListByOrganizer(ctx, p.Email)
	if err != nil {
		return nil, storeErr("list organizer registrations", err)
	}
	return nonNil(regs), nil
}

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

// FeedbackService collects participant ratings and the organizer review of
// them.
type FeedbackService struct {
	regs     RegistrationStore
	feedback FeedbackStore
}

// NewFeedbackService constructs a FeedbackService.
func NewFeedbackService(regs RegistrationStore, feedback FeedbackStore) *FeedbackService {
	return &FeedbackService{regs: regs, feedback: feedback}
}

// Submit records the caller's feedback for a camp they registered for. Each
// participant rates a camp once.
func (s *FeedbackService) Submit(ctx context.Context, p auth.Principal, req model.FeedbackRequest) (*model.Feedback, error) {
	if p.IsOrganizer() {
		return nil, apperr.Forbidden("organizers cannot leave feedback")
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	reg, err := s.regs.FindByCampAndParticipant(ctx, req.CampID, p.Email)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("no registration for this camp")
		}
		return nil, storeErr("find registration", err)
	}

	f := &model.Feedback{
		CampID:           reg.CampID,
		CampName:         reg.CampName,
		OrganizerEmail:   reg.OrganizerEmail,
		ParticipantName:  reg.ParticipantName,
		ParticipantEmail: p.Email,
		Rating:           req.Rating,
		Comment:          req.Comment,
		Approved:         false,
	}
	if err := s.feedback.Create(ctx, f); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("feedback already submitted for this camp")
		}
		return nil, storeErr("create feedback", err)
	}
	if err := s.regs.MarkFeedbackGiven(ctx, reg.CampID, p.Email); err != nil {
		log.Printf("[feedback] mark feedbackGiven on %s: %v", reg.ID, err)
	}
	return f, nil
}

// Mine lists the caller's own feedback.
func (s *FeedbackService) Mine(ctx context.Context, p auth.Principal) ([]model.Feedback, error) {
	out, err := s.feedback.ListByParticipant(ctx, p.Email)
	if err != nil {
		return nil, storeErr("list feedback", err)
	}
	return nonNil(out), nil
}

// Manage lists feedback on the calling organizer's camps.
func (s *FeedbackService) Manage(ctx context.Context, p auth.Principal, pendingOnly bool) ([]model.Feedback, error) {
	if !p.IsOrganizer() {
		return nil, apperr.Forbidden("only organizers can review feedback")
	}
	out, err := s.feedback.ListByOrganizer(ctx, p.Email, pendingOnly)
	if err != nil {
		return nil, storeErr("list organizer feedback", err)
	}
	return nonNil(out), nil
}

// Approved lists feedback published by organizers.
func (s *FeedbackService) Approved(ctx context.Context) ([]model.Feedback, error) {
	out, err := s.feedback.ListApproved(ctx)
	if err != nil {
		return nil, storeErr("list approved feedback", err)
	}
	return nonNil(out), nil
}

func (s *FeedbackService) load(ctx context.Context, id string) (*model.Feedback, error) {
	f, err := s.feedback.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("feedback not found")
		}
		return nil, storeErr("get feedback", err)
	}
	return f, nil
}

// Approve publishes feedback on one of the caller's camps.
func (s *FeedbackService) Approve(ctx context.Context, p auth.Principal, id string) error {
	if !p.IsOrganizer() {
		return apperr.Forbidden("only organizers can approve feedback")
	}
	f, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !p.Owns(f.OrganizerEmail) {
		return apperr.Forbidden("feedback belongs to another organizer's camp")
	}
	if err := s.feedback.Approve(ctx, id); err != nil {
		if isNotFound(err) {
			return apperr.NotFound("feedback not found")
		}
		return storeErr("approve feedback", err)
	}
	return nil
}

// Delete removes feedback. Its author and the camp's organizer may delete it.
func (s *FeedbackService) Delete(ctx context.Context, p auth.Principal, id string) error {
	f, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !p.Owns(f.ParticipantEmail) && !(p.IsOrganizer() && p.Owns(f.OrganizerEmail)) {
		return apperr.Forbidden("feedback belongs to someone else")
	}
	if err := s.feedback.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return apperr.NotFound("feedback not found")
		}
		return storeErr("delete feedback", err)
	}
	return nil
}

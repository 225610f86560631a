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

// DefaultTopCamps is how many camps ListTop returns when n is not positive.
const DefaultTopCamps = 6

const maxTopCamps = 100

// CampService orchestrates camp registry operations.
type CampService struct {
	camps CampStore
}

// NewCampService constructs a CampService.
func NewCampService(camps CampStore) *CampService {
	return &CampService{camps: camps}
}

// Create publishes a camp owned by the calling organizer.
func (s *CampService) Create(ctx context.Context, p auth.Principal, req model.CreateCampRequest) (*model.Camp, error) {
	if !p.IsOrganizer() {
		return nil, apperr.Forbidden("only organizers can publish camps")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Location = strings.TrimSpace(req.Location)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if !p.Owns(req.OrganizerEmail) {
		return nil, apperr.Forbidden("organizerEmail must match the signed-in organizer")
	}

	c := &model.Camp{
		Name:                   req.Name,
		Image:                  req.Image,
		Fee:                    *req.Fee,
		ScheduledAt:            req.ScheduledAt.UTC(),
		Location:               req.Location,
		HealthcareProfessional: strings.TrimSpace(req.HealthcareProfessional),
		Description:            req.Description,
		OrganizerEmail:         p.Email,
		ParticipantCount:       0,
	}
	if err := s.camps.Create(ctx, c); err != nil {
		return nil, storeErr("create camp", err)
	}
	log.Printf("[camp] %s created camp %s", p.Email, c.ID)
	return c, nil
}

// Get returns one camp.
func (s *CampService) Get(ctx context.Context, id string) (*model.Camp, error) {
	if id == "" {
		return nil, apperr.Validation("camp id is required")
	}
	c, err := s.camps.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("camp not found")
		}
		return nil, storeErr("get camp", err)
	}
	return c, nil
}

// List returns every camp, most popular first.
func (s *CampService) List(ctx context.Context) ([]model.Camp, error) {
	camps, err := s.camps.List(ctx)
	if err != nil {
		return nil, storeErr("list camps", err)
	}
	return nonNil(camps), nil
}

// ListTop returns up to n camps ordered by participant count.
func (s *CampService) ListTop(ctx context.Context, n int) ([]model.Camp, error) {
	if n <= 0 {
		n = DefaultTopCamps
	}
	if n > maxTopCamps {
		n = maxTopCamps
	}
	camps, err := s.camps.ListTop(ctx, n)
	if err != nil {
		return nil, storeErr("list top camps", err)
	}
	return nonNil(camps), nil
}

// ListMine returns the camps the calling organizer owns.
func (s *CampService) ListMine(ctx context.Context, p auth.Principal) ([]model.Camp, error) {
	if !p.IsOrganizer() {
		return nil, apperr.Forbidden("only organizers have camps")
	}
	camps, err := s.camps.ListByOrganizer(ctx, p.Email)
	if err != nil {
		return nil, storeErr("list organizer camps", err)
	}
	return nonNil(camps), nil
}

// owned loads a camp and checks the caller owns it.
func (s *CampService) owned(ctx context.Context, p auth.Principal, id string) (*model.Camp, error) {
	if !p.IsOrganizer() {
		return nil, apperr.Forbidden("only organizers can manage camps")
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Owns(c.OrganizerEmail) {
		return nil, apperr.Forbidden("camp belongs to another organizer")
	}
	return c, nil
}

// Update edits the mutable fields of a camp the caller owns. Registrations
// keep the snapshot they were created with.
func (s *CampService) Update(ctx context.Context, p auth.Principal, id string, req model.UpdateCampRequest) (*model.Camp, error) {
	c, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Image != nil {
		c.Image = *req.Image
	}
	if req.Fee != nil {
		c.Fee = *req.Fee
	}
	if req.ScheduledAt != nil {
		c.ScheduledAt = req.ScheduledAt.UTC()
	}
	if req.Location != nil {
		c.Location = strings.TrimSpace(*req.Location)
	}
	if req.HealthcareProfessional != nil {
		c.HealthcareProfessional = strings.TrimSpace(*req.HealthcareProfessional)
	}
	if req.Description != nil {
		c.Description = *req.Description
	}

	if err := s.camps.Update(ctx, c); err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("camp not found")
		}
		return nil, storeErr("update camp", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a camp the caller owns. Camps with registrations cannot be
// deleted; the organizer cancels those first.
func (s *CampService) Delete(ctx context.Context, p auth.Principal, id string) error {
	if _, err := s.owned(ctx, p, id); err != nil {
		return err
	}
	err := s.camps.Delete(ctx, id)
	switch {
	case err == nil:
		log.Printf("[camp] %s deleted camp %s", p.Email, id)
		return nil
	case errors.Is(err, repository.ErrInUse):
		return apperr.Conflict("camp still has registrations; cancel them before deleting the camp")
	case isNotFound(err):
		return apperr.NotFound("camp not found")
	default:
		return storeErr("delete camp", err)
	}
}

// AdjustParticipantCount applies delta to a camp's counter, floored at zero.
func (s *CampService) AdjustParticipantCount(ctx context.Context, id string, delta int) error {
	if err := s.camps.AdjustParticipantCount(ctx, id, delta); err != nil {
		if isNotFound(err) {
			return apperr.NotFound("camp not found")
		}
		return storeErr("adjust participant count", err)
	}
	return nil
}

// Recount recomputes every camp's participant count from its registrations
// and returns how many camps were corrected.
func (s *CampService) Recount(ctx context.Context) (int64, error) {
	n, err := s.camps.RecountParticipants(ctx)
	if err != nil {
		return 0, storeErr("recount participants", err)
	}
	if n > 0 {
		log.Printf("[camp] recount corrected %d camp(s)", n)
	}
	return n, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

package service

import (
	"context"
	"strings"

	"github.com/Shivanand-hulikatti/medicamp/internal/apperr"
	"github.com/Shivanand-hulikatti/medicamp/internal/auth"
	"github.com/Shivanand-hulikatti/medicamp/internal/model"
)

// ParticipantService manages participant profiles.
type ParticipantService struct {
	users UserStore
}

// NewParticipantService constructs a ParticipantService.
func NewParticipantService(users UserStore) *ParticipantService {
	return &ParticipantService{users: users}
}

// Profile returns the caller's saved profile, or one built from the token if
// nothing was saved yet.
func (s *ParticipantService) Profile(ctx context.Context, p auth.Principal) (*model.User, error) {
	if p.IsOrganizer() {
		return nil, apperr.Forbidden("organizers manage their profile under /organizers/me")
	}
	u, err := s.users.GetByEmail(ctx, p.Email)
	if err != nil {
		if isNotFound(err) {
			return &model.User{Email: p.Email, Name: p.Name}, nil
		}
		return nil, storeErr("get user", err)
	}
	return u, nil
}

// Update saves the caller's profile under the caller's own email.
func (s *ParticipantService) Update(ctx context.Context, p auth.Principal, req model.UpdateUserRequest) (*model.User, error) {
	if p.IsOrganizer() {
		return nil, apperr.Forbidden("organizers manage their profile under /organizers/me")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	u := &model.User{
		Email: p.Email,
		Name:  req.Name,
		Image: req.Image,
		Phone: req.Phone,
	}
	if err := s.users.Upsert(ctx, u); err != nil {
		return nil, storeErr("save user", err)
	}
	return u, nil
}

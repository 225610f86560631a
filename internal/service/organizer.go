package service

import (
	"context"
	"strings"

	"github.com/Shivanand-hulikatti/medicamp/internal/apperr"
	"github.com/Shivanand-hulikatti/medicamp/internal/auth"
	"github.com/Shivanand-hulikatti/medicamp/internal/model"
)

// OrganizerService manages organizer profiles.
type OrganizerService struct {
	organizers OrganizerStore
}

// NewOrganizerService constructs an OrganizerService.
func NewOrganizerService(organizers OrganizerStore) *OrganizerService {
	return &OrganizerService{organizers: organizers}
}

// Profile returns the caller's profile. An organizer whose role came from the
// token and who never saved a profile gets one built from the token.
func (s *OrganizerService) Profile(ctx context.Context, p auth.Principal) (*model.Organizer, error) {
	if !p.IsOrganizer() {
		return nil, apperr.Forbidden("only organizers have a profile")
	}
	o, err := s.organizers.GetByEmail(ctx, p.Email)
	if err != nil {
		if isNotFound(err) {
			return &model.Organizer{Email: p.Email, Name: p.Name}, nil
		}
		return nil, storeErr("get organizer", err)
	}
	return o, nil
}

// Update saves the caller's profile.
func (s *OrganizerService) Update(ctx context.Context, p auth.Principal, req model.UpdateOrganizerRequest) (*model.Organizer, error) {
	if !p.IsOrganizer() {
		return nil, apperr.Forbidden("only organizers have a profile")
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	o := &model.Organizer{
		Email:          p.Email,
		Name:           req.Name,
		Image:          req.Image,
		TelegramChatID: req.TelegramChatID,
	}
	if err := s.organizers.Upsert(ctx, o); err != nil {
		return nil, storeErr("save organizer", err)
	}
	return o, nil
}

package auth

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/medicamp/internal/apperr"
	"github.com/Shivanand-hulikatti/medicamp/internal/model"
	"github.com/Shivanand-hulikatti/medicamp/internal/repository"
)

// OrganizerDirectory looks up organizer profiles by normalised email.
type OrganizerDirectory interface {
	GetByEmail(ctx context.Context, email string) (*model.Organizer, error)
}

// Resolver is the single place a credential becomes a Principal: the token
// is verified, then the role is taken from the token's role claim or, when
// absent, from the organizer directory.
type Resolver struct {
	verifier   Verifier
	organizers OrganizerDirectory
	timeout    time.Duration
}

// NewResolver wires a verifier and the organizer directory. timeout bounds
// the verifier and directory calls; zero means no extra bound.
func NewResolver(v Verifier, organizers OrganizerDirectory, timeout time.Duration) *Resolver {
	return &Resolver{verifier: v, organizers: organizers, timeout: timeout}
}

// Resolve verifies token and returns the caller's principal.
func (r *Resolver) Resolve(ctx context.Context, token string) (Principal, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	id, err := r.verifier.Verify(ctx, token)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnknown {
			log.Printf("[auth] verifier error: %v", err)
			return Principal{}, apperr.Upstream("identity verification failed", err)
		}
		return Principal{}, err
	}

	p := Principal{
		UID:   id.UID,
		Email: NormalizeEmail(id.Email),
		Name:  strings.TrimSpace(id.Name),
		Role:  RoleParticipant,
	}

	switch Role(strings.ToLower(id.Role)) {
	case RoleOrganizer:
		p.Role = RoleOrganizer
	case RoleParticipant:
	default:
		if r.organizers == nil {
			break
		}
		org, err := r.organizers.GetByEmail(ctx, p.Email)
		switch {
		case err == nil:
			p.Role = RoleOrganizer
			if p.Name == "" {
				p.Name = org.Name
			}
		case errors.Is(err, repository.ErrNotFound):
		default:
			log.Printf("[auth] organizer lookup for %s: %v", describe(id), err)
			return Principal{}, apperr.Persistence("failed to resolve caller role", err)
		}
	}
	return p, nil
}

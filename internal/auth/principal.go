// Package auth verifies bearer credentials and resolves them into a
// Principal once, at the HTTP boundary. Everything below the handlers works
// with the Principal only.
package auth

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Role tags a principal as a participant or an organizer.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleOrganizer   Role = "organizer"
)

// Principal is an authenticated caller.
type Principal struct {
	UID   string
	Email string // normalised, see NormalizeEmail
	Name  string
	Role  Role
}

// IsOrganizer reports whether the principal acts as an organizer.
func (p Principal) IsOrganizer() bool { return p.Role == RoleOrganizer }

// DisplayName falls back to the email when the token carried no name.
func (p Principal) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}

// Owns reports whether email identifies this principal.
func (p Principal) Owns(email string) bool {
	return p.Email != "" && p.Email == NormalizeEmail(email)
}

// NormalizeEmail trims, NFC-normalises and lowercases an email so that
// identity comparisons are case-insensitive everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(email)))
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom extracts the principal stored by WithPrincipal.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Shivanand-hulikatti/medicamp/internal/apperr"
	"github.com/Shivanand-hulikatti/medicamp/internal/model"
	"github.com/Shivanand-hulikatti/medicamp/internal/repository"
)

type stubDirectory struct {
	organizers map[string]*model.Organizer
	err        error
}

func (s stubDirectory) GetByEmail(_ context.Context, email string) (*model.Organizer, error) {
	if s.err != nil {
		return nil, s.err
	}
	if o, ok := s.organizers[email]; ok {
		return o, nil
	}
	return nil, repository.ErrNotFound
}

func signed(t *testing.T, v *JWTVerifier, id Identity, exp time.Duration) string {
	t.Helper()
	tok, err := v.Sign(id, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(exp))})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  A@X.com "); got != "a@x.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
	p := Principal{Email: "a@x.com"}
	if !p.Owns("A@X.COM") {
		t.Error("Owns should be case-insensitive")
	}
	if p.Owns("b@x.com") {
		t.Error("Owns matched a different email")
	}
}

func TestJWTVerifier(t *testing.T) {
	v := NewJWTVerifier("s3cret", "medicamp")
	tok := signed(t, v, Identity{UID: "u1", Email: "Ann@Example.com", Role: "organizer"}, time.Hour)

	id, err := v.Verify(context.Background(), tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.UID != "u1" || id.Email != "Ann@Example.com" || id.Role != "organizer" {
		t.Errorf("unexpected identity %+v", id)
	}

	expired := signed(t, v, Identity{UID: "u1", Email: "a@x.com"}, -time.Minute)
	if _, err := v.Verify(context.Background(), expired); !apperr.IsKind(err, apperr.KindAuthentication) {
		t.Errorf("expired token: %v", err)
	}

	other := NewJWTVerifier("other", "medicamp")
	forged := signed(t, other, Identity{UID: "u1", Email: "a@x.com"}, time.Hour)
	if _, err := v.Verify(context.Background(), forged); !apperr.IsKind(err, apperr.KindAuthentication) {
		t.Errorf("forged token: %v", err)
	}

	wrongIssuer := NewJWTVerifier("s3cret", "someone-else")
	tok = signed(t, wrongIssuer, Identity{UID: "u1", Email: "a@x.com"}, time.Hour)
	if _, err := v.Verify(context.Background(), tok); !apperr.IsKind(err, apperr.KindAuthentication) {
		t.Errorf("wrong issuer: %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	if tok, err := BearerToken("Bearer abc"); err != nil || tok != "abc" {
		t.Errorf("BearerToken = %q, %v", tok, err)
	}
	for _, h := range []string{"", "Bearer ", "Basic abc", "abc"} {
		if _, err := BearerToken(h); !apperr.IsKind(err, apperr.KindAuthentication) {
			t.Errorf("%q: expected authentication error, got %v", h, err)
		}
	}
}

func TestResolverRoles(t *testing.T) {
	v := NewJWTVerifier("s3cret", "")
	dir := stubDirectory{organizers: map[string]*model.Organizer{
		"org@x.com": {Email: "org@x.com", Name: "Dr. Org"},
	}}
	r := NewResolver(v, dir, time.Second)
	ctx := context.Background()

	p, err := r.Resolve(ctx, signed(t, v, Identity{UID: "1", Email: "ORG@x.com"}, time.Hour))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !p.IsOrganizer() || p.Email != "org@x.com" || p.Name != "Dr. Org" {
		t.Errorf("directory organizer resolved as %+v", p)
	}

	p, err = r.Resolve(ctx, signed(t, v, Identity{UID: "2", Email: "pat@x.com"}, time.Hour))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.IsOrganizer() {
		t.Error("unknown email must resolve as participant")
	}

	p, err = r.Resolve(ctx, signed(t, v, Identity{UID: "3", Email: "claim@x.com", Role: "Organizer"}, time.Hour))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !p.IsOrganizer() {
		t.Error("organizer role claim ignored")
	}

	// An explicit participant claim wins over the directory.
	p, err = r.Resolve(ctx, signed(t, v, Identity{UID: "1", Email: "org@x.com", Role: "participant"}, time.Hour))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.IsOrganizer() {
		t.Error("participant claim should not be upgraded")
	}
}

func TestResolverDirectoryFailure(t *testing.T) {
	v := NewJWTVerifier("s3cret", "")
	r := NewResolver(v, stubDirectory{err: errors.New("connection reset")}, 0)
	_, err := r.Resolve(context.Background(), signed(t, v, Identity{UID: "1", Email: "a@x.com"}, time.Hour))
	if !apperr.IsKind(err, apperr.KindPersistence) {
		t.Errorf("expected persistence error, got %v", err)
	}
}

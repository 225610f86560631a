package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
	"github.com/golang-jwt/jwt/v4"

	"github.com/Shivanand-hulikatti/medicamp/internal/apperr"
)

// Identity is what a Verifier vouches for.
type Identity struct {
	UID   string
	Email string
	Name  string
	Role  string // optional role claim
}

// Verifier turns a bearer credential into a verified Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// ─── HMAC-signed JWT ──────────────────────────────────────────────────────────

type tokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier accepts HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewJWTVerifier builds a verifier. issuer is checked when non-empty.
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		issuer: issuer,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (Identity, error) {
	claims := &tokenClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return Identity{}, apperr.Unauthenticated("Unauthorized - token expired")
		}
		return Identity{}, apperr.Unauthenticated("Unauthorized - invalid token")
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return Identity{}, apperr.Unauthenticated("Unauthorized - unexpected token issuer")
	}
	if claims.Email == "" {
		return Identity{}, apperr.Unauthenticated("Unauthorized - token has no email")
	}
	return Identity{UID: claims.Subject, Email: claims.Email, Name: claims.Name, Role: claims.Role}, nil
}

// Sign issues a token for the given identity. Used by tests and local tooling.
func (v *JWTVerifier) Sign(id Identity, claims jwt.RegisteredClaims) (string, error) {
	if claims.Subject == "" {
		claims.Subject = id.UID
	}
	if claims.Issuer == "" {
		claims.Issuer = v.issuer
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Email:            id.Email,
		Name:             id.Name,
		Role:             id.Role,
		RegisteredClaims: claims,
	})
	return tok.SignedString(v.secret)
}

// ─── Google ID tokens ─────────────────────────────────────────────────────────

// GoogleVerifier accepts Google-issued ID tokens for one OAuth client.
// Google tokens carry no role; the Resolver looks it up.
type GoogleVerifier struct {
	clientID string
}

// NewGoogleVerifier builds a verifier for the given OAuth client id.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID}
}

func (v *GoogleVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	type result struct {
		id  Identity
		err error
	}
	done := make(chan result, 1)
	go func() {
		verifier := googleAuthIDTokenVerifier.Verifier{}
		if err := verifier.VerifyIDToken(token, []string{v.clientID}); err != nil {
			// Certificate fetch failures are upstream errors, anything else
			// is a bad token.
			if strings.Contains(err.Error(), "cert") {
				done <- result{err: apperr.Upstream("identity provider unavailable", err)}
				return
			}
			done <- result{err: apperr.Unauthenticated("Unauthorized - invalid token")}
			return
		}
		claimSet, err := googleAuthIDTokenVerifier.Decode(token)
		if err != nil {
			done <- result{err: apperr.Unauthenticated("Unauthorized - invalid token")}
			return
		}
		done <- result{id: Identity{UID: claimSet.Sub, Email: claimSet.Email, Name: claimSet.Name}}
	}()

	select {
	case <-ctx.Done():
		return Identity{}, apperr.Upstream("identity provider timed out", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return Identity{}, r.err
		}
		if r.id.Email == "" {
			return Identity{}, apperr.Unauthenticated("Unauthorized - token has no email")
		}
		return r.id, nil
	}
}

var _ Verifier = (*JWTVerifier)(nil)
var _ Verifier = (*GoogleVerifier)(nil)

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", apperr.Unauthenticated("Unauthorized - no token")
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", apperr.Unauthenticated("Unauthorized - no token")
	}
	return token, nil
}

func describe(id Identity) string {
	return fmt.Sprintf("uid=%s email=%s", id.UID, id.Email)
}

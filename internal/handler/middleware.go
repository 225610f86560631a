package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/medicamp/internal/apperr"
	"github.com/Shivanand-hulikatti/medicamp/internal/auth"
)

// Logger is an access log: method, path, status, bytes and latency.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Printf("[http] %s %s %d %dB %s req=%s",
			r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start).Round(time.Microsecond),
			chimiddleware.GetReqID(r.Context()))
	})
}

// CORS allows the configured front-end origin and answers preflight requests.
func CORS(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalResolver turns a bearer token into the caller's principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (auth.Principal, error)
}

// RequireAuth resolves the Authorization header once and stores the principal
// in the request context. Requests without a valid token get 401.
func RequireAuth(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				respondErr(w, r, err)
				return
			}
			p, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				respondErr(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

// principal returns the caller resolved by RequireAuth, answering 401 when
// the route was mounted without it.
func principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respondErr(w, r, apperr.Unauthenticated("Unauthorized - no token"))
	}
	return p, ok
}

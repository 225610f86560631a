// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/medicamp/internal/apperr"
	"github.com/Shivanand-hulikatti/medicamp/internal/model"
)

// strictJSON rejects unknown fields, like encoding/json's DisallowUnknownFields.
var strictJSON = sonic.Config{DisallowUnknownFields: true}.Froze()

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		log.Printf("[http] encode response: %v", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

// respondErr maps a service error onto its status code. Only the public
// message crosses the boundary; server-side failures are logged in full.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		log.Printf("[http] %s %s req=%s %s error: %v",
			r.Method, r.URL.Path, chimiddleware.GetReqID(r.Context()), kind, err)
	}
	writeError(w, status, apperr.PublicMessage(err))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	return strictJSON.NewDecoder(r.Body).Decode(dst)
}

// decodeOrReject decodes the body into dst and answers 400 on failure.
func decodeOrReject(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation("%s must be an integer", key)
	}
	return n, nil
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

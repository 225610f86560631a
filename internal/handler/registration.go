package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/medicamp/internal/model"
	"github.com/Shivanand-hulikatti/medicamp/internal/service"
)

// RegistrationHandler serves the registration ledger.
type RegistrationHandler struct {
	svc *service.RegistrationService
}

// NewRegistrationHandler constructs a RegistrationHandler.
func NewRegistrationHandler(svc *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

// Create handles POST /registrations
// The participant email must be the caller's own.
func (h *RegistrationHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req model.RegisterRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	reg, err := h.svc.Create(r.Context(), p, req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// Get handles GET /registrations/{id}
func (h *RegistrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	reg, err := h.svc.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// ListForParticipant handles GET /registrations/participant?email=
func (h *RegistrationHandler) ListForParticipant(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	regs, err := h.svc.ListForParticipant(r.Context(), p, r.URL.Query().Get("email"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

// ListForOrganizer handles GET /registrations/organizer?email=
func (h *RegistrationHandler) ListForOrganizer(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	regs, err := h.svc.ListForOrganizer(r.Context(), p, r.URL.Query().Get("email"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

// Cancel handles DELETE /registrations/{id}
// Participants cancel their own unpaid registrations; organizers cancel
// registrations for their camps unless paid and confirmed.
func (h *RegistrationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := h.svc.Cancel(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "registration cancelled"})
}

// Confirm handles POST /registrations/{id}/confirm
func (h *RegistrationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	reg, err := h.svc.Confirm(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// Pass handles GET /registrations/{id}/pass.png
func (h *RegistrationHandler) Pass(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	png, err := h.svc.Pass(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

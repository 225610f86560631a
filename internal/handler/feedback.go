package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/medicamp/internal/model"
	"github.com/Shivanand-hulikatti/medicamp/internal/service"
)

// FeedbackHandler serves participant feedback and its moderation.
type FeedbackHandler struct {
	svc *service.FeedbackService
}

// NewFeedbackHandler constructs a FeedbackHandler.
func NewFeedbackHandler(svc *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

// Submit handles POST /feedback
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req model.FeedbackRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	f, err := h.svc.Submit(r.Context(), p, req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// Mine handles GET /feedback
func (h *FeedbackHandler) Mine(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Mine(r.Context(), p)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *FeedbackHandler) manage(w http.ResponseWriter, r *http.Request, pendingOnly bool) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Manage(r.Context(), p, pendingOnly)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Manage handles GET /feedback/manage
func (h *FeedbackHandler) Manage(w http.ResponseWriter, r *http.Request) { h.manage(w, r, false) }

// Pending handles GET /feedback/pending
func (h *FeedbackHandler) Pending(w http.ResponseWriter, r *http.Request) { h.manage(w, r, true) }

// Approved handles GET /feedback/approved
func (h *FeedbackHandler) Approved(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Approved(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Approve handles PATCH /feedback/{id}/approve
func (h *FeedbackHandler) Approve(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := h.svc.Approve(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "feedback approved"})
}

// Delete handles DELETE /feedback/{id}
func (h *FeedbackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/medicamp/internal/model"
	"github.com/Shivanand-hulikatti/medicamp/internal/service"
)

// CampHandler serves the camp registry.
type CampHandler struct {
	svc *service.CampService
}

// NewCampHandler constructs a CampHandler.
func NewCampHandler(svc *service.CampService) *CampHandler {
	return &CampHandler{svc: svc}
}

// List handles GET /camps
func (h *CampHandler) List(w http.ResponseWriter, r *http.Request) {
	camps, err := h.svc.List(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, camps)
}

// Top handles GET /camps/top?limit=n
func (h *CampHandler) Top(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "limit")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	camps, err := h.svc.ListTop(r.Context(), n)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, camps)
}

// Get handles GET /camps/{id}
func (h *CampHandler) Get(w http.ResponseWriter, r *http.Request) {
	camp, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, camp)
}

// Mine handles GET /camps/mine
func (h *CampHandler) Mine(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	camps, err := h.svc.ListMine(r.Context(), p)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, camps)
}

// Create handles POST /camps
func (h *CampHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req model.CreateCampRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	camp, err := h.svc.Create(r.Context(), p, req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, camp)
}

// Update handles PUT /camps/{id}
func (h *CampHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req model.UpdateCampRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	camp, err := h.svc.Update(r.Context(), p, chi.URLParam(r, "id"), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, camp)
}

// Delete handles DELETE /camps/{id}
func (h *CampHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

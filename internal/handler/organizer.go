package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/medicamp/internal/model"
	"github.com/Shivanand-hulikatti/medicamp/internal/service"
)

// OrganizerHandler serves the organizer's own profile.
type OrganizerHandler struct {
	svc *service.OrganizerService
}

// NewOrganizerHandler constructs an OrganizerHandler.
func NewOrganizerHandler(svc *service.OrganizerService) *OrganizerHandler {
	return &OrganizerHandler{svc: svc}
}

// Me handles GET /organizers/me
func (h *OrganizerHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	o, err := h.svc.Profile(r.Context(), p)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// UpdateMe handles PUT /organizers/me
func (h *OrganizerHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req model.UpdateOrganizerRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	o, err := h.svc.Update(r.Context(), p, req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

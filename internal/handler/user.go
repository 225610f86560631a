package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/medicamp/internal/model"
	"github.com/Shivanand-hulikatti/medicamp/internal/service"
)

// UserHandler serves the participant's own profile.
type UserHandler struct {
	svc *service.ParticipantService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(svc *service.ParticipantService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Me handles GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	u, err := h.svc.Profile(r.Context(), p)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateMe handles PUT /users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req model.UpdateUserRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	u, err := h.svc.Update(r.Context(), p, req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

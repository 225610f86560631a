package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/medicamp/internal/model"
	"github.com/Shivanand-hulikatti/medicamp/internal/service"
)

// PaymentHandler serves checkout and payment confirmation.
type PaymentHandler struct {
	svc *service.PaymentService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// Checkout handles POST /payments/checkout-session
func (h *PaymentHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req model.CheckoutRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	sess, err := h.svc.Checkout(r.Context(), p, req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Confirm handles POST /payments/confirm
// The client reports the session it returned from; the gateway is asked
// whether it was actually paid.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req model.ConfirmPaymentRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	reg, err := h.svc.Confirm(r.Context(), p, req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// History handles GET /payments/history?page=&limit=
func (h *PaymentHandler) History(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	page, err := queryInt(r, "page")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	hist, err := h.svc.History(r.Context(), p, page, limit)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

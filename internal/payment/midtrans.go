package payment

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

// Currency is the only currency Midtrans settles in. Gross amounts are whole
// rupiah, which is also IDR's minor unit.
const Currency = "IDR"

// Midtrans opens Snap checkouts and verifies them through the Core API
// transaction status endpoint. The Snap order id doubles as the session id.
type Midtrans struct {
	snap snap.Client
	core coreapi.Client
}

// NewMidtrans builds a gateway client for the sandbox or production
// environment.
func NewMidtrans(serverKey string, production bool) *Midtrans {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	m := &Midtrans{}
	m.snap.New(serverKey, env)
	m.core.New(serverKey, env)
	return m
}

func (m *Midtrans) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	if !strings.EqualFold(req.Currency, Currency) {
		return Session{}, fmt.Errorf("midtrans only charges %s, got %q", Currency, req.Currency)
	}
	orderID := "camp-" + uuid.New().String()

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: req.AmountMinor,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			Email: req.CustomerEmail,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    req.Metadata[MetaCampID],
			Name:  truncate(req.Description, 50),
			Price: req.AmountMinor,
			Qty:   1,
		}},
		Callbacks: &snap.Callbacks{
			Finish: req.SuccessURL,
		},
		CustomField1: req.Metadata[MetaCampID],
		CustomField2: req.Metadata[MetaEmail],
	}

	type result struct {
		resp *snap.Response
		err  *midtrans.Error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := m.snap.CreateTransaction(snapReq)
		done <- result{resp, err}
	}()

	select {
	case <-ctx.Done():
		return Session{}, fmt.Errorf("midtrans create transaction: %w", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return Session{}, fmt.Errorf("midtrans create transaction: %s", r.err.GetMessage())
		}
		if r.resp == nil || r.resp.RedirectURL == "" {
			return Session{}, fmt.Errorf("midtrans create transaction: empty redirect url")
		}
		return Session{ID: orderID, URL: r.resp.RedirectURL}, nil
	}
}

func (m *Midtrans) RetrieveSession(ctx context.Context, sessionID string) (SessionStatus, error) {
	type result struct {
		resp *coreapi.TransactionStatusResponse
		err  *midtrans.Error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := m.core.CheckTransaction(sessionID)
		done <- result{resp, err}
	}()

	select {
	case <-ctx.Done():
		return SessionStatus{}, fmt.Errorf("midtrans check transaction: %w", ctx.Err())
	case r := <-done:
		if r.err != nil {
			// Unknown order ids mean the customer never completed checkout.
			if r.err.GetStatusCode() == http.StatusNotFound {
				return SessionStatus{Reference: sessionID}, nil
			}
			return SessionStatus{}, fmt.Errorf("midtrans check transaction: %s", r.err.GetMessage())
		}
		if r.resp == nil {
			return SessionStatus{}, fmt.Errorf("midtrans check transaction: empty response")
		}
		log.Printf("[payment] order %s status=%s fraud=%s", sessionID, r.resp.TransactionStatus, r.resp.FraudStatus)
		return statusFromResponse(r.resp)
	}
}

// statusFromResponse maps a Core API status onto SessionStatus. The camp id
// and participant email travel in the custom fields CreateSession sets.
func statusFromResponse(resp *coreapi.TransactionStatusResponse) (SessionStatus, error) {
	st := SessionStatus{
		Paid:          isPaid(resp.TransactionStatus, resp.FraudStatus),
		TransactionID: resp.TransactionID,
		Reference:     resp.OrderID,
		Metadata:      map[string]string{},
	}
	if resp.CustomField1 != "" {
		st.Metadata[MetaCampID] = resp.CustomField1
	}
	if resp.CustomField2 != "" {
		st.Metadata[MetaEmail] = resp.CustomField2
	}
	if resp.GrossAmount != "" {
		gross, err := strconv.ParseFloat(resp.GrossAmount, 64)
		if err != nil {
			return SessionStatus{}, fmt.Errorf("midtrans gross_amount %q: %w", resp.GrossAmount, err)
		}
		if st.AmountMinor, err = MinorUnits(gross, Currency); err != nil {
			return SessionStatus{}, fmt.Errorf("midtrans gross_amount %q: %w", resp.GrossAmount, err)
		}
	}
	return st, nil
}

// isPaid follows Midtrans' status table: settlement is final, capture only
// counts once fraud screening accepted it.
func isPaid(status, fraud string) bool {
	switch status {
	case "settlement":
		return true
	case "capture":
		return fraud == "" || fraud == "accept"
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var _ Gateway = (*Midtrans)(nil)

// Package payment is the boundary to the external payment gateway. The
// service layer only sees the Gateway interface; Midtrans is the production
// implementation.
package payment

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Metadata keys attached to every checkout session.
const (
	MetaCampID = "campId"
	MetaEmail  = "participantEmail"
)

// SessionRequest opens a hosted checkout for one amount. CancelURL is used by
// gateways with a separate abandon redirect; Midtrans Snap reports every
// outcome on the SuccessURL redirect instead.
type SessionRequest struct {
	AmountMinor   int64
	Currency      string
	SuccessURL    string
	CancelURL     string
	Description   string
	CustomerEmail string
	Metadata      map[string]string
}

// Session is an opened checkout; ID is what the client hands back on confirm.
type Session struct {
	ID  string
	URL string
}

// SessionStatus is the gateway's view of a session. TransactionID may be
// empty for some payment types even when Paid is true. AmountMinor is the
// amount the gateway captured, and Metadata echoes what CreateSession bound to
// the session.
type SessionStatus struct {
	Paid          bool
	TransactionID string
	Reference     string
	AmountMinor   int64
	Metadata      map[string]string
}

// Gateway creates and retrieves checkout sessions.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (SessionStatus, error)
}

// zero-decimal currencies; everything else uses two.
var currencyExponent = map[string]int{
	"IDR": 0,
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"CLP": 0,
}

// MinorUnits converts amount in major units into the currency's smallest unit,
// rounding half away from zero.
func MinorUnits(amount float64, currency string) (int64, error) {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("invalid amount %v", amount)
	}
	exp, ok := currencyExponent[strings.ToUpper(currency)]
	if !ok {
		exp = 2
	}
	return int64(math.Round(amount * math.Pow10(exp))), nil
}

// Package apperr is the error taxonomy shared by the service and HTTP layers.
// Every business-rule violation leaves the service as an *Error carrying a
// Kind; the handler maps the Kind to a status code and only ever shows Msg.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and for the HTTP boundary.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindPaymentNotVerified
	KindPaymentData
	KindUpstream
	KindPersistence
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindValidation:         "validation",
	KindAuthentication:     "authentication",
	KindAuthorization:      "authorization",
	KindNotFound:           "not_found",
	KindConflict:           "conflict",
	KindPaymentNotVerified: "payment_not_verified",
	KindPaymentData:        "payment_data",
	KindUpstream:           "upstream",
	KindPersistence:        "persistence",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Retryable reports whether a caller may retry the operation later.
func (k Kind) Retryable() bool {
	switch k {
	case KindPaymentNotVerified, KindPaymentData, KindUpstream, KindPersistence:
		return true
	}
	return false
}

// Error is a classified, user-presentable error. Err holds the lower-level
// cause for logs and is never rendered to clients.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same Kind, so errors.Is(err, apperr.NotFound(""))
// style checks work without comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newf(KindValidation, format, args...)
}

func Unauthenticated(format string, args ...any) *Error {
	return newf(KindAuthentication, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newf(KindAuthorization, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newf(KindConflict, format, args...)
}

func PaymentNotVerified(format string, args ...any) *Error {
	return newf(KindPaymentNotVerified, format, args...)
}

func PaymentData(format string, args ...any) *Error {
	return newf(KindPaymentData, format, args...)
}

// Upstream wraps a failure of the identity verifier or payment gateway.
func Upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Msg: msg, Err: err}
}

// Persistence wraps a failure of the store.
func Persistence(msg string, err error) *Error {
	return &Error{Kind: KindPersistence, Msg: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a Kind to its response status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindPaymentNotVerified, KindPaymentData:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to show a client. Unclassified errors get a
// generic message so internal detail never crosses the boundary.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal server error"
}

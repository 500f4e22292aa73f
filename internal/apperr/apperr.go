// Package apperr holds the error taxonomy shared by the checkout, reconciliation
// and verification paths, and its mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindGatewayAuth
	KindGatewayRequest
	KindUnknownStatus
	KindPersistence
	KindConflict
	KindNotFound
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindGatewayAuth:
		return "GATEWAY_AUTH_ERROR"
	case KindGatewayRequest:
		return "GATEWAY_REQUEST_ERROR"
	case KindUnknownStatus:
		return "UNKNOWN_STATUS"
	case KindPersistence:
		return "PERSISTENCE_ERROR"
	case KindConflict:
		return "CONFLICT"
	case KindNotFound:
		return "NOT_FOUND"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error carries a message that is safe to show a buyer. Detail is for logs only.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func GatewayAuth(err error) *Error {
	return &Error{Kind: KindGatewayAuth, Message: "payment service unavailable", Err: err}
}

// GatewayRequest records a non-2xx provider answer. The body stays in Detail.
func GatewayRequest(status int, body string) *Error {
	return &Error{
		Kind:    KindGatewayRequest,
		Message: "payment request failed, please try again",
		Detail:  fmt.Sprintf("status=%d body=%s", status, body),
	}
}

func GatewayTransport(err error) *Error {
	return &Error{Kind: KindGatewayRequest, Message: "payment service unavailable", Err: err}
}

func UnknownStatus(code string) *Error {
	return &Error{Kind: KindUnknownStatus, Message: "unable to determine the payment status", Detail: code}
}

func Persistence(err error) *Error {
	return &Error{Kind: KindPersistence, Message: "could not save order", Err: err}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Message returns the buyer-facing text for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "something went wrong, please try again"
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindGatewayAuth:
		return http.StatusServiceUnavailable
	case KindGatewayRequest, KindUnknownStatus:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Package apierr defines the typed failures surfaced to API callers and the
// ingestion scheduler.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error
type Kind string

const (
	KindNoCredential       Kind = "no_credential"
	KindExternalAPI        Kind = "external_api"
	KindConversion         Kind = "conversion"
	KindInternalConversion Kind = "internal_conversion"
	KindUnauthorized       Kind = "unauthorized"
	KindDatabase           Kind = "database"
	KindBadRequest         Kind = "bad_request"
)

// Error is a failure with a Kind that callers can branch on
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error without an underlying cause
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around cause
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// NoCredential reports that no durable credential exists for identity
func NoCredential(identity string) *Error {
	return New(KindNoCredential, "no stored credential for %q", identity)
}

// KindOf returns the Kind of the first Error in err's chain
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err's chain contains an Error of the given kind
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func IsNoCredential(err error) bool       { return Is(err, KindNoCredential) }
func IsExternalAPI(err error) bool        { return Is(err, KindExternalAPI) }
func IsConversion(err error) bool         { return Is(err, KindConversion) }
func IsInternalConversion(err error) bool { return Is(err, KindInternalConversion) }
func IsUnauthorized(err error) bool       { return Is(err, KindUnauthorized) }
func IsDatabase(err error) bool           { return Is(err, KindDatabase) }
func IsBadRequest(err error) bool         { return Is(err, KindBadRequest) }

// HTTPStatus maps err to the status code returned to API callers.
// Untyped errors are internal server errors.
func HTTPStatus(err error) int {
	kind, _ := KindOf(err)
	switch kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindExternalAPI:
		return http.StatusBadGateway
	case KindNoCredential:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

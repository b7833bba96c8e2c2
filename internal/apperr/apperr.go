// Package apperr classifies user-facing failures as validation, request or cancelled.
// Error() returns only the user-facing message; the cause is available via Unwrap().
package apperr

import (
	"context"
	"errors"
	"net/http"
)

// Kind is the failure class shown to the user.
type Kind string

const (
	KindValidation Kind = "validation"
	KindRequest    Kind = "request"
	KindCancelled  Kind = "cancelled"
)

// StatusClientClosed is returned for cancelled requests (nginx convention).
const StatusClientClosed = 499

// Err holds a user-facing message, its kind and an optional cause.
type Err struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error returns the user-facing message only.
func (e *Err) Error() string {
	if e == nil {
		return ""
	}
	return e.Msg
}

// Unwrap returns the underlying cause.
func (e *Err) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Validation reports bad user input. Nothing is sent to the backend.
func Validation(msg string) error {
	return &Err{Kind: KindValidation, Msg: msg}
}

// Request reports a failed backend call with the given message and cause.
func Request(msg string, cause error) error {
	return &Err{Kind: KindRequest, Msg: msg, Err: cause}
}

// Cancelled reports an aborted operation.
func Cancelled(msg string, cause error) error {
	if msg == "" {
		msg = "request cancelled"
	}
	return &Err{Kind: KindCancelled, Msg: msg, Err: cause}
}

// KindOf returns the kind of err. Context cancellation counts as cancelled;
// anything unclassified is a request failure.
func KindOf(err error) Kind {
	var e *Err
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindRequest
}

// Is reports whether err has kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// HTTPStatus maps err to the status code the API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindCancelled:
		return StatusClientClosed
	default:
		return http.StatusBadGateway
	}
}

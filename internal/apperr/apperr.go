// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// Error kinds shared by every component. Components wrap one of these with
// fmt.Errorf("%w: ...", ErrX) so the HTTP boundary can classify the failure.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrMalformedDocument = errors.New("malformed document")
	ErrNotFound          = errors.New("not found")
	ErrTooLarge          = errors.New("payload too large")
	ErrInternal          = errors.New("internal failure")
)

// InternalDetail is the only message a client sees for a server-side failure.
const InternalDetail = "Internal server error"

// StatusCode maps an error to the HTTP status it should be answered with.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrMalformedDocument):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether err was caused by the request rather than the server.
func IsClientError(err error) bool {
	code := StatusCode(err)
	return code >= 400 && code < 500
}

// Detail returns the client-facing message for err. Server-side failures are
// reduced to InternalDetail; client errors keep the text after the kind marker.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	if !IsClientError(err) {
		return InternalDetail
	}
	msg := err.Error()
	for _, kind := range []error{ErrInvalidInput, ErrMalformedDocument, ErrNotFound, ErrTooLarge} {
		marker := kind.Error() + ": "
		if idx := strings.Index(msg, marker); idx >= 0 {
			return msg[idx+len(marker):]
		}
	}
	return msg
}

// Invalid builds an ErrInvalidInput carrying a client-facing message.
func Invalid(msg string) error {
	return &kindError{kind: ErrInvalidInput, msg: msg}
}

// Malformed builds an ErrMalformedDocument carrying a client-facing message.
func Malformed(msg string) error {
	return &kindError{kind: ErrMalformedDocument, msg: msg}
}

// NotFound builds an ErrNotFound carrying a client-facing message.
func NotFound(msg string) error {
	return &kindError{kind: ErrNotFound, msg: msg}
}

// TooLarge builds an ErrTooLarge carrying a client-facing message.
func TooLarge(msg string) error {
	return &kindError{kind: ErrTooLarge, msg: msg}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.kind.Error() + ": " + e.msg }

func (e *kindError) Unwrap() error { return e.kind }

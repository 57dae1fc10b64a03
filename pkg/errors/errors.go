// Package errors provides the error taxonomy shared by the payment services.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds. Every error surfaced by the service facade matches exactly one
// of these with errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("payment not found")
	ErrInvalidFilter    = errors.New("invalid filter")
	ErrStoreUnavailable = errors.New("record store unavailable")
	ErrBroadcastFailure = errors.New("broadcast failed")
	ErrHubClosed        = errors.New("live-update hub closed")
	ErrInternal         = errors.New("internal error")

	ErrDuplicateRequest = errors.New("duplicate request in progress")
)

// Stable kind identifiers used in API responses.
const (
	KindValidation       = "validation_error"
	KindNotFound         = "not_found"
	KindInvalidFilter    = "invalid_filter"
	KindStoreUnavailable = "store_unavailable"
	KindInternal         = "internal_error"
)

// ValidationError lists the input fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError from a field -> message map.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(names, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// FilterError reports a rejected pagination or filter parameter.
type FilterError struct {
	Field  string
	Reason string
}

// NewFilterError builds a FilterError for the given parameter.
func NewFilterError(field, reason string) *FilterError {
	return &FilterError{Field: field, Reason: reason}
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidFilter.Error(), e.Field, e.Reason)
}

func (e *FilterError) Is(target error) bool {
	return target == ErrInvalidFilter
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Unavailable marks err as a transient store failure while keeping the cause
// reachable for logging.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// Kind maps an error to its stable API kind.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidFilter):
		return KindInvalidFilter
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	default:
		return KindInternal
	}
}

// Retryable reports whether the whole request may be safely retried.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// Is and As re-export the standard helpers so callers need a single import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target interface{}) bool { return errors.As(err, target) }

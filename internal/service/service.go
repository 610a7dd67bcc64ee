// Package service holds business logic orchestration across repositories and handlers.
// Kept intentionally lean: only use-case coordination, validation and domain error shaping.
package service

import (
	"context"
	"errors"

	"github.com/maxviazov/rest-prefix-service/internal/model"
	"github.com/maxviazov/rest-prefix-service/internal/prefix"
)

// ErrInvalidInput is the marker error for aggregated validation failures (maps to HTTP 400).
// Field-level details are retrieved via FieldErrors(err).
var ErrInvalidInput = errors.New("invalid input")

// ErrEmptyPrefix is returned by Save when the submitted text leaves nothing to store.
// It always arrives wrapped together with ErrInvalidInput.
var ErrEmptyPrefix = errors.New("prefix must not be empty")

// FieldError describes a single invalid field in a client request.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// invalidInputError aggregates multiple FieldError instances and unwraps to ErrInvalidInput
// plus an optional more specific cause.
type invalidInputError struct {
	fields []FieldError
	cause  error
}

func (e *invalidInputError) Error() string        { return ErrInvalidInput.Error() }
func (e *invalidInputError) Fields() []FieldError { return e.fields }
func (e *invalidInputError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrInvalidInput}
	}
	return []error{ErrInvalidInput, e.cause}
}

// newInvalidInput builds an aggregated validation error if any field errors are present.
func newInvalidInput(cause error, fe []FieldError) error {
	if len(fe) == 0 { // protective case
		return nil
	}
	return &invalidInputError{fields: fe, cause: cause}
}

// FieldErrors extracts field errors from an aggregated validation error.
func FieldErrors(err error) []FieldError {
	if err == nil {
		return nil
	}
	type feIface interface{ Fields() []FieldError }
	var v feIface
	if errors.As(err, &v) && errors.Is(err, ErrInvalidInput) {
		return v.Fields()
	}
	return nil
}

// PrefixService is the API URL prefix override: the admin form writes through it and
// the router reads through it on every request.
type PrefixService interface {
	// Resolve returns the prefix routing should use. It never fails and never returns "".
	Resolve(ctx context.Context) prefix.Prefix
	// Save validates, normalizes and persists raw, returning what was stored.
	Save(ctx context.Context, raw string) (prefix.Prefix, error)
	// Stored returns the persisted override, "" when unset.
	Stored(ctx context.Context) (prefix.Prefix, error)
	// Settings summarizes stored and effective values for the admin form.
	Settings(ctx context.Context) (model.PrefixSettings, error)
	// Preview normalizes raw without persisting anything.
	Preview(raw string) model.PrefixPreview
	// Activate seeds the setting with the host's current effective prefix.
	Activate(ctx context.Context) error
	// Uninstall removes the setting and its cache entry.
	Uninstall(ctx context.Context) error
	// Flush drops the cache entry without touching the stored setting.
	Flush()
}

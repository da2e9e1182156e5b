package engine

import (
	"errors"
	"fmt"
)

// FieldError is one itemized validation failure, suitable for form-level
// display.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every field that failed validation for one
// operation. Recoverable; surfaced to HTTP layers as a 400-equivalent.
type ValidationError struct {
	Collection string
	Errors     []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation failed for %q: %s: %s",
			e.Collection, e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation failed for %q: %d field errors", e.Collection, len(e.Errors))
}

// AccessDeniedError means the caller is known but not permitted.
// Surfaced as a 403-equivalent.
type AccessDeniedError struct {
	Collection string
	Operation  string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied: %s on %q", e.Operation, e.Collection)
}

// DocumentNotFoundError covers both true absence and
// present-but-out-of-scope via defaultWhere. The two are indistinguishable
// on purpose: distinguishing them would leak document existence to callers
// whose scope excludes them. Surfaced as a 404-equivalent.
type DocumentNotFoundError struct {
	Collection string
	ID         string
}

func (e *DocumentNotFoundError) Error() string {
	return fmt.Sprintf("document %q not found in %q", e.ID, e.Collection)
}

// GlobalNotFoundError means no global is declared under the slug.
// (A declared global is auto-created on first read, so it is never absent.)
type GlobalNotFoundError struct {
	Slug string
}

func (e *GlobalNotFoundError) Error() string {
	return fmt.Sprintf("global %q not found", e.Slug)
}

// UnknownCollectionError means no collection is registered under the slug.
type UnknownCollectionError struct {
	Slug string
}

func (e *UnknownCollectionError) Error() string {
	return fmt.Sprintf("unknown collection %q", e.Slug)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAccessDenied reports whether err is (or wraps) an AccessDeniedError.
func IsAccessDenied(err error) bool {
	var ae *AccessDeniedError
	return errors.As(err, &ae)
}

// IsNotFound reports whether err is (or wraps) a document, global, or
// collection not-found error.
func IsNotFound(err error) bool {
	var de *DocumentNotFoundError
	var ge *GlobalNotFoundError
	var ce *UnknownCollectionError
	return errors.As(err, &de) || errors.As(err, &ge) || errors.As(err, &ce)
}

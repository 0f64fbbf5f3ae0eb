package model

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// Field limits enforced on inspector-supplied text.
const (
	MaxIDLength       = 128
	MaxNotesLength    = 4000
	MaxPhotoURLLength = 2048
	MaxReasonLength   = 1000
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

func (e *ValidationError) requireID(field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		e.add(field, "is required")
	} else if utf8.RuneCountInString(value) > MaxIDLength {
		e.add(field, "is too long")
	}
}

func (e *ValidationError) orNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// ValidateStart checks the identifiers supplied to start a gate check.
func ValidateStart(lotID, actorID string) error {
	var ve ValidationError
	ve.requireID("lot_id", lotID)
	ve.requireID("actor", actorID)
	return ve.orNil()
}

// ValidateItemDetails checks the optional notes and photo URL attached to
// an item update. Nil pointers mean "unchanged" and are always valid.
func ValidateItemDetails(notes, photoURL *string) error {
	var ve ValidationError

	if notes != nil && utf8.RuneCountInString(*notes) > MaxNotesLength {
		ve.add("notes", "must be 4000 characters or fewer")
	}

	if photoURL != nil && *photoURL != "" {
		if len(*photoURL) > MaxPhotoURLLength {
			ve.add("photo_url", "is too long")
		} else if u, err := url.Parse(*photoURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			ve.add("photo_url", "must be an absolute http(s) URL")
		}
	}

	return ve.orNil()
}

// ValidateCancel checks the inputs of a cancel request.
func ValidateCancel(actorID, reason string) error {
	var ve ValidationError
	ve.requireID("actor", actorID)
	if strings.TrimSpace(reason) == "" {
		ve.add("reason", "is required")
	} else if utf8.RuneCountInString(reason) > MaxReasonLength {
		ve.add("reason", "must be 1000 characters or fewer")
	}
	return ve.orNil()
}

// ValidateResolve checks the inputs of a deficiency resolution.
func ValidateResolve(actorID, resolution string) error {
	var ve ValidationError
	ve.requireID("actor", actorID)
	if utf8.RuneCountInString(resolution) > MaxReasonLength {
		ve.add("resolution", "must be 1000 characters or fewer")
	}
	return ve.orNil()
}

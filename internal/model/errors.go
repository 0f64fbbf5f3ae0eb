package model

import (
	"errors"
	"fmt"
)

// Gate check error taxonomy. Operations wrap these with context; callers
// match with errors.Is.
var (
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrAlreadyInProgress    = errors.New("gate check already in progress")
	ErrGateCheckClosed      = errors.New("gate check is closed")
	ErrIncompleteChecklist  = errors.New("checklist has pending items")
	ErrInvalidResult        = errors.New("invalid item result")
	ErrDeficiencyLinkFailed = errors.New("deficiency link failed")
	ErrNotFound             = errors.New("not found")
)

// Wire codes for the error taxonomy, shared by the HTTP and gRPC surfaces.
const (
	CodeInvalidTransition    = "invalid_transition"
	CodeAlreadyInProgress    = "already_in_progress"
	CodeGateCheckClosed      = "gate_check_closed"
	CodeIncompleteChecklist  = "incomplete_checklist"
	CodeInvalidResult        = "invalid_result"
	CodeDeficiencyLinkFailed = "deficiency_link_failed"
	CodeNotFound             = "not_found"
	CodeInvalidInput         = "invalid_input"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidTransition, CodeInvalidTransition},
	{ErrAlreadyInProgress, CodeAlreadyInProgress},
	{ErrGateCheckClosed, CodeGateCheckClosed},
	{ErrIncompleteChecklist, CodeIncompleteChecklist},
	{ErrInvalidResult, CodeInvalidResult},
	{ErrDeficiencyLinkFailed, CodeDeficiencyLinkFailed},
	{ErrNotFound, CodeNotFound},
}

// ErrorCode returns the wire code for err, or "" when err is not part of
// the taxonomy (datastore failures and the like).
func ErrorCode(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return CodeInvalidInput
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return ""
}

// ErrorForCode is the inverse of ErrorCode. Clients use it to rebuild a
// sentinel from a wire code so errors.Is keeps working across transports.
func ErrorForCode(code string) error {
	for _, ec := range errorCodes {
		if ec.code == code {
			return ec.err
		}
	}
	return nil
}

func invalidTransition(s string) error {
	return fmt.Errorf("%w: %q", ErrInvalidTransition, s)
}

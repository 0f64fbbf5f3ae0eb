package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestTransition_IsValid(t *testing.T) {
	for _, tr := range Transitions {
		if !tr.IsValid() {
			t.Errorf("Transition(%q).IsValid() = false, want true", tr)
		}
	}
	for _, bad := range []Transition{"", "framing", "roofing_to_framing", "FRAMING_TO_ROOFING"} {
		if bad.IsValid() {
			t.Errorf("Transition(%q).IsValid() = true, want false", bad)
		}
	}
}

func TestParseTransition(t *testing.T) {
	got, err := ParseTransition("framing_to_roofing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != TransitionFramingToRoofing {
		t.Fatalf("got %q, want %q", got, TransitionFramingToRoofing)
	}

	_, err = ParseTransition("attic_to_basement")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	for _, tc := range []struct {
		status   Status
		valid    bool
		terminal bool
	}{
		{StatusInProgress, true, false},
		{StatusPassed, true, true},
		{StatusFailed, true, true},
		{StatusCancelled, true, true},
		{"not_started", false, false},
		{"", false, false},
	} {
		if got := tc.status.IsValid(); got != tc.valid {
			t.Errorf("Status(%q).IsValid() = %v, want %v", tc.status, got, tc.valid)
		}
		if got := tc.status.IsTerminal(); got != tc.terminal {
			t.Errorf("Status(%q).IsTerminal() = %v, want %v", tc.status, got, tc.terminal)
		}
	}
}

func TestItemResult(t *testing.T) {
	for _, tc := range []struct {
		result    ItemResult
		valid     bool
		evaluated bool
	}{
		{ResultPending, true, false},
		{ResultPass, true, true},
		{ResultFail, true, true},
		{ResultNA, true, true},
		{"skipped", false, false},
		{"", false, false},
	} {
		if got := tc.result.IsValid(); got != tc.valid {
			t.Errorf("ItemResult(%q).IsValid() = %v, want %v", tc.result, got, tc.valid)
		}
		if got := tc.result.IsEvaluated(); got != tc.evaluated {
			t.Errorf("ItemResult(%q).IsEvaluated() = %v, want %v", tc.result, got, tc.evaluated)
		}
	}
}

func TestGateCheck_PendingItems(t *testing.T) {
	gc := &GateCheck{Items: []*GateCheckItem{
		{ID: "a", Result: ResultPass},
		{ID: "b", Result: ResultPending},
		{ID: "c", Result: ResultNA},
		{ID: "d", Result: ResultPending},
	}}
	pending := gc.PendingItems()
	if len(pending) != 2 || pending[0].ID != "b" || pending[1].ID != "d" {
		t.Fatalf("unexpected pending items: %+v", pending)
	}
	if gc.Item("c") == nil || gc.Item("zzz") != nil {
		t.Fatal("Item lookup mismatch")
	}
}

func TestErrorCode(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want string
	}{
		{fmt.Errorf("start: %w", ErrAlreadyInProgress), CodeAlreadyInProgress},
		{fmt.Errorf("complete: %w", ErrIncompleteChecklist), CodeIncompleteChecklist},
		{ErrGateCheckClosed, CodeGateCheckClosed},
		{invalidTransition("nope"), CodeInvalidTransition},
		{fmt.Errorf("%w: boom", ErrDeficiencyLinkFailed), CodeDeficiencyLinkFailed},
		{ErrInvalidResult, CodeInvalidResult},
		{ErrNotFound, CodeNotFound},
		{ValidateStart("", ""), CodeInvalidInput},
		{errors.New("connection reset"), ""},
		{nil, ""},
	} {
		if got := ErrorCode(tc.err); got != tc.want {
			t.Errorf("ErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestErrorForCode_RoundTrip(t *testing.T) {
	for _, sentinel := range []error{
		ErrInvalidTransition, ErrAlreadyInProgress, ErrGateCheckClosed,
		ErrIncompleteChecklist, ErrInvalidResult, ErrDeficiencyLinkFailed, ErrNotFound,
	} {
		if got := ErrorForCode(ErrorCode(sentinel)); got != sentinel {
			t.Errorf("round trip of %v returned %v", sentinel, got)
		}
	}
	if ErrorForCode("teapot") != nil {
		t.Error("unknown code should map to nil")
	}
}

// Package ui renders gate check output for the foreman console.
package ui

import (
	"fmt"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
)

// ANSI256 color codes.
const (
	colorAccent = 74  // blue
	colorMuted  = 245 // medium gray
	colorPass   = 71  // green
	colorFail   = 167 // red
	colorWarn   = 179 // amber
)

var noColor bool

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

func paint(color int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", color, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string {
	return paint(colorAccent, s)
}

// RenderCommand returns a command name in bold accent.
func RenderCommand(s string) string {
	if noColor {
		return s
	}
	return "\x1b[1m" + paint(colorAccent, s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	return paint(colorMuted, s)
}

// RenderStatus colors a gate check status: passed green, failed red,
// in progress amber, cancelled gray.
func RenderStatus(s model.Status) string {
	switch s {
	case model.StatusPassed:
		return paint(colorPass, string(s))
	case model.StatusFailed:
		return paint(colorFail, string(s))
	case model.StatusInProgress:
		return paint(colorWarn, string(s))
	default:
		return paint(colorMuted, string(s))
	}
}

// RenderResult colors an item result, padded to a fixed width so checklist
// columns line up.
func RenderResult(r model.ItemResult) string {
	label := fmt.Sprintf("%-7s", r)
	switch r {
	case model.ResultPass:
		return paint(colorPass, label)
	case model.ResultFail:
		return paint(colorFail, label)
	case model.ResultPending:
		return paint(colorWarn, label)
	default:
		return paint(colorMuted, label)
	}
}

// RenderDeficiencyStatus colors open deficiencies red and resolved ones green.
func RenderDeficiencyStatus(s model.DeficiencyStatus) string {
	if s == model.DeficiencyOpen {
		return paint(colorFail, string(s))
	}
	return paint(colorPass, string(s))
}

// BlockingMarker returns "*" for blocking items and a blank otherwise.
func BlockingMarker(blocking bool) string {
	if blocking {
		return paint(colorFail, "*")
	}
	return " "
}

// Truncate shortens s to at most n runes, marking the cut with "…".
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

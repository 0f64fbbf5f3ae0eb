// Package idgen generates short, URL-safe record IDs with nanoid.
package idgen

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes make an ID self-describing in logs and URLs.
const (
	PrefixGateCheck  = "gc-"
	PrefixItem       = "gci-"
	PrefixDeficiency = "def-"
)

const (
	alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	// Length is the size of the random part.
	Length = 10
)

func GateCheckID() (string, error)  { return withPrefix(PrefixGateCheck) }
func ItemID() (string, error)       { return withPrefix(PrefixItem) }
func DeficiencyID() (string, error) { return withPrefix(PrefixDeficiency) }

func withPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// HasPrefix reports whether id was generated with prefix and has the
// expected shape.
func HasPrefix(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok || len(rest) != Length {
		return false
	}
	for _, r := range rest {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}
	return true
}

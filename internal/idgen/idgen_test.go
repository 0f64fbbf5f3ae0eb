package idgen

import (
	"regexp"
	"testing"
)

func TestGenerators_Prefix(t *testing.T) {
	for _, tc := range []struct {
		name   string
		gen    func() (string, error)
		prefix string
	}{
		{"GateCheck", GateCheckID, PrefixGateCheck},
		{"Item", ItemID, PrefixItem},
		{"Deficiency", DeficiencyID, PrefixDeficiency},
	} {
		t.Run(tc.name, func(t *testing.T) {
			id, err := tc.gen()
			if err != nil {
				t.Fatalf("generate error: %v", err)
			}
			if id[:len(tc.prefix)] != tc.prefix {
				t.Errorf("id %q, want prefix %q", id, tc.prefix)
			}
			if len(id) != len(tc.prefix)+Length {
				t.Errorf("id %q length = %d, want %d", id, len(id), len(tc.prefix)+Length)
			}
		})
	}
}

func TestGenerate_Charset(t *testing.T) {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(PrefixItem) + `[a-zA-Z0-9]{10}$`)
	for i := 0; i < 100; i++ {
		id, err := ItemID()
		if err != nil {
			t.Fatalf("ItemID() error on iteration %d: %v", i, err)
		}
		if !pattern.MatchString(id) {
			t.Fatalf("ItemID() = %q, does not match expected charset pattern", id)
		}
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id, err := GateCheckID()
		if err != nil {
			t.Fatalf("GateCheckID() error on iteration %d: %v", i, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestHasPrefix(t *testing.T) {
	id, err := DeficiencyID()
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		id, prefix string
		want       bool
	}{
		{id, PrefixDeficiency, true},
		{id, PrefixGateCheck, false},
		{"def-short", PrefixDeficiency, false},
		{"def-abc_efghij", PrefixDeficiency, false},
		{"def-abcdefghij", PrefixDeficiency, true},
	} {
		if got := HasPrefix(tc.id, tc.prefix); got != tc.want {
			t.Errorf("HasPrefix(%q, %q) = %v, want %v", tc.id, tc.prefix, got, tc.want)
		}
	}
}

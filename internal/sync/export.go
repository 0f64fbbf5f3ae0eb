package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
)

// Source is the read side of the store needed for an export.
type Source interface {
	ListGateChecks(ctx context.Context, filter model.GateCheckFilter) ([]*model.GateCheck, error)
	ListDeficiencies(ctx context.Context, filter model.DeficiencyFilter) ([]*model.Deficiency, error)
}

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version         string    `json:"version"`
	Type            string    `json:"type"`
	AsOf            time.Time `json:"as_of"`
	GateCheckCount  int       `json:"gate_check_count"`
	DeficiencyCount int       `json:"deficiency_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes the full inspection history as JSONL to w: a header,
// every gate check with its items, then every deficiency. Both sections are
// sorted by ID and the header carries the time of the newest change, so an
// unchanged history always exports to identical bytes.
func ExportJSONL(ctx context.Context, s Source, w io.Writer) error {
	gcs, err := s.ListGateChecks(ctx, model.GateCheckFilter{})
	if err != nil {
		return fmt.Errorf("list gate checks: %w", err)
	}
	sort.Slice(gcs, func(i, j int) bool {
		return gcs[i].ID < gcs[j].ID
	})

	defs, err := s.ListDeficiencies(ctx, model.DeficiencyFilter{})
	if err != nil {
		return fmt.Errorf("list deficiencies: %w", err)
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].ID < defs[j].ID
	})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:         "1",
		Type:            "header",
		AsOf:            lastActivity(gcs, defs),
		GateCheckCount:  len(gcs),
		DeficiencyCount: len(defs),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, gc := range gcs {
		if err := enc.Encode(record{Type: "gate_check", Data: gc}); err != nil {
			return fmt.Errorf("encode gate check %s: %w", gc.ID, err)
		}
	}
	for _, d := range defs {
		if err := enc.Encode(record{Type: "deficiency", Data: d}); err != nil {
			return fmt.Errorf("encode deficiency %s: %w", d.ID, err)
		}
	}

	return nil
}

// lastActivity returns the newest timestamp recorded anywhere in the history.
func lastActivity(gcs []*model.GateCheck, defs []*model.Deficiency) time.Time {
	var latest time.Time
	bump := func(t *time.Time) {
		if t != nil && t.After(latest) {
			latest = *t
		}
	}
	for _, gc := range gcs {
		bump(&gc.StartedAt)
		bump(gc.CompletedAt)
		for _, it := range gc.Items {
			bump(it.UpdatedAt)
		}
	}
	for _, d := range defs {
		bump(&d.CreatedAt)
		bump(d.ResolvedAt)
	}
	return latest.UTC()
}

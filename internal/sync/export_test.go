package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/store/memory"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/template"
)

var t0 = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

// seedStore returns a memory store holding two gate checks for lot-7, the
// older one failed with an open deficiency.
func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	ms := memory.New(template.Default())

	done := t0.Add(time.Hour)
	failed := &model.GateCheck{
		ID: "gc-zzz", LotID: "lot-7", Transition: model.TransitionFramingToRoofing,
		Status: model.StatusInProgress, StartedBy: "foreman-1", StartedAt: t0,
		Items: []*model.GateCheckItem{
			{ID: "gci-1", GateCheckID: "gc-zzz", ItemCode: "F1", ItemLabel: "Trusses", IsBlocking: true, Result: model.ResultFail, UpdatedAt: &done},
		},
	}
	if err := ms.CreateGateCheck(ctx, failed); err != nil {
		t.Fatalf("create gate check: %v", err)
	}
	if err := ms.CreateDeficiency(ctx, &model.Deficiency{
		ID: "def-1", GateCheckID: "gc-zzz", GateCheckItemID: "gci-1", LotID: "lot-7",
		Transition: model.TransitionFramingToRoofing, ItemCode: "F1", Description: "F1 failed",
		Status: model.DeficiencyOpen, CreatedBy: "foreman-1", CreatedAt: done,
	}); err != nil {
		t.Fatalf("create deficiency: %v", err)
	}
	failed.Status = model.StatusFailed
	failed.CompletedAt = &done
	failed.CompletedBy = "foreman-1"
	if err := ms.CloseGateCheck(ctx, failed); err != nil {
		t.Fatalf("close gate check: %v", err)
	}

	if err := ms.CreateGateCheck(ctx, &model.GateCheck{
		ID: "gc-aaa", LotID: "lot-7", Transition: model.TransitionFramingToRoofing,
		Status: model.StatusInProgress, StartedBy: "foreman-1", StartedAt: t0.Add(2 * time.Hour),
		Items: []*model.GateCheckItem{
			{ID: "gci-2", GateCheckID: "gc-aaa", ItemCode: "F1", ItemLabel: "Trusses", IsBlocking: true, Result: model.ResultPending},
		},
	}); err != nil {
		t.Fatalf("create gate check: %v", err)
	}
	return ms
}

func TestExportJSONL_Empty(t *testing.T) {
	ms := memory.New(template.Default())
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), ms, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (header only), got %d", len(lines))
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != "1" || h.Type != "header" || h.GateCheckCount != 0 || h.DeficiencyCount != 0 {
		t.Fatalf("unexpected header: %+v", h)
	}
	if !h.AsOf.IsZero() {
		t.Errorf("AsOf = %v, want zero for empty history", h.AsOf)
	}
}

func TestExportJSONL_History(t *testing.T) {
	ms := seedStore(t)

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), ms, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	// 1 header + 2 gate checks + 1 deficiency
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.GateCheckCount != 2 || h.DeficiencyCount != 1 {
		t.Fatalf("unexpected counts: %+v", h)
	}
	if want := t0.Add(2 * time.Hour); !h.AsOf.Equal(want) {
		t.Errorf("AsOf = %v, want %v", h.AsOf, want)
	}

	// Gate checks are sorted by ID regardless of start order.
	var first struct {
		Type string          `json:"type"`
		Data model.GateCheck `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &first); err != nil {
		t.Fatalf("unmarshal gate check: %v", err)
	}
	if first.Type != "gate_check" || first.Data.ID != "gc-aaa" {
		t.Fatalf("line 1 = %s, want gate_check gc-aaa", lines[1])
	}

	var second struct {
		Data model.GateCheck `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[2]), &second); err != nil {
		t.Fatalf("unmarshal gate check: %v", err)
	}
	if second.Data.Status != model.StatusFailed || len(second.Data.Items) != 1 {
		t.Fatalf("gc-zzz exported as %+v", second.Data)
	}
	if second.Data.Items[0].Result != model.ResultFail {
		t.Errorf("item result = %q, want fail", second.Data.Items[0].Result)
	}

	var def struct {
		Type string           `json:"type"`
		Data model.Deficiency `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[3]), &def); err != nil {
		t.Fatalf("unmarshal deficiency: %v", err)
	}
	if def.Type != "deficiency" || def.Data.ID != "def-1" || def.Data.Status != model.DeficiencyOpen {
		t.Fatalf("line 3 = %s", lines[3])
	}
}

func TestExportJSONL_Deterministic(t *testing.T) {
	ms := seedStore(t)

	var a, b bytes.Buffer
	if err := ExportJSONL(context.Background(), ms, &a); err != nil {
		t.Fatalf("first export: %v", err)
	}
	if err := ExportJSONL(context.Background(), ms, &b); err != nil {
		t.Fatalf("second export: %v", err)
	}
	if a.String() != b.String() {
		t.Fatalf("exports differ:\n%s\n---\n%s", a.String(), b.String())
	}
}

type failingSource struct{}

func (failingSource) ListGateChecks(context.Context, model.GateCheckFilter) ([]*model.GateCheck, error) {
	return nil, errors.New("connection refused")
}

func (failingSource) ListDeficiencies(context.Context, model.DeficiencyFilter) ([]*model.Deficiency, error) {
	return nil, nil
}

func TestExportJSONL_SourceError(t *testing.T) {
	var buf bytes.Buffer
	err := ExportJSONL(context.Background(), failingSource{}, &buf)
	if err == nil || !strings.Contains(err.Error(), "list gate checks") {
		t.Fatalf("err = %v, want list gate checks failure", err)
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written on error, got %q", buf.String())
	}
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

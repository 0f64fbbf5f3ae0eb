package hooks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/events"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
)

func TestExecute_OutputAndEnv(t *testing.T) {
	res := Execute(context.Background(), `echo "$GREETING"`, time.Second, "", map[string]string{"GREETING": "hello"})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Output != "hello" {
		t.Fatalf("output=%q, want hello", res.Output)
	}
}

func TestExecute_StderrFallback(t *testing.T) {
	res := Execute(context.Background(), "echo oops >&2; exit 3", time.Second, "", nil)
	if res.Err == nil {
		t.Fatal("expected error from non-zero exit")
	}
	if res.Output != "oops" {
		t.Fatalf("output=%q, want oops", res.Output)
	}
}

func TestExecute_Timeout(t *testing.T) {
	res := Execute(context.Background(), "sleep 5", 100*time.Millisecond, "", nil)
	if res.Err == nil {
		t.Fatal("expected timeout error")
	}
	if res.Duration > 3*time.Second {
		t.Fatalf("command was not cut short: %v", res.Duration)
	}
}

func TestExecute_CWD(t *testing.T) {
	dir := t.TempDir()
	res := Execute(context.Background(), "pwd", time.Second, dir, nil)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(res.Output)
	if got != want {
		t.Fatalf("pwd=%q, want %q", got, want)
	}
}

func TestParse(t *testing.T) {
	hooks, err := Parse([]byte(`
hooks:
  - name: notify
    topics: [gatecheck.completed]
    command: echo done
    timeout_secs: 5
  - name: audit
    topics: ["gatecheck.>"]
    command: echo all
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(hooks) != 2 {
		t.Fatalf("expected 2 hooks, got %d", len(hooks))
	}
	if hooks[0].Timeout() != 5*time.Second || hooks[1].Timeout() != DefaultTimeout {
		t.Fatalf("unexpected timeouts: %v, %v", hooks[0].Timeout(), hooks[1].Timeout())
	}
}

func TestParse_Errors(t *testing.T) {
	for _, tc := range []struct {
		name string
		yaml string
		want string
	}{
		{"MissingName", "hooks:\n  - topics: [a]\n    command: x\n", "name is required"},
		{"MissingCommand", "hooks:\n  - name: a\n    topics: [a]\n", "command is required"},
		{"MissingTopics", "hooks:\n  - name: a\n    command: x\n", "at least one topic"},
		{"Duplicate", "hooks:\n  - name: a\n    topics: [a]\n    command: x\n  - name: a\n    topics: [a]\n    command: y\n", "duplicate name"},
		{"BadYAML", "hooks: [", "parsing hooks"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRunner_RunsMatchingHooks(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.txt")
	r := NewRunner([]Hook{
		{Name: "completed", Topics: []string{events.TopicGateCheckCompleted}, Command: `printf '%s\n' "$GATECHECK_TOPIC" >> ` + out},
		{Name: "deficiencies", Topics: []string{"gatecheck.deficiency.*"}, Command: `printf 'def\n' >> ` + out},
	}, nil)

	var mu sync.Mutex
	var ran []string
	r.OnResult = func(h Hook, topic string, res Result) {
		mu.Lock()
		defer mu.Unlock()
		if res.Err != nil {
			t.Errorf("hook %s failed: %v (%s)", h.Name, res.Err, res.Output)
		}
		ran = append(ran, h.Name)
	}

	ctx := context.Background()
	gc := &model.GateCheck{ID: "gc-1", Status: model.StatusPassed}
	if err := r.Publish(ctx, events.TopicItemUpdated, events.ItemUpdated{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := r.Publish(ctx, events.TopicGateCheckCompleted, events.GateCheckCompleted{GateCheck: gc}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if len(ran) != 1 || ran[0] != "completed" {
		t.Fatalf("expected only the completed hook to run, got %v", ran)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading hook output: %v", err)
	}
	if strings.TrimSpace(string(data)) != events.TopicGateCheckCompleted {
		t.Fatalf("hook wrote %q", data)
	}
}

func TestRunner_PayloadEnv(t *testing.T) {
	var got string
	r := NewRunner([]Hook{{Name: "echo", Topics: []string{"gatecheck.>"}, Command: `echo "$GATECHECK_PAYLOAD"`}}, nil)
	r.OnResult = func(_ Hook, _ string, res Result) { got = res.Output }

	_ = r.Publish(context.Background(), events.TopicGateCheckStarted, events.GateCheckStarted{GateCheck: &model.GateCheck{ID: "gc-7"}})
	_ = r.Close()

	if !strings.Contains(got, `"id":"gc-7"`) {
		t.Fatalf("payload not passed to hook: %q", got)
	}
}

func TestRunner_ClosedIgnoresEvents(t *testing.T) {
	ran := false
	r := NewRunner([]Hook{{Name: "x", Topics: []string{"gatecheck.>"}, Command: "true"}}, nil)
	r.OnResult = func(Hook, string, Result) { ran = true }
	_ = r.Close()

	if err := r.Publish(context.Background(), events.TopicGateCheckStarted, events.GateCheckStarted{}); err != nil {
		t.Fatalf("Publish after Close: %v", err)
	}
	if ran {
		t.Fatal("hook ran after Close")
	}
}

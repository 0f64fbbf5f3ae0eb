package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/events"
)

// maxConcurrent bounds the number of hook commands running at once.
const maxConcurrent = 4

// Runner is an events.Publisher that runs every hook whose topics match a
// published event. Commands run in the background; Publish never blocks on
// them. The topic and JSON payload are passed as GATECHECK_TOPIC and
// GATECHECK_PAYLOAD.
type Runner struct {
	hooks  []Hook
	logger *slog.Logger
	sem    chan struct{}
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool

	// OnResult, when set, receives every finished hook run.
	OnResult func(hook Hook, topic string, res Result)
}

var _ events.Publisher = (*Runner)(nil)

// NewRunner returns a Runner for hooks.
func NewRunner(hooks []Hook, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		hooks:  hooks,
		logger: logger,
		sem:    make(chan struct{}, maxConcurrent),
	}
}

// Publish starts the hooks matching topic. The commands outlive ctx.
func (r *Runner) Publish(_ context.Context, topic string, event any) error {
	var matched []Hook
	for _, h := range r.hooks {
		for _, pattern := range h.Topics {
			if events.MatchTopic(pattern, topic) {
				matched = append(matched, h)
				break
			}
		}
	}
	if len(matched) == 0 {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling hook payload for %s: %w", topic, err)
	}
	env := map[string]string{
		"GATECHECK_TOPIC":   topic,
		"GATECHECK_PAYLOAD": string(payload),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	for _, h := range matched {
		r.wg.Add(1)
		go r.run(h, topic, env)
	}
	return nil
}

func (r *Runner) run(h Hook, topic string, env map[string]string) {
	defer r.wg.Done()
	r.sem <- struct{}{}
	defer func() { <-r.sem }()

	res := Execute(context.Background(), h.Command, h.Timeout(), h.CWD, env)
	if res.Err != nil {
		r.logger.Warn("hooks: command failed",
			"hook", h.Name, "topic", topic, "duration", res.Duration, "output", res.Output, "error", res.Err)
	} else {
		r.logger.Info("hooks: command ran", "hook", h.Name, "topic", topic, "duration", res.Duration)
	}
	if r.OnResult != nil {
		r.OnResult(h, topic, res)
	}
}

// Close stops accepting events and waits for running hooks to finish.
func (r *Runner) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
	return nil
}

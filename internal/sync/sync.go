// Package sync periodically exports the gate check history as JSONL to
// off-site destinations (an S3 bucket, a git repository).
package sync

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Destination is an export target.
type Destination interface {
	// Name identifies the destination in logs. It must be unique within a
	// scheduler.
	Name() string
	Write(ctx context.Context, data []byte) error
}

// Result summarizes one export pass.
type Result struct {
	Bytes     int
	Written   int
	Unchanged int
	Failed    int
}

// Scheduler exports the history to its destinations on a fixed interval.
// Exports are deterministic, so a destination that already holds the
// current bytes is not written again.
type Scheduler struct {
	source   Source
	dests    []Destination
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	delivered map[string]uint64 // destination name -> digest of last good write

	stop func()
	done chan struct{}
}

func NewScheduler(source Source, dests []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		source:    source,
		dests:     dests,
		interval:  interval,
		logger:    logger,
		delivered: make(map[string]uint64, len(dests)),
	}
}

// Start exports once right away and then on every tick until ctx ends or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.stop = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		tick := time.NewTicker(s.interval)
		defer tick.Stop()
		for {
			s.ExportOnce(ctx)
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight export.
func (s *Scheduler) Stop() {
	if s.stop == nil {
		return
	}
	s.stop()
	<-s.done
}

// ExportOnce renders the history and hands it to every destination whose
// last successful write differs. One failing destination does not stop the
// others and is retried on the next pass.
func (s *Scheduler) ExportOnce(ctx context.Context) Result {
	var buf bytes.Buffer
	if err := ExportJSONL(ctx, s.source, &buf); err != nil {
		s.logger.Error("history export failed", "err", err)
		return Result{}
	}
	data := buf.Bytes()
	sum := xxhash.Sum64(data)
	res := Result{Bytes: len(data)}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.dests {
		name := d.Name()
		if prev, ok := s.delivered[name]; ok && prev == sum {
			res.Unchanged++
			continue
		}
		if err := d.Write(ctx, data); err != nil {
			res.Failed++
			s.logger.Error("history export destination write failed", "destination", name, "err", err)
			continue
		}
		s.delivered[name] = sum
		res.Written++
	}

	s.logger.Info("history export completed",
		"bytes", res.Bytes, "written", res.Written, "unchanged", res.Unchanged, "failed", res.Failed)
	return res
}

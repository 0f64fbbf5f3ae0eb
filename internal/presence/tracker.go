// Package presence tracks which inspectors are actively working gate checks.
//
// The server records an Activity after every successful mutation. A
// background reaper marks inspectors idle once they stop acting and evicts
// them later so the roster does not grow without bound.
package presence

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Entry is a snapshot of one inspector's activity.
type Entry struct {
	Actor       string    `json:"actor"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	LastAction  string    `json:"last_action"` // e.g. "start", "update_item", "complete"
	LotID       string    `json:"lot_id,omitempty"`
	Transition  string    `json:"transition,omitempty"`
	GateCheckID string    `json:"gate_check_id,omitempty"`
	IdleSecs    float64   `json:"idle_secs"`
	ActionCount int64     `json:"action_count"`
	Idle        bool      `json:"idle,omitempty"` // marked by the reaper
	IdleSince   time.Time `json:"idle_since,omitempty"`
}

// Activity is one action taken by an inspector.
type Activity struct {
	Actor       string
	Action      string
	LotID       string
	Transition  string
	GateCheckID string
}

// ReaperConfig configures the background idle reaper.
type ReaperConfig struct {
	// IdleThreshold is how long an inspector must be inactive before being
	// marked idle. Default: 30 minutes.
	IdleThreshold time.Duration

	// EvictAfter is how long after being marked idle an inspector is removed.
	// Default: 2 hours.
	EvictAfter time.Duration

	// SweepInterval is how often the reaper scans. Default: 60 seconds.
	SweepInterval time.Duration

	// OnIdle is called outside the lock for each inspector newly marked idle.
	OnIdle func(actor, gateCheckID string)
}

// Tracker maintains an in-memory roster of inspectors.
type Tracker struct {
	mu     sync.RWMutex
	actors map[string]*actorState
	now    func() time.Time

	reaperStop chan struct{}
	reaperDone chan struct{}
}

type actorState struct {
	firstSeen   time.Time
	lastSeen    time.Time
	lastAction  string
	lotID       string
	transition  string
	gateCheckID string
	actionCount int64
	idle        bool
	idleSince   time.Time
}

// New creates a new presence tracker.
func New() *Tracker {
	return &Tracker{
		actors: make(map[string]*actorState),
		now:    time.Now,
	}
}

// Record updates the roster with a completed action. Activities without
// an actor are ignored.
func (t *Tracker) Record(a Activity) {
	if a.Actor == "" {
		return
	}

	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.actors[a.Actor]
	if !ok {
		state = &actorState{firstSeen: now}
		t.actors[a.Actor] = state
	}

	if state.idle {
		slog.Info("presence: inspector active again", "actor", a.Actor)
		state.idle = false
		state.idleSince = time.Time{}
	}

	state.lastSeen = now
	state.lastAction = a.Action
	state.actionCount++
	if a.GateCheckID != "" {
		state.lotID = a.LotID
		state.transition = a.Transition
		state.gateCheckID = a.GateCheckID
	}
}

// Roster returns a snapshot of tracked inspectors, most recently active
// first. Inspectors inactive for longer than staleThreshold are excluded;
// pass 0 to include everyone.
func (t *Tracker) Roster(staleThreshold time.Duration) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	entries := make([]Entry, 0, len(t.actors))
	for actor, state := range t.actors {
		idle := now.Sub(state.lastSeen)
		if staleThreshold > 0 && idle > staleThreshold {
			continue
		}
		entries = append(entries, Entry{
			Actor:       actor,
			FirstSeen:   state.firstSeen,
			LastSeen:    state.lastSeen,
			LastAction:  state.lastAction,
			LotID:       state.lotID,
			Transition:  state.transition,
			GateCheckID: state.gateCheckID,
			IdleSecs:    idle.Seconds(),
			ActionCount: state.actionCount,
			Idle:        state.idle,
			IdleSince:   state.idleSince,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].LastSeen.Equal(entries[j].LastSeen) {
			return entries[i].LastSeen.After(entries[j].LastSeen)
		}
		return entries[i].Actor < entries[j].Actor
	})
	return entries
}

// StartReaper launches a background goroutine that periodically marks
// inactive inspectors idle. Call Stop to shut it down.
func (t *Tracker) StartReaper(cfg *ReaperConfig) {
	if cfg == nil {
		cfg = &ReaperConfig{}
	}
	if cfg.IdleThreshold == 0 {
		cfg.IdleThreshold = 30 * time.Minute
	}
	if cfg.EvictAfter == 0 {
		cfg.EvictAfter = 2 * time.Hour
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 60 * time.Second
	}

	t.reaperStop = make(chan struct{})
	t.reaperDone = make(chan struct{})

	go t.reapLoop(cfg)
	slog.Info("presence: reaper started",
		"idle_threshold", cfg.IdleThreshold,
		"sweep_interval", cfg.SweepInterval)
}

// Stop shuts down the reaper goroutine.
func (t *Tracker) Stop() {
	if t.reaperStop != nil {
		close(t.reaperStop)
		<-t.reaperDone
		t.reaperStop = nil
		t.reaperDone = nil
	}
}

func (t *Tracker) reapLoop(cfg *ReaperConfig) {
	defer close(t.reaperDone)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.reaperStop:
			return
		case <-ticker.C:
			t.sweep(cfg)
		}
	}
}

func (t *Tracker) sweep(cfg *ReaperConfig) {
	now := t.now()

	type idleActor struct {
		name        string
		gateCheckID string
	}
	var newlyIdle []idleActor

	t.mu.Lock()
	for actor, state := range t.actors {
		if state.idle {
			if now.Sub(state.idleSince) > cfg.EvictAfter {
				delete(t.actors, actor)
			}
			continue
		}
		if now.Sub(state.lastSeen) > cfg.IdleThreshold {
			state.idle = true
			state.idleSince = now
			newlyIdle = append(newlyIdle, idleActor{name: actor, gateCheckID: state.gateCheckID})
		}
	}
	t.mu.Unlock()

	for _, a := range newlyIdle {
		slog.Info("presence: inspector marked idle",
			"actor", a.name,
			"threshold", cfg.IdleThreshold)
		if cfg.OnIdle != nil {
			cfg.OnIdle(a.name, a.gateCheckID)
		}
	}
}

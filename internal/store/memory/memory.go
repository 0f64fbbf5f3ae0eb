// Package memory implements store.Store in process memory. It backs the
// service when no database is configured and is the store used by the
// lifecycle engine tests.
//
// Transactions are serialized: RunInTransaction works on a private copy of
// the data and swaps it in on success, so a failed transaction leaves no
// trace. Writes outside a transaction run as single-statement transactions.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/store"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/template"
)

// Store implements store.Store in memory.
type Store struct {
	catalog *template.Catalog

	txMu sync.Mutex // serializes transactions
	mu   sync.RWMutex
	st   *state
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New returns an empty store whose templates come from catalog.
func New(catalog *template.Catalog) *Store {
	return &Store{catalog: catalog, st: newState()}
}

func (s *Store) GetTemplateItems(_ context.Context, transition model.Transition) ([]*model.TemplateItem, error) {
	return s.catalog.Items(transition)
}

func (s *Store) CreateGateCheck(ctx context.Context, gc *model.GateCheck) error {
	return s.RunInTransaction(ctx, func(tx store.Store) error { return tx.CreateGateCheck(ctx, gc) })
}

func (s *Store) GetGateCheck(_ context.Context, id string) (*model.GateCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getGateCheck(id)
}

func (s *Store) GetLatestGateCheck(_ context.Context, lotID string, transition model.Transition) (*model.GateCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.latest(lotID, transition, false)
}

func (s *Store) GetActiveGateCheck(_ context.Context, lotID string, transition model.Transition) (*model.GateCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.latest(lotID, transition, true)
}

func (s *Store) ListGateChecks(_ context.Context, filter model.GateCheckFilter) ([]*model.GateCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.listGateChecks(filter)
}

func (s *Store) LockGateCheck(ctx context.Context, id string) (*model.GateCheck, error) {
	return s.GetGateCheck(ctx, id)
}

func (s *Store) CloseGateCheck(ctx context.Context, gc *model.GateCheck) error {
	return s.RunInTransaction(ctx, func(tx store.Store) error { return tx.CloseGateCheck(ctx, gc) })
}

func (s *Store) GetGateCheckItem(_ context.Context, id string) (*model.GateCheckItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getItem(id)
}

func (s *Store) UpdateGateCheckItem(ctx context.Context, item *model.GateCheckItem) error {
	return s.RunInTransaction(ctx, func(tx store.Store) error { return tx.UpdateGateCheckItem(ctx, item) })
}

func (s *Store) CreateDeficiency(ctx context.Context, d *model.Deficiency) error {
	return s.RunInTransaction(ctx, func(tx store.Store) error { return tx.CreateDeficiency(ctx, d) })
}

func (s *Store) GetDeficiency(_ context.Context, id string) (*model.Deficiency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getDeficiency(id)
}

func (s *Store) ListDeficiencies(_ context.Context, filter model.DeficiencyFilter) ([]*model.Deficiency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.listDeficiencies(filter), nil
}

func (s *Store) UpdateDeficiency(ctx context.Context, d *model.Deficiency) error {
	return s.RunInTransaction(ctx, func(tx store.Store) error { return tx.UpdateDeficiency(ctx, d) })
}

func (s *Store) RecordEvent(ctx context.Context, event *model.Event) error {
	return s.RunInTransaction(ctx, func(tx store.Store) error { return tx.RecordEvent(ctx, event) })
}

func (s *Store) GetEvents(_ context.Context, gateCheckID string) ([]*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getEvents(gateCheckID), nil
}

// RunInTransaction runs fn against a private copy of the data and publishes
// the copy when fn returns nil. Transactions run one at a time.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	s.mu.RLock()
	work := s.st.clone()
	s.mu.RUnlock()

	if err := fn(&txStore{catalog: s.catalog, st: work}); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = work
	s.mu.Unlock()
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// txStore implements store.Store on the working copy of a transaction.
type txStore struct {
	catalog *template.Catalog
	st      *state
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) GetTemplateItems(_ context.Context, transition model.Transition) ([]*model.TemplateItem, error) {
	return s.catalog.Items(transition)
}

func (s *txStore) CreateGateCheck(_ context.Context, gc *model.GateCheck) error {
	return s.st.createGateCheck(gc)
}

func (s *txStore) GetGateCheck(_ context.Context, id string) (*model.GateCheck, error) {
	return s.st.getGateCheck(id)
}

func (s *txStore) GetLatestGateCheck(_ context.Context, lotID string, transition model.Transition) (*model.GateCheck, error) {
	return s.st.latest(lotID, transition, false)
}

func (s *txStore) GetActiveGateCheck(_ context.Context, lotID string, transition model.Transition) (*model.GateCheck, error) {
	return s.st.latest(lotID, transition, true)
}

func (s *txStore) ListGateChecks(_ context.Context, filter model.GateCheckFilter) ([]*model.GateCheck, error) {
	return s.st.listGateChecks(filter)
}

// LockGateCheck needs no row lock: transactions are already serialized.
func (s *txStore) LockGateCheck(_ context.Context, id string) (*model.GateCheck, error) {
	return s.st.getGateCheck(id)
}

func (s *txStore) CloseGateCheck(_ context.Context, gc *model.GateCheck) error {
	return s.st.closeGateCheck(gc)
}

func (s *txStore) GetGateCheckItem(_ context.Context, id string) (*model.GateCheckItem, error) {
	return s.st.getItem(id)
}

func (s *txStore) UpdateGateCheckItem(_ context.Context, item *model.GateCheckItem) error {
	return s.st.updateItem(item)
}

func (s *txStore) CreateDeficiency(_ context.Context, d *model.Deficiency) error {
	return s.st.createDeficiency(d)
}

func (s *txStore) GetDeficiency(_ context.Context, id string) (*model.Deficiency, error) {
	return s.st.getDeficiency(id)
}

func (s *txStore) ListDeficiencies(_ context.Context, filter model.DeficiencyFilter) ([]*model.Deficiency, error) {
	return s.st.listDeficiencies(filter), nil
}

func (s *txStore) UpdateDeficiency(_ context.Context, d *model.Deficiency) error {
	return s.st.updateDeficiency(d)
}

func (s *txStore) RecordEvent(_ context.Context, event *model.Event) error {
	s.st.recordEvent(event)
	return nil
}

func (s *txStore) GetEvents(_ context.Context, gateCheckID string) ([]*model.Event, error) {
	return s.st.getEvents(gateCheckID), nil
}

// RunInTransaction on a txStore runs fn within the existing transaction.
func (s *txStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store.
func (s *txStore) Close() error {
	return nil
}

// state is the complete data set. Records are stored by value-copy; nothing
// handed to or returned from a state method aliases its internals.
type state struct {
	seq          int64
	gateChecks   map[string]*model.GateCheck // Items is always nil here
	gcSeq        map[string]int64
	items        map[string]*model.GateCheckItem
	deficiencies map[string]*model.Deficiency
	events       []*model.Event
}

func newState() *state {
	return &state{
		gateChecks:   make(map[string]*model.GateCheck),
		gcSeq:        make(map[string]int64),
		items:        make(map[string]*model.GateCheckItem),
		deficiencies: make(map[string]*model.Deficiency),
	}
}

func (st *state) clone() *state {
	c := &state{
		seq:          st.seq,
		gateChecks:   make(map[string]*model.GateCheck, len(st.gateChecks)),
		gcSeq:        make(map[string]int64, len(st.gcSeq)),
		items:        make(map[string]*model.GateCheckItem, len(st.items)),
		deficiencies: make(map[string]*model.Deficiency, len(st.deficiencies)),
		events:       make([]*model.Event, len(st.events)),
	}
	for id, gc := range st.gateChecks {
		c.gateChecks[id] = copyGateCheck(gc)
	}
	for id, n := range st.gcSeq {
		c.gcSeq[id] = n
	}
	for id, it := range st.items {
		c.items[id] = copyItem(it)
	}
	for id, d := range st.deficiencies {
		c.deficiencies[id] = copyDeficiency(d)
	}
	copy(c.events, st.events) // events are append-only and never mutated
	return c
}

func (st *state) createGateCheck(gc *model.GateCheck) error {
	if _, ok := st.gateChecks[gc.ID]; ok {
		return fmt.Errorf("gate check %q already exists", gc.ID)
	}
	if gc.Status == model.StatusInProgress {
		for _, other := range st.gateChecks {
			if other.Status == model.StatusInProgress && other.LotID == gc.LotID && other.Transition == gc.Transition {
				return fmt.Errorf("lot %q %s: %w", gc.LotID, gc.Transition, model.ErrAlreadyInProgress)
			}
		}
	}
	for _, it := range gc.Items {
		if _, ok := st.items[it.ID]; ok {
			return fmt.Errorf("gate check item %q already exists", it.ID)
		}
	}

	st.seq++
	st.gcSeq[gc.ID] = st.seq
	header := copyGateCheck(gc)
	header.Items = nil
	st.gateChecks[gc.ID] = header
	for _, it := range gc.Items {
		cp := copyItem(it)
		cp.GateCheckID = gc.ID
		st.items[it.ID] = cp
	}
	return nil
}

// assemble returns a copy of the gate check with its items in position order.
func (st *state) assemble(header *model.GateCheck) *model.GateCheck {
	gc := copyGateCheck(header)
	gc.Items = nil
	for _, it := range st.items {
		if it.GateCheckID == gc.ID {
			gc.Items = append(gc.Items, copyItem(it))
		}
	}
	sort.Slice(gc.Items, func(i, j int) bool {
		a, b := gc.Items[i], gc.Items[j]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})
	return gc
}

func (st *state) getGateCheck(id string) (*model.GateCheck, error) {
	header, ok := st.gateChecks[id]
	if !ok {
		return nil, fmt.Errorf("gate check %q: %w", id, model.ErrNotFound)
	}
	return st.assemble(header), nil
}

// newerThan orders gate checks by start time, then creation sequence.
func (st *state) newerThan(a, b *model.GateCheck) bool {
	if !a.StartedAt.Equal(b.StartedAt) {
		return a.StartedAt.After(b.StartedAt)
	}
	return st.gcSeq[a.ID] > st.gcSeq[b.ID]
}

func (st *state) latest(lotID string, transition model.Transition, activeOnly bool) (*model.GateCheck, error) {
	if !transition.IsValid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidTransition, transition)
	}
	var best *model.GateCheck
	for _, gc := range st.gateChecks {
		if gc.LotID != lotID || gc.Transition != transition {
			continue
		}
		if activeOnly && gc.Status != model.StatusInProgress {
			continue
		}
		if best == nil || st.newerThan(gc, best) {
			best = gc
		}
	}
	if best == nil {
		return nil, nil
	}
	return st.assemble(best), nil
}

func (st *state) listGateChecks(filter model.GateCheckFilter) ([]*model.GateCheck, error) {
	if filter.Transition != "" && !filter.Transition.IsValid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidTransition, filter.Transition)
	}
	var matched []*model.GateCheck
	for _, gc := range st.gateChecks {
		if filter.LotID != "" && gc.LotID != filter.LotID {
			continue
		}
		if filter.Transition != "" && gc.Transition != filter.Transition {
			continue
		}
		if len(filter.Status) > 0 && !containsStatus(filter.Status, gc.Status) {
			continue
		}
		matched = append(matched, gc)
	}
	sort.Slice(matched, func(i, j int) bool { return st.newerThan(matched[i], matched[j]) })
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	out := make([]*model.GateCheck, len(matched))
	for i, gc := range matched {
		out[i] = st.assemble(gc)
	}
	return out, nil
}

func containsStatus(list []model.Status, s model.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (st *state) closeGateCheck(gc *model.GateCheck) error {
	cur, ok := st.gateChecks[gc.ID]
	if !ok || cur.Status != model.StatusInProgress {
		return fmt.Errorf("gate check %q: %w", gc.ID, model.ErrGateCheckClosed)
	}
	cur.Status = gc.Status
	cur.CompletedAt = copyTime(gc.CompletedAt)
	cur.CompletedBy = gc.CompletedBy
	cur.CancelReason = gc.CancelReason
	return nil
}

func (st *state) getItem(id string) (*model.GateCheckItem, error) {
	it, ok := st.items[id]
	if !ok {
		return nil, fmt.Errorf("gate check item %q: %w", id, model.ErrNotFound)
	}
	return copyItem(it), nil
}

func (st *state) updateItem(item *model.GateCheckItem) error {
	cur, ok := st.items[item.ID]
	if !ok {
		return fmt.Errorf("gate check item %q: %w", item.ID, model.ErrNotFound)
	}
	cur.Result = item.Result
	cur.Notes = item.Notes
	cur.PhotoURL = item.PhotoURL
	cur.DeficiencyID = item.DeficiencyID
	cur.UpdatedBy = item.UpdatedBy
	cur.UpdatedAt = copyTime(item.UpdatedAt)
	return nil
}

func (st *state) createDeficiency(d *model.Deficiency) error {
	if _, ok := st.deficiencies[d.ID]; ok {
		return fmt.Errorf("deficiency %q already exists", d.ID)
	}
	if _, ok := st.items[d.GateCheckItemID]; !ok {
		return fmt.Errorf("deficiency %q: gate check item %q: %w", d.ID, d.GateCheckItemID, model.ErrNotFound)
	}
	st.deficiencies[d.ID] = copyDeficiency(d)
	return nil
}

func (st *state) getDeficiency(id string) (*model.Deficiency, error) {
	d, ok := st.deficiencies[id]
	if !ok {
		return nil, fmt.Errorf("deficiency %q: %w", id, model.ErrNotFound)
	}
	return copyDeficiency(d), nil
}

func (st *state) listDeficiencies(filter model.DeficiencyFilter) []*model.Deficiency {
	var out []*model.Deficiency
	for _, d := range st.deficiencies {
		if filter.LotID != "" && d.LotID != filter.LotID {
			continue
		}
		if filter.GateCheckID != "" && d.GateCheckID != filter.GateCheckID {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, copyDeficiency(d))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (st *state) updateDeficiency(d *model.Deficiency) error {
	cur, ok := st.deficiencies[d.ID]
	if !ok {
		return fmt.Errorf("deficiency %q: %w", d.ID, model.ErrNotFound)
	}
	cur.Description = d.Description
	cur.Status = d.Status
	cur.ResolvedBy = d.ResolvedBy
	cur.ResolvedAt = copyTime(d.ResolvedAt)
	cur.Resolution = d.Resolution
	return nil
}

func (st *state) recordEvent(e *model.Event) {
	e.ID = int64(len(st.events)) + 1
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	cp := *e
	st.events = append(st.events, &cp)
}

func (st *state) getEvents(gateCheckID string) []*model.Event {
	var out []*model.Event
	for _, e := range st.events {
		if e.GateCheckID == gateCheckID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

func copyGateCheck(gc *model.GateCheck) *model.GateCheck {
	cp := *gc
	cp.CompletedAt = copyTime(gc.CompletedAt)
	if gc.Items != nil {
		cp.Items = make([]*model.GateCheckItem, len(gc.Items))
		for i, it := range gc.Items {
			cp.Items[i] = copyItem(it)
		}
	}
	return &cp
}

func copyItem(it *model.GateCheckItem) *model.GateCheckItem {
	cp := *it
	cp.UpdatedAt = copyTime(it.UpdatedAt)
	return &cp
}

func copyDeficiency(d *model.Deficiency) *model.Deficiency {
	cp := *d
	cp.ResolvedAt = copyTime(d.ResolvedAt)
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

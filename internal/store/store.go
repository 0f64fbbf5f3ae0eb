package store

import (
	"context"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
)

// Store defines the persistence interface for gate checks.
//
// Lookups of a single record return an error wrapping model.ErrNotFound
// when the record does not exist. GetLatestGateCheck and GetActiveGateCheck
// are the exception: absence is a normal outcome there and yields (nil, nil).
type Store interface {
	// Templates
	GetTemplateItems(ctx context.Context, transition model.Transition) ([]*model.TemplateItem, error)

	// Gate checks
	CreateGateCheck(ctx context.Context, gc *model.GateCheck) error // inserts the gate check and its items
	GetGateCheck(ctx context.Context, id string) (*model.GateCheck, error)
	GetLatestGateCheck(ctx context.Context, lotID string, transition model.Transition) (*model.GateCheck, error)
	GetActiveGateCheck(ctx context.Context, lotID string, transition model.Transition) (*model.GateCheck, error)
	ListGateChecks(ctx context.Context, filter model.GateCheckFilter) ([]*model.GateCheck, error)
	// LockGateCheck loads a gate check and holds a write lock on it until the
	// surrounding transaction ends. Outside a transaction it behaves like GetGateCheck.
	LockGateCheck(ctx context.Context, id string) (*model.GateCheck, error)
	// CloseGateCheck persists a terminal status. It fails with
	// model.ErrGateCheckClosed if the stored record is no longer in progress.
	CloseGateCheck(ctx context.Context, gc *model.GateCheck) error

	// Items
	GetGateCheckItem(ctx context.Context, id string) (*model.GateCheckItem, error)
	UpdateGateCheckItem(ctx context.Context, item *model.GateCheckItem) error

	// Deficiencies
	CreateDeficiency(ctx context.Context, d *model.Deficiency) error
	GetDeficiency(ctx context.Context, id string) (*model.Deficiency, error)
	ListDeficiencies(ctx context.Context, filter model.DeficiencyFilter) ([]*model.Deficiency, error)
	UpdateDeficiency(ctx context.Context, d *model.Deficiency) error

	// Events
	RecordEvent(ctx context.Context, event *model.Event) error
	GetEvents(ctx context.Context, gateCheckID string) ([]*model.Event, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}

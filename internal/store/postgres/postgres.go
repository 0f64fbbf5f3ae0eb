// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
//
// The initial ping is retried with exponential backoff for up to
// connectTimeout so the service can start alongside its database.
func New(ctx context.Context, databaseURL string, connectTimeout time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := pingWithRetry(ctx, db, connectTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewWithDB wraps an already open database handle. Migrations are not run.
func NewWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func pingWithRetry(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = timeout

	return backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(bo, ctx))
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// SeedTemplates replaces the template catalog with the given items.
// Existing gate checks are unaffected: their items are snapshots.
func (s *PostgresStore) SeedTemplates(ctx context.Context, items []*model.TemplateItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := querySeedTemplates(ctx, tx, items); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("seed templates: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) GetTemplateItems(ctx context.Context, transition model.Transition) ([]*model.TemplateItem, error) {
	return queryGetTemplateItems(ctx, s.db, transition)
}

func (s *PostgresStore) CreateGateCheck(ctx context.Context, gc *model.GateCheck) error {
	return queryCreateGateCheck(ctx, s.db, gc)
}

func (s *PostgresStore) GetGateCheck(ctx context.Context, id string) (*model.GateCheck, error) {
	return queryGetGateCheck(ctx, s.db, id, false)
}

func (s *PostgresStore) GetLatestGateCheck(ctx context.Context, lotID string, transition model.Transition) (*model.GateCheck, error) {
	return queryGetLatestGateCheck(ctx, s.db, lotID, transition)
}

func (s *PostgresStore) GetActiveGateCheck(ctx context.Context, lotID string, transition model.Transition) (*model.GateCheck, error) {
	return queryGetActiveGateCheck(ctx, s.db, lotID, transition)
}

func (s *PostgresStore) ListGateChecks(ctx context.Context, filter model.GateCheckFilter) ([]*model.GateCheck, error) {
	return queryListGateChecks(ctx, s.db, filter)
}

// LockGateCheck outside a transaction holds no lock past the statement.
func (s *PostgresStore) LockGateCheck(ctx context.Context, id string) (*model.GateCheck, error) {
	return queryGetGateCheck(ctx, s.db, id, false)
}

func (s *PostgresStore) CloseGateCheck(ctx context.Context, gc *model.GateCheck) error {
	return queryCloseGateCheck(ctx, s.db, gc)
}

func (s *PostgresStore) GetGateCheckItem(ctx context.Context, id string) (*model.GateCheckItem, error) {
	return queryGetGateCheckItem(ctx, s.db, id)
}

func (s *PostgresStore) UpdateGateCheckItem(ctx context.Context, item *model.GateCheckItem) error {
	return queryUpdateGateCheckItem(ctx, s.db, item)
}

func (s *PostgresStore) CreateDeficiency(ctx context.Context, d *model.Deficiency) error {
	return queryCreateDeficiency(ctx, s.db, d)
}

func (s *PostgresStore) GetDeficiency(ctx context.Context, id string) (*model.Deficiency, error) {
	return queryGetDeficiency(ctx, s.db, id)
}

func (s *PostgresStore) ListDeficiencies(ctx context.Context, filter model.DeficiencyFilter) ([]*model.Deficiency, error) {
	return queryListDeficiencies(ctx, s.db, filter)
}

func (s *PostgresStore) UpdateDeficiency(ctx context.Context, d *model.Deficiency) error {
	return queryUpdateDeficiency(ctx, s.db, d)
}

func (s *PostgresStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.db, event)
}

func (s *PostgresStore) GetEvents(ctx context.Context, gateCheckID string) ([]*model.Event, error) {
	return queryGetEvents(ctx, s.db, gateCheckID)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) GetTemplateItems(ctx context.Context, transition model.Transition) ([]*model.TemplateItem, error) {
	return queryGetTemplateItems(ctx, s.tx, transition)
}

func (s *txStore) CreateGateCheck(ctx context.Context, gc *model.GateCheck) error {
	return queryCreateGateCheck(ctx, s.tx, gc)
}

func (s *txStore) GetGateCheck(ctx context.Context, id string) (*model.GateCheck, error) {
	return queryGetGateCheck(ctx, s.tx, id, false)
}

func (s *txStore) GetLatestGateCheck(ctx context.Context, lotID string, transition model.Transition) (*model.GateCheck, error) {
	return queryGetLatestGateCheck(ctx, s.tx, lotID, transition)
}

func (s *txStore) GetActiveGateCheck(ctx context.Context, lotID string, transition model.Transition) (*model.GateCheck, error) {
	return queryGetActiveGateCheck(ctx, s.tx, lotID, transition)
}

func (s *txStore) ListGateChecks(ctx context.Context, filter model.GateCheckFilter) ([]*model.GateCheck, error) {
	return queryListGateChecks(ctx, s.tx, filter)
}

func (s *txStore) LockGateCheck(ctx context.Context, id string) (*model.GateCheck, error) {
	return queryGetGateCheck(ctx, s.tx, id, true)
}

func (s *txStore) CloseGateCheck(ctx context.Context, gc *model.GateCheck) error {
	return queryCloseGateCheck(ctx, s.tx, gc)
}

func (s *txStore) GetGateCheckItem(ctx context.Context, id string) (*model.GateCheckItem, error) {
	return queryGetGateCheckItem(ctx, s.tx, id)
}

func (s *txStore) UpdateGateCheckItem(ctx context.Context, item *model.GateCheckItem) error {
	return queryUpdateGateCheckItem(ctx, s.tx, item)
}

func (s *txStore) CreateDeficiency(ctx context.Context, d *model.Deficiency) error {
	return queryCreateDeficiency(ctx, s.tx, d)
}

func (s *txStore) GetDeficiency(ctx context.Context, id string) (*model.Deficiency, error) {
	return queryGetDeficiency(ctx, s.tx, id)
}

func (s *txStore) ListDeficiencies(ctx context.Context, filter model.DeficiencyFilter) ([]*model.Deficiency, error) {
	return queryListDeficiencies(ctx, s.tx, filter)
}

func (s *txStore) UpdateDeficiency(ctx context.Context, d *model.Deficiency) error {
	return queryUpdateDeficiency(ctx, s.tx, d)
}

func (s *txStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.tx, event)
}

func (s *txStore) GetEvents(ctx context.Context, gateCheckID string) ([]*model.Event, error) {
	return queryGetEvents(ctx, s.tx, gateCheckID)
}

// RunInTransaction on a txStore runs fn within the existing transaction
// (no nested transaction).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for txStore; the transaction lifecycle is managed by RunInTransaction.
func (s *txStore) Close() error {
	return nil
}

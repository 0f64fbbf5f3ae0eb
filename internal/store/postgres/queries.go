package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
)

// gateCheckColumns is the column list used for SELECT statements on the gate_checks table.
const gateCheckColumns = `id, lot_id, transition, status, started_by, started_at,
	completed_at, completed_by, cancel_reason`

// itemColumns is the column list used for SELECT statements on the gate_check_items table.
const itemColumns = `id, gate_check_id, item_code, item_label, is_blocking, position,
	result, notes, photo_url, deficiency_id, updated_by, updated_at`

// deficiencyColumns is the column list used for SELECT statements on the deficiencies table.
const deficiencyColumns = `id, gate_check_id, gate_check_item_id, lot_id, transition,
	item_code, description, status, created_by, created_at, resolved_by, resolved_at, resolution`

// activeGateCheckIndex is the partial unique index allowing a single
// in-progress gate check per lot and transition.
const activeGateCheckIndex = "gate_checks_one_in_progress"

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func checkTransition(t model.Transition) error {
	if !t.IsValid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidTransition, t)
	}
	return nil
}

// isActiveConflict reports whether err is the unique violation raised when a
// second in-progress gate check is inserted for the same lot and transition.
func isActiveConflict(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == pgUniqueViolation && pqErr.Constraint == activeGateCheckIndex
}

func querySeedTemplates(ctx context.Context, db executor, items []*model.TemplateItem) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM gate_check_templates`); err != nil {
		return err
	}
	for _, t := range items {
		_, err := db.ExecContext(ctx, `
			INSERT INTO gate_check_templates (transition, item_code, item_label, is_blocking, position)
			VALUES ($1, $2, $3, $4, $5)`,
			string(t.Transition), t.ItemCode, t.ItemLabel, t.IsBlocking, t.Position,
		)
		if err != nil {
			return fmt.Errorf("insert template item %s/%s: %w", t.Transition, t.ItemCode, err)
		}
	}
	return nil
}

func queryGetTemplateItems(ctx context.Context, db executor, transition model.Transition) ([]*model.TemplateItem, error) {
	if err := checkTransition(transition); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT transition, item_code, item_label, is_blocking, position
		FROM gate_check_templates
		WHERE transition = $1
		ORDER BY position ASC, item_code ASC`,
		string(transition),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*model.TemplateItem
	for rows.Next() {
		t, err := scanTemplateItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template item: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan template items: %w", err)
	}
	return items, nil
}

func queryCreateGateCheck(ctx context.Context, db executor, gc *model.GateCheck) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO gate_checks (
			id, lot_id, transition, status, started_by, started_at,
			completed_at, completed_by, cancel_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		gc.ID,
		gc.LotID,
		string(gc.Transition),
		string(gc.Status),
		gc.StartedBy,
		gc.StartedAt,
		nullTimePtr(gc.CompletedAt),
		nullString(gc.CompletedBy),
		nullString(gc.CancelReason),
	)
	if err != nil {
		if isActiveConflict(err) {
			return fmt.Errorf("lot %q %s: %w", gc.LotID, gc.Transition, model.ErrAlreadyInProgress)
		}
		return err
	}

	for _, it := range gc.Items {
		_, err := db.ExecContext(ctx, `
			INSERT INTO gate_check_items (
				id, gate_check_id, item_code, item_label, is_blocking, position,
				result, notes, photo_url, deficiency_id, updated_by, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			it.ID,
			gc.ID,
			it.ItemCode,
			it.ItemLabel,
			it.IsBlocking,
			it.Position,
			string(it.Result),
			it.Notes,
			it.PhotoURL,
			nullString(it.DeficiencyID),
			nullString(it.UpdatedBy),
			nullTimePtr(it.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert item %s: %w", it.ItemCode, err)
		}
	}
	return nil
}

// queryGetGateCheck loads a gate check and its items. With forUpdate the
// gate check row stays locked until the transaction ends.
func queryGetGateCheck(ctx context.Context, db executor, id string, forUpdate bool) (*model.GateCheck, error) {
	q := `SELECT ` + gateCheckColumns + ` FROM gate_checks WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	gc, err := scanGateCheck(db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("gate check %q: %w", id, model.ErrNotFound)
		}
		return nil, err
	}
	if err := loadItems(ctx, db, gc); err != nil {
		return nil, err
	}
	return gc, nil
}

func queryGetLatestGateCheck(ctx context.Context, db executor, lotID string, transition model.Transition) (*model.GateCheck, error) {
	if err := checkTransition(transition); err != nil {
		return nil, err
	}
	row := db.QueryRowContext(ctx, `
		SELECT `+gateCheckColumns+`
		FROM gate_checks
		WHERE lot_id = $1 AND transition = $2
		ORDER BY started_at DESC, seq DESC
		LIMIT 1`,
		lotID, string(transition),
	)
	return gateCheckOrNil(ctx, db, row)
}

func queryGetActiveGateCheck(ctx context.Context, db executor, lotID string, transition model.Transition) (*model.GateCheck, error) {
	if err := checkTransition(transition); err != nil {
		return nil, err
	}
	row := db.QueryRowContext(ctx, `
		SELECT `+gateCheckColumns+`
		FROM gate_checks
		WHERE lot_id = $1 AND transition = $2 AND status = 'in_progress'`,
		lotID, string(transition),
	)
	return gateCheckOrNil(ctx, db, row)
}

func gateCheckOrNil(ctx context.Context, db executor, row *sql.Row) (*model.GateCheck, error) {
	gc, err := scanGateCheck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := loadItems(ctx, db, gc); err != nil {
		return nil, err
	}
	return gc, nil
}

func loadItems(ctx context.Context, db executor, gc *model.GateCheck) error {
	rows, err := db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM gate_check_items
		WHERE gate_check_id = $1
		ORDER BY position ASC, id ASC`,
		gc.ID,
	)
	if err != nil {
		return fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return fmt.Errorf("scan items: %w", err)
	}
	gc.Items = items
	return nil
}

func queryListGateChecks(ctx context.Context, db executor, filter model.GateCheckFilter) ([]*model.GateCheck, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if filter.LotID != "" {
		whereClauses = append(whereClauses, "lot_id = "+nextArg())
		args = append(args, filter.LotID)
	}

	if filter.Transition != "" {
		if err := checkTransition(filter.Transition); err != nil {
			return nil, err
		}
		whereClauses = append(whereClauses, "transition = "+nextArg())
		args = append(args, string(filter.Transition))
	}

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			placeholders[i] = nextArg()
			args = append(args, string(s))
		}
		whereClauses = append(whereClauses, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	q := `SELECT ` + gateCheckColumns + ` FROM gate_checks`
	if len(whereClauses) > 0 {
		q += " WHERE " + strings.Join(whereClauses, " AND ")
	}
	q += " ORDER BY started_at DESC, seq DESC"
	if filter.Limit > 0 {
		q += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	gcs, err := scanGateChecks(rows)
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("scan gate checks: %w", err)
	}
	if len(gcs) == 0 {
		return gcs, nil
	}

	// Fetch the items of every listed gate check in one round trip.
	ids := make([]string, len(gcs))
	byID := make(map[string]*model.GateCheck, len(gcs))
	for i, gc := range gcs {
		ids[i] = gc.ID
		byID[gc.ID] = gc
	}
	itemRows, err := db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM gate_check_items
		WHERE gate_check_id = ANY($1)
		ORDER BY gate_check_id, position ASC, id ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer itemRows.Close()

	items, err := scanItems(itemRows)
	if err != nil {
		return nil, fmt.Errorf("scan items: %w", err)
	}
	for _, it := range items {
		if gc, ok := byID[it.GateCheckID]; ok {
			gc.Items = append(gc.Items, it)
		}
	}
	return gcs, nil
}

func queryCloseGateCheck(ctx context.Context, db executor, gc *model.GateCheck) error {
	res, err := db.ExecContext(ctx, `
		UPDATE gate_checks
		SET status = $2, completed_at = $3, completed_by = $4, cancel_reason = $5
		WHERE id = $1 AND status = 'in_progress'`,
		gc.ID,
		string(gc.Status),
		nullTimePtr(gc.CompletedAt),
		nullString(gc.CompletedBy),
		nullString(gc.CancelReason),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("gate check %q: %w", gc.ID, model.ErrGateCheckClosed)
	}
	return nil
}

func queryGetGateCheckItem(ctx context.Context, db executor, id string) (*model.GateCheckItem, error) {
	row := db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM gate_check_items WHERE id = $1`, id)
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("gate check item %q: %w", id, model.ErrNotFound)
		}
		return nil, err
	}
	return it, nil
}

func queryUpdateGateCheckItem(ctx context.Context, db executor, it *model.GateCheckItem) error {
	res, err := db.ExecContext(ctx, `
		UPDATE gate_check_items SET
			result = $2,
			notes = $3,
			photo_url = $4,
			deficiency_id = $5,
			updated_by = $6,
			updated_at = $7
		WHERE id = $1`,
		it.ID,
		string(it.Result),
		it.Notes,
		it.PhotoURL,
		nullString(it.DeficiencyID),
		nullString(it.UpdatedBy),
		nullTimePtr(it.UpdatedAt),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("gate check item %q: %w", it.ID, model.ErrNotFound)
	}
	return nil
}

func queryCreateDeficiency(ctx context.Context, db executor, d *model.Deficiency) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO deficiencies (
			id, gate_check_id, gate_check_item_id, lot_id, transition,
			item_code, description, status, created_by, created_at,
			resolved_by, resolved_at, resolution
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		d.ID,
		d.GateCheckID,
		d.GateCheckItemID,
		d.LotID,
		string(d.Transition),
		d.ItemCode,
		d.Description,
		string(d.Status),
		nullString(d.CreatedBy),
		d.CreatedAt,
		nullString(d.ResolvedBy),
		nullTimePtr(d.ResolvedAt),
		nullString(d.Resolution),
	)
	return err
}

func queryGetDeficiency(ctx context.Context, db executor, id string) (*model.Deficiency, error) {
	row := db.QueryRowContext(ctx, `SELECT `+deficiencyColumns+` FROM deficiencies WHERE id = $1`, id)
	d, err := scanDeficiency(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("deficiency %q: %w", id, model.ErrNotFound)
		}
		return nil, err
	}
	return d, nil
}

func queryListDeficiencies(ctx context.Context, db executor, filter model.DeficiencyFilter) ([]*model.Deficiency, error) {
	var (
		whereClauses []string
		args         []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if filter.LotID != "" {
		add("lot_id", filter.LotID)
	}
	if filter.GateCheckID != "" {
		add("gate_check_id", filter.GateCheckID)
	}
	if filter.Status != "" {
		add("status", string(filter.Status))
	}

	q := `SELECT ` + deficiencyColumns + ` FROM deficiencies`
	if len(whereClauses) > 0 {
		q += " WHERE " + strings.Join(whereClauses, " AND ")
	}
	q += " ORDER BY created_at DESC, id ASC"

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDeficiencies(rows)
}

func queryUpdateDeficiency(ctx context.Context, db executor, d *model.Deficiency) error {
	res, err := db.ExecContext(ctx, `
		UPDATE deficiencies SET
			description = $2,
			status = $3,
			resolved_by = $4,
			resolved_at = $5,
			resolution = $6
		WHERE id = $1`,
		d.ID,
		d.Description,
		string(d.Status),
		nullString(d.ResolvedBy),
		nullTimePtr(d.ResolvedAt),
		nullString(d.Resolution),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("deficiency %q: %w", d.ID, model.ErrNotFound)
	}
	return nil
}

func queryRecordEvent(ctx context.Context, db executor, e *model.Event) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO events (topic, gate_check_id, actor, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		e.Topic, e.GateCheckID, nullString(e.Actor), jsonbBytes(e.Payload),
	).Scan(&e.ID, &e.CreatedAt)
}

func queryGetEvents(ctx context.Context, db executor, gateCheckID string) ([]*model.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, topic, gate_check_id, actor, payload, created_at
		FROM events
		WHERE gate_check_id = $1
		ORDER BY created_at ASC, id ASC`,
		gateCheckID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

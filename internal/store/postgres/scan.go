package postgres

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanTemplateItem scans a single row into a model.TemplateItem.
func scanTemplateItem(row scannable) (*model.TemplateItem, error) {
	var t model.TemplateItem
	var transition string
	if err := row.Scan(&transition, &t.ItemCode, &t.ItemLabel, &t.IsBlocking, &t.Position); err != nil {
		return nil, err
	}
	t.Transition = model.Transition(transition)
	return &t, nil
}

// scanGateCheck scans a single row into a model.GateCheck.
// The row must contain columns in the order defined by gateCheckColumns.
func scanGateCheck(row scannable) (*model.GateCheck, error) {
	var g model.GateCheck
	var (
		transition   string
		status       string
		completedAt  sql.NullTime
		completedBy  sql.NullString
		cancelReason sql.NullString
	)

	err := row.Scan(
		&g.ID,
		&g.LotID,
		&transition,
		&status,
		&g.StartedBy,
		&g.StartedAt,
		&completedAt,
		&completedBy,
		&cancelReason,
	)
	if err != nil {
		return nil, err
	}

	g.Transition = model.Transition(transition)
	g.Status = model.Status(status)
	g.CompletedBy = completedBy.String
	g.CancelReason = cancelReason.String
	if completedAt.Valid {
		t := completedAt.Time
		g.CompletedAt = &t
	}

	return &g, nil
}

// scanGateChecks scans multiple rows into a slice of model.GateCheck pointers.
func scanGateChecks(rows *sql.Rows) ([]*model.GateCheck, error) {
	var gcs []*model.GateCheck
	for rows.Next() {
		g, err := scanGateCheck(rows)
		if err != nil {
			return nil, err
		}
		gcs = append(gcs, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return gcs, nil
}

// scanItem scans a single row into a model.GateCheckItem.
// The row must contain columns in the order defined by itemColumns.
func scanItem(row scannable) (*model.GateCheckItem, error) {
	var it model.GateCheckItem
	var (
		result       string
		deficiencyID sql.NullString
		updatedBy    sql.NullString
		updatedAt    sql.NullTime
	)

	err := row.Scan(
		&it.ID,
		&it.GateCheckID,
		&it.ItemCode,
		&it.ItemLabel,
		&it.IsBlocking,
		&it.Position,
		&result,
		&it.Notes,
		&it.PhotoURL,
		&deficiencyID,
		&updatedBy,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	it.Result = model.ItemResult(result)
	it.DeficiencyID = deficiencyID.String
	it.UpdatedBy = updatedBy.String
	if updatedAt.Valid {
		t := updatedAt.Time
		it.UpdatedAt = &t
	}
	return &it, nil
}

// scanItems scans multiple rows into a slice of model.GateCheckItem pointers.
func scanItems(rows *sql.Rows) ([]*model.GateCheckItem, error) {
	var items []*model.GateCheckItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// scanDeficiency scans a single row into a model.Deficiency.
// The row must contain columns in the order defined by deficiencyColumns.
func scanDeficiency(row scannable) (*model.Deficiency, error) {
	var d model.Deficiency
	var (
		transition string
		status     string
		createdBy  sql.NullString
		resolvedBy sql.NullString
		resolvedAt sql.NullTime
		resolution sql.NullString
	)

	err := row.Scan(
		&d.ID,
		&d.GateCheckID,
		&d.GateCheckItemID,
		&d.LotID,
		&transition,
		&d.ItemCode,
		&d.Description,
		&status,
		&createdBy,
		&d.CreatedAt,
		&resolvedBy,
		&resolvedAt,
		&resolution,
	)
	if err != nil {
		return nil, err
	}

	d.Transition = model.Transition(transition)
	d.Status = model.DeficiencyStatus(status)
	d.CreatedBy = createdBy.String
	d.ResolvedBy = resolvedBy.String
	d.Resolution = resolution.String
	if resolvedAt.Valid {
		t := resolvedAt.Time
		d.ResolvedAt = &t
	}
	return &d, nil
}

// scanDeficiencies scans multiple rows into a slice of model.Deficiency pointers.
func scanDeficiencies(rows *sql.Rows) ([]*model.Deficiency, error) {
	var defs []*model.Deficiency
	for rows.Next() {
		d, err := scanDeficiency(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return defs, nil
}

// scanEvent scans a single row into a model.Event.
func scanEvent(row scannable) (*model.Event, error) {
	var e model.Event
	var (
		actor   sql.NullString
		payload []byte
	)
	err := row.Scan(&e.ID, &e.Topic, &e.GateCheckID, &actor, &payload, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Actor = actor.String
	if len(payload) > 0 {
		e.Payload = json.RawMessage(payload)
	}
	return &e, nil
}

// scanEvents scans multiple rows into a slice of model.Event pointers.
func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// nullTimePtr converts a *time.Time to a sql.NullTime.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// jsonbBytes converts json.RawMessage to a []byte suitable for JSONB columns.
func jsonbBytes(m json.RawMessage) []byte {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}

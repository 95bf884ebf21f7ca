package ticketflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStorage keeps workflows in a single SQLite table: one JSON document
// per workflow with indexed status and update-time columns for listing.
// The pure-Go driver needs no cgo, so the backend works anywhere the
// library does.
type SQLiteStorage struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS workflows (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	data       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_workflows_status ON workflows(status);
CREATE INDEX IF NOT EXISTS idx_workflows_updated ON workflows(updated_at);
`

// NewSQLiteStorage opens (creating if necessary) the database at path and
// ensures the schema exists. Use ":memory:" for throwaway stores.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, &StorageError{Op: "migrate", Err: err}
	}
	return &SQLiteStorage{db: db}, nil
}

// Save implements Storage with an upsert.
func (s *SQLiteStorage) Save(ctx context.Context, w DevelopmentWorkflow) error {
	data, err := json.Marshal(w)
	if err != nil {
		return &StorageError{Op: "save", WorkflowID: w.ID, Err: err}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflows (id, status, updated_at, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status     = excluded.status,
			updated_at = excluded.updated_at,
			data       = excluded.data`,
		w.ID, string(w.Status), w.UpdatedAt.UTC().Format(sqliteTimeLayout), string(data))
	if err != nil {
		return &StorageError{Op: "save", WorkflowID: w.ID, Err: err}
	}
	return nil
}

// RFC 3339 with nanoseconds keeps lexical order equal to time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Load implements Storage.
func (s *SQLiteStorage) Load(ctx context.Context, id string) (DevelopmentWorkflow, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM workflows WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return DevelopmentWorkflow{}, fmt.Errorf("load %s: %w", id, ErrWorkflowNotFound)
	}
	if err != nil {
		return DevelopmentWorkflow{}, &StorageError{Op: "load", WorkflowID: id, Err: err}
	}
	var w DevelopmentWorkflow
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		return DevelopmentWorkflow{}, &StorageError{Op: "load", WorkflowID: id, Err: err}
	}
	return w, nil
}

// LoadAll implements Storage.
func (s *SQLiteStorage) LoadAll(ctx context.Context) ([]DevelopmentWorkflow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM workflows ORDER BY updated_at DESC`)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	defer rows.Close()

	var out []DevelopmentWorkflow
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, &StorageError{Op: "list", Err: err}
		}
		var w DevelopmentWorkflow
		if err := json.Unmarshal([]byte(data), &w); err != nil {
			return nil, &StorageError{Op: "list", WorkflowID: w.ID, Err: err}
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	return out, nil
}

// Delete implements Storage; deleting an absent workflow is a no-op.
func (s *SQLiteStorage) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM workflows WHERE id = ?`, id); err != nil {
		return &StorageError{Op: "delete", WorkflowID: id, Err: err}
	}
	return nil
}

// Close implements Storage.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

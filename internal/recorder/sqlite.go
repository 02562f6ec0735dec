package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	ioutils "github.com/handiism/post-exporter/internal/io"
	"github.com/handiism/post-exporter/internal/model"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS exports (
	id         TEXT PRIMARY KEY,
	post_id    TEXT NOT NULL,
	schedule   INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS export_records (
	id        TEXT PRIMARY KEY,
	export_id TEXT NOT NULL REFERENCES exports(id) ON DELETE CASCADE,
	position  INTEGER NOT NULL,
	platform  TEXT NOT NULL,
	width     INTEGER NOT NULL,
	height    INTEGER NOT NULL,
	label     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_export_records_export ON export_records(export_id);
`

// SQLiteRecorder stores export intent in a local SQLite database.
//
// It stands in for the backend when none is configured: every Record call
// creates one export row plus one record row per format, and returns the
// records with generated identifiers.
type SQLiteRecorder struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteRecorder, error) {
	if path != ":memory:" {
		if err := ioutils.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("ensure db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps ":memory:" databases alive across calls
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteRecorder{db: db, now: time.Now}, nil
}

// Close closes the database.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

// Record implements Recorder.
func (r *SQLiteRecorder) Record(ctx context.Context, req Request) ([]model.ExportRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	exportID := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO exports (id, post_id, schedule, created_at) VALUES (?, ?, ?, ?)`,
		exportID, req.PostID, req.Schedule, r.now().UTC().Format(time.RFC3339),
	); err != nil {
		return nil, fmt.Errorf("insert export: %w", err)
	}

	records := echoRecords(req)
	for i, rec := range records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO export_records (id, export_id, position, platform, width, height, label)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, exportID, i, rec.Platform, rec.Width, rec.Height, rec.Label,
		); err != nil {
			return nil, fmt.Errorf("insert record %s: %w", rec.Platform, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return records, nil
}

// Lookup returns a stored record by identifier.
func (r *SQLiteRecorder) Lookup(ctx context.Context, id string) (model.ExportRecord, error) {
	var rec model.ExportRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT id, platform, width, height, label FROM export_records WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Platform, &rec.Width, &rec.Height, &rec.Label)
	if err != nil {
		return model.ExportRecord{}, fmt.Errorf("lookup record %s: %w", id, err)
	}
	return rec, nil
}

// ScheduledCount returns how many recorded exports asked to be scheduled.
func (r *SQLiteRecorder) ScheduledCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exports WHERE schedule = 1`).Scan(&n)
	return n, err
}

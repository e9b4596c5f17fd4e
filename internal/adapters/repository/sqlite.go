package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hedvall/vakthund/internal/domain/model"
	"github.com/hedvall/vakthund/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS incidents (
	key            TEXT PRIMARY KEY,
	id             TEXT NOT NULL DEFAULT '',
	name           TEXT NOT NULL DEFAULT '',
	type           TEXT NOT NULL DEFAULT '',
	summary        TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	url            TEXT NOT NULL DEFAULT '',
	datetime       TEXT NOT NULL DEFAULT '',
	location_name  TEXT NOT NULL DEFAULT '',
	gps            TEXT NOT NULL DEFAULT '',
	score          INTEGER NOT NULL,
	reasons        TEXT NOT NULL DEFAULT '[]',
	low_confidence INTEGER NOT NULL DEFAULT 0,
	timestamp      INTEGER NOT NULL,
	is_mocked      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_incidents_timestamp ON incidents(timestamp);
`

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the incident database in dataDir. Pass
// ":memory:" as dataDir for an in-memory database (used by tests).
func OpenSQLite(dataDir string) (*SQLiteStore, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "vakthund.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Single connection avoids "database is locked" between the sync loop
	// and concurrent sandbox/read requests.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Upsert creates or merges rec under rec.Key.
func (s *SQLiteStore) Upsert(ctx context.Context, rec model.StoredIncident) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning upsert: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanIncident(tx.QueryRowContext(ctx,
		selectColumns+" FROM incidents WHERE key = ?", rec.Key))
	switch {
	case err == sql.ErrNoRows:
		// New document; store as-is.
	case err != nil:
		return fmt.Errorf("reading existing incident: %w", err)
	default:
		rec.Incident = model.Merge(existing.Incident, rec.Incident)
	}

	if err := writeIncident(ctx, tx, rec); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	return nil
}

// Replace stores rec under rec.Key, discarding any existing document.
func (s *SQLiteStore) Replace(ctx context.Context, rec model.StoredIncident) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning replace: %w", err)
	}
	defer tx.Rollback()

	if err := writeIncident(ctx, tx, rec); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing replace: %w", err)
	}
	return nil
}

// RecentN returns up to n records ordered by timestamp descending.
func (s *SQLiteStore) RecentN(ctx context.Context, n int) ([]model.StoredIncident, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	rows, err := s.db.QueryContext(ctx,
		selectColumns+" FROM incidents ORDER BY timestamp DESC, key ASC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("querying recent incidents: %w", err)
	}
	defer rows.Close()

	var out []model.StoredIncident
	for rows.Next() {
		rec, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning incident: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating incidents: %w", err)
	}
	return out, nil
}

// KeysOlderThan returns keys of records with timestamp strictly below cutoff.
func (s *SQLiteStore) KeysOlderThan(ctx context.Context, cutoff int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM incidents WHERE timestamp < ?", cutoff)
	if err != nil {
		return nil, fmt.Errorf("querying expired incidents: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keys: %w", err)
	}
	return keys, nil
}

// DeleteBatch removes the given keys in one transaction.
func (s *SQLiteStore) DeleteBatch(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM incidents WHERE key IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("deleting incidents: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM incidents").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting incidents: %w", err)
	}
	return n, nil
}

const selectColumns = `SELECT key, id, name, type, summary, description, url, datetime,
	location_name, gps, score, reasons, low_confidence, timestamp, is_mocked`

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanIncident(row scanner) (model.StoredIncident, error) {
	var (
		rec           model.StoredIncident
		id            string
		locationName  string
		gps           string
		reasonsJSON   string
		lowConfidence int
		isMocked      int
	)
	err := row.Scan(&rec.Key, &id, &rec.Name, &rec.Type, &rec.Summary, &rec.Description,
		&rec.URL, &rec.Datetime, &locationName, &gps, &rec.Integrity.Score,
		&reasonsJSON, &lowConfidence, &rec.Timestamp, &isMocked)
	if err != nil {
		return model.StoredIncident{}, err
	}
	rec.ID = model.ID(id)
	if locationName != "" || gps != "" {
		rec.Location = &model.Location{Name: locationName, GPS: gps}
	}
	rec.Integrity.Reasons = []string{}
	if err := json.Unmarshal([]byte(reasonsJSON), &rec.Integrity.Reasons); err != nil {
		return model.StoredIncident{}, fmt.Errorf("decoding reasons: %w", err)
	}
	rec.Integrity.IsLowConfidence = lowConfidence != 0
	rec.IsMockedData = isMocked != 0
	return rec, nil
}

func writeIncident(ctx context.Context, tx *sql.Tx, rec model.StoredIncident) error {
	reasons := rec.Integrity.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	reasonsJSON, err := json.Marshal(reasons)
	if err != nil {
		return fmt.Errorf("encoding reasons: %w", err)
	}
	var locationName, gps string
	if rec.Location != nil {
		locationName = rec.Location.Name
		gps = rec.Location.GPS
	}
	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO incidents
		(key, id, name, type, summary, description, url, datetime,
		 location_name, gps, score, reasons, low_confidence, timestamp, is_mocked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Key, string(rec.ID), rec.Name, rec.Type, rec.Summary, rec.Description,
		rec.URL, rec.Datetime, locationName, gps, rec.Integrity.Score,
		string(reasonsJSON), boolToInt(rec.Integrity.IsLowConfidence),
		rec.Timestamp, boolToInt(rec.IsMockedData))
	if err != nil {
		return fmt.Errorf("writing incident: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

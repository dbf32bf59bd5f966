package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"tickermark/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ SettingsStore = (*SQLiteStore)(nil)
var _ AlertStore = (*SQLiteStore)(nil)

const (
	keyAutoDetect = "auto_detect_enabled"
	keyHighlight  = "highlight_enabled"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS alert_requests (
		id         TEXT PRIMARY KEY,
		symbol     TEXT NOT NULL,
		status     TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alert_requests_status
		ON alert_requests (status, created_at)`,
}

// SQLiteStore implements SettingsStore and AlertStore backed by a SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection keeps writes serialized and lets :memory: work.
	db.SetMaxOpenConns(1)

	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating %s: %w", dbPath, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// SettingsStore implementation
// ---------------------------------------------------------------------------

// GetSettings reads the toggles. Missing keys keep their defaults.
func (s *SQLiteStore) GetSettings(ctx context.Context) (domain.Settings, error) {
	settings := domain.DefaultSettings()
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return settings, fmt.Errorf("querying settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return settings, fmt.Errorf("scanning settings: %w", err)
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			continue
		}
		switch key {
		case keyAutoDetect:
			settings.AutoDetectEnabled = b
		case keyHighlight:
			settings.HighlightEnabled = b
		}
	}
	return settings, rows.Err()
}

// SaveSettings upserts both toggles in one transaction.
func (s *SQLiteStore) SaveSettings(ctx context.Context, settings domain.Settings) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const upsert = `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	for key, val := range map[string]bool{
		keyAutoDetect: settings.AutoDetectEnabled,
		keyHighlight:  settings.HighlightEnabled,
	} {
		if _, err := tx.ExecContext(ctx, upsert, key, strconv.FormatBool(val)); err != nil {
			return fmt.Errorf("saving %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// ---------------------------------------------------------------------------
// AlertStore implementation
// ---------------------------------------------------------------------------

// SaveAlertRequest inserts a new request.
func (s *SQLiteStore) SaveAlertRequest(ctx context.Context, req *domain.AlertRequest) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_requests (id, symbol, status, created_at) VALUES (?, ?, ?, ?)`,
		req.ID, req.Symbol, string(req.Status), req.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("inserting alert request %s: %w", req.ID, err)
	}
	return nil
}

// GetAlertRequest retrieves a single request by its ID.
func (s *SQLiteStore) GetAlertRequest(ctx context.Context, id string) (*domain.AlertRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, symbol, status, created_at FROM alert_requests WHERE id = ?`, id)
	req, err := scanAlertRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListAlertRequests returns requests with the given status, oldest first.
func (s *SQLiteStore) ListAlertRequests(ctx context.Context, status domain.AlertRequestStatus) ([]domain.AlertRequest, error) {
	q := `SELECT id, symbol, status, created_at FROM alert_requests`
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying alert requests: %w", err)
	}
	defer rows.Close()

	var out []domain.AlertRequest
	for rows.Next() {
		req, err := scanAlertRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// UpdateAlertRequestStatus changes the status of an existing request.
func (s *SQLiteStore) UpdateAlertRequestStatus(ctx context.Context, id string, status domain.AlertRequestStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE alert_requests SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("updating alert request %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlertRequest(r rowScanner) (domain.AlertRequest, error) {
	var (
		req       domain.AlertRequest
		status    string
		createdMs int64
	)
	if err := r.Scan(&req.ID, &req.Symbol, &status, &createdMs); err != nil {
		return req, err
	}
	req.Status = domain.AlertRequestStatus(status)
	req.CreatedAt = time.UnixMilli(createdMs).UTC()
	return req, nil
}

// Package db provides persistence for vibegraph on SQLite or
// PostgreSQL through a shared driver abstraction.
//
// Entity stores live alongside the Store type: tasks, task
// dependencies, dependency genres, GitHub project links, issue
// mappings, and task properties. All IDs are UUIDs stored as text;
// timestamps are stored as RFC 3339 UTC with nanosecond precision.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vibegraph/vibegraph/internal/db/driver"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Store wraps a database connection and exposes the entity stores.
type Store struct {
	drv    driver.Driver
	logger *slog.Logger
}

// Open opens a database for the given configuration and applies pending
// migrations.
func Open(cfg driver.Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	drv, err := driver.New(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	if err := drv.Open(cfg.DSN); err != nil {
		return nil, err
	}

	if err := drv.Migrate(context.Background(), schemaFS, "project"); err != nil {
		drv.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{drv: drv, logger: logger}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// Driver returns the underlying driver for advanced operations.
func (s *Store) Driver() driver.Driver {
	return s.drv
}

// exec rebinds placeholders for the active dialect and executes.
func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.drv.Exec(ctx, s.drv.Rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.drv.Query(ctx, s.drv.Rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.drv.QueryRow(ctx, s.drv.Rebind(query), args...)
}

// --- column conversion helpers ---

// timeFormat keeps sub-second precision and round-trips through TEXT
// columns in both dialects.
const timeFormat = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		// Older rows may lack sub-second precision.
		t, err = time.Parse(time.RFC3339, s)
	}
	return t, err
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTimeCol(s string, dest *time.Time) error {
	t, err := parseTime(s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	*dest = t
	return nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", ns.String, err)
	}
	return &t, nil
}

func parseUUIDCol(s string, dest *uuid.UUID) error {
	id, err := uuid.Parse(s)
	if err != nil {
		return fmt.Errorf("parse uuid %q: %w", s, err)
	}
	*dest = id
	return nil
}

func parseNullUUID(ns sql.NullString) (*uuid.UUID, error) {
	if !ns.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(ns.String)
	if err != nil {
		return nil, fmt.Errorf("parse uuid %q: %w", ns.String, err)
	}
	return &id, nil
}

func uuidPtrToCol(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func boolToCol(b bool) int {
	if b {
		return 1
	}
	return 0
}

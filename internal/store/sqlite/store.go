// Package sqlite implements the store interface on SQLite.
package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/bakesight/bakesight-server/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store provides SQLite-backed persistence for the BakeSight server.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	searchIndexer store.SearchIndexer
}

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and runs schema migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	// Configure pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	// Run schema migration.
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Store{
		db:            db,
		logger:        logger,
		searchIndexer: store.NewNoopSearchIndexer(),
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetSearchIndexer sets the indexer used for maintaining the item search index.
func (s *Store) SetSearchIndexer(indexer store.SearchIndexer) {
	s.searchIndexer = indexer
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a RFC3339Nano string back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// formatDate formats a date column value (YYYY-MM-DD).
func formatDate(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// parseDate parses a date column value back to a UTC midnight time.
func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, time.UTC)
}

// nullFloat returns a sql.NullFloat64 from a *float64.
func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// floatPtr returns a *float64 from a sql.NullFloat64.
func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

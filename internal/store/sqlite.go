package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
//
// Each list lives as a JSON array under a fixed key in the kv table.
// Mutations are read-modify-write; all access is single-threaded per
// process and a concurrent process wins by last write. That mirrors the
// website's local-storage semantics and is an accepted limitation.
type SQLiteStore struct {
	db        *sql.DB
	closeOnce sync.Once
	closeErr  error

	// now is overridable in tests.
	now func() time.Time
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// DefaultDBPath returns the default database path (~/.local/share/grazer/searches.db
// on XDG systems).
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "grazer", "searches.db"), nil
}

// NewSQLiteStore creates a new SQLiteStore with the given database path.
// If the path is empty, it uses the default path.
// The database is opened with WAL mode enabled.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		var err error
		dbPath, err = DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}

	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// modernc.org/sqlite uses _pragma=name(value) syntax
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite handles concurrency better with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLiteStore{
		db:  db,
		now: time.Now,
	}

	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
// It is safe to call Close multiple times.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			s.closeErr = s.db.Close()
		}
	})
	return s.closeErr
}

// migrate runs database migrations to ensure the schema is up to date.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	currentVersion := 0
	row := s.db.QueryRowContext(ctx, `
		SELECT version FROM schema_meta ORDER BY version DESC LIMIT 1
	`)
	if err := row.Scan(&currentVersion); err != nil {
		if err == sql.ErrNoRows || isTableNotFoundError(err) {
			currentVersion = 0
		} else {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{version: 1, sql: migrationV1},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		if _, err := s.db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("migration v%d failed: %w", m.version, err)
		}

		_, err := s.db.ExecContext(ctx, `
			INSERT OR REPLACE INTO schema_meta (version, applied_at_unix_ms)
			VALUES (?, ?)
		`, m.version, time.Now().UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// isTableNotFoundError checks if the error indicates a missing table.
func isTableNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "no such table")
}

// migrationV1 creates the initial schema.
const migrationV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_meta (
  version INTEGER PRIMARY KEY,
  applied_at_unix_ms INTEGER NOT NULL
);

-- Fixed-key JSON documents (search history, saved searches)
CREATE TABLE IF NOT EXISTS kv (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at_unix_ms INTEGER NOT NULL
);
`

// readList reads the JSON array stored under key into dst.
// A missing key or unparseable value leaves dst untouched and returns nil;
// stored state never poisons a read.
func (s *SQLiteStore) readList(ctx context.Context, key string, dst any) error {
	var raw string
	row := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key)
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		// Corrupt value; treat as empty rather than failing the caller.
		return nil
	}
	return nil
}

// writeList persists v as the JSON array stored under key.
func (s *SQLiteStore) writeList(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO kv (key, value, updated_at_unix_ms)
		VALUES (?, ?, ?)
	`, key, string(raw), s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// LoadHistory returns history entries most-recent-first.
func (s *SQLiteStore) LoadHistory(ctx context.Context) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	if err := s.readList(ctx, KeyHistory, &entries); err != nil {
		return nil, err
	}
	if len(entries) > MaxHistoryEntries {
		entries = entries[:MaxHistoryEntries]
	}
	return entries, nil
}

// AddHistoryEntry records a committed search, deduplicating by
// case-insensitive term and truncating to MaxHistoryEntries.
func (s *SQLiteStore) AddHistoryEntry(ctx context.Context, searchTerm string, filters map[string]string) (HistoryEntry, error) {
	existing, err := s.LoadHistory(ctx)
	if err != nil {
		return HistoryEntry{}, err
	}

	now := s.now()
	entry := HistoryEntry{
		ID:         now.UnixMilli(),
		SearchTerm: searchTerm,
		Filters:    filters,
		Timestamp:  now.UTC().Format(time.RFC3339),
	}
	if entry.Filters == nil {
		entry.Filters = map[string]string{}
	}

	// Drop the older duplicate, newest occurrence wins.
	kept := make([]HistoryEntry, 0, len(existing)+1)
	kept = append(kept, entry)
	for _, e := range existing {
		if strings.EqualFold(e.SearchTerm, searchTerm) {
			continue
		}
		kept = append(kept, e)
	}

	if len(kept) > MaxHistoryEntries {
		kept = kept[:MaxHistoryEntries]
	}

	if err := s.writeList(ctx, KeyHistory, kept); err != nil {
		return HistoryEntry{}, err
	}
	return entry, nil
}

// RemoveHistoryEntry deletes the entry with the given id.
func (s *SQLiteStore) RemoveHistoryEntry(ctx context.Context, id int64) error {
	existing, err := s.LoadHistory(ctx)
	if err != nil {
		return err
	}

	kept := existing[:0]
	for _, e := range existing {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	return s.writeList(ctx, KeyHistory, kept)
}

// ClearHistory persists an empty history list.
func (s *SQLiteStore) ClearHistory(ctx context.Context) error {
	return s.writeList(ctx, KeyHistory, []HistoryEntry{})
}

// LoadSaved returns saved searches most-recent-first.
func (s *SQLiteStore) LoadSaved(ctx context.Context) ([]SavedSearchEntry, error) {
	var entries []SavedSearchEntry
	if err := s.readList(ctx, KeySaved, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SaveFromHistory prepends a saved copy of the given history entry.
// Saved searches are not capped and not deduplicated.
func (s *SQLiteStore) SaveFromHistory(ctx context.Context, entry HistoryEntry) (SavedSearchEntry, error) {
	existing, err := s.LoadSaved(ctx)
	if err != nil {
		return SavedSearchEntry{}, err
	}

	saved := SavedSearchEntry{
		HistoryEntry: entry,
		SavedAt:      s.now().UTC().Format(time.RFC3339),
		Name:         displayName(entry),
	}

	kept := make([]SavedSearchEntry, 0, len(existing)+1)
	kept = append(kept, saved)
	kept = append(kept, existing...)

	if err := s.writeList(ctx, KeySaved, kept); err != nil {
		return SavedSearchEntry{}, err
	}
	return saved, nil
}

// RemoveSaved deletes the saved search with the given id.
func (s *SQLiteStore) RemoveSaved(ctx context.Context, id int64) error {
	existing, err := s.LoadSaved(ctx)
	if err != nil {
		return err
	}

	kept := existing[:0]
	for _, e := range existing {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	return s.writeList(ctx, KeySaved, kept)
}

// ExportAll returns both lists plus an export timestamp.
func (s *SQLiteStore) ExportAll(ctx context.Context) (ExportPayload, error) {
	history, err := s.LoadHistory(ctx)
	if err != nil {
		return ExportPayload{}, err
	}
	saved, err := s.LoadSaved(ctx)
	if err != nil {
		return ExportPayload{}, err
	}
	if history == nil {
		history = []HistoryEntry{}
	}
	if saved == nil {
		saved = []SavedSearchEntry{}
	}

	return ExportPayload{
		SearchHistory: history,
		SavedSearches: saved,
		ExportedAt:    s.now().UTC().Format(time.RFC3339),
	}, nil
}

// displayName derives a saved-search label from the entry.
func displayName(entry HistoryEntry) string {
	term := strings.TrimSpace(entry.SearchTerm)
	if term == "" {
		return "Untitled search"
	}
	return term
}

// Package store provides durable local storage for search history and
// saved searches.
package store

import "context"

// Fixed storage keys. History and saved searches persist as JSON arrays
// under these keys, matching the website's local storage layout.
const (
	KeyHistory = "searchHistory"
	KeySaved   = "savedSearches"
)

// MaxHistoryEntries caps the recent-search list. Oldest entries are
// evicted first.
const MaxHistoryEntries = 20

// HistoryEntry is a record of a previously committed search.
type HistoryEntry struct {
	ID         int64             `json:"id"` // Creation time in epoch millis
	SearchTerm string            `json:"searchTerm"`
	Filters    map[string]string `json:"filters"`
	Timestamp  string            `json:"timestamp"` // ISO-8601
}

// SavedSearchEntry is a history entry the user explicitly kept.
// Saved searches are not capped and not deduplicated against history.
type SavedSearchEntry struct {
	HistoryEntry
	SavedAt string `json:"savedAt"` // ISO-8601
	Name    string `json:"name"`
}

// ExportPayload is the document written by ExportAll.
type ExportPayload struct {
	SearchHistory []HistoryEntry     `json:"searchHistory"`
	SavedSearches []SavedSearchEntry `json:"savedSearches"`
	ExportedAt    string             `json:"exportedAt"`
}

// Store is the storage-service abstraction shared by the search input and
// the history panel. All mutations persist before returning.
type Store interface {
	// LoadHistory returns history entries most-recent-first, at most
	// MaxHistoryEntries. Empty or unparseable storage loads as an empty list.
	LoadHistory(ctx context.Context) ([]HistoryEntry, error)

	// AddHistoryEntry records a committed search. Any existing entry with
	// the same case-insensitive term is removed first; the new entry is
	// prepended and the list truncated to MaxHistoryEntries.
	AddHistoryEntry(ctx context.Context, searchTerm string, filters map[string]string) (HistoryEntry, error)

	// RemoveHistoryEntry deletes the entry with the given id, if present.
	RemoveHistoryEntry(ctx context.Context, id int64) error

	// ClearHistory persists an empty history list.
	ClearHistory(ctx context.Context) error

	// LoadSaved returns saved searches most-recent-first.
	LoadSaved(ctx context.Context) ([]SavedSearchEntry, error)

	// SaveFromHistory wraps a history entry with a savedAt stamp and a
	// display name and prepends it to the saved list.
	SaveFromHistory(ctx context.Context, entry HistoryEntry) (SavedSearchEntry, error)

	// RemoveSaved deletes the saved search with the given id, if present.
	RemoveSaved(ctx context.Context, id int64) error

	// ExportAll returns both lists plus an export timestamp.
	ExportAll(ctx context.Context) (ExportPayload, error)

	Close() error
}

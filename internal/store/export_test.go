package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteExport(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	entry, err := st.AddHistoryEntry(ctx, "silage", map[string]string{"type": "article"})
	if err != nil {
		t.Fatalf("AddHistoryEntry() error = %v", err)
	}
	if _, err := st.SaveFromHistory(ctx, entry); err != nil {
		t.Fatalf("SaveFromHistory() error = %v", err)
	}

	dir := filepath.Join(t.TempDir(), "exports")
	path, err := WriteExport(ctx, st, dir)
	if err != nil {
		t.Fatalf("WriteExport() error = %v", err)
	}

	name := filepath.Base(path)
	if !strings.HasPrefix(name, "grazer-searches-") || !strings.HasSuffix(name, ".json") {
		t.Errorf("Unexpected export file name: %s", name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read export file: %v", err)
	}

	var payload ExportPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("Export file is not valid JSON: %v", err)
	}
	if len(payload.SearchHistory) != 1 || payload.SearchHistory[0].SearchTerm != "silage" {
		t.Errorf("Unexpected history in export: %+v", payload.SearchHistory)
	}
	if len(payload.SavedSearches) != 1 {
		t.Errorf("Expected 1 saved search in export, got %d", len(payload.SavedSearches))
	}
	if payload.ExportedAt == "" {
		t.Error("Expected exportedAt to be set")
	}
}

func TestWriteExport_EmptyStore(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)

	path, err := WriteExport(context.Background(), st, t.TempDir())
	if err != nil {
		t.Fatalf("WriteExport() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read export file: %v", err)
	}
	// Empty lists must serialize as [], not null.
	if !strings.Contains(string(data), `"searchHistory": []`) {
		t.Errorf("Expected empty searchHistory array, got:\n%s", data)
	}
	if !strings.Contains(string(data), `"savedSearches": []`) {
		t.Errorf("Expected empty savedSearches array, got:\n%s", data)
	}
}

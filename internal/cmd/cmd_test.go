package cmd

import (
	"testing"
	"time"
)

func TestHistoryIndex(t *testing.T) {
	tests := []struct {
		arg     string
		length  int
		want    int
		wantErr bool
	}{
		{"1", 3, 0, false},
		{"3", 3, 2, false},
		{"4", 3, 0, true},
		{"0", 3, 0, true},
		{"-1", 3, 0, true},
		{"abc", 3, 0, true},
		{"1", 0, 0, true},
	}

	for _, tt := range tests {
		got, err := historyIndex(tt.arg, tt.length)
		if tt.wantErr {
			if err == nil {
				t.Errorf("historyIndex(%q, %d) expected error", tt.arg, tt.length)
			}
			continue
		}
		if err != nil {
			t.Errorf("historyIndex(%q, %d) error = %v", tt.arg, tt.length, err)
			continue
		}
		if got != tt.want {
			t.Errorf("historyIndex(%q, %d) = %d, want %d", tt.arg, tt.length, got, tt.want)
		}
	}
}

func TestHistoryAge(t *testing.T) {
	ref := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{10 * time.Minute, "10m ago"},
		{2 * time.Hour, "2h ago"},
		{3 * 24 * time.Hour, "3d ago"},
	}

	for _, tt := range tests {
		if got := historyAge(tt.d, ref.Add(-tt.d)); got != tt.want {
			t.Errorf("historyAge(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}

	old := ref.Add(-30 * 24 * time.Hour)
	if got := historyAge(30*24*time.Hour, old); got != old.Local().Format("Jan 2, 2006") {
		t.Errorf("historyAge(30d) = %q, want calendar date", got)
	}
}

func TestSearchFilters(t *testing.T) {
	searchType = "article"
	searchSort = "date"
	searchTags = "organic,pasture"
	searchFrom = "2026-01-01"
	searchTo = ""
	searchFuzzy = true
	t.Cleanup(func() {
		searchType, searchSort, searchTags, searchFrom, searchTo = "", "", "", "", ""
		searchFuzzy = false
	})

	filters := searchFilters()

	if filters["type"] != "article" {
		t.Errorf("type filter = %q", filters["type"])
	}
	if filters["sort"] != "date" {
		t.Errorf("sort filter = %q", filters["sort"])
	}
	if filters["tags"] != "organic,pasture" {
		t.Errorf("tags filter = %q", filters["tags"])
	}
	if filters["dateStart"] != "2026-01-01" {
		t.Errorf("dateStart filter = %q", filters["dateStart"])
	}
	if _, ok := filters["dateEnd"]; ok {
		t.Error("empty dateEnd should not be present")
	}
	if filters["fuzzy"] != "true" {
		t.Errorf("fuzzy filter = %q", filters["fuzzy"])
	}
}

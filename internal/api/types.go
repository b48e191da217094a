// Package api provides the HTTP client for the content API's search
// endpoints: suggestions, results, and analytics tracking.
package api

import (
	"bytes"
	"encoding/json"
)

// SuggestionType classifies a suggestion. It is a closed set; unknown wire
// values decode as SuggestionGeneric so the rendering table stays total.
type SuggestionType string

const (
	SuggestionRecent  SuggestionType = "recent"
	SuggestionPopular SuggestionType = "popular"
	SuggestionTag     SuggestionType = "tag"
	SuggestionGeneric SuggestionType = "generic"
)

// UnmarshalJSON normalizes unknown suggestion types to generic.
func (t *SuggestionType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*t = SuggestionGeneric
		return nil
	}
	switch SuggestionType(raw) {
	case SuggestionRecent, SuggestionPopular, SuggestionTag, SuggestionGeneric:
		*t = SuggestionType(raw)
	default:
		*t = SuggestionGeneric
	}
	return nil
}

// Suggestion is a candidate completion for a partial query.
type Suggestion struct {
	Text        string         `json:"text"`
	Type        SuggestionType `json:"type"`
	ContentType string         `json:"contentType,omitempty"`
	SearchCount int            `json:"searchCount,omitempty"`
}

// AnalyticsAction tags how a search was committed.
type AnalyticsAction string

const (
	ActionManualSearch    AnalyticsAction = "manual_search"
	ActionSuggestionClick AnalyticsAction = "suggestion_click"
	ActionHistorySearch   AnalyticsAction = "history_search"
)

// SearchParams are the query parameters for the results endpoint.
type SearchParams struct {
	Query        string
	ContentTypes []string
	Page         int
	Limit        int
	SortBy       string
	DateStart    string
	DateEnd      string
	Tags         []string
	MinViews     int
	Fuzzy        bool
}

// Result is a single search hit. Excerpt may carry inline <mark> runs when
// the server highlighted the match.
type Result struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	ContentType string   `json:"contentType"`
	Excerpt     string   `json:"excerpt"`
	Content     string   `json:"content,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Views       int      `json:"views"`
	PublishedAt string   `json:"publishedAt,omitempty"`
}

// Pagination describes the result window.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

// SearchMeta carries query diagnostics from the server.
type SearchMeta struct {
	Query  string `json:"query"`
	TookMs int    `json:"tookMs"`
	Fuzzy  bool   `json:"fuzzy"`
}

// SearchData is the payload of a results response.
type SearchData struct {
	Results           []Result       `json:"results"`
	Pagination        Pagination     `json:"pagination"`
	SearchMeta        SearchMeta     `json:"searchMeta"`
	ContentTypeCounts map[string]int `json:"contentTypeCounts"`
	AvailableTags     []string       `json:"availableTags"`
}

// envelope is the API's common response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// suggestionsData is the data section of a suggestions response.
type suggestionsData struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// trackRequest is the analytics event body.
type trackRequest struct {
	SearchTerm string          `json:"searchTerm"`
	Action     AnalyticsAction `json:"action"`
	Timestamp  string          `json:"timestamp"`
	SessionID  string          `json:"sessionId,omitempty"`
}

func (r trackRequest) reader() (*bytes.Reader, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// suggestQueryMin is the minimum query length before a suggestion request
// is issued. Shorter queries never reach the network.
const suggestQueryMin = 2

// Client talks to the content API's search endpoints.
type Client struct {
	baseURL      string
	httpc        *http.Client
	logger       *slog.Logger
	suggestLimit int

	// sessionID groups this process's analytics events server-side.
	sessionID string
}

// Options configures a Client.
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	SuggestLimit int
	Logger       *slog.Logger
}

// NewClient creates a search API client.
func NewClient(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.SuggestLimit <= 0 {
		opts.SuggestLimit = 8
	}
	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		httpc:        &http.Client{Timeout: opts.Timeout},
		logger:       opts.Logger,
		suggestLimit: opts.SuggestLimit,
		sessionID:    uuid.NewString(),
	}
}

// Suggestions fetches ranked completions for a partial query.
//
// It never returns an error: network failures, malformed envelopes, and
// success=false responses all degrade to an empty list with a log entry.
// Queries shorter than two runes are skipped entirely.
func (c *Client) Suggestions(ctx context.Context, query string) []Suggestion {
	if len([]rune(query)) < suggestQueryMin {
		return nil
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(c.suggestLimit))
	endpoint := c.baseURL + "/api/search/suggestions?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Warn("suggestion request build failed", "error", err)
		return nil
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Warn("suggestion fetch failed", "query", query, "error", err)
		return nil
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		c.logger.Warn("suggestion response malformed", "query", query, "error", err)
		return nil
	}
	if !env.Success || env.Data == nil {
		c.logger.Warn("suggestion response unsuccessful", "query", query, "message", env.Message)
		return nil
	}

	var data suggestionsData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		c.logger.Warn("suggestion payload malformed", "query", query, "error", err)
		return nil
	}

	return data.Suggestions
}

// Search issues one paginated request to the results endpoint.
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchData, error) {
	q := url.Values{}
	q.Set("query", params.Query)
	q.Set("highlight", "true")
	if len(params.ContentTypes) > 0 {
		q.Set("contentTypes", strings.Join(params.ContentTypes, ","))
	}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.SortBy != "" {
		q.Set("sortBy", params.SortBy)
	}
	if params.DateStart != "" {
		q.Set("dateStart", params.DateStart)
	}
	if params.DateEnd != "" {
		q.Set("dateEnd", params.DateEnd)
	}
	if len(params.Tags) > 0 {
		q.Set("tags", strings.Join(params.Tags, ","))
	}
	if params.MinViews > 0 {
		q.Set("minViews", strconv.Itoa(params.MinViews))
	}
	if params.Fuzzy {
		q.Set("fuzzy", "true")
	}
	endpoint := c.baseURL + "/api/search/all?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("search request build failed: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search fetch failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("search response malformed: %w", err)
	}
	if !env.Success || env.Data == nil {
		if env.Message != "" {
			return nil, fmt.Errorf("search rejected: %s", env.Message)
		}
		return nil, fmt.Errorf("search rejected by server")
	}

	var data SearchData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("search payload malformed: %w", err)
	}

	return &data, nil
}

// TrackSearch posts a search analytics event. It is fire-and-forget: the
// response body is discarded and failures are only logged. Callers run it
// off the UI path.
func (c *Client) TrackSearch(ctx context.Context, term string, action AnalyticsAction) {
	body, err := trackRequest{
		SearchTerm: term,
		Action:     action,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		SessionID:  c.sessionID,
	}.reader()
	if err != nil {
		c.logger.Debug("analytics encode failed", "error", err)
		return
	}

	endpoint := c.baseURL + "/api/search/analytics/track"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		c.logger.Debug("analytics request build failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Debug("analytics post failed", "action", action, "error", err)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

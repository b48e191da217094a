package searchui

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grazerhq/grazer/internal/api"
	"github.com/grazerhq/grazer/internal/config"
	"github.com/grazerhq/grazer/internal/store"
)

// --- Test fixtures ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	// Keep commits off the network unless a test opts in.
	cfg.API.AnalyticsEnabled = false
	return cfg
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// newTestModel builds a model against the given server (or an unreachable
// client when srv is nil, for tests that never run fetch commands).
func newTestModel(t *testing.T, srv *httptest.Server) Model {
	t.Helper()

	baseURL := "http://127.0.0.1:0"
	if srv != nil {
		baseURL = srv.URL
	}
	cfg := testConfig()
	client := api.NewClient(api.Options{
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
		Logger:  testLogger(),
	})

	m := New(Options{
		Config:    cfg,
		Client:    client,
		Store:     newTestStore(t),
		Logger:    testLogger(),
		ExportDir: t.TempDir(),
	})
	m.width = 80
	m.height = 24
	return m
}

func suggestionServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// runCmd executes a tea.Cmd synchronously and returns the resulting message.
func runCmd(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

// applyMsgs feeds each message into the model and returns the final state.
func applyMsgs(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		result, _ := m.Update(msg)
		m = result.(Model)
	}
	return m
}

// pressKey sends one key through Update.
func pressKey(t *testing.T, m Model, key tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	result, cmd := m.Update(key)
	return result.(Model), cmd
}

// typeRunes feeds text into the input as keystrokes.
func typeRunes(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, r := range text {
		m, cmd = pressKey(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m, cmd
}

func testSuggestions(texts ...string) []api.Suggestion {
	items := make([]api.Suggestion, len(texts))
	for i, s := range texts {
		items[i] = api.Suggestion{Text: s, Type: api.SuggestionGeneric}
	}
	return items
}

// --- Input and debounce ---

func TestInitialState(t *testing.T) {
	m := newTestModel(t, nil)

	assert.Equal(t, focusInput, m.focus)
	assert.Equal(t, -1, m.activeIndex)
	assert.False(t, m.showSuggestions)
	assert.Equal(t, uint64(0), m.debounceID)
}

func TestTyping_SchedulesDebounce(t *testing.T) {
	m := newTestModel(t, nil)

	m, cmd := typeRunes(t, m, "ca")

	assert.Equal(t, "ca", m.input.Value())
	assert.NotNil(t, cmd)

	// Each further keystroke replaces the pending timer.
	before := m.debounceID
	m, _ = typeRunes(t, m, "t")
	assert.Equal(t, before+1, m.debounceID)
}

func TestTyping_BelowThresholdNoFetch(t *testing.T) {
	m := newTestModel(t, nil)

	m, _ = typeRunes(t, m, "c")

	assert.False(t, m.showSuggestions)
	assert.Empty(t, m.suggestions)
}

func TestDebounce_StaleTimerIgnored(t *testing.T) {
	m := newTestModel(t, nil)
	m, _ = typeRunes(t, m, "cat")

	before := m.suggestID
	staleID := m.debounceID - 1
	result, cmd := m.Update(debounceMsg{id: staleID})
	m = result.(Model)

	assert.Nil(t, cmd)
	assert.Equal(t, before, m.suggestID)
}

func TestDebounce_CurrentTimerFiresFetch(t *testing.T) {
	srv := suggestionServer(t, `{"success": true, "data": {"suggestions": [
		{"text": "cattle feed", "type": "popular"},
		{"text": "cattle breeds", "type": "recent"}
	]}}`)
	m := newTestModel(t, srv)
	m, _ = typeRunes(t, m, "cat")

	before := m.suggestID
	result, fetchCmd := m.Update(debounceMsg{id: m.debounceID})
	m = result.(Model)
	require.NotNil(t, fetchCmd)
	assert.Equal(t, before+1, m.suggestID)

	msg := runCmd(fetchCmd)
	sugg, ok := msg.(suggestionsMsg)
	require.True(t, ok)
	assert.Equal(t, m.suggestID, sugg.requestID)

	m = applyMsgs(t, m, sugg)
	assert.True(t, m.showSuggestions)
	assert.Len(t, m.suggestions, 2)
	assert.Equal(t, -1, m.activeIndex)
}

func TestSuggestions_StaleResponseDiscarded(t *testing.T) {
	m := newTestModel(t, nil)
	m.suggestID = 3
	m.suggestions = testSuggestions("old")
	m.showSuggestions = true

	m = applyMsgs(t, m, suggestionsMsg{requestID: 2, items: testSuggestions("stale", "data")})

	// The superseded response changes nothing.
	assert.Len(t, m.suggestions, 1)
	assert.Equal(t, "old", m.suggestions[0].Text)
}

func TestSuggestions_FreshResponseReplacesWholesale(t *testing.T) {
	m := newTestModel(t, nil)
	m.suggestID = 3
	m.suggestions = testSuggestions("old one", "old two")
	m.showSuggestions = true
	m.activeIndex = 1

	m = applyMsgs(t, m, suggestionsMsg{requestID: 3, items: testSuggestions("new")})

	assert.Len(t, m.suggestions, 1)
	assert.Equal(t, "new", m.suggestions[0].Text)
	// Selection resets whenever the list changes.
	assert.Equal(t, -1, m.activeIndex)
}

func TestSuggestions_EmptyResultHidesDropdown(t *testing.T) {
	m := newTestModel(t, nil)
	m.suggestID = 1
	m.suggestions = testSuggestions("old")
	m.showSuggestions = true

	m = applyMsgs(t, m, suggestionsMsg{requestID: 1, items: nil})

	assert.False(t, m.showSuggestions)
	assert.Empty(t, m.suggestions)
}

func TestShrinkBelowThreshold_ClearsImmediately(t *testing.T) {
	m := newTestModel(t, nil)
	m, _ = typeRunes(t, m, "ca")
	m.suggestions = testSuggestions("cattle")
	m.showSuggestions = true
	debounceBefore := m.debounceID
	suggestBefore := m.suggestID

	m, _ = pressKey(t, m, tea.KeyMsg{Type: tea.KeyBackspace})

	assert.Equal(t, "c", m.input.Value())
	assert.False(t, m.showSuggestions)
	assert.Empty(t, m.suggestions)
	// Pending timers and in-flight fetches are invalidated, not raced.
	assert.Greater(t, m.debounceID, debounceBefore)
	assert.Greater(t, m.suggestID, suggestBefore)
}

// --- Keyboard navigation ---

func TestArrowDown_ClampsAtLastSuggestion(t *testing.T) {
	m := newTestModel(t, nil)
	m.suggestions = testSuggestions("a", "b", "c")
	m.showSuggestions = true

	for i := 0; i < 5; i++ {
		m, _ = pressKey(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, 2, m.activeIndex)
}

func TestArrowUp_ClampsAtNone(t *testing.T) {
	m := newTestModel(t, nil)
	m.suggestions = testSuggestions("a", "b")
	m.showSuggestions = true
	m.activeIndex = 1

	for i := 0; i < 4; i++ {
		m, _ = pressKey(t, m, tea.KeyMsg{Type: tea.KeyUp})
	}
	// -1 means "no suggestion selected", one step above the first row.
	assert.Equal(t, -1, m.activeIndex)
}

func TestArrows_NoopWithoutSuggestions(t *testing.T) {
	m := newTestModel(t, nil)

	m, _ = pressKey(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, -1, m.activeIndex)
}

func TestEscape_HidesSuggestionsKeepsQuery(t *testing.T) {
	m := newTestModel(t, nil)
	m, _ = typeRunes(t, m, "cat")
	m.suggestions = testSuggestions("cattle")
	m.showSuggestions = true
	m.activeIndex = 0

	m, cmd := pressKey(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, m.showSuggestions)
	assert.Equal(t, -1, m.activeIndex)
	assert.Equal(t, "cat", m.input.Value())
	assert.Nil(t, cmd)
}

func TestEscape_QuitsWhenNoSuggestions(t *testing.T) {
	m := newTestModel(t, nil)

	_, cmd := pressKey(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), runCmd(cmd))
}

func TestCtrlU_ClearsInputAndSuggestions(t *testing.T) {
	m := newTestModel(t, nil)
	m, _ = typeRunes(t, m, "cattle")
	m.suggestions = testSuggestions("cattle feed")
	m.showSuggestions = true

	m, _ = pressKey(t, m, tea.KeyMsg{Type: tea.KeyCtrlU})

	assert.Empty(t, m.input.Value())
	assert.False(t, m.showSuggestions)
	assert.Empty(t, m.suggestions)
}

// --- Commit semantics ---

func TestEnter_NoSelectionCommitsTypedText(t *testing.T) {
	m := newTestModel(t, nil)
	m, _ = typeRunes(t, m, "cattle feed")
	m.suggestions = testSuggestions("cattle breeds")
	m.showSuggestions = true // activeIndex stays -1

	m, cmd := pressKey(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, "cattle feed", m.committed)
	assert.Equal(t, focusResults, m.focus)
	assert.False(t, m.showSuggestions)
	assert.True(t, m.isLoading)
	assert.Equal(t, 1, m.page)
	assert.NotNil(t, cmd)
}

func TestEnter_SelectionCommitsSuggestion(t *testing.T) {
	m := newTestModel(t, nil)
	m, _ = typeRunes(t, m, "cat")
	m.suggestions = testSuggestions("cattle feed", "cattle breeds")
	m.showSuggestions = true
	m.activeIndex = 1

	m, _ = pressKey(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, "cattle breeds", m.committed)
	// The input reflects the committed suggestion, not the typed prefix.
	assert.Equal(t, "cattle breeds", m.input.Value())
}

func TestCommit_EmptyQueryIsNoop(t *testing.T) {
	m := newTestModel(t, nil)

	m, cmd := pressKey(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.committed)
	assert.Nil(t, cmd)

	m, _ = typeRunes(t, m, "   ")
	m, cmd = pressKey(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.committed)
	assert.Nil(t, cmd)
}

func TestCommit_TrimsWhitespace(t *testing.T) {
	m := newTestModel(t, nil)
	m, _ = typeRunes(t, m, "  hay storage  ")

	m, _ = pressKey(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, "hay storage", m.committed)
}

func TestCommit_WritesHistory(t *testing.T) {
	srv := suggestionServer(t, `{"success": true, "data": {"results": [], "pagination": {}}}`)
	m := newTestModel(t, srv)
	m, _ = typeRunes(t, m, "winter grazing")

	m, cmd := pressKey(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	// Drain the commit batch; one command acknowledges the history write.
	msg := runCmd(cmd)
	batch, ok := msg.(tea.BatchMsg)
	require.True(t, ok)
	sawWrite := false
	for _, sub := range batch {
		if _, ok := runCmd(sub).(historyWrittenMsg); ok {
			sawWrite = true
		}
	}
	assert.True(t, sawWrite)

	entries, err := m.store.LoadHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "winter grazing", entries[0].SearchTerm)
}

func TestCommit_StorageFailureDoesNotBlockSearch(t *testing.T) {
	m := newTestModel(t, nil)
	// A closed store makes every write fail.
	require.NoError(t, m.store.(*store.SQLiteStore).Close())
	m, _ = typeRunes(t, m, "cattle feed")

	m, cmd := pressKey(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	// The search still commits; the write failure surfaces only in logs.
	assert.Equal(t, "cattle feed", m.committed)
	require.NotNil(t, cmd)
	msg := runCmd(cmd)
	batch, ok := msg.(tea.BatchMsg)
	require.True(t, ok)
	sawWrite := false
	for _, sub := range batch {
		if _, ok := runCmd(sub).(historyWrittenMsg); ok {
			sawWrite = true
		}
	}
	assert.True(t, sawWrite)
}

func TestInitialQuery_CommitsOnInit(t *testing.T) {
	cfg := testConfig()
	client := api.NewClient(api.Options{BaseURL: "http://127.0.0.1:0", Logger: testLogger()})
	m := New(Options{
		Config:       cfg,
		Client:       client,
		Store:        newTestStore(t),
		Logger:       testLogger(),
		InitialQuery: "soil health",
	})

	require.NotNil(t, m.Init())
	m = applyMsgs(t, m, initMsg{})

	assert.Equal(t, "soil health", m.committed)
	assert.Equal(t, focusResults, m.focus)
}

// --- Results ---

func TestResults_StaleResponseDiscarded(t *testing.T) {
	m := newTestModel(t, nil)
	m.resultsID = 2
	m.results = &api.SearchData{SearchMeta: api.SearchMeta{Query: "current"}}

	m = applyMsgs(t, m, resultsMsg{requestID: 1, data: &api.SearchData{SearchMeta: api.SearchMeta{Query: "stale"}}})

	assert.Equal(t, "current", m.results.SearchMeta.Query)
}

func TestResults_ErrorDegradesInPlace(t *testing.T) {
	m := newTestModel(t, nil)
	m.resultsID = 1
	m.isLoading = true

	m = applyMsgs(t, m, resultsMsg{requestID: 1, err: assert.AnError})

	assert.False(t, m.isLoading)
	assert.Nil(t, m.results)
	assert.NotEmpty(t, m.resultsErr)
}

func TestResults_SuccessInstallsData(t *testing.T) {
	m := newTestModel(t, nil)
	m.resultsID = 1
	m.page = 2
	m.resultSel = 3

	data := &api.SearchData{
		Results:    []api.Result{{Title: "Winter grazing"}},
		Pagination: api.Pagination{Page: 2, TotalPages: 4},
	}
	m = applyMsgs(t, m, resultsMsg{requestID: 1, data: data})

	assert.Equal(t, data, m.results)
	assert.Empty(t, m.resultsErr)
	assert.Equal(t, 0, m.resultSel)
}

func TestResultsPaging(t *testing.T) {
	m := newTestModel(t, nil)
	m.focus = focusResults
	m.committed = "hay"
	m.page = 1
	m.results = &api.SearchData{
		Pagination: api.Pagination{Page: 1, TotalPages: 3, HasMore: true},
	}

	m, cmd := pressKey(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.Equal(t, 2, m.page)
	assert.NotNil(t, cmd)

	m, cmd = pressKey(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	assert.Equal(t, 1, m.page)
	assert.NotNil(t, cmd)

	// No previous page before the first.
	m, cmd = pressKey(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	assert.Equal(t, 1, m.page)
	assert.Nil(t, cmd)
}

func TestResultsPaging_StopsAtEnd(t *testing.T) {
	m := newTestModel(t, nil)
	m.focus = focusResults
	m.page = 3
	m.results = &api.SearchData{
		Pagination: api.Pagination{Page: 3, TotalPages: 3, HasMore: false},
	}

	m, cmd := pressKey(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.Equal(t, 3, m.page)
	assert.Nil(t, cmd)
}

func TestResults_SlashReturnsToInput(t *testing.T) {
	m := newTestModel(t, nil)
	m.focus = focusResults

	m, _ = pressKey(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})

	assert.Equal(t, focusInput, m.focus)
}

// --- View smoke tests ---

func TestView_RendersSuggestions(t *testing.T) {
	m := newTestModel(t, nil)
	m.suggestions = []api.Suggestion{
		{Text: "cattle feed", Type: api.SuggestionPopular, SearchCount: 42},
		{Text: "cattle breeds", Type: api.SuggestionRecent},
	}
	m.showSuggestions = true
	m.activeIndex = 0

	out := m.View()
	assert.Contains(t, out, "cattle feed")
	assert.Contains(t, out, "cattle breeds")
	assert.Contains(t, out, "42 searches")
}

func TestView_RendersResultsAndError(t *testing.T) {
	m := newTestModel(t, nil)
	m.committed = "hay"
	m.results = &api.SearchData{
		Results:    []api.Result{{Title: "Hay storage basics", ContentType: "guide", Excerpt: "store <mark>hay</mark> dry"}},
		Pagination: api.Pagination{Total: 1, TotalPages: 1},
	}

	out := m.View()
	assert.Contains(t, out, "Hay storage basics")
	assert.Contains(t, out, "store hay dry")
	assert.NotContains(t, out, "<mark>")

	m.results = nil
	m.resultsErr = "Search is unavailable right now."
	assert.Contains(t, m.View(), "unavailable")
}

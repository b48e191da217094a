// Package searchui implements the interactive search screen: a debounced
// suggestion dropdown over the query input, a paginated results view, and
// a history panel, all driven by one Bubble Tea model.
package searchui

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/grazerhq/grazer/internal/api"
	"github.com/grazerhq/grazer/internal/config"
	"github.com/grazerhq/grazer/internal/store"
)

// loadingFlash is how long the cosmetic loading flag stays on after a
// commit. It is a UI affordance, not tied to request completion.
const loadingFlash = 500 * time.Millisecond

// storeTimeout bounds local store calls issued from commands.
const storeTimeout = 2 * time.Second

// focusArea selects which part of the screen consumes keys.
type focusArea int

const (
	focusInput focusArea = iota
	focusResults
	focusHistory
)

// debounceMsg fires after the debounce timer expires.
type debounceMsg struct {
	id uint64 // Must match current debounceID to be accepted
}

// suggestionsMsg carries a resolved suggestion fetch.
type suggestionsMsg struct {
	requestID uint64
	items     []api.Suggestion
}

// resultsMsg carries a resolved results fetch.
type resultsMsg struct {
	requestID uint64
	data      *api.SearchData
	err       error
}

// clearLoadingMsg switches the cosmetic loading flag off.
type clearLoadingMsg struct{}

// historyLoadedMsg carries both store lists into the history panel,
// optionally with a status line from the mutation that triggered the
// reload.
type historyLoadedMsg struct {
	entries []store.HistoryEntry
	saved   []store.SavedSearchEntry
	status  string
	err     error
}

// statusMsg sets the footer status line.
type statusMsg struct {
	text string
}

// historyWrittenMsg acknowledges a background history write. Failures were
// already logged; the commit proceeded regardless.
type historyWrittenMsg struct{}

// initMsg triggers the initial-query commit through Update.
type initMsg struct{}

// Options configures a search Model.
type Options struct {
	Config *config.Config
	Client *api.Client
	Store  store.Store
	Logger *slog.Logger

	// InitialQuery, when set, is committed immediately on startup — the
	// terminal rendition of opening /search?q=... directly.
	InitialQuery string

	// Filters seeds the active filter set (type, sort, dateStart, dateEnd,
	// tags, fuzzy).
	Filters map[string]string

	// ExportDir is where export files are written.
	ExportDir string
}

// Model is the Bubble Tea model for the search screen.
type Model struct {
	cfg    *config.Config
	client *api.Client
	store  store.Store
	logger *slog.Logger

	input textinput.Model
	spin  spinner.Model
	pager paginator.Model

	focus focusArea

	// Suggestion state. The list is replaced wholesale on every fetch
	// resolution; activeIndex is -1 (none) or a valid index and resets
	// whenever the list or the input changes.
	suggestions     []api.Suggestion
	showSuggestions bool
	activeIndex     int
	isLoading       bool

	// debounceID tracks the latest debounce timer; only a matching
	// debounceMsg triggers a fetch.
	debounceID uint64

	// suggestID / resultsID are monotonic fetch generations for stale
	// response detection.
	suggestID  uint64
	resultsID  uint64
	lastTyped  string
	cancelSugg context.CancelFunc
	cancelRes  context.CancelFunc

	// Committed-query state.
	committed  string
	filters    map[string]string
	page       int
	results    *api.SearchData
	resultsErr string
	resultSel  int

	panel historyPanel

	initialQuery string
	exportDir    string
	status       string
	width        int
	height       int
}

// New creates a search Model.
func New(opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ti := textinput.New()
	ti.Placeholder = "Search articles, events, guides..."
	ti.Prompt = promptStyle.Render("? ")
	ti.Focus()
	if opts.InitialQuery != "" {
		ti.SetValue(opts.InitialQuery)
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	pg := paginator.New()
	pg.Type = paginator.Dots
	pg.PerPage = 1

	filters := map[string]string{}
	for k, v := range opts.Filters {
		if v != "" {
			filters[k] = v
		}
	}

	return Model{
		cfg:          opts.Config,
		client:       opts.Client,
		store:        opts.Store,
		logger:       opts.Logger,
		input:        ti,
		spin:         sp,
		pager:        pg,
		activeIndex:  -1,
		page:         1,
		filters:      filters,
		initialQuery: opts.InitialQuery,
		exportDir:    opts.ExportDir,
		panel:        newHistoryPanel(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.initialQuery != "" {
		return tea.Batch(textinput.Blink, func() tea.Msg { return initMsg{} })
	}
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case initMsg:
		return m.commit(m.initialQuery, api.ActionManualSearch)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case debounceMsg:
		return m.handleDebounce(msg)

	case suggestionsMsg:
		return m.handleSuggestions(msg)

	case resultsMsg:
		return m.handleResults(msg)

	case clearLoadingMsg:
		m.isLoading = false
		return m, nil

	case historyLoadedMsg:
		return m.handleHistoryLoaded(msg)

	case statusMsg:
		m.status = msg.text
		return m, nil

	case historyWrittenMsg:
		return m, nil

	case spinner.TickMsg:
		if !m.isLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKey routes keys by focus area.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Ctrl+C always quits.
	if msg.Type == tea.KeyCtrlC {
		m.cancelInflight()
		return m, tea.Quit
	}

	switch m.focus {
	case focusInput:
		return m.handleInputKey(msg)
	case focusResults:
		return m.handleResultsKey(msg)
	case focusHistory:
		return m.handlePanelKey(msg)
	}
	return m, nil
}

// handleInputKey implements the query input's keyboard semantics.
func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if m.showSuggestions {
			// Hide suggestions, keep the typed query.
			m.showSuggestions = false
			m.activeIndex = -1
			return m, nil
		}
		m.cancelInflight()
		return m, tea.Quit

	case tea.KeyDown:
		if m.showSuggestions && len(m.suggestions) > 0 {
			if m.activeIndex < len(m.suggestions)-1 {
				m.activeIndex++
			}
		}
		return m, nil

	case tea.KeyUp:
		if m.showSuggestions && len(m.suggestions) > 0 {
			if m.activeIndex > -1 {
				m.activeIndex--
			}
		}
		return m, nil

	case tea.KeyEnter:
		if m.showSuggestions && m.activeIndex >= 0 && m.activeIndex < len(m.suggestions) {
			// Committing a selected suggestion is equivalent to clicking it.
			return m.commit(m.suggestions[m.activeIndex].Text, api.ActionSuggestionClick)
		}
		return m.commit(m.input.Value(), api.ActionManualSearch)

	case tea.KeyCtrlU:
		return m.clearInput()

	case tea.KeyCtrlH:
		return m.openHistory()

	case tea.KeyTab:
		if m.results != nil {
			m.focus = focusResults
			m.showSuggestions = false
			m.activeIndex = -1
			return m, nil
		}
		return m, nil
	}

	// Everything else edits the text.
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		changeCmd := m.onInputChanged(m.input.Value())
		return m, tea.Batch(cmd, changeCmd)
	}
	return m, cmd
}

// onInputChanged resets selection and schedules (or suppresses) the
// debounced suggestion fetch.
func (m *Model) onInputChanged(value string) tea.Cmd {
	m.activeIndex = -1
	m.status = ""

	if len([]rune(value)) < m.cfg.Search.SuggestMinChars {
		// Too short: clear immediately, invalidate pending timers and any
		// in-flight fetch so a slow response cannot resurface.
		m.suggestions = nil
		m.showSuggestions = false
		m.debounceID++
		m.suggestID++
		m.cancelInflightSuggest()
		return nil
	}

	m.lastTyped = value
	return m.startDebounce()
}

// startDebounce increments the debounce counter and schedules the timer.
// Each keystroke replaces the pending timer rather than queueing one.
func (m *Model) startDebounce() tea.Cmd {
	m.debounceID++
	id := m.debounceID
	delay := time.Duration(m.cfg.Search.DebounceMs) * time.Millisecond
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return debounceMsg{id: id}
	})
}

// handleDebounce fires the suggestion fetch if the timer is still current.
func (m Model) handleDebounce(msg debounceMsg) (tea.Model, tea.Cmd) {
	if msg.id != m.debounceID {
		return m, nil // Stale debounce timer; ignore.
	}
	return m, m.startSuggestionFetch()
}

// startSuggestionFetch cancels any in-flight fetch, bumps the generation,
// and returns a command calling the suggestion endpoint.
func (m *Model) startSuggestionFetch() tea.Cmd {
	m.cancelInflightSuggest()
	m.suggestID++
	reqID := m.suggestID

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelSugg = cancel

	client := m.client
	query := m.lastTyped
	return func() tea.Msg {
		items := client.Suggestions(ctx, query)
		return suggestionsMsg{requestID: reqID, items: items}
	}
}

// handleSuggestions replaces the suggestion list wholesale, discarding
// stale generations.
func (m Model) handleSuggestions(msg suggestionsMsg) (tea.Model, tea.Cmd) {
	if msg.requestID != m.suggestID {
		return m, nil // A newer query superseded this response.
	}
	m.suggestions = msg.items
	m.activeIndex = -1
	m.showSuggestions = m.focus == focusInput && len(msg.items) > 0
	return m, nil
}

// commit finalizes a query: trims it, records history, fires analytics,
// and switches to the results view. Empty queries are a no-op.
func (m Model) commit(raw string, action api.AnalyticsAction) (tea.Model, tea.Cmd) {
	term := strings.TrimSpace(raw)
	if term == "" {
		return m, nil
	}

	m.showSuggestions = false
	m.activeIndex = -1
	m.suggestions = nil
	m.committed = term
	m.input.SetValue(term)
	m.input.CursorEnd()
	m.page = 1
	m.resultSel = 0
	m.resultsErr = ""
	m.isLoading = true
	m.focus = focusResults
	m.status = ""

	cmds := []tea.Cmd{
		m.writeHistoryCmd(term),
		m.fetchResultsCmd(),
		m.spin.Tick,
		tea.Tick(loadingFlash, func(time.Time) tea.Msg { return clearLoadingMsg{} }),
	}
	if m.cfg.API.AnalyticsEnabled {
		cmds = append(cmds, m.trackCmd(term, action))
	}
	return m, tea.Batch(cmds...)
}

// writeHistoryCmd records the committed search. A storage failure must not
// block the search itself, so errors are logged and swallowed here.
func (m *Model) writeHistoryCmd(term string) tea.Cmd {
	st := m.store
	logger := m.logger
	filters := make(map[string]string, len(m.filters))
	for k, v := range m.filters {
		filters[k] = v
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if _, err := st.AddHistoryEntry(ctx, term, filters); err != nil {
			logger.Warn("history write failed", "term", term, "error", err)
		}
		return historyWrittenMsg{}
	}
}

// trackCmd fires a search analytics event in the background.
func (m *Model) trackCmd(term string, action api.AnalyticsAction) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		client.TrackSearch(ctx, term, action)
		return nil
	}
}

// fetchResultsCmd issues one paginated request for the committed query.
func (m *Model) fetchResultsCmd() tea.Cmd {
	m.cancelInflightResults()
	m.resultsID++
	reqID := m.resultsID

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelRes = cancel

	client := m.client
	params := m.searchParams()
	return func() tea.Msg {
		data, err := client.Search(ctx, params)
		return resultsMsg{requestID: reqID, data: data, err: err}
	}
}

// searchParams assembles the request from the committed query, the active
// filters, and the current page.
func (m *Model) searchParams() api.SearchParams {
	params := api.SearchParams{
		Query:  m.committed,
		Page:   m.page,
		Limit:  m.cfg.Search.PageSize,
		SortBy: m.cfg.Search.DefaultSort,
		Fuzzy:  m.cfg.Search.Fuzzy,
	}
	if v := m.filters["type"]; v != "" {
		params.ContentTypes = strings.Split(v, ",")
	}
	if v := m.filters["sort"]; v != "" {
		params.SortBy = v
	}
	if v := m.filters["dateStart"]; v != "" {
		params.DateStart = v
	}
	if v := m.filters["dateEnd"]; v != "" {
		params.DateEnd = v
	}
	if v := m.filters["tags"]; v != "" {
		params.Tags = strings.Split(v, ",")
	}
	if v := m.filters["fuzzy"]; v == "true" {
		params.Fuzzy = true
	}
	return params
}

// handleResults applies a resolved results fetch, discarding stale
// generations.
func (m Model) handleResults(msg resultsMsg) (tea.Model, tea.Cmd) {
	if msg.requestID != m.resultsID {
		return m, nil
	}

	m.isLoading = false
	if msg.err != nil {
		// Degrade in place: the screen stays usable, nothing is fatal.
		m.logger.Warn("results fetch failed", "query", m.committed, "error", msg.err)
		m.results = nil
		m.resultsErr = "Search is unavailable right now. Press / to edit the query and retry."
		return m, nil
	}

	m.results = msg.data
	m.resultsErr = ""
	m.resultSel = 0
	if msg.data.Pagination.TotalPages > 0 {
		m.pager.SetTotalPages(msg.data.Pagination.TotalPages)
		m.pager.Page = m.page - 1
	}
	return m, nil
}

// clearInput resets the query box and all suggestion state, keeping focus
// on the input.
func (m Model) clearInput() (tea.Model, tea.Cmd) {
	m.input.SetValue("")
	m.suggestions = nil
	m.showSuggestions = false
	m.activeIndex = -1
	m.debounceID++
	m.suggestID++
	m.cancelInflightSuggest()
	m.input.Focus()
	return m, textinput.Blink
}

// cancelInflightSuggest cancels any in-progress suggestion fetch context.
func (m *Model) cancelInflightSuggest() {
	if m.cancelSugg != nil {
		m.cancelSugg()
		m.cancelSugg = nil
	}
}

// cancelInflightResults cancels any in-progress results fetch context.
func (m *Model) cancelInflightResults() {
	if m.cancelRes != nil {
		m.cancelRes()
		m.cancelRes = nil
	}
}

// cancelInflight cancels all outstanding fetches; used on quit so late
// responses are never processed.
func (m *Model) cancelInflight() {
	m.cancelInflightSuggest()
	m.cancelInflightResults()
	m.debounceID++
	m.suggestID++
	m.resultsID++
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.viewInputLine())
	b.WriteString("\n")

	switch {
	case m.focus == focusHistory:
		b.WriteString(m.viewHistoryPanel())
	case m.showSuggestions:
		b.WriteString(m.viewSuggestions())
	case m.committed != "":
		b.WriteString(m.viewResults())
	default:
		b.WriteString(dimStyle.Render("Type to search. Ctrl+H history, Esc quit."))
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.status))
	}

	return b.String()
}

// viewInputLine renders the query box plus the loading spinner.
func (m Model) viewInputLine() string {
	line := m.input.View()
	if m.isLoading {
		line += " " + m.spin.View()
	}
	return line
}

// viewSuggestions renders the dropdown with the selection marker and the
// per-type glyph.
func (m Model) viewSuggestions() string {
	var b strings.Builder
	for i, s := range m.suggestions {
		label := glyphFor(s.Type) + " " + sanitizeLine(s.Text)
		if s.Type == api.SuggestionPopular && s.SearchCount > 0 {
			label += dimStyle.Render(countLabel(s.SearchCount))
		}
		if m.width > 4 {
			label = truncate(label, m.width-4)
		}

		if i == m.activeIndex {
			b.WriteString(selectedStyle.Render("> " + label))
		} else {
			b.WriteString(normalStyle.Render("  " + label))
		}
		if i < len(m.suggestions)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

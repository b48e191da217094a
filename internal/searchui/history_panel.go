package searchui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/grazerhq/grazer/internal/api"
	"github.com/grazerhq/grazer/internal/share"
	"github.com/grazerhq/grazer/internal/store"
)

// Panel tabs.
const (
	tabRecent = iota
	tabSaved
)

// historyPanel is the modal over the local store: recent searches on one
// tab, saved searches on the other.
type historyPanel struct {
	tab     int
	sel     int
	entries []store.HistoryEntry
	saved   []store.SavedSearchEntry
	loaded  bool
	errText string
}

func newHistoryPanel() historyPanel {
	return historyPanel{}
}

// length returns the row count of the active tab.
func (p historyPanel) length() int {
	if p.tab == tabSaved {
		return len(p.saved)
	}
	return len(p.entries)
}

// current returns the selected entry of the active tab, reduced to its
// history fields, and whether the selection is valid.
func (p historyPanel) current() (store.HistoryEntry, bool) {
	if p.tab == tabSaved {
		if p.sel >= 0 && p.sel < len(p.saved) {
			return p.saved[p.sel].HistoryEntry, true
		}
		return store.HistoryEntry{}, false
	}
	if p.sel >= 0 && p.sel < len(p.entries) {
		return p.entries[p.sel], true
	}
	return store.HistoryEntry{}, false
}

// clampSel keeps the selection within the active tab's bounds.
func (p *historyPanel) clampSel() {
	n := p.length()
	if n == 0 {
		p.sel = 0
		return
	}
	if p.sel >= n {
		p.sel = n - 1
	}
	if p.sel < 0 {
		p.sel = 0
	}
}

// openHistory switches focus to the panel and loads both lists.
func (m Model) openHistory() (tea.Model, tea.Cmd) {
	m.focus = focusHistory
	m.showSuggestions = false
	m.activeIndex = -1
	m.status = ""
	return m, m.loadHistoryCmd()
}

// loadHistoryCmd reads both store lists off the UI path.
func (m *Model) loadHistoryCmd() tea.Cmd {
	st := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		entries, err := st.LoadHistory(ctx)
		if err != nil {
			return historyLoadedMsg{err: err}
		}
		saved, err := st.LoadSaved(ctx)
		if err != nil {
			return historyLoadedMsg{entries: entries, err: err}
		}
		return historyLoadedMsg{entries: entries, saved: saved}
	}
}

// handleHistoryLoaded installs freshly loaded panel data.
func (m Model) handleHistoryLoaded(msg historyLoadedMsg) (tea.Model, tea.Cmd) {
	m.panel.loaded = true
	m.panel.entries = msg.entries
	m.panel.saved = msg.saved
	m.panel.errText = ""
	if msg.err != nil {
		m.logger.Warn("history load failed", "error", msg.err)
		m.panel.errText = "Could not read search history."
	}
	if msg.status != "" {
		m.status = msg.status
	}
	m.panel.clampSel()
	return m, nil
}

// handlePanelKey implements the history panel's keyboard semantics.
func (m Model) handlePanelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlH:
		m.focus = focusInput
		m.input.Focus()
		return m, textinput.Blink

	case tea.KeyTab:
		m.panel.tab = (m.panel.tab + 1) % 2
		m.panel.sel = 0
		return m, nil

	case tea.KeyUp:
		if m.panel.sel > 0 {
			m.panel.sel--
		}
		return m, nil

	case tea.KeyDown:
		if m.panel.sel < m.panel.length()-1 {
			m.panel.sel++
		}
		return m, nil

	case tea.KeyEnter:
		entry, ok := m.panel.current()
		if !ok {
			return m, nil
		}
		// Re-issuing a past search follows the same commit contract as the
		// input box, carrying the entry's stored filters.
		m.filters = cloneFilters(entry.Filters)
		return m.commit(entry.SearchTerm, api.ActionHistorySearch)

	case tea.KeyRunes:
		switch string(msg.Runes) {
		case "s":
			return m.savePanelEntry()
		case "d":
			return m.removePanelEntry()
		case "x":
			return m.clearPanelHistory()
		case "y":
			return m.sharePanelEntry()
		case "e":
			return m.exportPanel()
		}
	}
	return m, nil
}

// savePanelEntry copies the selected recent search into the saved list.
func (m Model) savePanelEntry() (tea.Model, tea.Cmd) {
	if m.panel.tab != tabRecent {
		return m, nil
	}
	entry, ok := m.panel.current()
	if !ok {
		return m, nil
	}

	st := m.store
	logger := m.logger
	load := m.loadHistoryCmd()
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if _, err := st.SaveFromHistory(ctx, entry); err != nil {
			logger.Warn("save search failed", "term", entry.SearchTerm, "error", err)
			return statusMsg{text: "Could not save search."}
		}
		msg := load()
		if loaded, ok := msg.(historyLoadedMsg); ok {
			loaded.status = fmt.Sprintf("Saved %q.", entry.SearchTerm)
			return loaded
		}
		return msg
	}
}

// removePanelEntry deletes the selected row from the active tab.
func (m Model) removePanelEntry() (tea.Model, tea.Cmd) {
	entry, ok := m.panel.current()
	if !ok {
		return m, nil
	}

	st := m.store
	logger := m.logger
	fromSaved := m.panel.tab == tabSaved
	load := m.loadHistoryCmd()
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		var err error
		if fromSaved {
			err = st.RemoveSaved(ctx, entry.ID)
		} else {
			err = st.RemoveHistoryEntry(ctx, entry.ID)
		}
		if err != nil {
			logger.Warn("remove search failed", "id", entry.ID, "error", err)
			return statusMsg{text: "Could not remove entry."}
		}
		return load()
	}
}

// clearPanelHistory wipes the recent list. Saved searches are untouched.
func (m Model) clearPanelHistory() (tea.Model, tea.Cmd) {
	if m.panel.tab != tabRecent {
		return m, nil
	}

	st := m.store
	logger := m.logger
	load := m.loadHistoryCmd()
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := st.ClearHistory(ctx); err != nil {
			logger.Warn("clear history failed", "error", err)
			return statusMsg{text: "Could not clear history."}
		}
		return load()
	}
}

// sharePanelEntry copies the entry's search link to the clipboard.
func (m Model) sharePanelEntry() (tea.Model, tea.Cmd) {
	entry, ok := m.panel.current()
	if !ok {
		return m, nil
	}

	link := share.SearchURL(m.cfg.Share.WebBaseURL, entry.SearchTerm, entry.Filters)
	return m, func() tea.Msg {
		if err := share.CopyToClipboard(link); err != nil {
			return statusMsg{text: "Could not copy link."}
		}
		return statusMsg{text: "Link copied: " + link}
	}
}

// exportPanel writes the full export file.
func (m Model) exportPanel() (tea.Model, tea.Cmd) {
	st := m.store
	dir := m.exportDir
	logger := m.logger
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		path, err := store.WriteExport(ctx, st, dir)
		if err != nil {
			logger.Warn("export failed", "error", err)
			return statusMsg{text: "Export failed."}
		}
		return statusMsg{text: "Exported to " + path}
	}
}

// viewHistoryPanel renders the tab bar and the active list.
func (m Model) viewHistoryPanel() string {
	var b strings.Builder
	b.WriteString(m.viewPanelTabs())
	b.WriteString("\n")

	if m.panel.errText != "" {
		b.WriteString(errorStyle.Render(m.panel.errText))
		b.WriteString("\n")
	}

	if !m.panel.loaded {
		b.WriteString(dimStyle.Render("Loading…"))
		return b.String()
	}

	now := time.Now()
	switch m.panel.tab {
	case tabSaved:
		if len(m.panel.saved) == 0 {
			b.WriteString(dimStyle.Render("No saved searches yet. Save one from the Recent tab with s."))
		}
		for i, e := range m.panel.saved {
			b.WriteString(m.viewPanelRow(i, e.Name, e.SearchTerm, e.Timestamp, e.Filters, now))
			if i < len(m.panel.saved)-1 {
				b.WriteString("\n")
			}
		}
	default:
		if len(m.panel.entries) == 0 {
			b.WriteString(dimStyle.Render("No recent searches."))
		}
		for i, e := range m.panel.entries {
			b.WriteString(m.viewPanelRow(i, "", e.SearchTerm, e.Timestamp, e.Filters, now))
			if i < len(m.panel.entries)-1 {
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("enter search  s save  d remove  x clear  y share  e export  tab switch  esc close"))
	return b.String()
}

// viewPanelTabs renders the Recent/Saved tab bar.
func (m Model) viewPanelTabs() string {
	labels := []string{
		fmt.Sprintf(" Recent (%d) ", len(m.panel.entries)),
		fmt.Sprintf(" Saved (%d) ", len(m.panel.saved)),
	}
	var parts []string
	for i, label := range labels {
		if i == m.panel.tab {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, inactiveTabStyle.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

// viewPanelRow renders one history or saved row with its relative time.
func (m Model) viewPanelRow(i int, name, term, timestamp string, filters map[string]string, now time.Time) string {
	label := sanitizeLine(term)
	if name != "" && !strings.EqualFold(name, term) {
		label = sanitizeLine(name) + " — " + label
	}
	if summary := filterSummary(filters); summary != "" {
		label += dimStyle.Render("  " + summary)
	}
	label += dimStyle.Render("  " + relativeTime(timestamp, now))

	if m.width > 4 {
		label = truncate(label, m.width-4)
	}

	if i == m.panel.sel {
		return selectedStyle.Render("> " + label)
	}
	return normalStyle.Render("  " + label)
}

// filterSummary compacts a filter map into a short display hint.
func filterSummary(filters map[string]string) string {
	if len(filters) == 0 {
		return ""
	}
	var parts []string
	for _, k := range share.FilterOrder {
		if v := filters[k]; v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, " ")
}

// cloneFilters copies a filter map, treating nil as empty.
func cloneFilters(filters map[string]string) map[string]string {
	out := make(map[string]string, len(filters))
	for k, v := range filters {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

package searchui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/grazerhq/grazer/internal/api"
	"github.com/grazerhq/grazer/internal/highlight"
)

// handleResultsKey implements the results view's keyboard semantics.
func (m Model) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.focus = focusInput
		m.input.Focus()
		return m, textinput.Blink

	case tea.KeyCtrlH:
		return m.openHistory()

	case tea.KeyUp:
		if m.resultSel > 0 {
			m.resultSel--
		}
		return m, nil

	case tea.KeyDown:
		if m.results != nil && m.resultSel < len(m.results.Results)-1 {
			m.resultSel++
		}
		return m, nil

	case tea.KeyRight:
		return m.nextPage()

	case tea.KeyLeft:
		return m.prevPage()

	case tea.KeyRunes:
		switch string(msg.Runes) {
		case "/":
			m.focus = focusInput
			m.input.Focus()
			return m, textinput.Blink
		case "j":
			if m.results != nil && m.resultSel < len(m.results.Results)-1 {
				m.resultSel++
			}
			return m, nil
		case "k":
			if m.resultSel > 0 {
				m.resultSel--
			}
			return m, nil
		case "n":
			return m.nextPage()
		case "p":
			return m.prevPage()
		case "q":
			m.cancelInflight()
			return m, tea.Quit
		}
	}
	return m, nil
}

// nextPage fetches the following result page when one exists.
func (m Model) nextPage() (tea.Model, tea.Cmd) {
	if m.results == nil {
		return m, nil
	}
	pg := m.results.Pagination
	if !pg.HasMore && (pg.TotalPages == 0 || m.page >= pg.TotalPages) {
		return m, nil
	}
	m.page++
	m.resultSel = 0
	return m, m.fetchResultsCmd()
}

// prevPage fetches the preceding result page.
func (m Model) prevPage() (tea.Model, tea.Cmd) {
	if m.page <= 1 {
		return m, nil
	}
	m.page--
	m.resultSel = 0
	return m, m.fetchResultsCmd()
}

// viewResults renders the result list for the committed query.
func (m Model) viewResults() string {
	if m.resultsErr != "" {
		return errorStyle.Render(m.resultsErr)
	}
	if m.results == nil {
		return dimStyle.Render("Searching…")
	}

	var b strings.Builder
	b.WriteString(m.viewResultsHeader())
	b.WriteString("\n")

	if len(m.results.Results) == 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("No matches for %q.", m.committed)))
		return b.String()
	}

	for i, r := range m.results.Results {
		b.WriteString(m.viewResultRow(i, r))
		b.WriteString("\n")
	}

	if m.results.Pagination.TotalPages > 1 {
		b.WriteString(m.pager.View())
		b.WriteString(dimStyle.Render(fmt.Sprintf("  page %d/%d", m.page, m.results.Pagination.TotalPages)))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("↑↓ select  n/p page  / edit query  Ctrl+H history  q quit"))
	return b.String()
}

// viewResultsHeader summarizes the hit count, timing, and content-type
// breakdown.
func (m Model) viewResultsHeader() string {
	pg := m.results.Pagination
	meta := m.results.SearchMeta

	head := fmt.Sprintf("%d results for %q", pg.Total, m.committed)
	if meta.TookMs > 0 {
		head += fmt.Sprintf(" (%dms)", meta.TookMs)
	}
	if meta.Fuzzy {
		head += " ~fuzzy"
	}

	line := titleStyle.Render(head)
	if counts := contentTypeSummary(m.results.ContentTypeCounts); counts != "" {
		line += "\n" + dimStyle.Render(counts)
	}
	return line
}

// viewResultRow renders one hit: title line, metadata line, excerpt.
func (m Model) viewResultRow(i int, r api.Result) string {
	marker := "  "
	style := normalStyle
	if i == m.resultSel {
		marker = "> "
		style = selectedStyle
	}

	title := sanitizeLine(r.Title)
	if m.width > 4 {
		title = truncate(title, m.width-4)
	}

	var b strings.Builder
	b.WriteString(style.Render(marker + title))
	b.WriteString(dimStyle.Render("  [" + r.ContentType + "]"))
	b.WriteString("\n")

	if meta := resultMeta(r); meta != "" {
		b.WriteString("    ")
		b.WriteString(tagStyle.Render(meta))
		b.WriteString("\n")
	}

	excerpt := m.renderExcerpt(r)
	if excerpt != "" {
		b.WriteString("    ")
		b.WriteString(excerpt)
		b.WriteString("\n")
	}
	return b.String()
}

// renderExcerpt styles the highlighted runs of a result's excerpt. Server
// markup wins; otherwise a window is cut around the first query match.
func (m Model) renderExcerpt(r api.Result) string {
	raw := r.Excerpt
	if raw == "" {
		raw = r.Content
	}
	if raw == "" {
		return ""
	}

	var ex highlight.Excerpt
	if highlight.HasMarkup(raw) {
		ex = highlight.FromMarked(raw)
	} else {
		ex = highlight.Build(raw, m.committed)
	}

	return styleSpans(sanitizeExcerpt(ex))
}

// sanitizeExcerpt strips control sequences from excerpt text while keeping
// span offsets valid. Spans are rune offsets, so sanitation must happen
// before span slicing, not after.
func sanitizeExcerpt(ex highlight.Excerpt) highlight.Excerpt {
	clean := sanitizeLine(ex.Text)
	if clean == ex.Text {
		return ex
	}
	// Control bytes were removed; offsets are no longer trustworthy.
	return highlight.Excerpt{Text: clean}
}

// styleSpans applies the match style to the excerpt's highlighted runs.
func styleSpans(ex highlight.Excerpt) string {
	runes := []rune(ex.Text)
	if len(ex.Spans) == 0 {
		return normalStyle.Render(string(runes))
	}

	var b strings.Builder
	pos := 0
	for _, sp := range ex.Spans {
		if sp.Start < pos || sp.Start > len(runes) {
			continue
		}
		end := sp.End
		if end > len(runes) {
			end = len(runes)
		}
		b.WriteString(normalStyle.Render(string(runes[pos:sp.Start])))
		b.WriteString(matchStyle.Render(string(runes[sp.Start:end])))
		pos = end
	}
	b.WriteString(normalStyle.Render(string(runes[pos:])))
	return b.String()
}

// resultMeta joins tags, views, and the publish date into one dim line.
func resultMeta(r api.Result) string {
	var parts []string
	if len(r.Tags) > 0 {
		parts = append(parts, "#"+strings.Join(r.Tags, " #"))
	}
	if r.Views > 0 {
		parts = append(parts, fmt.Sprintf("%d views", r.Views))
	}
	if r.PublishedAt != "" {
		parts = append(parts, r.PublishedAt)
	}
	return strings.Join(parts, "  ")
}

// contentTypeSummary renders the per-type hit counts in a stable order.
func contentTypeSummary(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)

	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("%s %d", t, counts[t]))
	}
	return strings.Join(parts, " · ")
}

// countLabel renders a popular suggestion's search count.
func countLabel(n int) string {
	return fmt.Sprintf(" · %d searches", n)
}

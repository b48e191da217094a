package searchui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/grazerhq/grazer/internal/api"
)

var (
	promptStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("70"))
	selectedStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	normalStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	matchStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	tagStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("108"))
	activeTabStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("64"))
	inactiveTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("108"))
)

// suggestionGlyphs is the fixed rendering table for the suggestion type
// enum. Every type renders the same way everywhere.
var suggestionGlyphs = map[api.SuggestionType]string{
	api.SuggestionRecent:  "↺",
	api.SuggestionPopular: "★",
	api.SuggestionTag:     "#",
	api.SuggestionGeneric: "·",
}

// glyphFor returns the glyph for a suggestion type.
func glyphFor(t api.SuggestionType) string {
	if g, ok := suggestionGlyphs[t]; ok {
		return g
	}
	return suggestionGlyphs[api.SuggestionGeneric]
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/grazerhq/grazer/internal/api"
	"github.com/grazerhq/grazer/internal/config"
	"github.com/grazerhq/grazer/internal/highlight"
	"github.com/grazerhq/grazer/internal/searchui"
)

var (
	searchType     string
	searchSort     string
	searchTags     string
	searchFrom     string
	searchTo       string
	searchFuzzy    bool
	searchMinViews int
	searchPage     int
	searchLimit    int
	searchPlain    bool
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search articles, events, and guides",
	Long: `Search the content API.

Without --plain, opens the interactive search screen: suggestions
appear as you type, Enter runs the search, Ctrl+H opens history.
A query argument pre-fills the input and runs immediately.

With --plain, runs one search and prints the results.

Examples:
  grazer search                        # Interactive screen
  grazer search "cattle feed"          # Interactive, query pre-filled
  grazer search --plain soil --tags=organic
  grazer search --plain --json barley  # Machine-readable output`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchType, "type", "", "comma-separated content types (article,event,guide)")
	searchCmd.Flags().StringVar(&searchSort, "sort", "", "sort order: relevance, date, or views")
	searchCmd.Flags().StringVar(&searchTags, "tags", "", "comma-separated tag filter")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "earliest publish date (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "latest publish date (YYYY-MM-DD)")
	searchCmd.Flags().BoolVar(&searchFuzzy, "fuzzy", false, "enable fuzzy matching")
	searchCmd.Flags().IntVar(&searchMinViews, "min-views", 0, "only results with at least this many views (plain mode)")
	searchCmd.Flags().IntVar(&searchPage, "page", 1, "result page (plain mode)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "results per page (plain mode)")
	searchCmd.Flags().BoolVar(&searchPlain, "plain", false, "print results instead of opening the interactive screen")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON (implies --plain)")

	rootCmd.AddCommand(searchCmd)
}

// searchFilters collects the flag values into the filter map the search
// screen and share links use.
func searchFilters() map[string]string {
	filters := map[string]string{}
	if searchType != "" {
		filters["type"] = searchType
	}
	if searchSort != "" {
		filters["sort"] = searchSort
	}
	if searchTags != "" {
		filters["tags"] = searchTags
	}
	if searchFrom != "" {
		filters["dateStart"] = searchFrom
	}
	if searchTo != "" {
		filters["dateEnd"] = searchTo
	}
	if searchFuzzy {
		filters["fuzzy"] = "true"
	}
	return filters
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	client := newClient(cfg, logger)

	query := ""
	if len(args) > 0 {
		query = strings.TrimSpace(args[0])
	}

	if searchJSON {
		searchPlain = true
	}
	if searchPlain {
		if query == "" {
			return fmt.Errorf("plain mode needs a query argument")
		}
		return runPlainSearch(cfg, client, logger, query)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	paths := config.DefaultPaths()
	model := searchui.New(searchui.Options{
		Config:       cfg,
		Client:       client,
		Store:        st,
		Logger:       logger,
		InitialQuery: query,
		Filters:      searchFilters(),
		ExportDir:    paths.ExportDir(),
	})

	p := tea.NewProgram(model)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("search screen failed: %w", err)
	}
	return nil
}

// runPlainSearch performs one search and prints the page. The search is
// still recorded in history and analytics, same as an interactive commit.
func runPlainSearch(cfg *config.Config, client *api.Client, logger *slog.Logger, query string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	filters := searchFilters()
	params := api.SearchParams{
		Query:  query,
		Page:   searchPage,
		Limit:  cfg.Search.PageSize,
		SortBy: cfg.Search.DefaultSort,
		Fuzzy:  cfg.Search.Fuzzy,
	}
	if searchLimit > 0 {
		params.Limit = searchLimit
	}
	if searchType != "" {
		params.ContentTypes = strings.Split(searchType, ",")
	}
	if searchSort != "" {
		params.SortBy = searchSort
	}
	if searchTags != "" {
		params.Tags = strings.Split(searchTags, ",")
	}
	params.DateStart = searchFrom
	params.DateEnd = searchTo
	params.MinViews = searchMinViews
	if searchFuzzy {
		params.Fuzzy = true
	}

	// History and analytics happen regardless of whether the fetch
	// succeeds, matching the interactive commit order.
	if st, err := openStore(); err == nil {
		if _, err := st.AddHistoryEntry(ctx, query, filters); err != nil {
			logger.Warn("history write failed", "term", query, "error", err)
		}
		st.Close()
	} else {
		logger.Warn("history unavailable", "error", err)
	}
	if cfg.API.AnalyticsEnabled {
		client.TrackSearch(ctx, query, api.ActionManualSearch)
	}

	data, err := client.Search(ctx, params)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		return enc.Encode(data)
	}

	printSearchResults(query, data)
	return nil
}

func printSearchResults(query string, data *api.SearchData) {
	pg := data.Pagination

	fmt.Printf("%s%d results for %q%s", colorBold, pg.Total, query, colorReset)
	if data.SearchMeta.TookMs > 0 {
		fmt.Printf(" %s(%dms)%s", colorDim, data.SearchMeta.TookMs, colorReset)
	}
	fmt.Println()

	if len(data.Results) == 0 {
		fmt.Println("No matches.")
		return
	}

	for _, r := range data.Results {
		fmt.Println()
		fmt.Printf("%s%s%s  %s[%s]%s\n", colorBold, r.Title, colorReset, colorCyan, r.ContentType, colorReset)
		if len(r.Tags) > 0 {
			fmt.Printf("  %s#%s%s\n", colorDim, strings.Join(r.Tags, " #"), colorReset)
		}
		if excerpt := plainExcerpt(r, query); excerpt != "" {
			fmt.Printf("  %s\n", excerpt)
		}
	}

	if pg.TotalPages > 1 {
		fmt.Println()
		fmt.Printf("%sPage %d/%d. Use --page to see more.%s\n", colorDim, pg.Page, pg.TotalPages, colorReset)
	}
}

// plainExcerpt renders a result excerpt with matches emphasized, preferring
// server markup over the local context window.
func plainExcerpt(r api.Result, query string) string {
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
		ex = highlight.Build(raw, query)
	}

	runes := []rune(ex.Text)
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
		b.WriteString(string(runes[pos:sp.Start]))
		b.WriteString(colorYellow)
		b.WriteString(string(runes[sp.Start:end]))
		b.WriteString(colorReset)
		pos = end
	}
	b.WriteString(string(runes[pos:]))
	return b.String()
}

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/grazerhq/grazer/internal/config"
	"github.com/grazerhq/grazer/internal/share"
	"github.com/grazerhq/grazer/internal/store"
)

var (
	historySaved     bool
	historyExportDir string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show and manage search history",
	Long: `Show and manage the local search history.

Without a subcommand, lists recent searches (newest first). The list
keeps the last 20 searches; saved searches are kept until removed.

Rows are numbered; save, remove, and share take that number.

Examples:
  grazer history                  # List recent searches
  grazer history --saved          # List saved searches
  grazer history save 2           # Save recent search #2
  grazer history remove 1         # Remove recent search #1
  grazer history remove --saved 1 # Remove saved search #1
  grazer history clear            # Clear recent searches
  grazer history share 3          # Copy a link to search #3
  grazer history export           # Write history + saved to a JSON file`,
	RunE: runHistoryList,
}

var historySaveCmd = &cobra.Command{
	Use:   "save <n>",
	Short: "Save a recent search",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistorySave,
}

var historyRemoveCmd = &cobra.Command{
	Use:   "remove <n>",
	Short: "Remove a search from history",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryRemove,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear recent searches",
	Long:  "Clear recent searches. Saved searches are not touched.",
	RunE:  runHistoryClear,
}

var historyShareCmd = &cobra.Command{
	Use:   "share <n>",
	Short: "Copy a shareable link for a search",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShare,
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export history and saved searches to JSON",
	RunE:  runHistoryExport,
}

func init() {
	historyCmd.PersistentFlags().BoolVar(&historySaved, "saved", false, "operate on saved searches instead of recent ones")
	historyExportCmd.Flags().StringVar(&historyExportDir, "dir", "", "directory to write the export file to (default: data dir)")

	historyCmd.AddCommand(historySaveCmd)
	historyCmd.AddCommand(historyRemoveCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyShareCmd)
	historyCmd.AddCommand(historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}

func historyCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// historyIndex parses a 1-based row number from the listing.
func historyIndex(arg string, length int) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("expected a row number from the history listing, got %q", arg)
	}
	if n > length {
		return 0, fmt.Errorf("row %d does not exist (list has %d entries)", n, length)
	}
	return n - 1, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := historyCtx()
	defer cancel()

	now := time.Now()
	if historySaved {
		saved, err := st.LoadSaved(ctx)
		if err != nil {
			return fmt.Errorf("failed to read saved searches: %w", err)
		}
		if len(saved) == 0 {
			fmt.Println("No saved searches. Save one with: grazer history save <n>")
			return nil
		}
		fmt.Printf("%sSaved searches%s\n", colorBold, colorReset)
		for i, e := range saved {
			printHistoryRow(i, e.Name, e.SearchTerm, e.Timestamp, e.Filters, now)
		}
		return nil
	}

	entries, err := st.LoadHistory(ctx)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No recent searches yet.")
		return nil
	}
	fmt.Printf("%sRecent searches%s\n", colorBold, colorReset)
	for i, e := range entries {
		printHistoryRow(i, "", e.SearchTerm, e.Timestamp, e.Filters, now)
	}
	return nil
}

func printHistoryRow(i int, name, term, timestamp string, filters map[string]string, now time.Time) {
	label := term
	if name != "" && name != term {
		label = name + "  " + colorDim + term + colorReset
	}

	age := ""
	if t, err := time.Parse(time.RFC3339, timestamp); err == nil {
		age = historyAge(now.Sub(t), t)
	}

	fmt.Printf("  %s%2d.%s %s", colorCyan, i+1, colorReset, label)
	for _, k := range share.FilterOrder {
		if v := filters[k]; v != "" {
			fmt.Printf(" %s%s=%s%s", colorDim, k, v, colorReset)
		}
	}
	if age != "" {
		fmt.Printf("  %s%s%s", colorDim, age, colorReset)
	}
	fmt.Println()
}

func historyAge(d time.Duration, t time.Time) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("Jan 2, 2006")
	}
}

func runHistorySave(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := historyCtx()
	defer cancel()

	entries, err := st.LoadHistory(ctx)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	idx, err := historyIndex(args[0], len(entries))
	if err != nil {
		return err
	}

	saved, err := st.SaveFromHistory(ctx, entries[idx])
	if err != nil {
		return fmt.Errorf("failed to save search: %w", err)
	}
	fmt.Printf("Saved %s%q%s\n", colorGreen, saved.SearchTerm, colorReset)
	return nil
}

func runHistoryRemove(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := historyCtx()
	defer cancel()

	if historySaved {
		saved, err := st.LoadSaved(ctx)
		if err != nil {
			return fmt.Errorf("failed to read saved searches: %w", err)
		}
		idx, err := historyIndex(args[0], len(saved))
		if err != nil {
			return err
		}
		if err := st.RemoveSaved(ctx, saved[idx].ID); err != nil {
			return fmt.Errorf("failed to remove saved search: %w", err)
		}
		fmt.Printf("Removed %q from saved searches\n", saved[idx].SearchTerm)
		return nil
	}

	entries, err := st.LoadHistory(ctx)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	idx, err := historyIndex(args[0], len(entries))
	if err != nil {
		return err
	}
	if err := st.RemoveHistoryEntry(ctx, entries[idx].ID); err != nil {
		return fmt.Errorf("failed to remove history entry: %w", err)
	}
	fmt.Printf("Removed %q from history\n", entries[idx].SearchTerm)
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := historyCtx()
	defer cancel()

	if err := st.ClearHistory(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	fmt.Println("Recent searches cleared. Saved searches were kept.")
	return nil
}

func runHistoryShare(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := historyCtx()
	defer cancel()

	var entry store.HistoryEntry
	if historySaved {
		saved, err := st.LoadSaved(ctx)
		if err != nil {
			return fmt.Errorf("failed to read saved searches: %w", err)
		}
		idx, err := historyIndex(args[0], len(saved))
		if err != nil {
			return err
		}
		entry = saved[idx].HistoryEntry
	} else {
		entries, err := st.LoadHistory(ctx)
		if err != nil {
			return fmt.Errorf("failed to read history: %w", err)
		}
		idx, err := historyIndex(args[0], len(entries))
		if err != nil {
			return err
		}
		entry = entries[idx]
	}

	link := share.SearchURL(cfg.Share.WebBaseURL, entry.SearchTerm, entry.Filters)
	if err := share.CopyToClipboard(link); err != nil {
		fmt.Println(link)
		return nil
	}
	fmt.Printf("%sCopied:%s %s\n", colorGreen, colorReset, link)
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := historyCtx()
	defer cancel()

	dir := historyExportDir
	if dir == "" {
		dir = config.DefaultPaths().ExportDir()
	}

	path, err := store.WriteExport(ctx, st, dir)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

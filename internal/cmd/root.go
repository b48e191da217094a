package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "grazer",
	Short: "search the pasture from your terminal",
	Long: `grazer - terminal search client for the farm content API
  - type-ahead suggestions while you type
  - local search history and saved searches
  - shareable links to the website's search page`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

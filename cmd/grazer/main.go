// Package main is the entry point for the grazer CLI.
package main

import (
	"os"

	"github.com/grazerhq/grazer/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

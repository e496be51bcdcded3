package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quietpage/inkdex/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "inkdex",
	Short:         "Search and embedding backend for a markdown publication",
	Version:       fmt.Sprintf("%s (%s)", version.Version, version.Commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(reembedCmd)
	rootCmd.AddCommand(syncCmd)
}

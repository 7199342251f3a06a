// Package main provides the entry point for the sifter CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sifterlab/sifter/cmd/sifter/commands"
	"github.com/sifterlab/sifter/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sifter",
		Short: "Sifter forensic timeline extraction",
		Long: `Sifter extracts timestamped events from sources into attribute
container stores and runs analysis plugins over the results.

Commands:
  extract   Extract events from a source into a session store
  info      Summarize the contents of a store
  export    Export a store as JSON, a table, or an HTML timeline
  merge     Merge stores into a destination store`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands.
	rootCmd.AddCommand(commands.NewExtractCommand())
	rootCmd.AddCommand(commands.NewInfoCommand())
	rootCmd.AddCommand(commands.NewExportCommand())
	rootCmd.AddCommand(commands.NewMergeCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "sifter %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

// Package cmd defines and implements the CLI commands for the vdcrawler
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vdcrawler",
		Short: "Harvests treaty documents from the Verdragenbank",
		Long: `vdcrawler walks the government SRU repository page by page, extracts
the full text of every treaty document it finds, strips personal names,
and appends the results to size-bounded NDJSON shards. Runs are
incremental: a checkpoint records the last successful run so the next
one only fetches what changed since.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults plus VDCRAWLER_* env)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newPublishCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for eegcat
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eegcat",
		Short: "Catalog and summarize EEG recording corpora",
		Long: `eegcat walks an EEG corpus laid out like the TUH EEG corpus, reads the
EDF header of every matching recording and builds a metadata catalog.

The catalog can be saved as a metadata file or stored in a local SQLite
database, and summarized as corpus statistics (durations, channel counts,
sample rates, shared channels) and a channel frequency table.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: $EEGCAT_HOME/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().String("log-dir", "", "Also write logs to a timestamped file in this directory")
	cmd.PersistentFlags().Bool("no-color", false, "Disable coloured output")

	cmd.AddCommand(NewDiscoverCommand())
	cmd.AddCommand(NewScanCommand())
	cmd.AddCommand(NewStatsCommand())
	cmd.AddCommand(NewChannelsCommand())
	cmd.AddCommand(NewRunsCommand())

	return cmd
}

package cmd

import (
	"fmt"

	"github.com/harrison/eegcat/internal/catalog"
	"github.com/spf13/cobra"
)

// NewDiscoverCommand creates the discover command
func NewDiscoverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover [root]",
		Short: "List the recordings that match the montage and diagnostic label",
		Long: `Walk a corpus root and list every recording whose path contains the
montage tag and the diagnostic label directory. No file is opened.

The root defaults to data_path from the config file.

Examples:
  eegcat discover /data/tuh_eeg_epilepsy
  eegcat discover /data/tuh_eeg_epilepsy --no-epilepsy --montage _tcp_le
  eegcat discover --show-empty`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDiscover,
	}

	addDiscoveryFlags(cmd)
	cmd.Flags().Bool("show-empty", false, "Also list directories that hold no recording")
	cmd.Flags().Bool("count", false, "Only print the number of matching recordings")

	return cmd
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	root, err := cfg.ResolveDataPath(firstArg(args))
	if err != nil {
		return err
	}

	opts := discoveryOptions(cfg)
	result, err := catalog.FindRecordings(root, opts)
	if err != nil {
		return fmt.Errorf("failed to discover recordings: %w", err)
	}

	out := cmd.OutOrStdout()
	if countOnly, _ := cmd.Flags().GetBool("count"); countOnly {
		fmt.Fprintln(out, len(result.Paths))
		return nil
	}

	for _, path := range result.Paths {
		fmt.Fprintln(out, path)
	}
	fmt.Fprintf(out, "\nFound %d recordings under %s (montage %s, label %s)\n",
		len(result.Paths), root, opts.Montage, opts.Label())

	if showEmpty, _ := cmd.Flags().GetBool("show-empty"); showEmpty {
		fmt.Fprintf(out, "\nDirectories without recordings (%d):\n", len(result.EmptyDirs))
		for _, dir := range result.EmptyDirs {
			fmt.Fprintf(out, "  %s\n", dir)
		}
	}

	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

package cmd

import (
	"fmt"

	"github.com/harrison/eegcat/internal/catalog"
	"github.com/spf13/cobra"
)

// NewStatsCommand creates the stats command
func NewStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report statistics for a saved catalog without re-reading the corpus",
		Long: `Compute corpus statistics from a metadata file written by 'scan --save'
or from a run stored with 'scan --store'. With neither --input nor --run the
most recent stored run is used.

Examples:
  eegcat stats --input ./info_files/metadata.txt
  eegcat stats --run 3f2a9c1e --format json
  eegcat stats --format html --report stats.html`,
		Args: cobra.NoArgs,
		RunE: runStats,
	}

	addSourceFlags(cmd)
	addReportFlags(cmd)

	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newCommandLogger(cmd, cfg, "stats")
	if err != nil {
		return err
	}
	defer log.Close()

	records, source, err := loadRecords(cmd.Context(), cmd, cfg)
	if err != nil {
		return err
	}
	log.LogDebug(fmt.Sprintf("Loaded %d records from %s", len(records), source))

	report := catalog.NewReport(records, statsOptions(cfg))
	warnFilterRange(log, cfg, report.Stats.SampleRates)

	return emitReport(cmd, log, report)
}

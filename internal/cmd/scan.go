package cmd

import (
	"fmt"
	"time"

	"github.com/harrison/eegcat/internal/catalog"
	"github.com/harrison/eegcat/internal/logger"
	"github.com/harrison/eegcat/internal/store"
	"github.com/spf13/cobra"
)

const progressBarWidth = 30

// NewScanCommand creates the scan command
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [root]",
		Short: "Read every matching recording header and report corpus statistics",
		Long: `Discover the recordings under root, read the EDF header of each one and
print corpus statistics. Files that cannot be read are logged and skipped.

The catalog can be kept for later with --save (metadata file) or --store
(SQLite catalog database, see 'eegcat runs').

Examples:
  # Statistics for the epilepsy group using 8 concurrent readers
  eegcat scan /data/tuh_eeg_epilepsy --workers 8

  # Save the metadata file and draw the channel chart
  eegcat scan /data/tuh_eeg_epilepsy --save --chart

  # Store the run and write a Markdown report
  eegcat scan /data/tuh_eeg_epilepsy --store --format markdown --report report.md`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScan,
	}

	addDiscoveryFlags(cmd)
	addReportFlags(cmd)
	cmd.Flags().IntP("workers", "w", 0, "Concurrent header reads (0 or 1 = sequential)")
	cmd.Flags().Bool("save", false, "Write the metadata file")
	cmd.Flags().StringP("output", "o", "", "Metadata file path (default: ./info_files/metadata.txt)")
	cmd.Flags().Bool("store", false, "Store the run in the catalog database")
	cmd.Flags().String("catalog-db", "", "Path to catalog database (default: $EEGCAT_HOME/catalog.db)")
	cmd.Flags().Bool("chart", false, "Also draw the channel frequency chart")
	cmd.Flags().Int("top", 0, "Limit the chart to the N most frequent channels (0 = all)")

	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	root, err := cfg.ResolveDataPath(firstArg(args))
	if err != nil {
		return err
	}

	log, err := newCommandLogger(cmd, cfg, "scan")
	if err != nil {
		return err
	}
	defer log.Close()

	ctx := cmd.Context()
	startedAt := time.Now()

	opts := discoveryOptions(cfg)
	found, err := catalog.FindRecordings(root, opts)
	if err != nil {
		return fmt.Errorf("failed to discover recordings: %w", err)
	}
	log.LogInfo(fmt.Sprintf("Found %d recordings under %s (montage %s, label %s)",
		len(found.Paths), root, opts.Montage, opts.Label()))

	bar := logger.NewProgressBar(len(found.Paths), progressBarWidth, log.console.ColorEnabled())
	bar.SetPrefix("Reading headers ")

	save, _ := cmd.Flags().GetBool("save")
	batch, err := catalog.BuildCatalog(ctx, found.Paths, catalog.BatchOptions{
		Workers:    cfg.Workers,
		Save:       save,
		OutputFile: cfg.OutputFile,
		Logger:     log,
		Progress: func(done, total int) {
			bar.Update(done)
			log.console.LogProgress(bar)
		},
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("scan interrupted: %w", ctxErr)
	}
	if err != nil {
		return err
	}
	finishedAt := time.Now()

	log.LogInfo(fmt.Sprintf("Read %d of %d recordings in %s (%d failed)",
		len(batch.Records), len(found.Paths), finishedAt.Sub(startedAt).Round(time.Millisecond), len(batch.Failures)))

	if storeRun, _ := cmd.Flags().GetBool("store"); storeRun {
		s, err := openCatalog(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		run := &store.ScanRun{
			Root:       root,
			Montage:    opts.Montage,
			Label:      opts.Label(),
			Extension:  cfg.Extension,
			Workers:    cfg.Workers,
			StartedAt:  startedAt,
			FinishedAt: &finishedAt,
			FilesFound: len(found.Paths),
		}
		if err := s.SaveRun(ctx, run, batch.Records, batch.Failures); err != nil {
			return fmt.Errorf("failed to store scan run: %w", err)
		}
		log.LogInfo(fmt.Sprintf("Stored run %s in %s", run.ID, s.Path()))
	}

	report := catalog.NewReport(batch.Records, statsOptions(cfg))
	warnFilterRange(log, cfg, report.Stats.SampleRates)

	if err := emitReport(cmd, log, report); err != nil {
		return err
	}

	if chart, _ := cmd.Flags().GetBool("chart"); chart {
		top, _ := cmd.Flags().GetInt("top")
		writeChart(cmd, report.Channels.Top(top))
	}

	return nil
}

func writeChart(cmd *cobra.Command, table catalog.ChannelFrequencyTable) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	for _, line := range catalog.RenderBarChart(table, catalog.ChartOptions{Color: useColor(cmd)}) {
		fmt.Fprintln(out, line)
	}
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/harrison/eegcat/internal/catalog"
	"github.com/harrison/eegcat/internal/config"
	"github.com/harrison/eegcat/internal/logger"
	"github.com/harrison/eegcat/internal/store"
	"github.com/spf13/cobra"
)

// loadConfig resolves the configuration for a command: the config file
// first, then every flag the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	if noColor, _ := flags.GetBool("no-color"); noColor {
		color.NoColor = true
	}

	configPath, _ := flags.GetString("config")
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if flags.Changed("epilepsy") && flags.Changed("no-epilepsy") {
		return nil, fmt.Errorf("cannot use both --epilepsy and --no-epilepsy")
	}

	var f config.Flags
	f.Montage = changedString(cmd, "montage")
	f.Extension = changedString(cmd, "ext")
	f.LogLevel = changedString(cmd, "log-level")
	f.LogDir = changedString(cmd, "log-dir")
	f.OutputFile = changedString(cmd, "output")
	f.CatalogDB = changedString(cmd, "catalog-db")
	if flags.Changed("workers") {
		workers, _ := flags.GetInt("workers")
		f.Workers = &workers
	}
	if flags.Changed("epilepsy") {
		epilepsy, _ := flags.GetBool("epilepsy")
		f.Epilepsy = &epilepsy
	} else if flags.Changed("no-epilepsy") {
		noEpilepsy, _ := flags.GetBool("no-epilepsy")
		epilepsy := !noEpilepsy
		f.Epilepsy = &epilepsy
	}

	cfg.MergeWithFlags(f)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// changedString returns the flag value only when the user set it
func changedString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

// addDiscoveryFlags registers the flags that select recordings in a corpus
func addDiscoveryFlags(cmd *cobra.Command) {
	cmd.Flags().String("montage", config.DefaultMontage, "Montage tag a recording path must contain")
	cmd.Flags().Bool("epilepsy", true, "Select the 00_epilepsy label")
	cmd.Flags().Bool("no-epilepsy", false, "Select the 01_no_epilepsy label")
	cmd.Flags().String("ext", config.DefaultExtension, "Recording file extension")
}

func discoveryOptions(cfg *config.Config) catalog.DiscoveryOptions {
	return catalog.DiscoveryOptions{
		Montage:   cfg.Montage,
		Epilepsy:  cfg.Epilepsy,
		Extension: cfg.Extension,
	}
}

func statsOptions(cfg *config.Config) catalog.StatsOptions {
	return catalog.StatsOptions{
		Rounding:         cfg.Rounding,
		TargetSampleRate: cfg.SampleFreq,
	}
}

// useColor reports whether stdout output may be coloured
func useColor(cmd *cobra.Command) bool {
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		return false
	}
	return logger.IsTerminal(cmd.OutOrStdout())
}

// commandLogger logs to stderr and, when a log directory is configured, to a
// per-run file as well.
type commandLogger struct {
	logger.Logger
	console *logger.ConsoleLogger
	file    *logger.FileLogger
}

func newCommandLogger(cmd *cobra.Command, cfg *config.Config, name string) (*commandLogger, error) {
	console := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	cl := &commandLogger{Logger: console, console: console}

	if cfg.LogDir != "" {
		file, err := logger.NewFileLogger(cfg.LogDir, name, cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		cl.file = file
		cl.Logger = logger.Tee(console, file)
		console.LogDebug(fmt.Sprintf("Logging to %s", file.Path()))
	}
	return cl, nil
}

// Close flushes and closes the log file, if any
func (cl *commandLogger) Close() error {
	if cl.file != nil {
		return cl.file.Close()
	}
	return nil
}

// openCatalog opens the catalog database selected by the configuration
func openCatalog(cfg *config.Config) (*store.Store, error) {
	dbPath, err := cfg.GetCatalogDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog database path: %w", err)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	return s, nil
}

// addSourceFlags registers the flags that pick previously built records
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("input", "i", "", "Read records from a metadata file written by scan --save")
	cmd.Flags().String("run", "", "Read records from a stored scan run (ID or unique prefix; default: latest)")
	cmd.Flags().String("catalog-db", "", "Path to catalog database (default: $EEGCAT_HOME/catalog.db)")
}

// loadRecords returns the records selected by --input or --run, together with
// a short description of where they came from.
func loadRecords(ctx context.Context, cmd *cobra.Command, cfg *config.Config) ([]catalog.MetadataRecord, string, error) {
	input, _ := cmd.Flags().GetString("input")
	runID, _ := cmd.Flags().GetString("run")

	if input != "" && runID != "" {
		return nil, "", fmt.Errorf("cannot use both --input and --run")
	}

	if input != "" {
		records, err := catalog.ReadMetadataFile(input)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, "", fmt.Errorf("metadata file not found: %s", input)
			}
			return nil, "", fmt.Errorf("failed to read metadata file: %w", err)
		}
		return records, input, nil
	}

	s, err := openCatalog(cfg)
	if err != nil {
		return nil, "", err
	}
	defer s.Close()

	var run *store.ScanRun
	if runID != "" {
		run, err = s.GetRun(ctx, runID)
	} else {
		run, err = s.LatestRun(ctx)
		if errors.Is(err, store.ErrRunNotFound) {
			return nil, "", fmt.Errorf("no stored scan runs in %s; run 'eegcat scan --store' first or pass --input", s.Path())
		}
	}
	if err != nil {
		return nil, "", err
	}

	records, err := s.LoadRecords(ctx, run.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load records for run %s: %w", run.ShortID(), err)
	}
	return records, fmt.Sprintf("run %s (%s)", run.ShortID(), run.Root), nil
}

// addReportFlags registers the report output flags
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "text", "Report format: text, json, yaml, markdown, html")
	cmd.Flags().String("report", "", "Write the report to this file instead of stdout")
}

// emitReport writes report in the selected format. Plain text on stdout is
// rendered as the coloured section table; everything else goes through the
// exporters.
func emitReport(cmd *cobra.Command, log logger.Logger, report *catalog.Report) error {
	format, _ := cmd.Flags().GetString("format")
	reportPath, _ := cmd.Flags().GetString("report")

	if reportPath != "" {
		if err := catalog.ExportToFile(report, reportPath, format); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		log.LogInfo(fmt.Sprintf("Report saved to %s", reportPath))
		return nil
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(format) {
	case "text", "txt", "":
		writeStatsText(out, report.Stats, useColor(cmd))
		return nil
	}

	content, err := catalog.ExportToString(report, format)
	if err != nil {
		return err
	}
	fmt.Fprint(out, content)
	if !strings.HasSuffix(content, "\n") {
		fmt.Fprintln(out)
	}
	return nil
}

func writeStatsText(w io.Writer, stats *catalog.CorpusStats, colorOutput bool) {
	fmt.Fprintf(w, "Corpus statistics (%d files)\n\n", stats.FileCount)
	for _, line := range catalog.FormatSections(stats.Sections(), colorOutput) {
		fmt.Fprintln(w, line)
	}
	if stats.TargetSampleRate > 0 && stats.OffRateFiles > 0 {
		fmt.Fprintf(w, "\n%d of %d files are not sampled at %s Hz and need resampling\n",
			stats.OffRateFiles, stats.FileCount, trimFloat(stats.TargetSampleRate))
	}
}

// warnFilterRange flags sample rates whose Nyquist frequency lies below the
// configured band-pass upper edge.
func warnFilterRange(log logger.Logger, cfg *config.Config, rates []float64) {
	high := cfg.FilterRange[1]
	for _, rate := range rates {
		if rate > 0 && high > rate/2 {
			log.LogWarn(fmt.Sprintf("Filter upper edge %s Hz exceeds the Nyquist frequency of %s Hz recordings",
				trimFloat(high), trimFloat(rate)))
		}
	}
}

func trimFloat(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/eegcat/internal/store"
	"github.com/spf13/cobra"
)

// NewRunsCommand creates the 'eegcat runs' command group
func NewRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List and manage scan runs stored in the catalog database",
		Long: `Scan runs are stored by 'eegcat scan --store'. Without a subcommand the
most recent runs are listed, newest first.

Run IDs may be abbreviated to any unique prefix.

Examples:
  eegcat runs
  eegcat runs show 3f2a9c1e
  eegcat runs delete 3f2a9c1e --yes`,
		Args: cobra.NoArgs,
		RunE: runListRuns,
	}

	cmd.PersistentFlags().String("catalog-db", "", "Path to catalog database (default: $EEGCAT_HOME/catalog.db)")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to list (0 = all)")

	cmd.AddCommand(newShowRunCommand())
	cmd.AddCommand(newDeleteRunCommand())

	return cmd
}

func newShowRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a stored run and the files it failed to read",
		Args:  cobra.ExactArgs(1),
		RunE:  runShowRun,
	}
}

func newDeleteRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run and its records",
		Args:  cobra.ExactArgs(1),
		RunE:  runDeleteRun,
	}
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func runListRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := s.ListRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintf(out, "No stored runs in %s\n", s.Path())
		return nil
	}

	printRunTable(out, runs, useColor(cmd))
	return nil
}

func printRunTable(w io.Writer, runs []*store.ScanRun, colorOutput bool) {
	header := color.New(color.FgCyan, color.Bold)
	red := color.New(color.FgRed)
	for _, c := range []*color.Color{header, red} {
		if colorOutput {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	header.Fprintf(w, "%-8s  %-19s  %-14s  %7s  %6s  %s\n", "ID", "Started", "Label", "Records", "Failed", "Root")
	for _, run := range runs {
		failed := fmt.Sprintf("%6d", run.FailureCount)
		if run.FailureCount > 0 {
			failed = red.Sprint(failed)
		}
		fmt.Fprintf(w, "%-8s  %-19s  %-14s  %7d  %s  %s\n",
			run.ShortID(), run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Label, run.RecordCount, failed, run.Root)
	}
}

func runShowRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	run, err := s.GetRun(ctx, args[0])
	if err != nil {
		return err
	}
	failures, err := s.LoadFailures(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load failures: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:        %s\n", run.ID)
	fmt.Fprintf(out, "Root:       %s\n", run.Root)
	fmt.Fprintf(out, "Montage:    %s\n", run.Montage)
	fmt.Fprintf(out, "Label:      %s\n", run.Label)
	fmt.Fprintf(out, "Extension:  %s\n", run.Extension)
	fmt.Fprintf(out, "Workers:    %d\n", run.Workers)
	fmt.Fprintf(out, "Started:    %s\n", run.StartedAt.Local().Format(time.RFC3339))
	if run.FinishedAt != nil {
		fmt.Fprintf(out, "Duration:   %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(out, "Files:      %d found, %d read, %d failed\n", run.FilesFound, run.RecordCount, run.FailureCount)

	if len(failures) > 0 {
		fmt.Fprintln(out, "\nFailures:")
		for _, f := range failures {
			fmt.Fprintf(out, "  %s: %s\n", f.Path, f.Error)
		}
	}
	return nil
}

func runDeleteRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	run, err := s.GetRun(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		fmt.Fprintf(out, "Delete run %s (%s, %d records)? [y/N]: ", run.ShortID(), run.Root, run.RecordCount)
		if !confirmAction(cmd.InOrStdin()) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if err := s.DeleteRun(ctx, run.ID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	fmt.Fprintf(out, "Deleted run %s\n", run.ShortID())
	return nil
}

// confirmAction reads a yes/no answer; anything but y or yes declines
func confirmAction(in io.Reader) bool {
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

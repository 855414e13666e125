package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harrison/eegcat/internal/catalog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewChannelsCommand creates the channels command
func NewChannelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "Show how many recordings contain each channel",
		Long: `Print the channel frequency table of a saved catalog, most frequent
channel first. Channels present in every recording are marked as shared.

Records come from --input or a stored run, like 'eegcat stats'.

Examples:
  eegcat channels --top 20
  eegcat channels --input ./info_files/metadata.txt --chart
  eegcat channels --run 3f2a9c1e --format json`,
		Args: cobra.NoArgs,
		RunE: runChannels,
	}

	addSourceFlags(cmd)
	cmd.Flags().Int("top", 0, "Only show the N most frequent channels (0 = all)")
	cmd.Flags().Bool("chart", false, "Draw a bar chart instead of the table")
	cmd.Flags().StringP("format", "f", "text", "Output format: text, json, yaml")

	return cmd
}

func runChannels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	records, _, err := loadRecords(cmd.Context(), cmd, cfg)
	if err != nil {
		return err
	}

	top, _ := cmd.Flags().GetInt("top")
	table := catalog.ChannelFrequencies(records).Top(top)

	out := cmd.OutOrStdout()
	format, _ := cmd.Flags().GetString("format")
	switch strings.ToLower(format) {
	case "text", "txt", "":
		if chart, _ := cmd.Flags().GetBool("chart"); chart {
			for _, line := range catalog.RenderBarChart(table, catalog.ChartOptions{Color: useColor(cmd)}) {
				fmt.Fprintln(out, line)
			}
			return nil
		}
		for _, line := range catalog.FormatFrequencyTable(table, useColor(cmd)) {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintf(out, "\n%d channels across %d recordings\n", len(table), len(records))
	case "json":
		data, err := json.MarshalIndent(table, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode channels: %w", err)
		}
		fmt.Fprintln(out, string(data))
	case "yaml", "yml":
		data, err := yaml.Marshal(table)
		if err != nil {
			return fmt.Errorf("failed to encode channels: %w", err)
		}
		fmt.Fprint(out, string(data))
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, yaml)", format)
	}

	return nil
}

package catalog

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

const (
	// DefaultChartWidth is the length of the longest bar in characters
	DefaultChartWidth = 50

	chartTitle  = "Channel Frequencies (Shared Channels Highlighted)"
	chartXLabel = "Number of Files Containing Channel"

	sharedBarRune   = "█"
	unsharedBarRune = "░"
)

// FormatSections renders report sections as console lines. Each section is
// its own block; numeric summaries with no data print "n/a".
func FormatSections(sections []Section, colorOutput bool) []string {
	heading := color.New(color.FgCyan, color.Bold)
	if colorOutput {
		heading.EnableColor()
	} else {
		heading.DisableColor()
	}

	var numeric []NumericSummary
	var rows []string

	flushNumeric := func() {
		if len(numeric) == 0 {
			return
		}
		rows = append(rows, heading.Sprint("Numeric Metrics:"))
		rows = append(rows, formatNumericTable(numeric)...)
		rows = append(rows, "")
		numeric = nil
	}

	for _, section := range sections {
		switch s := section.(type) {
		case NumericSummary:
			numeric = append(numeric, s)
		case UniqueValues:
			flushNumeric()
			rows = append(rows, heading.Sprintf("Unique %s:", s.Metric))
			if len(s.Values) == 0 {
				rows = append(rows, "  n/a")
			} else {
				vals := make([]string, len(s.Values))
				for i, v := range s.Values {
					vals[i] = formatFloat(v)
				}
				rows = append(rows, "  "+strings.Join(vals, ", "))
			}
			rows = append(rows, "")
		case SharedSet:
			flushNumeric()
			rows = append(rows, heading.Sprintf("Shared channels (%d):", len(s.Channels)))
			if len(s.Channels) == 0 {
				rows = append(rows, "  none")
			} else {
				rows = append(rows, wrapList(s.Channels, 76, "  ")...)
			}
			rows = append(rows, "")
		}
	}
	flushNumeric()

	// Drop the trailing blank separator
	if n := len(rows); n > 0 && rows[n-1] == "" {
		rows = rows[:n-1]
	}
	return rows
}

// formatNumericTable renders numeric summaries as an aligned table
func formatNumericTable(sections []NumericSummary) []string {
	widths := map[string]int{
		"metric": 6, // "Metric"
		"mean":   4,
		"std":    3,
		"max":    3,
		"min":    3,
	}

	type cells struct{ metric, mean, std, max, min string }
	all := make([]cells, len(sections))
	for i, s := range sections {
		mean, std, hi, lo := summaryCells(s.Summary)
		all[i] = cells{s.Metric, mean, std, hi, lo}
		widths["metric"] = max(widths["metric"], len(s.Metric))
		widths["mean"] = max(widths["mean"], len(mean))
		widths["std"] = max(widths["std"], len(std))
		widths["max"] = max(widths["max"], len(hi))
		widths["min"] = max(widths["min"], len(lo))
	}

	header := fmt.Sprintf("  %-*s  %*s  %*s  %*s  %*s",
		widths["metric"], "Metric",
		widths["mean"], "Mean",
		widths["std"], "Std",
		widths["max"], "Max",
		widths["min"], "Min")

	rows := []string{header, "  " + strings.Repeat("-", len(header)-2)}
	for _, c := range all {
		rows = append(rows, fmt.Sprintf("  %-*s  %*s  %*s  %*s  %*s",
			widths["metric"], c.metric,
			widths["mean"], c.mean,
			widths["std"], c.std,
			widths["max"], c.max,
			widths["min"], c.min))
	}
	return rows
}

// FormatFrequencyTable renders the channel frequency table. Shared channels
// are green when colorOutput is set.
func FormatFrequencyTable(table ChannelFrequencyTable, colorOutput bool) []string {
	if len(table) == 0 {
		return []string{"No channels found"}
	}

	nameWidth := len("Channel")
	for _, row := range table {
		nameWidth = max(nameWidth, len(row.Channel))
	}

	header := fmt.Sprintf("%-*s  %5s  %-6s", nameWidth, "Channel", "Files", "Shared")
	rows := []string{header, strings.Repeat("-", len(header))}

	green := color.New(color.FgGreen)
	green.EnableColor()

	for _, row := range table {
		shared := "No"
		if row.IsShared {
			shared = "Yes"
		}
		line := fmt.Sprintf("%-*s  %5d  %-6s", nameWidth, row.Channel, row.Frequency, shared)
		if colorOutput && row.IsShared {
			line = green.Sprint(line)
		}
		rows = append(rows, line)
	}

	return rows
}

// ChartOptions configures RenderBarChart
type ChartOptions struct {
	// Width is the length of the longest bar (default DefaultChartWidth)
	Width int
	// Color draws shared bars green and the rest grey
	Color bool
}

// RenderBarChart draws the frequency table as a horizontal bar chart, one bar
// per channel in table order. Without colour, shared bars use a solid block and
// the rest a shaded one so the two stay distinguishable.
func RenderBarChart(table ChannelFrequencyTable, opts ChartOptions) []string {
	width := opts.Width
	if width <= 0 {
		width = DefaultChartWidth
	}

	title := color.New(color.Bold)
	sharedColor := color.New(color.FgGreen)
	otherColor := color.New(color.FgHiBlack)
	for _, c := range []*color.Color{title, sharedColor, otherColor} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	rows := []string{title.Sprint(chartTitle), ""}
	if len(table) == 0 {
		return append(rows, "No channels found")
	}

	nameWidth := 0
	maxFreq := 0
	for _, row := range table {
		nameWidth = max(nameWidth, len(row.Channel))
		maxFreq = max(maxFreq, row.Frequency)
	}

	for _, row := range table {
		n := 0
		if maxFreq > 0 {
			n = row.Frequency * width / maxFreq
		}
		if n == 0 && row.Frequency > 0 {
			n = 1
		}

		var bar string
		if row.IsShared {
			bar = sharedColor.Sprint(strings.Repeat(sharedBarRune, n))
		} else {
			bar = otherColor.Sprint(strings.Repeat(unsharedBarRune, n))
		}
		rows = append(rows, fmt.Sprintf("%*s | %s %d", nameWidth, row.Channel, bar, row.Frequency))
	}

	rows = append(rows,
		fmt.Sprintf("%*s   %s", nameWidth, "", chartXLabel),
		"",
		fmt.Sprintf("Shared Across All Files: %s Yes  %s No",
			sharedColor.Sprint(sharedBarRune), otherColor.Sprint(unsharedBarRune)),
	)
	return rows
}

// wrapList joins items with ", " into lines no longer than width
func wrapList(items []string, width int, indent string) []string {
	var lines []string
	current := indent
	for i, item := range items {
		piece := item
		if i < len(items)-1 {
			piece += ","
		}
		if current != indent && len(current)+1+len(piece) > width {
			lines = append(lines, current)
			current = indent
		}
		if current != indent {
			current += " "
		}
		current += piece
	}
	if current != indent {
		lines = append(lines, current)
	}
	return lines
}

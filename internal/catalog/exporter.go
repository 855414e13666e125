package catalog

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/harrison/eegcat/internal/filelock"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

// metadataColumns is the header of the delimited metadata file
var metadataColumns = []string{
	"file_path",
	"n_channels",
	"sample_rate",
	"duration_sec",
	"n_samples",
	"channel_names",
	"channel_positions",
}

// WriteMetadataFile saves records as CSV at path, one row per record.
// List-valued columns are JSON encoded.
func WriteMetadataFile(path string, records []MetadataRecord) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	var buf bytes.Buffer
	if err := EncodeMetadataCSV(&buf, records); err != nil {
		return err
	}

	return filelock.LockAndWrite(path, buf.Bytes())
}

// EncodeMetadataCSV writes records as CSV to w
func EncodeMetadataCSV(w io.Writer, records []MetadataRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(metadataColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range records {
		names, err := json.Marshal(r.ChannelNames)
		if err != nil {
			return fmt.Errorf("marshal channel names for %s: %w", r.FilePath, err)
		}
		positions, err := json.Marshal(r.ChannelPositions)
		if err != nil {
			return fmt.Errorf("marshal channel positions for %s: %w", r.FilePath, err)
		}

		row := []string{
			r.FilePath,
			strconv.Itoa(r.NChannels),
			formatFloat(r.SampleRate),
			formatFloat(r.DurationSec),
			strconv.FormatInt(r.NSamples, 10),
			string(names),
			string(positions),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row for %s: %w", r.FilePath, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ReadMetadataFile loads records previously saved with WriteMetadataFile
func ReadMetadataFile(path string) ([]MetadataRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata file: %w", err)
	}
	defer f.Close()

	return DecodeMetadataCSV(f)
}

// DecodeMetadataCSV parses CSV produced by EncodeMetadataCSV. Columns are
// located by header name; channel_positions may be absent.
func DecodeMetadataCSV(r io.Reader) ([]MetadataRecord, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return []MetadataRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(col)] = i
	}
	for _, col := range metadataColumns[:6] {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	records := []MetadataRecord{}
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		rec, err := decodeRow(row, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func decodeRow(row []string, index map[string]int) (MetadataRecord, error) {
	var rec MetadataRecord
	var err error

	rec.FilePath = row[index["file_path"]]
	if rec.NChannels, err = strconv.Atoi(row[index["n_channels"]]); err != nil {
		return rec, fmt.Errorf("invalid n_channels: %w", err)
	}
	if rec.SampleRate, err = strconv.ParseFloat(row[index["sample_rate"]], 64); err != nil {
		return rec, fmt.Errorf("invalid sample_rate: %w", err)
	}
	if rec.DurationSec, err = strconv.ParseFloat(row[index["duration_sec"]], 64); err != nil {
		return rec, fmt.Errorf("invalid duration_sec: %w", err)
	}
	if rec.NSamples, err = strconv.ParseInt(row[index["n_samples"]], 10, 64); err != nil {
		return rec, fmt.Errorf("invalid n_samples: %w", err)
	}
	if err := json.Unmarshal([]byte(row[index["channel_names"]]), &rec.ChannelNames); err != nil {
		return rec, fmt.Errorf("invalid channel_names: %w", err)
	}
	if i, ok := index["channel_positions"]; ok && strings.TrimSpace(row[i]) != "" {
		if err := json.Unmarshal([]byte(row[i]), &rec.ChannelPositions); err != nil {
			return rec, fmt.Errorf("invalid channel_positions: %w", err)
		}
	}
	return rec, nil
}

// Report is what the report exporters render
type Report struct {
	Stats    *CorpusStats          `json:"stats" yaml:"stats"`
	Channels ChannelFrequencyTable `json:"channels" yaml:"channels"`
}

// NewReport aggregates records into a Report
func NewReport(records []MetadataRecord, opts StatsOptions) *Report {
	return &Report{
		Stats:    ComputeStats(records, opts),
		Channels: ChannelFrequencies(records),
	}
}

// Exporter renders a report in one format
type Exporter interface {
	Export(report *Report) (string, error)
}

// TextExporter renders the plain console layout
type TextExporter struct{}

// Export renders sections and the frequency table without colour
func (te *TextExporter) Export(report *Report) (string, error) {
	if err := checkReport(report); err != nil {
		return "", err
	}
	lines := FormatSections(report.Stats.Sections(), false)
	lines = append(lines, "")
	lines = append(lines, FormatFrequencyTable(report.Channels, false)...)
	return strings.Join(lines, "\n") + "\n", nil
}

// JSONExporter exports a report as JSON
type JSONExporter struct {
	Pretty bool // Enable pretty printing with indentation
}

// Export converts the report to JSON
func (je *JSONExporter) Export(report *Report) (string, error) {
	if err := checkReport(report); err != nil {
		return "", err
	}

	var data []byte
	var err error
	if je.Pretty {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = json.Marshal(report)
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return string(data), nil
}

// YAMLExporter exports a report as YAML
type YAMLExporter struct{}

// Export converts the report to YAML
func (ye *YAMLExporter) Export(report *Report) (string, error) {
	if err := checkReport(report); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return string(data), nil
}

// MarkdownExporter exports a report as Markdown
type MarkdownExporter struct {
	IncludeTimestamp bool // Include export timestamp in header
}

// Export converts the report to Markdown, one heading per section
func (me *MarkdownExporter) Export(report *Report) (string, error) {
	if err := checkReport(report); err != nil {
		return "", err
	}

	var sb strings.Builder
	stats := report.Stats

	sb.WriteString("# EEG Corpus Report\n\n")
	if me.IncludeTimestamp {
		sb.WriteString(fmt.Sprintf("**Generated**: %s\n\n", time.Now().Format("2006-01-02 15:04:05")))
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Files**: %d\n", stats.FileCount))
	if stats.TargetSampleRate > 0 {
		sb.WriteString(fmt.Sprintf("- **Target Sample Rate**: %s Hz\n", formatFloat(stats.TargetSampleRate)))
		sb.WriteString(fmt.Sprintf("- **Files At Other Rates**: %d\n", stats.OffRateFiles))
	}
	sb.WriteString("\n")

	var numeric []NumericSummary
	var rest []Section
	for _, section := range stats.Sections() {
		if ns, ok := section.(NumericSummary); ok {
			numeric = append(numeric, ns)
			continue
		}
		rest = append(rest, section)
	}

	sb.WriteString("## Numeric Metrics\n\n")
	sb.WriteString("| Metric | Mean | Std | Max | Min |\n")
	sb.WriteString("|--------|------|-----|-----|-----|\n")
	for _, n := range numeric {
		mean, std, max, min := summaryCells(n.Summary)
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n", n.Metric, mean, std, max, min))
	}
	sb.WriteString("\n")

	for _, section := range rest {
		switch s := section.(type) {
		case UniqueValues:
			sb.WriteString(fmt.Sprintf("## Unique Values: %s\n\n", s.Metric))
			if len(s.Values) == 0 {
				sb.WriteString("_no data_\n\n")
				continue
			}
			for _, v := range s.Values {
				sb.WriteString(fmt.Sprintf("- %s\n", formatFloat(v)))
			}
			sb.WriteString("\n")
		case SharedSet:
			sb.WriteString("## Shared Channels\n\n")
			if len(s.Channels) == 0 {
				sb.WriteString("_none_\n\n")
				continue
			}
			quoted := make([]string, len(s.Channels))
			for i, ch := range s.Channels {
				quoted[i] = "`" + ch + "`"
			}
			sb.WriteString(strings.Join(quoted, ", "))
			sb.WriteString("\n\n")
		}
	}

	if len(report.Channels) > 0 {
		sb.WriteString("## Channel Frequencies\n\n")
		sb.WriteString("| Channel | Files | Shared |\n")
		sb.WriteString("|---------|-------|--------|\n")
		for _, row := range report.Channels {
			shared := "No"
			if row.IsShared {
				shared = "Yes"
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %s |\n", row.Channel, row.Frequency, shared))
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// HTMLExporter renders the Markdown report to a standalone HTML page
type HTMLExporter struct {
	IncludeTimestamp bool
}

// Export converts the report to HTML
func (he *HTMLExporter) Export(report *Report) (string, error) {
	md, err := (&MarkdownExporter{IncludeTimestamp: he.IncludeTimestamp}).Export(report)
	if err != nil {
		return "", err
	}

	converter := goldmark.New(goldmark.WithExtensions(extension.Table))
	var body bytes.Buffer
	if err := converter.Convert([]byte(md), &body); err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>EEG Corpus Report</title>\n</head>\n<body>\n")
	sb.Write(body.Bytes())
	sb.WriteString("</body>\n</html>\n")
	return sb.String(), nil
}

func checkReport(report *Report) error {
	if report == nil || report.Stats == nil {
		return fmt.Errorf("report cannot be nil")
	}
	return nil
}

// exporterFor maps a format name to its exporter
// Supports format values: "text", "json", "yaml", "markdown", "md", "html"
func exporterFor(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "text", "txt", "":
		return &TextExporter{}, nil
	case "json":
		return &JSONExporter{Pretty: true}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "markdown", "md":
		return &MarkdownExporter{IncludeTimestamp: true}, nil
	case "html":
		return &HTMLExporter{IncludeTimestamp: true}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: text, json, yaml, markdown, html)", format)
	}
}

// ExportToString renders report in the named format
func ExportToString(report *Report, format string) (string, error) {
	exporter, err := exporterFor(format)
	if err != nil {
		return "", err
	}
	return exporter.Export(report)
}

// ExportToFile renders report in the named format and writes it to path
func ExportToFile(report *Report, path string, format string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	content, err := ExportToString(report, format)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	return filelock.LockAndWrite(path, []byte(content))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// summaryCells formats a summary for a table row; nil renders as n/a
func summaryCells(s *Summary) (mean, std, max, min string) {
	if s == nil {
		return "n/a", "n/a", "n/a", "n/a"
	}
	return formatFloat(s.Mean), formatFloat(s.Std), formatFloat(s.Max), formatFloat(s.Min)
}

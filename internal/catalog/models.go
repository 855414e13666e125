package catalog

import (
	"fmt"
	"math"

	"github.com/harrison/eegcat/internal/edf"
)

// durationTolerance is the relative tolerance used when checking that a
// record's duration agrees with its sample count and rate.
const durationTolerance = 1e-6

// FileRecord is a recording file found during discovery
type FileRecord struct {
	Path    string `json:"path"`    // Absolute path to the file
	Name    string `json:"name"`    // Base filename
	Montage string `json:"montage"` // Montage tag the path matched
	Label   string `json:"label"`   // Diagnostic label the path matched
}

// ChannelPosition is the per-signal descriptor carried through from the EDF
// header. It is not interpreted by the catalog.
type ChannelPosition = edf.Signal

// MetadataRecord holds the header-derived metadata of one recording
type MetadataRecord struct {
	FilePath         string            `json:"file_path" yaml:"file_path"`
	NChannels        int               `json:"n_channels" yaml:"n_channels"`
	SampleRate       float64           `json:"sample_rate" yaml:"sample_rate"`
	DurationSec      float64           `json:"duration_sec" yaml:"duration_sec"`
	NSamples         int64             `json:"n_samples" yaml:"n_samples"`
	ChannelNames     []string          `json:"channel_names" yaml:"channel_names"`
	ChannelPositions []ChannelPosition `json:"channel_positions" yaml:"channel_positions"`
}

// Validate checks the record's internal consistency
func (m *MetadataRecord) Validate() error {
	if m.FilePath == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if m.NChannels != len(m.ChannelNames) {
		return fmt.Errorf("channel count %d does not match %d channel names", m.NChannels, len(m.ChannelNames))
	}
	if m.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %v", m.SampleRate)
	}
	if m.NSamples < 0 {
		return fmt.Errorf("sample count cannot be negative, got %d", m.NSamples)
	}

	seen := make(map[string]bool, len(m.ChannelNames))
	for _, name := range m.ChannelNames {
		if seen[name] {
			return fmt.Errorf("duplicate channel name %q", name)
		}
		seen[name] = true
	}

	want := float64(m.NSamples) / m.SampleRate
	if math.Abs(m.DurationSec-want) > durationTolerance*math.Max(1, want) {
		return fmt.Errorf("duration %v inconsistent with %d samples at %v Hz", m.DurationSec, m.NSamples, m.SampleRate)
	}
	return nil
}

// HasChannel reports whether the record lists the named channel
func (m *MetadataRecord) HasChannel(name string) bool {
	for _, ch := range m.ChannelNames {
		if ch == name {
			return true
		}
	}
	return false
}

// ExtractResult is the outcome of extracting one file: either a record or the
// reason extraction failed. Exactly one of Record and Err is set.
type ExtractResult struct {
	Path   string
	Record *MetadataRecord
	Err    error
}

// OK reports whether extraction succeeded
func (r ExtractResult) OK() bool {
	return r.Err == nil && r.Record != nil
}

// Records returns the successful records from results, in order
func Records(results []ExtractResult) []MetadataRecord {
	records := make([]MetadataRecord, 0, len(results))
	for _, r := range results {
		if r.OK() {
			records = append(records, *r.Record)
		}
	}
	return records
}

// Failures returns the failed results, in order
func Failures(results []ExtractResult) []ExtractResult {
	var failed []ExtractResult
	for _, r := range results {
		if !r.OK() {
			failed = append(failed, r)
		}
	}
	return failed
}

// Summary is the distribution of one numeric metric. A nil *Summary means the
// metric had no data.
type Summary struct {
	Mean float64 `json:"mean" yaml:"mean"`
	Std  float64 `json:"std" yaml:"std"`
	Max  float64 `json:"max" yaml:"max"`
	Min  float64 `json:"min" yaml:"min"`
}

// CorpusStats contains summary statistics over a collection of records
type CorpusStats struct {
	FileCount      int       `json:"file_count" yaml:"file_count"`
	Duration       *Summary  `json:"duration_sec" yaml:"duration_sec"`
	Channels       *Summary  `json:"n_channels" yaml:"n_channels"`
	Samples        *Summary  `json:"n_samples" yaml:"n_samples"`
	SampleRates    []float64 `json:"sample_rate" yaml:"sample_rate"`
	SharedChannels []string  `json:"shared_channels" yaml:"shared_channels"`

	// TargetSampleRate is the rate the corpus is expected to be resampled to
	// (0 when not configured) and OffRateFiles counts records recorded at any
	// other rate.
	TargetSampleRate float64 `json:"target_sample_rate,omitempty" yaml:"target_sample_rate,omitempty"`
	OffRateFiles     int     `json:"off_rate_files" yaml:"off_rate_files"`
}

// ChannelFrequency is one row of the channel frequency table
type ChannelFrequency struct {
	Channel   string `json:"channel" yaml:"channel"`
	Frequency int    `json:"frequency" yaml:"frequency"`
	IsShared  bool   `json:"is_shared" yaml:"is_shared"`
}

// ChannelFrequencyTable lists every channel name seen in a corpus, most
// frequent first
type ChannelFrequencyTable []ChannelFrequency

// Top returns the first n rows, or the whole table when n <= 0
func (t ChannelFrequencyTable) Top(n int) ChannelFrequencyTable {
	if n <= 0 || n >= len(t) {
		return t
	}
	return t[:n]
}

// Lookup returns the row for the named channel
func (t ChannelFrequencyTable) Lookup(name string) (ChannelFrequency, bool) {
	for _, row := range t {
		if row.Channel == name {
			return row, true
		}
	}
	return ChannelFrequency{}, false
}

package catalog

import (
	"math"
	"sort"
)

// Metric names used in reports and saved files
const (
	MetricDuration       = "duration_sec"
	MetricChannels       = "n_channels"
	MetricSamples        = "n_samples"
	MetricSampleRate     = "sample_rate"
	MetricSharedChannels = "shared_channels"
)

// DefaultRounding is the number of decimals kept for means and standard deviations
const DefaultRounding = 2

// StatsOptions tunes ComputeStats
type StatsOptions struct {
	// Rounding is the number of decimals kept for mean and std; negative disables rounding
	Rounding int
	// TargetSampleRate, when positive, enables the OffRateFiles count
	TargetSampleRate float64
}

// ComputeStats folds records into corpus statistics. Every field is recomputed
// from the full slice; an empty slice yields nil summaries and empty sets.
func ComputeStats(records []MetadataRecord, opts StatsOptions) *CorpusStats {
	stats := &CorpusStats{
		FileCount:        len(records),
		SampleRates:      UniqueSampleRates(records),
		SharedChannels:   SharedChannels(records),
		TargetSampleRate: opts.TargetSampleRate,
	}

	durations := make([]float64, len(records))
	channels := make([]float64, len(records))
	samples := make([]float64, len(records))
	for i, r := range records {
		durations[i] = r.DurationSec
		channels[i] = float64(r.NChannels)
		samples[i] = float64(r.NSamples)
		if opts.TargetSampleRate > 0 && r.SampleRate != opts.TargetSampleRate {
			stats.OffRateFiles++
		}
	}

	stats.Duration = Summarize(durations, opts.Rounding)
	stats.Channels = Summarize(channels, opts.Rounding)
	stats.Samples = Summarize(samples, opts.Rounding)

	return stats
}

// Summarize computes mean, population standard deviation, max and min.
// Returns nil for an empty input so callers can tell "no data" from zero.
func Summarize(values []float64, rounding int) *Summary {
	if len(values) == 0 {
		return nil
	}

	s := &Summary{Max: values[0], Min: values[0]}
	var sum float64
	for _, v := range values {
		sum += v
		if v > s.Max {
			s.Max = v
		}
		if v < s.Min {
			s.Min = v
		}
	}
	n := float64(len(values))
	mean := sum / n

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}

	s.Mean = roundTo(mean, rounding)
	s.Std = roundTo(math.Sqrt(sq/n), rounding)
	return s
}

// roundTo rounds half to even, matching the usual numeric library behaviour
func roundTo(v float64, decimals int) float64 {
	if decimals < 0 {
		return v
	}
	scale := math.Pow(10, float64(decimals))
	return math.RoundToEven(v*scale) / scale
}

// UniqueSampleRates returns the distinct sample rates, ascending
func UniqueSampleRates(records []MetadataRecord) []float64 {
	seen := make(map[float64]bool)
	rates := []float64{}
	for _, r := range records {
		if seen[r.SampleRate] {
			continue
		}
		seen[r.SampleRate] = true
		rates = append(rates, r.SampleRate)
	}
	sort.Float64s(rates)
	return rates
}

// SharedChannels returns the channel names present in every record, sorted.
// The running intersection starts from the first record and stops early once
// it is empty.
func SharedChannels(records []MetadataRecord) []string {
	if len(records) == 0 {
		return []string{}
	}

	common := make(map[string]bool, len(records[0].ChannelNames))
	for _, ch := range records[0].ChannelNames {
		common[ch] = true
	}

	for _, r := range records[1:] {
		if len(common) == 0 {
			break
		}
		present := make(map[string]bool, len(r.ChannelNames))
		for _, ch := range r.ChannelNames {
			present[ch] = true
		}
		for ch := range common {
			if !present[ch] {
				delete(common, ch)
			}
		}
	}

	shared := make([]string, 0, len(common))
	for ch := range common {
		shared = append(shared, ch)
	}
	sort.Strings(shared)
	return shared
}

// ChannelFrequencies counts channel name occurrences across all records.
// Rows are sorted by descending frequency, then by name.
func ChannelFrequencies(records []MetadataRecord) ChannelFrequencyTable {
	counts := make(map[string]int)
	for _, r := range records {
		for _, ch := range r.ChannelNames {
			counts[ch]++
		}
	}

	shared := make(map[string]bool)
	for _, ch := range SharedChannels(records) {
		shared[ch] = true
	}

	table := make(ChannelFrequencyTable, 0, len(counts))
	for ch, n := range counts {
		table = append(table, ChannelFrequency{
			Channel:   ch,
			Frequency: n,
			IsShared:  shared[ch],
		})
	}

	sort.Slice(table, func(i, j int) bool {
		if table[i].Frequency != table[j].Frequency {
			return table[i].Frequency > table[j].Frequency
		}
		return table[i].Channel < table[j].Channel
	})

	return table
}

// Section is one block of a corpus report. The concrete types are
// NumericSummary, UniqueValues and SharedSet.
type Section interface {
	// Name is the metric the section reports on
	Name() string
	isSection()
}

// NumericSummary reports the distribution of one numeric metric
type NumericSummary struct {
	Metric  string
	Summary *Summary
}

// UniqueValues reports the distinct values of a metric
type UniqueValues struct {
	Metric string
	Values []float64
}

// SharedSet reports the channels common to every file
type SharedSet struct {
	Channels []string
}

func (s NumericSummary) Name() string { return s.Metric }
func (s UniqueValues) Name() string   { return s.Metric }
func (s SharedSet) Name() string      { return MetricSharedChannels }

func (NumericSummary) isSection() {}
func (UniqueValues) isSection()   {}
func (SharedSet) isSection()      {}

// Sections returns the report sections in display order
func (s *CorpusStats) Sections() []Section {
	return []Section{
		NumericSummary{Metric: MetricDuration, Summary: s.Duration},
		NumericSummary{Metric: MetricChannels, Summary: s.Channels},
		NumericSummary{Metric: MetricSamples, Summary: s.Samples},
		UniqueValues{Metric: MetricSampleRate, Values: s.SampleRates},
		SharedSet{Channels: s.SharedChannels},
	}
}

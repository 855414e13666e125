// Package edf reads the header of European Data Format (EDF and EDF+) recordings.
//
// Only the fixed 256-byte header and the per-signal header block are read. Data
// records are never loaded, which keeps cataloguing a large corpus cheap: the file
// handle is opened, the header decoded and the handle closed before returning.
//
// Header layout (all fields are space-padded ASCII):
//
//	8   version            80  patient id        80  recording id
//	8   start date         8   start time        8   header bytes
//	44  reserved           8   data records      8   record duration (s)
//	4   number of signals (ns)
//
// followed by ns copies of each signal field, field by field:
//
//	16 label, 80 transducer, 8 physical dimension, 8 physical min,
//	8 physical max, 8 digital min, 8 digital max, 80 prefiltering,
//	8 samples per record, 32 reserved
package edf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// FixedHeaderSize is the size of the recording-level header block.
	FixedHeaderSize = 256
	// SignalHeaderSize is the size of the header block contributed by each signal.
	SignalHeaderSize = 256

	// AnnotationLabel marks EDF+ annotation signals, which carry no samples.
	AnnotationLabel = "EDF Annotations"

	// bytesPerSample is the width of one EDF sample (16-bit little endian).
	bytesPerSample = 2
)

var (
	// ErrNotEDF is returned when the version field is not the EDF "0" marker.
	ErrNotEDF = errors.New("not an EDF file")
	// ErrTruncated is returned when the file ends inside the header.
	ErrTruncated = errors.New("truncated EDF header")
	// ErrNoSamples is returned when no data signal declares any samples per record.
	ErrNoSamples = errors.New("no samples per data record")
)

var fixedFieldWidths = []int{8, 80, 80, 8, 8, 8, 44, 8, 8, 4}

var signalFieldWidths = []int{16, 80, 8, 8, 8, 8, 8, 80, 8, 32}

// Signal describes one signal (channel) as declared in the header.
type Signal struct {
	Label             string  `json:"label" yaml:"label"`
	Transducer        string  `json:"transducer" yaml:"transducer"`
	PhysicalDimension string  `json:"physical_dimension" yaml:"physical_dimension"`
	PhysicalMin       float64 `json:"physical_min" yaml:"physical_min"`
	PhysicalMax       float64 `json:"physical_max" yaml:"physical_max"`
	DigitalMin        int     `json:"digital_min" yaml:"digital_min"`
	DigitalMax        int     `json:"digital_max" yaml:"digital_max"`
	Prefiltering      string  `json:"prefiltering" yaml:"prefiltering"`
	SamplesPerRecord  int     `json:"samples_per_record" yaml:"samples_per_record"`
	Reserved          string  `json:"-" yaml:"-"`
}

// IsAnnotation reports whether the signal is an EDF+ annotation channel.
func (s Signal) IsAnnotation() bool {
	return s.Label == AnnotationLabel
}

// Header is a decoded EDF header.
type Header struct {
	Version        string
	PatientID      string
	RecordingID    string
	StartDate      string // dd.mm.yy
	StartTime      string // hh.mm.ss
	HeaderBytes    int
	Reserved       string // "EDF+C" / "EDF+D" for EDF+ files
	NumRecords     int64
	RecordDuration float64 // seconds
	Signals        []Signal
}

// IsEDFPlus reports whether the reserved field carries an EDF+ marker.
func (h *Header) IsEDFPlus() bool {
	return strings.HasPrefix(h.Reserved, "EDF+")
}

// DataSignals returns the signals that carry samples, in header order.
// Annotation channels are excluded.
func (h *Header) DataSignals() []Signal {
	out := make([]Signal, 0, len(h.Signals))
	for _, s := range h.Signals {
		if s.IsAnnotation() {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ChannelNames returns the data signal labels made unique within the file.
func (h *Header) ChannelNames() []string {
	signals := h.DataSignals()
	names := make([]string, len(signals))
	for i, s := range signals {
		names[i] = s.Label
	}
	return UniqueNames(names)
}

// maxSamplesPerRecord is the highest per-record sample count among data signals.
func (h *Header) maxSamplesPerRecord() int {
	n := 0
	for _, s := range h.DataSignals() {
		n = max(n, s.SamplesPerRecord)
	}
	return n
}

// SampleRate returns the recording sample rate in Hz. Signals sampled at lower
// rates are reported at the rate of the fastest signal.
func (h *Header) SampleRate() float64 {
	if h.RecordDuration <= 0 {
		return 0
	}
	return float64(h.maxSamplesPerRecord()) / h.RecordDuration
}

// NumSamples returns the number of samples per channel at SampleRate.
func (h *Header) NumSamples() int64 {
	if h.NumRecords <= 0 {
		return 0
	}
	return h.NumRecords * int64(h.maxSamplesPerRecord())
}

// Duration returns the recording length in seconds.
func (h *Header) Duration() float64 {
	rate := h.SampleRate()
	if rate == 0 {
		return 0
	}
	return float64(h.NumSamples()) / rate
}

// recordBytes is the on-disk size of one data record across all signals.
func (h *Header) recordBytes() int64 {
	var total int64
	for _, s := range h.Signals {
		total += int64(s.SamplesPerRecord) * bytesPerSample
	}
	return total
}

// UniqueNames makes duplicate labels unique by suffixing every member of a
// duplicate group with "-<n>", where n counts occurrences of that label in order.
// Unique labels are left untouched.
func UniqueNames(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	for {
		counts := make(map[string]int, len(out))
		for _, n := range out {
			counts[n]++
		}
		dup := false
		seen := make(map[string]int, len(out))
		for i, n := range out {
			if counts[n] < 2 {
				continue
			}
			dup = true
			out[i] = fmt.Sprintf("%s-%d", n, seen[n])
			seen[n]++
		}
		if !dup {
			return out
		}
	}
}

// parseFixed decodes the fixed header block. Signal headers are decoded separately
// once the signal count is known.
func parseFixed(buf []byte) (*Header, int, error) {
	fields := splitFields(buf, fixedFieldWidths)

	h := &Header{
		Version:     fields[0],
		PatientID:   fields[1],
		RecordingID: fields[2],
		StartDate:   fields[3],
		StartTime:   fields[4],
		Reserved:    fields[6],
	}
	if h.Version != "0" {
		return nil, 0, fmt.Errorf("%w: version %q", ErrNotEDF, h.Version)
	}

	var err error
	if h.HeaderBytes, err = parseIntField("header bytes", fields[5]); err != nil {
		return nil, 0, err
	}
	numRecords, err := parseIntField("number of data records", fields[7])
	if err != nil {
		return nil, 0, err
	}
	h.NumRecords = int64(numRecords)
	if h.RecordDuration, err = parseFloatField("data record duration", fields[8]); err != nil {
		return nil, 0, err
	}
	ns, err := parseIntField("number of signals", fields[9])
	if err != nil {
		return nil, 0, err
	}
	if ns <= 0 {
		return nil, 0, fmt.Errorf("invalid number of signals: %d", ns)
	}
	if want := FixedHeaderSize + ns*SignalHeaderSize; h.HeaderBytes != want {
		return nil, 0, fmt.Errorf("header bytes %d does not match %d signals (want %d)", h.HeaderBytes, ns, want)
	}
	return h, ns, nil
}

// parseSignals decodes ns signal headers. Each field is stored for all signals
// before the next field starts.
func parseSignals(buf []byte, ns int) ([]Signal, error) {
	signals := make([]Signal, ns)
	off := 0
	for field, width := range signalFieldWidths {
		for i := 0; i < ns; i++ {
			raw := trimField(buf[off : off+width])
			off += width
			if err := setSignalField(&signals[i], field, raw); err != nil {
				return nil, fmt.Errorf("signal %d: %w", i, err)
			}
		}
	}
	return signals, nil
}

func setSignalField(s *Signal, field int, raw string) error {
	var err error
	switch field {
	case 0:
		s.Label = raw
	case 1:
		s.Transducer = raw
	case 2:
		s.PhysicalDimension = raw
	case 3:
		s.PhysicalMin, err = parseFloatField("physical minimum", raw)
	case 4:
		s.PhysicalMax, err = parseFloatField("physical maximum", raw)
	case 5:
		s.DigitalMin, err = parseIntField("digital minimum", raw)
	case 6:
		s.DigitalMax, err = parseIntField("digital maximum", raw)
	case 7:
		s.Prefiltering = raw
	case 8:
		s.SamplesPerRecord, err = parseIntField("samples per record", raw)
		if err == nil && s.SamplesPerRecord < 0 {
			err = fmt.Errorf("negative samples per record: %d", s.SamplesPerRecord)
		}
	case 9:
		s.Reserved = raw
	}
	return err
}

func splitFields(buf []byte, widths []int) []string {
	out := make([]string, len(widths))
	off := 0
	for i, w := range widths {
		out[i] = trimField(buf[off : off+w])
		off += w
	}
	return out
}

func trimField(b []byte) string {
	return strings.TrimRight(strings.TrimSpace(string(b)), "\x00")
}

func parseIntField(name, raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		// Some writers emit integral values as "1.0".
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
		return int(f), nil
	}
	return v, nil
}

func parseFloatField(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return v, nil
}

package edf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadHeader opens path, decodes its header and closes the file.
// No data records are read.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open edf file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat edf file: %w", err)
	}

	return Decode(f, info.Size())
}

// Decode reads a header from r. size is the total file size in bytes and is
// only consulted when the header declares an unknown (-1) number of data
// records; pass 0 when it is not known.
func Decode(r io.Reader, size int64) (*Header, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, readErr(err)
	}

	h, ns, err := parseFixed(fixed)
	if err != nil {
		return nil, err
	}

	sigBuf := make([]byte, ns*SignalHeaderSize)
	if _, err := io.ReadFull(r, sigBuf); err != nil {
		return nil, readErr(err)
	}
	if h.Signals, err = parseSignals(sigBuf, ns); err != nil {
		return nil, err
	}

	if h.RecordDuration <= 0 {
		return nil, fmt.Errorf("invalid data record duration: %v", h.RecordDuration)
	}
	if len(h.DataSignals()) == 0 {
		return nil, errors.New("no data signals in header")
	}
	if h.maxSamplesPerRecord() == 0 {
		return nil, fmt.Errorf("%w: all %d data signals declare 0", ErrNoSamples, len(h.DataSignals()))
	}

	if h.NumRecords < 0 {
		if err := h.recoverNumRecords(size); err != nil {
			return nil, err
		}
	}

	return h, nil
}

// recoverNumRecords derives the data record count from the file size when a
// writer left it as -1 (recording interrupted before the header was patched).
func (h *Header) recoverNumRecords(size int64) error {
	recBytes := h.recordBytes()
	dataBytes := size - int64(h.HeaderBytes)
	if size <= 0 || recBytes == 0 || dataBytes < 0 {
		return fmt.Errorf("number of data records is unknown and cannot be derived from file size %d", size)
	}
	h.NumRecords = dataBytes / recBytes
	return nil
}

func readErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return fmt.Errorf("read edf header: %w", err)
}

// NewHeader builds a minimal EDF header for labels that share one sampling
// layout. HeaderBytes is filled in.
func NewHeader(labels []string, samplesPerRecord int, recordDuration float64, numRecords int64) *Header {
	h := &Header{
		Version:        "0",
		PatientID:      "X X X X",
		RecordingID:    "Startdate X X X X",
		StartDate:      "01.01.00",
		StartTime:      "00.00.00",
		NumRecords:     numRecords,
		RecordDuration: recordDuration,
		Signals:        make([]Signal, len(labels)),
	}
	for i, label := range labels {
		h.Signals[i] = Signal{
			Label:             label,
			Transducer:        "AgAgCl electrode",
			PhysicalDimension: "uV",
			PhysicalMin:       -3200,
			PhysicalMax:       3200,
			DigitalMin:        -32768,
			DigitalMax:        32767,
			Prefiltering:      "HP:0.1Hz LP:75Hz",
			SamplesPerRecord:  samplesPerRecord,
		}
	}
	h.HeaderBytes = FixedHeaderSize + len(labels)*SignalHeaderSize
	return h
}

// MarshalBinary encodes the header in EDF layout. HeaderBytes is recomputed
// from the signal count.
func (h *Header) MarshalBinary() ([]byte, error) {
	ns := len(h.Signals)
	if ns == 0 {
		return nil, errors.New("header has no signals")
	}
	headerBytes := FixedHeaderSize + ns*SignalHeaderSize

	var buf bytes.Buffer
	buf.Grow(headerBytes)

	fixed := []string{
		h.Version,
		h.PatientID,
		h.RecordingID,
		h.StartDate,
		h.StartTime,
		strconv.Itoa(headerBytes),
		h.Reserved,
		strconv.FormatInt(h.NumRecords, 10),
		formatNumber(h.RecordDuration),
		strconv.Itoa(ns),
	}
	for i, v := range fixed {
		if err := writeField(&buf, v, fixedFieldWidths[i]); err != nil {
			return nil, err
		}
	}

	for field, width := range signalFieldWidths {
		for _, s := range h.Signals {
			if err := writeField(&buf, signalFieldValue(s, field), width); err != nil {
				return nil, fmt.Errorf("signal %q: %w", s.Label, err)
			}
		}
	}

	return buf.Bytes(), nil
}

func signalFieldValue(s Signal, field int) string {
	switch field {
	case 0:
		return s.Label
	case 1:
		return s.Transducer
	case 2:
		return s.PhysicalDimension
	case 3:
		return formatNumber(s.PhysicalMin)
	case 4:
		return formatNumber(s.PhysicalMax)
	case 5:
		return strconv.Itoa(s.DigitalMin)
	case 6:
		return strconv.Itoa(s.DigitalMax)
	case 7:
		return s.Prefiltering
	case 8:
		return strconv.Itoa(s.SamplesPerRecord)
	default:
		return s.Reserved
	}
}

func writeField(buf *bytes.Buffer, v string, width int) error {
	if len(v) > width {
		return fmt.Errorf("value %q exceeds field width %d", v, width)
	}
	buf.WriteString(v)
	buf.WriteString(strings.Repeat(" ", width-len(v)))
	return nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

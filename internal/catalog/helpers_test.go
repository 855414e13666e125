package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harrison/eegcat/internal/edf"
	"github.com/stretchr/testify/require"
)

// writeRecording writes a header-only EDF file at path with one signal per
// label, creating parent directories.
func writeRecording(t *testing.T, path string, labels []string, samplesPerRecord int, numRecords int64) {
	t.Helper()

	h := edf.NewHeader(labels, samplesPerRecord, 1, numRecords)
	data, err := h.MarshalBinary()
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

// writeFile writes arbitrary content at path, creating parent directories.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// record builds a MetadataRecord for aggregation tests.
func record(path string, rate float64, samples int64, channels ...string) MetadataRecord {
	return MetadataRecord{
		FilePath:     path,
		NChannels:    len(channels),
		SampleRate:   rate,
		DurationSec:  float64(samples) / rate,
		NSamples:     samples,
		ChannelNames: channels,
	}
}

type recordingLogger struct {
	infos []string
	warns []string
}

func (l *recordingLogger) LogInfo(message string) { l.infos = append(l.infos, message) }
func (l *recordingLogger) LogWarn(message string) { l.warns = append(l.warns, message) }

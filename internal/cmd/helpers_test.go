package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrison/eegcat/internal/edf"
)

// setupHome points EEGCAT_HOME at a fresh directory so tests never touch the
// user's catalog or config.
func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("EEGCAT_HOME", home)
	return home
}

// execute runs the root command with args and returns stdout and stderr
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	root := NewRootCommand()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeRecording(t *testing.T, path string, labels []string, samplesPerRecord int, numRecords int64) {
	t.Helper()

	data, err := edf.NewHeader(labels, samplesPerRecord, 1, numRecords).MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

// buildCorpus lays out a small TUH-style tree:
//
//	00_epilepsy/.../01_tcp_ar: a.edf (3 channels, 256 Hz), b.edf (2 channels,
//	250 Hz), corrupt.edf
//	00_epilepsy/.../02_tcp_le: c.edf
//	01_no_epilepsy/.../01_tcp_ar: d.edf
//	00_epilepsy/notes: readme.txt only
func buildCorpus(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	ar := filepath.Join(root, "00_epilepsy", "aaaaaaav", "s001_2009", "01_tcp_ar")
	writeRecording(t, filepath.Join(ar, "a.edf"), []string{"EEG FP1-REF", "EEG FP2-REF", "EEG C3-REF"}, 256, 10)
	writeRecording(t, filepath.Join(ar, "b.edf"), []string{"EEG FP1-REF", "EEG FP2-REF"}, 250, 4)
	if err := os.WriteFile(filepath.Join(ar, "corrupt.edf"), bytes.Repeat([]byte("x"), 300), 0644); err != nil {
		t.Fatal(err)
	}

	le := filepath.Join(root, "00_epilepsy", "aaaaaaaw", "s002_2010", "02_tcp_le")
	writeRecording(t, filepath.Join(le, "c.edf"), []string{"EEG FP1-LE"}, 256, 2)

	noEp := filepath.Join(root, "01_no_epilepsy", "aaaaaaax", "s001_2011", "01_tcp_ar")
	writeRecording(t, filepath.Join(noEp, "d.edf"), []string{"EEG FP1-REF"}, 256, 2)

	notes := filepath.Join(root, "00_epilepsy", "notes")
	if err := os.MkdirAll(notes, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(notes, "readme.txt"), []byte("notes"), 0644); err != nil {
		t.Fatal(err)
	}

	return root
}

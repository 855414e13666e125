package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrison/eegcat/internal/catalog"
	"github.com/harrison/eegcat/internal/store"
)

// storeScan scans root into the catalog database under EEGCAT_HOME
func storeScan(t *testing.T, root string, extra ...string) {
	t.Helper()
	args := append([]string{"scan", root, "--store"}, extra...)
	if _, _, err := execute(t, "", args...); err != nil {
		t.Fatalf("scan --store error = %v", err)
	}
}

func TestStatsFromLatestRun(t *testing.T) {
	setupHome(t)
	root := buildCorpus(t)

	storeScan(t, root, "--no-epilepsy")
	storeScan(t, root)

	stdout, _, err := execute(t, "", "stats", "--format", "json")
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}

	var report catalog.Report
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("stats output is not JSON: %v\n%s", err, stdout)
	}
	if report.Stats.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2 from the latest run", report.Stats.FileCount)
	}
	if want := []string{"EEG FP1-REF", "EEG FP2-REF"}; strings.Join(report.Stats.SharedChannels, ",") != strings.Join(want, ",") {
		t.Errorf("SharedChannels = %v, want %v", report.Stats.SharedChannels, want)
	}
}

func TestStatsFromRunPrefix(t *testing.T) {
	home := setupHome(t)
	root := buildCorpus(t)

	storeScan(t, root, "--no-epilepsy")
	storeScan(t, root)

	s, err := store.NewStore(filepath.Join(home, "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	runs, err := s.ListRuns(context.Background(), 0)
	s.Close()
	if err != nil || len(runs) != 2 {
		t.Fatalf("ListRuns() = %d runs, %v", len(runs), err)
	}
	older := runs[1]

	stdout, _, err := execute(t, "", "stats", "--run", older.ID[:8])
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	if !strings.Contains(stdout, "Corpus statistics (1 files)") {
		t.Errorf("stats for the no-epilepsy run:\n%s", stdout)
	}
}

func TestStatsErrors(t *testing.T) {
	setupHome(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no stored runs", []string{"stats"}, "no stored scan runs"},
		{"missing metadata file", []string{"stats", "--input", filepath.Join(t.TempDir(), "missing.txt")}, "metadata file not found"},
		{"both sources", []string{"stats", "--input", "x.txt", "--run", "abc"}, "cannot use both --input and --run"},
		{"positional argument", []string{"stats", "extra"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestStatsUnknownRun(t *testing.T) {
	setupHome(t)
	storeScan(t, buildCorpus(t))

	_, _, err := execute(t, "", "stats", "--run", "zzzz")
	if !errors.Is(err, store.ErrRunNotFound) {
		t.Errorf("error = %v, want ErrRunNotFound", err)
	}
}

func TestStatsExplicitCatalogDB(t *testing.T) {
	setupHome(t)
	root := buildCorpus(t)
	dbPath := filepath.Join(t.TempDir(), "elsewhere", "catalog.db")

	storeScan(t, root, "--catalog-db", dbPath)

	if _, _, err := execute(t, "", "stats"); err == nil {
		t.Error("default catalog should be empty")
	}

	stdout, _, err := execute(t, "", "stats", "--catalog-db", dbPath)
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	if !strings.Contains(stdout, "Corpus statistics (2 files)") {
		t.Errorf("stats output:\n%s", stdout)
	}
}

package cmd

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrison/eegcat/internal/store"
)

func latestStoredRun(t *testing.T, home string) *store.ScanRun {
	t.Helper()
	s, err := store.NewStore(filepath.Join(home, "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	run, err := s.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("LatestRun() error = %v", err)
	}
	return run
}

func TestRunsListEmpty(t *testing.T) {
	setupHome(t)

	stdout, _, err := execute(t, "", "runs")
	if err != nil {
		t.Fatalf("runs error = %v", err)
	}
	if !strings.Contains(stdout, "No stored runs") {
		t.Errorf("output:\n%s", stdout)
	}
}

func TestRunsList(t *testing.T) {
	home := setupHome(t)
	root := buildCorpus(t)
	storeScan(t, root, "--no-epilepsy")
	storeScan(t, root)
	latest := latestStoredRun(t, home)

	stdout, _, err := execute(t, "", "runs")
	if err != nil {
		t.Fatalf("runs error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got:\n%s", stdout)
	}
	if !strings.HasPrefix(lines[1], latest.ShortID()) {
		t.Errorf("newest run should be listed first:\n%s", stdout)
	}
	if !strings.Contains(lines[1], "00_epilepsy") || !strings.Contains(lines[2], "01_no_epilepsy") {
		t.Errorf("labels out of order:\n%s", stdout)
	}

	stdout, _, err = execute(t, "", "runs", "--limit", "1")
	if err != nil {
		t.Fatalf("runs --limit error = %v", err)
	}
	if got := len(strings.Split(strings.TrimSpace(stdout), "\n")); got != 2 {
		t.Errorf("--limit 1 printed %d lines:\n%s", got, stdout)
	}
}

func TestRunsShow(t *testing.T) {
	home := setupHome(t)
	root := buildCorpus(t)
	storeScan(t, root, "--workers", "3")
	run := latestStoredRun(t, home)

	stdout, _, err := execute(t, "", "runs", "show", run.ShortID())
	if err != nil {
		t.Fatalf("runs show error = %v", err)
	}

	for _, want := range []string{
		"Run:        " + run.ID,
		"Root:       " + root,
		"Workers:    3",
		"Files:      3 found, 2 read, 1 failed",
		"Failures:",
		"corrupt.edf",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestRunsDelete(t *testing.T) {
	home := setupHome(t)
	storeScan(t, buildCorpus(t))
	run := latestStoredRun(t, home)

	stdout, _, err := execute(t, "n\n", "runs", "delete", run.ShortID())
	if err != nil {
		t.Fatalf("runs delete error = %v", err)
	}
	if !strings.Contains(stdout, "Aborted.") {
		t.Errorf("declined delete output:\n%s", stdout)
	}
	latestStoredRun(t, home)

	stdout, _, err = execute(t, "", "runs", "delete", run.ShortID(), "--yes")
	if err != nil {
		t.Fatalf("runs delete --yes error = %v", err)
	}
	if !strings.Contains(stdout, "Deleted run "+run.ShortID()) {
		t.Errorf("delete output:\n%s", stdout)
	}

	_, _, err = execute(t, "", "runs", "show", run.ID)
	if !errors.Is(err, store.ErrRunNotFound) {
		t.Errorf("show after delete error = %v, want ErrRunNotFound", err)
	}
}

func TestRunsDeleteConfirmed(t *testing.T) {
	home := setupHome(t)
	storeScan(t, buildCorpus(t))
	run := latestStoredRun(t, home)

	if _, _, err := execute(t, "yes\n", "runs", "delete", run.ID); err != nil {
		t.Fatalf("runs delete error = %v", err)
	}

	stdout, _, err := execute(t, "", "runs")
	if err != nil {
		t.Fatalf("runs error = %v", err)
	}
	if !strings.Contains(stdout, "No stored runs") {
		t.Errorf("run not deleted:\n%s", stdout)
	}
}

func TestConfirmAction(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}

	for _, tt := range tests {
		if got := confirmAction(strings.NewReader(tt.input)); got != tt.want {
			t.Errorf("confirmAction(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

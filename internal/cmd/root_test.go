package cmd

import (
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	setupHome(t)

	stdout, _, err := execute(t, "", "--help")
	if err != nil {
		t.Fatalf("--help returned error: %v", err)
	}

	if !strings.Contains(stdout, "eegcat") {
		t.Errorf("Help text should contain 'eegcat', got: %s", stdout)
	}
	if !strings.Contains(stdout, "EDF header") {
		t.Errorf("Help text should describe EDF header reading, got: %s", stdout)
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	if cmd.Use != "eegcat" {
		t.Errorf("Expected Use to be 'eegcat', got '%s'", cmd.Use)
	}

	want := map[string]bool{"discover": false, "scan": false, "stats": false, "channels": false, "runs": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestRootCommandVersion(t *testing.T) {
	setupHome(t)

	stdout, _, err := execute(t, "", "--version")
	if err != nil {
		t.Fatalf("--version returned error: %v", err)
	}
	if !strings.Contains(stdout, Version) {
		t.Errorf("version output = %q, want it to contain %q", stdout, Version)
	}
}

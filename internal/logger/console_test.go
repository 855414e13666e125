package logger

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
)

var linePattern = regexp.MustCompile(`^\[\d{2}:\d{2}:\d{2}\] \[(TRACE|DEBUG|INFO|WARN|ERROR)\] .+$`)

// TestNewConsoleLogger verifies the constructor
func TestNewConsoleLogger(t *testing.T) {
	t.Run("with valid writer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewConsoleLogger(buf, "info")

		if logger.writer != buf {
			t.Error("writer not set correctly")
		}
		if logger.logLevel != "info" {
			t.Errorf("expected log level %q, got %q", "info", logger.logLevel)
		}
		if logger.ColorEnabled() {
			t.Error("expected no color for a bytes.Buffer")
		}
	})

	t.Run("with nil writer", func(t *testing.T) {
		logger := NewConsoleLogger(nil, "info")
		logger.LogError("discarded")
		logger.LogProgress(NewProgressBar(1, 10, false))
	})

	t.Run("normalizes level", func(t *testing.T) {
		tests := map[string]string{
			"DEBUG":   "debug",
			" warn ":  "warn",
			"":        "info",
			"verbose": "info",
		}
		for in, want := range tests {
			if got := NewConsoleLogger(nil, in).logLevel; got != want {
				t.Errorf("level %q normalized to %q, want %q", in, got, want)
			}
		}
	})
}

// TestConsoleLoggerFormat verifies the [HH:MM:SS] [LEVEL] message layout
func TestConsoleLoggerFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "trace")

	logger.LogTrace("t")
	logger.LogDebug("d")
	logger.LogInfo("Metadata saved to ./info_files/metadata.txt")
	logger.LogWarn("Failed to read a.edf: truncated EDF header")
	logger.LogError("e")

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %q", len(lines), buf.String())
	}
	for _, line := range lines {
		if !linePattern.MatchString(line) {
			t.Errorf("line %q does not match log format", line)
		}
	}
	if !strings.HasSuffix(lines[2], "[INFO] Metadata saved to ./info_files/metadata.txt") {
		t.Errorf("unexpected info line %q", lines[2])
	}
	if !strings.HasSuffix(lines[3], "[WARN] Failed to read a.edf: truncated EDF header") {
		t.Errorf("unexpected warn line %q", lines[3])
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Error("expected no ANSI codes for non-terminal writer")
	}
}

// TestConsoleLoggerLevelFiltering verifies messages below the level are dropped
func TestConsoleLoggerLevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"trace", []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}},
		{"debug", []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{"info", []string{"INFO", "WARN", "ERROR"}},
		{"warn", []string{"WARN", "ERROR"}},
		{"error", []string{"ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewConsoleLogger(buf, tt.level)
			logger.LogTrace("msg")
			logger.LogDebug("msg")
			logger.LogInfo("msg")
			logger.LogWarn("msg")
			logger.LogError("msg")

			got := linePatternLevels(buf.String())
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("levels = %v, want %v", got, tt.want)
			}
		})
	}
}

func linePatternLevels(out string) []string {
	var levels []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if m := linePattern.FindStringSubmatch(line); m != nil {
			levels = append(levels, m[1])
		}
	}
	return levels
}

// TestConsoleLoggerColor verifies level colouring when colour is on
func TestConsoleLoggerColor(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")
	logger.colorOutput = true

	formatted := logger.formatWithColor("12:00:00", "WARN", "careful")
	if !strings.Contains(formatted, "careful") || !strings.HasPrefix(formatted, "[12:00:00] [") {
		t.Errorf("unexpected colored line %q", formatted)
	}
}

// TestConsoleLoggerConcurrent verifies lines are never interleaved
func TestConsoleLoggerConcurrent(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				logger.LogInfo(fmt.Sprintf("worker %d message %d", i, j))
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 200 {
		t.Fatalf("expected 200 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !linePattern.MatchString(line) {
			t.Fatalf("corrupted line %q", line)
		}
	}
}

// TestConsoleLoggerProgress verifies progress output off a terminal
func TestConsoleLoggerProgress(t *testing.T) {
	bar := NewProgressBar(4, 4, false)
	bar.Update(2)

	buf := &bytes.Buffer{}
	NewConsoleLogger(buf, "info").LogProgress(bar)
	if buf.Len() != 0 {
		t.Errorf("expected progress suppressed at info level off a terminal, got %q", buf.String())
	}

	NewConsoleLogger(buf, "debug").LogProgress(bar)
	if !strings.Contains(buf.String(), "[DEBUG] Progress: [==  ] 2/4 (50%)") {
		t.Errorf("unexpected progress output %q", buf.String())
	}
}

// TestConsoleLoggerProgressInPlace verifies the terminal redraw and line close
func TestConsoleLoggerProgressInPlace(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")
	logger.colorOutput = true

	bar := NewProgressBar(2, 2, false)
	bar.Update(1)
	logger.LogProgress(bar)
	logger.LogInfo("interrupting")
	bar.Update(2)
	logger.LogProgress(bar)

	out := buf.String()
	if !strings.HasPrefix(out, "\r[") {
		t.Errorf("expected carriage-return redraw, got %q", out)
	}
	if strings.Count(out, "\n") != 3 {
		t.Errorf("expected progress lines to be closed, got %q", out)
	}
	if !strings.HasSuffix(out, "2/2 (100%)\n") {
		t.Errorf("expected completed bar to end the line, got %q", out)
	}
}

// TestIsTerminal verifies non-file writers never count as terminals
func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("bytes.Buffer reported as terminal")
	}
	if IsTerminal(nil) {
		t.Error("nil reported as terminal")
	}

	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if IsTerminal(f) {
		t.Error("regular file reported as terminal")
	}
}

// TestNoOpLogger verifies the no-op logger satisfies Logger
func TestNoOpLogger(t *testing.T) {
	var l Logger = NewNoOpLogger()
	l.LogTrace("x")
	l.LogDebug("x")
	l.LogInfo("x")
	l.LogWarn("x")
	l.LogError("x")
}

// TestTee verifies each message reaches every logger with its own filtering
func TestTee(t *testing.T) {
	quiet := &bytes.Buffer{}
	verbose := &bytes.Buffer{}

	l := Tee(NewConsoleLogger(quiet, "warn"), NewConsoleLogger(verbose, "debug"))
	l.LogTrace("trace")
	l.LogDebug("debug")
	l.LogInfo("info")
	l.LogWarn("warn")
	l.LogError("error")

	if got := linePatternLevels(quiet.String()); fmt.Sprint(got) != "[WARN ERROR]" {
		t.Errorf("quiet levels = %v", got)
	}
	if got := linePatternLevels(verbose.String()); fmt.Sprint(got) != "[DEBUG INFO WARN ERROR]" {
		t.Errorf("verbose levels = %v", got)
	}
}

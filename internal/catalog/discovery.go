package catalog

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultMontage is the referential average montage tag used in TUH corpus paths
	DefaultMontage = "_tcp_ar"
	// DefaultExtension is the recording file extension
	DefaultExtension = ".edf"

	// EpilepsyLabel and NoEpilepsyLabel are the diagnostic directory tags
	EpilepsyLabel   = "00_epilepsy"
	NoEpilepsyLabel = "01_no_epilepsy"
)

// DiscoveryOptions selects which recordings FindRecordings keeps
type DiscoveryOptions struct {
	// Montage is a substring the file path must contain (empty matches all)
	Montage string
	// Epilepsy selects EpilepsyLabel when true, NoEpilepsyLabel otherwise
	Epilepsy bool
	// Extension is matched case-insensitively (default ".edf")
	Extension string
}

// Label returns the diagnostic label substring selected by the options
func (o DiscoveryOptions) Label() string {
	if o.Epilepsy {
		return EpilepsyLabel
	}
	return NoEpilepsyLabel
}

func (o DiscoveryOptions) extension() string {
	ext := strings.ToLower(strings.TrimSpace(o.Extension))
	if ext == "" {
		return DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// DiscoveryResult contains the outcome of a directory walk
type DiscoveryResult struct {
	// Files lists matched recordings in walk order
	Files []FileRecord
	// Paths holds the absolute path of every matched file, in walk order
	Paths []string
	// ByName maps base filename to path; later files win on collision
	ByName map[string]string
	// EmptyDirs lists visited, non-empty directories without any file of the
	// target extension. Diagnostic only.
	EmptyDirs []string
}

// FindRecordings walks root and returns the recording files whose full path
// contains both the montage tag and the diagnostic label.
//
// Directories are visited in lexical order, so repeated calls over an unchanged
// tree return identical results. Unreadable directories, and a root that does
// not exist, are skipped silently and simply contribute no files.
func FindRecordings(root string, opts DiscoveryOptions) (*DiscoveryResult, error) {
	expanded, err := expandHomeDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to expand home directory: %w", err)
	}
	absRoot, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	result := &DiscoveryResult{
		Files:     []FileRecord{},
		Paths:     []string{},
		ByName:    make(map[string]string),
		EmptyDirs: []string{},
	}
	ext := opts.extension()
	label := opts.Label()

	_ = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return filepath.SkipDir
		}
		result.scanDir(path, entries, ext, opts.Montage, label)
		return nil
	})

	return result, nil
}

// scanDir applies the per-directory rules to one directory listing
func (r *DiscoveryResult) scanDir(dir string, entries []fs.DirEntry, ext, montage, label string) {
	if len(entries) == 0 {
		return
	}

	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(e.Name())) == ext {
			candidates = append(candidates, e.Name())
		}
	}

	if len(candidates) == 0 {
		r.EmptyDirs = append(r.EmptyDirs, dir)
		return
	}

	for _, name := range candidates {
		full := filepath.Join(dir, name)
		if !strings.Contains(full, montage) || !strings.Contains(full, label) {
			continue
		}
		r.Files = append(r.Files, FileRecord{
			Path:    full,
			Name:    name,
			Montage: montage,
			Label:   label,
		})
		r.Paths = append(r.Paths, full)
		r.ByName[name] = full
	}
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	if path == "~" {
		return homeDir, nil
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:]), nil
	}

	return path, nil
}

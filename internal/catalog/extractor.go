package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/harrison/eegcat/internal/edf"
)

// DefaultOutputFile is where BuildCatalog saves metadata when no path is given
const DefaultOutputFile = "./info_files/metadata.txt"

// Logger is the subset of the console logger the catalog reports through
type Logger interface {
	LogInfo(message string)
	LogWarn(message string)
}

// ReadMetadata opens one recording header-only and derives its MetadataRecord
func ReadMetadata(path string) (*MetadataRecord, error) {
	h, err := edf.ReadHeader(path)
	if err != nil {
		return nil, err
	}

	names := h.ChannelNames()
	rec := &MetadataRecord{
		FilePath:         path,
		NChannels:        len(names),
		SampleRate:       h.SampleRate(),
		NSamples:         h.NumSamples(),
		ChannelNames:     names,
		ChannelPositions: h.DataSignals(),
	}
	rec.DurationSec = float64(rec.NSamples) / rec.SampleRate
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid metadata: %w", err)
	}
	return rec, nil
}

// Extract reads one file and reports the outcome as a value
func Extract(path string) ExtractResult {
	rec, err := ReadMetadata(path)
	if err != nil {
		return ExtractResult{Path: path, Err: err}
	}
	return ExtractResult{Path: path, Record: rec}
}

// Extractor applies Extract over a batch of files
type Extractor struct {
	// Workers bounds concurrent extractions; values <= 1 run sequentially
	Workers int
	// OnResult, when set, is called once per file as it completes. Calls are
	// serialized but arrive in completion order.
	OnResult func(done, total int, result ExtractResult)
}

// ExtractAll extracts every path. The returned slice is index-aligned with
// paths. Once ctx is cancelled no new files are started and the remaining
// entries carry ctx.Err().
func (e *Extractor) ExtractAll(ctx context.Context, paths []string) []ExtractResult {
	results := make([]ExtractResult, len(paths))
	if len(paths) == 0 {
		return results
	}

	var mu sync.Mutex
	done := 0
	report := func(i int, r ExtractResult) {
		mu.Lock()
		defer mu.Unlock()
		results[i] = r
		done++
		if e.OnResult != nil {
			e.OnResult(done, len(paths), r)
		}
	}

	if e.Workers <= 1 {
		for i, p := range paths {
			if err := ctx.Err(); err != nil {
				report(i, ExtractResult{Path: p, Err: err})
				continue
			}
			report(i, Extract(p))
		}
		return results
	}

	semaphore := make(chan struct{}, e.Workers)
	var wg sync.WaitGroup

	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			report(i, ExtractResult{Path: p, Err: err})
			continue
		}
		select {
		case <-ctx.Done():
			report(i, ExtractResult{Path: p, Err: ctx.Err()})
			continue
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			defer func() { <-semaphore }()
			report(i, Extract(p))
		}(i, p)
	}

	wg.Wait()
	return results
}

// BatchOptions configures BuildCatalog
type BatchOptions struct {
	Workers int
	// Save writes the successful records to OutputFile
	Save       bool
	OutputFile string
	Logger     Logger
	// Progress, when set, is called after each file
	Progress func(done, total int)
}

// BatchResult is the outcome of BuildCatalog
type BatchResult struct {
	Records  []MetadataRecord
	Failures []ExtractResult
	// SavedTo is the metadata file path when Save was requested
	SavedTo string
}

// BuildCatalog extracts metadata for every path, logs each failure and keeps
// only the successful records. A corrupt file never aborts the batch. If ctx is
// cancelled the partial batch is returned with the context error and nothing
// is saved.
func BuildCatalog(ctx context.Context, paths []string, opts BatchOptions) (*BatchResult, error) {
	extractor := &Extractor{Workers: opts.Workers}
	if opts.Progress != nil {
		extractor.OnResult = func(done, total int, _ ExtractResult) {
			opts.Progress(done, total)
		}
	}

	results := extractor.ExtractAll(ctx, paths)

	batch := &BatchResult{
		Records:  Records(results),
		Failures: Failures(results),
	}

	if opts.Logger != nil {
		skipped := 0
		for _, f := range batch.Failures {
			if errors.Is(f.Err, context.Canceled) || errors.Is(f.Err, context.DeadlineExceeded) {
				skipped++
				continue
			}
			opts.Logger.LogWarn(fmt.Sprintf("Failed to read %s: %v", f.Path, f.Err))
		}
		if skipped > 0 {
			opts.Logger.LogWarn(fmt.Sprintf("Skipped %d recordings: %v", skipped, ctx.Err()))
		}
	}

	if err := ctx.Err(); err != nil {
		return batch, fmt.Errorf("catalog interrupted: %w", err)
	}

	if opts.Save {
		out := opts.OutputFile
		if out == "" {
			out = DefaultOutputFile
		}
		if err := WriteMetadataFile(out, batch.Records); err != nil {
			return batch, fmt.Errorf("save metadata: %w", err)
		}
		batch.SavedTo = out
		if opts.Logger != nil {
			opts.Logger.LogInfo(fmt.Sprintf("Metadata saved to %s", out))
		}
	}

	return batch, nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/eegcat/internal/catalog"
)

var (
	// ErrRunNotFound is returned when no scan run matches the requested ID
	ErrRunNotFound = errors.New("scan run not found")
	// ErrAmbiguousRunID is returned when an ID prefix matches several runs
	ErrAmbiguousRunID = errors.New("scan run id prefix is ambiguous")
)

// ScanRun describes one persisted catalog scan
type ScanRun struct {
	ID           string     `json:"id" yaml:"id"`
	Root         string     `json:"root" yaml:"root"`
	Montage      string     `json:"montage" yaml:"montage"`
	Label        string     `json:"label" yaml:"label"`
	Extension    string     `json:"extension" yaml:"extension"`
	Workers      int        `json:"workers" yaml:"workers"`
	StartedAt    time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	FilesFound   int        `json:"files_found" yaml:"files_found"`
	RecordCount  int        `json:"record_count" yaml:"record_count"`
	FailureCount int        `json:"failure_count" yaml:"failure_count"`
}

// ShortID returns the first eight characters of the run ID
func (r *ScanRun) ShortID() string {
	if len(r.ID) <= 8 {
		return r.ID
	}
	return r.ID[:8]
}

// Failure is a persisted extraction failure
type Failure struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

const runColumns = `id, root, montage, label, extension, workers, started_at, finished_at, files_found, record_count, failure_count`

// SaveRun stores run together with its records and failures in one
// transaction. An empty run.ID is filled with a new UUID; a zero StartedAt is
// set to now. RecordCount and FailureCount are taken from the slices.
func (s *Store) SaveRun(ctx context.Context, run *ScanRun, records []catalog.MetadataRecord, failures []catalog.ExtractResult) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.StartedAt = run.StartedAt.UTC()
	run.RecordCount = len(records)
	run.FailureCount = len(failures)

	var finished sql.NullTime
	if run.FinishedAt != nil {
		finished = sql.NullTime{Time: run.FinishedAt.UTC(), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO scan_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Root, run.Montage, run.Label, run.Extension, run.Workers,
		run.StartedAt, finished, run.FilesFound, run.RecordCount, run.FailureCount)
	if err != nil {
		return fmt.Errorf("insert scan run: %w", err)
	}

	recStmt, err := tx.PrepareContext(ctx, `INSERT INTO recordings
		(run_id, seq, file_path, n_channels, sample_rate, duration_sec, n_samples, channel_names, channel_positions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare recording insert: %w", err)
	}
	defer recStmt.Close()

	for i, r := range records {
		names, err := json.Marshal(r.ChannelNames)
		if err != nil {
			return fmt.Errorf("marshal channel names for %s: %w", r.FilePath, err)
		}
		positions, err := json.Marshal(r.ChannelPositions)
		if err != nil {
			return fmt.Errorf("marshal channel positions for %s: %w", r.FilePath, err)
		}
		if _, err := recStmt.ExecContext(ctx, run.ID, i, r.FilePath, r.NChannels, r.SampleRate,
			r.DurationSec, r.NSamples, string(names), string(positions)); err != nil {
			return fmt.Errorf("insert recording %s: %w", r.FilePath, err)
		}
	}

	for i, f := range failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO extraction_failures (run_id, seq, file_path, error_message)
			VALUES (?, ?, ?, ?)`, run.ID, i, f.Path, msg); err != nil {
			return fmt.Errorf("insert failure %s: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scan run: %w", err)
	}
	return nil
}

// GetRun returns the run whose ID equals id or, failing that, starts with it
func (s *Store) GetRun(ctx context.Context, id string) (*ScanRun, error) {
	if id == "" {
		return nil, ErrRunNotFound
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM scan_runs
		WHERE id = ? OR substr(id, 1, length(?)) = ?
		ORDER BY (id = ?) DESC
		LIMIT 2`, id, id, id, id)
	if err != nil {
		return nil, fmt.Errorf("query scan run: %w", err)
	}
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}

	switch {
	case len(runs) == 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case runs[0].ID == id || len(runs) == 1:
		return runs[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRunID, id)
	}
}

// LatestRun returns the most recently started run
func (s *Store) LatestRun(ctx context.Context) (*ScanRun, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return runs[0], nil
}

// ListRuns returns runs newest first. limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*ScanRun, error) {
	query := `SELECT ` + runColumns + ` FROM scan_runs ORDER BY started_at DESC, rowid DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scan runs: %w", err)
	}
	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]*ScanRun, error) {
	defer rows.Close()

	runs := []*ScanRun{}
	for rows.Next() {
		run := &ScanRun{}
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.Root, &run.Montage, &run.Label, &run.Extension, &run.Workers,
			&run.StartedAt, &finished, &run.FilesFound, &run.RecordCount, &run.FailureCount); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scan runs: %w", err)
	}
	return runs, nil
}

// LoadRecords returns the records saved with a run, in their original order
func (s *Store) LoadRecords(ctx context.Context, runID string) ([]catalog.MetadataRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_path, n_channels, sample_rate, duration_sec, n_samples, channel_names, channel_positions
		FROM recordings WHERE run_id = ? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	records := []catalog.MetadataRecord{}
	for rows.Next() {
		var r catalog.MetadataRecord
		var names string
		var positions sql.NullString
		if err := rows.Scan(&r.FilePath, &r.NChannels, &r.SampleRate, &r.DurationSec, &r.NSamples, &names, &positions); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		if err := json.Unmarshal([]byte(names), &r.ChannelNames); err != nil {
			return nil, fmt.Errorf("unmarshal channel names for %s: %w", r.FilePath, err)
		}
		if positions.Valid && positions.String != "" {
			if err := json.Unmarshal([]byte(positions.String), &r.ChannelPositions); err != nil {
				return nil, fmt.Errorf("unmarshal channel positions for %s: %w", r.FilePath, err)
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recordings: %w", err)
	}
	return records, nil
}

// LoadFailures returns the extraction failures saved with a run
func (s *Store) LoadFailures(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_path, error_message
		FROM extraction_failures WHERE run_id = ? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	failures := []Failure{}
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.Path, &f.Error); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}
	return failures, nil
}

// DeleteRun removes a run and everything saved with it
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"recordings", "extraction_failures"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, id); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM scan_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete scan run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	return tx.Commit()
}

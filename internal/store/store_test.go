package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrison/eegcat/internal/catalog"
	"github.com/harrison/eegcat/internal/edf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecords() []catalog.MetadataRecord {
	h := edf.NewHeader([]string{"EEG FP1-REF", "EEG FP2-REF"}, 256, 1, 600)
	return []catalog.MetadataRecord{
		{
			FilePath:         "/data/00_epilepsy/01_tcp_ar/a.edf",
			NChannels:        2,
			SampleRate:       256,
			DurationSec:      600,
			NSamples:         153600,
			ChannelNames:     h.ChannelNames(),
			ChannelPositions: h.DataSignals(),
		},
		{
			FilePath:     "/data/00_epilepsy/01_tcp_ar/b.edf",
			NChannels:    1,
			SampleRate:   250,
			DurationSec:  2,
			NSamples:     500,
			ChannelNames: []string{"EEG FP1-REF"},
		},
	}
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name    string
		dbPath  string
		wantErr bool
	}{
		{"creates database successfully", filepath.Join(t.TempDir(), "catalog.db"), false},
		{"handles in-memory database", MemoryPath, false},
		{"creates parent directories if needed", filepath.Join(t.TempDir(), "nested", "dir", "catalog.db"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStore(tt.dbPath)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Close()

			version, err := s.GetLatestVersion()
			require.NoError(t, err)
			assert.Equal(t, len(migrations), version)
			assert.Equal(t, tt.dbPath, s.Path())

			for _, table := range []string{"scan_runs", "recordings", "extraction_failures", "schema_version"} {
				exists, err := s.tableExists(table)
				require.NoError(t, err)
				assert.True(t, exists, table)
			}
		})
	}
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	first, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, first.ApplyMigrations(context.Background()))
	require.NoError(t, first.Close())

	second, err := NewStore(dbPath)
	require.NoError(t, err)
	defer second.Close()

	versions, err := second.GetAppliedVersions()
	require.NoError(t, err)
	require.Len(t, versions, len(migrations))
	for i, v := range versions {
		assert.Equal(t, i+1, v.Version)
		assert.False(t, v.AppliedAt.IsZero())
	}
}

func TestSaveRun_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)
	run := &ScanRun{
		Root:       "/data",
		Montage:    "_tcp_ar",
		Label:      "00_epilepsy",
		Extension:  ".edf",
		Workers:    4,
		StartedAt:  started,
		FinishedAt: &finished,
		FilesFound: 3,
	}
	failures := []catalog.ExtractResult{
		{Path: "/data/00_epilepsy/01_tcp_ar/c.edf", Err: edf.ErrTruncated},
	}

	require.NoError(t, s.SaveRun(ctx, run, testRecords(), failures))
	require.NotEmpty(t, run.ID)
	assert.Equal(t, 2, run.RecordCount)
	assert.Equal(t, 1, run.FailureCount)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "/data", got.Root)
	assert.Equal(t, "_tcp_ar", got.Montage)
	assert.Equal(t, "00_epilepsy", got.Label)
	assert.Equal(t, 4, got.Workers)
	assert.Equal(t, 3, got.FilesFound)
	assert.Equal(t, 2, got.RecordCount)
	assert.Equal(t, 1, got.FailureCount)
	assert.True(t, started.Equal(got.StartedAt), "started_at %v", got.StartedAt)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, finished.Equal(*got.FinishedAt), "finished_at %v", got.FinishedAt)

	records, err := s.LoadRecords(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, testRecords(), records)

	loadedFailures, err := s.LoadFailures(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, []Failure{{Path: "/data/00_epilepsy/01_tcp_ar/c.edf", Error: edf.ErrTruncated.Error()}}, loadedFailures)
}

func TestSaveRun_StatsSurviveStorage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	opts := catalog.StatsOptions{Rounding: 2}

	run := &ScanRun{Root: "/data", Montage: "_tcp_ar", Label: "00_epilepsy", Extension: ".edf"}
	require.NoError(t, s.SaveRun(ctx, run, testRecords(), nil))

	records, err := s.LoadRecords(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.NewReport(testRecords(), opts), catalog.NewReport(records, opts))
}

func TestSaveRun_Empty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &ScanRun{Root: "/empty", Montage: "_tcp_ar", Label: "00_epilepsy", Extension: ".edf"}
	require.NoError(t, s.SaveRun(ctx, run, nil, nil))
	assert.False(t, run.StartedAt.IsZero())

	records, err := s.LoadRecords(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Nil(t, got.FinishedAt)

	assert.Error(t, s.SaveRun(ctx, nil, nil, nil))
}

func TestSaveRun_DuplicateIDRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &ScanRun{ID: "fixed", Root: "/data", Montage: "_tcp_ar", Label: "00_epilepsy", Extension: ".edf"}
	require.NoError(t, s.SaveRun(ctx, run, testRecords()[:1], nil))

	again := &ScanRun{ID: "fixed", Root: "/other", Montage: "_tcp_ar", Label: "00_epilepsy", Extension: ".edf"}
	require.Error(t, s.SaveRun(ctx, again, testRecords(), nil))

	records, err := s.LoadRecords(ctx, "fixed")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"abc12345-0000", "abd99999-0000", "abc"} {
		require.NoError(t, s.SaveRun(ctx, &ScanRun{ID: id, Root: "/", Montage: "m", Label: "l", Extension: ".edf"}, nil, nil))
	}

	tests := []struct {
		name    string
		id      string
		want    string
		wantErr error
	}{
		{"exact", "abd99999-0000", "abd99999-0000", nil},
		{"unique prefix", "abd", "abd99999-0000", nil},
		{"exact wins over prefix", "abc", "abc", nil},
		{"ambiguous prefix", "ab", "", ErrAmbiguousRunID},
		{"unknown", "zzz", "", ErrRunNotFound},
		{"empty", "", "", ErrRunNotFound},
		{"percent is literal", "%", "", ErrRunNotFound},
		{"underscore is literal", "_", "", ErrRunNotFound},
		{"underscore inside prefix", "a_c", "", ErrRunNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := s.GetRun(ctx, tt.id)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, run.ID)
		})
	}
}

func TestListRunsAndLatest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrRunNotFound)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		run := &ScanRun{ID: id, Root: "/", Montage: "m", Label: "l", Extension: ".edf", StartedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, s.SaveRun(ctx, run, nil, nil))
	}

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "third", latest.ID)

	runs, err = s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})

	limited, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestDeleteRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &ScanRun{Root: "/data", Montage: "_tcp_ar", Label: "00_epilepsy", Extension: ".edf"}
	failures := []catalog.ExtractResult{{Path: "x.edf", Err: errors.New("boom")}}
	require.NoError(t, s.SaveRun(ctx, run, testRecords(), failures))

	require.NoError(t, s.DeleteRun(ctx, run.ID))

	_, err := s.GetRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)

	records, err := s.LoadRecords(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	loaded, err := s.LoadFailures(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	assert.ErrorIs(t, s.DeleteRun(ctx, run.ID), ErrRunNotFound)
}

func TestScanRun_ShortID(t *testing.T) {
	assert.Equal(t, "0123abcd", (&ScanRun{ID: "0123abcd-4567-89ef"}).ShortID())
	assert.Equal(t, "abc", (&ScanRun{ID: "abc"}).ShortID())
}

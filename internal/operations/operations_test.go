package operations

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youcefh/backsnap/internal/config"
	"github.com/youcefh/backsnap/internal/rsync"
	"github.com/youcefh/backsnap/internal/snapshot"
)

// fakeRunner records invocations instead of spawning rsync.
type fakeRunner struct {
	calls  [][]string
	result rsync.Result
	err    error
}

func (f *fakeRunner) Run(_ context.Context, args []string) (rsync.Result, error) {
	f.calls = append(f.calls, args)
	return f.result, f.err
}

// monthlySnapshots creates one snapshot directory per month from
// 2019-01-01 through 2020-06-01 (18 entries).
func monthlySnapshots(t *testing.T, dest string) []string {
	t.Helper()
	var names []string
	for year := 2019; year <= 2020; year++ {
		for month := 1; month <= 12; month++ {
			if year == 2020 && month > 6 {
				break
			}
			d := snapshot.NewDate(year, time.Month(month), 1)
			require.NoError(t, os.MkdirAll(snapshot.Dir(dest, d), 0o755))
			names = append(names, d.String())
		}
	}
	return names
}

func newTestManager(t *testing.T, cfg config.Config, runner rsync.Runner, today string) *Manager {
	t.Helper()
	d, err := snapshot.ParseDate(today)
	require.NoError(t, err)
	m, err := NewManager(context.Background(), cfg,
		WithRunner(runner),
		WithToday(d),
	)
	require.NoError(t, err)
	return m
}

func TestRunAll_FixedCountEndToEnd(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	monthlySnapshots(t, dest)

	fake := &fakeRunner{result: rsync.Result{Output: "sent 1 file\n"}}
	cfg := config.Config{
		Retention: config.RetentionConfig{Policy: config.PolicyFixed, KeepLast: 5},
		Backups:   []config.Job{{SrcDir: src, DestDir: dest}},
	}
	m := newTestManager(t, cfg, fake, "2020-06-15")

	require.NoError(t, m.RunAll())

	remaining := snapshot.List(dest)
	require.Len(t, remaining, 5, "exactly the 5 most recent snapshots remain")
	want := []string{"2020-02-01", "2020-03-01", "2020-04-01", "2020-05-01", "2020-06-01"}
	for i, d := range remaining {
		assert.Equal(t, want[i], d.String())
	}

	// One transfer, targeting the raw destination with dated versioning.
	require.Len(t, fake.calls, 1)
	args := fake.calls[0]
	assert.Contains(t, args, "--backup")
	assert.Contains(t, args, "--backup-dir=2020-06-15")
	assert.Equal(t, dest, args[len(args)-1])
	assert.Equal(t, src, args[len(args)-2])

	// The run is recorded beside the destination.
	var record Metadata
	require.NoError(t, record.Load(filepath.Join(dest, MetadataFilename)))
	assert.Equal(t, "success", record.Status)
	assert.Equal(t, "2020-06-15", record.Snapshot)
}

func TestRunAll_GFSCreatesDatedSnapshot(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	fake := &fakeRunner{}
	cfg := config.Config{
		Retention: config.RetentionConfig{
			Policy: config.PolicyGFS,
			GFS:    config.GFSConfig{Years: 1, Months: 3, Weeks: 1, Days: 6, FirstWeekday: "mon"},
		},
		Backups: []config.Job{{SrcDir: src, DestDir: dest}},
	}
	m := newTestManager(t, cfg, fake, "2020-06-15")

	require.NoError(t, m.RunAll())

	target := filepath.Join(dest, "2020-06-15")
	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.Len(t, fake.calls, 1)
	args := fake.calls[0]
	assert.Equal(t, target, args[len(args)-1])
	assert.NotContains(t, args, "--backup")
}

func TestRunAll_ToolFailureDoesNotAbortRun(t *testing.T) {
	src := t.TempDir()
	destA := t.TempDir()
	destB := t.TempDir()

	fake := &fakeRunner{result: rsync.Result{ExitCode: 23, Output: "rsync: permission denied\n"}}
	cfg := config.Config{
		Retention: config.RetentionConfig{Policy: config.PolicyFixed, KeepLast: 3},
		Backups: []config.Job{
			{SrcDir: src, DestDir: destA},
			{SrcDir: src, DestDir: destB},
		},
	}
	m := newTestManager(t, cfg, fake, "2020-06-15")

	require.NoError(t, m.RunAll(), "a non-zero rsync exit is logged, not fatal")
	assert.Len(t, fake.calls, 2, "both jobs still run")

	var record Metadata
	require.NoError(t, record.Load(filepath.Join(destA, MetadataFilename)))
	assert.Equal(t, "failed", record.Status)
	assert.Equal(t, 23, record.ExitCode)
}

func TestBackupJob_SpawnErrorRecordsFailure(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	fake := &fakeRunner{err: errors.New("rsync binary not found")}
	cfg := config.Config{
		Retention: config.RetentionConfig{Policy: config.PolicyFixed, KeepLast: 3},
		Backups:   []config.Job{{SrcDir: src, DestDir: dest}},
	}
	m := newTestManager(t, cfg, fake, "2020-06-15")

	err := m.BackupJob(cfg.Backups[0])
	require.Error(t, err)

	var record Metadata
	require.NoError(t, record.Load(filepath.Join(dest, MetadataFilename)))
	assert.Equal(t, "failed", record.Status)
	assert.Contains(t, record.Error, "rsync binary not found")
}

func TestRunAll_InvalidSourceMutatesNothing(t *testing.T) {
	dest := t.TempDir()
	monthlySnapshots(t, dest)

	fake := &fakeRunner{}
	cfg := config.Config{
		Retention: config.RetentionConfig{Policy: config.PolicyFixed, KeepLast: 0},
		Backups: []config.Job{
			{SrcDir: filepath.Join(t.TempDir(), "missing"), DestDir: dest},
		},
	}
	m := newTestManager(t, cfg, fake, "2020-06-15")

	err := m.RunAll()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidJob)

	assert.Len(t, snapshot.List(dest), 18, "no deletion before validation passes")
	assert.Empty(t, fake.calls, "no transfer either")
}

func TestRunAll_DestinationIsFile(t *testing.T) {
	src := t.TempDir()
	destFile := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(destFile, []byte("x"), 0o644))

	fake := &fakeRunner{}
	cfg := config.Config{
		Retention: config.RetentionConfig{Policy: config.PolicyFixed, KeepLast: 1},
		Backups: []config.Job{
			{SrcDir: src, DestDir: t.TempDir()},
			{SrcDir: src, DestDir: destFile},
		},
	}
	m := newTestManager(t, cfg, fake, "2020-06-15")

	err := m.RunAll()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidJob)
	assert.Empty(t, fake.calls, "no job transfers before validation passes")
}

func TestRunAll_AbsentDestinationIsCreated(t *testing.T) {
	src := t.TempDir()
	dest := filepath.Join(t.TempDir(), "fresh")

	fake := &fakeRunner{}
	cfg := config.Config{
		Retention: config.RetentionConfig{Policy: config.PolicyFixed, KeepLast: 1},
		Backups:   []config.Job{{SrcDir: src, DestDir: dest}},
	}
	m := newTestManager(t, cfg, fake, "2020-06-15")

	require.NoError(t, m.RunAll())
	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Len(t, fake.calls, 1)
}

func TestRunAll_SourceIsFile(t *testing.T) {
	srcFile := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(srcFile, []byte("x"), 0o644))

	cfg := config.Config{
		Retention: config.RetentionConfig{Policy: config.PolicyFixed, KeepLast: 1},
		Backups:   []config.Job{{SrcDir: srcFile, DestDir: t.TempDir()}},
	}
	m := newTestManager(t, cfg, &fakeRunner{}, "2020-06-15")
	assert.ErrorIs(t, m.RunAll(), ErrInvalidJob)
}

func TestPruneAll_DryRunDeletesNothing(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	monthlySnapshots(t, dest)

	cfg := config.Config{
		Retention: config.RetentionConfig{Policy: config.PolicyFixed, KeepLast: 2},
		Backups:   []config.Job{{SrcDir: src, DestDir: dest}},
	}
	d, err := snapshot.ParseDate("2020-06-15")
	require.NoError(t, err)
	m, err := NewManager(context.Background(), cfg,
		WithRunner(&fakeRunner{}),
		WithToday(d),
		WithDryRun(true),
	)
	require.NoError(t, err)

	require.NoError(t, m.PruneAll())
	assert.Len(t, snapshot.List(dest), 18)
}

func TestPruneJob_ArchivesBeforeDelete(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	archiveDir := filepath.Join(t.TempDir(), "archive")

	stale := filepath.Join(dest, "2019-01-01")
	require.NoError(t, os.MkdirAll(stale, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stale, "data.txt"), []byte("payload"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "2020-06-01"), 0o755))

	cfg := config.Config{
		Retention: config.RetentionConfig{
			Policy:       config.PolicyFixed,
			KeepLast:     1,
			ArchiveStale: true,
			ArchiveDir:   archiveDir,
		},
		Backups: []config.Job{{SrcDir: src, DestDir: dest}},
	}
	m := newTestManager(t, cfg, &fakeRunner{}, "2020-06-15")

	m.PruneJob(cfg.Backups[0])

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale snapshot removed")

	archive := filepath.Join(archiveDir, "2019-01-01.tar.zst")
	info, err := os.Stat(archive)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestPruneJob_KeepsSnapshotWhenArchiveFails(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	// archive-dir collides with an existing file, so archiving cannot work.
	badArchiveDir := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(badArchiveDir, []byte("x"), 0o644))

	stale := filepath.Join(dest, "2019-01-01")
	require.NoError(t, os.MkdirAll(stale, 0o755))

	cfg := config.Config{
		Retention: config.RetentionConfig{
			Policy:       config.PolicyFixed,
			KeepLast:     0,
			ArchiveStale: true,
			ArchiveDir:   badArchiveDir,
		},
		Backups: []config.Job{{SrcDir: src, DestDir: dest}},
	}
	m := newTestManager(t, cfg, &fakeRunner{}, "2020-06-15")

	m.PruneJob(cfg.Backups[0])

	_, err := os.Stat(stale)
	assert.NoError(t, err, "snapshot survives a failed archive attempt")
}

package operations

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/youcefh/backsnap/internal/config"
	"github.com/youcefh/backsnap/internal/retention"
	"github.com/youcefh/backsnap/internal/rsync"
	"github.com/youcefh/backsnap/internal/snapshot"
)

// BackupJob performs one transfer for job. Under a FixedCount policy the
// destination root is reused and rsync versions replaced files into a
// dated subdirectory; under GFS every run produces a full dated snapshot
// directory. A non-zero tool exit is logged, printed, and swallowed; the
// run is considered finished either way. Only spawn and interrupt errors
// propagate.
func (m *Manager) BackupJob(job config.Job) error {
	target := job.DestDir
	var syncOpts []rsync.SyncOption
	metadataDir := job.DestDir

	switch m.policy.(type) {
	case retention.GFS:
		target = snapshot.Dir(job.DestDir, m.today)
		metadataDir = target
	default:
		syncOpts = append(syncOpts, rsync.WithBackupDir(m.today.String()))
	}
	syncOpts = append(syncOpts,
		rsync.WithRunner(m.runner),
		rsync.WithExcludeDirs(job.ExcludeDirs),
	)

	if m.dryRun {
		m.log.Info("dry run: would back up",
			"source", job.SrcDir,
			"target", target,
		)
		return nil
	}

	if err := EnsureDirectoryExist(target); err != nil {
		m.log.Error("prepare destination failed", "target", target, "error", err.Error())
		return err
	}

	record := Metadata{
		Source:      job.SrcDir,
		Destination: job.DestDir,
		Snapshot:    m.today.String(),
		StartedAt:   time.Now(),
	}
	m.log.Info("backup started", "source", job.SrcDir, "target", target)

	s := rsync.NewSync(job.SrcDir, target, syncOpts...)
	res, err := s.Run(m.ctx)
	record.CompletedAt = time.Now()
	record.Duration = record.CompletedAt.Sub(record.StartedAt)
	record.ExitCode = res.ExitCode

	// Mirror the tool's combined output to stdout and to the log sink.
	if res.Output != "" {
		fmt.Print(res.Output)
		m.log.Info("rsync output", "source", job.SrcDir, "output", res.Output)
	}
	if err != nil {
		record.Status = "failed"
		record.Error = err.Error()
		if werr := record.Write(metadataDir); werr != nil {
			m.log.Warn("write metadata failed", "dir", metadataDir, "error", werr.Error())
		}
		m.log.Error("backup aborted", "source", job.SrcDir, "error", err.Error())
		return fmt.Errorf("backup of %q: %w", job.SrcDir, err)
	}

	if res.ExitCode != 0 {
		record.Status = "failed"
		record.Error = fmt.Sprintf("rsync exited with code %d", res.ExitCode)
		m.log.Error("backup finished with errors",
			"source", job.SrcDir,
			"exit_code", res.ExitCode,
		)
		color.Red("backup of %s finished with errors (rsync exit %d)", job.SrcDir, res.ExitCode)
	} else {
		record.Status = "success"
		record.SizeBytes = dirSize(target)
		m.log.Info("backup completed",
			"source", job.SrcDir,
			"target", target,
			"duration", record.Duration.String(),
		)
		color.Green("backed up %s -> %s", job.SrcDir, target)
	}

	if err := record.Write(metadataDir); err != nil {
		m.log.Warn("write metadata failed", "dir", metadataDir, "error", err.Error())
	}
	return nil
}

// dirSize sums the file sizes below root; zero on any scan trouble.
func dirSize(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

package operations

import (
	"os"

	"github.com/youcefh/backsnap/internal/config"
	"github.com/youcefh/backsnap/internal/snapshot"
)

// PruneJob applies the retention policy to one destination and removes
// the stale snapshot directories. Every deletion is best-effort: a
// failure is logged and the pass moves on to the next date.
func (m *Manager) PruneJob(job config.Job) {
	dates := snapshot.List(job.DestDir)
	stale := m.policy.Stale(dates, m.today)
	if len(stale) == 0 {
		m.log.Debug("retention: nothing to delete", "destination", job.DestDir)
		return
	}

	for _, date := range stale {
		dir := snapshot.Dir(job.DestDir, date)

		if m.dryRun {
			m.log.Info("dry run: would delete stale backup", "dir", dir)
			continue
		}

		if m.cfg.Retention.ArchiveStale {
			archive, err := ArchiveSnapshot(dir, m.cfg.Retention.ArchiveDir, date)
			if err != nil {
				// Never delete a snapshot that could not be archived.
				m.log.Error("archive stale backup failed, keeping it",
					"dir", dir,
					"error", err.Error(),
				)
				continue
			}
			m.log.Info("archived stale backup", "dir", dir, "archive", archive)
		}

		if err := os.RemoveAll(dir); err != nil {
			m.log.Error("delete stale backup failed", "dir", dir, "error", err.Error())
			continue
		}
		m.log.Info("deleted stale backup", "dir", dir)
	}
}

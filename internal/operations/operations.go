package operations

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/youcefh/backsnap/internal/config"
	"github.com/youcefh/backsnap/internal/logger"
	"github.com/youcefh/backsnap/internal/retention"
	"github.com/youcefh/backsnap/internal/rsync"
	"github.com/youcefh/backsnap/internal/snapshot"
)

// ErrInvalidJob indicates a job whose paths failed the pre-run checks.
var ErrInvalidJob = errors.New("invalid backup job")

// Manager drives the configured backup jobs: per job it applies the
// retention policy to the destination and then performs the transfer.
// Jobs run sequentially, in configuration order.
type Manager struct {
	ctx    context.Context
	cfg    config.Config
	policy retention.Policy
	runner rsync.Runner
	log    logger.Logger
	today  snapshot.Date
	dryRun bool
}

// Option overrides Manager defaults.
type Option func(*Manager)

// WithRunner injects the rsync runner (tests pass a fake).
func WithRunner(r rsync.Runner) Option {
	return func(m *Manager) {
		if r != nil {
			m.runner = r
		}
	}
}

// WithDryRun makes retention and backup report actions without touching
// the filesystem or spawning the tool.
func WithDryRun(dryRun bool) Option {
	return func(m *Manager) {
		m.dryRun = dryRun
	}
}

// WithToday fixes the reference date the retention policy evaluates
// against; defaults to the current day.
func WithToday(d snapshot.Date) Option {
	return func(m *Manager) {
		m.today = d
	}
}

// WithLogger overrides the global logger.
func WithLogger(log logger.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewManager builds a Manager from a validated configuration.
func NewManager(ctx context.Context, cfg config.Config, opts ...Option) (*Manager, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	m := &Manager{
		ctx:    ctx,
		cfg:    cfg,
		policy: policy,
		runner: rsync.NewSystemRunner(),
		log:    logger.Global(),
		today:  snapshot.Today(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// ValidateJobs checks every configured job before anything destructive
// runs: each source must exist and be a directory, and a destination that
// already exists must be a directory too. An absent destination is fine;
// it is created on the first run.
func (m *Manager) ValidateJobs() error {
	for _, job := range m.cfg.Backups {
		info, err := os.Stat(job.SrcDir)
		if err != nil {
			return fmt.Errorf("%w: source %q: %v", ErrInvalidJob, job.SrcDir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: source %q is not a directory", ErrInvalidJob, job.SrcDir)
		}
		if info, err := os.Stat(job.DestDir); err == nil && !info.IsDir() {
			return fmt.Errorf("%w: destination %q is not a directory", ErrInvalidJob, job.DestDir)
		}
	}
	return nil
}

// RunAll processes every job: retention first, then a fresh backup. A
// failed transfer is logged and does not abort the remaining jobs; an
// interrupt does.
func (m *Manager) RunAll() error {
	if err := m.ValidateJobs(); err != nil {
		m.log.Error("input validation failed", "error", err.Error())
		return err
	}

	for _, job := range m.cfg.Backups {
		if err := m.ctx.Err(); err != nil {
			return err
		}
		m.PruneJob(job)
		if err := m.BackupJob(job); err != nil {
			return err
		}
	}
	return nil
}

// PruneAll applies the retention policy to every destination without
// running any backup.
func (m *Manager) PruneAll() error {
	if err := m.ValidateJobs(); err != nil {
		m.log.Error("input validation failed", "error", err.Error())
		return err
	}
	for _, job := range m.cfg.Backups {
		if err := m.ctx.Err(); err != nil {
			return err
		}
		m.PruneJob(job)
	}
	return nil
}

// EnsureDirectoryExist creates dirPath and any missing parents.
func EnsureDirectoryExist(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory %q: %w", dirPath, err)
	}
	return nil
}

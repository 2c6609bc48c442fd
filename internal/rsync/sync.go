package rsync

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Sync describes one backup transfer: a source tree, a destination, and the
// knobs that shape the rsync argument list.
type Sync struct {
	Source      string
	Destination string
	// ExcludeDirs is written to a transient exclude file passed through
	// --exclude-from; empty means no exclude file is created.
	ExcludeDirs []string
	// BackupDir, when set, versions replaced destination files into this
	// subdirectory via rsync's --backup machinery instead of dropping them.
	BackupDir string

	runner Runner
}

// SyncOption overrides default Sync settings.
type SyncOption func(*Sync)

// WithRunner injects the Runner used to spawn the tool.
func WithRunner(r Runner) SyncOption {
	return func(s *Sync) {
		if r != nil {
			s.runner = r
		}
	}
}

// WithExcludeDirs sets the directories skipped during the transfer.
func WithExcludeDirs(dirs []string) SyncOption {
	return func(s *Sync) {
		s.ExcludeDirs = dirs
	}
}

// WithBackupDir versions replaced files into dir under the destination.
func WithBackupDir(dir string) SyncOption {
	return func(s *Sync) {
		s.BackupDir = dir
	}
}

// NewSync builds a Sync from source to destination plus any overrides.
func NewSync(source, destination string, opts ...SyncOption) *Sync {
	s := &Sync{
		Source:      source,
		Destination: destination,
		runner:      NewSystemRunner(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Args returns the deterministic argument list for the transfer.
// excludeFile is the path of an already written exclude file, or empty.
//
// -a archive (recurse, symlinks, perms, times), -A ACLs, -v verbose,
// -O skip directory mtime updates, --delete remove extraneous
// destination files.
func (s *Sync) Args(excludeFile string) []string {
	args := []string{"-a", "-A", "-v", "-O", "--delete"}
	if s.BackupDir != "" {
		args = append(args, "--backup", "--backup-dir="+s.BackupDir)
	}
	if excludeFile != "" {
		args = append(args, "--exclude-from="+excludeFile)
	}
	return append(args, s.Source, s.Destination)
}

// Run performs the transfer and returns the tool's combined output and
// exit status. The exclude file, if any, is removed before Run returns,
// on success and on failure.
func (s *Sync) Run(ctx context.Context) (Result, error) {
	excludeFile := ""
	if len(s.ExcludeDirs) > 0 {
		path, err := writeExcludeFile(s.ExcludeDirs)
		if err != nil {
			return Result{}, fmt.Errorf("write exclude file: %w", err)
		}
		defer os.Remove(path)
		excludeFile = path
	}

	runner := s.runner
	if runner == nil {
		runner = NewSystemRunner()
	}
	return runner.Run(ctx, s.Args(excludeFile))
}

// writeExcludeFile creates a uniquely named temp file holding one exclude
// path per line. The caller removes it after the subprocess exits.
func writeExcludeFile(dirs []string) (string, error) {
	f, err := os.CreateTemp("", "backsnap-exclude-*")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(strings.Join(dirs, "\n") + "\n"); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

package logger

import (
	"os"
	"sync"

	"go.uber.org/zap/zapcore"
)

// rotatingSink appends to a log file and, once the file would exceed
// maxBytes, renames it to a ".old" sibling (replacing any previous one)
// and starts a fresh file.
type rotatingSink struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	size     int64
	file     *os.File
}

// Ensure rotatingSink can back a zap core.
var _ zapcore.WriteSyncer = (*rotatingSink)(nil)

func newRotatingSink(path string, maxBytes int64) (*rotatingSink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	size := int64(0)
	if info, err := file.Stat(); err == nil {
		size = info.Size()
	}
	return &rotatingSink{path: path, maxBytes: maxBytes, size: size, file: file}, nil
}

func (s *rotatingSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxBytes > 0 && s.size+int64(len(p)) > s.maxBytes {
		if err := s.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := s.file.Write(p)
	s.size += int64(n)
	return n, err
}

func (s *rotatingSink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Sync()
}

// rotate renames the current file to path.old and reopens a fresh one.
// os.Rename replaces an existing .old copy.
func (s *rotatingSink) rotate() error {
	if err := s.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(s.path, s.path+".old"); err != nil {
		return err
	}
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	s.file = file
	s.size = 0
	return nil
}

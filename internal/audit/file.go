package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// FileSink writes each entry to its own file under dir. Names combine a
// nanosecond timestamp with a per-sink sequence number so concurrent writers
// never collide, and files are opened with O_EXCL so nothing is overwritten.
type FileSink struct {
	dir string
	seq atomic.Uint64
	now func() time.Time
}

func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	return &FileSink{dir: dir, now: time.Now}, nil
}

func (s *FileSink) Write(ctx context.Context, e Entry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%d_%06d.md", s.now().UnixNano(), s.seq.Add(1))
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create audit file: %w", err)
	}
	if _, err := f.WriteString(Format(e)); err != nil {
		f.Close()
		return "", fmt.Errorf("write audit file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close audit file: %w", err)
	}
	return path, nil
}

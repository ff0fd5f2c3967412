package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"collector/internal/logger"
)

// Local stores objects as files under a base directory. Used in development
// and by tests.
type Local struct {
	base string
	log  *logger.Logger
}

func NewLocal(base string) *Local {
	return &Local{base: base, log: logger.New("LocalStore")}
}

func (l *Local) ReadFile(_ context.Context, path string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(l.base, filepath.FromSlash(path)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return b, err
}

func (l *Local) WriteFile(_ context.Context, path string, data []byte, _ string) error {
	full := filepath.Join(l.base, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return err
	}
	l.log.LogDebugf("wrote %s (%d bytes)", path, len(data))
	return nil
}

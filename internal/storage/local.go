package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/maauso/klingclip/internal/failure"
)

// ErrRemoteNotConfigured is returned by Publish when no bucket is configured.
var ErrRemoteNotConfigured = errors.New("remote storage is not configured")

// ErrInvalidName is returned when a file name would escape the output directory.
var ErrInvalidName = fmt.Errorf("%w: invalid file name", failure.ErrIO)

// ArtifactMode is the permission set on saved artifacts.
const ArtifactMode os.FileMode = 0o644

// LocalStorage implements Storage on local disk.
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates the output directory if needed.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if dir == "" {
		dir = "outputs"
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: create output directory: %w", failure.ErrIO, err)
	}

	return &LocalStorage{dir: dir}, nil
}

// Dir returns the output directory path.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Path returns the location of name in the output directory.
func (s *LocalStorage) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Save streams data into a hidden temp file next to the destination and
// renames it into place once fully written and closed.
func (s *LocalStorage) Save(ctx context.Context, name string, data io.Reader) (string, int64, error) {
	select {
	case <-ctx.Done():
		return "", 0, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if err := checkName(name); err != nil {
		return "", 0, err
	}

	f, err := os.CreateTemp(s.dir, "."+name+".part-*")
	if err != nil {
		return "", 0, fmt.Errorf("%w: create temp file: %w", failure.ErrIO, err)
	}

	tmp := f.Name()
	n, err := io.Copy(f, data)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", 0, fmt.Errorf("%w: write %s: %w", failure.ErrIO, name, err)
	}

	if err := f.Chmod(ArtifactMode); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", 0, fmt.Errorf("%w: chmod %s: %w", failure.ErrIO, name, err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", 0, fmt.Errorf("%w: close %s: %w", failure.ErrIO, name, err)
	}

	dst := s.Path(name)
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", 0, fmt.Errorf("%w: rename %s: %w", failure.ErrIO, name, err)
	}

	return dst, n, nil
}

// Publish is not supported by LocalStorage and returns ErrRemoteNotConfigured.
func (s *LocalStorage) Publish(_ context.Context, _ string) (string, error) {
	return "", ErrRemoteNotConfigured
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Compile-time check that LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)

package media

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/exp/slog"
)

// Store keeps attachment blobs on an afero filesystem, keyed by the
// report.MediaPath layout.
type Store struct {
	fs  afero.Fs
	log *slog.Logger
}

func New(fs afero.Fs, log *slog.Logger) *Store {
	return &Store{
		fs:  fs,
		log: log.With("component", "media_store"),
	}
}

// NewDir stores blobs under dir on the local disk.
func NewDir(dir string, log *slog.Logger) (*Store, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return New(afero.NewBasePathFs(osFs, dir), log), nil
}

// Put writes data at p, replacing any previous blob. Readers see either the
// old or the new content.
func (s *Store) Put(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := cleanPath(p)
	if err != nil {
		return err
	}

	if err := s.fs.MkdirAll(path.Dir(clean), 0o750); err != nil {
		return fmt.Errorf("create %s: %w", path.Dir(clean), err)
	}

	tmp := clean + ".tmp-" + uuid.NewString()
	if err := afero.WriteFile(s.fs, tmp, data, 0o640); err != nil {
		return fmt.Errorf("write %s: %w", clean, err)
	}
	if err := s.fs.Rename(tmp, clean); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("rename %s: %w", clean, err)
	}

	s.log.Debug("media written", "path", clean, "size", len(data))
	return nil
}

func (s *Store) Get(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := cleanPath(p)
	if err != nil {
		return nil, err
	}
	return afero.ReadFile(s.fs, clean)
}

func cleanPath(p string) (string, error) {
	clean := path.Clean("/" + p)
	if clean == "/" || strings.Contains(p, "..") {
		return "", fmt.Errorf("invalid media path %q", p)
	}
	return strings.TrimPrefix(clean, "/"), nil
}

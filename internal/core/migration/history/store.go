package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/satishbabariya/kmigrator/internal/core/migration/domain"
)

// FileStore keeps native definitions as "<name><ext>" files in one directory.
// Names starting with "__" are package markers and never listed.
type FileStore struct {
	fs      afero.Fs
	dir     string
	ext     string
	markers []string
}

// StoreOption configures a FileStore.
type StoreOption func(*FileStore)

// WithMarkers lists empty files recreated by Reset, e.g. "__init__.py".
func WithMarkers(names ...string) StoreOption {
	return func(s *FileStore) { s.markers = append(s.markers, names...) }
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(fs afero.Fs, dir string, opts ...StoreOption) *FileStore {
	s := &FileStore{fs: fs, dir: dir, ext: ".py"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewMemoryStore creates a store backed by an in-memory filesystem.
func NewMemoryStore() *FileStore {
	return NewFileStore(afero.NewMemMapFs(), "/history")
}

var _ domain.HistoryStore = (*FileStore)(nil)

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+s.ext)
}

// Get reads a definition.
func (s *FileStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, domain.ErrDefinitionNotFound)
		}
		return nil, fmt.Errorf("failed to read definition %s: %w", name, err)
	}
	return data, nil
}

// Put writes a definition.
func (s *FileStore) Put(ctx context.Context, name string, definition []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path(name), definition, 0o644); err != nil {
		return fmt.Errorf("failed to write definition %s: %w", name, err)
	}
	return nil
}

// List returns the stored names in sorted order.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), s.ext) || strings.HasPrefix(e.Name(), "__") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), s.ext))
	}
	sort.Strings(names)
	return names, nil
}

// Reset removes every definition and recreates the package markers.
func (s *FileStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fs.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("failed to clear %s: %w", s.dir, err)
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	for _, m := range s.markers {
		if err := afero.WriteFile(s.fs, filepath.Join(s.dir, m), nil, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", m, err)
		}
	}
	return nil
}

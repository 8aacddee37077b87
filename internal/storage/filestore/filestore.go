// Package filestore keeps uploaded screenshots and exported archives under a
// root directory. The directory tree is the source of truth; nothing is cached.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
)

// DefaultMaxBytes is the largest payload Put accepts unless configured otherwise.
const DefaultMaxBytes int64 = 5 << 20

// Category is a top-level directory under the store root.
type Category string

const (
	CategoryUploads Category = "uploads"
	CategoryExports Category = "exports"
)

// Categories lists every category managed by the store.
var Categories = []Category{CategoryUploads, CategoryExports}

func (c Category) valid() bool {
	return c == CategoryUploads || c == CategoryExports
}

// FileInfo describes a stored file.
type FileInfo struct {
	Handle  Handle
	Size    int64
	ModTime time.Time
}

// Store implements size-bounded, atomic file primitives over a root directory.
type Store struct {
	root     string
	maxBytes int64
	log      zerolog.Logger
}

// New creates the category directories under root.
func New(root string, maxBytes int64, log zerolog.Logger) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage root is required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	for _, c := range Categories {
		if err := os.MkdirAll(filepath.Join(root, string(c)), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", c, err)
		}
	}

	logger := log.With().Str("component", "filestore").Logger()
	logger.Info().Str("root", root).Int64("max_bytes", maxBytes).Msg("file store initialized")

	return &Store{root: root, maxBytes: maxBytes, log: logger}, nil
}

// MaxBytes returns the payload limit.
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Put stores data under a sanitized, unique name derived from suggestedName.
// Oversized payloads are rejected with domain.ErrSizeExceeded before anything is written.
func (s *Store) Put(ctx context.Context, category Category, suggestedName string, data []byte) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !category.valid() {
		return "", fmt.Errorf("%w: unknown storage category %q", domain.ErrValidation, category)
	}
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w: %d bytes, limit is %d", domain.ErrSizeExceeded, len(data), s.maxBytes)
	}

	h := newHandle(category, UniqueName(suggestedName))
	if err := s.write(h, data); err != nil {
		return "", err
	}

	s.log.Debug().Str("handle", h.String()).Int("bytes", len(data)).Msg("file stored")
	return h, nil
}

// PutAt stores data at a server-chosen handle, replacing any previous content.
func (s *Store) PutAt(ctx context.Context, h Handle, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := h.Validate(); err != nil {
		return err
	}
	if int64(len(data)) > s.maxBytes {
		return fmt.Errorf("%w: %d bytes, limit is %d", domain.ErrSizeExceeded, len(data), s.maxBytes)
	}
	return s.write(h, data)
}

func (s *Store) write(h Handle, data []byte) error {
	if err := WriteFileAtomic(s.Path(h), data, 0o644); err != nil {
		s.log.Error().Err(err).Str("handle", h.String()).Msg("write failed")
		return fmt.Errorf("%w: write %s: %w", domain.ErrStorage, h, err)
	}
	return nil
}

// Get returns the content behind h.
func (s *Store) Get(ctx context.Context, h Handle) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(h))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: file %s", domain.ErrNotFound, h)
		}
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrStorage, h, err)
	}
	return data, nil
}

// Stat returns metadata for h.
func (s *Store) Stat(ctx context.Context, h Handle) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}
	if err := h.Validate(); err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(s.Path(h))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileInfo{}, fmt.Errorf("%w: file %s", domain.ErrNotFound, h)
		}
		return FileInfo{}, fmt.Errorf("%w: stat %s: %w", domain.ErrStorage, h, err)
	}
	return FileInfo{Handle: h, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Delete removes the file behind h.
func (s *Store) Delete(ctx context.Context, h Handle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := h.Validate(); err != nil {
		return err
	}
	if err := os.Remove(s.Path(h)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: file %s", domain.ErrNotFound, h)
		}
		return fmt.Errorf("%w: delete %s: %w", domain.ErrStorage, h, err)
	}
	s.log.Debug().Str("handle", h.String()).Msg("file deleted")
	return nil
}

// DeletePrefix removes every file in category whose name starts with prefix.
// It returns how many files were removed.
func (s *Store) DeletePrefix(ctx context.Context, category Category, prefix string) (int, error) {
	files, err := s.List(ctx, category)
	if err != nil {
		return 0, err
	}
	removed := 0
	var errs []error
	for _, f := range files {
		if !strings.HasPrefix(f.Handle.Name(), prefix) {
			continue
		}
		if err := s.Delete(ctx, f.Handle); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// List returns the files currently present in category, sorted by name.
// In-progress temporary files are not listed.
func (s *Store) List(ctx context.Context, category Category) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !category.valid() {
		return nil, fmt.Errorf("%w: unknown storage category %q", domain.ErrValidation, category)
	}

	entries, err := os.ReadDir(filepath.Join(s.root, string(category)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list %s: %w", domain.ErrStorage, category, err)
	}

	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		out = append(out, FileInfo{
			Handle:  newHandle(category, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out, nil
}

// PurgeTemp removes temporary files older than olderThan from every category.
func (s *Store) PurgeTemp(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	var errs []error
	for _, c := range Categories {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		n, err := RemoveStaleTemp(filepath.Join(s.root, string(c)), cutoff)
		removed += n
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: purge temp files in %s: %w", domain.ErrStorage, c, err))
		}
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("stale temp files removed")
	}
	return removed, errors.Join(errs...)
}

// Path returns the absolute location of h on disk.
func (s *Store) Path(h Handle) string {
	return filepath.Join(s.root, string(h.Category()), h.Name())
}

// Health checks that every category directory is writable.
func (s *Store) Health(ctx context.Context) error {
	for _, c := range Categories {
		if err := ctx.Err(); err != nil {
			return err
		}
		probe := filepath.Join(s.root, string(c), ".health_check")
		if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
			return fmt.Errorf("%s directory not writable: %w", c, err)
		}
		_ = os.Remove(probe)
	}
	return nil
}

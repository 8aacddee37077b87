package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/storage/filestore"
)

const (
	recordFile    = "project.json"
	sourceBase    = "source"
	stagingPrefix = ".staging-"
	trashPrefix   = ".trash-"
	maxIDAttempts = 5
)

// DeleteHook runs after a project directory has been removed.
type DeleteHook func(ctx context.Context, id string) error

// ProjectRef is the part of a record the cleanup sweep needs. Readable is
// false when the directory exists but its record could not be decoded.
type ProjectRef struct {
	ID        string
	UpdatedAt time.Time
	Readable  bool
}

// Option configures a ProjectRepository.
type Option func(*ProjectRepository)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *ProjectRepository) { r.now = now }
}

// ProjectRepository stores one directory per project under root:
// <root>/<id>/project.json plus the private copy of the source image.
// Directories are published with a rename, so a project is either fully
// visible or absent.
type ProjectRepository struct {
	root  string
	log   zerolog.Logger
	locks *keyedMutex
	now   func() time.Time

	hooksMu sync.RWMutex
	hooks   []DeleteHook
}

// NewProjectRepository creates root when missing.
func NewProjectRepository(root string, log zerolog.Logger, opts ...Option) (*ProjectRepository, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("history root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	r := &ProjectRepository{
		root:  root,
		log:   log.With().Str("component", "project_repository").Logger(),
		locks: newKeyedMutex(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// OnDelete registers a hook run after every successful Delete.
func (r *ProjectRepository) OnDelete(hook DeleteHook) {
	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// Create persists a new project built from a successful generation.
func (r *ProjectRepository) Create(ctx context.Context, d domain.Draft) (*domain.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	now := r.now().UTC()
	p := &domain.Project{
		Name:      domain.NormalizeName(d.Name),
		CreatedAt: now,
		UpdatedAt: now,
		Framework: d.Framework,
		Options:   d.Options,
		Artifacts: d.Artifacts,
	}
	return r.create(ctx, p, d.SourceImage, d.SourceImageType)
}

func (r *ProjectRepository) create(ctx context.Context, p *domain.Project, image []byte, mediaType string) (*domain.Project, error) {
	if mediaType == "" {
		mediaType = mimetype.Detect(image).String()
	}
	p.SourceImageType = mediaType
	p.SourceImageRef = sourceBase + extensionFor(mediaType)

	if err := p.Validate(); err != nil {
		return nil, err
	}

	for i := 0; i < maxIDAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := uuid.New().String()
		if _, err := os.Stat(r.dir(id)); err == nil {
			continue
		}

		p.ID = id
		err := r.publish(p, image)
		if err == nil {
			r.log.Info().Str("project_id", id).Str("framework", string(p.Framework)).Msg("project created")
			return p.Clone(), nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("%w: failed to generate unique project id", domain.ErrStorage)
}

// publish writes the project into a staging directory and renames it into place.
func (r *ProjectRepository) publish(p *domain.Project, image []byte) error {
	staging := filepath.Join(r.root, stagingPrefix+p.ID)
	if err := os.Mkdir(staging, 0o755); err != nil {
		return r.storageErr("create staging directory", p.ID, err)
	}

	if err := filestore.WriteFileAtomic(filepath.Join(staging, p.SourceImageRef), image, 0o644); err != nil {
		_ = os.RemoveAll(staging)
		return r.storageErr("write source image", p.ID, err)
	}
	if err := writeRecord(staging, p); err != nil {
		_ = os.RemoveAll(staging)
		return r.storageErr("write record", p.ID, err)
	}

	final := r.dir(p.ID)
	if _, err := os.Stat(final); err == nil {
		_ = os.RemoveAll(staging)
		return fs.ErrExist
	}
	if err := os.Rename(staging, final); err != nil {
		_ = os.RemoveAll(staging)
		return r.storageErr("publish project", p.ID, err)
	}
	return nil
}

// Get returns the project with id.
func (r *ProjectRepository) Get(ctx context.Context, id string) (*domain.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, fmt.Errorf("%w: project %q", domain.ErrNotFound, id)
	}
	return r.read(id)
}

func (r *ProjectRepository) read(id string) (*domain.Project, error) {
	data, err := os.ReadFile(filepath.Join(r.dir(id), recordFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: project %s", domain.ErrNotFound, id)
		}
		return nil, r.storageErr("read record", id, err)
	}

	var p domain.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, r.storageErr("decode record", id, err)
	}
	if p.ID != id {
		return nil, r.storageErr("decode record", id, fmt.Errorf("record id %q does not match directory", p.ID))
	}
	return &p, nil
}

// List returns every readable project, newest first. Unreadable records are
// logged and skipped.
func (r *ProjectRepository) List(ctx context.Context) ([]domain.Summary, error) {
	ids, err := r.ids(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Summary, 0, len(ids))
	for _, id := range ids {
		p, err := r.read(id)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				r.log.Warn().Err(err).Str("project_id", id).Msg("skipping unreadable project")
			}
			continue
		}
		out = append(out, p.Summary())
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Update applies mutate to the stored project under the per-id lock, validates
// the result and bumps UpdatedAt. Identity and source image fields cannot change.
func (r *ProjectRepository) Update(ctx context.Context, id string, mutate func(*domain.Project) error) (*domain.Project, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: project %q", domain.ErrNotFound, id)
	}
	unlock := r.locks.Lock(id)
	defer unlock()

	cur, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := cur.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.ID = cur.ID
	next.CreatedAt = cur.CreatedAt
	next.SourceImageRef = cur.SourceImageRef
	next.SourceImageType = cur.SourceImageType
	next.Name = domain.NormalizeName(next.Name)
	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.UpdatedAt = r.nextTimestamp(cur.UpdatedAt)

	if err := writeRecord(r.dir(id), next); err != nil {
		return nil, r.storageErr("write record", id, err)
	}

	r.log.Info().Str("project_id", id).Msg("project updated")
	return next, nil
}

// Duplicate copies the project, its artifacts and its source image under a new id.
func (r *ProjectRepository) Duplicate(ctx context.Context, id string) (*domain.Project, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: project %q", domain.ErrNotFound, id)
	}

	unlock := r.locks.Lock(id)
	src, err := r.Get(ctx, id)
	if err != nil {
		unlock()
		return nil, err
	}
	image, err := os.ReadFile(filepath.Join(r.dir(id), src.SourceImageRef))
	unlock()
	if err != nil {
		return nil, r.storageErr("read source image", id, err)
	}

	now := r.now().UTC()
	cp := &domain.Project{
		Name:      domain.NormalizeName(src.Name + " (copy)"),
		CreatedAt: now,
		UpdatedAt: now,
		Framework: src.Framework,
		Options:   src.Options,
		Artifacts: src.Artifacts,
	}
	dup, err := r.create(ctx, cp, image, src.SourceImageType)
	if err != nil {
		return nil, err
	}

	r.log.Info().Str("project_id", dup.ID).Str("source_project_id", id).Msg("project duplicated")
	return dup, nil
}

// Delete removes the project directory and runs the registered delete hooks.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validID(id) {
		return fmt.Errorf("%w: project %q", domain.ErrNotFound, id)
	}
	unlock := r.locks.Lock(id)
	defer unlock()

	trash := filepath.Join(r.root, trashPrefix+id)
	if err := os.Rename(r.dir(id), trash); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: project %s", domain.ErrNotFound, id)
		}
		return r.storageErr("delete project", id, err)
	}
	if err := os.RemoveAll(trash); err != nil {
		// PurgeStaging reclaims it on the next sweep.
		r.log.Error().Err(err).Str("project_id", id).Msg("failed to remove deleted project directory")
	}

	r.hooksMu.RLock()
	hooks := append([]DeleteHook(nil), r.hooks...)
	r.hooksMu.RUnlock()
	for _, hook := range hooks {
		if err := hook(ctx, id); err != nil {
			r.log.Error().Err(err).Str("project_id", id).Msg("delete hook failed")
		}
	}

	r.log.Info().Str("project_id", id).Msg("project deleted")
	return nil
}

// SourceImage returns the project's copy of its source screenshot and its media type.
func (r *ProjectRepository) SourceImage(ctx context.Context, id string) ([]byte, string, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(filepath.Join(r.dir(id), p.SourceImageRef))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: project %s", domain.ErrNotFound, id)
		}
		return nil, "", r.storageErr("read source image", id, err)
	}
	return data, p.SourceImageType, nil
}

// References snapshots every live project directory. It fails when the
// history root cannot be listed, so callers never act on a partial view.
func (r *ProjectRepository) References(ctx context.Context) ([]ProjectRef, error) {
	ids, err := r.ids(ctx)
	if err != nil {
		return nil, err
	}

	refs := make([]ProjectRef, 0, len(ids))
	for _, id := range ids {
		p, err := r.read(id)
		switch {
		case err == nil:
			refs = append(refs, ProjectRef{ID: id, UpdatedAt: p.UpdatedAt, Readable: true})
		case errors.Is(err, domain.ErrNotFound):
			// deleted while listing
		default:
			refs = append(refs, ProjectRef{ID: id})
		}
	}
	return refs, nil
}

// PurgeStaging removes staging directories older than olderThan, any leftover
// trash directories and temporary files older than olderThan inside project
// directories. It returns how many entries were removed.
func (r *ProjectRepository) PurgeStaging(ctx context.Context, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return 0, r.storageErr("list history", "", err)
	}

	cutoff := r.now().Add(-olderThan)
	removed := 0
	var errs []error
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		name := e.Name()
		if !e.IsDir() {
			continue
		}
		switch {
		case strings.HasPrefix(name, trashPrefix):
		case strings.HasPrefix(name, stagingPrefix):
			info, err := e.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
		case validID(name):
			n, err := filestore.RemoveStaleTemp(filepath.Join(r.root, name), cutoff)
			removed += n
			if err != nil {
				errs = append(errs, err)
			}
			continue
		default:
			continue
		}
		if err := os.RemoveAll(filepath.Join(r.root, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// Health checks that the history root is readable.
func (r *ProjectRepository) Health(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(r.root)
	if err != nil {
		return fmt.Errorf("history root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("history root %s is not a directory", r.root)
	}
	return nil
}

func (r *ProjectRepository) ids(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, r.storageErr("list history", "", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && validID(e.Name()) {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

func (r *ProjectRepository) nextTimestamp(prev time.Time) time.Time {
	now := r.now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

func (r *ProjectRepository) dir(id string) string {
	return filepath.Join(r.root, id)
}

func (r *ProjectRepository) storageErr(op, id string, err error) error {
	r.log.Error().Err(err).Str("project_id", id).Msg(op + " failed")
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}

func writeRecord(dir string, p *domain.Project) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return filestore.WriteFileAtomic(filepath.Join(dir, recordFile), data, 0o644)
}

func validID(id string) bool {
	return domain.ValidID(id)
}

func extensionFor(mediaType string) string {
	if m := mimetype.Lookup(mediaType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".bin"
}

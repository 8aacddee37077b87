// Package export packages a project's current artifacts into a zip archive
// that renders standalone once extracted.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/logging"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/metrics"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/storage/filestore"
)

// ProjectReader is the read-only view of the repository the packager needs.
type ProjectReader interface {
	Get(ctx context.Context, id string) (*domain.Project, error)
}

// ArchiveStore caches built archives.
type ArchiveStore interface {
	Get(ctx context.Context, h filestore.Handle) ([]byte, error)
	PutAt(ctx context.Context, h filestore.Handle, data []byte) error
	Delete(ctx context.Context, h filestore.Handle) error
	DeletePrefix(ctx context.Context, c filestore.Category, prefix string) (int, error)
}

// Archive is a packaged project.
type Archive struct {
	FileName string
	Data     []byte
	Cached   bool
}

// Packager builds and caches project archives.
type Packager struct {
	projects ProjectReader
	store    ArchiveStore
	log      zerolog.Logger
}

func NewPackager(projects ProjectReader, store ArchiveStore, log zerolog.Logger) *Packager {
	return &Packager{
		projects: projects,
		store:    store,
		log:      log.With().Str("component", "export").Logger(),
	}
}

// ArchiveName is the cache file name of a project revision. A project owns
// every export whose name starts with its id followed by a dash.
func ArchiveName(id string, updatedAt time.Time) string {
	return fmt.Sprintf("%s-%d.zip", id, updatedAt.UnixNano())
}

// ArchivePrefix matches every cached archive of id.
func ArchivePrefix(id string) string {
	return id + "-"
}

// Export returns the archive for the project's current revision, building it
// when no cached copy exists.
func (p *Packager) Export(ctx context.Context, id string) (*Archive, error) {
	log := logging.Op(ctx, p.log, "export")

	proj, err := p.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fileName := downloadName(proj)
	h := filestore.Handle(string(filestore.CategoryExports) + "/" + ArchiveName(proj.ID, proj.UpdatedAt))

	data, err := p.store.Get(ctx, h)
	if err == nil {
		metrics.RecordExport(true)
		return &Archive{FileName: fileName, Data: data, Cached: true}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Str("project_id", id).Msg("export cache read failed, rebuilding")
	}

	data, err = Build(proj)
	if err != nil {
		return nil, err
	}
	metrics.RecordExport(false)

	if err := p.store.PutAt(ctx, h, data); err != nil {
		log.Warn().Err(err).Str("project_id", id).Msg("failed to cache export")
		return &Archive{FileName: fileName, Data: data}, nil
	}

	// A delete that raced the build has already purged this project's
	// exports; drop the file just written so it does not linger.
	if _, err := p.projects.Get(ctx, id); errors.Is(err, domain.ErrNotFound) {
		_ = p.store.Delete(ctx, h)
	}
	return &Archive{FileName: fileName, Data: data}, nil
}

// Purge removes every cached archive of id. It is registered as a repository
// delete hook.
func (p *Packager) Purge(ctx context.Context, id string) error {
	n, err := p.store.DeletePrefix(ctx, filestore.CategoryExports, ArchivePrefix(id))
	if n > 0 {
		p.log.Debug().Str("project_id", id).Int("removed", n).Msg("purged cached exports")
	}
	return err
}

// Build zips index.html, style.css and, when the project has JS, script.js.
func Build(p *domain.Project) ([]byte, error) {
	if !p.Artifacts.Complete() {
		return nil, fmt.Errorf("%w: project %s has no generated code to export", domain.ErrValidation, p.ID)
	}
	hasScript := strings.TrimSpace(p.Artifacts.JS) != ""

	index, err := renderIndex(p, hasScript)
	if err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}

	entries := []struct {
		name string
		body string
	}{
		{indexFile, index},
		{styleFile, p.Artifacts.CSS},
	}
	if hasScript {
		entries = append(entries, struct {
			name string
			body string
		}{scriptFile, p.Artifacts.JS})
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: p.UpdatedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("zip %s: %w", e.name, err)
		}
		if _, err := w.Write([]byte(e.body)); err != nil {
			return nil, fmt.Errorf("zip %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip close: %w", err)
	}
	return buf.Bytes(), nil
}

func downloadName(p *domain.Project) string {
	base, _ := filestore.SanitizeName(p.Name + ".zip")
	return base + ".zip"
}

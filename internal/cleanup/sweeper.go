// Package cleanup reclaims files under the storage roots that no live project
// references.
package cleanup

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/metrics"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/export"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/repository"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/storage/filestore"
)

// DefaultGrace is the minimum age of a file before it may be reclaimed.
const DefaultGrace = 15 * time.Minute

// ReferenceSource enumerates live projects.
type ReferenceSource interface {
	References(ctx context.Context) ([]repository.ProjectRef, error)
	PurgeStaging(ctx context.Context, olderThan time.Duration) (int, error)
}

// Files is the part of the file store the sweep touches.
type Files interface {
	List(ctx context.Context, c filestore.Category) ([]filestore.FileInfo, error)
	Delete(ctx context.Context, h filestore.Handle) error
	PurgeTemp(ctx context.Context, olderThan time.Duration) (int, error)
}

// PinSource reports uploads that in-flight generations still use.
type PinSource interface {
	Pinned() map[filestore.Handle]bool
}

// Report summarizes one sweep.
type Report struct {
	Scanned    int           `json:"scanned"`
	Deleted    int           `json:"deleted"`
	Referenced int           `json:"referenced"`
	Young      int           `json:"young"`
	Errors     int           `json:"errors"`
	Purged     int           `json:"purged"`
	TempFiles  int           `json:"temp_files"`
	Duration   time.Duration `json:"duration"`
}

// Sweeper deletes unreferenced files older than the grace threshold.
type Sweeper struct {
	refs  ReferenceSource
	files Files
	pins  PinSource
	grace time.Duration
	log   zerolog.Logger
	now   func() time.Time
	mu    sync.Mutex
}

// NewSweeper builds a sweeper. pins may be nil.
func NewSweeper(refs ReferenceSource, files Files, pins PinSource, grace time.Duration, log zerolog.Logger) *Sweeper {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Sweeper{
		refs:  refs,
		files: files,
		pins:  pins,
		grace: grace,
		log:   log.With().Str("component", "cleanup").Logger(),
		now:   time.Now,
	}
}

type referenceSet struct {
	exports  map[string]bool
	prefixes []string
	pinned   map[filestore.Handle]bool
}

func (rs referenceSet) holds(f filestore.FileInfo) bool {
	if rs.pinned[f.Handle] {
		return true
	}
	if f.Handle.Category() != filestore.CategoryExports {
		return false
	}
	name := f.Handle.Name()
	if rs.exports[name] {
		return true
	}
	for _, p := range rs.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Sweep takes the reference snapshot first, then lists and deletes. A failure
// to build the snapshot aborts the sweep without deleting anything; failures
// on single files are logged and counted.
func (s *Sweeper) Sweep(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	var rep Report

	rs, err := s.snapshot(ctx)
	if err != nil {
		metrics.RecordSweep("failed")
		s.log.Error().Err(err).Msg("cleanup aborted, reference snapshot failed")
		return rep, err
	}
	cutoff := start.Add(-s.grace)

	for _, c := range filestore.Categories {
		files, err := s.files.List(ctx, c)
		if err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			rep.Errors++
			s.log.Error().Err(err).Str("category", string(c)).Msg("cleanup could not list files")
			continue
		}

		for _, f := range files {
			rep.Scanned++
			switch {
			case f.ModTime.After(cutoff):
				rep.Young++
				continue
			case rs.holds(f):
				rep.Referenced++
				continue
			}

			if err := s.files.Delete(ctx, f.Handle); err != nil {
				if ctx.Err() != nil {
					return rep, ctx.Err()
				}
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				rep.Errors++
				s.log.Warn().Err(err).Str("handle", f.Handle.String()).Msg("cleanup could not delete file")
				continue
			}
			rep.Deleted++
			metrics.RecordCleanupDelete(string(c))
			s.log.Debug().Str("handle", f.Handle.String()).Time("mod_time", f.ModTime).Msg("orphaned file deleted")
		}
	}

	purged, err := s.refs.PurgeStaging(ctx, s.grace)
	rep.Purged = purged
	if err != nil {
		rep.Errors++
		s.log.Warn().Err(err).Msg("cleanup could not purge staging directories")
	}

	temps, err := s.files.PurgeTemp(ctx, s.grace)
	rep.TempFiles = temps
	if err != nil {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		rep.Errors++
		s.log.Warn().Err(err).Msg("cleanup could not purge temp files")
	}

	rep.Duration = s.now().Sub(start)
	status := "success"
	if rep.Errors > 0 {
		status = "partial"
	}
	metrics.RecordSweep(status)
	s.log.Info().
		Int("scanned", rep.Scanned).
		Int("deleted", rep.Deleted).
		Int("referenced", rep.Referenced).
		Int("young", rep.Young).
		Int("errors", rep.Errors).
		Int("purged", rep.Purged).
		Int("temp_files", rep.TempFiles).
		Dur("duration", rep.Duration).
		Msg("cleanup sweep finished")
	return rep, nil
}

func (s *Sweeper) snapshot(ctx context.Context) (referenceSet, error) {
	refs, err := s.refs.References(ctx)
	if err != nil {
		return referenceSet{}, err
	}

	rs := referenceSet{exports: make(map[string]bool, len(refs))}
	for _, r := range refs {
		if r.Readable {
			rs.exports[export.ArchiveName(r.ID, r.UpdatedAt)] = true
			continue
		}
		// without a readable record the current revision is unknown
		rs.prefixes = append(rs.prefixes, export.ArchivePrefix(r.ID))
	}
	if s.pins != nil {
		rs.pinned = s.pins.Pinned()
	}
	return rs, nil
}

package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/logging"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/export"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/repository"
)

// ProjectService handles project-related business logic
type ProjectService struct {
	repo    *repository.ProjectRepository
	exports *export.Packager
	log     zerolog.Logger
}

// NewProjectService creates a new project service
func NewProjectService(repo *repository.ProjectRepository, exports *export.Packager, log zerolog.Logger) *ProjectService {
	return &ProjectService{
		repo:    repo,
		exports: exports,
		log:     log.With().Str("component", "projects").Logger(),
	}
}

// Get returns a project
func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	return s.repo.Get(ctx, id)
}

// List returns project summaries, newest first. A positive limit truncates the result.
func (s *ProjectService) List(ctx context.Context, limit int) ([]domain.Summary, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Save applies an edit to a project
func (s *ProjectService) Save(ctx context.Context, id string, req domain.UpdateProjectRequest) (*domain.Project, error) {
	if req.Framework != nil && !req.Framework.Valid() {
		return nil, fmt.Errorf("%w: unsupported framework %q", domain.ErrValidation, *req.Framework)
	}
	p, err := s.repo.Update(ctx, id, func(p *domain.Project) error {
		generated := p.Artifacts.Complete()
		req.Apply(p)
		if generated && !p.Artifacts.Complete() {
			return fmt.Errorf("%w: html and css cannot be cleared on a generated project", domain.ErrValidation)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log := logging.Op(ctx, s.log, "save")
	log.Info().Str("project_id", id).Msg("project saved")
	return p, nil
}

// Duplicate copies a project under a new id
func (s *ProjectService) Duplicate(ctx context.Context, id string) (*domain.Project, error) {
	return s.repo.Duplicate(ctx, id)
}

// Delete removes a project and its cached exports
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Export packages a project as a zip archive
func (s *ProjectService) Export(ctx context.Context, id string) (*export.Archive, error) {
	return s.exports.Export(ctx, id)
}

// SourceImage returns the screenshot a project was generated from
func (s *ProjectService) SourceImage(ctx context.Context, id string) ([]byte, string, error) {
	return s.repo.SourceImage(ctx, id)
}

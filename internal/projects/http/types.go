package http

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/export"
)

// Generator runs generations and reports their progress.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error)
	Status(ctx context.Context, id string) (*domain.Generation, error)
	Watch(ctx context.Context, id string) (<-chan struct{}, error)
}

// generationIDHeader carries the id of the generation a response belongs to.
const generationIDHeader = "X-Generation-Id"

// Projects is the project lifecycle used by the handlers.
type Projects interface {
	Get(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context, limit int) ([]domain.Summary, error)
	Save(ctx context.Context, id string, req domain.UpdateProjectRequest) (*domain.Project, error)
	Duplicate(ctx context.Context, id string) (*domain.Project, error)
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, id string) (*export.Archive, error)
	SourceImage(ctx context.Context, id string) ([]byte, string, error)
}

// multipartOverhead is allowed on top of the image limit for form fields and boundaries.
const multipartOverhead = 1 << 20

// Handler bundles the dependencies for project HTTP endpoints.
type Handler struct {
	gen       Generator
	projects  Projects
	maxUpload int64
	log       zerolog.Logger

	pollInterval time.Duration
	keepAlive    time.Duration
}

func New(gen Generator, projects Projects, maxUpload int64, log zerolog.Logger) *Handler {
	return &Handler{
		gen:          gen,
		projects:     projects,
		maxUpload:    maxUpload,
		log:          log.With().Str("component", "projects_http").Logger(),
		pollInterval: time.Second,
		keepAlive:    15 * time.Second,
	}
}

type generateResponse struct {
	ProjectID    string `json:"project_id"`
	GenerationID string `json:"generation_id"`
	Name         string `json:"name"`
	Framework    string `json:"framework"`
	HTML         string `json:"html"`
	CSS          string `json:"css"`
	JS           string `json:"js,omitempty"`
	Shared       bool   `json:"shared,omitempty"`
}

type saveReq struct {
	Name      *string         `json:"name"`
	Framework *string         `json:"framework"`
	Options   *domain.Options `json:"options"`
	HTML      *string         `json:"html"`
	CSS       *string         `json:"css"`
	JS        *string         `json:"js"`
}

func (r saveReq) toUpdate() (domain.UpdateProjectRequest, error) {
	out := domain.UpdateProjectRequest{
		Name:    r.Name,
		Options: r.Options,
		HTML:    r.HTML,
		CSS:     r.CSS,
		JS:      r.JS,
	}
	if r.Framework != nil {
		fw, err := domain.ParseFramework(*r.Framework)
		if err != nil {
			return out, err
		}
		out.Framework = &fw
	}
	return out, nil
}

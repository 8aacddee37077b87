package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/codegen"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/logging"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/metrics"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/tracker"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/storage/filestore"
)

// DefaultGenerationTimeout bounds one call to the code generator.
const DefaultGenerationTimeout = 120 * time.Second

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// ProjectCreator persists successful generations.
type ProjectCreator interface {
	Create(ctx context.Context, d domain.Draft) (*domain.Project, error)
}

// UploadStore holds uploaded screenshots while they are being processed.
type UploadStore interface {
	Put(ctx context.Context, c filestore.Category, suggestedName string, data []byte) (filestore.Handle, error)
	Delete(ctx context.Context, h filestore.Handle) error
}

// GenerationService turns a screenshot into a persisted project:
// validate, store the upload, call the generator, persist, clean up.
type GenerationService struct {
	projects ProjectCreator
	uploads  UploadStore
	client   codegen.Client
	tracker  tracker.Tracker
	fetcher  ImageFetcher
	timeout  time.Duration
	log      zerolog.Logger
	now      func() time.Time

	group singleflight.Group
	runs  sync.WaitGroup

	pinMu  sync.Mutex
	pinned map[filestore.Handle]int
}

func NewGenerationService(
	projects ProjectCreator,
	uploads UploadStore,
	client codegen.Client,
	tr tracker.Tracker,
	fetcher ImageFetcher,
	timeout time.Duration,
	log zerolog.Logger,
) *GenerationService {
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	return &GenerationService{
		projects: projects,
		uploads:  uploads,
		client:   client,
		tracker:  tr,
		fetcher:  fetcher,
		timeout:  timeout,
		log:      log.With().Str("component", "generation").Logger(),
		now:      time.Now,
		pinned:   make(map[filestore.Handle]int),
	}
}

type validatedRequest struct {
	image     []byte
	mediaType string
	name      string
	req       domain.GenerationRequest
}

// Generate runs one generation. Identical requests already in flight share the
// leader's result. Once the upstream call has started it runs to completion
// even if ctx is cancelled, and a successful result is saved regardless.
func (s *GenerationService) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	log := logging.Op(ctx, s.log, "generate")
	start := s.now()

	id := req.GenerationID
	switch {
	case id == "":
		id = uuid.New().String()
	case !domain.ValidID(id):
		return nil, fmt.Errorf("%w: generation id must be a lowercase uuid", domain.ErrValidation)
	}

	gen := &domain.Generation{
		ID:        id,
		Framework: req.Framework,
		CreatedAt: start.UTC(),
	}
	gen.Advance(domain.StateReceived, start.UTC())
	if err := s.tracker.Create(ctx, gen); err != nil {
		if errors.Is(err, tracker.ErrIDTaken) {
			return nil, err
		}
		log.Warn().Err(err).Str("generation_id", gen.ID).Msg("failed to record generation state")
	}
	log = log.With().Str("generation_id", gen.ID).Logger()

	in, err := s.validate(ctx, req)
	if err != nil {
		s.fail(ctx, log, gen, err)
		return nil, err
	}
	s.advance(ctx, log, gen, domain.StateValidated)

	work := context.WithoutCancel(ctx)
	var led atomic.Bool
	s.runs.Add(1)
	ch := s.group.DoChan(coalesceKey(in), func() (any, error) {
		led.Store(true)
		return s.run(work, log, gen, in)
	})

	select {
	case res := <-ch:
		defer s.runs.Done()
		shared := !led.Load()
		if shared {
			s.settleShared(ctx, log, gen, res)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		p := res.Val.(*domain.Project)
		return &domain.GenerationResult{GenerationID: gen.ID, Project: p.Clone(), Shared: shared}, nil

	case <-ctx.Done():
		go func() {
			defer s.runs.Done()
			res := <-ch
			if !led.Load() {
				s.settleShared(work, log, gen, res)
			}
		}()
		log.Warn().Err(ctx.Err()).Msg("caller gone, generation continues and will be saved")
		return nil, ctx.Err()
	}
}

// Drain blocks until every generation started so far has settled, including
// runs whose caller has gone, or until ctx ends.
func (s *GenerationService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// settleShared records the outcome for a caller that joined another request's run.
func (s *GenerationService) settleShared(ctx context.Context, log zerolog.Logger, gen *domain.Generation, res singleflight.Result) {
	if res.Err != nil {
		s.fail(ctx, log, gen, res.Err)
		return
	}
	p := res.Val.(*domain.Project)
	gen.ProjectID = p.ID
	s.advance(ctx, log, gen, domain.StatePersisted)
	metrics.RecordGeneration(frameworkLabel(gen.Framework), "shared")
	log.Info().Str("project_id", p.ID).Msg("joined in-flight generation")
}

// run is executed once per coalesced group on a context detached from the caller.
func (s *GenerationService) run(ctx context.Context, log zerolog.Logger, gen *domain.Generation, in validatedRequest) (*domain.Project, error) {
	fw := string(in.req.Framework)

	h, err := s.uploads.Put(ctx, filestore.CategoryUploads, in.name, in.image)
	if err != nil {
		s.fail(ctx, log, gen, err)
		return nil, err
	}
	s.pin(h)
	defer s.unpin(h)
	metrics.RecordUpload(len(in.image))
	s.advance(ctx, log, gen, domain.StateImageStored)

	s.advance(ctx, log, gen, domain.StateGenerating)
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	upstreamStart := s.now()
	res, err := s.client.Generate(callCtx, codegen.Input{
		Image:     in.image,
		MediaType: in.mediaType,
		Framework: in.req.Framework,
		Options:   in.req.Options,
	})
	cancel()
	metrics.ObserveUpstream(fw, s.now().Sub(upstreamStart).Seconds())

	if err == nil && !(domain.Artifacts{HTML: res.HTML, CSS: res.CSS}).Complete() {
		err = errors.New("generator returned no html or css")
	}
	if err != nil {
		if !errors.Is(err, domain.ErrGeneration) {
			err = fmt.Errorf("%w: %w", domain.ErrGeneration, err)
		}
		s.discardUpload(ctx, log, h)
		s.fail(ctx, log, gen, err)
		return nil, err
	}
	s.advance(ctx, log, gen, domain.StateSucceeded)

	p, err := s.projects.Create(ctx, domain.Draft{
		Name:            in.req.ProjectName,
		Framework:       in.req.Framework,
		Options:         in.req.Options,
		Artifacts:       domain.Artifacts{HTML: res.HTML, CSS: res.CSS, JS: res.JS},
		SourceImage:     in.image,
		SourceImageType: in.mediaType,
	})
	if err != nil {
		s.discardUpload(ctx, log, h)
		s.fail(ctx, log, gen, err)
		return nil, err
	}

	// the project owns a private copy now
	s.discardUpload(ctx, log, h)

	gen.ProjectID = p.ID
	s.advance(ctx, log, gen, domain.StatePersisted)
	metrics.RecordGeneration(fw, "success")
	log.Info().
		Str("project_id", p.ID).
		Str("framework", fw).
		Bool("has_js", p.Artifacts.JS != "").
		Dur("elapsed", s.now().Sub(gen.CreatedAt)).
		Msg("generation persisted")
	return p, nil
}

func (s *GenerationService) validate(ctx context.Context, req domain.GenerationRequest) (validatedRequest, error) {
	if !req.Framework.Valid() {
		return validatedRequest{}, fmt.Errorf("%w: unsupported framework %q", domain.ErrValidation, req.Framework)
	}

	image, name := req.Image, req.ImageName
	if len(image) == 0 {
		if strings.TrimSpace(req.ImageURL) == "" {
			return validatedRequest{}, fmt.Errorf("%w: an image file or imageUrl is required", domain.ErrValidation)
		}
		if s.fetcher == nil {
			return validatedRequest{}, fmt.Errorf("%w: imageUrl is not supported", domain.ErrValidation)
		}
		var err error
		image, name, err = s.fetcher.Fetch(ctx, req.ImageURL)
		if err != nil {
			return validatedRequest{}, err
		}
		if len(image) == 0 {
			return validatedRequest{}, fmt.Errorf("%w: imageUrl returned no content", domain.ErrValidation)
		}
	}

	mt := mimetype.Detect(image)
	if !allowedImageTypes[mt.String()] {
		return validatedRequest{}, fmt.Errorf("%w: unsupported image type %s", domain.ErrValidation, mt.String())
	}
	if err := codegen.CheckImageSize(image); err != nil {
		return validatedRequest{}, err
	}
	if strings.TrimSpace(name) == "" || name == "/" || name == "." {
		name = "screenshot"
	}
	if !strings.Contains(name, ".") {
		name += mt.Extension()
	}

	return validatedRequest{image: image, mediaType: mt.String(), name: name, req: req}, nil
}

// Status returns the tracked state of a generation.
func (s *GenerationService) Status(ctx context.Context, id string) (*domain.Generation, error) {
	return s.tracker.Get(ctx, id)
}

// Watch signals after each recorded transition of the generation with id.
func (s *GenerationService) Watch(ctx context.Context, id string) (<-chan struct{}, error) {
	return s.tracker.Subscribe(ctx, id)
}

// Pinned returns the upload handles of generations currently in flight.
func (s *GenerationService) Pinned() map[filestore.Handle]bool {
	s.pinMu.Lock()
	defer s.pinMu.Unlock()
	out := make(map[filestore.Handle]bool, len(s.pinned))
	for h := range s.pinned {
		out[h] = true
	}
	return out
}

func (s *GenerationService) pin(h filestore.Handle) {
	s.pinMu.Lock()
	s.pinned[h]++
	s.pinMu.Unlock()
}

func (s *GenerationService) unpin(h filestore.Handle) {
	s.pinMu.Lock()
	defer s.pinMu.Unlock()
	if s.pinned[h] <= 1 {
		delete(s.pinned, h)
		return
	}
	s.pinned[h]--
}

func (s *GenerationService) discardUpload(ctx context.Context, log zerolog.Logger, h filestore.Handle) {
	if err := s.uploads.Delete(ctx, h); err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Str("handle", h.String()).Msg("failed to remove upload, cleanup will reclaim it")
	}
}

func (s *GenerationService) advance(ctx context.Context, log zerolog.Logger, gen *domain.Generation, state domain.GenerationState) {
	gen.Advance(state, s.now().UTC())
	if err := s.tracker.Record(ctx, gen); err != nil {
		log.Warn().Err(err).Str("generation_id", gen.ID).Str("state", string(state)).Msg("failed to record generation state")
	}
}

func (s *GenerationService) fail(ctx context.Context, log zerolog.Logger, gen *domain.Generation, err error) {
	gen.Error = err.Error()
	s.advance(ctx, log, gen, domain.StateFailed)
	metrics.RecordGeneration(frameworkLabel(gen.Framework), failureLabel(err))

	ev := log.Warn()
	if errors.Is(err, domain.ErrStorage) {
		ev = log.Error()
	}
	ev.Err(err).Str("generation_id", gen.ID).Msg("generation failed")
}

func frameworkLabel(fw domain.Framework) string {
	if !fw.Valid() {
		return "unknown"
	}
	return string(fw)
}

func failureLabel(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrSizeExceeded):
		return "too_large"
	case errors.Is(err, domain.ErrStorage):
		return "storage_error"
	default:
		return "failed"
	}
}

// coalesceKey identifies requests that would produce the same project.
func coalesceKey(in validatedRequest) string {
	h := sha256.New()
	h.Write(in.image)
	fmt.Fprintf(h, "|%s|%t|%t|%t|%s",
		in.req.Framework,
		in.req.Options.Responsive,
		in.req.Options.Animations,
		in.req.Options.DarkMode,
		domain.NormalizeName(in.req.ProjectName),
	)
	return hex.EncodeToString(h.Sum(nil))
}

package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/codegen"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/codegen/codegentest"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/export"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/repository"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/service"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/tracker"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/storage/filestore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	root    string
	fake    *codegentest.Fake
	handler *Handler
	router  *gin.Engine
}

func newTestServer(t *testing.T, fake *codegentest.Fake) *testServer {
	t.Helper()
	root := t.TempDir()
	store, err := filestore.New(root, filestore.DefaultMaxBytes, zerolog.Nop())
	require.NoError(t, err)
	repo, err := repository.NewProjectRepository(filepath.Join(root, "history"), zerolog.Nop())
	require.NoError(t, err)
	packager := export.NewPackager(repo, store, zerolog.Nop())
	repo.OnDelete(packager.Purge)

	gen := service.NewGenerationService(repo, store, fake, tracker.NewMemory(time.Hour), nil, 5*time.Second, zerolog.Nop())
	projects := service.NewProjectService(repo, packager, zerolog.Nop())

	h := New(gen, projects, filestore.DefaultMaxBytes, zerolog.Nop())
	h.pollInterval = 10 * time.Millisecond

	r := gin.New()
	h.Register(r)
	return &testServer{root: root, fake: fake, handler: h, router: r}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (s *testServer) uploads(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(s.root, "uploads"))
	require.NoError(t, err)
	return entries
}

func pngBytes(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(0, 0, color.RGBA{G: shade, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func generateRequest(t *testing.T, image []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if image != nil {
		fw, err := mw.CreateFormFile("image", "screen.png")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/generate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *testServer) generate(t *testing.T, shade uint8, fields map[string]string) generateResponse {
	t.Helper()
	w := s.do(generateRequest(t, pngBytes(t, shade), fields))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out generateResponse
	decode(t, w, &out)
	return out
}

func TestGenerateTailwindEndToEnd(t *testing.T) {
	fake := &codegentest.Fake{Result: &codegen.Result{
		HTML: `<div class="grid grid-cols-3 gap-4">plans</div>`,
		CSS:  ".grid { min-height: 10rem; }",
	}}
	s := newTestServer(t, fake)

	w := s.do(generateRequest(t, pngBytes(t, 1), map[string]string{
		"framework":   "tailwind",
		"projectName": "Pricing Page",
		"responsive":  "true",
		"darkMode":    "on",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var raw map[string]any
	decode(t, w, &raw)
	assert.NotContains(t, raw, "js")

	var res generateResponse
	decode(t, w, &res)
	assert.NotEmpty(t, res.ProjectID)
	assert.NotEmpty(t, res.GenerationID)
	assert.Equal(t, "tailwind", res.Framework)
	assert.Equal(t, "Pricing Page", res.Name)
	assert.Contains(t, res.HTML, "grid-cols-3")
	assert.NotEmpty(t, res.CSS)

	inputs := fake.Inputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, domain.FrameworkTailwind, inputs[0].Framework)
	assert.Equal(t, domain.Options{Responsive: true, DarkMode: true}, inputs[0].Options)
	assert.Empty(t, s.uploads(t), "upload removed once the project owns a copy")

	w = s.get("/project/" + res.ProjectID)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Project domain.Project `json:"project"`
	}
	decode(t, w, &got)
	assert.Equal(t, res.HTML, got.Project.Artifacts.HTML)
	assert.Empty(t, got.Project.Artifacts.JS)

	w = s.get("/project/" + res.ProjectID + "/export")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="pricing-page.zip"`)
	assert.Equal(t, "miss", w.Header().Get("X-Export-Cache"))

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"index.html", "style.css"}, names)

	w = s.get("/project/" + res.ProjectID + "/export")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hit", w.Header().Get("X-Export-Cache"))

	w = s.get("/project/" + res.ProjectID + "/image")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes(t, 1), w.Body.Bytes())
}

func TestGenerateReturnsJSWhenPresent(t *testing.T) {
	s := newTestServer(t, &codegentest.Fake{Result: &codegen.Result{HTML: "<button>x</button>", CSS: "button{}", JS: "console.log(1)"}})
	res := s.generate(t, 2, nil)
	assert.Equal(t, "console.log(1)", res.JS)
	assert.Equal(t, "default", res.Framework)
	assert.Equal(t, domain.DefaultProjectName, res.Name)
}

func TestGenerateRejectsBadInput(t *testing.T) {
	s := newTestServer(t, &codegentest.Fake{})

	cases := map[string]*http.Request{
		"no image":         generateRequest(t, nil, map[string]string{"framework": "bootstrap"}),
		"bad framework":    generateRequest(t, pngBytes(t, 3), map[string]string{"framework": "bulma"}),
		"bad flag":         generateRequest(t, pngBytes(t, 3), map[string]string{"animations": "sometimes"}),
		"not an image":     generateRequest(t, []byte("just some text, not pixels"), nil),
		"url not accepted": generateRequest(t, nil, map[string]string{"imageUrl": "http://example.com/a.png"}),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			w := s.do(req)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			var body map[string]string
			decode(t, w, &body)
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Zero(t, s.fake.Calls())
	assert.Empty(t, s.uploads(t))
}

func TestGenerateRejectsOversizedUploads(t *testing.T) {
	s := newTestServer(t, &codegentest.Fake{})

	justOver := append(pngBytes(t, 4), make([]byte, filestore.DefaultMaxBytes)...)
	w := s.do(generateRequest(t, justOver, nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())

	wayOver := append(pngBytes(t, 4), make([]byte, 3*filestore.DefaultMaxBytes)...)
	w = s.do(generateRequest(t, wayOver, nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())

	assert.Zero(t, s.fake.Calls())
	assert.Empty(t, s.uploads(t))

	w = s.get("/history")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"projects":[]}`, w.Body.String())
}

func TestGenerateUpstreamErrors(t *testing.T) {
	t.Run("generator failure is a bad gateway", func(t *testing.T) {
		s := newTestServer(t, &codegentest.Fake{Err: fmt.Errorf("%w: model overloaded", domain.ErrGeneration)})
		w := s.do(generateRequest(t, pngBytes(t, 5), nil))
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "model overloaded")
		assert.Empty(t, s.uploads(t))

		var body map[string]string
		decode(t, w, &body)
		genID := w.Header().Get("X-Generation-Id")
		require.NotEmpty(t, genID)
		assert.Equal(t, genID, body["generation_id"])

		status := s.get("/generation/" + genID)
		require.Equal(t, http.StatusOK, status.Code)
		assert.Contains(t, status.Body.String(), `"state":"failed"`)
	})

	t.Run("generator timeout is a gateway timeout", func(t *testing.T) {
		s := newTestServer(t, &codegentest.Fake{Err: fmt.Errorf("%w: %w", domain.ErrGeneration, context.DeadlineExceeded)})
		w := s.do(generateRequest(t, pngBytes(t, 6), nil))
		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	})
}

func TestProjectNotFound(t *testing.T) {
	s := newTestServer(t, &codegentest.Fake{})
	for _, id := range []string{"8e1f2c3a-0000-4000-8000-000000000000", "not-an-id", "..%2F..%2Fetc"} {
		assert.Equal(t, http.StatusNotFound, s.get("/project/"+id).Code, id)
		assert.Equal(t, http.StatusNotFound, s.get("/project/"+id+"/export").Code, id)
		assert.Equal(t, http.StatusNotFound, s.get("/project/"+id+"/image").Code, id)
		assert.Equal(t, http.StatusNotFound, s.do(httptest.NewRequest(http.MethodDelete, "/project/"+id, nil)).Code, id)
		assert.Equal(t, http.StatusNotFound, s.do(httptest.NewRequest(http.MethodPost, "/project/"+id+"/duplicate", nil)).Code, id)
		put := httptest.NewRequest(http.MethodPut, "/project/"+id, strings.NewReader(`{"name":"x"}`))
		put.Header.Set("Content-Type", "application/json")
		assert.Equal(t, http.StatusNotFound, s.do(put).Code, id)
	}
	assert.Equal(t, http.StatusNotFound, s.get("/generation/8e1f2c3a-0000-4000-8000-000000000000").Code)
	assert.Equal(t, http.StatusNotFound, s.get("/generation/8e1f2c3a-0000-4000-8000-000000000000/events").Code)
}

func TestHistoryNewestFirst(t *testing.T) {
	s := newTestServer(t, &codegentest.Fake{})
	first := s.generate(t, 10, map[string]string{"projectName": "first"})
	second := s.generate(t, 11, map[string]string{"projectName": "second"})
	third := s.generate(t, 12, map[string]string{"projectName": "third"})

	var out struct {
		Projects []domain.Summary `json:"projects"`
	}
	w := s.get("/history")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &out)
	require.Len(t, out.Projects, 3)
	assert.Equal(t, []string{third.ProjectID, second.ProjectID, first.ProjectID},
		[]string{out.Projects[0].ID, out.Projects[1].ID, out.Projects[2].ID})

	w = s.get("/history?limit=2")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &out)
	assert.Len(t, out.Projects, 2)

	assert.Equal(t, http.StatusBadRequest, s.get("/history?limit=-1").Code)
	assert.Equal(t, http.StatusBadRequest, s.get("/history?limit=ten").Code)
}

func TestSaveProject(t *testing.T) {
	s := newTestServer(t, &codegentest.Fake{})
	res := s.generate(t, 20, map[string]string{"projectName": "Landing"})

	put := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/project/"+res.ProjectID, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return s.do(req)
	}

	w := put(`{"css":"div { color: blue; }","framework":"Bootstrap","options":{"animations":true}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Project domain.Project `json:"project"`
	}
	decode(t, w, &out)
	assert.Equal(t, "div { color: blue; }", out.Project.Artifacts.CSS)
	assert.Equal(t, res.HTML, out.Project.Artifacts.HTML)
	assert.Equal(t, domain.FrameworkBootstrap, out.Project.Framework)
	assert.True(t, out.Project.Options.Animations)
	assert.Equal(t, "Landing", out.Project.Name)

	assert.Equal(t, http.StatusBadRequest, put(`{"framework":"bulma"}`).Code)
	assert.Equal(t, http.StatusBadRequest, put(`{"html":""}`).Code, "half-populated artifacts")
	assert.Equal(t, http.StatusBadRequest, put(`{not json`).Code)

	w = s.get("/project/" + res.ProjectID)
	decode(t, w, &out)
	assert.Equal(t, "div { color: blue; }", out.Project.Artifacts.CSS, "rejected saves change nothing")
}

func TestDuplicateAndDelete(t *testing.T) {
	s := newTestServer(t, &codegentest.Fake{Result: &codegen.Result{HTML: "<p>a</p>", CSS: "p{}", JS: "1"}})
	res := s.generate(t, 30, map[string]string{"projectName": "Original"})

	w := s.get("/project/" + res.ProjectID + "/export")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(httptest.NewRequest(http.MethodPost, "/project/"+res.ProjectID+"/duplicate", nil))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var dup struct {
		Project domain.Project `json:"project"`
	}
	decode(t, w, &dup)
	assert.NotEqual(t, res.ProjectID, dup.Project.ID)
	assert.Equal(t, "Original (copy)", dup.Project.Name)
	assert.Equal(t, "1", dup.Project.Artifacts.JS)

	w = s.do(httptest.NewRequest(http.MethodDelete, "/project/"+res.ProjectID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, s.get("/project/"+res.ProjectID).Code)
	assert.Equal(t, http.StatusNotFound, s.get("/project/"+res.ProjectID+"/export").Code)

	exports, err := os.ReadDir(filepath.Join(s.root, "exports"))
	require.NoError(t, err)
	assert.Empty(t, exports, "cached archive removed with the project")

	w = s.get("/project/" + dup.Project.ID + "/image")
	require.Equal(t, http.StatusOK, w.Code, "duplicate owns its own image")
	assert.Equal(t, pngBytes(t, 30), w.Body.Bytes())
}

func TestGenerationStatusAndEvents(t *testing.T) {
	s := newTestServer(t, &codegentest.Fake{})
	res := s.generate(t, 40, nil)

	w := s.get("/generation/" + res.GenerationID)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Generation domain.Generation `json:"generation"`
	}
	decode(t, w, &out)
	assert.Equal(t, domain.StatePersisted, out.Generation.State)
	assert.Equal(t, res.ProjectID, out.Generation.ProjectID)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/generation/" + res.GenerationID + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(t, resp.Body)
	require.Len(t, events, 1, "terminal generations end the stream after the initial event")
	assert.Equal(t, "initial", events[0].name)
	assert.Contains(t, events[0].data, `"state":"persisted"`)
}

type scriptedGenerator struct {
	mu     sync.Mutex
	states []domain.GenerationState
	calls  int
}

func (g *scriptedGenerator) Generate(context.Context, domain.GenerationRequest) (*domain.GenerationResult, error) {
	return nil, errors.New("not used")
}

func (g *scriptedGenerator) Watch(context.Context, string) (<-chan struct{}, error) {
	return nil, errors.New("push updates not supported")
}

func (g *scriptedGenerator) Status(_ context.Context, id string) (*domain.Generation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	if i >= len(g.states) {
		i = len(g.states) - 1
	}
	g.calls++
	changed := i
	for changed > 0 && g.states[changed-1] == g.states[i] {
		changed--
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Generation{
		ID:        id,
		State:     g.states[i],
		UpdatedAt: base.Add(time.Duration(changed) * time.Second),
	}, nil
}

func TestGenerationEventsFollowInFlightGeneration(t *testing.T) {
	gen := &scriptedGenerator{states: []domain.GenerationState{
		domain.StateGenerating,
		domain.StateGenerating,
		domain.StateSucceeded,
		domain.StatePersisted,
	}}
	h := New(gen, nil, filestore.DefaultMaxBytes, zerolog.Nop())
	h.pollInterval = 5 * time.Millisecond
	r := gin.New()
	h.Register(r)

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/generation/abc/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	events := readEvents(t, resp.Body)
	require.Len(t, events, 3, "unchanged polls are not re-sent")
	assert.Equal(t, []string{"initial", "update", "update"}, []string{events[0].name, events[1].name, events[2].name})
	assert.Contains(t, events[0].data, `"state":"generating"`)
	assert.Contains(t, events[1].data, `"state":"succeeded"`)
	assert.Contains(t, events[2].data, `"state":"persisted"`)
}

func TestGenerationIsObservableWhileRunning(t *testing.T) {
	fake := &codegentest.Fake{Gate: make(chan struct{})}
	s := newTestServer(t, fake)
	s.handler.pollInterval = time.Hour

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	genID := uuid.New().String()
	req := generateRequest(t, pngBytes(t, 41), map[string]string{"generationId": genID})
	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- s.do(req) }()
	<-fake.Started()

	w := s.get("/generation/" + genID)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var status struct {
		Generation domain.Generation `json:"generation"`
	}
	decode(t, w, &status)
	assert.Equal(t, domain.StateGenerating, status.Generation.State)
	assert.Empty(t, status.Generation.ProjectID)

	resp, err := http.Get(srv.URL + "/generation/" + genID + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	close(fake.Gate)
	events := readEvents(t, resp.Body)
	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, "initial", events[0].name)
	assert.Contains(t, events[0].data, `"state":"generating"`)
	last := events[len(events)-1]
	assert.Equal(t, "update", last.name)
	assert.Contains(t, last.data, `"state":"persisted"`)

	res := <-done
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Equal(t, genID, res.Header().Get("X-Generation-Id"))
	var body generateResponse
	decode(t, res, &body)
	assert.Equal(t, genID, body.GenerationID)
	assert.Contains(t, last.data, body.ProjectID)
}

func TestGenerateRejectsBadGenerationID(t *testing.T) {
	s := newTestServer(t, &codegentest.Fake{})

	w := s.do(generateRequest(t, pngBytes(t, 42), map[string]string{"generationId": "not-a-uuid"}))
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Empty(t, w.Header().Get("X-Generation-Id"))

	genID := uuid.New().String()
	first := s.generate(t, 43, map[string]string{"generationId": genID})
	assert.Equal(t, genID, first.GenerationID)

	w = s.do(generateRequest(t, pngBytes(t, 44), map[string]string{"generationId": genID}))
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "already in use")
	assert.Equal(t, 1, s.fake.Calls())

	status := s.get("/generation/" + genID)
	require.Equal(t, http.StatusOK, status.Code)
	assert.Contains(t, status.Body.String(), first.ProjectID, "the first generation keeps its record")
}

func TestConcurrentGenerationsAreIsolated(t *testing.T) {
	fake := &codegentest.Fake{Func: func(_ context.Context, in codegen.Input) (*codegen.Result, error) {
		time.Sleep(10 * time.Millisecond)
		return &codegen.Result{
			HTML: fmt.Sprintf("<main>%s</main>", in.Framework),
			CSS:  fmt.Sprintf("/* %s */ main{}", in.Framework),
		}, nil
	}}
	s := newTestServer(t, fake)

	frameworks := []string{"bootstrap", "materialui"}
	results := make([]generateResponse, len(frameworks))
	var wg sync.WaitGroup
	for i, fw := range frameworks {
		wg.Add(1)
		go func(i int, fw string) {
			defer wg.Done()
			w := s.do(generateRequest(t, pngBytes(t, uint8(50+i)), map[string]string{"framework": fw}))
			if assert.Equal(t, http.StatusOK, w.Code) {
				assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &results[i]))
			}
		}(i, fw)
	}
	wg.Wait()

	assert.NotEqual(t, results[0].ProjectID, results[1].ProjectID)
	for i, fw := range frameworks {
		assert.Equal(t, fmt.Sprintf("<main>%s</main>", fw), results[i].HTML)

		w := s.get("/project/" + results[i].ProjectID)
		require.Equal(t, http.StatusOK, w.Code)
		var got struct {
			Project domain.Project `json:"project"`
		}
		decode(t, w, &got)
		assert.Equal(t, domain.Framework(fw), got.Project.Framework)
		assert.Contains(t, got.Project.Artifacts.CSS, fw)
	}
	assert.Equal(t, 2, fake.Calls())
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", domain.ErrValidation), http.StatusBadRequest},
		{domain.ErrSizeExceeded, http.StatusRequestEntityTooLarge},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrGeneration, http.StatusBadGateway},
		{fmt.Errorf("%w: %w", domain.ErrGeneration, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{context.Canceled, statusClientClosedRequest},
		{fmt.Errorf("%w: disk full", domain.ErrStorage), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestFormBool(t *testing.T) {
	for in, want := range map[string]bool{"": false, "true": true, "1": true, "on": true, "False": false, "no": false} {
		got, err := formBool(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := formBool("maybe")
	assert.Error(t, err)
}

type sseEvent struct {
	name string
	data string
}

func readEvents(t *testing.T, r io.Reader) []sseEvent {
	t.Helper()
	var out []sseEvent
	var cur sseEvent
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "" && cur.name != "":
			out = append(out, cur)
			cur = sseEvent{}
		}
	}
	require.NoError(t, sc.Err())
	return out
}

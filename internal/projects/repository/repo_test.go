package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestRepo(t *testing.T, opts ...Option) (*ProjectRepository, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "history")
	r, err := NewProjectRepository(root, zerolog.Nop(), opts...)
	require.NoError(t, err)
	return r, root
}

func draft(name string) domain.Draft {
	return domain.Draft{
		Name:            name,
		Framework:       domain.FrameworkTailwind,
		Options:         domain.Options{Responsive: true},
		Artifacts:       domain.Artifacts{HTML: "<div>hi</div>", CSS: "div{}"},
		SourceImage:     pngHeader,
		SourceImageType: "image/png",
	}
}

func TestCreateAndGet(t *testing.T) {
	r, root := newTestRepo(t)
	ctx := context.Background()

	p, err := r.Create(ctx, draft("  Landing   page "))
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Landing page", p.Name)
	assert.Equal(t, "source.png", p.SourceImageRef)
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)

	got, err := r.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Artifacts, got.Artifacts)
	assert.True(t, p.CreatedAt.Equal(got.CreatedAt))

	img, mediaType, err := r.SourceImage(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, img)
	assert.Equal(t, "image/png", mediaType)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1, "staging directory must be renamed away")
	assert.Equal(t, p.ID, entries[0].Name())
}

func TestCreate_DefaultNameAndValidation(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	p, err := r.Create(ctx, draft(""))
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultProjectName, p.Name)

	d := draft("x")
	d.Artifacts.CSS = ""
	_, err = r.Create(ctx, d)
	assert.ErrorIs(t, err, domain.ErrValidation)

	d = draft("x")
	d.SourceImage = nil
	_, err = r.Create(ctx, d)
	assert.ErrorIs(t, err, domain.ErrValidation)

	d = draft("x")
	d.Framework = "bulma"
	_, err = r.Create(ctx, d)
	assert.ErrorIs(t, err, domain.ErrValidation)

	list, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGet_UnknownAndMalformedIDs(t *testing.T) {
	r, _ := newTestRepo(t)
	for _, id := range []string{"", "nope", "../etc", "8E1F2C3A-0000-4000-8000-000000000000", "8e1f2c3a-0000-4000-8000-000000000000"} {
		_, err := r.Get(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrNotFound, id)
	}
}

func TestList_NewestFirstAndSkipsCorrupt(t *testing.T) {
	clock := &stepClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	r, root := newTestRepo(t, WithClock(clock.Now))
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		p, err := r.Create(ctx, draft(fmt.Sprintf("p%d", i)))
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	corrupt := "0f0f0f0f-0000-4000-8000-000000000000"
	require.NoError(t, os.MkdirAll(filepath.Join(root, corrupt), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, corrupt, recordFile), []byte("{"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, stagingPrefix+"abc"), 0o755))

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[1], list[1].ID)
	assert.Equal(t, ids[0], list[2].ID)

	refs, err := r.References(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 4)
	unreadable := 0
	for _, ref := range refs {
		if !ref.Readable {
			unreadable++
			assert.Equal(t, corrupt, ref.ID)
		}
	}
	assert.Equal(t, 1, unreadable)
}

func TestUpdate_BumpsUpdatedAtAndKeepsIdentity(t *testing.T) {
	r, _ := newTestRepo(t, WithClock(func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }))
	ctx := context.Background()

	p, err := r.Create(ctx, draft("a"))
	require.NoError(t, err)

	up, err := r.Update(ctx, p.ID, func(np *domain.Project) error {
		np.ID = "hijack"
		np.SourceImageRef = "../../etc/passwd"
		np.Artifacts.JS = "console.log(1)"
		np.Name = ""
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, p.ID, up.ID)
	assert.Equal(t, "source.png", up.SourceImageRef)
	assert.Equal(t, domain.DefaultProjectName, up.Name)
	assert.Equal(t, "console.log(1)", up.Artifacts.JS)
	assert.True(t, up.UpdatedAt.After(p.UpdatedAt), "clock frozen, timestamp must still advance")

	got, err := r.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, up.Artifacts, got.Artifacts)
	assert.Equal(t, up.UpdatedAt.UnixNano(), got.UpdatedAt.UnixNano())
}

func TestUpdate_RejectsHalfArtifactsAndMutatorErrors(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	p, err := r.Create(ctx, draft("a"))
	require.NoError(t, err)

	_, err = r.Update(ctx, p.ID, func(np *domain.Project) error {
		np.Artifacts.CSS = ""
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	boom := errors.New("boom")
	_, err = r.Update(ctx, p.ID, func(*domain.Project) error { return boom })
	assert.ErrorIs(t, err, boom)

	got, err := r.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "div{}", got.Artifacts.CSS)

	_, err = r.Update(ctx, "8e1f2c3a-0000-4000-8000-000000000000", func(*domain.Project) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdate_ConcurrentWritersSerialize(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	p, err := r.Create(ctx, draft("counter"))
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Update(ctx, p.ID, func(np *domain.Project) error {
				np.Artifacts.HTML += "x"
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := r.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, got.Artifacts.HTML, len("<div>hi</div>")+n, "no update may be lost")
	assert.Zero(t, r.locks.size())
}

func TestDuplicate_DeepCopy(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	p, err := r.Create(ctx, draft("orig"))
	require.NoError(t, err)

	dup, err := r.Duplicate(ctx, p.ID)
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, dup.ID)
	assert.Equal(t, "orig (copy)", dup.Name)
	assert.Equal(t, p.Artifacts, dup.Artifacts)
	assert.Equal(t, p.Options, dup.Options)

	_, err = r.Update(ctx, dup.ID, func(np *domain.Project) error {
		np.Artifacts.HTML = "<p>changed</p>"
		np.Options.DarkMode = true
		return nil
	})
	require.NoError(t, err)

	orig, err := r.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "<div>hi</div>", orig.Artifacts.HTML)
	assert.False(t, orig.Options.DarkMode)

	require.NoError(t, r.Delete(ctx, p.ID))
	img, _, err := r.SourceImage(ctx, dup.ID)
	require.NoError(t, err, "duplicate owns its own image copy")
	assert.Equal(t, pngHeader, img)

	_, err = r.Duplicate(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete_RunsHooksAndRemovesDirectory(t *testing.T) {
	r, root := newTestRepo(t)
	ctx := context.Background()
	p, err := r.Create(ctx, draft("gone"))
	require.NoError(t, err)

	var hooked []string
	r.OnDelete(func(_ context.Context, id string) error {
		hooked = append(hooked, id)
		return nil
	})
	r.OnDelete(func(context.Context, string) error { return errors.New("ignored") })

	require.NoError(t, r.Delete(ctx, p.ID))
	assert.Equal(t, []string{p.ID}, hooked)

	_, err = r.Get(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, _, err = r.SourceImage(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, r.Delete(ctx, p.ID), domain.ErrNotFound)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPurgeStaging(t *testing.T) {
	now := time.Now()
	r, root := newTestRepo(t, WithClock(func() time.Time { return now }))

	old := filepath.Join(root, stagingPrefix+"old")
	fresh := filepath.Join(root, stagingPrefix+"fresh")
	trash := filepath.Join(root, trashPrefix+"x")
	for _, d := range []string{old, fresh, trash} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	past := now.Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	p, err := r.Create(context.Background(), draft("with leftovers"))
	require.NoError(t, err)
	staleTmp := filepath.Join(root, p.ID, ".tmp-record")
	freshTmp := filepath.Join(root, p.ID, ".tmp-writing")
	require.NoError(t, os.WriteFile(staleTmp, []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(freshTmp, []byte("{"), 0o644))
	require.NoError(t, os.Chtimes(staleTmp, past, past))

	n, err := r.PurgeStaging(context.Background(), 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.NoDirExists(t, old)
	assert.NoDirExists(t, trash)
	assert.DirExists(t, fresh)
	assert.NoFileExists(t, staleTmp)
	assert.FileExists(t, freshTmp)

	got, err := r.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")

	acquired := make(chan struct{})
	go func() {
		u := k.Lock("a")
		close(acquired)
		u()
	}()

	other := k.Lock("b")
	other()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held key")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-acquired
	assert.Eventually(t, func() bool { return k.size() == 0 }, time.Second, time.Millisecond)
}

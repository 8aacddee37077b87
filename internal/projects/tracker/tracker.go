// Package tracker keeps the pollable status of generate calls.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
)

// DefaultTTL is how long a generation stays visible after its last transition.
const DefaultTTL = 24 * time.Hour

// ErrIDTaken is returned by Create when the generation id is already tracked.
var ErrIDTaken = fmt.Errorf("%w: generation id already in use", domain.ErrValidation)

// Tracker records generation state transitions.
type Tracker interface {
	// Create records the first state of g and fails with ErrIDTaken when g.ID
	// is already tracked.
	Create(ctx context.Context, g *domain.Generation) error
	Record(ctx context.Context, g *domain.Generation) error
	Get(ctx context.Context, id string) (*domain.Generation, error)
	// Subscribe signals on the returned channel after each recorded
	// transition of id. The channel is closed once ctx ends.
	Subscribe(ctx context.Context, id string) (<-chan struct{}, error)
	Ping(ctx context.Context) error
}

type memoryEntry struct {
	gen     *domain.Generation
	expires time.Time
}

// Memory is an in-process Tracker used when no Redis is configured.
type Memory struct {
	mu       sync.RWMutex
	entries  map[string]memoryEntry
	watchers map[string]map[chan struct{}]struct{}
	ttl      time.Duration
	now      func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		entries:  make(map[string]memoryEntry),
		watchers: make(map[string]map[chan struct{}]struct{}),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create stores g unless its id is already tracked.
func (m *Memory) Create(ctx context.Context, g *domain.Generation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune(now)
	if _, ok := m.entries[g.ID]; ok {
		return fmt.Errorf("%w: %s", ErrIDTaken, g.ID)
	}
	m.store(g, now)
	return nil
}

// Record stores a copy of g and drops expired entries.
func (m *Memory) Record(ctx context.Context, g *domain.Generation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune(now)
	m.store(g, now)
	return nil
}

func (m *Memory) prune(now time.Time) {
	for id, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, id)
		}
	}
}

// store must be called with mu held.
func (m *Memory) store(g *domain.Generation, now time.Time) {
	m.entries[g.ID] = memoryEntry{gen: g.Clone(), expires: now.Add(m.ttl)}
	for ch := range m.watchers[g.ID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Get returns a copy of the generation with id.
func (m *Memory) Get(ctx context.Context, id string) (*domain.Generation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok || m.now().After(e.expires) {
		return nil, fmt.Errorf("%w: generation %s", domain.ErrNotFound, id)
	}
	return e.gen.Clone(), nil
}

// Subscribe implements Tracker. Signals coalesce while the reader is busy.
func (m *Memory) Subscribe(ctx context.Context, id string) (<-chan struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan struct{}, 1)

	m.mu.Lock()
	if m.watchers[id] == nil {
		m.watchers[id] = make(map[chan struct{}]struct{})
	}
	m.watchers[id][ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.watchers[id], ch)
		if len(m.watchers[id]) == 0 {
			delete(m.watchers, id)
		}
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}

// Ping always succeeds.
func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

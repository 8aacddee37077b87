// Package codegentest provides an in-memory codegen.Client for tests.
package codegentest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/codegen"
)

// Fake returns canned results. Set Func to compute a result per call, or Result
// and Err for a fixed outcome. Gate, when non-nil, blocks every call until it
// is closed or the context ends.
type Fake struct {
	Func   func(ctx context.Context, in codegen.Input) (*codegen.Result, error)
	Result *codegen.Result
	Err    error
	Gate   chan struct{}

	calls   atomic.Int64
	mu      sync.Mutex
	inputs  []codegen.Input
	started chan struct{}
	once    sync.Once
}

// Generate implements codegen.Client.
func (f *Fake) Generate(ctx context.Context, in codegen.Input) (*codegen.Result, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()
	f.startedCh()
	f.once.Do(func() { close(f.started) })

	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.Func != nil {
		return f.Func(ctx, in)
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Result != nil {
		cp := *f.Result
		return &cp, nil
	}
	return &codegen.Result{HTML: "<div>ok</div>", CSS: "div { color: red; }"}, nil
}

// Calls returns how many times Generate ran.
func (f *Fake) Calls() int {
	return int(f.calls.Load())
}

// Inputs returns a copy of every input received.
func (f *Fake) Inputs() []codegen.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]codegen.Input(nil), f.inputs...)
}

// Started is closed once the first call has begun.
func (f *Fake) Started() <-chan struct{} {
	return f.startedCh()
}

func (f *Fake) startedCh() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started == nil {
		f.started = make(chan struct{})
	}
	return f.started
}

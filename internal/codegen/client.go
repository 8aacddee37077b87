// Package codegen adapts external vision models that turn a UI screenshot into
// HTML, CSS and optional JavaScript. Adapters are stateless and never retry.
package codegen

import (
	"context"
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
)

// Input is one generation call.
type Input struct {
	Image     []byte
	MediaType string
	Framework domain.Framework
	Options   domain.Options
}

// Result is the parsed generator output. JS is empty when the model produced none.
type Result struct {
	HTML string
	CSS  string
	JS   string
	Raw  string
}

// Client is the capability the orchestrator depends on.
type Client interface {
	Generate(ctx context.Context, in Input) (*Result, error)
}

// upstreamError wraps a failure so that it matches domain.ErrGeneration and,
// for timeouts, context.DeadlineExceeded.
func upstreamError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s timed out: %w", domain.ErrGeneration, op, err)
	}
	if errors.Is(err, domain.ErrGeneration) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrGeneration, op, err)
}

func generationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrGeneration, fmt.Sprintf(format, args...))
}

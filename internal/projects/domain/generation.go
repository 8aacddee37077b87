package domain

import (
	"time"

	"github.com/google/uuid"
)

// GenerationState is one step of the generate pipeline.
type GenerationState string

const (
	StateReceived    GenerationState = "received"
	StateValidated   GenerationState = "validated"
	StateImageStored GenerationState = "image_stored"
	StateGenerating  GenerationState = "generating"
	StateSucceeded   GenerationState = "succeeded"
	StatePersisted   GenerationState = "persisted"
	StateFailed      GenerationState = "failed"
)

// Terminal reports whether no further transition follows s.
func (s GenerationState) Terminal() bool {
	return s == StatePersisted || s == StateFailed
}

// GenerationRequest is the ephemeral input of one generate call. Exactly one of
// Image or ImageURL is expected. GenerationID lets the caller pick the id it
// will poll; one is assigned when empty.
type GenerationRequest struct {
	GenerationID string
	Image        []byte
	ImageName    string
	ImageURL     string
	ProjectName  string
	Framework    Framework
	Options      Options
}

// GenerationResult is returned to the caller once the project is persisted.
type GenerationResult struct {
	GenerationID string
	Project      *Project
	// Shared is set when the result came from an identical request already in flight.
	Shared bool
}

// ValidID reports whether id is a canonical lowercase uuid, the form used for
// project and generation ids.
func ValidID(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.String() == id
}

// Transition records when a generation entered a state.
type Transition struct {
	State GenerationState `json:"state"`
	At    time.Time       `json:"at"`
}

// Generation is the pollable status of one generate call.
type Generation struct {
	ID          string          `json:"id"`
	State       GenerationState `json:"state"`
	Framework   Framework       `json:"framework"`
	ProjectID   string          `json:"project_id,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Transitions []Transition    `json:"transitions"`
}

// Advance moves g to state and appends the transition.
func (g *Generation) Advance(state GenerationState, at time.Time) {
	g.State = state
	g.UpdatedAt = at
	g.Transitions = append(g.Transitions, Transition{State: state, At: at})
}

// Clone returns a deep copy of g.
func (g *Generation) Clone() *Generation {
	if g == nil {
		return nil
	}
	cp := *g
	cp.Transitions = append([]Transition(nil), g.Transitions...)
	return &cp
}

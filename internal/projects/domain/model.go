package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultProjectName is used when a project is created or renamed without a label.
const DefaultProjectName = "Untitled Project"

const maxNameLength = 120

// Options are the fixed generation flags forwarded to the code generator.
type Options struct {
	Responsive bool `json:"responsive"`
	Animations bool `json:"animations"`
	DarkMode   bool `json:"dark_mode"`
}

// Artifacts holds the generated code of a project.
type Artifacts struct {
	HTML string `json:"html,omitempty"`
	CSS  string `json:"css,omitempty"`
	JS   string `json:"js,omitempty"`
}

// Empty reports whether nothing has been generated yet.
func (a Artifacts) Empty() bool {
	return a.HTML == "" && a.CSS == "" && a.JS == ""
}

// Complete reports whether both required artifacts are present.
func (a Artifacts) Complete() bool {
	return strings.TrimSpace(a.HTML) != "" && strings.TrimSpace(a.CSS) != ""
}

// Validate enforces the all-or-nothing rule: either no artifacts at all, or
// html and css together (js stays optional).
func (a Artifacts) Validate() error {
	if a.Empty() || a.Complete() {
		return nil
	}
	return fmt.Errorf("%w: html and css are both required", ErrValidation)
}

// Project is one persisted generation: metadata, options, the private copy of
// the source screenshot and the generated code.
type Project struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Framework       Framework `json:"framework"`
	Options         Options   `json:"options"`
	SourceImageRef  string    `json:"source_image_ref,omitempty"`
	SourceImageType string    `json:"source_image_type,omitempty"`
	Artifacts       Artifacts `json:"artifacts"`
}

// Clone returns a copy that shares no mutable state with p.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// Validate checks the fields every stored record must satisfy.
func (p *Project) Validate() error {
	if !p.Framework.Valid() {
		return fmt.Errorf("%w: unsupported framework %q", ErrValidation, p.Framework)
	}
	return p.Artifacts.Validate()
}

// Summary is the history view of a project.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Framework Framework `json:"framework"`
	HasJS     bool      `json:"has_js"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary returns the history view of p.
func (p *Project) Summary() Summary {
	return Summary{
		ID:        p.ID,
		Name:      p.Name,
		Framework: p.Framework,
		HasJS:     p.Artifacts.JS != "",
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// Draft carries everything needed to create a project after a successful generation.
type Draft struct {
	Name            string
	Framework       Framework
	Options         Options
	Artifacts       Artifacts
	SourceImage     []byte
	SourceImageType string
}

// Validate rejects drafts that would produce a half-populated record.
func (d Draft) Validate() error {
	if !d.Framework.Valid() {
		return fmt.Errorf("%w: unsupported framework %q", ErrValidation, d.Framework)
	}
	if !d.Artifacts.Complete() {
		return fmt.Errorf("%w: html and css are both required", ErrValidation)
	}
	if len(d.SourceImage) == 0 {
		return fmt.Errorf("%w: source image is required", ErrValidation)
	}
	return nil
}

// UpdateProjectRequest holds the fields a save may change. Nil means unchanged.
type UpdateProjectRequest struct {
	Name      *string
	Framework *Framework
	Options   *Options
	HTML      *string
	CSS       *string
	JS        *string
}

// Apply copies the non-nil fields onto p.
func (r UpdateProjectRequest) Apply(p *Project) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Framework != nil {
		p.Framework = *r.Framework
	}
	if r.Options != nil {
		p.Options = *r.Options
	}
	if r.HTML != nil {
		p.Artifacts.HTML = *r.HTML
	}
	if r.CSS != nil {
		p.Artifacts.CSS = *r.CSS
	}
	if r.JS != nil {
		p.Artifacts.JS = *r.JS
	}
}

// NormalizeName trims the label and falls back to DefaultProjectName.
func NormalizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return DefaultProjectName
	}
	if r := []rune(name); len(r) > maxNameLength {
		name = string(r[:maxNameLength])
	}
	return name
}

package filestore

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
)

const (
	maxBaseLength = 64
	maxExtLength  = 8
	fallbackBase  = "file"
)

var unsafeChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// Handle identifies a stored file as "<category>/<name>". Names are generated
// by the store and never contain path separators.
type Handle string

func newHandle(c Category, name string) Handle {
	return Handle(string(c) + "/" + name)
}

// ParseHandle validates a handle received from outside the store.
func ParseHandle(raw string) (Handle, error) {
	h := Handle(raw)
	if err := h.Validate(); err != nil {
		return "", err
	}
	return h, nil
}

// Category returns the category part of h.
func (h Handle) Category() Category {
	c, _, _ := strings.Cut(string(h), "/")
	return Category(c)
}

// Name returns the file name part of h.
func (h Handle) Name() string {
	_, name, _ := strings.Cut(string(h), "/")
	return name
}

func (h Handle) String() string {
	return string(h)
}

// Validate rejects handles that could escape their category directory.
func (h Handle) Validate() error {
	c, name, ok := strings.Cut(string(h), "/")
	if !ok || !Category(c).valid() {
		return fmt.Errorf("%w: malformed file handle %q", domain.ErrValidation, h)
	}
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) || name != path.Base(name) {
		return fmt.Errorf("%w: malformed file handle %q", domain.ErrValidation, h)
	}
	return nil
}

// SanitizeName reduces a user supplied file name to a safe base and extension.
// Directory components and traversal sequences are dropped, everything outside
// [a-z0-9_-] collapses to a single dash.
func SanitizeName(name string) (base, ext string) {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(strings.TrimSpace(name))
	name = strings.ToLower(name)

	if i := strings.LastIndex(name, "."); i > 0 {
		ext = unsafeChars.ReplaceAllString(name[i+1:], "")
		name = name[:i]
	}
	if len(ext) > maxExtLength {
		ext = ext[:maxExtLength]
	}

	base = unsafeChars.ReplaceAllString(name, "-")
	base = strings.Trim(base, "-_")
	if len(base) > maxBaseLength {
		base = strings.TrimRight(base[:maxBaseLength], "-_")
	}
	if base == "" {
		base = fallbackBase
	}
	return base, ext
}

// UniqueName sanitizes name and appends a ULID so that two uploads with the
// same suggested name never collide.
func UniqueName(name string) string {
	base, ext := SanitizeName(name)
	out := base + "-" + strings.ToLower(ulid.Make().String())
	if ext != "" {
		out += "." + ext
	}
	return out
}

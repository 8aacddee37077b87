package domain

import (
	"fmt"
	"strings"
)

// Framework is the CSS framework the generated code should target.
type Framework string

const (
	FrameworkDefault    Framework = "default"
	FrameworkBootstrap  Framework = "bootstrap"
	FrameworkTailwind   Framework = "tailwind"
	FrameworkMaterialUI Framework = "materialui"
)

// Frameworks lists every supported framework.
var Frameworks = []Framework{
	FrameworkDefault,
	FrameworkBootstrap,
	FrameworkTailwind,
	FrameworkMaterialUI,
}

// ParseFramework maps a request value onto the closed set of frameworks.
// An empty value selects FrameworkDefault.
func ParseFramework(raw string) (Framework, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return FrameworkDefault, nil
	}
	fw := Framework(v)
	if !fw.Valid() {
		return "", fmt.Errorf("%w: unsupported framework %q", ErrValidation, raw)
	}
	return fw, nil
}

// Valid reports whether f is one of the supported frameworks.
func (f Framework) Valid() bool {
	switch f {
	case FrameworkDefault, FrameworkBootstrap, FrameworkTailwind, FrameworkMaterialUI:
		return true
	}
	return false
}

// DisplayName is the human name used in prompts.
func (f Framework) DisplayName() string {
	switch f {
	case FrameworkBootstrap:
		return "Bootstrap 5"
	case FrameworkTailwind:
		return "Tailwind CSS"
	case FrameworkMaterialUI:
		return "Material Design"
	default:
		return "plain HTML and CSS"
	}
}

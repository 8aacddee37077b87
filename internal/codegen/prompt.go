package codegen

import (
	"fmt"
	"strings"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
)

const basePrompt = `You are an expert front-end developer. I'm showing you a screenshot of a user interface.

Analyze the image and write the HTML and CSS needed to recreate this interface as closely as possible.

Follow these guidelines:
1. Use modern HTML5 and CSS3 practices
2. Use semantic HTML elements where appropriate
3. Keep the CSS clean, organized and maintainable
4. Add short comments where they help
5. If there are interactive elements such as buttons, tabs or menus, add basic behavior in JavaScript`

const formatPrompt = `Return your response in exactly this format:

` + "```html" + `
<!-- body markup only, no <html>, <head> or <link> tags -->
` + "```" + `

` + "```css" + `
/* styles */
` + "```" + `

` + "```js" + `
// optional, omit this block entirely if no script is needed
` + "```" + `

If you need to make assumptions about the design, note them briefly after the code blocks.`

// BuildPrompt renders the instruction text for a framework and option set.
func BuildPrompt(fw domain.Framework, opts domain.Options) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\nRequirements for this request:\n")

	switch fw {
	case domain.FrameworkBootstrap:
		b.WriteString("- Use Bootstrap 5 classes and grid; the Bootstrap stylesheet and bundle are already loaded. Put only custom overrides in the CSS block.\n")
	case domain.FrameworkTailwind:
		b.WriteString("- Use Tailwind CSS utility classes; the Tailwind CDN script is already loaded. Put only styles Tailwind cannot express in the CSS block.\n")
	case domain.FrameworkMaterialUI:
		b.WriteString("- Follow Material Design: use Material Components Web classes (mdc-*) and the Roboto font, both already loaded.\n")
	default:
		b.WriteString("- Do not use any CSS framework; write all styles by hand.\n")
	}

	if opts.Responsive {
		b.WriteString("- Make the layout responsive with mobile-first media queries.\n")
	} else {
		b.WriteString("- Target a desktop viewport; responsiveness is not required.\n")
	}
	if opts.Animations {
		b.WriteString("- Add subtle transitions and hover animations where they fit the design.\n")
	}
	if opts.DarkMode {
		b.WriteString("- Support dark mode through prefers-color-scheme with CSS custom properties.\n")
	}

	fmt.Fprintf(&b, "\nTarget: %s.\n\n", fw.DisplayName())
	b.WriteString(formatPrompt)
	return b.String()
}

package export

import (
	"regexp"
	"strings"
	"text/template"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
)

const (
	styleFile  = "style.css"
	scriptFile = "script.js"
	indexFile  = "index.html"
)

type frameworkAssets struct {
	Head []string
	Body []string
}

var assets = map[domain.Framework]frameworkAssets{
	domain.FrameworkBootstrap: {
		Head: []string{`<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/css/bootstrap.min.css">`},
		Body: []string{`<script src="https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/js/bootstrap.bundle.min.js"></script>`},
	},
	domain.FrameworkTailwind: {
		Head: []string{`<script src="https://cdn.tailwindcss.com"></script>`},
	},
	domain.FrameworkMaterialUI: {
		Head: []string{
			`<link rel="stylesheet" href="https://fonts.googleapis.com/css2?family=Roboto:wght@300;400;500;700&display=swap">`,
			`<link rel="stylesheet" href="https://fonts.googleapis.com/icon?family=Material+Icons">`,
			`<link rel="stylesheet" href="https://unpkg.com/material-components-web@14.0.0/dist/material-components-web.min.css">`,
		},
		Body: []string{`<script src="https://unpkg.com/material-components-web@14.0.0/dist/material-components-web.min.js"></script>`},
	},
}

var pageTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
{{- range .Head}}
  {{.}}
{{- end}}
</head>
<body>
{{.Body}}
{{- range .Tail}}
{{.}}
{{- end}}
</body>
</html>
`))

var (
	fullDocument = regexp.MustCompile(`(?i)<html[\s>]`)
	headClose    = regexp.MustCompile(`(?i)</head\s*>`)
	headOpen     = regexp.MustCompile(`(?i)<head(\s[^>]*)?>`)
	htmlOpen     = regexp.MustCompile(`(?i)<html(\s[^>]*)?>`)
	bodyClose    = regexp.MustCompile(`(?i)</body\s*>`)
)

type page struct {
	Title string
	Head  []string
	Body  string
	Tail  []string
}

// renderIndex builds a standalone index.html that pulls in the framework
// assets, style.css and, when hasScript is set, script.js by relative path.
func renderIndex(p *domain.Project, hasScript bool) (string, error) {
	fa := assets[p.Framework]

	head := append([]string(nil), fa.Head...)
	head = append(head, `<link rel="stylesheet" href="`+styleFile+`">`)
	tail := append([]string(nil), fa.Body...)
	if hasScript {
		tail = append(tail, `<script src="`+scriptFile+`"></script>`)
	}

	html := strings.TrimSpace(p.Artifacts.HTML)
	if fullDocument.MatchString(html) {
		return injectAssets(html, head, tail), nil
	}

	var b strings.Builder
	err := pageTemplate.Execute(&b, page{
		Title: template.HTMLEscapeString(p.Name),
		Head:  head,
		Body:  html,
		Tail:  tail,
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// injectAssets adds tags to a document the model already wrapped in <html>.
// Head tags never land before the doctype.
func injectAssets(doc string, head, tail []string) string {
	headTags := strings.Join(head, "\n") + "\n"
	switch {
	case headClose.MatchString(doc):
		loc := headClose.FindStringIndex(doc)
		doc = doc[:loc[0]] + headTags + doc[loc[0]:]
	case headOpen.MatchString(doc):
		loc := headOpen.FindStringIndex(doc)
		doc = doc[:loc[1]] + "\n" + headTags + doc[loc[1]:]
	case htmlOpen.MatchString(doc):
		loc := htmlOpen.FindStringIndex(doc)
		doc = doc[:loc[1]] + "\n<head>\n" + headTags + "</head>" + doc[loc[1]:]
	default:
		doc = headTags + doc
	}

	if len(tail) == 0 {
		return doc
	}
	tailTags := strings.Join(tail, "\n") + "\n"
	if loc := bodyClose.FindStringIndex(doc); loc != nil {
		return doc[:loc[0]] + tailTags + doc[loc[0]:]
	}
	return doc + "\n" + tailTags
}

package codegen

import (
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```[ \\t]*([A-Za-z0-9_+-]*)[^\\n]*\\n(.*?)```")

// ParseResponse pulls the first fenced html, css and js blocks out of a model
// reply. A reply without html or css is a generation error; a missing js block
// is not.
func ParseResponse(text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, generationErrorf("empty response from model")
	}

	res := &Result{Raw: text}
	for _, m := range fencedBlock.FindAllStringSubmatch(text, -1) {
		code := strings.TrimSpace(m[2])
		if code == "" {
			continue
		}
		switch strings.ToLower(m[1]) {
		case "html", "htm":
			if res.HTML == "" {
				res.HTML = code
			}
		case "css":
			if res.CSS == "" {
				res.CSS = code
			}
		case "js", "javascript":
			if res.JS == "" {
				res.JS = code
			}
		}
	}

	if res.HTML == "" || res.CSS == "" {
		return nil, generationErrorf("response is missing an html or css block")
	}
	return res, nil
}

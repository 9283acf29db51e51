package util

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

var funcs = template.FuncMap{
	// numbered renders items as "1. a\n2. b" or "N/A" when empty.
	"numbered": func(items []string) string {
		if len(items) == 0 {
			return "N/A"
		}
		lines := make([]string, len(items))
		for i, item := range items {
			lines[i] = fmt.Sprintf("%d. %s", i+1, item)
		}
		return strings.Join(lines, "\n")
	},
	// quoted renders items as "'a', 'b'" or "N/A" when empty.
	"quoted": func(items []string) string {
		if len(items) == 0 {
			return "N/A"
		}
		q := make([]string, len(items))
		for i, item := range items {
			q[i] = "'" + item + "'"
		}
		return strings.Join(q, ", ")
	},
}

// Template is a parsed prompt template.
type Template struct {
	tmpl *template.Template
}

// MustParse parses text or panics. Used for package level prompt templates.
func MustParse(name, text string) *Template {
	return &Template{tmpl: template.Must(template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text))}
}

// Render executes the template against data.
func (t *Template) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

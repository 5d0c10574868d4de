// Package templates renders the prompts sent to the text-generation service.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/bytedance/sonic"
)

//go:embed clarify/*.tpl.md
var templateFS embed.FS

// PromptTemplate names an embedded template.
type PromptTemplate string

const (
	// QuestionsTemplate asks for a JSON array of clarifying questions.
	QuestionsTemplate PromptTemplate = "clarify/questions.tpl.md"
	// ReadinessTemplate asks for a yes/no readiness verdict.
	ReadinessTemplate PromptTemplate = "clarify/readiness.tpl.md"
)

// ClarifyData is the data available to the clarify templates.
type ClarifyData struct {
	OriginalInput string
	Excerpt       string // already truncated
	Answers       []string
	MaxQuestions  int
}

// Renderer holds the parsed templates.
type Renderer struct {
	templates map[PromptTemplate]*template.Template
}

// NewRenderer parses every embedded template.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		templates: make(map[PromptTemplate]*template.Template),
	}

	funcs := template.FuncMap{
		"inc": func(i int) int { return i + 1 },
		"json": func(v any) (string, error) {
			out, err := sonic.MarshalString(v)
			if err != nil {
				return "", err
			}
			return out, nil
		},
	}

	for _, name := range []PromptTemplate{QuestionsTemplate, ReadinessTemplate} {
		content, err := templateFS.ReadFile(string(name))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}
		tmpl, err := template.New(string(name)).Funcs(funcs).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}
	return r, nil
}

// MustNewRenderer is NewRenderer for package-level defaults; the templates are embedded
// so a failure is a build defect.
func MustNewRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// Render executes templateName with data.
func (r *Renderer) Render(templateName PromptTemplate, data *ClarifyData) (string, error) {
	tmpl, exists := r.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", templateName, err)
	}
	return buf.String(), nil
}

// GetAvailableTemplates lists the loaded template names.
func (r *Renderer) GetAvailableTemplates() []PromptTemplate {
	names := make([]PromptTemplate, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	return names
}

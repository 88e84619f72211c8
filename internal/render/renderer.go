package render

import (
	"fmt"
	"io"
	"text/template"

	"github.com/gi8lino/tasklens/internal/entity"
	"github.com/gi8lino/tasklens/internal/templates"
)

// Default list templates per kind. Each receives a []entity.Entity.
var defaultTemplates = map[entity.Kind]string{
	entity.KindPeople: `{{range .}}{{.ID}}	{{.LastName}}, {{.FirstName}}	{{orDash .Email}}
{{end}}`,
	entity.KindProducts: `{{range .}}{{.ID}}	{{.Name}}
{{end}}`,
	entity.KindItems: `{{range .}}#{{.Number}}	{{.Variant}}	{{.Title}}{{with .Assignee}}	@{{.Name}}{{end}}{{if .Tags}}	[{{join "," .Tags}}]{{end}}
{{end}}`,
}

const payloadTemplate = `{{toPrettyJson .}}
`

// Renderer writes entities and payloads as text.
type Renderer struct {
	lists   map[entity.Kind]*template.Template
	payload *template.Template
}

// New parses the templates. A non-empty format replaces every list template.
func New(format string) (*Renderer, error) {
	r := &Renderer{lists: make(map[entity.Kind]*template.Template, len(defaultTemplates))}
	for kind, text := range defaultTemplates {
		if format != "" {
			text = format
		}
		tmpl, err := template.New(string(kind)).Funcs(templates.FuncMap()).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", kind, err)
		}
		r.lists[kind] = tmpl
	}

	tmpl, err := template.New("payload").Funcs(templates.FuncMap()).Parse(payloadTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse payload template: %w", err)
	}
	r.payload = tmpl
	return r, nil
}

// List renders list with the template for kind.
func (r *Renderer) List(w io.Writer, kind entity.Kind, list []entity.Entity) error {
	tmpl, ok := r.lists[kind]
	if !ok {
		return fmt.Errorf("%w: %q", entity.ErrUnknownKind, kind)
	}
	if err := tmpl.Execute(w, list); err != nil {
		return fmt.Errorf("render %s: %w", kind, err)
	}
	return nil
}

// One renders a single entity with the list template of its kind.
func (r *Renderer) One(w io.Writer, e entity.Entity) error {
	return r.List(w, e.Kind(), []entity.Entity{e})
}

// Payload renders v as indented JSON.
func (r *Renderer) Payload(w io.Writer, v any) error {
	if err := r.payload.Execute(w, v); err != nil {
		return fmt.Errorf("render payload: %w", err)
	}
	return nil
}

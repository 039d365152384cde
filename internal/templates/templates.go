// Package templates renders the pre-approved WhatsApp messages agents send
// to clients.
package templates

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"text/template"
	"unicode"

	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/internal/session"
)

// Data is what a template can reference.
type Data struct {
	Client Client
	Office session.OfficeContext
	Agent  Agent
	// Params are free-form values passed with --set.
	Params map[string]string
}

// Client is the message recipient.
type Client struct {
	Name  string
	Phone string
	Email string
}

// ClientFromRecord reads the recipient out of a record.
func ClientFromRecord(r model.Record) Client {
	return Client{Name: r.Name(), Phone: r.Phone(), Email: r.Email()}
}

// Agent is the signed-in user.
type Agent struct {
	Name  string
	Email string
}

// Set is a parsed collection of named templates.
type Set struct {
	tmpl  *template.Template
	names []string
}

var funcs = template.FuncMap{
	"upper": strings.ToUpper,
	"title": func(s string) string {
		words := strings.Fields(strings.ToLower(s))
		for i, w := range words {
			r := []rune(w)
			r[0] = unicode.ToUpper(r[0])
			words[i] = string(r)
		}
		return strings.Join(words, " ")
	},
	"default": func(def, v string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	},
}

// Parse compiles every source. Names are the keys of sources. Missing keys
// are errors at render time.
func Parse(sources map[string]string) (*Set, error) {
	root := template.New("").Funcs(funcs).Option("missingkey=error")
	names := make([]string, 0, len(sources))
	for name, src := range sources {
		if _, err := root.New(name).Parse(src); err != nil {
			return nil, fmt.Errorf("parsing template %q: %w", name, err)
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return &Set{tmpl: root, names: names}, nil
}

// Names lists the templates, sorted.
func (s *Set) Names() []string { return slices.Clone(s.names) }

// Has reports whether name exists.
func (s *Set) Has(name string) bool { return slices.Contains(s.names, name) }

// Render executes one template and trims surrounding whitespace.
func (s *Set) Render(name string, data Data) (string, error) {
	if !s.Has(name) {
		return "", fmt.Errorf("unknown template %q (have %s)", name, strings.Join(s.names, ", "))
	}
	if data.Params == nil {
		data.Params = map[string]string{}
	}
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering template %q: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

package listview

import (
	"slices"

	"github.com/oakwood-commons/crmx/internal/model"
)

// Selection is the set of checked record ids. In single mode it holds at
// most one id. Ids keep the order they were checked in.
type Selection struct {
	mode model.SelectionMode
	ids  []string
}

// NewSelection returns an empty selection in the given mode.
func NewSelection(mode model.SelectionMode) *Selection {
	if mode == "" {
		mode = model.SelectSingle
	}
	return &Selection{mode: mode}
}

// Toggle flips id. In single mode a different id replaces the current one.
func (s *Selection) Toggle(id string) {
	if i := slices.Index(s.ids, id); i >= 0 {
		s.ids = slices.Delete(s.ids, i, i+1)
		return
	}
	if s.mode == model.SelectSingle {
		s.ids = []string{id}
		return
	}
	s.ids = append(s.ids, id)
}

// Set replaces the selection with ids, dropping duplicates. Single mode
// keeps only the last id.
func (s *Selection) Set(ids []string) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	if s.mode == model.SelectSingle && len(out) > 1 {
		out = out[len(out)-1:]
	}
	s.ids = out
}

// Retain drops every id for which keep returns false.
func (s *Selection) Retain(keep func(id string) bool) {
	s.ids = slices.DeleteFunc(s.ids, func(id string) bool { return !keep(id) })
}

func (s *Selection) Clear()             { s.ids = nil }
func (s *Selection) Len() int           { return len(s.ids) }
func (s *Selection) Has(id string) bool { return slices.Contains(s.ids, id) }

// IDs returns a copy of the selected ids.
func (s *Selection) IDs() []string { return slices.Clone(s.ids) }

func (s *Selection) Mode() model.SelectionMode { return s.mode }

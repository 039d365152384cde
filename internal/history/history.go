// Package history groups call and activity records into per-day sections
// that can be expanded and collapsed independently.
package history

import (
	"slices"
	"time"

	"github.com/oakwood-commons/crmx/internal/model"
)

// DefaultLayout renders the section key, e.g. "Mon, 02 Jan 2006".
const DefaultLayout = "Mon, 02 Jan 2006"

// Group is every record that fell on one calendar day.
type Group struct {
	Date    string
	Records []model.CallRecord
}

// GroupByDate buckets records by their date in loc, formatted with layout.
// Groups appear in the order their date was first seen; records keep their
// input order. Nothing is sorted.
func GroupByDate(records []model.CallRecord, layout string, loc *time.Location) []Group {
	if layout == "" {
		layout = DefaultLayout
	}
	if loc == nil {
		loc = time.Local
	}
	index := map[string]int{}
	var groups []Group
	for _, rec := range records {
		key := rec.At.In(loc).Format(layout)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Date: key})
		}
		groups[i].Records = append(groups[i].Records, rec)
	}
	return groups
}

// Dates returns the group keys in order.
func Dates(groups []Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Date
	}
	return out
}

// Sections holds the open/closed flag of each date section. Unknown dates
// are closed.
type Sections struct {
	open map[string]bool
}

// NewSections returns a state with every section closed.
func NewSections() *Sections {
	return &Sections{open: map[string]bool{}}
}

// Open reports whether date is expanded.
func (s *Sections) Open(date string) bool { return s.open[date] }

// Toggle flips one section and returns its new state.
func (s *Sections) Toggle(date string) bool {
	s.open[date] = !s.open[date]
	return s.open[date]
}

// Expand opens the given sections.
func (s *Sections) Expand(dates ...string) {
	for _, d := range dates {
		s.open[d] = true
	}
}

// CollapseAll closes everything.
func (s *Sections) CollapseAll() {
	clear(s.open)
}

// Expanded returns the open dates, sorted.
func (s *Sections) Expanded() []string {
	var out []string
	for d, ok := range s.open {
		if ok {
			out = append(out, d)
		}
	}
	slices.Sort(out)
	return out
}

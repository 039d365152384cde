package listview

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/internal/pager"
)

// Query keys of the encoded view state.
const (
	QuerySelected = "selected"
	QuerySearch   = "q"
	QueryPage     = "page"
	QuerySize     = "size"
)

// State is the bookmarkable part of a list view: the active tab, the
// search term and the page window.
type State struct {
	Tab    model.Tab
	Search string
	Page   int
	Size   pager.Size
}

// Values encodes the state as query parameters. Defaults are omitted.
func (s State) Values() url.Values {
	v := url.Values{}
	v.Set(QuerySelected, string(s.Tab))
	if s.Search != "" {
		v.Set(QuerySearch, s.Search)
	}
	if s.Page > 1 {
		v.Set(QueryPage, strconv.Itoa(s.Page))
	}
	if s.Size != 0 {
		v.Set(QuerySize, s.Size.String())
	}
	return v
}

// Encode returns the state as a query string.
func (s State) Encode() string { return s.Values().Encode() }

// ParseState decodes a query string for screen. Missing or unknown values
// fall back to the screen's defaults and fallbackSize.
func ParseState(raw string, screen model.Screen, fallbackSize pager.Size) State {
	st := State{Tab: screen.DefaultTab, Page: 1, Size: fallbackSize}
	v, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return st
	}
	if tab := model.Tab(v.Get(QuerySelected)); screen.HasTab(tab) {
		st.Tab = tab
	}
	st.Search = v.Get(QuerySearch)
	if p, err := strconv.Atoi(v.Get(QueryPage)); err == nil && p > 0 {
		st.Page = p
	}
	if raw := v.Get(QuerySize); raw != "" {
		if size, err := pager.ParseSize(raw); err == nil {
			st.Size = size
		}
	}
	return st
}

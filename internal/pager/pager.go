// Package pager implements the page window over an in-memory list: a current
// page plus a window size that is either a fixed count or "all".
package pager

import (
	"fmt"
	"strconv"
	"strings"
)

// Size is a window size. All means the window spans every item.
type Size int

// All is the "show everything" window size.
const All Size = -1

// DefaultSizes are the window sizes list screens offer.
var DefaultSizes = []Size{10, 20, All}

func (s Size) String() string {
	if s == All {
		return "all"
	}
	return strconv.Itoa(int(s))
}

// ParseSize accepts a positive integer or "all".
func ParseSize(raw string) (Size, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "all" {
		return All, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("page size must be a number or \"all\", got %q", raw)
	}
	if n <= 0 {
		return 0, fmt.Errorf("page size must be positive, got %d", n)
	}
	return Size(n), nil
}

// MarshalText lets sizes appear as "all" in YAML and JSON.
func (s Size) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Size) UnmarshalText(b []byte) error {
	v, err := ParseSize(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// SizeValue adapts a *Size to pflag.Value for --per-page flags.
type SizeValue struct {
	Target *Size
}

func (v SizeValue) String() string {
	if v.Target == nil {
		return ""
	}
	return v.Target.String()
}

func (v SizeValue) Set(raw string) error {
	s, err := ParseSize(raw)
	if err != nil {
		return err
	}
	*v.Target = s
	return nil
}

func (v SizeValue) Type() string { return "size" }

// Window is the (current page, window size) pair. Pages are 1-based.
type Window struct {
	Page int
	Size Size
}

// New returns a window on page 1.
func New(size Size) Window {
	return Window{Page: 1, Size: size}
}

// Validate checks the size against the allowed set and the page number.
func (w Window) Validate(allowed []Size) error {
	if w.Page < 1 {
		return fmt.Errorf("page must be at least 1, got %d", w.Page)
	}
	if w.Size != All && w.Size <= 0 {
		return fmt.Errorf("page size must be positive, got %d", w.Size)
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, a := range allowed {
		if a == w.Size {
			return nil
		}
	}
	names := make([]string, 0, len(allowed))
	for _, a := range allowed {
		names = append(names, a.String())
	}
	return fmt.Errorf("page size %s is not one of %s", w.Size, strings.Join(names, ", "))
}

// span is the effective window length for n items.
func (w Window) span(n int) int {
	if w.Size == All {
		return n
	}
	return int(w.Size)
}

// TotalPages is ceil(n / window size); zero items give zero pages.
func (w Window) TotalPages(n int) int {
	if n <= 0 {
		return 0
	}
	span := w.span(n)
	if span <= 0 {
		return 0
	}
	return (n + span - 1) / span
}

// Bounds returns the half-open [start, end) range of the current page over
// n items. A page past the end yields an empty range at n.
func (w Window) Bounds(n int) (int, int) {
	if n <= 0 {
		return 0, 0
	}
	span := w.span(n)
	page := w.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * span
	if start > n {
		start = n
	}
	end := start + span
	if end > n {
		end = n
	}
	return start, end
}

// Slice returns the items on the current page.
func Slice[T any](w Window, items []T) []T {
	start, end := w.Bounds(len(items))
	return items[start:end]
}

// Next moves one page forward, staying put on the last page.
func (w Window) Next(n int) Window {
	if w.Page < w.TotalPages(n) {
		w.Page++
	}
	return w
}

// Prev moves one page back, staying put on page 1.
func (w Window) Prev() Window {
	if w.Page > 1 {
		w.Page--
	}
	return w
}

// WithSize changes the window size and returns to page 1.
func (w Window) WithSize(s Size) Window {
	return Window{Page: 1, Size: s}
}

// Reset returns to page 1 keeping the size.
func (w Window) Reset() Window {
	w.Page = 1
	return w
}

// Clamp pulls the page back inside [1, TotalPages(n)].
func (w Window) Clamp(n int) Window {
	if total := w.TotalPages(n); w.Page > total {
		w.Page = total
	}
	if w.Page < 1 {
		w.Page = 1
	}
	return w
}

// Cycle returns the size after s in sizes, wrapping around.
func Cycle(s Size, sizes []Size) Size {
	if len(sizes) == 0 {
		return s
	}
	for i, c := range sizes {
		if c == s {
			return sizes[(i+1)%len(sizes)]
		}
	}
	return sizes[0]
}

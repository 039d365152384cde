// Package session persists who is signed in and which office they work
// under. Every consumer reads the typed Session; only OfficeSelector
// changes the office.
package session

import (
	"strings"

	"github.com/oakwood-commons/crmx/internal/model"
)

// Session is the persisted client state.
type Session struct {
	Email  string `json:"email,omitempty"`
	Token  string `json:"token,omitempty"`
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name,omitempty"`
	// Office is written by OfficeSelector only.
	Office model.Office `json:"office"`
	// ClientNumber is the phone templated messages go to by default.
	ClientNumber string `json:"clientNumber,omitempty"`
	// Views holds the encoded list view state per screen.
	Views map[string]string `json:"views,omitempty"`
}

// SignedIn reports whether a user email is present.
func (s Session) SignedIn() bool { return s.Email != "" }

// View returns the saved view state for screen.
func (s Session) View(screen string) string { return s.Views[screen] }

// OfficeContext returns the read-only office view.
func (s Session) OfficeContext() OfficeContext {
	return OfficeContext{
		ID:    s.Office.ID,
		Name:  s.Office.Name,
		Phone: s.Office.Phone,
		City:  s.Office.City,
		State: s.Office.State,
	}
}

// OfficeContext is what dialing and messaging features see of the
// selected office. The zero value means no office was chosen.
type OfficeContext struct {
	ID    string
	Name  string
	Phone string
	City  string
	State string
}

func (o OfficeContext) IsZero() bool { return o.ID == "" }

// Location renders "City, State", skipping empty parts.
func (o OfficeContext) Location() string {
	var parts []string
	for _, p := range []string{o.City, o.State} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

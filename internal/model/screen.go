package model

import (
	"fmt"
	"slices"
	"strings"
)

// Tab names one remote collection a list screen can show.
type Tab string

const (
	TabLead        Tab = "lead"
	TabProspect    Tab = "prospecto"
	TabBuyer       Tab = "comprador"
	TabClient      Tab = "client"
	TabOffice      Tab = "office"
	TabUser        Tab = "user"
	TabCoordinator Tab = "coordinator"
	TabSeller      Tab = "seller"
)

// KnownTabs lists every collection the backend exposes.
var KnownTabs = []Tab{TabLead, TabProspect, TabBuyer, TabClient, TabOffice, TabUser, TabCoordinator, TabSeller}

var tabLabels = map[Tab]string{
	TabLead:        "Leads",
	TabProspect:    "Prospects",
	TabBuyer:       "Buyers",
	TabClient:      "Clients",
	TabOffice:      "Offices",
	TabUser:        "Users",
	TabCoordinator: "Coordinators",
	TabSeller:      "Sellers",
}

// Label is the human name of the tab.
func (t Tab) Label() string {
	if l, ok := tabLabels[t]; ok {
		return l
	}
	return string(t)
}

// ParseTab accepts a known tab name, case-insensitively.
func ParseTab(s string) (Tab, error) {
	t := Tab(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(KnownTabs, t) {
		return t, nil
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

// SelectionMode controls how many rows a screen lets the user check.
type SelectionMode string

const (
	SelectSingle SelectionMode = "single"
	SelectMulti  SelectionMode = "multi"
)

// Action is a bulk action offered on selected rows.
type Action string

const (
	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionAssign Action = "assign"
	// ActionCreate labels create mutations; screens never offer it as a
	// bulk action.
	ActionCreate Action = "create"
)

// NeedsExactlyOne reports whether the action requires a single selected id.
func (a Action) NeedsExactlyOne() bool {
	return a == ActionView || a == ActionEdit || a == ActionDelete
}

// Screen describes one list screen: the tabs it switches between, the
// fields its search box looks at and the bulk actions it offers.
type Screen struct {
	Name         string        `yaml:"name" json:"name"`
	Title        string        `yaml:"title" json:"title"`
	Tabs         []Tab         `yaml:"tabs" json:"tabs"`
	DefaultTab   Tab           `yaml:"default_tab" json:"default_tab"`
	SearchFields []string      `yaml:"search_fields" json:"search_fields"`
	Columns      []string      `yaml:"columns" json:"columns"`
	Selection    SelectionMode `yaml:"selection" json:"selection"`
	Actions      []Action      `yaml:"actions" json:"actions"`
	// AssignTargets is the collection that supplies assignees.
	AssignTargets Tab `yaml:"assign_targets,omitempty" json:"assign_targets,omitempty"`
	// ReloadOnMutation asks for the session context to be refreshed before
	// the active tab is refetched after a mutation.
	ReloadOnMutation bool `yaml:"reload_on_mutation,omitempty" json:"reload_on_mutation,omitempty"`
}

// HasTab reports whether t belongs to the screen.
func (s Screen) HasTab(t Tab) bool {
	return slices.Contains(s.Tabs, t)
}

// Allows reports whether the screen offers action a.
func (s Screen) Allows(a Action) bool {
	return slices.Contains(s.Actions, a)
}

// Multi reports whether the screen uses multi-row selection.
func (s Screen) Multi() bool {
	return s.Selection == SelectMulti
}

// Validate checks the screen definition for internal consistency.
func (s Screen) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("screen name is required")
	}
	if len(s.Tabs) == 0 {
		return fmt.Errorf("screen %q has no tabs", s.Name)
	}
	for _, t := range s.Tabs {
		if _, err := ParseTab(string(t)); err != nil {
			return fmt.Errorf("screen %q: %w", s.Name, err)
		}
	}
	if !s.HasTab(s.DefaultTab) {
		return fmt.Errorf("screen %q: default tab %q is not one of its tabs", s.Name, s.DefaultTab)
	}
	if len(s.SearchFields) == 0 {
		return fmt.Errorf("screen %q has no search fields", s.Name)
	}
	switch s.Selection {
	case SelectSingle, SelectMulti:
	default:
		return fmt.Errorf("screen %q: selection must be single or multi, got %q", s.Name, s.Selection)
	}
	for _, a := range s.Actions {
		switch a {
		case ActionView, ActionEdit, ActionDelete, ActionAssign:
		default:
			return fmt.Errorf("screen %q: unknown action %q", s.Name, a)
		}
	}
	if s.Allows(ActionAssign) && s.AssignTargets == "" {
		return fmt.Errorf("screen %q offers assign but has no assign_targets", s.Name)
	}
	return nil
}

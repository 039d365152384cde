// Package events broadcasts "mutation completed" notices so every client
// showing the same collection can refetch it.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oakwood-commons/crmx/internal/model"
)

// DefaultPrefix is the subject prefix when none is configured.
const DefaultPrefix = "crmx"

// Mutation describes one completed change to a collection.
type Mutation struct {
	Screen string       `json:"screen"`
	Tab    model.Tab    `json:"tab"`
	Action model.Action `json:"action"`
	IDs    []string     `json:"ids"`
	Origin string       `json:"origin"`
	At     time.Time    `json:"at"`
}

// Publisher sends mutation notices.
type Publisher interface {
	PublishMutation(ctx context.Context, m Mutation) error
	Close() error
}

// Subscriber receives mutation notices.
type Subscriber interface {
	Subscribe(tab model.Tab) (<-chan Mutation, func(), error)
	Close() error
}

// processOrigin tags notices from this process so it can skip its own.
var processOrigin = uuid.NewString()

// Origin returns this process's origin id.
func Origin() string { return processOrigin }

// Subject is "<prefix>.<tab>.<action>".
func Subject(prefix string, tab model.Tab, action model.Action) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s.%s.%s", prefix, tab, action)
}

// TabSubject matches every action on tab.
func TabSubject(prefix string, tab model.Tab) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s.%s.*", prefix, tab)
}

// FromSelf reports whether m was published by this process.
func (m Mutation) FromSelf() bool { return m.Origin == processOrigin }

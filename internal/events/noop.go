package events

import (
	"context"

	"github.com/oakwood-commons/crmx/internal/model"
)

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishMutation(context.Context, Mutation) error { return nil }

func (NoopPublisher) Close() error { return nil }

// NoopSubscriber never delivers anything.
type NoopSubscriber struct{}

func (NoopSubscriber) Subscribe(model.Tab) (<-chan Mutation, func(), error) {
	ch := make(chan Mutation)
	return ch, func() {}, nil
}

func (NoopSubscriber) Close() error { return nil }

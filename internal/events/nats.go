package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/pkg/logger"
)

// NATSPublisher publishes JSON mutation notices to NATS.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("crmx-publisher"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc, prefix: prefix}, nil
}

func (p *NATSPublisher) PublishMutation(ctx context.Context, m Mutation) error {
	if m.Origin == "" {
		m.Origin = processOrigin
	}
	if m.At.IsZero() {
		m.At = time.Now().UTC()
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling mutation: %w", err)
	}
	subject := Subject(p.prefix, m.Tab, m.Action)
	logger.FromContext(ctx).V(1).Info("publishing mutation", "subject", subject, "ids", m.IDs)
	return p.conn.Publish(subject, data)
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// NATSSubscriber delivers mutation notices for one tab at a time.
type NATSSubscriber struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSSubscriber connects with automatic reconnection.
func NewNATSSubscriber(url, prefix string, opts ...nats.Option) (*NATSSubscriber, error) {
	defaults := []nats.Option{
		nats.Name("crmx-subscriber"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSSubscriber{conn: nc, prefix: prefix}, nil
}

// Subscribe returns a channel of notices for tab. Undecodable payloads are
// dropped, as are notices arriving while the channel is full. The returned
// cancel func unsubscribes and closes the channel.
func (s *NATSSubscriber) Subscribe(tab model.Tab) (<-chan Mutation, func(), error) {
	ch := make(chan Mutation, 16)
	var (
		mu     sync.Mutex
		closed bool
		once   sync.Once
	)

	sub, err := s.conn.Subscribe(TabSubject(s.prefix, tab), func(msg *nats.Msg) {
		var m Mutation
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- m:
		default:
		}
	})
	if err != nil {
		close(ch)
		return nil, nil, fmt.Errorf("subscribing to %s: %w", tab, err)
	}
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		close(ch)
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}

	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}
	return ch, cancel, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}

// Connect returns NATS-backed endpoints for url, or no-op ones when url is
// empty.
func Connect(url, prefix string) (Publisher, Subscriber, error) {
	if url == "" {
		return NoopPublisher{}, NoopSubscriber{}, nil
	}
	pub, err := NewNATSPublisher(url, prefix)
	if err != nil {
		return nil, nil, err
	}
	sub, err := NewNATSSubscriber(url, prefix)
	if err != nil {
		_ = pub.Close()
		return nil, nil, err
	}
	return pub, sub, nil
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/pkg/logger"
)

// ErrEmptyMessage is returned when the body is blank.
var ErrEmptyMessage = errors.New("message is empty")

// Sink delivers an outbound message and returns the server's copy.
type Sink interface {
	SendMessage(ctx context.Context, msg model.Message) (model.Message, error)
}

// Sender appends outgoing messages optimistically and confirms them with
// the server. A failed send stays in the thread flagged Failed.
type Sender struct {
	Sink   Sink
	Thread *Thread
	From   string
	Now    func() time.Time
}

// Send appends body to the thread and delivers it.
func (s *Sender) Send(ctx context.Context, body string) (model.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return model.Message{}, ErrEmptyMessage
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	msg := s.Thread.AddPending(s.From, body, now().UTC())
	return s.deliver(ctx, msg)
}

// Retry resends a failed message with its original key.
func (s *Sender) Retry(ctx context.Context, key string) (model.Message, error) {
	msg, ok := s.Thread.MarkPending(key)
	if !ok {
		return model.Message{}, fmt.Errorf("no message with key %q", key)
	}
	return s.deliver(ctx, msg)
}

func (s *Sender) deliver(ctx context.Context, msg model.Message) (model.Message, error) {
	sent, err := s.Sink.SendMessage(ctx, msg)
	if err != nil {
		logger.FromContext(ctx).Error(err, "sending message", "key", msg.Key, "to", msg.To)
		failed, _ := s.Thread.MarkFailed(msg.Key)
		return failed, fmt.Errorf("sending message: %w", err)
	}
	if sent.Key == "" {
		sent.Key = msg.Key
	}
	s.Thread.Confirm(sent)
	return sent, nil
}

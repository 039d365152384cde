package chat

import (
	"context"
	"time"

	"github.com/oakwood-commons/crmx/internal/metrics"
	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/pkg/logger"
)

// DefaultInterval is how often a thread is refreshed.
const DefaultInterval = 3 * time.Second

// Source lists the messages exchanged with a phone number.
type Source interface {
	Messages(ctx context.Context, phone string) ([]model.Message, error)
}

// Poller refreshes a thread on a fixed interval.
type Poller struct {
	Source   Source
	Thread   *Thread
	Interval time.Duration
	// OnUpdate, when set, is called after a poll that added messages.
	OnUpdate func(added int)
}

// Poll fetches once and merges the result into the thread.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	msgs, err := p.Source.Messages(ctx, p.Thread.Phone())
	if err != nil {
		metrics.PollsTotal.WithLabelValues("error").Inc()
		return 0, err
	}
	added := p.Thread.Merge(msgs)
	metrics.PollsTotal.WithLabelValues("ok").Inc()
	metrics.MessagesMergedTotal.Add(float64(added))
	return added, nil
}

// Run polls immediately and then every Interval until ctx is done. Poll
// errors are logged and the loop keeps going.
func (p *Poller) Run(ctx context.Context) {
	lgr := logger.FromContext(ctx)
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lgr.V(1).Info("chat poller started", "phone", p.Thread.Phone(), "interval", interval.String())
	for {
		p.tick(ctx)
		select {
		case <-ctx.Done():
			lgr.V(1).Info("chat poller stopped", "phone", p.Thread.Phone())
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	added, err := p.Poll(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.FromContext(ctx).Error(err, "polling messages", "phone", p.Thread.Phone())
		}
		return
	}
	if added > 0 && p.OnUpdate != nil {
		p.OnUpdate(added)
	}
}

// Package chat keeps a two-party message thread fresh by polling and merges
// every poll into the local copy by idempotency key, so optimistic sends are
// never duplicated or lost.
package chat

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oakwood-commons/crmx/internal/model"
)

// Thread is the local copy of one conversation. It is safe for concurrent
// use by a poller and a sender.
type Thread struct {
	mu    sync.Mutex
	phone string
	msgs  []model.Message
	index map[string]int
}

// NewThread returns an empty thread with the given counterpart phone.
func NewThread(phone string) *Thread {
	return &Thread{phone: phone, index: map[string]int{}}
}

// Phone is the counterpart's number.
func (t *Thread) Phone() string { return t.phone }

// Messages returns the thread in display order.
func (t *Thread) Messages() []model.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.msgs)
}

// Len returns the number of messages.
func (t *Thread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.msgs)
}

// AddPending appends an outbound message that has not been confirmed by
// the server yet. It gets a fresh idempotency key.
func (t *Thread) AddPending(from, body string, now time.Time) model.Message {
	msg := model.Message{
		Key:       uuid.NewString(),
		From:      from,
		To:        t.phone,
		Body:      body,
		SentAt:    now,
		Direction: model.Outbound,
		Pending:   true,
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.insert(msg)
	return msg
}

// Merge folds a polled list into the thread and returns how many messages
// were new. A polled copy replaces the local one with the same key, which
// clears its pending and failed flags. Messages the poll does not mention
// stay where they are.
func (t *Thread) Merge(polled []model.Message) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	added := 0
	for _, m := range polled {
		m.Pending, m.Failed = false, false
		if t.replace(m) {
			continue
		}
		t.insert(m)
		added++
	}
	return added
}

// Confirm replaces a pending message with the server's copy.
func (t *Thread) Confirm(sent model.Message) {
	t.Merge([]model.Message{sent})
}

// MarkFailed flags the message with key as failed and returns it.
func (t *Thread) MarkFailed(key string) (model.Message, bool) {
	return t.update(key, func(m *model.Message) { m.Pending, m.Failed = false, true })
}

// MarkPending flags a failed message as pending again for a retry.
func (t *Thread) MarkPending(key string) (model.Message, bool) {
	return t.update(key, func(m *model.Message) { m.Pending, m.Failed = true, false })
}

func (t *Thread) update(key string, fn func(*model.Message)) (model.Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index["key:"+key]
	if !ok {
		return model.Message{}, false
	}
	fn(&t.msgs[i])
	return t.msgs[i], true
}

// replace overwrites an existing message matched by key or server id.
func (t *Thread) replace(m model.Message) bool {
	i, ok := t.index[m.MergeKey()]
	if !ok && m.ID != "" {
		i, ok = t.index["id:"+m.ID]
	}
	if !ok {
		return false
	}
	t.msgs[i] = m
	t.index[m.MergeKey()] = i
	if m.ID != "" {
		t.index["id:"+m.ID] = i
	}
	return true
}

func (t *Thread) insert(m model.Message) {
	i := len(t.msgs)
	t.msgs = append(t.msgs, m)
	t.index[m.MergeKey()] = i
	if m.ID != "" {
		t.index["id:"+m.ID] = i
	}
}

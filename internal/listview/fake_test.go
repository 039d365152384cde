package listview

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/oakwood-commons/crmx/internal/events"
	"github.com/oakwood-commons/crmx/internal/gateway"
	"github.com/oakwood-commons/crmx/internal/model"
)

type fakeBackend struct {
	mu          sync.Mutex
	data        map[model.Tab][]model.Record
	listCalls   map[model.Tab]int
	deletes     []string
	assignments []gateway.AssignRequest
	listErr     error
	deleteErr   error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: map[model.Tab][]model.Record{}, listCalls: map[model.Tab]int{}}
}

func (f *fakeBackend) List(_ context.Context, tab model.Tab) ([]model.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls[tab]++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.data[tab]), nil
}

func (f *fakeBackend) Delete(_ context.Context, tab model.Tab, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.data[tab] = slices.DeleteFunc(f.data[tab], func(r model.Record) bool { return r.ID == id })
	return nil
}

func (f *fakeBackend) Assign(_ context.Context, req gateway.AssignRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignments = append(f.assignments, req)
	return nil
}

// people builds n records named "Person NN" with the given email domain.
func people(tab model.Tab, n int, domain string) []model.Record {
	out := make([]model.Record, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, model.NewRecord(fmt.Sprintf("%s-%02d", tab, i), map[string]any{
			"name":  fmt.Sprintf("Person %02d", i),
			"email": fmt.Sprintf("p%02d@%s", i, domain),
			"city":  "Mérida",
		}))
	}
	return out
}

type fakeHost struct {
	confirm    bool
	target     string
	confirms   int
	picks      int
	lastPrompt string
}

func (h *fakeHost) Confirm(_ context.Context, prompt string) (bool, error) {
	h.confirms++
	h.lastPrompt = prompt
	return h.confirm, nil
}

func (h *fakeHost) PickAssignee(_ context.Context, _ model.Tab, _ []string) (string, bool, error) {
	h.picks++
	return h.target, h.target != "", nil
}

type fakeNav struct {
	opened []string
}

func (n *fakeNav) Open(_ context.Context, _ model.Tab, id string, _ bool) error {
	n.opened = append(n.opened, id)
	return nil
}

type recordingPublisher struct {
	published []events.Mutation
}

func (p *recordingPublisher) PublishMutation(_ context.Context, m events.Mutation) error {
	p.published = append(p.published, m)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

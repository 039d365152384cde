package listview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oakwood-commons/crmx/internal/events"
	"github.com/oakwood-commons/crmx/internal/gateway"
	"github.com/oakwood-commons/crmx/internal/metrics"
	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/pkg/logger"
)

// Level is the severity of a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// Notice is a transient message for the user.
type Notice struct {
	Level Level
	Text  string
}

// Notifier shows notices, typically as toasts.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// ModalHost asks the user to confirm or pick before a mutation runs.
type ModalHost interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
	// PickAssignee returns the chosen target id from the targets
	// collection, or ok=false when the dialog was dismissed.
	PickAssignee(ctx context.Context, targets model.Tab, ids []string) (target string, ok bool, err error)
}

// Navigator opens a record for viewing or editing.
type Navigator interface {
	Open(ctx context.Context, tab model.Tab, id string, edit bool) error
}

// ErrNoBackendCall is returned by Execute for actions that only navigate.
var ErrNoBackendCall = errors.New("action does not call the backend")

// BulkRequest is a bulk action whose selection guards passed.
type BulkRequest struct {
	Action model.Action
	Tab    model.Tab
	IDs    []string
	Target string
}

// Prompt is the confirmation text for the request.
func (r BulkRequest) Prompt() string {
	switch r.Action {
	case model.ActionDelete:
		return fmt.Sprintf("Delete %s %s?", r.Tab, r.IDs[0])
	case model.ActionAssign:
		return fmt.Sprintf("Assign %d %s record(s)?", len(r.IDs), r.Tab)
	default:
		return ""
	}
}

// MutationResult is the outcome of Execute.
type MutationResult struct {
	Request BulkRequest
	Err     error
}

// RequestBulk checks the selection against the action's cardinality rule.
// When the rule is not met the action is skipped: a warning is logged, the
// notifier gets a warning notice and ok is false.
func (c *Controller) RequestBulk(ctx context.Context, action model.Action) (BulkRequest, bool) {
	lgr := logger.FromContext(ctx)
	ids := c.selection.IDs()
	skip := func(reason string, kv ...any) (BulkRequest, bool) {
		lgr.Info("bulk action skipped", append([]any{"reason", reason, "action", action, logger.ScreenKey, c.screen.Name}, kv...)...)
		metrics.BulkActionsTotal.WithLabelValues(string(action), "skipped").Inc()
		c.notify(LevelWarning, fmt.Sprintf("Cannot %s: %s", action, reason))
		return BulkRequest{}, false
	}
	if !c.screen.Allows(action) {
		return skip("not offered on this screen")
	}
	if action.NeedsExactlyOne() && len(ids) != 1 {
		return skip("select exactly one record", "selected", len(ids))
	}
	if len(ids) == 0 {
		return skip("nothing selected")
	}
	return BulkRequest{Action: action, Tab: c.tab, IDs: ids}, true
}

// Execute performs the backend call for a delete or assign request. It
// does not touch controller state and may run off the event loop.
func (c *Controller) Execute(ctx context.Context, req BulkRequest) MutationResult {
	var err error
	switch req.Action {
	case model.ActionDelete:
		err = c.opts.Backend.Delete(ctx, req.Tab, req.IDs[0])
	case model.ActionAssign:
		acting := ""
		if c.opts.ActingUser != nil {
			acting = c.opts.ActingUser()
		}
		err = c.opts.Backend.Assign(ctx, gateway.AssignRequest{
			Tab:        req.Tab,
			ActingUser: acting,
			Target:     req.Target,
			IDs:        req.IDs,
		})
	default:
		err = ErrNoBackendCall
	}
	return MutationResult{Request: req, Err: err}
}

// Complete reports the outcome of Execute. On success it runs the
// mutation-completed contract and returns the ticket of the refetch the
// caller must run; on failure refetch is false and the list is unchanged.
func (c *Controller) Complete(ctx context.Context, res MutationResult) (Ticket, bool) {
	action := string(res.Request.Action)
	if res.Err != nil {
		logger.FromContext(ctx).Error(res.Err, "bulk action failed", "action", action, "ids", res.Request.IDs)
		metrics.BulkActionsTotal.WithLabelValues(action, "error").Inc()
		c.notify(LevelError, fmt.Sprintf("%s failed: %s", capitalize(action), gateway.UserMessage(res.Err)))
		return Ticket{}, false
	}
	metrics.BulkActionsTotal.WithLabelValues(action, "done").Inc()
	c.notify(LevelSuccess, successText(res.Request))
	return c.MutationCompleted(ctx, events.Mutation{
		Screen: c.screen.Name,
		Tab:    res.Request.Tab,
		Action: res.Request.Action,
		IDs:    res.Request.IDs,
	})
}

// MutationCompleted is the single hook every successful change goes
// through, whether it came from a bulk action, an edit form or another
// client. It refreshes session context when the screen asks for it,
// broadcasts the change, and starts one refetch of the active tab.
func (c *Controller) MutationCompleted(ctx context.Context, m events.Mutation) (Ticket, bool) {
	lgr := logger.FromContext(ctx)
	if c.screen.ReloadOnMutation && c.opts.ReloadContext != nil {
		if err := c.opts.ReloadContext(ctx); err != nil {
			lgr.Error(err, "reloading session context")
		}
	}
	if m.Origin == "" {
		if m.At.IsZero() {
			m.At = time.Now().UTC()
		}
		if err := c.opts.Publisher.PublishMutation(ctx, m); err != nil {
			lgr.Error(err, "publishing mutation", logger.TabKey, m.Tab)
		}
	}
	t, err := c.Begin(ctx, c.tab)
	if err != nil {
		return Ticket{}, false
	}
	return t, true
}

// RunBulkAction runs action to completion: guards, dialogs, backend call
// and refetch. Skipped and cancelled actions return nil.
func (c *Controller) RunBulkAction(ctx context.Context, action model.Action, host ModalHost, nav Navigator) error {
	req, ok := c.RequestBulk(ctx, action)
	if !ok {
		return nil
	}
	switch action {
	case model.ActionView, model.ActionEdit:
		if nav == nil {
			return fmt.Errorf("no navigator for %s", action)
		}
		return nav.Open(ctx, req.Tab, req.IDs[0], action == model.ActionEdit)
	case model.ActionDelete:
		confirmed, err := host.Confirm(ctx, req.Prompt())
		if err != nil {
			return err
		}
		if !confirmed {
			metrics.BulkActionsTotal.WithLabelValues(string(action), "cancelled").Inc()
			return nil
		}
	case model.ActionAssign:
		target, picked, err := host.PickAssignee(ctx, c.screen.AssignTargets, req.IDs)
		if err != nil {
			return err
		}
		if !picked || target == "" {
			metrics.BulkActionsTotal.WithLabelValues(string(action), "cancelled").Inc()
			return nil
		}
		req.Target = target
	}

	res := c.Execute(ctx, req)
	t, refetch := c.Complete(ctx, res)
	if refetch {
		c.Apply(ctx, c.Fetch(ctx, t))
	}
	return res.Err
}

func successText(req BulkRequest) string {
	switch req.Action {
	case model.ActionDelete:
		return fmt.Sprintf("Deleted %s", req.IDs[0])
	case model.ActionAssign:
		return fmt.Sprintf("Assigned %d record(s) to %s", len(req.IDs), req.Target)
	default:
		return "Done"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

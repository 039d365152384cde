package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/crmx/internal/chat"
	"github.com/oakwood-commons/crmx/internal/gateway"
	"github.com/oakwood-commons/crmx/internal/listview"
	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/pkg/logger"
)

type pollTickMsg struct {
	phone string
	gen   int
}

type polledMsg struct {
	phone string
	gen   int
	added int
	err   error
}

type sentMsg struct {
	phone string
	err   error
}

// openChat pushes the chat view for r's phone number and remembers it as
// the session's client number.
func openChat(ctx context.Context, deps *Deps, styles Styles, r model.Record) tea.Cmd {
	phone := strings.TrimSpace(r.Phone())
	if phone == "" {
		return toast(listview.LevelWarning, fmt.Sprintf("%s has no phone number", r.Display("name")))
	}
	if deps.Store != nil {
		if err := deps.Store.SetClientNumber(ctx, phone); err != nil {
			logger.FromContext(ctx).Error(err, "saving client number")
		}
	}
	return navigate(newChatModel(ctx, deps, styles, r.Display("name"), phone))
}

// chatModel is a WhatsApp-style thread with one phone number. It polls
// while visible and sends optimistically.
type chatModel struct {
	ctx    context.Context
	deps   *Deps
	styles Styles
	name   string
	thread *chat.Thread
	poller *chat.Poller
	sender *chat.Sender
	input  textinput.Model

	gen     int
	focused bool
	pollErr error
	width   int
	height  int
}

func newChatModel(ctx context.Context, deps *Deps, styles Styles, name, phone string) *chatModel {
	thread := chat.NewThread(phone)
	in := textinput.New()
	in.Prompt = "› "
	in.Placeholder = "message"
	in.CharLimit = 1000
	return &chatModel{
		ctx:    ctx,
		deps:   deps,
		styles: styles,
		name:   name,
		thread: thread,
		poller: &chat.Poller{Source: deps.Backend, Thread: thread, Interval: deps.PollInterval},
		sender: &chat.Sender{Sink: deps.Backend, Thread: thread, From: deps.SenderPhone()},
		input:  in,
	}
}

func (c *chatModel) Title() string { return "Chat · " + c.name }

func (c *chatModel) Capturing() bool { return true }

func (c *chatModel) SetSize(width, height int) {
	c.width = width
	c.height = height
	c.input.SetWidth(max(width-4, 10))
}

func (c *chatModel) Init() tea.Cmd { return nil }

// Focus starts a new polling loop; ticks of earlier loops are ignored.
func (c *chatModel) Focus() tea.Cmd {
	c.focused = true
	c.gen++
	return tea.Batch(c.input.Focus(), c.poll(c.gen))
}

func (c *chatModel) Blur() {
	c.focused = false
	c.gen++
	c.input.Blur()
}

func (c *chatModel) Focused() bool { return c.focused }

func (c *chatModel) poll(gen int) tea.Cmd {
	poller, ctx, phone := c.poller, c.ctx, c.thread.Phone()
	return func() tea.Msg {
		added, err := poller.Poll(ctx)
		return polledMsg{phone: phone, gen: gen, added: added, err: err}
	}
}

func (c *chatModel) interval() time.Duration {
	if c.poller.Interval > 0 {
		return c.poller.Interval
	}
	return chat.DefaultInterval
}

func (c *chatModel) Update(msg tea.Msg) (ChildModel, tea.Cmd) {
	phone := c.thread.Phone()
	switch msg := msg.(type) {
	case polledMsg:
		if msg.phone != phone || msg.gen != c.gen || !c.focused {
			return c, nil
		}
		c.pollErr = msg.err
		gen := c.gen
		return c, tea.Tick(c.interval(), func(time.Time) tea.Msg {
			return pollTickMsg{phone: phone, gen: gen}
		})

	case pollTickMsg:
		if msg.phone != phone || msg.gen != c.gen || !c.focused {
			return c, nil
		}
		return c, c.poll(c.gen)

	case sentMsg:
		if msg.phone != phone || msg.err == nil {
			return c, nil
		}
		if errors.Is(msg.err, chat.ErrEmptyMessage) {
			return c, nil
		}
		return c, toast(listview.LevelError, "Message not sent: "+gateway.UserMessage(msg.err)+" (ctrl+r to retry)")

	case tea.KeyPressMsg:
		switch msg.String() {
		case "esc":
			return c, back
		case "enter":
			body := c.input.Value()
			c.input.SetValue("")
			return c, c.send(func(ctx context.Context) error {
				_, err := c.sender.Send(ctx, body)
				return err
			})
		case "ctrl+r":
			key := c.lastFailed()
			if key == "" {
				return c, nil
			}
			return c, c.send(func(ctx context.Context) error {
				_, err := c.sender.Retry(ctx, key)
				return err
			})
		}
		var cmd tea.Cmd
		c.input, cmd = c.input.Update(msg)
		return c, cmd
	}
	return c, nil
}

func (c *chatModel) send(fn func(ctx context.Context) error) tea.Cmd {
	ctx, phone := c.ctx, c.thread.Phone()
	return func() tea.Msg {
		return sentMsg{phone: phone, err: fn(ctx)}
	}
}

func (c *chatModel) lastFailed() string {
	msgs := c.thread.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Failed {
			return msgs[i].Key
		}
	}
	return ""
}

func (c *chatModel) Hints() string {
	return "enter send · ctrl+r retry · esc back"
}

func (c *chatModel) View() string {
	header := c.styles.Title.Render(fmt.Sprintf("%s · %s", c.name, c.thread.Phone()))
	if c.pollErr != nil {
		header += "  " + c.styles.Toast(listview.LevelWarning).Render("offline: "+gateway.UserMessage(c.pollErr))
	}

	msgs := c.thread.Messages()
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, c.renderMessage(m))
	}
	if len(lines) == 0 {
		lines = append(lines, c.styles.Footer.Render("No messages yet"))
	}
	if room := c.height - 3; room > 0 && len(lines) > room {
		lines = lines[len(lines)-room:]
	}
	return header + "\n" + strings.Join(lines, "\n") + "\n" + c.input.View()
}

func (c *chatModel) renderMessage(m model.Message) string {
	at := m.SentAt
	if c.deps.Location != nil {
		at = at.In(c.deps.Location)
	}
	stamp := at.Format("02 Jan 15:04")
	if m.Direction == model.Outbound {
		status := ""
		switch {
		case m.Failed:
			status = c.styles.Toast(listview.LevelError).Render(" ✗ failed")
		case m.Pending:
			status = c.styles.Footer.Render(" …")
		}
		return c.styles.Footer.Render(stamp) + " " + c.styles.Outbound.Render("you: "+m.Body) + status
	}
	return c.styles.Footer.Render(stamp) + " " + c.styles.Inbound.Render(c.name+": "+m.Body)
}

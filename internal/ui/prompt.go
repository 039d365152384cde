package ui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

type promptKind int

const (
	promptConfirm promptKind = iota
	promptText
	promptPick
)

// Option is one choice of a pick prompt.
type Option struct {
	Value string
	Label string
}

// promptModel is a modal dialog: a y/n confirmation, a single text line or
// a pick list. It reports its answer with a promptResultMsg carrying its id.
type promptModel struct {
	id       string
	kind     promptKind
	question string
	input    textinput.Model
	options  []Option
	cursor   int
	styles   Styles
	width    int
}

func newConfirmPrompt(id, question string, styles Styles) *promptModel {
	return &promptModel{id: id, kind: promptConfirm, question: question, styles: styles}
}

func newTextPrompt(id, question, placeholder, value string, styles Styles) *promptModel {
	in := textinput.New()
	in.Prompt = "> "
	in.Placeholder = placeholder
	in.CharLimit = 256
	in.SetValue(value)
	return &promptModel{id: id, kind: promptText, question: question, input: in, styles: styles}
}

func newPickPrompt(id, question string, options []Option, styles Styles) *promptModel {
	return &promptModel{id: id, kind: promptPick, question: question, options: options, styles: styles}
}

func (p *promptModel) SetSize(width, _ int) {
	p.width = width
	if p.kind == promptText {
		p.input.SetWidth(max(width-4, 10))
	}
}

func (p *promptModel) Init() tea.Cmd {
	if p.kind == promptText {
		return p.input.Focus()
	}
	return nil
}

func (p *promptModel) done(ok bool, value string) tea.Cmd {
	res := promptResultMsg{ID: p.id, OK: ok, Value: value}
	return func() tea.Msg { return res }
}

// Update handles a key press and returns the result command once answered.
func (p *promptModel) Update(msg tea.KeyPressMsg) tea.Cmd {
	key := msg.String()
	if key == "esc" {
		return p.done(false, "")
	}
	switch p.kind {
	case promptConfirm:
		switch key {
		case "y", "Y", "enter":
			return p.done(true, "")
		case "n", "N":
			return p.done(false, "")
		}
		return nil

	case promptText:
		if key == "enter" {
			value := strings.TrimSpace(p.input.Value())
			return p.done(value != "", value)
		}
		var cmd tea.Cmd
		p.input, cmd = p.input.Update(msg)
		return cmd

	case promptPick:
		switch key {
		case "up", "k":
			if p.cursor > 0 {
				p.cursor--
			}
		case "down", "j":
			if p.cursor < len(p.options)-1 {
				p.cursor++
			}
		case "enter":
			if len(p.options) == 0 {
				return p.done(false, "")
			}
			return p.done(true, p.options[p.cursor].Value)
		}
	}
	return nil
}

func (p *promptModel) View() string {
	var b strings.Builder
	b.WriteString(p.styles.Title.Render(p.question))
	b.WriteString("\n")
	switch p.kind {
	case promptConfirm:
		b.WriteString(p.styles.HelpValue.Render("y confirm · n cancel"))
	case promptText:
		b.WriteString(p.input.View())
	case promptPick:
		if len(p.options) == 0 {
			b.WriteString(p.styles.HelpValue.Render("nothing to pick"))
		}
		for i, o := range p.options {
			line := fmt.Sprintf("  %s", o.Label)
			if i == p.cursor {
				line = p.styles.Checked.Render("› " + o.Label)
			}
			b.WriteString(line)
			if i < len(p.options)-1 {
				b.WriteString("\n")
			}
		}
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)
	if w := p.width - 4; w > 20 {
		box = box.Width(min(w, 72))
	}
	return box.Render(b.String())
}

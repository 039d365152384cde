package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/crmx/internal/auth"
	"github.com/oakwood-commons/crmx/internal/chat"
	"github.com/oakwood-commons/crmx/internal/gateway"
	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/internal/session"
	"github.com/oakwood-commons/crmx/internal/templates"
	"github.com/oakwood-commons/crmx/pkg/logger"
)

var (
	chatOnce bool

	messageTo       string
	messageClientID string
	messageTab      string
	messageParams   []string
	messageDryRun   bool
)

var errNoSenderPhone = errors.New("the selected office has no phone; run `crmx office select` first")

var chatCmd = &cobra.Command{
	Use:   "chat [phone]",
	Short: "Follow and answer the WhatsApp thread with a client",
	Long: `Follow the WhatsApp thread with a client.

New messages are fetched every chat.poll_interval and printed as they
arrive. Each line typed on stdin is sent from the selected office's phone.
Without a phone argument the last client number is used.`,
	Example: `  crmx chat +529991234567
  crmx chat --once -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := loadApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	phone := a.sess.ClientNumber
	if len(args) == 1 {
		phone = strings.TrimSpace(args[0])
	}
	if phone == "" {
		return errors.New("no client number: pass a phone")
	}
	if err := a.store.SetClientNumber(ctx, phone); err != nil {
		return err
	}

	thread := chat.NewThread(phone)
	poller := &chat.Poller{Source: a.backend, Thread: thread, Interval: a.cfg.Chat.PollInterval.Std()}
	run := runSettings(ctx)

	from := a.offices.Current().Phone
	if from == "" && !chatOnce {
		return errNoSenderPhone
	}
	if _, err := poller.Poll(ctx); err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}
	if chatOnce && run.Output != "table" {
		return printValue(cmd.OutOrStdout(), run.Output, thread.Messages())
	}
	printer := newThreadPrinter(cmd.OutOrStdout())
	printer.flush(thread)
	if chatOnce {
		return nil
	}
	follow := &sessionFollower{from: from}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()
	poller.OnUpdate = func(int) { printer.flush(thread) }
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()
	if updates, err := a.store.Watch(ctx); err != nil {
		logger.FromContext(ctx).Error(err, "not following session changes")
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			follow.run(updates, cancel)
		}()
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "chatting with %s from %s; Ctrl-D to quit\n", phone, from)
	err = readAndSend(ctx, cmd.InOrStdin(), func(body string) {
		sender := &chat.Sender{Sink: a.backend, Thread: thread, From: follow.phone()}
		if sender.From != from {
			from = sender.From
			fmt.Fprintf(cmd.ErrOrStderr(), "now sending from %s\n", from)
		}
		if _, err := sender.Send(ctx, body); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), gateway.UserMessage(err))
		}
		printer.flush(thread)
	})
	if ferr := follow.failure(); ferr != nil {
		return ferr
	}
	return err
}

// sessionFollower tracks session writes by other crmx processes while a
// chat runs. The sender phone follows the selected office; signing out
// ends the chat.
type sessionFollower struct {
	mu   sync.Mutex
	from string
	err  error
}

func (f *sessionFollower) run(updates <-chan session.Session, stop func()) {
	for sess := range updates {
		if err := auth.CheckSession(sess, time.Now()); err != nil {
			f.mu.Lock()
			f.err = err
			f.mu.Unlock()
			stop()
			return
		}
		if phone := sess.OfficeContext().Phone; phone != "" {
			f.mu.Lock()
			f.from = phone
			f.mu.Unlock()
		}
	}
}

func (f *sessionFollower) phone() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.from
}

func (f *sessionFollower) failure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// readAndSend calls send for every non-blank line until in ends or ctx is
// done.
func readAndSend(ctx context.Context, in io.Reader, send func(string)) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line := <-lines:
			if strings.TrimSpace(line) != "" {
				send(line)
			}
		}
	}
}

// threadPrinter prints each message of a thread once, in thread order.
// Pending sends are printed when the server confirms them.
type threadPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	printed map[string]bool
}

func newThreadPrinter(w io.Writer) *threadPrinter {
	return &threadPrinter{w: w, printed: map[string]bool{}}
}

func (p *threadPrinter) flush(t *chat.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range t.Messages() {
		key := m.MergeKey()
		if m.Pending || p.printed[key] {
			continue
		}
		p.printed[key] = true
		fmt.Fprintln(p.w, formatMessage(m))
	}
}

func formatMessage(m model.Message) string {
	arrow := "<"
	if m.Direction == model.Outbound {
		arrow = ">"
	}
	line := fmt.Sprintf("%s %s %s", m.SentAt.Local().Format("02 Jan 15:04"), arrow, m.Body)
	if m.Failed {
		line += "  [not sent]"
	}
	return line
}

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Send WhatsApp template messages",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var messageTemplatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the configured message templates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := cfgLoader.load()
		if err != nil {
			return err
		}
		set, err := templates.Parse(cfg.Templates)
		if err != nil {
			return err
		}
		for _, name := range set.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var messageSendCmd = &cobra.Command{
	Use:   "send <template>",
	Short: "Render a template for a client and send it",
	Long: `Render a configured template and send it as a WhatsApp template message.

Templates see .Client, .Office (the selected office), .Agent (the signed-in
user) and .Params (every --set). The recipient is --to, the phone of
--client, or the last client number, in that order.`,
	Example: `  crmx message send welcome --to +529991234567
  crmx message send visit --client 65f1c0ffee --set date="lunes 10:00"
  crmx message send visit --client 65f1c0ffee --set date=hoy --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		params, err := parseAssignments(messageParams)
		if err != nil {
			return err
		}
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		set, err := templates.Parse(a.cfg.Templates)
		if err != nil {
			return err
		}
		client := templates.Client{Phone: a.sess.ClientNumber}
		if messageClientID != "" {
			tab, err := model.ParseTab(messageTab)
			if err != nil {
				return err
			}
			rec, err := a.backend.Get(ctx, tab, messageClientID)
			if err != nil {
				return fmt.Errorf("getting %s %s: %w", tab, messageClientID, err)
			}
			client = templates.ClientFromRecord(rec)
		}
		if messageTo != "" {
			client.Phone = messageTo
		}
		if client.Phone == "" {
			return errors.New("no recipient: pass --to or --client")
		}

		office := a.offices.Current()
		body, err := set.Render(args[0], templates.Data{
			Client: client,
			Office: office,
			Agent:  templates.Agent{Name: a.sess.Name, Email: a.sess.Email},
			Params: params,
		})
		if err != nil {
			return err
		}
		if messageDryRun {
			fmt.Fprintln(cmd.OutOrStdout(), body)
			return nil
		}
		if office.Phone == "" {
			return errNoSenderPhone
		}
		err = a.backend.SendTemplate(ctx, gateway.TemplateRequest{
			To:       client.Phone,
			From:     office.Phone,
			Template: args[0],
			Body:     body,
			Params:   params,
		})
		if err != nil {
			return fmt.Errorf("sending %s: %w", args[0], err)
		}
		if err := a.store.SetClientNumber(ctx, client.Phone); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sent %s to %s\n", args[0], client.Phone)
		return nil
	},
}

func init() { //nolint:gochecknoinits
	chatCmd.Flags().BoolVar(&chatOnce, "once", false, "print the thread once and exit")

	messageSendCmd.Flags().StringVar(&messageTo, "to", "", "recipient phone")
	messageSendCmd.Flags().StringVar(&messageClientID, "client", "", "id of the record the message is about")
	messageSendCmd.Flags().StringVar(&messageTab, "tab", string(model.TabClient), "collection of --client")
	messageSendCmd.Flags().StringArrayVar(&messageParams, "set", nil, "template parameter as key=value (repeatable)")
	messageSendCmd.Flags().BoolVar(&messageDryRun, "dry-run", false, "print the rendered message without sending it")

	messageCmd.AddCommand(messageSendCmd, messageTemplatesCmd)
	rootCmd.AddCommand(chatCmd, messageCmd)
}

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/crmx/internal/listview"
	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/internal/pager"
	"github.com/oakwood-commons/crmx/pkg/logger"
	"github.com/oakwood-commons/crmx/pkg/settings"
)

// errConfirmationRequired is returned when a destructive command cannot ask.
var errConfirmationRequired = errors.New("confirmation required: pass --yes when not running in a terminal")

// parseAssignments turns repeated key=value flags into a form.
func parseAssignments(pairs []string) (model.Form, error) {
	form := model.Form{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q: want key=value", p)
		}
		form[k] = strings.TrimSpace(v)
	}
	return form, nil
}

// runSettings returns the settings of the current run, or defaults.
func runSettings(ctx context.Context) *settings.Run {
	if run, ok := settings.FromContext(ctx); ok {
		return run
	}
	return settings.NewCliParams()
}

// outputWidth is the width tables are fitted to.
func outputWidth() int {
	w, _ := detectTerminalSize()
	return w
}

// cliNotifier prints controller notices: successes to out, the rest to errOut.
type cliNotifier struct {
	out    io.Writer
	errOut io.Writer
}

func (n cliNotifier) Notify(notice listview.Notice) {
	switch notice.Level {
	case listview.LevelSuccess, listview.LevelInfo:
		fmt.Fprintln(n.out, notice.Text)
	default:
		fmt.Fprintln(n.errOut, notice.Text)
	}
}

func notifierFor(cmd *cobra.Command) cliNotifier {
	return cliNotifier{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
}

// cliHost answers the dialogs of a bulk action from flags or a y/N prompt.
type cliHost struct {
	in       io.Reader
	out      io.Writer
	yes      bool
	canAsk   bool
	assignee string
}

func (h cliHost) Confirm(_ context.Context, prompt string) (bool, error) {
	if h.yes {
		return true, nil
	}
	if !h.canAsk {
		return false, errConfirmationRequired
	}
	fmt.Fprintf(h.out, "%s [y/N] ", prompt)
	answer, err := readLine(h.in)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (h cliHost) PickAssignee(context.Context, model.Tab, []string) (string, bool, error) {
	return h.assignee, h.assignee != "", nil
}

func hostFor(cmd *cobra.Command, yes bool, assignee string) cliHost {
	return cliHost{
		in:       cmd.InOrStdin(),
		out:      cmd.ErrOrStderr(),
		yes:      yes,
		canAsk:   !stdinIsPiped(),
		assignee: assignee,
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// selectRecords loads tab and selects ids. Every id must exist; the window
// is widened to a single page so selection is not limited to page 1.
func selectRecords(ctx context.Context, c *listview.Controller, tab model.Tab, ids []string) error {
	if err := c.ActivateTab(ctx, tab); err != nil {
		return err
	}
	if err := c.SetPageSize(pager.All); err != nil {
		return fmt.Errorf("selecting by id needs the \"all\" page size: %w", err)
	}
	c.SetSelection(ids)
	selected := c.Selected()
	var missing []string
	for _, id := range ids {
		if !slices.Contains(selected, id) {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("no %s with id %s", tab, strings.Join(missing, ", "))
	}
	return nil
}

// resolveTab picks --tab or the screen's default.
func resolveTab(screen model.Screen, raw string) (model.Tab, error) {
	if raw == "" {
		return screen.DefaultTab, nil
	}
	tab, err := model.ParseTab(raw)
	if err != nil {
		return "", err
	}
	if !screen.HasTab(tab) {
		return "", fmt.Errorf("%w %q for screen %q", listview.ErrUnknownTab, tab, screen.Name)
	}
	return tab, nil
}

// redirectLogsForTUI sends log lines to a file so they stay off the alt
// screen. It must run before the first logger.Get.
func redirectLogsForTUI() {
	path := filepath.Join(os.TempDir(), settings.CliBinaryName+"-tui.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		logger.SetOutput(io.Discard)
		return
	}
	logger.SetOutput(f)
}

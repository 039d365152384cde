package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/crmx/internal/events"
	"github.com/oakwood-commons/crmx/internal/listview"
	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/internal/pager"
	"github.com/oakwood-commons/crmx/internal/ui"
	"github.com/oakwood-commons/crmx/pkg/logger"
)

var (
	listTab         string
	listSearch      string
	listPage        int
	listPerPage     pager.Size
	listWhere       string
	listInteractive bool

	recordTab  string
	recordSets []string
	deleteYes  bool
	assignTo   string
)

var listCmd = &cobra.Command{
	Use:   "list <screen>",
	Short: "List the records of a screen",
	Long: `List the records of a screen's active tab.

Search matches the screen's search fields case-insensitively; --where adds
a CEL expression over the record (e.g. 'record.status == "nuevo"'). With -i the
interactive view opens on this screen with the same tab, search and page.`,
	Example: `  crmx list leads
  crmx list leads --selected prospecto --search maria --per-page 20
  crmx list users --where 'record.office.name == "Centro"' -o yaml
  crmx list clients -i`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := loadApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	screen, err := a.screen(args[0])
	if err != nil {
		return err
	}
	tab, err := resolveTab(screen, listTab)
	if err != nil {
		return err
	}
	size := listPerPage
	if size == 0 {
		size = a.cfg.Paging.Default
	}
	state := listview.State{Tab: tab, Search: listSearch, Page: max(listPage, 1), Size: size}
	if err := (pager.Window{Page: 1, Size: size}).Validate(a.cfg.Paging.Sizes); err != nil {
		return err
	}
	run := runSettings(ctx)

	if listInteractive {
		if listWhere != "" {
			return fmt.Errorf("--where is not available in the interactive view")
		}
		if err := a.store.SaveView(ctx, screen.Name, state.Encode()); err != nil {
			return err
		}
		pub, sub, err := a.events()
		if err != nil {
			return err
		}
		deps, err := a.uiDeps(pub, sub, run.NoColor)
		if err != nil {
			return err
		}
		opts, cleanup := getProgramOptions()
		defer cleanup()
		return ui.Run(ctx, deps, screen.Name, opts...)
	}

	c, err := a.controller(screen, events.NoopPublisher{}, notifierFor(cmd))
	if err != nil {
		return err
	}
	c.Restore(ctx, state)
	if err := c.Refetch(ctx); err != nil {
		return fmt.Errorf("listing %s: %w", tab, err)
	}
	if err := c.SetFilterExpr(ctx, listWhere); err != nil {
		return fmt.Errorf("--where: %w", err)
	}
	c.GoToPage(state.Page)

	out := cmd.OutOrStdout()
	if err := printRecords(out, run.Output, c.Rows(), screen.Columns, run.NoColor, outputWidth()); err != nil {
		return err
	}
	if run.Output == "table" {
		w := c.Window()
		fmt.Fprintf(cmd.ErrOrStderr(), "%s · page %d/%d · %d records · %s per page\n",
			tab.Label(), w.Page, max(c.TotalPages(), 1), len(c.Filtered()), w.Size)
	}
	return nil
}

var viewCmd = &cobra.Command{
	Use:   "view <screen> <id>",
	Short: "Show every field of a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()
		screen, err := a.screen(args[0])
		if err != nil {
			return err
		}
		tab, err := resolveTab(screen, recordTab)
		if err != nil {
			return err
		}
		rec, err := a.backend.Get(ctx, tab, args[1])
		if err != nil {
			return fmt.Errorf("getting %s %s: %w", tab, args[1], err)
		}
		run := runSettings(ctx)
		return printFields(cmd.OutOrStdout(), run.Output, rec, run.NoColor, outputWidth())
	},
}

var editCmd = &cobra.Command{
	Use:     "edit <screen> <id>",
	Short:   "Change fields of a record",
	Example: `  crmx edit clients 65f1c0ffee --set city=Progreso --set status=activo`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		form, err := parseAssignments(recordSets)
		if err != nil {
			return err
		}
		if len(form) == 0 {
			return fmt.Errorf("nothing to change: pass at least one --set key=value")
		}
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()
		screen, err := a.screen(args[0])
		if err != nil {
			return err
		}
		if !screen.Allows(model.ActionEdit) {
			return fmt.Errorf("screen %q does not allow edits", screen.Name)
		}
		tab, err := resolveTab(screen, recordTab)
		if err != nil {
			return err
		}
		rec, err := a.backend.Update(ctx, tab, args[1], form.Payload())
		if err != nil {
			return fmt.Errorf("updating %s %s: %w", tab, args[1], err)
		}
		a.publish(cmd, events.Mutation{Screen: screen.Name, Tab: tab, Action: model.ActionEdit, IDs: []string{args[1]}})
		run := runSettings(ctx)
		return printFields(cmd.OutOrStdout(), run.Output, rec, run.NoColor, outputWidth())
	},
}

var createCmd = &cobra.Command{
	Use:   "create <screen>",
	Short: "Create a record after validating the form",
	Example: `  crmx create leads --set name="Ana Pérez" --set phone=+529991234567
  crmx create users --tab seller --set name=Luis --set email=luis@example.mx \
      --set password=secreto1 --set confirmPassword=secreto1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		form, err := parseAssignments(recordSets)
		if err != nil {
			return err
		}
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()
		screen, err := a.screen(args[0])
		if err != nil {
			return err
		}
		tab, err := resolveTab(screen, recordTab)
		if err != nil {
			return err
		}
		if err := model.ValidateForm(tab, form); err != nil {
			return err
		}
		rec, err := a.backend.Create(ctx, tab, form.Payload())
		if err != nil {
			return fmt.Errorf("creating %s: %w", tab, err)
		}
		a.publish(cmd, events.Mutation{Screen: screen.Name, Tab: tab, Action: model.ActionCreate, IDs: []string{rec.ID}})
		run := runSettings(ctx)
		return printFields(cmd.OutOrStdout(), run.Output, rec, run.NoColor, outputWidth())
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <screen> <id>",
	Short: "Delete one record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBulk(cmd, args[0], model.ActionDelete, args[1:], "")
	},
}

var assignCmd = &cobra.Command{
	Use:     "assign <screen> <id>...",
	Short:   "Assign records to a coordinator, office or user",
	Example: `  crmx assign leads --to 65f1c0ffee01 lead-1 lead-2`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(assignTo) == "" {
			return fmt.Errorf("--to is required")
		}
		return runBulk(cmd, args[0], model.ActionAssign, args[1:], assignTo)
	},
}

// runBulk drives the same guarded bulk action the interactive list runs.
func runBulk(cmd *cobra.Command, screenName string, action model.Action, ids []string, target string) error {
	ctx := cmd.Context()
	a, err := loadApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()
	screen, err := a.screen(screenName)
	if err != nil {
		return err
	}
	if !screen.Allows(action) {
		return fmt.Errorf("screen %q does not allow %s", screen.Name, action)
	}
	if len(ids) > 1 && !screen.Multi() {
		return fmt.Errorf("screen %q selects one record at a time", screen.Name)
	}
	tab, err := resolveTab(screen, recordTab)
	if err != nil {
		return err
	}
	pub, _, err := a.events()
	if err != nil {
		return err
	}
	c, err := a.controller(screen, pub, notifierFor(cmd))
	if err != nil {
		return err
	}
	if err := selectRecords(ctx, c, tab, ids); err != nil {
		return err
	}
	if _, ok := c.RequestBulk(ctx, action); !ok {
		return fmt.Errorf("%s needs exactly one record", action)
	}
	return c.RunBulkAction(ctx, action, hostFor(cmd, deleteYes, target), nil)
}

// publish broadcasts a change made outside a list controller. Failures
// are logged; the change itself already succeeded.
func (a *app) publish(cmd *cobra.Command, m events.Mutation) {
	ctx := cmd.Context()
	pub, _, err := a.events()
	if err == nil {
		err = pub.PublishMutation(ctx, m)
	}
	if err != nil {
		logger.FromContext(ctx).Error(err, "publishing mutation", "action", m.Action, "ids", m.IDs)
	}
}

func init() { //nolint:gochecknoinits
	listCmd.Flags().StringVar(&listTab, "selected", "", "tab to list (default: the screen's default tab)")
	listCmd.Flags().StringVar(&listSearch, "search", "", "case-insensitive search over the screen's search fields")
	listCmd.Flags().IntVar(&listPage, "page", 1, "page to show")
	listCmd.Flags().Var(pager.SizeValue{Target: &listPerPage}, "per-page", "records per page: 10, 20 or all (default from config)")
	listCmd.Flags().StringVar(&listWhere, "where", "", "CEL filter over each record, e.g. 'record.city == \"Mérida\"'")
	listCmd.Flags().BoolVarP(&listInteractive, "interactive", "i", false, "open the interactive view")

	for _, c := range []*cobra.Command{viewCmd, editCmd, createCmd, deleteCmd, assignCmd} {
		c.Flags().StringVar(&recordTab, "tab", "", "tab of the record (default: the screen's default tab)")
	}
	for _, c := range []*cobra.Command{editCmd, createCmd} {
		c.Flags().StringArrayVar(&recordSets, "set", nil, "field value as key=value (repeatable)")
	}
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "do not ask for confirmation")
	assignCmd.Flags().StringVar(&assignTo, "to", "", "id of the assignee")

	rootCmd.AddCommand(listCmd, viewCmd, editCmd, createCmd, deleteCmd, assignCmd)
}

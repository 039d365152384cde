package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/oakwood-commons/crmx/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history <record-id>",
	Short: "Show the calls logged against a record, grouped by day",
	Long: `Show the calls and activity logged against a record.

Entries are grouped under one heading per calendar day in the configured
timezone, in the order the backend returns them.`,
	Example: `  crmx history 65f1c0ffee
  crmx history 65f1c0ffee -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		loc, err := a.cfg.History.Location()
		if err != nil {
			return err
		}
		calls, err := a.backend.Calls(ctx, args[0])
		if err != nil {
			return fmt.Errorf("loading history of %s: %w", args[0], err)
		}
		groups := history.GroupByDate(calls, a.cfg.History.DateLayout, loc)

		run := runSettings(ctx)
		if run.Output != "table" {
			if groups == nil {
				groups = []history.Group{}
			}
			return printValue(cmd.OutOrStdout(), run.Output, groups)
		}
		if len(groups) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "no history for", args[0])
			return nil
		}
		return printHistory(cmd.OutOrStdout(), groups, loc, run.NoColor, outputWidth())
	},
}

// printHistory writes one heading per day followed by that day's entries.
func printHistory(w io.Writer, groups []history.Group, loc *time.Location, noColor bool, width int) error {
	heading := lipgloss.NewStyle().Bold(true).Underline(true)
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := fmt.Sprintf("%s (%d)", g.Date, len(g.Records))
		if !noColor {
			title = heading.Render(title)
		}
		fmt.Fprintln(w, title)

		rows := make([][]string, len(g.Records))
		for j, rec := range g.Records {
			rows[j] = []string{
				rec.At.In(loc).Format("15:04"),
				rec.Kind,
				formatDuration(rec.Duration),
				rec.Agent,
				rec.Summary,
			}
		}
		if _, err := io.WriteString(w, renderTable([]string{"TIME", "KIND", "DURATION", "AGENT", "SUMMARY"}, rows, width, noColor)); err != nil {
			return err
		}
	}
	return nil
}

// formatDuration renders seconds as m:ss; zero is blank.
func formatDuration(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	return strconv.Itoa(seconds/60) + ":" + fmt.Sprintf("%02d", seconds%60)
}

func init() { //nolint:gochecknoinits
	rootCmd.AddCommand(historyCmd)
}

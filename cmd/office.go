package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/crmx/internal/model"
)

var officeCmd = &cobra.Command{
	Use:   "office",
	Short: "Choose the office you work under",
	Long: `Choose the office you work under.

The selected office supplies the phone chat messages are sent from and the
office fields message templates see.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var officeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the offices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()
		recs, err := a.backend.List(ctx, model.TabOffice)
		if err != nil {
			return fmt.Errorf("listing offices: %w", err)
		}
		run := runSettings(ctx)
		if run.Output != "table" {
			return printRecords(cmd.OutOrStdout(), run.Output, recs, nil, run.NoColor, 0)
		}
		current := a.offices.Current().ID
		rows := make([][]string, len(recs))
		for i, r := range recs {
			mark := ""
			if r.ID == current {
				mark = "*"
			}
			rows[i] = []string{mark, r.ID, r.Display("name"), r.Display("phone"), r.Display("city"), r.Display("state")}
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"", "ID", "NAME", "PHONE", "CITY", "STATE"}, rows, outputWidth(), run.NoColor))
		return err
	},
}

var officeSelectCmd = &cobra.Command{
	Use:   "select <office-id>",
	Short: "Make an office the current office",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()
		rec, err := a.backend.Get(ctx, model.TabOffice, args[0])
		if err != nil {
			return fmt.Errorf("getting office %s: %w", args[0], err)
		}
		office, err := a.offices.Select(ctx, model.OfficeFromRecord(rec))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Working under %s (%s)\n", office.Name, office.Location())
		return nil
	},
}

var officeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current office",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.close()
		office := a.offices.Current()
		if office.IsZero() {
			return errors.New("no office selected; run `crmx office select <office-id>`")
		}
		run := runSettings(cmd.Context())
		if run.Output != "table" {
			return printValue(cmd.OutOrStdout(), run.Output, office)
		}
		rows := [][]string{
			{"id", office.ID},
			{"name", office.Name},
			{"phone", office.Phone},
			{"location", office.Location()},
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"FIELD", "VALUE"}, rows, outputWidth(), run.NoColor))
		return err
	},
}

var officeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the current office",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.close()
		return a.offices.Clear(cmd.Context())
	},
}

func init() { //nolint:gochecknoinits
	officeCmd.AddCommand(officeListCmd, officeSelectCmd, officeShowCmd, officeClearCmd)
	rootCmd.AddCommand(officeCmd)
}

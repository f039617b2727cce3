package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"firefly/internal/core"
	"firefly/internal/services"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "List and run saved reports",
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved reports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reports, err := app.backend.Backend.ListReports(cmd.Context())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tTYPE\tFROM\tTO\tUPDATED")
		for _, r := range reports {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Name, r.Type,
				app.format.Date(r.Start), app.format.Date(r.End),
				humanize.Time(time.UnixMilli(r.UpdatedAt)))
		}
		return tw.Flush()
	},
}

var reportRunCmd = &cobra.Command{
	Use:   "run ID",
	Short: "Run a saved report",
	Long: `Run a saved report over its date window and print the aggregation
for its type.

Example:
  firefly-cli report run 4`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.AddCommand(reportListCmd, reportRunCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid report id %q", args[0])
	}
	rep, res, err := services.NewReportService(app.backend.Backend).Results(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s), %s to %s: %s transactions\n\n",
		rep.Name, rep.Type, app.format.Date(rep.Start), app.format.Date(rep.End),
		humanize.Comma(int64(res.TransactionCount)))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	switch {
	case res.Type == core.CategoryBreakdown:
		fmt.Fprintln(tw, "CATEGORY\tTOTAL\tSHARE")
		for _, s := range res.Breakdown {
			fmt.Fprintf(tw, "%s\t%s\t%s%%\n", s.Name, app.format.Currency(s.Total, ""), humanize.FtoaWithDigits(s.Percentage, 1))
		}
	case res.IncomeVsExpenses != nil:
		ie := res.IncomeVsExpenses
		fmt.Fprintf(tw, "Income\t%s\n", app.format.Currency(ie.TotalIncome, ""))
		fmt.Fprintf(tw, "Expenses\t%s\n", app.format.Currency(ie.TotalExpenses, ""))
		fmt.Fprintf(tw, "Net\t%s\n", app.format.Currency(ie.Net, ""))
	}
	return tw.Flush()
}

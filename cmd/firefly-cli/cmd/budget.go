package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"firefly/internal/core"
	"firefly/internal/services"
)

var (
	budgetMonth  string
	budgetLimits []string
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Show and set monthly budgets",
}

var budgetStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show spending against the month's limits",
	Long: `Show spending against the limits of a month, defaulting to the
current one.

Example:
  firefly-cli budget status --month 2025-03`,
	Args: cobra.NoArgs,
	RunE: runBudgetStatus,
}

var budgetSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create or replace the budget of a month",
	Long: `Create or replace the budget of a month. Limits are given per
category name; income categories are rejected.

Example:
  firefly-cli budget save --month 2025-03 --limit Groceries=400 --limit Rent=1200`,
	Args: cobra.NoArgs,
	RunE: runBudgetSave,
}

func init() {
	budgetCmd.PersistentFlags().StringVar(&budgetMonth, "month", "", "month as YYYY-MM or YYYYMM (default current month)")
	budgetSaveCmd.Flags().StringArrayVar(&budgetLimits, "limit", nil, "category limit as NAME=AMOUNT (repeatable)")
	budgetCmd.AddCommand(budgetStatusCmd, budgetSaveCmd)
}

func month() (core.MonthKey, error) {
	if strings.TrimSpace(budgetMonth) == "" {
		return core.MonthKeyOf(time.Now().In(app.cfg.Location())), nil
	}
	return core.ParseMonthKey(budgetMonth)
}

func runBudgetStatus(cmd *cobra.Command, args []string) error {
	m, err := month()
	if err != nil {
		return err
	}
	view, err := services.NewBudgetService(app.backend.Backend, app.cfg.Location()).Status(cmd.Context(), m)
	if err != nil {
		return err
	}

	st := view.Status
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Budget for %s\n\n", m)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "CATEGORY\tLIMIT\tSPENT\tREMAINING\tUSED\t")
	for _, c := range st.Categories {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s%%\t\n",
			c.Name,
			app.format.Currency(c.Limit, ""),
			app.format.Currency(c.Spent, ""),
			app.format.Currency(c.Remaining, ""),
			humanize.FtoaWithDigits(c.PercentageUsed, 1))
	}
	fmt.Fprintf(tw, "Total\t%s\t%s\t%s\t\t\n",
		app.format.Currency(st.TotalLimit, ""),
		app.format.Currency(st.TotalSpent, ""),
		app.format.Currency(st.TotalRemaining, ""))
	if err := tw.Flush(); err != nil {
		return err
	}
	if !st.CarryOver.IsZero() {
		fmt.Fprintf(out, "\nCarried over: %s\n", app.format.Currency(st.CarryOver, ""))
	}
	return nil
}

func runBudgetSave(cmd *cobra.Command, args []string) error {
	m, err := month()
	if err != nil {
		return err
	}
	cats, err := app.backend.Backend.ListCategories(cmd.Context())
	if err != nil {
		return err
	}
	limits, err := parseLimits(budgetLimits, cats)
	if err != nil {
		return err
	}

	b, err := services.NewBudgetService(app.backend.Backend, app.cfg.Location()).Save(cmd.Context(), m, limits)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved budget %d for %s: %s across %d categories\n",
		b.ID, b.Month, app.format.Currency(b.TotalLimit(), ""), len(b.Limits))
	return nil
}

// parseLimits resolves NAME=AMOUNT pairs against the category names,
// ignoring case.
func parseLimits(raw []string, cats []core.Category) ([]core.CategoryLimit, error) {
	byName := make(map[string]core.Category, len(cats))
	for _, c := range cats {
		byName[strings.ToLower(c.Name)] = c
	}
	out := make([]core.CategoryLimit, 0, len(raw))
	for _, r := range raw {
		name, amount, ok := strings.Cut(r, "=")
		if !ok {
			return nil, fmt.Errorf("limit %q: want NAME=AMOUNT", r)
		}
		cat, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("limit %q: %w", r, core.ErrUnknownCategory)
		}
		m, err := core.ParseAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("limit %q: %w", r, err)
		}
		out = append(out, core.CategoryLimit{CategoryID: cat.ID, Limit: m})
	}
	return out, nil
}

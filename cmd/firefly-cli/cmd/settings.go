package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firefly/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show and change user settings",
}

var currencyCmd = &cobra.Command{
	Use:   "currency [CODE]",
	Short: "Show or set the preferred ISO 4217 currency",
	Long: `Without an argument, print the preferred currency. With one, store it.
Settings are kept in SETTINGS_DB_PATH.

Example:
  firefly-cli settings currency EUR`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openSettings()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			us, err := st.Get(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), us.Currency)
			return nil
		}
		us, err := settings.SetCurrency(cmd.Context(), st, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Preferred currency set to %s\n", us.Currency)
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(currencyCmd)
}

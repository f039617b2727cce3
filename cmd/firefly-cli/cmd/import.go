package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"firefly/internal/csvimport"
	"firefly/internal/services"
)

var createTags bool

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import transactions from a CSV file",
	Long: `Import transactions from a CSV file with the columns
date, account, category, amount and tags. Rows that fail validation are
reported and skipped; the valid rows are stored in one batch.

Example:
  firefly-cli import january.csv --create-tags`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&createTags, "create-tags", false, "create tags that do not exist yet")
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	svc := services.NewImportService(app.backend.Backend, app.logger)
	res, err := svc.Import(cmd.Context(), f, csvimport.Options{CreateMissingTags: createTags})
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %s transactions, %s failed\n",
		humanize.Comma(int64(res.Created)), humanize.Comma(int64(res.Failed)))
	for _, e := range res.Errors {
		fmt.Fprintf(out, "  %s\n", e)
	}
	return nil
}

package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"firefly/internal/cli"
	"firefly/internal/services"
)

var (
	exportOutput string
	exportSheets bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all transactions as CSV or to Google Sheets",
	Long: `Export every transaction in the import column layout. The CSV goes to
stdout unless --out is given; --sheets replaces the configured sheet.

Example:
  firefly-cli export --out transactions.csv
  firefly-cli export --sheets`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "out", "o", "", "write the CSV to this file")
	exportCmd.Flags().BoolVar(&exportSheets, "sheets", false, "export to the configured Google Sheet")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if exportSheets {
		exporter, err := cli.SheetsExporter(ctx, app.logger, app.cfg)
		if err != nil {
			return err
		}
		res, err := services.NewExportService(app.backend.Backend, exporter).ExportToSheets(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %s rows to %s\n", humanize.Comma(int64(res.Rows)), res.Range)
		return nil
	}

	var buf bytes.Buffer
	n, err := services.NewExportService(app.backend.Backend, nil).WriteCSV(ctx, &buf)
	if err != nil {
		return err
	}
	if exportOutput == "" {
		_, err := io.Copy(cmd.OutOrStdout(), &buf)
		return err
	}
	size := uint64(buf.Len())
	if err := os.WriteFile(exportOutput, buf.Bytes(), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s transactions (%s) to %s\n",
		humanize.Comma(int64(n)), humanize.Bytes(size), exportOutput)
	return nil
}

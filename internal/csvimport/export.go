package csvimport

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"firefly/internal/core"
	"firefly/internal/format"
)

// ExportHeader is the first line of every export.
var ExportHeader = []string{"transactionId", "date", "accountId", "accountName", "categoryId", "categoryName", "amount", "tags"}

const unknownName = "Unknown"

// ExportRecords builds the export matrix, header first. Names that cannot be
// resolved print as "Unknown"; tag names follow the order of the tag catalog.
func ExportRecords(txs []core.Transaction, accounts []core.Account, categories []core.Category, tags []core.Tag) [][]string {
	accountNames := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		accountNames[a.ID] = a.Name
	}
	categoryNames := make(map[int64]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	out := make([][]string, 0, len(txs)+1)
	out = append(out, ExportHeader)
	for _, tx := range txs {
		var names []string
		for _, tag := range tags {
			if tx.HasTag(tag.ID) {
				names = append(names, tag.Name)
			}
		}
		out = append(out, []string{
			strconv.FormatInt(tx.ID, 10),
			format.FormatDateISO(tx.Date),
			strconv.FormatInt(tx.AccountID, 10),
			nameOr(accountNames, tx.AccountID),
			strconv.FormatInt(tx.CategoryID, 10),
			nameOr(categoryNames, tx.CategoryID),
			tx.Amount.String(),
			strings.Join(names, ","),
		})
	}
	return out
}

func nameOr(names map[int64]string, id int64) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return unknownName
}

// Export writes transactions as CSV with "\n" line endings. Fields are quoted
// only when they contain a comma, a quote or a newline.
func Export(w io.Writer, txs []core.Transaction, accounts []core.Account, categories []core.Category, tags []core.Tag) error {
	bw := bufio.NewWriter(w)
	for _, rec := range ExportRecords(txs, accounts, categories, tags) {
		for i, field := range rec {
			if i > 0 {
				if err := bw.WriteByte(','); err != nil {
					return err
				}
			}
			if _, err := bw.WriteString(escape(field)); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ExportString is Export into a string.
func ExportString(txs []core.Transaction, accounts []core.Account, categories []core.Category, tags []core.Tag) string {
	var sb strings.Builder
	_ = Export(&sb, txs, accounts, categories, tags)
	return sb.String()
}

func escape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Package csvimport converts spreadsheet text into validated transaction
// requests and renders transactions back to the same format.
package csvimport

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// Row is one data record as typed by the user, before any lookup.
type Row struct {
	Line         int // 1-based line of the record in the source, header included
	Date         string
	AccountName  string
	CategoryName string
	Amount       string
	Tags         string
}

// ParseError reports a structurally unusable file. It is fatal to the whole import.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrTooFewRows is wrapped by the ParseError returned for files without a header and a data row.
var ErrTooFewRows = errors.New("CSV file must contain a header row and at least one data row")

type column int

const (
	colDate column = iota
	colAccount
	colCategory
	colAmount
	colTags
	colCount
)

// headerAliases lists lowercased header names per column in order of
// preference. A row takes the first non-empty value among them.
var headerAliases = [colCount][]string{
	colDate:     {"date"},
	colAccount:  {"accountname", "account"},
	colCategory: {"categoryname", "category"},
	colAmount:   {"amount"},
	colTags:     {"tags"},
}

// ParseString is Parse over an in-memory string.
func ParseString(text string) ([]Row, error) {
	return Parse(strings.NewReader(text))
}

// Parse reads a header line followed by data lines. Header names are matched
// case-insensitively; unknown columns are ignored and missing ones read as empty.
// Quoted fields may hold commas, newlines and doubled quotes. Blank lines are skipped.
func Parse(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var records [][]string
	var lines []int
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Msg: "malformed CSV", Err: err}
		}
		if blank(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	if len(records) < 2 {
		return nil, &ParseError{Msg: "invalid CSV", Err: ErrTooFewRows}
	}

	// index[c] holds the record positions for column c, most preferred first
	header := make(map[string][]int, len(records[0]))
	for pos, name := range records[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		header[key] = append(header[key], pos)
	}
	var index [colCount][]int
	for c, aliases := range headerAliases {
		for _, alias := range aliases {
			index[c] = append(index[c], header[alias]...)
		}
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		get := func(c column) string {
			for _, pos := range index[c] {
				if pos < len(rec) {
					if v := strings.TrimSpace(rec[pos]); v != "" {
						return v
					}
				}
			}
			return ""
		}
		rows = append(rows, Row{
			Line:         lines[i+1],
			Date:         get(colDate),
			AccountName:  get(colAccount),
			CategoryName: get(colCategory),
			Amount:       get(colAmount),
			Tags:         get(colTags),
		})
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// TagNames splits the tags field on commas, trimming and dropping empties.
func (r Row) TagNames() []string {
	if strings.TrimSpace(r.Tags) == "" {
		return nil
	}
	var names []string
	for _, n := range strings.Split(r.Tags, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

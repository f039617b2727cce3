// Package format renders money and timestamps for display.
//
// Currency output follows en-US conventions: symbol prefix, thousands
// grouping and exactly two fraction digits.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/currency"

	"firefly/internal/core"
)

// DefaultCurrency is used when neither the caller nor the preference names one.
const DefaultCurrency = "USD"

// symbols holds the en-US narrow symbols; other valid codes print the code itself.
var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
	"CAD": "CA$",
	"AUD": "A$",
	"NZD": "NZ$",
	"MXN": "MX$",
	"BRL": "R$",
	"CNY": "CN¥",
	"KRW": "₩",
	"ILS": "₪",
	"VND": "₫",
}

// CurrencyPreference supplies the user's persisted currency code.
type CurrencyPreference interface {
	PreferredCurrency() string
}

// Formatter binds formatting to a persisted preference and a display location.
type Formatter struct {
	Preference CurrencyPreference
	Location   *time.Location
}

// Currency formats m using code, or the preferred currency when code is empty.
func (f Formatter) Currency(m core.Money, code string) string {
	if code == "" && f.Preference != nil {
		code = f.Preference.PreferredCurrency()
	}
	return FormatCurrency(m, code)
}

// Date formats a millisecond timestamp in the formatter's location.
func (f Formatter) Date(ms int64) string {
	return formatTime(ms, f.Location, "Jan 2, 2006")
}

// FormatCurrency renders m as e.g. "-$1,234.50". An empty code means USD.
// Codes that are not valid ISO 4217 fall back to "<code> <amount>".
func FormatCurrency(m core.Money, code string) string {
	if strings.TrimSpace(code) == "" {
		code = DefaultCurrency
	}
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return code + " " + m.String()
	}
	iso := unit.String()
	prefix, ok := symbols[iso]
	if !ok {
		prefix = iso + " "
	}

	sign := ""
	cents := m.Cents
	if cents < 0 {
		sign = "-"
	}
	mag := uint64(cents)
	if cents < 0 {
		mag = uint64(-(cents + 1)) + 1
	}
	whole := humanize.Comma(int64(mag / 100))
	return fmt.Sprintf("%s%s%s.%02d", sign, prefix, whole, mag%100)
}

// IsValidCurrency reports whether code is a recognized ISO 4217 code.
func IsValidCurrency(code string) bool {
	_, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	return err == nil
}

// FormatDate renders a timestamp as a short US date, e.g. "Jan 15, 2025", in UTC.
func FormatDate(ms int64) string {
	return formatTime(ms, time.UTC, "Jan 2, 2006")
}

// FormatDateISO renders a timestamp as YYYY-MM-DD in UTC.
func FormatDateISO(ms int64) string {
	return formatTime(ms, time.UTC, "2006-01-02")
}

func formatTime(ms int64, loc *time.Location, layout string) string {
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(ms).In(loc).Format(layout)
}

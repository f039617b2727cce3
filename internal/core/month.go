package core

import (
	"fmt"
	"strconv"
	"time"
)

// MonthKey identifies a budget period as year*100+month, e.g. 202501.
type MonthKey int

// NewMonthKey builds a key, rejecting months outside 1-12.
func NewMonthKey(year, month int) (MonthKey, error) {
	k := MonthKey(year*100 + month)
	if err := k.Validate(); err != nil {
		return 0, err
	}
	return k, nil
}

// MonthKeyOf returns the key of the month containing t, in t's location.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey(t.Year()*100 + int(t.Month()))
}

// ParseMonthKey accepts "202501" or "2025-01".
func ParseMonthKey(s string) (MonthKey, error) {
	if len(s) == 7 && s[4] == '-' {
		s = s[:4] + s[5:]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrInvalidMonth
	}
	k := MonthKey(n)
	if err := k.Validate(); err != nil {
		return 0, err
	}
	return k, nil
}

func (k MonthKey) Year() int  { return int(k) / 100 }
func (k MonthKey) Month() int { return int(k) % 100 }

func (k MonthKey) Validate() error {
	if k.Year() < 1 || k.Year() > 9999 {
		return ErrInvalidMonth
	}
	if m := k.Month(); m < 1 || m > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Prev returns the month immediately preceding k.
func (k MonthKey) Prev() MonthKey {
	if k.Month() == 1 {
		return MonthKey((k.Year()-1)*100 + 12)
	}
	return k - 1
}

// Next returns the month immediately following k.
func (k MonthKey) Next() MonthKey {
	if k.Month() == 12 {
		return MonthKey((k.Year()+1)*100 + 1)
	}
	return k + 1
}

// Bounds returns the first and last millisecond of the month in loc, both inclusive.
// A nil loc means UTC.
func (k MonthKey) Bounds(loc *time.Location) (start, end int64) {
	if loc == nil {
		loc = time.UTC
	}
	first := time.Date(k.Year(), time.Month(k.Month()), 1, 0, 0, 0, 0, loc)
	next := first.AddDate(0, 1, 0)
	return first.UnixMilli(), next.UnixMilli() - 1
}

// Contains reports whether the timestamp falls within the month in loc.
func (k MonthKey) Contains(ms int64, loc *time.Location) bool {
	start, end := k.Bounds(loc)
	return ms >= start && ms <= end
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year(), k.Month())
}

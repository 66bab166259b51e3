package core

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// PeriodKey identifies a month ("MM-YYYY") or a year ("YYYY"). Keys compare by
// value: first by year, then by month. The zero value is the TOTAL pseudo-period.
type PeriodKey struct {
	Year  int
	Month int // 1-12, or 0 for an annual key
}

// TotalPeriod is the pseudo-period holding a row's horizontal total.
var TotalPeriod = PeriodKey{}

const totalLabel = "TOTAL"

// Month returns the monthly key for year and month.
func Month(year, month int) PeriodKey {
	return PeriodKey{Year: year, Month: month}
}

// Year returns the annual key for year.
func Year(year int) PeriodKey {
	return PeriodKey{Year: year}
}

// ParsePeriodKey parses "MM-YYYY", "YYYY" or "TOTAL".
func ParsePeriodKey(s string) (PeriodKey, error) {
	s = strings.TrimSpace(s)
	if s == totalLabel {
		return TotalPeriod, nil
	}
	if mm, yyyy, ok := strings.Cut(s, "-"); ok {
		m, err := strconv.Atoi(mm)
		if err != nil || m < 1 || m > 12 || len(mm) != 2 {
			return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
		}
		y, err := strconv.Atoi(yyyy)
		if err != nil || len(yyyy) != 4 {
			return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
		}
		return Month(y, m), nil
	}
	y, err := strconv.Atoi(s)
	if err != nil || len(s) != 4 {
		return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return Year(y), nil
}

func (p PeriodKey) String() string {
	switch {
	case p.IsTotal():
		return totalLabel
	case p.IsAnnual():
		return fmt.Sprintf("%04d", p.Year)
	default:
		return fmt.Sprintf("%02d-%04d", p.Month, p.Year)
	}
}

func (p PeriodKey) IsTotal() bool  { return p == TotalPeriod }
func (p PeriodKey) IsAnnual() bool { return p.Month == 0 && p.Year != 0 }

// Annual returns the year key containing p.
func (p PeriodKey) Annual() PeriodKey {
	return Year(p.Year)
}

// Compare returns -1, 0 or +1. An annual key sorts before the months of its year.
func (p PeriodKey) Compare(o PeriodKey) int {
	switch {
	case p.Year < o.Year:
		return -1
	case p.Year > o.Year:
		return 1
	case p.Month < o.Month:
		return -1
	case p.Month > o.Month:
		return 1
	default:
		return 0
	}
}

func (p PeriodKey) Before(o PeriodKey) bool { return p.Compare(o) < 0 }
func (p PeriodKey) After(o PeriodKey) bool  { return p.Compare(o) > 0 }

// Next returns the following period at the same granularity.
func (p PeriodKey) Next() PeriodKey {
	if p.IsAnnual() {
		return Year(p.Year + 1)
	}
	if p.Month == 12 {
		return Month(p.Year+1, 1)
	}
	return Month(p.Year, p.Month+1)
}

// Contains reports whether the monthly key m falls inside p. A monthly p only
// contains itself.
func (p PeriodKey) Contains(m PeriodKey) bool {
	if p.IsAnnual() {
		return m.Year == p.Year
	}
	return p == m
}

func (p PeriodKey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PeriodKey) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriodKey(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// SortPeriodKeys sorts keys chronologically in place.
func SortPeriodKeys(keys []PeriodKey) {
	slices.SortFunc(keys, PeriodKey.Compare)
}

// MonthsOf returns the twelve monthly keys of year.
func MonthsOf(year int) []PeriodKey {
	out := make([]PeriodKey, 0, 12)
	for m := 1; m <= 12; m++ {
		out = append(out, Month(year, m))
	}
	return out
}

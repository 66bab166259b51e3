package engine

// This file implements the Strategy Pattern for rolling monthly rows up to a
// year. Flow rows are summed; snapshot rows keep a single month's value.

import (
	"fmt"

	"github.com/shopspring/decimal"

	"caixa/internal/core"
)

// Rollup is the strategy interface for collapsing a row's monthly values into
// an annual value.
type Rollup interface {
	// Roll returns the value for year, and false when no month of year
	// contributes. now and realized let snapshot strategies ignore months
	// that have not happened yet.
	Roll(cells map[core.PeriodKey]decimal.Decimal, year int, now core.PeriodKey, realized bool) (decimal.Decimal, bool)
}

// SumRollup implements Rollup for flow rows.
type SumRollup struct{}

// Roll sums every month of year.
func (SumRollup) Roll(cells map[core.PeriodKey]decimal.Decimal, year int, _ core.PeriodKey, _ bool) (decimal.Decimal, bool) {
	sum, ok := decimal.Zero, false
	annual := core.Year(year)
	for p, v := range cells {
		if !p.IsAnnual() && !p.IsTotal() && annual.Contains(p) {
			sum = sum.Add(v)
			ok = true
		}
	}
	return sum, ok
}

// LastValueRollup implements Rollup for balance rows.
type LastValueRollup struct{}

// Roll returns the latest populated month of year. In realized mode months
// after now are ignored.
func (LastValueRollup) Roll(cells map[core.PeriodKey]decimal.Decimal, year int, now core.PeriodKey, realized bool) (decimal.Decimal, bool) {
	return pickMonth(cells, year, now, realized, func(candidate, best core.PeriodKey) bool {
		return candidate.After(best)
	})
}

// FirstValueRollup implements Rollup for opening-balance rows.
type FirstValueRollup struct{}

// Roll returns the earliest populated month of year.
func (FirstValueRollup) Roll(cells map[core.PeriodKey]decimal.Decimal, year int, now core.PeriodKey, realized bool) (decimal.Decimal, bool) {
	return pickMonth(cells, year, now, realized, func(candidate, best core.PeriodKey) bool {
		return candidate.Before(best)
	})
}

func pickMonth(cells map[core.PeriodKey]decimal.Decimal, year int, now core.PeriodKey, realized bool, better func(candidate, best core.PeriodKey) bool) (decimal.Decimal, bool) {
	var (
		best  core.PeriodKey
		value decimal.Decimal
		found bool
	)
	annual := core.Year(year)
	for p, v := range cells {
		if p.IsAnnual() || p.IsTotal() || !annual.Contains(p) {
			continue
		}
		if realized && !now.IsTotal() && p.After(now) {
			continue
		}
		if !found || better(p, best) {
			best, value, found = p, v, true
		}
	}
	return value, found
}

// rollupStrategies maps row labels to their strategy. Rows not listed are
// flow rows and use SumRollup.
var rollupStrategies = map[string]Rollup{
	core.ClassInitialCash:   FirstValueRollup{},
	core.ClassFinalCash:     LastValueRollup{},
	core.WCCash:             LastValueRollup{},
	core.WCReceivables:      LastValueRollup{},
	core.WCPayables:         LastValueRollup{},
	core.WCReceivablesShort: LastValueRollup{},
	core.WCReceivablesLong:  LastValueRollup{},
	core.WCPayablesShort:    LastValueRollup{},
	core.WCPayablesLong:     LastValueRollup{},
	core.WCShortTerm:        LastValueRollup{},
	core.WCLongTerm:         LastValueRollup{},
	core.WCNetLiquidCapital: LastValueRollup{},
}

// GetRollup returns the strategy for a row label.
func GetRollup(row string) Rollup {
	if r, ok := rollupStrategies[row]; ok {
		return r
	}
	return SumRollup{}
}

// RegisterRollup assigns a strategy to a row label, e.g. an inventory row fed
// from an external source that must be treated as a snapshot.
func RegisterRollup(row string, r Rollup) error {
	if r == nil {
		return fmt.Errorf("nil rollup for row %q", row)
	}
	rollupStrategies[row] = r
	return nil
}

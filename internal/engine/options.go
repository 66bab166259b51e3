// Package engine turns title records into DRE, drill-down and
// working-capital structures.
//
// Every function here is a deterministic fold over in-memory input. Nothing
// reads the clock, touches I/O or returns an error: malformed input is
// skipped with a diagnostic and the result is always structurally valid.
package engine

import (
	"io"
	"log/slog"

	"github.com/shopspring/decimal"

	"caixa/internal/core"
)

// DefaultTransferPrefix marks intercompany transfer categories.
const DefaultTransferPrefix = "TRF"

// Options carries the injected parameters the engine needs.
type Options struct {
	// Now is the current month. Periods at or after it are excluded from
	// the realized working-capital view.
	Now core.PeriodKey

	// OpenThreshold is the residual above which a title gets an open-balance
	// entry. The comparison is strictly greater, not at-or-above: a residual
	// of exactly one cent at the default threshold is rounding left by
	// partial settlements and does not open the title.
	OpenThreshold decimal.Decimal

	// TransferPrefix identifies category codes routed to the transfer
	// accumulators.
	TransferPrefix string

	// Detailable lists the classes that get a drill-down tree.
	Detailable map[string]bool

	// DepartmentNames resolves department codes to display names.
	DepartmentNames core.Lookup[string]

	Logger *slog.Logger
}

// DefaultDetailable are the classes with department drill-down.
func DefaultDetailable() map[string]bool {
	return map[string]bool{
		core.ClassGrossRevenue:    true,
		core.ClassDeductions:      true,
		core.ClassCosts:           true,
		core.ClassExpenses:        true,
		core.ClassTaxes:           true,
		core.ClassFinancialResult: true,
		core.ClassInvestments:     true,
		core.ClassOther:           true,
	}
}

// DefaultOptions returns options for the given current month.
func DefaultOptions(now core.PeriodKey) Options {
	return Options{
		Now:            now,
		OpenThreshold:  core.Cent,
		TransferPrefix: DefaultTransferPrefix,
		Detailable:     DefaultDetailable(),
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

func (o Options) departmentName(code string) string {
	if code == OtherDepartment {
		return OtherDepartmentName
	}
	if o.DepartmentNames != nil {
		if name, ok := o.DepartmentNames.Get(code); ok && name != "" {
			return name
		}
	}
	return code
}

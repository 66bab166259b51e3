package engine

import (
	"slices"

	"caixa/internal/core"
)

// AggregateAnnual re-buckets a monthly report into years. Each row is rolled
// up with its registered strategy (see GetRollup). Drill-down keys move from
// "class|MM-YYYY" to "class|YYYY" with their trees deep-merged. The input is
// not modified.
func AggregateAnnual(r core.Report, now core.PeriodKey) core.Report {
	realized := r.Projection == core.Realized
	out := core.NewReport(r.Projection)
	out.AccountID = r.AccountID
	out.ProjectID = r.ProjectID
	out.Granularity = core.Annual
	out.DRE = rollMatrix(r.DRE, now, realized)
	out.Flows = rollMatrix(r.Flows, now, realized)
	out.WorkingCapital = rollMatrix(r.WorkingCapital, now, realized)
	out.Transactions = slices.Clone(r.Transactions)
	if out.Transactions == nil {
		out.Transactions = []core.Transaction{}
	}

	for key, node := range r.Detail {
		if key.Period.IsTotal() {
			continue
		}
		annual := core.DetailKey{Class: key.Class, Period: key.Period.Annual()}
		out.Detail[annual] = core.MergeDetailNodes(out.Detail[annual], node)
	}

	out.Periods = out.DRE.Periods()
	return out
}

func rollMatrix(m core.Matrix, now core.PeriodKey, realized bool) core.Matrix {
	out := core.NewMatrix()
	for row, cells := range m {
		strategy := GetRollup(row)
		for _, year := range yearsOf(cells) {
			if v, ok := strategy.Roll(cells, year, now, realized); ok {
				out.Set(row, core.Year(year), v)
			}
		}
	}
	return out
}

func yearsOf[V any](cells map[core.PeriodKey]V) []int {
	years := make([]int, 0, 2)
	for p := range cells {
		if !p.IsTotal() && !p.IsAnnual() {
			years = append(years, p.Year)
		}
	}
	slices.Sort(years)
	return slices.Compact(years)
}

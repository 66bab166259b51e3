package engine

import (
	"slices"

	"caixa/internal/core"
)

// Merge consolidates per-account, per-project reports into one. Reports whose
// project is not in allowedProjects are dropped; an empty allowedProjects
// keeps every project. Matrices, flows and drill-down trees are summed key by
// key and transactions are concatenated in date order. Working-capital
// matrices of realized reports are consolidated with each report's cash
// carried forward over periods it did not touch; a report's cash before its
// first period counts as zero.
//
// The inputs are never modified.
func Merge(reports []core.Report, allowedProjects []string) core.Report {
	projection := core.Realized
	if len(reports) > 0 {
		projection = reports[0].Projection
	}
	out := core.NewReport(projection)

	allowed := projectSet(allowedProjects)

	var capital []AccountCapital
	for _, r := range reports {
		if !allowed(r.ProjectID) {
			continue
		}
		out.DRE.AddAll(r.DRE)
		out.Flows.AddAll(r.Flows)
		out.Detail = core.MergeDetail(out.Detail, r.Detail)
		out.Transactions = append(out.Transactions, r.Transactions...)
		if r.Projection == core.Realized {
			capital = append(capital, AccountCapital{Matrix: r.WorkingCapital})
		}
		if r.Granularity == core.Annual {
			out.Granularity = core.Annual
		}
	}

	if len(capital) > 0 {
		out.WorkingCapital = ConsolidateWorkingCapital(capital)
	}
	SortTransactions(out.Transactions)
	out.Periods = out.DRE.Periods()
	return out
}

// SortTransactions orders transactions chronologically, keeping the input
// order for equal dates.
func SortTransactions(txs []core.Transaction) {
	slices.SortStableFunc(txs, func(a, b core.Transaction) int {
		return a.Date.Compare(b.Date.Time)
	})
}

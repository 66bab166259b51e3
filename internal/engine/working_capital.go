package engine

import (
	"github.com/shopspring/decimal"

	"caixa/internal/core"
)

// ProjectWorkingCapital walks every item month by month from issue to
// settlement (or due date when unpaid), ageing it as short term in its final
// month and long term before that, then runs the cash line from opening.
// Only periods strictly before opts.Now are recorded.
//
// flows are the DRE builder's inflow/outflow totals for the same account; when
// present for a period they take precedence over the flows derived from items.
func ProjectWorkingCapital(items []core.GiroItem, accountID string, opening decimal.Decimal, flows core.Matrix, opts Options) core.Matrix {
	wc := core.NewMatrix()
	realized := make(map[core.PeriodKey]decimal.Decimal)
	touched := make(map[core.PeriodKey]struct{})

	for _, it := range items {
		signed := it.Nature.Signed(it.Amount)

		if it.PaymentDate != nil && !it.PaymentDate.IsZero() && it.PayingAccountID == accountID {
			if p := it.PaymentDate.Period(); p.Before(opts.Now) {
				realized[p] = realized[p].Add(signed)
				touched[p] = struct{}{}
			}
		}

		if it.IssueDate.IsZero() || it.DueDate.IsZero() || it.IssuingAccountID != accountID {
			continue
		}
		end := it.DueDate.Period()
		if it.PaymentDate != nil && !it.PaymentDate.IsZero() {
			end = it.PaymentDate.Period()
		}
		total, short, long := core.WCReceivables, core.WCReceivablesShort, core.WCReceivablesLong
		if it.Nature == core.Payable {
			total, short, long = core.WCPayables, core.WCPayablesShort, core.WCPayablesLong
		}
		for cursor := it.IssueDate.Period(); !cursor.After(end); cursor = cursor.Next() {
			if !cursor.Before(opts.Now) {
				break
			}
			wc.Add(total, cursor, signed)
			if cursor == end {
				wc.Add(short, cursor, signed)
			} else {
				wc.Add(long, cursor, signed)
			}
			touched[cursor] = struct{}{}
		}
	}

	for _, p := range flows.Periods() {
		touched[p] = struct{}{}
	}
	periods := make([]core.PeriodKey, 0, len(touched))
	for p := range touched {
		periods = append(periods, p)
	}
	core.SortPeriodKeys(periods)

	cash := opening
	for _, p := range periods {
		if !p.Before(opts.Now) {
			break
		}
		if net, ok := netFlow(flows, p); ok {
			cash = cash.Add(net)
		} else {
			cash = cash.Add(realized[p])
		}
		short := wc.Get(core.WCReceivablesShort, p).Add(wc.Get(core.WCPayablesShort, p))
		long := wc.Get(core.WCReceivablesLong, p).Add(wc.Get(core.WCPayablesLong, p))
		wc.Set(core.WCCash, p, cash)
		wc.Set(core.WCShortTerm, p, short)
		wc.Set(core.WCLongTerm, p, long)
		wc.Set(core.WCNetLiquidCapital, p, short.Add(long).Add(cash))
	}
	return wc
}

// netFlow sums the four inflow/outflow rows at p. ok is false when none of
// them has a value there.
func netFlow(flows core.Matrix, p core.PeriodKey) (decimal.Decimal, bool) {
	net, ok := decimal.Zero, false
	for _, row := range core.FlowRows {
		if flows.Has(row, p) {
			net = net.Add(flows.Get(row, p))
			ok = true
		}
	}
	return net, ok
}

// AccountCapital is one account's working-capital matrix together with the
// cash it held before its first recorded period.
type AccountCapital struct {
	Matrix  core.Matrix
	Opening decimal.Decimal
}

// ageingRows are summed as they are; a missing cell means nothing was open.
var ageingRows = []string{
	core.WCReceivables, core.WCReceivablesShort, core.WCReceivablesLong,
	core.WCPayables, core.WCPayablesShort, core.WCPayablesLong,
}

// AccountWorkingCapital builds the working-capital matrix of accountID once
// across every project grouping in allowedProjects (empty means all), so the
// cash line is a single running balance from opening. reports are the
// account's per-project reports; their flows drive the cash line.
func AccountWorkingCapital(ex Extraction, accountID string, opening decimal.Decimal, reports []core.Report, allowedProjects []string, opts Options) core.Matrix {
	allowed := projectSet(allowedProjects)

	items := make([]core.GiroItem, 0, len(ex.GiroItems))
	for _, it := range ex.GiroItems {
		if allowed(it.ProjectID) {
			items = append(items, it)
		}
	}
	flows := core.NewMatrix()
	for _, r := range reports {
		if r.AccountID == accountID && allowed(r.ProjectID) {
			flows.AddAll(r.Flows)
		}
	}
	return ProjectWorkingCapital(items, accountID, opening, flows, opts)
}

// ConsolidateWorkingCapital sums working-capital matrices over the union of
// their periods. Cash is a balance, so a part with no value at a period
// contributes its last cash before it, or its opening when it has none yet.
// Short term, long term and net liquid capital are recomputed from the sums.
func ConsolidateWorkingCapital(parts []AccountCapital) core.Matrix {
	out := core.NewMatrix()
	seen := make(map[core.PeriodKey]struct{})
	for _, part := range parts {
		for _, p := range part.Matrix.Periods() {
			seen[p] = struct{}{}
		}
	}
	periods := make([]core.PeriodKey, 0, len(seen))
	for p := range seen {
		periods = append(periods, p)
	}
	core.SortPeriodKeys(periods)

	for _, part := range parts {
		cash := part.Opening
		for _, p := range periods {
			if part.Matrix.Has(core.WCCash, p) {
				cash = part.Matrix.Get(core.WCCash, p)
			}
			out.Add(core.WCCash, p, cash)
			for _, row := range ageingRows {
				if part.Matrix.Has(row, p) {
					out.Add(row, p, part.Matrix.Get(row, p))
				}
			}
		}
	}

	for _, p := range periods {
		short := out.Get(core.WCReceivablesShort, p).Add(out.Get(core.WCPayablesShort, p))
		long := out.Get(core.WCReceivablesLong, p).Add(out.Get(core.WCPayablesLong, p))
		out.Set(core.WCShortTerm, p, short)
		out.Set(core.WCLongTerm, p, long)
		out.Set(core.WCNetLiquidCapital, p, short.Add(long).Add(out.Get(core.WCCash, p)))
	}
	return out
}

// projectSet returns a membership test for allowedProjects; empty allows all.
func projectSet(allowedProjects []string) func(string) bool {
	if len(allowedProjects) == 0 {
		return func(string) bool { return true }
	}
	set := make(map[string]bool, len(allowedProjects))
	for _, p := range allowedProjects {
		set[p] = true
	}
	return func(id string) bool { return set[id] }
}

package engine

import (
	"slices"

	"github.com/shopspring/decimal"

	"caixa/internal/core"
	"caixa/internal/log"
)

// AccountTitles is the fetch result for one account.
type AccountTitles struct {
	AccountID string
	Titles    []core.Title
}

// BuildReport runs the whole chain for a selection: extraction and per-account
// reports, merge, optional annual rollup and totals.
func BuildReport(batches []AccountTitles, ref core.Reference, f core.Filter, opts Options) core.Report {
	if opts.DepartmentNames == nil {
		opts.DepartmentNames = ref.Departments
	}
	logger := opts.logger().With(log.FieldComponent, log.ComponentEngine, log.FieldOperation, log.OpBuild)

	projection := f.Projection
	if projection == "" {
		projection = core.Realized
	}

	var (
		reports []core.Report
		capital []AccountCapital
		opening = decimal.Zero
	)
	includeOpening := len(f.ProjectIDs) == 0 || slices.Contains(f.ProjectIDs, "")
	for _, b := range batches {
		info, ok := ref.Accounts.Get(b.AccountID)
		if !ok {
			logger.Warn("Account has no metadata, assuming zero opening balance", log.FieldAccountID, b.AccountID)
		}
		accountOpening := decimal.Zero
		if includeOpening {
			accountOpening = info.OpeningBalance
			opening = opening.Add(accountOpening)
		}
		ex := ExtractFor(b.Titles, b.AccountID, opts)
		accountReports := BuildAccountReports(ex, b.AccountID, projection, info.OpeningBalance, ref.Classes, opts)
		reports = append(reports, accountReports...)
		if projection == core.Realized {
			capital = append(capital, AccountCapital{
				Matrix:  AccountWorkingCapital(ex, b.AccountID, accountOpening, accountReports, f.ProjectIDs, opts),
				Opening: accountOpening,
			})
		}
	}

	report := Merge(reports, f.ProjectIDs)
	report.Projection = projection
	if projection == core.Realized {
		// The per-project matrices Merge consolidates each start from their own
		// balance; the account-level ones carry the opening once.
		report.WorkingCapital = ConsolidateWorkingCapital(capital)
	}
	if f.Granularity == core.Annual {
		report = AggregateAnnual(report, opts.Now)
	}

	visible := f.Visible()
	report.First, report.Last = Finalize(report.DRE, visible, opening)
	report.Periods = visible
	if len(batches) == 1 {
		report.AccountID = batches[0].AccountID
	}

	logger.Info("Report built",
		log.FieldAccounts, len(batches),
		log.FieldGranularity, string(report.Granularity),
		log.FieldProjection, string(projection),
		"transactions", len(report.Transactions))
	return report
}

package engine

import (
	"slices"

	"github.com/shopspring/decimal"

	"caixa/internal/core"
)

// AccountInput selects one account and project grouping out of an extraction.
type AccountInput struct {
	AccountID  string
	ProjectID  string
	Projection core.Projection
	Opening    decimal.Decimal
}

// BuildAccountReport builds the monthly report of one account restricted to
// one project grouping. Realized reports use settled entries only and carry a
// working-capital matrix; projected reports also count open balances at their
// due date and have no working-capital view.
func BuildAccountReport(ex Extraction, in AccountInput, classes core.Lookup[core.Classification], opts Options) core.Report {
	entries := filterEntries(ex.Entries, in.ProjectID)
	if in.Projection == core.Projected {
		entries = append(entries, filterEntries(ex.OpenEntries, in.ProjectID)...)
	}

	dre := BuildDRE(entries, in.AccountID, classes, opts)

	report := core.NewReport(in.Projection)
	report.AccountID = in.AccountID
	report.ProjectID = in.ProjectID
	report.DRE = dre.Matrix
	report.Detail = dre.Detail
	report.Flows = dre.Flows
	report.Transactions = dre.Transactions

	if in.Projection == core.Realized {
		items := make([]core.GiroItem, 0, len(ex.GiroItems))
		for _, it := range ex.GiroItems {
			if it.ProjectID == in.ProjectID {
				items = append(items, it)
			}
		}
		report.WorkingCapital = ProjectWorkingCapital(items, in.AccountID, in.Opening, dre.Flows, opts)
	}
	report.Periods = report.DRE.Periods()
	return report
}

// ProjectsOf returns the sorted project ids seen in the extraction, always
// including the unassigned project "".
func ProjectsOf(ex Extraction) []string {
	ids := []string{""}
	for _, e := range ex.Entries {
		ids = append(ids, e.ProjectID)
	}
	for _, e := range ex.OpenEntries {
		ids = append(ids, e.ProjectID)
	}
	for _, it := range ex.GiroItems {
		ids = append(ids, it.ProjectID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// BuildAccountReports builds one report per project grouping of accountID.
// The opening balance is carried by the unassigned grouping only, so merging
// all groupings counts it once. Each grouping's working capital covers that
// grouping alone; AccountWorkingCapital gives the account-wide view.
func BuildAccountReports(ex Extraction, accountID string, projection core.Projection, opening decimal.Decimal, classes core.Lookup[core.Classification], opts Options) []core.Report {
	projects := ProjectsOf(ex)
	out := make([]core.Report, 0, len(projects))
	for _, project := range projects {
		in := AccountInput{AccountID: accountID, ProjectID: project, Projection: projection}
		if project == "" {
			in.Opening = opening
		}
		out = append(out, BuildAccountReport(ex, in, classes, opts))
	}
	return out
}

func filterEntries(entries []core.LedgerEntry, projectID string) []core.LedgerEntry {
	out := make([]core.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out
}

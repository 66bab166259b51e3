package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caixa/internal/core"
)

func pipelineFixture() ([]AccountTitles, core.Reference) {
	title := core.Title{
		CategoryCode: "1.01",
		Nature:       core.Receivable,
		GrossAmount:  d("500"),
		IssueDate:    date(2, 1, 2024),
		DueDate:      date(10, 1, 2024),
		ClientName:   "ACME",
		Departments:  []core.DepartmentShare{{DepartmentCode: "D1", Percentage: pct("100")}},
		Settlements:  []core.Settlement{settlement(10, 1, 2024, "A1", "500")},
	}
	ref := core.Reference{
		Classes:     testClasses,
		Departments: core.MapLookup[string]{"D1": "Comercial"},
		Accounts:    core.MapLookup[core.AccountInfo]{"A1": {Name: "Banco", OpeningBalance: d("1000")}},
	}
	return []AccountTitles{{AccountID: "A1", Titles: []core.Title{title}}}, ref
}

func TestBuildReport_Monthly(t *testing.T) {
	batches, ref := pipelineFixture()
	f := core.Filter{Granularity: core.Monthly, Year: 2024, Projection: core.Realized}

	r := BuildReport(batches, ref, f, DefaultOptions(core.Month(2025, 1)))

	jan := core.Month(2024, 1)
	assert.Equal(t, "A1", r.AccountID)
	assert.Equal(t, jan, r.First)
	assert.Equal(t, jan, r.Last)
	assert.Len(t, r.Periods, 12)
	assertDecimal(t, "500", r.DRE.Get(core.ClassGrossRevenue, jan))
	assertDecimal(t, "1000", r.DRE.Get(core.ClassInitialCash, jan))
	assertDecimal(t, "1500", r.DRE.Get(core.ClassFinalCash, jan))
	assertDecimal(t, "1500", r.DRE.Get(core.ClassFinalCash, core.Month(2024, 12)))
	assertDecimal(t, "1000", r.DRE.Get(core.ClassInitialCash, core.TotalPeriod))
	assertDecimal(t, "1500", r.DRE.Get(core.ClassFinalCash, core.TotalPeriod))
	assertDecimal(t, "1500", r.WorkingCapital.Get(core.WCCash, jan))

	node := r.Detail[core.DetailKey{Class: core.ClassGrossRevenue, Period: jan}]
	require.NotNil(t, node)
	assertDecimal(t, "500", node.Children["Comercial"].Children["1.01"].Children["ACME"].Total)
	require.Len(t, r.Transactions, 1)
}

func TestBuildReport_Annual(t *testing.T) {
	batches, ref := pipelineFixture()
	f := core.Filter{Granularity: core.Annual, Year: 2024, Projection: core.Realized}

	r := BuildReport(batches, ref, f, DefaultOptions(core.Month(2025, 1)))

	y := core.Year(2024)
	assert.Equal(t, core.Annual, r.Granularity)
	assert.Equal(t, []core.PeriodKey{y}, r.Periods)
	assertDecimal(t, "500", r.DRE.Get(core.ClassGrossRevenue, y))
	assertDecimal(t, "1000", r.DRE.Get(core.ClassInitialCash, y))
	assertDecimal(t, "1500", r.DRE.Get(core.ClassFinalCash, y))
	assertDecimal(t, "1500", r.DRE.Get(core.ClassFinalCash, core.TotalPeriod))
	assert.Contains(t, r.Detail, core.DetailKey{Class: core.ClassGrossRevenue, Period: y})
}

func TestBuildReport_ProjectFilterExcludesOpening(t *testing.T) {
	batches, ref := pipelineFixture()
	batches[0].Titles[0].ProjectID = "P1"
	f := core.Filter{Granularity: core.Monthly, Year: 2024, Projection: core.Realized, ProjectIDs: []string{"P1"}}

	r := BuildReport(batches, ref, f, DefaultOptions(core.Month(2025, 1)))

	assertDecimal(t, "0", r.DRE.Get(core.ClassInitialCash, core.Month(2024, 1)))
	assertDecimal(t, "500", r.DRE.Get(core.ClassFinalCash, core.Month(2024, 1)))
}

func TestBuildReport_ProjectedCountsOpenBalance(t *testing.T) {
	batches, ref := pipelineFixture()
	batches[0].Titles[0].Settlements = []core.Settlement{settlement(10, 1, 2024, "A1", "200")}
	f := core.Filter{Granularity: core.Monthly, Year: 2024, Projection: core.Projected}

	r := BuildReport(batches, ref, f, DefaultOptions(core.Month(2025, 1)))

	assert.Equal(t, core.Projected, r.Projection)
	assertDecimal(t, "500", r.DRE.Get(core.ClassGrossRevenue, core.Month(2024, 1)))
	assert.Empty(t, r.WorkingCapital)

	f.Projection = core.Realized
	r = BuildReport(batches, ref, f, DefaultOptions(core.Month(2025, 1)))
	assertDecimal(t, "200", r.DRE.Get(core.ClassGrossRevenue, core.Month(2024, 1)))
}

func TestBuildReport_NoBatches(t *testing.T) {
	f := core.Filter{Granularity: core.Monthly, Year: 2024}
	r := BuildReport(nil, core.Reference{}, f, DefaultOptions(core.Month(2025, 1)))
	assert.Len(t, r.Periods, 12)
	assertDecimal(t, "0", r.DRE.Get(core.ClassFinalCash, core.TotalPeriod))
}

func TestBuildReport_ProjectTitleKeepsOpeningInWorkingCapital(t *testing.T) {
	batches, ref := pipelineFixture()
	batches[0].Titles[0].ProjectID = "P1"
	f := core.Filter{Granularity: core.Monthly, Year: 2024, Projection: core.Realized}

	r := BuildReport(batches, ref, f, DefaultOptions(core.Month(2025, 1)))

	jan := core.Month(2024, 1)
	assertDecimal(t, "1500", r.DRE.Get(core.ClassFinalCash, jan))
	assertDecimal(t, "1500", r.WorkingCapital.Get(core.WCCash, jan))
	assertDecimal(t, "2000", r.WorkingCapital.Get(core.WCNetLiquidCapital, jan))
}

func TestBuildReport_WorkingCapitalCarriesCashAcrossProjects(t *testing.T) {
	batches, ref := pipelineFixture()
	later := batches[0].Titles[0]
	later.ProjectID = "P1"
	later.GrossAmount = d("300")
	later.IssueDate = date(1, 3, 2024)
	later.DueDate = date(20, 3, 2024)
	later.Settlements = []core.Settlement{settlement(20, 3, 2024, "A1", "300")}
	batches[0].Titles = append(batches[0].Titles, later)
	f := core.Filter{Granularity: core.Monthly, Year: 2024, Projection: core.Realized}

	r := BuildReport(batches, ref, f, DefaultOptions(core.Month(2025, 1)))

	mar := core.Month(2024, 3)
	assertDecimal(t, "1500", r.WorkingCapital.Get(core.WCCash, core.Month(2024, 1)))
	assertDecimal(t, "1800", r.WorkingCapital.Get(core.WCCash, mar))
	assertDecimal(t, "1800", r.DRE.Get(core.ClassFinalCash, mar))
}

func TestBuildReport_WorkingCapitalAcrossAccounts(t *testing.T) {
	batches, ref := pipelineFixture()
	ref.Accounts = core.MapLookup[core.AccountInfo]{
		"A1": {Name: "Banco", OpeningBalance: d("1000")},
		"A2": {Name: "Caixa", OpeningBalance: d("200")},
	}
	other := batches[0].Titles[0]
	other.GrossAmount = d("300")
	other.IssueDate = date(1, 3, 2024)
	other.DueDate = date(20, 3, 2024)
	other.Settlements = []core.Settlement{settlement(20, 3, 2024, "A2", "300")}
	batches = append(batches, AccountTitles{AccountID: "A2", Titles: []core.Title{other}})
	f := core.Filter{Granularity: core.Monthly, Year: 2024, Projection: core.Realized}

	r := BuildReport(batches, ref, f, DefaultOptions(core.Month(2025, 1)))

	mar := core.Month(2024, 3)
	assertDecimal(t, "1700", r.WorkingCapital.Get(core.WCCash, core.Month(2024, 1)))
	assertDecimal(t, "2000", r.WorkingCapital.Get(core.WCCash, mar))
	assertDecimal(t, "2000", r.DRE.Get(core.ClassFinalCash, mar))
	assert.False(t, r.WorkingCapital.Has(core.WCCash, core.Month(2024, 2)))
}

func TestBuildReport_UnpaidTitleWithoutAccount(t *testing.T) {
	batches, ref := pipelineFixture()
	batches[0].Titles[0].IssueDate = date(1, 1, 2024)
	batches[0].Titles[0].DueDate = date(1, 3, 2024)
	batches[0].Titles[0].Settlements = []core.Settlement{}
	mar := core.Month(2024, 3)

	f := core.Filter{Granularity: core.Monthly, Year: 2024, Projection: core.Projected}
	r := BuildReport(batches, ref, f, DefaultOptions(core.Month(2025, 1)))
	assertDecimal(t, "500", r.DRE.Get(core.ClassGrossRevenue, mar))

	f.Projection = core.Realized
	r = BuildReport(batches, ref, f, DefaultOptions(core.Month(2025, 1)))
	assertDecimal(t, "500", r.WorkingCapital.Get(core.WCReceivablesShort, mar))
	assertDecimal(t, "500", r.WorkingCapital.Get(core.WCReceivablesLong, core.Month(2024, 2)))
	assertDecimal(t, "1000", r.WorkingCapital.Get(core.WCCash, mar))
}

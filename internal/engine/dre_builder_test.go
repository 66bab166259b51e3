package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caixa/internal/core"
)

func entry(nature core.Nature, category string, value string, month int) core.LedgerEntry {
	return core.LedgerEntry{
		Nature:           nature,
		Date:             date(15, month, 2024),
		AccountID:        "A1",
		Amount:           d(value),
		CategoryCode:     category,
		CounterpartyName: "ACME",
		Allocations:      Allocate(d(value), []core.DepartmentShare{{DepartmentCode: "D1", Percentage: pct("70")}, {DepartmentCode: "D2", Percentage: pct("30")}}),
	}
}

func TestBuildDRE_SignsAndClasses(t *testing.T) {
	entries := []core.LedgerEntry{
		entry(core.Receivable, "1.01", "500", 1),
		entry(core.Receivable, "1.01", "250", 1),
		entry(core.Payable, "2.01", "100", 1),
		entry(core.Payable, "9.99", "40", 2), // unmapped
	}
	other := entry(core.Receivable, "1.01", "999", 1)
	other.AccountID = "A2"
	entries = append(entries, other)

	got := BuildDRE(entries, "A1", testClasses, DefaultOptions(core.Month(2025, 1)))

	assertDecimal(t, "750", got.Matrix.Get(core.ClassGrossRevenue, core.Month(2024, 1)))
	assertDecimal(t, "-100", got.Matrix.Get(core.ClassCosts, core.Month(2024, 1)))
	assertDecimal(t, "-40", got.Matrix.Get(core.ClassOther, core.Month(2024, 2)))
	assertDecimal(t, "750", got.Flows.Get(core.FlowInflow, core.Month(2024, 1)))
	assertDecimal(t, "-100", got.Flows.Get(core.FlowOutflow, core.Month(2024, 1)))
	assert.Len(t, got.Transactions, 4)
}

func TestBuildDRE_TransferAccumulators(t *testing.T) {
	entries := []core.LedgerEntry{
		entry(core.Receivable, "TRF.01", "300", 3),
		entry(core.Payable, "TRF.02", "120", 3),
	}
	got := BuildDRE(entries, "A1", testClasses, DefaultOptions(core.Month(2025, 1)))

	p := core.Month(2024, 3)
	assertDecimal(t, "300", got.Flows.Get(core.FlowTransferIn, p))
	assertDecimal(t, "-120", got.Flows.Get(core.FlowTransferOut, p))
	assert.False(t, got.Flows.Has(core.FlowInflow, p))
	assertDecimal(t, "300", got.Matrix.Get(core.ClassTransferIn, p))
	assertDecimal(t, "-120", got.Matrix.Get(core.ClassTransferOut, p))
}

func TestBuildDRE_DetailMatchesMatrix(t *testing.T) {
	entries := []core.LedgerEntry{
		entry(core.Receivable, "1.01", "500", 1),
		entry(core.Receivable, "1.01", "125.50", 1),
		entry(core.Payable, "2.02", "80", 1),
		entry(core.Payable, "2.02", "20", 2),
	}
	entries[1].CounterpartyName = "Globex"
	entries[1].Allocations = Allocate(d("125.50"), nil)

	opts := DefaultOptions(core.Month(2025, 1))
	opts.DepartmentNames = core.MapLookup[string]{"D1": "Comercial"}
	got := BuildDRE(entries, "A1", testClasses, opts)

	for key, node := range got.Detail {
		assert.Truef(t, node.LeafSum().Equal(got.Matrix.Get(key.Class, key.Period)),
			"%s: leaves %s != matrix %s", key, node.LeafSum(), got.Matrix.Get(key.Class, key.Period))
		assert.True(t, node.Total.Equal(got.Matrix.Get(key.Class, key.Period)))
	}

	revenue := got.Detail[core.DetailKey{Class: core.ClassGrossRevenue, Period: core.Month(2024, 1)}]
	require.NotNil(t, revenue)
	assert.Contains(t, revenue.Children, "Comercial")
	assert.Contains(t, revenue.Children, "D2")
	assert.Contains(t, revenue.Children, OtherDepartmentName)
	assertDecimal(t, "350", revenue.Children["Comercial"].Children["1.01"].Children["ACME"].Total)
	assertDecimal(t, "125.50", revenue.Children[OtherDepartmentName].Children["1.01"].Children["Globex"].Total)

	expenses := got.Detail[core.DetailKey{Class: core.ClassExpenses, Period: core.Month(2024, 2)}]
	require.NotNil(t, expenses)
	assertDecimal(t, "-14", expenses.Children["Comercial"].Total)
}

func TestBuildDRE_NonDetailableClassHasNoTree(t *testing.T) {
	opts := DefaultOptions(core.Month(2025, 1))
	opts.Detailable = map[string]bool{}
	got := BuildDRE([]core.LedgerEntry{entry(core.Receivable, "1.01", "10", 1)}, "A1", testClasses, opts)
	assert.Empty(t, got.Detail)
	assertDecimal(t, "10", got.Matrix.Get(core.ClassGrossRevenue, core.Month(2024, 1)))
}

func TestBuildDRE_NilClassifierFallsBackToOther(t *testing.T) {
	got := BuildDRE([]core.LedgerEntry{entry(core.Receivable, "1.01", "10", 1)}, "A1", nil, DefaultOptions(core.Month(2025, 1)))
	assertDecimal(t, "10", got.Matrix.Get(core.ClassOther, core.Month(2024, 1)))
}

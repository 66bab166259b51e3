package core

import (
	"maps"

	"github.com/shopspring/decimal"
)

// DRE class labels.
const (
	ClassGrossRevenue        = "Receita Bruta"
	ClassDeductions          = "Deduções"
	ClassNetRevenue          = "Receita Líquida"
	ClassCosts               = "Custos"
	ClassExpenses            = "Despesas"
	ClassTaxes               = "Impostos"
	ClassOperatingCashGen    = "Geração de Caixa Operacional"
	ClassFinancialResult     = "Resultado Financeiro"
	ClassContributions       = "Aportes"
	ClassInvestments         = "Investimentos"
	ClassLoans               = "Empréstimos"
	ClassMonthlyCashMovement = "Movimentação de Caixa Mensal"
	ClassTransferIn          = "Transferência de Entrada"
	ClassTransferOut         = "Transferência de Saída"
	ClassOther               = "Outros"
	ClassInitialCash         = "Caixa Inicial"
	ClassFinalCash           = "Caixa Final"
)

// Inflow/outflow rows.
const (
	FlowInflow      = "Entradas"
	FlowOutflow     = "Saídas"
	FlowTransferIn  = "Entradas Transferência"
	FlowTransferOut = "Saídas Transferência"
)

// Working-capital line labels.
const (
	WCCash             = "Caixa"
	WCReceivables      = "Contas a Receber"
	WCPayables         = "Contas a Pagar"
	WCReceivablesShort = "Contas a Receber Curto Prazo"
	WCReceivablesLong  = "Contas a Receber Longo Prazo"
	WCPayablesShort    = "Contas a Pagar Curto Prazo"
	WCPayablesLong     = "Contas a Pagar Longo Prazo"
	WCShortTerm        = "Curto Prazo"
	WCLongTerm         = "Longo Prazo"
	WCNetLiquidCapital = "Capital Circulante Líquido"
)

// DREClassOrder is the row order the rendering layer displays.
var DREClassOrder = []string{
	ClassInitialCash,
	ClassGrossRevenue,
	ClassDeductions,
	ClassNetRevenue,
	ClassCosts,
	ClassExpenses,
	ClassTaxes,
	ClassOperatingCashGen,
	ClassFinancialResult,
	ClassContributions,
	ClassInvestments,
	ClassLoans,
	ClassMonthlyCashMovement,
	ClassTransferIn,
	ClassTransferOut,
	ClassOther,
	ClassFinalCash,
}

// FlowRows lists the inflow/outflow accumulators.
var FlowRows = []string{FlowInflow, FlowOutflow, FlowTransferIn, FlowTransferOut}

// WorkingCapitalOrder is the display order of the working-capital lines.
var WorkingCapitalOrder = []string{
	WCCash,
	WCReceivables,
	WCReceivablesShort,
	WCReceivablesLong,
	WCPayables,
	WCPayablesShort,
	WCPayablesLong,
	WCShortTerm,
	WCLongTerm,
	WCNetLiquidCapital,
}

// Matrix maps a row label to its values per period. It backs the DRE matrix,
// the inflow/outflow totals and the working-capital matrix.
type Matrix map[string]map[PeriodKey]decimal.Decimal

func NewMatrix() Matrix {
	return make(Matrix)
}

// Add accumulates v into row at period p.
func (m Matrix) Add(row string, p PeriodKey, v decimal.Decimal) {
	cells, ok := m[row]
	if !ok {
		cells = make(map[PeriodKey]decimal.Decimal)
		m[row] = cells
	}
	cells[p] = cells[p].Add(v)
}

// Set overwrites row at period p.
func (m Matrix) Set(row string, p PeriodKey, v decimal.Decimal) {
	cells, ok := m[row]
	if !ok {
		cells = make(map[PeriodKey]decimal.Decimal)
		m[row] = cells
	}
	cells[p] = v
}

// Get returns the value of row at p, zero when absent.
func (m Matrix) Get(row string, p PeriodKey) decimal.Decimal {
	return m[row][p]
}

// Has reports whether row has a value at p.
func (m Matrix) Has(row string, p PeriodKey) bool {
	_, ok := m[row][p]
	return ok
}

// AddAll sums every cell of o into m.
func (m Matrix) AddAll(o Matrix) {
	for row, cells := range o {
		for p, v := range cells {
			m.Add(row, p, v)
		}
	}
}

// Periods returns the sorted set of non-TOTAL periods present in any row.
func (m Matrix) Periods() []PeriodKey {
	seen := make(map[PeriodKey]struct{})
	for _, cells := range m {
		for p := range cells {
			if !p.IsTotal() {
				seen[p] = struct{}{}
			}
		}
	}
	out := make([]PeriodKey, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	SortPeriodKeys(out)
	return out
}

// Clone returns a deep copy.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for row, cells := range m {
		out[row] = maps.Clone(cells)
	}
	return out
}

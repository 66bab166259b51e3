package engine

import (
	"github.com/shopspring/decimal"

	"caixa/internal/core"
)

var derivedClasses = map[string]bool{
	core.ClassNetRevenue:          true,
	core.ClassOperatingCashGen:    true,
	core.ClassMonthlyCashMovement: true,
	core.ClassInitialCash:         true,
	core.ClassFinalCash:           true,
}

// Finalize writes the computed rows into dre for every visible period, in
// order, carrying the cash balance from opening:
//
//	Receita Líquida              = Receita Bruta + Deduções
//	Geração de Caixa Operacional = Receita Líquida + Custos + Despesas + Impostos
//	Movimentação de Caixa Mensal = Geração + Resultado Financeiro + Aportes + Investimentos + Empréstimos
//	Caixa Final                  = Caixa Inicial + Movimentação + Transferências + Outros
//
// It then writes the TOTAL column and returns the first and last visible
// periods that hold data (the whole visible window when none does).
func Finalize(dre core.Matrix, visible []core.PeriodKey, opening decimal.Decimal) (first, last core.PeriodKey) {
	if len(visible) == 0 {
		return core.TotalPeriod, core.TotalPeriod
	}
	first, last = PopulatedRange(dre, visible)

	running := opening
	for _, p := range visible {
		net := dre.Get(core.ClassGrossRevenue, p).Add(dre.Get(core.ClassDeductions, p))
		opGen := net.
			Add(dre.Get(core.ClassCosts, p)).
			Add(dre.Get(core.ClassExpenses, p)).
			Add(dre.Get(core.ClassTaxes, p))
		movement := opGen.
			Add(dre.Get(core.ClassFinancialResult, p)).
			Add(dre.Get(core.ClassContributions, p)).
			Add(dre.Get(core.ClassInvestments, p)).
			Add(dre.Get(core.ClassLoans, p))

		dre.Set(core.ClassNetRevenue, p, net)
		dre.Set(core.ClassOperatingCashGen, p, opGen)
		dre.Set(core.ClassMonthlyCashMovement, p, movement)
		dre.Set(core.ClassInitialCash, p, running)

		variation := movement.
			Add(dre.Get(core.ClassTransferIn, p)).
			Add(dre.Get(core.ClassTransferOut, p)).
			Add(dre.Get(core.ClassOther, p))
		running = running.Add(variation)
		dre.Set(core.ClassFinalCash, p, running)
	}

	for row, cells := range dre {
		switch row {
		case core.ClassInitialCash:
			cells[core.TotalPeriod] = cells[first]
		case core.ClassFinalCash:
			cells[core.TotalPeriod] = cells[last]
		default:
			sum := decimal.Zero
			for _, p := range visible {
				sum = sum.Add(cells[p])
			}
			cells[core.TotalPeriod] = sum
		}
	}
	return first, last
}

// PopulatedRange returns the first and last visible periods carrying input
// data, clamped to the visible window. Derived rows do not count as data.
func PopulatedRange(dre core.Matrix, visible []core.PeriodKey) (first, last core.PeriodKey) {
	if len(visible) == 0 {
		return core.TotalPeriod, core.TotalPeriod
	}
	var found bool
	for _, p := range visible {
		if !hasInput(dre, p) {
			continue
		}
		if !found {
			first = p
			found = true
		}
		last = p
	}
	if !found {
		return visible[0], visible[len(visible)-1]
	}
	return first, last
}

func hasInput(dre core.Matrix, p core.PeriodKey) bool {
	for row, cells := range dre {
		if derivedClasses[row] {
			continue
		}
		if _, ok := cells[p]; ok {
			return true
		}
	}
	return false
}

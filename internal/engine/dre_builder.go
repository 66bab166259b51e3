package engine

import (
	"strings"

	"github.com/shopspring/decimal"

	"caixa/internal/core"
)

// UnknownCounterparty labels entries without a counterparty name.
const UnknownCounterparty = "Não Informado"

// DRE is the per-account output of BuildDRE.
type DRE struct {
	Matrix       core.Matrix
	Detail       core.DetailMatrix
	Flows        core.Matrix
	Transactions []core.Transaction
}

// BuildDRE aggregates the entries booked on accountID into the class×period
// matrix, the department/category/counterparty drill-down and the
// inflow/outflow accumulators.
func BuildDRE(entries []core.LedgerEntry, accountID string, classes core.Lookup[core.Classification], opts Options) DRE {
	out := DRE{
		Matrix:       core.NewMatrix(),
		Detail:       make(core.DetailMatrix),
		Flows:        core.NewMatrix(),
		Transactions: []core.Transaction{},
	}

	for _, e := range entries {
		if e.AccountID != accountID {
			continue
		}
		period := e.Date.Period()
		class := core.ClassOf(classes, e.CategoryCode)
		signed := e.Nature.Signed(e.Amount)

		out.Matrix.Add(class, period, signed)
		out.Flows.Add(flowRow(e.CategoryCode, signed, opts.TransferPrefix), period, signed)

		if opts.Detailable[class] && len(e.Allocations) > 0 {
			addDetail(out.Detail, core.DetailKey{Class: class, Period: period}, e, signed, opts)
		}

		out.Transactions = append(out.Transactions, core.Transaction{
			Date:        e.Date,
			Amount:      signed,
			Description: describe(e),
			Note:        e.Note,
			AccountID:   e.AccountID,
			ProjectID:   e.ProjectID,
		})
	}

	SortTransactions(out.Transactions)
	return out
}

func flowRow(category string, signed decimal.Decimal, transferPrefix string) string {
	transfer := transferPrefix != "" && strings.HasPrefix(category, transferPrefix)
	switch {
	case transfer && signed.IsNegative():
		return core.FlowTransferOut
	case transfer:
		return core.FlowTransferIn
	case signed.IsNegative():
		return core.FlowOutflow
	default:
		return core.FlowInflow
	}
}

func addDetail(detail core.DetailMatrix, key core.DetailKey, e core.LedgerEntry, signed decimal.Decimal, opts Options) {
	root, ok := detail[key]
	if !ok {
		root = &core.DetailNode{}
		detail[key] = root
	}
	root.Total = root.Total.Add(signed)

	counterparty := e.CounterpartyName
	if counterparty == "" {
		counterparty = UnknownCounterparty
	}
	for _, a := range e.Allocations {
		amount := e.Nature.Signed(a.Amount)
		dept := root.Child(opts.departmentName(a.DepartmentCode))
		dept.Total = dept.Total.Add(amount)
		cat := dept.Child(e.CategoryCode)
		cat.Total = cat.Total.Add(amount)
		cp := cat.Child(counterparty)
		cp.Total = cp.Total.Add(amount)
	}
}

func describe(e core.LedgerEntry) string {
	name := e.CounterpartyName
	if name == "" {
		name = UnknownCounterparty
	}
	if e.Description != "" {
		return name + " - " + e.Description
	}
	return name
}

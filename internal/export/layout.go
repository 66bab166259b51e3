// Package export lays a report out as plain tables that the spreadsheet
// writers render.
package export

import (
	"sort"

	"github.com/shopspring/decimal"

	"caixa/internal/core"
)

const (
	SheetDRE            = "DRE"
	SheetDetail         = "Detalhamento"
	SheetWorkingCapital = "Capital de Giro"
	SheetTransactions   = "Lançamentos"
)

// Sheet is one named table. Cells are strings, ints or float64 so every
// backend can take them as-is.
type Sheet struct {
	Name string
	Rows [][]any
}

// Layout renders the report's matrices, drill-down and ledger. Working
// capital is omitted for projected reports.
func Layout(r core.Report) []Sheet {
	cols := columns(r)
	sheets := []Sheet{
		{Name: SheetDRE, Rows: matrixRows("Linha", core.DREClassOrder, r.DRE, cols)},
		{Name: SheetDetail, Rows: detailRows(r.Detail)},
	}
	if r.Projection != core.Projected {
		sheets = append(sheets, Sheet{
			Name: SheetWorkingCapital,
			Rows: matrixRows("Capital de Giro", core.WorkingCapitalOrder, r.WorkingCapital, cols),
		})
	}
	sheets = append(sheets, Sheet{Name: SheetTransactions, Rows: transactionRows(r.Transactions)})
	return sheets
}

// columns returns the visible periods followed by the TOTAL column.
func columns(r core.Report) []core.PeriodKey {
	cols := make([]core.PeriodKey, 0, len(r.Periods)+1)
	cols = append(cols, r.Periods...)
	return append(cols, core.TotalPeriod)
}

func matrixRows(label string, order []string, m core.Matrix, cols []core.PeriodKey) [][]any {
	header := make([]any, 0, len(cols)+1)
	header = append(header, label)
	for _, p := range cols {
		header = append(header, p.String())
	}
	rows := [][]any{header}

	for _, name := range orderedRows(order, m) {
		row := make([]any, 0, len(cols)+1)
		row = append(row, name)
		for _, p := range cols {
			if !m.Has(name, p) {
				row = append(row, "")
				continue
			}
			row = append(row, Number(m.Get(name, p)))
		}
		rows = append(rows, row)
	}
	return rows
}

// orderedRows keeps the display order for known rows present in m and
// appends unknown rows alphabetically.
func orderedRows(order []string, m core.Matrix) []string {
	known := make(map[string]bool, len(order))
	out := make([]string, 0, len(m))
	for _, name := range order {
		known[name] = true
		if _, ok := m[name]; ok {
			out = append(out, name)
		}
	}
	var extra []string
	for name := range m {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func detailRows(d core.DetailMatrix) [][]any {
	rows := [][]any{{"Classe", "Período", "Departamento", "Categoria", "Cliente/Fornecedor", "Valor"}}

	keys := make([]core.DetailKey, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Class != keys[j].Class {
			return classRank(keys[i].Class) < classRank(keys[j].Class)
		}
		return keys[i].Period.Before(keys[j].Period)
	})

	for _, k := range keys {
		root := d[k]
		if root == nil {
			continue
		}
		for _, dept := range childNames(root) {
			dn := root.Children[dept]
			for _, cat := range childNames(dn) {
				cn := dn.Children[cat]
				for _, party := range childNames(cn) {
					rows = append(rows, []any{
						k.Class, k.Period.String(), dept, cat, party,
						Number(cn.Children[party].Total),
					})
				}
			}
		}
	}
	return rows
}

func classRank(class string) int {
	for i, c := range core.DREClassOrder {
		if c == class {
			return i
		}
	}
	return len(core.DREClassOrder)
}

func childNames(n *core.DetailNode) []string {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func transactionRows(txs []core.Transaction) [][]any {
	rows := make([][]any, 0, len(txs)+1)
	rows = append(rows, []any{"Data", "Conta", "Projeto", "Descrição", "Observação", "Valor"})
	for _, tx := range txs {
		rows = append(rows, []any{
			tx.Date.String(), tx.AccountID, tx.ProjectID, tx.Description, tx.Note,
			Number(tx.Amount),
		})
	}
	return rows
}

// Number converts an amount to the float64 spreadsheets store, rounded to
// cents.
func Number(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

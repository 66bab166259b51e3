package engine

import (
	"github.com/shopspring/decimal"

	"caixa/internal/core"
)

const (
	// OtherDepartment is the sentinel code for amounts with no department.
	OtherDepartment     = "__other__"
	OtherDepartmentName = "Outros Departamentos"
)

var hundred = decimal.NewFromInt(100)

// Allocate splits amount across departments by percentage. A nil percentage
// counts as 100. Percentages are not normalized: shares that do not add up
// to 100 over- or under-allocate on purpose (cross-charged departments).
// An empty share list allocates everything to OtherDepartment.
func Allocate(amount decimal.Decimal, shares []core.DepartmentShare) []core.DepartmentAllocation {
	if len(shares) == 0 {
		return []core.DepartmentAllocation{{DepartmentCode: OtherDepartment, Amount: amount}}
	}
	out := make([]core.DepartmentAllocation, 0, len(shares))
	for _, s := range shares {
		pct := hundred
		if s.Percentage != nil {
			pct = *s.Percentage
		}
		out = append(out, core.DepartmentAllocation{
			DepartmentCode: s.DepartmentCode,
			Amount:         amount.Mul(core.SafeRatio(pct, hundred)),
		})
	}
	return out
}

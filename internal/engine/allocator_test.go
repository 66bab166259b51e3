package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caixa/internal/core"
)

func TestAllocate_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		shares []core.DepartmentShare
	}{
		{
			name:   "two departments",
			amount: "1000",
			shares: []core.DepartmentShare{{DepartmentCode: "D1", Percentage: pct("60")}, {DepartmentCode: "D2", Percentage: pct("40")}},
		},
		{
			name:   "thirds with cents",
			amount: "100.01",
			shares: []core.DepartmentShare{
				{DepartmentCode: "D1", Percentage: pct("33.33")},
				{DepartmentCode: "D2", Percentage: pct("33.33")},
				{DepartmentCode: "D3", Percentage: pct("33.34")},
			},
		},
		{
			name:   "single department without percentage",
			amount: "42.5",
			shares: []core.DepartmentShare{{DepartmentCode: "D1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Allocate(d(tt.amount), tt.shares)
			require.Len(t, got, len(tt.shares))
			sum := decimal.Zero
			for _, a := range got {
				sum = sum.Add(a.Amount)
			}
			assert.True(t, sum.Sub(d(tt.amount)).Abs().LessThan(d("0.000001")), "sum %s != %s", sum, tt.amount)
		})
	}
}

func TestAllocate_EmptySharesGoToOtherDepartment(t *testing.T) {
	got := Allocate(d("123.45"), nil)
	require.Len(t, got, 1)
	assert.Equal(t, OtherDepartment, got[0].DepartmentCode)
	assert.True(t, got[0].Amount.Equal(d("123.45")))
}

func TestAllocate_DoesNotNormalize(t *testing.T) {
	got := Allocate(d("100"), []core.DepartmentShare{
		{DepartmentCode: "D1", Percentage: pct("100")},
		{DepartmentCode: "D2", Percentage: pct("50")},
	})
	require.Len(t, got, 2)
	assertDecimal(t, "100", got[0].Amount)
	assertDecimal(t, "50", got[1].Amount)
}

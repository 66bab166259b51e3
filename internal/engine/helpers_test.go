package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"caixa/internal/core"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pct(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func amount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(d(s))
}

func date(day, month, year int) core.Date {
	return core.NewDate(year, month, day)
}

func settlement(day, month, year int, account, value string) core.Settlement {
	return core.Settlement{Date: date(day, month, year), AccountID: account, Amount: amount(value)}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

var testClasses = core.MapLookup[core.Classification]{
	"1.01":   {ClassName: core.ClassGrossRevenue},
	"1.02":   {ClassName: core.ClassDeductions},
	"2.01":   {ClassName: core.ClassCosts},
	"2.02":   {ClassName: core.ClassExpenses},
	"TRF.01": {ClassName: core.ClassTransferIn},
	"TRF.02": {ClassName: core.ClassTransferOut},
}

package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClientAtRisk(t *testing.T) {
	tests := []struct {
		name    string
		limit   string
		balance string
		risk    bool
		debt    bool
	}{
		{"no limit never at risk", "0", "500", false, true},
		{"below limit", "100", "99.99", false, true},
		{"at limit", "100", "100", true, true},
		{"over limit", "100", "150", true, true},
		{"in favour", "100", "-20", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Client{
				CreditLimit: decimal.RequireFromString(tt.limit),
				Balance:     decimal.RequireFromString(tt.balance),
			}
			assert.Equal(t, tt.risk, c.AtRisk())
			assert.Equal(t, tt.debt, c.HasDebt())
		})
	}
}

func TestBalanceDelta(t *testing.T) {
	rows := []Transaction{
		{Type: Debit, Amount: decimal.NewFromInt(30)},
		{Type: Credit, Amount: decimal.NewFromInt(12)},
		{Type: Debit, Amount: decimal.RequireFromString("1.5")},
	}
	assert.True(t, BalanceDelta(rows).Equal(decimal.RequireFromString("19.5")))
	assert.True(t, BalanceDelta(nil).IsZero())
}

func TestParseTransactionType(t *testing.T) {
	typ, ok := ParseTransactionType("pago")
	assert.True(t, ok)
	assert.Equal(t, Credit, typ)

	typ, ok = ParseTransactionType("debit")
	assert.True(t, ok)
	assert.Equal(t, Debit, typ)

	_, ok = ParseTransactionType("refund")
	assert.False(t, ok)
}

package service

import (
	"testing"

	"github.com/flexprice/debitsync/internal/domain/credit"
	"github.com/flexprice/debitsync/internal/domain/debit"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestNetBalance(t *testing.T) {
	debits := []*debit.UsageDebit{{Amount: d("100")}, {Amount: d("50")}}
	credits := []*credit.LedgerCredit{{PaidAmount: d("30"), PromoAmount: d("999")}}

	assert.True(t, d("120").Equal(NetBalance(debits, credits)))
	assert.True(t, decimal.Zero.Equal(NetBalance(nil, nil)))
	assert.True(t, d("-30").Equal(NetBalance(nil, credits)))
}

func TestPromoBalanceCountsEveryType(t *testing.T) {
	credits := []*credit.LedgerCredit{
		{Type: types.CreditTypePromo, PromoAmount: d("200")},
		{Type: types.CreditTypeManual, PromoAmount: d("25.50"), PaidAmount: d("40")},
		{Type: types.CreditTypeAuto, PromoAmount: d("10")},
	}
	assert.True(t, d("235.50").Equal(PromoBalance(credits)))
}

func TestNet(t *testing.T) {
	tests := []struct {
		name         string
		balance      string
		promoBalance string
		promoUsed    string
		invoice      string
		total        string
	}{
		{"promo covers balance", "120", "200", "120", "0", "0"},
		{"promo partially covers balance", "120", "50", "50", "70", "70"},
		{"promo equals balance", "120", "120", "120", "0", "0"},
		{"no promo", "80.25", "0", "0", "80.25", "80.25"},
		{"negative balance is clamped", "-30", "0", "-30", "0", "0"},
		{"zero everything", "0", "0", "0", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Net(d(tt.balance), d(tt.promoBalance))
			assert.True(t, d(tt.promoUsed).Equal(n.PromoUsed), "promoUsed %s", n.PromoUsed)
			assert.True(t, d(tt.invoice).Equal(n.InvoiceAmount), "invoice %s", n.InvoiceAmount)
			assert.True(t, d(tt.total).Equal(n.TotalAmount), "total %s", n.TotalAmount)
			assert.False(t, n.TotalAmount.IsNegative())
		})
	}
}

package service

import (
	"github.com/flexprice/debitsync/internal/domain/credit"
	"github.com/flexprice/debitsync/internal/domain/debit"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Netting is the result of offsetting a cycle balance against promotional credit
type Netting struct {
	Balance       decimal.Decimal
	PromoBalance  decimal.Decimal
	PromoUsed     decimal.Decimal
	InvoiceAmount decimal.Decimal
	TotalAmount   decimal.Decimal
}

// NetBalance is the usage owed for a window: debits minus paid credits
func NetBalance(debits []*debit.UsageDebit, windowCredits []*credit.LedgerCredit) decimal.Decimal {
	charged := lo.Reduce(debits, func(acc decimal.Decimal, d *debit.UsageDebit, _ int) decimal.Decimal {
		return acc.Add(d.Amount)
	}, decimal.Zero)

	paid := lo.Reduce(windowCredits, func(acc decimal.Decimal, c *credit.LedgerCredit, _ int) decimal.Decimal {
		return acc.Add(c.PaidAmount)
	}, decimal.Zero)

	return charged.Sub(paid)
}

// PromoBalance sums promotional credit over every credit the customer holds,
// regardless of window or type
func PromoBalance(allCredits []*credit.LedgerCredit) decimal.Decimal {
	return lo.Reduce(allCredits, func(acc decimal.Decimal, c *credit.LedgerCredit, _ int) decimal.Decimal {
		return acc.Add(c.PromoAmount)
	}, decimal.Zero)
}

// Net offsets balance against promoBalance.
//
// When promo credit exceeds the balance only the balance is consumed, otherwise the whole
// promo balance is. PromoUsed is not floored, so a negative balance yields a negative
// PromoUsed. InvoiceAmount and TotalAmount are never negative.
func Net(balance, promoBalance decimal.Decimal) Netting {
	invoiceAmount := decimal.Max(decimal.Zero, balance.Sub(promoBalance))

	promoUsed := promoBalance
	if promoBalance.Sub(balance).IsPositive() {
		promoUsed = balance
	}

	return Netting{
		Balance:       balance,
		PromoBalance:  promoBalance,
		PromoUsed:     promoUsed,
		InvoiceAmount: invoiceAmount,
		TotalAmount:   decimal.Max(decimal.Zero, invoiceAmount),
	}
}

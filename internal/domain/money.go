package domain

import (
	"golang.org/x/text/currency"
)

// Money is an amount in the smallest unit of its currency.
type Money struct {
	Amount   int64
	Currency currency.Unit
}

func NewMoney(amount int64, unit currency.Unit) Money {
	return Money{Amount: amount, Currency: unit}
}

func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}
}

func (m Money) Mul(n int) Money {
	return Money{Amount: m.Amount * int64(n), Currency: m.Currency}
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}

func (m Money) IsNegative() bool {
	return m.Amount < 0
}

func (m Money) Equal(o Money) bool {
	return m.Amount == o.Amount && m.Currency.String() == o.Currency.String()
}

package core

import "github.com/shopspring/decimal"

// Money is a non-negative decimal amount. Arithmetic goes through
// shopspring/decimal so ledger sums never accumulate float drift.
type Money struct {
	Amount decimal.Decimal
}

func NewMoney(amount decimal.Decimal) Money {
	return Money{Amount: amount}
}

// MoneyFromString parses a decimal string such as "1500" or "66.60".
func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: d}, nil
}

// MoneyFromFloat is a convenience constructor for CLI input and fixtures.
func MoneyFromFloat(f float64) Money {
	return Money{Amount: decimal.NewFromFloat(f)}
}

func ZeroMoney() Money {
	return Money{Amount: decimal.Zero}
}

func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount.Add(other.Amount)}
}

func (m Money) Sub(other Money) Money {
	return Money{Amount: m.Amount.Sub(other.Amount)}
}

func (m Money) Equal(other Money) bool {
	return m.Amount.Equal(other.Amount)
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

// String renders the amount with two decimal places, the form stored
// in SQLite and embedded in notification messages.
func (m Money) String() string {
	return m.Amount.StringFixed(2)
}

func (m Money) Validate() error {
	if m.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

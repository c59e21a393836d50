/*
Package ledger is the core debt ledger and bill-splitting engine.

PURPOSE:

	This package contains the domain model for shared expenses: validated
	monetary amounts, the fair-remainder split algorithm, pairwise debt
	edges (friendships), friend lists, groups, payments, and notifications.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money: A monetary amount with exactly 2 fractional digits
  - ParseAmount: Validated parsing of operational amounts (must be positive)
  - Round2: Arithmetic half-up rounding applied before every comparison

DESIGN PRINCIPLES:
 1. Precision: Uses decimal.Decimal to avoid floating-point drift
 2. Normalization: Balances are rounded to 2 decimals after every mutation
 3. Validation: Operational amounts are positive with at most 2 decimals

SEE ALSO:
  - splitter.go: Remainder-distributing partition of an amount
  - friendship.go: Signed pairwise balance built on Money
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// Currency is the single currency the ledger operates in.
const Currency = "BGN"

// Money is a fixed-precision monetary amount. The zero value is 0.00.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int) Money {
	return Money{Value: decimal.NewFromInt(int64(value))}
}

// MustMoney parses a decimal string, returning 0.00 on malformed input.
// Intended for constants in tests and fixtures.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

// ParseBalance parses a stored signed balance. Unlike ParseAmount it
// accepts zero and negative values; malformed text is an error, never a
// silent zero.
func ParseBalance(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, &InvalidArgumentError{Field: "balance", Reason: "not a decimal number"}
	}
	return Money{Value: d}, nil
}

// ParseAmount parses and validates an operational amount: it must be a
// well-formed decimal, strictly positive, and carry at most 2 fractional
// digits. Anything else is ErrInvalidArgument.
func ParseAmount(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, &InvalidArgumentError{Field: "amount", Reason: "not a decimal number"}
	}
	return ValidateAmount(Money{Value: d})
}

// ValidateAmount enforces the operational-amount contract on an already
// constructed Money.
func ValidateAmount(m Money) (Money, error) {
	if !m.Value.IsPositive() {
		return Money{}, &InvalidArgumentError{Field: "amount", Reason: "must be positive"}
	}
	if !m.HasCentPrecision() {
		return Money{}, &InvalidArgumentError{Field: "amount", Reason: "more than 2 decimal places"}
	}
	return m, nil
}

// HasCentPrecision reports whether the amount is exactly representable
// with 2 fractional digits.
func (m Money) HasCentPrecision() bool {
	return m.Value.Equal(m.Value.Round(2))
}

// Round2 rounds half-up at the third fractional digit. Every stored or
// compared balance goes through this first.
func (m Money) Round2() Money {
	return Money{Value: m.Value.Round(2)}
}

func (m Money) Add(o Money) Money        { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money        { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Neg() Money               { return Money{Value: m.Value.Neg()} }
func (m Money) Abs() Money               { return Money{Value: m.Value.Abs()} }
func (m Money) DivInt(n int) Money       { return Money{Value: m.Value.Div(decimal.NewFromInt(int64(n)))} }
func (m Money) MulInt(n int) Money       { return Money{Value: m.Value.Mul(decimal.NewFromInt(int64(n)))} }
func (m Money) IsZero() bool             { return m.Value.IsZero() }
func (m Money) IsPositive() bool         { return m.Value.IsPositive() }
func (m Money) IsNegative() bool         { return m.Value.IsNegative() }
func (m Money) Equal(o Money) bool       { return m.Value.Equal(o.Value) }
func (m Money) LessThan(o Money) bool    { return m.Value.LessThan(o.Value) }
func (m Money) GreaterThan(o Money) bool { return m.Value.GreaterThan(o.Value) }

// String renders the amount with exactly 2 fractional digits ("4.50").
func (m Money) String() string {
	return m.Value.StringFixed(2)
}

// MarshalJSON / UnmarshalJSON keep the wire form a plain decimal string,
// so snapshots stay readable and diff-able.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	m.Value = d
	return nil
}

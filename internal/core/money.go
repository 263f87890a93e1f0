// Package core provides money parsing and handling utilities.
//
// This file contains the fixed-point Money type used by every report.
// Amounts always carry exactly two fractional digits; ratio math keeps
// full precision until the final rounding step.
package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits kept for currency amounts.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Money is a currency amount with two fractional digits.
// The zero value is 0.00.
type Money struct {
	d decimal.Decimal
}

// Zero is 0.00.
var Zero = Money{}

// Round converts an arbitrary-precision decimal into Money using
// half-up rounding (ties away from zero) at two places.
func Round(d decimal.Decimal) Money {
	return Money{d: d.Round(MoneyPlaces)}
}

// MoneyFromCents builds an amount from integer cents.
func MoneyFromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -MoneyPlaces)}
}

// MustMoney parses s and panics on error. Intended for constants and tests.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(fmt.Sprintf("core: invalid money literal %q: %v", s, err))
	}
	return m
}

// ParseMoney parses a signed decimal string such as "-42.50" or "1250,5".
// A decimal comma is accepted. More than two fractional digits are rounded half-up.
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return Round(d), nil
}

// ParseAmount parses a strictly positive transaction amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Signs, exponents and zero are rejected.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,345") -> 12.35, nil
//	ParseAmount("-1") -> error
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return Zero, ErrInvalidAmount
		}
	}
	m, err := ParseMoney(s)
	if err != nil {
		return Zero, err
	}
	if !m.IsPositive() {
		return Zero, ErrInvalidAmount
	}
	return m, nil
}

// SafeDiv divides num by den keeping full precision. A zero denominator yields zero.
func SafeDiv(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}

// Sum adds amounts.
func Sum(ms ...Money) Money {
	total := decimal.Zero
	for _, m := range ms {
		total = total.Add(m.d)
	}
	return Money{d: total}
}

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }
func (m Money) Neg() Money        { return Money{d: m.d.Neg()} }

// MulRatio returns m × num / den rounded once at the end. A zero den yields 0.00.
func (m Money) MulRatio(num, den decimal.Decimal) Money {
	return Round(SafeDiv(m.d.Mul(num), den))
}

// Percent returns pct% of m, i.e. m × pct / 100, rounded to two places.
func (m Money) Percent(pct decimal.Decimal) Money {
	return m.MulRatio(pct, hundred)
}

// Decimal exposes the underlying value for ratio math.
func (m Money) Decimal() decimal.Decimal { return m.d }

// Cents returns the amount in integer cents.
func (m Money) Cents() int64 { return m.d.Shift(MoneyPlaces).IntPart() }

func (m Money) Cmp(o Money) int          { return m.d.Cmp(o.d) }
func (m Money) Equal(o Money) bool       { return m.d.Equal(o.d) }
func (m Money) LessThan(o Money) bool    { return m.d.LessThan(o.d) }
func (m Money) GreaterThan(o Money) bool { return m.d.GreaterThan(o.d) }
func (m Money) IsZero() bool             { return m.d.IsZero() }
func (m Money) IsNegative() bool         { return m.d.IsNegative() }
func (m Money) IsPositive() bool         { return m.d.IsPositive() }

// String renders the amount with exactly two fractional digits.
func (m Money) String() string { return m.d.StringFixed(MoneyPlaces) }

// MarshalJSON encodes the amount as a decimal string, never a float.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts a decimal string or a bare JSON number.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*m = Zero
		return nil
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Validate checks that the amount is a valid transaction amount.
func (m Money) Validate() error {
	if !m.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

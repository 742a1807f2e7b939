// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. Decimal arithmetic (parsing user input,
// dividing a fee into installments) goes through shopspring/decimal so that no
// float ever touches a stored amount.
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const currencyPrefix = "R$"

var (
	hundred     = decimal.NewFromInt(100)
	maxCentsDec = decimal.NewFromInt(1<<62 - 1)
)

// ParseAmount converts a user supplied amount to Money.
//
// It accepts a plain decimal with dot or comma separator and the display form
// produced by FormatBRL:
//
//	ParseAmount("1234.56")     -> 123456
//	ParseAmount("1234,56")     -> 123456
//	ParseAmount("1.234,56")    -> 123456
//	ParseAmount("R$ 1.234,56") -> 123456
//	ParseAmount("0")           -> 0
//
// A third decimal digit is rounded half-up. Negative or malformed input yields
// ErrInvalidAmount.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, currencyPrefix))
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return Money{}, ErrInvalidAmount
	}

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")
	switch {
	case hasDot && hasComma:
		// 1.234,56: dots group thousands, the comma is the decimal mark
		if strings.LastIndex(s, ".") > strings.Index(s, ",") {
			return Money{}, ErrInvalidAmount
		}
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case hasComma:
		if strings.Count(s, ",") > 1 {
			return Money{}, ErrInvalidAmount
		}
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return Money{}, ErrInvalidAmount
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d)
}

// ParseBRL reads back the display form produced by FormatBRL, including a
// negative "-R$ ..." amount, so that ParseBRL(FormatBRL(m)) == m.
func ParseBRL(s string) (Money, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	m, err := ParseAmount(strings.TrimPrefix(s, "-"))
	if err != nil {
		return Money{}, err
	}
	if neg {
		m.Cents = -m.Cents
	}
	return m, nil
}

// MoneyFromDecimal rounds d half-up to cents.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if cents.GreaterThan(maxCentsDec) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// DivideEven splits m into count equal parts rounded half-up to cents. The
// parts are not reconciled against m; callers decide what to do with the drift.
func (m Money) DivideEven(count int) (Money, error) {
	if count < 1 {
		return Money{}, ErrInvalidCount
	}
	part := m.Decimal().Div(decimal.NewFromInt(int64(count)))
	return MoneyFromDecimal(part)
}

// FormatBRL renders cents in the office display format, e.g. "R$ 1.234,56".
func FormatBRL(m Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	units := strconv.FormatInt(cents/100, 10)
	frac := cents % 100

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(currencyPrefix)
	b.WriteByte(' ')
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	if frac < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(frac, 10))
	return b.String()
}

func (m Money) String() string {
	return FormatBRL(m)
}

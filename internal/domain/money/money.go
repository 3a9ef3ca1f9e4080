// Package money implements fixed two-decimal monetary arithmetic on top of
// arbitrary-precision decimals.
//
// Every value produced by this package is canonicalized to scale 2 using
// half-up rounding (half away from zero for negative values). Operations may
// use extra precision internally but always round their result.
package money

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Scale is the number of fraction digits every Money value carries.
const Scale = 2

// ErrDivisionByZero is returned by Div when the divisor is zero.
var ErrDivisionByZero = errors.New("money: division by zero")

// Zero is the canonical zero amount.
var Zero = Money{d: decimal.Zero}

// ParseError reports a malformed monetary string.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("money: invalid amount %q", e.Input)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Money is an immutable monetary amount with exactly two fraction digits.
type Money struct {
	d decimal.Decimal
}

// Parse parses a decimal string such as "10", "10.5" or "-0.125".
func Parse(s string) (Money, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Money{}, &ParseError{Input: s, Err: errors.New("empty string")}
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Money{}, &ParseError{Input: s, Err: err}
	}
	return FromDecimal(d), nil
}

// MustParse is like Parse but panics on error. Intended for constants and
// tests.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromInt returns a whole amount.
func FromInt(v int64) Money {
	return Money{d: decimal.NewFromInt(v)}
}

// FromDecimal canonicalizes d to money scale.
func FromDecimal(d decimal.Decimal) Money {
	return Money{d: d.Round(Scale)}
}

// Decimal returns the canonical decimal value.
func (m Money) Decimal() decimal.Decimal { return m.d.Round(Scale) }

func (m Money) Add(o Money) Money { return FromDecimal(m.d.Add(o.d)) }

func (m Money) Sub(o Money) Money { return FromDecimal(m.d.Sub(o.d)) }

func (m Money) Mul(o Money) Money { return FromDecimal(m.d.Mul(o.d)) }

// MulInt multiplies by an integer quantity.
func (m Money) MulInt(n int64) Money { return FromDecimal(m.d.Mul(decimal.NewFromInt(n))) }

// Div divides m by o, rounding the exact quotient half-up.
func (m Money) Div(o Money) (Money, error) {
	if o.d.IsZero() {
		return Money{}, ErrDivisionByZero
	}
	return Money{d: m.d.DivRound(o.d, Scale)}, nil
}

// Round rounds to the given number of fraction digits (at most Scale) using
// half-up rounding. The result still formats with two fraction digits.
func (m Money) Round(places int32) Money {
	if places > Scale {
		places = Scale
	}
	return Money{d: m.d.Round(places)}
}

// Ratio returns round(total × part / whole). The full-precision product is
// divided once so no intermediate rounding drift is introduced. whole must
// not be zero.
func Ratio(total, part, whole Money) Money {
	return Money{d: total.d.Mul(part.d).DivRound(whole.d, Scale)}
}

// Sum adds all values, rounding once at the end.
func Sum(values ...Money) Money {
	acc := decimal.Zero
	for _, v := range values {
		acc = acc.Add(v.d)
	}
	return FromDecimal(acc)
}

// Min returns the smaller of a and b.
func Min(a, b Money) Money {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Max returns the greater of a and b.
func Max(a, b Money) Money {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

func (m Money) GreaterThan(o Money) bool        { return m.d.GreaterThan(o.d) }
func (m Money) LessThan(o Money) bool           { return m.d.LessThan(o.d) }
func (m Money) GreaterThanOrEqual(o Money) bool { return m.d.GreaterThanOrEqual(o.d) }
func (m Money) Equal(o Money) bool              { return m.d.Equal(o.d) }
func (m Money) IsZero() bool                    { return m.d.IsZero() }
func (m Money) IsNegative() bool                { return m.d.IsNegative() }
func (m Money) IsPositive() bool                { return m.d.IsPositive() }

// String returns the canonical representation with two fraction digits.
func (m Money) String() string {
	return m.d.StringFixed(Scale)
}

// MarshalJSON encodes the amount as a JSON string, e.g. "180.00".
func (m Money) MarshalJSON() ([]byte, error) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.Str(m.String())
	return append([]byte(nil), e.Bytes()...), nil
}

// UnmarshalJSON accepts a JSON string or number literal. Numbers are parsed
// from their literal text and never pass through float64.
func (m *Money) UnmarshalJSON(data []byte) error {
	d := jx.DecodeBytes(data)
	switch d.Next() {
	case jx.Null:
		return d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return errors.Wrap(err, "decode amount")
		}
		v, err := Parse(s)
		if err != nil {
			return err
		}
		*m = v
		return nil
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return errors.Wrap(err, "decode amount")
		}
		v, err := Parse(string(n))
		if err != nil {
			return err
		}
		*m = v
		return nil
	default:
		return &ParseError{Input: string(data), Err: errors.New("amount must be a string or number")}
	}
}

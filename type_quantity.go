package tradeledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// epsilon is the tolerance used to absorb decimal residue when comparing
// holdings, e.g. after dividing a total cost by a quantity.
var epsilon = decimal.New(1, -9)

// newDecimal is a convenient factory for decimal.Decimal
func newDecimal[T float64 | int | int64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	default:
		panic("unsupported type")
	}
}

// Quantity is a number of units of an instrument.
type Quantity struct {
	value decimal.Decimal
}

// Q creates a Quantity.
func Q[T float64 | int | int64 | decimal.Decimal](value T) Quantity {
	return Quantity{value: newDecimal(value)}
}

// parseNumber parses a user supplied number. Grouping separators (",", "_"
// and spaces) are stripped first.
func parseNumber(s string) (decimal.Decimal, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ',', '_', ' ', '\u00a0':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if clean == "" {
		return decimal.Zero, fmt.Errorf("empty number")
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, err
	}
	return d, checkRange(d)
}

// Bounds of accepted numbers. Decimal arithmetic expands exponents into
// digits, so values like 1e20000000 are refused on input.
const (
	maxExponent = 18
	maxDigits   = 36
)

// checkRange rejects numbers too large or too precise to be a quantity or an
// amount.
func checkRange(d decimal.Decimal) error {
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return fmt.Errorf("number out of range: exponent %d", exp)
	}
	if d.NumDigits() > maxDigits {
		return fmt.Errorf("number out of range: %d digits", d.NumDigits())
	}
	return nil
}

func (q Quantity) Equal(p Quantity) bool       { return q.value.Equal(p.value) }
func (q Quantity) LessThan(p Quantity) bool    { return q.value.LessThan(p.value) }
func (q Quantity) GreaterThan(p Quantity) bool { return q.value.GreaterThan(p.value) }
func (q Quantity) Add(p Quantity) Quantity     { return Quantity{value: q.value.Add(p.value)} }
func (q Quantity) Sub(p Quantity) Quantity     { return Quantity{value: q.value.Sub(p.value)} }
func (q Quantity) IsNegative() bool            { return q.value.IsNegative() }
func (q Quantity) IsPositive() bool            { return q.value.IsPositive() }
func (q Quantity) IsZero() bool                { return q.value.IsZero() }
func (q Quantity) Decimal() decimal.Decimal    { return q.value }
func (q Quantity) Float64() float64            { return q.value.InexactFloat64() }
func (q Quantity) String() string              { return q.value.String() }

// exceeds reports whether q is greater than p by more than epsilon.
func (q Quantity) exceeds(p Quantity) bool {
	return q.value.Sub(p.value).GreaterThan(epsilon)
}

// negligible reports whether q is zero or below, within epsilon.
func (q Quantity) negligible() bool {
	return q.value.LessThanOrEqual(epsilon)
}

// MarshalJSON implements the json.Marshaler interface.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.value.String()), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	if err := q.value.UnmarshalJSON(data); err != nil {
		return err
	}
	return checkRange(q.value)
}

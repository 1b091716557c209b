// Package types provides the value types shared across Docket.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strings"
)

// ErrOverflow is returned when a Money computation does not fit in int64.
var ErrOverflow = errors.New("money: amount overflows int64")

// ErrNegativeOperand is returned by ratio arithmetic given a negative input.
var ErrNegativeOperand = errors.New("money: negative operand")

// Money is an exact amount in the smallest unit of its currency.
// There is no floating point anywhere in its arithmetic.
//
//   - USD(25000) = $250.00
//   - GBP(9900)  = £99.00
//   - JPY(100)   = ¥100
type Money struct {
	Amount   int64  `json:"amount"`   // minor units (cents, pence, ...)
	Currency string `json:"currency"` // ISO 4217, lowercase
}

// New returns amount minor units of currency.
func New(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToLower(currency)}
}

// USD creates a Money value in US Dollars (cents).
func USD(cents int64) Money { return Money{Amount: cents, Currency: "usd"} }

// EUR creates a Money value in Euros (cents).
func EUR(cents int64) Money { return Money{Amount: cents, Currency: "eur"} }

// GBP creates a Money value in British Pounds (pence).
func GBP(pence int64) Money { return Money{Amount: pence, Currency: "gbp"} }

// CAD creates a Money value in Canadian Dollars (cents).
func CAD(cents int64) Money { return Money{Amount: cents, Currency: "cad"} }

// JPY creates a Money value in Japanese Yen.
func JPY(yen int64) Money { return Money{Amount: yen, Currency: "jpy"} }

// Zero returns a zero amount in currency.
func Zero(currency string) Money { return New(0, currency) }

// Add adds two Money values. Panics if currencies don't match.
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// Subtract subtracts another Money value. Panics if currencies don't match.
func (m Money) Subtract(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}
}

// Multiply multiplies the Money by a quantity.
func (m Money) Multiply(qty int64) Money {
	return Money{Amount: m.Amount * qty, Currency: m.Currency}
}

// MulDivHalfUp returns m * num / den rounded to the nearest minor unit,
// with halves rounded up. All operands must be non-negative and den
// positive. The intermediate product is 128-bit, so only a result that
// itself exceeds int64 reports ErrOverflow.
func (m Money) MulDivHalfUp(num, den int64) (Money, error) {
	if den <= 0 {
		return Money{}, fmt.Errorf("money: non-positive divisor %d", den)
	}
	if m.Amount < 0 || num < 0 {
		return Money{}, ErrNegativeOperand
	}

	hi, lo := bits.Mul64(uint64(m.Amount), uint64(num))
	if hi >= uint64(den) {
		return Money{}, ErrOverflow
	}
	q, r := bits.Div64(hi, lo, uint64(den))
	if q > math.MaxInt64 {
		return Money{}, ErrOverflow
	}
	if r >= uint64(den)-r {
		q++
	}
	if q > math.MaxInt64 {
		return Money{}, ErrOverflow
	}
	return Money{Amount: int64(q), Currency: m.Currency}, nil
}

// CheckedAdd adds other, reporting currency mismatch or overflow instead
// of panicking.
func (m Money) CheckedAdd(other Money) (Money, error) {
	if !m.SameCurrency(other) {
		return Money{}, fmt.Errorf("money: currency mismatch: %s != %s", m.Currency, other.Currency)
	}
	sum := m.Amount + other.Amount
	if (other.Amount > 0 && sum < m.Amount) || (other.Amount < 0 && sum > m.Amount) {
		return Money{}, ErrOverflow
	}
	return Money{Amount: sum, Currency: m.Currency}, nil
}

// Negate returns the negative of the Money value.
func (m Money) Negate() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// SameCurrency reports whether both values share a currency.
func (m Money) SameCurrency(other Money) bool {
	return strings.EqualFold(m.Currency, other.Currency)
}

// Equal returns true if both Money values are equal (same amount and currency).
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.SameCurrency(other)
}

// LessThan returns true if this Money is less than other. Panics if currencies don't match.
func (m Money) LessThan(other Money) bool {
	m.assertSameCurrency(other)
	return m.Amount < other.Amount
}

// GreaterThan returns true if this Money is greater than other. Panics if currencies don't match.
func (m Money) GreaterThan(other Money) bool {
	m.assertSameCurrency(other)
	return m.Amount > other.Amount
}

// FormatMajor renders the amount in major units without a symbol:
// "250.00" for USD(25000), "100" for JPY(100).
func (m Money) FormatMajor() string {
	decimals := currencyDecimals(m.Currency)

	sign := ""
	abs := uint64(m.Amount)
	if m.Amount < 0 {
		sign = "-"
		abs = uint64(-(m.Amount + 1)) + 1
	}
	if decimals == 0 {
		return fmt.Sprintf("%s%d", sign, abs)
	}

	divisor := uint64(1)
	for range decimals {
		divisor *= 10
	}
	return fmt.Sprintf("%s%d.%0*d", sign, abs/divisor, decimals, abs%divisor)
}

// String returns the amount with its currency symbol, e.g. "$250.00".
func (m Money) String() string {
	return currencySymbol(m.Currency) + m.FormatMajor()
}

// MarshalJSON implements json.Marshaler. The display field is output only.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

func (m Money) assertSameCurrency(other Money) {
	if !m.SameCurrency(other) {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
}

var symbols = map[string]string{
	"usd": "$",
	"eur": "€",
	"gbp": "£",
	"jpy": "¥",
	"cad": "C$",
	"aud": "A$",
	"nzd": "NZ$",
	"chf": "CHF ",
}

func currencySymbol(currency string) string {
	if sym, ok := symbols[strings.ToLower(currency)]; ok {
		return sym
	}
	return strings.ToUpper(currency) + " "
}

var zeroDecimal = map[string]bool{
	"jpy": true,
	"krw": true,
	"vnd": true,
	"clp": true,
	"pyg": true,
	"idr": true,
}

func currencyDecimals(currency string) int {
	if zeroDecimal[strings.ToLower(currency)] {
		return 0
	}
	return 2
}

// Sum adds values that all share currency. An empty list sums to
// Zero(currency).
func Sum(currency string, values ...Money) (Money, error) {
	total := Zero(currency)
	for _, v := range values {
		var err error
		if total, err = total.CheckedAdd(v); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}

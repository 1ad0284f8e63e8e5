// Package money holds the ledger's amount type. Amounts are stored and
// summed as int64 minor units (grosze); decimal text only appears at the
// edges (JSON, exports, operator output).
package money

import (
	"bytes"
	"errors"
	"fmt"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the only currency the ledger records.
const Currency = gomoney.PLN

// scale is the number of fractional digits of the currency.
const scale = 2

var (
	ErrTooPrecise = errors.New("amount has more than 2 fractional digits")
	ErrMalformed  = errors.New("amount is not a decimal number")
	ErrOutOfRange = errors.New("amount is outside the representable range")
)

// Amount is a value in minor units of Currency.
type Amount int64

// Parse reads a decimal string such as "1234.5" into minor units.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return FromDecimal(d)
}

// FromDecimal converts a major-unit decimal into minor units, rejecting
// values that would need rounding or do not fit in int64 minor units.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	if !d.Equal(d.Round(scale)) {
		return 0, ErrTooPrecise
	}
	minor := d.Shift(scale)
	if !minor.BigInt().IsInt64() {
		return 0, ErrOutOfRange
	}
	return Amount(minor.IntPart()), nil
}

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -scale)
}

// String renders the plain decimal form, e.g. "1234.50".
func (a Amount) String() string {
	return a.Decimal().StringFixed(scale)
}

// Format renders the amount the way a Polish reader expects it, e.g. "1 234,50 zł".
func (a Amount) Format() string {
	return gomoney.New(int64(a), Currency).Display()
}

// Neg returns the amount with the sign flipped.
func (a Amount) Neg() Amount {
	return -a
}

// MarshalJSON writes the amount as a decimal string so clients never see minor units.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*a = 0
		return nil
	}
	parsed, err := Parse(string(raw))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Package money provides the kernel's sole numeric value type. It embeds
// no rounding policy and no currency formatting; both are delegated to
// store extensions.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrCurrencyMismatch is returned when an arithmetic operation is attempted
// between two Money values of different currencies.
var ErrCurrencyMismatch = errors.New("money: currency mismatch")

// ErrBlankCurrency is returned when a Money value is constructed with an
// empty currency code.
var ErrBlankCurrency = errors.New("money: currency must not be blank")

// Money is an immutable (amount, currency) pair. Arithmetic never rounds;
// it fails outright when currencies differ.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// New constructs a Money value. currency is stored verbatim — the kernel
// performs no ISO-4217 normalization or validation of its own.
func New(amount decimal.Decimal, currency string) (Money, error) {
	if currency == "" {
		return Money{}, ErrBlankCurrency
	}
	return Money{amount: amount, currency: currency}, nil
}

// MustNew is New without an error return, for construction from literal
// constants known to be valid at compile time (tests, fixtures).
func MustNew(amount decimal.Decimal, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns the additive identity in the given currency.
func Zero(currency string) Money {
	return MustNew(decimal.Zero, currency)
}

// Amount returns the underlying decimal amount.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the ISO-4217-shaped currency code, verbatim.
func (m Money) Currency() string { return m.currency }

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// Sign returns -1, 0, or 1 per decimal.Decimal.Sign semantics.
func (m Money) Sign() int { return m.amount.Sign() }

// Negate returns the additive inverse in the same currency.
func (m Money) Negate() Money {
	return Money{amount: m.amount.Neg(), currency: m.currency}
}

// Add returns m+other. Fails when currencies differ.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Sub returns m-other. Fails when currencies differ.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// MulInt returns m scaled by an integer quantity. No rounding is involved;
// decimal.Decimal.Mul is exact.
func (m Money) MulInt(quantity int64) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(quantity)), currency: m.currency}
}

// Cmp compares m to other. Fails when currencies differ.
func (m Money) Cmp(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

// MaxZero returns m if m is non-negative, else Zero(m.Currency()).
func (m Money) MaxZero() Money {
	if m.amount.Sign() < 0 {
		return Zero(m.currency)
	}
	return m
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return nil
}

// String renders the raw decimal amount followed by the currency code. It
// is a debugging aid only — culture-aware formatting is delegated to a
// store's CurrencyFormatter.
func (m Money) String() string {
	return m.amount.String() + " " + m.currency
}

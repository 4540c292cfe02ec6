package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Arithmetic failures on checked operations. Reserve-affecting paths must
// treat these as hard failures, never as values to clamp.
var (
	ErrOverflow  = errors.New("amount overflow")
	ErrUnderflow = errors.New("amount underflow")
)

// Decimals is the fixed-point scale: amounts are held in attos (10^-18).
const Decimals = 18

// maxAttos caps amounts at the native 128-bit width. Products of two amounts
// therefore always fit in a 256-bit intermediate.
var maxAttos = func() *uint256.Int {
	one := uint256.NewInt(1)
	max := new(uint256.Int).Lsh(one, 128)
	return max.Sub(max, one)
}()

var attosPerUnit = func() *uint256.Int {
	v := uint256.NewInt(10)
	return v.Exp(v, uint256.NewInt(Decimals))
}()

// Amount is a non-negative fixed-point token quantity in attos, capped at
// 2^128-1. The zero value is zero.
type Amount struct {
	v uint256.Int
}

// Zero returns the zero amount.
func Zero() Amount {
	return Amount{}
}

// Max returns the largest representable amount.
func Max() Amount {
	var a Amount
	a.v.Set(maxAttos)
	return a
}

// FromAttos builds an amount from a raw atto count.
func FromAttos(attos uint64) Amount {
	var a Amount
	a.v.SetUint64(attos)
	return a
}

// FromAttosU256 narrows a wide intermediate back into the amount domain,
// failing if it exceeds the 128-bit cap.
func FromAttosU256(v *uint256.Int) (Amount, error) {
	if v.Gt(maxAttos) {
		return Amount{}, fmt.Errorf("%w: %s attos exceeds 128-bit cap", ErrOverflow, v.Dec())
	}
	var a Amount
	a.v.Set(v)
	return a, nil
}

// Parse reads a unit-scale decimal string such as "21.2342" into an amount.
// At most 18 fractional digits are accepted.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return Amount{}, fmt.Errorf("negative amount: %s", s)
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > Decimals {
		return Amount{}, fmt.Errorf("too many fractional digits in %q", s)
	}

	whole, err := uint256.FromDecimal(intPart)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	attos, overflow := new(uint256.Int).MulOverflow(whole, attosPerUnit)
	if overflow {
		return Amount{}, fmt.Errorf("%w: %q", ErrOverflow, s)
	}

	if fracPart != "" {
		frac, err := uint256.FromDecimal(fracPart)
		if err != nil {
			return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
		}
		scale := uint256.NewInt(10)
		scale.Exp(scale, uint256.NewInt(uint64(Decimals-len(fracPart))))
		frac.Mul(frac, scale)
		if _, overflow := attos.AddOverflow(attos, frac); overflow {
			return Amount{}, fmt.Errorf("%w: %q", ErrOverflow, s)
		}
	}

	return FromAttosU256(attos)
}

// MustParse is Parse for literals in tests and fixtures; it panics on error.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String renders the amount at unit scale with trailing zeros trimmed.
func (a Amount) String() string {
	return a.Decimal().String()
}

// Decimal returns the exact unit-scale value.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(a.v.ToBig(), -Decimals)
}

// Attos returns the raw atto count as a big.Int copy.
func (a Amount) Attos() *big.Int {
	return a.v.ToBig()
}

// U256 returns a wide copy for use as a 256-bit intermediate.
func (a Amount) U256() *uint256.Int {
	return new(uint256.Int).Set(&a.v)
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Cmp compares a against b: -1 if a < b, 0 if equal, 1 if a > b.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

// Add returns a+b, failing on overflow past the 128-bit cap.
func (a Amount) Add(b Amount) (Amount, error) {
	sum, overflow := new(uint256.Int).AddOverflow(&a.v, &b.v)
	if overflow {
		return Amount{}, fmt.Errorf("%w: %s + %s", ErrOverflow, a, b)
	}
	return FromAttosU256(sum)
}

// Sub returns a-b, failing on underflow.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.v.Lt(&b.v) {
		return Amount{}, fmt.Errorf("%w: %s - %s", ErrUnderflow, a, b)
	}
	diff := new(uint256.Int).Sub(&a.v, &b.v)
	return FromAttosU256(diff)
}

// SaturatingAdd returns a+b capped at the maximum representable amount.
func (a Amount) SaturatingAdd(b Amount) Amount {
	sum, overflow := new(uint256.Int).AddOverflow(&a.v, &b.v)
	if overflow || sum.Gt(maxAttos) {
		return Max()
	}
	var out Amount
	out.v.Set(sum)
	return out
}

// SaturatingSub returns a-b floored at zero.
func (a Amount) SaturatingSub(b Amount) Amount {
	if a.v.Lt(&b.v) {
		return Amount{}
	}
	var out Amount
	out.v.Sub(&a.v, &b.v)
	return out
}

// MarshalText encodes the amount as its unit-scale decimal string.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a unit-scale decimal string.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

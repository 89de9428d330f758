// internal/curve/math.go
package curve

import (
	"errors"
	"math"
	"math/big"
)

const (
	// Precision scales the slope of the linear curve.
	Precision = 1_000_000_000
	// BpsDenominator is 100% expressed in basis points.
	BpsDenominator = 10_000
)

var (
	ErrDivisionByZero  = errors.New("curve: division by zero")
	ErrOverflow        = errors.New("curve: result overflows uint64")
	ErrSupplyUnderflow = errors.New("curve: amount exceeds circulating supply")
)

// Rounding selects the direction of integer division.
type Rounding int

const (
	RoundDown Rounding = iota
	RoundUp
)

var maxUint64 = new(big.Int).SetUint64(math.MaxUint64)

// MulDivBig returns x*y/denominator on arbitrary precision integers.
func MulDivBig(x, y, denominator *big.Int, rounding Rounding) (*big.Int, error) {
	if denominator.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	prod := new(big.Int).Mul(x, y)
	return divRound(prod, denominator, rounding), nil
}

func divRound(num, den *big.Int, rounding Rounding) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if rounding == RoundUp && r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// MulDiv returns floor(a*b/c) computed with a full-width intermediate.
func MulDiv(a, b, c uint64) (uint64, error) {
	return mulDiv(a, b, c, RoundDown)
}

// MulDivUp returns ceil(a*b/c) computed with a full-width intermediate.
func MulDivUp(a, b, c uint64) (uint64, error) {
	return mulDiv(a, b, c, RoundUp)
}

func mulDiv(a, b, c uint64, rounding Rounding) (uint64, error) {
	res, err := MulDivBig(u(a), u(b), u(c), rounding)
	if err != nil {
		return 0, err
	}
	return toUint64(res)
}

// Bps returns floor(amount*bps/10000). Values of bps above 10000 saturate
// at math.MaxUint64 when the product does not fit.
func Bps(amount, bps uint64) uint64 {
	res, _ := MulDivBig(u(amount), u(bps), u(BpsDenominator), RoundDown)
	if res.Cmp(maxUint64) > 0 {
		return math.MaxUint64
	}
	return res.Uint64()
}

// AfterFee returns amount minus its bps fee.
func AfterFee(amount, bps uint64) uint64 {
	fee := Bps(amount, bps)
	if fee > amount {
		return 0
	}
	return amount - fee
}

// ISqrt returns floor(sqrt(x)) for any non-negative x.
func ISqrt(x *big.Int) *big.Int {
	if x.Sign() <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Sqrt(x)
}

// ISqrt64 is ISqrt for uint64 inputs.
func ISqrt64(x uint64) uint64 {
	return ISqrt(u(x)).Uint64()
}

func u(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

func toUint64(v *big.Int) (uint64, error) {
	if v.Sign() < 0 || v.Cmp(maxUint64) > 0 {
		return 0, ErrOverflow
	}
	return v.Uint64(), nil
}

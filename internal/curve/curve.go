// internal/curve/curve.go
package curve

import (
	"math/big"
)

// Params describes a linear bonding curve: price = base + slope*supply/Precision.
type Params struct {
	BasePrice uint64 `mapstructure:"base_price" json:"base_price"`
	Slope     uint64 `mapstructure:"slope" json:"slope"`
}

var twoPrecision = big.NewInt(2 * Precision)

// Price returns the spot price at the given circulating supply.
func Price(base, slope, supply uint64) (uint64, error) {
	p := new(big.Int).Mul(u(slope), u(supply))
	p.Quo(p, big.NewInt(Precision))
	p.Add(p, u(base))
	return toUint64(p)
}

// Area returns the integral of price over [0, supply], floored.
func Area(base, slope, supply uint64) *big.Int {
	s := u(supply)
	linear := new(big.Int).Mul(u(base), s)
	quad := new(big.Int).Mul(s, s)
	quad.Mul(quad, u(slope))
	quad.Quo(quad, twoPrecision)
	return linear.Add(linear, quad)
}

// costNumerator is 2*Precision times the exact cost of moving supply from s to s+delta.
func costNumerator(base, slope, supply uint64, delta *big.Int) *big.Int {
	s := u(supply)
	// 2*P*base*delta
	n := new(big.Int).Mul(twoPrecision, u(base))
	n.Mul(n, delta)
	// slope*(2*s*delta + delta^2)
	q := new(big.Int).Mul(s, delta)
	q.Lsh(q, 1)
	q.Add(q, new(big.Int).Mul(delta, delta))
	q.Mul(q, u(slope))
	return n.Add(n, q)
}

// CostToBuy returns the base amount needed to mint delta tokens at supply,
// rounded up.
func CostToBuy(base, slope, supply, delta uint64) (uint64, error) {
	n := costNumerator(base, slope, supply, u(delta))
	return toUint64(divRound(n, twoPrecision, RoundUp))
}

// TokensOut returns the largest delta whose rounded-up cost does not exceed amountIn.
func TokensOut(amountIn, supply, base, slope uint64) (uint64, error) {
	if amountIn == 0 {
		return 0, nil
	}
	if slope == 0 {
		if base == 0 {
			return 0, ErrDivisionByZero
		}
		return amountIn / base, nil
	}

	// slope*d^2 + (2*P*base + 2*slope*s)*d - 2*P*amountIn <= 0
	limit := new(big.Int).Mul(twoPrecision, u(amountIn))
	b := new(big.Int).Mul(twoPrecision, u(base))
	b.Add(b, new(big.Int).Lsh(new(big.Int).Mul(u(slope), u(supply)), 1))

	disc := new(big.Int).Mul(b, b)
	disc.Add(disc, new(big.Int).Lsh(new(big.Int).Mul(u(slope), limit), 2))

	delta := ISqrt(disc)
	delta.Sub(delta, b)
	if delta.Sign() < 0 {
		delta.SetInt64(0)
	}
	delta.Quo(delta, new(big.Int).Lsh(u(slope), 1))

	one := big.NewInt(1)
	for delta.Sign() > 0 && costNumerator(base, slope, supply, delta).Cmp(limit) > 0 {
		delta.Sub(delta, one)
	}
	for {
		next := new(big.Int).Add(delta, one)
		if costNumerator(base, slope, supply, next).Cmp(limit) > 0 {
			break
		}
		delta = next
	}
	return toUint64(delta)
}

// AmountOut returns the base amount released by burning tokensIn from supply,
// rounded down.
func AmountOut(tokensIn, supply, base, slope uint64) (uint64, error) {
	if tokensIn > supply {
		return 0, ErrSupplyUnderflow
	}
	t := u(tokensIn)
	s := u(supply)
	// 2*P*base*t + slope*(2*s*t - t^2)
	n := new(big.Int).Mul(twoPrecision, u(base))
	n.Mul(n, t)
	q := new(big.Int).Lsh(new(big.Int).Mul(s, t), 1)
	q.Sub(q, new(big.Int).Mul(t, t))
	q.Mul(q, u(slope))
	n.Add(n, q)
	return toUint64(n.Quo(n, twoPrecision))
}

// MarketCap values the full supply at the spot price for the current circulation.
func MarketCap(base, slope, circulating, totalSupply uint64) (*big.Int, error) {
	p, err := Price(base, slope, circulating)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Mul(u(p), u(totalSupply)), nil
}

package curve

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice(t *testing.T) {
	p, err := Price(1_000, 1_000_000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), p, "price at zero supply must equal base")

	prev := uint64(0)
	for _, supply := range []uint64{0, 1, 999, 1_000, 1_000_000, 5_000_000_000, 1_000_000_000_000} {
		p, err := Price(1_000, 1_000_000, supply)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, prev, "price must be non-decreasing (supply %d)", supply)
		prev = p
	}

	_, err = Price(math.MaxUint64, 1, Precision)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestArea(t *testing.T) {
	assert.Equal(t, int64(0), Area(1_000, 1_000_000, 0).Int64())
	// base*s + slope*s^2/(2P) = 1000*1e6 + 1e6*1e12/2e9
	assert.Equal(t, int64(1_000_000_000+500_000_000), Area(1_000, 1_000_000, 1_000_000).Int64())
}

func TestTokensOut_FlatCurveRoundTrip(t *testing.T) {
	tokens, err := TokensOut(10_000, 0, 1_000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), tokens)

	back, err := AmountOut(tokens, tokens, 1_000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), back)
}

func TestTokensOut_ZeroCurve(t *testing.T) {
	_, err := TokensOut(10, 0, 0, 0)
	assert.ErrorIs(t, err, ErrDivisionByZero)

	tokens, err := TokensOut(0, 123, 1_000, 5)
	require.NoError(t, err)
	assert.Zero(t, tokens)
}

func TestTokensOut_IsMaximalAndFavorsPool(t *testing.T) {
	cases := []struct {
		name     string
		amountIn uint64
		supply   uint64
		base     uint64
		slope    uint64
	}{
		{"small", 9_750_000_000, 0, 1_000, 1_000_000},
		{"mid curve", 1_000_000_000_000, 300_000_000, 1_000, 1_000_000},
		{"steep", 77_777, 42, 1, 1_000_000_000_000},
		{"large", 50_000_000_000_000, 10_000_000, 1_000, 1_000_000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			delta, err := TokensOut(tc.amountIn, tc.supply, tc.base, tc.slope)
			require.NoError(t, err)

			cost, err := CostToBuy(tc.base, tc.slope, tc.supply, delta)
			require.NoError(t, err)
			assert.LessOrEqual(t, cost, tc.amountIn)

			next, err := CostToBuy(tc.base, tc.slope, tc.supply, delta+1)
			require.NoError(t, err)
			assert.Greater(t, next, tc.amountIn, "one more token must cost more than amountIn")

			// Selling what was bought never returns more than was paid.
			out, err := AmountOut(delta, tc.supply+delta, tc.base, tc.slope)
			require.NoError(t, err)
			assert.LessOrEqual(t, out, tc.amountIn)
		})
	}
}

func TestAmountOut_Underflow(t *testing.T) {
	_, err := AmountOut(11, 10, 1_000, 0)
	assert.ErrorIs(t, err, ErrSupplyUnderflow)
}

func TestMulDiv(t *testing.T) {
	v, err := MulDiv(math.MaxUint64, math.MaxUint64, math.MaxUint64)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), v)

	v, err = MulDiv(10, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)

	v, err = MulDivUp(10, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), v)

	v, err = MulDivUp(10, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), v)

	_, err = MulDiv(1, 1, 0)
	assert.ErrorIs(t, err, ErrDivisionByZero)
	_, err = MulDivUp(1, 1, 0)
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = MulDiv(math.MaxUint64, 2, 1)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestBps(t *testing.T) {
	assert.Equal(t, uint64(50_000_000), Bps(10_000_000_000, 50))
	assert.Equal(t, uint64(200_000_000), Bps(10_000_000_000, 200))
	assert.Equal(t, uint64(9_950_000_000), AfterFee(10_000_000_000, 50))
	assert.Equal(t, uint64(0), Bps(99, 1))
	assert.Equal(t, uint64(math.MaxUint64), Bps(math.MaxUint64, 10_000))
}

func TestISqrt(t *testing.T) {
	assert.Equal(t, uint64(0), ISqrt64(0))
	assert.Equal(t, uint64(1), ISqrt64(3))
	assert.Equal(t, uint64(2), ISqrt64(4))
	assert.Equal(t, uint64(4294967295), ISqrt64(math.MaxUint64))

	// (2^100 + 1)^2 - 1 floors to 2^100.
	root := new(big.Int).Lsh(big.NewInt(1), 100)
	root.Add(root, big.NewInt(1))
	sq := new(big.Int).Mul(root, root)
	sq.Sub(sq, big.NewInt(1))
	want := new(big.Int).Lsh(big.NewInt(1), 100)
	assert.Equal(t, 0, ISqrt(sq).Cmp(want))

	assert.Equal(t, int64(0), ISqrt(big.NewInt(-5)).Int64())
}

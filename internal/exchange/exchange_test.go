package exchange

import (
	"context"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
)

var (
	cpProgram = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")
	clProgram = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")
)

func TestConstantProduct(t *testing.T) {
	ctx := context.Background()
	amm := NewConstantProduct(cpProgram, zaptest.NewLogger(t))
	mint := solana.NewWallet().PublicKey()

	liq, err := amm.CreateLiquidity(ctx, mint, 4_000_000, 9_000_000)
	require.NoError(t, err)
	assert.Equal(t, KindFungible, liq.Kind)
	assert.Equal(t, uint64(6_000_000), liq.LPAmount)
	assert.False(t, liq.PoolID.IsZero())

	base, tokens, supply, ok := amm.Reserves(mint)
	require.True(t, ok)
	assert.Equal(t, []uint64{4_000_000, 9_000_000, 6_000_000}, []uint64{base, tokens, supply})

	require.NoError(t, amm.RemoveLiquidity(ctx, liq))
	_, _, _, ok = amm.Reserves(mint)
	assert.False(t, ok)
	assert.ErrorIs(t, amm.RemoveLiquidity(ctx, liq), ErrUnknownLiquidity)

	_, err = amm.CreateLiquidity(ctx, mint, 0, 1)
	assert.ErrorIs(t, err, ErrEmptyLiquidity)
}

func TestConstantProduct_OverflowIsReported(t *testing.T) {
	ctx := context.Background()
	amm := NewConstantProduct(cpProgram, zaptest.NewLogger(t))
	mint := solana.NewWallet().PublicKey()

	first, err := amm.CreateLiquidity(ctx, mint, 1, 1<<32)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<16), first.LPAmount)

	_, err = amm.CreateLiquidity(ctx, mint, 1<<60, 1)
	assert.ErrorIs(t, err, curve.ErrOverflow)
	assert.NotErrorIs(t, err, ErrEmptyLiquidity)

	_, err = amm.CreateLiquidity(ctx, mint, math.MaxUint64, 1<<32)
	assert.ErrorIs(t, err, curve.ErrOverflow)

	base, tokens, supply, ok := amm.Reserves(mint)
	require.True(t, ok)
	assert.Equal(t, []uint64{1, 1 << 32, 1 << 16}, []uint64{base, tokens, supply}, "failed deposits change nothing")
}

func TestConcentrated_OnePositionPerDeposit(t *testing.T) {
	ctx := context.Background()
	amm := NewConcentrated(clProgram, zaptest.NewLogger(t))
	mint := solana.NewWallet().PublicKey()

	a, err := amm.CreateLiquidity(ctx, mint, 100, 100)
	require.NoError(t, err)
	b, err := amm.CreateLiquidity(ctx, mint, 400, 100)
	require.NoError(t, err)

	assert.Equal(t, KindPosition, a.Kind)
	assert.NotEqual(t, a.Position, b.Position)
	assert.Equal(t, a.PoolID, b.PoolID)
	assert.Equal(t, uint64(200), b.LPAmount)
	assert.Equal(t, 2, amm.OpenPositions())

	owner, err := amm.PositionOwner(a.Position)
	require.NoError(t, err)
	assert.True(t, owner.IsZero())

	treasury := solana.NewWallet().PublicKey()
	previous, err := amm.TransferPosition(a, treasury)
	require.NoError(t, err)
	assert.True(t, previous.IsZero())
	owner, err = amm.PositionOwner(a.Position)
	require.NoError(t, err)
	assert.Equal(t, treasury, owner)

	require.NoError(t, amm.RemoveLiquidity(ctx, a))
	assert.Equal(t, 1, amm.OpenPositions())
	_, err = amm.TransferPosition(a, treasury)
	assert.ErrorIs(t, err, ErrUnknownLiquidity)
	_, err = amm.PositionOwner(a.Position)
	assert.ErrorIs(t, err, ErrUnknownLiquidity)
}

func TestFactory(t *testing.T) {
	logger := zaptest.NewLogger(t)
	set, err := NewSet(map[string]solana.PublicKey{"cpamm": cpProgram, "clmm": clProgram}, logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"clmm", "cpamm"}, set.IDs())

	a, err := set.Get(" CPAMM ")
	require.NoError(t, err)
	assert.Equal(t, cpProgram, a.ProgramID())

	_, err = set.Get("orderbook")
	assert.ErrorIs(t, err, ErrUnknownExchange)

	_, err = New("orderbook", cpProgram, logger)
	assert.ErrorIs(t, err, ErrUnknownExchange)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.CreateLiquidity(ctx, solana.NewWallet().PublicKey(), 1, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

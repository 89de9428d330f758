package registry

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry(symbol string) Entry {
	return Entry{
		Pool:              solana.NewWallet().PublicKey(),
		Mint:              solana.NewWallet().PublicKey(),
		Symbol:            symbol,
		Exchange:          "cpamm",
		ExchangePool:      solana.NewWallet().PublicKey(),
		LPKind:            "fungible",
		BaseToLiquidity:   18_000_000_000_000_000_000,
		TokensToLiquidity: 700_000_000,
		TotalLP:           1_000_000,
		CreatorLP:         25_000,
		ProtocolLP:        25_000,
		CommunityLP:       950_000,
		StakingPool:       solana.NewWallet().PublicKey(),
		GraduationFee:     1_380_000_000_000,
		GraduatedAt:       time.Unix(1_700_000_000, 0).UTC(),
	}
}

// exerciseStore runs the behaviour every Store must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	first := sampleEntry("AAA")
	second := sampleEntry("BBB")
	second.Positions = []string{"p-1", "p-2"}
	second.LPKind = "position"

	require.NoError(t, store.Record(ctx, first))
	require.NoError(t, store.Record(ctx, second))
	assert.ErrorIs(t, store.Record(ctx, first), ErrDuplicateKey)

	got, err := store.Get(ctx, second.Pool)
	require.NoError(t, err)
	assert.Equal(t, second.Symbol, got.Symbol)
	assert.Equal(t, second.Positions, got.Positions)
	assert.Equal(t, second.BaseToLiquidity, got.BaseToLiquidity)
	assert.Equal(t, second.ExchangePool, got.ExchangePool)
	assert.True(t, got.Governance.IsZero())
	assert.True(t, second.GraduatedAt.Equal(got.GraduatedAt))

	_, err = store.Get(ctx, solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "AAA", all[0].Symbol)
	assert.Equal(t, "BBB", all[1].Symbol)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, "36000000000000000000", TotalLiquidity(all).String())
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_CopiesPositions(t *testing.T) {
	store := NewMemoryStore()
	e := sampleEntry("CCC")
	e.Positions = []string{"a"}
	require.NoError(t, store.Record(context.Background(), e))
	e.Positions[0] = "mutated"

	got, err := store.Get(context.Background(), e.Pool)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Positions)

	got.Positions[0] = "rewritten"
	again, err := store.Get(context.Background(), e.Pool)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again.Positions)

	list, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	list[0].Positions[0] = "rewritten"
	again, err = store.Get(context.Background(), e.Pool)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again.Positions)
}

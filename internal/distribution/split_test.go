package distribution

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_CreatorProtocolCommunity(t *testing.T) {
	shares, err := Split(1_000_000, 250, 250)
	require.NoError(t, err)
	assert.Equal(t, []uint64{25_000, 25_000, 950_000}, shares)
}

func TestSplit_ResidueGoesToLastShare(t *testing.T) {
	shares, err := Split(999, 3333, 3333)
	require.NoError(t, err)
	assert.Equal(t, []uint64{332, 332, 335}, shares)
}

func TestSplit_AlwaysSumsToTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		total := rng.Uint64()
		a := uint64(rng.Intn(5001))
		b := uint64(rng.Intn(5001))
		shares, err := Split(total, a, b)
		require.NoError(t, err)
		assert.Equal(t, total, shares[0]+shares[1]+shares[2], "total=%d a=%d b=%d", total, a, b)
	}
}

func TestSplit_RejectsOverAllocation(t *testing.T) {
	_, err := Split(100, 6000, 4001)
	assert.ErrorIs(t, err, ErrBpsExceeded)

	for _, bps := range [][]uint64{
		{math.MaxUint64, 2},
		{2, math.MaxUint64},
		{math.MaxUint64 - 9_999, 10_000},
		{10_001},
	} {
		shares, err := Split(1_000_000, bps...)
		assert.ErrorIs(t, err, ErrBpsExceeded, "%v", bps)
		assert.Nil(t, shares)
	}

	shares, err := Split(100, 6000, 4000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), shares[2])
}

func TestSplitLP(t *testing.T) {
	s, err := SplitLP(1_000_000, 250, 250)
	require.NoError(t, err)
	assert.Equal(t, Shares{Creator: 25_000, Protocol: 25_000, Community: 950_000}, s)
	assert.Equal(t, uint64(1_000_000), s.Total())
}

func TestSplitDeposits(t *testing.T) {
	d, err := SplitDeposits(4_000, 1_000_001, 1_000, 500)
	require.NoError(t, err)
	assert.Equal(t, Deposit{Base: 400, Tokens: 100_000}, d.Creator)
	assert.Equal(t, Deposit{Base: 200, Tokens: 50_000}, d.Protocol)
	assert.Equal(t, Deposit{Base: 3_400, Tokens: 850_001}, d.Community)
	assert.True(t, Deposit{}.IsZero())
}

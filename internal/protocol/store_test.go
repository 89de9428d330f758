package protocol

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/curve-launchpad/internal/auth"
)

type storeFixture struct {
	store    *Store
	authz    *auth.Authorizer
	adminKey solana.PrivateKey
	now      time.Time
}

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()
	adminKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	f := &storeFixture{adminKey: adminKey, now: time.Unix(1_700_000_000, 0)}
	f.authz = auth.NewAuthorizer(zaptest.NewLogger(t), adminKey.PublicKey())
	f.authz.SetClock(func() time.Time { return f.now })

	f.store, err = NewStore(DefaultConfig(), f.authz, zaptest.NewLogger(t))
	require.NoError(t, err)
	return f
}

func (f *storeFixture) cred(t *testing.T, role auth.Role) auth.Credential {
	t.Helper()
	c, err := auth.Sign(f.adminKey, role, f.now)
	require.NoError(t, err)
	return c
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, Validate(DefaultConfig()))
}

func TestStore_CreatorLpBpsBounds(t *testing.T) {
	f := newStoreFixture(t)
	admin := f.cred(t, auth.RoleAdmin)

	lp := f.store.Snapshot().LP
	lp.CreatorLpBps = 3001
	err := f.store.SetLPDistribution(admin, lp)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, uint64(250), f.store.Snapshot().LP.CreatorLpBps, "failed update must commit nothing")

	lp.CreatorLpBps = 3000
	require.NoError(t, f.store.SetLPDistribution(admin, lp))
	assert.Equal(t, uint64(3000), f.store.Snapshot().LP.CreatorLpBps)
}

func TestStore_PlatformGraduationBpsBounds(t *testing.T) {
	f := newStoreFixture(t)
	admin := f.cred(t, auth.RoleAdmin)

	err := f.store.SetGraduationAllocation(admin, GraduationAllocation{CreatorBps: 0, PlatformBps: 249})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, f.store.SetGraduationAllocation(admin, GraduationAllocation{CreatorBps: 0, PlatformBps: 250}))
	assert.Equal(t, uint64(250), f.store.Snapshot().Graduation.PlatformBps)

	err = f.store.SetGraduationAllocation(admin, GraduationAllocation{CreatorBps: 501, PlatformBps: 250})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidators(t *testing.T) {
	base := DefaultConfig()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"trading fee at max", func(c *Config) { c.Fees.TradingFeeBps = 1000 }, false},
		{"trading fee above max", func(c *Config) { c.Fees.TradingFeeBps = 1001 }, true},
		{"creation fee below min", func(c *Config) { c.Fees.CreationFee = MinCreationFee - 1 }, true},
		{"creation fee at min", func(c *Config) { c.Fees.CreationFee = MinCreationFee }, false},
		{"graduation allocation sum", func(c *Config) { c.Graduation = GraduationAllocation{CreatorBps: 500, PlatformBps: 500} }, false},
		{"platform graduation above max", func(c *Config) { c.Graduation.PlatformBps = 501 }, true},
		{"community destination enum", func(c *Config) { c.LP.CommunityLpDestination = 4 }, true},
		{"dao destination enum", func(c *Config) { c.LP.DaoLpDestination = 3 }, false},
		{"staking reward above max", func(c *Config) { c.Staking.RewardBps = 1001 }, true},
		{"staking duration too short", func(c *Config) { c.Staking.DurationMs = 7*day - 1 }, true},
		{"staking duration at max", func(c *Config) { c.Staking.DurationMs = 2 * year }, false},
		{"staking duration too long", func(c *Config) { c.Staking.DurationMs = 2*year + 1 }, true},
		{"staking min duration too long", func(c *Config) { c.Staking.MinDurationMs = 30*day + 1 }, true},
		{"early exit fee", func(c *Config) { c.Staking.EarlyExitFeeBps = 501 }, true},
		{"unstake fee", func(c *Config) { c.Staking.UnstakeFeeBps = 500 }, false},
		{"staking admin destination", func(c *Config) { c.Staking.AdminDestination = 3 }, true},
		{"reward type", func(c *Config) { c.Staking.RewardType = 3 }, true},
		{"dao quorum", func(c *Config) { c.DAO.QuorumBps = 5001 }, true},
		{"dao proposal threshold", func(c *Config) { c.DAO.ProposalThresholdBps = 1001 }, true},
		{"voting delay too short", func(c *Config) { c.DAO.VotingDelayMs = hour - 1 }, true},
		{"voting delay at max", func(c *Config) { c.DAO.VotingDelayMs = 7 * day }, false},
		{"voting period too long", func(c *Config) { c.DAO.VotingPeriodMs = 14*day + 1 }, true},
		{"timelock too short", func(c *Config) { c.DAO.TimelockDelayMs = hour - 1 }, true},
		{"dao admin destination", func(c *Config) { c.DAO.AdminDestination = 7 }, true},
		{"zero threshold", func(c *Config) { c.GraduationThreshold = 0 }, true},
		{"flat zero curve", func(c *Config) { c.Curve.BasePrice, c.Curve.Slope = 0, 0 }, true},
		{"zero base price with slope", func(c *Config) { c.Curve.BasePrice, c.Curve.Slope = 0, 1_000_000 }, true},
		{"flat curve", func(c *Config) { c.Curve.Slope = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base.Clone()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStore_InvalidEnumIsTagged(t *testing.T) {
	err := ValidateStaking(Staking{DurationMs: 7 * day, RewardType: 9})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrInvalidEnum)
}

func TestStore_RequiresAdmin(t *testing.T) {
	f := newStoreFixture(t)
	other, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	cred, err := auth.Sign(other, auth.RoleAdmin, f.now)
	require.NoError(t, err)

	err = f.store.SetPaused(cred, true)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
	assert.False(t, f.store.Paused())
}

func TestStore_StakingAdminMaySetStaking(t *testing.T) {
	f := newStoreFixture(t)
	stakingKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	require.NoError(t, f.authz.Grant(f.cred(t, auth.RoleAdmin), stakingKey.PublicKey(), auth.RoleStakingAdmin))

	cred, err := auth.Sign(stakingKey, auth.RoleStakingAdmin, f.now)
	require.NoError(t, err)

	st := f.store.Snapshot().Staking
	st.RewardBps = 800
	require.NoError(t, f.store.SetStaking(cred, st))
	assert.Equal(t, uint64(800), f.store.Snapshot().Staking.RewardBps)

	// A staking admin cannot touch fees.
	assert.ErrorIs(t, f.store.SetFees(cred, f.store.Snapshot().Fees), auth.ErrUnauthorized)
}

func TestStore_ObserverAndVersion(t *testing.T) {
	f := newStoreFixture(t)
	var groups []string
	f.store.SetObserver(func(group string, _ solana.PublicKey, cfg Config) {
		groups = append(groups, group)
	})

	admin := f.cred(t, auth.RoleAdmin)
	require.NoError(t, f.store.SetPaused(admin, true))
	require.NoError(t, f.store.SetGraduationThreshold(admin, 10_000, 1_000))
	assert.Error(t, f.store.SetGraduationThreshold(admin, 0, 0))

	snap := f.store.Snapshot()
	assert.True(t, snap.Paused)
	assert.Equal(t, uint64(10_000), snap.GraduationThreshold)
	assert.Equal(t, uint64(2), snap.Version)
	assert.Equal(t, []string{"paused", "graduation_threshold"}, groups)
}

func TestStore_ExchangePackages(t *testing.T) {
	f := newStoreFixture(t)
	admin := f.cred(t, auth.RoleAdmin)

	pkg, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	require.NoError(t, f.store.SetExchangePackage(admin, "flowx", pkg.PublicKey()))
	assert.True(t, f.store.Snapshot().SupportsExchange("flowx"))

	assert.ErrorIs(t, f.store.SetExchangePackage(admin, "zero", solana.PublicKey{}), ErrValidation)

	require.NoError(t, f.store.RemoveExchangePackage(admin, "flowx"))
	assert.False(t, f.store.Snapshot().SupportsExchange("flowx"))
	assert.ErrorIs(t, f.store.RemoveExchangePackage(admin, "flowx"), ErrValidation)
}

func TestSnapshotIsolation(t *testing.T) {
	f := newStoreFixture(t)
	snap := f.store.Snapshot()
	delete(snap.ExchangePackages, ExchangeCPAMM)
	assert.True(t, f.store.Snapshot().SupportsExchange(ExchangeCPAMM))
}

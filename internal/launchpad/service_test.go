package launchpad

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/curve-launchpad/internal/auth"
	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/ledger"
	"github.com/rovshanmuradov/curve-launchpad/internal/metrics"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
	"github.com/rovshanmuradov/curve-launchpad/internal/protocol"
	"github.com/rovshanmuradov/curve-launchpad/internal/registry"
	"github.com/rovshanmuradov/curve-launchpad/internal/vesting"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) count(t events.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type() == t {
			n++
		}
	}
	return n
}

type flakyRegistry struct {
	registry.Store
	mu       sync.Mutex
	failures int
}

func (s *flakyRegistry) Record(ctx context.Context, e registry.Entry) error {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return errors.New("connection reset by peer")
	}
	s.mu.Unlock()
	return s.Store.Record(ctx, e)
}

type fixture struct {
	svc        *Service
	events     *recorder
	registry   *flakyRegistry
	adminKey   solana.PrivateKey
	opKey      solana.PrivateKey
	creatorKey solana.PrivateKey
	treasury   solana.PublicKey
	mu         sync.Mutex
	now        time.Time
}

func newKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

func testConfig() protocol.Config {
	cfg := protocol.DefaultConfig()
	cfg.GraduationThreshold = 50_000_000_000
	cfg.MinGraduationLiquidity = 10_000_000_000
	return cfg
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		events:     &recorder{},
		registry:   &flakyRegistry{Store: registry.NewMemoryStore()},
		adminKey:   newKey(t),
		opKey:      newKey(t),
		creatorKey: newKey(t),
		treasury:   solana.NewWallet().PublicKey(),
		now:        time.Unix(1_700_000_000, 0),
	}
	cfg := testConfig()
	cfg.Treasury = f.treasury

	svc, err := NewService(&ServiceConfig{
		Protocol:  cfg,
		Admins:    []solana.PublicKey{f.adminKey.PublicKey()},
		Operators: []solana.PublicKey{f.opKey.PublicKey()},
		Registry:  f.registry,
		Events:    f.events,
		Metrics:   metrics.NewCollector(),
		Logger:    zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	svc.SetClock(f.clock)
	f.svc = svc
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fixture) cred(t *testing.T, key solana.PrivateKey, role auth.Role) auth.Credential {
	t.Helper()
	c, err := auth.Sign(key, role, f.clock())
	require.NoError(t, err)
	return c
}

func (f *fixture) launch(t *testing.T, symbol string) solana.PublicKey {
	t.Helper()
	receipt, err := f.svc.CreateToken(f.creatorKey.PublicKey(), 2_000_000_000, pool.CreateParams{
		Name:          symbol + " Token",
		Symbol:        symbol,
		CreatorFeeBps: 100,
	})
	require.NoError(t, err)
	return receipt.State.ID
}

func (f *fixture) fill(t *testing.T, id solana.PublicKey) {
	t.Helper()
	buyer := solana.NewWallet().PublicKey()
	for {
		st, err := f.svc.Pool(id)
		require.NoError(t, err)
		if st.Ready(f.svc.Config().Snapshot().GraduationThreshold) {
			return
		}
		_, err = f.svc.Buy(buyer, id, 20_000_000_000, 0)
		require.NoError(t, err)
	}
}

func TestNewService_Rejects(t *testing.T) {
	_, err := NewService(&ServiceConfig{Protocol: protocol.DefaultConfig(), Logger: zaptest.NewLogger(t)})
	assert.Error(t, err, "admins are required")

	_, err = NewService(&ServiceConfig{Protocol: protocol.DefaultConfig(), Admins: []solana.PublicKey{solana.NewWallet().PublicKey()}})
	assert.Error(t, err, "logger is required")

	bad := protocol.DefaultConfig()
	bad.Fees.TradingFeeBps = 10_001
	_, err = NewService(&ServiceConfig{Protocol: bad, Admins: []solana.PublicKey{solana.NewWallet().PublicKey()}, Logger: zaptest.NewLogger(t)})
	assert.ErrorIs(t, err, protocol.ErrValidation)
}

func TestCreateToken_Directory(t *testing.T) {
	f := newFixture(t)
	id := f.launch(t, "MOON")

	st, err := f.svc.Pool(id)
	require.NoError(t, err)
	assert.Equal(t, "MOON", st.Symbol)
	assert.Equal(t, pool.StatusActive, st.Status)
	assert.Equal(t, uint64(1_000_000_000), f.svc.Ledger().Balance(f.treasury, ledger.BaseAsset))
	assert.Equal(t, uint64(1_000_000_000), f.svc.Ledger().Balance(f.creatorKey.PublicKey(), ledger.BaseAsset), "excess payment refunded")

	_, err = f.svc.CreateToken(f.creatorKey.PublicKey(), 2_000_000_000, pool.CreateParams{Name: "Again", Symbol: "MOON"})
	assert.ErrorIs(t, err, ErrPoolExists)

	f.launch(t, "SUN")
	pools := f.svc.Pools()
	require.Len(t, pools, 2)
	assert.Equal(t, "MOON", pools[0].Symbol)
	assert.Equal(t, "SUN", pools[1].Symbol)

	_, err = f.svc.Pool(solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrPoolNotFound)
	assert.Equal(t, 2, f.events.count(events.TokenCreated))
}

func TestBuySell(t *testing.T) {
	f := newFixture(t)
	id := f.launch(t, "TRADE")
	buyer := solana.NewWallet().PublicKey()

	quote, err := f.svc.QuoteBuy(id, 5_000_000_000)
	require.NoError(t, err)
	trade, err := f.svc.Buy(buyer, id, 5_000_000_000, quote.AmountOut)
	require.NoError(t, err)
	assert.Equal(t, quote.AmountOut, trade.AmountOut)

	st, err := f.svc.Pool(id)
	require.NoError(t, err)
	assert.Equal(t, trade.AmountOut, f.svc.Ledger().Balance(buyer, st.Mint))

	_, err = f.svc.Buy(buyer, id, 1_000_000_000, ^uint64(0))
	assert.ErrorIs(t, err, pool.ErrSlippage)

	half := trade.AmountOut / 2
	sq, err := f.svc.QuoteSell(id, half)
	require.NoError(t, err)
	sold, err := f.svc.Sell(buyer, id, half, sq.AmountOut)
	require.NoError(t, err)
	assert.Equal(t, trade.AmountOut-half, f.svc.Ledger().Balance(buyer, st.Mint))
	assert.Equal(t, sq.AmountOut, f.svc.Ledger().Balance(buyer, ledger.BaseAsset))
	assert.Equal(t, pool.SideSell, sold.Side)

	_, err = f.svc.Sell(solana.NewWallet().PublicKey(), id, 1, 0)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	_, err = f.svc.Buy(buyer, solana.NewWallet().PublicKey(), 1, 0)
	assert.ErrorIs(t, err, ErrPoolNotFound)

	assert.Equal(t, 2, f.events.count(events.TradeExecuted))
	n, err := testutil.GatherAndCount(f.svc.Metrics().Registry(), "launchpad_trades_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series per side")
}

func TestSetPaused(t *testing.T) {
	f := newFixture(t)
	id := f.launch(t, "PAUSE")
	admin := f.cred(t, f.adminKey, auth.RoleAdmin)

	require.NoError(t, f.svc.SetPaused(admin, id, true))
	require.NoError(t, f.svc.SetPaused(admin, id, true))
	assert.Equal(t, 1, f.events.count(events.PoolPaused), "repeating the flag publishes nothing")

	_, err := f.svc.Buy(solana.NewWallet().PublicKey(), id, 1_000_000_000, 0)
	assert.ErrorIs(t, err, pool.ErrPoolPaused)

	err = f.svc.SetPaused(f.cred(t, f.opKey, auth.RoleOperator), id, false)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	require.NoError(t, f.svc.SetPaused(admin, id, false))
	_, err = f.svc.Buy(solana.NewWallet().PublicKey(), id, 1_000_000_000, 0)
	assert.NoError(t, err)
}

func TestGraduate(t *testing.T) {
	f := newFixture(t)
	id := f.launch(t, "GRAD")
	idle := f.launch(t, "IDLE")
	f.fill(t, id)

	assert.Equal(t, []solana.PublicKey{id}, f.svc.ReadyPools())

	receipt, err := f.svc.Graduate(context.Background(), f.cred(t, f.opKey, auth.RoleOperator), id, "")
	require.NoError(t, err)
	assert.Equal(t, protocol.ExchangeCPAMM, receipt.Entry.Exchange)
	assert.Empty(t, f.svc.ReadyPools())

	st, err := f.svc.Pool(id)
	require.NoError(t, err)
	assert.Equal(t, pool.StatusGraduated, st.Status)

	n, err := f.svc.Registry().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, f.events.count(events.PoolGraduated))
	assert.Equal(t, len(receipt.Schedules), f.events.count(events.VestingCreated))

	_, err = f.svc.Graduate(context.Background(), f.cred(t, f.opKey, auth.RoleOperator), idle, "")
	assert.ErrorIs(t, err, pool.ErrNotReady)
	assert.Equal(t, 1, f.events.count(events.GraduationFailed))
}

func TestGraduate_FailureLeavesPoolTradable(t *testing.T) {
	f := newFixture(t)
	f.registry.failures = 1
	id := f.launch(t, "FAIL")
	f.fill(t, id)
	before, err := f.svc.Pool(id)
	require.NoError(t, err)

	_, err = f.svc.Graduate(context.Background(), f.cred(t, f.opKey, auth.RoleOperator), id, protocol.ExchangeCLMM)
	require.Error(t, err)

	after, err := f.svc.Pool(id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	require.Equal(t, 1, f.events.count(events.GraduationFailed))
	last, ok := f.events.events[len(f.events.events)-1].(events.GraduationFailedEvent)
	require.True(t, ok)
	assert.Equal(t, "complete", last.Step)
	assert.Equal(t, protocol.ExchangeCLMM, last.Exchange)
}

func TestWithdrawFees(t *testing.T) {
	f := newFixture(t)
	id := f.launch(t, "FEES")
	_, err := f.svc.Buy(solana.NewWallet().PublicKey(), id, 10_000_000_000, 0)
	require.NoError(t, err)

	creator := f.creatorKey.PublicKey()
	dest := solana.NewWallet().PublicKey()
	creatorBalance := f.svc.Ledger().Balance(creator, ledger.BaseAsset)

	_, err = f.svc.WithdrawFees(f.cred(t, f.adminKey, auth.RoleAdmin), creator, dest)
	assert.ErrorIs(t, err, auth.ErrUnauthorized, "admins cannot drain creator balances")

	paid, err := f.svc.WithdrawFees(f.cred(t, f.creatorKey, auth.RoleCreator), creator, dest)
	require.NoError(t, err)
	assert.Equal(t, creatorBalance, paid)
	assert.Zero(t, f.svc.Ledger().Balance(creator, ledger.BaseAsset))

	_, err = f.svc.WithdrawFees(f.cred(t, f.creatorKey, auth.RoleCreator), creator, dest)
	assert.ErrorIs(t, err, ErrNoFees)

	_, err = f.svc.WithdrawFees(f.cred(t, f.creatorKey, auth.RoleCreator), f.treasury, dest)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	treasuryBalance := f.svc.Ledger().Balance(f.treasury, ledger.BaseAsset)
	paid, err = f.svc.WithdrawFees(f.cred(t, f.adminKey, auth.RoleAdmin), f.treasury, dest)
	require.NoError(t, err)
	assert.Equal(t, treasuryBalance, paid)
	assert.Equal(t, creatorBalance+treasuryBalance, f.svc.Ledger().Balance(dest, ledger.BaseAsset))
	assert.Equal(t, 2, f.events.count(events.FeesWithdrawn))
}

func TestClaimVesting(t *testing.T) {
	f := newFixture(t)
	id := f.launch(t, "VEST")
	f.fill(t, id)
	receipt, err := f.svc.Graduate(context.Background(), f.cred(t, f.opKey, auth.RoleOperator), id, "")
	require.NoError(t, err)

	creatorTokens := receipt.Schedules[0]
	require.Equal(t, f.creatorKey.PublicKey(), creatorTokens.Beneficiary)

	_, err = f.svc.ClaimVesting(f.cred(t, f.creatorKey, auth.RoleCreator), creatorTokens.ID)
	assert.ErrorIs(t, err, vesting.ErrNothingToClaim, "still inside the cliff")

	_, err = f.svc.ClaimVesting(f.cred(t, f.adminKey, auth.RoleAdmin), creatorTokens.ID)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	f.advance(creatorTokens.Cliff + creatorTokens.Duration)
	amount, err := f.svc.ClaimVesting(f.cred(t, f.creatorKey, auth.RoleCreator), creatorTokens.ID)
	require.NoError(t, err)
	assert.Equal(t, creatorTokens.Amount, amount)

	st, err := f.svc.Pool(id)
	require.NoError(t, err)
	assert.Equal(t, amount, f.svc.Ledger().Balance(f.creatorKey.PublicKey(), st.Mint))
	assert.Equal(t, 1, f.events.count(events.VestingClaimed))

	_, err = f.svc.ClaimVesting(f.cred(t, f.creatorKey, auth.RoleCreator), "missing")
	assert.ErrorIs(t, err, vesting.ErrNotFound)
}

func TestConfigUpdatesArePublished(t *testing.T) {
	f := newFixture(t)
	fees := f.svc.Config().Snapshot().Fees
	fees.TradingFeeBps = 150
	require.NoError(t, f.svc.Config().SetFees(f.cred(t, f.adminKey, auth.RoleAdmin), fees))
	assert.Equal(t, 1, f.events.count(events.ConfigUpdated))
}

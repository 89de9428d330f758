// internal/staking/staking.go
package staking

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/ledger"
)

// ProgramID owns staking reward pools.
var ProgramID = solana.MustPublicKeyFromBase58("ALEwJQw29bZENNz1j5brn3UsrqyQDUR6adHZHEZwDTvY")

var (
	ErrNotFound     = errors.New("staking pool not found")
	ErrExists       = errors.New("staking pool already exists")
	ErrNoRewards    = errors.New("reward pool needs a positive reward amount")
	ErrInvalidTerms = errors.New("invalid staking terms")
	ErrNotAdmin     = errors.New("admin handle does not match")
)

// Params are the terms of a reward pool.
type Params struct {
	RewardMint      solana.PublicKey
	StakeMint       solana.PublicKey
	RewardTokens    uint64
	Start           time.Time
	DurationMs      uint64
	MinDurationMs   uint64
	EarlyExitFeeBps uint64
	StakeFeeBps     uint64
	UnstakeFeeBps   uint64
}

// RewardPool is a funded staking reward pool.
type RewardPool struct {
	ID solana.PublicKey
	Params
	// AdminHandle authorizes pool administration; whoever holds it is Admin.
	AdminHandle string
	Admin       solana.PublicKey
	CreatedAt   time.Time
}

// End returns when rewards stop accruing.
func (p RewardPool) End() time.Time {
	return p.Start.Add(time.Duration(p.DurationMs) * time.Millisecond)
}

// Manager creates reward pools and escrows their rewards in the ledger.
type Manager struct {
	mu     sync.Mutex
	pools  map[solana.PublicKey]*RewardPool
	ledger *ledger.Ledger
	logger *zap.Logger
}

func NewManager(l *ledger.Ledger, logger *zap.Logger) *Manager {
	return &Manager{
		pools:  make(map[solana.PublicKey]*RewardPool),
		ledger: l,
		logger: logger.Named("staking"),
	}
}

// PoolAddress derives the reward pool address for a stake mint.
func PoolAddress(stakeMint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("reward_pool"), stakeMint.Bytes()}, ProgramID)
	return addr, err
}

// CreateRewardPool funds a reward pool from source. The returned pool carries
// the admin handle; source is the initial admin.
func (m *Manager) CreateRewardPool(source solana.PublicKey, p Params) (RewardPool, error) {
	if p.RewardTokens == 0 {
		return RewardPool{}, ErrNoRewards
	}
	if p.DurationMs == 0 || p.MinDurationMs > p.DurationMs {
		return RewardPool{}, fmt.Errorf("%w: duration %dms, min %dms", ErrInvalidTerms, p.DurationMs, p.MinDurationMs)
	}
	id, err := PoolAddress(p.StakeMint)
	if err != nil {
		return RewardPool{}, fmt.Errorf("derive reward pool: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pools[id]; ok {
		return RewardPool{}, fmt.Errorf("%w: %s", ErrExists, id)
	}
	if err := m.ledger.Transfer(source, id, p.RewardMint, p.RewardTokens); err != nil {
		return RewardPool{}, fmt.Errorf("fund reward pool: %w", err)
	}
	rp := &RewardPool{
		ID:          id,
		Params:      p,
		AdminHandle: uuid.NewString(),
		Admin:       source,
		CreatedAt:   p.Start,
	}
	m.pools[id] = rp

	m.logger.Info("Reward pool created",
		zap.String("pool", id.String()),
		zap.String("stake_mint", p.StakeMint.String()),
		zap.Uint64("rewards", p.RewardTokens),
		zap.Uint64("duration_ms", p.DurationMs))
	return *rp, nil
}

// TransferAdmin hands the admin capability of a pool to admin.
func (m *Manager) TransferAdmin(id solana.PublicKey, handle string, admin solana.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rp, ok := m.pools[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rp.AdminHandle != handle {
		return ErrNotAdmin
	}
	rp.Admin = admin
	return nil
}

// Get returns a pool by address.
func (m *Manager) Get(id solana.PublicKey) (RewardPool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rp, ok := m.pools[id]
	if !ok {
		return RewardPool{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *rp, nil
}

// Close removes a pool and returns its unspent rewards to refundTo.
func (m *Manager) Close(id solana.PublicKey, handle string, refundTo solana.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rp, ok := m.pools[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rp.AdminHandle != handle {
		return ErrNotAdmin
	}
	if err := m.ledger.Transfer(id, refundTo, rp.RewardMint, m.ledger.Balance(id, rp.RewardMint)); err != nil {
		return fmt.Errorf("refund rewards: %w", err)
	}
	delete(m.pools, id)
	m.logger.Info("Reward pool closed", zap.String("pool", id.String()))
	return nil
}

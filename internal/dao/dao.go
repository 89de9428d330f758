// internal/dao/dao.go
package dao

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

// ProgramID owns governance and treasury accounts.
var ProgramID = solana.MustPublicKeyFromBase58("7qKS6fbgUUghHhAHcVs2bf2z2cBMNCLZwcL9s9QdKqAz")

var (
	ErrNotFound        = errors.New("governance not found")
	ErrExists          = errors.New("governance already exists")
	ErrNotAdmin        = errors.New("admin handle does not match")
	ErrHasTreasury     = errors.New("governance already has a treasury")
	ErrNotEmpty        = errors.New("treasury still holds positions")
	ErrInvalidName     = errors.New("governance name must be 1-64 bytes")
	ErrUnknownPosition = errors.New("position not held by treasury")
)

// Params are the voting rules of a governance.
type Params struct {
	Name                 string
	StakingPool          solana.PublicKey
	QuorumBps            uint64
	VotingDelayMs        uint64
	VotingPeriodMs       uint64
	TimelockDelayMs      uint64
	ProposalThresholdBps uint64
	CouncilEnabled       bool
}

// Governance is a DAO with an optional treasury.
type Governance struct {
	ID solana.PublicKey
	Params
	AdminHandle string
	Admin       solana.PublicKey
	Treasury    solana.PublicKey
	Positions   []string
	CreatedAt   time.Time
}

// Manager keeps governances. Treasury funds live in the ledger under the
// treasury address and positions are tracked on the governance.
type Manager struct {
	mu     sync.Mutex
	govs   map[solana.PublicKey]*Governance
	ledger *ledger.Ledger
	logger *zap.Logger
}

func NewManager(l *ledger.Ledger, logger *zap.Logger) *Manager {
	return &Manager{
		govs:   make(map[solana.PublicKey]*Governance),
		ledger: l,
		logger: logger.Named("dao"),
	}
}

// CreateGovernance creates a governance for name. The creator holds the
// returned admin handle until it is transferred.
func (m *Manager) CreateGovernance(creator solana.PublicKey, p Params, now time.Time) (Governance, error) {
	if p.Name == "" || len(p.Name) > 64 {
		return Governance{}, ErrInvalidName
	}
	seedName := p.Name
	if len(seedName) > 32 {
		seedName = seedName[:32]
	}
	id, _, err := solana.FindProgramAddress([][]byte{
		[]byte("governance"),
		[]byte(seedName),
		p.StakingPool.Bytes(),
	}, ProgramID)
	if err != nil {
		return Governance{}, fmt.Errorf("derive governance: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.govs[id]; ok {
		return Governance{}, fmt.Errorf("%w: %s", ErrExists, p.Name)
	}
	g := &Governance{
		ID:          id,
		Params:      p,
		AdminHandle: uuid.NewString(),
		Admin:       creator,
		CreatedAt:   now,
	}
	m.govs[id] = g
	m.logger.Info("Governance created",
		zap.String("governance", id.String()),
		zap.String("name", p.Name),
		zap.Uint64("quorum_bps", p.QuorumBps))
	return *g, nil
}

// CreateTreasury attaches a treasury to a governance.
func (m *Manager) CreateTreasury(governance solana.PublicKey, handle string) (solana.PublicKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.adminLocked(governance, handle)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if !g.Treasury.IsZero() {
		return solana.PublicKey{}, ErrHasTreasury
	}
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("treasury"), governance.Bytes()}, ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive treasury: %w", err)
	}
	g.Treasury = addr
	return addr, nil
}

func (m *Manager) adminLocked(governance solana.PublicKey, handle string) (*Governance, error) {
	g, ok := m.govs[governance]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, governance)
	}
	if g.AdminHandle != handle {
		return nil, ErrNotAdmin
	}
	return g, nil
}

// DepositPosition places a liquidity position in the treasury.
func (m *Manager) DepositPosition(governance solana.PublicKey, position string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.govs[governance]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, governance)
	}
	g.Positions = append(g.Positions, position)
	return nil
}

// WithdrawPosition removes a position; only the admin handle holder may do so.
func (m *Manager) WithdrawPosition(governance solana.PublicKey, handle, position string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.adminLocked(governance, handle)
	if err != nil {
		return err
	}
	for i, p := range g.Positions {
		if p == position {
			g.Positions = append(g.Positions[:i], g.Positions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownPosition, position)
}

// TransferAdmin hands the admin capability of a governance to admin.
func (m *Manager) TransferAdmin(governance solana.PublicKey, handle string, admin solana.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.adminLocked(governance, handle)
	if err != nil {
		return err
	}
	g.Admin = admin
	return nil
}

// Get returns a governance by address.
func (m *Manager) Get(governance solana.PublicKey) (Governance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.govs[governance]
	if !ok {
		return Governance{}, fmt.Errorf("%w: %s", ErrNotFound, governance)
	}
	out := *g
	out.Positions = append([]string(nil), g.Positions...)
	return out, nil
}

// Dissolve removes a governance whose treasury holds no positions. Fungible
// treasury balances are returned to refundTo.
func (m *Manager) Dissolve(governance solana.PublicKey, handle string, refundTo solana.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.adminLocked(governance, handle)
	if err != nil {
		return err
	}
	if len(g.Positions) > 0 {
		return ErrNotEmpty
	}
	if !g.Treasury.IsZero() {
		for _, h := range m.ledger.Holdings(g.Treasury) {
			if err := m.ledger.Transfer(g.Treasury, refundTo, h.Asset, h.Amount); err != nil {
				return fmt.Errorf("empty treasury: %w", err)
			}
		}
	}
	delete(m.govs, governance)
	m.logger.Info("Governance dissolved", zap.String("governance", governance.String()))
	return nil
}

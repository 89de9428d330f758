// internal/vesting/vesting.go
package vesting

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
	"github.com/rovshanmuradov/curve-launchpad/internal/ledger"
)

// ProgramID owns vesting escrow accounts.
var ProgramID = solana.MustPublicKeyFromBase58("Ect6xmD9JKHH6GmeUq5Brs4gmXhpHeKuN5T9b2HFPUNV")

var (
	ErrNotFound       = errors.New("vesting schedule not found")
	ErrNotBeneficiary = errors.New("caller is not the beneficiary")
	ErrNothingToClaim = errors.New("nothing to claim")
	ErrNotRevocable   = errors.New("schedule is not revocable")
	ErrRevoked        = errors.New("schedule was revoked")
	ErrEmpty          = errors.New("schedule has nothing to vest")
)

// Schedule locks an amount of an asset, or one liquidity position, for a beneficiary.
type Schedule struct {
	ID          string
	Asset       solana.PublicKey
	Beneficiary solana.PublicKey
	Amount      uint64
	// Position is set for schedules over an indivisible liquidity position.
	Position  string
	Start     time.Time
	Cliff     time.Duration
	Duration  time.Duration
	Revocable bool
	Claimed   uint64
	Revoked   bool
}

// IsPosition reports whether the schedule vests a position rather than an amount.
func (s Schedule) IsPosition() bool {
	return s.Position != ""
}

// Vested returns how much of the schedule has vested at now. Position
// schedules vest in full at the cliff.
func (s Schedule) Vested(now time.Time) uint64 {
	unlock := s.Start.Add(s.Cliff)
	if now.Before(unlock) {
		return 0
	}
	if s.IsPosition() || s.Duration <= 0 {
		return s.Amount
	}
	elapsed := now.Sub(unlock)
	if elapsed >= s.Duration {
		return s.Amount
	}
	v, err := curve.MulDiv(s.Amount, uint64(elapsed), uint64(s.Duration))
	if err != nil {
		return 0
	}
	return v
}

// Claimable returns the vested amount not yet claimed.
func (s Schedule) Claimable(now time.Time) uint64 {
	vested := s.Vested(now)
	if s.Revoked {
		// Amount was cut to what had vested at revocation.
		vested = s.Amount
	}
	if vested < s.Claimed {
		return 0
	}
	return vested - s.Claimed
}

// Manager keeps vesting schedules and pays claims out of escrow into the ledger.
type Manager struct {
	mu        sync.Mutex
	schedules map[string]*Schedule
	ledger    *ledger.Ledger
	escrow    solana.PublicKey
	logger    *zap.Logger
}

func NewManager(l *ledger.Ledger, logger *zap.Logger) *Manager {
	escrow, _, _ := solana.FindProgramAddress([][]byte{[]byte("escrow")}, ProgramID)
	return &Manager{
		schedules: make(map[string]*Schedule),
		ledger:    l,
		escrow:    escrow,
		logger:    logger.Named("vesting"),
	}
}

// Escrow is the ledger account that holds unvested funds.
func (m *Manager) Escrow() solana.PublicKey {
	return m.escrow
}

func ms(v uint64) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// CreateSchedule moves amount of asset from source into escrow and vests it
// to beneficiary.
func (m *Manager) CreateSchedule(source, asset, beneficiary solana.PublicKey, amount uint64, start time.Time, cliffMs, durationMs uint64, revocable bool) (Schedule, error) {
	if amount == 0 {
		return Schedule{}, ErrEmpty
	}
	if err := m.ledger.Transfer(source, m.escrow, asset, amount); err != nil {
		return Schedule{}, fmt.Errorf("fund schedule: %w", err)
	}
	s := &Schedule{
		ID:          uuid.NewString(),
		Asset:       asset,
		Beneficiary: beneficiary,
		Amount:      amount,
		Start:       start,
		Cliff:       ms(cliffMs),
		Duration:    ms(durationMs),
		Revocable:   revocable,
	}
	m.store(s)
	return *s, nil
}

// CreatePositionSchedule vests a whole liquidity position, released at the cliff.
func (m *Manager) CreatePositionSchedule(position string, pool, beneficiary solana.PublicKey, start time.Time, cliffMs uint64, revocable bool) (Schedule, error) {
	if position == "" {
		return Schedule{}, ErrEmpty
	}
	s := &Schedule{
		ID:          uuid.NewString(),
		Asset:       pool,
		Beneficiary: beneficiary,
		Amount:      1,
		Position:    position,
		Start:       start,
		Cliff:       ms(cliffMs),
		Revocable:   revocable,
	}
	m.store(s)
	return *s, nil
}

func (m *Manager) store(s *Schedule) {
	m.mu.Lock()
	m.schedules[s.ID] = s
	m.mu.Unlock()
	m.logger.Info("Vesting schedule created",
		zap.String("id", s.ID),
		zap.String("beneficiary", s.Beneficiary.String()),
		zap.String("asset", s.Asset.String()),
		zap.Uint64("amount", s.Amount),
		zap.String("position", s.Position),
		zap.Duration("cliff", s.Cliff),
		zap.Duration("duration", s.Duration))
}

// Get returns a schedule by id.
func (m *Manager) Get(id string) (Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return Schedule{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *s, nil
}

// ByBeneficiary lists schedules of beneficiary ordered by start time.
func (m *Manager) ByBeneficiary(beneficiary solana.PublicKey) []Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Schedule
	for _, s := range m.schedules {
		if s.Beneficiary.Equals(beneficiary) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// Claim releases what has vested to the beneficiary. For position schedules
// the returned amount is 1 and the position is handed over.
func (m *Manager) Claim(id string, beneficiary solana.PublicKey, now time.Time) (Schedule, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok {
		return Schedule{}, 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !s.Beneficiary.Equals(beneficiary) {
		return Schedule{}, 0, ErrNotBeneficiary
	}
	amount := s.Claimable(now)
	if amount == 0 {
		return *s, 0, ErrNothingToClaim
	}
	if !s.IsPosition() {
		if err := m.ledger.Transfer(m.escrow, beneficiary, s.Asset, amount); err != nil {
			return *s, 0, fmt.Errorf("release vested funds: %w", err)
		}
	}
	s.Claimed += amount
	m.logger.Info("Vesting claimed",
		zap.String("id", id),
		zap.Uint64("amount", amount),
		zap.Uint64("claimed", s.Claimed))
	return *s, amount, nil
}

// Revoke stops a revocable schedule at now and returns the unvested part to refundTo.
func (m *Manager) Revoke(id string, refundTo solana.PublicKey, now time.Time) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !s.Revocable {
		return 0, ErrNotRevocable
	}
	if s.Revoked {
		return 0, ErrRevoked
	}
	vested := s.Vested(now)
	unvested := s.Amount - vested
	if !s.IsPosition() && unvested > 0 {
		if err := m.ledger.Transfer(m.escrow, refundTo, s.Asset, unvested); err != nil {
			return 0, fmt.Errorf("refund unvested funds: %w", err)
		}
	}
	s.Amount = vested
	s.Revoked = true
	return unvested, nil
}

// Cancel deletes a schedule nothing was claimed from and returns its escrow to source.
func (m *Manager) Cancel(id string, source solana.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.Claimed > 0 {
		return fmt.Errorf("cancel schedule %s: %d already claimed", id, s.Claimed)
	}
	if !s.IsPosition() {
		if err := m.ledger.Transfer(m.escrow, source, s.Asset, s.Amount); err != nil {
			return fmt.Errorf("return escrow: %w", err)
		}
	}
	delete(m.schedules, id)
	m.logger.Info("Vesting schedule cancelled", zap.String("id", id))
	return nil
}

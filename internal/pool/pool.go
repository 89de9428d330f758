// internal/pool/pool.go
package pool

import (
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
)

// ProgramID is the owner used to derive pool and mint addresses.
var ProgramID = solana.MustPublicKeyFromBase58("9R7zYoDmAD7odoc9L5gBbMr9kUwWJGu43oun4rkkzpFx")

// TokenDecimals is the display precision of launched tokens.
const TokenDecimals = 6

// Status is the lifecycle position of a pool.
type Status int

const (
	StatusActive Status = iota
	StatusGraduating
	StatusGraduated
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusGraduating:
		return "graduating"
	case StatusGraduated:
		return "graduated"
	default:
		return "unknown"
	}
}

// State is a point-in-time copy of a pool.
type State struct {
	ID                 solana.PublicKey
	Mint               solana.PublicKey
	Name               string
	Symbol             string
	URI                string
	Creator            solana.PublicKey
	CreatorFeeBps      uint64
	Curve              curve.Params
	TotalSupply        uint64
	PlatformAllocation uint64
	CirculatingSupply  uint64
	TokenBalance       uint64
	BaseBalance        uint64
	TotalVolume        uint64
	TradeCount         uint64
	Paused             bool
	Status             Status
	CreatedAt          time.Time
}

// Price returns the spot price at the current circulating supply.
func (s State) Price() uint64 {
	p, err := curve.Price(s.Curve.BasePrice, s.Curve.Slope, s.CirculatingSupply)
	if err != nil {
		return ^uint64(0)
	}
	return p
}

// Conserved reports whether pool inventory and circulation account for every
// token outside the platform allocation. It only holds while the pool is active.
func (s State) Conserved() bool {
	return s.TokenBalance+s.CirculatingSupply == s.TotalSupply-s.PlatformAllocation
}

// Ready reports whether the pool can be graduated at threshold.
func (s State) Ready(threshold uint64) bool {
	return !s.Paused && s.Status == StatusActive && s.BaseBalance >= threshold
}

// Pool is a bonding curve market for one token. All mutations are serialized
// on the pool's own lock; different pools never contend.
type Pool struct {
	mu    sync.Mutex
	state State
	// saved holds the pre-graduation state while a ticket is outstanding.
	saved *State
}

// Restore rebuilds a pool from a persisted state.
func Restore(s State) *Pool {
	return &Pool{state: s}
}

// Snapshot returns a copy of the current state.
func (p *Pool) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ID returns the pool address.
func (p *Pool) ID() solana.PublicKey {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.ID
}

func (p *Pool) tradable() error {
	switch {
	case p.state.Status == StatusGraduated:
		return ErrPoolGraduated
	case p.state.Status == StatusGraduating:
		return ErrGraduationInProgress
	case p.state.Paused:
		return ErrPoolPaused
	}
	return nil
}

// DeriveAddresses returns the pool and mint addresses for a creator's token.
func DeriveAddresses(creator solana.PublicKey, symbol string, nonce uint64) (solana.PublicKey, solana.PublicKey, error) {
	var n [8]byte
	for i := range n {
		n[i] = byte(nonce >> (8 * i))
	}
	id, _, err := solana.FindProgramAddress([][]byte{
		[]byte("bonding-curve"),
		creator.Bytes(),
		[]byte(symbol),
		n[:],
	}, ProgramID)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, fmt.Errorf("derive pool address: %w", err)
	}
	mint, _, err := solana.FindProgramAddress([][]byte{[]byte("mint"), id.Bytes()}, ProgramID)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, fmt.Errorf("derive mint address: %w", err)
	}
	return id, mint, nil
}

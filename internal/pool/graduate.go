// internal/pool/graduate.go
package pool

import (
	"fmt"

	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
	"github.com/rovshanmuradov/curve-launchpad/internal/protocol"
)

// Extraction is everything a pool hands over when graduation begins.
type Extraction struct {
	GraduationFee      uint64
	Base               uint64
	Tokens             uint64
	StakingTokens      uint64
	PlatformAllocation uint64
	// Before is the pool state prior to extraction.
	Before State
}

// BeginGraduation locks the pool against trading and moves its balances out.
// Only one graduation may be outstanding; it ends with FinishGraduation or
// AbortGraduation.
func (p *Pool) BeginGraduation(cfg protocol.Config) (Extraction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.state
	switch {
	case s.Status == StatusGraduating:
		return Extraction{}, ErrGraduationInProgress
	case s.Status == StatusGraduated:
		return Extraction{}, ErrPoolGraduated
	case !s.Ready(cfg.GraduationThreshold):
		return Extraction{}, fmt.Errorf("%w: base %d, threshold %d, paused %t",
			ErrNotReady, s.BaseBalance, cfg.GraduationThreshold, s.Paused)
	}

	fee := curve.Bps(s.BaseBalance, cfg.Fees.GraduationFeeBps)
	base := s.BaseBalance - fee
	if base < cfg.MinGraduationLiquidity {
		return Extraction{}, fmt.Errorf("%w: liquidity %d below minimum %d",
			ErrNotReady, base, cfg.MinGraduationLiquidity)
	}
	var staking uint64
	if cfg.Staking.Enabled {
		staking = curve.Bps(s.TokenBalance, cfg.Staking.RewardBps)
	}

	saved := s
	p.saved = &saved
	p.state.Status = StatusGraduating
	p.state.BaseBalance = 0
	p.state.TokenBalance = 0

	return Extraction{
		GraduationFee:      fee,
		Base:               base,
		Tokens:             s.TokenBalance - staking,
		StakingTokens:      staking,
		PlatformAllocation: s.PlatformAllocation,
		Before:             saved,
	}, nil
}

// AbortGraduation restores the state saved by BeginGraduation.
func (p *Pool) AbortGraduation() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Status != StatusGraduating || p.saved == nil {
		return fmt.Errorf("abort graduation: pool is %s", p.state.Status)
	}
	p.state = *p.saved
	p.saved = nil
	return nil
}

// FinishGraduation marks the pool graduated. Trading is rejected from then on.
func (p *Pool) FinishGraduation() (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Status != StatusGraduating {
		return State{}, fmt.Errorf("finish graduation: pool is %s", p.state.Status)
	}
	p.state.Status = StatusGraduated
	p.saved = nil
	return p.state, nil
}

// =============================================
// File: internal/task/task.go
// =============================================
package task

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
)

// Display precision of the base asset and of launched tokens.
const (
	BaseDecimals  = 9
	TokenDecimals = pool.TokenDecimals
)

// Action is what a scenario step does.
type Action string

const (
	ActionCreate   Action = "create"
	ActionBuy      Action = "buy"
	ActionSell     Action = "sell"
	ActionPause    Action = "pause"
	ActionResume   Action = "resume"
	ActionGraduate Action = "graduate"
	ActionClaim    Action = "claim"
	ActionWithdraw Action = "withdraw"
	ActionAdvance  Action = "advance"
)

// Step is one action of a scenario.
type Step struct {
	ID            int
	Name          string
	Action        Action
	Account       string
	Token         string
	TokenName     string
	URI           string
	CreatorFeeBps uint64
	// Amount is in base units: base asset for create and buy, tokens for sell.
	Amount uint64
	// Percent sells a share of the account's holdings when Amount is zero.
	Percent         float64
	SlippagePercent float64
	Exchange        string
	Advance         time.Duration
}

// Validate checks that the step carries what its action needs.
func (s *Step) Validate() error {
	needsToken := func() error {
		if s.Token == "" {
			return fmt.Errorf("step %d (%s): token cannot be empty", s.ID, s.Action)
		}
		return nil
	}
	needsAccount := func() error {
		if s.Account == "" {
			return fmt.Errorf("step %d (%s): account cannot be empty", s.ID, s.Action)
		}
		return nil
	}

	switch s.Action {
	case ActionCreate:
		if err := needsAccount(); err != nil {
			return err
		}
		if s.TokenName == "" {
			return fmt.Errorf("step %d: token_name cannot be empty", s.ID)
		}
		return needsToken()
	case ActionBuy:
		if err := needsAccount(); err != nil {
			return err
		}
		if s.Amount == 0 {
			return fmt.Errorf("step %d: buy amount must be positive", s.ID)
		}
		return needsToken()
	case ActionSell:
		if err := needsAccount(); err != nil {
			return err
		}
		if s.Amount == 0 && (s.Percent <= 0 || s.Percent > 100) {
			return fmt.Errorf("step %d: sell needs an amount or a percent in (0, 100]", s.ID)
		}
		return needsToken()
	case ActionPause, ActionResume, ActionGraduate:
		return needsToken()
	case ActionClaim, ActionWithdraw:
		return needsAccount()
	case ActionAdvance:
		if s.Advance <= 0 {
			return fmt.Errorf("step %d: advance duration must be positive", s.ID)
		}
		return nil
	default:
		return fmt.Errorf("step %d: invalid action: %s", s.ID, s.Action)
	}
}

// MinOut applies the slippage tolerance to an expected output.
func (s *Step) MinOut(expected uint64) uint64 {
	if s.SlippagePercent <= 0 {
		return 0
	}
	keep := decimal.NewFromInt(100).Sub(decimal.NewFromFloat(s.SlippagePercent)).Div(decimal.NewFromInt(100))
	return decimal.NewFromBigInt(new(big.Int).SetUint64(expected), 0).Mul(keep).Floor().BigInt().Uint64()
}

// ToUnits converts a human amount such as "1.5" into base units with decimals places.
func ToUnits(amount string, decimals int32) (uint64, error) {
	if amount == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("invalid amount %q: negative", amount)
	}
	units := d.Shift(decimals).Floor().BigInt()
	if !units.IsUint64() {
		return 0, fmt.Errorf("invalid amount %q: too large", amount)
	}
	return units.Uint64(), nil
}

// FromUnits renders base units as a decimal string.
func FromUnits(units uint64, decimals int32) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -decimals).String()
}

// internal/pool/errors.go
package pool

import (
	"errors"
	"fmt"
)

var (
	ErrPoolPaused            = errors.New("pool is paused")
	ErrPoolGraduated         = errors.New("pool has graduated")
	ErrGlobalPaused          = errors.New("launchpad is paused")
	ErrNotReady              = errors.New("pool is not ready to graduate")
	ErrGraduationInProgress  = errors.New("pool graduation in progress")
	ErrSlippage              = errors.New("slippage exceeded")
	ErrZeroAmount            = errors.New("amount must be positive")
	ErrInsufficientInventory = errors.New("insufficient pool token inventory")
	ErrInsufficientReserve   = errors.New("insufficient pool base reserve")
	ErrInsufficientPayment   = errors.New("payment below creation fee")
	ErrInvalidToken          = errors.New("invalid token parameters")
)

// SlippageError reports a trade whose output fell below the caller's minimum.
type SlippageError struct {
	Expected uint64
	Minimum  uint64
}

func (e *SlippageError) Error() string {
	return fmt.Sprintf("slippage exceeded: output %d is below minimum %d", e.Expected, e.Minimum)
}

func (e *SlippageError) Unwrap() error {
	return ErrSlippage
}

// internal/graduation/ticket.go
package graduation

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/curve-launchpad/internal/exchange"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
	"github.com/rovshanmuradov/curve-launchpad/internal/protocol"
)

var (
	ErrAlreadyExtracted    = errors.New("ticket category already extracted")
	ErrUndrained           = errors.New("ticket still holds undrained funds")
	ErrTicketClosed        = errors.New("ticket is closed")
	ErrUnsupportedExchange = errors.New("exchange is not supported")
)

// Ticket carries a graduating pool's funds. Each category is drained exactly
// once; the ticket must then be completed or aborted.
type Ticket struct {
	pool       *pool.Pool
	adapter    exchange.Adapter
	config     protocol.Config
	extraction pool.Extraction

	baseTaken    bool
	tokensTaken  bool
	stakingTaken bool
	closed       bool
}

// Exchange returns the target exchange id.
func (t *Ticket) Exchange() string {
	return t.adapter.ID()
}

// Pool returns the pool the ticket was issued for.
func (t *Ticket) Pool() *pool.Pool {
	return t.pool
}

// Extraction returns the amounts the ticket was created with.
func (t *Ticket) Extraction() pool.Extraction {
	return t.extraction
}

func (t *Ticket) take(flag *bool, category string, amount uint64) (uint64, error) {
	if t.closed {
		return 0, ErrTicketClosed
	}
	if *flag {
		return 0, fmt.Errorf("%w: %s", ErrAlreadyExtracted, category)
	}
	*flag = true
	return amount, nil
}

// ExtractAllBase drains the base asset set aside for liquidity.
func (t *Ticket) ExtractAllBase() (uint64, error) {
	return t.take(&t.baseTaken, "base", t.extraction.Base)
}

// ExtractAllTokens drains the tokens set aside for liquidity.
func (t *Ticket) ExtractAllTokens() (uint64, error) {
	return t.take(&t.tokensTaken, "tokens", t.extraction.Tokens)
}

// ExtractStakingTokens drains the staking reward reserve.
func (t *Ticket) ExtractStakingTokens() (uint64, error) {
	return t.take(&t.stakingTaken, "staking tokens", t.extraction.StakingTokens)
}

// Drained reports whether every category has been extracted.
func (t *Ticket) Drained() bool {
	return t.baseTaken && t.tokensTaken && t.stakingTaken
}

func (t *Ticket) undrained() []string {
	var out []string
	if !t.baseTaken {
		out = append(out, "base")
	}
	if !t.tokensTaken {
		out = append(out, "tokens")
	}
	if !t.stakingTaken {
		out = append(out, "staking tokens")
	}
	return out
}

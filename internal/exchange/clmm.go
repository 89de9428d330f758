// internal/exchange/clmm.go
package exchange

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
)

type position struct {
	pool      solana.PublicKey
	base      uint64
	tokens    uint64
	liquidity uint64
	// owner is zero while the position is held by the depositor.
	owner solana.PublicKey
}

// Concentrated is a concentrated-liquidity AMM. Each deposit opens a
// full-range position that cannot be divided afterwards.
type Concentrated struct {
	mu        sync.Mutex
	program   solana.PublicKey
	positions map[string]position
	logger    *zap.Logger
}

func NewConcentrated(program solana.PublicKey, logger *zap.Logger) *Concentrated {
	return &Concentrated{
		program:   program,
		positions: make(map[string]position),
		logger:    logger.Named("clmm"),
	}
}

func (c *Concentrated) ID() string                  { return "clmm" }
func (c *Concentrated) Kind() Kind                  { return KindPosition }
func (c *Concentrated) ProgramID() solana.PublicKey { return c.program }

// CreateLiquidity opens a new position holding base and tokens.
func (c *Concentrated) CreateLiquidity(ctx context.Context, mint solana.PublicKey, base, tokens uint64) (Liquidity, error) {
	if err := ctx.Err(); err != nil {
		return Liquidity{}, err
	}
	if base == 0 || tokens == 0 {
		return Liquidity{}, ErrEmptyLiquidity
	}
	id, err := poolAddress(c.program, mint)
	if err != nil {
		return Liquidity{}, fmt.Errorf("derive pool address: %w", err)
	}
	product := new(big.Int).Mul(new(big.Int).SetUint64(base), new(big.Int).SetUint64(tokens))
	liquidity := curve.ISqrt(product).Uint64()

	handle := uuid.NewString()
	c.mu.Lock()
	c.positions[handle] = position{pool: id, base: base, tokens: tokens, liquidity: liquidity}
	c.mu.Unlock()

	c.logger.Info("Position opened",
		zap.String("pool", id.String()),
		zap.String("position", handle),
		zap.Uint64("liquidity", liquidity))

	return Liquidity{
		Kind:     KindPosition,
		Exchange: c.ID(),
		PoolID:   id,
		LPAmount: liquidity,
		Position: handle,
		Base:     base,
		Tokens:   tokens,
	}, nil
}

// RemoveLiquidity closes the position.
func (c *Concentrated) RemoveLiquidity(_ context.Context, liq Liquidity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.positions[liq.Position]; !ok {
		return fmt.Errorf("%w: position %s", ErrUnknownLiquidity, liq.Position)
	}
	delete(c.positions, liq.Position)
	c.logger.Info("Position closed", zap.String("position", liq.Position))
	return nil
}

var _ PositionTransferer = (*Concentrated)(nil)

// TransferPosition records owner as the holder of the position.
func (c *Concentrated) TransferPosition(liq Liquidity, owner solana.PublicKey) (solana.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos, ok := c.positions[liq.Position]
	if !ok {
		return solana.PublicKey{}, fmt.Errorf("%w: position %s", ErrUnknownLiquidity, liq.Position)
	}
	previous := pos.owner
	pos.owner = owner
	c.positions[liq.Position] = pos
	c.logger.Debug("Position transferred",
		zap.String("position", liq.Position),
		zap.String("owner", owner.String()))
	return previous, nil
}

// PositionOwner returns the holder of the position, zero if it was never transferred.
func (c *Concentrated) PositionOwner(handle string) (solana.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos, ok := c.positions[handle]
	if !ok {
		return solana.PublicKey{}, fmt.Errorf("%w: position %s", ErrUnknownLiquidity, handle)
	}
	return pos.owner, nil
}

// OpenPositions returns the number of open positions.
func (c *Concentrated) OpenPositions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.positions)
}

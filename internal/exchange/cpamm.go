// internal/exchange/cpamm.go
package exchange

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
)

type cpPool struct {
	base     uint64
	tokens   uint64
	lpSupply uint64
}

// ConstantProduct is a constant-product AMM that mints fungible LP tokens.
type ConstantProduct struct {
	mu      sync.Mutex
	program solana.PublicKey
	pools   map[solana.PublicKey]*cpPool
	logger  *zap.Logger
}

func NewConstantProduct(program solana.PublicKey, logger *zap.Logger) *ConstantProduct {
	return &ConstantProduct{
		program: program,
		pools:   make(map[solana.PublicKey]*cpPool),
		logger:  logger.Named("cpamm"),
	}
}

func (c *ConstantProduct) ID() string                  { return "cpamm" }
func (c *ConstantProduct) Kind() Kind                  { return KindFungible }
func (c *ConstantProduct) ProgramID() solana.PublicKey { return c.program }

// CreateLiquidity deposits base and tokens and mints sqrt(base*tokens) LP.
func (c *ConstantProduct) CreateLiquidity(ctx context.Context, mint solana.PublicKey, base, tokens uint64) (Liquidity, error) {
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
	lpMint, _, err := solana.FindProgramAddress([][]byte{[]byte("lp_mint"), id.Bytes()}, c.program)
	if err != nil {
		return Liquidity{}, fmt.Errorf("derive lp mint: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pools[id]
	if !ok {
		p = &cpPool{}
		c.pools[id] = p
	}
	var lp uint64
	if p.lpSupply == 0 {
		product := new(big.Int).Mul(new(big.Int).SetUint64(base), new(big.Int).SetUint64(tokens))
		lp = curve.ISqrt(product).Uint64()
	} else {
		// Proportional to the smaller side so existing LPs are not diluted.
		byBase, err := curve.MulDiv(base, p.lpSupply, p.base)
		if err != nil {
			return Liquidity{}, fmt.Errorf("lp for base: %w", err)
		}
		byTokens, err := curve.MulDiv(tokens, p.lpSupply, p.tokens)
		if err != nil {
			return Liquidity{}, fmt.Errorf("lp for tokens: %w", err)
		}
		lp = min(byBase, byTokens)
	}
	if lp == 0 {
		return Liquidity{}, fmt.Errorf("%w: deposit mints no LP", ErrEmptyLiquidity)
	}
	if p.base > math.MaxUint64-base || p.tokens > math.MaxUint64-tokens || p.lpSupply > math.MaxUint64-lp {
		return Liquidity{}, fmt.Errorf("pool reserves: %w", curve.ErrOverflow)
	}
	p.base += base
	p.tokens += tokens
	p.lpSupply += lp

	c.logger.Info("Liquidity created",
		zap.String("pool", id.String()),
		zap.Uint64("base", base),
		zap.Uint64("tokens", tokens),
		zap.Uint64("lp", lp))

	return Liquidity{
		Kind:     KindFungible,
		Exchange: c.ID(),
		PoolID:   id,
		LPMint:   lpMint,
		LPAmount: lp,
		Base:     base,
		Tokens:   tokens,
	}, nil
}

// RemoveLiquidity burns liq.LPAmount and withdraws the deposited amounts.
func (c *ConstantProduct) RemoveLiquidity(_ context.Context, liq Liquidity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pools[liq.PoolID]
	if !ok || p.lpSupply < liq.LPAmount || p.base < liq.Base || p.tokens < liq.Tokens {
		return fmt.Errorf("%w: %s", ErrUnknownLiquidity, liq.PoolID)
	}
	p.base -= liq.Base
	p.tokens -= liq.Tokens
	p.lpSupply -= liq.LPAmount
	if p.lpSupply == 0 {
		delete(c.pools, liq.PoolID)
	}
	c.logger.Info("Liquidity removed", zap.String("pool", liq.PoolID.String()), zap.Uint64("lp", liq.LPAmount))
	return nil
}

// Reserves returns the pool balances for mint.
func (c *ConstantProduct) Reserves(mint solana.PublicKey) (base, tokens, lpSupply uint64, ok bool) {
	id, err := poolAddress(c.program, mint)
	if err != nil {
		return 0, 0, 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pools[id]
	if !ok {
		return 0, 0, 0, false
	}
	return p.base, p.tokens, p.lpSupply, true
}

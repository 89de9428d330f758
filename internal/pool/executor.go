// internal/pool/executor.go
package pool

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/auth"
	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
	"github.com/rovshanmuradov/curve-launchpad/internal/ledger"
	"github.com/rovshanmuradov/curve-launchpad/internal/protocol"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Quote is the outcome of a trade computed without mutating the pool.
type Quote struct {
	Side     Side
	AmountIn uint64
	// AmountOut is tokens for a buy and net base for a sell.
	AmountOut uint64
	// Gross is the base amount moved into or out of the pool.
	Gross       uint64
	PlatformFee uint64
	CreatorFee  uint64
	PriceAfter  uint64
}

// Trade is a committed trade.
type Trade struct {
	Quote
	Pool              solana.PublicKey
	Trader            solana.PublicKey
	CirculatingSupply uint64
	BaseBalance       uint64
	Timestamp         time.Time
}

// CreateParams describes a token launch.
type CreateParams struct {
	Name          string
	Symbol        string
	URI           string
	CreatorFeeBps uint64
	// Curve and TotalSupply fall back to the configured defaults when zero.
	Curve       curve.Params
	TotalSupply uint64
	Nonce       uint64
}

// CreateReceipt reports how the creation payment was routed.
type CreateReceipt struct {
	State       State
	CreationFee uint64
	Refund      uint64
}

// Executor runs trades against pools using the shared configuration and ledger.
type Executor struct {
	config *protocol.Store
	ledger *ledger.Ledger
	auth   *auth.Authorizer
	logger *zap.Logger
	now    func() time.Time
}

func NewExecutor(config *protocol.Store, l *ledger.Ledger, authorizer *auth.Authorizer, logger *zap.Logger) *Executor {
	return &Executor{
		config: config,
		ledger: l,
		auth:   authorizer,
		logger: logger.Named("trade_executor"),
		now:    time.Now,
	}
}

// SetClock replaces the time source.
func (e *Executor) SetClock(now func() time.Time) {
	e.now = now
}

// CreateToken launches a new pool. The creation fee goes to the treasury and
// any excess payment is refunded to the creator.
func (e *Executor) CreateToken(creator solana.PublicKey, payment uint64, params CreateParams) (*Pool, CreateReceipt, error) {
	cfg := e.config.Snapshot()
	if cfg.Paused {
		return nil, CreateReceipt{}, ErrGlobalPaused
	}
	if payment < cfg.Fees.CreationFee {
		return nil, CreateReceipt{}, fmt.Errorf("%w: paid %d, fee %d", ErrInsufficientPayment, payment, cfg.Fees.CreationFee)
	}
	params = withDefaults(params, cfg.Curve)
	if err := validateCreate(params); err != nil {
		return nil, CreateReceipt{}, err
	}

	id, mint, err := DeriveAddresses(creator, params.Symbol, params.Nonce)
	if err != nil {
		return nil, CreateReceipt{}, err
	}
	platformAllocation := curve.Bps(params.TotalSupply, cfg.Graduation.PlatformBps)
	state := State{
		ID:                 id,
		Mint:               mint,
		Name:               params.Name,
		Symbol:             params.Symbol,
		URI:                params.URI,
		Creator:            creator,
		CreatorFeeBps:      params.CreatorFeeBps,
		Curve:              params.Curve,
		TotalSupply:        params.TotalSupply,
		PlatformAllocation: platformAllocation,
		TokenBalance:       params.TotalSupply - platformAllocation,
		Status:             StatusActive,
		CreatedAt:          e.now(),
	}

	refund := payment - cfg.Fees.CreationFee
	if err := e.ledger.Apply(
		ledger.CreditEntry(cfg.Treasury, ledger.BaseAsset, cfg.Fees.CreationFee),
		ledger.CreditEntry(creator, ledger.BaseAsset, refund),
	); err != nil {
		return nil, CreateReceipt{}, fmt.Errorf("route creation fee: %w", err)
	}

	e.logger.Info("Token created",
		zap.String("pool", id.String()),
		zap.String("symbol", params.Symbol),
		zap.String("creator", creator.String()),
		zap.Uint64("total_supply", params.TotalSupply),
		zap.Uint64("platform_allocation", platformAllocation))

	return Restore(state), CreateReceipt{State: state, CreationFee: cfg.Fees.CreationFee, Refund: refund}, nil
}

func withDefaults(p CreateParams, d protocol.CurveDefaults) CreateParams {
	if p.Curve.BasePrice == 0 && p.Curve.Slope == 0 {
		p.Curve = d.Params
	}
	if p.TotalSupply == 0 {
		p.TotalSupply = d.TotalSupply
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	return p
}

func validateCreate(p CreateParams) error {
	switch {
	case p.Name == "" || len(p.Name) > 32:
		return fmt.Errorf("%w: name must be 1-32 bytes", ErrInvalidToken)
	case p.Symbol == "" || len(p.Symbol) > 10:
		return fmt.Errorf("%w: symbol must be 1-10 bytes", ErrInvalidToken)
	case len(p.URI) > 200:
		return fmt.Errorf("%w: uri longer than 200 bytes", ErrInvalidToken)
	case p.CreatorFeeBps > protocol.MaxCreatorFeeBps:
		return fmt.Errorf("%w: %w: creator_fee_bps %d exceeds %d",
			ErrInvalidToken, protocol.ErrValidation, p.CreatorFeeBps, protocol.MaxCreatorFeeBps)
	case p.Curve.BasePrice == 0:
		return fmt.Errorf("%w: base price must be positive", ErrInvalidToken)
	case p.TotalSupply == 0:
		return fmt.Errorf("%w: total supply must be positive", ErrInvalidToken)
	}
	return nil
}

func quoteBuy(s State, cfg protocol.Config, payment uint64) (Quote, error) {
	if payment == 0 {
		return Quote{}, ErrZeroAmount
	}
	platformFee := curve.Bps(payment, cfg.Fees.TradingFeeBps)
	creatorFee := curve.Bps(payment, s.CreatorFeeBps)
	net := payment - platformFee - creatorFee

	tokens, err := curve.TokensOut(net, s.CirculatingSupply, s.Curve.BasePrice, s.Curve.Slope)
	if err != nil {
		return Quote{}, fmt.Errorf("tokens out: %w", err)
	}
	if tokens == 0 {
		return Quote{}, fmt.Errorf("%w: payment %d buys no tokens", ErrZeroAmount, payment)
	}
	if tokens > s.TokenBalance {
		return Quote{}, fmt.Errorf("%w: want %d, pool holds %d", ErrInsufficientInventory, tokens, s.TokenBalance)
	}
	if s.BaseBalance > math.MaxUint64-net {
		return Quote{}, curve.ErrOverflow
	}
	price, err := curve.Price(s.Curve.BasePrice, s.Curve.Slope, s.CirculatingSupply+tokens)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Side:        SideBuy,
		AmountIn:    payment,
		AmountOut:   tokens,
		Gross:       net,
		PlatformFee: platformFee,
		CreatorFee:  creatorFee,
		PriceAfter:  price,
	}, nil
}

func quoteSell(s State, cfg protocol.Config, tokens uint64) (Quote, error) {
	if tokens == 0 {
		return Quote{}, ErrZeroAmount
	}
	gross, err := curve.AmountOut(tokens, s.CirculatingSupply, s.Curve.BasePrice, s.Curve.Slope)
	if err != nil {
		return Quote{}, fmt.Errorf("amount out: %w", err)
	}
	if gross > s.BaseBalance {
		return Quote{}, fmt.Errorf("%w: want %d, pool holds %d", ErrInsufficientReserve, gross, s.BaseBalance)
	}
	platformFee := curve.Bps(gross, cfg.Fees.TradingFeeBps)
	creatorFee := curve.Bps(gross, s.CreatorFeeBps)
	net := gross - platformFee - creatorFee
	if net == 0 {
		return Quote{}, fmt.Errorf("%w: %d tokens sell for nothing", ErrZeroAmount, tokens)
	}
	price, err := curve.Price(s.Curve.BasePrice, s.Curve.Slope, s.CirculatingSupply-tokens)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Side:        SideSell,
		AmountIn:    tokens,
		AmountOut:   net,
		Gross:       gross,
		PlatformFee: platformFee,
		CreatorFee:  creatorFee,
		PriceAfter:  price,
	}, nil
}

// QuoteBuy computes a buy without executing it.
func (e *Executor) QuoteBuy(p *Pool, payment uint64) (Quote, error) {
	cfg := e.config.Snapshot()
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.tradable(); err != nil {
		return Quote{}, err
	}
	return quoteBuy(p.state, cfg, payment)
}

// QuoteSell computes a sell without executing it.
func (e *Executor) QuoteSell(p *Pool, tokens uint64) (Quote, error) {
	cfg := e.config.Snapshot()
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.tradable(); err != nil {
		return Quote{}, err
	}
	return quoteSell(p.state, cfg, tokens)
}

// Buy spends payment on tokens. Fees are taken from the payment before
// pricing and the tokens are credited to buyer.
func (e *Executor) Buy(buyer solana.PublicKey, p *Pool, payment, minTokensOut uint64) (Trade, error) {
	cfg := e.config.Snapshot()
	if cfg.Paused {
		return Trade{}, ErrGlobalPaused
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.tradable(); err != nil {
		return Trade{}, err
	}
	q, err := quoteBuy(p.state, cfg, payment)
	if err != nil {
		return Trade{}, err
	}
	if q.AmountOut < minTokensOut {
		return Trade{}, &SlippageError{Expected: q.AmountOut, Minimum: minTokensOut}
	}

	if err := e.ledger.Apply(
		ledger.CreditEntry(cfg.Treasury, ledger.BaseAsset, q.PlatformFee),
		ledger.CreditEntry(p.state.Creator, ledger.BaseAsset, q.CreatorFee),
		ledger.CreditEntry(buyer, p.state.Mint, q.AmountOut),
	); err != nil {
		return Trade{}, fmt.Errorf("route buy: %w", err)
	}

	s := &p.state
	s.BaseBalance += q.Gross
	s.TokenBalance -= q.AmountOut
	s.CirculatingSupply += q.AmountOut
	if s.TotalVolume > math.MaxUint64-payment {
		s.TotalVolume = math.MaxUint64
	} else {
		s.TotalVolume += payment
	}
	s.TradeCount++

	return e.committed(p, q, buyer), nil
}

// Sell returns tokens to the pool. Fees are taken from the gross proceeds and
// the remainder is credited to seller.
func (e *Executor) Sell(seller solana.PublicKey, p *Pool, tokens, minAmountOut uint64) (Trade, error) {
	cfg := e.config.Snapshot()
	if cfg.Paused {
		return Trade{}, ErrGlobalPaused
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.tradable(); err != nil {
		return Trade{}, err
	}
	q, err := quoteSell(p.state, cfg, tokens)
	if err != nil {
		return Trade{}, err
	}
	if q.AmountOut < minAmountOut {
		return Trade{}, &SlippageError{Expected: q.AmountOut, Minimum: minAmountOut}
	}

	if err := e.ledger.Apply(
		ledger.DebitEntry(seller, p.state.Mint, tokens),
		ledger.CreditEntry(cfg.Treasury, ledger.BaseAsset, q.PlatformFee),
		ledger.CreditEntry(p.state.Creator, ledger.BaseAsset, q.CreatorFee),
		ledger.CreditEntry(seller, ledger.BaseAsset, q.AmountOut),
	); err != nil {
		return Trade{}, fmt.Errorf("route sell: %w", err)
	}

	s := &p.state
	s.CirculatingSupply -= tokens
	s.TokenBalance += tokens
	s.BaseBalance -= q.Gross
	s.TradeCount++

	return e.committed(p, q, seller), nil
}

// committed must be called with p.mu held.
func (e *Executor) committed(p *Pool, q Quote, trader solana.PublicKey) Trade {
	e.logger.Debug("Trade executed",
		zap.String("pool", p.state.ID.String()),
		zap.String("side", string(q.Side)),
		zap.Uint64("in", q.AmountIn),
		zap.Uint64("out", q.AmountOut),
		zap.Uint64("price_after", q.PriceAfter))
	return Trade{
		Quote:             q,
		Pool:              p.state.ID,
		Trader:            trader,
		CirculatingSupply: p.state.CirculatingSupply,
		BaseBalance:       p.state.BaseBalance,
		Timestamp:         e.now(),
	}
}

// SetPaused sets the pool's pause flag. Repeating the current value is a no-op.
func (e *Executor) SetPaused(cred auth.Credential, p *Pool, paused bool) (bool, error) {
	if err := e.auth.Require(cred, auth.RoleAdmin); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Status == StatusGraduated {
		return false, ErrPoolGraduated
	}
	if p.state.Paused == paused {
		return false, nil
	}
	p.state.Paused = paused
	e.logger.Info("Pool pause flag changed",
		zap.String("pool", p.state.ID.String()),
		zap.Bool("paused", paused),
		zap.String("by", cred.Holder.String()))
	return true, nil
}

// GraduationReady reports whether p has crossed the configured threshold.
func (e *Executor) GraduationReady(p *Pool) bool {
	threshold := e.config.Snapshot().GraduationThreshold
	return p.Snapshot().Ready(threshold)
}

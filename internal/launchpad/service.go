// internal/launchpad/service.go
package launchpad

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/auth"
	"github.com/rovshanmuradov/curve-launchpad/internal/dao"
	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/graduation"
	"github.com/rovshanmuradov/curve-launchpad/internal/ledger"
	"github.com/rovshanmuradov/curve-launchpad/internal/logger"
	"github.com/rovshanmuradov/curve-launchpad/internal/metrics"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
	"github.com/rovshanmuradov/curve-launchpad/internal/protocol"
	"github.com/rovshanmuradov/curve-launchpad/internal/registry"
	"github.com/rovshanmuradov/curve-launchpad/internal/staking"
	"github.com/rovshanmuradov/curve-launchpad/internal/vesting"
)

var (
	ErrPoolNotFound = errors.New("pool not found")
	ErrPoolExists   = errors.New("pool already exists")
	ErrNoFees       = errors.New("no fees to withdraw")
)

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Protocol  protocol.Config
	Admins    []solana.PublicKey
	Operators []solana.PublicKey
	// Registry defaults to an in-memory store.
	Registry registry.Store
	// Events defaults to events.Discard.
	Events          events.Publisher
	Metrics         *metrics.Collector
	DefaultExchange string
	Logger          *zap.Logger
}

// Service is the launchpad entry point: it owns the pool directory and
// routes every operation through the executor and graduation coordinator.
type Service struct {
	config      *protocol.Store
	auth        *auth.Authorizer
	ledger      *ledger.Ledger
	executor    *pool.Executor
	coordinator *graduation.Coordinator
	vesting     *vesting.Manager
	staking     *staking.Manager
	dao         *dao.Manager
	registry    registry.Store
	events      events.Publisher
	metrics     *metrics.Collector
	logger      *zap.Logger

	defaultExchange string

	mu    sync.RWMutex
	pools map[solana.PublicKey]*pool.Pool
	order []solana.PublicKey
	now   func() time.Time
}

// NewService builds every component of the launchpad from cfg.
func NewService(cfg *ServiceConfig) (*Service, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if len(cfg.Admins) == 0 {
		return nil, fmt.Errorf("at least one admin is required")
	}
	log := cfg.Logger.Named("launchpad")

	authorizer := auth.NewAuthorizer(log, cfg.Admins...)
	authorizer.Seed(auth.RoleOperator, cfg.Operators...)

	store, err := protocol.NewStore(cfg.Protocol, authorizer, log)
	if err != nil {
		return nil, fmt.Errorf("initial config: %w", err)
	}

	s := &Service{
		config:          store,
		auth:            authorizer,
		ledger:          ledger.New(log),
		registry:        cfg.Registry,
		events:          cfg.Events,
		metrics:         cfg.Metrics,
		logger:          log,
		defaultExchange: cfg.DefaultExchange,
		pools:           make(map[solana.PublicKey]*pool.Pool),
		now:             time.Now,
	}
	if s.registry == nil {
		s.registry = registry.NewMemoryStore()
	}
	if s.events == nil {
		s.events = events.Discard
	}
	if s.metrics == nil {
		s.metrics = metrics.NewCollector()
	}
	if s.defaultExchange == "" {
		s.defaultExchange = protocol.ExchangeCPAMM
	}

	s.executor = pool.NewExecutor(store, s.ledger, authorizer, log)
	s.vesting = vesting.NewManager(s.ledger, log)
	s.staking = staking.NewManager(s.ledger, log)
	s.dao = dao.NewManager(s.ledger, log)
	s.coordinator = graduation.NewCoordinator(graduation.Deps{
		Config:    store,
		Auth:      authorizer,
		Ledger:    s.ledger,
		Exchanges: newExchangeResolver(store, log),
		Vesting:   s.vesting,
		Staking:   s.staking,
		DAO:       s.dao,
		Registry:  s.registry,
	}, log)

	store.SetObserver(func(group string, updatedBy solana.PublicKey, c protocol.Config) {
		s.publish(events.ConfigUpdatedEvent{
			BaseEvent: events.NewBase(events.ConfigUpdated, s.clock()),
			Group:     group,
			UpdatedBy: updatedBy,
			Version:   c.Version,
		})
	})

	log.Info("Launchpad service initialized",
		zap.Int("admins", len(cfg.Admins)),
		zap.Int("operators", len(cfg.Operators)),
		zap.String("default_exchange", s.defaultExchange))
	return s, nil
}

// SetClock replaces the time source of the service and every component.
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	s.auth.SetClock(now)
	s.executor.SetClock(now)
	s.coordinator.SetClock(now)
}

func (s *Service) clock() time.Time {
	s.mu.RLock()
	now := s.now
	s.mu.RUnlock()
	return now()
}

func (s *Service) Config() *protocol.Store     { return s.config }
func (s *Service) Auth() *auth.Authorizer      { return s.auth }
func (s *Service) Ledger() *ledger.Ledger      { return s.ledger }
func (s *Service) Vesting() *vesting.Manager   { return s.vesting }
func (s *Service) Registry() registry.Store    { return s.registry }
func (s *Service) Metrics() *metrics.Collector { return s.metrics }
func (s *Service) DefaultExchange() string     { return s.defaultExchange }
func (s *Service) Staking() *staking.Manager   { return s.staking }
func (s *Service) DAO() *dao.Manager           { return s.dao }

func (s *Service) publish(e events.Event) {
	if err := s.events.Publish(e); err != nil {
		s.logger.Warn("Event not published",
			zap.String("type", string(e.Type())),
			zap.Error(err))
		if errors.Is(err, events.ErrBusFull) {
			s.metrics.AddDroppedEvents(1)
		}
	}
}

func (s *Service) lookup(id solana.PublicKey) (*pool.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, id)
	}
	return p, nil
}

func (s *Service) refreshActivePools() {
	active := 0
	for _, st := range s.Pools() {
		if st.Status != pool.StatusGraduated {
			active++
		}
	}
	s.metrics.SetActivePools(active)
}

// Pool returns a snapshot of one pool.
func (s *Service) Pool(id solana.PublicKey) (pool.State, error) {
	p, err := s.lookup(id)
	if err != nil {
		return pool.State{}, err
	}
	return p.Snapshot(), nil
}

// Pools returns snapshots of every pool in creation order.
func (s *Service) Pools() []pool.State {
	s.mu.RLock()
	ps := make([]*pool.Pool, 0, len(s.order))
	for _, id := range s.order {
		ps = append(ps, s.pools[id])
	}
	s.mu.RUnlock()

	out := make([]pool.State, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Snapshot())
	}
	return out
}

// ReadyPools lists pools that crossed the graduation threshold, oldest first.
func (s *Service) ReadyPools() []solana.PublicKey {
	threshold := s.config.Snapshot().GraduationThreshold
	var ready []pool.State
	for _, st := range s.Pools() {
		if st.Ready(threshold) {
			ready = append(ready, st)
		}
	}
	sort.SliceStable(ready, func(i, j int) bool {
		return ready[i].CreatedAt.Before(ready[j].CreatedAt)
	})
	ids := make([]solana.PublicKey, len(ready))
	for i, st := range ready {
		ids[i] = st.ID
	}
	return ids
}

// CreateToken launches a pool for creator and adds it to the directory.
func (s *Service) CreateToken(creator solana.PublicKey, payment uint64, params pool.CreateParams) (pool.CreateReceipt, error) {
	s.mu.Lock()
	id, _, err := pool.DeriveAddresses(creator, params.Symbol, params.Nonce)
	if err == nil {
		if _, exists := s.pools[id]; exists {
			s.mu.Unlock()
			return pool.CreateReceipt{}, fmt.Errorf("%w: %s", ErrPoolExists, id)
		}
	}
	p, receipt, err := s.executor.CreateToken(creator, payment, params)
	if err != nil {
		s.mu.Unlock()
		return pool.CreateReceipt{}, err
	}
	s.pools[receipt.State.ID] = p
	s.order = append(s.order, receipt.State.ID)
	s.mu.Unlock()

	st := receipt.State
	s.publish(events.TokenCreatedEvent{
		BaseEvent:          events.NewBase(events.TokenCreated, s.clock()),
		Pool:               st.ID,
		Mint:               st.Mint,
		Creator:            st.Creator,
		Name:               st.Name,
		Symbol:             st.Symbol,
		TotalSupply:        st.TotalSupply,
		PlatformAllocation: st.PlatformAllocation,
		CreationFee:        receipt.CreationFee,
		BasePrice:          st.Curve.BasePrice,
		Slope:              st.Curve.Slope,
	})
	s.refreshActivePools()
	return receipt, nil
}

// QuoteBuy prices a buy without executing it.
func (s *Service) QuoteBuy(id solana.PublicKey, payment uint64) (pool.Quote, error) {
	p, err := s.lookup(id)
	if err != nil {
		return pool.Quote{}, err
	}
	return s.executor.QuoteBuy(p, payment)
}

// QuoteSell prices a sell without executing it.
func (s *Service) QuoteSell(id solana.PublicKey, tokens uint64) (pool.Quote, error) {
	p, err := s.lookup(id)
	if err != nil {
		return pool.Quote{}, err
	}
	return s.executor.QuoteSell(p, tokens)
}

// Buy spends payment on pool tokens for buyer.
func (s *Service) Buy(buyer, id solana.PublicKey, payment, minTokensOut uint64) (pool.Trade, error) {
	p, err := s.lookup(id)
	if err != nil {
		return pool.Trade{}, err
	}
	trade, err := s.executor.Buy(buyer, p, payment, minTokensOut)
	if err != nil {
		return pool.Trade{}, err
	}
	s.traded(trade, trade.AmountIn)
	if s.executor.GraduationReady(p) {
		s.logger.Info("Pool reached graduation threshold",
			zap.String("pool", id.String()),
			zap.Uint64("base_balance", trade.BaseBalance))
	}
	return trade, nil
}

// Sell returns tokens held by seller to the pool.
func (s *Service) Sell(seller, id solana.PublicKey, tokens, minAmountOut uint64) (pool.Trade, error) {
	p, err := s.lookup(id)
	if err != nil {
		return pool.Trade{}, err
	}
	trade, err := s.executor.Sell(seller, p, tokens, minAmountOut)
	if err != nil {
		return pool.Trade{}, err
	}
	s.traded(trade, trade.Gross)
	return trade, nil
}

func (s *Service) traded(t pool.Trade, base uint64) {
	s.metrics.RecordTrade(string(t.Side), base)
	s.publish(events.TradeExecutedEvent{
		BaseEvent:         events.NewBase(events.TradeExecuted, t.Timestamp),
		Pool:              t.Pool,
		Trader:            t.Trader,
		Side:              string(t.Side),
		AmountIn:          t.AmountIn,
		AmountOut:         t.AmountOut,
		PlatformFee:       t.PlatformFee,
		CreatorFee:        t.CreatorFee,
		PriceAfter:        t.PriceAfter,
		CirculatingSupply: t.CirculatingSupply,
		BaseBalance:       t.BaseBalance,
	})
}

// SetPaused pauses or resumes trading on one pool.
func (s *Service) SetPaused(cred auth.Credential, id solana.PublicKey, paused bool) error {
	p, err := s.lookup(id)
	if err != nil {
		return err
	}
	changed, err := s.executor.SetPaused(cred, p, paused)
	if err != nil {
		return err
	}
	if changed {
		s.publish(events.PoolPausedEvent{
			BaseEvent: events.NewBase(events.PoolPaused, s.clock()),
			Pool:      id,
			Paused:    paused,
			By:        cred.Holder,
		})
	}
	return nil
}

// Graduate settles a ready pool into exchangeID, or the default exchange
// when exchangeID is empty.
func (s *Service) Graduate(ctx context.Context, cred auth.Credential, id solana.PublicKey, exchangeID string) (graduation.Receipt, error) {
	p, err := s.lookup(id)
	if err != nil {
		return graduation.Receipt{}, err
	}
	if exchangeID == "" {
		exchangeID = s.defaultExchange
	}

	log := logger.WithOperation(s.logger, "graduate")
	start := time.Now()
	receipt, err := s.coordinator.Graduate(ctx, cred, p, exchangeID)
	if err != nil {
		s.metrics.RecordGraduation(exchangeID, time.Since(start), false)
		step := "initiate"
		var stepErr *graduation.StepError
		if errors.As(err, &stepErr) {
			step = stepErr.Step
		}
		log.Warn("Graduation failed",
			zap.String("pool", id.String()),
			zap.String("exchange", exchangeID),
			zap.String("step", step),
			zap.Error(err))
		s.publish(events.GraduationFailedEvent{
			BaseEvent: events.NewBase(events.GraduationFailed, s.clock()),
			Pool:      id,
			Exchange:  exchangeID,
			Step:      step,
			Err:       err,
		})
		return graduation.Receipt{}, err
	}
	s.metrics.RecordGraduation(exchangeID, receipt.Duration, true)

	e := receipt.Entry
	at := s.clock()
	s.publish(events.PoolGraduatedEvent{
		BaseEvent:         events.NewBase(events.PoolGraduated, at),
		Pool:              id,
		Exchange:          e.Exchange,
		ExchangePool:      e.ExchangePool,
		BaseToLiquidity:   e.BaseToLiquidity,
		TokensToLiquidity: e.TokensToLiquidity,
		StakingTokens:     receipt.Extraction.StakingTokens,
		GraduationFee:     e.GraduationFee,
		TotalLP:           e.TotalLP,
		CreatorLP:         e.CreatorLP,
		CommunityLP:       e.CommunityLP,
	})
	for _, sch := range receipt.Schedules {
		s.publish(events.VestingCreatedEvent{
			BaseEvent:   events.NewBase(events.VestingCreated, at),
			Schedule:    sch.ID,
			Pool:        id,
			Beneficiary: sch.Beneficiary,
			Asset:       sch.Asset,
			Amount:      sch.Amount,
			Position:    sch.Position,
			CliffMs:     uint64(sch.Cliff.Milliseconds()),
			DurationMs:  uint64(sch.Duration.Milliseconds()),
		})
	}
	s.refreshActivePools()
	log.Info("Graduation published",
		zap.String("pool", id.String()),
		zap.Int("schedules", len(receipt.Schedules)))
	return receipt, nil
}

// WithdrawFees moves the whole base balance of account to to. The treasury
// needs an admin credential; any other account needs its own signature.
func (s *Service) WithdrawFees(cred auth.Credential, account, to solana.PublicKey) (uint64, error) {
	if account.Equals(s.config.Snapshot().Treasury) {
		if err := s.auth.Require(cred, auth.RoleAdmin); err != nil {
			return 0, err
		}
	} else if err := s.auth.RequireHolder(cred, account); err != nil {
		return 0, err
	}

	amount := s.ledger.Balance(account, ledger.BaseAsset)
	if amount == 0 {
		return 0, ErrNoFees
	}
	if err := s.ledger.Transfer(account, to, ledger.BaseAsset, amount); err != nil {
		return 0, fmt.Errorf("withdraw fees: %w", err)
	}

	s.logger.Info("Fees withdrawn",
		zap.String("account", account.String()),
		zap.String("to", to.String()),
		zap.Uint64("amount", amount))
	s.publish(events.FeesWithdrawnEvent{
		BaseEvent: events.NewBase(events.FeesWithdrawn, s.clock()),
		Account:   account,
		To:        to,
		Amount:    amount,
	})
	return amount, nil
}

// ClaimVesting releases what has vested on a schedule to its beneficiary.
func (s *Service) ClaimVesting(cred auth.Credential, scheduleID string) (uint64, error) {
	sch, err := s.vesting.Get(scheduleID)
	if err != nil {
		return 0, err
	}
	if err := s.auth.RequireHolder(cred, sch.Beneficiary); err != nil {
		return 0, err
	}
	_, amount, err := s.vesting.Claim(scheduleID, sch.Beneficiary, s.clock())
	if err != nil {
		return 0, err
	}
	s.publish(events.VestingClaimedEvent{
		BaseEvent:   events.NewBase(events.VestingClaimed, s.clock()),
		Schedule:    scheduleID,
		Beneficiary: sch.Beneficiary,
		Amount:      amount,
	})
	return amount, nil
}

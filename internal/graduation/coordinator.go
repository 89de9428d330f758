// internal/graduation/coordinator.go
package graduation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/auth"
	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
	"github.com/rovshanmuradov/curve-launchpad/internal/dao"
	"github.com/rovshanmuradov/curve-launchpad/internal/distribution"
	"github.com/rovshanmuradov/curve-launchpad/internal/exchange"
	"github.com/rovshanmuradov/curve-launchpad/internal/ledger"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
	"github.com/rovshanmuradov/curve-launchpad/internal/protocol"
	"github.com/rovshanmuradov/curve-launchpad/internal/registry"
	"github.com/rovshanmuradov/curve-launchpad/internal/staking"
	"github.com/rovshanmuradov/curve-launchpad/internal/vesting"
)

// Adapters resolves an exchange id to its adapter.
type Adapters interface {
	Get(id string) (exchange.Adapter, error)
}

// Deps are the collaborators a Coordinator settles into.
type Deps struct {
	Config    *protocol.Store
	Auth      *auth.Authorizer
	Ledger    *ledger.Ledger
	Exchanges Adapters
	Vesting   *vesting.Manager
	Staking   *staking.Manager
	DAO       *dao.Manager
	Registry  registry.Store
}

// Coordinator moves a ready pool's funds into exchange liquidity, staking,
// governance and vesting, or leaves everything as it was.
type Coordinator struct {
	Deps
	logger *zap.Logger
	now    func() time.Time
}

func NewCoordinator(deps Deps, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		Deps:   deps,
		logger: logger.Named("graduation"),
		now:    time.Now,
	}
}

// SetClock replaces the time source.
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

// Allocation is where one LP share ended up.
type Allocation struct {
	// Recipient is "creator", "protocol" or "community".
	Recipient   string
	Destination protocol.LPDestination
	Owner       solana.PublicKey
	LPAmount    uint64
	Position    string
	Schedule    string
}

// Receipt describes a completed graduation.
type Receipt struct {
	Entry         registry.Entry
	Pool          pool.State
	Extraction    pool.Extraction
	CreatorTokens uint64
	Liquidity     []exchange.Liquidity
	Allocations   []Allocation
	Schedules     []vesting.Schedule
	StakingPool   solana.PublicKey
	Governance    solana.PublicKey
	DAOTreasury   solana.PublicKey
	Duration      time.Duration
}

// Initiate issues a ticket for p. The graduation fee is held in the pool's
// settlement account until Complete pays it to the treasury.
func (c *Coordinator) Initiate(cred auth.Credential, p *pool.Pool, exchangeID string) (*Ticket, error) {
	if err := c.Auth.Require(cred, auth.RoleOperator, auth.RoleAdmin); err != nil {
		return nil, err
	}
	cfg := c.Config.Snapshot()
	if cfg.Paused {
		return nil, pool.ErrGlobalPaused
	}
	if !cfg.SupportsExchange(exchangeID) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExchange, exchangeID)
	}
	adapter, err := c.Exchanges.Get(exchangeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedExchange, err)
	}

	ext, err := p.BeginGraduation(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Ledger.Credit(ext.Before.ID, ledger.BaseAsset, ext.GraduationFee); err != nil {
		if abortErr := p.AbortGraduation(); abortErr != nil {
			err = errors.Join(err, abortErr)
		}
		return nil, fmt.Errorf("hold graduation fee: %w", err)
	}

	c.logger.Info("Graduation initiated",
		zap.String("pool", ext.Before.ID.String()),
		zap.String("exchange", exchangeID),
		zap.Uint64("fee", ext.GraduationFee),
		zap.Uint64("base", ext.Base),
		zap.Uint64("tokens", ext.Tokens),
		zap.Uint64("staking_tokens", ext.StakingTokens))

	return &Ticket{pool: p, adapter: adapter, config: cfg, extraction: ext}, nil
}

// Abort releases the held graduation fee and restores the pool to its state before Initiate.
func (c *Coordinator) Abort(t *Ticket) error {
	if t.closed {
		return ErrTicketClosed
	}
	t.closed = true
	var errs []error
	if err := c.Ledger.Debit(t.extraction.Before.ID, ledger.BaseAsset, t.extraction.GraduationFee); err != nil {
		errs = append(errs, fmt.Errorf("release graduation fee: %w", err))
	}
	if err := t.pool.AbortGraduation(); err != nil {
		errs = append(errs, err)
	}
	c.logger.Warn("Graduation aborted", zap.String("pool", t.extraction.Before.ID.String()))
	return errors.Join(errs...)
}

// Complete records entry, marks the pool graduated and pays the held
// graduation fee to the treasury. Every ticket category must have been
// extracted.
func (c *Coordinator) Complete(ctx context.Context, t *Ticket, entry registry.Entry) (pool.State, error) {
	if t.closed {
		return pool.State{}, ErrTicketClosed
	}
	if !t.Drained() {
		return pool.State{}, fmt.Errorf("%w: %v", ErrUndrained, t.undrained())
	}
	fee := t.extraction.GraduationFee
	if c.Ledger.Balance(t.config.Treasury, ledger.BaseAsset) > math.MaxUint64-fee {
		return pool.State{}, fmt.Errorf("pay graduation fee: %w", ledger.ErrBalanceOverflow)
	}
	if err := c.Registry.Record(ctx, entry); err != nil {
		return pool.State{}, fmt.Errorf("record graduation: %w", err)
	}
	state, err := t.pool.FinishGraduation()
	if err != nil {
		c.logger.Error("Graduation recorded but pool not finalized",
			zap.String("pool", entry.Pool.String()),
			zap.Error(err))
		return pool.State{}, err
	}
	t.closed = true
	if err := c.Ledger.Transfer(t.extraction.Before.ID, t.config.Treasury, ledger.BaseAsset, fee); err != nil {
		c.logger.Error("Graduation fee left in settlement account",
			zap.String("pool", entry.Pool.String()),
			zap.Uint64("fee", fee),
			zap.Error(err))
	}
	return state, nil
}

// Graduate runs the whole settlement for p as one unit. On any failure every
// completed step is compensated and the pool is left as it was.
func (c *Coordinator) Graduate(ctx context.Context, cred auth.Credential, p *pool.Pool, exchangeID string) (Receipt, error) {
	start := time.Now()
	t, err := c.Initiate(cred, p, exchangeID)
	if err != nil {
		return Receipt{}, err
	}

	s := &settlement{
		Coordinator: c,
		ticket:      t,
		cfg:         t.config,
		state:       t.extraction.Before,
		now:         c.now(),
		saga:        &saga{logger: c.logger},
	}
	receipt, err := s.run(ctx)
	if err != nil {
		if rbErr := s.saga.rollback(); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		if abortErr := c.Abort(t); abortErr != nil {
			err = errors.Join(err, abortErr)
		}
		c.logger.Error("Graduation rolled back",
			zap.String("pool", s.state.ID.String()),
			zap.String("exchange", exchangeID),
			zap.Error(err))
		return Receipt{}, err
	}
	receipt.Duration = time.Since(start)

	c.logger.Info("Pool graduated",
		zap.String("pool", s.state.ID.String()),
		zap.String("symbol", s.state.Symbol),
		zap.String("exchange", exchangeID),
		zap.String("exchange_pool", receipt.Entry.ExchangePool.String()),
		zap.Uint64("total_lp", receipt.Entry.TotalLP),
		zap.Int("schedules", len(receipt.Schedules)),
		zap.Duration("duration", receipt.Duration))
	return receipt, nil
}

// settlement is the state of one Graduate call.
type settlement struct {
	*Coordinator
	ticket *Ticket
	cfg    protocol.Config
	state  pool.State
	now    time.Time
	saga   *saga

	receipt Receipt
}

func (s *settlement) fail(step string, err error) error {
	return &StepError{Step: step, Err: err}
}

func (s *settlement) run(ctx context.Context) (Receipt, error) {
	t := s.ticket
	s.receipt.Extraction = t.extraction

	base, err := t.ExtractAllBase()
	if err != nil {
		return Receipt{}, s.fail("extract", err)
	}
	tokens, err := t.ExtractAllTokens()
	if err != nil {
		return Receipt{}, s.fail("extract", err)
	}
	stakingTokens, err := t.ExtractStakingTokens()
	if err != nil {
		return Receipt{}, s.fail("extract", err)
	}

	creatorTokens := min(curve.Bps(s.state.TotalSupply, s.cfg.Graduation.CreatorBps), tokens)
	if err := s.vestCreatorTokens(creatorTokens); err != nil {
		return Receipt{}, s.fail("creator_allocation", err)
	}
	s.receipt.CreatorTokens = creatorTokens

	shares, err := s.provideLiquidity(ctx, base, tokens-creatorTokens)
	if err != nil {
		return Receipt{}, s.fail("liquidity", err)
	}
	if err := s.createRewardPool(stakingTokens); err != nil {
		return Receipt{}, s.fail("staking", err)
	}
	if err := s.createGovernance(); err != nil {
		return Receipt{}, s.fail("dao", err)
	}
	if err := s.assignAdmins(); err != nil {
		return Receipt{}, s.fail("admin_handles", err)
	}
	if err := s.distribute(shares); err != nil {
		return Receipt{}, s.fail("lp_distribution", err)
	}
	if err := s.credit(s.cfg.Treasury, s.state.Mint, s.state.PlatformAllocation); err != nil {
		return Receipt{}, s.fail("platform_allocation", err)
	}

	entry := s.entry(base, tokens-creatorTokens)
	final, err := s.Complete(ctx, t, entry)
	if err != nil {
		return Receipt{}, s.fail("complete", err)
	}
	s.receipt.Entry = entry
	s.receipt.Pool = final
	return s.receipt, nil
}

// credit adds amount to account and registers its reversal.
func (s *settlement) credit(account, asset solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if err := s.Ledger.Credit(account, asset, amount); err != nil {
		return err
	}
	s.saga.onRollback("credit "+account.String(), func() error {
		return s.Ledger.Debit(account, asset, amount)
	})
	return nil
}

// vest escrows amount of asset for beneficiary. The funds are first issued to
// the pool's settlement account.
func (s *settlement) vest(asset, beneficiary solana.PublicKey, amount, cliffMs, durationMs uint64) (vesting.Schedule, error) {
	if err := s.credit(s.state.ID, asset, amount); err != nil {
		return vesting.Schedule{}, err
	}
	sched, err := s.Vesting.CreateSchedule(s.state.ID, asset, beneficiary, amount, s.now, cliffMs, durationMs, false)
	if err != nil {
		return vesting.Schedule{}, err
	}
	s.saga.onRollback("vesting "+sched.ID, func() error {
		return s.Vesting.Cancel(sched.ID, s.state.ID)
	})
	s.receipt.Schedules = append(s.receipt.Schedules, sched)
	return sched, nil
}

func (s *settlement) vestPosition(liq exchange.Liquidity, beneficiary solana.PublicKey, cliffMs uint64) (vesting.Schedule, error) {
	sched, err := s.Vesting.CreatePositionSchedule(liq.Position, liq.PoolID, beneficiary, s.now, cliffMs, false)
	if err != nil {
		return vesting.Schedule{}, err
	}
	s.saga.onRollback("vesting "+sched.ID, func() error {
		return s.Vesting.Cancel(sched.ID, s.state.ID)
	})
	s.receipt.Schedules = append(s.receipt.Schedules, sched)
	return sched, nil
}

func (s *settlement) vestCreatorTokens(amount uint64) error {
	if amount == 0 {
		return nil
	}
	_, err := s.vest(s.state.Mint, s.state.Creator, amount,
		s.cfg.Vesting.CreatorLpCliffMs, s.cfg.Vesting.CreatorLpDurationMs)
	return err
}

// lpShare is one recipient's part of the graduation liquidity.
type lpShare struct {
	recipient   string
	destination protocol.LPDestination
	liquidity   exchange.Liquidity
	amount      uint64
}

func (s *settlement) openLiquidity(ctx context.Context, base, tokens uint64) (exchange.Liquidity, error) {
	adapter := s.ticket.adapter
	liq, err := adapter.CreateLiquidity(ctx, s.state.Mint, base, tokens)
	if err != nil {
		return exchange.Liquidity{}, err
	}
	s.saga.onRollback("liquidity "+liq.PoolID.String(), func() error {
		return adapter.RemoveLiquidity(context.Background(), liq)
	})
	s.receipt.Liquidity = append(s.receipt.Liquidity, liq)
	return liq, nil
}

// communityDestination resolves where the community share goes when no DAO exists.
func (s *settlement) communityDestination() protocol.LPDestination {
	dest := s.cfg.LP.CommunityLpDestination
	if dest == protocol.LPToDAOTreasury && !s.cfg.DAO.Enabled {
		dest = s.cfg.LP.DaoLpDestination
		if dest == protocol.LPToDAOTreasury {
			dest = protocol.LPToProtocol
		}
	}
	return dest
}

// provideLiquidity deposits base and tokens on the target exchange. Fungible
// exchanges mint one LP balance that is divided afterwards; position
// exchanges get one whole position per recipient.
func (s *settlement) provideLiquidity(ctx context.Context, base, tokens uint64) ([]lpShare, error) {
	lp := s.cfg.LP
	community := s.communityDestination()

	if s.ticket.adapter.Kind() == exchange.KindFungible {
		liq, err := s.openLiquidity(ctx, base, tokens)
		if err != nil {
			return nil, err
		}
		split, err := distribution.SplitLP(liq.LPAmount, lp.CreatorLpBps, lp.ProtocolLpBps)
		if err != nil {
			return nil, err
		}
		return []lpShare{
			{recipient: "creator", destination: protocol.LPToCreatorVesting, liquidity: liq, amount: split.Creator},
			{recipient: "protocol", destination: protocol.LPToProtocol, liquidity: liq, amount: split.Protocol},
			{recipient: "community", destination: community, liquidity: liq, amount: split.Community},
		}, nil
	}

	deposits, err := distribution.SplitDeposits(base, tokens, lp.CreatorLpBps, lp.ProtocolLpBps)
	if err != nil {
		return nil, err
	}
	// A one-sided deposit cannot open a position; it joins the community share.
	for _, d := range []*distribution.Deposit{&deposits.Creator, &deposits.Protocol} {
		if d.Base == 0 || d.Tokens == 0 {
			deposits.Community.Base += d.Base
			deposits.Community.Tokens += d.Tokens
			*d = distribution.Deposit{}
		}
	}
	plan := []struct {
		recipient   string
		destination protocol.LPDestination
		deposit     distribution.Deposit
	}{
		{"creator", protocol.LPToCreatorVesting, deposits.Creator},
		{"protocol", protocol.LPToProtocol, deposits.Protocol},
		{"community", community, deposits.Community},
	}
	var shares []lpShare
	for _, p := range plan {
		if p.deposit.IsZero() {
			continue
		}
		liq, err := s.openLiquidity(ctx, p.deposit.Base, p.deposit.Tokens)
		if err != nil {
			return nil, err
		}
		shares = append(shares, lpShare{
			recipient:   p.recipient,
			destination: p.destination,
			liquidity:   liq,
			amount:      liq.LPAmount,
		})
	}
	return shares, nil
}

func (s *settlement) createRewardPool(reserve uint64) error {
	if !s.cfg.Staking.Enabled || reserve == 0 {
		return nil
	}
	if err := s.credit(s.state.ID, s.state.Mint, reserve); err != nil {
		return err
	}
	st := s.cfg.Staking
	rp, err := s.Staking.CreateRewardPool(s.state.ID, staking.Params{
		RewardMint:      s.state.Mint,
		StakeMint:       s.state.Mint,
		RewardTokens:    reserve,
		Start:           s.now,
		DurationMs:      st.DurationMs,
		MinDurationMs:   st.MinDurationMs,
		EarlyExitFeeBps: st.EarlyExitFeeBps,
		StakeFeeBps:     st.StakeFeeBps,
		UnstakeFeeBps:   st.UnstakeFeeBps,
	})
	if err != nil {
		return err
	}
	s.saga.onRollback("reward pool "+rp.ID.String(), func() error {
		return s.Staking.Close(rp.ID, rp.AdminHandle, s.state.ID)
	})
	s.receipt.StakingPool = rp.ID
	return nil
}

func (s *settlement) createGovernance() error {
	if !s.cfg.DAO.Enabled {
		return nil
	}
	d := s.cfg.DAO
	gov, err := s.DAO.CreateGovernance(s.state.ID, dao.Params{
		Name:                 s.state.Symbol + " DAO",
		StakingPool:          s.receipt.StakingPool,
		QuorumBps:            d.QuorumBps,
		VotingDelayMs:        d.VotingDelayMs,
		VotingPeriodMs:       d.VotingPeriodMs,
		TimelockDelayMs:      d.TimelockDelayMs,
		ProposalThresholdBps: d.ProposalThresholdBps,
		CouncilEnabled:       d.CouncilEnabled,
	}, s.now)
	if err != nil {
		return err
	}
	s.saga.onRollback("governance "+gov.ID.String(), func() error {
		return s.DAO.Dissolve(gov.ID, gov.AdminHandle, s.state.ID)
	})
	treasury, err := s.DAO.CreateTreasury(gov.ID, gov.AdminHandle)
	if err != nil {
		return err
	}
	s.receipt.Governance = gov.ID
	s.receipt.DAOTreasury = treasury
	return nil
}

func (s *settlement) adminTarget(d protocol.AdminDestination) solana.PublicKey {
	switch d {
	case protocol.AdminToCreator:
		return s.state.Creator
	case protocol.AdminToDAO:
		if !s.receipt.Governance.IsZero() {
			return s.receipt.Governance
		}
	}
	return s.cfg.Treasury
}

// assignAdmins hands the reward pool and governance admin handles to their
// configured destinations.
func (s *settlement) assignAdmins() error {
	if !s.receipt.StakingPool.IsZero() {
		rp, err := s.Staking.Get(s.receipt.StakingPool)
		if err != nil {
			return err
		}
		if err := s.Staking.TransferAdmin(rp.ID, rp.AdminHandle, s.adminTarget(s.cfg.Staking.AdminDestination)); err != nil {
			return err
		}
	}
	if !s.receipt.Governance.IsZero() {
		gov, err := s.DAO.Get(s.receipt.Governance)
		if err != nil {
			return err
		}
		if err := s.DAO.TransferAdmin(gov.ID, gov.AdminHandle, s.adminTarget(s.cfg.DAO.AdminDestination)); err != nil {
			return err
		}
	}
	return nil
}

func (s *settlement) distribute(shares []lpShare) error {
	for _, sh := range shares {
		a, err := s.route(sh)
		if err != nil {
			return fmt.Errorf("%s share: %w", sh.recipient, err)
		}
		if a != nil {
			s.receipt.Allocations = append(s.receipt.Allocations, *a)
		}
	}
	return nil
}

// transferPosition hands a whole position to owner on adapters that track
// holders. Elsewhere the allocation in the receipt is the only record.
func (s *settlement) transferPosition(liq exchange.Liquidity, owner solana.PublicKey) error {
	tr, ok := s.ticket.adapter.(exchange.PositionTransferer)
	if !ok {
		return nil
	}
	previous, err := tr.TransferPosition(liq, owner)
	if err != nil {
		return err
	}
	s.saga.onRollback("position "+liq.Position, func() error {
		_, err := tr.TransferPosition(liq, previous)
		return err
	})
	return nil
}

// route delivers one LP share to its destination.
func (s *settlement) route(sh lpShare) (*Allocation, error) {
	liq := sh.liquidity
	position := liq.Kind == exchange.KindPosition
	if sh.amount == 0 && !position {
		return nil, nil
	}
	a := &Allocation{
		Recipient:   sh.recipient,
		Destination: sh.destination,
		LPAmount:    sh.amount,
		Position:    liq.Position,
	}
	v := s.cfg.Vesting

	switch sh.destination {
	case protocol.LPToProtocol:
		a.Owner = s.cfg.Treasury
		if position {
			return a, s.transferPosition(liq, s.cfg.Treasury)
		}
		return a, s.credit(s.cfg.Treasury, liq.LPMint, sh.amount)
	case protocol.LPBurn:
		a.Owner = ledger.BurnAddress
		if position {
			return a, s.transferPosition(liq, ledger.BurnAddress)
		}
		return a, s.credit(ledger.BurnAddress, liq.LPMint, sh.amount)
	case protocol.LPToCreatorVesting:
		a.Owner = s.state.Creator
		var sched vesting.Schedule
		var err error
		if position {
			sched, err = s.vestPosition(liq, s.state.Creator, v.CreatorLpCliffMs)
		} else {
			sched, err = s.vest(liq.LPMint, s.state.Creator, sh.amount, v.CreatorLpCliffMs, v.CreatorLpDurationMs)
		}
		if err != nil {
			return nil, err
		}
		a.Schedule = sched.ID
	case protocol.LPToDAOTreasury:
		treasury := s.receipt.DAOTreasury
		if treasury.IsZero() {
			return nil, fmt.Errorf("%w: community share routed to a DAO that was not created", protocol.ErrInvalidEnum)
		}
		a.Owner = treasury
		var sched vesting.Schedule
		var err error
		if position {
			sched, err = s.vestPosition(liq, treasury, v.DaoLpCliffMs)
			if err == nil {
				err = s.deposit(liq.Position)
			}
		} else {
			sched, err = s.vest(liq.LPMint, treasury, sh.amount, v.DaoLpCliffMs, v.DaoLpDurationMs)
		}
		if err != nil {
			return nil, err
		}
		a.Schedule = sched.ID
	default:
		return nil, fmt.Errorf("%w: lp destination %d", protocol.ErrInvalidEnum, sh.destination)
	}
	return a, nil
}

func (s *settlement) deposit(position string) error {
	gov, err := s.DAO.Get(s.receipt.Governance)
	if err != nil {
		return err
	}
	if err := s.DAO.DepositPosition(gov.ID, position); err != nil {
		return err
	}
	s.saga.onRollback("deposit "+position, func() error {
		return s.DAO.WithdrawPosition(gov.ID, gov.AdminHandle, position)
	})
	return nil
}

func (s *settlement) entry(base, tokens uint64) registry.Entry {
	e := registry.Entry{
		Pool:              s.state.ID,
		Mint:              s.state.Mint,
		Symbol:            s.state.Symbol,
		Exchange:          s.ticket.Exchange(),
		LPKind:            s.ticket.adapter.Kind().String(),
		BaseToLiquidity:   base,
		TokensToLiquidity: tokens,
		StakingPool:       s.receipt.StakingPool,
		Governance:        s.receipt.Governance,
		GraduationFee:     s.ticket.extraction.GraduationFee,
		GraduatedAt:       s.now,
	}
	if len(s.receipt.Liquidity) > 0 {
		e.ExchangePool = s.receipt.Liquidity[0].PoolID
	}
	for _, liq := range s.receipt.Liquidity {
		if liq.Position != "" {
			e.Positions = append(e.Positions, liq.Position)
		}
	}
	for _, a := range s.receipt.Allocations {
		e.TotalLP += a.LPAmount
		switch a.Recipient {
		case "creator":
			e.CreatorLP += a.LPAmount
		case "protocol":
			e.ProtocolLP += a.LPAmount
		default:
			e.CommunityLP += a.LPAmount
		}
	}
	return e
}

// =============================================
// File: internal/task/simulator.go
// =============================================
package task

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/auth"
	"github.com/rovshanmuradov/curve-launchpad/internal/launchpad"
	"github.com/rovshanmuradov/curve-launchpad/internal/ledger"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
)

// JournalHeader is the column layout of the records a Simulator writes.
var JournalHeader = []string{
	"time", "step", "action", "account", "token", "amount_in", "amount_out", "status", "error",
}

// Recorder receives one record per executed step. *logger.Journal
// satisfies it.
type Recorder interface {
	Write(record []string) error
}

// Outcome is the result of one step.
type Outcome struct {
	Step      *Step
	At        time.Time
	Pool      solana.PublicKey
	AmountIn  uint64
	AmountOut uint64
	Err       error
}

// Report summarizes a scenario run.
type Report struct {
	Scenario string
	Outcomes []Outcome
	// Pools maps token symbols to pool ids.
	Pools map[string]solana.PublicKey
}

// Failed counts the steps that returned an error.
func (r *Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Simulator replays a scenario against a service on a simulated clock.
// Failing steps are recorded and the run continues.
type Simulator struct {
	svc      *launchpad.Service
	scenario *Scenario
	logger   *zap.Logger
	journal  Recorder
	now      time.Time
	pools    map[string]solana.PublicKey
}

// NewSimulator takes over the service clock, starting at start.
func NewSimulator(svc *launchpad.Service, scenario *Scenario, start time.Time, logger *zap.Logger) *Simulator {
	s := &Simulator{
		svc:      svc,
		scenario: scenario,
		logger:   logger.Named("simulator"),
		now:      start,
		pools:    make(map[string]solana.PublicKey),
	}
	svc.SetClock(func() time.Time { return s.now })
	return s
}

// SetJournal records every step outcome to r.
func (s *Simulator) SetJournal(r Recorder) {
	s.journal = r
}

// Now returns the simulated time.
func (s *Simulator) Now() time.Time {
	return s.now
}

// Run executes every step in order. It only fails when ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) (*Report, error) {
	report := &Report{Scenario: s.scenario.Name, Pools: s.pools}
	s.logger.Info("Running scenario",
		zap.String("name", s.scenario.Name),
		zap.Int("steps", len(s.scenario.Steps)))

	for _, step := range s.scenario.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		out := s.execute(ctx, step)
		report.Outcomes = append(report.Outcomes, out)
		s.record(out)

		if out.Err != nil {
			s.logger.Warn("Step failed",
				zap.String("step", step.Name),
				zap.String("action", string(step.Action)),
				zap.Error(out.Err))
			continue
		}
		s.logger.Debug("Step done",
			zap.String("step", step.Name),
			zap.Uint64("amount_in", out.AmountIn),
			zap.Uint64("amount_out", out.AmountOut))
	}

	s.logger.Info("Scenario finished",
		zap.String("name", s.scenario.Name),
		zap.Int("steps", len(report.Outcomes)),
		zap.Int("failed", report.Failed()))
	return report, nil
}

func (s *Simulator) record(out Outcome) {
	if s.journal == nil {
		return
	}
	status, errText := "ok", ""
	if out.Err != nil {
		status, errText = "failed", out.Err.Error()
	}
	record := []string{
		out.At.UTC().Format(time.RFC3339),
		out.Step.Name,
		string(out.Step.Action),
		out.Step.Account,
		out.Step.Token,
		strconv.FormatUint(out.AmountIn, 10),
		strconv.FormatUint(out.AmountOut, 10),
		status,
		errText,
	}
	if err := s.journal.Write(record); err != nil {
		s.logger.Warn("Failed to write journal record", zap.Error(err))
	}
}

func (s *Simulator) execute(ctx context.Context, step *Step) Outcome {
	out := Outcome{Step: step, At: s.now}
	var err error
	switch step.Action {
	case ActionAdvance:
		s.now = s.now.Add(step.Advance)
		out.At = s.now
	case ActionCreate:
		err = s.create(step, &out)
	case ActionBuy:
		err = s.buy(step, &out)
	case ActionSell:
		err = s.sell(step, &out)
	case ActionPause, ActionResume:
		err = s.pause(step, &out)
	case ActionGraduate:
		err = s.graduate(ctx, step, &out)
	case ActionClaim:
		err = s.claim(step, &out)
	case ActionWithdraw:
		err = s.withdraw(step, &out)
	default:
		err = fmt.Errorf("unsupported action: %s", step.Action)
	}
	out.Err = err
	return out
}

func (s *Simulator) pool(symbol string) (solana.PublicKey, error) {
	id, ok := s.pools[symbol]
	if !ok {
		return solana.PublicKey{}, fmt.Errorf("%w: no pool for %s", launchpad.ErrPoolNotFound, symbol)
	}
	return id, nil
}

func (s *Simulator) admin(role auth.Role) (auth.Credential, error) {
	return s.scenario.Admin.Credential(role, s.now)
}

func (s *Simulator) create(step *Step, out *Outcome) error {
	if _, exists := s.pools[step.Token]; exists {
		return fmt.Errorf("%w: %s", launchpad.ErrPoolExists, step.Token)
	}
	creator, err := s.scenario.Wallet(step.Account)
	if err != nil {
		return err
	}
	payment := step.Amount
	if payment == 0 {
		payment = s.svc.Config().Snapshot().Fees.CreationFee
	}
	receipt, err := s.svc.CreateToken(creator.PublicKey, payment, pool.CreateParams{
		Name:          step.TokenName,
		Symbol:        step.Token,
		URI:           step.URI,
		CreatorFeeBps: step.CreatorFeeBps,
	})
	if err != nil {
		return err
	}
	s.pools[step.Token] = receipt.State.ID
	out.Pool = receipt.State.ID
	out.AmountIn = payment
	out.AmountOut = receipt.Refund
	return nil
}

func (s *Simulator) buy(step *Step, out *Outcome) error {
	id, err := s.pool(step.Token)
	if err != nil {
		return err
	}
	buyer, err := s.scenario.Wallet(step.Account)
	if err != nil {
		return err
	}
	quote, err := s.svc.QuoteBuy(id, step.Amount)
	if err != nil {
		return err
	}
	trade, err := s.svc.Buy(buyer.PublicKey, id, step.Amount, step.MinOut(quote.AmountOut))
	if err != nil {
		return err
	}
	out.Pool = id
	out.AmountIn = trade.AmountIn
	out.AmountOut = trade.AmountOut
	return nil
}

func (s *Simulator) sell(step *Step, out *Outcome) error {
	id, err := s.pool(step.Token)
	if err != nil {
		return err
	}
	seller, err := s.scenario.Wallet(step.Account)
	if err != nil {
		return err
	}
	amount := step.Amount
	if amount == 0 {
		st, err := s.svc.Pool(id)
		if err != nil {
			return err
		}
		held := s.svc.Ledger().Balance(seller.PublicKey, st.Mint)
		amount = percentOf(held, step.Percent)
		if amount == 0 {
			return fmt.Errorf("%s holds no %s to sell", step.Account, step.Token)
		}
	}
	quote, err := s.svc.QuoteSell(id, amount)
	if err != nil {
		return err
	}
	trade, err := s.svc.Sell(seller.PublicKey, id, amount, step.MinOut(quote.AmountOut))
	if err != nil {
		return err
	}
	out.Pool = id
	out.AmountIn = trade.AmountIn
	out.AmountOut = trade.AmountOut
	return nil
}

func (s *Simulator) pause(step *Step, out *Outcome) error {
	id, err := s.pool(step.Token)
	if err != nil {
		return err
	}
	cred, err := s.admin(auth.RoleAdmin)
	if err != nil {
		return err
	}
	out.Pool = id
	return s.svc.SetPaused(cred, id, step.Action == ActionPause)
}

func (s *Simulator) graduate(ctx context.Context, step *Step, out *Outcome) error {
	id, err := s.pool(step.Token)
	if err != nil {
		return err
	}
	cred, err := s.admin(auth.RoleAdmin)
	if err != nil {
		return err
	}
	receipt, err := s.svc.Graduate(ctx, cred, id, step.Exchange)
	if err != nil {
		return err
	}
	out.Pool = id
	out.AmountIn = receipt.Entry.BaseToLiquidity
	out.AmountOut = receipt.Entry.TotalLP
	return nil
}

// claim releases everything claimable on the account's vesting schedules.
func (s *Simulator) claim(step *Step, out *Outcome) error {
	w, err := s.scenario.Wallet(step.Account)
	if err != nil {
		return err
	}
	cred, err := w.Credential(auth.RoleCreator, s.now)
	if err != nil {
		return err
	}

	claimed := 0
	for _, sch := range s.svc.Vesting().ByBeneficiary(w.PublicKey) {
		if sch.Claimable(s.now) == 0 {
			continue
		}
		amount, err := s.svc.ClaimVesting(cred, sch.ID)
		if err != nil {
			return fmt.Errorf("claim %s: %w", sch.ID, err)
		}
		out.AmountOut += amount
		claimed++
	}
	if claimed == 0 {
		return errors.New("nothing to claim")
	}
	return nil
}

// withdraw moves the treasury's fees to the step's account using the
// scenario admin.
func (s *Simulator) withdraw(step *Step, out *Outcome) error {
	to, err := s.scenario.Wallet(step.Account)
	if err != nil {
		return err
	}
	cred, err := s.admin(auth.RoleAdmin)
	if err != nil {
		return err
	}
	amount, err := s.svc.WithdrawFees(cred, s.svc.Config().Snapshot().Treasury, to.PublicKey)
	if err != nil {
		return err
	}
	out.AmountOut = amount
	return nil
}

// BaseBalance returns the wallet's base asset balance in the service ledger.
func (s *Simulator) BaseBalance(wallet string) (uint64, error) {
	w, err := s.scenario.Wallet(wallet)
	if err != nil {
		return 0, err
	}
	return s.svc.Ledger().Balance(w.PublicKey, ledger.BaseAsset), nil
}

func percentOf(amount uint64, percent float64) uint64 {
	if percent >= 100 {
		return amount
	}
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), 0).
		Mul(decimal.NewFromFloat(percent)).
		Div(decimal.NewFromInt(100)).
		Floor().BigInt().Uint64()
}

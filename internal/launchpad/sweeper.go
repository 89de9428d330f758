// internal/launchpad/sweeper.go
package launchpad

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/curve-launchpad/internal/auth"
	"github.com/rovshanmuradov/curve-launchpad/internal/graduation"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
	"github.com/rovshanmuradov/curve-launchpad/internal/protocol"
	"github.com/rovshanmuradov/curve-launchpad/internal/registry"
)

// SweeperConfig controls the periodic graduation sweep.
type SweeperConfig struct {
	// Schedule is a standard cron spec or descriptor such as "@every 30s".
	Schedule string
	Workers  int
	// Retries is the number of extra attempts after a transient failure.
	Retries       int
	RetryInterval time.Duration
	// Exchange defaults to the service's default exchange.
	Exchange string
	// Operator signs the graduation credentials; it needs the operator role.
	Operator solana.PrivateKey
}

// SweepResult reports one sweep.
type SweepResult struct {
	Graduated []solana.PublicKey
	Failed    map[solana.PublicKey]error
}

// Sweeper graduates every ready pool on a schedule.
type Sweeper struct {
	svc     *Service
	cfg     SweeperConfig
	cron    *cron.Cron
	logger  *zap.Logger
	running atomic.Bool
	ctx     context.Context
}

func NewSweeper(svc *Service, cfg SweeperConfig, logger *zap.Logger) (*Sweeper, error) {
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("invalid worker count: %d", cfg.Workers)
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("invalid retry count: %d", cfg.Retries)
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	if cfg.Exchange == "" {
		cfg.Exchange = svc.DefaultExchange()
	}

	sw := &Sweeper{
		svc:    svc,
		cfg:    cfg,
		cron:   cron.New(),
		logger: logger.Named("sweeper"),
		ctx:    context.Background(),
	}
	if _, err := sw.cron.AddFunc(cfg.Schedule, sw.scheduled); err != nil {
		return nil, fmt.Errorf("register sweep schedule: %w", err)
	}
	return sw, nil
}

// Start runs the schedule until Stop. ctx bounds every scheduled sweep.
func (sw *Sweeper) Start(ctx context.Context) {
	sw.ctx = ctx
	sw.cron.Start()
	sw.logger.Info("Sweeper started",
		zap.String("schedule", sw.cfg.Schedule),
		zap.Int("workers", sw.cfg.Workers),
		zap.String("exchange", sw.cfg.Exchange))
}

// Stop halts the schedule and waits for a running sweep to finish.
func (sw *Sweeper) Stop() {
	<-sw.cron.Stop().Done()
	sw.logger.Info("Sweeper stopped")
}

func (sw *Sweeper) scheduled() {
	if _, err := sw.Sweep(sw.ctx); err != nil {
		sw.logger.Warn("Sweep incomplete", zap.Error(err))
	}
}

// ErrSweepRunning is returned when a sweep is requested while one is active.
var ErrSweepRunning = errors.New("sweep already running")

// Sweep graduates every ready pool once. Failures of single pools are
// collected in the result; the returned error joins them.
func (sw *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	if !sw.running.CompareAndSwap(false, true) {
		return SweepResult{}, ErrSweepRunning
	}
	defer sw.running.Store(false)

	ready := sw.svc.ReadyPools()
	result := SweepResult{Failed: make(map[solana.PublicKey]error)}
	if len(ready) == 0 {
		sw.logger.Debug("No pools ready to graduate")
		return result, nil
	}
	sw.logger.Info("Sweeping ready pools", zap.Int("count", len(ready)))

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(sw.cfg.Workers)
	for _, id := range ready {
		g.Go(func() error {
			err := sw.graduate(gCtx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[id] = err
			} else {
				result.Graduated = append(result.Graduated, id)
			}
			return nil
		})
	}
	_ = g.Wait()

	errs := make([]error, 0, len(result.Failed))
	for id, err := range result.Failed {
		errs = append(errs, fmt.Errorf("pool %s: %w", id, err))
	}
	sw.svc.Metrics().RecordSweep(len(errs) == 0)
	sw.logger.Info("Sweep finished",
		zap.Int("graduated", len(result.Graduated)),
		zap.Int("failed", len(result.Failed)))
	return result, errors.Join(errs...)
}

func (sw *Sweeper) graduate(ctx context.Context, id solana.PublicKey) error {
	operation := func() (graduation.Receipt, error) {
		cred, err := auth.Sign(sw.cfg.Operator, auth.RoleOperator, sw.svc.clock())
		if err != nil {
			return graduation.Receipt{}, backoff.Permanent(err)
		}
		receipt, err := sw.svc.Graduate(ctx, cred, id, sw.cfg.Exchange)
		if err != nil && isPermanent(err) {
			return receipt, backoff.Permanent(err)
		}
		return receipt, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = sw.cfg.RetryInterval
	policy.MaxInterval = sw.cfg.RetryInterval * 10

	notify := func(err error, d time.Duration) {
		sw.logger.Info("Retrying graduation",
			zap.String("pool", id.String()),
			zap.Duration("backoff", d),
			zap.Error(err))
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(sw.cfg.Retries+1)),
		backoff.WithNotify(notify))
	return err
}

// isPermanent reports errors that a retry cannot fix.
func isPermanent(err error) bool {
	for _, target := range []error{
		pool.ErrPoolPaused,
		pool.ErrPoolGraduated,
		pool.ErrGlobalPaused,
		pool.ErrNotReady,
		pool.ErrGraduationInProgress,
		graduation.ErrUnsupportedExchange,
		protocol.ErrValidation,
		auth.ErrUnauthorized,
		registry.ErrDuplicateKey,
		ErrPoolNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

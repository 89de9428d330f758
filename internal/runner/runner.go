// internal/runner/runner.go
package runner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/auth"
	"github.com/rovshanmuradov/curve-launchpad/internal/config"
	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/launchpad"
	"github.com/rovshanmuradov/curve-launchpad/internal/license"
	"github.com/rovshanmuradov/curve-launchpad/internal/metrics"
	"github.com/rovshanmuradov/curve-launchpad/internal/registry"
)

// Options overrides parts of the wiring, mostly for tests.
type Options struct {
	// Gate replaces the license gate derived from the config.
	Gate license.Gate
	// Registry replaces the store derived from postgres_url.
	Registry registry.Store
}

// Runner owns the long-running launchpad process: license check, storage,
// event bus, metrics endpoint and the graduation sweeper.
type Runner struct {
	cfg      *config.Config
	logger   *zap.Logger
	service  *launchpad.Service
	bus      *events.Bus
	metrics  *metrics.Collector
	sweeper  *launchpad.Sweeper
	server   *http.Server
	shutdown *ShutdownHandler
}

// New validates the license and builds every component from cfg. On error
// whatever was already opened is closed again.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (r *Runner, err error) {
	r = &Runner{
		cfg:      cfg,
		logger:   logger.Named("runner"),
		metrics:  metrics.NewCollector(),
		shutdown: NewShutdownHandler(logger.Named("shutdown"), 30*time.Second),
	}
	defer func() {
		if err != nil {
			_ = r.shutdown.Shutdown(context.Background())
		}
	}()

	if err := r.validateLicense(ctx, opts.Gate); err != nil {
		return nil, fmt.Errorf("license validation failed: %w", err)
	}

	store := opts.Registry
	if store == nil {
		if store, err = r.openRegistry(ctx); err != nil {
			return nil, err
		}
	}

	r.bus = events.NewBus(logger, cfg.EventBuffer)
	r.shutdown.Add("event_bus", r.bus.Shutdown)
	r.bus.SubscribeFunc(events.Any, r.logEvent)

	pc, err := cfg.Protocol()
	if err != nil {
		return nil, err
	}
	admins, err := config.ParseKeys(cfg.Admins)
	if err != nil {
		return nil, fmt.Errorf("admins: %w", err)
	}
	operators, err := config.ParseKeys(cfg.Operators)
	if err != nil {
		return nil, fmt.Errorf("operators: %w", err)
	}

	r.service, err = launchpad.NewService(&launchpad.ServiceConfig{
		Protocol:        pc,
		Admins:          admins,
		Operators:       operators,
		Registry:        store,
		Events:          r.bus,
		Metrics:         r.metrics,
		DefaultExchange: cfg.DefaultExchange,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	if err := r.buildSweeper(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runner) validateLicense(ctx context.Context, gate license.Gate) error {
	if gate == nil {
		gate = license.Open{}
		if r.cfg.License != "" {
			gate = license.NewKeygenGate(r.cfg.KeygenAccount, r.cfg.KeygenProduct, r.cfg.KeygenToken, r.logger)
		}
	}
	return gate.Check(ctx, r.cfg.License)
}

func (r *Runner) openRegistry(ctx context.Context) (registry.Store, error) {
	if r.cfg.PostgresURL == "" {
		r.logger.Info("Using in-memory graduation registry")
		return registry.NewMemoryStore(), nil
	}

	pool, err := registry.NewPool(ctx, r.cfg.PostgresURL)
	if err != nil {
		return nil, err
	}
	r.shutdown.Add("postgres", func(context.Context) error {
		pool.Close()
		return nil
	})
	if err := registry.Migrate(ctx, pool); err != nil {
		return nil, fmt.Errorf("migrate registry: %w", err)
	}
	r.logger.Info("Using postgres graduation registry")
	return registry.NewPostgresStore(pool), nil
}

func (r *Runner) buildSweeper() error {
	key, err := r.cfg.SweeperSigner()
	if err != nil {
		return err
	}
	if key == nil {
		r.logger.Info("Graduation sweeper disabled, no sweeper_key configured")
		return nil
	}
	if !r.service.Auth().HasRole(key.PublicKey(), auth.RoleOperator) {
		return fmt.Errorf("sweeper_key %s is not an operator", key.PublicKey())
	}

	r.sweeper, err = launchpad.NewSweeper(r.service, launchpad.SweeperConfig{
		Schedule: r.cfg.SweepSchedule,
		Workers:  r.cfg.SweepWorkers,
		Retries:  r.cfg.Retries,
		Exchange: r.cfg.DefaultExchange,
		Operator: key,
	}, r.logger)
	return err
}

func (r *Runner) logEvent(_ context.Context, e events.Event) error {
	r.logger.Debug("Event", zap.String("type", string(e.Type())), zap.Time("at", e.Timestamp()))
	return nil
}

func (r *Runner) Service() *launchpad.Service { return r.service }
func (r *Runner) Bus() *events.Bus             { return r.bus }
func (r *Runner) Metrics() *metrics.Collector  { return r.metrics }

// Sweeper is nil when no sweeper_key is configured.
func (r *Runner) Sweeper() *launchpad.Sweeper { return r.sweeper }

// Start launches the metrics endpoint and the sweeper. It returns once both
// are running.
func (r *Runner) Start(ctx context.Context) error {
	if r.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", r.metrics.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.server = &http.Server{
			Addr:              r.cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				r.logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
		r.shutdown.Add("metrics", r.server.Shutdown)
		r.logger.Info("Metrics endpoint listening", zap.String("addr", r.cfg.MetricsAddr))
	}

	if r.sweeper != nil {
		r.sweeper.Start(ctx)
		r.shutdown.Add("sweeper", func(context.Context) error {
			r.sweeper.Stop()
			return nil
		})
	}
	return nil
}

// Run starts the runner and blocks until ctx is cancelled, then shuts down.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	r.logger.Info("Launchpad running")
	<-ctx.Done()
	r.logger.Info("Shutdown requested", zap.Error(context.Cause(ctx)))
	return r.Close(context.Background())
}

// Close releases every component. It is safe to call more than once.
func (r *Runner) Close(ctx context.Context) error {
	return r.shutdown.Shutdown(ctx)
}

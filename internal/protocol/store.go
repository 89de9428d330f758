// internal/protocol/store.go
package protocol

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/auth"
)

// Observer is notified after a field group has been committed.
type Observer func(group string, updatedBy solana.PublicKey, cfg Config)

// Store holds the singleton Config. Reads are lock-free copies; writes are
// serialized and commit only after validation succeeds.
type Store struct {
	mu       sync.RWMutex
	cfg      Config
	auth     *auth.Authorizer
	logger   *zap.Logger
	observer Observer
}

// NewStore validates initial and wraps it in a Store.
func NewStore(initial Config, authorizer *auth.Authorizer, logger *zap.Logger) (*Store, error) {
	if err := Validate(initial); err != nil {
		return nil, err
	}
	return &Store{
		cfg:    initial.Clone(),
		auth:   authorizer,
		logger: logger.Named("config_store"),
	}, nil
}

// SetObserver installs fn to be called after each committed update.
func (s *Store) SetObserver(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = fn
}

// Snapshot returns a copy of the current configuration.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Paused reports the global pause flag.
func (s *Store) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Paused
}

// update authorizes cred, applies mutate to a copy, validates it and commits.
func (s *Store) update(cred auth.Credential, group string, roles []auth.Role, mutate func(*Config) error) error {
	if err := s.auth.Require(cred, roles...); err != nil {
		return err
	}

	s.mu.Lock()
	next := s.cfg.Clone()
	if err := mutate(&next); err != nil {
		s.mu.Unlock()
		s.logger.Warn("Rejected config update",
			zap.String("group", group),
			zap.String("by", cred.Holder.String()),
			zap.Error(err))
		return err
	}
	next.Version = s.cfg.Version + 1
	s.cfg = next
	observer := s.observer
	s.mu.Unlock()

	s.logger.Info("Config updated",
		zap.String("group", group),
		zap.Uint64("version", next.Version),
		zap.String("by", cred.Holder.String()))
	if observer != nil {
		observer(group, cred.Holder, next.Clone())
	}
	return nil
}

var adminOnly = []auth.Role{auth.RoleAdmin}

func (s *Store) SetFees(cred auth.Credential, f Fees) error {
	return s.update(cred, "fees", adminOnly, func(c *Config) error {
		if err := ValidateFees(f); err != nil {
			return err
		}
		c.Fees = f
		return nil
	})
}

func (s *Store) SetGraduationAllocation(cred auth.Credential, g GraduationAllocation) error {
	return s.update(cred, "graduation_allocation", adminOnly, func(c *Config) error {
		if err := ValidateGraduationAllocation(g); err != nil {
			return err
		}
		c.Graduation = g
		return nil
	})
}

func (s *Store) SetLPDistribution(cred auth.Credential, l LPDistribution) error {
	return s.update(cred, "lp_distribution", adminOnly, func(c *Config) error {
		if err := ValidateLPDistribution(l); err != nil {
			return err
		}
		c.LP = l
		return nil
	})
}

func (s *Store) SetVesting(cred auth.Credential, v Vesting) error {
	return s.update(cred, "vesting", adminOnly, func(c *Config) error {
		if err := ValidateVesting(v); err != nil {
			return err
		}
		c.Vesting = v
		return nil
	})
}

// SetStaking accepts admin or staking-admin credentials.
func (s *Store) SetStaking(cred auth.Credential, st Staking) error {
	return s.update(cred, "staking", []auth.Role{auth.RoleAdmin, auth.RoleStakingAdmin}, func(c *Config) error {
		if err := ValidateStaking(st); err != nil {
			return err
		}
		c.Staking = st
		return nil
	})
}

// SetDAO accepts admin or DAO-admin credentials.
func (s *Store) SetDAO(cred auth.Credential, d DAO) error {
	return s.update(cred, "dao", []auth.Role{auth.RoleAdmin, auth.RoleDAOAdmin}, func(c *Config) error {
		if err := ValidateDAO(d); err != nil {
			return err
		}
		c.DAO = d
		return nil
	})
}

func (s *Store) SetCurveDefaults(cred auth.Credential, cd CurveDefaults) error {
	return s.update(cred, "curve_defaults", adminOnly, func(c *Config) error {
		if err := ValidateCurveDefaults(cd); err != nil {
			return err
		}
		c.Curve = cd
		return nil
	})
}

func (s *Store) SetGraduationThreshold(cred auth.Credential, threshold, minLiquidity uint64) error {
	return s.update(cred, "graduation_threshold", adminOnly, func(c *Config) error {
		if err := ValidateThresholds(threshold, minLiquidity); err != nil {
			return err
		}
		c.GraduationThreshold = threshold
		c.MinGraduationLiquidity = minLiquidity
		return nil
	})
}

func (s *Store) SetTreasury(cred auth.Credential, treasury solana.PublicKey) error {
	return s.update(cred, "treasury", adminOnly, func(c *Config) error {
		if treasury.IsZero() {
			return invalid("treasury", "must not be the zero address")
		}
		c.Treasury = treasury
		return nil
	})
}

func (s *Store) SetPaused(cred auth.Credential, paused bool) error {
	return s.update(cred, "paused", adminOnly, func(c *Config) error {
		c.Paused = paused
		return nil
	})
}

// SetExchangePackage registers or replaces the package address for an exchange id.
func (s *Store) SetExchangePackage(cred auth.Credential, exchangeID string, pkg solana.PublicKey) error {
	return s.update(cred, "exchange_packages", adminOnly, func(c *Config) error {
		if exchangeID == "" {
			return invalid("exchange_id", "must not be empty")
		}
		if pkg.IsZero() {
			return invalid("exchange_package", "%s: must not be the zero address", exchangeID)
		}
		if c.ExchangePackages == nil {
			c.ExchangePackages = make(map[string]solana.PublicKey)
		}
		c.ExchangePackages[exchangeID] = pkg
		return nil
	})
}

// RemoveExchangePackage drops support for an exchange id.
func (s *Store) RemoveExchangePackage(cred auth.Credential, exchangeID string) error {
	return s.update(cred, "exchange_packages", adminOnly, func(c *Config) error {
		if _, ok := c.ExchangePackages[exchangeID]; !ok {
			return fmt.Errorf("%w: exchange %q is not configured", ErrValidation, exchangeID)
		}
		delete(c.ExchangePackages, exchangeID)
		return nil
	})
}

// internal/protocol/validate.go
package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("config validation failed")
	ErrInvalidEnum = errors.New("invalid enum selector")
)

// Bounds enforced by the validators below.
const (
	MinCreationFee           = 100_000_000
	MaxTradingFeeBps         = 1_000
	MaxGraduationFeeBps      = 1_000
	MaxCreatorGraduationBps  = 500
	MinPlatformGraduationBps = 250
	MaxPlatformGraduationBps = 500
	MaxGraduationAllocBps    = 1_000
	MaxCreatorLpBps          = 3_000
	MaxProtocolLpBps         = 3_000
	MaxStakingRewardBps      = 1_000
	MinStakingDurationMs     = 7 * day
	MaxStakingDurationMs     = 2 * year
	MaxStakingMinDurationMs  = 30 * day
	MaxStakingFeeBps         = 500
	MaxDAOQuorumBps          = 5_000
	MaxDAOProposalBps        = 1_000
	MinVotingDelayMs         = hour
	MaxVotingDelayMs         = 7 * day
	MinVotingPeriodMs        = day
	MaxVotingPeriodMs        = 14 * day
	MinTimelockDelayMs       = hour
	MaxTimelockDelayMs       = 14 * day
	MaxVestingMs             = 4 * year
	MaxCreatorFeeBps         = 500
)

func invalid(field string, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, fmt.Sprintf(format, args...))
}

func atMost(field string, v, max uint64) error {
	if v > max {
		return invalid(field, "%d exceeds %d", v, max)
	}
	return nil
}

func within(field string, v, min, max uint64) error {
	if v < min || v > max {
		return invalid(field, "%d outside [%d, %d]", v, min, max)
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func ValidateFees(f Fees) error {
	if f.CreationFee < MinCreationFee {
		return invalid("creation_fee", "%d below minimum %d", f.CreationFee, MinCreationFee)
	}
	return firstErr(
		atMost("trading_fee_bps", f.TradingFeeBps, MaxTradingFeeBps),
		atMost("graduation_fee_bps", f.GraduationFeeBps, MaxGraduationFeeBps),
	)
}

func ValidateGraduationAllocation(g GraduationAllocation) error {
	if err := firstErr(
		atMost("creator_graduation_bps", g.CreatorBps, MaxCreatorGraduationBps),
		within("platform_graduation_bps", g.PlatformBps, MinPlatformGraduationBps, MaxPlatformGraduationBps),
	); err != nil {
		return err
	}
	return atMost("creator_graduation_bps+platform_graduation_bps", g.CreatorBps+g.PlatformBps, MaxGraduationAllocBps)
}

func validLPDestination(field string, d LPDestination) error {
	if d > LPBurn {
		return fmt.Errorf("%w: %s %w: %d", ErrValidation, field, ErrInvalidEnum, d)
	}
	return nil
}

func validAdminDestination(field string, d AdminDestination) error {
	if d > AdminToPlatform {
		return fmt.Errorf("%w: %s %w: %d", ErrValidation, field, ErrInvalidEnum, d)
	}
	return nil
}

func ValidateLPDistribution(l LPDistribution) error {
	return firstErr(
		atMost("creator_lp_bps", l.CreatorLpBps, MaxCreatorLpBps),
		atMost("protocol_lp_bps", l.ProtocolLpBps, MaxProtocolLpBps),
		validLPDestination("community_lp_destination", l.CommunityLpDestination),
		validLPDestination("dao_lp_destination", l.DaoLpDestination),
	)
}

func ValidateVesting(v Vesting) error {
	return firstErr(
		atMost("creator_lp_cliff_ms", v.CreatorLpCliffMs, MaxVestingMs),
		atMost("creator_lp_duration_ms", v.CreatorLpDurationMs, MaxVestingMs),
		atMost("dao_lp_cliff_ms", v.DaoLpCliffMs, MaxVestingMs),
		atMost("dao_lp_duration_ms", v.DaoLpDurationMs, MaxVestingMs),
	)
}

func ValidateStaking(s Staking) error {
	if err := firstErr(
		atMost("staking_reward_bps", s.RewardBps, MaxStakingRewardBps),
		within("staking_duration_ms", s.DurationMs, MinStakingDurationMs, MaxStakingDurationMs),
		atMost("staking_min_duration_ms", s.MinDurationMs, MaxStakingMinDurationMs),
		atMost("stake_fee_bps", s.StakeFeeBps, MaxStakingFeeBps),
		atMost("unstake_fee_bps", s.UnstakeFeeBps, MaxStakingFeeBps),
		atMost("early_exit_fee_bps", s.EarlyExitFeeBps, MaxStakingFeeBps),
		validAdminDestination("staking_admin_destination", s.AdminDestination),
	); err != nil {
		return err
	}
	if s.RewardType > RewardCustom {
		return fmt.Errorf("%w: staking_reward_type %w: %d", ErrValidation, ErrInvalidEnum, s.RewardType)
	}
	return nil
}

func ValidateDAO(d DAO) error {
	return firstErr(
		atMost("dao_quorum_bps", d.QuorumBps, MaxDAOQuorumBps),
		atMost("dao_proposal_threshold_bps", d.ProposalThresholdBps, MaxDAOProposalBps),
		within("dao_voting_delay_ms", d.VotingDelayMs, MinVotingDelayMs, MaxVotingDelayMs),
		within("dao_voting_period_ms", d.VotingPeriodMs, MinVotingPeriodMs, MaxVotingPeriodMs),
		within("dao_timelock_delay_ms", d.TimelockDelayMs, MinTimelockDelayMs, MaxTimelockDelayMs),
		validAdminDestination("dao_admin_destination", d.AdminDestination),
	)
}

func ValidateCurveDefaults(c CurveDefaults) error {
	if c.BasePrice == 0 {
		return invalid("base_price", "must be positive")
	}
	if c.TotalSupply == 0 {
		return invalid("total_supply", "must be positive")
	}
	return nil
}

func ValidateThresholds(threshold, minLiquidity uint64) error {
	if threshold == 0 {
		return invalid("graduation_threshold", "must be positive")
	}
	if minLiquidity > threshold {
		return invalid("min_graduation_liquidity", "%d exceeds graduation threshold %d", minLiquidity, threshold)
	}
	return nil
}

// Validate checks every field group of cfg.
func Validate(cfg Config) error {
	return firstErr(
		ValidateFees(cfg.Fees),
		ValidateGraduationAllocation(cfg.Graduation),
		ValidateLPDistribution(cfg.LP),
		ValidateVesting(cfg.Vesting),
		ValidateStaking(cfg.Staking),
		ValidateDAO(cfg.DAO),
		ValidateCurveDefaults(cfg.Curve),
		ValidateThresholds(cfg.GraduationThreshold, cfg.MinGraduationLiquidity),
	)
}

// internal/protocol/config.go
package protocol

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
)

// AdminDestination selects who receives an admin handle created at graduation.
type AdminDestination uint8

const (
	AdminToCreator AdminDestination = iota
	AdminToDAO
	AdminToPlatform
)

func (d AdminDestination) String() string {
	switch d {
	case AdminToCreator:
		return "creator"
	case AdminToDAO:
		return "dao"
	case AdminToPlatform:
		return "platform"
	default:
		return "unknown"
	}
}

// RewardType selects the asset paid out by the staking reward pool.
type RewardType uint8

const (
	RewardSameToken RewardType = iota
	RewardBaseAsset
	RewardCustom
)

func (r RewardType) String() string {
	switch r {
	case RewardSameToken:
		return "same-token"
	case RewardBaseAsset:
		return "base-asset"
	case RewardCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// LPDestination routes an LP share at graduation.
type LPDestination uint8

const (
	LPToDAOTreasury LPDestination = iota
	LPToProtocol
	LPToCreatorVesting
	LPBurn
)

func (d LPDestination) String() string {
	switch d {
	case LPToDAOTreasury:
		return "dao-treasury"
	case LPToProtocol:
		return "protocol"
	case LPToCreatorVesting:
		return "creator-vesting"
	case LPBurn:
		return "burn"
	default:
		return "unknown"
	}
}

type Fees struct {
	CreationFee      uint64 `mapstructure:"creation_fee"`
	TradingFeeBps    uint64 `mapstructure:"trading_fee_bps"`
	GraduationFeeBps uint64 `mapstructure:"graduation_fee_bps"`
}

// GraduationAllocation shares of total supply reserved for the creator and platform.
type GraduationAllocation struct {
	CreatorBps  uint64 `mapstructure:"creator_bps"`
	PlatformBps uint64 `mapstructure:"platform_bps"`
}

// LPDistribution splits the LP created at graduation. The community share is the remainder.
type LPDistribution struct {
	CreatorLpBps           uint64        `mapstructure:"creator_lp_bps"`
	ProtocolLpBps          uint64        `mapstructure:"protocol_lp_bps"`
	CommunityLpDestination LPDestination `mapstructure:"community_lp_destination"`
	DaoLpDestination       LPDestination `mapstructure:"dao_lp_destination"`
}

type Vesting struct {
	CreatorLpCliffMs    uint64 `mapstructure:"creator_lp_cliff_ms"`
	CreatorLpDurationMs uint64 `mapstructure:"creator_lp_duration_ms"`
	DaoLpCliffMs        uint64 `mapstructure:"dao_lp_cliff_ms"`
	DaoLpDurationMs     uint64 `mapstructure:"dao_lp_duration_ms"`
}

type Staking struct {
	Enabled          bool             `mapstructure:"enabled"`
	RewardBps        uint64           `mapstructure:"reward_bps"`
	DurationMs       uint64           `mapstructure:"duration_ms"`
	MinDurationMs    uint64           `mapstructure:"min_duration_ms"`
	StakeFeeBps      uint64           `mapstructure:"stake_fee_bps"`
	UnstakeFeeBps    uint64           `mapstructure:"unstake_fee_bps"`
	EarlyExitFeeBps  uint64           `mapstructure:"early_exit_fee_bps"`
	AdminDestination AdminDestination `mapstructure:"admin_destination"`
	RewardType       RewardType       `mapstructure:"reward_type"`
}

type DAO struct {
	Enabled              bool             `mapstructure:"enabled"`
	QuorumBps            uint64           `mapstructure:"quorum_bps"`
	VotingDelayMs        uint64           `mapstructure:"voting_delay_ms"`
	VotingPeriodMs       uint64           `mapstructure:"voting_period_ms"`
	TimelockDelayMs      uint64           `mapstructure:"timelock_delay_ms"`
	ProposalThresholdBps uint64           `mapstructure:"proposal_threshold_bps"`
	CouncilEnabled       bool             `mapstructure:"council_enabled"`
	AdminDestination     AdminDestination `mapstructure:"admin_destination"`
}

// CurveDefaults are applied to tokens created without explicit curve parameters.
type CurveDefaults struct {
	curve.Params `mapstructure:",squash"`
	TotalSupply  uint64 `mapstructure:"total_supply"`
}

// Config is the protocol-wide parameter set shared by every pool.
type Config struct {
	Fees                   Fees
	Graduation             GraduationAllocation
	LP                     LPDistribution
	Vesting                Vesting
	Staking                Staking
	DAO                    DAO
	Curve                  CurveDefaults
	GraduationThreshold    uint64
	MinGraduationLiquidity uint64
	Treasury               solana.PublicKey
	Paused                 bool
	ExchangePackages       map[string]solana.PublicKey
	// Version increments on every committed change.
	Version uint64
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	out := c
	out.ExchangePackages = make(map[string]solana.PublicKey, len(c.ExchangePackages))
	for k, v := range c.ExchangePackages {
		out.ExchangePackages[k] = v
	}
	return out
}

// SupportsExchange reports whether an exchange package is configured for id.
func (c Config) SupportsExchange(id string) bool {
	_, ok := c.ExchangePackages[id]
	return ok
}

// Built-in exchange ids and their default program addresses.
const (
	ExchangeCPAMM = "cpamm"
	ExchangeCLMM  = "clmm"
)

var (
	CPAMMProgramID = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")
	CLMMProgramID  = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")
)

const (
	second = uint64(1000)
	minute = 60 * second
	hour   = 60 * minute
	day    = 24 * hour
	year   = 365 * day
)

// DefaultConfig returns a valid configuration suitable for local runs.
func DefaultConfig() Config {
	return Config{
		Fees: Fees{
			CreationFee:      1_000_000_000,
			TradingFeeBps:    100,
			GraduationFeeBps: 200,
		},
		Graduation: GraduationAllocation{CreatorBps: 250, PlatformBps: 250},
		LP: LPDistribution{
			CreatorLpBps:           250,
			ProtocolLpBps:          250,
			CommunityLpDestination: LPToDAOTreasury,
			DaoLpDestination:       LPToProtocol,
		},
		Vesting: Vesting{
			CreatorLpCliffMs:    30 * day,
			CreatorLpDurationMs: 180 * day,
			DaoLpCliffMs:        7 * day,
			DaoLpDurationMs:     365 * day,
		},
		Staking: Staking{
			Enabled:          true,
			RewardBps:        500,
			DurationMs:       90 * day,
			MinDurationMs:    7 * day,
			StakeFeeBps:      0,
			UnstakeFeeBps:    50,
			EarlyExitFeeBps:  200,
			AdminDestination: AdminToDAO,
			RewardType:       RewardSameToken,
		},
		DAO: DAO{
			Enabled:              true,
			QuorumBps:            400,
			VotingDelayMs:        day,
			VotingPeriodMs:       3 * day,
			TimelockDelayMs:      2 * day,
			ProposalThresholdBps: 100,
			AdminDestination:     AdminToDAO,
		},
		Curve: CurveDefaults{
			Params:      curve.Params{BasePrice: 1_000, Slope: 1_000_000},
			TotalSupply: 1_000_000_000,
		},
		GraduationThreshold:    69_000_000_000_000,
		MinGraduationLiquidity: 1_000_000_000_000,
		ExchangePackages: map[string]solana.PublicKey{
			ExchangeCPAMM: CPAMMProgramID,
			ExchangeCLMM:  CLMMProgramID,
		},
	}
}

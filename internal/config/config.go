// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/curve-launchpad/internal/protocol"
)

type Config struct {
	License         string   `mapstructure:"license"`
	KeygenAccount   string   `mapstructure:"keygen_account"`
	KeygenProduct   string   `mapstructure:"keygen_product"`
	KeygenToken     string   `mapstructure:"keygen_token"`
	LogFile         string   `mapstructure:"log_file"`
	Development     bool     `mapstructure:"development"`
	PostgresURL     string   `mapstructure:"postgres_url"`
	MetricsAddr     string   `mapstructure:"metrics_addr"`
	SweepSchedule   string   `mapstructure:"sweep_schedule"`
	SweepWorkers    int      `mapstructure:"sweep_workers"`
	Retries         int      `mapstructure:"retries"`
	DefaultExchange string   `mapstructure:"default_exchange"`
	EventBuffer     int      `mapstructure:"event_buffer"`
	Treasury        string   `mapstructure:"treasury"`
	Admins          []string `mapstructure:"admins"`
	Operators       []string `mapstructure:"operators"`
	// SweeperKey is the base58 private key the graduation sweeper signs
	// with. The sweeper is disabled when empty.
	SweeperKey string `mapstructure:"sweeper_key"`
	Launch     Launch `mapstructure:"launch"`
}

// Launch is the initial protocol configuration.
type Launch struct {
	Fees                   protocol.Fees                 `mapstructure:"fees"`
	Graduation             protocol.GraduationAllocation `mapstructure:"graduation"`
	LP                     protocol.LPDistribution       `mapstructure:"lp"`
	Vesting                protocol.Vesting              `mapstructure:"vesting"`
	Staking                protocol.Staking              `mapstructure:"staking"`
	DAO                    protocol.DAO                  `mapstructure:"dao"`
	Curve                  protocol.CurveDefaults        `mapstructure:"curve"`
	GraduationThreshold    uint64                        `mapstructure:"graduation_threshold"`
	MinGraduationLiquidity uint64                        `mapstructure:"min_graduation_liquidity"`
	Paused                 bool                          `mapstructure:"paused"`
	// Exchanges maps exchange ids to base58 program addresses.
	Exchanges map[string]string `mapstructure:"exchanges"`
}

const (
	DefaultLogFile       = "launchpad.log"
	DefaultMetricsAddr   = ":9090"
	DefaultSweepSchedule = "@every 30s"
	DefaultSweepWorkers  = 4
	DefaultRetries       = 3
	DefaultEventBuffer   = 1024
)

const envPrefix = "LAUNCHPAD"

func defaults() map[string]interface{} {
	d := protocol.DefaultConfig()
	m := map[string]interface{}{
		"log_file":         DefaultLogFile,
		"metrics_addr":     DefaultMetricsAddr,
		"sweep_schedule":   DefaultSweepSchedule,
		"sweep_workers":    DefaultSweepWorkers,
		"retries":          DefaultRetries,
		"default_exchange": protocol.ExchangeCPAMM,
		"event_buffer":     DefaultEventBuffer,
		"development":      false,
		"postgres_url":     "",
		"license":          "",
		"keygen_account":   "",
		"keygen_product":   "",
		"keygen_token":     "",
		"sweeper_key":      "",
		"treasury":         "",

		"launch.fees.creation_fee":       d.Fees.CreationFee,
		"launch.fees.trading_fee_bps":    d.Fees.TradingFeeBps,
		"launch.fees.graduation_fee_bps": d.Fees.GraduationFeeBps,

		"launch.graduation.creator_bps":  d.Graduation.CreatorBps,
		"launch.graduation.platform_bps": d.Graduation.PlatformBps,

		"launch.lp.creator_lp_bps":           d.LP.CreatorLpBps,
		"launch.lp.protocol_lp_bps":          d.LP.ProtocolLpBps,
		"launch.lp.community_lp_destination": uint8(d.LP.CommunityLpDestination),
		"launch.lp.dao_lp_destination":       uint8(d.LP.DaoLpDestination),

		"launch.vesting.creator_lp_cliff_ms":    d.Vesting.CreatorLpCliffMs,
		"launch.vesting.creator_lp_duration_ms": d.Vesting.CreatorLpDurationMs,
		"launch.vesting.dao_lp_cliff_ms":        d.Vesting.DaoLpCliffMs,
		"launch.vesting.dao_lp_duration_ms":     d.Vesting.DaoLpDurationMs,

		"launch.staking.enabled":            d.Staking.Enabled,
		"launch.staking.reward_bps":         d.Staking.RewardBps,
		"launch.staking.duration_ms":        d.Staking.DurationMs,
		"launch.staking.min_duration_ms":    d.Staking.MinDurationMs,
		"launch.staking.stake_fee_bps":      d.Staking.StakeFeeBps,
		"launch.staking.unstake_fee_bps":    d.Staking.UnstakeFeeBps,
		"launch.staking.early_exit_fee_bps": d.Staking.EarlyExitFeeBps,
		"launch.staking.admin_destination":  uint8(d.Staking.AdminDestination),
		"launch.staking.reward_type":        uint8(d.Staking.RewardType),

		"launch.dao.enabled":                d.DAO.Enabled,
		"launch.dao.quorum_bps":             d.DAO.QuorumBps,
		"launch.dao.voting_delay_ms":        d.DAO.VotingDelayMs,
		"launch.dao.voting_period_ms":       d.DAO.VotingPeriodMs,
		"launch.dao.timelock_delay_ms":      d.DAO.TimelockDelayMs,
		"launch.dao.proposal_threshold_bps": d.DAO.ProposalThresholdBps,
		"launch.dao.council_enabled":        d.DAO.CouncilEnabled,
		"launch.dao.admin_destination":      uint8(d.DAO.AdminDestination),

		"launch.curve.base_price":   d.Curve.BasePrice,
		"launch.curve.slope":        d.Curve.Slope,
		"launch.curve.total_supply": d.Curve.TotalSupply,

		"launch.graduation_threshold":     d.GraduationThreshold,
		"launch.min_graduation_liquidity": d.MinGraduationLiquidity,
	}
	exchanges := make(map[string]interface{}, len(d.ExchangePackages))
	for id, program := range d.ExchangePackages {
		exchanges[id] = program.String()
	}
	m["launch.exchanges"] = exchanges
	return m
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.License != "" && (cfg.KeygenAccount == "" || cfg.KeygenProduct == "") {
		return errors.New("license requires keygen_account and keygen_product")
	}
	if cfg.Treasury == "" {
		return errors.New("treasury is required")
	}
	if len(cfg.Admins) == 0 {
		return errors.New("admins is empty")
	}
	if _, err := ParseKeys(cfg.Admins); err != nil {
		return fmt.Errorf("invalid admins: %w", err)
	}
	if _, err := ParseKeys(cfg.Operators); err != nil {
		return fmt.Errorf("invalid operators: %w", err)
	}
	if cfg.SweeperKey != "" {
		if _, err := cfg.SweeperSigner(); err != nil {
			return err
		}
	}
	if cfg.PostgresURL != "" {
		if err := validateURLWithCache(cfg.PostgresURL, "postgres"); err != nil {
			return errors.New("postgres_url must use the postgres scheme")
		}
	}
	if _, err := cron.ParseStandard(cfg.SweepSchedule); err != nil {
		return fmt.Errorf("invalid sweep_schedule: %w", err)
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	pc, err := cfg.Protocol()
	if err != nil {
		return err
	}
	if !pc.SupportsExchange(cfg.DefaultExchange) {
		return fmt.Errorf("default_exchange %q has no program in launch.exchanges", cfg.DefaultExchange)
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.SweepWorkers <= 0 {
		return errors.New("invalid sweep_workers count")
	}
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	if cfg.EventBuffer <= 0 {
		return errors.New("invalid event_buffer")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, scheme string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, scheme) {
		return errors.New("invalid URL scheme")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	if env := v.GetString("ADMINS"); env != "" {
		cfg.Admins = splitList(env)
	}
	if env := v.GetString("OPERATORS"); env != "" {
		cfg.Operators = splitList(env)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if clean := strings.TrimSpace(part); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

// ParseKeys decodes base58 public keys.
func ParseKeys(keys []string) ([]solana.PublicKey, error) {
	out := make([]solana.PublicKey, 0, len(keys))
	for _, k := range keys {
		pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", k, err)
		}
		out = append(out, pk)
	}
	return out, nil
}

// SweeperSigner decodes SweeperKey. It returns a nil key when the sweeper
// is disabled.
func (c *Config) SweeperSigner() (solana.PrivateKey, error) {
	if c.SweeperKey == "" {
		return nil, nil
	}
	key, err := solana.PrivateKeyFromBase58(strings.TrimSpace(c.SweeperKey))
	if err != nil {
		return nil, fmt.Errorf("invalid sweeper_key: %w", err)
	}
	if len(key) != 64 {
		return nil, fmt.Errorf("invalid sweeper_key: want 64 bytes, got %d", len(key))
	}
	return key, nil
}

// Protocol converts the launch section into a validated protocol configuration.
func (c *Config) Protocol() (protocol.Config, error) {
	l := c.Launch
	pc := protocol.Config{
		Fees:                   l.Fees,
		Graduation:             l.Graduation,
		LP:                     l.LP,
		Vesting:                l.Vesting,
		Staking:                l.Staking,
		DAO:                    l.DAO,
		Curve:                  l.Curve,
		GraduationThreshold:    l.GraduationThreshold,
		MinGraduationLiquidity: l.MinGraduationLiquidity,
		Paused:                 l.Paused,
		ExchangePackages:       make(map[string]solana.PublicKey, len(l.Exchanges)),
	}
	for id, program := range l.Exchanges {
		pk, err := solana.PublicKeyFromBase58(program)
		if err != nil {
			return protocol.Config{}, fmt.Errorf("%w: exchange %s program: %v", protocol.ErrValidation, id, err)
		}
		pc.ExchangePackages[strings.ToLower(id)] = pk
	}
	if c.Treasury != "" {
		pk, err := solana.PublicKeyFromBase58(c.Treasury)
		if err != nil {
			return protocol.Config{}, fmt.Errorf("%w: treasury: %v", protocol.ErrValidation, err)
		}
		pc.Treasury = pk
	}
	if err := protocol.Validate(pc); err != nil {
		return protocol.Config{}, err
	}
	return pc, nil
}

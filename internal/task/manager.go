package task

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Manager loads and parses scenario definitions.
type Manager struct {
	logger *zap.Logger
}

// Scenario is a loaded, validated scenario.
type Scenario struct {
	Name    string
	Admin   *Wallet
	Wallets map[string]*Wallet
	Steps   []*Step
}

// Wallet returns the named participant.
func (s *Scenario) Wallet(name string) (*Wallet, error) {
	w, ok := s.Wallets[name]
	if !ok {
		return nil, fmt.Errorf("unknown wallet %q", name)
	}
	return w, nil
}

// ScenarioConfig represents the structure of a scenario YAML file
type ScenarioConfig struct {
	Name    string `yaml:"name"`
	Seed    string `yaml:"seed"`
	Admin   string `yaml:"admin"`
	Wallets []struct {
		Name       string `yaml:"name"`
		PrivateKey string `yaml:"private_key"`
	} `yaml:"wallets"`
	Steps []struct {
		Name            string  `yaml:"name"`
		Action          string  `yaml:"action"`
		Wallet          string  `yaml:"wallet"`
		Token           string  `yaml:"token"`
		TokenName       string  `yaml:"token_name"`
		URI             string  `yaml:"uri"`
		CreatorFeeBps   uint64  `yaml:"creator_fee_bps"`
		Amount          string  `yaml:"amount"`
		PercentToSell   float64 `yaml:"percent_to_sell"`
		SlippagePercent float64 `yaml:"slippage_percent"`
		Exchange        string  `yaml:"exchange"`
		Advance         string  `yaml:"advance"`
	} `yaml:"steps"`
}

// NewManager constructs a Manager with the given logger.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

func parseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ActionCreate, ActionBuy, ActionSell, ActionPause, ActionResume,
		ActionGraduate, ActionClaim, ActionWithdraw, ActionAdvance:
		return a, nil
	default:
		return "", fmt.Errorf("unsupported action: %q", s)
	}
}

func clamp(val, min, max, def float64) float64 {
	if val < min || val > max {
		return def
	}
	return val
}

// LoadScenario reads a scenario from a YAML file.
func (m *Manager) LoadScenario(path string) (*Scenario, error) {
	if filepath.IsAbs(path) {
		m.logger.Debug("Using absolute path for scenario file", zap.String("path", path))
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return m.ParseScenario(data)
}

// ParseScenario parses scenario YAML. Invalid steps are skipped with a
// warning; a scenario without any valid step is an error.
func (m *Manager) ParseScenario(data []byte) (*Scenario, error) {
	var config ScenarioConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(config.Steps) == 0 {
		return nil, fmt.Errorf("no steps found in scenario")
	}

	seed := config.Seed
	if seed == "" {
		seed = config.Name
	}
	sc := &Scenario{Name: config.Name, Wallets: make(map[string]*Wallet)}

	for _, wd := range config.Wallets {
		if wd.Name == "" {
			m.logger.Warn("Skipping wallet without a name")
			continue
		}
		if wd.PrivateKey == "" {
			sc.Wallets[wd.Name] = DeriveWallet(wd.Name, seed)
			continue
		}
		w, err := NewWallet(wd.Name, wd.PrivateKey)
		if err != nil {
			m.logger.Warn("Skipping invalid wallet", zap.String("wallet", wd.Name), zap.Error(err))
			continue
		}
		sc.Wallets[wd.Name] = w
	}

	adminName := config.Admin
	if adminName == "" {
		adminName = "admin"
	}
	if _, ok := sc.Wallets[adminName]; !ok {
		sc.Wallets[adminName] = DeriveWallet(adminName, seed)
	}
	sc.Admin = sc.Wallets[adminName]

	for i, sd := range config.Steps {
		action, err := parseAction(sd.Action)
		if err != nil {
			m.logger.Warn("Skipping invalid step", zap.String("step", sd.Name), zap.Error(err))
			continue
		}

		step := &Step{
			ID:              i,
			Name:            sd.Name,
			Action:          action,
			Account:         sd.Wallet,
			Token:           strings.ToUpper(sd.Token),
			TokenName:       sd.TokenName,
			URI:             sd.URI,
			CreatorFeeBps:   sd.CreatorFeeBps,
			Percent:         sd.PercentToSell,
			SlippagePercent: clamp(sd.SlippagePercent, 0, 100, 1.0),
			Exchange:        strings.ToLower(sd.Exchange),
		}
		if step.Name == "" {
			step.Name = fmt.Sprintf("%s-%d", action, i)
		}

		decimals := int32(BaseDecimals)
		if action == ActionSell {
			decimals = TokenDecimals
		}
		if step.Amount, err = ToUnits(sd.Amount, decimals); err != nil {
			m.logger.Warn("Skipping step with invalid amount", zap.String("step", step.Name), zap.Error(err))
			continue
		}
		if sd.Advance != "" {
			if step.Advance, err = time.ParseDuration(sd.Advance); err != nil {
				m.logger.Warn("Skipping step with invalid duration", zap.String("step", step.Name), zap.Error(err))
				continue
			}
		}

		if err := step.Validate(); err != nil {
			m.logger.Warn("Skipping invalid step", zap.String("step", step.Name), zap.Error(err))
			continue
		}
		if step.Account != "" {
			if _, ok := sc.Wallets[step.Account]; !ok {
				m.logger.Warn("Skipping step with unknown wallet",
					zap.String("step", step.Name),
					zap.String("wallet", step.Account))
				continue
			}
		}

		sc.Steps = append(sc.Steps, step)
	}

	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("no valid steps loaded")
	}

	m.logger.Info("Loaded scenario",
		zap.String("name", sc.Name),
		zap.Int("wallets", len(sc.Wallets)),
		zap.Int("steps", len(sc.Steps)))
	return sc, nil
}

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/curve-launchpad/internal/config"
	"github.com/rovshanmuradov/curve-launchpad/internal/task"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Loads and validates the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("❌ %s is invalid: %w", configPath, err)
		}
		pc, err := cfg.Protocol()
		if err != nil {
			return err
		}

		exchanges := make([]string, 0, len(pc.ExchangePackages))
		for id := range pc.ExchangePackages {
			exchanges = append(exchanges, id)
		}
		sort.Strings(exchanges)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✅ %s is valid\n", configPath)
		fmt.Fprintf(out, "   admins:               %d\n", len(cfg.Admins))
		fmt.Fprintf(out, "   operators:            %d\n", len(cfg.Operators))
		fmt.Fprintf(out, "   creation fee:         %s\n", task.FromUnits(pc.Fees.CreationFee, task.BaseDecimals))
		fmt.Fprintf(out, "   trading fee:          %d bps\n", pc.Fees.TradingFeeBps)
		fmt.Fprintf(out, "   graduation threshold: %s\n", task.FromUnits(pc.GraduationThreshold, task.BaseDecimals))
		fmt.Fprintf(out, "   total supply:         %s\n", humanize.Comma(int64(pc.Curve.TotalSupply)))
		fmt.Fprintf(out, "   exchanges:            %s (default %s)\n", strings.Join(exchanges, ", "), cfg.DefaultExchange)
		fmt.Fprintf(out, "   sweeper:              %s\n", sweeperState(cfg))
		return nil
	},
}

func sweeperState(cfg *config.Config) string {
	if cfg.SweeperKey == "" {
		return "disabled"
	}
	return fmt.Sprintf("%s, %d workers", cfg.SweepSchedule, cfg.SweepWorkers)
}

func init() {
	configCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(configCmd)
}

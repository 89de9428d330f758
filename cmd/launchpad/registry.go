package main

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/config"
	"github.com/rovshanmuradov/curve-launchpad/internal/export"
	"github.com/rovshanmuradov/curve-launchpad/internal/registry"
	"github.com/rovshanmuradov/curve-launchpad/internal/task"
)

var (
	exportFormat   string
	exportDir      string
	exportExchange string
	exportSymbol   string
	exportSince    string
	exportDaily    string
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspects the graduation registry in postgres",
}

var registryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints graduation totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, _, err := loadGraduations(cmd)
		if err != nil {
			return err
		}
		s := export.Summarize(entries)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Graduations:     %d\n", s.Graduations)
		fmt.Fprintf(out, "Liquidity added: %s\n", task.FromUnits(s.TotalLiquidity.BigInt().Uint64(), task.BaseDecimals))
		fmt.Fprintf(out, "Fees collected:  %s\n", task.FromUnits(s.TotalFees.BigInt().Uint64(), task.BaseDecimals))

		exchanges := make([]string, 0, len(s.ByExchange))
		for id := range s.ByExchange {
			exchanges = append(exchanges, id)
		}
		sort.Strings(exchanges)
		for _, id := range exchanges {
			fmt.Fprintf(out, "  %-8s %d\n", id, s.ByExchange[id])
		}
		return nil
	},
}

var registryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Exports graduations to CSV or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, log, err := loadGraduations(cmd)
		if err != nil {
			return err
		}
		exporter := export.NewGraduationExporter(log)

		if exportDaily != "" {
			date, err := time.Parse(time.DateOnly, exportDaily)
			if err != nil {
				return fmt.Errorf("invalid --daily: %w", err)
			}
			path, err := exporter.ExportDailyReport(entries, date, exportDir)
			if err != nil {
				return err
			}
			if path == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "No graduations on %s\n", exportDaily)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		}

		opts := export.ExportOptions{
			Format:    export.ExportFormat(exportFormat),
			Exchange:  exportExchange,
			Symbol:    exportSymbol,
			OutputDir: exportDir,
		}
		if exportSince != "" {
			since, err := time.ParseDuration(exportSince)
			if err != nil {
				return fmt.Errorf("invalid --since: %w", err)
			}
			opts.StartTime = time.Now().Add(-since)
		}
		path, err := exporter.ExportGraduations(entries, opts)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func loadGraduations(cmd *cobra.Command) ([]registry.Entry, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.PostgresURL == "" {
		return nil, nil, errors.New("postgres_url is not configured")
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := registry.NewPool(cmd.Context(), cfg.PostgresURL)
	if err != nil {
		return nil, nil, err
	}
	defer pool.Close()

	entries, err := registry.NewPostgresStore(pool).List(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return entries, log.Logger, nil
}

func init() {
	registryExportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(export.FormatCSV), "csv or json")
	registryExportCmd.Flags().StringVarP(&exportDir, "out", "o", "exports", "output directory")
	registryExportCmd.Flags().StringVar(&exportExchange, "exchange", "", "only graduations into this exchange")
	registryExportCmd.Flags().StringVar(&exportSymbol, "symbol", "", "only this token symbol")
	registryExportCmd.Flags().StringVar(&exportSince, "since", "", "only graduations within this duration, e.g. 24h")
	registryExportCmd.Flags().StringVar(&exportDaily, "daily", "", "write the hourly report for a day (YYYY-MM-DD)")

	registryCmd.AddCommand(registryStatsCmd, registryExportCmd)
	rootCmd.AddCommand(registryCmd)
}

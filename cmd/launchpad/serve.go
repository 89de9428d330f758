package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/config"
	"github.com/rovshanmuradov/curve-launchpad/internal/runner"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the launchpad service",
	Long:  `Runs the launchpad with its metrics endpoint and graduation sweeper until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log, err := newLogger(cfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		r, err := runner.New(ctx, cfg, log.Logger, runner.Options{})
		if err != nil {
			log.Error("Failed to start launchpad", zap.Error(err))
			return err
		}
		return r.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}


package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/curve-launchpad/internal/config"
	"github.com/rovshanmuradov/curve-launchpad/internal/logger"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "launchpad",
	Short:         "Bonding-curve token launchpad",
	Long:          `Runs the launchpad service, replays trading scenarios and validates configuration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// newLogger builds the process logger from the loaded config.
func newLogger(cfg *config.Config) (*logger.Logger, error) {
	lc := logger.DefaultConfig()
	lc.LogFile = cfg.LogFile
	lc.Development = cfg.Development || verbose
	return logger.New(lc)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "launchpad: %v\n", err)
		os.Exit(1)
	}
}

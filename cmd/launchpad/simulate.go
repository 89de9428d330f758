package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/config"
	"github.com/rovshanmuradov/curve-launchpad/internal/launchpad"
	"github.com/rovshanmuradov/curve-launchpad/internal/logger"
	"github.com/rovshanmuradov/curve-launchpad/internal/protocol"
	"github.com/rovshanmuradov/curve-launchpad/internal/task"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui"
)

var (
	scenarioPath string
	journalPath  string
	startAt      string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replays a scenario against an in-memory launchpad",
	Long: `Replays the steps of a scenario file on a simulated clock and prints
what every step did. The launch section of --config is used when the file
exists; otherwise the built-in defaults apply.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, cfg := simulationConfig()

		lc := logger.DefaultConfig()
		lc.LogFile = ""
		lc.Console = verbose
		lc.Development = verbose
		log, err := logger.New(lc)
		if err != nil {
			// no output enabled
			log = &logger.Logger{Logger: zap.NewNop()}
		}
		defer func() { _ = log.Sync() }()

		scenario, err := task.NewManager(log.Logger).LoadScenario(scenarioPath)
		if err != nil {
			return fmt.Errorf("load scenario: %w", err)
		}
		if pc.Treasury.IsZero() {
			pc.Treasury = task.DeriveWallet("treasury", scenario.Name).PublicKey
		}

		svc, err := launchpad.NewService(&launchpad.ServiceConfig{
			Protocol:        pc,
			Admins:          []solana.PublicKey{scenario.Admin.PublicKey},
			DefaultExchange: cfg.DefaultExchange,
			Logger:          log.Logger,
		})
		if err != nil {
			return err
		}

		start := time.Now().UTC().Truncate(time.Second)
		if startAt != "" {
			if start, err = time.Parse(time.RFC3339, startAt); err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
		}
		sim := task.NewSimulator(svc, scenario, start, log.Logger)

		if journalPath != "" {
			journal, err := logger.NewJournal(journalPath, task.JournalHeader, time.Second, log.Logger)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer journal.Close()
			sim.SetJournal(journal)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		report, err := sim.Run(ctx)
		printReport(cmd.OutOrStdout(), report, svc)
		if err != nil {
			return err
		}
		if n := report.Failed(); n > 0 {
			return fmt.Errorf("%d of %d steps failed", n, len(report.Outcomes))
		}
		return nil
	},
}

// simulationConfig reads the launch section of the config file when it
// loads, falling back to the defaults.
func simulationConfig() (protocol.Config, *config.Config) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return protocol.DefaultConfig(), &config.Config{DefaultExchange: protocol.ExchangeCPAMM}
	}
	pc, err := cfg.Protocol()
	if err != nil {
		return protocol.DefaultConfig(), cfg
	}
	return pc, cfg
}

func printReport(w io.Writer, report *task.Report, svc *launchpad.Service) {
	if report == nil {
		return
	}
	fmt.Fprintf(w, "Scenario %q\n\n", report.Scenario)
	for i, o := range report.Outcomes {
		mark := "✅"
		detail := describeOutcome(o)
		if o.Err != nil {
			mark = "❌"
			detail = o.Err.Error()
		}
		fmt.Fprintf(w, "%3d %s %-10s %-8s %-8s %s\n", i+1, mark, o.Step.Action, o.Step.Account, o.Step.Token, detail)
	}

	pools := svc.Pools()
	if len(pools) == 0 {
		return
	}
	threshold := svc.Config().Snapshot().GraduationThreshold
	fmt.Fprintf(w, "\n%-8s %-10s %16s %10s %8s\n", "Symbol", "Status", "Reserve", "Progress", "Trades")
	for _, st := range pools {
		fmt.Fprintf(w, "%-8s %-10s %16s %9.1f%% %8s\n",
			st.Symbol,
			ui.StatusLabel(st),
			ui.FormatBase(st.BaseBalance),
			ui.Progress(st, threshold)*100,
			humanize.Comma(int64(st.TradeCount)))
	}
}

func describeOutcome(o task.Outcome) string {
	switch o.Step.Action {
	case task.ActionCreate:
		return fmt.Sprintf("paid %s, refunded %s", ui.FormatBase(o.AmountIn), ui.FormatBase(o.AmountOut))
	case task.ActionBuy:
		return fmt.Sprintf("%s → %s tokens", ui.FormatBase(o.AmountIn), ui.FormatTokens(o.AmountOut))
	case task.ActionSell:
		return fmt.Sprintf("%s tokens → %s", ui.FormatTokens(o.AmountIn), ui.FormatBase(o.AmountOut))
	case task.ActionGraduate:
		return fmt.Sprintf("%s to liquidity, %s LP", ui.FormatBase(o.AmountIn), humanize.Comma(int64(o.AmountOut)))
	case task.ActionClaim:
		return fmt.Sprintf("claimed %s", humanize.Comma(int64(o.AmountOut)))
	case task.ActionWithdraw:
		return fmt.Sprintf("withdrew %s", ui.FormatBase(o.AmountOut))
	case task.ActionAdvance:
		return "clock at " + o.At.Format(time.RFC3339)
	default:
		return "ok"
	}
}

func init() {
	simulateCmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "", "scenario YAML file")
	simulateCmd.Flags().StringVar(&journalPath, "journal", "", "write a CSV record per step")
	simulateCmd.Flags().StringVar(&startAt, "start", "", "simulated start time (RFC3339)")
	_ = simulateCmd.MarkFlagRequired("scenario")
	rootCmd.AddCommand(simulateCmd)
}

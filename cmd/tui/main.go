package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rovshanmuradov/curve-launchpad/internal/config"
	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/logger"
	"github.com/rovshanmuradov/curve-launchpad/internal/runner"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui/router"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui/screen"
)

const refreshInterval = time.Second

// AppModel represents the main TUI application model
type AppModel struct {
	router *router.Router
	feed   *ui.Feed
	logs   screen.LogSource
	width  int
	height int
}

// NewAppModel creates a new application model
func NewAppModel(market ui.Market, feed *ui.Feed, logs screen.LogSource) *AppModel {
	return &AppModel{
		router: router.New(screen.NewDashboard(market)),
		feed:   feed,
		logs:   logs,
	}
}

// Init initializes the application
func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(
		m.router.Init(),
		m.feed.Listen(),
		ui.Tick(refreshInterval),
	)
}

// Update handles application-level updates
func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case ui.RouterMsg:
		return m, m.handleNavigation(msg.To)

	case ui.EventMsg:
		// keep listening for bus events
		cmds = append(cmds, m.feed.Listen())

	case ui.TickMsg:
		cmds = append(cmds, ui.Tick(refreshInterval))
	}

	cmds = append(cmds, m.router.Update(msg))
	return m, tea.Batch(cmds...)
}

// handleNavigation handles navigation to different screens
func (m *AppModel) handleNavigation(route ui.Route) tea.Cmd {
	switch route {
	case ui.RouteLogs:
		if m.router.Depth() > 1 {
			return nil
		}
		return m.router.Push(screen.NewLogs(m.logs))
	case ui.RouteDashboard:
		return m.router.Pop()
	default:
		return nil
	}
}

// View renders the application
func (m *AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	return m.router.View()
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	keyEnv := flag.String("key-env", "LAUNCHPAD_CONTROL_KEY", "Environment variable holding the base58 admin or operator key")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	key, err := solana.PrivateKeyFromBase58(os.Getenv(*keyEnv))
	if err != nil {
		log.Fatalf("Failed to read control key from $%s: %v", *keyEnv, err)
	}

	// stdout belongs to the TUI: log to the file and the in-memory ring only
	ring := logger.NewRingBuffer(1000)
	lc := logger.DefaultConfig()
	lc.LogFile = cfg.LogFile
	lc.Development = cfg.Development
	lc.Console = false
	level := zapcore.InfoLevel
	if cfg.Development {
		level = zapcore.DebugLevel
	}
	appLogger, err := logger.New(lc, ring.Core(level))
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() {
		_ = appLogger.Sync()
	}()

	r, err := runner.New(rootCtx, cfg, appLogger.Logger, runner.Options{})
	if err != nil {
		log.Fatalf("Failed to start launchpad: %v", err)
	}
	if err := r.Start(rootCtx); err != nil {
		log.Fatalf("Failed to start launchpad: %v", err)
	}
	defer func() {
		if err := r.Close(context.Background()); err != nil {
			appLogger.Error("Shutdown failed", zap.Error(err))
		}
	}()

	feed := ui.NewFeed(256)
	r.Bus().Subscribe(events.Any, feed)

	appLogger.Info("Starting launchpad TUI")

	program := tea.NewProgram(
		NewAppModel(ui.NewServiceMarket(r.Service(), key), feed, ring),
		tea.WithAltScreen(),
		tea.WithContext(rootCtx),
	)
	if _, err := program.Run(); err != nil && rootCtx.Err() == nil {
		appLogger.Error("TUI application failed", zap.Error(err))
	}

	sent, dropped := feed.Stats()
	appLogger.Info("Shutting down TUI application",
		zap.Uint64("events_shown", sent),
		zap.Uint64("events_dropped", dropped))
}

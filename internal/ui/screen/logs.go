package screen

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap/zapcore"

	"github.com/rovshanmuradov/curve-launchpad/internal/logger"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui/router"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui/style"
)

const logLimit = 500

// LogSource supplies recent log entries, oldest first.
type LogSource interface {
	Recent(limit int) []logger.Entry
}

// Logs shows the in-memory log tail with a minimum level filter.
type Logs struct {
	source   LogSource
	keyMap   ui.KeyMap
	help     help.Model
	viewport viewport.Model
	minLevel zapcore.Level
	shown    int
	ready    bool
}

// NewLogs creates the logs screen over source.
func NewLogs(source LogSource) *Logs {
	return &Logs{
		source:   source,
		keyMap:   ui.DefaultKeyMap(),
		help:     help.New(),
		viewport: viewport.New(80, 20),
		minLevel: zapcore.DebugLevel,
	}
}

func (l *Logs) Init() tea.Cmd {
	l.reload()
	return nil
}

func (l *Logs) SetSize(width, height int) {
	l.help.Width = width
	l.viewport.Width = width
	// title and help lines
	l.viewport.Height = max(1, height-3)
	l.reload()
}

func (l *Logs) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case ui.TickMsg:
		l.reload()
		return l, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, l.keyMap.Quit):
			return l, tea.Quit
		case key.Matches(msg, l.keyMap.FilterInfo):
			l.setLevel(zapcore.InfoLevel)
			return l, nil
		case key.Matches(msg, l.keyMap.FilterWarn):
			l.setLevel(zapcore.WarnLevel)
			return l, nil
		case key.Matches(msg, l.keyMap.FilterError):
			l.setLevel(zapcore.ErrorLevel)
			return l, nil
		case key.Matches(msg, l.keyMap.FilterAll):
			l.setLevel(zapcore.DebugLevel)
			return l, nil
		case key.Matches(msg, l.keyMap.Refresh):
			l.reload()
			return l, nil
		}
	}

	var cmd tea.Cmd
	l.viewport, cmd = l.viewport.Update(msg)
	return l, cmd
}

// Level returns the active minimum level.
func (l *Logs) Level() zapcore.Level { return l.minLevel }

// Shown returns how many entries passed the filter on the last reload.
func (l *Logs) Shown() int { return l.shown }

func (l *Logs) setLevel(level zapcore.Level) {
	l.minLevel = level
	l.reload()
}

func (l *Logs) reload() {
	entries := l.source.Recent(logLimit)
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Level < l.minLevel {
			continue
		}
		lines = append(lines, formatEntry(e))
	}
	l.shown = len(lines)

	// keep following the tail unless the user scrolled up
	follow := !l.ready || l.viewport.AtBottom()
	l.viewport.SetContent(strings.Join(lines, "\n"))
	if follow {
		l.viewport.GotoBottom()
	}
	l.ready = true
}

func formatEntry(e logger.Entry) string {
	palette := style.DefaultPalette()
	var c lipgloss.Color
	switch {
	case e.Level >= zapcore.ErrorLevel:
		c = palette.Error
	case e.Level == zapcore.WarnLevel:
		c = palette.Warning
	case e.Level == zapcore.InfoLevel:
		c = palette.Info
	default:
		c = palette.TextMuted
	}

	var b strings.Builder
	b.WriteString(e.Time.Format(time.TimeOnly))
	b.WriteString(" ")
	b.WriteString(lipgloss.NewStyle().Foreground(c).Width(6).Render(e.Level.CapitalString()))
	if e.Logger != "" {
		b.WriteString("[" + e.Logger + "] ")
	}
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return b.String()
}

func (l *Logs) View() string {
	title := fmt.Sprintf("Logs · level ≥ %s · %d entries", l.minLevel.CapitalString(), l.shown)
	return style.Title().Render(title) + "\n" +
		l.viewport.View() + "\n" +
		l.help.ShortHelpView(l.keyMap.ContextualHelp(ui.RouteLogs))
}

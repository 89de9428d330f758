package screen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui/component"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui/router"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui/style"
)

const (
	maxEventLines  = 8
	sparklineWidth = 32
	actionTimeout  = 10 * time.Second
)

// Dashboard lists pools with their progress towards graduation and a feed
// of recent events.
type Dashboard struct {
	market ui.Market
	keyMap ui.KeyMap
	help   help.Model
	table  *component.Table
	bar    progress.Model

	pools     []pool.State
	threshold uint64
	prices    map[solana.PublicKey]*component.Sparkline
	events    []string
	status    string
	statusErr bool
	updated   time.Time

	width  int
	height int
}

// NewDashboard creates the dashboard over market.
func NewDashboard(market ui.Market) *Dashboard {
	return &Dashboard{
		market: market,
		keyMap: ui.DefaultKeyMap(),
		help:   help.New(),
		table: component.NewTable(
			component.TableColumn{Header: "Symbol", Width: 10, Align: lipgloss.Left},
			component.TableColumn{Header: "Status", Width: 11, Align: lipgloss.Left},
			component.TableColumn{Header: "Price", Width: 14, Align: lipgloss.Right},
			component.TableColumn{Header: "Reserve", Width: 14, Align: lipgloss.Right},
			component.TableColumn{Header: "Progress", Width: 9, Align: lipgloss.Right},
			component.TableColumn{Header: "Trades", Width: 8, Align: lipgloss.Right},
			component.TableColumn{Header: "Age", Width: 14, Align: lipgloss.Left},
		),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		prices: make(map[solana.PublicKey]*component.Sparkline),
	}
}

// Init loads the first snapshot.
func (d *Dashboard) Init() tea.Cmd {
	return func() tea.Msg { return ui.TickMsg(time.Now()) }
}

func (d *Dashboard) SetSize(width, height int) {
	d.width = width
	d.height = height
	d.help.Width = width
	if width > 20 {
		d.bar.Width = min(60, width-20)
	}
}

// Update handles screen updates
func (d *Dashboard) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case ui.TickMsg:
		d.refresh(time.Time(msg))

	case ui.EventMsg:
		d.pushEvent(ui.DescribeEvent(msg.Event))
		if msg.Event.Type() != events.ConfigUpdated {
			d.refresh(msg.Event.Timestamp())
		}

	case ui.SuccessMsg:
		d.status, d.statusErr = msg.Message, false

	case ui.ErrorMsg:
		d.status, d.statusErr = fmt.Sprintf("%s: %v", msg.Title, msg.Error), true

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, d.keyMap.Quit):
			return d, tea.Quit
		case key.Matches(msg, d.keyMap.Up):
			d.table.MoveUp()
		case key.Matches(msg, d.keyMap.Down):
			d.table.MoveDown()
		case key.Matches(msg, d.keyMap.Refresh):
			d.refresh(time.Now())
		case key.Matches(msg, d.keyMap.Help):
			d.help.ShowAll = !d.help.ShowAll
		case key.Matches(msg, d.keyMap.Logs):
			return d, func() tea.Msg { return ui.RouterMsg{To: ui.RouteLogs} }
		case key.Matches(msg, d.keyMap.Pause):
			return d, d.togglePause()
		case key.Matches(msg, d.keyMap.Graduate):
			return d, d.graduate()
		}
	}
	return d, nil
}

func (d *Dashboard) selected() (pool.State, bool) {
	i := d.table.Selected()
	if i < 0 || i >= len(d.pools) {
		return pool.State{}, false
	}
	return d.pools[i], true
}

func (d *Dashboard) togglePause() tea.Cmd {
	st, ok := d.selected()
	if !ok {
		return nil
	}
	market := d.market
	return func() tea.Msg {
		if err := market.SetPaused(st.ID, !st.Paused); err != nil {
			return ui.ErrorMsg{Error: err, Title: "Pause " + st.Symbol}
		}
		verb := "paused"
		if st.Paused {
			verb = "resumed"
		}
		return ui.SuccessMsg{Message: st.Symbol + " " + verb}
	}
}

func (d *Dashboard) graduate() tea.Cmd {
	st, ok := d.selected()
	if !ok {
		return nil
	}
	market := d.market
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := market.Graduate(ctx, st.ID); err != nil {
			return ui.ErrorMsg{Error: err, Title: "Graduate " + st.Symbol}
		}
		return ui.SuccessMsg{Message: st.Symbol + " graduated"}
	}
}

func (d *Dashboard) refresh(now time.Time) {
	d.pools = d.market.Pools()
	d.threshold = d.market.GraduationThreshold()
	d.updated = now

	rows := make([]component.TableRow, len(d.pools))
	for i, st := range d.pools {
		spark, ok := d.prices[st.ID]
		if !ok {
			spark = component.NewSparkline(sparklineWidth)
			d.prices[st.ID] = spark
		}
		if st.Status == pool.StatusActive {
			spark.Push(st.Price())
		}

		label := ui.StatusLabel(st)
		statusStyle := style.Status(label)
		rows[i] = component.TableRow{
			Data: []string{
				st.Symbol,
				label,
				ui.FormatPrice(st.Price()),
				ui.FormatBase(st.BaseBalance),
				fmt.Sprintf("%.1f%%", ui.Progress(st, d.threshold)*100),
				humanize.Comma(int64(st.TradeCount)),
				humanize.RelTime(st.CreatedAt, now, "ago", "from now"),
			},
		}
		if label != "active" {
			rows[i].Style = &statusStyle
		}
	}
	d.table.SetRows(rows)
}

func (d *Dashboard) pushEvent(line string) {
	d.events = append(d.events, line)
	if len(d.events) > maxEventLines {
		d.events = d.events[len(d.events)-maxEventLines:]
	}
}

// View renders the dashboard
func (d *Dashboard) View() string {
	palette := style.DefaultPalette()
	muted := lipgloss.NewStyle().Foreground(palette.TextMuted)

	var b strings.Builder
	b.WriteString(style.Title().Render(fmt.Sprintf("Launchpad · %d pools · threshold %s", len(d.pools), ui.FormatBase(d.threshold))))
	b.WriteString("\n")

	if len(d.pools) == 0 {
		b.WriteString(muted.Render("  No pools yet"))
	} else {
		b.WriteString(d.table.View())
	}
	b.WriteString("\n")

	if st, ok := d.selected(); ok {
		b.WriteString(d.detail(st))
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.NewStyle().Foreground(palette.Secondary).Bold(true).Render("Recent events"))
	b.WriteString("\n")
	if len(d.events) == 0 {
		b.WriteString(muted.Render("  waiting for activity"))
		b.WriteString("\n")
	}
	for _, line := range d.events {
		b.WriteString("  " + line + "\n")
	}

	if d.status != "" {
		c := palette.Success
		if d.statusErr {
			c = palette.Error
		}
		b.WriteString(lipgloss.NewStyle().Foreground(c).Render(d.status))
		b.WriteString("\n")
	}
	b.WriteString(d.help.ShortHelpView(d.keyMap.ContextualHelp(ui.RouteDashboard)))
	return b.String()
}

func (d *Dashboard) detail(st pool.State) string {
	palette := style.DefaultPalette()
	label := lipgloss.NewStyle().Foreground(palette.TextSecondary).Width(14)

	lines := []string{
		label.Render("Token") + fmt.Sprintf("%s (%s)", st.Name, st.Symbol),
		label.Render("Mint") + st.Mint.String(),
		label.Render("Circulating") + ui.FormatTokens(st.CirculatingSupply) + " / " + ui.FormatTokens(st.TotalSupply),
		label.Render("Graduation") + d.bar.ViewAs(ui.Progress(st, d.threshold)),
	}
	if spark, ok := d.prices[st.ID]; ok && spark.Len() > 0 {
		lines = append(lines, label.Render("Price")+spark.View())
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(palette.TextMuted).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

package screen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui"
)

type fakeMarket struct {
	mu        sync.Mutex
	pools     []pool.State
	paused    map[solana.PublicKey]bool
	graduated []solana.PublicKey
	err       error
}

func (m *fakeMarket) Pools() []pool.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pool.State(nil), m.pools...)
}

func (m *fakeMarket) GraduationThreshold() uint64 { return 100_000_000_000 }

func (m *fakeMarket) SetPaused(id solana.PublicKey, paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.paused[id] = paused
	return nil
}

func (m *fakeMarket) Graduate(_ context.Context, id solana.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.graduated = append(m.graduated, id)
	return nil
}

func newMarket() *fakeMarket {
	now := time.Now()
	return &fakeMarket{
		paused: make(map[solana.PublicKey]bool),
		pools: []pool.State{
			{ID: solana.NewWallet().PublicKey(), Name: "Alpha", Symbol: "ALPHA", Status: pool.StatusActive, BaseBalance: 25_000_000_000, CreatedAt: now},
			{ID: solana.NewWallet().PublicKey(), Name: "Beta", Symbol: "BETA", Status: pool.StatusActive, Paused: true, CreatedAt: now},
		},
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestDashboard_RendersPools(t *testing.T) {
	market := newMarket()
	d := NewDashboard(market)
	d.SetSize(120, 40)
	d.Update(ui.TickMsg(time.Now()))

	view := d.View()
	assert.Contains(t, view, "2 pools")
	assert.Contains(t, view, "ALPHA")
	assert.Contains(t, view, "BETA")
	assert.Contains(t, view, "25.0%")
	assert.Contains(t, view, "waiting for activity")
}

func TestDashboard_PauseSelected(t *testing.T) {
	market := newMarket()
	d := NewDashboard(market)
	d.Update(ui.TickMsg(time.Now()))

	_, cmd := d.Update(runes("p"))
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, ui.SuccessMsg{Message: "ALPHA paused"}, msg)
	assert.True(t, market.paused[market.pools[0].ID])

	d.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd = d.Update(runes("p"))
	require.NotNil(t, cmd)
	assert.Equal(t, ui.SuccessMsg{Message: "BETA resumed"}, cmd())
	assert.False(t, market.paused[market.pools[1].ID])
}

func TestDashboard_GraduateReportsErrors(t *testing.T) {
	market := newMarket()
	market.err = errors.New("not ready")
	d := NewDashboard(market)
	d.Update(ui.TickMsg(time.Now()))

	_, cmd := d.Update(runes("g"))
	require.NotNil(t, cmd)
	msg := cmd()
	errMsg, ok := msg.(ui.ErrorMsg)
	require.True(t, ok)
	assert.Equal(t, "Graduate ALPHA", errMsg.Title)

	d.Update(msg)
	assert.Contains(t, d.View(), "not ready")

	market.err = nil
	_, cmd = d.Update(runes("g"))
	require.NotNil(t, cmd)
	assert.Equal(t, ui.SuccessMsg{Message: "ALPHA graduated"}, cmd())
	assert.Equal(t, []solana.PublicKey{market.pools[0].ID}, market.graduated)
}

func TestDashboard_NoSelectionNoCommand(t *testing.T) {
	d := NewDashboard(&fakeMarket{paused: map[solana.PublicKey]bool{}})
	d.Update(ui.TickMsg(time.Now()))

	_, cmd := d.Update(runes("p"))
	assert.Nil(t, cmd)
	assert.Contains(t, d.View(), "No pools yet")
}

func TestDashboard_EventsAreCapped(t *testing.T) {
	d := NewDashboard(newMarket())
	for i := 0; i < maxEventLines+3; i++ {
		d.Update(ui.EventMsg{Event: events.ConfigUpdatedEvent{
			BaseEvent: events.NewBase(events.ConfigUpdated, time.Now()),
			Group:     "fees",
			Version:   uint64(i + 1),
		}})
	}
	require.Len(t, d.events, maxEventLines)
	assert.Contains(t, d.events[len(d.events)-1], "v11")
}

func TestDashboard_LogsRoute(t *testing.T) {
	d := NewDashboard(newMarket())
	_, cmd := d.Update(runes("l"))
	require.NotNil(t, cmd)
	assert.Equal(t, ui.RouterMsg{To: ui.RouteLogs}, cmd())
}

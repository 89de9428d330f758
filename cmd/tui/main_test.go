package main

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/logger"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui"
)

type emptyMarket struct{}

func (emptyMarket) Pools() []pool.State                             { return nil }
func (emptyMarket) GraduationThreshold() uint64                     { return 1 }
func (emptyMarket) SetPaused(solana.PublicKey, bool) error          { return nil }
func (emptyMarket) Graduate(context.Context, solana.PublicKey) error { return nil }

func TestAppModel_Navigation(t *testing.T) {
	m := NewAppModel(emptyMarket{}, ui.NewFeed(4), logger.NewRingBuffer(8))
	assert.Equal(t, "Initializing...", m.View())

	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.Contains(t, m.View(), "0 pools")

	m.Update(ui.RouterMsg{To: ui.RouteLogs})
	require.Equal(t, 2, m.router.Depth())
	assert.Contains(t, m.View(), "Logs")

	m.Update(ui.RouterMsg{To: ui.RouteLogs})
	assert.Equal(t, 2, m.router.Depth(), "logs are pushed once")

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, 1, m.router.Depth())
}

func TestAppModel_EventsReachDashboard(t *testing.T) {
	m := NewAppModel(emptyMarket{}, ui.NewFeed(4), logger.NewRingBuffer(8))
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	_, cmd := m.Update(ui.EventMsg{Event: events.ConfigUpdatedEvent{
		BaseEvent: events.NewBase(events.ConfigUpdated, time.Now()),
		Group:     "fees",
		Version:   2,
	}})
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "config fees updated to v2")
}

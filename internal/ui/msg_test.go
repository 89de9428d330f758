package ui

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/curve-launchpad/internal/events"
)

func TestFeed_DropsWhenFull(t *testing.T) {
	feed := NewFeed(1)
	first := events.ConfigUpdatedEvent{BaseEvent: events.NewBase(events.ConfigUpdated, time.Now()), Group: "fees"}
	second := events.ConfigUpdatedEvent{BaseEvent: events.NewBase(events.ConfigUpdated, time.Now()), Group: "dao"}

	require.NoError(t, feed.Handle(context.Background(), first))
	require.NoError(t, feed.Handle(context.Background(), second))

	sent, dropped := feed.Stats()
	assert.Equal(t, uint64(1), sent)
	assert.Equal(t, uint64(1), dropped)

	msg := feed.Listen()()
	ev, ok := msg.(EventMsg)
	require.True(t, ok)
	assert.Equal(t, "fees", ev.Event.(events.ConfigUpdatedEvent).Group)
}

func TestRouteString(t *testing.T) {
	assert.Equal(t, "dashboard", RouteDashboard.String())
	assert.Equal(t, "logs", RouteLogs.String())
	assert.Equal(t, "unknown", Route(42).String())
}

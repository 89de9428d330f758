package ui

import (
	"context"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rovshanmuradov/curve-launchpad/internal/events"
)

// Tea message types for UI communication

// RouterMsg represents navigation between screens
type RouterMsg struct {
	To Route
}

// EventMsg carries one launchpad event into the UI.
type EventMsg struct {
	Event events.Event
}

// TickMsg asks screens to refresh their snapshots.
type TickMsg time.Time

// ErrorMsg represents error conditions
type ErrorMsg struct {
	Error error
	Title string
}

// SuccessMsg represents success conditions
type SuccessMsg struct {
	Message string
	Title   string
}

// Tick schedules a TickMsg after d.
func Tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Feed forwards bus events to the program without ever blocking the bus.
type Feed struct {
	ch      chan tea.Msg
	sent    atomic.Uint64
	dropped atomic.Uint64
}

func NewFeed(size int) *Feed {
	return &Feed{ch: make(chan tea.Msg, size)}
}

// Handle implements events.Handler.
func (f *Feed) Handle(_ context.Context, e events.Event) error {
	f.Send(EventMsg{Event: e})
	return nil
}

// Send queues msg or drops it when the feed is full.
func (f *Feed) Send(msg tea.Msg) {
	select {
	case f.ch <- msg:
		f.sent.Add(1)
	default:
		f.dropped.Add(1)
	}
}

// Listen returns a command that waits for the next queued message.
func (f *Feed) Listen() tea.Cmd {
	return func() tea.Msg {
		return <-f.ch
	}
}

// Stats returns how many messages were queued and dropped.
func (f *Feed) Stats() (sent, dropped uint64) {
	return f.sent.Load(), f.dropped.Load()
}

// Route represents different screens in the application
type Route int

const (
	RouteDashboard Route = iota
	RouteLogs
)

// String returns the string representation of the route
func (r Route) String() string {
	switch r {
	case RouteDashboard:
		return "dashboard"
	case RouteLogs:
		return "logs"
	default:
		return "unknown"
	}
}

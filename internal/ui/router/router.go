package router

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Screen represents a screen that can be navigated to
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	View() string
	SetSize(width, height int)
}

// Router manages navigation between screens using a stack-based approach
type Router struct {
	stack  []Screen
	width  int
	height int
}

// New creates a new router with the initial screen
func New(initialScreen Screen) *Router {
	return &Router{stack: []Screen{initialScreen}}
}

// Init initializes the current screen
func (r *Router) Init() tea.Cmd {
	return r.Current().Init()
}

// Update forwards msg to the current screen. Escape pops the stack.
func (r *Router) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.SetSize(msg.Width, msg.Height)
		return nil
	case tea.KeyMsg:
		if msg.String() == "esc" && len(r.stack) > 1 {
			return r.Pop()
		}
	}

	top := len(r.stack) - 1
	updated, cmd := r.stack[top].Update(msg)
	r.stack[top] = updated
	return cmd
}

// View renders the current screen
func (r *Router) View() string {
	return r.Current().View()
}

// SetSize sets the size for the router and current screen
func (r *Router) SetSize(width, height int) {
	r.width = width
	r.height = height
	r.Current().SetSize(width, height)
}

// Push adds a new screen to the navigation stack
func (r *Router) Push(screen Screen) tea.Cmd {
	screen.SetSize(r.width, r.height)
	r.stack = append(r.stack, screen)
	return screen.Init()
}

// Pop removes the current screen; the root screen is never removed.
func (r *Router) Pop() tea.Cmd {
	if len(r.stack) <= 1 {
		return nil
	}
	r.stack = r.stack[:len(r.stack)-1]
	current := r.Current()
	current.SetSize(r.width, r.height)
	return current.Init()
}

// Current returns the current screen
func (r *Router) Current() Screen {
	return r.stack[len(r.stack)-1]
}

// Depth returns the current navigation depth
func (r *Router) Depth() int {
	return len(r.stack)
}

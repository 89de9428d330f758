package style

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Cyan    = lipgloss.Color("#00E5FF") // Primary highlight
	Magenta = lipgloss.Color("#FF1B6B") // Accent
	Yellow  = lipgloss.Color("#FFB500") // Warnings
	Green   = lipgloss.Color("#2AFFAA") // Success
	Red     = lipgloss.Color("#FF5555") // Errors
	Blue    = lipgloss.Color("#3B82F6") // Info
	Purple  = lipgloss.Color("#8B5CF6") // Graduated pools

	Base03 = lipgloss.Color("#1B1D23") // Background
	Base02 = lipgloss.Color("#262831") // Darker background
	Base01 = lipgloss.Color("#6C7280") // Muted text
	Base2  = lipgloss.Color("#ECEFF4") // Primary text
	Base1  = lipgloss.Color("#B4BCC8") // Secondary text
)

// Palette provides a centralized color management
type Palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Info      lipgloss.Color

	Background    lipgloss.Color
	BackgroundAlt lipgloss.Color
	Text          lipgloss.Color
	TextMuted     lipgloss.Color
	TextSecondary lipgloss.Color

	Buy       lipgloss.Color
	Sell      lipgloss.Color
	Paused    lipgloss.Color
	Graduated lipgloss.Color
}

// DefaultPalette returns the default color palette
func DefaultPalette() Palette {
	return Palette{
		Primary:   Cyan,
		Secondary: Magenta,
		Success:   Green,
		Error:     Red,
		Warning:   Yellow,
		Info:      Blue,

		Background:    Base03,
		BackgroundAlt: Base02,
		Text:          Base2,
		TextMuted:     Base01,
		TextSecondary: Base1,

		Buy:       Green,
		Sell:      Red,
		Paused:    Yellow,
		Graduated: Purple,
	}
}

// Title is the style of screen titles.
func Title() lipgloss.Style {
	p := DefaultPalette()
	return lipgloss.NewStyle().Foreground(p.Primary).Bold(true).Padding(0, 1)
}

// Status returns the style for a pool status label.
func Status(label string) lipgloss.Style {
	p := DefaultPalette()
	s := lipgloss.NewStyle().Bold(true)
	switch label {
	case "active":
		return s.Foreground(p.Success)
	case "paused":
		return s.Foreground(p.Paused)
	case "graduating":
		return s.Foreground(p.Info)
	case "graduated":
		return s.Foreground(p.Graduated)
	default:
		return s.Foreground(p.TextMuted)
	}
}

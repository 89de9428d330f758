package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/curve-launchpad/internal/ui/style"
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline draws the last width samples of a series.
type Sparkline struct {
	data  []uint64
	width int
	color lipgloss.Color
}

// NewSparkline creates a new sparkline component
func NewSparkline(width int) *Sparkline {
	return &Sparkline{width: width, color: style.DefaultPalette().Primary}
}

// Push appends a sample, dropping the oldest beyond width.
func (s *Sparkline) Push(v uint64) {
	s.data = append(s.data, v)
	if len(s.data) > s.width {
		s.data = s.data[len(s.data)-s.width:]
	}
}

func (s *Sparkline) Len() int { return len(s.data) }

// View renders the sparkline
func (s *Sparkline) View() string {
	if len(s.data) == 0 {
		return strings.Repeat("▁", s.width)
	}
	lo, hi := s.data[0], s.data[0]
	for _, v := range s.data {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	var b strings.Builder
	for _, v := range s.data {
		idx := len(sparkChars) / 2
		if hi > lo {
			idx = int((v - lo) * uint64(len(sparkChars)-1) / (hi - lo))
		}
		b.WriteRune(sparkChars[idx])
	}
	trend, color := "→", style.DefaultPalette().TextMuted
	if n := len(s.data); n >= 2 {
		switch {
		case s.data[n-1] > s.data[n-2]:
			trend, color = "↗", style.DefaultPalette().Buy
		case s.data[n-1] < s.data[n-2]:
			trend, color = "↘", style.DefaultPalette().Sell
		}
	}
	return lipgloss.NewStyle().Foreground(s.color).Render(b.String()) + " " +
		lipgloss.NewStyle().Foreground(color).Render(trend)
}

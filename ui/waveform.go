package ui

import (
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const waveformFPS = 12

var waveformLevels = []rune("▁▂▃▄▅▆▇█")

// waveformTickMsg advances the waveform animation.
type waveformTickMsg time.Time

// Waveform is a decorative level meter. It only moves while speech is
// playing; paused and idle forms show it flat.
type Waveform struct {
	bars  int
	frame int
	style lipgloss.Style
}

// NewWaveform creates a waveform bars wide.
func NewWaveform(bars int) Waveform {
	return Waveform{
		bars:  bars,
		style: lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")),
	}
}

// SetWidth resizes the waveform.
func (w *Waveform) SetWidth(bars int) {
	if bars < 1 {
		bars = 1
	}
	w.bars = bars
}

// Advance moves the animation one frame on.
func (w *Waveform) Advance() {
	w.frame++
}

// View renders the waveform; flat unless active.
func (w Waveform) View(active bool) string {
	if w.bars <= 0 {
		return ""
	}

	var b strings.Builder
	for i := 0; i < w.bars; i++ {
		if !active {
			b.WriteRune(waveformLevels[0])
			continue
		}
		// Two interfering sines look enough like speech.
		x := float64(i)
		t := float64(w.frame)
		v := math.Sin(x*0.55+t*0.9)*0.6 + math.Sin(x*0.21-t*0.45)*0.4
		level := int((v + 1) / 2 * float64(len(waveformLevels)-1))
		level = max(0, min(level, len(waveformLevels)-1))
		b.WriteRune(waveformLevels[level])
	}
	return w.style.Render(b.String())
}

// waveformTick schedules the next animation frame.
func waveformTick() tea.Cmd {
	return tea.Tick(time.Second/waveformFPS, func(t time.Time) tea.Msg {
		return waveformTickMsg(t)
	})
}

package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mamtil/speak/internal/tts"
	"github.com/muesli/reflow/truncate"
)

// StatusDisplay renders the playback status line below the form.
type StatusDisplay struct {
	state   tts.State
	backend string

	// Speaking time, excluding pauses
	elapsed time.Duration
	resumed time.Time

	errorMessage string
}

// NewStatusDisplay creates an idle status display for backend.
func NewStatusDisplay(backend string) *StatusDisplay {
	return &StatusDisplay{state: tts.StateIdle, backend: backend}
}

// Update records a state change at now.
func (s *StatusDisplay) Update(state tts.State, now time.Time) {
	if state == s.state {
		return
	}

	if s.state == tts.StateSpeaking {
		s.elapsed += now.Sub(s.resumed)
	}
	switch state {
	case tts.StateSpeaking:
		if s.state == tts.StateIdle {
			s.elapsed = 0
			s.errorMessage = ""
		}
		s.resumed = now
	case tts.StateIdle:
		s.elapsed = 0
	}
	s.state = state
}

// SetError shows msg until the next request starts.
func (s *StatusDisplay) SetError(msg string) {
	s.errorMessage = msg
}

// Elapsed returns how long the current request has been speaking at now.
func (s *StatusDisplay) Elapsed(now time.Time) time.Duration {
	if s.state == tts.StateSpeaking {
		return s.elapsed + now.Sub(s.resumed)
	}
	return s.elapsed
}

// CompactStatus returns the one-line status, truncated to width.
func (s *StatusDisplay) CompactStatus(now time.Time, width int) string {
	var line string

	switch s.state {
	case tts.StateSpeaking, tts.StatePaused:
		stateStyle := lipgloss.NewStyle().Foreground(s.getStateColor())
		line = stateStyle.Render(fmt.Sprintf("%s %s", s.getStateIcon(), s.state))

		counterStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
		line += counterStyle.Render(fmt.Sprintf(" %s · %s", formatDuration(s.Elapsed(now)), s.backend))
	default:
		if s.errorMessage == "" {
			return ""
		}
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
		msg := s.errorMessage
		if width > 4 {
			msg = truncate.StringWithTail(msg, uint(width-2), "...") //nolint:gosec
		}
		line = errorStyle.Render("✗ " + msg)
	}

	return line
}

// getStateColor returns the color for the current state.
func (s *StatusDisplay) getStateColor() lipgloss.Color {
	switch s.state {
	case tts.StateSpeaking:
		return lipgloss.Color("#00FF00") // Green
	case tts.StatePaused:
		return lipgloss.Color("#FFFF00") // Yellow
	default:
		return lipgloss.Color("#666666") // Dark gray
	}
}

// getStateIcon returns an icon for the current state.
func (s *StatusDisplay) getStateIcon() string {
	switch s.state {
	case tts.StateSpeaking:
		return "▶"
	case tts.StatePaused:
		return "⏸"
	default:
		return "○"
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// IsActive returns true while something is speaking or paused.
func (s *StatusDisplay) IsActive() bool {
	return s.state != tts.StateIdle
}

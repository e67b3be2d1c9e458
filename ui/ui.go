// Package ui provides the interactive speech form of the speak application.
package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/mamtil/speak/internal/tts"
)

// NewProgram returns a new Tea program driving adapter. The adapter's
// playback-ended notifications are bridged into the program as messages.
func NewProgram(ctx context.Context, cfg Config, adapter *tts.Adapter) *tea.Program {
	log.Debug(
		"Starting speak form",
		"backend",
		adapter.Backend(),
		"max_chars",
		adapter.MaxChars(),
		"alt_screen",
		cfg.AltScreen,
	)

	if cfg.Backend == "" {
		cfg.Backend = adapter.Backend()
	}

	ended := make(chan struct{}, 1)
	adapter.OnEnded(func() {
		select {
		case ended <- struct{}{}:
		default:
		}
	})

	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	opts = append(opts, tea.WithContext(ctx))

	m := newModel(ctx, cfg, adapter, ended)
	return tea.NewProgram(m, opts...)
}

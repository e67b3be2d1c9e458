package ui

import "github.com/mamtil/speak/internal/tts"

// Config contains TUI-specific configuration.
type Config struct {
	Gender      tts.Gender
	DownloadDir string
	Backend     string

	// Text the form starts with
	Text string

	HomeDir string `env:"HOME"`

	// For debugging the UI
	AltScreen       bool `env:"SPEAK_ALT_SCREEN"        envDefault:"true"`
	DisableWaveform bool `env:"SPEAK_DISABLE_WAVEFORM"`
}

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# speech backend: "local" (espeak-ng) or "remote" (HTTP speech service)
backend: ""
# default voice: "female" or "male"
voice: "female"
# maximum number of characters per request
max_chars: 500
# where downloaded audio is saved (default ~/Downloads)
download_dir: ""

# audio output
player:
  # 44100 or 48000
  sample_rate: 44100
  # 0.0 to 1.0
  volume: 1.0

# espeak-ng on this machine
local:
  binary: "espeak-ng"
  # voices of this language are preferred
  language: "en"
  timeout: "30s"
  # directories watched for voice installs, e.g. /usr/share/espeak-ng-data/voices
  voice_dirs: []
  # pitch and rate multipliers, 0.5 to 2.0
  female:
    pitch: 1.15
    rate: 0.95
  male:
    pitch: 0.85
    rate: 0.95

# HTTP speech service
remote:
  # endpoint: "https://tts.example.com/api/tts"
  # leave the token empty when the endpoint is a "speak serve" proxy
  # token: ""
  timeout: "30s"
  cache:
    enabled: true
    # dir: "~/.cache/speak/audio"
    memory_entries: 32
    max_disk_mb: 100
    ttl: "168h"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the speak config file",
	Long:    paragraph(fmt.Sprintf("\n%s the speak config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("speak config\nspeak config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Speak", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}

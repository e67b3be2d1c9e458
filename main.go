// Package main provides the entry point for the speak CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/mamtil/speak/internal/audio"
	"github.com/mamtil/speak/internal/cache"
	"github.com/mamtil/speak/internal/tts"
	"github.com/mamtil/speak/internal/tts/engines"
	"github.com/mamtil/speak/internal/tts/voices"
	"github.com/mamtil/speak/ui"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	tui        bool
	voice      string
	backend    string
	output     string

	speechConfig tts.Config

	rootCmd = &cobra.Command{
		Use:   "speak [TEXT]",
		Short: "Turn text into speech, right in your terminal",
		Long: paragraph(
			fmt.Sprintf("\nTurn text into speech with a %s or %s voice.\n\nWith no text, speak opens an interactive form. Text can also be piped in.", keyword("female"), keyword("male")),
		),
		Example: paragraph(
			"speak --backend local \"Hello there\"\n" +
				"echo \"Hello there\" | speak --voice male\n" +
				"speak --backend remote --output hello.wav \"Hello there\"\n" +
				"speak --tui",
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	// Flags are bound to viper, so the config file fills in whatever the
	// command line leaves out.
	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		return err
	}
	speechConfig = cfg

	voice = viper.GetString("voice")
	backend = viper.GetString("backend")
	tui = viper.GetBool("tui")
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// inputText returns the text to speak: stdin when it is a pipe, the
// arguments otherwise.
func inputText(args []string) (string, error) {
	// an explicit - also reads stdin
	if len(args) > 0 && (len(args) != 1 || args[0] != "-") {
		return strings.Join(args, " "), nil
	}

	yes, err := stdinIsPipe()
	if err != nil {
		return "", err
	}
	if !yes {
		return "", nil
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("unable to read from stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}

func execute(cmd *cobra.Command, args []string) error {
	text, err := inputText(args)
	if err != nil {
		return err
	}

	gender, err := tts.ParseGender(voice)
	if err != nil {
		return err
	}

	selected, err := tts.ValidateBackendSelection(backend, speechConfig)
	if err != nil {
		return err
	}
	if result := tts.ValidateBackend(selected, speechConfig); !result.Available {
		return fmt.Errorf("%w\n\n%s", result.Error, result.Guidance)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	synth, closeBackend, err := newBackend(ctx, selected, speechConfig)
	if err != nil {
		return err
	}
	defer func() { _ = closeBackend() }()

	if output != "" {
		return writeAudio(ctx, synth, text, gender, output)
	}

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	interactive := tui || (text == "" && isTerminal)
	if !interactive && text == "" {
		return tts.ErrEmptyText
	}

	player, err := audio.NewPlayer(playerConfig(speechConfig.Player), log.Default())
	if err != nil {
		return fmt.Errorf("unable to open audio output: %w", err)
	}
	adapter, err := tts.NewAdapter(synth, player,
		tts.WithLogger(log.Default()),
		tts.WithMaxChars(speechConfig.MaxChars),
	)
	if err != nil {
		_ = player.Close()
		return err
	}
	defer func() {
		s := adapter.Stats()
		log.Debug("adapter closed", "requests", s.Requests, "completed", s.Completed, "failed", s.Failed, "superseded", s.Superseded)
		_ = adapter.Close()
	}()

	if interactive {
		return runTUI(ctx, adapter, text, gender)
	}
	return speakAndWait(ctx, adapter, text, gender)
}

// newBackend builds the synthesizer for the selected backend. The returned
// closer releases whatever the backend opened.
func newBackend(ctx context.Context, backend tts.BackendType, cfg tts.Config) (tts.Synthesizer, func() error, error) {
	noop := func() error { return nil }

	switch backend {
	case tts.BackendLocal:
		espeak := engines.NewEspeak(engines.EspeakConfig{
			Binary:  cfg.Local.Binary,
			Timeout: cfg.Local.Timeout,
		})
		selector, err := newSelector(ctx, espeak, cfg.Local)
		if err != nil {
			return nil, noop, err
		}
		if len(cfg.Local.VoiceDirs) > 0 {
			selector.OnChange(func() {
				female, _ := selector.Voice(tts.GenderFemale)
				male, _ := selector.Voice(tts.GenderMale)
				log.Info("Voices changed", "female", female.ID, "male", male.ID)
			})
			if err := selector.Watch(ctx, cfg.Local.VoiceDirs...); err != nil {
				log.Warn("Not watching voice directories", "error", err)
			}
		}
		local, err := engines.NewLocal(espeak, selector, engines.LocalConfig{
			Female: cfg.Local.Female,
			Male:   cfg.Local.Male,
		}, log.Default())
		return local, noop, err

	case tts.BackendRemote:
		rc := engines.RemoteConfig{
			Endpoint: cfg.Remote.Endpoint,
			Token:    cfg.Remote.Token,
			Timeout:  cfg.Remote.Timeout,
		}
		closer := noop
		if cfg.Remote.Cache.Enabled {
			m, err := newCacheManager(cfg.Remote.Cache)
			if err != nil {
				log.Warn("Audio cache disabled", "error", err)
			} else {
				rc.Cache = m
				closer = m.Close
			}
		}
		remote, err := engines.NewRemote(rc, log.Default())
		if err != nil {
			_ = closer()
			return nil, noop, err
		}
		return remote, closer, nil

	default:
		return nil, noop, fmt.Errorf("%w: %s", tts.ErrInvalidBackend, backend)
	}
}

// newSelector classifies the voices espeak-ng reports.
func newSelector(ctx context.Context, espeak *engines.Espeak, cfg tts.LocalConfig) (*voices.Selector, error) {
	selector, err := voices.NewSelector(espeak,
		voices.WithLanguage(cfg.Language),
		voices.WithClassifier(voices.NewHeuristicClassifier(cfg.FemaleTokens, cfg.MaleTokens)),
		voices.WithLogger(log.Default()),
	)
	if err != nil {
		return nil, err
	}
	if err := selector.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("unable to load voices: %w", err)
	}
	return selector, nil
}

func newCacheManager(cfg tts.CacheConfig) (*cache.Manager, error) {
	dir := cfg.Dir
	if dir == "" {
		base, err := gap.NewScope(gap.User, "speak").CacheDir()
		if err != nil {
			return nil, fmt.Errorf("unable to find cache directory: %w", err)
		}
		dir = filepath.Join(base, "audio")
	}

	c := cache.DefaultConfig()
	c.DiskPath = dir
	c.MemoryEntries = cfg.MemoryEntries
	c.DiskCapacity = cfg.MaxDiskMB * 1024 * 1024
	c.TTL = cfg.TTL
	return cache.NewManager(c, log.Default())
}

func playerConfig(cfg tts.PlayerConfig) audio.PlayerConfig {
	pc := audio.DefaultPlayerConfig()
	pc.SampleRate = cfg.SampleRate
	pc.Volume = cfg.Volume
	return pc
}

// speakAndWait plays text and returns when playback ends or the user
// interrupts it.
func speakAndWait(ctx context.Context, adapter *tts.Adapter, text string, gender tts.Gender) error {
	req, err := tts.NewRequest(text, gender, adapter.MaxChars())
	if err != nil {
		return err
	}

	ended := make(chan struct{}, 1)
	adapter.OnEnded(func() {
		select {
		case ended <- struct{}{}:
		default:
		}
	})

	if err := adapter.Speak(ctx, req); err != nil {
		return errors.New(tts.Describe(err))
	}

	select {
	case <-ended:
		return nil
	case <-ctx.Done():
		adapter.Cancel()
		return nil
	}
}

// writeAudio saves the audio for text to path, or writes it to stdout for
// "-".
func writeAudio(ctx context.Context, synth tts.Synthesizer, text string, gender tts.Gender, path string) error {
	fetcher, ok := synth.(tts.AudioFetcher)
	if !ok {
		return fmt.Errorf("%w: %s", tts.ErrNoFetcher, synth.Name())
	}
	req, err := tts.NewRequest(text, gender, speechConfig.MaxChars)
	if err != nil {
		return err
	}

	payload, err := fetcher.Fetch(ctx, req)
	if err != nil {
		return errors.New(tts.Describe(err))
	}

	if path == "-" {
		_, err := os.Stdout.Write(payload.Data)
		return err
	}
	if err := os.WriteFile(path, payload.Data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("unable to write audio: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Wrote %s (%s)\n", path, humanize.Bytes(uint64(len(payload.Data))))
	return nil
}

func runTUI(ctx context.Context, adapter *tts.Adapter, text string, gender tts.Gender) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	cfg.Text = text
	cfg.Gender = gender
	cfg.DownloadDir = speechConfig.DownloadDir
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = filepath.Join(cfg.HomeDir, "Downloads")
	}

	// Run Bubble Tea program
	if _, err := ui.NewProgram(ctx, cfg, adapter).Run(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("unable to run tui program: %w", err)
	}

	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&backend, "backend", "b", "", "speech backend (local or remote)")
	rootCmd.Flags().StringVarP(&voice, "voice", "v", "", "voice gender (female or male)")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "write the audio to a file instead of playing it (- for stdout)")
	rootCmd.Flags().BoolVarP(&tui, "tui", "t", false, "open the interactive form")

	// Config bindings
	_ = viper.BindPFlag("backend", rootCmd.Flags().Lookup("backend"))
	_ = viper.BindPFlag("voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("tui", rootCmd.Flags().Lookup("tui"))

	tts.SetDefaults()

	rootCmd.AddCommand(cacheCmd, configCmd, manCmd, serveCmd, voicesCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "speak")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "speak")}, dirs...)
	}

	if c := os.Getenv("SPEAK_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("speak")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("speak")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "speak.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}

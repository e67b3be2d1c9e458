package tts

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config contains all speech configuration options.
type Config struct {
	// Backend selects local synthesis or the remote endpoint
	Backend BackendType `yaml:"backend"`

	// MaxChars caps the text of a single request
	MaxChars int `yaml:"max_chars"`

	// Voice is the default voice gender ("female" or "male")
	Voice string `yaml:"voice"`

	// DownloadDir is where downloaded audio is written
	DownloadDir string `yaml:"download_dir"`

	Player PlayerConfig `yaml:"player"`
	Local  LocalConfig  `yaml:"local"`
	Remote RemoteConfig `yaml:"remote"`
}

// PlayerConfig contains audio output settings.
type PlayerConfig struct {
	SampleRate int     `yaml:"sample_rate"`
	Volume     float64 `yaml:"volume"`
}

// LocalConfig contains settings for the espeak-ng backend.
type LocalConfig struct {
	Binary   string        `yaml:"binary"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`

	// VoiceDirs are watched for voice installs and removals
	VoiceDirs []string `yaml:"voice_dirs"`

	Female Prosody `yaml:"female"`
	Male   Prosody `yaml:"male"`

	// Name tokens for the voice classifier; empty means the built-in lists
	FemaleTokens []string `yaml:"female_tokens"`
	MaleTokens   []string `yaml:"male_tokens"`
}

// RemoteConfig contains settings for the remote HTTP endpoint.
type RemoteConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Token    string        `yaml:"token"`
	Timeout  time.Duration `yaml:"timeout"`

	Cache CacheConfig `yaml:"cache"`
}

// CacheConfig contains settings for the remote audio cache.
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Dir           string        `yaml:"dir"`
	MemoryEntries int           `yaml:"memory_entries"`
	MaxDiskMB     int64         `yaml:"max_disk_mb"`
	TTL           time.Duration `yaml:"ttl"`
}

// DefaultConfig returns a Config with sensible defaults. No backend is
// selected: the user must choose one explicitly.
func DefaultConfig() Config {
	return Config{
		Backend:  BackendNone,
		MaxChars: DefaultMaxChars,
		Voice:    GenderFemale.String(),
		Player: PlayerConfig{
			SampleRate: 44100,
			Volume:     1.0,
		},
		Local: LocalConfig{
			Binary:   "espeak-ng",
			Language: "en",
			Timeout:  30 * time.Second,
			Female:   DefaultProsody(GenderFemale),
			Male:     DefaultProsody(GenderMale),
		},
		Remote: RemoteConfig{
			Timeout: 30 * time.Second,
			Cache: CacheConfig{
				Enabled:       true,
				MemoryEntries: 32,
				MaxDiskMB:     100,
				TTL:           7 * 24 * time.Hour,
			},
		},
	}
}

// Validate checks the configuration for values that can never work. Backend
// specific requirements are checked by ValidateBackend.
func (c Config) Validate() error {
	var errs []error

	if c.MaxChars <= 0 {
		errs = append(errs, fmt.Errorf("max_chars must be positive, got %d", c.MaxChars))
	}
	if _, err := ParseGender(c.Voice); err != nil {
		errs = append(errs, err)
	}
	if c.Player.SampleRate != 44100 && c.Player.SampleRate != 48000 {
		errs = append(errs, fmt.Errorf("player.sample_rate must be 44100 or 48000, got %d", c.Player.SampleRate))
	}
	if c.Player.Volume < 0 || c.Player.Volume > 1 {
		errs = append(errs, fmt.Errorf("player.volume must be between 0.0 and 1.0, got %.2f", c.Player.Volume))
	}
	if err := c.Local.Female.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("local.female: %w", err))
	}
	if err := c.Local.Male.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("local.male: %w", err))
	}
	if c.Local.Timeout <= 0 || c.Remote.Timeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if c.Remote.Endpoint != "" {
		if u, err := url.Parse(c.Remote.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("remote.endpoint is not an absolute URL: %q", c.Remote.Endpoint))
		}
	}
	if c.Remote.Cache.MemoryEntries < 0 || c.Remote.Cache.MaxDiskMB < 0 {
		errs = append(errs, errors.New("cache sizes must not be negative"))
	}

	return errors.Join(errs...)
}

// Gender returns the configured default voice gender.
func (c Config) Gender() Gender {
	g, err := ParseGender(c.Voice)
	if err != nil {
		return GenderFemale
	}
	return g
}

// LoadConfigFromViper loads the configuration from Viper on top of the
// defaults.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("backend") {
		cfg.Backend = BackendType(viper.GetString("backend"))
	}
	if viper.IsSet("max_chars") {
		cfg.MaxChars = viper.GetInt("max_chars")
	}
	if viper.IsSet("voice") {
		cfg.Voice = viper.GetString("voice")
	}
	if viper.IsSet("download_dir") {
		cfg.DownloadDir = expandPath(viper.GetString("download_dir"))
	}

	// Player settings
	if viper.IsSet("player.sample_rate") {
		cfg.Player.SampleRate = viper.GetInt("player.sample_rate")
	}
	if viper.IsSet("player.volume") {
		cfg.Player.Volume = viper.GetFloat64("player.volume")
	}

	cfg.Local = loadLocalConfig(cfg.Local)
	cfg.Remote = loadRemoteConfig(cfg.Remote)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadLocalConfig loads espeak-specific configuration from Viper.
func loadLocalConfig(cfg LocalConfig) LocalConfig {
	if viper.IsSet("local.binary") {
		cfg.Binary = viper.GetString("local.binary")
	}
	if viper.IsSet("local.language") {
		cfg.Language = viper.GetString("local.language")
	}
	if viper.IsSet("local.timeout") {
		cfg.Timeout = viper.GetDuration("local.timeout")
	}
	if viper.IsSet("local.voice_dirs") {
		dirs := viper.GetStringSlice("local.voice_dirs")
		cfg.VoiceDirs = make([]string, 0, len(dirs))
		for _, d := range dirs {
			cfg.VoiceDirs = append(cfg.VoiceDirs, expandPath(d))
		}
	}
	if viper.IsSet("local.female.pitch") {
		cfg.Female.Pitch = viper.GetFloat64("local.female.pitch")
	}
	if viper.IsSet("local.female.rate") {
		cfg.Female.Rate = viper.GetFloat64("local.female.rate")
	}
	if viper.IsSet("local.male.pitch") {
		cfg.Male.Pitch = viper.GetFloat64("local.male.pitch")
	}
	if viper.IsSet("local.male.rate") {
		cfg.Male.Rate = viper.GetFloat64("local.male.rate")
	}
	if viper.IsSet("local.female_tokens") {
		cfg.FemaleTokens = viper.GetStringSlice("local.female_tokens")
	}
	if viper.IsSet("local.male_tokens") {
		cfg.MaleTokens = viper.GetStringSlice("local.male_tokens")
	}

	return cfg
}

// loadRemoteConfig loads remote endpoint configuration from Viper.
func loadRemoteConfig(cfg RemoteConfig) RemoteConfig {
	if viper.IsSet("remote.endpoint") {
		cfg.Endpoint = viper.GetString("remote.endpoint")
	}
	if viper.IsSet("remote.token") {
		cfg.Token = viper.GetString("remote.token")
	}
	if viper.IsSet("remote.timeout") {
		cfg.Timeout = viper.GetDuration("remote.timeout")
	}

	// Cache settings
	if viper.IsSet("remote.cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("remote.cache.enabled")
	}
	if viper.IsSet("remote.cache.dir") {
		cfg.Cache.Dir = expandPath(viper.GetString("remote.cache.dir"))
	}
	if viper.IsSet("remote.cache.memory_entries") {
		cfg.Cache.MemoryEntries = viper.GetInt("remote.cache.memory_entries")
	}
	if viper.IsSet("remote.cache.max_disk_mb") {
		cfg.Cache.MaxDiskMB = viper.GetInt64("remote.cache.max_disk_mb")
	}
	if viper.IsSet("remote.cache.ttl") {
		cfg.Cache.TTL = viper.GetDuration("remote.cache.ttl")
	}

	return cfg
}

// SetDefaults sets default values in Viper for the speech configuration.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("max_chars", defaults.MaxChars)
	viper.SetDefault("voice", defaults.Voice)

	// Player defaults
	viper.SetDefault("player.sample_rate", defaults.Player.SampleRate)
	viper.SetDefault("player.volume", defaults.Player.Volume)

	// Local defaults
	viper.SetDefault("local.binary", defaults.Local.Binary)
	viper.SetDefault("local.language", defaults.Local.Language)
	viper.SetDefault("local.timeout", defaults.Local.Timeout.String())
	viper.SetDefault("local.female.pitch", defaults.Local.Female.Pitch)
	viper.SetDefault("local.female.rate", defaults.Local.Female.Rate)
	viper.SetDefault("local.male.pitch", defaults.Local.Male.Pitch)
	viper.SetDefault("local.male.rate", defaults.Local.Male.Rate)

	// Remote defaults
	viper.SetDefault("remote.timeout", defaults.Remote.Timeout.String())
	viper.SetDefault("remote.cache.enabled", defaults.Remote.Cache.Enabled)
	viper.SetDefault("remote.cache.memory_entries", defaults.Remote.Cache.MemoryEntries)
	viper.SetDefault("remote.cache.max_disk_mb", defaults.Remote.Cache.MaxDiskMB)
	viper.SetDefault("remote.cache.ttl", defaults.Remote.Cache.TTL.String())
}

func expandPath(p string) string {
	if p == "" {
		return p
	}
	expanded, err := homedir.Expand(p)
	if err != nil {
		return p
	}
	return expanded
}

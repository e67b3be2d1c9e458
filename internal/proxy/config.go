package proxy

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mamtil/speak/internal/tts"
)

// Config contains the token proxy settings. They come from the environment,
// optionally seeded from .env files, so the upstream token never has to
// live in the client configuration.
type Config struct {
	Addr string `env:"SPEAK_PROXY_ADDR" envDefault:":8080"`

	// Upstream speech service and the token the proxy holds for it
	UpstreamURL   string        `env:"SPEAK_UPSTREAM_URL"`
	UpstreamToken string        `env:"SPEAK_UPSTREAM_TOKEN"`
	Timeout       time.Duration `env:"SPEAK_UPSTREAM_TIMEOUT" envDefault:"30s"`

	// ClientToken, when set, must be presented by clients as a bearer token
	ClientToken string `env:"SPEAK_PROXY_TOKEN"`

	// Requests per second across all clients; zero or less disables limiting
	RateLimit float64 `env:"SPEAK_PROXY_RATE"  envDefault:"2"`
	Burst     int     `env:"SPEAK_PROXY_BURST" envDefault:"5"`

	MaxChars int `env:"SPEAK_MAX_CHARS" envDefault:"500"`
}

// LoadConfig reads the proxy configuration from the environment after loading
// the given .env files (".env" when none are given). Missing files are
// ignored.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables that are already set.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("unable to load %s: %w", f, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("error parsing proxy config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration can serve requests.
func (c Config) Validate() error {
	var errs []error

	if c.UpstreamURL == "" {
		errs = append(errs, errors.New("upstream URL is required (SPEAK_UPSTREAM_URL or remote.endpoint)"))
	} else if u, err := url.Parse(c.UpstreamURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("upstream URL is not an absolute URL: %q", c.UpstreamURL))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("upstream timeout must be positive, got %s", c.Timeout))
	}
	if c.RateLimit > 0 && c.Burst < 1 {
		errs = append(errs, fmt.Errorf("burst must be at least 1 when rate limiting, got %d", c.Burst))
	}
	if c.MaxChars <= 0 {
		errs = append(errs, fmt.Errorf("max chars must be positive, got %d", c.MaxChars))
	}

	return errors.Join(errs...)
}

// maxChars returns the request cap, defaulting like the client does.
func (c Config) maxChars() int {
	if c.MaxChars <= 0 {
		return tts.DefaultMaxChars
	}
	return c.MaxChars
}

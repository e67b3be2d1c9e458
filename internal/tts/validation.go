package tts

import (
	"fmt"
	"net/url"
	"os/exec"
	"strings"
)

// ValidationResult contains the result of backend validation
type ValidationResult struct {
	// Backend is the validated backend type
	Backend BackendType

	// Available indicates if the backend is available and configured
	Available bool

	// Error contains any validation error
	Error error

	// Guidance provides setup instructions if validation failed
	Guidance string

	// Details contains additional validation information
	Details map[string]string
}

// ValidateBackendSelection validates that a backend has been explicitly
// chosen. The CLI argument wins over the config file; there is no default.
func ValidateBackendSelection(cliArg string, config Config) (BackendType, error) {
	// 1. CLI argument takes precedence
	backend := strings.ToLower(strings.TrimSpace(cliArg))

	// 2. Use config if no CLI arg
	if backend == "" {
		backend = strings.ToLower(string(config.Backend))
	}

	// 3. Require explicit selection
	if backend == "" {
		return BackendNone, fmt.Errorf("%w\n\nPlease specify a backend:\n  speak --backend local \"hello\"    # espeak-ng on this machine\n  speak --backend remote \"hello\"   # HTTP speech service\n\nOr set a default in the config file (speak config):\n  backend: local", ErrNoBackendConfigured)
	}

	// 4. Validate backend type (normalize aliases)
	switch backend {
	case "local", "espeak", "espeak-ng":
		return BackendLocal, nil
	case "remote", "http":
		return BackendRemote, nil
	default:
		return BackendNone, fmt.Errorf("%w: %s\n\nSupported backends:\n  - local (espeak-ng)\n  - remote (HTTP speech service)", ErrInvalidBackend, backend)
	}
}

// ValidateBackend checks that the selected backend can run with config.
func ValidateBackend(backend BackendType, config Config) *ValidationResult {
	result := &ValidationResult{
		Backend: backend,
		Details: make(map[string]string),
	}

	switch backend {
	case BackendLocal:
		return validateLocalBackend(config.Local, result)
	case BackendRemote:
		return validateRemoteBackend(config.Remote, result)
	case BackendNone:
		result.Error = ErrNoBackendConfigured
		result.Guidance = "Please specify a backend with --backend or in the config file"
	default:
		result.Error = fmt.Errorf("%w: %s", ErrInvalidBackend, backend)
		result.Guidance = "Supported backends: local, remote"
	}

	return result
}

// validateLocalBackend checks the espeak-ng binary is installed.
func validateLocalBackend(config LocalConfig, result *ValidationResult) *ValidationResult {
	result.Details["backend"] = "espeak-ng (offline)"

	path, err := exec.LookPath(config.Binary)
	if err != nil {
		result.Error = fmt.Errorf("%s not found in PATH: %w", config.Binary, err)
		result.Guidance = buildEspeakInstallGuidance()
		return result
	}
	result.Details["binary_path"] = path
	result.Details["language"] = config.Language

	result.Available = true
	return result
}

// validateRemoteBackend checks the endpoint and token are configured.
func validateRemoteBackend(config RemoteConfig, result *ValidationResult) *ValidationResult {
	result.Details["backend"] = "remote HTTP service"

	if config.Endpoint == "" {
		result.Error = fmt.Errorf("remote endpoint not configured")
		result.Guidance = buildRemoteGuidance()
		return result
	}
	u, err := url.Parse(config.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		result.Error = fmt.Errorf("remote endpoint is not an absolute URL: %q", config.Endpoint)
		result.Guidance = buildRemoteGuidance()
		return result
	}
	result.Details["endpoint"] = u.Redacted()

	if config.Token == "" {
		// A proxy started with `speak serve` holds the token itself.
		result.Details["token"] = "none (expecting a token proxy)"
	} else {
		result.Details["token"] = "configured"
	}

	result.Available = true
	return result
}

// buildEspeakInstallGuidance provides instructions for installing espeak-ng
func buildEspeakInstallGuidance() string {
	return `espeak-ng is not installed. To install:

   # Ubuntu/Debian
   sudo apt install espeak-ng

   # Fedora
   sudo dnf install espeak-ng

   # Arch Linux
   sudo pacman -S espeak-ng

   # macOS (Homebrew)
   brew install espeak-ng

Then check the voices it offers with:
   speak voices`
}

// buildRemoteGuidance provides instructions for configuring the remote backend
func buildRemoteGuidance() string {
	return `The remote backend needs an endpoint. Set it in the config file:

  backend: remote
  remote:
    endpoint: https://tts.example.com/api/tts
    token: <bearer token>

Or point the client at a token proxy started with:
  speak serve

  remote:
    endpoint: http://localhost:8080/api/tts`
}

// QuickValidation performs a fast availability check for UI startup.
func QuickValidation(backend BackendType, config Config) error {
	result := ValidateBackend(backend, config)
	return result.Error
}

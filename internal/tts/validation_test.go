package tts

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateBackendSelection(t *testing.T) {
	tests := []struct {
		name      string
		cliArg    string
		config    Config
		want      BackendType
		wantError error
	}{
		{
			name:   "CLI arg takes precedence - local",
			cliArg: "local",
			config: Config{Backend: BackendRemote},
			want:   BackendLocal,
		},
		{
			name:   "CLI arg takes precedence - remote",
			cliArg: "remote",
			config: Config{Backend: BackendLocal},
			want:   BackendRemote,
		},
		{
			name:   "espeak alias",
			cliArg: "espeak-ng",
			want:   BackendLocal,
		},
		{
			name:   "case insensitive",
			cliArg: "REMOTE",
			want:   BackendRemote,
		},
		{
			name:   "Use config when no CLI arg",
			config: Config{Backend: BackendRemote},
			want:   BackendRemote,
		},
		{
			name:      "No backend configured - requires explicit selection",
			config:    Config{Backend: BackendNone},
			want:      BackendNone,
			wantError: ErrNoBackendConfigured,
		},
		{
			name:      "Empty string backend",
			cliArg:    "  ",
			want:      BackendNone,
			wantError: ErrNoBackendConfigured,
		},
		{
			name:      "Invalid backend type",
			cliArg:    "festival",
			want:      BackendNone,
			wantError: ErrInvalidBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateBackendSelection(tt.cliArg, tt.config)
			if got != tt.want {
				t.Errorf("ValidateBackendSelection() = %q, want %q", got, tt.want)
			}
			if tt.wantError == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantError != nil && !errors.Is(err, tt.wantError) {
				t.Errorf("error = %v, want %v", err, tt.wantError)
			}
		})
	}
}

func TestValidateRemoteBackend(t *testing.T) {
	tests := []struct {
		name      string
		endpoint  string
		token     string
		available bool
		tokenNote string
	}{
		{"missing endpoint", "", "", false, ""},
		{"relative endpoint", "/api/tts", "", false, ""},
		{"with token", "https://tts.example.com/api/tts", "secret", true, "configured"},
		{"behind proxy", "http://localhost:8080/api/tts", "", true, "none (expecting a token proxy)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Remote.Endpoint = tt.endpoint
			cfg.Remote.Token = tt.token

			result := ValidateBackend(BackendRemote, cfg)
			if result.Available != tt.available {
				t.Fatalf("Available = %v, want %v (err: %v)", result.Available, tt.available, result.Error)
			}
			if !tt.available && !strings.Contains(result.Guidance, "endpoint") {
				t.Errorf("guidance does not mention the endpoint: %q", result.Guidance)
			}
			if tt.available && result.Details["token"] != tt.tokenNote {
				t.Errorf("token detail = %q, want %q", result.Details["token"], tt.tokenNote)
			}
		})
	}
}

func TestValidateLocalBackendMissingBinary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Local.Binary = "speak-test-no-such-binary"

	result := ValidateBackend(BackendLocal, cfg)
	if result.Available || result.Error == nil {
		t.Fatal("expected missing binary to be reported")
	}
	if !strings.Contains(result.Guidance, "espeak-ng") {
		t.Errorf("guidance should explain how to install espeak-ng: %q", result.Guidance)
	}
}

func TestValidateBackendNone(t *testing.T) {
	result := ValidateBackend(BackendNone, DefaultConfig())
	if !errors.Is(result.Error, ErrNoBackendConfigured) {
		t.Errorf("error = %v, want ErrNoBackendConfigured", result.Error)
	}
	if err := QuickValidation(BackendType("festival"), DefaultConfig()); !errors.Is(err, ErrInvalidBackend) {
		t.Errorf("QuickValidation() error = %v, want ErrInvalidBackend", err)
	}
}

package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mamtil/speak/internal/audio"
	"github.com/mamtil/speak/internal/tts"
	"github.com/mamtil/speak/internal/tts/engines"
)

type fakeUpstream struct {
	payload *tts.Audio
	err     error
	calls   []tts.Request
}

func (f *fakeUpstream) Fetch(_ context.Context, req tts.Request) (*tts.Audio, error) {
	f.calls = append(f.calls, req)
	return f.payload, f.err
}

func testConfig() Config {
	return Config{
		Addr:        ":0",
		UpstreamURL: "http://upstream.invalid/tts",
		Timeout:     5 * time.Second,
		MaxChars:    20,
	}
}

func newTestServer(t *testing.T, cfg Config, up *fakeUpstream) *Server {
	t.Helper()
	s, err := NewServer(cfg, up, nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return s
}

func post(t *testing.T, s *Server, body string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/tts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func message(t *testing.T, data []byte) string {
	t.Helper()
	var m struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("response %q is not a message: %v", data, err)
	}
	return m.Message
}

func TestProxySuccess(t *testing.T) {
	up := &fakeUpstream{payload: &tts.Audio{Data: []byte("ID3audio"), MIME: "audio/mpeg"}}
	s := newTestServer(t, testConfig(), up)

	resp, data := post(t, s, `{"text":"hello","speaker_id":"1"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, data)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	if string(data) != "ID3audio" {
		t.Errorf("body = %q", data)
	}
	if _, err := uuid.Parse(resp.Header.Get(RequestIDHeader)); err != nil {
		t.Errorf("request id %q is not a uuid", resp.Header.Get(RequestIDHeader))
	}
	if len(up.calls) != 1 || up.calls[0].Gender != tts.GenderMale {
		t.Errorf("upstream calls = %+v", up.calls)
	}
}

func TestProxyRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"text":`},
		{"empty text", `{"text":"   ","speaker_id":"2"}`},
		{"too long", `{"text":"` + strings.Repeat("a", 21) + `","speaker_id":"2"}`},
		{"unknown speaker", `{"text":"hi","speaker_id":"3"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &fakeUpstream{payload: &tts.Audio{Data: []byte("x"), MIME: "audio/wav"}}
			s := newTestServer(t, testConfig(), up)

			resp, data := post(t, s, tt.body, nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if message(t, data) == "" {
				t.Error("missing message")
			}
			if len(up.calls) != 0 {
				t.Error("invalid request reached upstream")
			}
		})
	}
}

func TestProxyUpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"server error", &tts.ServerError{Status: 500, Message: "overloaded"}, 500, "overloaded"},
		{"upstream 403", &tts.ServerError{Status: 403, Message: "bad token"}, 403, "bad token"},
		{"network", &tts.NetworkError{Err: errors.New("refused")}, 502, "the speech service is unreachable"},
		{"decode", &tts.DecodeError{Err: audio.ErrEmptyAudio}, 422, "the speech service returned unplayable audio"},
		{"timeout", context.DeadlineExceeded, 504, "the speech service timed out"},
		{"wrapped timeout", &tts.NetworkError{Err: context.DeadlineExceeded}, 504, "the speech service timed out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, testConfig(), &fakeUpstream{err: tt.err})

			resp, data := post(t, s, `{"text":"hello","speaker_id":"2"}`, nil)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if got := message(t, data); got != tt.message {
				t.Errorf("message = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestProxyClientToken(t *testing.T) {
	cfg := testConfig()
	cfg.ClientToken = "letmein"
	up := &fakeUpstream{payload: &tts.Audio{Data: []byte("x"), MIME: "audio/wav"}}
	s := newTestServer(t, cfg, up)
	body := `{"text":"hello","speaker_id":"2"}`

	tests := []struct {
		name   string
		auth   string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "Bearer nope", http.StatusUnauthorized},
		{"not bearer", "Basic letmein", http.StatusUnauthorized},
		{"valid", "Bearer letmein", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.auth != "" {
				headers["Authorization"] = tt.auth
			}
			resp, _ := post(t, s, body, headers)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestProxyRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 0.001
	cfg.Burst = 2
	s := newTestServer(t, cfg, &fakeUpstream{payload: &tts.Audio{Data: []byte("x"), MIME: "audio/wav"}})
	body := `{"text":"hello","speaker_id":"1"}`

	for i := range 2 {
		if resp, _ := post(t, s, body, nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, resp.StatusCode)
		}
	}
	resp, data := post(t, s, body, nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
	if message(t, data) == "" {
		t.Error("missing message")
	}
}

func TestProxyHealthz(t *testing.T) {
	s := newTestServer(t, testConfig(), &fakeUpstream{})

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

// The proxy adds the upstream token that the client never had.
func TestProxyForwardsToken(t *testing.T) {
	var gotAuth, gotSpeaker string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var body ttsRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotSpeaker = body.SpeakerID
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(audio.EncodeWAV(&audio.Clip{PCM: make([]byte, 64), SampleRate: 22050, Channels: 1}))
	}))
	defer upstream.Close()

	remote, err := engines.NewRemote(engines.RemoteConfig{Endpoint: upstream.URL, Token: "server-secret"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewServer(testConfig(), remote, nil)
	if err != nil {
		t.Fatal(err)
	}

	resp, data := post(t, s, `{"text":"hello","speaker_id":"2"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, data)
	}
	if gotAuth != "Bearer server-secret" {
		t.Errorf("upstream Authorization = %q", gotAuth)
	}
	if gotSpeaker != "2" {
		t.Errorf("upstream speaker_id = %q", gotSpeaker)
	}
	if !strings.HasPrefix(string(data), "RIFF") {
		t.Error("audio not passed through")
	}
}

func TestProxyUpstreamTimeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer upstream.Close()

	remote, err := engines.NewRemote(engines.RemoteConfig{Endpoint: upstream.URL, Timeout: 100 * time.Millisecond}, nil)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewServer(testConfig(), remote, nil)
	if err != nil {
		t.Fatal(err)
	}

	resp, data := post(t, s, `{"text":"hello","speaker_id":"2"}`, nil)
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", resp.StatusCode)
	}
	if got := message(t, data); got != "the speech service timed out" {
		t.Errorf("message = %q", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing upstream", func(c *Config) { c.UpstreamURL = "" }, true},
		{"relative upstream", func(c *Config) { c.UpstreamURL = "/tts" }, true},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, true},
		{"zero burst", func(c *Config) { c.RateLimit = 1; c.Burst = 0 }, true},
		{"unlimited", func(c *Config) { c.RateLimit = 0; c.Burst = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	// godotenv writes straight into the process environment.
	for _, key := range []string{"SPEAK_UPSTREAM_URL", "SPEAK_PROXY_BURST", "SPEAK_PROXY_ADDR", "SPEAK_UPSTREAM_TIMEOUT", "SPEAK_MAX_CHARS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("SPEAK_UPSTREAM_TOKEN", "from-env")

	dir := t.TempDir()
	envFile := filepath.Join(dir, "proxy.env")
	contents := "SPEAK_UPSTREAM_URL=https://tts.example.com/api\nSPEAK_PROXY_BURST=9\nSPEAK_UPSTREAM_TOKEN=from-file\n"
	if err := os.WriteFile(envFile, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(envFile, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.UpstreamURL != "https://tts.example.com/api" {
		t.Errorf("UpstreamURL = %q", cfg.UpstreamURL)
	}
	if cfg.UpstreamToken != "from-env" {
		t.Errorf("UpstreamToken = %q, environment should win over the file", cfg.UpstreamToken)
	}
	if cfg.Burst != 9 {
		t.Errorf("Burst = %d, want 9", cfg.Burst)
	}
	if cfg.Addr != ":8080" || cfg.Timeout != 30*time.Second || cfg.MaxChars != 500 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mamtil/speak/internal/audio"
	"github.com/mamtil/speak/internal/cache"
	"github.com/mamtil/speak/internal/tts"
)

// RemoteName is the name reported by the remote backend.
const RemoteName = "remote"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 32 << 20

// AudioCache stores synthesized audio by request key. *cache.Manager
// implements it.
type AudioCache interface {
	Get(key string) (cache.Entry, bool)
	Put(key string, e cache.Entry) error
	Delete(key string)
}

// RemoteConfig configures the remote HTTP backend.
type RemoteConfig struct {
	// Endpoint is the absolute URL requests are POSTed to
	Endpoint string

	// Token is sent as a bearer token when set
	Token string

	// Timeout bounds a single request when ctx carries no deadline
	Timeout time.Duration

	// Client overrides the HTTP client (tests)
	Client *http.Client

	// Cache, when set, serves repeated requests without a round trip
	Cache AudioCache
}

// Remote synthesizes speech with a remote HTTP service.
type Remote struct {
	endpoint string
	token    string
	timeout  time.Duration
	client   *http.Client
	cache    AudioCache
	logger   *log.Logger
}

// synthesisRequest is the JSON body sent to the service.
type synthesisRequest struct {
	Text      string `json:"text"`
	SpeakerID string `json:"speaker_id"`
}

// errorResponse is the JSON body of a failed request.
type errorResponse struct {
	Message string `json:"message"`
}

// NewRemote creates the remote backend.
func NewRemote(config RemoteConfig, logger *log.Logger) (*Remote, error) {
	if config.Endpoint == "" {
		return nil, errors.New("remote endpoint is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Client == nil {
		config.Client = &http.Client{}
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Remote{
		endpoint: config.Endpoint,
		token:    config.Token,
		timeout:  config.Timeout,
		client:   config.Client,
		cache:    config.Cache,
		logger:   logger.WithPrefix("remote"),
	}, nil
}

// Name implements tts.Synthesizer.
func (r *Remote) Name() string {
	return RemoteName
}

// Synthesize implements tts.Synthesizer.
func (r *Remote) Synthesize(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	return r.do(ctx, req)
}

// Fetch implements tts.AudioFetcher. The service's payload is returned as is.
func (r *Remote) Fetch(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	return r.do(ctx, req)
}

func (r *Remote) do(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	speakerID := req.Gender.SpeakerID()

	var key string
	if r.cache != nil {
		key = cache.Key(req.Text, speakerID)
		if e, ok := r.cache.Get(key); ok {
			if len(e.Data) > 0 && audio.IsAudioType(e.MIME) {
				r.logger.Debug("cache hit", "key", key, "bytes", len(e.Data))
				return &tts.Audio{Data: e.Data, MIME: e.MIME}, nil
			}
			r.logger.Debug("dropping unusable cache entry", "key", key, "type", e.MIME)
			r.cache.Delete(key)
		}
	}

	payload, err := r.post(ctx, synthesisRequest{Text: req.Text, SpeakerID: speakerID})
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Put(key, cache.Entry{Data: payload.Data, MIME: payload.MIME}); err != nil {
			r.logger.Warn("failed to cache audio", "err", err)
		}
	}
	return payload, nil
}

// post sends one request and classifies the outcome.
func (r *Remote) post(ctx context.Context, body synthesisRequest) (*tts.Audio, error) {
	reqCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, r.endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.token)
	}

	start := time.Now()
	resp, err := r.client.Do(httpReq)
	if err != nil {
		// A canceled caller is not a network failure.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &tts.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &tts.NetworkError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &tts.ServerError{Status: resp.StatusCode, Message: serverMessage(resp.StatusCode, data)}
	}

	contentType := resp.Header.Get("Content-Type")
	if !audio.IsAudioType(contentType) {
		return nil, &tts.DecodeError{Err: fmt.Errorf("%w: %q", audio.ErrUnsupportedFormat, contentType)}
	}
	if len(data) == 0 {
		return nil, &tts.DecodeError{Err: audio.ErrEmptyAudio}
	}

	r.logger.Debug("synthesized", "status", resp.StatusCode, "type", contentType, "bytes", len(data), "took", time.Since(start))
	return &tts.Audio{Data: data, MIME: contentType}, nil
}

// serverMessage extracts the service's {"message"} or falls back to a
// generic one for status.
func serverMessage(status int, body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil {
		if msg := strings.TrimSpace(e.Message); msg != "" {
			return msg
		}
	}
	return tts.DefaultServerMessage(status)
}


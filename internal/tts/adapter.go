package tts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mamtil/speak/internal/audio"
)

// Adapter wraps a speech backend and an audio player behind a uniform
// speak/pause/resume/cancel contract. It is the single owner of the playback
// State; every transition happens under its lock.
//
// Each Speak takes a new request token. Network completions and player
// end-of-stream notifications are applied only while their token is current,
// so a stale response can never resume playback that was cancelled or
// replaced.
type Adapter struct {
	// Components
	backend Synthesizer
	player  AudioPlayer
	logger  *log.Logger

	// Configuration
	maxChars int

	// State management
	mu     sync.Mutex
	state  State
	token  uint64
	cancel context.CancelFunc
	loaded bool
	closed bool
	ended  []func()

	stats AdapterStats
}

// AdapterStats tracks adapter activity.
type AdapterStats struct {
	Requests     int64
	Completed    int64
	Failed       int64
	Superseded   int64
	LastActivity time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used for player failures and transitions.
func WithLogger(logger *log.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMaxChars sets the maximum request length in characters.
func WithMaxChars(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxChars = n
		}
	}
}

// NewAdapter creates an idle adapter. It should be constructed once at
// application start and closed at teardown.
func NewAdapter(backend Synthesizer, player AudioPlayer, opts ...Option) (*Adapter, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}
	if player == nil {
		return nil, fmt.Errorf("player cannot be nil")
	}

	a := &Adapter{
		backend:  backend,
		player:   player,
		logger:   log.Default(),
		maxChars: DefaultMaxChars,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.WithPrefix("adapter")

	return a, nil
}

// MaxChars returns the maximum request length in characters.
func (a *Adapter) MaxChars() int {
	return a.maxChars
}

// Backend returns the name of the wrapped backend.
func (a *Adapter) Backend() string {
	return a.backend.Name()
}

// Speak validates req, supersedes any playback or request in flight, and
// plays the synthesized audio. It blocks until playback has started (not
// until it ends). It is Begin followed by Play.
//
// An invalid request returns a ValidationError without touching state. A call
// that is superseded by a later Speak or Cancel returns ErrSuperseded and
// leaves state to the newer owner. Backend and decode failures return the
// state to Idle.
func (a *Adapter) Speak(ctx context.Context, req Request) error {
	tok, err := a.Begin(req)
	if err != nil {
		return err
	}
	return a.Play(ctx, tok, req)
}

// Begin validates req, supersedes whatever is in flight, moves to Speaking and
// returns the token for the new request. It does not block, so a UI can
// mirror the transition before the slow part runs; Play then does the work
// under the token. A Cancel or Begin in between makes that Play a no-op.
func (a *Adapter) Begin(req Request) (uint64, error) {
	if err := req.Validate(a.maxChars); err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0, ErrClosed
	}
	a.stopLocked()
	a.token++
	a.setState(StateSpeaking)
	a.stats.Requests++
	a.stats.LastActivity = time.Now()

	a.logger.Debug("speak", "token", a.token, "gender", req.Gender, "chars", CharCount(req.Text), "backend", a.backend.Name())
	return a.token, nil
}

// Play synthesizes req and starts playback for the request Begin accepted as
// tok. It returns ErrSuperseded, without touching the player, once tok is no
// longer current.
func (a *Adapter) Play(ctx context.Context, tok uint64, req Request) error {
	a.mu.Lock()
	if tok != a.token {
		a.stats.Superseded++
		a.mu.Unlock()
		a.logger.Debug("request superseded before synthesis", "token", tok)
		return ErrSuperseded
	}
	reqCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	clip, err := a.synthesize(reqCtx, req)

	a.mu.Lock()
	defer a.mu.Unlock()
	cancel()

	if tok != a.token {
		a.stats.Superseded++
		a.logger.Debug("discarding superseded response", "token", tok, "current", a.token)
		return ErrSuperseded
	}
	a.cancel = nil

	if err != nil {
		a.stats.Failed++
		a.setState(StateIdle)
		return err
	}

	if err := a.player.Play(clip, func() { a.finished(tok) }); err != nil {
		a.stats.Failed++
		a.setState(StateIdle)
		return fmt.Errorf("failed to start playback: %w", err)
	}
	a.loaded = true

	// The user paused while the request was in flight.
	if a.state == StatePaused {
		if err := a.player.Pause(); err != nil {
			a.logger.Warn("failed to pause new playback", "err", err)
		}
	}

	return nil
}

// synthesize asks the backend for audio and decodes it for the player.
func (a *Adapter) synthesize(ctx context.Context, req Request) (*audio.Clip, error) {
	payload, err := a.backend.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, &DecodeError{Err: audio.ErrEmptyAudio}
	}

	clip, err := audio.Decode(payload.Data, payload.MIME)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return clip, nil
}

// finished is the player's natural completion callback for token tok.
func (a *Adapter) finished(tok uint64) {
	a.mu.Lock()
	if tok != a.token || a.state == StateIdle {
		a.mu.Unlock()
		return
	}
	a.loaded = false
	a.setState(StateIdle)
	a.stats.Completed++
	a.stats.LastActivity = time.Now()
	callbacks := make([]func(), len(a.ended))
	copy(callbacks, a.ended)
	a.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// Pause pauses playback. It does nothing unless the adapter is Speaking.
func (a *Adapter) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateSpeaking {
		return
	}
	a.setState(StatePaused)
	if a.loaded {
		if err := a.player.Pause(); err != nil {
			a.logger.Warn("player pause failed", "err", err)
		}
	}
}

// Resume resumes paused playback. It does nothing unless the adapter is
// Paused.
func (a *Adapter) Resume() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StatePaused {
		return
	}
	a.setState(StateSpeaking)
	if a.loaded {
		if err := a.player.Resume(); err != nil {
			a.logger.Warn("player resume failed", "err", err)
		}
	}
}

// Cancel stops playback and any request in flight and returns to Idle. It is
// safe to call in any state, any number of times.
func (a *Adapter) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.token++
	a.stopLocked()
	a.setState(StateIdle)
}

// stopLocked cancels the in-flight request and releases the player's audio.
// Callers hold a.mu.
func (a *Adapter) stopLocked() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if err := a.player.Stop(); err != nil {
		a.logger.Warn("player stop failed", "err", err)
	}
	a.loaded = false
}

// setState records a transition. Callers hold a.mu.
func (a *Adapter) setState(s State) {
	if a.state != s {
		a.logger.Debug("state", "from", a.state, "to", s)
	}
	a.state = s
}

// State returns the current playback state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// IsSpeaking reports whether a request is being synthesized or played.
func (a *Adapter) IsSpeaking() bool {
	return a.State() == StateSpeaking
}

// IsPaused reports whether playback is paused.
func (a *Adapter) IsPaused() bool {
	return a.State() == StatePaused
}

// OnEnded registers fn to be called when playback reaches its natural end.
// Callbacks run on the player's goroutine after the state has become Idle.
func (a *Adapter) OnEnded(fn func()) {
	if fn == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ended = append(a.ended, fn)
}

// FetchAudio returns the encoded audio for req without playing it. It does not
// change the playback state.
func (a *Adapter) FetchAudio(ctx context.Context, req Request) (*Audio, error) {
	if err := req.Validate(a.maxChars); err != nil {
		return nil, err
	}

	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	fetcher, ok := a.backend.(AudioFetcher)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFetcher, a.backend.Name())
	}

	payload, err := fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if payload == nil || len(payload.Data) == 0 {
		return nil, &DecodeError{Err: audio.ErrEmptyAudio}
	}
	return payload, nil
}

// Stats returns a snapshot of the adapter's activity counters.
func (a *Adapter) Stats() AdapterStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Close cancels everything, drops OnEnded subscribers and closes the player.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	a.token++
	a.stopLocked()
	a.setState(StateIdle)
	a.ended = nil

	if err := a.player.Close(); err != nil && !errors.Is(err, audio.ErrPlayerClosed) {
		return fmt.Errorf("failed to close player: %w", err)
	}
	return nil
}

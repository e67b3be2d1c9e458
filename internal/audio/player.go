package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// PlayerState represents the current state of a player.
type PlayerState int32

const (
	StateStopped PlayerState = iota
	StatePlaying
	StatePaused
	StateClosed
)

// String returns the string representation of the player state.
func (s PlayerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrPlayerClosed is returned when using a closed player.
var ErrPlayerClosed = errors.New("player is closed")

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	SampleRate int           // 44100 or 48000 Hz only
	Channels   int           // 1 = mono, 2 = stereo
	BufferSize time.Duration // Device buffer, 0 for the oto default
	Volume     float64       // 0.0 to 1.0
	Poll       time.Duration // End-of-stream polling interval
}

// DefaultPlayerConfig returns the default player configuration.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: 44100,
		Channels:   1,
		BufferSize: 100 * time.Millisecond,
		Volume:     1.0,
		Poll:       25 * time.Millisecond,
	}
}

// Validate validates the player configuration.
func (c PlayerConfig) Validate() error {
	// oto only supports these sample rates reliably
	if c.SampleRate != 44100 && c.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", c.Channels)
	}
	if c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %.2f", c.Volume)
	}
	if c.BufferSize < 0 || c.Poll < 0 {
		return errors.New("buffer size and poll interval must not be negative")
	}
	return nil
}

// Player plays clips on the default output device with oto. oto allows one
// context per process, so a Player should be created once and shared.
type Player struct {
	context *oto.Context
	config  PlayerConfig
	logger  *log.Logger

	mu     sync.Mutex
	state  PlayerState
	player *oto.Player
	// keep the PCM referenced while oto reads from it
	clip *Clip
	// bumped on every Play/Stop so stale watchers exit
	gen uint64
}

// NewPlayer opens the audio device.
func NewPlayer(config PlayerConfig, logger *log.Logger) (*Player, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.Poll == 0 {
		config.Poll = DefaultPlayerConfig().Poll
	}
	if logger == nil {
		logger = log.Default()
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: config.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   config.BufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	return &Player{
		context: ctx,
		config:  config,
		logger:  logger.WithPrefix("player"),
		state:   StateStopped,
	}, nil
}

// Play converts clip to the device format and starts playing it, replacing
// anything already loaded. onFinish runs on a separate goroutine once the clip
// has drained; it is skipped if Play or Stop is called first.
func (p *Player) Play(clip *Clip, onFinish func()) error {
	converted, err := Convert(clip, p.config.SampleRate, p.config.Channels)
	if err != nil {
		return fmt.Errorf("failed to convert clip: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateClosed {
		return ErrPlayerClosed
	}
	p.releaseLocked()

	op := p.context.NewPlayer(bytes.NewReader(converted.PCM))
	op.SetVolume(p.config.Volume)

	p.gen++
	p.player = op
	p.clip = converted
	p.state = StatePlaying
	op.Play()

	p.logger.Debug("playing clip", "duration", converted.Duration(), "bytes", len(converted.PCM))
	go p.watch(p.gen, op, onFinish)

	return nil
}

// watch waits for the oto player to drain and reports natural completion.
func (p *Player) watch(gen uint64, op *oto.Player, onFinish func()) {
	ticker := time.NewTicker(p.config.Poll)
	defer ticker.Stop()

	for range ticker.C {
		p.mu.Lock()
		if p.gen != gen || p.state == StateClosed || p.state == StateStopped {
			p.mu.Unlock()
			return
		}
		if p.state == StatePaused || op.IsPlaying() {
			p.mu.Unlock()
			continue
		}

		if err := op.Err(); err != nil {
			p.logger.Warn("playback ended with error", "err", err)
		}
		p.releaseLocked()
		p.state = StateStopped
		p.mu.Unlock()

		if onFinish != nil {
			onFinish()
		}
		return
	}
}

// Pause pauses the current playback.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying {
		return fmt.Errorf("cannot pause: player is %s", p.state)
	}
	p.player.Pause()
	p.state = StatePaused
	return nil
}

// Resume resumes paused playback.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePaused {
		return fmt.Errorf("cannot resume: player is %s", p.state)
	}
	p.player.Play()
	p.state = StatePlaying
	return nil
}

// Stop stops playback and releases the loaded clip.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateClosed {
		return nil
	}
	p.releaseLocked()
	p.state = StateStopped
	return nil
}

// releaseLocked closes the oto player. Callers hold p.mu.
func (p *Player) releaseLocked() {
	p.gen++
	if p.player != nil {
		p.player.Pause()
		if err := p.player.Close(); err != nil {
			p.logger.Debug("closing oto player", "err", err)
		}
		p.player = nil
	}
	p.clip = nil
}

// IsPlaying returns whether audio is currently playing.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == StatePlaying
}

// State returns the current player state.
func (p *Player) State() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Close releases the player. oto contexts cannot be closed in v3; the device
// is freed at process exit.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.releaseLocked()
	p.state = StateClosed
	return nil
}

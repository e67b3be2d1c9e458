package tts

import (
	"context"

	"github.com/mamtil/speak/internal/audio"
)

// Synthesizer is a speech backend: it turns a request into an encoded audio
// payload. Implementations include the local espeak-ng engine and the remote
// HTTP endpoint.
type Synthesizer interface {
	// Synthesize produces audio for the request. It may block on a subprocess
	// or the network and must honour ctx cancellation.
	Synthesize(ctx context.Context, req Request) (*Audio, error)

	// Name identifies the backend in logs.
	Name() string
}

// AudioFetcher is implemented by backends that can hand out the encoded audio
// for download. Fetch must build the request and classify errors exactly like
// Synthesize does.
type AudioFetcher interface {
	Fetch(ctx context.Context, req Request) (*Audio, error)
}

// AudioPlayer defines the contract for audio playback.
type AudioPlayer interface {
	// Play starts playback of clip, replacing anything currently loaded.
	// onFinish is called once if the clip plays to its end; it is not called
	// after Stop.
	Play(clip *audio.Clip, onFinish func()) error

	// Pause pauses the current playback.
	Pause() error

	// Resume resumes paused playback.
	Resume() error

	// Stop stops playback and releases the loaded clip. Calling it when
	// nothing is loaded is a no-op.
	Stop() error

	// IsPlaying returns whether audio is currently playing.
	IsPlaying() bool

	// Close releases the audio device.
	Close() error
}

// VoiceSource reports the voices a local engine offers.
type VoiceSource interface {
	Voices(ctx context.Context) ([]Voice, error)
}

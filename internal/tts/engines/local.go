package engines

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mamtil/speak/internal/audio"
	"github.com/mamtil/speak/internal/tts"
)

// ErrNoVoice is returned when no voice could be resolved for a request.
var ErrNoVoice = errors.New("no voice available for the requested gender")

// Renderer turns text into a WAV file with a given voice and prosody.
// *Espeak implements it.
type Renderer interface {
	Render(ctx context.Context, text, voice string, p tts.Prosody) ([]byte, error)
	Name() string
}

// VoiceResolver picks the voice for a gender. *voices.Selector implements it.
type VoiceResolver interface {
	Voice(g tts.Gender) (tts.Voice, bool)
}

// LocalConfig holds the per-gender prosody of the local backend.
type LocalConfig struct {
	Female tts.Prosody
	Male   tts.Prosody
}

// Local synthesizes on this machine: the selector resolves the voice for the
// request's gender and the renderer speaks with that gender's prosody.
type Local struct {
	renderer Renderer
	voices   VoiceResolver
	config   LocalConfig
	logger   *log.Logger
}

// NewLocal creates the local backend. Zero prosody values select the
// defaults.
func NewLocal(renderer Renderer, voices VoiceResolver, config LocalConfig, logger *log.Logger) (*Local, error) {
	if renderer == nil {
		return nil, errors.New("renderer cannot be nil")
	}
	if voices == nil {
		return nil, errors.New("voice resolver cannot be nil")
	}
	if config.Female == (tts.Prosody{}) {
		config.Female = tts.DefaultProsody(tts.GenderFemale)
	}
	if config.Male == (tts.Prosody{}) {
		config.Male = tts.DefaultProsody(tts.GenderMale)
	}
	if err := config.Female.Validate(); err != nil {
		return nil, fmt.Errorf("female prosody: %w", err)
	}
	if err := config.Male.Validate(); err != nil {
		return nil, fmt.Errorf("male prosody: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Local{
		renderer: renderer,
		voices:   voices,
		config:   config,
		logger:   logger.WithPrefix("local"),
	}, nil
}

// Name implements tts.Synthesizer.
func (l *Local) Name() string {
	return l.renderer.Name()
}

// Synthesize implements tts.Synthesizer.
func (l *Local) Synthesize(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	voice, ok := l.voices.Voice(req.Gender)
	if !ok {
		return nil, &tts.EngineError{Engine: l.renderer.Name(), Err: ErrNoVoice}
	}

	prosody := l.prosody(req.Gender)
	l.logger.Debug("rendering", "voice", voice.ID, "pitch", prosody.Pitch, "rate", prosody.Rate)

	data, err := l.renderer.Render(ctx, req.Text, voice.ID, prosody)
	if err != nil {
		return nil, err
	}
	return &tts.Audio{Data: data, MIME: audio.MIMEWAV}, nil
}

// Fetch implements tts.AudioFetcher. espeak-ng streams WAV with placeholder
// sizes, so the audio is re-wrapped in a proper header for saving.
func (l *Local) Fetch(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	payload, err := l.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}

	clip, err := audio.Decode(payload.Data, payload.MIME)
	if err != nil {
		return nil, &tts.DecodeError{Err: err}
	}
	return &tts.Audio{Data: audio.EncodeWAV(clip), MIME: audio.MIMEWAV}, nil
}

func (l *Local) prosody(g tts.Gender) tts.Prosody {
	if g == tts.GenderMale {
		return l.config.Male
	}
	return l.config.Female
}

package engines

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/mamtil/speak/internal/audio"
	"github.com/mamtil/speak/internal/tts"
)

type renderCall struct {
	text    string
	voice   string
	prosody tts.Prosody
}

type fakeRenderer struct {
	calls []renderCall
	out   []byte
	err   error
}

func (f *fakeRenderer) Name() string { return "fake-engine" }

func (f *fakeRenderer) Render(_ context.Context, text, voice string, p tts.Prosody) ([]byte, error) {
	f.calls = append(f.calls, renderCall{text: text, voice: voice, prosody: p})
	return f.out, f.err
}

type fakeResolver map[tts.Gender]tts.Voice

func (f fakeResolver) Voice(g tts.Gender) (tts.Voice, bool) {
	v, ok := f[g]
	return v, ok
}

// streamedWAV mimics espeak-ng --stdout, whose header sizes are placeholders.
func streamedWAV() []byte {
	data := audio.EncodeWAV(&audio.Clip{PCM: make([]byte, 200), SampleRate: 22050, Channels: 1})
	binary.LittleEndian.PutUint32(data[4:8], 0x7ffff000)
	binary.LittleEndian.PutUint32(data[40:44], 0x7ffff000)
	return data
}

func TestNewLocal(t *testing.T) {
	r := &fakeRenderer{}
	voices := fakeResolver{}

	tests := []struct {
		name     string
		renderer Renderer
		voices   VoiceResolver
		config   LocalConfig
		wantErr  bool
	}{
		{"defaults", r, voices, LocalConfig{}, false},
		{"nil renderer", nil, voices, LocalConfig{}, true},
		{"nil voices", r, nil, LocalConfig{}, true},
		{"bad prosody", r, voices, LocalConfig{Female: tts.Prosody{Pitch: 3, Rate: 1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLocal(tt.renderer, tt.voices, tt.config, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLocal() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLocalSynthesize(t *testing.T) {
	r := &fakeRenderer{out: streamedWAV()}
	voices := fakeResolver{
		tts.GenderFemale: {ID: "en-us", Name: "Zira"},
		tts.GenderMale:   {ID: "en-gb", Name: "David"},
	}
	config := LocalConfig{
		Female: tts.Prosody{Pitch: 1.2, Rate: 0.9},
		Male:   tts.Prosody{Pitch: 0.8, Rate: 0.9},
	}
	l, err := NewLocal(r, voices, config, nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		gender  tts.Gender
		voice   string
		prosody tts.Prosody
	}{
		{tts.GenderFemale, "en-us", config.Female},
		{tts.GenderMale, "en-gb", config.Male},
	}

	for _, tt := range tests {
		t.Run(tt.gender.String(), func(t *testing.T) {
			payload, err := l.Synthesize(context.Background(), tts.Request{Text: "hello", Gender: tt.gender})
			if err != nil {
				t.Fatalf("Synthesize() error = %v", err)
			}
			if payload.MIME != audio.MIMEWAV {
				t.Errorf("MIME = %q", payload.MIME)
			}

			last := r.calls[len(r.calls)-1]
			if last.voice != tt.voice || last.prosody != tt.prosody || last.text != "hello" {
				t.Errorf("render call = %+v, want voice %s prosody %+v", last, tt.voice, tt.prosody)
			}
		})
	}
}

func TestLocalFailures(t *testing.T) {
	t.Run("no voice", func(t *testing.T) {
		r := &fakeRenderer{out: streamedWAV()}
		l, _ := NewLocal(r, fakeResolver{}, LocalConfig{}, nil)

		_, err := l.Synthesize(context.Background(), tts.Request{Text: "hi", Gender: tts.GenderMale})
		var ee *tts.EngineError
		if !errors.As(err, &ee) || !errors.Is(err, ErrNoVoice) {
			t.Fatalf("error = %v, want EngineError wrapping ErrNoVoice", err)
		}
		if len(r.calls) != 0 {
			t.Error("renderer called without a voice")
		}
	})

	t.Run("render error", func(t *testing.T) {
		boom := &tts.EngineError{Engine: "fake-engine", Err: errors.New("boom")}
		r := &fakeRenderer{err: boom}
		l, _ := NewLocal(r, fakeResolver{tts.GenderMale: {ID: "en"}}, LocalConfig{}, nil)

		_, err := l.Synthesize(context.Background(), tts.Request{Text: "hi", Gender: tts.GenderMale})
		if !errors.Is(err, boom) {
			t.Fatalf("error = %v, want %v", err, boom)
		}
	})
}

func TestLocalFetchRewritesHeader(t *testing.T) {
	r := &fakeRenderer{out: streamedWAV()}
	l, _ := NewLocal(r, fakeResolver{tts.GenderFemale: {ID: "en-us"}}, LocalConfig{}, nil)

	payload, err := l.Fetch(context.Background(), tts.Request{Text: "save me", Gender: tts.GenderFemale})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(payload.Data) != 44+200 {
		t.Fatalf("len = %d, want %d", len(payload.Data), 44+200)
	}
	if got := binary.LittleEndian.Uint32(payload.Data[4:8]); got != 36+200 {
		t.Errorf("RIFF size = %d, want %d", got, 36+200)
	}
	if got := binary.LittleEndian.Uint32(payload.Data[40:44]); got != 200 {
		t.Errorf("data size = %d, want 200", got)
	}
	if !bytes.Equal(payload.Data[:4], []byte("RIFF")) {
		t.Error("missing RIFF header")
	}
}

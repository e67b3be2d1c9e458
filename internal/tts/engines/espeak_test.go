package engines

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/mamtil/speak/internal/tts"
)

const voiceTable = `Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  af              --/M      Afrikaans          gmw/af
 5  de              --/M      German             gmw/de
 2  en-gb           --/M      English_(Great_Britain) gmw/en            (en 2)
 5  en-us           --/F      English_(America)  gmw/en-US            (en 3)
 5  en-029          --/M      English_(Caribbean) gmw/en-029          (en 10)
 7  fr-fr           --/U      French_(France)    roa/fr
this line is not a voice
`

func TestParseVoices(t *testing.T) {
	list, err := parseVoices([]byte(voiceTable))
	if err != nil {
		t.Fatalf("parseVoices() error = %v", err)
	}
	if len(list) != 6 {
		t.Fatalf("got %d voices, want 6", len(list))
	}

	tests := []struct {
		index    int
		id       string
		name     string
		reported tts.Gender
	}{
		{0, "af", "Afrikaans", tts.GenderMale},
		{2, "en-gb", "English (Great Britain)", tts.GenderMale},
		{3, "en-us", "English (America)", tts.GenderFemale},
		{5, "fr-fr", "French (France)", tts.GenderUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			v := list[tt.index]
			if v.ID != tt.id || v.Locale != tt.id {
				t.Errorf("ID/Locale = %q/%q, want %q", v.ID, v.Locale, tt.id)
			}
			if v.Name != tt.name {
				t.Errorf("Name = %q, want %q", v.Name, tt.name)
			}
			if v.Reported != tt.reported {
				t.Errorf("Reported = %v, want %v", v.Reported, tt.reported)
			}
		})
	}
}

func TestParseVoicesEmpty(t *testing.T) {
	list, err := parseVoices(nil)
	if err != nil {
		t.Fatalf("parseVoices() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("got %d voices, want 0", len(list))
	}
}

// fakeEspeak writes a shell script standing in for espeak-ng. It echoes its
// arguments to args.txt next to itself.
func fakeEspeak(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script engine stand-in requires a POSIX shell")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "espeak-ng")
	script := "#!/bin/sh\necho \"$@\" > \"" + filepath.Join(dir, "args.txt") + "\"\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEspeakRender(t *testing.T) {
	bin := fakeEspeak(t, "cat >/dev/null\nprintf 'RIFFdataWAVE'")
	e := NewEspeak(EspeakConfig{Binary: bin, Timeout: 5 * time.Second})

	out, err := e.Render(context.Background(), "hello", "en-us", tts.Prosody{Pitch: 1.5, Rate: 1.2})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if string(out) != "RIFFdataWAVE" {
		t.Errorf("output = %q", out)
	}

	args, err := os.ReadFile(filepath.Join(filepath.Dir(bin), "args.txt"))
	if err != nil {
		t.Fatal(err)
	}
	want := "--stdout -p 75 -s 210 -v en-us --stdin"
	if got := strings.TrimSpace(string(args)); got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestEspeakVoices(t *testing.T) {
	table := filepath.Join(t.TempDir(), "voices.txt")
	if err := os.WriteFile(table, []byte(voiceTable), 0o644); err != nil {
		t.Fatal(err)
	}
	bin := fakeEspeak(t, "cat \""+table+"\"")
	e := NewEspeak(EspeakConfig{Binary: bin})

	list, err := e.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices() error = %v", err)
	}
	if len(list) != 6 {
		t.Errorf("got %d voices, want 6", len(list))
	}
}

func TestEspeakFailures(t *testing.T) {
	t.Run("missing binary", func(t *testing.T) {
		e := NewEspeak(EspeakConfig{Binary: "espeak-ng-does-not-exist"})
		_, err := e.Render(context.Background(), "hello", "", tts.DefaultProsody(tts.GenderFemale))

		var ee *tts.EngineError
		if !errors.As(err, &ee) {
			t.Fatalf("error = %v, want EngineError", err)
		}
	})

	t.Run("non-zero exit", func(t *testing.T) {
		bin := fakeEspeak(t, "echo 'unknown voice' >&2\nexit 1")
		e := NewEspeak(EspeakConfig{Binary: bin})
		_, err := e.Render(context.Background(), "hello", "xx", tts.DefaultProsody(tts.GenderMale))

		var ee *tts.EngineError
		if !errors.As(err, &ee) {
			t.Fatalf("error = %v, want EngineError", err)
		}
		if !strings.Contains(err.Error(), "unknown voice") {
			t.Errorf("error %q does not carry stderr", err)
		}
	})

	t.Run("no output", func(t *testing.T) {
		bin := fakeEspeak(t, "cat >/dev/null")
		e := NewEspeak(EspeakConfig{Binary: bin})
		_, err := e.Render(context.Background(), "hello", "", tts.DefaultProsody(tts.GenderMale))

		var ee *tts.EngineError
		if !errors.As(err, &ee) {
			t.Fatalf("error = %v, want EngineError", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		bin := fakeEspeak(t, "exec sleep 5")
		e := NewEspeak(EspeakConfig{Binary: bin, Timeout: 50 * time.Millisecond})

		start := time.Now()
		_, err := e.Render(context.Background(), "hello", "", tts.DefaultProsody(tts.GenderMale))
		if !strings.Contains(err.Error(), "timeout") {
			t.Errorf("error = %v, want timeout", err)
		}
		if time.Since(start) > 3*time.Second {
			t.Error("timed out process was not stopped promptly")
		}
	})
}

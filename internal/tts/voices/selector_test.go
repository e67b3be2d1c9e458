package voices

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mamtil/speak/internal/tts"
)

type fakeSource struct {
	mu     sync.Mutex
	voices []tts.Voice
	err    error
	calls  int
}

func (f *fakeSource) Voices(context.Context) ([]tts.Voice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make([]tts.Voice, len(f.voices))
	copy(out, f.voices)
	return out, f.err
}

func (f *fakeSource) set(v []tts.Voice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voices = v
}

var (
	zira   = tts.Voice{ID: "zira", Name: "Microsoft Zira", Locale: "en-US"}
	david  = tts.Voice{ID: "david", Name: "Microsoft David", Locale: "en-US"}
	hazel  = tts.Voice{ID: "hazel", Name: "Hazel", Locale: "en-GB"}
	german = tts.Voice{ID: "de", Name: "German", Locale: "de"}
	french = tts.Voice{ID: "fr", Name: "French", Locale: "fr-FR"}
	paul   = tts.Voice{ID: "paul", Name: "Paul", Locale: "fr-CA"}
	annaDE = tts.Voice{ID: "anna", Name: "Anna", Locale: "de-DE"}
)

func names(list []tts.Voice) []string {
	return voiceNames(list)
}

func equal(a, b []tts.Voice) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name       string
		voices     []tts.Voice
		wantFemale []tts.Voice
		wantMale   []tts.Voice
	}{
		{
			name:       "strict locale match",
			voices:     []tts.Voice{german, zira, david, hazel},
			wantFemale: []tts.Voice{zira, hazel},
			wantMale:   []tts.Voice{david},
		},
		{
			name:       "unclassified english voices count as male",
			voices:     []tts.Voice{{Name: "English_(Scotland)", Locale: "en-gb-scotland"}, zira},
			wantFemale: []tts.Voice{zira},
			wantMale:   []tts.Voice{{Name: "English_(Scotland)", Locale: "en-gb-scotland"}},
		},
		{
			name:       "relaxed name match across locales",
			voices:     []tts.Voice{german, paul, annaDE},
			wantFemale: []tts.Voice{annaDE},
			wantMale:   []tts.Voice{paul},
		},
		{
			name:       "last resort first and second",
			voices:     []tts.Voice{german, french},
			wantFemale: []tts.Voice{french},
			wantMale:   []tts.Voice{german},
		},
		{
			name:       "single voice serves both",
			voices:     []tts.Voice{german},
			wantFemale: []tts.Voice{german},
			wantMale:   []tts.Voice{german},
		},
		{
			name:   "no voices",
			voices: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			female, male := Partition(tt.voices, "en", NewHeuristicClassifier(nil, nil))
			if !equal(female, tt.wantFemale) {
				t.Errorf("female = %v, want %v", names(female), names(tt.wantFemale))
			}
			if !equal(male, tt.wantMale) {
				t.Errorf("male = %v, want %v", names(male), names(tt.wantMale))
			}
		})
	}
}

func TestSameLanguage(t *testing.T) {
	tests := []struct {
		locale, lang string
		want         bool
	}{
		{"en-US", "en", true},
		{"en-gb-x-rp", "en", true},
		{"EN", "en-US", true},
		{"de-DE", "en", false},
		{"", "en", false},
		{"fr", "", true},
	}
	for _, tt := range tests {
		if got := SameLanguage(tt.locale, tt.lang); got != tt.want {
			t.Errorf("SameLanguage(%q, %q) = %v, want %v", tt.locale, tt.lang, got, tt.want)
		}
	}
}

func TestSelectorRefreshOverwrites(t *testing.T) {
	src := &fakeSource{voices: []tts.Voice{zira, david}}
	s, err := NewSelector(src)
	if err != nil {
		t.Fatalf("NewSelector() error = %v", err)
	}

	if _, ok := s.Voice(tts.GenderFemale); ok {
		t.Error("expected no voice before the first refresh")
	}

	changes := 0
	s.OnChange(func() { changes++ })

	for i := 0; i < 2; i++ {
		if err := s.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
	}
	if v, _ := s.Voice(tts.GenderFemale); v != zira {
		t.Errorf("female voice = %q, want Zira", v.Name)
	}
	if v, _ := s.Voice(tts.GenderMale); v != david {
		t.Errorf("male voice = %q, want David", v.Name)
	}

	src.set([]tts.Voice{hazel})
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if v, _ := s.Voice(tts.GenderMale); v != hazel {
		t.Errorf("male voice after refresh = %q, want Hazel", v.Name)
	}
	if changes != 3 {
		t.Errorf("OnChange fired %d times, want 3", changes)
	}

	d := s.Descriptors()
	if len(d) != 1 || d[0].InferredGender != tts.GenderFemale {
		t.Errorf("Descriptors() = %+v", d)
	}
}

func TestSelectorRefreshErrors(t *testing.T) {
	src := &fakeSource{err: errors.New("espeak-ng: not found")}
	s, _ := NewSelector(src)
	changes := 0
	s.OnChange(func() { changes++ })

	if err := s.Refresh(context.Background()); err == nil {
		t.Error("expected source error")
	}

	src.err = nil
	if err := s.Refresh(context.Background()); !errors.Is(err, ErrNoVoices) {
		t.Errorf("Refresh() error = %v, want ErrNoVoices", err)
	}
	if changes != 0 {
		t.Errorf("OnChange fired %d times for failed refreshes, want 0", changes)
	}

	if _, err := NewSelector(nil); err == nil {
		t.Error("expected error for nil source")
	}
}

func TestSelectorWatch(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{voices: []tts.Voice{david}}
	s, _ := NewSelector(src, WithDebounce(20*time.Millisecond))
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	changed := make(chan struct{}, 10)
	s.OnChange(func() { changed <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Watch(ctx, dir); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	src.set([]tts.Voice{david, zira})
	if err := os.WriteFile(filepath.Join(dir, "zira"), []byte("name zira\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("voice directory change did not trigger a refresh")
	}
	if v, _ := s.Voice(tts.GenderFemale); v != zira {
		t.Errorf("female voice = %q, want Zira", v.Name)
	}
}

func TestSelectorWatchMissingDirs(t *testing.T) {
	s, _ := NewSelector(&fakeSource{})
	err := s.Watch(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrNothingToWatch) {
		t.Errorf("Watch() error = %v, want ErrNothingToWatch", err)
	}
}

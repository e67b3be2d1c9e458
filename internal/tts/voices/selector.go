package voices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mamtil/speak/internal/tts"
	"golang.org/x/text/language"
)

// ErrNoVoices is returned when the engine reports no voices at all.
var ErrNoVoices = errors.New("the speech engine reported no voices")

// Selector keeps the female and male voice buckets for a voice source.
// Refresh may be called any number of times; the latest classification wins.
type Selector struct {
	source     tts.VoiceSource
	classifier Classifier
	language   string
	debounce   time.Duration
	logger     *log.Logger

	mu          sync.RWMutex
	female      []tts.Voice
	male        []tts.Voice
	descriptors []tts.VoiceDescriptor
	onChange    []func()
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithClassifier replaces the default heuristic classifier.
func WithClassifier(c Classifier) SelectorOption {
	return func(s *Selector) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithLanguage sets the target language family, e.g. "en".
func WithLanguage(lang string) SelectorOption {
	return func(s *Selector) {
		s.language = lang
	}
}

// WithDebounce sets how long Watch waits for voice directory changes to
// settle before refreshing.
func WithDebounce(d time.Duration) SelectorOption {
	return func(s *Selector) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithLogger sets the selector's logger.
func WithLogger(logger *log.Logger) SelectorOption {
	return func(s *Selector) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSelector creates a selector with empty buckets. Call Refresh before
// resolving voices.
func NewSelector(source tts.VoiceSource, opts ...SelectorOption) (*Selector, error) {
	if source == nil {
		return nil, fmt.Errorf("voice source cannot be nil")
	}

	s := &Selector{
		source:     source,
		classifier: NewHeuristicClassifier(nil, nil),
		language:   "en",
		debounce:   500 * time.Millisecond,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithPrefix("voices")

	return s, nil
}

// Refresh re-queries the voice source and overwrites the buckets.
func (s *Selector) Refresh(ctx context.Context) error {
	list, err := s.source.Voices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list voices: %w", err)
	}

	female, male := Partition(list, s.language, s.classifier)
	descriptors := make([]tts.VoiceDescriptor, len(list))
	for i, v := range list {
		descriptors[i] = tts.VoiceDescriptor{Voice: v, InferredGender: s.classifier.Classify(v)}
	}

	s.mu.Lock()
	s.female = female
	s.male = male
	s.descriptors = descriptors
	callbacks := make([]func(), len(s.onChange))
	copy(callbacks, s.onChange)
	s.mu.Unlock()

	s.logger.Debug("voices classified",
		"total", len(list),
		"female", voiceNames(female),
		"male", voiceNames(male),
	)

	if len(list) == 0 {
		return ErrNoVoices
	}
	for _, fn := range callbacks {
		fn()
	}
	return nil
}

// OnChange registers fn to run after every successful Refresh. A refresh
// that fails, or finds no voices, does not run it.
func (s *Selector) OnChange(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Voice returns the preferred voice for g. Unknown is treated as female.
func (s *Selector) Voice(g tts.Gender) (tts.Voice, bool) {
	bucket := s.Bucket(g)
	if len(bucket) == 0 {
		return tts.Voice{}, false
	}
	return bucket[0], true
}

// Bucket returns a copy of the voices classified as g.
func (s *Selector) Bucket(g tts.Gender) []tts.Voice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.female
	if g == tts.GenderMale {
		src = s.male
	}
	out := make([]tts.Voice, len(src))
	copy(out, src)
	return out
}

// Descriptors returns every voice from the last refresh with its inferred
// gender.
func (s *Selector) Descriptors() []tts.VoiceDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]tts.VoiceDescriptor, len(s.descriptors))
	copy(out, s.descriptors)
	return out
}

// Partition splits voices into female and male buckets for lang. It always
// returns a non-empty bucket for each gender when voices is not empty.
//
//  1. Voices of the target language: female if classified female, male
//     otherwise.
//  2. For a bucket still empty, any voice classified as that gender.
//  3. Male takes the first voice; female the second, or the first if it is
//     the only one.
func Partition(voices []tts.Voice, lang string, c Classifier) (female, male []tts.Voice) {
	for _, v := range voices {
		if !SameLanguage(v.Locale, lang) {
			continue
		}
		if c.Classify(v) == tts.GenderFemale {
			female = append(female, v)
		} else {
			male = append(male, v)
		}
	}

	if len(male) == 0 {
		male = byGender(voices, c, tts.GenderMale)
	}
	if len(female) == 0 {
		female = byGender(voices, c, tts.GenderFemale)
	}

	if len(male) == 0 && len(voices) > 0 {
		male = []tts.Voice{voices[0]}
	}
	if len(female) == 0 {
		switch {
		case len(voices) > 1:
			female = []tts.Voice{voices[1]}
		case len(voices) == 1:
			female = []tts.Voice{voices[0]}
		}
	}

	return female, male
}

func byGender(voices []tts.Voice, c Classifier, g tts.Gender) []tts.Voice {
	var out []tts.Voice
	for _, v := range voices {
		if c.Classify(v) == g {
			out = append(out, v)
		}
	}
	return out
}

// SameLanguage reports whether locale belongs to the language family of
// lang ("en-GB" and "en" match, "de" does not). An empty lang matches
// everything.
func SameLanguage(locale, lang string) bool {
	if lang == "" {
		return true
	}
	if locale == "" {
		return false
	}

	want, err1 := language.Parse(lang)
	got, err2 := language.Parse(locale)
	if err1 != nil || err2 != nil {
		return strings.HasPrefix(strings.ToLower(locale), strings.ToLower(lang))
	}

	wantBase, _ := want.Base()
	gotBase, _ := got.Base()
	return wantBase == gotBase
}

func voiceNames(list []tts.Voice) []string {
	names := make([]string, len(list))
	for i, v := range list {
		names[i] = v.Name
	}
	return names
}

package tts

import (
	"fmt"
	"strings"
)

// BackendType represents the speech backend selection
type BackendType string

const (
	// BackendLocal synthesizes speech with the espeak-ng engine on this machine
	BackendLocal BackendType = "local"

	// BackendRemote requests audio from a remote HTTP TTS endpoint
	BackendRemote BackendType = "remote"

	// BackendNone represents no backend selected
	BackendNone BackendType = ""
)

// State represents the playback state owned by the Adapter
type State int

const (
	// StateIdle indicates nothing is playing
	StateIdle State = iota

	// StateSpeaking indicates a request is being synthesized or played
	StateSpeaking

	// StatePaused indicates playback is paused
	StatePaused
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpeaking:
		return "speaking"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Gender is the voice gender a request asks for, or the gender inferred for a
// voice.
type Gender int

const (
	// GenderUnknown is only used for voices that could not be classified
	GenderUnknown Gender = iota

	// GenderFemale selects a female voice
	GenderFemale

	// GenderMale selects a male voice
	GenderMale
)

// Speaker ids understood by the remote TTS service. These are part of the wire
// contract and must not change.
const (
	SpeakerIDMale   = "1"
	SpeakerIDFemale = "2"
)

// String returns the string representation of the gender
func (g Gender) String() string {
	switch g {
	case GenderFemale:
		return "female"
	case GenderMale:
		return "male"
	default:
		return "unknown"
	}
}

// SpeakerID returns the remote speaker id for the gender. Anything that is not
// male is sent as the female speaker, matching the form's default.
func (g Gender) SpeakerID() string {
	if g == GenderMale {
		return SpeakerIDMale
	}
	return SpeakerIDFemale
}

// ParseGender parses "female"/"male" (or "f"/"m"), ignoring case.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "female", "f":
		return GenderFemale, nil
	case "male", "m":
		return GenderMale, nil
	default:
		return GenderUnknown, fmt.Errorf("%w: %q (use female or male)", ErrInvalidGender, s)
	}
}

// Voice is a synthesis voice as reported by an engine.
type Voice struct {
	// ID is what the engine expects to select the voice (e.g. "en-us")
	ID string

	// Name is the human-readable voice name
	Name string

	// Locale is the language tag the engine reports for the voice
	Locale string

	// Reported is the gender the engine itself claims, if any
	Reported Gender
}

// VoiceDescriptor is a voice together with the gender the classifier inferred
// for it. Descriptors are derived on every refresh and never persisted.
type VoiceDescriptor struct {
	Voice
	InferredGender Gender
}

// Audio is an encoded audio payload as produced by a backend.
type Audio struct {
	// Data holds the encoded bytes (WAV, MP3, ...)
	Data []byte

	// MIME is the media type of Data, e.g. "audio/wav"
	MIME string
}

// Extension returns a file extension suitable for saving the payload.
func (a *Audio) Extension() string {
	mime := strings.ToLower(a.MIME)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch mime {
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg", "audio/opus":
		return ".ogg"
	case "audio/flac":
		return ".flac"
	default:
		return ".bin"
	}
}

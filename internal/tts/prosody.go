package tts

import (
	"errors"
	"fmt"
)

// Default prosody. Female voices get a slightly raised pitch, male voices a
// lowered one; both speak a little below normal speed.
const (
	DefaultFemalePitch = 1.15
	DefaultFemaleRate  = 0.95
	DefaultMalePitch   = 0.85
	DefaultMaleRate    = 0.95
)

// Prosody bounds.
const (
	MinProsody = 0.5
	MaxProsody = 2.0
)

// ErrProsodyOutOfRange is returned when pitch or rate is outside the valid range
var ErrProsodyOutOfRange = errors.New("pitch and rate must be between 0.5 and 2.0")

// Prosody holds pitch and rate multipliers around 1.0.
type Prosody struct {
	Pitch float64
	Rate  float64
}

// DefaultProsody returns the default prosody for a gender.
func DefaultProsody(g Gender) Prosody {
	if g == GenderMale {
		return Prosody{Pitch: DefaultMalePitch, Rate: DefaultMaleRate}
	}
	return Prosody{Pitch: DefaultFemalePitch, Rate: DefaultFemaleRate}
}

// Validate checks both multipliers are within range.
func (p Prosody) Validate() error {
	if p.Pitch < MinProsody || p.Pitch > MaxProsody {
		return fmt.Errorf("%w: pitch %.2f", ErrProsodyOutOfRange, p.Pitch)
	}
	if p.Rate < MinProsody || p.Rate > MaxProsody {
		return fmt.Errorf("%w: rate %.2f", ErrProsodyOutOfRange, p.Rate)
	}
	return nil
}

// Espeak pitch is 0-99 around 50, speed is words per minute around 175.
const (
	espeakBasePitch = 50
	espeakBaseSpeed = 175
)

// ToEspeakPitch converts the pitch multiplier to espeak's -p value.
func (p Prosody) ToEspeakPitch() int {
	v := int(float64(espeakBasePitch)*p.Pitch + 0.5)
	if v < 0 {
		return 0
	}
	if v > 99 {
		return 99
	}
	return v
}

// ToEspeakSpeed converts the rate multiplier to espeak's -s value.
func (p Prosody) ToEspeakSpeed() int {
	v := int(float64(espeakBaseSpeed)*p.Rate + 0.5)
	if v < 80 {
		return 80
	}
	return v
}

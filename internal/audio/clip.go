package audio

import (
	"errors"
	"fmt"
	"time"
)

// Bytes per sample of every clip: signed 16-bit little endian.
const bytesPerSample = 2

// Clip is decoded audio: interleaved signed 16-bit little-endian PCM.
type Clip struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// Validate checks the clip can be played.
func (c *Clip) Validate() error {
	if c == nil || len(c.PCM) == 0 {
		return ErrEmptyAudio
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", c.Channels)
	}
	if len(c.PCM)%(bytesPerSample*c.Channels) != 0 {
		return errors.New("PCM data is not aligned to whole frames")
	}
	return nil
}

// Frames returns the number of sample frames in the clip.
func (c *Clip) Frames() int {
	if c.Channels == 0 {
		return 0
	}
	return len(c.PCM) / (bytesPerSample * c.Channels)
}

// Duration returns the playing time of the clip.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}

package audio

import (
	"encoding/binary"
	"fmt"
)

// Convert returns clip in the requested sample rate and channel layout. The
// input is returned unchanged when it already matches.
func Convert(clip *Clip, sampleRate, channels int) (*Clip, error) {
	if err := clip.Validate(); err != nil {
		return nil, err
	}
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("channels must be 1 or 2, got %d", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if clip.SampleRate == sampleRate && clip.Channels == channels {
		return clip, nil
	}

	samples := toSamples(clip.PCM)
	samples = remix(samples, clip.Channels, channels)
	samples = resample(samples, channels, clip.SampleRate, sampleRate)

	return &Clip{PCM: fromSamples(samples), SampleRate: sampleRate, Channels: channels}, nil
}

func toSamples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

func fromSamples(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// remix converts between mono and stereo. Stereo is averaged down to mono,
// mono is duplicated up to stereo.
func remix(samples []int16, from, to int) []int16 {
	if from == to {
		return samples
	}
	if from == 2 && to == 1 {
		out := make([]int16, len(samples)/2)
		for i := range out {
			out[i] = int16((int32(samples[2*i]) + int32(samples[2*i+1])) / 2)
		}
		return out
	}
	out := make([]int16, len(samples)*2)
	for i, s := range samples {
		out[2*i] = s
		out[2*i+1] = s
	}
	return out
}

// resample performs linear interpolation, which is plenty for speech.
func resample(samples []int16, channels, from, to int) []int16 {
	if from == to || len(samples) == 0 {
		return samples
	}

	inFrames := len(samples) / channels
	outFrames := int(int64(inFrames) * int64(to) / int64(from))
	out := make([]int16, outFrames*channels)
	ratio := float64(from) / float64(to)

	for i := 0; i < outFrames; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		for ch := 0; ch < channels; ch++ {
			if idx >= inFrames-1 {
				out[i*channels+ch] = samples[(inFrames-1)*channels+ch]
				continue
			}
			a := float64(samples[idx*channels+ch])
			b := float64(samples[(idx+1)*channels+ch])
			out[i*channels+ch] = int16(a*(1-frac) + b*frac)
		}
	}
	return out
}

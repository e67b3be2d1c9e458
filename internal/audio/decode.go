package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"

	"github.com/hajimehoshi/go-mp3"
)

// Common decoding errors
var (
	// ErrEmptyAudio is returned for an empty payload
	ErrEmptyAudio = errors.New("audio data is empty")

	// ErrUnsupportedFormat is returned for payloads that are not a known audio format
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrMalformedWAV is returned for broken RIFF/WAVE data
	ErrMalformedWAV = errors.New("malformed WAV data")
)

// Media types produced by Sniff.
const (
	MIMEWAV  = "audio/wav"
	MIMEMP3  = "audio/mpeg"
	MIMEPCM  = "audio/pcm"
	mimeL16  = "audio/l16"
	mimeBlob = "application/octet-stream"
)

// Default parameters for raw PCM payloads that do not carry them.
const (
	defaultPCMRate     = 22050
	defaultPCMChannels = 1
)

// IsAudioType reports whether a Content-Type header names an audio/* type.
// A missing header and generic binary are not audio.
func IsAudioType(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "audio/")
}

// Sniff guesses the media type of an encoded payload from its header bytes.
// It returns an empty string when the format is not recognised.
func Sniff(data []byte) string {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return MIMEWAV
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return MIMEMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return MIMEMP3
	default:
		return ""
	}
}

// Decode turns an encoded payload into a Clip. contentType may be empty or
// generic, in which case the payload is sniffed.
func Decode(data []byte, contentType string) (*Clip, error) {
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}

	mt, params, err := mime.ParseMediaType(contentType)
	if err != nil || mt == "" || mt == mimeBlob {
		mt = Sniff(data)
		params = nil
	}

	switch mt {
	case MIMEWAV, "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return decodeWAV(data)
	case MIMEMP3, "audio/mp3":
		return decodeMP3(data)
	case MIMEPCM, mimeL16:
		return decodeRaw(data, params, mt == mimeL16)
	case "":
		return nil, ErrUnsupportedFormat
	default:
		// Servers sometimes mislabel; trust the bytes if we know them.
		if sniffed := Sniff(data); sniffed != "" {
			return Decode(data, sniffed)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mt)
	}
}

// decodeWAV parses a RIFF/WAVE file holding 8 or 16-bit integer PCM.
func decodeWAV(data []byte) (*Clip, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE header", ErrMalformedWAV)
	}

	var (
		channels, bits int
		rate           int
		format         uint16
		haveFmt        bool
		pcm            []byte
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		pos += 8

		// Streamed WAV (e.g. espeak --stdout) leaves placeholder sizes.
		if size < 0 || size > len(data)-pos {
			size = len(data) - pos
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrMalformedWAV)
			}
			format = binary.LittleEndian.Uint16(data[pos : pos+2])
			channels = int(binary.LittleEndian.Uint16(data[pos+2 : pos+4]))
			rate = int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
			bits = int(binary.LittleEndian.Uint16(data[pos+14 : pos+16]))
			haveFmt = true
		case "data":
			pcm = data[pos : pos+size]
		}

		pos += size
		if size%2 == 1 {
			pos++
		}
		if pcm != nil && haveFmt {
			break
		}
	}

	if !haveFmt {
		return nil, fmt.Errorf("%w: no fmt chunk", ErrMalformedWAV)
	}
	if pcm == nil {
		return nil, fmt.Errorf("%w: no data chunk", ErrMalformedWAV)
	}
	// 1 = integer PCM, 0xFFFE = WAVE_FORMAT_EXTENSIBLE
	if format != 1 && format != 0xFFFE {
		return nil, fmt.Errorf("%w: WAV encoding %d", ErrUnsupportedFormat, format)
	}

	var out []byte
	switch bits {
	case 16:
		out = make([]byte, len(pcm)-len(pcm)%(2*max(channels, 1)))
		copy(out, pcm)
	case 8:
		// 8-bit WAV is unsigned
		out = make([]byte, len(pcm)*2)
		for i, b := range pcm {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(int(b)-128)<<8))
		}
	default:
		return nil, fmt.Errorf("%w: %d-bit WAV", ErrUnsupportedFormat, bits)
	}

	clip := &Clip{PCM: out, SampleRate: rate, Channels: channels}
	if err := clip.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWAV, err)
	}
	return clip, nil
}

// decodeMP3 decodes MPEG audio. go-mp3 always yields 16-bit stereo.
func decodeMP3(data []byte) (*Clip, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}

	clip := &Clip{PCM: pcm, SampleRate: dec.SampleRate(), Channels: 2}
	if err := clip.Validate(); err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	return clip, nil
}

// decodeRaw wraps headerless PCM. audio/L16 is big endian per RFC 2586.
func decodeRaw(data []byte, params map[string]string, bigEndian bool) (*Clip, error) {
	rate := defaultPCMRate
	if v, ok := params["rate"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid PCM rate %q", v)
		}
		rate = n
	}
	channels := defaultPCMChannels
	if v, ok := params["channels"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PCM channel count %q", v)
		}
		channels = n
	}

	pcm := make([]byte, len(data))
	copy(pcm, data)
	if bigEndian {
		for i := 0; i+1 < len(pcm); i += 2 {
			pcm[i], pcm[i+1] = pcm[i+1], pcm[i]
		}
	}

	clip := &Clip{PCM: pcm, SampleRate: rate, Channels: channels}
	if err := clip.Validate(); err != nil {
		return nil, err
	}
	return clip, nil
}

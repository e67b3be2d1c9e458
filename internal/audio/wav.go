package audio

import (
	"bytes"
	"encoding/binary"
)

// EncodeWAV wraps a clip in a canonical 44-byte RIFF/WAVE header.
func EncodeWAV(clip *Clip) []byte {
	dataSize := len(clip.PCM)
	blockAlign := clip.Channels * bytesPerSample
	byteRate := clip.SampleRate * blockAlign

	var buf bytes.Buffer
	buf.Grow(44 + dataSize)

	// RIFF header
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	// fmt sub-chunk
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // integer PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(clip.Channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(clip.SampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bytesPerSample*8))

	// data sub-chunk
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(clip.PCM)

	return buf.Bytes()
}

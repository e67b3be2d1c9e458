// Package audio decodes speech payloads into PCM clips and plays them through
// the oto/v3 library. It handles format sniffing, channel and sample rate
// conversion, playback control and end-of-stream detection.
package audio

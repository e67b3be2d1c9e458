// Package engines contains the speech backends behind the playback adapter:
// Local synthesizes with espeak-ng on this machine, Remote posts the text to
// an HTTP speech service. Both implement tts.Synthesizer and
// tts.AudioFetcher.
package engines

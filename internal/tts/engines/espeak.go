package engines

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/mamtil/speak/internal/tts"
)

// EspeakName is the engine name used in logs and errors.
const EspeakName = "espeak-ng"

// EspeakConfig holds configuration for the espeak-ng engine.
type EspeakConfig struct {
	// Binary is the executable name or path (default "espeak-ng")
	Binary string

	// Timeout bounds a single synthesis (default 30s)
	Timeout time.Duration
}

// Espeak drives the espeak-ng command line. A fresh process is started for
// every request with the text pre-loaded on stdin.
type Espeak struct {
	binary  string
	timeout time.Duration
}

// NewEspeak creates an espeak-ng engine. The binary is resolved lazily so
// that listing config or help works without espeak-ng installed.
func NewEspeak(config EspeakConfig) *Espeak {
	if config.Binary == "" {
		config.Binary = EspeakName
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Espeak{binary: config.Binary, timeout: config.Timeout}
}

// Name implements tts.Synthesizer naming.
func (e *Espeak) Name() string {
	return EspeakName
}

// Voices lists the installed voices (espeak-ng --voices).
func (e *Espeak) Voices(ctx context.Context) ([]tts.Voice, error) {
	out, err := e.run(ctx, "", "--voices")
	if err != nil {
		return nil, err
	}
	return parseVoices(out)
}

// Render synthesizes text with voice and prosody and returns a WAV file.
func (e *Espeak) Render(ctx context.Context, text, voice string, p tts.Prosody) ([]byte, error) {
	args := []string{
		"--stdout",
		"-p", strconv.Itoa(p.ToEspeakPitch()),
		"-s", strconv.Itoa(p.ToEspeakSpeed()),
	}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	args = append(args, "--stdin")

	out, err := e.run(ctx, text, args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &tts.EngineError{Engine: EspeakName, Err: errors.New("no audio output")}
	}
	return out, nil
}

// run executes the binary with stdin and returns stdout. On timeout the
// process is interrupted first and killed if it does not exit promptly.
func (e *Espeak) run(ctx context.Context, stdin string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = 100 * time.Millisecond

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, &tts.EngineError{Engine: EspeakName, Err: fmt.Errorf("synthesis timeout after %s", e.timeout)}
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, exec.ErrNotFound):
			return nil, &tts.EngineError{Engine: EspeakName, Err: fmt.Errorf("%s not found in PATH", e.binary)}
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, &tts.EngineError{Engine: EspeakName, Err: err}
		}
		return nil, &tts.EngineError{Engine: EspeakName, Err: fmt.Errorf("%w: %s", err, msg)}
	}

	return stdout.Bytes(), nil
}

// parseVoices reads the table printed by espeak-ng --voices:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US     (en 10)
func parseVoices(out []byte) ([]tts.Voice, error) {
	var list []tts.Voice

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		if _, err := strconv.Atoi(fields[0]); err != nil {
			continue
		}

		list = append(list, tts.Voice{
			ID:       fields[1],
			Name:     strings.ReplaceAll(fields[3], "_", " "),
			Locale:   fields[1],
			Reported: parseAgeGender(fields[2]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read voice list: %w", err)
	}

	return list, nil
}

// parseAgeGender reads the "--/M" column.
func parseAgeGender(s string) tts.Gender {
	_, g, ok := strings.Cut(s, "/")
	if !ok {
		return tts.GenderUnknown
	}
	switch strings.ToUpper(g) {
	case "F":
		return tts.GenderFemale
	case "M":
		return tts.GenderMale
	default:
		return tts.GenderUnknown
	}
}

package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/mamtil/speak/internal/tts"
)

// Speaker is the part of the playback adapter the form drives. *tts.Adapter
// implements it.
type Speaker interface {
	Begin(req tts.Request) (uint64, error)
	Play(ctx context.Context, tok uint64, req tts.Request) error
	Pause()
	Resume()
	Cancel()
	FetchAudio(ctx context.Context, req tts.Request) (*tts.Audio, error)
	State() tts.State
	MaxChars() int
}

// Pending is a request the speaker has accepted but not yet played. The
// caller hands it to Speaker.Play, which may block on the network.
type Pending struct {
	Request tts.Request
	Token   uint64
}

// DownloadResult describes an audio file written by Download.
type DownloadResult struct {
	Path   string
	Size   int64
	Copied bool // path was put on the clipboard
}

// FormController is the state machine behind the speech form. It mirrors the
// adapter's state; every transition is made through an adapter call.
//
//	Idle --activate--> Speaking --activate--> Paused --activate--> Speaking
//	Speaking/Paused --stop--> Idle
//	Speaking --completed/failed--> Idle
type FormController struct {
	speaker     Speaker
	state       tts.State
	gender      tts.Gender
	downloadDir string

	// Seams for tests
	now       func() time.Time
	clipboard func(string) error
}

// NewFormController creates an idle controller speaking with gender.
func NewFormController(speaker Speaker, gender tts.Gender, downloadDir string) *FormController {
	if gender != tts.GenderMale {
		gender = tts.GenderFemale
	}
	return &FormController{
		speaker:     speaker,
		state:       tts.StateIdle,
		gender:      gender,
		downloadDir: downloadDir,
		now:         time.Now,
		clipboard:   clipboard.WriteAll,
	}
}

// State returns the state the form displays.
func (c *FormController) State() tts.State {
	return c.state
}

// Gender returns the selected voice gender.
func (c *FormController) Gender() tts.Gender {
	return c.gender
}

// ToggleGender switches between the female and male voice. The change applies
// to the next request.
func (c *FormController) ToggleGender() tts.Gender {
	if c.gender == tts.GenderFemale {
		c.gender = tts.GenderMale
	} else {
		c.gender = tts.GenderFemale
	}
	return c.gender
}

// Activate is the speak/pause/resume button. From Idle it validates text,
// claims the speaker with Begin and returns the pending request the caller
// must play. From Speaking and Paused it pauses or resumes and returns nil.
// Blank or overlong text from Idle returns a ValidationError and leaves the
// state alone.
func (c *FormController) Activate(text string) (*Pending, error) {
	switch c.state {
	case tts.StateSpeaking:
		c.speaker.Pause()
		c.state = tts.StatePaused
		return nil, nil
	case tts.StatePaused:
		c.speaker.Resume()
		c.state = tts.StateSpeaking
		return nil, nil
	}

	req, err := tts.NewRequest(text, c.gender, c.speaker.MaxChars())
	if err != nil {
		return nil, err
	}
	tok, err := c.speaker.Begin(req)
	if err != nil {
		return nil, err
	}
	c.state = tts.StateSpeaking
	log.Debug("form activate", "gender", c.gender, "chars", tts.CharCount(req.Text), "token", tok)
	return &Pending{Request: req, Token: tok}, nil
}

// Stop cancels playback from Speaking or Paused.
func (c *FormController) Stop() {
	if c.state == tts.StateIdle {
		return
	}
	c.speaker.Cancel()
	c.state = tts.StateIdle
}

// Completed handles the adapter's playback-ended notification. A
// notification that arrives after a newer request started is ignored: the
// adapter is no longer idle then.
func (c *FormController) Completed() {
	if c.state == tts.StateSpeaking && c.speaker.State() == tts.StateIdle {
		c.state = tts.StateIdle
	}
}

// Failed handles the result of a Play call that returned err and returns the
// notification to show, or "" when there is nothing to report. A superseded
// call belongs to an older request and changes nothing.
func (c *FormController) Failed(err error) string {
	if err == nil || errors.Is(err, tts.ErrSuperseded) {
		return ""
	}
	c.state = tts.StateIdle
	return tts.Describe(err)
}

// Download fetches the audio for text without playing it and saves it as
// speech-<timestamp>.<ext> in the download directory. The path is copied to
// the clipboard when one is available.
func (c *FormController) Download(ctx context.Context, text string) (DownloadResult, error) {
	req, err := tts.NewRequest(text, c.gender, c.speaker.MaxChars())
	if err != nil {
		return DownloadResult{}, err
	}

	payload, err := c.speaker.FetchAudio(ctx, req)
	if err != nil {
		return DownloadResult{}, err
	}

	dir := c.downloadDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
		return DownloadResult{}, fmt.Errorf("unable to create download directory: %w", err)
	}

	name := fmt.Sprintf("speech-%s%s", c.now().Format("20060102-150405"), payload.Extension())
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, payload.Data, 0o644); err != nil { //nolint:gosec
		return DownloadResult{}, fmt.Errorf("unable to write audio file: %w", err)
	}

	result := DownloadResult{Path: path, Size: int64(len(payload.Data))}
	if abs, err := filepath.Abs(path); err == nil {
		result.Path = abs
	}
	if err := c.clipboard(result.Path); err != nil {
		log.Debug("clipboard unavailable", "error", err)
	} else {
		result.Copied = true
	}
	return result, nil
}

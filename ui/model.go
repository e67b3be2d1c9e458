package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/mamtil/speak/internal/tts"
	"github.com/muesli/reflow/wordwrap"
)

const (
	statusMessageTimeout = time.Second * 4 // how long to show toasts like "saved!"
	defaultWidth         = 60
	waveformBars         = 32
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFDF5")).Background(lipgloss.Color("#7D56F4")).Padding(0, 1)
	faintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	limitStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	voiceStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	toastStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EE6FF8"))
	sectionStyle = lipgloss.NewStyle().MarginTop(1)
)

type (
	// speakDoneMsg carries the result of an Adapter.Play call. nil means
	// playback started.
	speakDoneMsg struct{ err error }

	// playbackEndedMsg is sent when the adapter reports natural completion.
	playbackEndedMsg struct{}

	downloadDoneMsg struct {
		result DownloadResult
		err    error
	}

	statusMessageTimeoutMsg struct{ id int }
)

type model struct {
	cfg     Config
	ctx     context.Context
	speaker Speaker
	form    *FormController
	ended   <-chan struct{}

	input  textarea.Model
	help   help.Model
	keys   keyMap
	wave   Waveform
	status *StatusDisplay

	toast   string
	toastID int

	width       int
	ticking     bool
	downloading bool
	now         func() time.Time
}

func newModel(ctx context.Context, cfg Config, speaker Speaker, ended <-chan struct{}) model {
	maxChars := speaker.MaxChars()

	input := textarea.New()
	input.Placeholder = "Type something to say…"
	input.CharLimit = maxChars
	input.ShowLineNumbers = false
	input.SetWidth(defaultWidth)
	input.SetHeight(6)
	input.SetValue(cfg.Text)
	input.Focus()

	return model{
		cfg:     cfg,
		ctx:     ctx,
		speaker: speaker,
		form:    NewFormController(speaker, cfg.Gender, cfg.DownloadDir),
		ended:   ended,
		input:   input,
		help:    help.New(),
		keys:    newKeyMap(),
		wave:    NewWaveform(waveformBars),
		status:  NewStatusDisplay(cfg.Backend),
		width:   defaultWidth,
		now:     time.Now,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForEnded(m.ended))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.form.Stop()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Speak):
			pending, err := m.form.Activate(m.input.Value())
			if err != nil {
				cmds = append(cmds, m.showToast(tts.Describe(err)))
				break
			}
			if pending != nil {
				m.toast = ""
				cmds = append(cmds, m.speakCmd(*pending))
			}

		case key.Matches(msg, m.keys.Stop):
			m.form.Stop()

		case key.Matches(msg, m.keys.Voice):
			g := m.form.ToggleGender()
			log.Debug("voice toggled", "gender", g)

		case key.Matches(msg, m.keys.Download):
			if !m.downloading {
				m.downloading = true
				cmds = append(cmds, m.downloadCmd(m.input.Value()))
			}

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.SetWidth(max(msg.Width-2, 10))
		m.wave.SetWidth(min(msg.Width-2, waveformBars*2))
		m.help.Width = msg.Width

	case speakDoneMsg:
		if note := m.form.Failed(msg.err); note != "" {
			log.Debug("speak failed", "error", msg.err)
			m.status.SetError(note)
		}

	case playbackEndedMsg:
		m.form.Completed()
		cmds = append(cmds, waitForEnded(m.ended))

	case downloadDoneMsg:
		m.downloading = false
		if msg.err != nil {
			cmds = append(cmds, m.showToast(tts.Describe(msg.err)))
			break
		}
		note := fmt.Sprintf("Saved %s (%s)", m.displayPath(msg.result.Path), humanize.Bytes(uint64(msg.result.Size))) //nolint:gosec
		if msg.result.Copied {
			note += ", path copied to clipboard"
		}
		cmds = append(cmds, m.showToast(note))

	case waveformTickMsg:
		if m.form.State() != tts.StateSpeaking || m.cfg.DisableWaveform {
			m.ticking = false
			break
		}
		m.wave.Advance()
		cmds = append(cmds, waveformTick())

	case statusMessageTimeoutMsg:
		if msg.id == m.toastID {
			m.toast = ""
		}

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	cmds = append(cmds, m.sync())
	return m, tea.Batch(cmds...)
}

// sync mirrors the form state into the status line and starts the waveform
// when speech resumes.
func (m *model) sync() tea.Cmd {
	state := m.form.State()
	m.status.Update(state, m.now())

	if state == tts.StateSpeaking && !m.ticking && !m.cfg.DisableWaveform {
		m.ticking = true
		return waveformTick()
	}
	return nil
}

func (m *model) showToast(msg string) tea.Cmd {
	m.toast = msg
	m.toastID++
	id := m.toastID
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg{id: id}
	})
}

func (m model) speakCmd(p Pending) tea.Cmd {
	ctx, speaker := m.ctx, m.speaker
	return func() tea.Msg {
		return speakDoneMsg{err: speaker.Play(ctx, p.Token, p.Request)}
	}
}

func (m model) downloadCmd(text string) tea.Cmd {
	ctx, form := m.ctx, m.form
	return func() tea.Msg {
		result, err := form.Download(ctx, text)
		return downloadDoneMsg{result: result, err: err}
	}
}

// waitForEnded waits for the next playback-ended notification.
func waitForEnded(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return playbackEndedMsg{}
	}
}

func (m model) displayPath(path string) string {
	if m.cfg.HomeDir != "" && strings.HasPrefix(path, m.cfg.HomeDir) {
		return "~" + strings.TrimPrefix(path, m.cfg.HomeDir)
	}
	return path
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("speak"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	// Voice on the left, character counter on the right.
	voice := voiceStyle.Render(genderLabel(m.form.Gender()))
	count := m.input.Length()
	counter := fmt.Sprintf("%d / %d", count, m.input.CharLimit)
	if count >= m.input.CharLimit {
		counter = limitStyle.Render(counter)
	} else {
		counter = faintStyle.Render(counter)
	}
	gap := max(m.width-lipgloss.Width(voice)-lipgloss.Width(counter), 1)
	b.WriteString(voice + strings.Repeat(" ", gap) + counter)

	if !m.cfg.DisableWaveform {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(m.wave.View(m.form.State() == tts.StateSpeaking)))
	}

	if status := m.status.CompactStatus(m.now(), m.width); status != "" {
		b.WriteString("\n")
		b.WriteString(status)
	}

	if m.toast != "" {
		b.WriteString("\n")
		b.WriteString(toastStyle.Render(wordwrap.String(m.toast, max(m.width-2, 20))))
	}

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render(m.help.View(m.keys)))
	b.WriteString("\n")

	return b.String()
}

func genderLabel(g tts.Gender) string {
	if g == tts.GenderMale {
		return "♂ male voice"
	}
	return "♀ female voice"
}

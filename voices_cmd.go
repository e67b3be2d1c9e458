package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mamtil/speak/internal/tts"
	"github.com/mamtil/speak/internal/tts/engines"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
)

var (
	voiceMatch string

	voicesCmd = &cobra.Command{
		Use:     "voices",
		Short:   "List the local voices and how they are classified",
		Long:    paragraph(fmt.Sprintf("\nList the voices espeak-ng offers, the gender each one is %s as, and the voice used for each gender.", keyword("classified"))),
		Example: paragraph("speak voices\nspeak voices --match english"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			espeak := engines.NewEspeak(engines.EspeakConfig{
				Binary:  speechConfig.Local.Binary,
				Timeout: speechConfig.Local.Timeout,
			})
			selector, err := newSelector(cmd.Context(), espeak, speechConfig.Local)
			if err != nil {
				return err
			}

			chosen := map[string][]string{}
			for _, g := range []tts.Gender{tts.GenderFemale, tts.GenderMale} {
				if v, ok := selector.Voice(g); ok {
					chosen[v.ID] = append(chosen[v.ID], g.String()+" voice")
				}
			}

			return printVoices(os.Stdout, matchVoices(selector.Descriptors(), voiceMatch), chosen)
		},
	}
)

// voiceList adapts descriptors for fuzzy matching on id, name and locale.
type voiceList []tts.VoiceDescriptor

func (l voiceList) String(i int) string {
	return l[i].ID + " " + l[i].Name + " " + l[i].Locale
}

func (l voiceList) Len() int {
	return len(l)
}

// matchVoices returns the descriptors matching pattern, best match first.
// An empty pattern matches everything in the original order.
func matchVoices(descs []tts.VoiceDescriptor, pattern string) []tts.VoiceDescriptor {
	if pattern == "" {
		return descs
	}
	matches := fuzzy.FindFrom(pattern, voiceList(descs))
	out := make([]tts.VoiceDescriptor, 0, len(matches))
	for _, m := range matches {
		out = append(out, descs[m.Index])
	}
	return out
}

var chosenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)

// printVoices writes one line per voice. chosen maps voice ids to the roles
// they currently fill.
func printVoices(w io.Writer, descs []tts.VoiceDescriptor, chosen map[string][]string) error {
	if len(descs) == 0 {
		_, err := fmt.Fprintln(w, "No matching voices.")
		return err //nolint:wrapcheck
	}

	for _, d := range descs {
		line := fmt.Sprintf("%-20s %-8s %-8s %s", d.ID, d.Locale, d.InferredGender, d.Name)
		if roles := chosen[d.ID]; len(roles) > 0 {
			line = chosenStyle.Render(line + "  (" + strings.Join(roles, ", ") + ")")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err //nolint:wrapcheck
		}
	}
	return nil
}

func init() {
	voicesCmd.Flags().StringVarP(&voiceMatch, "match", "m", "", "fuzzy filter on voice id, name and locale")
}

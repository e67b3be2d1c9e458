// Package voices sorts a synthesis engine's voice list into female and male
// buckets so that a request's gender always resolves to a usable voice.
package voices

import (
	"strings"

	"github.com/mamtil/speak/internal/tts"
)

// Classifier infers the gender of a voice. Implementations are free to be
// wrong; the selector only needs a best effort.
type Classifier interface {
	Classify(v tts.Voice) tts.Gender
}

// Default name tokens. Matching is case-insensitive and by substring.
var (
	DefaultFemaleTokens = []string{
		"female", "zira", "lisa", "susan", "samantha", "victoria",
		"karen", "moira", "tessa", "fiona", "anna", "hazel", "heather",
		"linda", "helena", "amy", "kate", "serena", "alice",
	}
	DefaultMaleTokens = []string{
		"male", "david", "mark", "george", "daniel", "alex", "fred",
		"james", "richard", "thomas", "oliver", "paul", "ryan",
	}
)

// HeuristicClassifier matches voice names against token lists. Female tokens
// are checked first so that "male" never matches inside "female". When no
// token matches, the gender reported by the engine is used.
type HeuristicClassifier struct {
	female []string
	male   []string
}

// NewHeuristicClassifier creates a classifier. Nil or empty lists select the
// default tokens.
func NewHeuristicClassifier(female, male []string) *HeuristicClassifier {
	if len(female) == 0 {
		female = DefaultFemaleTokens
	}
	if len(male) == 0 {
		male = DefaultMaleTokens
	}
	return &HeuristicClassifier{
		female: lowerAll(female),
		male:   lowerAll(male),
	}
}

// Classify implements Classifier.
func (c *HeuristicClassifier) Classify(v tts.Voice) tts.Gender {
	if g := c.ByName(v.Name); g != tts.GenderUnknown {
		return g
	}
	return v.Reported
}

// ByName classifies a voice name by tokens alone.
func (c *HeuristicClassifier) ByName(name string) tts.Gender {
	name = strings.ToLower(name)
	if containsAny(name, c.female) {
		return tts.GenderFemale
	}
	// "female" contains "male"
	if containsAny(strings.ReplaceAll(name, "female", ""), c.male) {
		return tts.GenderMale
	}
	return tts.GenderUnknown
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

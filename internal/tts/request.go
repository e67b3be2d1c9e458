package tts

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultMaxChars is the default cap on the text of a single request.
const DefaultMaxChars = 500

// Request is one unit of text plus voice selection submitted for speech. It is
// built per user action and not retained after being handed to the Adapter.
type Request struct {
	Text   string
	Gender Gender
}

// NewRequest normalizes text and validates it against maxChars. A maxChars of
// zero or less means DefaultMaxChars.
func NewRequest(text string, gender Gender, maxChars int) (Request, error) {
	req := Request{Text: norm.NFC.String(text), Gender: gender}
	if err := req.Validate(maxChars); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate reports a ValidationError for blank text or text longer than
// maxChars characters.
func (r Request) Validate(maxChars int) error {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if strings.TrimSpace(r.Text) == "" {
		return &ValidationError{Err: ErrEmptyText}
	}
	if n := CharCount(r.Text); n > maxChars {
		return &ValidationError{Err: fmt.Errorf("%w: %d characters (max %d)", ErrTextTooLong, n, maxChars)}
	}
	if r.Gender != GenderFemale && r.Gender != GenderMale {
		return &ValidationError{Err: fmt.Errorf("%w: %s", ErrInvalidGender, r.Gender)}
	}
	return nil
}

// CharCount counts characters the way the input limit does.
func CharCount(text string) int {
	return utf8.RuneCountInString(norm.NFC.String(text))
}

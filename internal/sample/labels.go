// Package sample turns upload query parameters into validated labels and
// derives the storage key a sample is written under.
package sample

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/wakeword-data/wakeword-data/internal/reference"
	"github.com/wakeword-data/wakeword-data/internal/schema"
)

// Labels are the validated metadata of one sample.
type Labels struct {
	WakeWord string
	Negative bool
	Age      string
	Gender   string
	Language string
	Accent   string
}

// LanguageAccent returns "{language}_{accent}", or "" when neither is set.
func (l *Labels) LanguageAccent() string {
	if l.Language == "" || l.Accent == "" {
		return ""
	}
	return l.Language + "_" + l.Accent
}

// ValidationError is a rejected label. Payload is returned to the client as is.
type ValidationError struct {
	Payload schema.ErrorResponse
}

func (e *ValidationError) Error() string {
	if e.Payload.Received != nil {
		return fmt.Sprintf("%s: %v", e.Payload.Message, e.Payload.Received)
	}
	return e.Payload.Message
}

// Vocabulary decides which labels are acceptable.
type Vocabulary struct {
	positive map[string]bool
	negative map[string]bool
	tables   *reference.Tables
}

// NewVocabulary builds a Vocabulary. A word listed in both positive and
// negative is treated as negative.
func NewVocabulary(positive, negative []string, tables *reference.Tables) *Vocabulary {
	v := &Vocabulary{
		positive: make(map[string]bool, len(positive)),
		negative: make(map[string]bool, len(negative)),
		tables:   tables,
	}
	for _, w := range positive {
		v.positive[w] = true
	}
	for _, w := range negative {
		v.negative[w] = true
	}
	return v
}

// WakeWords returns every accepted wake word, sorted.
func (v *Vocabulary) WakeWords() []string {
	out := make([]string, 0, len(v.positive)+len(v.negative))
	for w := range v.positive {
		if !v.negative[w] {
			out = append(out, w)
		}
	}
	for w := range v.negative {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// IsNegative reports whether word is a decoy phrase.
func (v *Vocabulary) IsNegative(word string) bool {
	return v.negative[word]
}

// Parse validates the upload query in a fixed order and returns the first
// failure as a *ValidationError. Empty parameters count as absent.
func (v *Vocabulary) Parse(q url.Values) (*Labels, error) {
	wakeWord := q.Get("wake_word")
	if wakeWord == "" {
		return nil, invalid("missing wake_word", nil, nil)
	}
	if !v.positive[wakeWord] && !v.negative[wakeWord] {
		return nil, invalid("invalid wake_word", wakeWord, nil)
	}

	age := q.Get("age")
	if !v.tables.IsAge(age) {
		return nil, invalid("invalid age", age, v.tables.Ages())
	}

	gender := q.Get("gender")
	if gender == "" {
		gender = reference.DefaultGender
	}
	if !v.tables.IsGender(gender) {
		return nil, invalid("invalid gender", gender, v.tables.Genders())
	}

	language, accent := q.Get("language"), q.Get("accent")
	if (language == "") != (accent == "") {
		return nil, invalid("language and accent must be provided together", nil, nil)
	}
	if language != "" {
		if !v.tables.IsLanguage(language) {
			return nil, invalid("invalid language", language, v.tables.Languages())
		}
		if !v.tables.IsAccent(language, accent) {
			return nil, invalid(fmt.Sprintf("invalid accent for language %s", language), accent, v.tables.Accents(language))
		}
	}

	return &Labels{
		WakeWord: wakeWord,
		Negative: v.negative[wakeWord],
		Age:      age,
		Gender:   gender,
		Language: language,
		Accent:   accent,
	}, nil
}

func invalid(message string, received interface{}, allowed []string) *ValidationError {
	p := schema.ErrorResponse{Message: message, Received: received}
	if allowed != nil {
		p.Allowed = allowed
	}
	return &ValidationError{Payload: p}
}

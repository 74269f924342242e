// Package classifier detects greetings and overview requests so they can be
// answered without retrieval or generation.
package classifier

import (
	"strings"
	"unicode"
)

// Kind is the branch a query is dispatched to.
type Kind int

const (
	Substantive Kind = iota
	Greeting
	Overview
)

func (k Kind) String() string {
	switch k {
	case Greeting:
		return "greeting"
	case Overview:
		return "overview"
	default:
		return "substantive"
	}
}

// Rules holds the phrase tables used for classification.
type Rules struct {
	Greetings        []string
	MaxGreetingWords int
	OverviewPhrases  []string
	SmalltalkPhrases []string
	ShortOverview    []string
	MaxShortWords    int
}

// DefaultRules returns the built-in phrase tables.
func DefaultRules() Rules {
	return Rules{
		Greetings:        []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"},
		MaxGreetingWords: 5,
		OverviewPhrases: []string{
			"overview", "summary", "summarize", "summarise", "how is business",
			"how is the business", "how is the company doing", "status", "snapshot", "highlights",
		},
		SmalltalkPhrases: []string{"what's up", "how are you", "how's it going"},
		ShortOverview:    []string{"summary", "overview", "status", "update"},
		MaxShortWords:    4,
	}
}

var defaultRules = DefaultRules()

// Classify dispatches text with the default rules.
func Classify(text string) Kind {
	return defaultRules.Classify(text)
}

// Classify returns the branch for text. Greetings win over overview requests.
func (r Rules) Classify(text string) Kind {
	norm := Normalize(text)
	switch {
	case r.IsGreeting(norm):
		return Greeting
	case r.IsOverview(norm):
		return Overview
	default:
		return Substantive
	}
}

// IsGreeting reports whether the normalized text is a short greeting.
func (r Rules) IsGreeting(norm string) bool {
	if len(strings.Fields(norm)) > r.MaxGreetingWords {
		return false
	}
	for _, g := range r.Greetings {
		g = Normalize(g)
		if norm == g || strings.HasPrefix(norm, g+" ") {
			return true
		}
	}
	return false
}

// IsOverview reports whether the normalized text asks for a general overview or is smalltalk.
func (r Rules) IsOverview(norm string) bool {
	if norm == "" {
		return false
	}
	for _, list := range [][]string{r.OverviewPhrases, r.SmalltalkPhrases} {
		for _, phrase := range list {
			if strings.Contains(norm, Normalize(phrase)) {
				return true
			}
		}
	}

	words := strings.Fields(norm)
	if len(words) > r.MaxShortWords {
		return false
	}
	for _, w := range words {
		for _, kw := range r.ShortOverview {
			if w == kw {
				return true
			}
		}
	}
	return false
}

// Normalize lowercases text and keeps only letters and whitespace.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

package textnorm

import (
	"strings"
	"unicode"
)

// Normalizer standardizes free-form symptom text before it reaches the
// scoring engine. The same transform is applied to knowledge base terms,
// fallback dataset rows and user queries so that token comparisons line up.
type Normalizer struct{}

// New creates a new text normalizer
func New() *Normalizer {
	return &Normalizer{}
}

// Normalize lowercases the input, converts underscores to spaces, strips
// everything that is not a letter, digit or space and collapses whitespace.
// An empty result is valid and short-circuits scoring upstream.
func (n *Normalizer) Normalize(raw string) string {
	lowered := strings.ToLower(raw)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '_' || unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			// Punctuation becomes a separator, not a deletion, so
			// "fever,chills" still tokenizes into two symptoms.
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Term normalizes a single identifier-like term (condition name, symptom
// phrase). Unlike Normalize it does not strip punctuation; names coming out
// of the knowledge base only need case folding and underscore handling.
func Term(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

package followup

import "strings"

// Answer is a canonical answer category for a follow-up question.
type Answer string

const (
	AnswerYes        Answer = "yes"
	AnswerNo         Answer = "no"
	AnswerPartialYes Answer = "partial_yes"
)

// NormalizeAnswer maps free-form user text to a canonical answer category.
// Matching is exact on the trimmed, lowercased input; substring heuristics
// are deliberately absent because a token containing "no" (e.g. "know")
// must never be misread as a negative answer. Anything unrecognized is a
// partial yes: a wrong "maybe" is safer than a wrong "no".
func NormalizeAnswer(raw string) Answer {
	s := strings.ToLower(strings.TrimSpace(raw))

	switch s {
	case "y", "yes", "true", "1", "yep", "yeah",
		"نعم", "ايوه", "ايوا":
		return AnswerYes
	case "n", "no", "false", "0",
		"لا", "لأ", "لاا":
		return AnswerNo
	case "maybe", "not sure", "sometimes", "a bit", "partially", "partial",
		"i don't know", "لا اعرف", "مش عارف", "ربما", "ممكن", "قد":
		return AnswerPartialYes
	}

	return AnswerPartialYes
}

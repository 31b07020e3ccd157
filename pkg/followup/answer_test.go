package followup

import (
	"testing"
)

func TestNormalizeAnswer(t *testing.T) {
	tests := []struct {
		raw  string
		want Answer
	}{
		{"yes", AnswerYes},
		{"Y", AnswerYes},
		{"TRUE", AnswerYes},
		{"1", AnswerYes},
		{"yep", AnswerYes},
		{" yeah ", AnswerYes},
		{"نعم", AnswerYes},

		{"no", AnswerNo},
		{"N", AnswerNo},
		{"false", AnswerNo},
		{"0", AnswerNo},
		{"لا", AnswerNo},

		{"maybe", AnswerPartialYes},
		{"not sure", AnswerPartialYes},
		{"sometimes", AnswerPartialYes},
		{"a bit", AnswerPartialYes},
		{"partially", AnswerPartialYes},
		{"i don't know", AnswerPartialYes},
		{"مش عارف", AnswerPartialYes},

		// Unrecognized input must never be coerced to no: "know" and
		// "nothing serious" contain "no" as a substring.
		{"know", AnswerPartialYes},
		{"nothing serious", AnswerPartialYes},
		{"i guess so?", AnswerPartialYes},
		{"", AnswerPartialYes},
		{"42 reasons", AnswerPartialYes},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := NormalizeAnswer(tt.raw); got != tt.want {
				t.Errorf("NormalizeAnswer(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

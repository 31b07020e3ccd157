package textnorm

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "lowercases and trims",
			raw:  "  High Fever  ",
			want: "high fever",
		},
		{
			name: "underscores become spaces",
			raw:  "joint_pain and skin_rash",
			want: "joint pain and skin rash",
		},
		{
			name: "punctuation separates tokens",
			raw:  "fever,chills.headache!",
			want: "fever chills headache",
		},
		{
			name: "collapses whitespace",
			raw:  "fever \t\n  and   chills",
			want: "fever and chills",
		},
		{
			name: "empty input",
			raw:  "",
			want: "",
		},
		{
			name: "only punctuation",
			raw:  "?!...",
			want: "",
		},
		{
			name: "digits survive",
			raw:  "fever for 3 days",
			want: "fever for 3 days",
		},
		{
			name: "non-latin letters survive",
			raw:  "صداع شديد",
			want: "صداع شديد",
		},
	}

	n := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(tt.raw)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestTerm(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Flu ", "flu"},
		{"High_Fever", "high fever"},
		{"common  cold", "common cold"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Term(tt.in); got != tt.want {
				t.Errorf("Term(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

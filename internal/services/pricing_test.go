package services

import (
	"math"
	"testing"
)

func TestCountCharacters(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"hello", 5},
		{"héllo wörld", 11},
		{"日本語", 3},
	}
	for _, c := range cases {
		if got := CountCharacters(c.text); got != c.want {
			t.Errorf("CountCharacters(%q) = %d, want %d", c.text, got, c.want)
		}
	}
}

func TestEstimateCost(t *testing.T) {
	cases := []struct {
		chars int64
		model string
		want  float64
	}{
		{1_000_000, "tts-1", 15.0},
		{1_000_000, "tts-1-hd", 30.0},
		{1_000_000, "something-new", 30.0}, // unknown models priced at the HD rate
		{0, "tts-1", 0},
		{1000, "tts-1", 0.015},
	}
	for _, c := range cases {
		got := EstimateCost(c.chars, c.model)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("EstimateCost(%d, %q) = %v, want %v", c.chars, c.model, got, c.want)
		}
	}
}

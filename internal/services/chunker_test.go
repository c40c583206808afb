package services

import (
	"strings"
	"testing"
)

func reassemble(chunks []TextChunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text)
	}
	return b.String()
}

func TestSplitTextShortInput(t *testing.T) {
	text := "Hello, world."
	chunks := SplitText(text, 3800)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text {
		t.Errorf("expected chunk to equal input, got %q", chunks[0].Text)
	}
	if chunks[0].Index != 0 {
		t.Errorf("expected index 0, got %d", chunks[0].Index)
	}
}

func TestSplitTextEmptyInput(t *testing.T) {
	if chunks := SplitText("", 3800); chunks != nil {
		t.Errorf("expected nil for empty input, got %v", chunks)
	}
	if chunks := SplitText("some text", 0); chunks != nil {
		t.Errorf("expected nil for zero max size, got %v", chunks)
	}
}

func TestSplitTextReconstruction(t *testing.T) {
	inputs := []string{
		"One sentence. Another sentence! A third? And a fourth.",
		"Line one.\nLine two.\nLine three with more words in it.",
		"No sentence delimiters here just a long run of words that keeps going and going",
		"Mixed    whitespace\t\tand   runs. Second sentence here.",
		"Unicode: héllo wörld, naïve café. Ещё одно предложение. 日本語のテキストもある。",
	}

	for _, input := range inputs {
		for _, max := range []int{5, 10, 25, 100} {
			chunks := SplitText(input, max)
			if got := reassemble(chunks); got != input {
				t.Errorf("max=%d: reassembled text differs\n got: %q\nwant: %q", max, got, input)
			}
			for _, c := range chunks {
				if c.Text == "" {
					t.Errorf("max=%d: empty chunk at index %d", max, c.Index)
				}
				if n := len([]rune(c.Text)); n > max {
					t.Errorf("max=%d: chunk %d has %d runes", max, c.Index, n)
				}
			}
		}
	}
}

func TestSplitTextIndexesAreOrdered(t *testing.T) {
	chunks := SplitText(strings.Repeat("A short sentence. ", 20), 50)
	for i, c := range chunks {
		if c.Index != i {
			t.Fatalf("chunk %d has index %d", i, c.Index)
		}
	}
}

func TestSplitTextPrefersSentenceBoundaries(t *testing.T) {
	text := "First sentence here. Second sentence here. Third sentence here."
	chunks := SplitText(text, 45)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// Every chunk except the last should end on a sentence boundary.
	for _, c := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(c.Text, ". ") {
			t.Errorf("chunk %d does not end at a sentence boundary: %q", c.Index, c.Text)
		}
	}
}

func TestSplitTextLargeInput(t *testing.T) {
	// 216 copies of a 44-rune sentence, 9504 runes total.
	sentence := "This is a filler sentence for the splitter. "
	text := strings.Repeat(sentence, 216)

	chunks := SplitText(text, 3800)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks for %d runes, got %d", len([]rune(text)), len(chunks))
	}
	if got := reassemble(chunks); got != text {
		t.Error("reassembled text differs from input")
	}
	for _, c := range chunks {
		if n := len([]rune(c.Text)); n > 3800 {
			t.Errorf("chunk %d has %d runes", c.Index, n)
		}
	}
}

func TestSplitTextOversizedWord(t *testing.T) {
	word := strings.Repeat("x", 50)
	chunks := SplitText(word, 20)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0].Text) != 20 || len(chunks[1].Text) != 20 || len(chunks[2].Text) != 10 {
		t.Errorf("unexpected chunk sizes: %d, %d, %d",
			len(chunks[0].Text), len(chunks[1].Text), len(chunks[2].Text))
	}
	if got := reassemble(chunks); got != word {
		t.Error("reassembled text differs from input")
	}
}

func TestSplitTextWordFallback(t *testing.T) {
	// A single sentence longer than the limit must fall back to words.
	text := "alpha beta gamma delta epsilon zeta eta theta"
	chunks := SplitText(text, 12)

	if got := reassemble(chunks); got != text {
		t.Fatalf("reassembled text differs\n got: %q\nwant: %q", got, text)
	}
	for _, c := range chunks {
		if len([]rune(c.Text)) > 12 {
			t.Errorf("chunk %d too long: %q", c.Index, c.Text)
		}
	}
}

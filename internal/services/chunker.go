package services

import "unicode"

// ---------------------------------------------------------------------------
// Text chunker
// Splits input into provider-sized pieces, preferring sentence boundaries
// and falling back to word boundaries. Chunks are exact substrings of the
// input, so concatenating them in order reproduces it byte-for-byte.
// Sizes are measured in runes so a UTF-8 sequence is never cut mid-codepoint.
// ---------------------------------------------------------------------------

// TextChunk is one ordered piece of the original input.
type TextChunk struct {
	Index int
	Text  string
}

// sentenceEnd returns the index just past the earliest sentence-ending
// delimiter (./!/? followed by a space or newline), or len(text) when the
// remainder holds no delimiter.
func sentenceEnd(text []rune) int {
	for i := 0; i+1 < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' || text[i+1] == '\n' {
				return i + 2
			}
		}
	}
	return len(text)
}

// wordTokens cuts a sentence at word boundaries, keeping each word's
// trailing whitespace run attached so the pieces stay exact substrings.
func wordTokens(sentence []rune) [][]rune {
	var tokens [][]rune
	i := 0
	for i < len(sentence) {
		start := i
		for i < len(sentence) && !unicode.IsSpace(sentence[i]) {
			i++
		}
		for i < len(sentence) && unicode.IsSpace(sentence[i]) {
			i++
		}
		tokens = append(tokens, sentence[start:i])
	}
	return tokens
}

// SplitText splits text into ordered chunks of at most maxChunkSize runes.
// Whole sentences are packed greedily; a sentence that alone exceeds the
// limit is packed word by word, and a single oversized word is hard-split
// at the limit. No emitted chunk is empty.
func SplitText(text string, maxChunkSize int) []TextChunk {
	if maxChunkSize <= 0 || text == "" {
		return nil
	}

	var pieces []string
	var current []rune

	emit := func() {
		if len(current) > 0 {
			pieces = append(pieces, string(current))
			current = nil
		}
	}

	rest := []rune(text)
	for len(rest) > 0 {
		end := sentenceEnd(rest)
		sentence := rest[:end]
		rest = rest[end:]

		if len(current) > 0 && len(current)+len(sentence) > maxChunkSize {
			emit()
		}

		if len(sentence) <= maxChunkSize {
			current = append(current, sentence...)
			continue
		}

		for _, tok := range wordTokens(sentence) {
			if len(current)+len(tok) > maxChunkSize {
				emit()
			}
			for len(tok) > maxChunkSize {
				pieces = append(pieces, string(tok[:maxChunkSize]))
				tok = tok[maxChunkSize:]
			}
			current = append(current, tok...)
		}
	}
	emit()

	chunks := make([]TextChunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = TextChunk{Index: i, Text: p}
	}
	return chunks
}

package services

// Per-character USD rates for pay-per-use synthesis.
const (
	costPerCharStandard = 0.000015 // $15 per 1M characters (tts-1)
	costPerCharHD       = 0.00003  // $30 per 1M characters (tts-1-hd)
)

// CountCharacters returns the billable length of text in runes, the same
// unit the chunker and usage records use.
func CountCharacters(text string) int {
	return len([]rune(text))
}

// EstimateCost returns the estimated USD cost of synthesizing
// characterCount characters with the given model. Unrecognized models are
// priced at the HD rate so the estimate errs high.
func EstimateCost(characterCount int64, modelID string) float64 {
	switch modelID {
	case "tts-1":
		return float64(characterCount) * costPerCharStandard
	default:
		return float64(characterCount) * costPerCharHD
	}
}

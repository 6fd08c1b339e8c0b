package openai

// maxExtractionChars caps the text sent to the extraction model. Chunks are
// normally well under this; the cap guards against oversized custom chunks.
const maxExtractionChars = 8000

// truncateForPrompt trims text to the extraction size cap on a rune boundary.
func truncateForPrompt(s string) string {
	if len(s) <= maxExtractionChars {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxExtractionChars {
		return s
	}
	return string(runes[:maxExtractionChars])
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

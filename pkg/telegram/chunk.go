package telegram

// MaxMessageLength is the platform limit for a single text message.
const MaxMessageLength = 4096

// Chunk splits text into ordered segments of at most MaxMessageLength
// characters. Slicing is raw (no word-boundary awareness) but rune-safe,
// so segments concatenate back to exactly the original text. Empty input
// yields no segments.
func Chunk(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+MaxMessageLength-1)/MaxMessageLength)
	for start := 0; start < len(runes); start += MaxMessageLength {
		end := start + MaxMessageLength
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

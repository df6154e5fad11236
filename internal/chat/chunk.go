package chat

// ChunkSize is the number of characters per simulated token. The upstream
// backend is asked for a full completion; the streaming endpoint re-chunks it
// at this granularity.
const ChunkSize = 40

// Chunks splits text into contiguous pieces of at most size runes each,
// preserving order and exact content. Splitting on rune boundaries keeps
// multi-byte characters intact; concatenating the pieces reproduces the
// input byte-for-byte.
func Chunks(text string, size int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = ChunkSize
	}

	runes := []rune(text)
	pieces := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}

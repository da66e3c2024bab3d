package knowledge

import (
	"regexp"
	"strings"
)

// Default chunking geometry. Windows of ~900 characters with a 200-character
// overlap keep individual chunks within embedding token limits while
// preserving context across chunk borders.
const (
	DefaultChunkLength  = 900
	DefaultChunkOverlap = 200
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// ChunkText splits text into overlapping windows of at most chunkLength
// characters. Whitespace runs are collapsed first. When a window would cut
// mid-sentence, the split backs up to the last ". " past the window's
// midpoint so chunks tend to end on sentence boundaries.
func ChunkText(text string, chunkLength, overlap int) []string {
	if chunkLength <= 0 {
		chunkLength = DefaultChunkLength
	}
	if overlap < 0 {
		overlap = 0
	}

	normalised := whitespacePattern.ReplaceAllString(strings.TrimSpace(text), " ")
	if normalised == "" {
		return nil
	}

	var chunks []string
	start := 0
	length := len(normalised)
	for start < length {
		end := min(start+chunkLength, length)
		if end < length {
			if brk := strings.LastIndex(normalised[start:end], ". "); brk > chunkLength/2 {
				end = start + brk + 1
			}
		}
		if chunk := strings.TrimSpace(normalised[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= length {
			break
		}
		next := end
		if overlap > 0 {
			next = max(end-overlap, 0)
		}
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

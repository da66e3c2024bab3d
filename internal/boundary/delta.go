package boundary

import "strings"

// DeltaExtractor computes the genuinely-new text added between successive
// transcripts of the same utterance window.
//
// Chunk-based transcription backends are messy: some return a cumulative
// string that grows with every call, others return independent windows that
// overlap the previous result at either end. The extractor absorbs both by
// stripping a verbatim prefix when the new transcript extends the old one,
// and otherwise removing the longest suffix of the previous transcript that
// reappears as a prefix of the current one.
//
// A DeltaExtractor is stateful and owned by exactly one session loop. It is
// not safe for concurrent use.
type DeltaExtractor struct {
	previous string
}

// NewDeltaExtractor returns an extractor seeded with the transcript text seen
// so far for the session, typically empty for a fresh session or the stored
// transcript when resuming one.
func NewDeltaExtractor(previous string) *DeltaExtractor {
	return &DeltaExtractor{previous: previous}
}

// ExtractNew returns the text in raw that has not been seen in a previous
// call, trimmed of surrounding whitespace. An empty (or all-whitespace) raw
// returns "" and leaves the stored transcript untouched. In every other case
// the trimmed raw replaces the stored transcript, even when the delta itself
// comes out empty.
func (d *DeltaExtractor) ExtractNew(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return ""
	}

	previous := strings.TrimSpace(d.previous)
	addition := cleaned
	switch {
	case previous != "" && strings.HasPrefix(cleaned, previous):
		addition = strings.TrimSpace(cleaned[len(previous):])
	case previous != "":
		k := longestOverlap(previous, cleaned)
		addition = strings.TrimSpace(cleaned[k:])
	}

	d.previous = cleaned
	return addition
}

// Reset replaces the stored transcript, discarding overlap history. Used when
// the session loop switches to a different conversation.
func (d *DeltaExtractor) Reset(previous string) {
	d.previous = previous
}

// Previous returns the stored transcript, for persisting session state before
// a switch.
func (d *DeltaExtractor) Previous() string {
	return d.previous
}

// longestOverlap returns the length of the longest suffix of previous that is
// also a prefix of current. Quadratic in the shorter string, which is fine for
// the short utterance windows produced by chunked Q&A transcription.
func longestOverlap(previous, current string) int {
	max := min(len(previous), len(current))
	for size := max; size >= 1; size-- {
		if strings.HasSuffix(previous, current[:size]) {
			return size
		}
	}
	return 0
}

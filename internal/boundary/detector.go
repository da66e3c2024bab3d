// Package boundary decides when a spoken question has ended.
//
// The input is a stream of per-chunk observations: the chunk's RMS loudness,
// its duration, and whatever new transcript text arrived with it (already
// de-duplicated by a [DeltaExtractor]). There is no hard delimiter in the
// signal — the [Detector] accumulates text while speech is loud, counts
// contiguous silence once accumulation has started, and commits the buffered
// text as a question when enough silence follows something that reads like a
// question. A word-count safety valve bounds the buffer when silence never
// comes.
//
// Detector and DeltaExtractor instances belong to a single session loop and
// must be driven from one goroutine; neither takes locks.
package boundary

import (
	"math"
	"regexp"
	"strings"
)

// Defaults applied by NewDetector when the corresponding Config field is zero.
const (
	DefaultMinQuestionWords  = 4
	DefaultSpeechThreshold   = 0.012
	DefaultMinSilenceSeconds = 0.7
	DefaultMaxBufferWords    = 120
)

// DefaultOpeners are the phrases that make accumulated text read like a
// question when found anywhere in it (and mark accumulation active when the
// text starts with one). Matching is case-insensitive.
var DefaultOpeners = []string{
	"what", "why", "how", "when", "where", "who", "which",
	"tell me", "could you", "would you", "do you", "can you",
	"walk me", "share", "describe",
}

// DefaultClosers are the trailing words that mark a sentence as a finished
// question even without a question mark ("...that makes sense, right").
var DefaultClosers = []string{"right", "correct", "okay", "ok", "yeah", "please"}

// Config carries the detector thresholds and lexicons. The lexicons are
// copied at construction and never mutated afterwards.
type Config struct {
	// MinQuestionWords is the minimum word count before unpunctuated text can
	// be considered a complete question.
	MinQuestionWords int

	// SpeechThreshold is the RMS loudness at or above which a chunk counts as
	// speech. Loudness is normalised to [0, 1] for float PCM capture.
	SpeechThreshold float64

	// MinSilenceSeconds is the contiguous silence required after accumulated
	// text before a commit is attempted.
	MinSilenceSeconds float64

	// MaxBufferWords forces a commit once the accumulated text reaches this
	// word count, regardless of silence.
	MaxBufferWords int

	// Openers overrides DefaultOpeners when non-nil.
	Openers []string

	// Closers overrides DefaultClosers when non-nil.
	Closers []string
}

// state is the detector's accumulation phase. Commit is not a state: a commit
// returns the detector to idle within the same Observe call.
type state int

const (
	stateIdle state = iota
	stateAccumulating
)

// wordPattern matches one run of word characters; the number of matches in a
// string is its word count.
var wordPattern = regexp.MustCompile(`\w+`)

// Detector is the per-session question boundary state machine. Create one
// with NewDetector, feed it observations via Observe, and Reset it on session
// switches. Not safe for concurrent use.
type Detector struct {
	minQuestionWords  int
	speechThreshold   float64
	minSilenceSeconds float64
	maxBufferWords    int
	openers           []string
	closers           []string

	st               state
	segments         []string
	explicitQuestion bool
	silenceSeconds   float64
}

// NewDetector creates a Detector, filling in defaults for any zero Config
// field. The zero Config is fully usable.
func NewDetector(cfg Config) *Detector {
	d := &Detector{
		minQuestionWords:  cfg.MinQuestionWords,
		speechThreshold:   cfg.SpeechThreshold,
		minSilenceSeconds: cfg.MinSilenceSeconds,
		maxBufferWords:    cfg.MaxBufferWords,
	}
	if d.minQuestionWords <= 0 {
		d.minQuestionWords = DefaultMinQuestionWords
	}
	if d.speechThreshold <= 0 {
		d.speechThreshold = DefaultSpeechThreshold
	}
	if d.minSilenceSeconds <= 0 {
		d.minSilenceSeconds = DefaultMinSilenceSeconds
	}
	if d.maxBufferWords <= 0 {
		d.maxBufferWords = DefaultMaxBufferWords
	}
	d.openers = append([]string(nil), cfg.Openers...)
	if d.openers == nil {
		d.openers = append([]string(nil), DefaultOpeners...)
	}
	d.closers = append([]string(nil), cfg.Closers...)
	if d.closers == nil {
		d.closers = append([]string(nil), DefaultClosers...)
	}
	return d
}

// Observe feeds one audio chunk's loudness, duration in seconds, and newly
// added transcript text into the detector. When the detector concludes the
// speaker has finished a question it returns the accumulated text and true,
// resetting itself for the next question; otherwise it returns "" and false.
//
// Degenerate inputs never fail: empty text is simply not accumulated and a
// negative duration contributes no silence.
func (d *Detector) Observe(loudness, durationSeconds float64, textAddition string) (string, bool) {
	if addition := strings.TrimSpace(textAddition); addition != "" {
		d.segments = append(d.segments, addition)
		d.st = stateAccumulating
		if strings.Contains(addition, "?") {
			d.explicitQuestion = true
		}
	}

	text := d.currentText()

	if loudness >= d.speechThreshold {
		d.silenceSeconds = 0
	} else if d.st == stateAccumulating {
		d.silenceSeconds += math.Max(durationSeconds, 0)
	}

	if text == "" {
		return "", false
	}

	// Re-entry guard: text can be present while idle only after external
	// state manipulation, but an obvious question opening still activates.
	if d.st == stateIdle && d.looksLikeQuestionStart(text) {
		d.st = stateAccumulating
	}

	if d.silenceSeconds >= d.minSilenceSeconds && d.readyToCommit(false) {
		return d.commit()
	}

	if d.readyToCommit(true) && wordCount(text) >= d.maxBufferWords {
		return d.commit()
	}

	return "", false
}

// Reset returns the detector to its initial idle state, discarding any
// uncommitted accumulation. Safe to call at any time; calling it repeatedly
// is a no-op.
func (d *Detector) Reset() {
	d.st = stateIdle
	d.segments = nil
	d.explicitQuestion = false
	d.silenceSeconds = 0
}

// currentText joins the accumulated segments in arrival order.
func (d *Detector) currentText() string {
	return strings.TrimSpace(strings.Join(d.segments, " "))
}

// commit finalises the accumulated text and resets all state atomically.
func (d *Detector) commit() (string, bool) {
	text := d.currentText()
	d.Reset()
	if text == "" {
		return "", false
	}
	return text, true
}

// looksLikeQuestionStart reports whether text begins with one of the opener
// phrases, ignoring case.
func (d *Detector) looksLikeQuestionStart(text string) bool {
	normalised := strings.ToLower(text)
	for _, prefix := range d.openers {
		if strings.HasPrefix(normalised, prefix) {
			return true
		}
	}
	return false
}

// readyToCommit reports whether the accumulated text reads like a finished
// question. In forced mode the word-count floor replaces the lexical cues, so
// a long enough buffer commits even without any question shape.
func (d *Detector) readyToCommit(force bool) bool {
	text := d.currentText()
	if text == "" {
		return false
	}

	words := wordCount(text)
	if !force && words < d.minQuestionWords && !d.explicitQuestion {
		return false
	}

	normalised := strings.TrimRightFunc(strings.ToLower(text), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if strings.HasSuffix(normalised, "?") {
		return true
	}
	for _, suffix := range d.closers {
		if strings.HasSuffix(normalised, suffix) {
			return true
		}
	}
	for _, prefix := range d.openers {
		if strings.Contains(normalised, prefix) {
			return true
		}
	}
	if d.explicitQuestion {
		return true
	}

	return force && words >= d.minQuestionWords
}

// wordCount counts runs of word characters in text.
func wordCount(text string) int {
	return len(wordPattern.FindAllString(text, -1))
}

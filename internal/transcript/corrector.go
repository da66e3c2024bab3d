// Package transcript fixes speech-to-text errors in domain vocabulary.
//
// Live transcription mangles the proper nouns that matter most in an
// interview or meeting: product names, technologies, company names. The
// [Corrector] aligns misheard words with a user-supplied vocabulary using
// Double Metaphone phonetic codes for candidate filtering and Jaro-Winkler
// similarity for ranking. Everything runs in-process, so correction adds no
// latency worth measuring to the transcription loop.
//
// Each [Correction] records the heard text, the applied term, and the
// similarity score, so callers can surface or audit substitutions.
package transcript

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.88
)

// Correction is a single substitution applied to a transcript.
type Correction struct {
	// Heard is the text as produced by the STT provider.
	Heard string

	// Applied is the vocabulary term that replaced it.
	Applied string

	// Confidence is the Jaro-Winkler similarity of the pair (0.0 to 1.0).
	Confidence float64
}

// term is a vocabulary entry with its precomputed phonetic codes.
type term struct {
	original string
	lower    string
	tokens   []string
	codes    map[string]struct{}
}

// Option configures a [Corrector].
type Option func(*Corrector)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched term to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(c *Corrector) {
		c.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic candidate exists and the corrector falls back to pure string
// similarity. Default: 0.88.
func WithFuzzyThreshold(threshold float64) Option {
	return func(c *Corrector) {
		c.fuzzyThreshold = threshold
	}
}

// Corrector aligns transcript words with a fixed vocabulary. It is read-only
// after construction and safe for concurrent use.
type Corrector struct {
	terms             []term
	maxTermWords      int
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// NewCorrector builds a Corrector over vocabulary. Phonetic codes for every
// term are computed once here, not per call. Blank vocabulary entries are
// ignored; an empty vocabulary yields a corrector that passes text through.
func NewCorrector(vocabulary []string, opts ...Option) *Corrector {
	c := &Corrector{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(c)
	}

	for _, v := range vocabulary {
		lower := strings.ToLower(strings.TrimSpace(v))
		if lower == "" {
			continue
		}
		tokens := strings.Fields(lower)
		c.terms = append(c.terms, term{
			original: strings.TrimSpace(v),
			lower:    lower,
			tokens:   tokens,
			codes:    codesForTokens(tokens),
		})
		if len(tokens) > c.maxTermWords {
			c.maxTermWords = len(tokens)
		}
	}
	return c
}

// Correct scans text for words and n-gram windows that phonetically match a
// vocabulary term and replaces them. Longer windows win over shorter ones so
// multi-word terms take precedence. Exact matches (ignoring case) are left
// alone. Returns the corrected text and the substitutions applied.
func (c *Corrector) Correct(text string) (string, []Correction) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 || len(c.terms) == 0 {
		return text, nil
	}

	var (
		output      []string
		corrections []Correction
	)

	i := 0
	for i < len(tokens) {
		maxN := min(c.maxTermWords, len(tokens)-i)

		matched := false
		for n := maxN; n >= 1; n-- {
			window := strings.Join(tokens[i:i+n], " ")
			applied, conf, ok := c.match(window)
			if !ok {
				continue
			}
			output = append(output, strings.Fields(applied)...)
			if !strings.EqualFold(window, applied) {
				corrections = append(corrections, Correction{
					Heard:      window,
					Applied:    applied,
					Confidence: conf,
				})
			}
			i += n
			matched = true
			break
		}
		if !matched {
			output = append(output, tokens[i])
			i++
		}
	}

	return strings.Join(output, " "), corrections
}

// match finds the vocabulary term most similar to window. Terms that share a
// phonetic code with the window are ranked first; when none do, a stricter
// pure-similarity pass runs instead.
func (c *Corrector) match(window string) (applied string, confidence float64, matched bool) {
	core := strings.TrimRight(window, ".,!?;:")
	suffix := window[len(core):]
	trimmed := strings.ToLower(core)
	if trimmed == "" {
		return window, 0, false
	}
	windowTokens := strings.Fields(trimmed)
	windowCodes := codesForTokens(windowTokens)

	var (
		bestTerm     string
		bestScore    float64
		bestPhonetic bool
	)

	for _, t := range c.terms {
		if trimmed == t.lower {
			// Already correct; consume the window so a shorter, fuzzier
			// match cannot mangle part of it.
			return t.original + suffix, 1, true
		}

		phonetic := codesOverlap(windowCodes, t.codes)
		score := bestSimilarity(windowTokens, t.tokens, trimmed, t.lower)

		// A phonetic candidate always outranks a purely fuzzy one.
		if phonetic != bestPhonetic {
			if phonetic && score >= c.phoneticThreshold {
				bestTerm, bestScore, bestPhonetic = t.original, score, true
			}
			continue
		}
		if score <= bestScore {
			continue
		}
		threshold := c.fuzzyThreshold
		if phonetic {
			threshold = c.phoneticThreshold
		}
		if score >= threshold {
			bestTerm, bestScore, bestPhonetic = t.original, score, phonetic
		}
	}

	if bestTerm == "" {
		return window, 0, false
	}
	return bestTerm + suffix, bestScore, true
}

// bestSimilarity scores a window against a term and keeps the higher of two
// strategies: full strings, and space-stripped concatenations (catches
// "lang chain" heard for "langchain"). Scoring whole strings only keeps a
// window that merely shares one word with a multi-word term from consuming
// its neighbours.
func bestSimilarity(windowTokens, termTokens []string, windowFull, termFull string) float64 {
	score := matchr.JaroWinkler(windowFull, termFull, false)

	if len(windowTokens) > 1 || len(termTokens) > 1 {
		joined := matchr.JaroWinkler(
			strings.Join(windowTokens, ""),
			strings.Join(termTokens, ""),
			false,
		)
		if joined > score {
			score = joined
		}
	}
	return score
}

// codesForTokens collects primary and secondary Double Metaphone codes for
// the tokens. Empty codes are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

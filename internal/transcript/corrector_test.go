package transcript

import (
	"testing"
)

func TestCorrectEmptyInput(t *testing.T) {
	t.Parallel()

	c := NewCorrector([]string{"Kafka"})
	got, corrections := c.Correct("")
	if got != "" || corrections != nil {
		t.Errorf("expected empty passthrough, got %q with %v", got, corrections)
	}
}

func TestCorrectEmptyVocabularyPassesThrough(t *testing.T) {
	t.Parallel()

	c := NewCorrector(nil)
	got, corrections := c.Correct("tell me about your last project")
	if got != "tell me about your last project" {
		t.Errorf("text changed without vocabulary: %q", got)
	}
	if len(corrections) != 0 {
		t.Errorf("unexpected corrections: %v", corrections)
	}
}

func TestCorrectPhoneticSubstitution(t *testing.T) {
	t.Parallel()

	c := NewCorrector([]string{"Smith"})
	got, corrections := c.Correct("please ask smyth about it")
	if got != "please ask Smith about it" {
		t.Errorf("got %q", got)
	}
	if len(corrections) != 1 {
		t.Fatalf("expected 1 correction, got %v", corrections)
	}
	if corrections[0].Heard != "smyth" || corrections[0].Applied != "Smith" {
		t.Errorf("correction = %+v", corrections[0])
	}
	if corrections[0].Confidence <= 0 || corrections[0].Confidence > 1 {
		t.Errorf("confidence out of range: %f", corrections[0].Confidence)
	}
}

func TestCorrectPreservesTrailingPunctuation(t *testing.T) {
	t.Parallel()

	// A committed question keeps its question mark through correction,
	// otherwise downstream boundary detection would misread it.
	c := NewCorrector([]string{"Postgres"})
	got, corrections := c.Correct("have you used postgress?")
	if got != "have you used Postgres?" {
		t.Errorf("got %q", got)
	}
	if len(corrections) != 1 || corrections[0].Applied != "Postgres?" {
		t.Errorf("corrections = %v", corrections)
	}
}

func TestCorrectExactMatchCanonicalisesWithoutRecording(t *testing.T) {
	t.Parallel()

	c := NewCorrector([]string{"Kafka"})
	got, corrections := c.Correct("we stream events through kafka daily")
	if got != "we stream events through Kafka daily" {
		t.Errorf("got %q", got)
	}
	if len(corrections) != 0 {
		t.Errorf("exact match should not be recorded as a correction: %v", corrections)
	}
}

func TestCorrectMultiWordTerm(t *testing.T) {
	t.Parallel()

	c := NewCorrector([]string{"Jaro Winkler"})
	got, corrections := c.Correct("we rank with jarrow winkler distance")
	if got != "we rank with Jaro Winkler distance" {
		t.Errorf("got %q", got)
	}
	if len(corrections) != 1 {
		t.Fatalf("expected 1 correction, got %v", corrections)
	}
	if corrections[0].Heard != "jarrow winkler" {
		t.Errorf("heard = %q, want the full two-word window", corrections[0].Heard)
	}
}

func TestCorrectLeavesUnrelatedWordsAlone(t *testing.T) {
	t.Parallel()

	c := NewCorrector([]string{"Kubernetes"})
	got, corrections := c.Correct("the weather is lovely today")
	if got != "the weather is lovely today" {
		t.Errorf("got %q", got)
	}
	if len(corrections) != 0 {
		t.Errorf("unexpected corrections: %v", corrections)
	}
}

func TestCorrectSkipsBlankVocabularyEntries(t *testing.T) {
	t.Parallel()

	c := NewCorrector([]string{"", "   ", "Smith"})
	got, _ := c.Correct("smyth")
	if got != "Smith" {
		t.Errorf("got %q", got)
	}
}

func TestCorrectFuzzyThresholdRejectsWeakMatches(t *testing.T) {
	t.Parallel()

	// With an impossible threshold nothing may be substituted.
	c := NewCorrector([]string{"Smith"},
		WithPhoneticThreshold(1.01), WithFuzzyThreshold(1.01))
	got, corrections := c.Correct("ask smyth about it")
	if got != "ask smyth about it" {
		t.Errorf("got %q", got)
	}
	if len(corrections) != 0 {
		t.Errorf("unexpected corrections: %v", corrections)
	}
}

package boundary

import (
	"fmt"
	"strings"
	"testing"
)

func TestObserve_NoCommitWhileSpeaking(t *testing.T) {
	t.Parallel()

	d := NewDetector(Config{MinSilenceSeconds: 0.5})

	got, ok := d.Observe(0.05, 0.8, "Can you share your favorite leadership win")
	if ok {
		t.Errorf("expected no commit during loud speech, got %q", got)
	}
}

func TestObserve_CommitAfterQualifyingSilence(t *testing.T) {
	t.Parallel()

	d := NewDetector(Config{MinSilenceSeconds: 0.5})

	if _, ok := d.Observe(0.05, 0.8, "Can you share your favorite leadership win"); ok {
		t.Fatal("unexpected commit on the speech chunk")
	}
	got, ok := d.Observe(0.0, 0.6, "")
	if !ok {
		t.Fatal("expected commit after qualifying silence")
	}
	if !strings.HasPrefix(strings.ToLower(got), "can you share") {
		t.Errorf("committed text %q does not start with the question", got)
	}
	// Case must be preserved as accumulated.
	if !strings.HasPrefix(got, "Can you share") {
		t.Errorf("committed text %q lost its original casing", got)
	}
}

func TestObserve_OpenerPhraseCommitsWithoutQuestionMark(t *testing.T) {
	t.Parallel()

	d := NewDetector(Config{MinSilenceSeconds: 0.5})

	d.Observe(0.05, 1.0, "Tell me about a time you disagreed with a manager")
	got, ok := d.Observe(0.0, 0.6, "")
	if !ok {
		t.Fatal("expected commit: text matches the 'tell me' opener")
	}
	if !strings.HasPrefix(got, "Tell me about") {
		t.Errorf("got %q", got)
	}
}

func TestObserve_SilenceResetByLoudChunk(t *testing.T) {
	t.Parallel()

	d := NewDetector(Config{MinSilenceSeconds: 1.0})

	d.Observe(0.05, 1.0, "What does success look like in this role")
	d.Observe(0.0, 0.6, "")  // silence, below threshold
	d.Observe(0.05, 0.5, "") // speaker resumes: accumulator must reset
	if _, ok := d.Observe(0.0, 0.6, ""); ok {
		t.Error("commit fired even though silence was interrupted")
	}
	if _, ok := d.Observe(0.0, 0.5, ""); !ok {
		t.Error("expected commit once contiguous silence reached the threshold")
	}
}

func TestObserve_ShortTextWithoutMarkDoesNotCommit(t *testing.T) {
	t.Parallel()

	d := NewDetector(Config{MinSilenceSeconds: 0.5})

	d.Observe(0.05, 1.0, "what now")
	if got, ok := d.Observe(0.0, 0.6, ""); ok {
		t.Errorf("two-word fragment committed as %q", got)
	}
}

func TestObserve_ShortTextWithQuestionMarkCommits(t *testing.T) {
	t.Parallel()

	d := NewDetector(Config{MinSilenceSeconds: 0.5})

	d.Observe(0.05, 1.0, "ready?")
	got, ok := d.Observe(0.0, 0.6, "")
	if !ok {
		t.Fatal("explicit question mark should bypass the word-count floor")
	}
	if got != "ready?" {
		t.Errorf("got %q, want %q", got, "ready?")
	}
}

func TestObserve_CloserSuffixCommits(t *testing.T) {
	t.Parallel()

	d := NewDetector(Config{MinSilenceSeconds: 0.5})

	d.Observe(0.05, 1.0, "so the deadline is friday then, correct")
	if _, ok := d.Observe(0.0, 0.6, ""); !ok {
		t.Error("expected commit on closer suffix 'correct'")
	}
}

func TestObserve_StateFullyResetAfterCommit(t *testing.T) {
	t.Parallel()

	d := NewDetector(Config{MinSilenceSeconds: 0.5})

	d.Observe(0.05, 1.0, "How would you approach the first ninety days?")
	if _, ok := d.Observe(0.0, 0.6, ""); !ok {
		t.Fatal("expected initial commit")
	}
	// Silence alone after the commit must never produce another commit.
	for i := 0; i < 5; i++ {
		if got, ok := d.Observe(0.0, 1.0, ""); ok {
			t.Fatalf("spurious commit %q after reset", got)
		}
	}
}

func TestObserve_ForcedCommitAtBufferLimit(t *testing.T) {
	t.Parallel()

	d := NewDetector(Config{MinSilenceSeconds: 10, MaxBufferWords: 12})

	// Loud rambling with no question shape and no silence.
	var committed string
	for i := 0; i < 6; i++ {
		got, ok := d.Observe(0.05, 1.0, fmt.Sprintf("word%d word%d word%d", i, i, i))
		if ok {
			committed = got
			break
		}
	}
	if committed == "" {
		t.Fatal("expected forced commit once the buffer crossed the word limit")
	}
	if wordCount(committed) < 12 {
		t.Errorf("forced commit fired early: %q has %d words", committed, wordCount(committed))
	}
}

func TestObserve_NegativeDurationAddsNoSilence(t *testing.T) {
	t.Parallel()

	d := NewDetector(Config{MinSilenceSeconds: 0.5})

	d.Observe(0.05, 1.0, "Why did you leave your last team")
	if _, ok := d.Observe(0.0, -3.0, ""); ok {
		t.Error("negative duration must not count as silence")
	}
	if _, ok := d.Observe(0.0, 0.6, ""); !ok {
		t.Error("expected commit after real silence")
	}
}

func TestObserve_SilenceBeforeAnyTextIsIgnored(t *testing.T) {
	t.Parallel()

	d := NewDetector(Config{MinSilenceSeconds: 0.5})

	// Leading silence must not pre-charge the accumulator.
	d.Observe(0.0, 5.0, "")
	got, ok := d.Observe(0.05, 1.0, "Describe your ideal working environment")
	if ok {
		t.Errorf("committed %q on the first speech chunk", got)
	}
}

func TestReset_Idempotent(t *testing.T) {
	t.Parallel()

	d := NewDetector(Config{MinSilenceSeconds: 0.5})

	d.Observe(0.05, 1.0, "Could you explain the reporting structure")
	d.Reset()
	d.Reset()
	if got, ok := d.Observe(0.0, 2.0, ""); ok {
		t.Errorf("in-flight accumulation survived Reset: %q", got)
	}
}

func TestReadyToCommit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		force bool
		want  bool
	}{
		{"empty", "", false, false},
		{"question mark", "is this the final offer?", false, true},
		{"opener anywhere", "and so tell me about the team", false, true},
		{"closer suffix", "we ship on monday okay", false, true},
		{"plain statement", "I went to the store yesterday evening", false, false},
		{"plain statement forced", "I went to the store yesterday evening", true, true},
		{"short forced", "too short", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := NewDetector(Config{})
			if tt.text != "" {
				d.segments = append(d.segments, tt.text)
			}
			if got := d.readyToCommit(tt.force); got != tt.want {
				t.Errorf("readyToCommit(%v) with %q = %v, want %v", tt.force, tt.text, got, tt.want)
			}
		})
	}
}

func TestWordCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"one", 1},
		{"two words", 2},
		{"hyphen-ated counts as two", 5},
		{"punctuation, everywhere! right?", 3},
	}

	for _, tt := range tests {
		if got := wordCount(tt.text); got != tt.want {
			t.Errorf("wordCount(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

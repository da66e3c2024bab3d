package session

import (
	"testing"
	"time"
)

func TestManagerCreateAndGet(t *testing.T) {
	t.Parallel()

	m := NewManager(0)
	s := m.Create("phone screen")

	if s.ID == "" {
		t.Fatal("created session has no ID")
	}
	if s.History == nil {
		t.Fatal("created session has no history")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != s {
		t.Error("Get returned a different session value")
	}
}

func TestManagerGetUnknown(t *testing.T) {
	t.Parallel()

	m := NewManager(0)
	if _, err := m.Get("nope"); err == nil {
		t.Error("expected an error for an unknown session ID")
	}
}

func TestManagerListOrdersByCreation(t *testing.T) {
	t.Parallel()

	m := NewManager(0)
	first := m.Create("first")
	time.Sleep(time.Millisecond)
	second := m.Create("second")

	list := m.List()
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0] != first || list[1] != second {
		t.Errorf("wrong order: %q then %q", list[0].Title, list[1].Title)
	}
}

func TestSessionRecordsQuestionAndAnswer(t *testing.T) {
	t.Parallel()

	m := NewManager(0)
	s := m.Create("test")

	asked := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.RecordQuestion("What motivates you?", asked)
	s.RecordAnswer("Talk about impact and learning.")

	pairs := s.QAPairs()
	if len(pairs) != 1 {
		t.Fatalf("len = %d, want 1", len(pairs))
	}
	if pairs[0].Question != "What motivates you?" {
		t.Errorf("Question = %q", pairs[0].Question)
	}
	if pairs[0].Answer != "Talk about impact and learning." {
		t.Errorf("Answer = %q", pairs[0].Answer)
	}
	if !pairs[0].AskedAt.Equal(asked) {
		t.Errorf("AskedAt = %v, want %v", pairs[0].AskedAt, asked)
	}
}

func TestSessionAnswerWithoutQuestion(t *testing.T) {
	t.Parallel()

	m := NewManager(0)
	s := m.Create("test")

	s.RecordAnswer("orphan reply")

	pairs := s.QAPairs()
	if len(pairs) != 1 {
		t.Fatalf("len = %d, want 1", len(pairs))
	}
	if pairs[0].Question != "" || pairs[0].Answer != "orphan reply" {
		t.Errorf("unexpected entry: %+v", pairs[0])
	}
}

func TestSessionAnswerFillsLatestOpenQuestion(t *testing.T) {
	t.Parallel()

	m := NewManager(0)
	s := m.Create("test")

	now := time.Now().UTC()
	s.RecordQuestion("first?", now)
	s.RecordAnswer("answer one")
	s.RecordQuestion("second?", now)
	s.RecordAnswer("answer two")

	pairs := s.QAPairs()
	if len(pairs) != 2 {
		t.Fatalf("len = %d, want 2", len(pairs))
	}
	if pairs[0].Answer != "answer one" || pairs[1].Answer != "answer two" {
		t.Errorf("answers landed on the wrong questions: %+v", pairs)
	}
}

func TestSessionLastTranscript(t *testing.T) {
	t.Parallel()

	m := NewManager(0)
	s := m.Create("test")

	if s.LastTranscript() != "" {
		t.Errorf("fresh session transcript = %q, want empty", s.LastTranscript())
	}
	s.SetLastTranscript("so far so good")
	if s.LastTranscript() != "so far so good" {
		t.Errorf("transcript = %q", s.LastTranscript())
	}
}

package session

import "time"

// EventType identifies what a runner [Event] describes.
type EventType string

const (
	// EventTranscriptDelta carries newly transcribed text.
	EventTranscriptDelta EventType = "transcript_delta"

	// EventQuestionCommitted carries a question the boundary detector
	// committed.
	EventQuestionCommitted EventType = "question_committed"

	// EventAnswerReady carries a generated assistant reply.
	EventAnswerReady EventType = "answer_ready"

	// EventStatus carries a coarse runner state ("listening", "thinking",
	// "error").
	EventStatus EventType = "status"
)

// Event is one observable step of the live loop, broadcast to attached
// clients.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Text      string    `json:"text,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher delivers runner events to attached clients. Implementations must
// not block; slow consumers are the publisher's problem.
type Publisher interface {
	Publish(event Event)
}

package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// QA pairs a committed question with the reply generated for it. Answer is
// empty until generation completes.
type QA struct {
	Question string
	Answer   string
	AskedAt  time.Time
}

// Session holds the durable state of one conversation.
type Session struct {
	// ID is a UUID assigned at creation.
	ID string

	// Title is a user-facing label.
	Title string

	CreatedAt time.Time

	// History is the bounded conversation history for prompting.
	History *History

	mu             sync.Mutex
	lastTranscript string
	qa             []QA
}

// LastTranscript returns the transcript text last seen by the delta
// extractor, used to seed it when the session resumes.
func (s *Session) LastTranscript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTranscript
}

// SetLastTranscript stores the delta extractor position on session switch.
func (s *Session) SetLastTranscript(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTranscript = text
}

// RecordQuestion appends a committed question with no answer yet.
func (s *Session) RecordQuestion(question string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qa = append(s.qa, QA{Question: question, AskedAt: at})
}

// RecordAnswer fills in the answer of the most recent question. A reply that
// arrives with no recorded question is stored as an answer-only entry.
func (s *Session) RecordAnswer(answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.qa); n > 0 && s.qa[n-1].Answer == "" {
		s.qa[n-1].Answer = answer
		return
	}
	s.qa = append(s.qa, QA{Answer: answer, AskedAt: time.Now().UTC()})
}

// QAPairs returns a copy of the question and answer record, oldest first.
func (s *Session) QAPairs() []QA {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]QA, len(s.qa))
	copy(out, s.qa)
	return out
}

// Manager is a thread-safe registry of sessions.
type Manager struct {
	mu           sync.RWMutex
	sessions     map[string]*Session
	historyLimit int
}

// NewManager returns an empty Manager whose sessions keep historyLimit
// conversation turns each.
func NewManager(historyLimit int) *Manager {
	return &Manager{
		sessions:     make(map[string]*Session),
		historyLimit: historyLimit,
	}
}

// Create registers a new session with the given title.
func (m *Manager) Create(title string) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
		History:   NewHistory(m.historyLimit),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session: unknown session %q", id)
	}
	return s, nil
}

// List returns all sessions ordered by creation time, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

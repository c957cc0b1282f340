package domain

import (
	"sync"
	"time"
)

// Phase is the lead-collection state of a conversation.
type Phase int

const (
	// PhaseBrowsing is the initial state: informational Q&A, watching for
	// lead intent.
	PhaseBrowsing Phase = iota
	// PhaseCollecting means the session is soliciting required lead fields.
	PhaseCollecting
	// PhaseComplete means all required fields are collected and valid. A
	// session stays here permanently if notification dispatch failed.
	PhaseComplete
	// PhaseDispatched means the lead notification was delivered.
	PhaseDispatched
)

func (p Phase) String() string {
	switch p {
	case PhaseBrowsing:
		return "browsing"
	case PhaseCollecting:
		return "collecting"
	case PhaseComplete:
		return "complete"
	case PhaseDispatched:
		return "dispatched"
	default:
		return "unknown"
	}
}

// Message is one turn of the in-memory conversation context handed to the
// responder. History lives only for the duration of the session.
type Message struct {
	Role    string
	Content string
}

// Session holds mutable per-conversation lead-collection state. The registry
// owns the Session; all turn processing must hold Mu so concurrent turns for
// the same session never interleave.
type Session struct {
	Mu sync.Mutex

	SessionID string
	ClientID  string

	Phase           Phase
	Collected       map[string]string
	PendingIndex    int
	AwaitingConfirm bool
	LeadDispatched  bool

	History []Message

	CreatedAt      time.Time
	LastActivityAt time.Time
}

// PendingField returns the field currently being solicited, or "" when the
// session is not collecting.
func (s *Session) PendingField(required []string) string {
	if s.Phase != PhaseCollecting || s.PendingIndex >= len(required) {
		return ""
	}
	return required[s.PendingIndex]
}

// MissingFields returns the required fields not yet collected, in order.
func (s *Session) MissingFields(required []string) []string {
	var missing []string
	for _, f := range required {
		if _, ok := s.Collected[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// RecordMessage appends a turn to the session's conversation context.
func (s *Session) RecordMessage(role, content string) {
	s.History = append(s.History, Message{Role: role, Content: content})
}

// RecentHistory returns the last n messages of the conversation context.
func (s *Session) RecentHistory(n int) []Message {
	if n >= len(s.History) {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// IdleFor reports whether the session has been inactive for at least ttl.
func (s *Session) IdleFor(ttl time.Duration) bool {
	return time.Since(s.LastActivityAt) >= ttl
}

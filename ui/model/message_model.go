package model

import (
	"sync"
	"time"
)

// Message is one user-facing notification.
type Message struct {
	Text  string
	Error bool
	At    time.Time
	Seq   uint64
}

// MessageModel keeps the latest notification raised by a session. It
// satisfies session.Notifier, so sessions report straight into it from
// their goroutines. The zero value is usable.
type MessageModel struct {
	mu   sync.Mutex
	last Message
	now  func() time.Time
}

// Success records a success message.
func (m *MessageModel) Success(msg string) { m.set(msg, false) }

// Error records an error message.
func (m *MessageModel) Error(msg string) { m.set(msg, true) }

func (m *MessageModel) set(msg string, isErr bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	m.last = Message{Text: msg, Error: isErr, At: now(), Seq: m.last.Seq + 1}
}

// Latest returns the most recent message. Seq is zero when none was raised.
func (m *MessageModel) Latest() Message {
	if m == nil {
		return Message{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Clear forgets the current message, e.g. when a new session starts.
func (m *MessageModel) Clear() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.last = Message{Seq: m.last.Seq + 1}
	m.mu.Unlock()
}

package model

import (
	"time"
)

// SessionModel tracks how long the current capture session has been open,
// the accumulated open time and the number of sessions committed.
// It is decoupled from the UI; presenters should poll Values() and update views.
// The zero value is ready to use.
type SessionModel struct {
	active      bool
	openedAt    time.Time
	lastOpen    time.Duration
	accumulated time.Duration
	completed   int
}

// NewSessionModel returns a pointer to a ready-to-use SessionModel.
func NewSessionModel() *SessionModel { return &SessionModel{} }

// OnTick updates the model using whether a session is open and the current timestamp.
// Call periodically (for example, from a presenter tick).
func (m *SessionModel) OnTick(open bool, now time.Time) {
	if m == nil {
		return
	}
	if open {
		if !m.active { // closed -> open
			m.active = true
			m.openedAt = now
			m.lastOpen = 0
		}
		m.lastOpen = now.Sub(m.openedAt)
	} else if m.active { // open -> closed
		m.lastOpen = now.Sub(m.openedAt)
		m.accumulated += m.lastOpen
		m.active = false
	}
}

// OnCompleted counts a committed session.
func (m *SessionModel) OnCompleted() {
	if m == nil {
		return
	}
	m.completed++
}

// Values returns the current session duration and the total accumulated duration.
// The total includes the ongoing session when active.
func (m *SessionModel) Values() (session, total time.Duration) {
	if m == nil {
		return 0, 0
	}
	session = m.lastOpen
	total = m.accumulated
	if m.active {
		total += session
	}
	return
}

// Completed returns the number of committed sessions.
func (m *SessionModel) Completed() int {
	if m == nil {
		return 0
	}
	return m.completed
}

package presenter

import "time"

// Loop aggregates feature presenters and drives periodic updates.
//
// It calls Tick/ProcessFrame on the sub-presenters and invokes a
// scheduler callback. The zero value is usable (methods are nil-safe).
type Loop struct {
	Session  *SessionPresenter
	Phase    *PhasePresenter
	Status   *StatusPresenter
	Preview  *PreviewPresenter
	Schedule func()
}

func NewLoop(sess *SessionPresenter, phase *PhasePresenter, status *StatusPresenter, preview *PreviewPresenter, schedule func()) *Loop {
	return &Loop{Session: sess, Phase: phase, Status: status, Preview: preview, Schedule: schedule}
}

func (l *Loop) Tick() {
	if l == nil {
		return
	}
	now := time.Now()
	// Phase first so button state and labels agree within one tick.
	if l.Phase != nil {
		l.Phase.Tick(now)
	}
	if l.Session != nil {
		l.Session.Tick(now)
	}
	if l.Status != nil {
		l.Status.Tick(now)
	}
	if l.Preview != nil {
		l.Preview.ProcessFrame()
	}
	if l.Schedule != nil {
		l.Schedule()
	}
}

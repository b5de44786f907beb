package presenter

import (
	"time"

	"github.com/soocke/facegate-go/domain/session"
	"github.com/soocke/facegate-go/ui/model"
)

// SessionView displays formatted session and total durations.
type SessionView interface {
	SetSession(session, total time.Duration, completed int)
}

// SessionPresenter formats session timing from the model to the view.
type SessionPresenter struct {
	sess     *model.SessionModel
	sessions Sessions
	view     SessionView
}

// NewSessionPresenter returns a new SessionPresenter.
func NewSessionPresenter(sess *model.SessionModel, sessions Sessions, view SessionView) *SessionPresenter {
	return &SessionPresenter{sess: sess, sessions: sessions, view: view}
}

// Tick advances the session model and pushes values to the view.
func (p *SessionPresenter) Tick(now time.Time) {
	if p == nil || p.sess == nil || p.sessions == nil || p.view == nil {
		return
	}
	open := false
	if s := p.sessions.Current(); s != nil {
		open = s.Status().Phase != session.PhaseClosed
	}
	p.sess.OnTick(open, now)
	s, t := p.sess.Values()
	p.view.SetSession(s, t, p.sess.Completed())
}

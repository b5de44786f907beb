package presenter

import (
	"sync"
	"time"

	"github.com/soocke/facegate-go/domain/session"
)

// PhaseView reflects the session phase in the view.
type PhaseView interface {
	SetPhaseLabel(string)
	SetActions(phase session.Phase)
}

// PhasePresenter receives phase changes from session listeners and applies
// the latest one to the view on the next Tick. Listeners fire on session
// goroutines, so the queue is locked.
type PhasePresenter struct {
	view        PhaseView
	onCompleted func()

	mu      sync.Mutex
	pending []phaseEvent

	latest session.Phase
	shown  bool
}

type phaseEvent struct {
	prev, next session.Phase
	force      bool
}

func NewPhasePresenter(view PhaseView, onCompleted func()) *PhasePresenter {
	return &PhasePresenter{view: view, onCompleted: onCompleted}
}

// OnPhase queues a transition. Use it as a session.PhaseListener.
func (p *PhasePresenter) OnPhase(prev, next session.Phase) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.pending = append(p.pending, phaseEvent{prev: prev, next: next})
	p.mu.Unlock()
}

// Reset makes phase the current one on the next Tick, e.g.
// right after a new session opened. Safe to call from any goroutine.
func (p *PhasePresenter) Reset(phase session.Phase) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.pending = append(p.pending, phaseEvent{prev: phase, next: phase, force: true})
	p.mu.Unlock()
}

// Tick processes queued transitions and updates the view with the most recent phase.
func (p *PhasePresenter) Tick(now time.Time) {
	if p == nil || p.view == nil {
		return
	}
	p.mu.Lock()
	events := append([]phaseEvent(nil), p.pending...)
	p.pending = p.pending[:0]
	p.mu.Unlock()
	if len(events) == 0 {
		return
	}
	for _, e := range events {
		if e.force {
			p.shown = false
		}
		if e.prev == session.PhaseSubmitting && e.next == session.PhaseClosed && p.onCompleted != nil {
			p.onCompleted()
		}
	}
	last := events[len(events)-1].next
	if p.shown && last == p.latest {
		return
	}
	p.latest, p.shown = last, true
	p.view.SetPhaseLabel("Phase: " + last.String())
	p.view.SetActions(last)
}

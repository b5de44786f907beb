package presenter

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/soocke/facegate-go/domain/session"
)

// Session narrows what the kiosk needs from a session controller.
type Session interface {
	Capture(ctx context.Context) error
	Retake() error
	Confirm(ctx context.Context) error
	SelectDevice(ctx context.Context, id string) error
	Close()
	Status() session.Status
}

var _ Session = (*session.Controller)(nil)

// Sessions hands out the kiosk's current session and replaces it on request.
type Sessions interface {
	Current() Session
	Renew(ctx context.Context) (Session, error)
}

// CaptureView updates UI elements affected by session actions.
type CaptureView interface {
	PreviewReset()
}

// CapturePresenter maps kiosk buttons onto the current session. Actions run
// off the UI thread; one action at a time, further clicks are dropped until
// it returns.
type CapturePresenter struct {
	ctx      context.Context
	sessions Sessions
	view     CaptureView
	notifier session.Notifier
	logger   *slog.Logger
	busy     atomic.Bool
	run      func(func())
}

func NewCapturePresenter(ctx context.Context, sessions Sessions, view CaptureView, notifier session.Notifier, logger *slog.Logger) *CapturePresenter {
	return &CapturePresenter{
		ctx:      ctx,
		sessions: sessions,
		view:     view,
		notifier: notifier,
		logger:   logger,
		run:      func(f func()) { go f() },
	}
}

// Busy reports whether an action is running.
func (c *CapturePresenter) Busy() bool { return c != nil && c.busy.Load() }

// Capture freezes the current camera frame.
func (c *CapturePresenter) Capture() bool {
	return c.do("capture", func(s Session) error { return s.Capture(c.ctx) })
}

// Retake drops the captured frame.
func (c *CapturePresenter) Retake() bool {
	return c.do("retake", func(s Session) error { return s.Retake() })
}

// Confirm submits the captured frame.
func (c *CapturePresenter) Confirm() bool {
	return c.do("confirm", func(s Session) error { return s.Confirm(c.ctx) })
}

// SelectDevice switches the session camera.
func (c *CapturePresenter) SelectDevice(id string) bool {
	if id == "" {
		return false
	}
	return c.do("select device", func(s Session) error { return s.SelectDevice(c.ctx, id) })
}

// NewSession closes the current session and opens a fresh one.
func (c *CapturePresenter) NewSession() bool {
	if c == nil || c.sessions == nil {
		return false
	}
	if !c.busy.CompareAndSwap(false, true) {
		return false
	}
	if c.view != nil {
		c.view.PreviewReset()
	}
	c.run(func() {
		defer c.busy.Store(false)
		if _, err := c.sessions.Renew(c.ctx); err != nil {
			c.report("new session", err)
		}
	})
	return true
}

func (c *CapturePresenter) do(name string, fn func(Session) error) bool {
	if c == nil || c.sessions == nil {
		return false
	}
	if !c.busy.CompareAndSwap(false, true) {
		return false
	}
	c.run(func() {
		defer c.busy.Store(false)
		s := c.sessions.Current()
		if s == nil {
			return
		}
		if err := fn(s); err != nil {
			c.report(name, err)
		}
	})
	return true
}

// report surfaces errors the session does not already notify about.
func (c *CapturePresenter) report(action string, err error) {
	if c.logger != nil {
		c.logger.Debug("kiosk action", "action", action, "error", err)
	}
	if c.notifier == nil {
		return
	}
	switch {
	case errors.Is(err, session.ErrNoFrame):
		c.notifier.Error("Camera is not ready yet. Please try again.")
	case action == "new session":
		c.notifier.Error(err.Error())
	}
}

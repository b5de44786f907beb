package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/soocke/facegate-go/domain/capture"
)

// Phase is the lifecycle stage of one capture session.
type Phase int

const (
	PhaseDetecting Phase = iota
	PhaseCaptured
	PhaseSubmitting
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseDetecting:
		return "detecting"
	case PhaseCaptured:
		return "captured"
	case PhaseSubmitting:
		return "submitting"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// PhaseListener is called after each phase change.
type PhaseListener func(prev, next Phase)

var (
	ErrNotCaptured = errors.New("no captured frame")
	ErrClosed      = errors.New("session closed")
	ErrBusy        = errors.New("session busy")
	ErrNoFrame     = errors.New("camera not ready")
)

// Camera is what a session needs from the capture layer.
type Camera interface {
	capture.Source
	Generation() *capture.Generation
}

// Committer submits a confirmed frame to the call site's business endpoint.
type Committer interface {
	Commit(ctx context.Context, frame *capture.Frame) error
}

// CommitterFunc adapts a function to Committer.
type CommitterFunc func(ctx context.Context, frame *capture.Frame) error

func (f CommitterFunc) Commit(ctx context.Context, frame *capture.Frame) error { return f(ctx, frame) }

// Notifier raises user-visible notifications.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier writes notifications to the log. Used headless and as the
// fallback when no UI is attached.
type LogNotifier struct{ Logger *slog.Logger }

func (n LogNotifier) Success(msg string) {
	if n.Logger != nil {
		n.Logger.Info("notify", "level", "success", "message", msg)
	}
}

func (n LogNotifier) Error(msg string) {
	if n.Logger != nil {
		n.Logger.Warn("notify", "level", "error", "message", msg)
	}
}

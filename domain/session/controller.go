package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/soocke/facegate-go/config"
	"github.com/soocke/facegate-go/domain/capture"
	"github.com/soocke/facegate-go/domain/detection"
	"github.com/soocke/facegate-go/domain/faceapi"
)

// Options configures one session.
type Options struct {
	Site        string // config.SiteCheckIn, SiteRegister or SiteAdmin
	DeviceID    string // selected on Open when set
	Policy      config.Policy
	HasFaceData bool
	// AutoConfirm submits the frame as soon as the preview verifies it.
	AutoConfirm bool
}

// Status is the UI-visible snapshot of a session.
type Status struct {
	ID                 string
	Site               string
	Phase              Phase
	SimilarityPercent  *float64
	ConsecutiveMatches int
	RequiredMatches    int
	ThresholdPercent   float64
	Previewing         bool
	PreviewVerified    bool
	PreviewError       string
	DeviceError        string
	CommitError        string
	Frame              *capture.Frame
	HasFaceData        bool
	Generation         uint64
}

// Controller owns one capture session: it runs the detection loop while
// no frame is captured, freezes a frame on manual or automatic capture,
// previews it, and commits it on confirmation. Use NewController to
// construct an instance.
type Controller struct {
	id        string
	logger    *slog.Logger
	camera    Camera
	gen       *capture.Generation
	loop      *detection.Loop
	preview   *Preview
	committer Committer
	notifier  Notifier
	opts      Options

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	opened      bool
	phase       Phase
	frame       *capture.Frame
	deviceErr   *capture.DeviceError
	commitErr   string
	hasFaceData bool
	listeners   []PhaseListener
	pending     []phaseChange
}

type phaseChange struct{ prev, next Phase }

// NewController wires a session over camera. notifier may be nil.
func NewController(logger *slog.Logger, camera Camera, verifier faceapi.Verifier, committer Committer, notifier Notifier, opts Options) *Controller {
	id := uuid.NewString()
	if logger != nil {
		logger = logger.With("session", id, "site", opts.Site)
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	c := &Controller{
		id:          id,
		logger:      logger,
		camera:      camera,
		gen:         camera.Generation(),
		committer:   committer,
		notifier:    notifier,
		opts:        opts,
		hasFaceData: opts.HasFaceData,
		phase:       PhaseDetecting,
	}
	readout := &detection.Readout{}
	c.loop = detection.NewLoop(logger, camera, c.gen, verifier, opts.Policy, readout, detection.Hooks{
		OnAutoCapture: c.autoCapture,
		OnDeviceError: c.deviceFailed,
	})
	c.preview = NewPreview(logger, verifier, readout, c.gen, notifier, c.previewVerified)
	return c
}

// ID returns the session id used in log records.
func (c *Controller) ID() string { return c.id }

// Loop exposes the detection loop for instrumentation.
func (c *Controller) Loop() *detection.Loop { return c.loop }

// AddListener registers a phase change callback.
func (c *Controller) AddListener(l PhaseListener) {
	if l == nil {
		return
	}
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// Open starts the session under parent. When a device is configured it is
// selected first; a camera failure is surfaced and the loop is not started.
func (c *Controller) Open(parent context.Context) error {
	c.mu.Lock()
	if c.phase == PhaseClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.opened {
		c.mu.Unlock()
		return nil
	}
	c.ctx, c.cancel = context.WithCancel(parent)
	c.opened = true
	ctx := c.ctx
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Info("session opened", "device", c.opts.DeviceID)
	}
	if c.opts.DeviceID != "" {
		if err := c.camera.Select(ctx, c.opts.DeviceID); err != nil {
			return c.selectFailed(err)
		}
	}
	c.mu.Lock()
	if c.phase == PhaseDetecting {
		c.loop.Start(ctx)
	}
	c.mu.Unlock()
	return nil
}

// Capture freezes the current camera frame on user request.
func (c *Controller) Capture(ctx context.Context) error {
	c.mu.Lock()
	if err := c.requireLocked(PhaseDetecting); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	frame, err := c.camera.Snapshot(ctx)
	if err != nil {
		var de *capture.DeviceError
		if errors.As(err, &de) {
			c.deviceFailed(de)
		}
		return fmt.Errorf("capture: %w", err)
	}
	if frame == nil {
		return ErrNoFrame
	}

	c.mu.Lock()
	if err := c.requireLocked(PhaseDetecting); err != nil {
		c.mu.Unlock()
		return err
	}
	c.captureLocked(frame, "manual")
	c.mu.Unlock()
	c.flush()
	return nil
}

func (c *Controller) autoCapture(frame *capture.Frame) {
	c.mu.Lock()
	if c.phase != PhaseDetecting || !c.gen.Live(frame.Generation) {
		c.mu.Unlock()
		return
	}
	c.captureLocked(frame, "auto")
	c.mu.Unlock()
	c.flush()
}

func (c *Controller) captureLocked(frame *capture.Frame, how string) {
	c.loop.Stop()
	c.frame = frame
	c.commitErr = ""
	c.transitionLocked(PhaseCaptured)
	if c.logger != nil {
		c.logger.Info("frame captured", "trigger", how, "device", frame.DeviceID, "bytes", len(frame.Data))
	}
	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		defer recoverLog(c.logger, "preview goroutine panic")
		if _, err := c.preview.Run(ctx, frame); err != nil && c.logger != nil {
			c.logger.Debug("preview failed", "error", err)
		}
	}()
}

func (c *Controller) previewVerified(frame *capture.Frame, percent float64) {
	if !c.opts.AutoConfirm {
		return
	}
	c.mu.Lock()
	ctx := c.ctx
	same := c.phase == PhaseCaptured && c.frame == frame
	c.mu.Unlock()
	if !same || ctx == nil {
		return
	}
	if err := c.Confirm(ctx); err != nil && c.logger != nil {
		c.logger.Debug("auto-confirm", "error", err)
	}
}

// Retake drops the captured frame and resumes detection.
func (c *Controller) Retake() error {
	c.mu.Lock()
	if c.phase != PhaseCaptured {
		c.mu.Unlock()
		if c.isClosed() {
			return ErrClosed
		}
		return ErrNotCaptured
	}
	c.restartLocked()
	c.mu.Unlock()
	c.flush()
	return nil
}

// restartLocked voids everything tied to the current frame and returns to
// detection.
func (c *Controller) restartLocked() {
	c.gen.Bump()
	c.frame = nil
	c.loop.Stop()
	c.loop.Reset()
	c.preview.Reset()
	c.transitionLocked(PhaseDetecting)
	if c.ctx != nil && c.deviceErr == nil {
		c.loop.Start(c.ctx)
	}
}

// Confirm commits the captured frame. On failure the frame is cleared and the
// session returns to detection; on success the session closes.
func (c *Controller) Confirm(ctx context.Context) error {
	c.mu.Lock()
	if err := c.requireLocked(PhaseCaptured); err != nil {
		c.mu.Unlock()
		return err
	}
	frame := c.frame
	sessionCtx := c.ctx
	c.transitionLocked(PhaseSubmitting)
	c.mu.Unlock()
	c.flush()

	// closing the session cancels the commit
	commitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if sessionCtx != nil {
		stop := context.AfterFunc(sessionCtx, cancel)
		defer stop()
	}
	err := c.committer.Commit(commitCtx, frame)

	c.mu.Lock()
	if c.phase != PhaseSubmitting {
		c.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		c.commitErr = faceapi.Message(err, commitFailedMessage(c.opts.Site))
		msg := c.commitErr
		c.restartLocked()
		c.mu.Unlock()
		c.flush()
		if c.logger != nil {
			c.logger.Warn("commit failed", "error", err)
		}
		c.notifier.Error(msg)
		return fmt.Errorf("commit: %w", err)
	}
	if c.opts.Site == config.SiteRegister {
		c.hasFaceData = true
	}
	c.closeLocked()
	c.mu.Unlock()
	c.flush()
	if c.logger != nil {
		c.logger.Info("commit succeeded")
	}
	c.notifier.Success(commitSucceededMessage(c.opts.Site))
	return nil
}

// Close ends the session. Outstanding results become inert.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.phase == PhaseClosed {
		c.mu.Unlock()
		return
	}
	c.closeLocked()
	c.mu.Unlock()
	c.flush()
	if c.logger != nil {
		c.logger.Info("session closed")
	}
}

func (c *Controller) closeLocked() {
	c.loop.Stop()
	c.gen.Bump()
	c.loop.ResetStreak()
	if c.cancel != nil {
		c.cancel()
	}
	c.transitionLocked(PhaseClosed)
}

// SelectDevice switches camera. Any frame or result from the previous device
// is void; a captured frame is dropped.
func (c *Controller) SelectDevice(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.phase == PhaseClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.phase == PhaseSubmitting {
		c.mu.Unlock()
		return ErrBusy
	}
	c.loop.Stop()
	c.mu.Unlock()

	err := c.camera.Select(ctx, id)
	c.loop.Reset()
	if err != nil {
		return c.selectFailed(err)
	}

	c.mu.Lock()
	c.deviceErr = nil
	c.opts.DeviceID = id
	switch c.phase {
	case PhaseCaptured:
		c.restartLocked()
	case PhaseDetecting:
		if c.ctx != nil {
			c.loop.Start(c.ctx)
		}
	}
	c.mu.Unlock()
	c.flush()
	if c.logger != nil {
		c.logger.Info("device switched", "device", id)
	}
	return nil
}

func (c *Controller) selectFailed(err error) error {
	var de *capture.DeviceError
	if errors.As(err, &de) {
		c.deviceFailed(de)
		return err
	}
	c.notifier.Error(err.Error())
	return err
}

func (c *Controller) deviceFailed(de *capture.DeviceError) {
	c.mu.Lock()
	c.deviceErr = de
	c.mu.Unlock()
	c.notifier.Error(de.Error())
}

// Status returns the UI-visible state.
func (c *Controller) Status() Status {
	ls := c.loop.State()
	ps := c.preview.State()
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		ID:                 c.id,
		Site:               c.opts.Site,
		Phase:              c.phase,
		SimilarityPercent:  ls.LastSimilarityPercent,
		ConsecutiveMatches: ls.ConsecutiveMatches,
		RequiredMatches:    c.loop.Policy().RequiredConsecutiveMatches,
		ThresholdPercent:   c.loop.Policy().MatchThresholdPercent,
		Previewing:         ps.Previewing,
		PreviewVerified:    ps.Verified,
		PreviewError:       ps.Error,
		CommitError:        c.commitErr,
		Frame:              c.frame,
		HasFaceData:        c.hasFaceData,
		Generation:         ls.Generation,
	}
	if c.deviceErr != nil {
		st.DeviceError = c.deviceErr.Error()
	}
	return st
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) isClosed() bool { return c.Phase() == PhaseClosed }

func (c *Controller) requireLocked(want Phase) error {
	switch {
	case c.phase == want:
		return nil
	case c.phase == PhaseClosed:
		return ErrClosed
	case want == PhaseCaptured:
		return ErrNotCaptured
	default:
		return ErrBusy
	}
}

func (c *Controller) transitionLocked(next Phase) {
	prev := c.phase
	if prev == next {
		return
	}
	c.phase = next
	c.pending = append(c.pending, phaseChange{prev: prev, next: next})
	if c.logger != nil {
		c.logger.Debug("session phase", "from", prev.String(), "to", next.String())
	}
}

// flush delivers queued phase changes outside the lock.
func (c *Controller) flush() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	listeners := append([]PhaseListener(nil), c.listeners...)
	c.mu.Unlock()
	for _, ch := range pending {
		for _, l := range listeners {
			l(ch.prev, ch.next)
		}
	}
}

func commitFailedMessage(site string) string {
	switch site {
	case config.SiteRegister:
		return "Face registration failed."
	case config.SiteAdmin:
		return "Login failed."
	default:
		return "Check-in failed."
	}
}

func commitSucceededMessage(site string) string {
	switch site {
	case config.SiteRegister:
		return "Face registered."
	case config.SiteAdmin:
		return "Login successful."
	default:
		return "Check-in complete."
	}
}

func recoverLog(logger *slog.Logger, msg string) {
	if r := recover(); r != nil && logger != nil {
		logger.Error(msg, "error", r)
	}
}

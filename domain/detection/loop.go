package detection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soocke/facegate-go/config"
	"github.com/soocke/facegate-go/domain/capture"
	"github.com/soocke/facegate-go/domain/faceapi"
)

// Snapshotter is the part of the capture layer the loop needs.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*capture.Frame, error)
}

// Hooks are invoked from the loop goroutine without the loop lock held.
type Hooks struct {
	// OnAutoCapture receives the frame that completed a hit streak.
	OnAutoCapture func(frame *capture.Frame)
	// OnDeviceError receives camera failures. The loop stops afterwards.
	OnDeviceError func(err *capture.DeviceError)
}

// State is a copy of the loop's per-session detection state.
type State struct {
	LastSimilarityPercent *float64
	ConsecutiveMatches    int
	InFlight              bool
	Generation            uint64
	Running               bool
}

// Stats counts loop activity for instrumentation.
type Stats struct {
	Ticks     uint64
	Backoffs  uint64
	Calls     uint64
	Failures  uint64
	Discarded uint64
	Fires     uint64
}

// Loop polls the capture source, has every frame judged by the verifier and
// feeds the verdicts to a Debouncer. At most one verifier call is outstanding
// at any time, across restarts included. Use NewLoop to construct an
// instance.
type Loop struct {
	logger   *slog.Logger
	source   Snapshotter
	gen      *capture.Generation
	verifier faceapi.Verifier
	readout  *Readout
	policy   config.Policy
	hooks    Hooks

	mu       sync.Mutex
	deb      *Debouncer
	inFlight bool
	cancel   context.CancelFunc
	done     chan struct{}

	ticks     atomic.Uint64
	backoffs  atomic.Uint64
	calls     atomic.Uint64
	failures  atomic.Uint64
	discarded atomic.Uint64
	fires     atomic.Uint64
}

// NewLoop wires a loop. gen is the session generation shared with the
// capture manager; readout may be shared with a Preview and is allocated
// when nil.
func NewLoop(logger *slog.Logger, source Snapshotter, gen *capture.Generation, verifier faceapi.Verifier, policy config.Policy, readout *Readout, hooks Hooks) *Loop {
	policy = policy.Normalized()
	if gen == nil {
		gen = &capture.Generation{}
	}
	if readout == nil {
		readout = &Readout{}
	}
	return &Loop{
		logger:   logger,
		source:   source,
		gen:      gen,
		verifier: verifier,
		readout:  readout,
		policy:   policy,
		hooks:    hooks,
		deb:      NewDebouncer(policy),
	}
}

// Policy returns the normalized policy the loop runs with.
func (l *Loop) Policy() config.Policy { return l.policy }

// Readout returns the similarity slot the loop publishes to.
func (l *Loop) Readout() *Readout { return l.readout }

// Start launches the polling goroutine under parent. It is a no-op while the
// loop is already running.
func (l *Loop) Start(parent context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	l.cancel, l.done = cancel, done
	go l.run(ctx, done)
}

// Stop ends the current run. It does not wait for an outstanding verifier
// call; that call's result is discarded when it returns. Stop is safe to
// call from a hook.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

func (l *Loop) stopLocked() {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// Done returns a channel closed when the current (or last) run has exited.
// It is nil if the loop was never started.
func (l *Loop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// Running reports whether a run is active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

// Reset zeroes the streak and clears the similarity readout.
func (l *Loop) Reset() {
	l.mu.Lock()
	l.deb.Reset()
	l.mu.Unlock()
	l.readout.Clear()
}

// ResetStreak zeroes the streak but keeps the last readout on screen.
func (l *Loop) ResetStreak() {
	l.mu.Lock()
	l.deb.Reset()
	l.mu.Unlock()
}

// State returns a copy of the detection state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{
		LastSimilarityPercent: l.readout.Percent(),
		ConsecutiveMatches:    l.deb.Consecutive(),
		InFlight:              l.inFlight,
		Generation:            l.gen.Current(),
		Running:               l.cancel != nil,
	}
}

// Stats returns the loop counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Ticks:     l.ticks.Load(),
		Backoffs:  l.backoffs.Load(),
		Calls:     l.calls.Load(),
		Failures:  l.failures.Load(),
		Discarded: l.discarded.Load(),
		Fires:     l.fires.Load(),
	}
}

// LogStats writes the counters at debug level.
func (l *Loop) LogStats() {
	if l.logger == nil {
		return
	}
	s := l.Stats()
	l.logger.Debug("detection.stats",
		"ticks", s.Ticks,
		"backoffs", s.Backoffs,
		"calls", s.Calls,
		"failures", s.Failures,
		"discarded", s.Discarded,
		"fires", s.Fires,
	)
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		// a run that ends on its own leaves the loop restartable
		l.mu.Lock()
		if l.done == done && l.cancel != nil {
			l.cancel()
			l.cancel = nil
		}
		l.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil && l.logger != nil {
			l.logger.Error("detection loop panic", "error", r)
		}
	}()
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		delay, again := l.tick(ctx)
		if !again {
			return
		}
		timer.Reset(delay)
	}
}

// tick runs one iteration and returns the delay before the next one, or
// false when the run must end.
func (l *Loop) tick(ctx context.Context) (time.Duration, bool) {
	if ctx.Err() != nil {
		return 0, false
	}
	l.ticks.Add(1)
	if l.busy() {
		l.backoffs.Add(1)
		return l.policy.ActiveRetry(), true
	}

	frame, err := l.source.Snapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0, false
		}
		var de *capture.DeviceError
		if errors.As(err, &de) {
			l.deviceFailed(de)
			return 0, false
		}
		if l.logger != nil {
			l.logger.Debug("snapshot failed", "error", err)
		}
		return l.policy.ActiveRetry(), true
	}
	if frame == nil {
		return l.policy.ActiveRetry(), true
	}
	gen := frame.Generation
	if !l.gen.Live(gen) {
		return l.policy.ActiveRetry(), true
	}

	l.mu.Lock()
	if l.inFlight {
		l.mu.Unlock()
		l.backoffs.Add(1)
		return l.policy.ActiveRetry(), true
	}
	l.inFlight = true
	l.mu.Unlock()

	seq := l.readout.Issue()
	l.calls.Add(1)
	res, err := l.verify(ctx, frame)

	l.mu.Lock()
	l.inFlight = false
	if ctx.Err() != nil || !l.gen.Live(gen) {
		l.mu.Unlock()
		l.discarded.Add(1)
		if l.logger != nil {
			l.logger.Debug("verification result discarded", "generation", gen, "live", l.gen.Current())
		}
		return 0, false
	}
	if err != nil {
		l.deb.Reset()
		l.readout.Publish(seq, nil)
		l.mu.Unlock()
		l.failures.Add(1)
		if l.logger != nil {
			l.logger.Debug("verification failed", "error", err)
		}
		return l.policy.IdlePoll(), true
	}
	var pct *float64
	if res.Detected {
		v := res.Percent()
		pct = &v
	}
	l.readout.Publish(seq, pct)
	fired := l.deb.Feed(res)
	l.mu.Unlock()

	if fired {
		l.fires.Add(1)
		if l.logger != nil {
			l.logger.Info("auto-capture", "similarity", res.Percent(), "generation", gen)
		}
		if l.hooks.OnAutoCapture != nil {
			l.hooks.OnAutoCapture(frame)
		}
	}
	return l.policy.IdlePoll(), true
}

func (l *Loop) busy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight
}

// verify calls the verifier, turning a panic into an error.
func (l *Loop) verify(ctx context.Context, frame *capture.Frame) (res faceapi.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("verifier panic: %v", r)
		}
	}()
	return l.verifier.Verify(ctx, frame)
}

func (l *Loop) deviceFailed(de *capture.DeviceError) {
	if l.logger != nil {
		l.logger.Warn("camera unavailable", "device", de.DeviceID, "kind", de.Kind.String(), "error", de)
	}
	if l.hooks.OnDeviceError != nil {
		l.hooks.OnDeviceError(de)
	}
}

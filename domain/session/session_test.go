package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soocke/facegate-go/config"
	"github.com/soocke/facegate-go/domain/capture"
	"github.com/soocke/facegate-go/domain/faceapi"
)

var discardLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

var (
	strong = faceapi.Result{Detected: true, Similarity: 0.91, Verified: true}
	weak   = faceapi.Result{Detected: true, Similarity: 0.35, Verified: false}
)

func fastPolicy() config.Policy {
	return config.Policy{MatchThresholdPercent: 70, RequiredConsecutiveMatches: 2, ActiveRetryMs: 1, IdlePollMs: 1}
}

type fakeCamera struct {
	gen       capture.Generation
	mu        sync.Mutex
	selectErr error
	selected  string
	seq       uint64
	empty     bool
}

func (c *fakeCamera) Generation() *capture.Generation { return &c.gen }

func (c *fakeCamera) Devices() []capture.DeviceInfo {
	return []capture.DeviceInfo{{ID: "cam-a", Label: "A"}, {ID: "cam-b", Label: "B"}}
}

func (c *fakeCamera) Select(ctx context.Context, id string) error {
	c.gen.Bump()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selectErr != nil {
		return c.selectErr
	}
	c.selected = id
	return nil
}

func (c *fakeCamera) Snapshot(ctx context.Context) (*capture.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.empty {
		return nil, nil
	}
	c.seq++
	return &capture.Frame{Data: []byte{1, 2, 3}, DeviceID: c.selected, Generation: c.gen.Current(), Sequence: c.seq}, nil
}

// switchVerifier answers with whatever it is currently set to. In block mode
// calls wait for their context; with a gate they wait for the gate and then
// answer normally.
type switchVerifier struct {
	mu    sync.Mutex
	res   faceapi.Result
	err   error
	block bool
	gate  chan struct{}
	calls atomic.Int32
}

func (v *switchVerifier) set(res faceapi.Result, err error, block bool) {
	v.mu.Lock()
	v.res, v.err, v.block = res, err, block
	v.mu.Unlock()
}

func (v *switchVerifier) Verify(ctx context.Context, f *capture.Frame) (faceapi.Result, error) {
	v.calls.Add(1)
	v.mu.Lock()
	res, err, block, gate := v.res, v.err, v.block, v.gate
	v.mu.Unlock()
	if gate != nil {
		<-gate
		return res, err
	}
	if block {
		<-ctx.Done()
		return faceapi.Result{}, ctx.Err()
	}
	return res, err
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errs      []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	n.successes = append(n.successes, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	n.errs = append(n.errs, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.successes), len(n.errs)
}

type countingCommitter struct {
	calls atomic.Int32
	err   error
}

func (c *countingCommitter) Commit(ctx context.Context, f *capture.Frame) error {
	c.calls.Add(1)
	return c.err
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}

func newTestController(t *testing.T, v faceapi.Verifier, com Committer, n Notifier, opts Options) (*Controller, *fakeCamera) {
	t.Helper()
	cam := &fakeCamera{}
	if opts.Policy == (config.Policy{}) {
		opts.Policy = fastPolicy()
	}
	c := NewController(discardLogger, cam, v, com, n, opts)
	t.Cleanup(c.Close)
	return c, cam
}

func TestController_AutoCaptureFreezesAndPreviews(t *testing.T) {
	v := &switchVerifier{res: strong}
	n := &recordingNotifier{}
	c, _ := newTestController(t, v, &countingCommitter{}, n, Options{Site: config.SiteCheckIn, DeviceID: "cam-a"})
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	waitFor(t, time.Second, func() bool { return c.Phase() == PhaseCaptured }, "auto-capture")
	waitFor(t, time.Second, func() bool { s := c.Status(); return !s.Previewing && s.PreviewVerified }, "preview verified")

	st := c.Status()
	if st.Frame == nil || st.Frame.DeviceID != "cam-a" {
		t.Fatalf("captured frame missing: %+v", st.Frame)
	}
	if c.Loop().Running() {
		t.Fatalf("loop must stop once a frame is captured")
	}
	if p := st.SimilarityPercent; p == nil || *p < 90 {
		t.Fatalf("similarity = %v", p)
	}
	if ok, _ := n.counts(); ok != 1 {
		t.Fatalf("expected one success notification, got %d", ok)
	}
}

func TestController_RetakeResetsDetection(t *testing.T) {
	v := &switchVerifier{res: strong}
	c, _ := newTestController(t, v, &countingCommitter{}, nil, Options{Site: config.SiteCheckIn})
	if err := c.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool { return c.Phase() == PhaseCaptured }, "auto-capture")
	waitFor(t, time.Second, func() bool { return !c.Status().Previewing }, "preview done")
	gen := c.Status().Generation

	v.set(strong, nil, true)
	if err := c.Retake(); err != nil {
		t.Fatalf("retake: %v", err)
	}
	st := c.Status()
	if st.Phase != PhaseDetecting {
		t.Fatalf("phase = %v", st.Phase)
	}
	if st.ConsecutiveMatches != 0 || st.SimilarityPercent != nil {
		t.Fatalf("detection state not reset: matches=%d similarity=%v", st.ConsecutiveMatches, st.SimilarityPercent)
	}
	if st.Frame != nil || st.PreviewVerified || st.PreviewError != "" {
		t.Fatalf("preview state not reset: %+v", st)
	}
	if st.Generation <= gen {
		t.Fatalf("generation not bumped")
	}
	waitFor(t, time.Second, func() bool { return c.Loop().State().InFlight }, "loop resumed")
}

func TestController_ConfirmSuccessCloses(t *testing.T) {
	v := &switchVerifier{res: weak}
	com := &countingCommitter{}
	n := &recordingNotifier{}
	c, _ := newTestController(t, v, com, n, Options{Site: config.SiteRegister})
	var mu sync.Mutex
	var seen []Phase
	c.AddListener(func(prev, next Phase) {
		mu.Lock()
		seen = append(seen, next)
		mu.Unlock()
	})
	ctx := context.Background()
	if err := c.Open(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Capture(ctx); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if err := c.Confirm(ctx); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	st := c.Status()
	if st.Phase != PhaseClosed || !st.HasFaceData {
		t.Fatalf("unexpected status after commit: phase=%v face=%v", st.Phase, st.HasFaceData)
	}
	if com.calls.Load() != 1 {
		t.Fatalf("commits = %d", com.calls.Load())
	}
	if c.Loop().Running() {
		t.Fatalf("loop running after close")
	}
	mu.Lock()
	defer mu.Unlock()
	want := []Phase{PhaseCaptured, PhaseSubmitting, PhaseClosed}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", seen, want)
		}
	}
}

func TestController_CommitFailureReturnsToDetecting(t *testing.T) {
	v := &switchVerifier{res: weak}
	com := &countingCommitter{err: &faceapi.APIError{Status: 400, Detail: "No face detected in image"}}
	n := &recordingNotifier{}
	c, _ := newTestController(t, v, com, n, Options{Site: config.SiteCheckIn})
	ctx := context.Background()
	if err := c.Open(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Capture(ctx); err != nil {
		t.Fatal(err)
	}
	err := c.Confirm(ctx)
	var apiErr *faceapi.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected wrapped APIError, got %v", err)
	}
	st := c.Status()
	if st.Phase != PhaseDetecting || st.Frame != nil {
		t.Fatalf("expected detecting without frame, got %v frame=%v", st.Phase, st.Frame)
	}
	if st.CommitError != "No face detected in image" {
		t.Fatalf("commit error = %q", st.CommitError)
	}
	if _, errs := n.counts(); errs != 1 {
		t.Fatalf("error notifications = %d", errs)
	}
	if !c.Loop().Running() {
		t.Fatalf("loop should resume after commit failure")
	}
}

func TestController_DeviceErrorBlocksLoop(t *testing.T) {
	v := &switchVerifier{res: strong}
	n := &recordingNotifier{}
	c, cam := newTestController(t, v, &countingCommitter{}, n, Options{Site: config.SiteCheckIn, DeviceID: "cam-a"})
	cam.selectErr = &capture.DeviceError{Kind: capture.DeviceBusy, DeviceID: "cam-a"}
	err := c.Open(context.Background())
	var de *capture.DeviceError
	if !errors.As(err, &de) || de.Kind != capture.DeviceBusy {
		t.Fatalf("expected busy DeviceError, got %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if c.Loop().Running() || v.calls.Load() != 0 {
		t.Fatalf("loop must not start after a device error")
	}
	if c.Status().DeviceError == "" {
		t.Fatalf("device error not surfaced")
	}
	if _, errs := n.counts(); errs != 1 {
		t.Fatalf("error notifications = %d, want 1", errs)
	}

	cam.mu.Lock()
	cam.selectErr = nil
	cam.mu.Unlock()
	if err := c.SelectDevice(context.Background(), "cam-b"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if c.Status().DeviceError != "" {
		t.Fatalf("device error not cleared")
	}
	waitFor(t, time.Second, func() bool { return c.Phase() == PhaseCaptured }, "loop started on new device")
	if c.Status().Frame.DeviceID != "cam-b" {
		t.Fatalf("frame from wrong device")
	}
}

func TestController_CloseDiscardsInFlightResult(t *testing.T) {
	gate := make(chan struct{})
	v := &switchVerifier{res: strong, gate: gate}
	c, _ := newTestController(t, v, &countingCommitter{}, nil, Options{Site: config.SiteCheckIn})
	if err := c.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool { return c.Loop().State().InFlight }, "call in flight")
	c.Close()
	close(gate)
	select {
	case <-c.Loop().Done():
	case <-time.After(time.Second):
		t.Fatalf("loop did not exit")
	}
	st := c.Status()
	if st.Phase != PhaseClosed || st.Frame != nil || st.SimilarityPercent != nil {
		t.Fatalf("stale result applied: %+v", st)
	}
	if v.calls.Load() != 1 {
		t.Fatalf("loop rescheduled after close: %d calls", v.calls.Load())
	}
}

func TestController_PhaseGuards(t *testing.T) {
	v := &switchVerifier{res: weak}
	c, _ := newTestController(t, v, &countingCommitter{}, nil, Options{Site: config.SiteAdmin})
	ctx := context.Background()
	if err := c.Open(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Retake(); !errors.Is(err, ErrNotCaptured) {
		t.Fatalf("retake while detecting: %v", err)
	}
	if err := c.Confirm(ctx); !errors.Is(err, ErrNotCaptured) {
		t.Fatalf("confirm while detecting: %v", err)
	}
	if err := c.Capture(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Capture(ctx); !errors.Is(err, ErrBusy) {
		t.Fatalf("second capture: %v", err)
	}
	c.Close()
	for name, err := range map[string]error{
		"capture": c.Capture(ctx),
		"confirm": c.Confirm(ctx),
		"retake":  c.Retake(),
		"open":    c.Open(ctx),
		"select":  c.SelectDevice(ctx, "cam-b"),
	} {
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("%s after close: %v", name, err)
		}
	}
}

func TestController_AutoConfirm(t *testing.T) {
	v := &switchVerifier{res: strong}
	com := &countingCommitter{}
	c, _ := newTestController(t, v, com, nil, Options{Site: config.SiteCheckIn, AutoConfirm: true})
	if err := c.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool { return c.Phase() == PhaseClosed }, "auto-confirmed")
	if com.calls.Load() != 1 {
		t.Fatalf("commits = %d, want 1", com.calls.Load())
	}
}

func TestPreview_BusyFlagAlwaysCleared(t *testing.T) {
	frame := &capture.Frame{Data: []byte{1}}
	cases := []struct {
		name      string
		verifier  faceapi.Verifier
		wantSim   bool
		wantError string
	}{
		{"verified", faceapi.VerifierFunc(func(context.Context, *capture.Frame) (faceapi.Result, error) { return strong, nil }), true, ""},
		{"not verified", faceapi.VerifierFunc(func(context.Context, *capture.Frame) (faceapi.Result, error) { return weak, nil }), true, ""},
		{"api error", faceapi.VerifierFunc(func(context.Context, *capture.Frame) (faceapi.Result, error) {
			return faceapi.Result{}, &faceapi.APIError{Status: 400, Detail: "No registered face data"}
		}), false, "No registered face data"},
		{"network error", faceapi.VerifierFunc(func(context.Context, *capture.Frame) (faceapi.Result, error) {
			return faceapi.Result{}, errors.New("connection refused")
		}), false, defaultPreviewError},
		{"panic", faceapi.VerifierFunc(func(context.Context, *capture.Frame) (faceapi.Result, error) {
			panic("decoder exploded")
		}), false, defaultPreviewError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &capture.Generation{}
			var successes atomic.Int32
			p := NewPreview(discardLogger, tc.verifier, nil, gen, &recordingNotifier{}, func(*capture.Frame, float64) { successes.Add(1) })
			_, _ = p.Run(context.Background(), frame)
			st := p.State()
			if st.Previewing {
				t.Fatalf("previewing flag left set")
			}
			if (st.SimilarityPercent != nil) == (st.Error != "") {
				t.Fatalf("exactly one of similarity/error must hold: %+v", st)
			}
			if tc.wantSim != (st.SimilarityPercent != nil) {
				t.Fatalf("similarity set = %v, want %v", st.SimilarityPercent != nil, tc.wantSim)
			}
			if st.Error != tc.wantError {
				t.Fatalf("error = %q, want %q", st.Error, tc.wantError)
			}
			wantSuccess := int32(0)
			if tc.name == "verified" {
				wantSuccess = 1
			}
			if successes.Load() != wantSuccess {
				t.Fatalf("onSuccess calls = %d, want %d", successes.Load(), wantSuccess)
			}
		})
	}
}

func TestPreview_StaleResultIgnored(t *testing.T) {
	gen := &capture.Generation{}
	release := make(chan struct{})
	v := faceapi.VerifierFunc(func(context.Context, *capture.Frame) (faceapi.Result, error) {
		<-release
		return strong, nil
	})
	p := NewPreview(discardLogger, v, nil, gen, nil, nil)
	done := make(chan struct{})
	go func() {
		_, _ = p.Run(context.Background(), &capture.Frame{Data: []byte{1}})
		close(done)
	}()
	waitFor(t, time.Second, func() bool { return p.State().Previewing }, "preview started")
	gen.Bump()
	p.Reset()
	close(release)
	<-done
	st := p.State()
	if st.Previewing || st.SimilarityPercent != nil || st.Verified {
		t.Fatalf("stale preview applied: %+v", st)
	}
}

func TestController_CaptureWithoutFrame(t *testing.T) {
	v := &switchVerifier{}
	v.set(weak, nil, false)
	c, cam := newTestController(t, v, &countingCommitter{}, &recordingNotifier{}, Options{Site: config.SiteCheckIn})
	cam.mu.Lock()
	cam.empty = true
	cam.mu.Unlock()
	if err := c.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.Capture(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}
	if c.Phase() != PhaseDetecting {
		t.Fatalf("phase = %v", c.Phase())
	}
}

// blockingCommitter waits for its context and reports why it returned.
type blockingCommitter struct {
	started chan struct{}
	ended   chan error
}

func (c *blockingCommitter) Commit(ctx context.Context, f *capture.Frame) error {
	close(c.started)
	<-ctx.Done()
	c.ended <- ctx.Err()
	return ctx.Err()
}

func TestController_CloseCancelsCommit(t *testing.T) {
	v := &switchVerifier{res: weak}
	com := &blockingCommitter{started: make(chan struct{}), ended: make(chan error, 1)}
	c, _ := newTestController(t, v, com, &recordingNotifier{}, Options{Site: config.SiteCheckIn})
	ctx := context.Background()
	if err := c.Open(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Capture(ctx); err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- c.Confirm(ctx) }()
	<-com.started
	c.Close()
	select {
	case err := <-com.ended:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("commit ended with %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("commit not cancelled by Close")
	}
	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Fatalf("confirm = %v, want ErrClosed", err)
	}
	if c.Phase() != PhaseClosed {
		t.Fatalf("phase = %v", c.Phase())
	}
}

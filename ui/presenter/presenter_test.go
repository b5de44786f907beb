package presenter

import (
	"image"
	"sync"
	"testing"
	"time"

	"github.com/soocke/facegate-go/config"
	"github.com/soocke/facegate-go/domain/capture"
	"github.com/soocke/facegate-go/domain/session"
	"github.com/soocke/facegate-go/ui/model"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", msg)
}

type mockPhaseView struct {
	labels  []string
	actions []session.Phase
}

func (v *mockPhaseView) SetPhaseLabel(s string)     { v.labels = append(v.labels, s) }
func (v *mockPhaseView) SetActions(p session.Phase) { v.actions = append(v.actions, p) }

func TestPhasePresenter_AppliesLatestAndCountsCommits(t *testing.T) {
	view := &mockPhaseView{}
	completed := 0
	p := NewPhasePresenter(view, func() { completed++ })
	p.OnPhase(session.PhaseDetecting, session.PhaseCaptured)
	p.OnPhase(session.PhaseCaptured, session.PhaseSubmitting)
	p.OnPhase(session.PhaseSubmitting, session.PhaseClosed)
	p.Tick(time.Now())
	if len(view.labels) != 1 || view.labels[0] != "Phase: closed" {
		t.Fatalf("unexpected labels %v", view.labels)
	}
	if completed != 1 {
		t.Fatalf("completed = %d", completed)
	}
	p.Tick(time.Now())
	if len(view.labels) != 1 {
		t.Fatalf("idle tick must not touch the view")
	}
	p.Reset(session.PhaseDetecting)
	p.Tick(time.Now())
	if view.actions[len(view.actions)-1] != session.PhaseDetecting {
		t.Fatalf("reset not applied: %v", view.actions)
	}
}

func TestFormatStatus(t *testing.T) {
	pct := 82.54
	cases := []struct {
		name    string
		st      session.Status
		msg     model.Message
		wantSim string
		wantStr string
		wantMsg string
		wantErr bool
	}{
		{
			name:    "detecting without readout",
			st:      session.Status{Phase: session.PhaseDetecting, Site: config.SiteRegister, RequiredMatches: 2, ThresholdPercent: 70},
			wantSim: "Similarity: --",
			wantStr: "Matches: 0/2 (>= 70%)",
		},
		{
			name:    "detecting with readout",
			st:      session.Status{Phase: session.PhaseDetecting, Site: config.SiteCheckIn, HasFaceData: true, SimilarityPercent: &pct, ConsecutiveMatches: 1, RequiredMatches: 2, ThresholdPercent: 70},
			wantSim: "Similarity: 82.5%",
			wantStr: "Matches: 1/2 (>= 70%)",
		},
		{
			name:    "device error wins",
			st:      session.Status{Phase: session.PhaseDetecting, DeviceError: "camera busy", RequiredMatches: 2},
			msg:     model.Message{Text: "older", Seq: 1},
			wantSim: "Similarity: --",
			wantStr: "Matches: 0/2 (>= 0%)",
			wantMsg: "camera busy",
			wantErr: true,
		},
		{
			name:    "captured preview rejected",
			st:      session.Status{Phase: session.PhaseCaptured, PreviewError: "Face does not match"},
			wantSim: "Similarity: --",
			wantStr: "Not verified",
			wantMsg: "Face does not match",
			wantErr: true,
		},
		{
			name:    "check-in without face data",
			st:      session.Status{Phase: session.PhaseDetecting, Site: config.SiteCheckIn, RequiredMatches: 2, ThresholdPercent: 75},
			wantSim: "Similarity: --",
			wantStr: "Matches: 0/2 (>= 75%)",
			wantMsg: "No registered face found. Please register first.",
			wantErr: true,
		},
		{
			name:    "notification passes through",
			st:      session.Status{Phase: session.PhaseClosed, Site: config.SiteRegister},
			msg:     model.Message{Text: "Face registered", Seq: 3},
			wantSim: "Similarity: --",
			wantMsg: "Face registered",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := FormatStatus(tc.st, tc.msg)
			if v.Similarity != tc.wantSim || v.Streak != tc.wantStr || v.Message != tc.wantMsg || v.MessageErr != tc.wantErr {
				t.Fatalf("got %+v", v)
			}
		})
	}
}

type mockStatusView struct{ calls []model.StatusValues }

func (v *mockStatusView) SetStatus(s model.StatusValues) { v.calls = append(v.calls, s) }

func TestStatusPresenter_PushesChangesOnly(t *testing.T) {
	s := &mockSession{status: session.Status{Phase: session.PhaseDetecting, RequiredMatches: 2}}
	view := &mockStatusView{}
	msgs := &model.MessageModel{}
	p := NewStatusPresenter(&mockSessions{cur: s}, msgs, nil, view)
	p.Tick(time.Now())
	p.Tick(time.Now())
	if len(view.calls) != 1 {
		t.Fatalf("expected one push, got %d", len(view.calls))
	}
	msgs.Error("Camera is not ready yet. Please try again.")
	p.Tick(time.Now())
	if len(view.calls) != 2 || !view.calls[1].MessageErr {
		t.Fatalf("message change not pushed: %+v", view.calls)
	}
}

type mockPreviewView struct{ imgs []image.Image }

func (v *mockPreviewView) UpdatePreview(img image.Image) { v.imgs = append(v.imgs, img) }

func TestPreviewPresenter_LiveThenFrozen(t *testing.T) {
	s := &mockSession{status: session.Status{Phase: session.PhaseDetecting}}
	frames := &model.FrameModel{}
	view := &mockPreviewView{}
	p := NewPreviewPresenter(&mockSessions{cur: s}, frames, view, DefaultPreviewStyle(), 100, 100)

	p.ProcessFrame()
	if len(view.imgs) != 0 {
		t.Fatalf("nothing to show yet")
	}
	frames.Set(image.NewRGBA(image.Rect(0, 0, 200, 100)), 1)
	p.ProcessFrame()
	p.ProcessFrame()
	if len(view.imgs) != 1 {
		t.Fatalf("expected one live push, got %d", len(view.imgs))
	}
	if b := view.imgs[0].Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Fatalf("live image not scaled: %v", b)
	}

	frozen := &capture.Frame{Image: image.NewRGBA(image.Rect(0, 0, 40, 40)), Sequence: 9}
	s.status = session.Status{Phase: session.PhaseCaptured, Frame: frozen, Previewing: true}
	p.ProcessFrame()
	s.status.Previewing, s.status.PreviewVerified = false, true
	p.ProcessFrame()
	p.ProcessFrame()
	if len(view.imgs) != 3 {
		t.Fatalf("expected frozen push and tone change, got %d", len(view.imgs))
	}

	s.status = session.Status{Phase: session.PhaseDetecting}
	p.ProcessFrame()
	if len(view.imgs) != 4 {
		t.Fatalf("returning to live should redraw, got %d", len(view.imgs))
	}
}

type mockSessionView struct {
	session, total time.Duration
	completed      int
}

func (v *mockSessionView) SetSession(s, t time.Duration, c int) {
	v.session, v.total, v.completed = s, t, c
}

func TestSessionPresenter_TracksOpenTime(t *testing.T) {
	s := &mockSession{status: session.Status{Phase: session.PhaseDetecting}}
	m := model.NewSessionModel()
	view := &mockSessionView{}
	p := NewSessionPresenter(m, &mockSessions{cur: s}, view)
	base := time.Unix(100, 0)
	p.Tick(base)
	p.Tick(base.Add(3 * time.Second))
	s.status.Phase = session.PhaseClosed
	m.OnCompleted()
	p.Tick(base.Add(4 * time.Second))
	if view.session != 4*time.Second || view.total != 4*time.Second || view.completed != 1 {
		t.Fatalf("unexpected view values %+v", view)
	}
}

func TestDeviceWatcher_ReportsChangesWhileDetecting(t *testing.T) {
	var mu sync.Mutex
	list := []capture.DeviceInfo{{ID: "a", Label: "A"}}
	var seen [][]capture.DeviceInfo
	w := NewDeviceWatcher(
		func() []capture.DeviceInfo {
			mu.Lock()
			defer mu.Unlock()
			return append([]capture.DeviceInfo(nil), list...)
		},
		func(d []capture.DeviceInfo) {
			mu.Lock()
			seen = append(seen, d)
			mu.Unlock()
		},
		nil, 10*time.Millisecond,
	)
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(seen)
	}
	w.OnPhase(session.PhaseClosed, session.PhaseDetecting)
	waitFor(t, time.Second, func() bool { return count() == 1 }, "initial list")
	time.Sleep(50 * time.Millisecond)
	if count() != 1 {
		t.Fatalf("unchanged list must not be reported again")
	}
	mu.Lock()
	list = append(list, capture.DeviceInfo{ID: "b", Label: "B"})
	mu.Unlock()
	waitFor(t, time.Second, func() bool { return count() == 2 }, "hot-plugged device")

	w.OnPhase(session.PhaseDetecting, session.PhaseCaptured)
	if w.Running() {
		t.Fatalf("watcher should stop outside detection")
	}
}

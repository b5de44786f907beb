package kiosk

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/soocke/facegate-go/domain/capture"
	"github.com/soocke/facegate-go/domain/session"
	"github.com/soocke/facegate-go/ui/model"
)

// PreviewPump grabs frames for the live preview independently of the
// detection loop, so the feed stays smooth between verifier calls.
type PreviewPump struct {
	logger   *slog.Logger
	source   capture.Source
	frames   *model.FrameModel
	active   func() bool
	interval atomic.Int64
	grabs    atomic.Uint64
}

// NewPreviewPump pumps source into frames while active reports true.
func NewPreviewPump(logger *slog.Logger, source capture.Source, frames *model.FrameModel, active func() bool, interval time.Duration) *PreviewPump {
	p := &PreviewPump{logger: logger, source: source, frames: frames, active: active}
	p.SetInterval(interval)
	return p
}

// SetInterval changes the delay between grabs.
func (p *PreviewPump) SetInterval(d time.Duration) {
	if d <= 0 {
		d = 100 * time.Millisecond
	}
	p.interval.Store(int64(d))
}

// Grabs returns the number of frames stored.
func (p *PreviewPump) Grabs() uint64 { return p.grabs.Load() }

// Run pumps until ctx is cancelled.
func (p *PreviewPump) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		p.once(ctx)
		timer.Reset(time.Duration(p.interval.Load()))
	}
}

func (p *PreviewPump) once(ctx context.Context) {
	if p.active != nil && !p.active() {
		return
	}
	f, err := p.source.Snapshot(ctx)
	if err != nil {
		if p.logger != nil && ctx.Err() == nil {
			p.logger.Debug("preview grab failed", "error", err)
		}
		return
	}
	if f == nil || f.Image == nil {
		return
	}
	p.frames.Set(f.Image, f.Sequence)
	p.grabs.Add(1)
}

// Detecting reports whether the kiosk's session is looking for a face,
// which is when the live feed is shown.
func (k *Kiosk) Detecting() bool {
	c := k.Controller()
	return c != nil && c.Phase() == session.PhaseDetecting
}

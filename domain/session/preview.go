package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/soocke/facegate-go/domain/capture"
	"github.com/soocke/facegate-go/domain/detection"
	"github.com/soocke/facegate-go/domain/faceapi"
)

const defaultPreviewError = "Face verification failed. Please try again."

// PreviewState is the UI-visible outcome of manual verification.
type PreviewState struct {
	Previewing        bool
	SimilarityPercent *float64
	Verified          bool
	Error             string
}

// Preview runs one verification call against a frozen frame for immediate
// feedback, independent of the loop cadence. It writes to the same readout
// as the loop; the most recently issued call wins.
type Preview struct {
	logger    *slog.Logger
	verifier  faceapi.Verifier
	readout   *detection.Readout
	gen       *capture.Generation
	notifier  Notifier
	onSuccess func(frame *capture.Frame, percent float64)

	mu       sync.Mutex
	active   int
	percent  *float64
	verified bool
	errMsg   string
}

// NewPreview wires a preview. readout and gen are shared with the loop.
func NewPreview(logger *slog.Logger, verifier faceapi.Verifier, readout *detection.Readout, gen *capture.Generation, notifier Notifier, onSuccess func(*capture.Frame, float64)) *Preview {
	if readout == nil {
		readout = &detection.Readout{}
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	return &Preview{logger: logger, verifier: verifier, readout: readout, gen: gen, notifier: notifier, onSuccess: onSuccess}
}

// Run verifies frame once. The previewing flag is cleared whatever the
// outcome; afterwards exactly one of similarity or error is set unless the
// session moved on while the call was outstanding.
func (p *Preview) Run(ctx context.Context, frame *capture.Frame) (faceapi.Result, error) {
	gen := p.gen.Current()
	p.mu.Lock()
	p.active++
	p.mu.Unlock()
	seq := p.readout.Issue()

	res, err := p.verify(ctx, frame)

	p.mu.Lock()
	p.active--
	if !p.gen.Live(gen) {
		p.mu.Unlock()
		return res, err
	}
	if err != nil {
		p.percent, p.verified = nil, false
		p.errMsg = faceapi.Message(err, defaultPreviewError)
		p.readout.Publish(seq, nil)
		p.mu.Unlock()
		if p.logger != nil {
			p.logger.Info("preview failed", "error", err)
		}
		return res, err
	}
	pct := res.Percent()
	p.percent, p.verified, p.errMsg = &pct, res.Verified, ""
	p.readout.Publish(seq, &pct)
	p.mu.Unlock()

	if p.logger != nil {
		p.logger.Info("preview", "similarity", pct, "verified", res.Verified)
	}
	if res.Verified {
		p.notifier.Success(fmt.Sprintf("Face verified (%.1f%%)", pct))
		if p.onSuccess != nil {
			p.onSuccess(frame, pct)
		}
	}
	return res, nil
}

func (p *Preview) verify(ctx context.Context, frame *capture.Frame) (res faceapi.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("verifier panic: %v", r)
		}
	}()
	if frame == nil {
		return res, ErrNotCaptured
	}
	return p.verifier.Verify(ctx, frame)
}

// Reset clears the outcome. An outstanding call keeps the previewing flag
// until it returns.
func (p *Preview) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.percent, p.verified, p.errMsg = nil, false, ""
}

// State returns a copy of the preview outcome.
func (p *Preview) State() PreviewState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := PreviewState{Previewing: p.active > 0, Verified: p.verified, Error: p.errMsg}
	if p.percent != nil {
		v := *p.percent
		st.SimilarityPercent = &v
	}
	return st
}

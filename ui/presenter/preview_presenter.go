package presenter

import (
	"image"

	"github.com/soocke/facegate-go/domain/session"
	"github.com/soocke/facegate-go/ui/images"
	"github.com/soocke/facegate-go/ui/model"
)

// PreviewView shows the live or frozen camera image.
type PreviewView interface {
	UpdatePreview(img image.Image)
}

// PreviewStyle picks outline colors for the preview frame.
type PreviewStyle struct {
	Live     string // guide square while detecting
	Captured string // border around a frozen frame awaiting verification
	Verified string
	Rejected string
}

// DefaultPreviewStyle matches the light palette.
func DefaultPreviewStyle() PreviewStyle {
	return PreviewStyle{Live: "#2563eb", Captured: "#64748b", Verified: "#10b981", Rejected: "#dc2626"}
}

// PreviewPresenter shows the live feed while detecting and the frozen frame
// once captured. Images are pushed only when something changed.
type PreviewPresenter struct {
	sessions Sessions
	frames   *model.FrameModel
	view     PreviewView
	style    PreviewStyle
	maxW     int
	maxH     int

	lastSeq   uint64
	lastTone  string
	lastFrame bool
}

func NewPreviewPresenter(sessions Sessions, frames *model.FrameModel, view PreviewView, style PreviewStyle, maxW, maxH int) *PreviewPresenter {
	return &PreviewPresenter{sessions: sessions, frames: frames, view: view, style: style, maxW: maxW, maxH: maxH}
}

// Reset forces the next tick to redraw.
func (p *PreviewPresenter) Reset() {
	if p == nil {
		return
	}
	p.lastSeq, p.lastTone, p.lastFrame = 0, "", false
}

// ProcessFrame pushes the image matching the current session state.
func (p *PreviewPresenter) ProcessFrame() {
	if p == nil || p.sessions == nil || p.view == nil {
		return
	}
	s := p.sessions.Current()
	if s == nil {
		return
	}
	st := s.Status()
	if st.Frame != nil && st.Frame.Image != nil {
		tone := p.frozenTone(st)
		if p.lastFrame && st.Frame.Sequence == p.lastSeq && tone == p.lastTone {
			return
		}
		p.lastFrame, p.lastSeq, p.lastTone = true, st.Frame.Sequence, tone
		img := images.ScaleToFit(st.Frame.Image, p.maxW, p.maxH)
		p.view.UpdatePreview(images.Outline(img, img.Bounds(), images.ParseHex(tone), 4))
		return
	}
	if st.Phase == session.PhaseClosed {
		return
	}
	img, seq := p.frames.Latest()
	if img == nil || (!p.lastFrame && seq == p.lastSeq) {
		return
	}
	p.lastFrame, p.lastSeq, p.lastTone = false, seq, p.style.Live
	scaled := images.ScaleToFit(img, p.maxW, p.maxH)
	p.view.UpdatePreview(images.Outline(scaled, images.GuideRect(scaled.Bounds(), 0.6), images.ParseHex(p.style.Live), 2))
}

func (p *PreviewPresenter) frozenTone(st session.Status) string {
	switch {
	case st.PreviewVerified:
		return p.style.Verified
	case st.PreviewError != "":
		return p.style.Rejected
	}
	return p.style.Captured
}

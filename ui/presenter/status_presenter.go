package presenter

import (
	"fmt"
	"time"

	"github.com/soocke/facegate-go/config"
	"github.com/soocke/facegate-go/domain/session"
	"github.com/soocke/facegate-go/ui/model"
)

// StatusView renders the similarity readout and the message line.
type StatusView interface {
	SetStatus(v model.StatusValues)
}

// StatusPresenter polls the current session and pushes changed texts to the view.
type StatusPresenter struct {
	sessions Sessions
	messages *model.MessageModel
	model    *model.StatusModel
	view     StatusView
}

func NewStatusPresenter(sessions Sessions, messages *model.MessageModel, m *model.StatusModel, view StatusView) *StatusPresenter {
	if m == nil {
		m = model.NewStatusModel()
	}
	return &StatusPresenter{sessions: sessions, messages: messages, model: m, view: view}
}

func (p *StatusPresenter) Tick(now time.Time) {
	if p == nil || p.sessions == nil || p.view == nil {
		return
	}
	s := p.sessions.Current()
	if s == nil {
		return
	}
	v := FormatStatus(s.Status(), p.messages.Latest())
	if p.model.Update(v) {
		p.view.SetStatus(v)
	}
}

// FormatStatus turns a session status and the latest notification into view texts.
func FormatStatus(st session.Status, msg model.Message) model.StatusValues {
	v := model.StatusValues{
		Phase:      st.Phase.String(),
		Similarity: "Similarity: --",
	}
	if st.SimilarityPercent != nil {
		v.Similarity = fmt.Sprintf("Similarity: %.1f%%", *st.SimilarityPercent)
	}
	switch st.Phase {
	case session.PhaseDetecting:
		v.Streak = fmt.Sprintf("Matches: %d/%d (>= %.0f%%)", st.ConsecutiveMatches, st.RequiredMatches, st.ThresholdPercent)
	case session.PhaseCaptured:
		switch {
		case st.Previewing:
			v.Streak = "Verifying..."
		case st.PreviewVerified:
			v.Streak = "Verified"
		case st.PreviewError != "":
			v.Streak = "Not verified"
		}
	case session.PhaseSubmitting:
		v.Streak = "Submitting..."
	}

	switch {
	case st.DeviceError != "":
		v.Message, v.MessageErr = st.DeviceError, true
	case st.Phase == session.PhaseCaptured && st.PreviewError != "":
		v.Message, v.MessageErr = st.PreviewError, true
	case st.Site == config.SiteCheckIn && !st.HasFaceData && msg.Text == "":
		v.Message, v.MessageErr = "No registered face found. Please register first.", true
	default:
		v.Message, v.MessageErr = msg.Text, msg.Error
	}
	return v
}

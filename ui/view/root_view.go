package view

import (
	"image"
	"log/slog"
	"strconv"
	"time"

	"github.com/soocke/facegate-go/config"
	"github.com/soocke/facegate-go/domain/capture"
	"github.com/soocke/facegate-go/domain/session"
	"github.com/soocke/facegate-go/ui/model"
	"github.com/soocke/facegate-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Handlers are invoked on user actions.
type Handlers struct {
	OnCapture    func()
	OnRetake     func()
	OnConfirm    func()
	OnNewSession func()
	OnRegion     func()
	OnExit       func()
	OnDevice     func(id string)
	OnConfig     func(*config.Config)
}

// RootView composes the kiosk layout: stats and controls on top, the
// preview with its readout beside it, and the settings form below.
type RootView struct {
	cfg     *config.Config
	cfgPath string
	site    string
	logger  *slog.Logger

	Session     SessionStats
	ConfigPanel ConfigPanel
	Preview     CapturePreview

	PhaseLabel   *TLabelWidget
	SimLabel     *TLabelWidget
	StreakLabel  *TLabelWidget
	MessageLabel *TLabelWidget
	DeviceSelect *TComboboxWidget

	captureBtn *TButtonWidget
	retakeBtn  *TButtonWidget
	confirmBtn *TButtonWidget
	newBtn     *TButtonWidget
	deviceIDs  []string
}

// UI is the subset of view operations presenters and the app need.
type UI interface {
	SetPhaseLabel(text string)
	SetActions(phase session.Phase)
	SetStatus(v model.StatusValues)
	SetSession(session, total time.Duration, completed int)
	SetDevices(devices []capture.DeviceInfo, active string)
	UpdatePreview(img image.Image)
	PreviewReset()
}

var _ UI = (*RootView)(nil)

func NewRootView(cfg *config.Config, cfgPath, site string, logger *slog.Logger) *RootView {
	return &RootView{cfg: cfg, cfgPath: cfgPath, site: site, logger: logger}
}

// Build constructs the layout.
func (rv *RootView) Build(title string, h Handlers) {
	if rv == nil {
		return
	}
	// Row 0: stats, phase badge, device controls
	rv.Session = NewSessionStats(nil, 0, 0)
	rv.PhaseLabel = TLabel(Txt("Phase: -"), Style(theme.StylePhaseLabel))
	Grid(rv.PhaseLabel, Row(0), Column(3), Sticky("we"), Padx("0.4m"), Pady("0.3m"))

	side := Frame()
	Grid(side, Row(0), Column(4), Rowspan(2), Sticky("ne"), Padx("0.3m"), Pady("0.3m"))
	titleLbl := TLabel(Txt(title), Style(theme.StyleAccentLabel))
	Grid(titleLbl, In(side), Row(0), Column(0), Sticky("we"), Pady("0.2m"))
	rv.DeviceSelect = TCombobox(Values([]string{"<none>"}), Width(26), State("readonly"))
	Grid(rv.DeviceSelect, In(side), Row(1), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	Bind(rv.DeviceSelect, "<<ComboboxSelected>>", Command(func() {
		idx, err := strconv.Atoi(rv.DeviceSelect.Current(nil))
		if err != nil || idx < 0 || idx >= len(rv.deviceIDs) {
			if rv.logger != nil {
				rv.logger.Error("device selection parse error", "error", err)
			}
			return
		}
		if h.OnDevice != nil {
			h.OnDevice(rv.deviceIDs[idx])
		}
	}))
	regionBtn := TButton(Txt("Screen region"), Command(orNoop(h.OnRegion)))
	Grid(regionBtn, In(side), Row(2), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))

	rv.SimLabel = TLabel(Txt("Similarity: --"), Style(theme.StyleInfoLabel))
	Grid(rv.SimLabel, In(side), Row(3), Column(0), Sticky("w"), Pady("0.4m"))
	rv.StreakLabel = TLabel(Txt(""), Style(theme.StyleInfoLabel))
	Grid(rv.StreakLabel, In(side), Row(4), Column(0), Sticky("w"))
	rv.MessageLabel = TLabel(Txt(""), Style(theme.StyleInfoLabel), Wraplength("60m"))
	Grid(rv.MessageLabel, In(side), Row(5), Column(0), Sticky("we"), Pady("0.4m"))

	rv.captureBtn = TButton(Txt("Capture"), Style(theme.StylePrimaryButton), Command(orNoop(h.OnCapture)))
	Grid(rv.captureBtn, In(side), Row(6), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	rv.retakeBtn = TButton(Txt("Retake"), Command(orNoop(h.OnRetake)))
	Grid(rv.retakeBtn, In(side), Row(7), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	rv.confirmBtn = TButton(Txt("Confirm"), Style(theme.StylePrimaryButton), Command(orNoop(h.OnConfirm)))
	Grid(rv.confirmBtn, In(side), Row(8), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	rv.newBtn = TButton(Txt("New session"), Command(orNoop(h.OnNewSession)))
	Grid(rv.newBtn, In(side), Row(9), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	exitBtn := TButton(Txt("Exit"), Style(theme.StyleDangerButton), Command(orNoop(h.OnExit)))
	Grid(exitBtn, In(side), Row(10), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))

	// Row 1: preview
	rv.Preview = NewCapturePreview(1)

	// Rows 2+: settings
	rv.ConfigPanel = NewConfigPanel(rv.cfg, rv.cfgPath, rv.site, h.OnConfig, rv.logger)
	rv.ConfigPanel.Build(2)
	rv.SetActions(session.PhaseDetecting)
}

func orNoop(f func()) func() {
	if f == nil {
		return func() {}
	}
	return f
}

func (rv *RootView) SetPhaseLabel(text string) {
	if rv != nil && rv.PhaseLabel != nil {
		rv.PhaseLabel.Configure(Txt(text))
	}
}

// SetActions enables the buttons that make sense in phase.
func (rv *RootView) SetActions(phase session.Phase) {
	if rv == nil || rv.captureBtn == nil {
		return
	}
	if rv.PhaseLabel != nil {
		rv.PhaseLabel.Configure(Style(theme.PhaseStyle(phase)))
	}
	setEnabled(rv.captureBtn.Window, phase == session.PhaseDetecting)
	setEnabled(rv.retakeBtn.Window, phase == session.PhaseCaptured)
	setEnabled(rv.confirmBtn.Window, phase == session.PhaseCaptured)
	setEnabled(rv.newBtn.Window, phase != session.PhaseSubmitting)
	if rv.DeviceSelect != nil {
		if phase == session.PhaseDetecting || phase == session.PhaseCaptured {
			rv.DeviceSelect.Configure(State("readonly"))
		} else {
			rv.DeviceSelect.Configure(State("disabled"))
		}
	}
	if rv.ConfigPanel != nil {
		rv.ConfigPanel.SetEditable(phase != session.PhaseSubmitting)
	}
}

func setEnabled(w *Window, on bool) {
	if on {
		w.Configure(State("normal"))
		return
	}
	w.Configure(State("disabled"))
}

func (rv *RootView) SetStatus(v model.StatusValues) {
	if rv == nil || rv.SimLabel == nil {
		return
	}
	rv.SimLabel.Configure(Txt(v.Similarity))
	rv.StreakLabel.Configure(Txt(v.Streak))
	style := theme.StyleInfoLabel
	if v.MessageErr {
		style = theme.StyleErrorLabel
	}
	rv.MessageLabel.Configure(Txt(v.Message), Style(style))
}

func (rv *RootView) SetSession(s, total time.Duration, completed int) {
	if rv == nil || rv.Session == nil {
		return
	}
	rv.Session.SetSession(s)
	rv.Session.SetTotal(total)
	rv.Session.SetCompleted(completed)
}

// SetDevices refreshes the device picker and selects active when listed.
func (rv *RootView) SetDevices(devices []capture.DeviceInfo, active string) {
	if rv == nil || rv.DeviceSelect == nil {
		return
	}
	labels := make([]string, 0, len(devices))
	ids := make([]string, 0, len(devices))
	current := -1
	for i, d := range devices {
		labels = append(labels, d.Label)
		ids = append(ids, d.ID)
		if d.ID == active {
			current = i
		}
	}
	if len(labels) == 0 {
		labels = []string{"<none>"}
	}
	rv.deviceIDs = ids
	rv.DeviceSelect.Configure(Values(labels))
	if current >= 0 {
		rv.DeviceSelect.Current(current)
	}
}

func (rv *RootView) UpdatePreview(img image.Image) {
	if rv != nil && rv.Preview != nil {
		rv.Preview.UpdatePreview(img)
	}
}

// PreviewReset clears the preview to the placeholder.
func (rv *RootView) PreviewReset() {
	if rv != nil && rv.Preview != nil {
		rv.Preview.Reset()
	}
}

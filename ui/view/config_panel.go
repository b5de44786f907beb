package view

import (
	"log/slog"
	"strings"

	"github.com/soocke/facegate-go/config"
	"github.com/soocke/facegate-go/ui/model"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// ConfigPanel encapsulates the settings form for the kiosk's call site.
// Changes are saved to disk and handed to onApply; they take effect with
// the next session.
type ConfigPanel interface {
	Build(startRow int) (endRow int) // constructs widgets starting at startRow, returns next free row
	SetEditable(enabled bool)
	ApplyChanges()
}

type configPanel struct {
	cfg      *config.Config
	cfgPath  string
	form     model.ConfigForm
	onApply  func(*config.Config)
	logger   *slog.Logger
	applyBtn *ButtonWidget
	widgets  map[string]*TextWidget
}

// NewConfigPanel creates the view bound to cfg. The panel owns cfg from
// here on; other goroutines receive copies through onApply.
func NewConfigPanel(cfg *config.Config, cfgPath, site string, onApply func(*config.Config), logger *slog.Logger) ConfigPanel {
	return &configPanel{cfg: cfg, cfgPath: cfgPath, form: model.ConfigForm{Site: site}, onApply: onApply, logger: logger, widgets: make(map[string]*TextWidget)}
}

func (v *configPanel) Build(startRow int) (row int) {
	row = startRow
	for _, f := range v.form.Fields(v.cfg) {
		lbl := Label(Txt(f.Label), Anchor("w"))
		Grid(lbl, Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		w := Text(Height(1), Width(16))
		Grid(w, Row(row), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
		w.Delete("1.0", END)
		w.Insert("1.0", f.Value)
		v.widgets[f.ID] = w
		row++
	}
	v.applyBtn = Button(Txt("Apply (next session)"), Command(func() { v.ApplyChanges() }))
	Grid(v.applyBtn, Row(row), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	row++
	return row
}

func (v *configPanel) SetEditable(enabled bool) {
	state := "disabled"
	if enabled {
		state = "normal"
	}
	for _, w := range v.widgets {
		if w != nil {
			w.Configure(State(state))
		}
	}
	if v.applyBtn != nil {
		v.applyBtn.Configure(State(state))
	}
}

func (v *configPanel) text(w *TextWidget) string {
	if w == nil {
		return ""
	}
	return strings.TrimSpace(strings.Join(w.Get("1.0", END), ""))
}

func (v *configPanel) ApplyChanges() {
	if v.cfg == nil {
		return
	}
	values := make(map[string]string, len(v.widgets))
	for id, w := range v.widgets {
		values[id] = v.text(w)
	}
	next := v.form.Apply(v.cfg, values)
	*v.cfg = *next
	if v.cfgPath != "" {
		if err := v.cfg.Save(v.cfgPath); err != nil {
			if v.logger != nil {
				v.logger.Error("config save failed", "error", err)
			}
		} else if v.logger != nil {
			v.logger.Info("config saved", "path", v.cfgPath)
		}
	}
	if v.onApply != nil {
		snapshot := *v.cfg
		v.onApply(&snapshot)
	}
}

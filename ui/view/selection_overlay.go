package view

import (
	"fmt"
	"image"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders
	. "modernc.org/tk9.0"
)

// RegionOverlay lets the operator drag a transparent window over the part
// of the display that shows the camera feed. Only meaningful for the
// screen capture device.
type RegionOverlay interface {
	OpenOrFocus()
	Clear()
}

type regionOverlay struct {
	logger   *slog.Logger
	onRegion func(image.Rectangle)
	win      *ToplevelWidget
}

// NewRegionOverlay creates an overlay manager. onRegion receives the
// confirmed rectangle, or an empty one on Clear.
func NewRegionOverlay(onRegion func(image.Rectangle), logger *slog.Logger) RegionOverlay {
	return &regionOverlay{logger: logger, onRegion: onRegion}
}

func (v *regionOverlay) OpenOrFocus() {
	if v.win != nil {
		WmGeometry(v.win.Window)
		return
	}
	win := App.Toplevel(Borderwidth(2), Background("#008080"))
	win.WmTitle("Camera region")
	v.win = win
	screenW, screenH := 1920, 1080
	initW, initH := max(screenW/3, 1), max(screenH/3, 1)
	x, y := (screenW-initW)/2, (screenH-initH)/2
	WmGeometry(win.Window, fmt.Sprintf("%dx%d+%d+%d", initW, initH, x, y))
	WmAttributes(win.Window, "-topmost", 1)
	WmAttributes(win.Window, "-alpha", 0.4)
	GridRowConfigure(win.Window, 0, Weight(1))
	GridColumnConfigure(win.Window, 0, Weight(1))
	center := win.Frame(Background("#008080"))
	Grid(center, Row(0), Column(0), Sticky("nsew"))
	controls := win.Frame()
	Grid(controls, Row(1), Column(0), Sticky("we"))
	confirm := win.Button(Txt("Confirm [Enter]"), Command(v.confirm))
	Grid(confirm, In(controls), Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	cancel := win.Button(Txt("Cancel [Esc]"), Command(v.destroy))
	Grid(cancel, In(controls), Row(0), Column(1), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	clear := win.Button(Txt("Whole screen"), Command(v.Clear))
	Grid(clear, In(controls), Row(0), Column(2), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	Bind(win, "<Return>", Command(v.confirm))
	Bind(win, "<Escape>", Command(v.destroy))
}

func (v *regionOverlay) Clear() {
	if v.onRegion != nil {
		v.onRegion(image.Rectangle{})
	}
	v.destroy()
}

func (v *regionOverlay) confirm() {
	if v.win == nil {
		return
	}
	if rect, ok := parseGeometry(WmGeometry(v.win.Window)); ok {
		if v.logger != nil {
			v.logger.Info("screen region set", "rect", rect.String())
		}
		if v.onRegion != nil {
			v.onRegion(rect)
		}
	}
	v.destroy()
}

func (v *regionOverlay) destroy() {
	if v.win != nil {
		Destroy(v.win)
		v.win = nil
	}
}

// geomRe matches window geometry strings in the format "WIDTHxHEIGHT+X+Y"
var geomRe = regexp.MustCompile(`^(\d+)x(\d+)\+(-?\d+)\+(-?\d+)$`)

func parseGeometry(g string) (image.Rectangle, bool) {
	m := geomRe.FindStringSubmatch(strings.TrimSpace(g))
	if len(m) != 5 {
		return image.Rectangle{}, false
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	x, _ := strconv.Atoi(m[3])
	y, _ := strconv.Atoi(m[4])
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(x, y, x+w, y+h), true
}

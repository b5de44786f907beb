// Package theme holds the kiosk's colours and ttk styles. Styles are
// registered once per mode; widgets refer to them by name.
package theme

import (
	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"

	"github.com/soocke/facegate-go/domain/session"
)

// Palette is the set of colours one mode paints with.
type Palette struct {
	Window  string
	Panel   string
	Text    string
	Muted   string
	Action  string
	Danger  string
	Match   string // verified face, finished session
	Pending string // frame held for review
}

var (
	// Light is the default daytime kiosk palette.
	Light = Palette{
		Window:  "#f4f6f8",
		Panel:   "#ffffff",
		Text:    "#17212b",
		Muted:   "#5f6b7a",
		Action:  "#1f6feb",
		Danger:  "#c62828",
		Match:   "#2e7d32",
		Pending: "#b26a00",
	}
	// Dark suits dim lobbies.
	Dark = Palette{
		Window:  "#11161c",
		Panel:   "#1b232c",
		Text:    "#e6edf3",
		Muted:   "#8b98a5",
		Action:  "#388bfd",
		Danger:  "#f85149",
		Match:   "#3fb950",
		Pending: "#d29922",
	}
)

const (
	StylePrimaryButton = "primary.TButton"
	StyleDangerButton  = "danger.TButton"
	StyleAccentLabel   = "accent.TLabel"
	StylePhaseLabel    = "phase.TLabel"
	StyleErrorLabel    = "error.TLabel"
	StyleInfoLabel     = "info.TLabel"

	styleCapturedLabel   = "captured.TLabel"
	styleSubmittingLabel = "submitting.TLabel"
	styleClosedLabel     = "closed.TLabel"
)

var darkMode bool

// Current returns the palette of the active mode.
func Current() Palette {
	if darkMode {
		return Dark
	}
	return Light
}

// InitStyles registers every style for the active mode.
func InitStyles() { applyStyles(Current()) }

// SetDark switches mode and re-registers the styles.
func SetDark(dark bool) bool {
	darkMode = dark
	applyStyles(Current())
	return darkMode
}

func IsDark() bool { return darkMode }

// PhaseStyle names the badge style for a session phase.
func PhaseStyle(p session.Phase) string {
	switch p {
	case session.PhaseCaptured:
		return styleCapturedLabel
	case session.PhaseSubmitting:
		return styleSubmittingLabel
	case session.PhaseClosed:
		return styleClosedLabel
	default:
		return StylePhaseLabel
	}
}

func applyStyles(p Palette) {
	_ = ActivateTheme("azure light")
	App.Configure(Background(p.Window))

	button := func(name, bg string) {
		StyleConfigure(name, Background(bg), Foreground("white"), Padding("8p 5p"), Borderwidth(1), Relief("ridge"))
	}
	button(StylePrimaryButton, p.Action)
	button(StyleDangerButton, p.Danger)

	badge := func(name, bg string) {
		StyleConfigure(name, Background(bg), Foreground("white"), Padding("5p 2p"), Borderwidth(1), Relief("groove"))
	}
	badge(StylePhaseLabel, p.Action)
	badge(styleCapturedLabel, p.Pending)
	badge(styleSubmittingLabel, p.Muted)
	badge(styleClosedLabel, p.Match)

	StyleConfigure(StyleAccentLabel, Foreground(p.Action), Background(p.Panel), Padding("2p 1p"))
	StyleConfigure(StyleErrorLabel, Foreground(p.Danger), Background(p.Window), Padding("2p 1p"))
	StyleConfigure(StyleInfoLabel, Foreground(p.Text), Background(p.Window), Padding("2p 1p"))
}

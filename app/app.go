package app

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"

	"github.com/soocke/facegate-go/app/kiosk"
	"github.com/soocke/facegate-go/config"
	"github.com/soocke/facegate-go/debug"
	"github.com/soocke/facegate-go/domain/capture"
	"github.com/soocke/facegate-go/domain/session"
	"github.com/soocke/facegate-go/ui/presenter"
	"github.com/soocke/facegate-go/ui/theme"
	"github.com/soocke/facegate-go/ui/view"
)

const (
	tick = 100 * time.Millisecond
)

// App is the Tk kiosk window.
type App struct {
	ctx     context.Context
	cancel  context.CancelFunc
	title   string
	width   int
	height  int
	afterID string
	cfgPath string
	logger  *slog.Logger
	c       *AppContainer
	overlay view.RegionOverlay
	devices atomic.Pointer[[]capture.DeviceInfo]
}

// NewApp wires the kiosk for opts.Site. The window opens on Start.
func NewApp(parent context.Context, title string, width, height int, cfg *config.Config, cfgPath string, logger *slog.Logger, opts kiosk.Options, dark bool) *App {
	ctx, cancel := context.WithCancel(parent)
	a := &App{ctx: ctx, cancel: cancel, title: title, width: width, height: height, cfgPath: cfgPath, logger: logger}
	a.c = BuildContainer(ctx, cfg, logger, cfgPath, opts)

	App.WmTitle(title)
	WmProtocol(App, "WM_DELETE_WINDOW", a.exitHandler)
	WmGeometry(App, fmt.Sprintf("%dx%d+100+100", width, height))
	theme.SetDark(dark)
	return a
}

// Start builds the window, opens the first session and blocks in the Tk
// event loop until the window closes.
func (a *App) Start() {
	c := a.c
	cp := c.CapturePresenter
	a.overlay = view.NewRegionOverlay(a.setRegion, a.logger)
	c.RootView.Build(a.title, view.Handlers{
		OnCapture:    func() { cp.Capture() },
		OnRetake:     func() { cp.Retake() },
		OnConfirm:    func() { cp.Confirm() },
		OnNewSession: func() { cp.NewSession() },
		OnRegion:     a.overlay.OpenOrFocus,
		OnExit:       a.exitHandler,
		OnDevice:     a.selectDevice,
		OnConfig:     a.applyConfig,
	})

	c.DeviceWatcher = presenter.NewDeviceWatcher(c.Camera.Devices, a.queueDevices, a.logger, 2*time.Second)
	c.Kiosk.AddListener(c.DeviceWatcher.OnPhase)
	c.Kiosk.OnRenew(func(*session.Controller) {
		c.Messages.Clear()
		c.PhasePresenter.Reset(session.PhaseDetecting)
		c.DeviceWatcher.Start()
	})
	a.queueDevices(c.Camera.Devices())
	c.Loop = presenter.NewLoop(c.SessionPresenter, c.PhasePresenter, c.StatusPresenter, c.PreviewPresenter, a.scheduleUpdate)

	go c.Pump.Run(a.ctx)
	if c.Config.Debug {
		debug.StartGoroutineLogger(a.ctx, 5*time.Second, a.logger)
		debug.StartMemLogger(a.ctx, 5*time.Second, a.logger)
		debug.StartStatsLogger(a.ctx, 5*time.Second, c.Camera, debug.StatsFunc(func() {
			if s := c.Kiosk.Controller(); s != nil {
				s.Loop().LogStats()
			}
		}))
	}
	cp.NewSession()

	a.scheduleUpdate()
	App.Wait()
}

func (a *App) update() {
	defer func() {
		if r := recover(); r != nil {
			if a.logger != nil {
				a.logger.Error("ui tick panic", "error", r)
			}
			a.scheduleUpdate()
		}
	}()
	if devs := a.devices.Swap(nil); devs != nil {
		a.c.UI.SetDevices(*devs, a.c.Camera.Active())
	}
	a.c.Loop.Tick()
}

// queueDevices hands a device list to the UI thread.
func (a *App) queueDevices(devs []capture.DeviceInfo) {
	a.devices.Store(&devs)
}

func (a *App) selectDevice(id string) {
	if a.c.CapturePresenter.SelectDevice(id) {
		a.c.Frames.Clear()
	}
}

func (a *App) setRegion(r image.Rectangle) {
	kiosk.ApplyScreenRegion(a.c.Camera, r)
	a.c.Frames.Clear()
	a.c.PreviewPresenter.Reset()
	cfg := a.c.Kiosk.Config()
	cfg.SetScreenRegion(r)
	a.applyConfig(&cfg)
	if a.cfgPath != "" {
		if err := cfg.Save(a.cfgPath); err != nil && a.logger != nil {
			a.logger.Error("config save failed", "error", err)
		}
	}
}

func (a *App) applyConfig(cfg *config.Config) {
	a.c.Kiosk.SetConfig(cfg)
	a.c.Pump.SetInterval(cfg.PreviewInterval())
}

func (a *App) exitHandler() {
	if a.afterID != "" {
		TclAfterCancel(a.afterID)
	}
	a.c.Kiosk.Close()
	if a.c.DeviceWatcher != nil {
		a.c.DeviceWatcher.Stop()
	}
	a.cancel()
	_ = a.c.Camera.Close()
	Destroy(App)
}

func (a *App) scheduleUpdate() {
	// TclAfter keeps the update on Tk's event loop thread.
	a.afterID = TclAfter(tick, func() { a.update() })
}

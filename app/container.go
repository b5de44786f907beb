package app

import (
	"context"
	"log/slog"

	"github.com/soocke/facegate-go/app/kiosk"
	"github.com/soocke/facegate-go/config"
	"github.com/soocke/facegate-go/domain/capture"
	"github.com/soocke/facegate-go/domain/faceapi"
	"github.com/soocke/facegate-go/ui/model"
	"github.com/soocke/facegate-go/ui/presenter"
	"github.com/soocke/facegate-go/ui/view"
)

// AppContainer assembles models, services, presenters and the root view.
type AppContainer struct {
	Config   *config.Config
	Logger   *slog.Logger
	Camera   *capture.Manager
	Client   *faceapi.Client
	Kiosk    *kiosk.Kiosk
	Pump     *kiosk.PreviewPump
	Frames   *model.FrameModel
	Messages *model.MessageModel
	Session  *model.SessionModel
	Status   *model.StatusModel
	RootView *view.RootView
	UI       view.UI

	// Presenters
	SessionPresenter *presenter.SessionPresenter
	PhasePresenter   *presenter.PhasePresenter
	StatusPresenter  *presenter.StatusPresenter
	PreviewPresenter *presenter.PreviewPresenter
	CapturePresenter *presenter.CapturePresenter
	DeviceWatcher    *presenter.DeviceWatcher
	Loop             *presenter.Loop
}

// BuildContainer constructs all components. The root view is created but
// not built; widgets are made by the app once Tk is ready.
func BuildContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, cfgPath string, opts kiosk.Options) *AppContainer {
	c := &AppContainer{Config: cfg, Logger: logger}
	c.Camera = kiosk.NewCamera(cfg, logger)
	c.Client = faceapi.NewClient(cfg.APIBaseURL, cfg.APIToken, cfg.APITimeout())
	c.Frames = &model.FrameModel{}
	c.Messages = &model.MessageModel{}
	c.Session = model.NewSessionModel()
	c.Status = model.NewStatusModel()
	c.Kiosk = kiosk.New(logger, cfg, c.Camera, c.Client, c.Messages, opts)
	c.Pump = kiosk.NewPreviewPump(logger, c.Camera, c.Frames, c.Kiosk.Detecting, cfg.PreviewInterval())

	c.RootView = view.NewRootView(cfg, cfgPath, opts.Site, logger)
	c.UI = c.RootView

	c.PhasePresenter = presenter.NewPhasePresenter(c.RootView, c.Session.OnCompleted)
	c.SessionPresenter = presenter.NewSessionPresenter(c.Session, c.Kiosk, c.RootView)
	c.StatusPresenter = presenter.NewStatusPresenter(c.Kiosk, c.Messages, c.Status, c.RootView)
	c.PreviewPresenter = presenter.NewPreviewPresenter(c.Kiosk, c.Frames, c.RootView, presenter.DefaultPreviewStyle(), view.PreviewMaxW, view.PreviewMaxH)
	c.CapturePresenter = presenter.NewCapturePresenter(ctx, c.Kiosk, c.RootView, c.Messages, logger)
	c.Kiosk.AddListener(c.PhasePresenter.OnPhase)
	return c
}

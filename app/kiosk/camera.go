package kiosk

import (
	"image"
	"log/slog"

	"github.com/soocke/facegate-go/config"
	"github.com/soocke/facegate-go/domain/capture"
)

// NewCamera builds a capture manager over every configured device id.
// Unknown ids are logged and skipped.
func NewCamera(cfg *config.Config, logger *slog.Logger) *capture.Manager {
	m := capture.NewManager(logger, nil, capture.EncodeOptions{Quality: cfg.JPEGQuality, MaxWidth: cfg.MaxFrameWidth})
	if err := m.EnsureIDs(cfg.DeviceIDs(), cfg.APITimeout()); err != nil && logger != nil {
		logger.Warn("some devices could not be registered", "error", err)
	}
	ApplyScreenRegion(m, cfg.ScreenRegion())
	return m
}

// ApplyScreenRegion restricts the screen device, when registered, to r.
func ApplyScreenRegion(m *capture.Manager, r image.Rectangle) {
	if sd, ok := m.Device(capture.ScreenDeviceID).(*capture.ScreenDevice); ok {
		sd.SetRegion(r)
	}
}

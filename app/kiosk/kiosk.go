// Package kiosk holds the kiosk's current capture session and the live
// preview pump. It has no UI dependency so it can run headless.
package kiosk

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/soocke/facegate-go/config"
	"github.com/soocke/facegate-go/domain/capture"
	"github.com/soocke/facegate-go/domain/faceapi"
	"github.com/soocke/facegate-go/domain/session"
	"github.com/soocke/facegate-go/ui/presenter"
)

// Options configure which kind of session the kiosk runs.
type Options struct {
	Site        string
	Admin       session.AdminCredentials
	AutoConfirm bool
}

// Kiosk owns one session at a time for a single call site. Renew closes the
// running session and opens the next one. Use New to construct an instance.
type Kiosk struct {
	logger   *slog.Logger
	camera   *capture.Manager
	client   *faceapi.Client
	notifier session.Notifier
	opts     Options

	mu        sync.Mutex
	cfg       *config.Config
	current   *session.Controller
	listeners []session.PhaseListener
	renewed   []func(*session.Controller)
}

var _ presenter.Sessions = (*Kiosk)(nil)

// New wires a kiosk. cfg is copied; use SetConfig to replace it later.
func New(logger *slog.Logger, cfg *config.Config, camera *capture.Manager, client *faceapi.Client, notifier session.Notifier, opts Options) *Kiosk {
	c := *cfg
	return &Kiosk{logger: logger, cfg: &c, camera: camera, client: client, notifier: notifier, opts: opts}
}

// AddListener registers a phase listener attached to every session.
func (k *Kiosk) AddListener(l session.PhaseListener) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.listeners = append(k.listeners, l)
	if k.current != nil {
		k.current.AddListener(l)
	}
}

// OnRenew registers a callback invoked after each new session opened.
func (k *Kiosk) OnRenew(f func(*session.Controller)) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.renewed = append(k.renewed, f)
}

// SetConfig replaces the config used for the next session.
func (k *Kiosk) SetConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	c := *cfg
	k.mu.Lock()
	k.cfg = &c
	k.mu.Unlock()
}

// Config returns a copy of the config used for the next session.
func (k *Kiosk) Config() config.Config {
	k.mu.Lock()
	defer k.mu.Unlock()
	return *k.cfg
}

// Current returns the running session or nil before the first Renew.
func (k *Kiosk) Current() presenter.Session {
	c := k.Controller()
	if c == nil {
		return nil
	}
	return c
}

// Controller returns the running session as its concrete type.
func (k *Kiosk) Controller() *session.Controller {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current
}

// Renew closes the running session and opens a new one. A camera failure
// during open does not fail Renew; the session reports it in its status.
func (k *Kiosk) Renew(ctx context.Context) (presenter.Session, error) {
	k.mu.Lock()
	prev := k.current
	cfg := *k.cfg
	listeners := append([]session.PhaseListener(nil), k.listeners...)
	renewed := append([]func(*session.Controller){}, k.renewed...)
	k.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	// stay on the device the operator picked last
	if active := k.camera.Active(); active != "" {
		cfg.DeviceID = active
	}
	f := &session.Factory{Logger: k.logger, Config: &cfg, Client: k.client, Camera: k.camera, Notifier: k.notifier}
	next, err := f.New(ctx, k.opts.Site, k.opts.Admin, k.opts.AutoConfirm)
	if err != nil {
		return nil, fmt.Errorf("could not create session: %w", err)
	}
	for _, l := range listeners {
		next.AddListener(l)
	}

	k.mu.Lock()
	k.current = next
	k.mu.Unlock()

	if err := next.Open(ctx); err != nil && k.logger != nil {
		k.logger.Warn("session opened without camera", "error", err)
	}
	for _, f := range renewed {
		f(next)
	}
	return next, nil
}

// Close ends the running session.
func (k *Kiosk) Close() {
	if c := k.Controller(); c != nil {
		c.Close()
	}
}

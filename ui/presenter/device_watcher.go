package presenter

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/soocke/facegate-go/domain/capture"
	"github.com/soocke/facegate-go/domain/session"
)

// DeviceWatcher re-enumerates capture devices while a session is detecting
// and reports list changes, so hot-plugged cameras show up in the picker.
type DeviceWatcher struct {
	List     func() []capture.DeviceInfo
	OnChange func([]capture.DeviceInfo)
	Logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	running bool
	done    chan struct{}
	last    []capture.DeviceInfo
}

// NewDeviceWatcher constructs a watcher polling list every interval.
func NewDeviceWatcher(list func() []capture.DeviceInfo, onChange func([]capture.DeviceInfo), logger *slog.Logger, interval time.Duration) *DeviceWatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &DeviceWatcher{List: list, OnChange: onChange, Logger: logger, interval: interval}
}

// OnPhase starts polling while detecting and stops otherwise. Use it as a
// session.PhaseListener.
func (w *DeviceWatcher) OnPhase(prev, next session.Phase) {
	if w == nil {
		return
	}
	if next == session.PhaseDetecting {
		w.Start()
		return
	}
	w.Stop()
}

func (w *DeviceWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.done = make(chan struct{})
	w.running = true
	go w.loop(w.done)
}

func (w *DeviceWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.done)
	w.running = false
}

// Running reports whether the watcher is polling.
func (w *DeviceWatcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *DeviceWatcher) loop(done chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.poll()
		case <-done:
			return
		}
	}
}

func (w *DeviceWatcher) poll() {
	if w.List == nil {
		return
	}
	devices := w.List()
	w.mu.Lock()
	changed := !slices.Equal(devices, w.last)
	if changed {
		w.last = devices
	}
	w.mu.Unlock()
	if !changed {
		return
	}
	if w.Logger != nil {
		w.Logger.Debug("device list changed", "count", len(devices))
	}
	if w.OnChange != nil {
		w.OnChange(devices)
	}
}

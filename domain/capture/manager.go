package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Manager owns the registered devices, the currently selected one and the
// session generation. It implements Source. Use NewManager to construct an
// instance.
type Manager struct {
	mu       sync.Mutex
	logger   *slog.Logger
	gen      *Generation
	opts     EncodeOptions
	devices  []Device
	active   Device
	activeID string

	captures     atomic.Uint64
	skipped      atomic.Uint64
	captureNanos atomic.Uint64
	sequence     atomic.Uint64
	lastCapture  atomic.Int64
}

// NewManager constructs a manager over the given devices. gen may be nil, in
// which case the manager allocates its own.
func NewManager(logger *slog.Logger, gen *Generation, opts EncodeOptions, devices ...Device) *Manager {
	if gen == nil {
		gen = &Generation{}
	}
	return &Manager{logger: logger, gen: gen, opts: opts, devices: devices}
}

// Generation returns the session generation shared with the detection loop.
func (m *Manager) Generation() *Generation { return m.gen }

// Register adds a device to the enumerable set. Registering an id twice
// replaces the earlier device.
func (m *Manager) Register(d Device) {
	if d == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.devices {
		if existing.Info().ID == d.Info().ID {
			m.devices[i] = d
			return
		}
	}
	m.devices = append(m.devices, d)
}

// EnsureIDs registers a driver for every id not registered yet. Ids
// without a driver are reported in the joined error; the rest are still
// registered.
func (m *Manager) EnsureIDs(ids []string, timeout time.Duration) error {
	var errs []error
	for _, id := range ids {
		if id == "" || m.has(id) {
			continue
		}
		d, err := DeviceFromID(id, timeout)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m.Register(d)
	}
	return errors.Join(errs...)
}

func (m *Manager) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.devices {
		if d.Info().ID == id {
			return true
		}
	}
	return false
}

// Device returns the registered driver for id, or nil.
func (m *Manager) Device(id string) Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.devices {
		if d.Info().ID == id {
			return d
		}
	}
	return nil
}

// Devices lists the registered devices in registration order.
func (m *Manager) Devices() []DeviceInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DeviceInfo, 0, len(m.devices))
	for _, d := range m.devices {
		info := d.Info()
		if info.Label == "" {
			info.Label = fallbackLabel(info.ID)
		}
		out = append(out, info)
	}
	return out
}

// Active returns the id of the selected device, or "" when none is open.
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// Select switches to the device with the given id. The generation is bumped
// before anything else so grabs outstanding on the old device are void.
func (m *Manager) Select(ctx context.Context, id string) error {
	gen := m.gen.Bump()
	m.mu.Lock()
	defer m.mu.Unlock()
	var next Device
	for _, d := range m.devices {
		if d.Info().ID == id {
			next = d
			break
		}
	}
	if m.active != nil {
		if err := m.active.Close(); err != nil && m.logger != nil {
			m.logger.Warn("close device", "device", m.activeID, "error", err)
		}
		m.active, m.activeID = nil, ""
	}
	if next == nil {
		return &DeviceError{Kind: DeviceNotFound, DeviceID: id, Err: ErrNoDevice}
	}
	if err := next.Open(ctx); err != nil {
		return classify(id, err)
	}
	m.active, m.activeID = next, id
	if m.logger != nil {
		m.logger.Info("device selected", "device", id, "generation", gen)
	}
	return nil
}

// Snapshot grabs and encodes one frame from the active device. It returns
// (nil, nil) when the device is not ready yet or when a device switch
// happened while the grab was outstanding.
func (m *Manager) Snapshot(ctx context.Context) (*Frame, error) {
	m.mu.Lock()
	dev, id := m.active, m.activeID
	m.mu.Unlock()
	if dev == nil {
		return nil, nil
	}
	gen := m.gen.Current()
	start := time.Now()
	img, err := dev.Grab(ctx)
	if err != nil {
		m.skipped.Add(1)
		if !m.gen.Live(gen) {
			return nil, nil
		}
		return nil, classifyGrab(id, err)
	}
	if img == nil || !m.gen.Live(gen) {
		m.skipped.Add(1)
		return nil, nil
	}
	data, scaled, err := EncodeJPEG(img, m.opts)
	if err != nil {
		m.skipped.Add(1)
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	elapsed := time.Since(start)
	m.captureNanos.Add(uint64(elapsed.Nanoseconds()))
	m.captures.Add(1)
	now := time.Now()
	m.lastCapture.Store(now.UnixNano())
	return &Frame{
		Data:       data,
		Image:      scaled,
		DeviceID:   id,
		Generation: gen,
		Sequence:   m.sequence.Add(1),
		CapturedAt: now,
	}, nil
}

// Close releases the active device.
func (m *Manager) Close() error {
	m.gen.Bump()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	err := m.active.Close()
	m.active, m.activeID = nil, ""
	return err
}

// Stats returns capture counters for instrumentation.
func (m *Manager) Stats() Stats {
	captures := m.captures.Load()
	total := m.captureNanos.Load()
	var avg time.Duration
	avgMicros := 0.0
	if captures > 0 && total > 0 {
		avg = time.Duration(total / captures)
		avgMicros = float64(avg) / float64(time.Microsecond)
	}
	var last time.Time
	if ns := m.lastCapture.Load(); ns > 0 {
		last = time.Unix(0, ns)
	}
	return Stats{
		Captures:         captures,
		Skipped:          m.skipped.Load(),
		AvgCapture:       avg,
		AvgCaptureMicros: avgMicros,
		LastCapture:      last,
		Sequence:         m.sequence.Load(),
		Generation:       m.gen.Current(),
		ActiveDevice:     m.Active(),
	}
}

// LogStats writes the current counters at debug level.
func (m *Manager) LogStats() {
	if m.logger == nil {
		return
	}
	stats := m.Stats()
	m.logger.Debug("capture.stats",
		"captures", stats.Captures,
		"skipped", stats.Skipped,
		"avg_capture", stats.AvgCapture,
		"device", stats.ActiveDevice,
		"generation", stats.Generation,
	)
}

func fallbackLabel(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return "Camera " + id
}

var _ Source = (*Manager)(nil)

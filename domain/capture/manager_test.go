package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

var discardLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// fakeDevice returns a solid image; grabs block until release is closed when set.
type fakeDevice struct {
	id      string
	openErr error
	release chan struct{}
	mu      sync.Mutex
	opened  int
	closed  int
	started chan struct{}
}

func (d *fakeDevice) Info() DeviceInfo { return DeviceInfo{ID: d.id} }
func (d *fakeDevice) Open(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened++
	return d.openErr
}
func (d *fakeDevice) Grab(ctx context.Context) (image.Image, error) {
	if d.started != nil {
		select {
		case d.started <- struct{}{}:
		default:
		}
	}
	if d.release != nil {
		select {
		case <-d.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return solid(64, 48, 120), nil
}
func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

func solid(w, h int, lum uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{lum, lum, lum, 255})
		}
	}
	return img
}

func TestManager_SnapshotBeforeSelectIsNotReady(t *testing.T) {
	m := NewManager(discardLogger, nil, DefaultEncodeOptions(), &fakeDevice{id: "a"})
	f, err := m.Snapshot(context.Background())
	if f != nil || err != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", f, err)
	}
}

func TestManager_SelectBumpsGenerationAndTagsFrames(t *testing.T) {
	a, b := &fakeDevice{id: "a"}, &fakeDevice{id: "b"}
	m := NewManager(discardLogger, nil, DefaultEncodeOptions(), a, b)
	ctx := context.Background()
	if err := m.Select(ctx, "a"); err != nil {
		t.Fatalf("select a: %v", err)
	}
	g1 := m.Generation().Current()
	f, err := m.Snapshot(ctx)
	if err != nil || f == nil {
		t.Fatalf("snapshot: %v %v", f, err)
	}
	if f.Generation != g1 || f.DeviceID != "a" || len(f.Data) == 0 {
		t.Fatalf("unexpected frame: gen=%d dev=%s bytes=%d", f.Generation, f.DeviceID, len(f.Data))
	}
	if err := m.Select(ctx, "b"); err != nil {
		t.Fatalf("select b: %v", err)
	}
	if m.Generation().Current() <= g1 {
		t.Fatalf("generation not bumped")
	}
	if a.closed != 1 {
		t.Fatalf("previous device should be closed, closed=%d", a.closed)
	}
	if m.Active() != "b" {
		t.Fatalf("active = %q", m.Active())
	}
}

func TestManager_DeviceSwitchVoidsOutstandingGrab(t *testing.T) {
	slow := &fakeDevice{id: "slow", release: make(chan struct{}), started: make(chan struct{}, 1)}
	fast := &fakeDevice{id: "fast"}
	m := NewManager(discardLogger, nil, DefaultEncodeOptions(), slow, fast)
	ctx := context.Background()
	if err := m.Select(ctx, "slow"); err != nil {
		t.Fatal(err)
	}
	type result struct {
		f   *Frame
		err error
	}
	done := make(chan result, 1)
	go func() {
		f, err := m.Snapshot(ctx)
		done <- result{f, err}
	}()
	<-slow.started
	if err := m.Select(ctx, "fast"); err != nil {
		t.Fatal(err)
	}
	close(slow.release)
	select {
	case r := <-done:
		if r.f != nil || r.err != nil {
			t.Fatalf("stale grab should yield (nil, nil), got (%v, %v)", r.f, r.err)
		}
	case <-time.After(time.Second):
		t.Fatalf("snapshot did not return")
	}
}

func TestManager_SelectUnknownDevice(t *testing.T) {
	m := NewManager(discardLogger, nil, DefaultEncodeOptions())
	err := m.Select(context.Background(), "ghost")
	var de *DeviceError
	if !errors.As(err, &de) || de.Kind != DeviceNotFound {
		t.Fatalf("expected not-found DeviceError, got %v", err)
	}
}

func TestManager_OpenErrorsAreClassified(t *testing.T) {
	cases := []struct {
		err  error
		kind DeviceErrorKind
	}{
		{os.ErrPermission, DevicePermissionDenied},
		{os.ErrNotExist, DeviceNotFound},
		{ErrDeviceBusy, DeviceBusy},
		{errors.New("boom"), DeviceUnavailable},
	}
	for _, tc := range cases {
		m := NewManager(discardLogger, nil, DefaultEncodeOptions(), &fakeDevice{id: "x", openErr: tc.err})
		err := m.Select(context.Background(), "x")
		var de *DeviceError
		if !errors.As(err, &de) {
			t.Fatalf("%v: expected DeviceError, got %v", tc.err, err)
		}
		if de.Kind != tc.kind {
			t.Fatalf("%v: kind = %v, want %v", tc.err, de.Kind, tc.kind)
		}
		if m.Active() != "" {
			t.Fatalf("failed open must not leave an active device")
		}
	}
}

func TestManager_DevicesFallbackLabel(t *testing.T) {
	m := NewManager(discardLogger, nil, DefaultEncodeOptions(), &fakeDevice{id: "0123456789abcdef"})
	got := m.Devices()
	if len(got) != 1 || got[0].Label != "Camera 01234567" {
		t.Fatalf("unexpected devices: %+v", got)
	}
}

func TestFolderDevice_ReplaysInOrder(t *testing.T) {
	dir := t.TempDir()
	for i, lum := range []uint8{10, 200} {
		f, err := os.Create(filepath.Join(dir, []string{"a.png", "b.png"}[i]))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, solid(4, 4, lum)); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
	d := NewFolderDevice(dir)
	ctx := context.Background()
	if err := d.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	var lums []uint32
	for i := 0; i < 3; i++ {
		img, err := d.Grab(ctx)
		if err != nil || img == nil {
			t.Fatalf("grab %d: %v", i, err)
		}
		r, _, _, _ := img.At(0, 0).RGBA()
		lums = append(lums, r>>8)
	}
	if lums[0] != 10 || lums[1] != 200 || lums[2] != 10 {
		t.Fatalf("unexpected replay order: %v", lums)
	}
}

func TestFolderDevice_EmptyDirIsNotFound(t *testing.T) {
	m := NewManager(discardLogger, nil, DefaultEncodeOptions(), NewFolderDevice(t.TempDir()))
	id := m.Devices()[0].ID
	err := m.Select(context.Background(), id)
	var de *DeviceError
	if !errors.As(err, &de) || de.Kind != DeviceNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestEncodeJPEG_Downscales(t *testing.T) {
	data, scaled, err := EncodeJPEG(solid(400, 200, 90), EncodeOptions{Quality: 80, MaxWidth: 200})
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 3 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Fatalf("not a JPEG payload")
	}
	if b := scaled.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Fatalf("unexpected scaled size %v", b)
	}
}

func TestDeviceFromID(t *testing.T) {
	if d, err := DeviceFromID(ScreenDeviceID, 0); err != nil || d.Info().ID != ScreenDeviceID {
		t.Fatalf("screen: %v %v", d, err)
	}
	if d, err := DeviceFromID("dir:/tmp/x", 0); err != nil || d.Info().ID != "dir:/tmp/x" {
		t.Fatalf("dir: %v %v", d, err)
	}
	if d, err := DeviceFromID("http://cam.local/snap.jpg", 0); err != nil || d.Info().ID != "http://cam.local/snap.jpg" {
		t.Fatalf("url: %v %v", d, err)
	}
	if _, err := DeviceFromID("usb:1", 0); err == nil {
		t.Fatalf("expected error for unknown scheme")
	}
}

func TestManager_EnsureIDs(t *testing.T) {
	m := NewManager(discardLogger, nil, DefaultEncodeOptions())
	err := m.EnsureIDs([]string{ScreenDeviceID, "dir:/tmp/replay", "usb:3", ScreenDeviceID}, time.Second)
	var de *DeviceError
	if !errors.As(err, &de) || de.DeviceID != "usb:3" {
		t.Fatalf("expected error for usb:3, got %v", err)
	}
	screen := m.Device(ScreenDeviceID)
	if got := m.Devices(); len(got) != 2 {
		t.Fatalf("expected 2 devices, got %+v", got)
	}
	if err := m.EnsureIDs([]string{ScreenDeviceID}, time.Second); err != nil {
		t.Fatal(err)
	}
	if m.Device(ScreenDeviceID) != screen {
		t.Fatalf("known ids must not be replaced")
	}
}

func TestScreenDevice_Region(t *testing.T) {
	d := NewScreenDevice()
	if !d.Region().Empty() {
		t.Fatalf("default region should be empty")
	}
	r := image.Rect(10, 10, 110, 90)
	d.SetRegion(r)
	if d.Region() != r {
		t.Fatalf("region = %v", d.Region())
	}
}

type failingGrabDevice struct {
	fakeDevice
	grabErr error
}

func (d *failingGrabDevice) Grab(context.Context) (image.Image, error) { return nil, d.grabErr }

func TestManager_GrabErrorsOnlyEscalateWhenUserMustAct(t *testing.T) {
	cases := []struct {
		err    error
		device bool
		kind   DeviceErrorKind
	}{
		{errors.New("request failed: i/o timeout"), false, 0},
		{errors.New("unexpected EOF"), false, 0},
		{os.ErrPermission, true, DevicePermissionDenied},
		{ErrDeviceBusy, true, DeviceBusy},
	}
	for _, tc := range cases {
		d := &failingGrabDevice{fakeDevice: fakeDevice{id: "x"}, grabErr: tc.err}
		m := NewManager(discardLogger, nil, DefaultEncodeOptions(), d)
		if err := m.Select(context.Background(), "x"); err != nil {
			t.Fatal(err)
		}
		f, err := m.Snapshot(context.Background())
		if f != nil || !errors.Is(err, tc.err) {
			t.Fatalf("%v: got (%v, %v)", tc.err, f, err)
		}
		var de *DeviceError
		if errors.As(err, &de) != tc.device {
			t.Fatalf("%v: device error = %v, want %v", tc.err, de != nil, tc.device)
		}
		if tc.device && de.Kind != tc.kind {
			t.Fatalf("%v: kind = %v", tc.err, de.Kind)
		}
	}
}

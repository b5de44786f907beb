package capture

import (
	"context"
	"image"
	"sync/atomic"

	"github.com/vova616/screenshot"
)

// ScreenDeviceID is the id of the primary display device.
const ScreenDeviceID = "screen:0"

// ScreenDevice grabs the primary display. It stands in for a webcam on
// kiosks that mirror a camera feed onto the screen and in demos. A non-empty
// region restricts grabs to that rectangle.
type ScreenDevice struct {
	region atomic.Pointer[image.Rectangle]
	open   atomic.Bool
}

// NewScreenDevice returns a display capture device.
func NewScreenDevice() *ScreenDevice { return &ScreenDevice{} }

// SetRegion restricts later grabs to r. An empty r captures the whole display.
func (d *ScreenDevice) SetRegion(r image.Rectangle) {
	d.region.Store(&r)
}

// Region returns the active capture rectangle, empty for the whole display.
func (d *ScreenDevice) Region() image.Rectangle {
	if r := d.region.Load(); r != nil {
		return *r
	}
	return image.Rectangle{}
}

func (d *ScreenDevice) Info() DeviceInfo {
	return DeviceInfo{ID: ScreenDeviceID, Label: "Screen capture"}
}

func (d *ScreenDevice) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.open.Store(true)
	return nil
}

func (d *ScreenDevice) Grab(ctx context.Context) (image.Image, error) {
	if !d.open.Load() {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r := d.Region(); !r.Empty() {
		img, err := screenshot.CaptureRect(r)
		if err != nil {
			return nil, err
		}
		return img, nil
	}
	img, err := screenshot.CaptureScreen()
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (d *ScreenDevice) Close() error {
	d.open.Store(false)
	return nil
}

package capture

import (
	"context"
	"encoding/base64"
	"image"
	"time"
)

// Frame is one encoded still grabbed from the active device. Frames are
// produced fresh on every snapshot and never mutated afterwards.
type Frame struct {
	Data       []byte      // JPEG bytes sent to the face API
	Image      image.Image // downscaled source, kept for on-screen preview
	DeviceID   string
	Generation uint64 // session generation the frame was grabbed under
	Sequence   uint64
	CapturedAt time.Time
}

// Base64 returns the JPEG payload in the encoding the face API expects.
func (f *Frame) Base64() string {
	if f == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(f.Data)
}

// DeviceInfo describes an enumerable capture device.
type DeviceInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Device is a single camera-like image source.
//
// Grab returns a nil image with a nil error while the device is still
// warming up; callers retry later.
type Device interface {
	Info() DeviceInfo
	Open(ctx context.Context) error
	Grab(ctx context.Context) (image.Image, error)
	Close() error
}

// Source is what the detection loop and the session controller need from
// the capture layer.
type Source interface {
	Snapshot(ctx context.Context) (*Frame, error)
	Devices() []DeviceInfo
	Select(ctx context.Context, id string) error
}

// Stats summarises capture behaviour for instrumentation.
type Stats struct {
	Captures         uint64
	Skipped          uint64
	AvgCapture       time.Duration
	AvgCaptureMicros float64
	LastCapture      time.Time
	Sequence         uint64
	Generation       uint64
	ActiveDevice     string
}

package model

import (
	"image"
	"sync/atomic"
)

type frameEntry struct {
	img image.Image
	seq uint64
}

// FrameModel holds the most recent live preview image. The zero value is empty and usable.
// Concurrency-safe because the preview pump writes while presenter ticks read.
type FrameModel struct{ latest atomic.Pointer[frameEntry] }

// Set stores img with its capture sequence.
func (m *FrameModel) Set(img image.Image, seq uint64) {
	if m == nil || img == nil {
		return
	}
	m.latest.Store(&frameEntry{img: img, seq: seq})
}

// Latest returns the stored image and its sequence, or (nil, 0).
func (m *FrameModel) Latest() (image.Image, uint64) {
	if m == nil {
		return nil, 0
	}
	e := m.latest.Load()
	if e == nil {
		return nil, 0
	}
	return e.img, e.seq
}

// Clear drops the stored image, for example after a device switch.
func (m *FrameModel) Clear() {
	if m == nil {
		return
	}
	m.latest.Store(nil)
}

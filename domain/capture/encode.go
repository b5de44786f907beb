package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// EncodeOptions controls how grabbed images become API payloads.
type EncodeOptions struct {
	Quality  int // JPEG quality 1-100
	MaxWidth int // frames wider than this are downscaled, 0 disables
}

// DefaultEncodeOptions mirrors the kiosk defaults (1280px wide, quality 85).
func DefaultEncodeOptions() EncodeOptions { return EncodeOptions{Quality: 85, MaxWidth: 1280} }

// Downscale returns img scaled to fit maxW keeping the aspect ratio. Images
// that already fit are returned unchanged.
func Downscale(img image.Image, maxW int) image.Image {
	if img == nil || maxW <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW {
		return img
	}
	newH := int(float64(h) * float64(maxW) / float64(w))
	if newH < 1 {
		newH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// EncodeJPEG downscales img per opts and encodes it as JPEG. It returns the
// image actually encoded alongside the bytes.
func EncodeJPEG(img image.Image, opts EncodeOptions) ([]byte, image.Image, error) {
	if img == nil {
		return nil, nil, errors.New("encode: nil image")
	}
	q := opts.Quality
	if q <= 0 || q > 100 {
		q = 85
	}
	scaled := Downscale(img, opts.MaxWidth)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: q}); err != nil {
		return nil, nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), scaled, nil
}

package images

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// GuideRect returns a square centered in bounds whose side is fraction of the
// shorter edge. The square is clamped to bounds and is at least 1x1.
func GuideRect(bounds image.Rectangle, fraction float64) image.Rectangle {
	if fraction <= 0 || fraction > 1 {
		fraction = 1
	}
	side := bounds.Dx()
	if bounds.Dy() < side {
		side = bounds.Dy()
	}
	size := max(int(float64(side)*fraction), 1)
	cx := bounds.Min.X + bounds.Dx()/2
	cy := bounds.Min.Y + bounds.Dy()/2
	r := image.Rect(cx-size/2, cy-size/2, cx-size/2+size, cy-size/2+size)
	r = r.Intersect(bounds)
	if r.Empty() {
		return image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Min.X+1, bounds.Min.Y+1)
	}
	return r
}

// Outline returns an RGBA copy of src with a rectangle of the given
// thickness drawn inside r. r is clamped to the image bounds.
func Outline(src image.Image, r image.Rectangle, c color.Color, thickness int) *image.RGBA {
	if src == nil {
		return nil
	}
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	r = r.Intersect(b)
	if r.Empty() {
		return dst
	}
	if thickness < 1 {
		thickness = 1
	}
	fill := image.NewUniform(c)
	t := min(thickness, r.Dx()/2+1, r.Dy()/2+1)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), fill, image.Point{}, draw.Src)
	}
	return dst
}

// ParseHex turns "#rrggbb" into an opaque color. Malformed input yields black.
func ParseHex(s string) color.RGBA {
	c := color.RGBA{A: 255}
	if len(s) != 7 || s[0] != '#' {
		return c
	}
	hex := func(b byte) uint8 {
		switch {
		case b >= '0' && b <= '9':
			return b - '0'
		case b >= 'a' && b <= 'f':
			return b - 'a' + 10
		case b >= 'A' && b <= 'F':
			return b - 'A' + 10
		}
		return 0
	}
	c.R = hex(s[1])<<4 | hex(s[2])
	c.G = hex(s[3])<<4 | hex(s[4])
	c.B = hex(s[5])<<4 | hex(s[6])
	return c
}

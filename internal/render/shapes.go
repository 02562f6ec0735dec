package render

import (
	"image"
	"image/color"

	"golang.org/x/image/vector"
)

// kappa is the cubic Bézier control distance for a quarter circle.
const kappa = 0.5522847498

// fillRoundedRect paints an anti-aliased rounded rectangle onto dst.
//
// The radius is clamped to half the shorter side, so a radius of
// height/2 produces a pill.
func fillRoundedRect(dst *image.RGBA, rect image.Rectangle, radius float32, c color.Color) {
	if rect.Empty() {
		return
	}
	b := dst.Bounds()
	x0, y0 := float32(rect.Min.X-b.Min.X), float32(rect.Min.Y-b.Min.Y)
	x1, y1 := float32(rect.Max.X-b.Min.X), float32(rect.Max.Y-b.Min.Y)

	if half := (x1 - x0) / 2; radius > half {
		radius = half
	}
	if half := (y1 - y0) / 2; radius > half {
		radius = half
	}
	if radius < 0 {
		radius = 0
	}
	k := radius * kappa

	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.MoveTo(x0+radius, y0)
	z.LineTo(x1-radius, y0)
	z.CubeTo(x1-radius+k, y0, x1, y0+radius-k, x1, y0+radius)
	z.LineTo(x1, y1-radius)
	z.CubeTo(x1, y1-radius+k, x1-radius+k, y1, x1-radius, y1)
	z.LineTo(x0+radius, y1)
	z.CubeTo(x0+radius-k, y1, x0, y1-radius+k, x0, y1-radius)
	z.LineTo(x0, y0+radius)
	z.CubeTo(x0, y0+radius-k, x0+radius-k, y0, x0+radius, y0)
	z.ClosePath()

	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

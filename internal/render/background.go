package render

import (
	"image"
	"image/draw"
	"math"

	"github.com/handiism/post-exporter/internal/model"
)

// ImageSource resolves background image references and scales them to
// cover a canvas. *ioutils.ImageService implements it.
type ImageSource interface {
	Load(ref string) (image.Image, error)
	Cover(src image.Image, width, height int) *image.RGBA
}

// paintBackground fills dst according to bg. Anything that cannot be
// painted falls back to FallbackBackground.
func (r *Renderer) paintBackground(dst *image.RGBA, bg model.Background) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(FallbackBackground), image.Point{}, draw.Src)

	switch bg.Kind {
	case model.BackgroundSolid, model.BackgroundNone:
		if bg.Color == "" {
			return
		}
		c, err := ParseHexColor(bg.Color)
		if err != nil {
			return
		}
		draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Over)

	case model.BackgroundGradient:
		if bg.Gradient == nil {
			return
		}
		paintGradient(dst, *bg.Gradient)

	case model.BackgroundImage:
		if r.images == nil || bg.ImageRef == "" {
			return
		}
		src, err := r.images.Load(bg.ImageRef)
		if err != nil {
			return
		}
		cover := r.images.Cover(src, dst.Bounds().Dx(), dst.Bounds().Dy())
		draw.Draw(dst, dst.Bounds(), cover, image.Point{}, draw.Over)
		// Darken so white text stays legible on bright photos
		draw.Draw(dst, dst.Bounds(), image.NewUniform(imageScrim), image.Point{}, draw.Over)
	}
}

// paintGradient draws a two-stop linear gradient over dst. The angle is in
// degrees: 0 runs left to right, 90 top to bottom.
func paintGradient(dst *image.RGBA, g model.Gradient) {
	from, err := ParseHexColor(g.From)
	if err != nil {
		return
	}
	to, err := ParseHexColor(g.To)
	if err != nil {
		return
	}

	b := dst.Bounds()
	rad := g.Angle * math.Pi / 180
	dx, dy := math.Cos(rad), math.Sin(rad)

	// Project the corners to find the gradient extent
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range [][2]float64{
		{0, 0}, {float64(b.Dx()), 0}, {0, float64(b.Dy())}, {float64(b.Dx()), float64(b.Dy())},
	} {
		v := p[0]*dx + p[1]*dy
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	row := image.NewNRGBA(image.Rect(0, 0, b.Dx(), 1))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v := (float64(x)+0.5)*dx + (float64(y)+0.5)*dy
			row.SetNRGBA(x, 0, lerpColor(from, to, (v-lo)/span))
		}
		line := image.Rect(b.Min.X, b.Min.Y+y, b.Max.X, b.Min.Y+y+1)
		draw.Draw(dst, line, row, image.Point{}, draw.Over)
	}
}

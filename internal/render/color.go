package render

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Palette used by every slide.
var (
	FallbackBackground = color.RGBA{R: 0x1A, G: 0x1A, B: 0x2E, A: 0xFF}
	textColor          = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	subtleTextColor    = color.RGBA{R: 0xE6, G: 0xE6, B: 0xEE, A: 0xFF}
	badgeFill          = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	badgeTextColor     = color.RGBA{R: 0x1A, G: 0x1A, B: 0x2E, A: 0xFF}
	ctaFill            = color.RGBA{R: 0xF8, G: 0xB5, B: 0x00, A: 0xFF}
	ctaTextColor       = color.RGBA{R: 0x1A, G: 0x1A, B: 0x2E, A: 0xFF}
	imageScrim         = color.NRGBA{A: 0x59}
)

// ParseHexColor parses "#RGB", "#RRGGBB" or "#RRGGBBAA". The leading '#'
// is optional. The alpha channel is not premultiplied.
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")

	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}) + "ff"
	case 6:
		hex += "ff"
	case 8:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

func lerpColor(a, b color.NRGBA, t float64) color.NRGBA {
	t = math.Max(0, math.Min(1, t))
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

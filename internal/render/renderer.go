package render

import (
	"errors"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/handiism/post-exporter/internal/model"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// ErrNoImage is returned when there is nothing to render for a slide.
// Callers treat it as "skip this slide".
var ErrNoImage = errors.New("no image")

// ReferenceWidth is the design-time canvas width. All offsets and font sizes
// below are given at this width and scaled to the requested output.
const ReferenceWidth = 1080

// DefaultBrand is drawn in the badge when no brand is configured.
const DefaultBrand = "EXCHANGE"

// Design-time layout, in pixels at ReferenceWidth.
const (
	margin = 80

	badgeX       = 60
	badgeY       = 60
	badgeHeight  = 64
	badgePadding = 28
	badgeFont    = 28

	headlineFont   = 84
	headlineAnchor = 0.38 // fraction of canvas height

	subheadlineFont   = 44
	subheadlineOffset = 36

	bodyFont      = 36
	bodyOffset    = 48
	bottomReserve = 220

	ctaFont    = 36
	ctaPadding = 44
	ctaHeight  = 88
	ctaBottom  = 80
)

// Options configures a Renderer.
type Options struct {
	// Brand is the badge label. Defaults to DefaultBrand.
	Brand string

	// ReferenceWidth overrides the design-time width. Defaults to
	// ReferenceWidth.
	ReferenceWidth int

	// Images loads image-backed backgrounds. When nil, image backgrounds
	// fall back to the default color.
	Images ImageSource
}

// Renderer rasterizes slides.
//
// Rendering is a pure function of (slide, width, height) and the renderer's
// options: no clock, no randomness, no network. A Renderer may be shared by
// goroutines.
type Renderer struct {
	brand    string
	refWidth int
	images   ImageSource
	fonts    *fontSet
}

// NewRenderer creates a Renderer with the embedded Go fonts.
func NewRenderer(opts Options) (*Renderer, error) {
	fonts, err := loadFonts()
	if err != nil {
		return nil, err
	}
	r := &Renderer{
		brand:    strings.TrimSpace(opts.Brand),
		refWidth: opts.ReferenceWidth,
		images:   opts.Images,
		fonts:    fonts,
	}
	if r.brand == "" {
		r.brand = DefaultBrand
	}
	if r.refWidth <= 0 {
		r.refWidth = ReferenceWidth
	}
	return r, nil
}

// layout holds the scaled geometry and faces for one render call.
type layout struct {
	width, height int
	scale         float64
	margin        int

	badge, headline, subheadline, body, cta font.Face
}

func (r *Renderer) newLayout(width, height int) (*layout, error) {
	l := &layout{
		width:  width,
		height: height,
		scale:  float64(width) / float64(r.refWidth),
	}
	l.margin = l.px(margin)

	faces := []struct {
		dst  *font.Face
		bold bool
		size float64
	}{
		{&l.badge, true, badgeFont},
		{&l.headline, true, headlineFont},
		{&l.subheadline, false, subheadlineFont},
		{&l.body, false, bodyFont},
		{&l.cta, true, ctaFont},
	}
	for _, f := range faces {
		face, err := r.fonts.face(f.bold, f.size*l.scale)
		if err != nil {
			l.close()
			return nil, err
		}
		*f.dst = face
	}
	return l, nil
}

func (l *layout) close() {
	for _, f := range []font.Face{l.badge, l.headline, l.subheadline, l.body, l.cta} {
		if f != nil {
			f.Close()
		}
	}
}

// px scales a design-time length.
func (l *layout) px(v float64) int {
	return int(math.Round(v * l.scale))
}

// textWidth is the horizontal space available between the margins.
func (l *layout) textWidth() fixed.Int26_6 {
	return fixed.I(l.width - 2*l.margin)
}

// Render rasterizes slide at exactly width x height pixels.
//
// It returns ErrNoImage when slide is nil, has no content at all, or the
// requested size is not positive.
func (r *Renderer) Render(slide *model.SlideContent, width, height int) (*image.RGBA, error) {
	if slide == nil || slide.IsEmpty() || width <= 0 || height <= 0 {
		return nil, ErrNoImage
	}

	l, err := r.newLayout(width, height)
	if err != nil {
		return nil, err
	}
	defer l.close()

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	r.paintBackground(dst, slide.Background)
	r.drawBadge(dst, l)

	y := int(math.Round(float64(height) * headlineAnchor))
	if s := strings.TrimSpace(slide.Headline); s != "" {
		y = drawLines(dst, l.headline, textColor, l.margin, y, WrapText(l.headline, s, l.textWidth()))
		y += l.px(subheadlineOffset)
	}
	if s := strings.TrimSpace(slide.Subheadline); s != "" {
		y += l.subheadline.Metrics().Ascent.Ceil()
		y = drawLines(dst, l.subheadline, subtleTextColor, l.margin, y, WrapText(l.subheadline, s, l.textWidth()))
		y += l.px(bodyOffset)
	}
	if s := strings.TrimSpace(slide.Body); s != "" {
		y += l.body.Metrics().Ascent.Ceil()
		limit := height - l.px(bottomReserve)
		lines := fitLines(WrapText(l.body, s, l.textWidth()), y, lineHeight(l.body), limit)
		drawLines(dst, l.body, subtleTextColor, l.margin, y, lines)
	}
	if s := strings.TrimSpace(slide.CTA); s != "" {
		r.drawCTA(dst, l, s)
	}

	return dst, nil
}

// drawLines draws lines starting with the first baseline at y and returns
// the baseline of the last line drawn.
func drawLines(dst *image.RGBA, face font.Face, c color.Color, x, y int, lines []string) int {
	step := lineHeight(face)
	last := y
	for i, line := range lines {
		last = y + i*step
		drawString(dst, face, c, x, last, line)
	}
	return last
}

// fitLines keeps the leading lines whose baselines stay at or above limit.
func fitLines(lines []string, firstBaseline, step, limit int) []string {
	for i := range lines {
		if firstBaseline+i*step > limit {
			return lines[:i]
		}
	}
	return lines
}

func (r *Renderer) drawBadge(dst *image.RGBA, l *layout) {
	label := strings.ToUpper(r.brand)
	maxText := fixed.I(l.width - 2*l.px(badgeX) - 2*l.px(badgePadding))
	label, _ = truncateToWidth(l.badge, label, maxText)

	textW := font.MeasureString(l.badge, label).Ceil()
	x, y := l.px(badgeX), l.px(badgeY)
	h := l.px(badgeHeight)
	rect := image.Rect(x, y, x+textW+2*l.px(badgePadding), y+h)
	fillRoundedRect(dst, rect, float32(h)/4, badgeFill)

	drawString(dst, l.badge, badgeTextColor, x+l.px(badgePadding), centeredBaseline(l.badge, y, h), label)
}

// ctaGeometry sizes the CTA pill for text. The pill is text width plus
// padding on both sides, capped at the space between the margins; capped
// labels are truncated with an ellipsis and the pill takes the full width.
func ctaGeometry(l *layout, text string) (label string, pillWidth int) {
	pad := l.px(ctaPadding)
	avail := l.width - 2*l.margin
	label, truncated := truncateToWidth(l.cta, text, fixed.I(avail-2*pad))
	if truncated {
		return label, avail
	}
	return label, font.MeasureString(l.cta, label).Ceil() + 2*pad
}

func (r *Renderer) drawCTA(dst *image.RGBA, l *layout, text string) {
	label, w := ctaGeometry(l, text)
	h := l.px(ctaHeight)
	x := l.margin
	y := l.height - l.px(ctaBottom) - h
	fillRoundedRect(dst, image.Rect(x, y, x+w, y+h), float32(h)/2, ctaFill)

	if label != "" {
		drawString(dst, l.cta, ctaTextColor, x+l.px(ctaPadding), centeredBaseline(l.cta, y, h), label)
	}
}

// centeredBaseline returns the baseline that vertically centers a line of
// face inside a box starting at top with height h.
func centeredBaseline(face font.Face, top, h int) int {
	m := face.Metrics()
	textH := (m.Ascent + m.Descent).Ceil()
	return top + (h-textH)/2 + m.Ascent.Ceil()
}

// CTAPillWidth returns the width of the CTA pill for text on a canvas of
// the given width.
func (r *Renderer) CTAPillWidth(text string, width int) (int, error) {
	l, err := r.newLayout(width, width)
	if err != nil {
		return 0, err
	}
	defer l.close()
	_, w := ctaGeometry(l, strings.TrimSpace(text))
	return w, nil
}

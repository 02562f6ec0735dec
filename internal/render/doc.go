// Package render rasterizes slides into images.
//
// A Renderer turns a model.SlideContent into an *image.RGBA of exactly the
// requested size. The layout is defined once at a 1080px reference width and
// scaled uniformly:
//
//  1. Background (solid color, linear gradient or cover-scaled image, with a
//     dark fallback)
//  2. Brand badge in the top-left corner
//  3. Headline anchored at a fixed fraction of the canvas height
//  4. Subheadline beneath the headline
//  5. Body text, greedily word-wrapped and cut before the CTA area
//  6. CTA pill sized to its label near the bottom-left
//
// Text is set in the Go fonts embedded in golang.org/x/image, so output is
// identical on every machine.
//
//	r, _ := render.NewRenderer(render.Options{Brand: "Exchange"})
//	img, err := r.Render(slide, 1080, 1350)
//	if errors.Is(err, render.ErrNoImage) {
//	    // nothing to draw for this slide
//	}
package render

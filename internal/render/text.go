package render

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// fontSet holds the parsed typefaces. Faces are created per render call
// because opentype faces are not safe for concurrent use.
type fontSet struct {
	regular *opentype.Font
	bold    *opentype.Font
}

func loadFonts() (*fontSet, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &fontSet{regular: regular, bold: bold}, nil
}

// face returns a face of the given pixel size. Sizes below one pixel are
// raised to one.
func (fs *fontSet) face(bold bool, size float64) (font.Face, error) {
	if size < 1 {
		size = 1
	}
	f := fs.regular
	if bold {
		f = fs.bold
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// WrapText breaks text into lines no wider than maxWidth.
//
// Line breaking is greedy: words are added to the current line until the
// next word would overflow, then the line is flushed. Lines are never
// rebalanced. Explicit newlines start a new paragraph. A word that is wider
// than maxWidth on its own is broken between runes.
func WrapText(face font.Face, text string, maxWidth fixed.Int26_6) []string {
	if maxWidth <= 0 {
		return nil
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			for _, piece := range splitWord(face, word, maxWidth) {
				candidate := piece
				if line != "" {
					candidate = line + " " + piece
				}
				if font.MeasureString(face, candidate) <= maxWidth {
					line = candidate
					continue
				}
				if line != "" {
					lines = append(lines, line)
				}
				line = piece
			}
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// splitWord breaks a single word into pieces that each fit maxWidth. Every
// piece holds at least one rune.
func splitWord(face font.Face, word string, maxWidth fixed.Int26_6) []string {
	if font.MeasureString(face, word) <= maxWidth {
		return []string{word}
	}

	var pieces []string
	var cur []rune
	for _, r := range word {
		next := append(cur, r)
		if len(cur) > 0 && font.MeasureString(face, string(next)) > maxWidth {
			pieces = append(pieces, string(cur))
			next = []rune{r}
		}
		cur = next
	}
	if len(cur) > 0 {
		pieces = append(pieces, string(cur))
	}
	return pieces
}

// truncateToWidth shortens text with a trailing ellipsis until it fits.
func truncateToWidth(face font.Face, text string, maxWidth fixed.Int26_6) (string, bool) {
	if font.MeasureString(face, text) <= maxWidth {
		return text, false
	}
	runes := []rune(text)
	for n := len(runes) - 1; n > 0; n-- {
		candidate := strings.TrimRight(string(runes[:n]), " ") + "…"
		if font.MeasureString(face, candidate) <= maxWidth {
			return candidate, true
		}
	}
	return "", true
}

// drawString draws s with its baseline at (x, y).
func drawString(dst *image.RGBA, face font.Face, c color.Color, x, y int, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// lineHeight returns the face's recommended line spacing in pixels.
func lineHeight(face font.Face) int {
	return face.Metrics().Height.Ceil()
}

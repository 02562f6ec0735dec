package model

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// BackgroundKind identifies how a slide background is painted.
type BackgroundKind string

const (
	// BackgroundNone means no background was specified; the renderer
	// falls back to its dark default.
	BackgroundNone BackgroundKind = ""

	// BackgroundSolid paints a single color.
	BackgroundSolid BackgroundKind = "solid"

	// BackgroundGradient paints a two-stop linear gradient.
	BackgroundGradient BackgroundKind = "gradient"

	// BackgroundImage paints an image reference scaled to cover the canvas.
	BackgroundImage BackgroundKind = "image"
)

// Gradient is a two-stop linear gradient.
type Gradient struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Angle float64 `json:"angle"` // degrees, 0 = left to right, 90 = top to bottom
}

// Background is the paint spec for a slide.
//
// Colors are CSS-style hex strings ("#RRGGBB", "#RGB" or "#RRGGBBAA").
type Background struct {
	Kind     BackgroundKind `json:"type"`
	Color    string         `json:"color,omitempty"`
	Gradient *Gradient      `json:"gradient,omitempty"`
	ImageRef string         `json:"image,omitempty"`
}

// IsZero reports whether nothing paintable was specified. An untyped
// background with a color still paints as solid.
func (b Background) IsZero() bool {
	return b.Kind == BackgroundNone &&
		strings.TrimSpace(b.Color) == "" &&
		b.Gradient == nil &&
		strings.TrimSpace(b.ImageRef) == ""
}

// SlideContent is one slide of a post as produced by the editor.
//
// Only Position is required. The export pipeline reads slides but never
// mutates them.
type SlideContent struct {
	// Position orders the slide within its post (0-based in the editor).
	Position int `json:"position"`

	Background Background `json:"background"`

	Headline    string `json:"headline,omitempty"`
	Subheadline string `json:"subheadline,omitempty"`
	Body        string `json:"body,omitempty"`
	CTA         string `json:"cta,omitempty"`
}

// IsEmpty reports whether the slide has no text and no background.
func (s *SlideContent) IsEmpty() bool {
	return s.Background.IsZero() &&
		strings.TrimSpace(s.Headline) == "" &&
		strings.TrimSpace(s.Subheadline) == "" &&
		strings.TrimSpace(s.Body) == "" &&
		strings.TrimSpace(s.CTA) == ""
}

// Post is a designed post with one or more slides.
//
// A nil entry in Slides stands for a slide the editor could not supply;
// the renderer treats it as "no image" and the orchestrator skips it.
type Post struct {
	ID     string          `json:"id"`
	Brand  string          `json:"brand,omitempty"`
	Slides []*SlideContent `json:"slides"`
}

// IsCarousel reports whether the post has more than one slide.
func (p *Post) IsCarousel() bool {
	return len(p.Slides) > 1
}

// OrderedSlides returns the slides sorted by position.
//
// The returned slice is a copy; the post itself is left untouched. Nil
// slides keep their relative index and sort after positioned slides that
// share the same index, so the result is stable.
func (p *Post) OrderedSlides() []*SlideContent {
	out := make([]*SlideContent, len(p.Slides))
	copy(out, p.Slides)
	sort.SliceStable(out, func(i, j int) bool {
		return slidePosition(out[i], i) < slidePosition(out[j], j)
	})
	return out
}

func slidePosition(s *SlideContent, fallback int) int {
	if s == nil {
		return fallback
	}
	return s.Position
}

// LoadPost reads a post document from a JSON file.
//
// Example document:
//
//	{
//	  "id": "post_123",
//	  "brand": "Exchange",
//	  "slides": [
//	    {"position": 0, "background": {"type": "solid", "color": "#0F4C81"},
//	     "headline": "Study abroad", "cta": "Apply now"}
//	  ]
//	}
func LoadPost(path string) (*Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePost(data)
}

// ParsePost decodes a post document.
func ParsePost(data []byte) (*Post, error) {
	var post Post
	if err := json.Unmarshal(data, &post); err != nil {
		return nil, fmt.Errorf("decode post: %w", err)
	}
	if len(post.Slides) == 0 {
		return nil, fmt.Errorf("post %q has no slides", post.ID)
	}
	return &post, nil
}

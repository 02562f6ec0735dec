package model

import (
	"fmt"
	"regexp"
	"strings"
)

// FormatDescriptor describes one target output format.
//
// A descriptor carries everything needed to render and name a derivative:
//   - Key is the stable identifier used by the UI and the recorder
//   - Label and Aspect are used for folder and file naming
//   - Width and Height are the exact pixel dimensions of the output
//
// Several formats may share the same pixel dimensions (a TikTok video cover
// and an Instagram story are both 1080x1920); they are still distinct
// formats with distinct keys and labels.
//
// Example:
//
//	f := FormatDescriptor{
//	    Key:    "instagram_portrait",
//	    Label:  "Instagram Portrait",
//	    Aspect: "4:5",
//	    Width:  1080,
//	    Height: 1350,
//	}
//	f.AspectSlug() // "4x5"
//	f.LabelSlug()  // "Instagram_Portrait"
type FormatDescriptor struct {
	// Key is the unique registry key, e.g. "instagram_feed".
	Key string

	// Label is the human readable name, e.g. "Instagram Feed".
	Label string

	// Aspect is the aspect ratio label, e.g. "1:1" or "9:16".
	Aspect string

	// Width is the output width in pixels.
	Width int

	// Height is the output height in pixels.
	Height int

	// Platform is the social platform the format targets.
	Platform string

	// Description is shown next to the format in pickers.
	Description string
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// AspectSlug returns the aspect label with ":" replaced by "x".
func (f FormatDescriptor) AspectSlug() string {
	return strings.ReplaceAll(f.Aspect, ":", "x")
}

// LabelSlug returns the label with each run of whitespace replaced by "_".
func (f FormatDescriptor) LabelSlug() string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(f.Label), "_")
}

// Resolution returns the dimensions formatted as "WIDTHxHEIGHT".
func (f FormatDescriptor) Resolution() string {
	return fmt.Sprintf("%dx%d", f.Width, f.Height)
}

// WithRecord returns a copy of f with the canonical values from rec applied.
//
// The recorder is authoritative: non-zero dimensions and non-empty labels
// in the record replace the client defaults. The key never changes.
func (f FormatDescriptor) WithRecord(rec ExportRecord) FormatDescriptor {
	if rec.Width > 0 && rec.Height > 0 {
		f.Width = rec.Width
		f.Height = rec.Height
	}
	if strings.TrimSpace(rec.Label) != "" {
		f.Label = rec.Label
	}
	if strings.TrimSpace(rec.Aspect) != "" {
		f.Aspect = rec.Aspect
	}
	return f
}

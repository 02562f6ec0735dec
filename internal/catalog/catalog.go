// Package catalog is the static registry of export formats.
//
// The registry is initialized once at startup and never mutated. New formats
// are added here, in code.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/handiism/post-exporter/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUnknownFormat is returned for keys that are not registered.
var ErrUnknownFormat = errors.New("unknown format")

var formats = []model.FormatDescriptor{
	{Key: "instagram_feed", Label: "Instagram Feed", Aspect: "1:1", Width: 1080, Height: 1080, Platform: "instagram", Description: "Square feed post"},
	{Key: "instagram_portrait", Label: "Instagram Portrait", Aspect: "4:5", Width: 1080, Height: 1350, Platform: "instagram", Description: "Portrait feed post"},
	{Key: "instagram_story", Label: "Instagram Story", Aspect: "9:16", Width: 1080, Height: 1920, Platform: "instagram", Description: "Stories and Reels cover"},
	{Key: "tiktok", Label: "TikTok", Aspect: "9:16", Width: 1080, Height: 1920, Platform: "tiktok", Description: "Full-screen vertical"},
	{Key: "facebook_feed", Label: "Facebook Feed", Aspect: "1.91:1", Width: 1200, Height: 630, Platform: "facebook", Description: "Link and feed image"},
	{Key: "linkedin_post", Label: "LinkedIn Post", Aspect: "1.91:1", Width: 1200, Height: 627, Platform: "linkedin", Description: "Shared image post"},
	{Key: "twitter_post", Label: "Twitter Post", Aspect: "16:9", Width: 1600, Height: 900, Platform: "twitter", Description: "In-stream image"},
	{Key: "youtube_thumbnail", Label: "YouTube Thumbnail", Aspect: "16:9", Width: 1280, Height: 720, Platform: "youtube", Description: "Video thumbnail"},
	{Key: "pinterest_pin", Label: "Pinterest Pin", Aspect: "2:3", Width: 1000, Height: 1500, Platform: "pinterest", Description: "Standard pin"},
}

var byKey = func() map[string]model.FormatDescriptor {
	m := make(map[string]model.FormatDescriptor, len(formats))
	for _, f := range formats {
		m[f.Key] = f
	}
	return m
}()

// Describe returns the descriptor registered under key.
func Describe(key string) (model.FormatDescriptor, error) {
	f, ok := byKey[key]
	if !ok {
		return model.FormatDescriptor{}, fmt.Errorf("%w: %q", ErrUnknownFormat, key)
	}
	return f, nil
}

// MustDescribe is like Describe but panics on unknown keys. Selections come
// from the UI, so an unknown key is a programming error.
func MustDescribe(key string) model.FormatDescriptor {
	f, err := Describe(key)
	if err != nil {
		panic(err)
	}
	return f
}

// Keys returns the registered keys in declaration order.
func Keys() []string {
	keys := make([]string, len(formats))
	for i, f := range formats {
		keys[i] = f.Key
	}
	return keys
}

// All returns a copy of every registered descriptor.
func All() []model.FormatDescriptor {
	out := make([]model.FormatDescriptor, len(formats))
	copy(out, formats)
	return out
}

// Resolve looks up a user selection, keeping the user's order.
//
// Blank entries are ignored. Duplicates and unknown keys are errors.
func Resolve(keys []string) ([]model.FormatDescriptor, error) {
	seen := make(map[string]bool, len(keys))
	out := make([]model.FormatDescriptor, 0, len(keys))
	for _, raw := range keys {
		key := strings.TrimSpace(raw)
		if key == "" {
			continue
		}
		if seen[key] {
			return nil, fmt.Errorf("format %q selected twice", key)
		}
		seen[key] = true

		f, err := Describe(key)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// DisplayLabel turns a key into a title-cased label,
// e.g. "instagram_feed" -> "Instagram Feed".
func DisplayLabel(key string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(key))
	return cases.Title(language.Und).String(strings.Join(words, " "))
}

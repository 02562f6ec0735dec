package archive

import (
	"fmt"
	"path"
	"regexp"
	"time"

	ioutils "github.com/handiism/post-exporter/internal/io"
	"github.com/handiism/post-exporter/internal/model"
)

// DateLayout formats the date stamp used in every name.
const DateLayout = "2006-01-02"

// ArchiveName returns the archive file name:
//
//	{brand}_MultiPlatform_{YYYY-MM-DD}.zip
func ArchiveName(brand string, date time.Time) string {
	return fmt.Sprintf("%s_MultiPlatform_%s.zip", brandSlug(brand), date.Format(DateLayout))
}

// SingleFileName returns the file name of a single-slide derivative:
//
//	{brand}_{Format_Label}_{aspect}_{YYYY-MM-DD}.png
func SingleFileName(brand string, f model.FormatDescriptor, date time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%s.png", brandSlug(brand), labelSlug(f), aspectSlug(f), date.Format(DateLayout))
}

// FolderName returns the per-format folder used for carousels:
//
//	{Format_Label}_{aspect}
func FolderName(f model.FormatDescriptor) string {
	return fmt.Sprintf("%s_%s", labelSlug(f), aspectSlug(f))
}

// SlideFileName returns the file name of carousel slide n (1-based):
//
//	{brand}_{YYYY-MM-DD}_slide_{NN}.png
func SlideFileName(brand string, date time.Time, n int) string {
	return fmt.Sprintf("%s_%s_slide_%02d.png", brandSlug(brand), date.Format(DateLayout), n)
}

// EntryPath returns the archive-relative path for one derivative.
//
// Single-slide posts produce one flat file per format. Carousels produce a
// folder per format holding one file per slide, numbered from 1. Paths use
// forward slashes as required by ZIP.
func EntryPath(brand string, f model.FormatDescriptor, date time.Time, slideNumber int, carousel bool) string {
	if !carousel {
		return SingleFileName(brand, f, date)
	}
	return path.Join(FolderName(f), SlideFileName(brand, date, slideNumber))
}

func brandSlug(brand string) string {
	s := ioutils.SanitizeFileName(brand)
	s = whitespaceToUnderscore(s)
	if s == "" {
		return "Export"
	}
	return s
}

func labelSlug(f model.FormatDescriptor) string {
	return ioutils.SanitizeFileName(f.LabelSlug())
}

func aspectSlug(f model.FormatDescriptor) string {
	return ioutils.SanitizeFileName(f.AspectSlug())
}

var whitespace = regexp.MustCompile(`\s+`)

func whitespaceToUnderscore(s string) string {
	return whitespace.ReplaceAllString(s, "_")
}

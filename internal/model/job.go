package model

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects what happens to rendered derivatives.
type Mode int

const (
	// ModeArchive bundles every derivative into one ZIP archive.
	ModeArchive Mode = iota

	// ModeDownloadEach saves every derivative as its own file.
	ModeDownloadEach

	// ModeSchedule registers the export for the posting queue and renders
	// nothing locally.
	ModeSchedule
)

// String returns the mode name as accepted by ParseMode.
func (m Mode) String() string {
	switch m {
	case ModeArchive:
		return "archive"
	case ModeDownloadEach:
		return "download-each"
	case ModeSchedule:
		return "schedule"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses a mode name. Matching is case-insensitive and accepts
// "zip" as an alias for archive and "each"/"individual" for download-each.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "archive", "zip":
		return ModeArchive, nil
	case "download-each", "each", "individual":
		return ModeDownloadEach, nil
	case "schedule":
		return ModeSchedule, nil
	default:
		return ModeArchive, fmt.Errorf("unknown export mode %q", s)
	}
}

// ExportJob is one user-initiated export.
//
// Jobs are created fresh for every export and discarded when it completes
// or fails. Formats are kept in the order the user selected them.
type ExportJob struct {
	ID      string
	Post    *Post
	Formats []FormatDescriptor
	Mode    Mode

	// Date stamps file names. Only the calendar day is used.
	Date time.Time
}

// Keys returns the selected format keys in selection order.
func (j *ExportJob) Keys() []string {
	keys := make([]string, len(j.Formats))
	for i, f := range j.Formats {
		keys[i] = f.Key
	}
	return keys
}

// Brand returns the post brand, or fallback when the post has none.
func (j *ExportJob) Brand(fallback string) string {
	if j.Post != nil && strings.TrimSpace(j.Post.Brand) != "" {
		return j.Post.Brand
	}
	return fallback
}

// DateStamp returns the job date as YYYY-MM-DD.
func (j *ExportJob) DateStamp() string {
	return j.Date.Format("2006-01-02")
}

// ExportRecord is the recorder's acknowledgement for one (job, format) pair.
//
// Width, Height and Label are canonical and override client defaults. ID is
// assigned by the recorder and is only used for later lookups.
type ExportRecord struct {
	ID       string `json:"id"`
	Platform string `json:"platform"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Label    string `json:"label"`
	Aspect   string `json:"aspect,omitempty"`
}

// Package recorder registers export intent with a backend and returns the
// canonical record for every selected format.
//
// Three implementations are provided:
//   - HTTPRecorder posts to the export backend
//   - SQLiteRecorder keeps records in a local database (offline use)
//   - StaticRecorder echoes the request (dry runs and tests)
package recorder

import (
	"context"

	"github.com/google/uuid"
	"github.com/handiism/post-exporter/internal/model"
)

// Recorder persists export intent.
//
// Record returns one ExportRecord per requested format. Implementations may
// override dimensions and labels; callers treat the returned values as
// authoritative.
type Recorder interface {
	Record(ctx context.Context, req Request) ([]model.ExportRecord, error)
}

// FormatRequest is one format in a Request.
type FormatRequest struct {
	Platform string `json:"platform"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Label    string `json:"label"`
}

// Request is the job descriptor sent to the backend.
type Request struct {
	PostID   string          `json:"post_id"`
	Formats  []FormatRequest `json:"formats"`
	Schedule bool            `json:"schedule"`
}

// NewRequest builds the descriptor for job. Schedule is set for schedule
// mode jobs, or when alsoSchedule asks for it explicitly.
func NewRequest(job *model.ExportJob, alsoSchedule bool) Request {
	req := Request{
		Schedule: alsoSchedule || job.Mode == model.ModeSchedule,
		Formats:  make([]FormatRequest, len(job.Formats)),
	}
	if job.Post != nil {
		req.PostID = job.Post.ID
	}
	for i, f := range job.Formats {
		req.Formats[i] = FormatRequest{
			Platform: f.Key,
			Width:    f.Width,
			Height:   f.Height,
			Label:    f.Label,
		}
	}
	return req
}

// StaticRecorder acknowledges every request without persisting anything.
// Records mirror the request with freshly generated identifiers.
type StaticRecorder struct{}

// Record implements Recorder.
func (StaticRecorder) Record(ctx context.Context, req Request) ([]model.ExportRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return echoRecords(req), nil
}

func echoRecords(req Request) []model.ExportRecord {
	out := make([]model.ExportRecord, len(req.Formats))
	for i, f := range req.Formats {
		out[i] = model.ExportRecord{
			ID:       uuid.NewString(),
			Platform: f.Platform,
			Width:    f.Width,
			Height:   f.Height,
			Label:    f.Label,
		}
	}
	return out
}

package export

import (
	"errors"
	"fmt"
)

// State is the stage of an export job.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateRendering
	StatePackaging
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateRendering:
		return "rendering"
	case StatePackaging:
		return "packaging"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// Event is one progress update of a job.
//
// Format events carry FormatKey and the format's new Percent. Job-wide
// events (state changes, saved files, failures) leave FormatKey empty.
type Event struct {
	JobID     string
	State     State
	FormatKey string
	Percent   int
	Message   string
	Level     ProgressLevel
}

var (
	// ErrRecordingFailed marks failures of the record-creation call. The
	// job is aborted before anything is rendered.
	ErrRecordingFailed = errors.New("recording failed")

	// ErrExportInProgress is returned when a job is started while another
	// one is still running.
	ErrExportInProgress = errors.New("an export is already in progress")

	// ErrNoFormats is returned for jobs without selected formats.
	ErrNoFormats = errors.New("no formats selected")

	// ErrNoSlides is returned for jobs whose post has no slides.
	ErrNoSlides = errors.New("post has no slides")
)

// RecordingError wraps the cause of a failed record-creation call.
// errors.Is(err, ErrRecordingFailed) reports true for it.
type RecordingError struct {
	Err error
}

func (e *RecordingError) Error() string {
	return fmt.Sprintf("%v: %v", ErrRecordingFailed, e.Err)
}

func (e *RecordingError) Unwrap() error { return e.Err }

// Is makes errors.Is match ErrRecordingFailed.
func (e *RecordingError) Is(target error) bool { return target == ErrRecordingFailed }

package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/handiism/post-exporter/internal/archive"
	"github.com/handiism/post-exporter/internal/catalog"
	ioutils "github.com/handiism/post-exporter/internal/io"
	"github.com/handiism/post-exporter/internal/model"
	"github.com/handiism/post-exporter/internal/recorder"
	"github.com/handiism/post-exporter/internal/render"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	// DefaultDownloadDelay separates individual saves in download-each mode.
	DefaultDownloadDelay = 500 * time.Millisecond

	// DefaultWorkers is the number of slides rendered concurrently.
	DefaultWorkers = 1
)

// Renderer rasterizes one slide. *render.Renderer implements it.
type Renderer interface {
	Render(slide *model.SlideContent, width, height int) (*image.RGBA, error)
}

// FormatResult summarizes one format of a finished job.
type FormatResult struct {
	Key        string
	Label      string
	Resolution string
	RecordID   string
	Rendered   int
	Skipped    int
}

// Result is the outcome of a job.
type Result struct {
	JobID       string
	Mode        model.Mode
	ArchivePath string
	Files       []string
	Formats     []FormatResult
	Progress    []model.FormatProgress
}

// Orchestrator drives export jobs through
// idle → recording → rendering → packaging → done.
//
// Only one job runs at a time: starting a second job while one is in
// flight fails with ErrExportInProgress.
type Orchestrator struct {
	recorder recorder.Recorder
	renderer Renderer
	saver    Saver
	encoder  archive.Encoder

	brand        string
	delay        time.Duration
	alsoSchedule bool
	workers      int

	slot *semaphore.Weighted
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDownloadDelay sets the pause between saves in download-each mode.
func WithDownloadDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.delay = d }
}

// WithAlsoSchedule asks the recorder to queue every export for posting,
// not only schedule-mode jobs.
func WithAlsoSchedule(v bool) Option {
	return func(o *Orchestrator) { o.alsoSchedule = v }
}

// WithBrand sets the brand used in file names when the post has none.
func WithBrand(brand string) Option {
	return func(o *Orchestrator) { o.brand = brand }
}

// WithWorkers sets how many slides of a format are rendered concurrently.
// Values below 1 mean one.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) { o.workers = max(n, 1) }
}

// WithEncoder replaces the PNG encoder.
func WithEncoder(enc archive.Encoder) Option {
	return func(o *Orchestrator) { o.encoder = enc }
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(rec recorder.Recorder, r Renderer, saver Saver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		recorder: rec,
		renderer: r,
		saver:    saver,
		encoder:  ioutils.NewImageService(""),
		brand:    "Export",
		delay:    DefaultDownloadDelay,
		workers:  DefaultWorkers,
		slot:     semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewJob creates a job with a fresh identifier. Formats keep their order.
func NewJob(post *model.Post, formats []model.FormatDescriptor, mode model.Mode, date time.Time) (*model.ExportJob, error) {
	job := &model.ExportJob{
		ID:      uuid.NewString(),
		Post:    post,
		Formats: formats,
		Mode:    mode,
		Date:    date,
	}
	if err := validateJob(job); err != nil {
		return nil, err
	}
	return job, nil
}

func validateJob(job *model.ExportJob) error {
	if job == nil || len(job.Formats) == 0 {
		return ErrNoFormats
	}
	if job.Post == nil || len(job.Post.Slides) == 0 {
		return ErrNoSlides
	}
	seen := make(map[string]bool, len(job.Formats))
	for _, f := range job.Formats {
		if seen[f.Key] {
			return fmt.Errorf("format %q selected twice", f.Key)
		}
		seen[f.Key] = true
	}
	return nil
}

// Run executes job synchronously, reporting progress to onEvent (which may
// be nil).
func (o *Orchestrator) Run(ctx context.Context, job *model.ExportJob, onEvent func(Event)) (*Result, error) {
	if err := validateJob(job); err != nil {
		return nil, err
	}
	if !o.slot.TryAcquire(1) {
		return nil, ErrExportInProgress
	}
	defer o.slot.Release(1)

	if onEvent == nil {
		onEvent = func(Event) {}
	}
	return o.run(ctx, job, onEvent)
}

// jobRun carries the mutable state of one job.
type jobRun struct {
	job      *model.ExportJob
	brand    string
	progress *model.ProgressState
	result   *Result
	emit     func(Event)
}

func (r *jobRun) event(state State, level ProgressLevel, format string, args ...any) {
	r.emit(Event{
		JobID:   r.job.ID,
		State:   state,
		Message: fmt.Sprintf(format, args...),
		Level:   level,
	})
}

func (r *jobRun) setAll(state State, percent int) {
	r.progress.SetAll(percent)
	for _, k := range r.job.Keys() {
		r.emit(Event{JobID: r.job.ID, State: state, FormatKey: k, Percent: percent, Level: LevelVerbose})
	}
}

func (r *jobRun) set(state State, key string, percent int) {
	if r.progress.Set(key, percent) {
		r.emit(Event{JobID: r.job.ID, State: state, FormatKey: key, Percent: percent, Level: LevelVerbose})
	}
}

func (r *jobRun) fail(err error) (*Result, error) {
	r.result.Progress = r.progress.Snapshot()
	r.event(StateFailed, LevelError, "Export failed: %v", err)
	return r.result, err
}

func (o *Orchestrator) run(ctx context.Context, job *model.ExportJob, emit func(Event)) (*Result, error) {
	r := &jobRun{
		job:      job,
		brand:    job.Brand(o.brand),
		progress: model.NewProgressState(job.Keys()),
		result:   &Result{JobID: job.ID, Mode: job.Mode},
		emit:     emit,
	}

	// idle → recording
	r.event(StateRecording, LevelInfo, "Registering export of %d format(s)", len(job.Formats))
	r.setAll(StateRecording, model.PercentRecording)

	records, err := o.recorder.Record(ctx, recorder.NewRequest(job, o.alsoSchedule))
	if err != nil {
		return r.fail(&RecordingError{Err: err})
	}
	formats, recordIDs := applyRecords(job.Formats, records)

	// recording → done; nothing is rendered for scheduled posts
	if job.Mode == model.ModeSchedule {
		for i, f := range formats {
			r.result.Formats = append(r.result.Formats, formatResult(f, recordIDs[i]))
		}
		r.setAll(StateDone, model.PercentDone)
		r.result.Progress = r.progress.Snapshot()
		r.event(StateDone, LevelSuccess, "Scheduled %d format(s)", len(formats))
		return r.result, nil
	}

	slides := job.Post.OrderedSlides()
	carousel := job.Post.IsCarousel()
	if err := checkEntryPaths(r.brand, formats, job.Date, carousel); err != nil {
		return r.fail(err)
	}

	// recording → rendering
	r.setAll(StateRendering, model.PercentRendering)

	var (
		buf     bytes.Buffer
		builder *archive.Builder
		limiter *rate.Limiter
	)
	switch job.Mode {
	case model.ModeArchive:
		builder = archive.New(&buf, job.Date).WithEncoder(o.encoder)
	case model.ModeDownloadEach:
		limiter = rate.NewLimiter(rate.Inf, 1)
		if o.delay > 0 {
			limiter = rate.NewLimiter(rate.Every(o.delay), 1)
		}
	}

	for i, f := range formats {
		fr := formatResult(f, recordIDs[i])
		r.event(StateRendering, LevelVerbose, "Rendering %s (%s)", f.Label, f.Resolution())

		rendered, err := o.renderSlides(ctx, slides, f)
		if err != nil {
			return r.fail(err)
		}

		for si, out := range rendered {
			if err := ctx.Err(); err != nil {
				return r.fail(err)
			}

			n := si + 1
			name := archive.EntryPath(r.brand, f, job.Date, n, carousel)
			err := out.err
			if err == nil {
				err = o.store(ctx, r, out.img, name, builder, limiter)
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return r.fail(ctxErr)
				}
				var saveErr *saveError
				if errors.As(err, &saveErr) {
					return r.fail(saveErr.err)
				}
				if errors.Is(err, archive.ErrDuplicateEntry) {
					return r.fail(err)
				}
				fr.Skipped++
				level := LevelWarning
				if errors.Is(err, render.ErrNoImage) {
					level = LevelVerbose
				}
				r.event(StateRendering, level, "Skipped slide %d of %s: %v", n, f.Label, err)
			} else {
				fr.Rendered++
			}

			span := model.PercentPackaging - model.PercentRendering
			r.set(StateRendering, f.Key, model.PercentRendering+span*n/len(slides))
		}

		r.result.Formats = append(r.result.Formats, fr)
	}

	// rendering → packaging
	r.setAll(StatePackaging, model.PercentPackaging)

	if builder != nil {
		if err := builder.Finalize(); err != nil {
			return r.fail(fmt.Errorf("finalize archive: %w", err))
		}
		if len(builder.Entries()) == 0 {
			r.event(StatePackaging, LevelWarning, "Nothing was rendered; no archive written")
		} else {
			path, err := o.saver.Save(ctx, archive.ArchiveName(r.brand, job.Date), buf.Bytes())
			if err != nil {
				return r.fail(fmt.Errorf("save archive: %w", err))
			}
			r.result.ArchivePath = path
			r.result.Files = append(r.result.Files, path)
			r.event(StatePackaging, LevelInfo, "Saved archive %s (%d files)", path, len(builder.Entries()))
		}
	}

	// packaging → done
	r.setAll(StateDone, model.PercentDone)
	r.result.Progress = r.progress.Snapshot()
	r.event(StateDone, LevelSuccess, "Export complete: %d format(s)", len(formats))
	return r.result, nil
}

// checkEntryPaths rejects jobs in which two formats would write to the same
// path, which happens when the recorder gives them the same label and
// aspect ratio.
func checkEntryPaths(brand string, formats []model.FormatDescriptor, date time.Time, carousel bool) error {
	owner := make(map[string]string, len(formats))
	for _, f := range formats {
		name := archive.EntryPath(brand, f, date, 1, carousel)
		if prev, ok := owner[name]; ok {
			return fmt.Errorf("%w: %s (formats %q and %q)", archive.ErrDuplicateEntry, name, prev, f.Key)
		}
		owner[name] = f.Key
	}
	return nil
}

type slideImage struct {
	img *image.RGBA
	err error
}

// renderSlides rasterizes every slide of one format. Slides are rendered
// concurrently; results keep slide order. A failed slide is reported in its
// entry and does not stop the others.
func (o *Orchestrator) renderSlides(ctx context.Context, slides []*model.SlideContent, f model.FormatDescriptor) ([]slideImage, error) {
	out := make([]slideImage, len(slides))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, slide := range slides {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := o.renderer.Render(slide, f.Width, f.Height)
			if err == nil && img == nil {
				err = render.ErrNoImage
			}
			out[i] = slideImage{img: img, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// saveError marks failures to store an artifact; unlike render failures
// they abort the job.
type saveError struct{ err error }

func (e *saveError) Error() string { return e.err.Error() }

// store hands a rendered image to the archive, or encodes and saves it
// directly when there is no archive.
func (o *Orchestrator) store(ctx context.Context, r *jobRun, img *image.RGBA, name string,
	builder *archive.Builder, limiter *rate.Limiter) error {
	if builder != nil {
		return builder.AddImage(ctx, name, img)
	}

	data, err := o.encoder.EncodePNG(ctx, img)
	if err != nil {
		return err
	}
	if err := limiter.Wait(ctx); err != nil {
		return &saveError{err: err}
	}
	path, err := o.saver.Save(ctx, name, data)
	if err != nil {
		return &saveError{err: fmt.Errorf("save %s: %w", name, err)}
	}
	r.result.Files = append(r.result.Files, path)
	r.event(StateRendering, LevelVerbose, "Saved %s", path)
	return nil
}

// applyRecords overlays the recorder's canonical values onto the selected
// formats. Records are matched by platform key, falling back to position
// when the backend leaves the platform empty.
func applyRecords(formats []model.FormatDescriptor, records []model.ExportRecord) ([]model.FormatDescriptor, []string) {
	byPlatform := make(map[string]model.ExportRecord, len(records))
	for _, rec := range records {
		if rec.Platform != "" {
			byPlatform[rec.Platform] = rec
		}
	}

	out := make([]model.FormatDescriptor, len(formats))
	ids := make([]string, len(formats))
	for i, f := range formats {
		rec, ok := byPlatform[f.Key]
		if !ok && i < len(records) && records[i].Platform == "" {
			rec, ok = records[i], true
		}
		if ok {
			f = f.WithRecord(rec)
			ids[i] = rec.ID
		}
		if strings.TrimSpace(f.Label) == "" {
			f.Label = catalog.DisplayLabel(f.Key)
		}
		out[i] = f
	}
	return out, ids
}

func formatResult(f model.FormatDescriptor, recordID string) FormatResult {
	return FormatResult{
		Key:        f.Key,
		Label:      f.Label,
		Resolution: f.Resolution(),
		RecordID:   recordID,
	}
}

package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/handiism/post-exporter/internal/archive"
	"github.com/handiism/post-exporter/internal/model"
	"github.com/handiism/post-exporter/internal/recorder"
	"github.com/handiism/post-exporter/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testDate = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

	feed = model.FormatDescriptor{Key: "instagram_feed", Label: "Instagram Feed", Aspect: "1:1", Width: 1080, Height: 1080}
	tok  = model.FormatDescriptor{Key: "tiktok", Label: "TikTok", Aspect: "9:16", Width: 1080, Height: 1920}
)

// fakeRenderer returns a tiny image and records the requested sizes.
type fakeRenderer struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error // by headline

	hook func()
}

func (r *fakeRenderer) Render(slide *model.SlideContent, w, h int) (*image.RGBA, error) {
	if r.hook != nil {
		r.hook()
	}
	r.mu.Lock()
	r.calls = append(r.calls, image.Pt(w, h).String())
	r.mu.Unlock()

	if slide == nil || slide.IsEmpty() {
		return nil, render.ErrNoImage
	}
	if err := r.fail[slide.Headline]; err != nil {
		return nil, err
	}
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

func (r *fakeRenderer) sizes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.calls...)
	sort.Strings(out)
	return out
}

// memSaver keeps saved artifacts in memory.
type memSaver struct {
	mu    sync.Mutex
	files map[string][]byte
	order []string
	err   error
}

func (s *memSaver) Save(_ context.Context, name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	if s.files == nil {
		s.files = map[string][]byte{}
	}
	s.files[name] = data
	s.order = append(s.order, name)
	return "mem/" + name, nil
}

type recorderFunc func(ctx context.Context, req recorder.Request) ([]model.ExportRecord, error)

func (f recorderFunc) Record(ctx context.Context, req recorder.Request) ([]model.ExportRecord, error) {
	return f(ctx, req)
}

func post(headlines ...string) *model.Post {
	p := &model.Post{ID: "post_1", Brand: "Exchange"}
	for i, h := range headlines {
		p.Slides = append(p.Slides, &model.SlideContent{Position: i, Headline: h})
	}
	return p
}

func newJob(t *testing.T, p *model.Post, mode model.Mode, formats ...model.FormatDescriptor) *model.ExportJob {
	t.Helper()
	job, err := NewJob(p, formats, mode, testDate)
	require.NoError(t, err)
	return job
}

func zipEntries(t *testing.T, data []byte) (files, dirs []string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			dirs = append(dirs, f.Name)
		} else {
			files = append(files, f.Name)
		}
	}
	return files, dirs
}

func collect(events *[]Event) func(Event) {
	var mu sync.Mutex
	return func(e Event) {
		mu.Lock()
		*events = append(*events, e)
		mu.Unlock()
	}
}

func TestNewJob_Validation(t *testing.T) {
	_, err := NewJob(post("a"), nil, model.ModeArchive, testDate)
	assert.ErrorIs(t, err, ErrNoFormats)

	_, err = NewJob(&model.Post{ID: "empty"}, []model.FormatDescriptor{feed}, model.ModeArchive, testDate)
	assert.ErrorIs(t, err, ErrNoSlides)

	_, err = NewJob(post("a"), []model.FormatDescriptor{feed, feed}, model.ModeArchive, testDate)
	assert.Error(t, err)

	a := newJob(t, post("a"), model.ModeArchive, feed)
	b := newJob(t, post("a"), model.ModeArchive, feed)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestRun_SingleSlideArchive(t *testing.T) {
	r := &fakeRenderer{}
	saver := &memSaver{}
	orch := NewOrchestrator(recorder.StaticRecorder{}, r, saver)

	res, err := orch.Run(context.Background(), newJob(t, post("Apply now"), model.ModeArchive, feed, tok), nil)
	require.NoError(t, err)

	assert.Equal(t, "mem/Exchange_MultiPlatform_2026-10-17.zip", res.ArchivePath)
	require.Equal(t, []string{"Exchange_MultiPlatform_2026-10-17.zip"}, saver.order)

	files, dirs := zipEntries(t, saver.files[saver.order[0]])
	assert.Equal(t, []string{
		"Exchange_Instagram_Feed_1x1_2026-10-17.png",
		"Exchange_TikTok_9x16_2026-10-17.png",
	}, files)
	assert.Empty(t, dirs)

	assert.Equal(t, []string{"(1080,1080)", "(1080,1920)"}, r.sizes())

	for _, p := range res.Progress {
		assert.Equal(t, 100, p.Percent, p.Key)
		assert.Equal(t, model.StatusDone, p.Status)
	}
	require.Len(t, res.Formats, 2)
	assert.Equal(t, 1, res.Formats[0].Rendered)
	assert.NotEmpty(t, res.Formats[0].RecordID)
}

func TestRun_CarouselArchive(t *testing.T) {
	saver := &memSaver{}
	orch := NewOrchestrator(recorder.StaticRecorder{}, &fakeRenderer{}, saver, WithWorkers(3))

	// Positions out of order: file numbering follows position.
	p := post("one", "two", "three")
	p.Slides[0], p.Slides[2] = p.Slides[2], p.Slides[0]

	_, err := orch.Run(context.Background(), newJob(t, p, model.ModeArchive, feed, tok), nil)
	require.NoError(t, err)

	files, dirs := zipEntries(t, saver.files["Exchange_MultiPlatform_2026-10-17.zip"])
	assert.Equal(t, []string{"Instagram_Feed_1x1/", "TikTok_9x16/"}, dirs)
	assert.Equal(t, []string{
		"Instagram_Feed_1x1/Exchange_2026-10-17_slide_01.png",
		"Instagram_Feed_1x1/Exchange_2026-10-17_slide_02.png",
		"Instagram_Feed_1x1/Exchange_2026-10-17_slide_03.png",
		"TikTok_9x16/Exchange_2026-10-17_slide_01.png",
		"TikTok_9x16/Exchange_2026-10-17_slide_02.png",
		"TikTok_9x16/Exchange_2026-10-17_slide_03.png",
	}, files)
}

func TestRun_Deterministic(t *testing.T) {
	run := func() []byte {
		saver := &memSaver{}
		orch := NewOrchestrator(recorder.StaticRecorder{}, &fakeRenderer{}, saver)
		_, err := orch.Run(context.Background(), newJob(t, post("a", "b"), model.ModeArchive, feed, tok), nil)
		require.NoError(t, err)
		return saver.files["Exchange_MultiPlatform_2026-10-17.zip"]
	}
	assert.Equal(t, run(), run())
}

func TestRun_RecordingFailure(t *testing.T) {
	r := &fakeRenderer{}
	saver := &memSaver{}
	backendErr := errors.New("502 bad gateway")
	rec := recorderFunc(func(context.Context, recorder.Request) ([]model.ExportRecord, error) {
		return nil, backendErr
	})

	var events []Event
	orch := NewOrchestrator(rec, r, saver)
	res, err := orch.Run(context.Background(), newJob(t, post("a"), model.ModeArchive, feed, tok), collect(&events))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecordingFailed)
	assert.ErrorIs(t, err, backendErr)

	require.NotNil(t, res)
	for _, p := range res.Progress {
		assert.Equal(t, model.PercentRecording, p.Percent, p.Key)
	}
	assert.Empty(t, r.sizes(), "nothing may be rendered after a failed recording")
	assert.Empty(t, saver.order)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, StateFailed, last.State)
	assert.Equal(t, LevelError, last.Level)
}

func TestRun_CanonicalRecordOverrides(t *testing.T) {
	r := &fakeRenderer{}
	saver := &memSaver{}
	rec := recorderFunc(func(_ context.Context, req recorder.Request) ([]model.ExportRecord, error) {
		// Returned in reverse order; matched by platform.
		return []model.ExportRecord{
			{ID: "rec_tok", Platform: "tiktok", Width: 720, Height: 1280, Label: "TikTok Cover"},
			{ID: "rec_feed", Platform: "instagram_feed"},
		}, nil
	})

	orch := NewOrchestrator(rec, r, saver)
	res, err := orch.Run(context.Background(), newJob(t, post("a"), model.ModeArchive, feed, tok), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"(1080,1080)", "(720,1280)"}, r.sizes())
	require.Len(t, res.Formats, 2)
	assert.Equal(t, "rec_feed", res.Formats[0].RecordID)
	assert.Equal(t, "rec_tok", res.Formats[1].RecordID)
	assert.Equal(t, "720x1280", res.Formats[1].Resolution)

	files, _ := zipEntries(t, saver.files["Exchange_MultiPlatform_2026-10-17.zip"])
	assert.Contains(t, files, "Exchange_TikTok_Cover_9x16_2026-10-17.png")
}

func TestRun_ScheduleModeRendersNothing(t *testing.T) {
	r := &fakeRenderer{}
	saver := &memSaver{}
	var req recorder.Request
	rec := recorderFunc(func(_ context.Context, got recorder.Request) ([]model.ExportRecord, error) {
		req = got
		return recorder.StaticRecorder{}.Record(context.Background(), got)
	})

	orch := NewOrchestrator(rec, r, saver)
	res, err := orch.Run(context.Background(), newJob(t, post("a", "b"), model.ModeSchedule, feed, tok), nil)
	require.NoError(t, err)

	assert.True(t, req.Schedule)
	assert.Empty(t, r.sizes())
	assert.Empty(t, saver.order)
	assert.Empty(t, res.ArchivePath)
	for _, p := range res.Progress {
		assert.Equal(t, 100, p.Percent)
	}
}

func TestRun_ScheduleModeSkipsRenderingStage(t *testing.T) {
	var events []Event
	orch := NewOrchestrator(recorder.StaticRecorder{}, &fakeRenderer{}, &memSaver{})
	_, err := orch.Run(context.Background(), newJob(t, post("a", "b"), model.ModeSchedule, feed, tok), collect(&events))
	require.NoError(t, err)

	percents := map[string][]int{}
	for _, e := range events {
		assert.NotEqual(t, StateRendering, e.State, "unexpected event %+v", e)
		assert.NotEqual(t, StatePackaging, e.State, "unexpected event %+v", e)
		if e.FormatKey != "" {
			percents[e.FormatKey] = append(percents[e.FormatKey], e.Percent)
		}
	}
	assert.Equal(t, map[string][]int{
		"instagram_feed": {model.PercentRecording, model.PercentDone},
		"tiktok":         {model.PercentRecording, model.PercentDone},
	}, percents)
}

func TestRun_CollidingEntryPathsFail(t *testing.T) {
	square := model.FormatDescriptor{Key: "facebook_square", Label: "Facebook Square", Aspect: "1:1", Width: 1080, Height: 1080}
	rec := recorderFunc(func(_ context.Context, req recorder.Request) ([]model.ExportRecord, error) {
		return []model.ExportRecord{
			{ID: "rec_1", Platform: "instagram_feed", Label: "Square Post"},
			{ID: "rec_2", Platform: "facebook_square", Label: "Square Post"},
		}, nil
	})

	for _, tt := range []struct {
		name   string
		mode   model.Mode
		slides []string
	}{
		{"archive single", model.ModeArchive, []string{"a"}},
		{"archive carousel", model.ModeArchive, []string{"a", "b"}},
		{"download each", model.ModeDownloadEach, []string{"a", "b"}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRenderer{}
			saver := &memSaver{}
			var events []Event
			orch := NewOrchestrator(rec, r, saver, WithDownloadDelay(0))

			_, err := orch.Run(context.Background(), newJob(t, post(tt.slides...), tt.mode, feed, square), collect(&events))
			require.Error(t, err)
			assert.ErrorIs(t, err, archive.ErrDuplicateEntry)
			assert.Contains(t, err.Error(), "facebook_square")

			assert.Empty(t, r.sizes(), "rendered before the collision was detected")
			assert.Empty(t, saver.order)
			require.NotEmpty(t, events)
			assert.Equal(t, StateFailed, events[len(events)-1].State)
		})
	}
}

func TestRun_DownloadEach(t *testing.T) {
	saver := &memSaver{}
	orch := NewOrchestrator(recorder.StaticRecorder{}, &fakeRenderer{}, saver, WithDownloadDelay(0))

	res, err := orch.Run(context.Background(), newJob(t, post("a", "b"), model.ModeDownloadEach, feed, tok), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Instagram_Feed_1x1/Exchange_2026-10-17_slide_01.png",
		"Instagram_Feed_1x1/Exchange_2026-10-17_slide_02.png",
		"TikTok_9x16/Exchange_2026-10-17_slide_01.png",
		"TikTok_9x16/Exchange_2026-10-17_slide_02.png",
	}, saver.order)
	assert.Len(t, res.Files, 4)
	assert.Empty(t, res.ArchivePath)

	data := saver.files[saver.order[0]]
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "not a PNG")
}

func TestRun_DownloadEachSaveFailureAborts(t *testing.T) {
	saver := &memSaver{err: errors.New("disk full")}
	orch := NewOrchestrator(recorder.StaticRecorder{}, &fakeRenderer{}, saver, WithDownloadDelay(0))

	res, err := orch.Run(context.Background(), newJob(t, post("a"), model.ModeDownloadEach, feed), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NotEqual(t, 100, res.Progress[0].Percent)
}

func TestRun_SkipsFailedSlides(t *testing.T) {
	r := &fakeRenderer{fail: map[string]error{"broken": errors.New("font exploded")}}
	saver := &memSaver{}

	p := post("ok", "broken", "also ok")
	p.Slides = append(p.Slides, &model.SlideContent{Position: 3})

	var events []Event
	orch := NewOrchestrator(recorder.StaticRecorder{}, r, saver)
	res, err := orch.Run(context.Background(), newJob(t, p, model.ModeArchive, feed), collect(&events))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Formats[0].Rendered)
	assert.Equal(t, 2, res.Formats[0].Skipped)

	files, _ := zipEntries(t, saver.files[filepath.Base(res.ArchivePath)])
	assert.Equal(t, []string{
		"Instagram_Feed_1x1/Exchange_2026-10-17_slide_01.png",
		"Instagram_Feed_1x1/Exchange_2026-10-17_slide_03.png",
	}, files)

	var warnings int
	for _, e := range events {
		if e.Level == LevelWarning {
			warnings++
		}
	}
	assert.Equal(t, 1, warnings, "only the real failure is a warning")
}

func TestRun_NothingRendered(t *testing.T) {
	saver := &memSaver{}
	p := &model.Post{ID: "blank", Slides: []*model.SlideContent{{Position: 0}}}

	orch := NewOrchestrator(recorder.StaticRecorder{}, &fakeRenderer{}, saver)
	res, err := orch.Run(context.Background(), newJob(t, p, model.ModeArchive, feed), nil)
	require.NoError(t, err)
	assert.Empty(t, res.ArchivePath)
	assert.Empty(t, saver.order)
}

func TestRun_ProgressIsMonotonic(t *testing.T) {
	var events []Event
	orch := NewOrchestrator(recorder.StaticRecorder{}, &fakeRenderer{}, &memSaver{})
	_, err := orch.Run(context.Background(), newJob(t, post("a", "b", "c"), model.ModeArchive, feed, tok), collect(&events))
	require.NoError(t, err)

	last := map[string]int{}
	for _, e := range events {
		if e.FormatKey == "" {
			continue
		}
		assert.GreaterOrEqual(t, e.Percent, last[e.FormatKey], "%s went backwards", e.FormatKey)
		last[e.FormatKey] = e.Percent
	}
	assert.Equal(t, map[string]int{"instagram_feed": 100, "tiktok": 100}, last)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &fakeRenderer{hook: cancel}
	saver := &memSaver{}
	orch := NewOrchestrator(recorder.StaticRecorder{}, r, saver)

	_, err := orch.Run(ctx, newJob(t, post("a", "b"), model.ModeArchive, feed, tok), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, saver.order)
}

func TestStart_SecondJobRejected(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	rec := recorderFunc(func(ctx context.Context, req recorder.Request) ([]model.ExportRecord, error) {
		once.Do(func() { close(started) })
		<-release
		return recorder.StaticRecorder{}.Record(ctx, req)
	})

	orch := NewOrchestrator(rec, &fakeRenderer{}, &memSaver{})
	h, err := orch.Start(context.Background(), newJob(t, post("a"), model.ModeArchive, feed))
	require.NoError(t, err)
	<-started

	_, err = orch.Start(context.Background(), newJob(t, post("b"), model.ModeArchive, feed))
	assert.ErrorIs(t, err, ErrExportInProgress)
	_, err = orch.Run(context.Background(), newJob(t, post("b"), model.ModeArchive, feed), nil)
	assert.ErrorIs(t, err, ErrExportInProgress)

	close(release)
	res, err := h.Wait()
	require.NoError(t, err)
	assert.Equal(t, h.JobID, res.JobID)

	// The slot is free again.
	_, err = orch.Run(context.Background(), newJob(t, post("c"), model.ModeArchive, feed), nil)
	assert.NoError(t, err)
}

func TestStart_StreamsEvents(t *testing.T) {
	orch := NewOrchestrator(recorder.StaticRecorder{}, &fakeRenderer{}, &memSaver{})
	h, err := orch.Start(context.Background(), newJob(t, post("a"), model.ModeArchive, feed))
	require.NoError(t, err)

	var states []State
	for e := range h.Events() {
		assert.Equal(t, h.JobID, e.JobID)
		if len(states) == 0 || states[len(states)-1] != e.State {
			states = append(states, e.State)
		}
	}
	assert.Equal(t, []State{StateRecording, StateRendering, StatePackaging, StateDone}, states)

	_, err = h.Wait()
	assert.NoError(t, err)
}

func TestStart_DoneWithoutReadingEvents(t *testing.T) {
	headlines := make([]string, 80)
	for i := range headlines {
		headlines[i] = fmt.Sprintf("slide %d", i+1)
	}

	saver := &memSaver{}
	orch := NewOrchestrator(recorder.StaticRecorder{}, &fakeRenderer{}, saver)
	h, err := orch.Start(context.Background(), newJob(t, post(headlines...), model.ModeArchive, feed, tok))
	require.NoError(t, err)

	select {
	case <-h.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("job did not finish while its events were unread")
	}

	// The slot is free as soon as Done closes.
	_, err = orch.Run(context.Background(), newJob(t, post("next"), model.ModeArchive, feed), nil)
	require.NoError(t, err)

	res, err := h.Wait()
	require.NoError(t, err)
	require.Len(t, res.Formats, 2)
	assert.Equal(t, 80, res.Formats[0].Rendered)
	assert.Equal(t, 80, res.Formats[1].Rendered)

	// Wait ends delivery; the stream closes without the unread backlog.
	select {
	case <-drain(h.Events()):
	case <-time.After(3 * time.Second):
		t.Fatal("events channel was not closed after Wait")
	}
}

func drain(events <-chan Event) <-chan struct{} {
	closed := make(chan struct{})
	go func() {
		for range events {
		}
		close(closed)
	}()
	return closed
}

func TestDirSaver(t *testing.T) {
	dir := t.TempDir()
	s := DirSaver{Dir: dir}

	path, err := s.Save(context.Background(), "TikTok_9x16/slide.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "TikTok_9x16", "slide.png"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png", string(got))

	_, err = s.Save(context.Background(), "../escape.png", nil)
	assert.Error(t, err)
}

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/handiism/post-exporter/internal/config"
	"github.com/handiism/post-exporter/internal/export"
	"github.com/handiism/post-exporter/internal/http"
	ioutils "github.com/handiism/post-exporter/internal/io"
	"github.com/handiism/post-exporter/internal/recorder"
	"github.com/handiism/post-exporter/internal/render"
)

// commandContext carries global flags and lazily loaded settings shared by
// every subcommand.
type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	settings   *config.Settings
	configErr  error
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Settings, error) {
	c.configOnce.Do(func() {
		path := ""
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if path == "" {
			c.settings = config.DefaultSettings()
			return
		}
		c.settings, c.configErr = config.Load(path)
	})
	return c.settings, c.configErr
}

func (c *commandContext) verbose() bool {
	return c.verboseFlag != nil && *c.verboseFlag
}

func (c *commandContext) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if c.verbose() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openRecorder picks the recorder from settings: the HTTP backend when a URL
// is configured, the local SQLite store when a database path is set, and a
// static echo otherwise. The returned close function is never nil.
func openRecorder(s *config.Settings) (recorder.Recorder, *recorder.SQLiteRecorder, func() error, error) {
	noop := func() error { return nil }

	if url := strings.TrimSpace(s.BackendURL); url != "" {
		client := http.NewClient(
			http.WithToken(s.BackendToken),
			http.WithTimeout(s.BackendTimeoutDuration()),
		)
		return recorder.NewHTTPRecorder(url, client), nil, noop, nil
	}

	if path := strings.TrimSpace(s.RecorderDBPath); path != "" {
		db, err := recorder.OpenSQLite(path)
		if err != nil {
			return nil, nil, noop, err
		}
		return db, db, db.Close, nil
	}

	return recorder.StaticRecorder{}, nil, noop, nil
}

// newRenderer builds a renderer whose image backgrounds resolve relative to
// baseDir (the post file's directory).
func newRenderer(s *config.Settings, baseDir string) (*render.Renderer, *ioutils.ImageService, error) {
	images := ioutils.NewImageService(baseDir)
	r, err := render.NewRenderer(s.ToRenderOptions(images))
	if err != nil {
		return nil, nil, fmt.Errorf("load fonts: %w", err)
	}
	return r, images, nil
}

// newOrchestrator wires recorder, renderer and an output-directory saver.
func newOrchestrator(s *config.Settings, rec recorder.Recorder, r export.Renderer, images *ioutils.ImageService, outDir string) *export.Orchestrator {
	return export.NewOrchestrator(rec, r, export.DirSaver{Dir: outDir},
		export.WithBrand(s.Brand),
		export.WithAlsoSchedule(s.AlsoSchedule),
		export.WithDownloadDelay(s.DownloadDelayDuration()),
		export.WithWorkers(s.RenderWorkers),
		export.WithEncoder(images),
	)
}

var errNoLocalRecorder = errors.New("no local recorder database configured (set recorder_db_path)")

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/handiism/post-exporter/internal/config"
	"github.com/handiism/post-exporter/internal/export"
	"github.com/handiism/post-exporter/internal/http"
	ioutils "github.com/handiism/post-exporter/internal/io"
	"github.com/handiism/post-exporter/internal/recorder"
	"github.com/handiism/post-exporter/internal/render"
	"github.com/handiism/post-exporter/internal/tui"
)

func main() {
	var configFlag string

	cmd := &cobra.Command{
		Use:           "post-export-tui",
		Short:         "Interactive post exporter",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := config.DefaultSettings()
			if configFlag != "" {
				var err error
				if settings, err = config.Load(configFlag); err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
			}
			return run(settings)
		},
	}
	cmd.Flags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (.json or .toml)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(settings *config.Settings) error {
	var rec recorder.Recorder = recorder.StaticRecorder{}
	switch {
	case settings.BackendURL != "":
		client := http.NewClient(
			http.WithToken(settings.BackendToken),
			http.WithTimeout(settings.BackendTimeoutDuration()),
		)
		rec = recorder.NewHTTPRecorder(settings.BackendURL, client)
	case settings.RecorderDBPath != "":
		db, err := recorder.OpenSQLite(settings.RecorderDBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		rec = db
	}

	// Image backgrounds resolve against the working directory; posts are
	// usually exported from their own folder.
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	images := ioutils.NewImageService(filepath.Clean(wd))
	renderer, err := render.NewRenderer(settings.ToRenderOptions(images))
	if err != nil {
		return err
	}

	if err := ioutils.EnsureDir(settings.OutputDir); err != nil {
		return err
	}
	lock, err := ioutils.LockDir(settings.OutputDir)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	orch := export.NewOrchestrator(rec, renderer, export.DirSaver{Dir: settings.OutputDir},
		export.WithBrand(settings.Brand),
		export.WithAlsoSchedule(settings.AlsoSchedule),
		export.WithDownloadDelay(settings.DownloadDelayDuration()),
		export.WithWorkers(settings.RenderWorkers),
		export.WithEncoder(images),
	)
	return tui.Run(settings, orch)
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/handiism/post-exporter/internal/catalog"
	"github.com/handiism/post-exporter/internal/export"
	ioutils "github.com/handiism/post-exporter/internal/io"
	"github.com/handiism/post-exporter/internal/model"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		formats      []string
		modeFlag     string
		outDir       string
		brand        string
		alsoSchedule bool
	)

	cmd := &cobra.Command{
		Use:   "export <post.json>",
		Short: "Render a post for the selected formats",
		Long: `Render every slide of a post for each selected format.

Modes:
  archive        one ZIP with every derivative (default)
  download-each  one PNG per derivative
  schedule       register the export for posting, render nothing`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("brand") {
				settings.Brand = brand
			}
			if cmd.Flags().Changed("also-schedule") {
				settings.AlsoSchedule = alsoSchedule
			}
			if outDir == "" {
				outDir = settings.OutputDir
			}
			if len(formats) == 0 {
				formats = settings.DefaultFormats
			}
			mode := settings.ExportMode()
			if cmd.Flags().Changed("mode") {
				if mode, err = model.ParseMode(modeFlag); err != nil {
					return err
				}
			}

			selected, err := catalog.Resolve(formats)
			if err != nil {
				return err
			}
			post, err := model.LoadPost(args[0])
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return runExport(signalCtx, ctx, cmd.OutOrStdout(), exportParams{
				post:      post,
				postDir:   filepath.Dir(args[0]),
				formats:   selected,
				mode:      mode,
				outDir:    outDir,
				startedAt: time.Now(),
			})
		},
	}

	cmd.Flags().StringSliceVarP(&formats, "formats", "f", nil, "Format keys to export (default from config)")
	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "Export mode: archive, download-each, schedule (default from config)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default from config)")
	cmd.Flags().StringVar(&brand, "brand", "", "Brand used in file names and the badge")
	cmd.Flags().BoolVar(&alsoSchedule, "also-schedule", false, "Also queue the export for posting")

	return cmd
}

type exportParams struct {
	post      *model.Post
	postDir   string
	formats   []model.FormatDescriptor
	mode      model.Mode
	outDir    string
	startedAt time.Time
}

func runExport(ctx context.Context, cc *commandContext, out io.Writer, p exportParams) error {
	settings, err := cc.ensureConfig()
	if err != nil {
		return err
	}
	logger := cc.logger(os.Stderr)

	if err := ioutils.EnsureDir(p.outDir); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	lock, err := ioutils.LockDir(p.outDir)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	rec, local, closeRecorder, err := openRecorder(settings)
	if err != nil {
		return err
	}
	defer closeRecorder()

	renderer, images, err := newRenderer(settings, p.postDir)
	if err != nil {
		return err
	}
	orch := newOrchestrator(settings, rec, renderer, images, p.outDir)

	job, err := export.NewJob(p.post, p.formats, p.mode, p.startedAt)
	if err != nil {
		return err
	}
	logger.Info("export started",
		"job", job.ID,
		"post", p.post.ID,
		"slides", len(p.post.Slides),
		"formats", strings.Join(job.Keys(), ","),
		"mode", p.mode.String(),
	)

	res, err := orch.Run(ctx, job, func(e export.Event) {
		logEvent(logger, e)
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, renderResultTable(res))
	printArtifacts(out, res)

	if p.mode == model.ModeSchedule && local != nil {
		n, err := local.ScheduledCount(ctx)
		if err != nil {
			logger.Warn("count scheduled exports", "error", err)
		} else {
			fmt.Fprintf(out, "Queued for posting: %s export(s) scheduled locally\n", humanize.Comma(int64(n)))
		}
	}
	return nil
}

// logEvent sinks orchestrator events into slog. Per-format percentage
// updates are debug output.
func logEvent(logger *slog.Logger, e export.Event) {
	if e.Message == "" {
		logger.Debug("progress", "format", e.FormatKey, "percent", e.Percent, "state", e.State.String())
		return
	}
	attrs := []any{"state", e.State.String()}
	switch e.Level {
	case export.LevelError:
		logger.Error(e.Message, attrs...)
	case export.LevelWarning:
		logger.Warn(e.Message, attrs...)
	case export.LevelVerbose:
		logger.Debug(e.Message, attrs...)
	default:
		logger.Info(e.Message, attrs...)
	}
}

func renderResultTable(res *export.Result) string {
	rows := make([][]string, 0, len(res.Formats))
	for _, f := range res.Formats {
		rows = append(rows, []string{
			f.Label,
			f.Resolution,
			strconv.Itoa(f.Rendered),
			strconv.Itoa(f.Skipped),
			f.RecordID,
		})
	}
	return renderTable(
		[]string{"Format", "Size", "Rendered", "Skipped", "Record"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}

func printArtifacts(out io.Writer, res *export.Result) {
	var total uint64
	for _, path := range res.Files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		total += uint64(info.Size())
	}

	switch {
	case res.ArchivePath != "":
		fmt.Fprintf(out, "Archive: %s (%s)\n", res.ArchivePath, humanize.Bytes(total))
	case len(res.Files) > 0:
		fmt.Fprintf(out, "Saved %d file(s), %s total\n", len(res.Files), humanize.Bytes(total))
	}
}

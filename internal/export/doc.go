// Package export drives a post through the export pipeline.
//
// # Orchestrator
//
// The Orchestrator runs one job at a time through these stages:
//
//  1. Recording: register the export with the Recorder (10%)
//  2. Rendering: rasterize every (format, slide) pair (30% to 90%)
//  3. Packaging: finalize the ZIP archive and save it (90%)
//  4. Done (100%)
//
// A recording failure aborts the job before anything is rendered, leaving
// every format at 10%. Schedule-mode jobs stop after recording.
//
// # Basic Usage
//
//	orch := export.NewOrchestrator(rec, renderer, export.DirSaver{Dir: out})
//
//	job, err := export.NewJob(post, formats, model.ModeArchive, time.Now())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := orch.Run(ctx, job, func(e export.Event) {
//	    fmt.Println(e.State, e.FormatKey, e.Percent, e.Message)
//	})
//
// Start runs the same job in the background and streams events on a
// channel, for callers such as the TUI:
//
//	h, err := orch.Start(ctx, job)
//	for e := range h.Events() {
//	    ...
//	}
//	res, err := h.Wait()
//
// The job never blocks on its reader: Done closes and the next job may start
// even if Events is never read.
//
// Two formats that would write the same path, because the recorder gave
// them the same label and aspect ratio, fail the job before rendering.
//
// # Concurrency
//
// Slides of one format are rendered concurrently (WithWorkers). Archive
// entries and saved files are still produced in format order, then slide
// order, so output is identical across runs.
//
// In download-each mode saves are spaced by WithDownloadDelay.
package export

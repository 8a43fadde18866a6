package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/qlabel/internal/document"
	"github.com/dgallion1/qlabel/internal/labeler"
)

// Runner reads, labels and overwrites documents.
type Runner struct {
	labeler *labeler.Labeler
	log     *slog.Logger
	workers int
	dryRun  bool
}

func NewRunner(l *labeler.Labeler, log *slog.Logger, workers int, dryRun bool) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		labeler: l,
		log:     log,
		workers: workers,
		dryRun:  dryRun,
	}
}

// Run labels every path and writes back the files that changed. A failing
// file leaves its disk contents untouched and does not stop the others; the
// returned error joins every per-file failure.
func (r *Runner) Run(ctx context.Context, paths []string) (Summary, error) {
	return r.process(ctx, paths, !r.dryRun)
}

// Check labels every path in memory and reports which files would change.
func (r *Runner) Check(ctx context.Context, paths []string) (Summary, error) {
	return r.process(ctx, paths, false)
}

func (r *Runner) process(ctx context.Context, paths []string, write bool) (Summary, error) {
	results := make([]FileResult, len(paths))

	g := new(errgroup.Group)
	g.SetLimit(r.workers)

	for i, path := range paths {
		if ctx.Err() != nil {
			results[i] = FileResult{Path: path, Status: StatusCanceled, Err: ctx.Err()}
			continue
		}
		g.Go(func() error {
			results[i] = r.processFile(ctx, path, write)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return Summary{Files: results}, errors.Join(errs...)
}

func (r *Runner) processFile(ctx context.Context, path string, write bool) FileResult {
	log := r.log.With("path", path)

	if err := ctx.Err(); err != nil {
		return FileResult{Path: path, Status: StatusCanceled, Err: err}
	}

	doc, err := document.Read(path)
	if err != nil {
		log.Error("read failed", "error", err)
		return FileResult{Path: path, Status: StatusFailed, Err: err}
	}

	lines, stats, err := r.labeler.Label(path, doc.Lines)
	if err != nil {
		log.Error("label failed", "error", err)
		return FileResult{Path: path, Status: StatusFailed, Err: err}
	}

	res := FileResult{Path: path, Stats: stats, Status: StatusUnchanged}
	if !stats.Changed {
		log.Debug("already labeled", "chunks", stats.Chunks)
		return res
	}

	if !write {
		res.Status = StatusPending
		log.Info("would relabel", "synthesized", stats.Synthesized, "preserved", stats.Preserved)
		return res
	}

	doc.Lines = lines
	if err := document.Write(doc); err != nil {
		log.Error("write failed", "error", err)
		res.Status = StatusFailed
		res.Err = err
		return res
	}

	res.Status = StatusLabeled
	log.Info("relabeled", "synthesized", stats.Synthesized, "preserved", stats.Preserved, "changed", true)
	return res
}

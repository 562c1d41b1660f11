// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch converts HEIC/HEIF files found on the local filesystem.
// It resolves file and directory arguments to a deduplicated, sorted list of
// inputs, plans one output path per input, converts each, and reports
// per-file status lines and totals to an io.Writer. A failure on one file
// never aborts the batch.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/heic-converter/internal/heic"
	"github.com/pdiddy/heic-converter/internal/naming"
	"github.com/pdiddy/heic-converter/pkg/types"
)

// Converter transforms HEIC/HEIF bytes into JPEG bytes. *heic.Converter
// implements it.
type Converter interface {
	Convert(data []byte, quality int) ([]byte, error)
}

// Result holds the outcome of a batch run.
type Result struct {
	Converted int
	Skipped   int
	Failed    int
}

// Succeeded returns the number of files that have a JPEG after the run.
// Skipped files count: their output already existed.
func (r Result) Succeeded() int {
	return r.Converted + r.Skipped
}

// Total returns the number of files processed.
func (r Result) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any file failed conversion.
func (r Result) HasFailures() bool {
	return r.Failed > 0
}

// Add returns the sum of two results.
func (r Result) Add(o Result) Result {
	return Result{
		Converted: r.Converted + o.Converted,
		Skipped:   r.Skipped + o.Skipped,
		Failed:    r.Failed + o.Failed,
	}
}

// Job pairs one source file with its planned output path.
type Job struct {
	Source string
	Output string
}

// Run resolves paths, plans outputs, converts every input, and prints a
// final summary line. It is the whole command-line conversion flow.
func Run(ctx context.Context, c Converter, paths []string, cfg types.BatchConfig, w io.Writer) Result {
	files := Resolve(paths, cfg.Recursive, w)
	result := ConvertBatch(ctx, c, Plan(files, cfg), cfg, w)
	fmt.Fprintf(w, "\nTOTAL: %d converted, %d failed", result.Succeeded(), result.Failed)
	if result.Skipped > 0 {
		fmt.Fprintf(w, " (%d already existed)", result.Skipped)
	}
	fmt.Fprintln(w)
	return result
}

// OutputDir returns the directory that receives the JPEG for src.
// An explicit cfg.OutputDir wins; otherwise CreateSubfolder selects a
// "jpg files" directory next to src; otherwise src's own directory.
func OutputDir(src string, cfg types.BatchConfig) string {
	switch {
	case cfg.OutputDir != "":
		return cfg.OutputDir
	case cfg.CreateSubfolder:
		return filepath.Join(filepath.Dir(src), types.DefaultSubfolder)
	default:
		return filepath.Dir(src)
	}
}

// Plan assigns an output path to every file in order. Inputs that would
// land on the same output path receive _1, _2, ... suffixes.
func Plan(files []string, cfg types.BatchConfig) []Job {
	reg := naming.NewRegistry(".jpg")
	jobs := make([]Job, len(files))
	for i, f := range files {
		dir := OutputDir(f, cfg)
		jobs[i] = Job{
			Source: f,
			Output: filepath.Join(dir, reg.AssignIn(dir, f)),
		}
	}
	return jobs
}

// ConvertBatch converts jobs with at most cfg.Workers running at once and
// prints one status line per job in job order.
func ConvertBatch(ctx context.Context, c Converter, jobs []Job, cfg types.BatchConfig, w io.Writer) Result {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	quality := cfg.EffectiveQuality()

	statuses := make([]types.ConversionStatus, len(jobs))
	rep := newReporter(w, len(jobs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			var status types.ConversionStatus
			var err error
			if ctxErr := ctx.Err(); ctxErr != nil {
				status, err = types.ConversionFailed, ctxErr
			} else {
				status, err = ConvertJob(c, job, quality)
			}
			statuses[i] = status
			rep.done(i, statusLine(job, status, err))
			return nil
		})
	}
	_ = g.Wait()

	var result Result
	for _, s := range statuses {
		switch s {
		case types.ConversionDone:
			result.Converted++
		case types.ConversionSkipped:
			result.Skipped++
		case types.ConversionFailed:
			result.Failed++
		}
	}
	return result
}

// ConvertJob converts one file. If the output already exists it returns
// ConversionSkipped without reading the source; existing files are never
// overwritten.
func ConvertJob(c Converter, job Job, quality int) (types.ConversionStatus, error) {
	if _, err := os.Stat(job.Output); err == nil {
		return types.ConversionSkipped, nil
	}

	data, err := os.ReadFile(job.Source)
	if err != nil {
		return types.ConversionFailed, fmt.Errorf("reading source: %w", err)
	}

	out, err := c.Convert(data, quality)
	if err != nil {
		return types.ConversionFailed, err
	}

	if err := os.MkdirAll(filepath.Dir(job.Output), 0o755); err != nil {
		return types.ConversionFailed, fmt.Errorf("%w: creating output directory: %v", heic.ErrEncode, err)
	}

	if err := writeNew(job.Output, out); err != nil {
		if errors.Is(err, os.ErrExist) {
			return types.ConversionSkipped, nil
		}
		return types.ConversionFailed, fmt.Errorf("%w: %v", heic.ErrEncode, err)
	}
	return types.ConversionDone, nil
}

// writeNew creates path exclusively and writes data to it. A partially
// written file is removed.
func writeNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

func statusLine(job Job, status types.ConversionStatus, err error) string {
	src := filepath.Base(job.Source)
	out := filepath.Base(job.Output)
	switch status {
	case types.ConversionDone:
		return fmt.Sprintf("converted: %s -> %s", src, out)
	case types.ConversionSkipped:
		return fmt.Sprintf("skipped (exists): %s", out)
	default:
		return fmt.Sprintf("failed:  %s (%v)", src, err)
	}
}

// reporter prints lines in index order regardless of completion order.
type reporter struct {
	mu    sync.Mutex
	w     io.Writer
	lines []string
	ready []bool
	next  int
}

func newReporter(w io.Writer, n int) *reporter {
	return &reporter{w: w, lines: make([]string, n), ready: make([]bool, n)}
}

func (r *reporter) done(i int, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[i] = line
	r.ready[i] = true
	for r.next < len(r.lines) && r.ready[r.next] {
		fmt.Fprintln(r.w, r.lines[r.next])
		r.next++
	}
}

// Package batch runs one operation over every file in a directory, either
// sequentially or with a bounded worker pool. The concurrency shape
// mirrors what a parallel-across-files codec pipeline needs: each file's
// buffers are private to its own goroutine, and only a caller-supplied
// ProcessFunc decides whether any shared resource (the image writer) needs
// its own internal serialization.
package batch

import (
	"context"
	"sync"

	"github.com/aikika/ccpatch/internal/patch/models"
)

// ProcessFunc processes one file and returns its outcome. Implementations
// must not share mutable state across concurrent calls except through
// their own internal synchronization.
type ProcessFunc func(ctx context.Context, file string) (models.Report, error)

type job struct {
	file string
}

type result struct {
	file   string
	report models.Report
	err    error
}

// DefaultWorkers is used when a caller passes workers <= 0.
const DefaultWorkers = 4

// Run processes files with fn, either sequentially or with up to workers
// concurrent goroutines, and returns the aggregated summary. New files
// stop being submitted once ctx is cancelled, but files already in flight
// are allowed to finish (cooperative, finish-the-current-file cancellation).
func Run(ctx context.Context, files []string, parallel bool, workers int, fn ProcessFunc) models.BatchSummary {
	if !parallel || len(files) <= 1 {
		return runSequential(ctx, files, fn)
	}
	return runParallel(ctx, files, workers, fn)
}

func runSequential(ctx context.Context, files []string, fn ProcessFunc) models.BatchSummary {
	var summary models.BatchSummary
	for _, f := range files {
		select {
		case <-ctx.Done():
			return summary
		default:
		}
		report, err := fn(ctx, f)
		summary.Add(finalize(f, report, err))
	}
	return summary
}

func runParallel(ctx context.Context, files []string, workers int, fn ProcessFunc) models.BatchSummary {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(files) {
		workers = len(files)
	}

	jobs := make(chan job, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker(ctx, &wg, jobs, results, fn)
	}

	for _, f := range files {
		jobs <- job{file: f}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var summary models.BatchSummary
	for r := range results {
		summary.Add(finalize(r.file, r.report, r.err))
	}
	return summary
}

func worker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan job, results chan<- result, fn ProcessFunc) {
	defer wg.Done()
	for j := range jobs {
		select {
		case <-ctx.Done():
			results <- result{file: j.file, report: models.Report{Kind: "Cancelled"}}
			continue
		default:
		}
		report, err := fn(ctx, j.file)
		results <- result{file: j.file, report: report, err: err}
	}
}

// finalize stamps the file name onto report and folds a returned error
// into report.Kind when the caller didn't already set one.
func finalize(file string, report models.Report, err error) models.Report {
	report.File = file
	if err != nil && report.Kind == "" {
		report.Kind = err.Error()
	}
	return report
}

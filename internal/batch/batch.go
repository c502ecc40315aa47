package batch

import (
	"context"
	"sync"

	"github.com/specialistvlad/gindecomp/internal/container"
	"github.com/specialistvlad/gindecomp/internal/ctxlog"
)

// Status classifies the outcome of processing one input file.
type Status int

const (
	StatusOK Status = iota
	StatusPartial
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusPartial:
		return "partial"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome for one input file.
type Result struct {
	Source  string
	Status  Status
	Output  string
	Sidecar string
	Err     error
	Unknown []container.ByteRange
}

// Report aggregates a whole batch, in input order.
type Report struct {
	Results []Result
}

// Count returns how many results carry the given status.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Failed reports whether any file failed outright.
func (r *Report) Failed() bool {
	return r.Count(StatusFailed) > 0
}

// ProcessFunc handles one input file. It must be safe for concurrent
// use; files share nothing but the read-only registry.
type ProcessFunc func(ctx context.Context, source string) Result

// Run processes the sources on a fixed worker pool. One file's failure
// never stops the others; only context cancellation does, and files not
// yet started are then reported as failed with the context error.
func Run(ctx context.Context, sources []string, workers int, fn ProcessFunc) *Report {
	logger := ctxlog.FromContext(ctx)
	if workers < 1 {
		workers = 1
	}
	if workers > len(sources) && len(sources) > 0 {
		workers = len(sources)
	}

	type job struct {
		index  int
		source string
	}
	jobs := make(chan job, len(sources))
	for i, s := range sources {
		jobs <- job{index: i, source: s}
	}
	close(jobs)

	results := make([]Result, len(sources))
	var wg sync.WaitGroup
	wg.Add(workers)

	logger.Debug("Starting worker pool.", "workers", workers, "files", len(sources))
	for w := 0; w < workers; w++ {
		go func(workerID int) {
			defer wg.Done()
			workerLogger := logger.With("workerID", workerID)
			workerLogger.Debug("Worker started.")
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					workerLogger.Warn("Context canceled, skipping file.", "source", j.source)
					results[j.index] = Result{Source: j.source, Status: StatusFailed, Err: err}
					continue
				}
				workerLogger.Debug("Worker picked up file.", "source", j.source)
				results[j.index] = fn(ctx, j.source)
			}
			workerLogger.Debug("Worker finished.")
		}(w)
	}
	wg.Wait()

	rep := &Report{Results: results}
	logger.Info("Batch complete.",
		"ok", rep.Count(StatusOK),
		"partial", rep.Count(StatusPartial),
		"skipped", rep.Count(StatusSkipped),
		"failed", rep.Count(StatusFailed))
	return rep
}

package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/crate/internal/shared"
	"golang.org/x/time/rate"
)

// BulkImportOpts contains configuration for importing many artists.
type BulkImportOpts struct {
	Workers   int     // Concurrent artist runs (default: 4, max: 10)
	RateLimit float64 // Artist runs started per second (default: 2)
	Popular   bool
	ProcessID string
}

// BulkImportItem is the outcome of one artist in a bulk import.
type BulkImportItem struct {
	RemoteID string
	Result   *ImportResult
	Error    error
}

// BulkImportResult summarizes a bulk import. Results follow the order of the requested ids.
type BulkImportResult struct {
	Total          int
	Succeeded      int
	Failed         int
	TracksImported int
	Results        []BulkImportItem
}

type bulkJob struct {
	index    int
	remoteID string
}

// ImportMany imports every artist in ids with a pool of independent runs.
//
// Blank and repeated ids are dropped. A failed artist never stops the others; the returned error is
// only set when ctx is cancelled, in which case unstarted artists are reported with ctx.Err().
func (im *Importer) ImportMany(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	ids []string,
	opts BulkImportOpts,
) (*BulkImportResult, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no artist ids", shared.ErrMissingArgument)
	}

	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Workers > 10 {
		opts.Workers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}
	if opts.Workers > len(ids) {
		opts.Workers = len(ids)
	}

	result := &BulkImportResult{
		Total:   len(ids),
		Results: make([]BulkImportItem, len(ids)),
	}
	for i, id := range ids {
		result.Results[i] = BulkImportItem{RemoteID: id}
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan bulkJob)

	var wg sync.WaitGroup
	for range opts.Workers {
		wg.Add(1)
		go im.importWorker(ctx, &wg, progress, jobs, result.Results, opts)
	}

	started := 0
	for i, id := range ids {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		select {
		case jobs <- bulkJob{index: i, remoteID: id}:
			started++
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	for i := started; i < len(ids); i++ {
		result.Results[i].Error = ctx.Err()
	}

	for _, item := range result.Results {
		if item.Error != nil {
			result.Failed++
			continue
		}
		result.Succeeded++
		result.TracksImported += item.Result.TracksImported
	}

	im.logger.Info("bulk import finished",
		"artists", result.Total,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"tracks", result.TracksImported,
	)
	return result, ctx.Err()
}

// importWorker runs artist imports from the jobs channel. Each job owns one slot of results.
func (im *Importer) importWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	progress chan<- ProgressUpdate,
	jobs <-chan bulkJob,
	results []BulkImportItem,
	opts BulkImportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		res, err := im.Import(ctx, progress, job.remoteID, ImportOpts{Popular: opts.Popular, ProcessID: opts.ProcessID})
		results[job.index].Result = res
		results[job.index].Error = err
	}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

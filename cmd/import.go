package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/repositories"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/tasks"
	"github.com/desertthunder/crate/internal/ui"
	"github.com/urfave/cli/v3"
)

// ImportArtist imports one artist and prints a report.
func (r *Runner) ImportArtist(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}

	store, err := r.store(cmd)
	if err != nil {
		return err
	}
	importer, err := r.importer(cmd, store)
	if err != nil {
		return err
	}

	opts := tasks.ImportOpts{Popular: cmd.Bool("popular")}

	var process *models.ImportProcess
	if cmd.Bool("process") {
		if process, err = r.startProcess(store, 1); err != nil {
			return err
		}
		opts.ProcessID = process.ID
	}

	progress := make(chan tasks.ProgressUpdate, 64)
	wait := r.watch(progress, nil)
	result, importErr := importer.Import(ctx, progress, id, opts)
	close(progress)
	wait()

	if process != nil {
		if importErr != nil {
			process.ArtistsFailed = 1
		} else {
			process.ArtistsImported = 1
		}
		process.TracksImported = result.TracksImported
		r.finishProcess(store, process, ctx.Err())
	}

	r.writePlainln("%s", ui.RenderImportResult(result, importErr))
	return importErr
}

// ImportArtists imports every id from the arguments and --file as one tracked import process.
func (r *Runner) ImportArtists(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if path := cmd.String("file"); path != "" {
		fromFile, err := readIDs(path)
		if err != nil {
			return err
		}
		ids = append(ids, fromFile...)
	}
	if countUnique(ids) == 0 {
		return fmt.Errorf("%w: provide artist ids as arguments or with --file", shared.ErrMissingArgument)
	}

	config, err := r.settings(cmd)
	if err != nil {
		return err
	}
	store, err := r.store(cmd)
	if err != nil {
		return err
	}
	importer, err := r.importer(cmd, store)
	if err != nil {
		return err
	}

	workers := int(cmd.Int("workers"))
	if workers <= 0 {
		workers = config.Import.Workers
	}

	process, err := r.startProcess(store, countUnique(ids))
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 256)
	wait := r.watch(progress, []tasks.Phase{tasks.Retry, tasks.Done, tasks.Failed})
	result, importErr := importer.ImportMany(ctx, progress, ids, tasks.BulkImportOpts{
		Workers:   workers,
		RateLimit: cmd.Float("rate"),
		Popular:   cmd.Bool("popular"),
		ProcessID: process.ID,
	})
	close(progress)
	wait()

	if result != nil {
		process.ArtistsTotal = result.Total
		process.ArtistsImported = result.Succeeded
		process.ArtistsFailed = result.Failed
		process.TracksImported = result.TracksImported
	}
	r.finishProcess(store, process, importErr)

	if result == nil {
		return importErr
	}
	r.writePlainln("%s", ui.RenderBulkImport(result))
	if importErr != nil {
		return importErr
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d artists failed (import process %s)", result.Failed, result.Total, process.ID)
	}
	return nil
}

// watch prints progress updates until the channel is closed. A nil phases list prints every update.
// The returned function blocks until every update is written.
func (r *Runner) watch(progress <-chan tasks.ProgressUpdate, phases []tasks.Phase) func() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			if phases != nil && !slices.Contains(phases, u.Phase) {
				continue
			}
			r.writePlain("%s\n", ui.RenderProgress(u))
		}
	}()
	return func() { <-done }
}

func (r *Runner) startProcess(store *repositories.CatalogStore, total int) (*models.ImportProcess, error) {
	process := models.NewImportProcess(total)
	process.Start()
	if err := store.Processes.Create(process); err != nil {
		return nil, fmt.Errorf("failed to record import process: %w", err)
	}
	r.logger.Info("import process started", "id", process.ID, "sequence", process.Sequence, "artists", total)
	return process, nil
}

// finishProcess records the outcome. Failures to save are logged so the import report is still printed.
func (r *Runner) finishProcess(store *repositories.CatalogStore, process *models.ImportProcess, err error) {
	process.Finish(err)
	if updateErr := store.Processes.Update(process); updateErr != nil {
		r.logger.Error("failed to update import process", "id", process.ID, "err", updateErr)
		return
	}
	r.logger.Info("import process finished", "id", process.ID, "status", process.Status)
}

// readIDs reads one id per line, skipping blank lines and # comments.
func readIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open id file: %w", err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read id file: %w", err)
	}
	return ids, nil
}

func countUnique(ids []string) int {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			seen[id] = true
		}
	}
	return len(seen)
}

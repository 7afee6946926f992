package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/crate/internal/formatter"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/ui"
	"github.com/urfave/cli/v3"
)

// CatalogExport writes an imported artist with its tracks in the requested format.
func (r *Runner) CatalogExport(ctx context.Context, cmd *cli.Command) error {
	artistID := strings.TrimSpace(cmd.String("artist"))
	format := cmd.String("format")
	output := cmd.String("output")

	store, err := r.store(cmd)
	if err != nil {
		return err
	}

	export, err := store.Export(artistID)
	if err != nil {
		if errors.Is(err, shared.ErrRecordNotFound) {
			return fmt.Errorf("%w: artist %s has not been imported", shared.ErrRecordNotFound, artistID)
		}
		return err
	}

	if output == "" {
		return formatter.Write(r.output, export, format)
	}

	files, err := formatter.WriteExport(export, format, output)
	if err != nil {
		return err
	}

	r.logger.Info("catalog exported", "artist", artistID, "format", format, "tracks", len(export.Tracks))
	for _, f := range files {
		r.writePlain("✓ %s\n", f)
	}
	return nil
}

// ProcessList prints recorded import processes.
func (r *Runner) ProcessList(ctx context.Context, cmd *cli.Command) error {
	status := models.ImportStatus(cmd.String("status"))
	if status != "" {
		probe := models.ImportProcess{Status: status}
		if err := probe.Validate(); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
	}

	store, err := r.store(cmd)
	if err != nil {
		return err
	}

	processes, err := store.Processes.List(status, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(processes, true)
	}
	return r.writePlain("%s", ui.RenderProcessList(processes))
}

// ProcessShow prints one import process with the number of tracks it wrote.
func (r *Runner) ProcessShow(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: import process id", shared.ErrMissingArgument)
	}

	store, err := r.store(cmd)
	if err != nil {
		return err
	}

	process, err := store.Processes.Get(id)
	if err != nil {
		return err
	}

	tagged, err := store.Tracks.CountByImportProcess(process.ID)
	if err != nil {
		return err
	}

	if err := r.writePlain("%s", ui.RenderProcess(process)); err != nil {
		return err
	}
	return r.writePlain("%d tracks still tagged with this process\n", tagged)
}

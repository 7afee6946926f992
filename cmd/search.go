package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/crate/internal/genres"
	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/ui"
	"github.com/urfave/cli/v3"
)

type searchItem struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Detail string `json:"detail,omitempty"`
}

// Search queries the remote catalog and prints one line per result.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	kinds, err := services.ParseKinds(cmd.String("type"))
	if err != nil {
		return err
	}

	svc, err := r.service(cmd)
	if err != nil {
		return err
	}

	r.logger.Debug("searching catalog", "query", query, "types", kinds)
	results, err := svc.Search(ctx, query, kinds, int(cmd.Int("limit")), int(cmd.Int("offset")))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	items := make([]searchItem, 0, len(results))
	for _, res := range results {
		item, err := describe(ctx, res)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	if cmd.Bool("json") {
		return r.writeJSON(items, true)
	}

	if len(items) == 0 {
		return r.writePlain("No results for %q\n", query)
	}
	for _, item := range items {
		if err := r.writePlain("%-7s %-24s %s  %s\n", item.Kind, item.ID, item.Name, item.Detail); err != nil {
			return err
		}
	}
	return nil
}

func describe(ctx context.Context, res services.Resource) (searchItem, error) {
	item := searchItem{Kind: res.Kind().String(), ID: res.ID()}

	var err error
	switch v := res.(type) {
	case *services.Artist:
		if item.Name, err = v.Name(ctx); err != nil {
			return item, err
		}
		var tags []string
		if tags, err = v.Genres(ctx); err != nil {
			return item, err
		}
		item.Detail = strings.Join(tags, ", ")
	case *services.Album:
		if item.Name, err = v.Name(ctx); err != nil {
			return item, err
		}
		item.Detail, err = v.AlbumType(ctx)
	case *services.Track:
		if item.Name, err = v.Name(ctx); err != nil {
			return item, err
		}
		var ids []string
		if ids, err = v.ArtistIDs(ctx); err != nil {
			return item, err
		}
		item.Detail = strings.Join(ids, ", ")
	}
	return item, err
}

// Genre resolves the given tags and explains each vote.
func (r *Runner) Genre(ctx context.Context, cmd *cli.Command) error {
	resolver := genres.NewResolver(nil)

	if cmd.Bool("list") {
		for _, name := range resolver.Names() {
			if err := r.writePlain("%s\n", name); err != nil {
				return err
			}
		}
		return nil
	}

	tags := cmd.Args().Slice()
	if len(tags) == 0 {
		return fmt.Errorf("%w: at least one genre tag", shared.ErrMissingArgument)
	}

	return r.writePlain("%s", ui.RenderGenreVotes(tags, resolver.Votes(tags), resolver.Resolve(tags)))
}

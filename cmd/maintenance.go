package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/docmigrate/internal/formatter"
	"github.com/desertthunder/docmigrate/internal/models"
	"github.com/desertthunder/docmigrate/internal/repositories"
	"github.com/desertthunder/docmigrate/internal/shared"
)

// PlaylistsReconcile retries playlist items that were skipped for a missing catalog entry.
func (r *Runner) PlaylistsReconcile(ctx context.Context, cmd *cli.Command) error {
	engine, release, err := r.engine(ctx, false)
	if err != nil {
		return err
	}
	defer release()

	result, err := engine.ReconcileSkipped(ctx, cmd.Bool("dry-run"), nil)
	if err != nil {
		return fmt.Errorf("reconcile skipped items: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlainHeader("Skipped item reconciliation")
	r.writePlain("Checked:       %d\n", result.Checked)
	r.writePlain("Saved:         %d\n", result.Saved)
	r.writePlain("Still missing: %d\n", result.StillMissing)
	r.writePlain("Orphaned:      %d\n", result.Orphaned)
	r.writePlain("Failed:        %d\n", result.Failed)
	return nil
}

type playlistView struct {
	ID        string                     `json:"id"`
	Name      string                     `json:"name"`
	Slug      string                     `json:"slug"`
	OwnerID   string                     `json:"owner_id"`
	UpdatedAt time.Time                  `json:"updated_at"`
	Items     []*models.CorePlaylistItem `json:"items"`
}

// PlaylistsShow prints the Core header of one playlist followed by its items in order.
func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrMissingArgument)
	}

	core, release, err := r.openCore()
	if err != nil {
		return err
	}
	defer release()

	found, err := repositories.NewPlaylistRepository(core, r.config.Core.QueryTimeout).Get(ctx, id)
	if err != nil {
		return err
	}
	playlist, ok := found.Get()
	if !ok {
		return fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	items, err := repositories.NewPlaylistItemRepository(core, r.config.Core.QueryTimeout).ListByPlaylist(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlistView{
			ID: playlist.ID, Name: playlist.Name, Slug: playlist.Slug, OwnerID: playlist.OwnerID,
			UpdatedAt: playlist.UpdatedAt, Items: items,
		}, true)
	}

	r.writePlainHeader(playlist.Name)
	r.writePlain("ID:    %s\n", playlist.ID)
	r.writePlain("Slug:  %s\n", playlist.Slug)
	r.writePlain("Owner: %s\n", playlist.OwnerID)
	r.writePlain("Items: %d\n\n", len(items))
	for _, item := range items {
		r.writePlain("%3d  %-8s %s\n", item.Order, item.LanguageID, item.MediaComponentID)
	}
	return nil
}

// Reset deletes the auth accounts of every cached user. It refuses to run without --yes.
func (r *Runner) Reset(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: reset deletes auth accounts, pass --yes to confirm", shared.ErrMissingArgument)
	}

	engine, release, err := r.engine(ctx, true)
	if err != nil {
		return err
	}
	defer release()

	result, err := engine.Reset(ctx, nil)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlainHeader("Auth account reset")
	r.writePlain("Cached emails: %d\n", result.Emails)
	r.writePlain("Resolved:      %d\n", result.Resolved)
	r.writePlain("Deleted:       %d\n", result.Deleted)
	r.writePlain("Failed:        %d\n", result.Failed)
	return nil
}

// Status prints recent runs with the mapping, skipped item and Core playlist counts.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	var category models.Category
	if name := cmd.String("category"); name != "" {
		c, err := models.ParseCategory(name)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		category = c
	}

	db, release, err := r.openLocal()
	if err != nil {
		return err
	}
	defer release()

	mappings, err := repositories.NewMappingRepository(db, 0).Count(ctx)
	if err != nil {
		return err
	}
	skipped, err := repositories.NewSkippedItemRepository(db, 0).Count(ctx)
	if err != nil {
		return err
	}
	runs, err := repositories.NewRunRepository(db, 0).List(ctx, category, cmd.Int("limit"))
	if err != nil {
		return err
	}

	r.writePlainHeader("docmigrate status")
	r.writePlain("Identity mappings: %d\n", mappings)
	r.writePlain("Skipped items:     %d\n", skipped)
	r.writePlain("Core playlists:    %s\n\n", r.corePlaylists(ctx))
	_, err = r.output.Write(formatter.RunsToText(runs))
	return err
}

// corePlaylists reports the Core playlist count, or "unavailable" when Core cannot be reached.
func (r *Runner) corePlaylists(ctx context.Context) string {
	core, release, err := r.openCore()
	if err != nil {
		r.logger.Warn("core database unavailable", "err", err)
		return "unavailable"
	}
	defer release()

	n, err := repositories.NewPlaylistRepository(core, r.config.Core.QueryTimeout).Count(ctx)
	if err != nil {
		r.logger.Warn("failed to count core playlists", "err", err)
		return "unavailable"
	}
	return strconv.Itoa(n)
}

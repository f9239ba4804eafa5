package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/docmigrate/internal/formatter"
	"github.com/desertthunder/docmigrate/internal/models"
	"github.com/desertthunder/docmigrate/internal/tasks"
	"github.com/desertthunder/docmigrate/internal/ui"
)

// IngestUsers resolves cached user documents into Core users and local mappings.
func (r *Runner) IngestUsers(ctx context.Context, cmd *cli.Command) error {
	return r.ingest(ctx, cmd, models.CategoryUsers)
}

// IngestPlaylists reconciles cached playlist documents into Core.
func (r *Runner) IngestPlaylists(ctx context.Context, cmd *cli.Command) error {
	return r.ingest(ctx, cmd, models.CategoryPlaylists)
}

func (r *Runner) ingest(ctx context.Context, cmd *cli.Command, category models.Category) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	opts := tasks.Options{
		DryRun:      cmd.Bool("dry-run"),
		Concurrency: r.config.Ingest.Concurrency,
		File:        cmd.String("file"),
	}
	if n := cmd.Int("concurrency"); n > 0 {
		opts.Concurrency = n
	}

	engine, release, err := r.engine(ctx, category == models.CategoryUsers)
	if err != nil {
		return err
	}
	defer release()

	r.logger.Info("starting ingestion", "category", category, "dry_run", opts.DryRun, "concurrency", opts.Concurrency)

	run := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*models.Summary, error) {
		return engine.Run(ctx, category, opts, progress)
	}

	var summary *models.Summary
	if cmd.Bool("progress") {
		summary, err = ui.Run(ctx, fmt.Sprintf("Ingesting %s", category), run)
	} else {
		summary, err = run(ctx, nil)
	}
	if err != nil {
		return fmt.Errorf("ingest %s: %w", category, err)
	}

	if err := formatter.Render(r.output, summary, format); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if cmd.Bool("manifest") {
		path, err := formatter.WriteManifest(summary, r.config.Cache.ErrorsDir)
		if err != nil {
			return err
		}
		r.logger.Info("manifest written", "path", path)
	}

	if summary.Errored > 0 {
		r.logger.Warn("some documents failed", "errored", summary.Errored, "artifacts", r.config.Cache.ErrorsDir)
	}
	return nil
}

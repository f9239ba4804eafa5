package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/docmigrate/internal/cache"
	"github.com/desertthunder/docmigrate/internal/errsink"
	"github.com/desertthunder/docmigrate/internal/models"
	"github.com/desertthunder/docmigrate/internal/repositories"
	"github.com/desertthunder/docmigrate/internal/services"
	"github.com/desertthunder/docmigrate/internal/shared"
	"github.com/desertthunder/docmigrate/internal/validate"
)

// DefaultConcurrency is the batch size used when none is configured.
const DefaultConcurrency = 10

// ErrUnitPanic wraps a panic recovered while processing one file.
var ErrUnitPanic = errors.New("panic while processing file")

// Stores groups the repositories of the local and Core databases.
type Stores struct {
	Mappings  *repositories.MappingRepository
	Runs      *repositories.RunRepository
	Skipped   *repositories.SkippedItemRepository
	Users     *repositories.UserRepository
	Playlists *repositories.PlaylistRepository
	Items     *repositories.PlaylistItemRepository
	Catalog   *repositories.CatalogRepository
}

// NewStores builds every repository. Local calls use localTimeout, Core calls coreTimeout.
func NewStores(local, core *sql.DB, localTimeout, coreTimeout time.Duration) *Stores {
	return &Stores{
		Mappings:  repositories.NewMappingRepository(local, localTimeout),
		Runs:      repositories.NewRunRepository(local, localTimeout),
		Skipped:   repositories.NewSkippedItemRepository(local, localTimeout),
		Users:     repositories.NewUserRepository(core, coreTimeout),
		Playlists: repositories.NewPlaylistRepository(core, coreTimeout),
		Items:     repositories.NewPlaylistItemRepository(core, coreTimeout),
		Catalog:   repositories.NewCatalogRepository(core, coreTimeout),
	}
}

// Deps are the collaborators of an [Engine]. Directories and Auth are only needed for user
// ingestion and reset.
type Deps struct {
	Cache        *cache.Store
	Sink         *errsink.Sink
	Validator    *validate.Validator
	Stores       *Stores
	Directories  *services.CredentialPool[services.Directory]
	Auth         services.IdentityProvider
	ProviderID   string
	SlugLength   int
	SlugAttempts int
	Logger       *log.Logger
}

// Options control one ingestion run.
type Options struct {
	DryRun      bool
	Concurrency int
	File        string // optional single cached file
}

// Engine runs ingestion, reset and reconcile operations over the cached documents.
type Engine struct {
	cache       *cache.Store
	sink        *errsink.Sink
	validator   *validate.Validator
	stores      *Stores
	directories *services.CredentialPool[services.Directory]
	auth        services.IdentityProvider
	identity    *IdentityEngine
	reconciler  *Reconciler
	logger      *log.Logger
}

// NewEngine creates an [Engine] from explicitly constructed dependencies.
func NewEngine(d Deps) *Engine {
	logger := d.Logger
	if logger == nil {
		logger = log.Default()
	}
	validator := d.Validator
	if validator == nil {
		validator = validate.New(nil)
	}
	return &Engine{
		cache:       d.Cache,
		sink:        d.Sink,
		validator:   validator,
		stores:      d.Stores,
		directories: d.Directories,
		auth:        d.Auth,
		identity:    NewIdentityEngine(d.Stores.Mappings, d.Auth, d.ProviderID, logger),
		reconciler:  NewReconciler(d.Stores, d.Sink, d.SlugLength, d.SlugAttempts, logger),
		logger:      logger,
	}
}

// unit is one cached file scheduled in a batch, with the directory client serving it.
type unit struct {
	path string
	dir  services.Directory
}

// Run ingests every cached file of category and returns the aggregate summary.
//
// Files are processed in batches of opts.Concurrency; all files of a batch run concurrently
// and the next batch starts once every outcome is in. Per-file failures are recorded in the
// error sink and never abort the run. A missing source directory is fatal.
func (e *Engine) Run(ctx context.Context, category models.Category, opts Options, progress chan<- ProgressUpdate) (*models.Summary, error) {
	if category != models.CategoryUsers && category != models.CategoryPlaylists {
		return nil, fmt.Errorf("%w: unknown category %q", shared.ErrInvalidArgument, category)
	}
	if category == models.CategoryUsers && (e.directories == nil || e.auth == nil) {
		return nil, fmt.Errorf("%w: user ingestion needs directory and auth clients", shared.ErrMissingCredentials)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	files, err := e.cache.ListFiles(category, opts.File)
	if err != nil {
		return nil, err
	}
	if e.sink != nil {
		if err := e.sink.Clear(category); err != nil {
			return nil, err
		}
	}

	summary := models.NewSummary(category, opts.DryRun)
	sendProgress(progress, listFilesUpdate(category, len(files)))
	if len(files) == 0 {
		e.logger.Info("no cached files", "category", category)
		return summary, nil
	}

	run := e.startRun(ctx, category, opts.DryRun)
	logger := shared.WithLogger(e.logger, "category", category, "dry_run", opts.DryRun)
	logger.Info("starting ingestion", "files", len(files), "concurrency", opts.Concurrency)

	batches := (len(files) + opts.Concurrency - 1) / opts.Concurrency
	done := 0
	for b := 0; b < batches; b++ {
		if err := ctx.Err(); err != nil {
			e.finishRun(run, summary, err)
			return summary, err
		}

		start := b * opts.Concurrency
		end := min(start+opts.Concurrency, len(files))
		sendProgress(progress, batchUpdate(done, len(files), b+1, batches))

		for _, o := range e.runBatch(ctx, category, e.schedule(category, files[start:end]), opts.DryRun) {
			done++
			if o.Kind == models.OutcomeError {
				e.record(category, o)
			}
			summary.Add(o)
			sendProgress(progress, outcomeUpdate(done, len(files), o))
		}
	}

	summary.Duration = time.Since(summary.StartedAt)
	e.finishRun(run, summary, nil)
	sendProgress(progress, finishedUpdate(len(files), fmt.Sprintf("%d processed, %d skipped, %d errored", summary.Processed, summary.Skipped, summary.Errored)))
	logger.Info("ingestion finished", "processed", summary.Processed, "skipped", summary.Skipped, "errored", summary.Errored, "duration", summary.Duration)
	return summary, nil
}

// schedule assigns a directory client to each file. User batches are split into contiguous
// partitions, partition i served by credential i.
func (e *Engine) schedule(category models.Category, files []string) []unit {
	units := make([]unit, 0, len(files))
	if category != models.CategoryUsers {
		for _, f := range files {
			units = append(units, unit{path: f})
		}
		return units
	}
	for i, part := range services.Partition(files, e.directories.Size()) {
		dir := e.directories.At(i)
		for _, f := range part {
			units = append(units, unit{path: f, dir: dir})
		}
	}
	return units
}

// runBatch processes units concurrently and returns their outcomes in input order.
func (e *Engine) runBatch(ctx context.Context, category models.Category, units []unit, dryRun bool) []models.Outcome {
	outcomes := make([]models.Outcome, len(units))
	var wg sync.WaitGroup
	for i, u := range units {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := cache.UnitID(u.path)
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = models.Failed(name, fmt.Errorf("%w: %v", ErrUnitPanic, r), nil)
				}
			}()
			outcomes[i] = e.process(ctx, category, u, dryRun)
		}()
	}
	wg.Wait()
	return outcomes
}

func (e *Engine) process(ctx context.Context, category models.Category, u unit, dryRun bool) models.Outcome {
	name := cache.UnitID(u.path)
	doc, err := e.cache.ReadJSON(u.path)
	if err != nil {
		return models.Failed(name, err, nil)
	}

	switch category {
	case models.CategoryUsers:
		return e.ingestUser(ctx, u.dir, name, doc, dryRun)
	default:
		return e.ingestPlaylist(ctx, name, doc, dryRun)
	}
}

func (e *Engine) ingestUser(ctx context.Context, dir services.Directory, name string, doc map[string]any, dryRun bool) models.Outcome {
	profile, err := e.validator.User(name, doc)
	switch {
	case errors.Is(err, validate.ErrSkipListed):
		return models.Skipped(name, models.SkipInvalid)
	case err != nil:
		return models.Failed(name, err, doc)
	}

	res, err := e.identity.Resolve(ctx, dir, name, profile, dryRun)
	if err != nil {
		return models.Failed(name, err, profile)
	}
	return e.reconciler.User(ctx, name, profile, res, dryRun)
}

func (e *Engine) ingestPlaylist(ctx context.Context, name string, doc map[string]any, dryRun bool) models.Outcome {
	playlist, err := e.validator.Playlist(name, doc)
	switch {
	case errors.Is(err, validate.ErrDeleted):
		return models.Skipped(name, models.SkipDeleted)
	case errors.Is(err, validate.ErrSkipListed):
		return models.Skipped(name, models.SkipInvalid)
	case err != nil:
		return models.Failed(name, err, doc)
	}
	return e.reconciler.Playlist(ctx, name, playlist, dryRun)
}

func (e *Engine) record(category models.Category, o models.Outcome) {
	e.logger.Warn("file failed", "category", category, "file", o.File, "err", o.Err)
	if e.sink == nil {
		return
	}
	if err := e.sink.Record(category, o.File, o.Err, o.Payload); err != nil {
		e.logger.Error("failed to write error artifact", "file", o.File, "err", err)
	}
}

// startRun records the run in the local store. History is best effort.
func (e *Engine) startRun(ctx context.Context, category models.Category, dryRun bool) *models.IngestRun {
	if e.stores.Runs == nil {
		return nil
	}
	run, err := e.stores.Runs.Start(ctx, category, dryRun)
	if err != nil {
		e.logger.Warn("failed to record run start", "err", err)
		return nil
	}
	return run
}

func (e *Engine) finishRun(run *models.IngestRun, summary *models.Summary, cause error) {
	if run == nil {
		return
	}
	run.Processed, run.Skipped, run.Errored = summary.Processed, summary.Skipped, summary.Errored
	run.Status = models.RunCompleted
	if cause != nil {
		run.Status = models.RunFailed
		run.Error = cause.Error()
	}
	if err := e.stores.Runs.Finish(context.Background(), run); err != nil {
		e.logger.Warn("failed to record run end", "run", run.ID, "err", err)
	}
}

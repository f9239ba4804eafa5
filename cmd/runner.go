package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/docmigrate/internal/cache"
	"github.com/desertthunder/docmigrate/internal/errsink"
	"github.com/desertthunder/docmigrate/internal/services"
	"github.com/desertthunder/docmigrate/internal/shared"
	"github.com/desertthunder/docmigrate/internal/tasks"
	"github.com/desertthunder/docmigrate/internal/validate"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Databases and upstream clients passed through [RunnerOpts] are used as-is and never closed;
// anything else is built from the loaded config when a command needs it.
type Runner struct {
	config      *shared.Config
	configPath  string
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	local       *sql.DB
	core        *sql.DB
	directories *services.CredentialPool[services.Directory]
	auth        services.IdentityProvider
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	Local       *sql.DB
	Core        *sql.DB
	Directories *services.CredentialPool[services.Directory]
	Auth        services.IdentityProvider
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		local:       opts.Local,
		core:        opts.Core,
		directories: opts.Directories,
		auth:        opts.Auth,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, extractCommand, ingestCommand, playlistsCommand, resetCommand, statusCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configure loads the config named by --config before any command runs.
//
// A missing file keeps the current config.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if path != "" {
		r.configPath = path
	}

	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}

	shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.Logging.Level))
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// openLocal returns the local mapping database with its schema applied.
func (r *Runner) openLocal() (*sql.DB, func(), error) {
	if r.local != nil {
		return r.local, func() {}, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, func() { db.Close() }, nil
}

// openCore returns the Core database. Its schema is owned elsewhere and is not migrated here.
func (r *Runner) openCore() (*sql.DB, func(), error) {
	if r.core != nil {
		return r.core, func() {}, nil
	}

	db, err := shared.NewCoreDatabase(r.config.Core)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open core database: %w", err)
	}
	return db, func() { db.Close() }, nil
}

// identity builds the directory pool and auth provider, reusing injected ones.
func (r *Runner) identity(ctx context.Context) (*services.CredentialPool[services.Directory], services.IdentityProvider, error) {
	directories := r.directories
	if directories == nil {
		pool, err := services.NewDirectoryPool(r.config.Directory, shared.WithLogger(r.logger, "service", "directory"))
		if err != nil {
			return nil, nil, err
		}
		directories = pool
	}

	auth := r.auth
	if auth == nil {
		provider, err := services.NewAuthProvider(ctx, r.config.Auth, shared.WithLogger(r.logger, "service", "auth"))
		if err != nil {
			return nil, nil, err
		}
		auth = provider
	}
	return directories, auth, nil
}

// engine wires an ingestion engine from the config. Directory and auth clients are only
// built when withIdentity is set. The returned func releases everything opened here.
func (r *Runner) engine(ctx context.Context, withIdentity bool) (*tasks.Engine, func(), error) {
	if err := r.config.Validate(); err != nil {
		return nil, nil, err
	}

	local, closeLocal, err := r.openLocal()
	if err != nil {
		return nil, nil, err
	}
	core, closeCore, err := r.openCore()
	if err != nil {
		closeLocal()
		return nil, nil, err
	}
	release := func() {
		closeCore()
		closeLocal()
	}

	deps := tasks.Deps{
		Cache:        cache.NewStore(r.config.Cache.Dir),
		Sink:         errsink.New(r.config.Cache.ErrorsDir, shared.WithLogger(r.logger, "component", "errsink")),
		Validator:    validate.New(r.config.SkipSet()),
		Stores:       tasks.NewStores(local, core, 0, r.config.Core.QueryTimeout),
		ProviderID:   r.config.Auth.ProviderID,
		SlugLength:   r.config.Ingest.SlugLength,
		SlugAttempts: r.config.Ingest.SlugAttempts,
		Logger:       r.logger,
	}

	if withIdentity {
		directories, auth, err := r.identity(ctx)
		if err != nil {
			release()
			return nil, nil, err
		}
		deps.Directories = directories
		deps.Auth = auth
	}

	return tasks.NewEngine(deps), release, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

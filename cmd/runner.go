package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/repositories"
	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Dependencies not given in [RunnerOpts] are built on first use from the configuration file named
// by the --config flag.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    *services.SpotifyService
	db         *sql.DB
	ownsDB     bool
	migrated   bool
	retry      *tasks.RetryPolicy
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    *services.SpotifyService
	// DB is used as is; migrations are expected to be applied.
	DB         *sql.DB
	Retry      *tasks.RetryPolicy
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		db:         opts.DB,
		migrated:   opts.DB != nil,
		retry:      opts.Retry,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// app builds the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "crate",
		Usage:   "Import artists, albums and tracks from a music catalog into a local database",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, importCommand, searchCommand, genreCommand, catalogCommand, processCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Close releases the database when the runner opened it.
func (r *Runner) Close() {
	if r.db != nil && r.ownsDB {
		r.db.Close()
		r.db, r.migrated = nil, false
	}
}

// settings loads the configuration once. A missing file falls back to the embedded defaults.
func (r *Runner) settings(cmd *cli.Command) (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}

	path := r.configPath
	if path == "" {
		path = cmd.String("config")
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			return nil, err
		}
		r.logger.Debug("loaded config", "path", path)
	} else {
		r.logger.Debug("config file not found, using defaults", "path", path)
	}

	level, err := shared.ParseLogLevel(config.Log.Level)
	if err != nil {
		return nil, err
	}
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)

	r.config, r.configPath = config, path
	return config, nil
}

// service returns the remote catalog client.
func (r *Runner) service(cmd *cli.Command) (*services.SpotifyService, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	config, err := r.settings(cmd)
	if err != nil {
		return nil, err
	}

	creds := config.Credentials.Spotify
	svc, err := services.NewSpotifyService(services.SpotifyOpts{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     creds.TokenURL,
		BaseURL:      config.Catalog.BaseURL,
		Market:       config.Catalog.Market,
		RateLimit:    config.Catalog.RateLimit,
		Timeout:      config.Catalog.Timeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	r.catalog = svc
	return svc, nil
}

// database opens the configured database and applies pending migrations.
func (r *Runner) database(cmd *cli.Command) (*sql.DB, error) {
	return r.openDatabase(cmd, true)
}

func (r *Runner) openDatabase(cmd *cli.Command, migrate bool) (*sql.DB, error) {
	if r.db == nil {
		config, err := r.settings(cmd)
		if err != nil {
			return nil, err
		}

		db, err := shared.NewDatabase(config.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if config.Database.Path != ":memory:" {
			shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
		}
		r.db, r.ownsDB = db, true
	}

	if migrate && !r.migrated {
		applied, err := shared.RunMigrations(r.db)
		if err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		if applied > 0 {
			r.logger.Info("applied migrations", "count", applied)
		}
		r.migrated = true
	}

	return r.db, nil
}

func (r *Runner) store(cmd *cli.Command) (*repositories.CatalogStore, error) {
	db, err := r.database(cmd)
	if err != nil {
		return nil, err
	}
	return repositories.NewCatalogStore(db), nil
}

// retryPolicy builds the whole-run retry policy from the [import] section.
func (r *Runner) retryPolicy(config *shared.Config) tasks.RetryPolicy {
	if r.retry != nil {
		return *r.retry
	}
	policy := tasks.DefaultRetryPolicy()
	policy.MaxRetries = config.Import.MaxRetries
	policy.HydrationBackoff = config.Import.HydrationBackoff()
	policy.ConnectionBackoff = config.Import.ConnectionBackoff()
	return policy
}

func (r *Runner) importer(cmd *cli.Command, store tasks.Store) (*tasks.Importer, error) {
	config, err := r.settings(cmd)
	if err != nil {
		return nil, err
	}
	svc, err := r.service(cmd)
	if err != nil {
		return nil, err
	}

	policy := r.retryPolicy(config)
	return tasks.NewImporter(svc, store, tasks.ImporterOpts{Retry: &policy, Logger: r.logger}), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Clients and the database are created on first use, so commands that need none of them run without credentials.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db        *sql.DB
	catalog   services.Catalog
	completer services.Completer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer

	// Optional pre-built dependencies; tests inject in-memory and mock versions.
	DB        *sql.DB
	Catalog   services.Catalog
	Completer services.Completer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
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
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
		catalog:    opts.Catalog,
		completer:  opts.Completer,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, rollbackCommand, serveCommand, analyzeCommand, searchCommand,
		userCommand, queueCommand, expandCommand, tokensCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configure returns the runner's config, loading it from the command's --config flag on first use.
//
// Environment variables are applied on top of the file, and a missing file falls back to defaults.
func (r *Runner) configure(cmd *cli.Command) *shared.Config {
	if r.config != nil {
		return r.config
	}

	path := cmd.String("config")
	if path == "" {
		path = r.configPath
	}

	config := shared.DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := shared.LoadConfig(path)
			if err != nil {
				r.logger.Warn("failed to load config, using defaults", "path", path, "error", err)
			} else {
				config = loaded
			}
		}
	}
	config.ApplyEnv()

	r.config = config
	r.configPath = path
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(config.Log.Level))
	return config
}

// database opens the configured database and brings its schema up to date.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	config := r.config
	if config == nil {
		config = shared.DefaultConfig()
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	applied, err := shared.RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if len(applied) > 0 {
		r.logger.Info("applied migrations", "versions", applied)
	}

	r.db = db
	return db, nil
}

func (r *Runner) catalogClient() (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	opts := services.CatalogOptionsFromConfig(r.config, r.logger)
	opts.HTTPClient = r.httpClient

	client, err := services.NewCatalogClient(opts)
	if err != nil {
		return nil, err
	}

	r.catalog = client
	return client, nil
}

func (r *Runner) completerClient() (services.Completer, error) {
	if r.completer != nil {
		return r.completer, nil
	}

	client, err := services.NewOpenAICompleterFromConfig(r.config, r.logger)
	if err != nil {
		return nil, err
	}

	r.completer = client
	return client, nil
}

func (r *Runner) expander(queue tasks.QueueStore) (*tasks.PlaylistExpander, error) {
	catalog, err := r.catalogClient()
	if err != nil {
		return nil, err
	}
	completer, err := r.completerClient()
	if err != nil {
		return nil, err
	}

	m := r.config.Matching
	return tasks.NewPlaylistExpander(catalog, completer, queue,
		tasks.WithMatcher(tasks.NewTrackMatcher(m.Threshold)),
		tasks.WithMinSeedSongs(m.MinSeedSongs),
		tasks.WithRecommendationCount(m.RecommendationCount),
		tasks.WithLogger(r.logger),
	), nil
}

// lookupUser resolves a username to its stored user.
func (r *Runner) lookupUser(db *sql.DB, username string) (*models.User, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: --user", shared.ErrMissingArgument)
	}
	return repositories.NewUserRepository(db).GetByUsername(username)
}

// Close releases the database handle if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
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

func (r *Runner) writeLine(s string) error {
	return r.writePlain("%s\n", s)
}

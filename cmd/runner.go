package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crate/internal/auth"
	"github.com/desertthunder/crate/internal/repositories"
	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/store"
	"github.com/desertthunder/crate/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, credential store, auth manager and Spotify client are built on
// first use by [Runner.connect] unless supplied through [RunnerOpts].
type Runner struct {
	config     *shared.Config
	configPath string
	db         *sql.DB
	auth       *auth.Manager
	spotify    *services.SpotifyService
	tracks     *repositories.TrackRepository
	engine     *tasks.PlaylistEngine
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	palette    *Palette
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	DB         *sql.DB
	Auth       *auth.Manager
	Spotify    *services.SpotifyService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Palette    *Palette
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
		opts.HTTPClient = &http.Client{Timeout: opts.Config.API.Timeout()}
	}
	if opts.Palette == nil {
		opts.Palette = DefaultPalette()
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		db:         opts.DB,
		auth:       opts.Auth,
		spotify:    opts.Spotify,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		palette:    opts.Palette,
	}
	r.wireEngine()
	return r
}

// wireEngine builds the task engine and track cache from whatever is connected.
func (r *Runner) wireEngine() {
	if r.db != nil && r.tracks == nil {
		r.tracks = repositories.NewTrackRepository(r.db)
	}
	if r.spotify == nil {
		return
	}

	var cache tasks.TrackCacher
	if r.tracks != nil {
		cache = repositories.NewTrackCacheAdapter(r.tracks)
	}
	r.engine = tasks.NewPlaylistEngine(r.spotify, cache, r.logger)
}

// connect opens the database, credential store, auth manager and Spotify
// client. It is a no-op once they exist.
func (r *Runner) connect() error {
	if r.auth != nil && r.spotify != nil {
		return nil
	}

	if err := r.config.Validate(); err != nil {
		return fmt.Errorf("%w (edit %s or run `crate setup config`)", err, r.configPath)
	}

	if r.db == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		r.db = db
	}

	if r.auth == nil {
		st, err := store.Open(r.config.Storage, r.db, r.logger)
		if err != nil {
			return err
		}
		if !st.Available() {
			r.logger.Warn("credential storage disabled; logins will not persist", "backend", r.config.Storage.Backend)
		}

		opts := auth.OptionsFromConfig(r.config)
		opts.Logger = r.logger
		r.auth = auth.NewManager(st, opts)
	}

	if r.spotify == nil {
		execOpts := services.ExecutorOptionsFromConfig(r.config.API)
		execOpts.Logger = r.logger
		ex := services.NewExecutor(r.config.API.BaseURL, r.httpClient, r.auth, execOpts)
		r.spotify = services.NewSpotifyService(ex, "", r.logger)
	}

	r.wireEngine()
	return nil
}

// Close releases the database handle.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, libraryCommand, browseCommand, exportCommand, cacheCommand, apiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// output flags shared by read commands
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
		&cli.StringFlag{
			Name:  "jq",
			Usage: "Filter JSON output with a jq expression (implies --json)",
		},
	}
}

// wantsJSON reports whether the command asked for JSON output.
func wantsJSON(cmd *cli.Command) bool {
	return cmd.Bool("json") || cmd.String("jq") != ""
}

// emit writes data as JSON (honouring --pretty and --jq) when requested and
// otherwise calls plain.
func (r *Runner) emit(ctx context.Context, cmd *cli.Command, data any, plain func() error) error {
	if !wantsJSON(cmd) {
		return plain()
	}
	if expr := cmd.String("jq"); expr != "" {
		return r.writeJQ(ctx, data, expr, cmd.Bool("pretty"))
	}
	return r.writeJSON(data, cmd.Bool("pretty"))
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

// writeJQ runs expr over data and writes each result on its own line. Strings
// are written without quotes.
func (r *Runner) writeJQ(ctx context.Context, data any, expr string, pretty bool) error {
	query, err := gojq.Parse(expr)
	if err != nil {
		return fmt.Errorf("%w: jq: %v", shared.ErrInvalidFlag, err)
	}

	// gojq only accepts the generic types produced by encoding/json
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}

	iter := query.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, ok := v.(error); ok {
			if halt, ok := err.(*gojq.HaltError); ok && halt.Value() == nil {
				return nil
			}
			return fmt.Errorf("jq: %w", err)
		}
		if s, ok := v.(string); ok {
			if err := r.writePlain("%s\n", s); err != nil {
				return err
			}
			continue
		}
		if err := r.writeJSON(v, pretty); err != nil {
			return err
		}
	}
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", r.palette.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}

package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"weeklymix/internal/artwork"
	"weeklymix/internal/discovery"
	"weeklymix/internal/recommend"
	"weeklymix/internal/services"
	"weeklymix/internal/shared"
	"weeklymix/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	music  services.MusicService
	ai     services.AIService
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Music  services.MusicService
	AI     services.AIService
	Logger *log.Logger
	Output io.Writer
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

	return &Runner{
		config: opts.Config,
		music:  opts.Music,
		ai:     opts.AI,
		logger: opts.Logger,
		output: opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, generateCommand, previewCommand, historyCommand, exportCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger swaps the runner's logger, e.g. to a file logger while a TUI owns
// the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// openDatabase opens the configured SQLite database and applies migrations.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// engineOpts tunes a single pipeline run.
type engineOpts struct {
	withArtwork bool
	seed        int64   // 0 seeds the anchor shuffle from the clock
	temperature float64 // 0 keeps the recommender default
}

// buildEngine wires the full pipeline. The AI-dependent pieces are omitted
// when no AI service is configured, and artwork when opts.withArtwork is
// false.
func (r *Runner) buildEngine(store tasks.RunStore, opts engineOpts) (*tasks.MixEngine, error) {
	if r.music == nil {
		return nil, fmt.Errorf("%w: Spotify credentials not configured", shared.ErrServiceUnavailable)
	}

	var recommender discovery.QueryRecommender
	var describer tasks.Describer
	var covers tasks.CoverGenerator

	if r.ai != nil {
		rec := recommend.NewRecommender(r.ai, r.config.Prompts, r.logger)
		recommender = rec
		describer = rec
		if opts.withArtwork {
			covers = artwork.NewGenerator(r.ai, r.config.Prompts, nil, r.logger)
		}
	} else {
		r.logger.Warn("no AI service configured, mix will rely on anchors and fallback searches")
	}

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	mixer := discovery.NewMixer(recommender, r.music, rng, r.logger)

	engine := tasks.NewMixEngine(r.music, mixer, describer, covers, store, r.config, r.logger)
	engine.SetTemperature(opts.temperature)
	return engine, nil
}

// drainProgress logs progress updates until the channel closes.
func (r *Runner) drainProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	for update := range progress {
		r.logger.Info(update.Message, "phase", update.Phase.String())
	}
	close(done)
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

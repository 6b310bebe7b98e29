package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/haukened/phishscreen/internal/screen/common/clock"
	"github.com/haukened/phishscreen/internal/screen/common/log"
	"github.com/haukened/phishscreen/internal/screen/config"
	"github.com/haukened/phishscreen/internal/screen/gateways/classifier"
	"github.com/haukened/phishscreen/internal/screen/gateways/transport"
	"github.com/haukened/phishscreen/internal/screen/normalize"
	"github.com/haukened/phishscreen/internal/screen/repos/membership"
	"github.com/haukened/phishscreen/internal/screen/repos/membership/bloom"
	"github.com/haukened/phishscreen/internal/screen/repos/membership/bolt"
	"github.com/haukened/phishscreen/internal/screen/repos/membership/corpus"
	"github.com/haukened/phishscreen/internal/screen/services/screener"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "phishscreend"

	defaultEnvFile         = ".env"
	defaultShutdownTimeout = 10 * time.Second
)

// Application holds all the components of the screening server
type Application struct {
	config    *config.AppConfig
	repo      *membership.Repository
	screener  *screener.Screener
	transport transport.ServerTransport
	closers   []io.Closer
}

// cliOptions holds the parsed command line.
type cliOptions struct {
	envFile     string
	envFileSet  bool
	showVersion bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(2)
	}
	if opts.showVersion {
		fmt.Printf("%s %s\n", appName, version)
		return
	}

	if err := loadEnvFile(opts.envFile, opts.envFileSet); err != nil {
		fmt.Fprintf(os.Stderr, "Environment file error: %v\n", err)
		os.Exit(1)
	}

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Configure global logging
	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":    version,
		"env":        cfg.Env,
		"log_level":  cfg.LogLevel,
		"port":       cfg.Port,
		"corpus":     cfg.Corpus,
		"corpus_db":  cfg.CorpusDB,
		"capacity":   cfg.Capacity,
		"error_rate": cfg.ErrorRate,
		"classifier": cfg.Classifier,
	}, "Starting phishscreen server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Build application with all dependencies; the corpus is loaded here so
	// the listener never serves before a filter exists.
	app, err := buildApplication(ctx, cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}
	defer app.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	reload := make(chan struct{}, 1)

	go func() {
		for sig := range sigChan {
			if sig == syscall.SIGHUP {
				select {
				case reload <- struct{}{}:
				default:
				}
				continue
			}
			log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
			cancel()
			return
		}
	}()

	if err := app.Run(ctx, reload); err != nil {
		log.Fatal(map[string]any{"error": err}, "Server failed")
	}

	log.Info(nil, "phishscreen server stopped gracefully")
}

func parseFlags(args []string) (cliOptions, error) {
	var opts cliOptions
	flags := flag.NewFlagSet(appName, flag.ContinueOnError)
	flags.StringVarP(&opts.envFile, "env-file", "e", defaultEnvFile, "file of KEY=value pairs loaded before reading the environment")
	flags.BoolVarP(&opts.showVersion, "version", "v", false, "print version and exit")
	if err := flags.Parse(args); err != nil {
		return opts, err
	}
	if flags.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", flags.Args())
	}
	opts.envFileSet = flags.Changed("env-file")
	return opts, nil
}

// loadEnvFile populates unset environment variables from path. A missing
// default file is not an error; a missing file named on the command line is.
func loadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err != nil && !required && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// buildApplication constructs all components, loads the corpus, and wires
// them together
func buildApplication(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	clk := &clock.RealClock{}
	logger := log.GetLogger()

	repo, closers, err := buildRepositories(ctx, cfg, clk, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build repositories: %w", err)
	}
	app := &Application{config: cfg, repo: repo, closers: closers}

	gw, err := buildGateways(ctx, cfg, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to build gateways: %w", err)
	}

	app.screener = screener.NewScreener(screener.ScreenerOptions{
		AllowList:  normalize.AllowList(cfg.AllowList),
		Classifier: gw.classifier,
		Logger:     logger,
		Repository: repo,
	})

	app.transport, err = transport.NewTransport(transport.TransportHTTP, transport.Options{
		Addr:           cfg.ListenAddr(),
		RequestTimeout: cfg.ClassifierTimeout,
		Logger:         logger,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to build transport: %w", err)
	}
	return app, nil
}

// buildRepositories opens the corpus sources and performs the initial load.
// The returned closers release any database handles.
func buildRepositories(ctx context.Context, cfg *config.AppConfig, clk clock.Clock, logger log.Logger) (*membership.Repository, []io.Closer, error) {
	sources := make([]membership.CorpusSource, 0, len(cfg.Corpus)+1)
	for _, path := range cfg.Corpus {
		sources = append(sources, corpus.NewFileSource(path, logger))
	}

	var closers []io.Closer
	if cfg.CorpusDB != "" {
		store, err := bolt.OpenReadOnly(cfg.CorpusDB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open corpus database: %w", err)
		}
		closers = append(closers, store)
		sources = append(sources, store)
		stats := store.Stats()
		log.Info(map[string]any{
			"path":    cfg.CorpusDB,
			"entries": stats.Count,
			"version": stats.Version,
		}, "Corpus database opened")
	}

	repo, err := membership.NewRepository(membership.RepositoryOptions{
		Sources:   sources,
		Factory:   bloom.NewFactory(),
		Capacity:  cfg.Capacity,
		ErrorRate: cfg.ErrorRate,
		Logger:    logger,
		Clock:     clk,
	})
	if err != nil {
		closeAll(closers)
		return nil, nil, fmt.Errorf("failed to create membership repository: %w", err)
	}

	if err := repo.Load(ctx); err != nil {
		closeAll(closers)
		return nil, nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	return repo, closers, nil
}

// gateways holds all gateway implementations
type gateways struct {
	classifier screener.Classifier
}

// buildGateways creates the email classifier chain selected in cfg. With
// classification disabled the classifier is nil.
func buildGateways(ctx context.Context, cfg *config.AppConfig, logger log.Logger) (*gateways, error) {
	var backend classifier.Classifier
	switch cfg.Classifier {
	case "none", "":
		log.Info(map[string]any{"disabled": true}, "Email classification disabled")
		return &gateways{}, nil
	case "openai":
		backend = classifier.NewOpenAI(classifier.OpenAIOptions{
			Client: classifier.NewOpenAIClient(cfg.OpenAIKey),
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
	case "gemini":
		client, err := classifier.NewGeminiClient(ctx, cfg.GeminiKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		backend = classifier.NewGemini(classifier.GeminiOptions{
			Models: client.Models,
			Model:  cfg.GeminiModel,
			Logger: logger,
		})
	default:
		return nil, fmt.Errorf("unsupported classifier: %s", cfg.Classifier)
	}

	guarded := classifier.NewGuarded(classifier.GuardedOptions{
		Next:    backend,
		RPS:     cfg.ClassifierRPS,
		Timeout: cfg.ClassifierTimeout,
		Logger:  logger,
	})
	cached, err := classifier.NewCached(guarded, cfg.ClassifierCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create classification cache: %w", err)
	}

	log.Info(map[string]any{
		"backend":    cfg.Classifier,
		"rps":        cfg.ClassifierRPS,
		"timeout":    cfg.ClassifierTimeout,
		"cache_size": cfg.ClassifierCacheSize,
	}, "Email classifier configured")

	return &gateways{classifier: cached}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled. Each value
// received on reload rebuilds the filter from the configured sources; a
// failed reload keeps serving the previous filter.
func (app *Application) Run(ctx context.Context, reload <-chan struct{}) error {
	if err := app.transport.Start(ctx, app.screener); err != nil {
		return fmt.Errorf("failed to start HTTP transport: %w", err)
	}

	log.Info(map[string]any{
		"address":   app.transport.Address(),
		"transport": transport.TransportHTTP,
	}, "phishscreen server started")

wait:
	for {
		select {
		case <-reload:
			if err := app.repo.Reload(ctx); err != nil {
				log.Error(map[string]any{"error": err}, "Corpus reload failed; keeping previous filter")
			}
		case <-ctx.Done():
			break wait
		}
	}

	log.Info(nil, "Shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- app.transport.Stop()
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Warn(map[string]any{"error": err}, "Error during transport shutdown")
		}
		log.Info(nil, "Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		log.Warn(map[string]any{"timeout": defaultShutdownTimeout}, "Shutdown timeout exceeded")
		return fmt.Errorf("shutdown timeout")
	}
}

// Close releases database handles held by the application.
func (app *Application) Close() {
	closeAll(app.closers)
	app.closers = nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Warn(map[string]any{"error": err}, "Error closing resource")
		}
	}
}

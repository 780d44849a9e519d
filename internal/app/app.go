package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"straddle-stream/internal/config"
	"straddle-stream/internal/provider"
	"straddle-stream/internal/sampler"
	"straddle-stream/internal/server"
	"straddle-stream/internal/storage"
	"straddle-stream/internal/stream"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newProvider() *provider.Client {
	return provider.NewClient(provider.Options{
		BaseURL:     a.Config.Provider.BaseURL,
		ClientID:    a.Config.Provider.ClientID,
		AccessToken: a.Config.Provider.AccessToken,
		Timeout:     a.Config.Provider.RequestTimeout,
		UserAgent:   a.Config.Provider.UserAgent,
	}, a.Logger)
}

func (a *App) newSampler(quotes provider.QuoteProvider) *sampler.Sampler {
	return sampler.New(quotes, sampler.Options{
		MaxAttempts:    a.Config.Stream.MaxAttempts,
		InitialBackoff: a.Config.Stream.InitialBackoff,
	}, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run starts the streaming server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; samples will not be archived")
	}
	if closeStore != nil {
		defer closeStore()
	}

	specs, err := a.Config.IndexSpecs()
	if err != nil {
		return err
	}

	var sampleStore storage.SampleStore
	if store != nil {
		sampleStore = store
	}

	smp := a.newSampler(a.newProvider())
	broadcaster := stream.New(smp, sampleStore, specs, stream.Options{
		Interval:    a.Config.Stream.Interval,
		HistorySize: a.Config.Stream.HistorySize,
	}, a.Logger)

	srv := server.New(a.Config.Server, broadcaster, sampleStore, a.Logger)

	a.Logger.Info().Int("indices", len(specs)).Msg("starting straddle stream")
	err = srv.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("server terminated with error")
		return err
	}

	a.Logger.Info().Msg("straddle stream stopped")
	return nil
}

// ExportOptions hold parameters for exporting historical samples.
type ExportOptions struct {
	From    *time.Time
	To      *time.Time
	PNGPath string
	CSVPath string
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

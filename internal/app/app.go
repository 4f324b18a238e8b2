// Package app assembles the configured application: repositories,
// provider gateway, services, HTTP surface and background loops.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sourcegraph/conc"

	"github.com/draftball/draft-league/external/apifootball"
	"github.com/draftball/draft-league/internal/config"
	"github.com/draftball/draft-league/internal/domain/fixture"
	"github.com/draftball/draft-league/internal/domain/league"
	"github.com/draftball/draft-league/internal/domain/matchstat"
	"github.com/draftball/draft-league/internal/domain/pool"
	"github.com/draftball/draft-league/internal/domain/rawdata"
	"github.com/draftball/draft-league/internal/infrastructure/repository/memory"
	"github.com/draftball/draft-league/internal/infrastructure/repository/postgres"
	"github.com/draftball/draft-league/internal/interfaces/httpapi"
	"github.com/draftball/draft-league/internal/observability"
	"github.com/draftball/draft-league/internal/platform/cache"
	"github.com/draftball/draft-league/internal/platform/logging"
	"github.com/draftball/draft-league/internal/platform/resilience"
	"github.com/draftball/draft-league/internal/usecase"
)

type repositories struct {
	leagues    league.Repository
	fixtures   fixture.Repository
	matchStats matchstat.Repository
	pool       pool.Repository
	raw        rawdata.Repository
}

type Application struct {
	cfg         config.Config
	logger      *logging.Logger
	httpServer  *http.Server
	pprofServer *http.Server
	pollService *usecase.PollService
	db          *sqlx.DB
}

func New(cfg config.Config, logger *logging.Logger) (*Application, error) {
	if logger == nil {
		logger = logging.Default()
	}

	app := &Application{cfg: cfg, logger: logger}

	repos, err := app.buildRepositories()
	if err != nil {
		return nil, err
	}

	var provider usecase.LiveDataProvider
	if cfg.APIFootballEnabled {
		client := apifootball.NewClient(apifootball.ClientConfig{
			BaseURL:       cfg.APIFootballBaseURL,
			APIKey:        cfg.APIFootballKey,
			Timeout:       cfg.APIFootballTimeout,
			MinInterval:   cfg.APIFootballMinInterval,
			SquadCacheTTL: cfg.SquadCacheTTL,
			Logger:        logger,
			Cache:         cache.NewStore(),
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.CircuitEnabled,
				FailureThreshold: cfg.CircuitFailureThreshold,
				OpenTimeout:      cfg.CircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.CircuitHalfOpenMaxReq,
			},
		})
		provider = client
	} else {
		logger.Info("api-football disabled", "reason", "API_FOOTBALL_ENABLED=false")
	}

	scoring := usecase.NewScoringService(repos.matchStats, repos.pool, logger)
	leagueService := usecase.NewLeagueService(repos.leagues, repos.fixtures, repos.pool)

	var pollService *usecase.PollService
	var rosterService *usecase.RosterService
	if provider != nil {
		pollService = usecase.NewPollService(provider, repos.leagues, repos.fixtures, repos.matchStats, repos.raw, scoring, logger, usecase.PollConfig{
			Interval:   cfg.PollInterval,
			MaxWorkers: cfg.PollMaxWorkers,
		})
		rosterService = usecase.NewRosterService(provider, repos.leagues, repos.fixtures, repos.pool, logger)
	}
	app.pollService = pollService

	handler := httpapi.NewHandler(leagueService, rosterService, pollService, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}
	app.httpServer = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	pprofServer, err := observability.StartPprofServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("start pprof server: %w", err)
	}
	app.pprofServer = pprofServer

	return app, nil
}

func (a *Application) buildRepositories() (repositories, error) {
	if a.cfg.DatabaseURL == "" {
		a.logger.Info("repositories backend", "backend", "memory", "reason", "DATABASE_URL empty")
		return repositories{
			leagues:    memory.NewLeagueRepository(),
			fixtures:   memory.NewFixtureRepository(),
			matchStats: memory.NewMatchStatRepository(),
			pool:       memory.NewPoolRepository(),
			raw:        memory.NewRawDataRepository(),
		}, nil
	}

	db, err := openDB(a.cfg.DatabaseURL)
	if err != nil {
		return repositories{}, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	a.logger.Info("repositories backend", "backend", "postgres", "database", dbNameFromURL(a.cfg.DatabaseURL))

	return repositories{
		leagues:    postgres.NewLeagueRepository(db),
		fixtures:   postgres.NewFixtureRepository(db),
		matchStats: postgres.NewMatchStatRepository(db),
		pool:       postgres.NewPoolRepository(db),
		raw:        postgres.NewRawDataRepository(db),
	}, nil
}

// Run serves HTTP and, when enabled, the poll loop until ctx is done,
// then shuts both down. A failure in either loop cancels the other so
// Run always returns.
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	var wg conc.WaitGroup
	wg.Go(func() {
		a.logger.Info("http server starting", "addr", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	})

	if a.cfg.PollEnabled && a.pollService != nil {
		wg.Go(func() {
			a.logger.Info("fixture poller starting", "interval", a.cfg.PollInterval.String())
			if err := a.pollService.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("fixture poller: %w", err)
			}
		})
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("http shutdown: %w", err)
	}
	if err := observability.StopPprofServer(a.pprofServer, a.logger, 5*time.Second); err != nil && runErr == nil {
		runErr = fmt.Errorf("pprof shutdown: %w", err)
	}

	wg.Wait()
	return runErr
}

func (a *Application) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

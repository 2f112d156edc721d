// Package app wires configuration, storage, sessions, the realtime hub and
// the HTTP API into a runnable service.
package app

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"autoflow/workshop-service/internal/auth"
	"autoflow/workshop-service/internal/config"
	"autoflow/workshop-service/internal/httpapi"
	"autoflow/workshop-service/internal/hub"
	"autoflow/workshop-service/internal/seed"
	"autoflow/workshop-service/internal/store"
	"autoflow/workshop-service/internal/store/filestore"
	"autoflow/workshop-service/internal/store/memory"
	"autoflow/workshop-service/internal/store/postgres"
	"autoflow/workshop-service/internal/store/sqlite"
)

const sessionPruneInterval = 5 * time.Minute

type App struct {
	Config   config.Config
	Store    store.Store
	Sessions *auth.Sessions
	Auth     *auth.Service
	Hub      *hub.Hub
	Handler  http.Handler
}

// OpenStore opens the backend named by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.StoreConfig, options store.Options) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.NewStore(options), nil
	case config.DriverFile:
		return filestore.NewStore(cfg.Path, options)
	case config.DriverSQLite:
		return sqlite.Open(cfg.Path, options)
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return postgres.NewStore(pool, options), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// New opens the store, seeds it when enabled and builds the HTTP handler
// chain: tracing, request log, session, rate limit, then the routes. Close
// releases the store.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	st, err := OpenStore(ctx, cfg.Store, store.Options{Transitions: cfg.TransitionPolicy()})
	if err != nil {
		return nil, err
	}

	if cfg.Seed.Enabled {
		fixture := seed.Default()
		if cfg.Seed.File != "" {
			fixture, err = seed.LoadFile(cfg.Seed.File)
			if err != nil {
				_ = st.Close()
				return nil, err
			}
		}
		result, err := seed.Apply(ctx, st, fixture)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
		if result.Users > 0 || result.Jobs > 0 {
			log.Info().Int("users", result.Users).Int("jobs", result.Jobs).Msg("seeded store")
		}
	}

	sessions := auth.NewSessions(cfg.Auth.SessionTTL, nil)
	authService := auth.NewService(st, sessions)

	a := &App{
		Config:   cfg,
		Store:    st,
		Sessions: sessions,
		Auth:     authService,
	}

	options := httpapi.Options{Transitions: cfg.TransitionPolicy()}
	if cfg.Realtime.Enabled {
		a.Hub = hub.New()
		options.Events = a.Hub
	}
	handler := httpapi.NewHandler(st, authService, options)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:     cfg.RateLimit.IPPerMinute,
		IPBurst:         cfg.RateLimit.IPBurst,
		BranchPerMinute: cfg.RateLimit.BranchPerMinute,
		BranchBurst:     cfg.RateLimit.BranchBurst,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	if a.Hub != nil {
		mux.Handle(httpapi.RealtimePrefix+"/", httpapi.RealtimeHandler(authService, a.Hub))
	}
	mux.Handle("/", handler.Routes())

	chain := httpapi.SessionMiddleware(authService, limiter.Middleware(mux))
	a.Handler = otelhttp.NewHandler(httpapi.LoggingMiddleware(chain), cfg.Telemetry.ServiceName)
	return a, nil
}

// Serve listens on the configured port until ctx is cancelled, then drains
// in-flight requests.
func (a *App) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:         a.Config.Addr(),
		Handler:      a.Handler,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}

	go a.pruneSessions(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Str("store", a.Config.Store.Driver).Msg("workshop-service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}

func (a *App) pruneSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := a.Sessions.Prune(); removed > 0 {
				log.Debug().Int("removed", removed).Msg("pruned expired sessions")
			}
		}
	}
}

func (a *App) Close() error {
	return a.Store.Close()
}

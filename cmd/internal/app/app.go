// Package app wires the Biblio auth server runtime: config, logging, storage,
// the revocation denylist, HTTP routes, and background maintenance.
//
// It is intentionally small and deterministic to keep behavior predictable.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"biblio/cmd/identity"
	"biblio/cmd/internal/auth/api"
	"biblio/cmd/internal/auth/guard"
	"biblio/cmd/internal/auth/revocation"
	"biblio/cmd/internal/auth/session"
	"biblio/cmd/security/password"
	"biblio/cmd/security/token"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the Biblio auth server runtime.
type App struct {
	cfg Config
	log Logger

	pool     *pgxpool.Pool
	denylist revocation.Store
	redis    *revocation.RedisStore // nil when using the in-process store

	sessions *session.Service
	guard    *guard.Guard
	auth     *api.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("app: BIBLIO_DATABASE_URL is required")
	}
	if cfg.RequireTokenHMAC {
		if _, err := token.LoadKey(32); err != nil {
			return nil, err
		}
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	denylist, redisStore, err := NewRevocationStore(ctx, cfg, log)
	if err != nil {
		pool.Close()
		return nil, err
	}

	a, err := build(cfg, log, pool, denylist)
	if err != nil {
		_ = denylist.Close()
		pool.Close()
		return nil, err
	}
	a.redis = redisStore
	return a, nil
}

// build assembles the service graph on top of already-opened resources.
func build(cfg Config, log Logger, pool *pgxpool.Pool, denylist revocation.Store) (*App, error) {
	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	codec, err := session.NewTokenCodec(sessCfg)
	if err != nil {
		return nil, err
	}

	idStore, err := identity.NewPostgresStore(pool)
	if err != nil {
		return nil, err
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}

	sessions := session.NewService(sessCfg, codec, session.NewPostgresStore(pool), denylist, idStore)
	g := guard.New(sessions, idStore, log)

	authHandler, err := api.NewHandler(log, api.LoadConfigFromEnv(), pool, idStore, sessions, pwCfg)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		log:      log,
		pool:     pool,
		denylist: denylist,
		sessions: sessions,
		guard:    g,
		auth:     authHandler,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or a
// fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.pool, a.redis, a.auth, a.guard)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(WithSecurityHeaders(mux), a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr)

	prunerDone := make(chan struct{})
	go func() {
		defer close(prunerDone)
		a.runSessionPruner(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	<-prunerDone

	if err := a.denylist.Close(); err != nil {
		a.log.Error("denylist.close.fail", "err", err)
	}
	a.pool.Close()

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

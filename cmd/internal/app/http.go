package app

import (
	"net/http"
	"time"

	"biblio/cmd/internal/auth/api"
	"biblio/cmd/internal/auth/guard"
	"biblio/cmd/internal/auth/revocation"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func registerHTTP(
	mux *http.ServeMux,
	log Logger,
	pool *pgxpool.Pool,
	redis *revocation.RedisStore,
	auth *api.Handler,
	g *guard.Guard,
) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if pool != nil {
			if err := PingDB(r.Context(), pool, 2*time.Second); err != nil {
				log.Info("readyz.db.not_ready", "err", err)
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if redis != nil {
			if err := redis.Ping(r.Context()); err != nil {
				log.Info("readyz.redis.not_ready", "err", err)
				http.Error(w, "denylist not ready", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	mux.Handle("/metrics", promhttp.Handler())

	if auth != nil {
		auth.Register(mux, g)
	}
}

package app

import (
	"context"

	"biblio/cmd/internal/auth/revocation"
)

// NewRevocationStore selects the denylist backend. With no Redis address
// configured it falls back to the in-process store, which only works for a
// single instance; multi-instance deployments must configure Redis so a
// revocation on one instance is seen by all.
func NewRevocationStore(ctx context.Context, cfg Config, log Logger) (revocation.Store, *revocation.RedisStore, error) {
	if cfg.RedisAddr == "" {
		log.Warn("revocation.inmemory_store", "hint", "set BIBLIO_REDIS_ADDR for multi-instance deployments")
		return revocation.NewMemoryStore(), nil, nil
	}

	rs, err := revocation.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	log.Info("revocation.redis_store", "addr", cfg.RedisAddr)
	return rs, rs, nil
}

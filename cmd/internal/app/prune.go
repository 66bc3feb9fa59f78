package app

import (
	"context"
	"time"
)

// runSessionPruner periodically deletes long-expired session rows. Revoked
// but unexpired rows are kept for the sessions listing and audit trail.
func (a *App) runSessionPruner(ctx context.Context) {
	interval := nonZeroDuration(a.cfg.SessionPruneInterval, time.Hour)
	retention := nonZeroDuration(a.cfg.SessionRetention, 30*24*time.Hour)

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			cutoff := time.Now().UTC().Add(-retention)

			pruneCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			n, err := a.sessions.PruneExpired(pruneCtx, cutoff)
			cancel()

			if err != nil {
				a.log.Error("sessions.prune.fail", "err", err)
				continue
			}
			if n > 0 {
				a.log.Info("sessions.pruned", "count", n, "cutoff", cutoff)
			}
		}
	}
}

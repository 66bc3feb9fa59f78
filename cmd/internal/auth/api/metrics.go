package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	signinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biblio_auth_signins_total",
		Help: "Sign-in attempts by result.",
	}, []string{"result"})

	refreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biblio_auth_refreshes_total",
		Help: "Refresh-token rotations by result.",
	}, []string{"result"})

	revocationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "biblio_auth_session_revocations_total",
		Help: "Sessions revoked via sign-out or administration.",
	})

	reuseIncidentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "biblio_auth_refresh_reuse_incidents_total",
		Help: "Refresh-token reuse incidents detected.",
	})
)

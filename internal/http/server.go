// README: API gateway; holds module services and the metrics collector for the router.
package http

import (
	"farebox/internal/http/handlers"
	"farebox/internal/metrics"
	"farebox/internal/modules/admin"
	"farebox/internal/modules/journey"
	"farebox/internal/modules/ledger"
)

type ServerDeps struct {
	Journey *journey.Service
	Ledger  *ledger.Service
	Admin   *admin.Service
	// History is optional; without it the unsettled listing answers 501.
	History handlers.UnsettledLister
	Metrics *metrics.Collector
}

type Server struct {
	journey *journey.Service
	ledger  *ledger.Service
	admin   *admin.Service
	history handlers.UnsettledLister
	metrics *metrics.Collector
}

func NewServer(deps ServerDeps) *Server {
	return &Server{
		journey: deps.Journey,
		ledger:  deps.Ledger,
		admin:   deps.Admin,
		history: deps.History,
		metrics: deps.Metrics,
	}
}

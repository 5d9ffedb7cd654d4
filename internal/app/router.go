package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/freightdesk/internal/finance"
	"github.com/odyssey-erp/freightdesk/internal/freight"
	"github.com/odyssey-erp/freightdesk/internal/ledger"
	"github.com/odyssey-erp/freightdesk/internal/observability"
	"github.com/odyssey-erp/freightdesk/internal/platform/httpx"
	"github.com/odyssey-erp/freightdesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	FreightHandler *freight.Handler
	FinanceHandler *finance.Handler
	LedgerHandler  *ledger.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with the freightdesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	var tokenHash string
	if params.Config != nil {
		tokenHash = params.Config.APITokenHash
	}
	r.Route("/api", func(r chi.Router) {
		r.Use(BearerAuth(tokenHash, params.Logger))
		if params.FreightHandler != nil {
			params.FreightHandler.MountRoutes(r)
		}
		if params.FinanceHandler != nil {
			params.FinanceHandler.MountRoutes(r)
		}
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
	})

	return r
}

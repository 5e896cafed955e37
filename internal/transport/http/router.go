// Package httptransport assembles the public router. Handlers stay in their
// domain packages; this package only mounts them and the operational
// endpoints.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	compliancehandler "compliance-monitor/internal/compliance/handler"
	"compliance-monitor/internal/platform/metrics"
	"compliance-monitor/internal/platform/middleware"
	transactionhandler "compliance-monitor/internal/transaction/handler"
)

// NewRouter wires all endpoints behind the shared middleware chain.
func NewRouter(
	transactions *transactionhandler.Handler,
	violations *compliancehandler.Handler,
	httpMetrics *metrics.HTTP,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recover(logger))
	r.Use(httpMetrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	transactions.Register(r)
	violations.Register(r)

	return r
}

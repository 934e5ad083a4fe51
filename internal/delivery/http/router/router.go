package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/a11y-auditor/internal/delivery/http/handler"
	"github.com/user/a11y-auditor/internal/delivery/http/middleware"
)

// New wires the JSON API, the metrics endpoint and the generated report files under reportsDir.
func New(h *handler.Handler, reportsDir string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealthCheck)
		r.Get("/runs", h.HandleListRuns)
		r.Get("/runs/{date}/scores", h.HandleGetScores)
		r.Get("/runs/{date}/failures", h.HandleListFailures)
		r.Get("/domains/{domain}/history", h.HandleDomainHistory)
	})

	r.Handle("/*", http.FileServer(http.Dir(reportsDir)))

	return r
}

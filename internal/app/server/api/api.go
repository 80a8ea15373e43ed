// Reference remote backend for the offline report client.
//
//	GET  /api/v1/health
//	PUT  /api/v1/reports/{id}                             upsert by client id (reporter)
//	PUT  /api/v1/reports/{id}/attachments/{attachmentId}  upsert attachment (reporter)
//	GET  /api/v1/reports                                  caller's reports (reporter)
//	GET  /metrics

package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/exp/slog"

	healthAPI "reportsync/internal/app/server/api/http/health"
	"reportsync/internal/app/server/api/http/middleware"
	"reportsync/internal/app/server/api/http/middleware/logger"
	"reportsync/internal/app/server/api/http/middleware/metrics"
	"reportsync/internal/app/server/api/http/middleware/reporter"
	reportAPI "reportsync/internal/app/server/api/http/report"
	"reportsync/internal/domain/report"
)

// Deps are the storage-side dependencies of the API.
type Deps struct {
	DB      healthAPI.Pinger
	Reports report.Repository
	Media   report.MediaStore
}

type Handlers struct {
	Health *healthAPI.Handler
	Report *reportAPI.Handler
}

// New builds the router with every operation registered through huma.
func New(deps Deps, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("Reportsync API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"reporter": {Type: "apiKey", In: "header", Name: reporter.Header},
	}

	API := humachi.New(mux, config)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	h := handlers(API, deps, m, log)
	h.Health.SetupRoutes(API)
	h.Report.SetupRoutes(API)

	return mux
}

func handlers(api huma.API, deps Deps, m *metrics.Metrics, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	reporterMW := reporter.New(api, log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(deps.DB, log, middlewares.GetAllAndClear())

	reportService := report.NewService(deps.Reports, deps.Media, log)
	middlewares.Add(loggerMW.Middleware())
	middlewares.Add(m.Middleware())
	middlewares.Add(reporterMW.Middleware())
	reportHandler := reportAPI.NewHandler(reportService, m, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		Report: reportHandler,
	}
}

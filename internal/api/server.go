// Package api exposes the ingestion pipeline and report generation over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/equipment.report/internal/config"
	"github.com/banshee-data/equipment.report/internal/db"
	"github.com/banshee-data/equipment.report/internal/ingest"
	"github.com/banshee-data/equipment.report/internal/monitoring"
	"github.com/banshee-data/equipment.report/internal/pipeline"
	"github.com/banshee-data/equipment.report/internal/report"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Store is everything the HTTP layer reads and writes.
type Store interface {
	pipeline.Store
	CreateDatasetReport(ctx context.Context, r *db.DatasetReport) error
	GetRecentReportsForDataset(ctx context.Context, datasetID string, limit int) ([]db.DatasetReport, error)
}

type Server struct {
	store    Store
	ingester *pipeline.Ingester
	composer *report.Composer
	cfg      *config.Config
}

// NewServer wires a Server from configuration. A nil composer gets the
// defaults adjusted to cfg's report layout.
func NewServer(store Store, cfg *config.Config, composer *report.Composer) *Server {
	if cfg == nil {
		cfg = config.Empty()
	}
	if composer == nil {
		composer = ReportComposer(cfg)
	}
	return &Server{
		store:    store,
		ingester: pipeline.NewIngester(store, IngestOptions(cfg)),
		composer: composer,
		cfg:      cfg,
	}
}

// ReportComposer returns a composer using cfg's report layout.
func ReportComposer(cfg *config.Config) *report.Composer {
	c := report.NewComposer()
	c.DetailRows = cfg.GetDetailRows()
	c.NameWidth = cfg.GetNameWidth()
	return c
}

// IngestOptions maps the configured columns, extensions and retention
// onto pipeline options.
func IngestOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		Columns:    ingest.Columns{Required: cfg.GetRequiredColumns()},
		Extensions: cfg.GetExtensions(),
		Retention:  cfg.GetRetention(),
		Logf:       monitoring.Prefixed("[ingest] "),
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// Router returns the full HTTP handler: the JSON API under /api and
// Prometheus metrics on /metrics.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", s.showConfig)
		r.Get("/version", s.showVersion)

		r.Route("/datasets", func(r chi.Router) {
			r.Post("/upload", s.uploadDataset)
			r.Get("/", s.listDatasets)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getDataset)
				r.Delete("/", s.deleteDataset)
				r.Get("/records", s.listRecords)
				r.Get("/report", s.downloadReport)
				r.Get("/reports", s.listReports)
				r.Get("/charts", s.showCharts)
			})
		})
	})
	return r
}

package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/matatunos/shareaudit/pkg/shareaudit"
)

// MetricsHandler serves the chart-ready metrics JSON for the dashboard
// widgets. Every internal failure becomes a structured JSON error
// payload, never an unhandled fault.
type MetricsHandler struct {
	service shareaudit.Service
}

func NewMetricsHandler(service shareaudit.Service) *MetricsHandler {
	return &MetricsHandler{service: service}
}

// Routes returns the router for metrics endpoints
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/disk", h.DiskMetrics)
	r.Get("/uploads", h.UploadMetrics)
	return r
}

// DiskMetrics returns the disk usage series for a date range, a rolling
// window, or the default recent-sample window.
func (h *MetricsHandler) DiskMetrics(w http.ResponseWriter, r *http.Request) {
	series, err := h.service.DiskSeries(r.Context(), metricsQuery(r))
	if err != nil {
		slog.Error("Failed to aggregate disk metrics", "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "failed to aggregate disk metrics"})
		return
	}
	render.JSON(w, r, series)
}

// UploadMetrics returns the per-day upload activity series. A malformed
// explicit range falls back to the default rolling window inside the
// service.
func (h *MetricsHandler) UploadMetrics(w http.ResponseWriter, r *http.Request) {
	series, err := h.service.UploadSeries(r.Context(), metricsQuery(r))
	if err != nil {
		slog.Error("Failed to aggregate upload metrics", "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "failed to aggregate upload metrics"})
		return
	}
	render.JSON(w, r, series)
}

func metricsQuery(r *http.Request) shareaudit.MetricsQuery {
	query := shareaudit.MetricsQuery{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	}
	if days := r.URL.Query().Get("days"); days != "" {
		if v, err := strconv.Atoi(days); err == nil && v > 0 {
			query.Days = v
		}
	}
	return query
}

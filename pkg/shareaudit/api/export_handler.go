package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/matatunos/shareaudit/pkg/shareaudit"
)

// ExportHandler streams bulk exports over the same query paths the
// dashboard uses.
type ExportHandler struct {
	service shareaudit.Service
}

func NewExportHandler(service shareaudit.Service) *ExportHandler {
	return &ExportHandler{service: service}
}

// Routes returns the router for export endpoints
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/activity.csv", h.ActivityCSV)
	r.Get("/downloads.xls", h.DownloadsWorkbook)
	return r
}

// ActivityCSV streams the filtered activity log as a delimited-text
// attachment.
func (h *ExportHandler) ActivityCSV(w http.ResponseWriter, r *http.Request) {
	query := shareaudit.ActivityQuery{
		Action: r.URL.Query().Get("action"),
		Limit:  shareaudit.MaxActivityRows,
	}
	query.From, query.To = dateRangeParams(r)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="activity_log.csv"`)

	if err := h.service.ExportActivityCSV(r.Context(), query, w); err != nil {
		h.reportExportFailure(w, r, "csv", err)
	}
}

// DownloadsWorkbook streams the download audit ledger as a legacy
// spreadsheet attachment.
func (h *ExportHandler) DownloadsWorkbook(w http.ResponseWriter, r *http.Request) {
	query := shareaudit.DownloadQuery{
		IPAddress: r.URL.Query().Get("ip"),
		Limit:     shareaudit.MaxDownloadRows,
	}
	query.From, query.To = dateRangeParams(r)
	if v := r.URL.Query().Get("user_id"); v != "" {
		if id, err := parseUUID(v); err == nil {
			query.UserID = id
		}
	}

	w.Header().Set("Content-Type", "application/vnd.ms-excel")
	w.Header().Set("Content-Disposition", `attachment; filename="downloads.xls"`)

	if err := h.service.ExportDownloadsWorkbook(r.Context(), query, w); err != nil {
		h.reportExportFailure(w, r, "workbook", err)
	}
}

// reportExportFailure logs a failed export. An abandoned export (client
// disconnect) is expected churn, not an application error; headers are
// already on the wire either way, so no error status can be sent.
func (h *ExportHandler) reportExportFailure(w http.ResponseWriter, r *http.Request, format string, err error) {
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) || r.Context().Err() != nil {
		slog.Debug("Export abandoned by client", "format", format)
		return
	}
	slog.Error("Export failed", "format", format, "err", err)
}

// dateRangeParams parses optional from/to calendar days into inclusive
// day-boundary bounds. Unparseable values are treated as unset.
func dateRangeParams(r *http.Request) (time.Time, time.Time) {
	var from, to time.Time
	if v := r.URL.Query().Get("from"); v != "" {
		if day, err := time.ParseInLocation("2006-01-02", v, time.UTC); err == nil {
			from = day
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if day, err := time.ParseInLocation("2006-01-02", v, time.UTC); err == nil {
			to = day.Add(24*time.Hour - time.Second)
		}
	}
	return from, to
}

func parseLimit(r *http.Request, fallback, max int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return fallback
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}

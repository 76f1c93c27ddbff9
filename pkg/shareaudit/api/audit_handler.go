package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/matatunos/shareaudit/pkg/shareaudit"
)

// AuditHandler exposes the download audit lifecycle to the download
// pipeline and the audit ledger to the dashboard.
type AuditHandler struct {
	service shareaudit.Service
}

func NewAuditHandler(service shareaudit.Service) *AuditHandler {
	return &AuditHandler{service: service}
}

// Routes returns the router for audit endpoints. The begin/complete
// pair is called by the download flow; the query endpoint feeds the
// dashboard table.
func (h *AuditHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/begin", h.BeginDownload)
	r.Post("/complete", h.CompleteDownload)
	r.Get("/", h.QueryDownloads)
	return r
}

// BeginDownloadRequest is the wire request for opening an audit record.
type BeginDownloadRequest struct {
	FileID     string `json:"file_id"`
	ShareID    string `json:"share_id,omitempty"`
	ShareToken string `json:"share_token,omitempty"`
	UserID     string `json:"user_id,omitempty"`
}

// BeginDownloadResponse carries the issued record id, or null when the
// audit write failed and the download proceeds unobserved.
type BeginDownloadResponse struct {
	RecordID *uuid.UUID `json:"record_id"`
}

// CompleteDownloadRequest is the wire request for closing an audit
// record. A missing record id makes the call a no-op.
type CompleteDownloadRequest struct {
	RecordID         string `json:"record_id,omitempty"`
	BytesTransferred int64  `json:"bytes_transferred"`
	HTTPStatus       int    `json:"http_status"`
	ErrorMessage     string `json:"error_message,omitempty"`
}

// BeginDownload opens a pending audit record with the client context of
// this request. It never fails the caller: a storage failure yields a
// null record id.
func (h *AuditHandler) BeginDownload(w http.ResponseWriter, r *http.Request) {
	var req BeginDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fileID, err := uuid.Parse(req.FileID)
	if err != nil {
		slog.Error("Invalid file ID", "file_id", req.FileID, "error", err)
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	begin := shareaudit.BeginDownloadRequest{
		FileID:     fileID,
		ShareToken: req.ShareToken,
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	}
	if id, err := parseUUID(req.ShareID); err == nil {
		begin.ShareID = id
	}
	if id, err := parseUUID(req.UserID); err == nil {
		begin.UserID = id
	}

	recordID := h.service.BeginDownload(r.Context(), begin)
	render.JSON(w, r, BeginDownloadResponse{RecordID: recordID})
}

// CompleteDownload closes an audit record. Absent or unparseable record
// ids are tolerated as no-ops, matching the begin-side null contract.
func (h *AuditHandler) CompleteDownload(w http.ResponseWriter, r *http.Request) {
	var req CompleteDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	complete := shareaudit.CompleteDownloadRequest{
		BytesTransferred: req.BytesTransferred,
		HTTPStatus:       req.HTTPStatus,
		ErrorMessage:     req.ErrorMessage,
	}
	if id, err := parseUUID(req.RecordID); err == nil {
		complete.RecordID = id
	}

	h.service.CompleteDownload(r.Context(), complete)
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// QueryDownloads returns the filtered audit ledger, most recent first.
func (h *AuditHandler) QueryDownloads(w http.ResponseWriter, r *http.Request) {
	query := shareaudit.DownloadQuery{
		IPAddress: r.URL.Query().Get("ip"),
		Limit:     parseLimit(r, 100, shareaudit.MaxDownloadRows),
	}
	query.From, query.To = dateRangeParams(r)
	if id, err := parseUUID(r.URL.Query().Get("user_id")); err == nil {
		query.UserID = id
	}

	records, err := h.service.QueryDownloads(r.Context(), query)
	if err != nil {
		slog.Error("Failed to query download audits", "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "failed to query download audits"})
		return
	}
	if records == nil {
		records = []*shareaudit.DownloadAudit{}
	}
	render.JSON(w, r, records)
}

// parseUUID parses an optional uuid parameter. Empty input is an error
// so callers can use the nil pointer as "not supplied".
func parseUUID(v string) (*uuid.UUID, error) {
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

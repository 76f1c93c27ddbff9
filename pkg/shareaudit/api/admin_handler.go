package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/matatunos/shareaudit/pkg/shareaudit"
)

// AdminHandler serves the admin dashboard's mutating endpoints and
// lookups: operational toggles, the activity log view, and the
// username-existence probe.
type AdminHandler struct {
	service shareaudit.Service
	csrf    shareaudit.TokenValidator
}

func NewAdminHandler(service shareaudit.Service, csrf shareaudit.TokenValidator) *AdminHandler {
	return &AdminHandler{service: service, csrf: csrf}
}

// Routes returns the router for admin endpoints. The caller is expected
// to mount it behind SessionLoader + AdminOnly.
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/toggle", h.Toggle)
	r.Get("/activity", h.QueryActivity)
	r.Get("/activity/actions", h.DistinctActions)
	r.Get("/username-exists", h.UsernameExists)
	return r
}

// ToggleRequest is the wire request for flipping an operational
// setting. Enabled arrives as a boolean-in-a-string.
type ToggleRequest struct {
	Type    string `json:"type"`
	Enabled string `json:"enabled"`
}

// ToggleResponse reports the toggle outcome.
type ToggleResponse struct {
	Success bool   `json:"success"`
	Enabled bool   `json:"enabled"`
	Message string `json:"message"`
}

// toggleSettings maps the wire toggle types onto registry keys.
var toggleSettings = map[string]string{
	"maintenance":       shareaudit.SettingMaintenanceMode,
	"config_protection": shareaudit.SettingConfigProtection,
}

// Toggle flips a maintenance/protection setting. Authorization is
// enforced by the AdminOnly middleware first; the CSRF token is
// validated here before any side effect.
func (h *AdminHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	if !h.csrf.Validate(csrfToken(r)) {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ToggleResponse{Success: false, Message: "invalid security token"})
		return
	}

	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ToggleResponse{Success: false, Message: "malformed request body"})
		return
	}

	key, ok := toggleSettings[req.Type]
	if !ok {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ToggleResponse{Success: false, Message: fmt.Sprintf("unknown toggle type %q", req.Type)})
		return
	}

	enabled, err := strconv.ParseBool(req.Enabled)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ToggleResponse{Success: false, Message: "enabled must be a boolean string"})
		return
	}

	if err := h.service.UpdateSetting(r.Context(), key, strconv.FormatBool(enabled)); err != nil {
		slog.Error("Failed to update setting", "key", key, "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ToggleResponse{Success: false, Message: "failed to store setting"})
		return
	}

	h.recordToggle(r, key, enabled)

	render.JSON(w, r, ToggleResponse{
		Success: true,
		Enabled: enabled,
		Message: fmt.Sprintf("%s set to %t", key, enabled),
	})
}

// recordToggle appends the admin action to the activity log,
// fire-and-forget.
func (h *AdminHandler) recordToggle(r *http.Request, key string, enabled bool) {
	req := shareaudit.AppendActivityRequest{
		Action:      "settings.toggle",
		EntityType:  "setting",
		Description: fmt.Sprintf("%s set to %t", key, enabled),
		IPAddress:   r.RemoteAddr,
		UserAgent:   r.UserAgent(),
	}
	if session := SessionFromContext(r.Context()); session != nil {
		actorID := session.UserID
		req.ActorID = &actorID
	}
	h.service.RecordActivity(r.Context(), req)
}

// QueryActivity returns the filtered activity log for the log view,
// most recent first.
func (h *AdminHandler) QueryActivity(w http.ResponseWriter, r *http.Request) {
	query := shareaudit.ActivityQuery{
		Action: r.URL.Query().Get("action"),
		Limit:  parseLimit(r, 100, shareaudit.MaxActivityRows),
	}
	query.From, query.To = dateRangeParams(r)
	if v := r.URL.Query().Get("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil && offset > 0 {
			query.Offset = offset
		}
	}

	entries, err := h.service.QueryActivity(r.Context(), query)
	if err != nil {
		slog.Error("Failed to query activity log", "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "failed to query activity log"})
		return
	}
	if entries == nil {
		entries = []*shareaudit.ActivityEntry{}
	}
	render.JSON(w, r, entries)
}

// DistinctActions returns the seen action strings for the filter
// control. Cheap to call on every render: it reads a cache or index,
// never a full scan.
func (h *AdminHandler) DistinctActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.service.DistinctActions(r.Context())
	if err != nil {
		slog.Error("Failed to list distinct actions", "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "failed to list actions"})
		return
	}
	if actions == nil {
		actions = []string{}
	}
	render.JSON(w, r, map[string][]string{"actions": actions})
}

// UsernameExists probes whether a username is taken by a user or an
// active invitation.
func (h *AdminHandler) UsernameExists(w http.ResponseWriter, r *http.Request) {
	check := h.service.UsernameExists(r.Context(), r.URL.Query().Get("username"))
	if check.Error == shareaudit.UsernameCheckErrorDB {
		render.Status(r, http.StatusInternalServerError)
	}
	render.JSON(w, r, check)
}

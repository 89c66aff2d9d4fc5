package notificationshandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"appraise/internal/domain/auth"
	"appraise/internal/domain/notifications"
	"appraise/internal/transport/http/api"
	"appraise/internal/transport/http/middleware"
	"appraise/internal/transport/http/shared"
)

type Handler struct {
	Service *notifications.Service
}

func NewHandler(service *notifications.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/{notificationID}/read", h.handleMarkRead)
		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.handleSettings)
			r.Put("/", h.handleUpdateSettings)
		})
	})
}

// requireUser unpacks the authenticated caller or writes the 401.
func requireUser(w http.ResponseWriter, r *http.Request, reqID string) (auth.UserContext, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
	}
	return user, ok
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	page := shared.ParsePagination(r, 100, 500)
	feed, err := h.Service.List(r.Context(), user.TenantID, user.UserID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "notification_list_failed", "failed to list notifications", reqID)
		return
	}

	// Count misses do not fail the feed; the headers just read zero.
	total, unread, err := h.Service.Counts(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		slog.Warn("notification counts failed", "err", err, "requestId", reqID)
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	w.Header().Set("X-Unread-Count", strconv.Itoa(unread))
	api.Success(w, feed, reqID)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	if err := h.Service.MarkRead(r.Context(), user.TenantID, user.UserID, chi.URLParam(r, "notificationID")); err != nil {
		api.Fail(w, http.StatusInternalServerError, "notification_update_failed", "failed to update notification", reqID)
		return
	}
	api.Success(w, map[string]string{"status": "read"}, reqID)
}

// Delivery settings are tenant wide; only elevated roles may touch them.
func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := h.requireElevated(w, r, reqID)
	if !ok {
		return
	}

	settings, err := h.Service.GetSettings(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "settings_failed", "failed to load settings", reqID)
		return
	}
	api.Success(w, settings, reqID)
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := h.requireElevated(w, r, reqID)
	if !ok {
		return
	}

	var settings notifications.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	if err := h.Service.UpdateSettings(r.Context(), user.TenantID, settings); err != nil {
		api.Fail(w, http.StatusInternalServerError, "settings_failed", "failed to update settings", reqID)
		return
	}
	api.Success(w, map[string]string{"status": "updated"}, reqID)
}

func (h *Handler) requireElevated(w http.ResponseWriter, r *http.Request, reqID string) (auth.UserContext, bool) {
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return auth.UserContext{}, false
	}
	if !auth.Elevated(user.RoleName) {
		api.Fail(w, http.StatusForbidden, "forbidden", "hr or admin role required", reqID)
		return auth.UserContext{}, false
	}
	return user, true
}

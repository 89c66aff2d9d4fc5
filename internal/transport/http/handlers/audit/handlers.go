package audithandler

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"appraise/internal/domain/audit"
	"appraise/internal/domain/auth"
	"appraise/internal/transport/http/api"
	"appraise/internal/transport/http/middleware"
	"appraise/internal/transport/http/shared"
)

type Handler struct {
	Service *audit.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *audit.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermAuditRead, h.Perms)
	r.Route("/audit", func(r chi.Router) {
		r.With(read).Get("/events", h.handleListEvents)
		r.With(read).Get("/events/export", h.handleExportEvents)
	})
}

func requireUser(w http.ResponseWriter, r *http.Request, reqID string) (auth.UserContext, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
	}
	return user, ok
}

// filterFromQuery maps the supported query parameters onto a store filter.
// Both the JSON listing and the CSV export accept the same parameters.
func filterFromQuery(q url.Values) audit.Filter {
	return audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		ActorUser:  q.Get("actorUserId"),
	}
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := filterFromQuery(q)
	page := shared.ParsePagination(r, 100, 500)

	events, err := h.Service.List(r.Context(), user.TenantID, filter, q.Get("includeDetails") == "true", page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", reqID)
		return
	}

	// A count miss does not fail the listing; the header just reads zero.
	total, err := h.Service.Count(r.Context(), user.TenantID, filter)
	if err != nil {
		slog.Warn("audit count failed", "err", err, "requestId", reqID)
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, events, reqID)
}

var exportColumns = []string{"id", "actor_user_id", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}

// exportRow flattens one event into the column order of exportColumns.
func exportRow(evt audit.Event) []string {
	return []string{evt.ID, evt.ActorID, evt.Action, evt.EntityType, evt.EntityID, evt.RequestID, evt.IP, evt.CreatedAt.Format(time.RFC3339)}
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	events, err := h.Service.ListExport(r.Context(), user.TenantID, filterFromQuery(r.URL.Query()))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", reqID)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	w.Header().Set("Content-Type", "text/csv")
	if err := writeCSV(w, events); err != nil {
		// Headers are gone at this point, so log and give up.
		slog.Warn("audit export write failed", "err", err, "requestId", reqID)
	}
}

func writeCSV(w http.ResponseWriter, events []audit.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportColumns); err != nil {
		return err
	}
	for _, evt := range events {
		if err := cw.Write(exportRow(evt)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

package adminhandler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"appraise/internal/domain/audit"
	"appraise/internal/domain/auth"
	"appraise/internal/platform/jobs"
	"appraise/internal/platform/metrics"
	"appraise/internal/transport/http/api"
	"appraise/internal/transport/http/middleware"
	"appraise/internal/transport/http/shared"
)

type Handler struct {
	Jobs    *jobs.Service
	Metrics *metrics.Collector
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(jobsSvc *jobs.Service, collector *metrics.Collector, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Jobs: jobsSvc, Metrics: collector, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms)).Get("/admin/metrics", h.handleMetrics)
	r.With(middleware.RequirePermission(auth.PermTasksManage, h.Perms)).Post("/tasks/run", h.handleRunTasks)
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if _, ok := middleware.GetUser(r.Context()); !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	api.Success(w, h.Metrics.Snapshot(), reqID)
}

// handleRunTasks flushes every due scheduled task right now instead of
// waiting for the next cron tick.
func (h *Handler) handleRunTasks(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	result, err := h.Jobs.RunDueTasks(r.Context(), time.Now())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "task_run_failed", "failed to run due tasks", reqID)
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, "admin.tasks.run", "task_runner", "", reqID, shared.ClientIP(r), nil, result); err != nil {
		slog.Warn("audit admin.tasks.run failed", "err", err)
	}
	api.Success(w, result, reqID)
}

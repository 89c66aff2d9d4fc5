package reportshandler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"appraise/internal/domain/audit"
	"appraise/internal/domain/auth"
	"appraise/internal/domain/campaign"
	"appraise/internal/domain/reports"
	"appraise/internal/transport/http/api"
	"appraise/internal/transport/http/middleware"
	"appraise/internal/transport/http/shared"
)

type Handler struct {
	Service *reports.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *reports.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermReportsRead, h.Perms))
		r.Get("/dashboard/employee", h.handleEmployeeDashboard)
		r.Get("/dashboard/manager", h.handleManagerDashboard)
		r.Get("/dashboard/hr", h.handleHRDashboard)
		r.Get("/jobs", h.handleJobRuns)
		r.Get("/jobs/{runID}", h.handleJobRun)
		r.Get("/campaigns/{campaignID}/progress.pdf", h.handleCampaignProgressPDF)
	})
}

// requireRole rejects callers below the named bar. managerOK widens the
// check to managers for the team facing views.
func requireRole(w http.ResponseWriter, r *http.Request, reqID string, managerOK bool) (auth.UserContext, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return auth.UserContext{}, false
	}
	if auth.Elevated(user.RoleName) || (managerOK && user.RoleName == auth.RoleManager) {
		return user, true
	}
	if managerOK {
		api.Fail(w, http.StatusForbidden, "forbidden", "manager or hr required", reqID)
	} else {
		api.Fail(w, http.StatusForbidden, "forbidden", "hr or admin role required", reqID)
	}
	return auth.UserContext{}, false
}

func (h *Handler) handleEmployeeDashboard(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	dashboard, err := h.Service.EmployeeDashboardFor(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to load dashboard", reqID)
		return
	}
	api.Success(w, dashboard, reqID)
}

func (h *Handler) handleManagerDashboard(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireRole(w, r, reqID, true)
	if !ok {
		return
	}

	dashboard, err := h.Service.ManagerDashboardFor(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to load dashboard", reqID)
		return
	}
	api.Success(w, dashboard, reqID)
}

func (h *Handler) handleHRDashboard(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireRole(w, r, reqID, false)
	if !ok {
		return
	}

	dashboard, err := h.Service.HRDashboardFor(r.Context(), user.TenantID, time.Now())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to load dashboard", reqID)
		return
	}
	api.Success(w, dashboard, reqID)
}

// dateParam parses an optional YYYY-MM-DD query value. ok is false only
// when the value is present and malformed.
func dateParam(q url.Values, key string) (*time.Time, bool) {
	raw := q.Get(key)
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, false
	}
	return &parsed, true
}

func (h *Handler) handleJobRuns(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireRole(w, r, reqID, false)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := reports.JobRunFilter{
		JobType: q.Get("jobType"),
		Status:  q.Get("status"),
	}
	from, ok := dateParam(q, "from")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "validation_error", "from must be YYYY-MM-DD", reqID)
		return
	}
	filter.StartedFrom = from
	to, ok := dateParam(q, "to")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "validation_error", "to must be YYYY-MM-DD", reqID)
		return
	}
	if to != nil {
		// Inclusive of the named day.
		end := to.Add(24 * time.Hour)
		filter.StartedTo = &end
	}

	page := shared.ParsePagination(r, 50, 200)
	total, err := h.Service.CountJobRuns(r.Context(), user.TenantID, filter)
	if err != nil {
		slog.Warn("job run count failed", "err", err)
	}
	runs, err := h.Service.JobRuns(r.Context(), user.TenantID, filter, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "job_runs_failed", "failed to list job runs", reqID)
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, runs, reqID)
}

func (h *Handler) handleJobRun(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireRole(w, r, reqID, false)
	if !ok {
		return
	}

	run, err := h.Service.JobRunByID(r.Context(), user.TenantID, chi.URLParam(r, "runID"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			api.Fail(w, http.StatusNotFound, "not_found", "job run not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "job_runs_failed", "failed to load job run", reqID)
		return
	}
	api.Success(w, run, reqID)
}

func (h *Handler) handleCampaignProgressPDF(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireRole(w, r, reqID, true)
	if !ok {
		return
	}

	campaignID := chi.URLParam(r, "campaignID")
	filePath, err := h.Service.CampaignProgressPDF(r.Context(), user.TenantID, campaignID)
	if err != nil {
		if errors.Is(err, campaign.ErrCampaignNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "campaign not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render report", reqID)
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, "reports.campaign_progress_pdf", "campaign", campaignID, reqID, shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit reports.campaign_progress_pdf failed", "err", err)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=campaign-progress-"+campaignID+".pdf")
	http.ServeFile(w, r, filePath)
}

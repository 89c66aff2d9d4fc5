package evaluationshandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"appraise/internal/domain/audit"
	"appraise/internal/domain/auth"
	"appraise/internal/domain/core"
	"appraise/internal/domain/evaluation"
	"appraise/internal/transport/http/api"
	"appraise/internal/transport/http/middleware"
	"appraise/internal/transport/http/shared"
)

type Handler struct {
	Service   *evaluation.Service
	Directory *core.Service
	Perms     middleware.PermissionStore
	Audit     *audit.Service
}

func NewHandler(service *evaluation.Service, directory *core.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Directory: directory, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermEvaluationsRead, h.Perms)
	write := middleware.RequirePermission(auth.PermEvaluationsWrite, h.Perms)
	review := middleware.RequirePermission(auth.PermEvaluationsReview, h.Perms)
	r.Route("/evaluations", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.Route("/{evaluationID}", func(r chi.Router) {
			r.With(read).Get("/", h.handleGet)
			r.With(write).Patch("/self", h.action(evaluation.ActionSaveSelf))
			r.With(write).Post("/self/submit", h.action(evaluation.ActionSubmitSelf))
			r.With(review).Patch("/review", h.action(evaluation.ActionSaveManager))
			r.With(review).Post("/review/submit", h.action(evaluation.ActionSubmitManager))
			r.With(review).Post("/meeting/schedule", h.action(evaluation.ActionScheduleMeeting))
			r.With(review).Post("/meeting/complete", h.action(evaluation.ActionRecordMeeting))
			r.With(middleware.RequirePermission(auth.PermEvaluationsFinalize, h.Perms)).Post("/finalize", h.action(evaluation.ActionFinalize))
			r.With(middleware.RequirePermission(auth.PermEvaluationsCalibrate, h.Perms)).Post("/calibrate", h.action(evaluation.ActionCalibrate))
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

// actor resolves the caller's employee record. Accounts without one keep an
// empty EmployeeID and rely on elevated roles for access.
func (h *Handler) actor(ctx context.Context, user auth.UserContext) evaluation.Actor {
	a := evaluation.Actor{UserID: user.UserID, RoleName: user.RoleName}
	id, err := h.Directory.EmployeeIDByUserID(ctx, user.TenantID, user.UserID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		slog.Warn("actor employee lookup failed", "userId", user.UserID, "err", err)
	}
	a.EmployeeID = id
	return a
}

func failEvaluationError(w http.ResponseWriter, err error, requestID string) bool {
	switch {
	case errors.Is(err, evaluation.ErrEvaluationNotFound), errors.Is(err, pgx.ErrNoRows):
		api.Fail(w, http.StatusNotFound, "not_found", "evaluation not found", requestID)
	case errors.Is(err, evaluation.ErrActorNotAllowed):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", requestID)
	case errors.Is(err, evaluation.ErrFieldNotAllowed):
		api.Fail(w, http.StatusForbidden, "forbidden_field", err.Error(), requestID)
	case errors.Is(err, evaluation.ErrInvalidTransition), errors.Is(err, evaluation.ErrUnknownAction):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, evaluation.ErrEvaluationStale):
		api.Fail(w, http.StatusConflict, "conflict", "evaluation was changed by another request, reload and retry", requestID)
	case errors.Is(err, evaluation.ErrSelfNotSubmitted),
		errors.Is(err, evaluation.ErrManagerNotSubmitted),
		errors.Is(err, evaluation.ErrMeetingNotScheduled):
		api.Fail(w, http.StatusConflict, "guard_failed", err.Error(), requestID)
	case errors.Is(err, evaluation.ErrMeetingTimeRequired),
		errors.Is(err, evaluation.ErrResponseMissing),
		errors.Is(err, evaluation.ErrUnsupportedVersion),
		errors.Is(err, evaluation.ErrNoAnswers),
		errors.Is(err, evaluation.ErrAnswerCountMismatch),
		errors.Is(err, evaluation.ErrCalibrationIncomplete):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	default:
		return false
	}
	return true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	q := r.URL.Query()
	f := evaluation.Filter{
		CampaignID: q.Get("campaignId"),
		EmployeeID: q.Get("employeeId"),
		ManagerID:  q.Get("managerId"),
		Status:     q.Get("status"),
	}
	actor := h.actor(r.Context(), user)

	// Non-elevated callers only see their own slice of the table: employees
	// their own rows, managers their own plus their reports'.
	if !auth.Elevated(user.RoleName) {
		if actor.EmployeeID == "" {
			api.Success(w, []evaluation.Evaluation{}, reqID)
			return
		}
		switch user.RoleName {
		case auth.RoleManager:
			f.ManagerID = ""
			f.SelfOrManagedBy = actor.EmployeeID
		default:
			f.EmployeeID = actor.EmployeeID
			f.ManagerID = ""
		}
	}

	page := shared.ParsePagination(r, 50, 200)
	evaluations, err := h.Service.List(r.Context(), user.TenantID, f, actor, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "evaluation_list_failed", "failed to list evaluations", reqID)
		return
	}
	api.Success(w, evaluations, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	actor := h.actor(r.Context(), user)
	ev, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "evaluationID"), actor)
	if err != nil {
		if !failEvaluationError(w, err, reqID) {
			api.Fail(w, http.StatusInternalServerError, "evaluation_get_failed", "failed to load evaluation", reqID)
		}
		return
	}
	api.Success(w, ev, reqID)
}

// action builds the handler for one lifecycle transition. The request body
// is the patch; submit-style routes accept an empty body.
func (h *Handler) action(act evaluation.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetRequestID(r.Context())
		user, ok := requireUser(w, r, reqID)
		if !ok {
			return
		}

		var patch evaluation.Patch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil && !errors.Is(err, io.EOF) {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
			return
		}

		evaluationID := chi.URLParam(r, "evaluationID")
		actor := h.actor(r.Context(), user)
		ev, err := h.Service.Transition(r.Context(), user.TenantID, evaluationID, act, patch, actor, time.Now())
		if err != nil {
			if !failEvaluationError(w, err, reqID) {
				api.Fail(w, http.StatusInternalServerError, "evaluation_update_failed", "failed to update evaluation", reqID)
			}
			return
		}

		if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, "evaluations."+string(act), "evaluation", evaluationID, reqID, shared.ClientIP(r), nil, patch); err != nil {
			slog.Warn("audit evaluation transition failed", "action", string(act), "err", err)
		}
		api.Success(w, ev, reqID)
	}
}

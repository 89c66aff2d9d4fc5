package campaignshandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"appraise/internal/domain/audit"
	"appraise/internal/domain/auth"
	"appraise/internal/domain/calendar"
	"appraise/internal/domain/campaign"
	"appraise/internal/domain/group"
	"appraise/internal/domain/schedule"
	"appraise/internal/transport/http/api"
	"appraise/internal/transport/http/middleware"
	"appraise/internal/transport/http/shared"
)

type Handler struct {
	Service *campaign.Service
	Tasks   *schedule.Store
	Perms   middleware.PermissionStore
	Idem    *middleware.IdempotencyStore
	Audit   *audit.Service
}

func NewHandler(service *campaign.Service, tasks *schedule.Store, perms middleware.PermissionStore, idem *middleware.IdempotencyStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Tasks: tasks, Perms: perms, Idem: idem, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermCampaignsRead, h.Perms)
	manage := middleware.RequirePermission(auth.PermCampaignsManage, h.Perms)
	publish := middleware.RequirePermission(auth.PermCampaignsPublish, h.Perms)
	r.Route("/campaigns", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(manage).Post("/", h.handleCreate)
		r.Route("/{campaignID}", func(r chi.Router) {
			r.With(read).Get("/", h.handleGet)
			r.With(manage).Put("/", h.handleUpdate)
			r.With(manage).Post("/plan", h.handlePlan)
			r.With(publish).Post("/publish", h.handlePublish)
			r.With(publish).Post("/generate", h.handleGenerate)
			r.With(publish).Post("/close", h.handleClose)
			r.With(read).Get("/progress", h.handleProgress)
			r.With(middleware.RequirePermission(auth.PermTasksRead, h.Perms)).Get("/tasks", h.handleListTasks)
		})
	})
	r.Route("/questionnaires", func(r chi.Router) {
		r.With(read).Get("/", h.handleListQuestionnaires)
		r.With(manage).Post("/", h.handleCreateQuestionnaire)
		r.With(read).Get("/{questionnaireID}", h.handleGetQuestionnaire)
		r.With(manage).Delete("/{questionnaireID}", h.handleDeleteQuestionnaire)
	})
}

type campaignRequest struct {
	Name                string                          `json:"name"`
	Description         string                          `json:"description"`
	GroupID             string                          `json:"groupId"`
	Kind                string                          `json:"kind"`
	QuestionnaireIDs    []string                        `json:"questionnaireIds"`
	DocumentRef         string                          `json:"documentRef"`
	CalendarID          string                          `json:"calendarId"`
	DaysToInitiate      int                             `json:"daysToInitiate"`
	DaysToClose         int                             `json:"daysToClose"`
	ReminderCount       int                             `json:"reminderCount"`
	ExcludedEmployeeIDs []string                        `json:"excludedEmployeeIds"`
	ExcludeShortTenure  bool                            `json:"excludeShortTenure"`
	PublishMode         string                          `json:"publishMode"`
	Overrides           []calendar.PeriodTimingOverride `json:"periodOverrides"`
}

func (p campaignRequest) toCampaign() campaign.Campaign {
	return campaign.Campaign{
		Name:                p.Name,
		Description:         p.Description,
		GroupID:             p.GroupID,
		Kind:                p.Kind,
		QuestionnaireIDs:    p.QuestionnaireIDs,
		DocumentRef:         p.DocumentRef,
		CalendarID:          p.CalendarID,
		ExcludedEmployeeIDs: p.ExcludedEmployeeIDs,
		ExcludeShortTenure:  p.ExcludeShortTenure,
		PublishMode:         p.PublishMode,
		Defaults: calendar.TimingDefaults{
			DaysToInitiate: p.DaysToInitiate,
			DaysToClose:    p.DaysToClose,
			ReminderCount:  p.ReminderCount,
		},
	}
}

// requireUser unpacks the authenticated caller or writes the 401.
func requireUser(w http.ResponseWriter, r *http.Request, reqID string) (auth.UserContext, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
	}
	return user, ok
}

// record writes an audit row for a campaign mutation. Failures are logged
// and never block the response.
func (h *Handler) record(r *http.Request, user auth.UserContext, action, campaignID, reqID string, before, after any) {
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, action, "campaign", campaignID, reqID, shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}

// failCampaignError translates the campaign domain errors to the response
// taxonomy. Returns false if the error was not recognized so the caller can
// fall back to its own 500.
func failCampaignError(w http.ResponseWriter, err error, requestID string) bool {
	switch {
	case errors.Is(err, campaign.ErrCampaignNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "campaign not found", requestID)
	case errors.Is(err, campaign.ErrInvalidCampaign):
		api.Fail(w, http.StatusBadRequest, "invalid_campaign", err.Error(), requestID)
	case errors.Is(err, campaign.ErrPeriodNotInCalendar):
		api.Fail(w, http.StatusBadRequest, "invalid_period", err.Error(), requestID)
	case errors.Is(err, campaign.ErrNotDraft):
		api.Fail(w, http.StatusConflict, "not_draft", "structural fields are locked after publish", requestID)
	case errors.Is(err, campaign.ErrGroupImmutable):
		api.Fail(w, http.StatusConflict, "group_immutable", "group cannot change once evaluations exist", requestID)
	case errors.Is(err, campaign.ErrAlreadyClosed):
		api.Fail(w, http.StatusConflict, "campaign_closed", "campaign is closed", requestID)
	case errors.Is(err, group.ErrGroupNotFound):
		api.Fail(w, http.StatusBadRequest, "unknown_group", "group does not exist", requestID)
	case errors.Is(err, calendar.ErrCalendarNotFound):
		api.Fail(w, http.StatusBadRequest, "unknown_calendar", "calendar does not exist", requestID)
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

	page := shared.ParsePagination(r, 50, 200)
	campaigns, err := h.Service.List(r.Context(), user.TenantID, r.URL.Query().Get("status"), page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "campaign_list_failed", "failed to list campaigns", reqID)
		return
	}
	api.Success(w, campaigns, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	var payload campaignRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	c := payload.toCampaign()
	c.OwnerUserID = user.UserID
	id, err := h.Service.Create(r.Context(), user.TenantID, c)
	if err != nil {
		if !failCampaignError(w, err, reqID) {
			api.Fail(w, http.StatusInternalServerError, "campaign_create_failed", "failed to create campaign", reqID)
		}
		return
	}

	if len(payload.Overrides) > 0 {
		if err := h.Service.BindPeriods(r.Context(), user.TenantID, id, payload.Overrides); err != nil {
			if !failCampaignError(w, err, reqID) {
				api.Fail(w, http.StatusInternalServerError, "campaign_create_failed", "failed to bind periods", reqID)
			}
			return
		}
	}

	h.record(r, user, "campaigns.create", id, reqID, nil, payload)
	api.Created(w, map[string]string{"id": id}, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	c, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "campaignID"))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "campaign not found", reqID)
		return
	}
	api.Success(w, c, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	campaignID := chi.URLParam(r, "campaignID")
	existing, err := h.Service.Get(r.Context(), user.TenantID, campaignID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "campaign not found", reqID)
		return
	}

	var payload campaignRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	updated := payload.toCampaign()
	updated.OwnerUserID = existing.OwnerUserID
	if err := h.Service.Update(r.Context(), user.TenantID, campaignID, updated); err != nil {
		if !failCampaignError(w, err, reqID) {
			api.Fail(w, http.StatusInternalServerError, "campaign_update_failed", "failed to update campaign", reqID)
		}
		return
	}

	h.record(r, user, "campaigns.update", campaignID, reqID, existing, payload)
	api.Success(w, map[string]string{"id": campaignID}, reqID)
}

// handlePlan binds calendar periods to the campaign with optional per-period
// timing overrides. Rebinding while the campaign is in draft replaces the
// previous selection.
func (h *Handler) handlePlan(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	var payload struct {
		Periods []calendar.PeriodTimingOverride `json:"periods"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if len(payload.Periods) == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "at least one period is required", reqID)
		return
	}

	campaignID := chi.URLParam(r, "campaignID")
	if err := h.Service.BindPeriods(r.Context(), user.TenantID, campaignID, payload.Periods); err != nil {
		if !failCampaignError(w, err, reqID) {
			api.Fail(w, http.StatusInternalServerError, "campaign_plan_failed", "failed to bind periods", reqID)
		}
		return
	}
	api.Success(w, map[string]any{"campaignId": campaignID, "periods": len(payload.Periods)}, reqID)
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}
	campaignID := chi.URLParam(r, "campaignID")

	idempotencyKey := r.Header.Get("Idempotency-Key")
	requestHash := middleware.RequestHash([]byte(campaignID))
	if idempotencyKey != "" {
		stored, found, err := h.Idem.Check(r.Context(), user.TenantID, user.UserID, "campaigns.publish", idempotencyKey, requestHash)
		if err != nil {
			if errors.Is(err, middleware.ErrIdempotencyConflict) {
				api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used for a different request", reqID)
				return
			}
			slog.Warn("idempotency check failed", "err", err)
		}
		if found {
			api.Success(w, json.RawMessage(stored), reqID)
			return
		}
	}

	result, err := h.Service.Publish(r.Context(), user.TenantID, campaignID, user.UserID, time.Now())
	if err != nil {
		if !failCampaignError(w, err, reqID) {
			api.Fail(w, http.StatusInternalServerError, "campaign_publish_failed", "failed to publish campaign", reqID)
		}
		return
	}

	h.record(r, user, "campaigns.publish", campaignID, reqID, nil, result)

	if idempotencyKey != "" {
		payload, err := json.Marshal(result)
		if err != nil {
			slog.Warn("publish response marshal failed", "err", err)
		} else if err := h.Idem.Save(r.Context(), user.TenantID, user.UserID, "campaigns.publish", idempotencyKey, requestHash, payload); err != nil {
			slog.Warn("idempotency save failed", "err", err)
		}
	}

	api.Success(w, result, reqID)
}

// handleGenerate re-runs evaluation generation for an active campaign.
// Generation skips employees that already have a row, so retrying after a
// partial failure only fills the gaps.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}
	campaignID := chi.URLParam(r, "campaignID")

	result, err := h.Service.Generate(r.Context(), user.TenantID, campaignID, user.UserID, time.Now())
	if err != nil {
		if !failCampaignError(w, err, reqID) {
			api.Fail(w, http.StatusInternalServerError, "campaign_generate_failed", "failed to generate evaluations", reqID)
		}
		return
	}

	h.record(r, user, "campaigns.generate", campaignID, reqID, nil, result)
	api.Success(w, result, reqID)
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}
	campaignID := chi.URLParam(r, "campaignID")

	if err := h.Service.Close(r.Context(), user.TenantID, campaignID); err != nil {
		if !failCampaignError(w, err, reqID) {
			api.Fail(w, http.StatusInternalServerError, "campaign_close_failed", "failed to close campaign", reqID)
		}
		return
	}

	h.record(r, user, "campaigns.close", campaignID, reqID, nil, nil)
	api.Success(w, map[string]string{"status": campaign.StatusClosed}, reqID)
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	progress, err := h.Service.Progress(r.Context(), user.TenantID, chi.URLParam(r, "campaignID"))
	if err != nil {
		if !failCampaignError(w, err, reqID) {
			api.Fail(w, http.StatusInternalServerError, "campaign_progress_failed", "failed to compute progress", reqID)
		}
		return
	}
	api.Success(w, progress, reqID)
}

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	campaignID := chi.URLParam(r, "campaignID")
	if _, err := h.Service.Get(r.Context(), user.TenantID, campaignID); err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "campaign not found", reqID)
		return
	}
	tasks, err := h.Tasks.ListByCampaign(r.Context(), user.TenantID, campaignID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "task_list_failed", "failed to list tasks", reqID)
		return
	}
	api.Success(w, tasks, reqID)
}

func (h *Handler) handleListQuestionnaires(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	questionnaires, err := h.Service.ListQuestionnaires(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "questionnaire_list_failed", "failed to list questionnaires", reqID)
		return
	}
	api.Success(w, questionnaires, reqID)
}

func (h *Handler) handleCreateQuestionnaire(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	var payload struct {
		Name        string                 `json:"name"`
		RatingScale []campaign.RatingLevel `json:"ratingScale"`
		Questions   []campaign.Question    `json:"questions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	if len(payload.Questions) == 0 {
		v.Add("questions", "at least one question is required")
	}
	if v.Reject(w, reqID) {
		return
	}

	ratingJSON, err := json.Marshal(payload.RatingScale)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid rating scale", reqID)
		return
	}
	questionsJSON, err := json.Marshal(payload.Questions)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid questions", reqID)
		return
	}

	id, err := h.Service.CreateQuestionnaire(r.Context(), user.TenantID, payload.Name, ratingJSON, questionsJSON)
	if err != nil {
		if !failCampaignError(w, err, reqID) {
			api.Fail(w, http.StatusInternalServerError, "questionnaire_create_failed", "failed to create questionnaire", reqID)
		}
		return
	}
	api.Created(w, map[string]string{"id": id}, reqID)
}

func (h *Handler) handleGetQuestionnaire(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	q, err := h.Service.GetQuestionnaire(r.Context(), user.TenantID, chi.URLParam(r, "questionnaireID"))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "questionnaire not found", reqID)
		return
	}
	api.Success(w, q, reqID)
}

func (h *Handler) handleDeleteQuestionnaire(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	if err := h.Service.DeleteQuestionnaire(r.Context(), user.TenantID, chi.URLParam(r, "questionnaireID")); err != nil {
		switch {
		case errors.Is(err, campaign.ErrQuestionnaireInUse):
			api.Fail(w, http.StatusConflict, "questionnaire_in_use", "questionnaire is attached to a campaign", reqID)
		case errors.Is(err, campaign.ErrQuestionnaireNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "questionnaire not found", reqID)
		default:
			api.Fail(w, http.StatusInternalServerError, "questionnaire_delete_failed", "failed to delete questionnaire", reqID)
		}
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}

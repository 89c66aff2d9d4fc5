package calendarshandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"appraise/internal/domain/auth"
	"appraise/internal/domain/calendar"
	"appraise/internal/transport/http/api"
	"appraise/internal/transport/http/middleware"
	"appraise/internal/transport/http/shared"
)

type Handler struct {
	Store *calendar.Store
	Perms middleware.PermissionStore
}

func NewHandler(store *calendar.Store, perms middleware.PermissionStore) *Handler {
	return &Handler{Store: store, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermCalendarsRead, h.Perms)
	manage := middleware.RequirePermission(auth.PermCalendarsManage, h.Perms)
	r.Route("/calendars", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(manage).Post("/", h.handleCreate)
		r.Route("/{calendarID}", func(r chi.Router) {
			r.With(read).Get("/", h.handleGet)
			r.With(manage).Put("/", h.handleUpdate)
			r.With(read).Get("/periods", h.handleListPeriods)
			r.With(manage).Post("/periods", h.handleCreatePeriod)
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

// parentCalendar loads the calendar named in the route or writes the 404.
func (h *Handler) parentCalendar(w http.ResponseWriter, r *http.Request, tenantID, reqID string) (*calendar.Calendar, bool) {
	c, err := h.Store.GetCalendar(r.Context(), tenantID, chi.URLParam(r, "calendarID"))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "calendar not found", reqID)
		return nil, false
	}
	return c, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	calendars, err := h.Store.ListCalendars(r.Context(), user.TenantID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "calendar_list_failed", "failed to list calendars", reqID)
		return
	}
	api.Success(w, calendars, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	var payload calendar.Calendar
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	if v.Reject(w, reqID) {
		return
	}

	id, err := h.Store.CreateCalendar(r.Context(), user.TenantID, payload)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			api.Fail(w, http.StatusConflict, "calendar_exists", "a calendar with this name already exists", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "calendar_create_failed", "failed to create calendar", reqID)
		return
	}
	api.Created(w, map[string]string{"id": id}, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	c, ok := h.parentCalendar(w, r, user.TenantID, reqID)
	if !ok {
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

	calendarID := chi.URLParam(r, "calendarID")
	var payload calendar.Calendar
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	if v.Reject(w, reqID) {
		return
	}

	if err := h.Store.UpdateCalendar(r.Context(), user.TenantID, calendarID, payload); err != nil {
		if errors.Is(err, calendar.ErrCalendarNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "calendar not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "calendar_update_failed", "failed to update calendar", reqID)
		return
	}
	api.Success(w, map[string]string{"id": calendarID}, reqID)
}

func (h *Handler) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}
	if _, ok := h.parentCalendar(w, r, user.TenantID, reqID); !ok {
		return
	}

	periods, err := h.Store.ListPeriods(r.Context(), user.TenantID, chi.URLParam(r, "calendarID"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "period_list_failed", "failed to list periods", reqID)
		return
	}
	api.Success(w, periods, reqID)
}

func (h *Handler) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}
	if _, ok := h.parentCalendar(w, r, user.TenantID, reqID); !ok {
		return
	}

	var payload struct {
		Name      string `json:"name"`
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	start, startOK := v.Date("startDate", payload.StartDate)
	end, endOK := v.Date("endDate", payload.EndDate)
	if startOK && endOK {
		v.DateOrder("startDate", start, "endDate", end)
	}
	if v.Reject(w, reqID) {
		return
	}

	id, err := h.Store.CreatePeriod(r.Context(), user.TenantID, calendar.Period{
		CalendarID: chi.URLParam(r, "calendarID"),
		Name:       payload.Name,
		StartDate:  start,
		EndDate:    end,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "period_create_failed", "failed to create period", reqID)
		return
	}
	api.Created(w, map[string]string{"id": id}, reqID)
}

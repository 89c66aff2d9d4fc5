package groupshandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"appraise/internal/domain/audit"
	"appraise/internal/domain/auth"
	"appraise/internal/domain/group"
	"appraise/internal/transport/http/api"
	"appraise/internal/transport/http/middleware"
	"appraise/internal/transport/http/shared"
)

type Handler struct {
	Service *group.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *group.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermGroupsRead, h.Perms)
	manage := middleware.RequirePermission(auth.PermGroupsManage, h.Perms)
	r.Route("/groups", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(manage).Post("/", h.handleCreate)
		r.Route("/{groupID}", func(r chi.Router) {
			r.With(read).Get("/", h.handleGet)
			r.With(manage).Put("/", h.handleUpdate)
			r.With(manage).Delete("/", h.handleDelete)
			r.With(read).Get("/members", h.handleListMembers)
			r.With(manage).Post("/members", h.handleAddMember)
			r.With(manage).Delete("/members/{employeeID}", h.handleRemoveMember)
			r.With(read).Get("/eligible", h.handleEligiblePreview)
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

// groupNotFound is the shared 404 for every route under /groups/{groupID}.
func groupNotFound(w http.ResponseWriter, reqID string) {
	api.Fail(w, http.StatusNotFound, "not_found", "group not found", reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	groups, err := h.Service.List(r.Context(), user.TenantID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "group_list_failed", "failed to list groups", reqID)
		return
	}
	api.Success(w, groups, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	var payload group.Group
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	v.Enum("status", payload.Status, []string{group.StatusActive, group.StatusArchived}, "must be active or archived")
	if v.Reject(w, reqID) {
		return
	}
	if payload.OwnerUserID == "" {
		payload.OwnerUserID = user.UserID
	}

	id, err := h.Service.Create(r.Context(), user.TenantID, payload)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			api.Fail(w, http.StatusConflict, "group_exists", "a group with this name already exists", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "group_create_failed", "failed to create group", reqID)
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, "groups.create", "group", id, reqID, shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit groups.create failed", "err", err)
	}
	api.Created(w, map[string]string{"id": id}, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	g, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "groupID"))
	if err != nil {
		groupNotFound(w, reqID)
		return
	}
	api.Success(w, g, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	groupID := chi.URLParam(r, "groupID")
	existing, err := h.Service.Get(r.Context(), user.TenantID, groupID)
	if err != nil {
		groupNotFound(w, reqID)
		return
	}

	var payload group.Group
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	v.Enum("status", payload.Status, []string{group.StatusActive, group.StatusArchived}, "must be active or archived")
	if v.Reject(w, reqID) {
		return
	}

	// Blank fields keep their stored values so a rename cannot silently
	// reactivate an archived group or drop its owner.
	if payload.Status == "" {
		payload.Status = existing.Status
	}
	if payload.OwnerUserID == "" {
		payload.OwnerUserID = existing.OwnerUserID
	}

	if err := h.Service.Update(r.Context(), user.TenantID, groupID, payload); err != nil {
		api.Fail(w, http.StatusInternalServerError, "group_update_failed", "failed to update group", reqID)
		return
	}
	api.Success(w, map[string]string{"id": groupID}, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	groupID := chi.URLParam(r, "groupID")
	if err := h.Service.Delete(r.Context(), user.TenantID, groupID); err != nil {
		switch {
		case errors.Is(err, group.ErrGroupInUse):
			api.Fail(w, http.StatusConflict, "group_in_use", "group is referenced by campaigns", reqID)
		case errors.Is(err, group.ErrGroupNotFound):
			groupNotFound(w, reqID)
		default:
			api.Fail(w, http.StatusInternalServerError, "group_delete_failed", "failed to delete group", reqID)
		}
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, "groups.delete", "group", groupID, reqID, shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit groups.delete failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	members, err := h.Service.ListMembers(r.Context(), user.TenantID, chi.URLParam(r, "groupID"))
	if err != nil {
		if errors.Is(err, group.ErrGroupNotFound) {
			groupNotFound(w, reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "member_list_failed", "failed to list members", reqID)
		return
	}
	api.Success(w, members, reqID)
}

func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	var payload struct {
		EmployeeID string `json:"employeeId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employee id is required")
	if v.Reject(w, reqID) {
		return
	}

	groupID := chi.URLParam(r, "groupID")
	if err := h.Service.AddMember(r.Context(), user.TenantID, groupID, payload.EmployeeID, user.UserID); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.Is(err, group.ErrGroupNotFound):
			groupNotFound(w, reqID)
		case errors.Is(err, group.ErrMemberExists):
			api.Fail(w, http.StatusConflict, "member_exists", "employee is already a group member", reqID)
		case errors.As(err, &pgErr) && pgErr.Code == "23503":
			api.Fail(w, http.StatusBadRequest, "unknown_employee", "employee does not exist", reqID)
		default:
			api.Fail(w, http.StatusInternalServerError, "member_add_failed", "failed to add member", reqID)
		}
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, "groups.member.add", "group", groupID, reqID, shared.ClientIP(r), nil, map[string]string{"employeeId": payload.EmployeeID}); err != nil {
		slog.Warn("audit groups.member.add failed", "err", err)
	}
	api.Created(w, map[string]string{"groupId": groupID, "employeeId": payload.EmployeeID}, reqID)
}

func (h *Handler) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	groupID := chi.URLParam(r, "groupID")
	employeeID := chi.URLParam(r, "employeeID")
	if err := h.Service.RemoveMember(r.Context(), user.TenantID, groupID, employeeID); err != nil {
		if errors.Is(err, group.ErrGroupNotFound) {
			groupNotFound(w, reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "member_remove_failed", "failed to remove member", reqID)
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, "groups.member.remove", "group", groupID, reqID, shared.ClientIP(r), map[string]string{"employeeId": employeeID}, nil); err != nil {
		slog.Warn("audit groups.member.remove failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "removed"}, reqID)
}

// rulesFromQuery reads exclusion rules off the preview query string:
// exclude carries comma separated employee ids and excludeShortTenure
// toggles the tenure rule.
func rulesFromQuery(q url.Values) group.ExclusionRules {
	rules := group.ExclusionRules{
		ExcludeTenureUnderOneYear: q.Get("excludeShortTenure") == "true",
	}
	for _, id := range strings.Split(q.Get("exclude"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			rules.ExcludedEmployeeIDs = append(rules.ExcludedEmployeeIDs, id)
		}
	}
	return rules
}

// handleEligiblePreview applies campaign-style exclusion rules to the
// roster without touching any campaign, so operators can check who a
// publish would cover.
func (h *Handler) handleEligiblePreview(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	rules := rulesFromQuery(r.URL.Query())
	members, rosterTotal, err := h.Service.EligibleMembers(r.Context(), user.TenantID, chi.URLParam(r, "groupID"), rules, time.Now())
	if err != nil {
		if errors.Is(err, group.ErrGroupNotFound) {
			groupNotFound(w, reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "eligible_preview_failed", "failed to resolve eligible members", reqID)
		return
	}

	api.Success(w, map[string]any{
		"eligible":    members,
		"rosterTotal": rosterTotal,
		"excluded":    rosterTotal - len(members),
	}, reqID)
}

package corehandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"appraise/internal/domain/audit"
	"appraise/internal/domain/auth"
	"appraise/internal/domain/core"
	"appraise/internal/transport/http/api"
	"appraise/internal/transport/http/middleware"
	"appraise/internal/transport/http/shared"
)

type Handler struct {
	Service *core.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *core.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	empRead := middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)
	empWrite := middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)
	orgRead := middleware.RequirePermission(auth.PermOrgRead, h.Perms)
	orgWrite := middleware.RequirePermission(auth.PermOrgWrite, h.Perms)

	r.Get("/me", h.handleMe)
	r.Route("/employees", func(r chi.Router) {
		r.With(empRead).Get("/", h.handleListEmployees)
		r.With(empWrite).Post("/", h.handleCreateEmployee)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.With(empRead).Get("/", h.handleGetEmployee)
			r.With(empWrite).Put("/", h.handleUpdateEmployee)
		})
	})
	r.Route("/departments", func(r chi.Router) {
		r.With(orgRead).Get("/", h.handleListDepartments)
		r.With(orgWrite).Post("/", h.handleCreateDepartment)
	})
	r.Route("/org", func(r chi.Router) {
		r.Use(orgRead)
		r.Get("/roles", h.handleListRoles)
		r.Get("/permissions", h.handleListPermissions)
	})
}

func requireUser(w http.ResponseWriter, r *http.Request, reqID string) (auth.UserContext, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
	}
	return user, ok
}

func viewerOf(user auth.UserContext) core.Viewer {
	return core.Viewer{UserID: user.UserID, RoleName: user.RoleName}
}

// record writes an employee audit event; failures are logged, not surfaced.
func (h *Handler) record(r *http.Request, user auth.UserContext, action, employeeID, reqID string, before, after any) {
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, action, "employee", employeeID, reqID, shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	// A token can outlive its account; treat a vanished user as unauthenticated.
	if exists, err := h.Service.UserExists(r.Context(), user.TenantID, user.UserID); err != nil || !exists {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	// Accounts without an employee record (system admins) get a null profile.
	emp, err := h.Service.GetEmployeeByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		emp = nil
	}

	profile := map[string]any{
		"user": map[string]string{
			"id":       user.UserID,
			"tenantId": user.TenantID,
			"roleId":   user.RoleID,
			"role":     user.RoleName,
		},
		"employee": emp,
	}
	api.Success(w, profile, reqID)
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	employees, err := h.Service.ListEmployees(r.Context(), user.TenantID, r.URL.Query().Get("status"), viewerOf(user))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_list_failed", "failed to list employees", reqID)
		return
	}
	api.Success(w, employees, reqID)
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	emp, err := h.Service.GetEmployee(r.Context(), user.TenantID, chi.URLParam(r, "employeeID"), viewerOf(user))
	switch {
	case errors.Is(err, core.ErrEmployeeHidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
		return
	}
	api.Success(w, emp, reqID)
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	var emp core.Employee
	if err := json.NewDecoder(r.Body).Decode(&emp); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("firstName", emp.FirstName, "first name is required")
	v.Required("lastName", emp.LastName, "last name is required")
	v.Required("email", emp.Email, "email is required")
	v.Enum("status", emp.Status, []string{core.EmployeeStatusActive, core.EmployeeStatusInactive}, "must be active or inactive")
	if v.Reject(w, reqID) {
		return
	}

	id, err := h.Service.CreateEmployee(r.Context(), user.TenantID, emp)
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == "23505":
		api.Fail(w, http.StatusConflict, "employee_exists", "employee email or number already exists", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "employee_create_failed", "failed to create employee", reqID)
		return
	}

	h.record(r, user, "core.employee.create", id, reqID, nil, emp)
	api.Created(w, map[string]string{"id": id}, reqID)
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	var emp core.Employee
	if err := json.NewDecoder(r.Body).Decode(&emp); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	previous, err := h.Service.UpdateEmployee(r.Context(), user.TenantID, employeeID, emp)
	switch {
	case errors.Is(err, core.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "employee_update_failed", "failed to update employee", reqID)
		return
	}

	// A reporting line move gets its own event in the trail.
	if previous.ManagerID != emp.ManagerID {
		before := map[string]any{"managerId": previous.ManagerID}
		after := map[string]any{"managerId": emp.ManagerID}
		h.record(r, user, "core.employee.manager_change", employeeID, reqID, before, after)
	}
	h.record(r, user, "core.employee.update", employeeID, reqID, previous, emp)

	api.Success(w, map[string]string{"id": employeeID}, reqID)
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	page := shared.ParsePagination(r, 100, 500)
	departments, err := h.Service.ListDepartments(r.Context(), user.TenantID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_list_failed", "failed to list departments", reqID)
		return
	}
	api.Success(w, departments, reqID)
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}

	var dept core.Department
	if err := json.NewDecoder(r.Body).Decode(&dept); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("name", dept.Name, "name is required")
	if v.Reject(w, reqID) {
		return
	}

	id, err := h.Service.CreateDepartment(r.Context(), user.TenantID, dept)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_create_failed", "failed to create department", reqID)
		return
	}
	api.Created(w, map[string]string{"id": id}, reqID)
}

func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := requireUser(w, r, reqID)
	if !ok {
		return
	}
	roles, err := h.Service.ListRoles(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "role_list_failed", "failed to list roles", reqID)
		return
	}
	api.Success(w, roles, reqID)
}

func (h *Handler) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if _, ok := requireUser(w, r, reqID); !ok {
		return
	}
	permissions, err := h.Service.ListPermissions(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "permission_list_failed", "failed to list permissions", reqID)
		return
	}
	api.Success(w, permissions, reqID)
}

package authhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"appraise/internal/domain/auth"
	"appraise/internal/domain/notifications"
	"appraise/internal/transport/http/api"
	"appraise/internal/transport/http/middleware"
)

// Handler exposes the credential endpoints. Flow logic lives in
// auth.Service; this layer decodes payloads and maps errors to responses.
type Handler struct {
	Auth     *auth.Service
	Mailer   notifications.Mailer
	MailFrom string
	BaseURL  string
}

func NewHandler(authSvc *auth.Service, mailer notifications.Mailer, mailFrom, baseURL string) *Handler {
	return &Handler{Auth: authSvc, Mailer: mailer, MailFrom: mailFrom, BaseURL: baseURL}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfaCode"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Post("/auth/refresh", h.handleRefresh)
	r.Post("/auth/mfa/setup", h.handleMFASetup)
	r.Post("/auth/mfa/enable", h.handleMFAEnable)
	r.Post("/auth/mfa/disable", h.handleMFADisable)
	r.Post("/auth/request-reset", h.handleRequestReset)
	r.Post("/auth/reset", h.handleResetPassword)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	session, err := h.Auth.Login(r.Context(), payload.Email, payload.Password, payload.MFACode)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password", reqID)
		return
	case errors.Is(err, auth.ErrMFARequired):
		api.Fail(w, http.StatusUnauthorized, "mfa_required", "mfa code required", reqID)
		return
	case errors.Is(err, auth.ErrMFAInvalid):
		api.Fail(w, http.StatusUnauthorized, "mfa_invalid", "invalid mfa code", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "login_failed", "failed to start session", reqID)
		return
	}

	user := session.User
	api.Success(w, map[string]any{
		"token": session.Token,
		"user":  map[string]string{"id": user.ID, "tenantId": user.TenantID, "roleId": user.RoleID, "role": user.RoleName},
	}, reqID)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if user, ok := middleware.GetUser(r.Context()); ok {
		if err := h.Auth.Logout(r.Context(), user.UserID, user.SessionID); err != nil {
			slog.Warn("logout session revoke failed", "userId", user.UserID, "err", err)
		}
	}
	api.Success(w, map[string]string{"status": "logged_out"}, reqID)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	raw, ok := bearerToken(r)
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	token, err := h.Auth.Refresh(r.Context(), raw)
	switch {
	case errors.Is(err, auth.ErrTokenInvalid):
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	case errors.Is(err, auth.ErrSessionInvalid):
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "session expired", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "refresh_failed", "failed to rotate session", reqID)
		return
	}
	api.Success(w, map[string]any{"token": token}, reqID)
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", false
	}
	return token, true
}

func (h *Handler) handleMFASetup(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	secret, otpauthURL, err := h.Auth.MFASetup(r.Context(), user.UserID)
	switch {
	case errors.Is(err, auth.ErrMFAUnavailable):
		api.Fail(w, http.StatusBadRequest, "mfa_unavailable", "mfa requires encryption key", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "mfa_setup_failed", "failed to generate mfa secret", reqID)
		return
	}
	api.Success(w, map[string]string{"secret": secret, "otpauthUrl": otpauthURL}, reqID)
}

func (h *Handler) handleMFAEnable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, true)
}

func (h *Handler) handleMFADisable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, false)
}

func (h *Handler) toggleMFA(w http.ResponseWriter, r *http.Request, enable bool) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload mfaCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	var err error
	if enable {
		err = h.Auth.EnableMFA(r.Context(), user.UserID, payload.Code)
	} else {
		err = h.Auth.DisableMFA(r.Context(), user.UserID, payload.Code)
	}
	switch {
	case errors.Is(err, auth.ErrMFAUnavailable):
		api.Fail(w, http.StatusBadRequest, "mfa_unavailable", "mfa requires encryption key", reqID)
		return
	case errors.Is(err, auth.ErrMFANotConfigured):
		api.Fail(w, http.StatusBadRequest, "mfa_missing", "mfa setup required", reqID)
		return
	case errors.Is(err, auth.ErrMFAInvalid):
		api.Fail(w, http.StatusBadRequest, "mfa_invalid", "invalid mfa code", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "mfa_update_failed", "failed to update mfa", reqID)
		return
	}

	status := "disabled"
	if enable {
		status = "enabled"
	}
	api.Success(w, map[string]string{"status": status}, reqID)
}

func (h *Handler) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload resetRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	token, err := h.Auth.StartPasswordReset(r.Context(), payload.Email)
	if err != nil {
		slog.Warn("password reset start failed", "err", err)
	}
	if token != "" && h.Mailer != nil {
		body := buildResetEmailMessage(buildResetLink(h.BaseURL, token), auth.ResetTokenTTL)
		to := strings.ToLower(strings.TrimSpace(payload.Email))
		if err := h.Mailer.Send(r.Context(), h.MailFrom, to, "Password reset", body); err != nil {
			slog.Warn("password reset email failed", "err", err)
		}
	}

	// Same response whether or not the address exists.
	api.Success(w, map[string]string{"status": "reset_requested"}, reqID)
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if err := auth.ValidatePassword(payload.NewPassword); err != nil {
		api.Fail(w, http.StatusBadRequest, "weak_password", err.Error(), reqID)
		return
	}

	err := h.Auth.CompletePasswordReset(r.Context(), payload.Token, payload.NewPassword)
	switch {
	case errors.Is(err, auth.ErrResetTokenInvalid):
		api.Fail(w, http.StatusBadRequest, "invalid_token", "invalid or expired token", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "update_failed", "failed to update password", reqID)
		return
	}
	api.Success(w, map[string]string{"status": "password_reset"}, reqID)
}

// buildResetLink points the email recipient at the frontend reset page.
// A missing or unusable base URL falls back to the local default.
func buildResetLink(baseURL, token string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		parsed = &url.URL{Scheme: "http", Host: "localhost:8080"}
	}
	parsed.Path = path.Join(parsed.Path, "reset")
	query := parsed.Query()
	query.Set("token", token)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func buildResetEmailMessage(link string, ttl time.Duration) string {
	hours := int(ttl.Hours())
	if hours < 1 {
		hours = 1
	}
	return fmt.Sprintf(
		"A password reset was requested for your account.\n\nReset your password: %s\n\nThe link expires in %d hour(s). If you did not request it, you can ignore this email.",
		link, hours,
	)
}

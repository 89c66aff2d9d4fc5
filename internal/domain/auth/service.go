package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpIssuer = "Appraise"

	// ResetTokenTTL bounds how long a password reset link stays usable.
	ResetTokenTTL = 2 * time.Hour
)

// Flow errors the transport layer maps onto HTTP responses.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMFARequired        = errors.New("mfa code required")
	ErrMFAInvalid         = errors.New("invalid mfa code")
	ErrMFAUnavailable     = errors.New("mfa requires encryption key")
	ErrMFANotConfigured   = errors.New("mfa setup required")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrSessionInvalid     = errors.New("session expired or revoked")
	ErrResetTokenInvalid  = errors.New("invalid or expired reset token")
)

// SecretCipher seals TOTP secrets at rest; platform/crypto satisfies it.
type SecretCipher interface {
	Configured() bool
	EncryptString(value string) ([]byte, error)
	DecryptString(ciphertext []byte) (string, error)
}

// Service owns the credential, session and MFA flows. The signing secret
// and session lifetime are fixed at construction.
type Service struct {
	store  *Store
	cipher SecretCipher
	secret string
	ttl    time.Duration
}

func NewService(store *Store, cipher SecretCipher, jwtSecret string, sessionTTL time.Duration) *Service {
	return &Service{store: store, cipher: cipher, secret: jwtSecret, ttl: sessionTTL}
}

// Session is an issued token plus the identity baked into it.
type Session struct {
	Token string
	User  AuthUser
}

// Login checks the password and, when the account requires it, the TOTP
// code, then opens a revocable session and signs a token bound to it.
func (s *Service) Login(ctx context.Context, email, password, mfaCode string) (Session, error) {
	user, err := s.store.FindActiveUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if user.MFAEnabled {
		if mfaCode == "" {
			return Session{}, ErrMFARequired
		}
		secret, err := s.unsealTOTPSecret(user.MFASecretEnc)
		if err != nil || !totp.Validate(mfaCode, secret) {
			return Session{}, ErrMFAInvalid
		}
	}

	token, err := s.openSession(ctx, user)
	if err != nil {
		return Session{}, err
	}
	if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("update last_login failed", "userId", user.ID, "err", err)
	}
	return Session{Token: token, User: user}, nil
}

func (s *Service) openSession(ctx context.Context, user AuthUser) (string, error) {
	sessionID, err := randomToken()
	if err != nil {
		return "", err
	}
	if err := s.store.CreateSession(ctx, user.ID, HashToken(sessionID), time.Now().Add(s.ttl)); err != nil {
		return "", err
	}
	return GenerateToken(s.secret, Claims{
		UserID:    user.ID,
		TenantID:  user.TenantID,
		RoleID:    user.RoleID,
		RoleName:  user.RoleName,
		SessionID: sessionID,
	}, s.ttl)
}

// Refresh verifies the presented token still maps to a live session,
// rotates the session and signs a replacement token.
func (s *Service) Refresh(ctx context.Context, tokenString string) (string, error) {
	claims, err := ParseToken(s.secret, tokenString)
	if err != nil {
		return "", ErrTokenInvalid
	}
	valid, err := s.store.SessionValid(ctx, claims.UserID, HashToken(claims.SessionID))
	if err != nil || !valid {
		return "", ErrSessionInvalid
	}

	next, err := randomToken()
	if err != nil {
		return "", err
	}
	if err := s.store.RotateSession(ctx, claims.UserID, HashToken(claims.SessionID), HashToken(next), time.Now().Add(s.ttl)); err != nil {
		return "", err
	}
	return GenerateToken(s.secret, Claims{
		UserID:    claims.UserID,
		TenantID:  claims.TenantID,
		RoleID:    claims.RoleID,
		RoleName:  claims.RoleName,
		SessionID: next,
	}, s.ttl)
}

// Logout revokes the session; tokens signed for it stop working at the
// next session check.
func (s *Service) Logout(ctx context.Context, userID, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.store.RevokeSession(ctx, userID, HashToken(sessionID))
}

// SessionValid satisfies the transport middleware's session check.
func (s *Service) SessionValid(ctx context.Context, userID, tokenHash string) (bool, error) {
	return s.store.SessionValid(ctx, userID, tokenHash)
}

// MFASetup generates a fresh TOTP secret and stores it sealed but not yet
// enabled; EnableMFA flips it on once the user proves they can produce codes.
func (s *Service) MFASetup(ctx context.Context, userID string) (secret, otpauthURL string, err error) {
	if !s.mfaReady() {
		return "", "", ErrMFAUnavailable
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: userID,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return "", "", err
	}
	sealed, err := s.cipher.EncryptString(key.Secret())
	if err != nil {
		return "", "", err
	}
	if err := s.store.UpdateMFASecret(ctx, userID, sealed); err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

func (s *Service) EnableMFA(ctx context.Context, userID, code string) error {
	return s.setMFA(ctx, userID, code, true)
}

func (s *Service) DisableMFA(ctx context.Context, userID, code string) error {
	return s.setMFA(ctx, userID, code, false)
}

func (s *Service) setMFA(ctx context.Context, userID, code string, enabled bool) error {
	if !s.mfaReady() {
		return ErrMFAUnavailable
	}
	sealed, err := s.store.GetMFASecret(ctx, userID)
	if err != nil || len(sealed) == 0 {
		return ErrMFANotConfigured
	}
	secret, err := s.cipher.DecryptString(sealed)
	if err != nil {
		return ErrMFAInvalid
	}
	if !totp.Validate(code, secret) {
		return ErrMFAInvalid
	}
	return s.store.SetMFAEnabled(ctx, userID, enabled)
}

func (s *Service) mfaReady() bool {
	return s.cipher != nil && s.cipher.Configured()
}

// unsealTOTPSecret tolerates an unconfigured cipher for setups that stored
// the seed in the clear before a key was provisioned.
func (s *Service) unsealTOTPSecret(sealed []byte) (string, error) {
	if s.mfaReady() {
		return s.cipher.DecryptString(sealed)
	}
	return string(sealed), nil
}

// StartPasswordReset issues a reset token when the address maps to an
// active user. An empty token with nil error means no such account;
// callers must answer identically either way.
func (s *Service) StartPasswordReset(ctx context.Context, email string) (string, error) {
	userID, err := s.store.UserIDByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", nil
	}
	token, err := randomToken()
	if err != nil {
		return "", err
	}
	if err := s.store.CreatePasswordReset(ctx, userID, HashToken(token), time.Now().Add(ResetTokenTTL)); err != nil {
		return "", err
	}
	return token, nil
}

// CompletePasswordReset consumes the token, rewrites the password and
// closes every live session for that user.
func (s *Service) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	tokenHash := HashToken(token)
	userID, err := s.store.PasswordResetUserID(ctx, tokenHash)
	if err != nil {
		return ErrResetTokenInvalid
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdateUserPassword(ctx, userID, hash); err != nil {
		return err
	}
	if err := s.store.MarkPasswordResetUsed(ctx, tokenHash); err != nil {
		slog.Warn("password reset mark used failed", "err", err)
	}
	if err := s.store.RevokeUserSessions(ctx, userID); err != nil {
		slog.Warn("password reset session revoke failed", "userId", userID, "err", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

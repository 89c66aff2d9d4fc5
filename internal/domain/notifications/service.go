package notifications

import (
	"context"
	"log/slog"
)

// StoreAPI is the persistence slice the service depends on; *Store satisfies it.
type StoreAPI interface {
	Insert(ctx context.Context, tenantID, userID, kind, title, body string) error
	ListForUser(ctx context.Context, tenantID, userID string, limit, offset int) ([]Notification, error)
	CountForUser(ctx context.Context, tenantID, userID string) (int, int, error)
	MarkRead(ctx context.Context, tenantID, userID, notificationID string) error
	RecipientEmail(ctx context.Context, tenantID, userID string) (string, error)
	Settings(ctx context.Context, tenantID string) (Settings, error)
	SaveSettings(ctx context.Context, tenantID string, in Settings) error
}

// Mailer delivers a plain text message. The SMTP implementation lives in
// platform/email; tests substitute fakes.
type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	DefaultFrom string
}

func New(store StoreAPI, mailer Mailer, defaultFrom string) *Service {
	if defaultFrom == "" {
		defaultFrom = "no-reply@example.com"
	}
	return &Service{store: store, Mailer: mailer, DefaultFrom: defaultFrom}
}

// Create stores the in-app notification and fans out an email copy when the
// tenant opted in. Email failures are logged and swallowed so lifecycle
// transitions never fail on a mail server.
func (s *Service) Create(ctx context.Context, tenantID, userID, kind, title, body string) error {
	if err := s.store.Insert(ctx, tenantID, userID, kind, title, body); err != nil {
		return err
	}
	s.emailCopy(ctx, tenantID, userID, title, body)
	return nil
}

func (s *Service) emailCopy(ctx context.Context, tenantID, userID, title, body string) {
	if s.Mailer == nil {
		return
	}
	settings, err := s.store.Settings(ctx, tenantID)
	if err != nil || !settings.EmailEnabled {
		return
	}
	from := settings.EmailFrom
	if from == "" {
		from = s.DefaultFrom
	}

	to, err := s.store.RecipientEmail(ctx, tenantID, userID)
	if err != nil {
		slog.Warn("notification email lookup failed", "err", err)
		return
	}
	if to == "" {
		return
	}
	if err := s.Mailer.Send(ctx, from, to, title, body); err != nil {
		slog.Warn("notification email send failed", "err", err)
	}
}

func (s *Service) List(ctx context.Context, tenantID, userID string, limit, offset int) ([]Notification, error) {
	return s.store.ListForUser(ctx, tenantID, userID, limit, offset)
}

// Counts returns the total and unread counts for one user.
func (s *Service) Counts(ctx context.Context, tenantID, userID string) (int, int, error) {
	return s.store.CountForUser(ctx, tenantID, userID)
}

func (s *Service) MarkRead(ctx context.Context, tenantID, userID, notificationID string) error {
	return s.store.MarkRead(ctx, tenantID, userID, notificationID)
}

func (s *Service) GetSettings(ctx context.Context, tenantID string) (Settings, error) {
	return s.store.Settings(ctx, tenantID)
}

func (s *Service) UpdateSettings(ctx context.Context, tenantID string, in Settings) error {
	return s.store.SaveSettings(ctx, tenantID, in)
}

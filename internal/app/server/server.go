package server

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"appraise/internal/domain/audit"
	"appraise/internal/domain/auth"
	"appraise/internal/domain/calendar"
	"appraise/internal/domain/campaign"
	"appraise/internal/domain/core"
	"appraise/internal/domain/evaluation"
	"appraise/internal/domain/group"
	"appraise/internal/domain/notifications"
	"appraise/internal/domain/reports"
	"appraise/internal/domain/schedule"
	"appraise/internal/platform/config"
	"appraise/internal/platform/crypto"
	"appraise/internal/platform/db"
	"appraise/internal/platform/email"
	"appraise/internal/platform/jobs"
	"appraise/internal/platform/metrics"
	adminhandler "appraise/internal/transport/http/handlers/admin"
	audithandler "appraise/internal/transport/http/handlers/audit"
	authhandler "appraise/internal/transport/http/handlers/auth"
	calendarshandler "appraise/internal/transport/http/handlers/calendars"
	campaignshandler "appraise/internal/transport/http/handlers/campaigns"
	corehandler "appraise/internal/transport/http/handlers/core"
	evaluationshandler "appraise/internal/transport/http/handlers/evaluations"
	groupshandler "appraise/internal/transport/http/handlers/groups"
	notificationshandler "appraise/internal/transport/http/handlers/notifications"
	reportshandler "appraise/internal/transport/http/handlers/reports"
	"appraise/internal/transport/http/middleware"
)

// App bundles the assembled pieces so integration tests can build the
// router against a test database without binding a listener.
type App struct {
	Config config.Config
	DB     *pgxpool.Pool
	Router http.Handler
	Jobs   *jobs.Service
}

// New connects, migrates, seeds and wires the full application. The
// returned App owns the pool; call Close when done.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, db.MigrationsDir()); err != nil {
			pool.Close()
			return nil, err
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, err
		}
	}

	cryptoSvc, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, err
	}

	authSvc := auth.NewService(auth.NewStore(pool), cryptoSvc, cfg.JWTSecret, cfg.SessionTTL)
	coreSvc := core.NewService(core.NewStore(pool))
	groupSvc := group.NewService(group.NewStore(pool))
	calendarStore := calendar.NewStore(pool)
	taskStore := schedule.NewStore(pool)
	auditSvc := audit.New(pool)
	collector := metrics.New()
	idemStore := middleware.NewIdempotencyStore(pool)

	mailer := email.New(cfg)
	notifySvc := notifications.New(notifications.NewStore(pool), mailer, cfg.EmailFrom)

	evalSvc := evaluation.NewService(evaluation.NewStore(pool), notifySvc, coreSvc)
	campaignSvc := campaign.NewService(campaign.NewStore(pool), groupSvc, calendarStore, evalSvc, taskStore, coreSvc, notifySvc)
	reportsSvc := reports.NewService(reports.NewStore(pool), campaignSvc)
	jobsSvc := jobs.New(pool, cfg, taskStore, campaignSvc, collector)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	if cfg.MetricsEnabled {
		router.Use(middleware.Metrics(collector))
	}
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.Auth(cfg.JWTSecret, authSvc))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authSvc, mailer, cfg.EmailFrom, cfg.AppBaseURL).RegisterRoutes(r)
		corehandler.NewHandler(coreSvc, coreSvc, auditSvc).RegisterRoutes(r)
		groupshandler.NewHandler(groupSvc, coreSvc, auditSvc).RegisterRoutes(r)
		calendarshandler.NewHandler(calendarStore, coreSvc).RegisterRoutes(r)
		campaignshandler.NewHandler(campaignSvc, taskStore, coreSvc, idemStore, auditSvc).RegisterRoutes(r)
		evaluationshandler.NewHandler(evalSvc, coreSvc, coreSvc, auditSvc).RegisterRoutes(r)
		notificationshandler.NewHandler(notifySvc).RegisterRoutes(r)
		reportshandler.NewHandler(reportsSvc, coreSvc, auditSvc).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc, coreSvc).RegisterRoutes(r)
		adminhandler.NewHandler(jobsSvc, collector, coreSvc, auditSvc).RegisterRoutes(r)
	})

	return &App{Config: cfg, DB: pool, Router: router, Jobs: jobsSvc}, nil
}

func (a *App) Close() {
	a.DB.Close()
}

func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		log.Fatalf("app setup failed: %v", err)
	}
	defer app.Close()

	if err := app.Jobs.Start(ctx); err != nil {
		log.Fatalf("task runner failed: %v", err)
	}
	defer app.Jobs.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", cfg.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "err", err)
	}
}

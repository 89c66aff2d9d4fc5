package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"appraise/internal/domain/campaign"
	"appraise/internal/domain/schedule"
	"appraise/internal/platform/config"
	"appraise/internal/platform/metrics"
)

const JobScheduledTask = "scheduled_task"

// Service owns the background work: a small in-process queue with a
// single worker, fed by a cron sweep that picks up due scheduled tasks.
// Every run is recorded in job_runs so operators can inspect what the
// runner did and why.
type Service struct {
	DB        *pgxpool.Pool
	Cfg       config.Config
	Tasks     *schedule.Store
	Campaigns *campaign.Service
	Metrics   *metrics.Collector
	queue     chan job
	cron      *cron.Cron
}

type job struct {
	Type     string
	TenantID string
	Run      func(context.Context) (any, error)
}

func New(db *pgxpool.Pool, cfg config.Config, tasks *schedule.Store, campaigns *campaign.Service, collector *metrics.Collector) *Service {
	return &Service{
		DB:        db,
		Cfg:       cfg,
		Tasks:     tasks,
		Campaigns: campaigns,
		Metrics:   collector,
		queue:     make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) error {
	go s.worker(ctx)
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.Cfg.TaskRunnerCron, func() { s.sweepDueTasks(ctx) }); err != nil {
		return fmt.Errorf("task runner cron %q: %w", s.Cfg.TaskRunnerCron, err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron scheduler and waits for an in-flight sweep to
// finish. Queued jobs drain until the server context is cancelled.
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Enqueue hands a job to the worker without blocking. When the buffer is
// full the job is dropped and logged; scheduled tasks stay pending until
// marked, so the next sweep picks the dropped work up again.
func (s *Service) Enqueue(jobType, tenantID string, run func(context.Context) (any, error)) {
	j := job{Type: jobType, TenantID: tenantID, Run: run}
	select {
	case s.queue <- j:
	default:
		slog.Warn("job queue full", "jobType", jobType, "tenantId", tenantID)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, tenantID string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, TenantID: tenantID, Run: run})
}

// RunDueTasks flushes everything due right now, synchronously. The admin
// endpoint uses it so operators never have to wait for the next cron tick.
func (s *Service) RunDueTasks(ctx context.Context, now time.Time) (map[string]any, error) {
	due, err := s.Tasks.DuePending(ctx, now, s.Cfg.TaskRunnerBatch)
	if err != nil {
		return nil, err
	}
	executed, failed := 0, 0
	for _, task := range due {
		t := task
		if _, err := s.RunNow(ctx, JobScheduledTask, t.TenantID, func(ctx context.Context) (any, error) {
			return s.executeTask(ctx, t, now)
		}); err != nil {
			failed++
			continue
		}
		executed++
	}
	return map[string]any{"due": len(due), "executed": executed, "failed": failed}, nil
}

func (s *Service) worker(ctx context.Context) {
	for {
		var j job
		select {
		case <-ctx.Done():
			return
		case j = <-s.queue:
		}
		if _, err := s.runJob(ctx, j); err != nil {
			slog.Warn("job run failed", "jobType", j.Type, "tenantId", j.TenantID, "err", err)
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := s.openRun(ctx, j)
	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	s.closeRun(ctx, runID, status, details)
	return details, err
}

// openRun records the run as started. An empty id means recording is
// unavailable; the job still executes, it just leaves no row behind.
func (s *Service) openRun(ctx context.Context, j job) string {
	const query = `
    INSERT INTO job_runs (tenant_id, job_type, status)
    VALUES ($1, $2, 'running')
    RETURNING id`
	var id string
	if err := s.DB.QueryRow(ctx, query, j.TenantID, j.Type).Scan(&id); err != nil {
		slog.Warn("job run insert failed", "jobType", j.Type, "err", err)
		return ""
	}
	return id
}

func (s *Service) closeRun(ctx context.Context, runID, status string, details any) {
	if runID == "" {
		return
	}
	payload, err := json.Marshal(details)
	if err != nil {
		slog.Warn("job details marshal failed", "err", err)
		payload = []byte("{}")
	}
	const query = `
    UPDATE job_runs
    SET status = $2, details_json = $3, completed_at = now()
    WHERE id = $1`
	if _, err := s.DB.Exec(ctx, query, runID, status, payload); err != nil {
		slog.Warn("job run update failed", "runId", runID, "err", err)
	}
}

func (s *Service) sweepDueTasks(ctx context.Context) {
	now := time.Now()
	due, err := s.Tasks.DuePending(ctx, now, s.Cfg.TaskRunnerBatch)
	if err != nil {
		slog.Warn("due task lookup failed", "err", err)
		return
	}
	for _, task := range due {
		t := task
		s.Enqueue(JobScheduledTask, t.TenantID, func(ctx context.Context) (any, error) {
			return s.executeTask(ctx, t, now)
		})
	}
}

func (s *Service) executeTask(ctx context.Context, task schedule.Task, now time.Time) (any, error) {
	details := map[string]any{
		"taskId":     task.ID,
		"taskType":   task.Type,
		"campaignId": task.CampaignID,
	}
	err := s.Campaigns.ExecuteTask(ctx, task, now)
	if s.Metrics != nil {
		s.Metrics.RecordTask(err != nil)
	}
	if err != nil {
		if markErr := s.Tasks.MarkError(ctx, task.ID, err); markErr != nil {
			slog.Warn("task error mark failed", "taskId", task.ID, "err", markErr)
		}
		return details, err
	}
	if err := s.Tasks.MarkExecuted(ctx, task.ID); err != nil {
		slog.Warn("task executed mark failed", "taskId", task.ID, "err", err)
	}
	return details, nil
}

package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jobpal/jobpal-server/internal/application/port"
	"github.com/jobpal/jobpal-server/internal/domain/workflow"
)

// ReNotifyConfig holds configuration for the re-notification sweep
type ReNotifyConfig struct {
	SweepInterval time.Duration
	StaleAfter    time.Duration
}

// DefaultReNotifyConfig returns default configuration
func DefaultReNotifyConfig() ReNotifyConfig {
	return ReNotifyConfig{
		SweepInterval: 1 * time.Hour,
		StaleAfter:    72 * time.Hour,
	}
}

// ReNotifyWorker periodically flags items that have sat untouched for too
// long. A flagged item shows up highlighted on the owner's alert list, so
// overdue reports and unpaid certificate fees do not go unnoticed.
type ReNotifyWorker struct {
	config ReNotifyConfig

	jobRepo          port.JobSearchRepository
	certificateRepo  port.CertificateRepository
	notificationRepo port.NotificationRepository
	logger           *zap.Logger

	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool
	now       func() time.Time
}

// NewReNotifyWorker creates a new re-notification worker
func NewReNotifyWorker(
	config ReNotifyConfig,
	jobRepo port.JobSearchRepository,
	certificateRepo port.CertificateRepository,
	notificationRepo port.NotificationRepository,
	logger *zap.Logger,
) *ReNotifyWorker {
	return &ReNotifyWorker{
		config:           config,
		jobRepo:          jobRepo,
		certificateRepo:  certificateRepo,
		notificationRepo: notificationRepo,
		logger:           logger,
		now:              time.Now,
	}
}

// Start begins the sweep loop
func (w *ReNotifyWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("re-notify worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("ReNotifyWorker started",
		zap.Duration("sweep_interval", w.config.SweepInterval),
		zap.Duration("stale_after", w.config.StaleAfter))

	go w.sweepLoop()

	return nil
}

// Stop gracefully terminates the worker
func (w *ReNotifyWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}

	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	w.logger.Info("ReNotifyWorker stopped")
	return nil
}

// Name returns the worker name for identification
func (w *ReNotifyWorker) Name() string {
	return "ReNotifyWorker"
}

func (w *ReNotifyWorker) sweepLoop() {
	ticker := time.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Sweep loop context cancelled")
			return

		case <-ticker.C:
			if err := w.Sweep(w.ctx); err != nil {
				w.logger.Error("Re-notification sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep flags every stale item once. It is exported so an operator can
// trigger it outside the schedule.
func (w *ReNotifyWorker) Sweep(ctx context.Context) error {
	cutoff := w.now().Add(-w.config.StaleAfter)
	flagged := 0

	activities, err := w.jobRepo.ListAll(ctx, false)
	if err != nil {
		return fmt.Errorf("list activities: %w", err)
	}
	for _, activity := range activities {
		if activity.ReNotifyFlag || !activity.UpdatedAt.Before(cutoff) {
			continue
		}
		if activity.State.Stage() != workflow.StageReportPending &&
			activity.State.Stage() != workflow.StageReturned {
			continue
		}
		if err := w.flagJobSearch(ctx, activity.JobHuntID); err != nil {
			w.logger.Error("Failed to flag activity",
				zap.String("job_hunt_id", activity.JobHuntID), zap.Error(err))
			continue
		}
		flagged++
	}

	requests, err := w.certificateRepo.ListAll(ctx, false)
	if err != nil {
		return fmt.Errorf("list certificate requests: %w", err)
	}
	for _, request := range requests {
		if request.ReNotifyFlag || !request.UpdatedAt.Before(cutoff) {
			continue
		}
		if request.State.Stage() != workflow.StagePaymentPending &&
			request.State.Stage() != workflow.StageReturned {
			continue
		}
		if err := w.flagCertificate(ctx, request.CertificateIssueID); err != nil {
			w.logger.Error("Failed to flag certificate request",
				zap.String("certificate_issue_id", request.CertificateIssueID), zap.Error(err))
			continue
		}
		flagged++
	}

	if flagged > 0 {
		w.logger.Info("Re-notification sweep completed", zap.Int("flagged", flagged))
	}
	return nil
}

func (w *ReNotifyWorker) flagJobSearch(ctx context.Context, jobHuntID string) error {
	if err := w.jobRepo.SetReNotify(ctx, jobHuntID, true); err != nil {
		return err
	}
	return w.notificationRepo.SetReNotifyForEntity(ctx, workflow.KindJobSearch, jobHuntID)
}

func (w *ReNotifyWorker) flagCertificate(ctx context.Context, certificateIssueID string) error {
	if err := w.certificateRepo.SetReNotify(ctx, certificateIssueID, true); err != nil {
		return err
	}
	return w.notificationRepo.SetReNotifyForEntity(ctx, workflow.KindCertificate, certificateIssueID)
}

var _ Worker = (*ReNotifyWorker)(nil)

package services

import (
	"context"
	"time"

	"sacco-hub/internal/core/domain"
	"sacco-hub/internal/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Schedules for the background jobs
const (
	DepositReconcileSpec = "@every 5m"
	MeetingReminderSpec  = "0 8 * * *"
	TokenCleanupSpec     = "30 3 * * *"
)

// CronService runs the periodic maintenance jobs
type CronService struct {
	cron     *cron.Cron
	savings  *SavingsService
	meetings *MeetingService
	auth     *AuthService
	timeout  time.Duration
}

// NewCronService creates a new scheduler. Jobs run in the local timezone.
func NewCronService(savings *SavingsService, meetings *MeetingService, auth *AuthService) *CronService {
	return &CronService{
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{}))),
		savings:  savings,
		meetings: meetings,
		auth:     auth,
		timeout:  2 * time.Minute,
	}
}

// Start registers the jobs and starts the scheduler
func (s *CronService) Start() error {
	jobs := []struct {
		spec string
		name string
		run  func(ctx context.Context) error
	}{
		{DepositReconcileSpec, "expire stale deposits", s.ExpireDeposits},
		{MeetingReminderSpec, "meeting reminders", s.SendMeetingReminders},
		{TokenCleanupSpec, "refresh token cleanup", s.PurgeTokens},
	}

	for _, job := range jobs {
		job := job
		_, err := s.cron.AddFunc(job.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			if err := job.run(ctx); err != nil {
				logger.L().Errorw("❌ Cron job failed", "job", job.name, "error", err)
			}
		})
		if err != nil {
			return err
		}
	}

	s.cron.Start()
	logger.L().Info("🚀 Cron scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	logger.L().Info("🛑 Cron scheduler stopped")
}

// ExpireDeposits fails pending deposits the gateway never confirmed
func (s *CronService) ExpireDeposits(ctx context.Context) error {
	n, err := s.savings.ExpireStaleDeposits(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.L().Infow("⏱️ Expired stale deposits", "count", n)
	}
	return nil
}

// SendMeetingReminders reminds rosters about tomorrow's meetings
func (s *CronService) SendMeetingReminders(ctx context.Context) error {
	n, err := s.meetings.SendReminders(ctx, domain.Clock())
	if err != nil {
		return err
	}
	logger.L().Infow("📅 Meeting reminders sent", "count", n)
	return nil
}

// PurgeTokens removes expired refresh tokens
func (s *CronService) PurgeTokens(ctx context.Context) error {
	n, err := s.auth.PurgeExpiredTokens(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.L().Infow("🧹 Expired refresh tokens removed", "count", n)
	}
	return nil
}

// cronLogger adapts the application logger to cron.Logger
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.L().Debugw(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.L().Errorw(msg, append(keysAndValues, "error", err)...)
}

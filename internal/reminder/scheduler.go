// Package reminder runs the background jobs: the per-minute reminder sweep
// and the nightly analytics snapshot.
//
// Reminders are log-only. There is no push/email channel — the sweep emits a
// structured "reminder due" entry per matching habit, and whatever ships logs
// downstream decides what to do with it.
package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sakif/habitflow/internal/repository"
	"github.com/sakif/habitflow/internal/service"
)

// jobTimeout bounds each cron invocation so a stuck query can't pile up
// overlapping runs.
const jobTimeout = 5 * time.Minute

// Scheduler owns the cron instance and the two registered jobs.
type Scheduler struct {
	cron      *cron.Cron
	habits    repository.HabitRepository
	analytics *service.AnalyticsService
	logger    *slog.Logger

	now func() time.Time // test hook
}

func NewScheduler(habits repository.HabitRepository, analytics *service.AnalyticsService, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.Local)),
		habits:    habits,
		analytics: analytics,
		logger:    logger,
		now:       time.Now,
	}
}

// Start registers the jobs and starts the cron loop:
//   - every minute: sweep for due reminders
//   - 00:05 daily: write analytics snapshots for every active habit
//
// The snapshot job runs shortly after midnight so it captures the completed
// day rather than a partial one.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("* * * * *", s.sweepReminders); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("5 0 * * *", s.writeSnapshots); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// sweepReminders logs a "reminder due" entry for every active habit whose
// reminder time matches the current minute.
func (s *Scheduler) sweepReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	habits, err := s.habits.ListActiveHabits(ctx)
	if err != nil {
		s.logger.Error("reminder sweep failed", slog.String("error", err.Error()))
		return
	}

	nowClock := s.now().Format("15:04")
	for _, h := range habits {
		if !h.ReminderEnabled || h.ReminderTime != nowClock {
			continue
		}
		s.logger.Info("reminder due",
			slog.String("habitID", h.ID),
			slog.String("userID", h.UserID),
			slog.String("habit", h.Name),
			slog.String("time", nowClock),
		)
	}
}

func (s *Scheduler) writeSnapshots() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.analytics.SnapshotAll(ctx); err != nil {
		s.logger.Error("snapshot job failed", slog.String("error", err.Error()))
	}
}

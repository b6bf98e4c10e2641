package backup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ytwatch/internal/model"
	"ytwatch/internal/storage"
)

// scheduledRunTimeout bounds a single scheduled backup run.
const scheduledRunTimeout = 10 * time.Minute

// Scheduler runs backups on the cron schedule stored in settings.
type Scheduler struct {
	svc   *Service
	store storage.Storage
	log   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
}

// NewScheduler creates a scheduler driving svc.
func NewScheduler(svc *Service, store storage.Storage, log *slog.Logger) *Scheduler {
	return &Scheduler{svc: svc, store: store, log: log, cron: cron.New()}
}

// Start applies the stored schedule and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Reschedule(ctx); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Reschedule re-reads settings and replaces the scheduled entry.
// Callers invoke it after every settings update.
func (s *Scheduler) Reschedule(ctx context.Context) error {
	set, err := s.store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}
	if !set.BackupEnabled {
		s.log.Info("scheduled backups disabled")
		return nil
	}

	spec := cronSpec(set.BackupSchedule, set.BackupTime)
	id, err := s.cron.AddFunc(spec, s.runScheduled)
	if err != nil {
		return fmt.Errorf("schedule backup: %w", err)
	}
	s.entryID = id
	s.log.Info("backups scheduled", "schedule", string(set.BackupSchedule), "at", set.BackupTime, "spec", spec)
	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), scheduledRunTimeout)
	defer cancel()

	if _, err := s.svc.Run(ctx); err != nil {
		s.log.Error("scheduled backup", "error", err)
	}
	if n, err := s.svc.CleanupRetention(ctx); err != nil {
		s.log.Error("backup retention cleanup", "error", err)
	} else if n > 0 {
		s.log.Info("old backups removed", "count", n)
	}
}

// cronSpec maps a schedule and an HH:MM time of day onto a cron spec.
// Unparseable times fall back to 02:00.
func cronSpec(schedule model.BackupSchedule, at string) string {
	hour, minute := 2, 0
	if t, err := time.Parse("15:04", at); err == nil {
		hour, minute = t.Hour(), t.Minute()
	}
	switch schedule {
	case model.ScheduleWeekly:
		return fmt.Sprintf("%d %d * * 0", minute, hour)
	case model.ScheduleMonthly:
		return fmt.Sprintf("%d %d 1 * *", minute, hour)
	default:
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}
}

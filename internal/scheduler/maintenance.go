// Package scheduler triggers periodic maintenance on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Job is the work run on every tick.
type Job func(ctx context.Context) error

// Reporter records the outcome of maintenance runs.
type Reporter interface {
	LogMaintenance(action, description string, err error)
}

// MaintenanceScheduler runs a maintenance job on a cron schedule.
type MaintenanceScheduler struct {
	schedule string
	job      Job
	reporter Reporter

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
}

// NewMaintenanceScheduler creates a scheduler. reporter may be nil.
func NewMaintenanceScheduler(schedule string, job Job, reporter Reporter) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		schedule: schedule,
		job:      job,
		reporter: reporter,
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// Start schedules the job and returns immediately. The scheduler stops
// when ctx is cancelled.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() { _ = s.execute(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule maintenance job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	log.Info().
		Str("schedule", s.schedule).
		Time("next_run", s.cron.Entry(entryID).Next).
		Msg("Maintenance scheduler started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.cron.Remove(s.entryID)
	done := s.cron.Stop()
	s.mu.Unlock()

	// The running job may itself need the lock.
	<-done.Done()

	log.Info().Msg("Maintenance scheduler stopped")
}

// RunNow runs the job once, synchronously.
func (s *MaintenanceScheduler) RunNow(ctx context.Context) error {
	return s.execute(ctx)
}

func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the job runs next, or nil when stopped.
func (s *MaintenanceScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}

func (s *MaintenanceScheduler) execute(ctx context.Context) error {
	err := s.job(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Maintenance run failed")
		if s.reporter != nil {
			s.reporter.LogMaintenance("maintenance_enqueue", "Failed to enqueue maintenance tasks", err)
		}
		return err
	}
	log.Debug().Msg("Maintenance tasks enqueued")
	return nil
}

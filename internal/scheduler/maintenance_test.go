package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordingReporter) LogMaintenance(_, _ string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 * * * *"))
	assert.NoError(t, ValidateSchedule("*/5 2 * * 1-5"))
	assert.Error(t, ValidateSchedule("every hour"))
	assert.Error(t, ValidateSchedule("0 0 * * * *"), "seconds field is not accepted")
}

func TestMaintenanceScheduler_StartStop(t *testing.T) {
	s := NewMaintenanceScheduler("0 * * * *", func(context.Context) error { return nil }, nil)

	assert.Nil(t, s.NextRunTime())
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")

	next := s.NextRunTime()
	require.NotNil(t, next)
	assert.Equal(t, 0, next.Minute())
	assert.True(t, next.After(time.Now()))

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRunTime())
	s.Stop()
}

func TestMaintenanceScheduler_InvalidSchedule(t *testing.T) {
	s := NewMaintenanceScheduler("nope", func(context.Context) error { return nil }, nil)
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron schedule 'nope'")
	assert.False(t, s.IsRunning())
}

func TestMaintenanceScheduler_StopsWithContext(t *testing.T) {
	s := NewMaintenanceScheduler("0 * * * *", func(context.Context) error { return nil }, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	cancel()
	assert.Eventually(t, func() bool { return !s.IsRunning() }, 2*time.Second, 10*time.Millisecond)
}

func TestMaintenanceScheduler_RunNow(t *testing.T) {
	var calls atomic.Int32
	reporter := &recordingReporter{}
	failing := errors.New("queue closed")
	fail := false

	s := NewMaintenanceScheduler("0 * * * *", func(context.Context) error {
		calls.Add(1)
		if fail {
			return failing
		}
		return nil
	}, reporter)

	require.NoError(t, s.RunNow(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, reporter.errs)

	fail = true
	assert.ErrorIs(t, s.RunNow(context.Background()), failing)
	require.Len(t, reporter.errs, 1)
	assert.ErrorIs(t, reporter.errs[0], failing)
}

func TestMaintenanceScheduler_StopWhileJobRuns(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	var s *MaintenanceScheduler
	s = NewMaintenanceScheduler("0 * * * *", func(ctx context.Context) error {
		once.Do(func() { close(started) })
		<-release
		s.IsRunning()
		return nil
	}, nil)
	require.NoError(t, s.Start(context.Background()))

	// Fire the registered job every second instead of waiting for the hour.
	s.cron.Schedule(cron.Every(time.Second), s.cron.Entry(s.entryID).Job)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never ran")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return while a job was running")
	}
	assert.False(t, s.IsRunning())
}

package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog/log"
)

// Reporter records the outcome of maintenance runs.
type Reporter interface {
	LogMaintenance(action, description string, err error)
}

type noopReporter struct{}

func (noopReporter) LogMaintenance(string, string, error) {}

func orNoop(report Reporter) Reporter {
	if report == nil {
		return noopReporter{}
	}
	return report
}

// ExpiredTokenPurger deletes refresh tokens that expired at or before now.
type ExpiredTokenPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PurgeExpiredTokensTask removes expired refresh tokens. Expiry is still
// checked whenever a token is used, so this only keeps the table small.
type PurgeExpiredTokensTask struct{}

func (t PurgeExpiredTokensTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "purge_expired_refresh_tokens",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PurgeExpiredTokens deletes expired refresh tokens once and reports the
// number of rows removed.
func PurgeExpiredTokens(ctx context.Context, purger ExpiredTokenPurger, now time.Time) (int64, error) {
	if purger == nil {
		return 0, fmt.Errorf("token purger not configured")
	}
	deleted, err := purger.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("purge expired refresh tokens: %w", err)
	}
	return deleted, nil
}

// PurgeExpiredTokensProcessor creates a processor function for PurgeExpiredTokensTask.
func PurgeExpiredTokensProcessor(purger ExpiredTokenPurger, report Reporter) backlite.QueueProcessor[PurgeExpiredTokensTask] {
	report = orNoop(report)
	return func(ctx context.Context, _ PurgeExpiredTokensTask) error {
		deleted, err := PurgeExpiredTokens(ctx, purger, time.Now())
		if err != nil {
			report.LogMaintenance("purge_expired_refresh_tokens", "Refresh token purge failed", err)
			return err
		}

		log.Info().Int64("deleted", deleted).Msg("Purged expired refresh tokens")
		report.LogMaintenance("purge_expired_refresh_tokens",
			fmt.Sprintf("Removed %d expired refresh tokens", deleted), nil)
		return nil
	}
}

// NewPurgeExpiredTokensQueue creates a backlite queue for token purge tasks.
func NewPurgeExpiredTokensQueue(purger ExpiredTokenPurger, report Reporter) backlite.Queue {
	return backlite.NewQueue(PurgeExpiredTokensProcessor(purger, report))
}

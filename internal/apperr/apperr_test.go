package apperr

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWrap_MatchesSentinel(t *testing.T) {
	base := New(KindConflict, "genre in use")
	err := Wrap(base, "Cannot delete genre '%s'", "Action")

	assert.True(t, errors.Is(err, base))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "Cannot delete genre 'Action'", err.Error())
	assert.Equal(t, "Cannot delete genre 'Action'", MessageOf(err))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", New(KindValidation, "bad"), KindValidation},
		{"wrapped with fmt", fmt.Errorf("outer: %w", New(KindNotFound, "missing")), KindNotFound},
		{"plain error", errors.New("boom"), KindStorage},
		{"storage", Storage(errors.New("disk full"), "save comic"), KindStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestStorage_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Storage(cause, "load user")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load user: connection reset", err.Error())
	assert.Equal(t, "failed to load user", MessageOf(err))
}

func TestThrottled_CarriesRetryAfter(t *testing.T) {
	base := New(KindRateLimited, "Too many login attempts.")
	err := fmt.Errorf("login: %w", Throttled(base, 90*time.Second))

	assert.ErrorIs(t, err, base)
	assert.Equal(t, KindRateLimited, KindOf(err))
	assert.Equal(t, "Too many login attempts.", MessageOf(err))
	assert.Equal(t, 90*time.Second, RetryAfterOf(err))
	assert.Zero(t, RetryAfterOf(base))
	assert.Zero(t, RetryAfterOf(errors.New("boom")))
}

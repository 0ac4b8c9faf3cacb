package auth

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ivyscans/api/internal/apperr"
	"github.com/ivyscans/api/internal/config"
	"github.com/ivyscans/api/internal/entities"
)

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	resp, err := svc.Register(ctx, "alice", "a@x", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.RefreshToken)
	require.NotNil(t, resp.User)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, "a@x", resp.User.Email)
	assert.Equal(t, config.DefaultAvatar, resp.User.Avatar)
	assert.WithinDuration(t, time.Now(), resp.User.JoinDate, 5*time.Second)
	assert.Zero(t, resp.User.ReadingStats)

	tests := []struct {
		name     string
		username string
		email    string
		password string
		wantErr  error
	}{
		{"missing username", "", "b@x", "pw", ErrMissingRegistration},
		{"missing email", "bob", "", "pw", ErrMissingRegistration},
		{"missing password", "bob", "b@x", "", ErrMissingRegistration},
		{"invalid username", "b!", "b@x", "pw", ErrInvalidUsername},
		{"invalid email", "bob", "not-an-email", "pw", ErrInvalidEmail},
		{"email taken", "bob", "a@x", "pw", ErrEmailTaken},
		{"username taken", "alice", "b@x", "pw", ErrUsernameTaken},
		{"email checked before username", "alice", "a@x", "pw", ErrEmailTaken},
		{"password too long", "bob", "b@x", strings.Repeat("p", 80), ErrPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_Register_LookupFailsAfterDuplicateInsert(t *testing.T) {
	ctx := context.Background()
	svc, db := setupTestService(t)

	// Simulate losing the insert race, then a broken connection on the
	// follow-up lookup.
	var lookupsFail atomic.Bool
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:duplicate_user", func(tx *gorm.DB) {
		if tx.Statement.Table == "users" {
			tx.AddError(gorm.ErrDuplicatedKey)
			lookupsFail.Store(true)
		}
	}))
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("test:failing_lookup", func(tx *gorm.DB) {
		if lookupsFail.Load() {
			tx.AddError(errors.New("connection reset"))
		}
	}))

	_, err := svc.Register(ctx, "alice", "a@x.com", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUsernameTaken)
	assert.NotErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	registered, err := svc.Register(ctx, "alice", "a@x", "pw")
	require.NoError(t, err)

	t.Run("session token subject is the user id", func(t *testing.T) {
		resp, err := svc.Login(ctx, "a@x", "pw")
		require.NoError(t, err)

		claims, err := svc.ParseSessionToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, registered.User.ID, claims.Subject)
		assert.Equal(t, registered.User.ID, resp.User.ID)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		_, errWrongPassword := svc.Login(ctx, "a@x", "nope")
		_, errUnknownEmail := svc.Login(ctx, "ghost@x", "pw")

		assert.ErrorIs(t, errWrongPassword, ErrInvalidCredentials)
		assert.ErrorIs(t, errUnknownEmail, ErrInvalidCredentials)
		assert.Equal(t, errWrongPassword.Error(), errUnknownEmail.Error())
	})

	t.Run("missing input", func(t *testing.T) {
		_, err := svc.Login(ctx, "", "pw")
		assert.ErrorIs(t, err, ErrMissingCredentials)
		_, err = svc.Login(ctx, "a@x", "")
		assert.ErrorIs(t, err, ErrMissingCredentials)
	})
}

func TestService_RefreshToken(t *testing.T) {
	ctx := context.Background()
	svc, db := setupTestService(t)

	resp, err := svc.Register(ctx, "alice", "a@x", "pw")
	require.NoError(t, err)

	t.Run("single use", func(t *testing.T) {
		pair, err := svc.RefreshToken(ctx, resp.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.Token)
		assert.NotEqual(t, resp.RefreshToken, pair.RefreshToken)

		_, err = svc.RefreshToken(ctx, resp.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)

		// The rotated token is usable once.
		_, err = svc.RefreshToken(ctx, pair.RefreshToken)
		require.NoError(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		login, err := svc.Login(ctx, "a@x", "pw")
		require.NoError(t, err)
		require.NoError(t, db.Model(&entities.RefreshToken{}).
			Where("token_hash = ?", HashToken(login.RefreshToken)).
			Update("expires_at", time.Now().Add(-time.Minute)).Error)

		_, err = svc.RefreshToken(ctx, login.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := svc.RefreshToken(ctx, "deadbeef")
		assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
		_, err = svc.RefreshToken(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
	})

	t.Run("stored as hash", func(t *testing.T) {
		var count int64
		require.NoError(t, db.Model(&entities.RefreshToken{}).Where("token_hash = ?", resp.RefreshToken).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	resp, err := svc.Register(ctx, "alice", "a@x", "pw")
	require.NoError(t, err)
	second, err := svc.Login(ctx, "a@x", "pw")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, resp.User.ID))
	require.NoError(t, svc.Logout(ctx, resp.User.ID), "logout is idempotent")

	_, err = svc.RefreshToken(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
	_, err = svc.RefreshToken(ctx, second.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestService_GetUserByID(t *testing.T) {
	ctx := context.Background()
	svc, db := setupTestService(t)

	resp, err := svc.Register(ctx, "alice", "a@x", "pw")
	require.NoError(t, err)

	user, err := svc.GetUserByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, user)

	comic := &entities.Comic{Title: "Finished", Status: entities.StatusCompleted}
	require.NoError(t, db.Create(comic).Error)
	chapter := &entities.Chapter{ComicID: comic.ID, Number: 1}
	require.NoError(t, db.Create(chapter).Error)
	require.NoError(t, db.Create(&entities.ReadingHistory{
		UserID: resp.User.ID, ComicID: comic.ID, ChapterID: chapter.ID, ChapterNumber: 1, LastReadAt: time.Now(),
	}).Error)

	user, err = svc.GetUserByID(ctx, resp.User.ID)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, 1, user.ReadingStats.TotalRead)
	assert.Equal(t, 1, user.ReadingStats.CompletedSeries)
	assert.Equal(t, 0, user.ReadingStats.CurrentlyReading)
	assert.Equal(t, 1, user.ReadingStats.TotalChaptersRead)
}

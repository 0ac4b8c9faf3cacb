package audit

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	auditRepo "github.com/ivyscans/api/internal/database/audit"
	"github.com/ivyscans/api/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	repo := auditRepo.NewRepository(db)
	svc := NewService(repo)

	return svc, db
}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)

	event := &entities.AuditEvent{
		UserID:    "user-1",
		EventType: entities.AuditEventAuth,
		Action:    "login",
		Status:    entities.AuditStatusSuccess,
	}

	err := svc.Log(context.Background(), event)
	require.NoError(t, err)

	var saved entities.AuditEvent
	require.NoError(t, db.First(&saved, event.ID).Error)
	assert.Equal(t, "login", saved.Action)
}

func TestService_LogAuth(t *testing.T) {
	svc, db := setupTestService(t)

	t.Run("successful login", func(t *testing.T) {
		svc.LogAuth("user-1", "login", "10.0.0.1", "curl/8.0", nil)
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ? AND user_id = ?", "login", "user-1").First(&event).Error)
		assert.Equal(t, entities.AuditEventAuth, event.EventType)
		assert.Equal(t, entities.AuditStatusSuccess, event.Status)
		assert.Equal(t, "10.0.0.1", event.IPAddress)
	})

	t.Run("failed login", func(t *testing.T) {
		svc.LogAuth("", "login", "10.0.0.2", strings.Repeat("x", 600), errors.New("Invalid email or password."))
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("ip_address = ?", "10.0.0.2").First(&event).Error)
		assert.Equal(t, entities.AuditStatusFailed, event.Status)
		assert.Equal(t, "Invalid email or password.", event.ErrorMsg)
		assert.Len(t, event.UserAgent, 500)
	})
}

func TestService_LogDelete(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogDelete("user-1", "comic", "comic-9", "Solo Climb")
	svc.Wait()

	var event entities.AuditEvent
	require.NoError(t, db.Where("action = ?", "comic_delete").First(&event).Error)
	assert.Equal(t, entities.AuditEventDelete, event.EventType)
	assert.Equal(t, "comic-9", event.EntityID)
	assert.Equal(t, "Deleted comic: Solo Climb", event.Description)
}

func TestService_LogMaintenance(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogMaintenance("purge_refresh_tokens", "Purged 3 expired refresh tokens", nil)
	svc.LogMaintenance("cleanup_audit_events", "", errors.New("database is locked"))
	svc.Wait()

	var count int64
	require.NoError(t, db.Model(&entities.AuditEvent{}).Where("event_type = ?", entities.AuditEventMaintenance).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var purge, cleanup entities.AuditEvent
	require.NoError(t, db.Where("action = ?", "purge_refresh_tokens").First(&purge).Error)
	assert.Equal(t, entities.AuditStatusSuccess, purge.Status)
	assert.Empty(t, purge.ErrorMsg)

	require.NoError(t, db.Where("action = ?", "cleanup_audit_events").First(&cleanup).Error)
	assert.Equal(t, entities.AuditStatusFailed, cleanup.Status)
	assert.Equal(t, "database is locked", cleanup.ErrorMsg)
}

func TestService_DeleteOldEvents(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Log(ctx, &entities.AuditEvent{Action: "old", CreatedAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, svc.Log(ctx, &entities.AuditEvent{Action: "recent"}))

	deleted, err := svc.DeleteOldEvents(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, total, err := svc.GetEvents(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "recent", events[0].Action)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))

	// "ü" is two bytes; cutting at 7 would split the one at bytes 6-7.
	got := truncate("abcdefüüüü", 10)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "abcdef...", got)
	assert.LessOrEqual(t, len(got), 10)
	assert.Equal(t, "...", truncate("ééééé", 4))
}

package cron

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eduhub/marketplace-api/database"
	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/services"
	"github.com/eduhub/marketplace-api/services/storage"
	"github.com/eduhub/marketplace-api/utils/auth"
	"github.com/eduhub/marketplace-api/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, now time.Time) (*CronManager, *storage.LocalStore) {
	t.Helper()

	db, err := database.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.NewGORMStore(db, "sqlite").Init())

	files, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	m := NewCronManager(db, files, services.NewSystemLogService(db, logger.NewNop()), services.NewNotificationService(db, logger.NewNop()), auth.NewMemorySessionStore(), Config{
		LogRetention:      90 * 24 * time.Hour,
		OrphanUploadGrace: 24 * time.Hour,
		NotificationTTL:   30 * 24 * time.Hour,
	}, logger.NewNop())
	m.now = func() time.Time { return now }
	return m, files
}

func writeUpload(t *testing.T, files *storage.LocalStore, key string, modTime time.Time) {
	t.Helper()
	path := filepath.Join(files.Dir(), key)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func TestSweepOrphanUploads(t *testing.T) {
	now := time.Now().UTC()
	m, files := newTestManager(t, now)
	old := now.Add(-48 * time.Hour)

	writeUpload(t, files, "file-1-1.pdf", old)      // referenced by a material
	writeUpload(t, files, "thumbnail-1-2.png", old) // referenced by a course
	writeUpload(t, files, "file-1-3.pdf", old)      // orphaned
	writeUpload(t, files, "file-1-4.pdf", now)      // orphaned but inside the grace period

	teacher := model.User{Email: "t@example.com", Role: model.RoleTeacher, IsActive: true}
	require.NoError(t, m.db.Create(&teacher).Error)
	thumb := files.URL("thumbnail-1-2.png")
	course := model.Course{Title: "Go", TeacherID: teacher.ID, Status: model.CourseStatusDraft, ThumbnailURL: &thumb}
	require.NoError(t, m.db.Create(&course).Error)
	require.NoError(t, m.db.Create(&model.CourseMaterial{
		CourseID: course.ID,
		Title:    "Intro",
		Type:     model.MaterialTypePDF,
		FileURL:  files.URL("file-1-1.pdf"),
	}).Error)

	message, err := m.SweepOrphanUploads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Checked 4 uploads, removed 1, failed 0", message)

	objects, err := files.List(context.Background())
	require.NoError(t, err)
	keys := make([]string, 0, len(objects))
	for _, o := range objects {
		keys = append(keys, o.Key)
	}
	assert.ElementsMatch(t, []string{"file-1-1.pdf", "thumbnail-1-2.png", "file-1-4.pdf"}, keys)
}

func TestCleanupJobs(t *testing.T) {
	now := time.Now().UTC()
	m, _ := newTestManager(t, now)
	ctx := context.Background()

	require.NoError(t, m.db.Create(&model.SystemLog{Action: "ancient", CreatedAt: now.AddDate(0, 0, -120)}).Error)
	require.NoError(t, m.db.Create(&model.SystemLog{Action: "recent", CreatedAt: now.AddDate(0, 0, -1)}).Error)

	message, err := m.CleanupSystemLogs(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(message, "Removed 1 system logs"), message)

	require.NoError(t, m.db.Create(&model.AdminNotification{Type: model.NotificationTypeInfo, Title: "old read", Read: true, CreatedAt: now.AddDate(0, 0, -40)}).Error)
	require.NoError(t, m.db.Create(&model.AdminNotification{Type: model.NotificationTypeInfo, Title: "old unread", CreatedAt: now.AddDate(0, 0, -40)}).Error)
	require.NoError(t, m.db.Create(&model.AdminNotification{Type: model.NotificationTypeInfo, Title: "new read", Read: true, CreatedAt: now}).Error)

	message, err = m.PruneReadNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Removed 1 read notifications", message)
}

func TestPruneExpiredSessions(t *testing.T) {
	now := time.Now().UTC()
	m, _ := newTestManager(t, now)
	ctx := context.Background()

	require.NoError(t, m.sessions.Save(ctx, &auth.Session{ID: "gone", UserID: 1, ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, m.sessions.Save(ctx, &auth.Session{ID: "live", UserID: 1, ExpiresAt: now.Add(time.Hour)}))

	message, err := m.PruneExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Removed 1 expired sessions", message)

	_, err = m.sessions.Get(ctx, "live")
	assert.NoError(t, err)
}

func TestRunRecordsJobLog(t *testing.T) {
	m, _ := newTestManager(t, time.Now().UTC())

	m.Run("ok_job", func(context.Context) (string, error) { return "done", nil })
	m.Run("bad_job", func(context.Context) (string, error) { return "", errors.New("boom") })

	var entries []model.CronJobLog
	require.NoError(t, m.db.Order("id ASC").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, "completed", entries[0].Status)
	assert.Equal(t, "done", entries[0].Message)
	assert.NotNil(t, entries[0].CompletedAt)
	assert.Equal(t, "failed", entries[1].Status)
	assert.Equal(t, "boom", entries[1].ErrorMsg)
}

func TestRegisterJobs(t *testing.T) {
	m, _ := newTestManager(t, time.Now().UTC())
	require.NoError(t, m.registerJobs())
	assert.Len(t, m.cron.Entries(), 4)
}

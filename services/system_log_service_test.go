package services

import (
	"context"
	"testing"

	"github.com/eduhub/marketplace-api/database"
	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func observedDB(t *testing.T) (*gorm.DB, *logger.Logger, *observer.ObservedLogs) {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.NewGORMStore(db, "sqlite").Init())

	core, logs := observer.New(zapcore.WarnLevel)
	return db, &logger.Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestNoteWarnsWhenWriteFails(t *testing.T) {
	db, log, logs := observedDB(t)
	svc := NewSystemLogService(db, log)

	svc.Note(context.Background(), LogEntry{Action: "course_created", EntityType: "course"})
	assert.Zero(t, logs.Len())

	require.NoError(t, db.Migrator().DropTable(&model.SystemLog{}))
	svc.Note(context.Background(), LogEntry{Action: "course_updated", EntityType: "course"})

	entries := logs.FilterMessage("system log write failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "course_updated", entries[0].ContextMap()["action"])
	assert.NotEmpty(t, entries[0].ContextMap()["error"])
}

func TestNotificationEventWarnsWhenInboxFails(t *testing.T) {
	db, log, logs := observedDB(t)
	svc := NewNotificationService(db, log)
	user := &model.User{Email: "new@example.com", FirstName: "New", LastName: "User"}
	user.ID = 42

	require.NoError(t, db.Migrator().DropTable(&model.AdminNotification{}))
	svc.UserRegistered(context.Background(), user)

	entries := logs.FilterMessage("admin notification failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "New user registered", entries[0].ContextMap()["title"])
}

func TestCourseUpdateSurvivesLostAuditLog(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.user(t, "audit-teacher@example.com", model.RoleTeacher)
	course := env.course(t, teacher, "Go Basics", 10, model.CourseStatusDraft)

	require.NoError(t, env.db.Migrator().DropTable(&model.SystemLog{}))
	title := "Go Fundamentals"
	updated, err := env.courses.Update(context.Background(), teacher, course.ID, UpdateCourseInput{Title: &title}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Go Fundamentals", updated.Title)
}

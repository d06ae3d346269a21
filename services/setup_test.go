package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/eduhub/marketplace-api/database"
	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/services/storage"
	"github.com/eduhub/marketplace-api/utils/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db            *gorm.DB
	files         *storage.LocalStore
	logs          *SystemLogService
	notifications *NotificationService
	users         *UserService
	categories    *CategoryService
	courses       *CourseService
	enrollments   *EnrollmentService
	materials     *MaterialService
}

const testMaxUpload = 1 << 20

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.NewGORMStore(db, "sqlite").Init())

	files, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	log := logger.NewNop()
	logs := NewSystemLogService(db, log)
	notifications := NewNotificationService(db, log)
	courses := NewCourseService(db, files, logs, notifications, log)
	enrollments := NewEnrollmentService(db, courses, notifications)

	return &testEnv{
		db:            db,
		files:         files,
		logs:          logs,
		notifications: notifications,
		users:         NewUserService(db, logs, notifications),
		categories:    NewCategoryService(db),
		courses:       courses,
		enrollments:   enrollments,
		materials:     NewMaterialService(db, courses, files, testMaxUpload, log),
	}
}

func (e *testEnv) user(t *testing.T, email string, role model.Role) Actor {
	t.Helper()
	u := model.User{Email: email, Role: role, IsActive: true, FirstName: "Test", LastName: string(role)}
	require.NoError(t, e.db.Create(&u).Error)
	return Actor{ID: u.ID, Role: u.Role}
}

func (e *testEnv) course(t *testing.T, teacher Actor, title string, price float64, status model.CourseStatus) *model.CourseWithDetails {
	t.Helper()
	c, err := e.courses.Create(context.Background(), teacher, CreateCourseInput{
		Title:  title,
		Price:  price,
		Status: status,
	}, RequestMeta{})
	require.NoError(t, err)
	return c
}

// fileHeader builds an in-memory multipart upload
func fileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(10 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

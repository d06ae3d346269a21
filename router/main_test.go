package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/eduhub/marketplace-api/api"
	"github.com/eduhub/marketplace-api/database"
	"github.com/eduhub/marketplace-api/services/storage"
	"github.com/eduhub/marketplace-api/utils/auth"
	"github.com/eduhub/marketplace-api/utils/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	auth.SetHashCost(bcrypt.MinCost)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	t   *testing.T
	app *fiber.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	store := database.NewGORMStore(db, "sqlite")
	require.NoError(t, store.Init())

	uploadDir := t.TempDir()
	files, err := storage.NewLocalStore(uploadDir, "/uploads")
	require.NoError(t, err)

	log := logger.NewNop()
	sessions := auth.NewSessionManager(
		auth.NewMemorySessionStore(),
		auth.NewJWTManager(auth.JWTConfig{Secret: "test-secret", Issuer: "eduhub-test"}),
		time.Hour,
	)

	const maxUpload = 1 << 20
	app := api.NewApp(maxUpload, log)
	SetupRoutes(app, Deps{
		Store:            store,
		Sessions:         sessions,
		Files:            files,
		Log:              log,
		UploadDir:        uploadDir,
		MaxUploadBytes:   maxUpload,
		AllowedOrigins:   "http://localhost:3000",
		DisableAccessLog: true,
		StartedAt:        time.Now().UTC(),
	})

	return &testServer{t: t, app: app}
}

func (s *testServer) send(req *http.Request, token string) (int, envelope) {
	s.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)

	var env envelope
	if len(raw) > 0 {
		require.NoError(s.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req, token)
}

func (s *testServer) upload(path, token, filename, contentType string, content []byte) (int, envelope) {
	s.t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(s.t, err)
	_, err = part.Write(content)
	require.NoError(s.t, err)
	require.NoError(s.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.send(req, token)
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v), string(env.Data))
	return v
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID   uint   `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
}

func (s *testServer) register(email string) session {
	s.t.Helper()
	status, env := s.do(http.MethodPost, "/api/register", "", map[string]string{
		"email":     email,
		"password":  "password123",
		"firstName": "Test",
		"lastName":  "User",
	})
	require.Equal(s.t, http.StatusCreated, status, env.Message)
	return decode[session](s.t, env)
}

func (s *testServer) login(email, password string) session {
	s.t.Helper()
	status, env := s.do(http.MethodPost, "/api/login", "", map[string]string{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, status)
	return decode[session](s.t, env)
}

type courseView struct {
	ID           uint   `json:"id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	IsEnrolled   *bool  `json:"isEnrolled"`
	UserProgress *int   `json:"userProgress"`
}

func TestPing(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPublishEnrollComplete(t *testing.T) {
	s := newTestServer(t)

	teacher := s.login("teacher@example.com", "teacher123")
	assert.Equal(t, "teacher", teacher.User.Role)

	status, env := s.do(http.MethodPost, "/api/courses", teacher.Token, map[string]interface{}{
		"title": "Intro to Go",
		"price": 0,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	course := decode[courseView](t, env)
	assert.Equal(t, "draft", course.Status)

	student := s.register("learner@example.com")
	coursePath := fmt.Sprintf("/api/student/course/%d", course.ID)

	// Drafts are hidden from students and cannot be enrolled in
	status, _ = s.do(http.MethodGet, coursePath, student.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = s.do(http.MethodPost, fmt.Sprintf("/api/student/enroll/%d", course.ID), student.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(http.MethodPut, fmt.Sprintf("/api/courses/%d", course.ID), teacher.Token, map[string]string{"status": "published"})
	require.Equal(t, http.StatusOK, status)

	status, env = s.do(http.MethodPost, fmt.Sprintf("/api/student/enroll/%d", course.ID), student.Token, nil)
	require.Equal(t, http.StatusCreated, status, env.Message)
	enrollment := decode[struct {
		ID       uint `json:"id"`
		Progress int  `json:"progress"`
	}](t, env)
	assert.Zero(t, enrollment.Progress)

	status, env = s.do(http.MethodPost, fmt.Sprintf("/api/student/enroll/%d", course.ID), student.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Already enrolled in this course", env.Error.Message)

	status, env = s.do(http.MethodPut, fmt.Sprintf("/api/student/progress/%d", enrollment.ID), student.Token, map[string]int{"progress": 101})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	status, env = s.do(http.MethodPut, fmt.Sprintf("/api/student/progress/%d", enrollment.ID), student.Token, map[string]int{"progress": 100})
	require.Equal(t, http.StatusOK, status)
	completed := decode[struct {
		Progress    int        `json:"progress"`
		CompletedAt *time.Time `json:"completedAt"`
	}](t, env)
	assert.Equal(t, 100, completed.Progress)
	assert.NotNil(t, completed.CompletedAt)

	status, env = s.do(http.MethodGet, coursePath, student.Token, nil)
	require.Equal(t, http.StatusOK, status)
	view := decode[courseView](t, env)
	require.NotNil(t, view.IsEnrolled)
	assert.True(t, *view.IsEnrolled)
	require.NotNil(t, view.UserProgress)
	assert.Equal(t, 100, *view.UserProgress)

	status, env = s.do(http.MethodGet, "/api/student/activity", student.Token, nil)
	require.Equal(t, http.StatusOK, status)
	activity := decode[[]struct {
		ActivityType string `json:"activityType"`
		CourseTitle  string `json:"courseTitle"`
	}](t, env)
	require.Len(t, activity, 2)
	assert.Equal(t, "completed", activity[0].ActivityType)
	assert.Equal(t, "Intro to Go", activity[0].CourseTitle)

	// Another student cannot touch this enrollment
	intruder := s.register("intruder@example.com")
	status, _ = s.do(http.MethodPut, fmt.Sprintf("/api/student/progress/%d", enrollment.ID), intruder.Token, map[string]int{"progress": 10})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestTeacherPromotion(t *testing.T) {
	s := newTestServer(t)

	user := s.register("future.teacher@example.com")
	assert.Equal(t, "student", user.User.Role)

	status, _ := s.do(http.MethodPost, "/api/courses", user.Token, map[string]interface{}{"title": "Mine", "price": 10})
	assert.Equal(t, http.StatusForbidden, status)

	// Students cannot reach the admin console
	status, _ = s.do(http.MethodPatch, fmt.Sprintf("/api/admin/users/%d", user.User.ID), user.Token, map[string]string{"role": "teacher"})
	assert.Equal(t, http.StatusForbidden, status)

	admin := s.login("admin@example.com", "admin123")
	status, env := s.do(http.MethodPatch, fmt.Sprintf("/api/admin/users/%d", user.User.ID), admin.Token, map[string]string{"role": "teacher"})
	require.Equal(t, http.StatusOK, status, env.Message)

	// The existing session picks up the new role
	status, _ = s.do(http.MethodPost, "/api/courses", user.Token, map[string]interface{}{"title": "Mine", "price": 10})
	assert.Equal(t, http.StatusCreated, status)

	status, env = s.do(http.MethodGet, "/api/admin/logs", admin.Token, nil)
	require.Equal(t, http.StatusOK, status)
	logs := decode[struct {
		Total int64 `json:"total"`
		Logs  []struct {
			Action string `json:"action"`
		} `json:"logs"`
	}](t, env)
	actions := make([]string, 0, len(logs.Logs))
	for _, l := range logs.Logs {
		actions = append(actions, l.Action)
	}
	assert.Contains(t, actions, "user_role_changed")
	assert.Contains(t, actions, "admin_users_update")
}

func TestCourseOwnershipOverHTTP(t *testing.T) {
	s := newTestServer(t)

	owner := s.login("teacher@example.com", "teacher123")
	status, env := s.do(http.MethodPost, "/api/courses", owner.Token, map[string]interface{}{"title": "Owned", "price": 5})
	require.Equal(t, http.StatusCreated, status)
	course := decode[courseView](t, env)

	admin := s.login("admin@example.com", "admin123")
	other := s.register("other.teacher@example.com")
	status, _ = s.do(http.MethodPatch, fmt.Sprintf("/api/admin/users/%d", other.User.ID), admin.Token, map[string]string{"role": "teacher"})
	require.Equal(t, http.StatusOK, status)

	path := fmt.Sprintf("/api/courses/%d", course.ID)
	status, _ = s.do(http.MethodPut, path, other.Token, map[string]string{"title": "Stolen"})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(http.MethodDelete, path, other.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// Admins may edit any course
	status, env = s.do(http.MethodPut, path, admin.Token, map[string]string{"title": "Renamed"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Renamed", decode[courseView](t, env).Title)

	status, _ = s.do(http.MethodGet, "/api/courses/999", owner.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAuthenticationRequired(t *testing.T) {
	s := newTestServer(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/courses"},
		{http.MethodPost, "/api/courses"},
		{http.MethodGet, "/api/student/enrolled-courses"},
		{http.MethodPost, "/api/student/enroll/1"},
		{http.MethodGet, "/api/admin/stats"},
		{http.MethodGet, "/api/auth/user"},
	} {
		status, env := s.do(route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, route.path)
		assert.False(t, env.Success)
	}

	status, _ := s.do(http.MethodGet, "/api/courses", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// The catalogue is public
	status, _ = s.do(http.MethodGet, "/api/student/courses", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(http.MethodPost, "/api/login", "", map[string]string{"email": "nobody@example.com", "password": "whatever1"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLogoutRevokesSession(t *testing.T) {
	s := newTestServer(t)
	user := s.register("leaving@example.com")

	status, _ := s.do(http.MethodGet, "/api/auth/user", user.Token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(http.MethodPost, "/api/logout", user.Token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(http.MethodGet, "/api/auth/user", user.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestMaterialUploadValidation(t *testing.T) {
	s := newTestServer(t)
	teacher := s.login("teacher@example.com", "teacher123")

	status, env := s.do(http.MethodPost, "/api/courses", teacher.Token, map[string]interface{}{"title": "Files", "price": 0})
	require.Equal(t, http.StatusCreated, status)
	course := decode[courseView](t, env)
	path := fmt.Sprintf("/api/courses/%d/materials", course.ID)

	status, env = s.upload(path, teacher.Token, "notes.txt", "text/plain", []byte("plain text"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid file type", env.Error.Message)

	pdf := []byte("%PDF-1.4\n%%EOF\n")
	status, env = s.upload(path, teacher.Token, "week1.pdf", "application/pdf", pdf)
	require.Equal(t, http.StatusCreated, status, env.Message)
	material := decode[struct {
		FileURL string `json:"fileUrl"`
		Type    string `json:"type"`
	}](t, env)
	assert.Equal(t, "pdf", material.Type)

	// Uploaded files are served back
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, material.FileURL, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status, env = s.do(http.MethodGet, path, teacher.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]json.RawMessage](t, env), 1)
}

func TestCourseTitleAndCategoryUpdates(t *testing.T) {
	s := newTestServer(t)
	teacher := s.login("teacher@example.com", "teacher123")

	status, env := s.do(http.MethodPost, "/api/categories", teacher.Token, map[string]string{"name": "Databases"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	category := decode[struct {
		ID uint `json:"id"`
	}](t, env)

	status, env = s.do(http.MethodPost, "/api/courses", teacher.Token, map[string]interface{}{"title": "   ", "price": 10})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	status, env = s.do(http.MethodPost, "/api/courses", teacher.Token, map[string]interface{}{
		"title":      "SQL Basics",
		"price":      10,
		"categoryId": category.ID,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	created := decode[struct {
		ID         uint  `json:"id"`
		CategoryID *uint `json:"categoryId"`
	}](t, env)
	require.NotNil(t, created.CategoryID)

	path := fmt.Sprintf("/api/courses/%d", created.ID)
	status, _ = s.do(http.MethodPut, path, teacher.Token, map[string]string{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, status)

	// Omitting categoryId leaves it alone
	status, env = s.do(http.MethodPatch, path, teacher.Token, map[string]interface{}{"price": 12})
	require.Equal(t, http.StatusOK, status)
	assert.NotNil(t, decode[struct {
		CategoryID *uint `json:"categoryId"`
	}](t, env).CategoryID)

	// An explicit null detaches it
	status, env = s.do(http.MethodPatch, path, teacher.Token, map[string]interface{}{"categoryId": nil})
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, decode[struct {
		CategoryID *uint `json:"categoryId"`
	}](t, env).CategoryID)

	status, _ = s.do(http.MethodGet, "/api/student/courses?category=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = s.do(http.MethodGet, "/api/student/courses?category=all", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestMaterialTitleAndActivityReferences(t *testing.T) {
	s := newTestServer(t)
	teacher := s.login("teacher@example.com", "teacher123")

	status, env := s.do(http.MethodPost, "/api/courses", teacher.Token, map[string]interface{}{"title": "Quizzes", "price": 0, "status": "published"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	course := decode[courseView](t, env)

	status, env = s.upload(fmt.Sprintf("/api/courses/%d/materials", course.ID), teacher.Token, "a.pdf", "application/pdf", []byte("%PDF-1.4\n%%EOF\n"))
	require.Equal(t, http.StatusCreated, status, env.Message)
	material := decode[struct {
		ID    uint   `json:"id"`
		Title string `json:"title"`
	}](t, env)

	materialPath := fmt.Sprintf("/api/materials/%d", material.ID)
	status, env = s.do(http.MethodPut, materialPath, teacher.Token, map[string]string{"title": "   "})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	student := s.register("quizzer@example.com")
	status, env = s.do(http.MethodPost, fmt.Sprintf("/api/student/enroll/%d", course.ID), student.Token, nil)
	require.Equal(t, http.StatusCreated, status, env.Message)

	status, _ = s.do(http.MethodPost, "/api/student/activity", student.Token, map[string]interface{}{
		"courseId":     course.ID,
		"materialId":   9999,
		"activityType": "quiz_completed",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = s.do(http.MethodPost, "/api/student/activity", student.Token, map[string]interface{}{
		"courseId":     course.ID,
		"materialId":   material.ID,
		"activityType": "quiz_completed",
	})
	assert.Equal(t, http.StatusCreated, status, env.Message)
}

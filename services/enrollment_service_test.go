package services

import (
	"context"
	"testing"
	"time"

	"github.com/eduhub/marketplace-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := env.user(t, "t@example.com", model.RoleTeacher)
	student := env.user(t, "s@example.com", model.RoleStudent)
	draft := env.course(t, teacher, "Draft", 10, model.CourseStatusDraft)
	live := env.course(t, teacher, "Live", 10, model.CourseStatusPublished)

	_, err := env.enrollments.Enroll(ctx, student.ID, 999, EnrollOptions{})
	assert.ErrorIs(t, err, ErrCourseNotFound)

	_, err = env.enrollments.Enroll(ctx, student.ID, draft.ID, EnrollOptions{})
	assert.ErrorIs(t, err, ErrCourseNotPublished)

	enrollment, err := env.enrollments.Enroll(ctx, student.ID, live.ID, EnrollOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, enrollment.Progress)
	assert.Nil(t, enrollment.CompletedAt)

	_, err = env.enrollments.Enroll(ctx, student.ID, live.ID, EnrollOptions{})
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)

	var count int64
	require.NoError(t, env.db.Model(&model.Enrollment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var activities []model.StudentActivity
	require.NoError(t, env.db.Find(&activities).Error)
	require.Len(t, activities, 1)
	assert.Equal(t, model.ActivityEnrolled, activities[0].ActivityType)
}

func TestEnrollUniqueIndex(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.user(t, "t@example.com", model.RoleTeacher)
	student := env.user(t, "s@example.com", model.RoleStudent)
	course := env.course(t, teacher, "Live", 0, model.CourseStatusPublished)

	require.NoError(t, env.db.Create(&model.Enrollment{CourseID: course.ID, StudentID: student.ID}).Error)
	err := env.db.Create(&model.Enrollment{CourseID: course.ID, StudentID: student.ID}).Error
	assert.Error(t, err)
}

func TestProgressCompletedAtInvariant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := env.user(t, "t@example.com", model.RoleTeacher)
	student := env.user(t, "s@example.com", model.RoleStudent)
	course := env.course(t, teacher, "Live", 0, model.CourseStatusPublished)
	enrollment, err := env.enrollments.Enroll(ctx, student.ID, course.ID, EnrollOptions{})
	require.NoError(t, err)

	for _, p := range []int{40, 100, 60, 100, 100, 0} {
		updated, err := env.enrollments.UpdateProgress(ctx, student.ID, enrollment.ID, p)
		require.NoError(t, err)

		var stored model.Enrollment
		require.NoError(t, env.db.First(&stored, enrollment.ID).Error)
		assert.Equal(t, p, stored.Progress)
		assert.Equal(t, p == 100, stored.CompletedAt != nil, "progress %d", p)
		assert.Equal(t, p == 100, updated.CompletedAt != nil)
	}

	// Two transitions into 100; the repeated 100 does not add another
	var completed int64
	require.NoError(t, env.db.Model(&model.StudentActivity{}).
		Where("activity_type = ?", model.ActivityCompleted).Count(&completed).Error)
	assert.Equal(t, int64(2), completed)
}

func TestProgressOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := env.user(t, "t@example.com", model.RoleTeacher)
	owner := env.user(t, "s1@example.com", model.RoleStudent)
	other := env.user(t, "s2@example.com", model.RoleStudent)
	course := env.course(t, teacher, "Live", 0, model.CourseStatusPublished)
	enrollment, err := env.enrollments.Enroll(ctx, owner.ID, course.ID, EnrollOptions{})
	require.NoError(t, err)

	_, err = env.enrollments.UpdateProgress(ctx, other.ID, enrollment.ID, 50)
	assert.ErrorIs(t, err, ErrNotEnrollmentOwner)

	_, err = env.enrollments.UpdateProgress(ctx, owner.ID, 999, 50)
	assert.ErrorIs(t, err, ErrEnrollmentNotFound)

	_, err = env.enrollments.Review(ctx, other.ID, enrollment.ID, 5, nil)
	assert.ErrorIs(t, err, ErrNotEnrollmentOwner)
}

func TestReviewsAndFeeds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := env.user(t, "t@example.com", model.RoleTeacher)
	student := env.user(t, "s@example.com", model.RoleStudent)
	course := env.course(t, teacher, "Live", 0, model.CourseStatusPublished)
	enrollment, err := env.enrollments.Enroll(ctx, student.ID, course.ID, EnrollOptions{})
	require.NoError(t, err)

	text := "Great course"
	_, err = env.enrollments.Review(ctx, student.ID, enrollment.ID, 5, &text)
	require.NoError(t, err)

	reviews, err := env.enrollments.CourseReviews(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 5, reviews[0].Rating)
	assert.Equal(t, "Test student", reviews[0].StudentName)

	feed, err := env.enrollments.StudentActivity(ctx, student.ID, 20)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, model.ActivityReviewed, feed[0].ActivityType)
	assert.Equal(t, "Live", feed[0].CourseTitle)

	teacherFeed, err := env.enrollments.TeacherActivity(ctx, teacher.ID, 10)
	require.NoError(t, err)
	assert.Len(t, teacherFeed, 2)

	outsider := env.user(t, "t2@example.com", model.RoleTeacher)
	none, err := env.enrollments.TeacherActivity(ctx, outsider.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordActivityRequiresEnrollment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := env.user(t, "t@example.com", model.RoleTeacher)
	student := env.user(t, "s@example.com", model.RoleStudent)
	course := env.course(t, teacher, "Live", 0, model.CourseStatusPublished)

	input := ActivityInput{CourseID: course.ID, ActivityType: model.ActivityQuizCompleted, Metadata: map[string]interface{}{"score": 9}}
	_, err := env.enrollments.RecordActivity(ctx, student.ID, input)
	assert.ErrorIs(t, err, ErrNotEnrolled)

	_, err = env.enrollments.Enroll(ctx, student.ID, course.ID, EnrollOptions{})
	require.NoError(t, err)

	activity, err := env.enrollments.RecordActivity(ctx, student.ID, input)
	require.NoError(t, err)
	assert.Equal(t, model.ActivityQuizCompleted, activity.ActivityType)
	assert.JSONEq(t, `{"score":9}`, string(activity.Metadata))
}

func TestSimulatePaymentHonoursCancellation(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.user(t, "t@example.com", model.RoleTeacher)
	student := env.user(t, "s@example.com", model.RoleStudent)
	course := env.course(t, teacher, "Paid", 25, model.CourseStatusPublished)

	payments := NewPaymentService(env.courses, env.enrollments, 0)
	enrollment, err := payments.SimulatePayment(context.Background(), student.ID, course.ID)
	require.NoError(t, err)

	var payment model.CoursePayment
	require.NoError(t, env.db.Where("enrollment_id = ?", enrollment.ID).First(&payment).Error)
	assert.Equal(t, 25.0, payment.Amount)
	assert.Equal(t, model.PaymentStatusCompleted, payment.Status)

	slow := NewPaymentService(env.courses, env.enrollments, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	other := env.user(t, "s2@example.com", model.RoleStudent)
	_, err = slow.SimulatePayment(ctx, other.ID, course.ID)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = slow.SimulatePayment(context.Background(), other.ID, 999)
	assert.ErrorIs(t, err, ErrCourseNotFound)

	var enrolled int64
	require.NoError(t, env.db.Model(&model.Enrollment{}).Where("student_id = ?", other.ID).Count(&enrolled).Error)
	assert.Zero(t, enrolled)
}

func TestRecordActivityChecksMaterial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := env.user(t, "t@example.com", model.RoleTeacher)
	student := env.user(t, "s@example.com", model.RoleStudent)
	course := env.course(t, teacher, "Go", 0, model.CourseStatusPublished)
	other := env.course(t, teacher, "Rust", 0, model.CourseStatusPublished)

	_, err := env.enrollments.Enroll(ctx, student.ID, course.ID, EnrollOptions{})
	require.NoError(t, err)

	own, err := env.materials.Upload(ctx, teacher, UploadMaterialInput{
		CourseID: course.ID,
		File:     fileHeader(t, "quiz.pdf", "application/pdf", samplePDF),
	})
	require.NoError(t, err)
	foreign, err := env.materials.Upload(ctx, teacher, UploadMaterialInput{
		CourseID: other.ID,
		File:     fileHeader(t, "other.pdf", "application/pdf", samplePDF),
	})
	require.NoError(t, err)

	missing := uint(9999)
	for _, id := range []uint{missing, foreign.ID} {
		_, err = env.enrollments.RecordActivity(ctx, student.ID, ActivityInput{
			CourseID:     course.ID,
			MaterialID:   &id,
			ActivityType: model.ActivityQuizCompleted,
		})
		assert.ErrorIs(t, err, ErrMaterialNotInCourse)
	}

	var count int64
	require.NoError(t, env.db.Model(&model.StudentActivity{}).Where("material_id IS NOT NULL").Count(&count).Error)
	assert.Zero(t, count)

	activity, err := env.enrollments.RecordActivity(ctx, student.ID, ActivityInput{
		CourseID:     course.ID,
		MaterialID:   &own.ID,
		ActivityType: model.ActivityQuizCompleted,
	})
	require.NoError(t, err)
	require.NotNil(t, activity.MaterialID)
	assert.Equal(t, own.ID, *activity.MaterialID)

	// Deleting the material takes its activity rows with it
	require.NoError(t, env.materials.Delete(ctx, teacher, own.ID))
	require.NoError(t, env.db.Model(&model.StudentActivity{}).Where("material_id = ?", own.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, env.db.Model(&model.StudentActivity{}).Where("course_id = ?", course.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count, "the enrolled entry stays")
}

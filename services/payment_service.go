package services

import (
	"context"
	"time"

	"github.com/eduhub/marketplace-api/model"
)

// PaymentService simulates checkout for paid courses
type PaymentService struct {
	courses     *CourseService
	enrollments *EnrollmentService
	delay       time.Duration
}

// NewPaymentService creates a payment service that waits delay before settling
func NewPaymentService(courses *CourseService, enrollments *EnrollmentService, delay time.Duration) *PaymentService {
	return &PaymentService{
		courses:     courses,
		enrollments: enrollments,
		delay:       delay,
	}
}

// SimulatePayment waits out the processing delay, then enrolls the student
// and records a completed payment for the course price
func (s *PaymentService) SimulatePayment(ctx context.Context, studentID, courseID uint) (*model.Enrollment, error) {
	course, err := s.courses.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return s.enrollments.Enroll(ctx, studentID, courseID, EnrollOptions{
		Metadata: map[string]interface{}{"paymentAmount": course.Price},
		Payment: &model.CoursePayment{
			Amount:        course.Price,
			Currency:      "USD",
			Status:        model.PaymentStatusCompleted,
			PaymentMethod: "simulated",
		},
	})
}

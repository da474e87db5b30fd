package purchase

import (
	"CourseMarket/internal/app_errors"
	"CourseMarket/internal/models"
	"CourseMarket/internal/payment"
	"CourseMarket/pkg/logger"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type courseRepo interface {
	CourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	CoursesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Course, error)
}

type userRepo interface {
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type enrollmentRepo interface {
	Create(ctx context.Context, e *models.Enrollment) error
	EnrollmentByID(ctx context.Context, id uuid.UUID) (*models.Enrollment, error)
	EnrollmentByUserCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error)
	EnrollmentByPaymentIntent(ctx context.Context, intentID string) (*models.Enrollment, error)
	EnrollmentsByUser(ctx context.Context, userID uuid.UUID) ([]models.Enrollment, error)
	OpenInstallmentEnrollments(ctx context.Context) ([]models.Enrollment, error)
	UpdateEnrollment(ctx context.Context, id uuid.UUID, fn func(*models.Enrollment) error) (*models.Enrollment, error)
}

type studentRepo interface {
	AddStudent(ctx context.Context, courseID, userID uuid.UUID) error
}

type paymentProcessor interface {
	CreateCustomer(ctx context.Context, user *models.User) (string, error)
	CreatePaymentIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*payment.Intent, error)
	CancelPaymentIntent(ctx context.Context, id string) (*payment.Intent, error)
}

type PurchaseService struct {
	log         logger.Log
	courses     courseRepo
	users       userRepo
	enrollments enrollmentRepo
	students    studentRepo
	processor   paymentProcessor
	now         func() time.Time
}

func NewPurchaseService(log logger.Log, c courseRepo, u userRepo, e enrollmentRepo, s studentRepo, p paymentProcessor) *PurchaseService {
	return &PurchaseService{
		log:         log.With("service", "purchase"),
		courses:     c,
		users:       u,
		enrollments: e,
		students:    s,
		processor:   p,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Checkout is the client-side handle of a payment attempt.
type Checkout struct {
	EnrollmentID    uuid.UUID `json:"enrollment_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	ClientSecret    string    `json:"client_secret"`
	Amount          int64     `json:"amount"`
	PaymentType     string    `json:"payment_type"`
	Installment     int       `json:"installment,omitempty"`
}

func buildPlan(paymentType string, installments int, total int64, now time.Time) (models.PaymentPlan, error) {
	switch paymentType {
	case models.PaymentTypeFull:
		return models.FullPayment{}, nil
	case models.PaymentTypeInstallment:
		if !models.IsAllowedInstallmentCount(installments) {
			return nil, app_errors.ErrInvalidInstallmentPlan
		}
		return models.NewInstallmentPayment(total, installments, now), nil
	}
	return nil, app_errors.ErrInvalidPaymentType
}

// Initiate opens a payment for a course. The enrollment is stored as active before any money
// moves; access is granted only when a payment succeeds. Re-initiating an enrollment that never
// got access replaces its plan and intent; the replaced intent is cancelled first, or applied
// if it was paid in the meantime.
func (s *PurchaseService) Initiate(ctx context.Context, userID, courseID uuid.UUID, paymentType string, installments int) (*Checkout, error) {
	now := s.now()
	course, err := s.courses.CourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished() {
		return nil, app_errors.ErrCourseNotPublished
	}
	plan, err := buildPlan(paymentType, installments, course.Price, now)
	if err != nil {
		return nil, err
	}

	existing, err := s.enrollments.EnrollmentByUserCourse(ctx, userID, courseID)
	switch {
	case errors.Is(err, app_errors.ErrEnrollmentNotFound):
		existing = nil
	case err != nil:
		return nil, err
	case existing.AccessGrantedAt != nil:
		return nil, app_errors.ErrAlreadyEnrolled
	}

	if existing != nil {
		paid, err := s.supersede(ctx, existing.ID, existing.PaymentIntentID)
		if err != nil {
			return nil, err
		}
		if paid {
			return nil, app_errors.ErrAlreadyEnrolled
		}
	}

	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	enrollment := models.NewEnrollment(userID, courseID, course.Price, plan, now)
	if existing != nil {
		enrollment.ID = existing.ID
		enrollment.CustomerRef = existing.CustomerRef
	}
	if enrollment.CustomerRef == "" {
		if enrollment.CustomerRef, err = s.processor.CreateCustomer(ctx, user); err != nil {
			return nil, err
		}
	}

	amount := models.FirstDueAmount(course.Price, plan)
	intent, err := s.processor.CreatePaymentIntent(ctx, payment.IntentRequest{
		Amount:       amount,
		CustomerRef:  enrollment.CustomerRef,
		EnrollmentID: enrollment.ID,
		UserID:       userID,
		CourseID:     courseID,
		Installment:  installmentNumber(plan, 0),
		Description:  course.Title,
	})
	if err != nil {
		return nil, err
	}
	enrollment.PaymentIntentID = intent.ID
	if p, ok := plan.(*models.InstallmentPayment); ok {
		p.Installments[0].PaymentIntentID = intent.ID
	}

	if existing == nil {
		if err := s.enrollments.Create(ctx, enrollment); err != nil {
			return nil, err
		}
	} else {
		_, err := s.enrollments.UpdateEnrollment(ctx, existing.ID, func(cur *models.Enrollment) error {
			if cur.AccessGrantedAt != nil {
				return app_errors.ErrAlreadyEnrolled
			}
			if cur.PaymentIntentID != existing.PaymentIntentID {
				return app_errors.ErrPaymentInProgress
			}
			cur.TotalAmount = enrollment.TotalAmount
			cur.Plan = enrollment.Plan
			cur.PaymentIntentID = enrollment.PaymentIntentID
			cur.CustomerRef = enrollment.CustomerRef
			cur.Status = models.EnrollmentActive
			cur.UpdatedAt = now
			return nil
		})
		if err != nil {
			s.discardIntent(ctx, intent.ID)
			return nil, err
		}
	}

	s.log.Info("purchase initiated",
		"enrollment_id", enrollment.ID, "user_id", userID, "course_id", courseID,
		"payment_type", paymentType, "amount", amount)

	return &Checkout{
		EnrollmentID:    enrollment.ID,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          amount,
		PaymentType:     plan.Type(),
		Installment:     installmentNumber(plan, 0),
	}, nil
}

func installmentNumber(plan models.PaymentPlan, idx int) int {
	if _, ok := plan.(*models.InstallmentPayment); ok {
		return idx + 1
	}
	return 0
}

// Confirm is the synchronous confirmation path. Success is re-checked with the processor.
func (s *PurchaseService) Confirm(ctx context.Context, userID uuid.UUID, intentID string) (*models.Enrollment, error) {
	intent, err := s.processor.RetrievePaymentIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if !intent.Succeeded() {
		return nil, app_errors.ErrPaymentNotSucceeded
	}
	e, err := s.enrollments.EnrollmentByPaymentIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if e.UserID != userID {
		s.log.Warn("confirm for foreign payment intent", "user_id", userID, "enrollment_id", e.ID)
		return nil, app_errors.ErrNotEnrollmentOwner
	}
	return s.applyPayment(ctx, e.ID, intentID)
}

// OnPaymentSucceeded is the webhook path. It runs the same transition as Confirm and
// treats an already paid intent as done.
func (s *PurchaseService) OnPaymentSucceeded(ctx context.Context, ev *payment.Event) error {
	if ev.Intent == nil {
		return fmt.Errorf("event %s carries no payment intent", ev.ID)
	}
	if !ev.Intent.Succeeded() {
		s.log.Warn("succeeded event with intent in another state",
			"event_id", ev.ID, "intent_id", ev.Intent.ID, "status", ev.Intent.Status)
		return nil
	}
	e, err := s.enrollments.EnrollmentByPaymentIntent(ctx, ev.Intent.ID)
	if errors.Is(err, app_errors.ErrEnrollmentNotFound) {
		s.log.Error("payment succeeded for unknown enrollment",
			"event_id", ev.ID, "intent_id", ev.Intent.ID, "metadata", ev.Intent.Metadata)
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.applyPayment(ctx, e.ID, ev.Intent.ID)
	return err
}

func (s *PurchaseService) OnPaymentFailed(_ context.Context, ev *payment.Event) error {
	if ev.Intent == nil {
		return nil
	}
	s.log.Warn("payment failed", "event_id", ev.ID, "intent_id", ev.Intent.ID, "metadata", ev.Intent.Metadata)
	return nil
}

// applyPayment is shared by Confirm and the webhook. The membership add is idempotent and
// runs on every call that leaves the enrollment with access, so a retry repairs a failed add.
func (s *PurchaseService) applyPayment(ctx context.Context, enrollmentID uuid.UUID, intentID string) (*models.Enrollment, error) {
	var changed, granted bool
	updated, err := s.enrollments.UpdateEnrollment(ctx, enrollmentID, func(e *models.Enrollment) error {
		var err error
		changed, granted, err = e.ApplyPayment(intentID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	if updated.HasAccess() {
		if err := s.students.AddStudent(ctx, updated.CourseID, updated.UserID); err != nil {
			return nil, err
		}
	}

	switch {
	case granted:
		s.log.Info("access granted", "enrollment_id", updated.ID, "status", updated.Status)
	case changed:
		s.log.Info("payment applied", "enrollment_id", updated.ID, "status", updated.Status)
	default:
		s.log.Debug("payment already applied", "enrollment_id", updated.ID, "intent_id", intentID)
	}
	return updated, nil
}

// supersede settles an intent that is about to be replaced so that no payable intent is left
// unreachable. A succeeded intent is applied and reported as paid; an open one is cancelled.
func (s *PurchaseService) supersede(ctx context.Context, enrollmentID uuid.UUID, intentID string) (bool, error) {
	if intentID == "" {
		return false, nil
	}
	intent, err := s.processor.RetrievePaymentIntent(ctx, intentID)
	if err != nil {
		return false, err
	}
	switch intent.Status {
	case payment.StatusSucceeded:
		if _, err := s.applyPayment(ctx, enrollmentID, intentID); err != nil {
			return false, err
		}
		return true, nil
	case payment.StatusCanceled:
		return false, nil
	case payment.StatusProcessing:
		return false, app_errors.ErrPaymentInProgress
	}
	if _, err := s.processor.CancelPaymentIntent(ctx, intentID); err != nil {
		return false, err
	}
	s.log.Info("payment intent superseded", "enrollment_id", enrollmentID, "intent_id", intentID)
	return false, nil
}

// discardIntent cancels an intent that was created but never bound to an enrollment.
func (s *PurchaseService) discardIntent(ctx context.Context, intentID string) {
	if _, err := s.processor.CancelPaymentIntent(ctx, intentID); err != nil {
		s.log.ErrorErr("failed to cancel unbound payment intent", err, "intent_id", intentID)
	}
}

// PayNextInstallment opens a payment intent for the earliest unpaid installment.
func (s *PurchaseService) PayNextInstallment(ctx context.Context, userID, courseID uuid.UUID) (*Checkout, error) {
	e, err := s.enrollments.EnrollmentByUserCourse(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, app_errors.ErrEnrollmentNotFound) {
			return nil, app_errors.ErrNotEnrolled
		}
		return nil, err
	}
	plan, ok := e.Plan.(*models.InstallmentPayment)
	if !ok {
		return nil, app_errors.ErrNoPendingInstallment
	}
	var idx int
	for {
		if idx = plan.NextUnpaid(); idx < 0 {
			return nil, app_errors.ErrNoPendingInstallment
		}
		paid, err := s.supersede(ctx, e.ID, plan.Installments[idx].PaymentIntentID)
		if err != nil {
			return nil, err
		}
		if !paid {
			break
		}
		if e, err = s.enrollments.EnrollmentByID(ctx, e.ID); err != nil {
			return nil, err
		}
		if plan, ok = e.Plan.(*models.InstallmentPayment); !ok {
			return nil, app_errors.ErrNoPendingInstallment
		}
	}
	prev := plan.Installments[idx].PaymentIntentID
	amount := plan.Installments[idx].Amount

	intent, err := s.processor.CreatePaymentIntent(ctx, payment.IntentRequest{
		Amount:       amount,
		CustomerRef:  e.CustomerRef,
		EnrollmentID: e.ID,
		UserID:       userID,
		CourseID:     courseID,
		Installment:  idx + 1,
	})
	if err != nil {
		return nil, err
	}

	_, err = s.enrollments.UpdateEnrollment(ctx, e.ID, func(cur *models.Enrollment) error {
		p, ok := cur.Plan.(*models.InstallmentPayment)
		if !ok || p.NextUnpaid() != idx {
			return app_errors.ErrNoPendingInstallment
		}
		if p.Installments[idx].PaymentIntentID != prev {
			return app_errors.ErrPaymentInProgress
		}
		_, err := cur.BindIntent(intent.ID, s.now())
		return err
	})
	if err != nil {
		s.discardIntent(ctx, intent.ID)
		return nil, err
	}

	return &Checkout{
		EnrollmentID:    e.ID,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          amount,
		PaymentType:     models.PaymentTypeInstallment,
		Installment:     idx + 1,
	}, nil
}

// MyEnrollments lists every enrollment of the user, paid or not.
func (s *PurchaseService) MyEnrollments(ctx context.Context, userID uuid.UUID) ([]models.EnrolledCourse, error) {
	enrollments, err := s.enrollments.EnrollmentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	courses, err := s.courses.CoursesByIDs(ctx, courseIDs(enrollments))
	if err != nil {
		return nil, err
	}
	out := make([]models.EnrolledCourse, 0, len(enrollments))
	for _, e := range enrollments {
		c, ok := courses[e.CourseID]
		if !ok {
			continue
		}
		out = append(out, models.EnrolledCourse{Course: c.Preview(), Enrollment: e, Progress: e.Snapshot()})
	}
	return out, nil
}

func (s *PurchaseService) PendingInstallments(ctx context.Context, userID uuid.UUID) ([]models.PendingInstallment, error) {
	enrollments, err := s.enrollments.EnrollmentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	courses, err := s.courses.CoursesByIDs(ctx, courseIDs(enrollments))
	if err != nil {
		return nil, err
	}
	out := make([]models.PendingInstallment, 0)
	for _, e := range enrollments {
		for i, in := range e.Installments() {
			if in.Status == models.InstallmentPaid {
				continue
			}
			out = append(out, models.PendingInstallment{
				EnrollmentID: e.ID,
				CourseID:     e.CourseID,
				CourseTitle:  courses[e.CourseID].Title,
				Index:        i,
				Installment:  in,
			})
		}
	}
	return out, nil
}

// SetDefaulted is an administrative transition; a fully paid enrollment cannot default.
func (s *PurchaseService) SetDefaulted(ctx context.Context, enrollmentID uuid.UUID) (*models.Enrollment, error) {
	return s.enrollments.UpdateEnrollment(ctx, enrollmentID, func(e *models.Enrollment) error {
		if e.Status == models.EnrollmentCompleted {
			return app_errors.ErrInvalidStatus
		}
		e.Status = models.EnrollmentDefaulted
		e.UpdatedAt = s.now()
		return nil
	})
}

// MarkOverdueInstallments flips every pending installment past its due date to overdue.
func (s *PurchaseService) MarkOverdueInstallments(ctx context.Context, now time.Time) (int, error) {
	open, err := s.enrollments.OpenInstallmentEnrollments(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, e := range open {
		if p, ok := e.Plan.(*models.InstallmentPayment); !ok || !hasOverdue(p, now) {
			continue
		}
		var n int
		_, err := s.enrollments.UpdateEnrollment(ctx, e.ID, func(cur *models.Enrollment) error {
			if p, ok := cur.Plan.(*models.InstallmentPayment); ok {
				n = p.MarkOverdue(now)
			}
			return nil
		})
		if err != nil {
			s.log.ErrorErr("failed to mark installments overdue", err, "enrollment_id", e.ID)
			continue
		}
		total += n
	}
	return total, nil
}

func hasOverdue(p *models.InstallmentPayment, now time.Time) bool {
	for _, in := range p.Installments {
		if in.Status == models.InstallmentPending && in.DueDate.Before(now) {
			return true
		}
	}
	return false
}

func courseIDs(enrollments []models.Enrollment) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.CourseID)
	}
	return ids
}

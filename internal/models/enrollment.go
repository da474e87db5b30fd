package models

import (
	"CourseMarket/internal/app_errors"
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	EnrollmentActive    = "active"
	EnrollmentCompleted = "completed"
	EnrollmentDefaulted = "defaulted"
)

const (
	CompletionNotStarted = "not-started"
	CompletionInProgress = "in-progress"
	CompletionCompleted  = "completed"
)

type Enrollment struct {
	ID               uuid.UUID   `json:"id"`
	UserID           uuid.UUID   `json:"user_id"`
	CourseID         uuid.UUID   `json:"course_id"`
	TotalAmount      int64       `json:"total_amount"`
	Plan             PaymentPlan `json:"-"`
	PaymentIntentID  string      `json:"payment_intent_id,omitempty"`
	CustomerRef      string      `json:"-"`
	Status           string      `json:"status"`
	AccessGrantedAt  *time.Time  `json:"access_granted_at,omitempty"`
	CompletedVideos  []uuid.UUID `json:"completed_videos"`
	Progress         int         `json:"progress"`
	CompletionStatus string      `json:"completion_status"`
	CompletionDate   *time.Time  `json:"completion_date,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// NewEnrollment builds an unpaid enrollment. Status is active before any payment lands;
// access is gated on AccessGrantedAt.
func NewEnrollment(userID, courseID uuid.UUID, total int64, plan PaymentPlan, now time.Time) *Enrollment {
	return &Enrollment{
		ID:               uuid.New(),
		UserID:           userID,
		CourseID:         courseID,
		TotalAmount:      total,
		Plan:             plan,
		Status:           EnrollmentActive,
		CompletedVideos:  []uuid.UUID{},
		CompletionStatus: CompletionNotStarted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (e *Enrollment) HasAccess() bool {
	if e.AccessGrantedAt == nil {
		return false
	}
	return e.Status == EnrollmentActive || e.Status == EnrollmentCompleted
}

func (e *Enrollment) PaymentType() string {
	if e.Plan == nil {
		return PaymentTypeFull
	}
	return e.Plan.Type()
}

func (e *Enrollment) Installments() []Installment {
	if p, ok := e.Plan.(*InstallmentPayment); ok {
		return p.Installments
	}
	return nil
}

// ComputeProgress returns round(100*completed/total) clamped to [0,100]; 0 for an empty course.
func ComputeProgress(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(completed) / float64(total)))
	if p > 100 {
		return 100
	}
	return p
}

func CompletionStatusFor(progress int) string {
	switch {
	case progress <= 0:
		return CompletionNotStarted
	case progress >= 100:
		return CompletionCompleted
	default:
		return CompletionInProgress
	}
}

func (e *Enrollment) hasCompleted(id uuid.UUID) bool {
	for _, v := range e.CompletedVideos {
		if v == id {
			return true
		}
	}
	return false
}

// RecordCompletion adds video ids to the completed set and recomputes progress against the
// course's current videos. Ids the course no longer has are dropped first. It reports whether
// this call moved the enrollment into completed.
func (e *Enrollment) RecordCompletion(course *Course, now time.Time, videoIDs ...uuid.UUID) bool {
	e.SyncVideos(course)
	wasCompleted := e.CompletionStatus == CompletionCompleted
	for _, id := range videoIDs {
		if course.HasVideo(id) && !e.hasCompleted(id) {
			e.CompletedVideos = append(e.CompletedVideos, id)
		}
	}
	e.recompute(course.TotalVideos())
	e.UpdatedAt = now

	if e.CompletionStatus != CompletionCompleted || wasCompleted {
		return false
	}
	if e.CompletionDate == nil {
		t := now
		e.CompletionDate = &t
	}
	return true
}

// SyncVideos drops completed ids that are no longer part of the course and recomputes
// progress. It reports whether anything was dropped.
func (e *Enrollment) SyncVideos(course *Course) bool {
	kept := make([]uuid.UUID, 0, len(e.CompletedVideos))
	for _, id := range e.CompletedVideos {
		if course.HasVideo(id) {
			kept = append(kept, id)
		}
	}
	dropped := len(kept) != len(e.CompletedVideos)
	e.CompletedVideos = kept
	e.recompute(course.TotalVideos())
	return dropped
}

// ResetProgress clears the completed set. CompletionDate is kept.
func (e *Enrollment) ResetProgress(now time.Time) {
	e.CompletedVideos = []uuid.UUID{}
	e.Progress = 0
	e.CompletionStatus = CompletionNotStarted
	e.UpdatedAt = now
}

func (e *Enrollment) recompute(totalVideos int) {
	e.Progress = ComputeProgress(len(e.CompletedVideos), totalVideos)
	e.CompletionStatus = CompletionStatusFor(e.Progress)
}

// ApplyPayment marks the payment bound to intentID as paid. Paying something already
// paid is a no-op with changed=false. firstGrant is true when this call granted access.
// A defaulted enrollment records the payment but stays defaulted.
func (e *Enrollment) ApplyPayment(intentID string, now time.Time) (changed, firstGrant bool, err error) {
	defaulted := e.Status == EnrollmentDefaulted
	switch p := e.Plan.(type) {
	case FullPayment:
		if p.PaidAt != nil {
			break
		}
		t := now
		e.Plan = FullPayment{PaidAt: &t}
		if !defaulted {
			e.Status = EnrollmentCompleted
		}
		changed = true
	case *InstallmentPayment:
		i := p.indexByIntent(intentID)
		if i < 0 && intentID == e.PaymentIntentID && len(p.Installments) > 0 {
			i = 0
		}
		if i < 0 {
			return false, false, app_errors.ErrEnrollmentNotFound
		}
		in := &p.Installments[i]
		if in.Status == InstallmentPaid {
			break
		}
		t := now
		in.Status = InstallmentPaid
		in.PaidAt = &t
		in.PaymentIntentID = intentID
		switch {
		case defaulted:
		case p.AllPaid():
			e.Status = EnrollmentCompleted
		default:
			e.Status = EnrollmentActive
		}
		changed = true
	default:
		return false, false, app_errors.ErrInvalidPaymentType
	}

	if changed {
		e.UpdatedAt = now
		if e.AccessGrantedAt == nil {
			t := now
			e.AccessGrantedAt = &t
			firstGrant = !defaulted
		}
	}
	return changed, firstGrant, nil
}

// BindIntent attaches a new payment intent to the earliest unpaid installment.
func (e *Enrollment) BindIntent(intentID string, now time.Time) (Installment, error) {
	p, ok := e.Plan.(*InstallmentPayment)
	if !ok {
		return Installment{}, app_errors.ErrNoPendingInstallment
	}
	i := p.NextUnpaid()
	if i < 0 {
		return Installment{}, app_errors.ErrNoPendingInstallment
	}
	p.Installments[i].PaymentIntentID = intentID
	e.UpdatedAt = now
	return p.Installments[i], nil
}

// ProgressSnapshot is what progress operations hand back to callers.
type ProgressSnapshot struct {
	CourseID         uuid.UUID   `json:"course_id"`
	Progress         int         `json:"progress"`
	CompletionStatus string      `json:"completion_status"`
	CompletedVideos  []uuid.UUID `json:"completed_videos"`
	CompletionDate   *time.Time  `json:"completion_date,omitempty"`
}

func (e *Enrollment) Snapshot() ProgressSnapshot {
	videos := make([]uuid.UUID, len(e.CompletedVideos))
	copy(videos, e.CompletedVideos)
	return ProgressSnapshot{
		CourseID:         e.CourseID,
		Progress:         e.Progress,
		CompletionStatus: e.CompletionStatus,
		CompletedVideos:  videos,
		CompletionDate:   e.CompletionDate,
	}
}

type VideoProgress struct {
	VideoID   uuid.UUID `json:"video_id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
}

type CourseProgressReport struct {
	ProgressSnapshot
	CourseTitle     string          `json:"course_title"`
	TotalVideos     int             `json:"total_videos"`
	CompletedCount  int             `json:"completed_count"`
	Videos          []VideoProgress `json:"videos"`
}

type EnrolledCourse struct {
	Course     CoursePreview    `json:"course"`
	Enrollment Enrollment       `json:"enrollment"`
	Progress   ProgressSnapshot `json:"progress"`
}

type PendingInstallment struct {
	EnrollmentID uuid.UUID   `json:"enrollment_id"`
	CourseID     uuid.UUID   `json:"course_id"`
	CourseTitle  string      `json:"course_title"`
	Index        int         `json:"index"`
	Installment  Installment `json:"installment"`
}

package progress

import (
	"CourseMarket/internal/app_errors"
	"CourseMarket/internal/models"
	"CourseMarket/pkg/logger"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type courseRepo interface {
	CourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	CoursesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Course, error)
}

type enrollmentRepo interface {
	EnrollmentByUserCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error)
	EnrollmentsByUser(ctx context.Context, userID uuid.UUID) ([]models.Enrollment, error)
	UpdateEnrollment(ctx context.Context, id uuid.UUID, fn func(*models.Enrollment) error) (*models.Enrollment, error)
}

type userRepo interface {
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type completionDispatcher interface {
	OnCourseCompleted(ctx context.Context, user *models.User, course *models.Course, e *models.Enrollment)
}

type ProgressService struct {
	log         logger.Log
	courses     courseRepo
	enrollments enrollmentRepo
	users       userRepo
	dispatcher  completionDispatcher
	now         func() time.Time
}

func NewProgressService(log logger.Log, c courseRepo, e enrollmentRepo, u userRepo, d completionDispatcher) *ProgressService {
	return &ProgressService{
		log:         log.With("service", "progress"),
		courses:     c,
		enrollments: e,
		users:       u,
		dispatcher:  d,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// accessibleEnrollment returns the enrollment only if it currently grants access to the course.
func (s *ProgressService) accessibleEnrollment(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error) {
	e, err := s.enrollments.EnrollmentByUserCourse(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, app_errors.ErrEnrollmentNotFound) {
			return nil, app_errors.ErrNotEnrolled
		}
		return nil, err
	}
	if !e.HasAccess() {
		return nil, app_errors.ErrNotEnrolled
	}
	return e, nil
}

// RecordCompletion marks the given videos as completed. Re-adding a completed video is a no-op.
// The completion side effects run once per transition into completed, after the write commits.
func (s *ProgressService) RecordCompletion(ctx context.Context, userID, courseID uuid.UUID, videoIDs ...uuid.UUID) (*models.ProgressSnapshot, error) {
	if len(videoIDs) == 0 {
		return nil, app_errors.ErrEmptyVideoList
	}
	course, err := s.courses.CourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	for _, id := range videoIDs {
		if !course.HasVideo(id) {
			return nil, app_errors.ErrVideoNotInCourse
		}
	}
	e, err := s.accessibleEnrollment(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	var completed bool
	updated, err := s.enrollments.UpdateEnrollment(ctx, e.ID, func(cur *models.Enrollment) error {
		if !cur.HasAccess() {
			return app_errors.ErrNotEnrolled
		}
		completed = cur.RecordCompletion(course, s.now(), videoIDs...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completed {
		s.log.Info("course completed", "user_id", userID, "course_id", courseID)
		s.dispatchCompletion(ctx, userID, course, updated)
	}

	snap := updated.Snapshot()
	return &snap, nil
}

func (s *ProgressService) dispatchCompletion(ctx context.Context, userID uuid.UUID, course *models.Course, e *models.Enrollment) {
	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		s.log.ErrorErr("completion: failed to load user", err, "user_id", userID)
		user = &models.User{ID: userID}
	}
	s.dispatcher.OnCourseCompleted(ctx, user, course, e)
}

// ResetProgress clears the completed set of the user's enrollment. The completion date stays.
func (s *ProgressService) ResetProgress(ctx context.Context, userID, courseID uuid.UUID) (*models.ProgressSnapshot, error) {
	if _, err := s.courses.CourseByID(ctx, courseID); err != nil {
		return nil, err
	}
	e, err := s.accessibleEnrollment(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	updated, err := s.enrollments.UpdateEnrollment(ctx, e.ID, func(cur *models.Enrollment) error {
		cur.ResetProgress(s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	snap := updated.Snapshot()
	return &snap, nil
}

func (s *ProgressService) CourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*models.CourseProgressReport, error) {
	course, err := s.courses.CourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	e, err := s.accessibleEnrollment(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	e.SyncVideos(course)
	done := make(map[uuid.UUID]struct{}, len(e.CompletedVideos))
	for _, id := range e.CompletedVideos {
		done[id] = struct{}{}
	}
	report := &models.CourseProgressReport{
		ProgressSnapshot: e.Snapshot(),
		CourseTitle:      course.Title,
		TotalVideos:      course.TotalVideos(),
		Videos:           make([]models.VideoProgress, 0, len(course.Videos)),
	}
	for _, v := range course.Videos {
		_, ok := done[v.ID]
		if ok {
			report.CompletedCount++
		}
		report.Videos = append(report.Videos, models.VideoProgress{VideoID: v.ID, Title: v.Title, Completed: ok})
	}
	return report, nil
}

// MyCourses lists every course the user can access together with its progress.
func (s *ProgressService) MyCourses(ctx context.Context, userID uuid.UUID) ([]models.EnrolledCourse, error) {
	enrollments, err := s.enrollments.EnrollmentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(enrollments))
	for _, e := range enrollments {
		if e.HasAccess() {
			ids = append(ids, e.CourseID)
		}
	}
	courses, err := s.courses.CoursesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.EnrolledCourse, 0, len(ids))
	for _, e := range enrollments {
		if !e.HasAccess() {
			continue
		}
		c, ok := courses[e.CourseID]
		if !ok {
			s.log.Warn("enrollment references missing course", "enrollment_id", e.ID, "course_id", e.CourseID)
			continue
		}
		out = append(out, models.EnrolledCourse{
			Course:     c.Preview(),
			Enrollment: e,
			Progress:   e.Snapshot(),
		})
	}
	return out, nil
}

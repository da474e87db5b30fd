package review

import (
	"CourseMarket/internal/app_errors"
	"CourseMarket/internal/models"
	"CourseMarket/pkg/logger"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCourses struct {
	byID map[uuid.UUID]*models.Course
}

func (f *fakeCourses) CourseByID(_ context.Context, id uuid.UUID) (*models.Course, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, app_errors.ErrCourseNotFound
	}
	return c, nil
}

func (f *fakeCourses) UpdateRating(_ context.Context, id uuid.UUID, rating float64) error {
	c, ok := f.byID[id]
	if !ok {
		return app_errors.ErrCourseNotFound
	}
	c.Rating = rating
	return nil
}

type fakeReviews struct {
	byID map[uuid.UUID]*models.Review
}

func (f *fakeReviews) UpsertReview(_ context.Context, rv *models.Review) error {
	for _, cur := range f.byID {
		if cur.CourseID == rv.CourseID && cur.UserID == rv.UserID {
			cur.Rating = rv.Rating
			cur.Comment = rv.Comment
			rv.ID = cur.ID
			return nil
		}
	}
	rv.ID = uuid.New()
	cp := *rv
	f.byID[rv.ID] = &cp
	return nil
}

func (f *fakeReviews) ReviewByID(_ context.Context, id uuid.UUID) (*models.Review, error) {
	rv, ok := f.byID[id]
	if !ok {
		return nil, app_errors.ErrReviewNotFound
	}
	cp := *rv
	return &cp, nil
}

func (f *fakeReviews) DeleteReview(_ context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return app_errors.ErrReviewNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeReviews) ReviewsByCourse(_ context.Context, courseID uuid.UUID) ([]models.Review, error) {
	var out []models.Review
	for _, rv := range f.byID {
		if rv.CourseID == courseID {
			out = append(out, *rv)
		}
	}
	return out, nil
}

func (f *fakeReviews) RatingsByCourse(_ context.Context, courseID uuid.UUID) ([]int, error) {
	var out []int
	for _, rv := range f.byID {
		if rv.CourseID == courseID {
			out = append(out, rv.Rating)
		}
	}
	return out, nil
}

type fakeEnrollments struct {
	byUser map[uuid.UUID]*models.Enrollment
}

func (f *fakeEnrollments) EnrollmentByUserCourse(_ context.Context, userID, _ uuid.UUID) (*models.Enrollment, error) {
	e, ok := f.byUser[userID]
	if !ok {
		return nil, app_errors.ErrEnrollmentNotFound
	}
	return e, nil
}

type env struct {
	svc         *ReviewService
	course      *models.Course
	enrollments *fakeEnrollments
}

func newEnv() *env {
	course := &models.Course{ID: uuid.New(), InstructorID: uuid.New(), Status: models.CourseStatusPublished}
	en := &fakeEnrollments{byUser: map[uuid.UUID]*models.Enrollment{}}
	svc := NewReviewService(logger.NewDiscard(),
		&fakeCourses{byID: map[uuid.UUID]*models.Course{course.ID: course}},
		&fakeReviews{byID: map[uuid.UUID]*models.Review{}}, en)
	return &env{svc: svc, course: course, enrollments: en}
}

func (e *env) student(t *testing.T) uuid.UUID {
	t.Helper()
	userID := uuid.New()
	now := time.Now()
	en := models.NewEnrollment(userID, e.course.ID, 50, models.FullPayment{}, now)
	en.PaymentIntentID = "pi_" + userID.String()
	_, _, err := en.ApplyPayment(en.PaymentIntentID, now)
	require.NoError(t, err)
	e.enrollments.byUser[userID] = en
	return userID
}

func TestRatingIsMeanOfReviews(t *testing.T) {
	env := newEnv()
	ctx := context.Background()

	for _, r := range []int{3, 4} {
		_, err := env.svc.AddOrUpdateReview(ctx, env.student(t), env.course.ID, r, "fine")
		require.NoError(t, err)
	}
	assert.InDelta(t, 3.5, env.course.Rating, 1e-9)

	fiveBy := env.student(t)
	five, err := env.svc.AddOrUpdateReview(ctx, fiveBy, env.course.ID, 5, "great")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, env.course.Rating, 1e-9)

	require.NoError(t, env.svc.DeleteReview(ctx, five.ID, fiveBy, []string{models.StudentRole}))
	assert.InDelta(t, 3.5, env.course.Rating, 1e-9)
}

func TestAddOrUpdateReview_UpdatesInPlace(t *testing.T) {
	env := newEnv()
	ctx := context.Background()
	user := env.student(t)

	first, err := env.svc.AddOrUpdateReview(ctx, user, env.course.ID, 2, "meh")
	require.NoError(t, err)
	second, err := env.svc.AddOrUpdateReview(ctx, user, env.course.ID, 4, "better after update")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.InDelta(t, 4.0, env.course.Rating, 1e-9)
	list, err := env.svc.ListReviews(ctx, env.course.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAddOrUpdateReview_Validation(t *testing.T) {
	env := newEnv()
	ctx := context.Background()
	user := env.student(t)

	_, err := env.svc.AddOrUpdateReview(ctx, user, env.course.ID, 0, "x")
	assert.ErrorIs(t, err, app_errors.ErrInvalidRating)
	_, err = env.svc.AddOrUpdateReview(ctx, user, env.course.ID, 6, "x")
	assert.ErrorIs(t, err, app_errors.ErrInvalidRating)
	_, err = env.svc.AddOrUpdateReview(ctx, user, env.course.ID, 4, "   ")
	assert.ErrorIs(t, err, app_errors.ErrEmptyComment)
	_, err = env.svc.AddOrUpdateReview(ctx, uuid.New(), env.course.ID, 4, "x")
	assert.ErrorIs(t, err, app_errors.ErrNotEnrolled)
	_, err = env.svc.AddOrUpdateReview(ctx, user, uuid.New(), 4, "x")
	assert.ErrorIs(t, err, app_errors.ErrCourseNotFound)

	unpaid := uuid.New()
	env.enrollments.byUser[unpaid] = models.NewEnrollment(unpaid, env.course.ID, 50, models.FullPayment{}, time.Now())
	_, err = env.svc.AddOrUpdateReview(ctx, unpaid, env.course.ID, 4, "x")
	assert.ErrorIs(t, err, app_errors.ErrNotEnrolled)
}

func TestDeleteReview_Permissions(t *testing.T) {
	env := newEnv()
	ctx := context.Background()
	author := env.student(t)

	add := func() uuid.UUID {
		rv, err := env.svc.AddOrUpdateReview(ctx, author, env.course.ID, 5, "ok")
		require.NoError(t, err)
		return rv.ID
	}

	id := add()
	err := env.svc.DeleteReview(ctx, id, uuid.New(), []string{models.StudentRole})
	assert.ErrorIs(t, err, app_errors.ErrForbidden)

	require.NoError(t, env.svc.DeleteReview(ctx, id, env.course.InstructorID, []string{models.ProfessorRole}))
	assert.Zero(t, env.course.Rating)

	id = add()
	require.NoError(t, env.svc.DeleteReview(ctx, id, uuid.New(), []string{models.AdminRole}))

	err = env.svc.DeleteReview(ctx, id, author, nil)
	assert.ErrorIs(t, err, app_errors.ErrReviewNotFound)
}

package progress

import (
	"CourseMarket/internal/app_errors"
	"CourseMarket/internal/models"
	"CourseMarket/pkg/logger"
	"context"
	"sync"
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

func (f *fakeCourses) CoursesByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Course, error) {
	out := map[uuid.UUID]models.Course{}
	for _, id := range ids {
		if c, ok := f.byID[id]; ok {
			out[id] = *c
		}
	}
	return out, nil
}

type fakeEnrollments struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.Enrollment
}

func clone(e *models.Enrollment) *models.Enrollment {
	c := *e
	c.CompletedVideos = append([]uuid.UUID{}, e.CompletedVideos...)
	if p, ok := e.Plan.(*models.InstallmentPayment); ok {
		cp := *p
		cp.Installments = append([]models.Installment{}, p.Installments...)
		c.Plan = &cp
	}
	return &c
}

func (f *fakeEnrollments) EnrollmentByUserCourse(_ context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.byID {
		if e.UserID == userID && e.CourseID == courseID {
			return clone(e), nil
		}
	}
	return nil, app_errors.ErrEnrollmentNotFound
}

func (f *fakeEnrollments) EnrollmentsByUser(_ context.Context, userID uuid.UUID) ([]models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Enrollment
	for _, e := range f.byID {
		if e.UserID == userID {
			out = append(out, *clone(e))
		}
	}
	return out, nil
}

func (f *fakeEnrollments) UpdateEnrollment(_ context.Context, id uuid.UUID, fn func(*models.Enrollment) error) (*models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byID[id]
	if !ok {
		return nil, app_errors.ErrEnrollmentNotFound
	}
	work := clone(cur)
	if err := fn(work); err != nil {
		return nil, err
	}
	f.byID[id] = work
	return clone(work), nil
}

type fakeUsers struct{}

func (fakeUsers) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return &models.User{ID: id, Name: "Student", Email: "student@example.com"}, nil
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (d *recordingDispatcher) OnCourseCompleted(_ context.Context, _ *models.User, _ *models.Course, e *models.Enrollment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, e.ID)
}

type env struct {
	svc         *ProgressService
	course      *models.Course
	enrollments *fakeEnrollments
	dispatcher  *recordingDispatcher
	userID      uuid.UUID
	enrollment  *models.Enrollment
}

func newEnv(t *testing.T, videos int) *env {
	t.Helper()
	course := &models.Course{ID: uuid.New(), Title: "Go in practice", Status: models.CourseStatusPublished}
	for i := 0; i < videos; i++ {
		course.Videos = append(course.Videos, models.Video{ID: uuid.New(), Title: "video"})
	}
	userID := uuid.New()
	now := time.Now()
	e := models.NewEnrollment(userID, course.ID, 100, models.FullPayment{}, now)
	e.PaymentIntentID = "pi_1"
	_, _, err := e.ApplyPayment("pi_1", now)
	require.NoError(t, err)

	enrollments := &fakeEnrollments{byID: map[uuid.UUID]*models.Enrollment{e.ID: e}}
	dispatcher := &recordingDispatcher{}
	svc := NewProgressService(logger.NewDiscard(),
		&fakeCourses{byID: map[uuid.UUID]*models.Course{course.ID: course}},
		enrollments, fakeUsers{}, dispatcher)
	return &env{svc: svc, course: course, enrollments: enrollments, dispatcher: dispatcher, userID: userID, enrollment: e}
}

func (e *env) video(i int) uuid.UUID { return e.course.Videos[i].ID }

func (e *env) stored() *models.Enrollment { return e.enrollments.byID[e.enrollment.ID] }

func TestRecordCompletion_ProgressMath(t *testing.T) {
	env := newEnv(t, 4)
	ctx := context.Background()

	snap, err := env.svc.RecordCompletion(ctx, env.userID, env.course.ID, env.video(0))
	require.NoError(t, err)
	assert.Equal(t, 25, snap.Progress)
	assert.Equal(t, models.CompletionInProgress, snap.CompletionStatus)
	assert.Empty(t, env.dispatcher.calls)

	snap, err = env.svc.RecordCompletion(ctx, env.userID, env.course.ID, env.video(1), env.video(2), env.video(3))
	require.NoError(t, err)
	assert.Equal(t, 100, snap.Progress)
	assert.Equal(t, models.CompletionCompleted, snap.CompletionStatus)
	require.NotNil(t, snap.CompletionDate)
	first := *snap.CompletionDate

	snap, err = env.svc.RecordCompletion(ctx, env.userID, env.course.ID, env.video(3))
	require.NoError(t, err)
	assert.Equal(t, first, *snap.CompletionDate)
	assert.Len(t, env.dispatcher.calls, 1, "side effects fire once per transition")
}

func TestRecordCompletion_SameVideoTwice(t *testing.T) {
	env := newEnv(t, 3)
	ctx := context.Background()

	once, err := env.svc.RecordCompletion(ctx, env.userID, env.course.ID, env.video(1))
	require.NoError(t, err)
	twice, err := env.svc.RecordCompletion(ctx, env.userID, env.course.ID, env.video(1))
	require.NoError(t, err)

	assert.Equal(t, once.Progress, twice.Progress)
	assert.Equal(t, once.CompletionStatus, twice.CompletionStatus)
	assert.Equal(t, once.CompletedVideos, twice.CompletedVideos)
}

func TestRecordCompletion_StatusFollowsProgress(t *testing.T) {
	env := newEnv(t, 3)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		snap, err := env.svc.RecordCompletion(ctx, env.userID, env.course.ID, env.video(i))
		require.NoError(t, err)
		assert.Equal(t, models.CompletionStatusFor(snap.Progress), snap.CompletionStatus)
		assert.Equal(t, models.CompletionStatusFor(env.stored().Progress), env.stored().CompletionStatus)
	}
	snap, err := env.svc.ResetProgress(ctx, env.userID, env.course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CompletionStatusFor(snap.Progress), snap.CompletionStatus)
}

func TestRecordCompletion_ConcurrentCallsDispatchOnce(t *testing.T) {
	env := newEnv(t, 2)
	ctx := context.Background()
	_, err := env.svc.RecordCompletion(ctx, env.userID, env.course.ID, env.video(0))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.RecordCompletion(ctx, env.userID, env.course.ID, env.video(1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, env.dispatcher.calls, 1)
}

func TestRecordCompletion_Errors(t *testing.T) {
	env := newEnv(t, 2)
	ctx := context.Background()

	_, err := env.svc.RecordCompletion(ctx, env.userID, env.course.ID, uuid.New())
	assert.ErrorIs(t, err, app_errors.ErrVideoNotInCourse)

	_, err = env.svc.RecordCompletion(ctx, env.userID, uuid.New(), env.video(0))
	assert.ErrorIs(t, err, app_errors.ErrCourseNotFound)

	_, err = env.svc.RecordCompletion(ctx, uuid.New(), env.course.ID, env.video(0))
	assert.ErrorIs(t, err, app_errors.ErrNotEnrolled)

	_, err = env.svc.RecordCompletion(ctx, env.userID, env.course.ID)
	assert.ErrorIs(t, err, app_errors.ErrEmptyVideoList)
}

func TestRecordCompletion_UnpaidEnrollmentIsNotEnrolled(t *testing.T) {
	env := newEnv(t, 2)
	unpaid := models.NewEnrollment(uuid.New(), env.course.ID, 100, models.FullPayment{}, time.Now())
	env.enrollments.byID[unpaid.ID] = unpaid

	_, err := env.svc.RecordCompletion(context.Background(), unpaid.UserID, env.course.ID, env.video(0))
	assert.ErrorIs(t, err, app_errors.ErrNotEnrolled)
}

func TestResetProgress(t *testing.T) {
	env := newEnv(t, 5)
	ctx := context.Background()
	_, err := env.svc.RecordCompletion(ctx, env.userID, env.course.ID, env.video(0), env.video(1), env.video(2))
	require.NoError(t, err)
	assert.Equal(t, 60, env.stored().Progress)

	snap, err := env.svc.ResetProgress(ctx, env.userID, env.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Progress)
	assert.Equal(t, models.CompletionNotStarted, snap.CompletionStatus)
	assert.Empty(t, snap.CompletedVideos)
}

func TestCourseProgressAndMyCourses(t *testing.T) {
	env := newEnv(t, 4)
	ctx := context.Background()
	_, err := env.svc.RecordCompletion(ctx, env.userID, env.course.ID, env.video(2))
	require.NoError(t, err)

	report, err := env.svc.CourseProgress(ctx, env.userID, env.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, report.TotalVideos)
	assert.Equal(t, 1, report.CompletedCount)
	assert.True(t, report.Videos[2].Completed)
	assert.False(t, report.Videos[0].Completed)

	mine, err := env.svc.MyCourses(ctx, env.userID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, env.course.ID, mine[0].Course.ID)
	assert.Equal(t, 25, mine[0].Progress.Progress)
}

func TestRecordCompletion_ReplacedVideosStopCounting(t *testing.T) {
	env := newEnv(t, 4)
	ctx := context.Background()
	_, err := env.svc.RecordCompletion(ctx, env.userID, env.course.ID, env.video(0), env.video(1))
	require.NoError(t, err)
	assert.Equal(t, 50, env.stored().Progress)

	env.course.Videos = []models.Video{{ID: uuid.New(), Title: "c"}, {ID: uuid.New(), Title: "d"}}

	report, err := env.svc.CourseProgress(ctx, env.userID, env.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Progress)
	assert.Zero(t, report.CompletedCount)
	assert.Empty(t, report.CompletedVideos)

	snap, err := env.svc.RecordCompletion(ctx, env.userID, env.course.ID, env.video(0))
	require.NoError(t, err)
	assert.Equal(t, 50, snap.Progress)
	assert.Equal(t, models.CompletionInProgress, snap.CompletionStatus)
	assert.Equal(t, []uuid.UUID{env.video(0)}, snap.CompletedVideos)
	assert.Empty(t, env.dispatcher.calls)

	snap, err = env.svc.RecordCompletion(ctx, env.userID, env.course.ID, env.video(1))
	require.NoError(t, err)
	assert.Equal(t, 100, snap.Progress)
	assert.Len(t, env.dispatcher.calls, 1)
}

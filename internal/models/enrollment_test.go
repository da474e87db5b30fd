package models

import (
	"CourseMarket/internal/app_errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paidEnrollment(plan PaymentPlan, now time.Time) *Enrollment {
	e := NewEnrollment(uuid.New(), uuid.New(), 100, plan, now)
	t := now
	e.AccessGrantedAt = &t
	return e
}

func courseWithVideos(n int) (*Course, []uuid.UUID) {
	c := &Course{ID: uuid.New(), Status: CourseStatusPublished}
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
		c.Videos = append(c.Videos, Video{ID: ids[i]})
	}
	return c, ids
}

func TestComputeProgress(t *testing.T) {
	cases := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 4, 0},
		{1, 4, 25},
		{1, 3, 33},
		{2, 3, 67},
		{4, 4, 100},
		{5, 4, 100},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ComputeProgress(c.completed, c.total), "completed=%d total=%d", c.completed, c.total)
	}
}

func TestCompletionStatusFor(t *testing.T) {
	assert.Equal(t, CompletionNotStarted, CompletionStatusFor(0))
	assert.Equal(t, CompletionInProgress, CompletionStatusFor(1))
	assert.Equal(t, CompletionInProgress, CompletionStatusFor(99))
	assert.Equal(t, CompletionCompleted, CompletionStatusFor(100))
}

func TestRecordCompletion_FourVideoCourse(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	e := paidEnrollment(FullPayment{}, now)
	course, videos := courseWithVideos(4)

	became := e.RecordCompletion(course, now, videos[0])
	assert.False(t, became)
	assert.Equal(t, 25, e.Progress)
	assert.Equal(t, CompletionInProgress, e.CompletionStatus)
	assert.Nil(t, e.CompletionDate)

	became = e.RecordCompletion(course, now.Add(time.Hour), videos...)
	assert.True(t, became)
	assert.Equal(t, 100, e.Progress)
	assert.Equal(t, CompletionCompleted, e.CompletionStatus)
	require.NotNil(t, e.CompletionDate)
	first := *e.CompletionDate

	became = e.RecordCompletion(course, now.Add(2*time.Hour), videos[2])
	assert.False(t, became)
	assert.Equal(t, first, *e.CompletionDate)
	assert.Len(t, e.CompletedVideos, 4)
}

func TestRecordCompletion_SetSemantics(t *testing.T) {
	now := time.Now()
	course, ids := courseWithVideos(5)
	v := ids[0]
	once := paidEnrollment(FullPayment{}, now)
	twice := paidEnrollment(FullPayment{}, now)

	once.RecordCompletion(course, now, v)
	twice.RecordCompletion(course, now, v)
	twice.RecordCompletion(course, now, v, v)

	assert.Equal(t, once.Snapshot().CompletedVideos, twice.Snapshot().CompletedVideos)
	assert.Equal(t, once.Progress, twice.Progress)
	assert.Equal(t, once.CompletionStatus, twice.CompletionStatus)
}

func TestResetProgress_KeepsCompletionDate(t *testing.T) {
	now := time.Now()
	e := paidEnrollment(FullPayment{}, now)
	course, ids := courseWithVideos(5)
	e.RecordCompletion(course, now, ids[:3]...)
	assert.Equal(t, 60, e.Progress)

	e.ResetProgress(now)
	assert.Equal(t, 0, e.Progress)
	assert.Equal(t, CompletionNotStarted, e.CompletionStatus)
	assert.Empty(t, e.CompletedVideos)

	assert.True(t, e.RecordCompletion(course, now, ids...))
	date := *e.CompletionDate
	e.ResetProgress(now.Add(time.Hour))
	require.NotNil(t, e.CompletionDate)
	assert.Equal(t, date, *e.CompletionDate)

	assert.True(t, e.RecordCompletion(course, now.Add(2*time.Hour), ids...), "re-completion after reset fires again")
	assert.Equal(t, date, *e.CompletionDate)
}

func TestRecordCompletion_DropsVideosRemovedFromCourse(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	e := paidEnrollment(FullPayment{}, now)
	course, ids := courseWithVideos(4)
	assert.False(t, e.RecordCompletion(course, now, ids[0], ids[1]))
	assert.Equal(t, 50, e.Progress)

	replaced, next := courseWithVideos(2)
	replaced.ID = course.ID

	assert.False(t, e.RecordCompletion(replaced, now, next[0]))
	assert.Equal(t, 50, e.Progress)
	assert.Equal(t, CompletionInProgress, e.CompletionStatus)
	assert.Equal(t, []uuid.UUID{next[0]}, e.CompletedVideos)

	assert.False(t, e.RecordCompletion(replaced, now, ids[2]), "ids outside the course are ignored")
	assert.Equal(t, 50, e.Progress)
	assert.True(t, e.RecordCompletion(replaced, now, next[1]))
	assert.Equal(t, 100, e.Progress)
}

func TestSyncVideos(t *testing.T) {
	now := time.Now()
	e := paidEnrollment(FullPayment{}, now)
	course, ids := courseWithVideos(4)
	e.RecordCompletion(course, now, ids...)
	require.Equal(t, CompletionCompleted, e.CompletionStatus)

	assert.False(t, e.SyncVideos(course))
	assert.Equal(t, 100, e.Progress)

	course.Videos = course.Videos[:1]
	course.Videos = append(course.Videos, Video{ID: uuid.New()})
	assert.True(t, e.SyncVideos(course))
	assert.Equal(t, []uuid.UUID{ids[0]}, e.CompletedVideos)
	assert.Equal(t, 50, e.Progress)
	assert.Equal(t, CompletionInProgress, e.CompletionStatus)
	assert.NotNil(t, e.CompletionDate)
}

func TestBuildInstallments_CeilRounding(t *testing.T) {
	start := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
	rows := BuildInstallments(100, 6, start)
	require.Len(t, rows, 6)
	var sum int64
	for i, r := range rows {
		assert.Equal(t, int64(17), r.Amount)
		assert.Equal(t, InstallmentPending, r.Status)
		assert.Equal(t, start.AddDate(0, i, 0), r.DueDate)
		sum += r.Amount
	}
	assert.Equal(t, int64(102), sum)

	assert.Equal(t, int64(10), BuildInstallments(120, 12, start)[0].Amount)
	assert.Equal(t, int64(5), BuildInstallments(97, 24, start)[23].Amount)
}

func TestApplyPayment_Full(t *testing.T) {
	now := time.Now()
	e := NewEnrollment(uuid.New(), uuid.New(), 100, FullPayment{}, now)
	e.PaymentIntentID = "pi_1"

	changed, grant, err := e.ApplyPayment("pi_1", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, grant)
	assert.Equal(t, EnrollmentCompleted, e.Status)
	assert.True(t, e.HasAccess())

	changed, grant, err = e.ApplyPayment("pi_1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, grant)
}

func TestApplyPayment_Installments(t *testing.T) {
	now := time.Now()
	plan := NewInstallmentPayment(100, 6, now)
	plan.Installments[0].PaymentIntentID = "pi_first"
	e := NewEnrollment(uuid.New(), uuid.New(), 100, plan, now)
	e.PaymentIntentID = "pi_first"

	changed, grant, err := e.ApplyPayment("pi_first", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, grant)
	assert.Equal(t, EnrollmentActive, e.Status)
	assert.Equal(t, InstallmentPaid, e.Installments()[0].Status)
	assert.Equal(t, InstallmentPending, e.Installments()[1].Status)

	changed, grant, err = e.ApplyPayment("pi_first", now)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, grant)

	for i := 1; i < 6; i++ {
		intent := uuid.NewString()
		_, err := e.BindIntent(intent, now)
		require.NoError(t, err)
		changed, grant, err = e.ApplyPayment(intent, now)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.False(t, grant)
	}
	assert.Equal(t, EnrollmentCompleted, e.Status)

	_, err = e.BindIntent("pi_extra", now)
	assert.ErrorIs(t, err, app_errors.ErrNoPendingInstallment)
}

func TestApplyPayment_DefaultedStaysDefaulted(t *testing.T) {
	now := time.Now()
	plan := NewInstallmentPayment(100, 6, now)
	plan.Installments[0].PaymentIntentID = "pi_first"
	e := NewEnrollment(uuid.New(), uuid.New(), 100, plan, now)
	e.PaymentIntentID = "pi_first"
	_, _, err := e.ApplyPayment("pi_first", now)
	require.NoError(t, err)
	_, err = e.BindIntent("pi_second", now)
	require.NoError(t, err)

	e.Status = EnrollmentDefaulted
	changed, grant, err := e.ApplyPayment("pi_second", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, grant)
	assert.Equal(t, EnrollmentDefaulted, e.Status)
	assert.False(t, e.HasAccess())
	assert.Equal(t, InstallmentPaid, e.Installments()[1].Status)

	full := NewEnrollment(uuid.New(), uuid.New(), 100, FullPayment{}, now)
	full.PaymentIntentID = "pi_full"
	full.Status = EnrollmentDefaulted
	changed, grant, err = full.ApplyPayment("pi_full", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, grant)
	assert.Equal(t, EnrollmentDefaulted, full.Status)
	assert.NotNil(t, full.AccessGrantedAt)
	assert.False(t, full.HasAccess())
}

func TestApplyPayment_UnknownIntent(t *testing.T) {
	now := time.Now()
	e := NewEnrollment(uuid.New(), uuid.New(), 100, NewInstallmentPayment(100, 6, now), now)
	e.PaymentIntentID = "pi_a"
	_, _, err := e.ApplyPayment("pi_b", now)
	assert.ErrorIs(t, err, app_errors.ErrEnrollmentNotFound)
}

func TestMarkOverdue(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	plan := NewInstallmentPayment(60, 6, start)
	plan.Installments[0].Status = InstallmentPaid

	n := plan.MarkOverdue(start.AddDate(0, 2, 1))
	assert.Equal(t, 2, n)
	assert.Equal(t, InstallmentPaid, plan.Installments[0].Status)
	assert.Equal(t, InstallmentOverdue, plan.Installments[1].Status)
	assert.Equal(t, InstallmentOverdue, plan.Installments[2].Status)
	assert.Equal(t, InstallmentPending, plan.Installments[3].Status)
	assert.Equal(t, 1, plan.NextUnpaid())
}

func TestAverageRating(t *testing.T) {
	assert.Equal(t, 0.0, AverageRating(nil))
	assert.Equal(t, 4.0, AverageRating([]int{3, 4, 5}))
	assert.Equal(t, 3.5, AverageRating([]int{3, 4}))
}

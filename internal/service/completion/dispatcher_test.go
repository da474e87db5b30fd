package completion

import (
	"CourseMarket/internal/models"
	"CourseMarket/internal/notify"
	"CourseMarket/pkg/logger"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifications struct {
	stored []models.Notification
	err    error
}

func (f *fakeNotifications) CreateNotification(_ context.Context, n *models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, *n)
	return nil
}

type fakeMailer struct {
	sent []notify.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg notify.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func fixture() (*models.User, *models.Course, *models.Enrollment) {
	user := &models.User{ID: uuid.New(), Name: "Ada", Email: "ada@example.com"}
	course := &models.Course{ID: uuid.New(), Title: "Go", Videos: []models.Video{{ID: uuid.New()}}}
	now := time.Now()
	e := models.NewEnrollment(user.ID, course.ID, 10, models.FullPayment{}, now)
	e.CompletionDate = &now
	return user, course, e
}

func TestOnCourseCompleted_StoresNotificationAndSendsEmail(t *testing.T) {
	notes := &fakeNotifications{}
	mail := &fakeMailer{}
	d := NewDispatcher(logger.NewDiscard(), notes, mail)
	user, course, e := fixture()

	d.OnCourseCompleted(context.Background(), user, course, e)

	require.Len(t, notes.stored, 1)
	assert.Equal(t, models.NotificationCourseCompletion, notes.stored[0].Type)
	assert.Equal(t, user.ID, notes.stored[0].UserID)
	require.NotNil(t, notes.stored[0].CourseID)
	assert.Equal(t, course.ID, *notes.stored[0].CourseID)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "ada@example.com", mail.sent[0].ToEmail)
	assert.Contains(t, mail.sent[0].Subject, "Go")
}

func TestOnCourseCompleted_FailuresAreSwallowed(t *testing.T) {
	notes := &fakeNotifications{err: errors.New("db down")}
	mail := &fakeMailer{err: errors.New("smtp down")}
	d := NewDispatcher(logger.NewDiscard(), notes, mail)
	user, course, e := fixture()

	assert.NotPanics(t, func() {
		d.OnCourseCompleted(context.Background(), user, course, e)
	})
	assert.Len(t, mail.sent, 1, "email is still attempted when the notification fails")
}

func TestOnCourseCompleted_NoEmailAddress(t *testing.T) {
	notes := &fakeNotifications{}
	mail := &fakeMailer{}
	d := NewDispatcher(logger.NewDiscard(), notes, mail)
	_, course, e := fixture()

	d.OnCourseCompleted(context.Background(), &models.User{ID: e.UserID}, course, e)

	assert.Len(t, notes.stored, 1)
	assert.Empty(t, mail.sent)
}

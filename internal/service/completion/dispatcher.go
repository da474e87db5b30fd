package completion

import (
	"CourseMarket/internal/models"
	"CourseMarket/internal/notify"
	"CourseMarket/pkg/logger"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const mailTimeout = 10 * time.Second

type notificationRepo interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Dispatcher runs the side effects of a course completion. Every step is best-effort:
// failures are logged and never reach the caller.
type Dispatcher struct {
	log           logger.Log
	notifications notificationRepo
	mailer        notify.Mailer
	now           func() time.Time
}

func NewDispatcher(log logger.Log, n notificationRepo, m notify.Mailer) *Dispatcher {
	return &Dispatcher{
		log:           log.With("component", "completion"),
		notifications: n,
		mailer:        m,
		now:           time.Now,
	}
}

func (d *Dispatcher) OnCourseCompleted(ctx context.Context, user *models.User, course *models.Course, e *models.Enrollment) {
	courseID := course.ID
	n := &models.Notification{
		ID:        uuid.New(),
		UserID:    e.UserID,
		CourseID:  &courseID,
		Title:     "Course completed",
		Message:   fmt.Sprintf("Congratulations! You have completed %q.", course.Title),
		Type:      models.NotificationCourseCompletion,
		CreatedAt: d.now().UTC(),
	}
	if err := d.notifications.CreateNotification(ctx, n); err != nil {
		d.log.ErrorErr("failed to store completion notification", err,
			"user_id", e.UserID, "course_id", course.ID)
	}

	if user == nil || user.Email == "" {
		d.log.Warn("completion email skipped, no address", "user_id", e.UserID)
		return
	}

	// The request may finish before the mail provider answers.
	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
	defer cancel()
	if err := d.mailer.Send(mailCtx, completionEmail(user, course, e)); err != nil {
		d.log.ErrorErr("failed to send completion email", err,
			"user_id", e.UserID, "course_id", course.ID)
	}
}

func completionEmail(user *models.User, course *models.Course, e *models.Enrollment) notify.Message {
	completedOn := ""
	if e.CompletionDate != nil {
		completedOn = e.CompletionDate.Format("January 2, 2006")
	}
	text := fmt.Sprintf(
		"Hi %s,\n\nYou have completed all %d videos of %q on %s.\nYou can now request your certificate.\n",
		user.Name, len(course.Videos), course.Title, completedOn,
	)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>You have completed all %d videos of <strong>%s</strong> on %s.</p><p>You can now request your certificate.</p>",
		user.Name, len(course.Videos), course.Title, completedOn,
	)
	return notify.Message{
		ToName:  user.Name,
		ToEmail: user.Email,
		Subject: "Course completed: " + course.Title,
		Text:    text,
		HTML:    html,
	}
}

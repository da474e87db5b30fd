package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationCourseCompletion = "course_completion"
	NotificationNewCourse        = "new_course"
	NotificationSystem           = "system"
	NotificationOther            = "other"
)

type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	CourseID  *uuid.UUID `json:"course_id,omitempty"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
}

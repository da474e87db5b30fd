package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CourseStatusDraft     = "draft"
	CourseStatusPublished = "published"
	CourseStatusArchived  = "archived"
)

// Media kinds group uploaded objects under a course prefix.
const (
	MediaKindVideo     = "videos"
	MediaKindThumbnail = "thumbnails"
)

type Video struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	DurationSeconds int       `json:"duration_seconds"`
	MediaKey        string    `json:"media_key"`
}

type Course struct {
	ID                 uuid.UUID `json:"id"`
	InstructorID       uuid.UUID `json:"instructor_id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Category           string    `json:"category"`
	ThumbnailObjectKey string    `json:"thumbnail_object_key,omitempty"`
	Videos             []Video   `json:"videos"`
	Price              int64     `json:"price"`
	Status             string    `json:"status"`
	Rating             float64   `json:"rating"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (c *Course) TotalVideos() int {
	return len(c.Videos)
}

func (c *Course) HasVideo(id uuid.UUID) bool {
	for _, v := range c.Videos {
		if v.ID == id {
			return true
		}
	}
	return false
}

func (c *Course) IsPublished() bool {
	return c.Status == CourseStatusPublished
}

// CanTransition reports whether a course may move from its current status to next.
// Archived courses can be republished; nothing goes back to draft.
func (c *Course) CanTransition(next string) bool {
	switch next {
	case CourseStatusPublished:
		return c.Status == CourseStatusDraft || c.Status == CourseStatusArchived
	case CourseStatusArchived:
		return c.Status == CourseStatusPublished
	}
	return false
}

// Preview is the public card of a course. URLs and instructor name are filled by the caller.
func (c *Course) Preview() CoursePreview {
	return CoursePreview{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Category:    c.Category,
		Price:       c.Price,
		Rating:      c.Rating,
		VideoCount:  len(c.Videos),
		Status:      c.Status,
	}
}

type CoursePreview struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	InstructorName string    `json:"instructor_name"`
	ThumbnailURL   string    `json:"thumbnail_url,omitempty"`
	Price          int64     `json:"price"`
	Rating         float64   `json:"rating"`
	VideoCount     int       `json:"video_count"`
	Status         string    `json:"status"`
}

// VideoView is a video as shown to a viewer with access, with a playable link.
type VideoView struct {
	Video
	URL string `json:"url,omitempty"`
}

type CourseDetail struct {
	CoursePreview
	Videos      []VideoView `json:"videos,omitempty"`
	HasAccess   bool        `json:"has_access"`
	ReviewCount int         `json:"review_count"`
}

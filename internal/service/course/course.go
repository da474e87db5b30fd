package course

import (
	"CourseMarket/internal/app_errors"
	"CourseMarket/internal/models"
	"CourseMarket/pkg/logger"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	maxThumbnailSizeBytes = 5 << 20
	previewDescriptionLen = 200
	relatedCoursesLimit   = 4
)

type userRepo interface {
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type courseRepo interface {
	NewCourse(ctx context.Context, course *models.Course) (uuid.UUID, error)
	CourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	UpdateDetails(ctx context.Context, course *models.Course) error
	ChangeStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateThumbnail(ctx context.Context, id uuid.UUID, objectKey string) error
	AppendVideo(ctx context.Context, id uuid.UUID, video models.Video) error
	ReplaceVideos(ctx context.Context, id uuid.UUID, videos []models.Video) error
	ListPublishedCourses(ctx context.Context, limit, offset int) ([]models.Course, error)
	RelatedCourses(ctx context.Context, id uuid.UUID, category string, limit int) ([]models.Course, error)
	CountPublishedCourses(ctx context.Context) (int, error)
	ListCoursesByInstructor(ctx context.Context, instructorID uuid.UUID) ([]models.Course, error)
	DeleteCourse(ctx context.Context, id uuid.UUID) error
}

type mediaRepo interface {
	Upload(ctx context.Context, kind string, courseID uuid.UUID, filename string, reader io.Reader, size int64, contentType string) (string, error)
	URL(ctx context.Context, objectKey string) (string, error)
	Delete(ctx context.Context, objectKey string) error
}

type enrollmentRepo interface {
	EnrollmentByUserCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error)
}

type studentRepo interface {
	StudentIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error)
}

type reviewRepo interface {
	RatingsByCourse(ctx context.Context, courseID uuid.UUID) ([]int, error)
}

type CourseService struct {
	log         logger.Log
	courseRepo  courseRepo
	mediaRepo   mediaRepo
	userRepo    userRepo
	enrollments enrollmentRepo
	students    studentRepo
	reviews     reviewRepo
}

func NewCourseService(log logger.Log, courseRepo courseRepo, mediaRepo mediaRepo, userRepo userRepo,
	enrollments enrollmentRepo, students studentRepo, reviews reviewRepo,
) *CourseService {
	return &CourseService{
		log:         log.With("service", "course"),
		courseRepo:  courseRepo,
		mediaRepo:   mediaRepo,
		userRepo:    userRepo,
		enrollments: enrollments,
		students:    students,
		reviews:     reviews,
	}
}

type CourseInput struct {
	Title       string
	Description string
	Category    string
	Price       int64
}

type VideoInput struct {
	ID              uuid.UUID
	Title           string
	Description     string
	DurationSeconds int
}

// canManage reports whether the user may change the course.
func canManage(course *models.Course, userID uuid.UUID, roles []string) bool {
	return course.InstructorID == userID || models.HasAnyRole(roles, models.AdminRole)
}

func (s *CourseService) managedCourse(ctx context.Context, courseID, userID uuid.UUID, roles []string) (*models.Course, error) {
	course, err := s.courseRepo.CourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !canManage(course, userID, roles) {
		return nil, app_errors.ErrNotCourseAuthor
	}
	return course, nil
}

func (s *CourseService) CreateCourse(ctx context.Context, instructorID uuid.UUID, in CourseInput) (*models.Course, error) {
	course := &models.Course{
		InstructorID: instructorID,
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Category:     in.Category,
		Price:        in.Price,
		Status:       models.CourseStatusDraft,
	}
	if _, err := s.courseRepo.NewCourse(ctx, course); err != nil {
		return nil, err
	}
	s.log.Info("course created", "course_id", course.ID, "instructor_id", instructorID)
	return course, nil
}

func (s *CourseService) UpdateCourse(ctx context.Context, courseID, userID uuid.UUID, roles []string, in CourseInput) (*models.Course, error) {
	course, err := s.managedCourse(ctx, courseID, userID, roles)
	if err != nil {
		return nil, err
	}
	course.Title = strings.TrimSpace(in.Title)
	course.Description = in.Description
	course.Category = in.Category
	course.Price = in.Price
	if err := s.courseRepo.UpdateDetails(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) Publish(ctx context.Context, courseID, userID uuid.UUID, roles []string) error {
	course, err := s.managedCourse(ctx, courseID, userID, roles)
	if err != nil {
		return err
	}
	if !course.CanTransition(models.CourseStatusPublished) {
		return app_errors.ErrInvalidStatus
	}
	if course.TotalVideos() == 0 {
		return app_errors.ErrEmptyVideoList
	}
	return s.courseRepo.ChangeStatus(ctx, courseID, models.CourseStatusPublished)
}

func (s *CourseService) Archive(ctx context.Context, courseID, userID uuid.UUID, roles []string) error {
	course, err := s.managedCourse(ctx, courseID, userID, roles)
	if err != nil {
		return err
	}
	if !course.CanTransition(models.CourseStatusArchived) {
		return app_errors.ErrInvalidStatus
	}
	return s.courseRepo.ChangeStatus(ctx, courseID, models.CourseStatusArchived)
}

func (s *CourseService) UploadThumbnail(
	ctx context.Context,
	courseID, userID uuid.UUID,
	roles []string,
	filename string,
	reader io.Reader,
	size int64,
	contentType string,
) (string, error) {
	course, err := s.managedCourse(ctx, courseID, userID, roles)
	if err != nil {
		return "", err
	}
	if size > maxThumbnailSizeBytes {
		return "", app_errors.ErrFileSize
	}
	contentType = detectContentType(filename, contentType)
	if !strings.HasPrefix(contentType, "image/") {
		return "", app_errors.ErrNotImage
	}

	objectKey, err := s.mediaRepo.Upload(ctx, models.MediaKindThumbnail, courseID, filename, reader, size, contentType)
	if err != nil {
		s.log.ErrorErr("failed to upload thumbnail", err, "course_id", courseID)
		return "", fmt.Errorf("%w: %v", app_errors.ErrMediaHost, err)
	}
	if err := s.courseRepo.UpdateThumbnail(ctx, courseID, objectKey); err != nil {
		s.removeMedia(ctx, objectKey)
		return "", err
	}
	if course.ThumbnailObjectKey != "" {
		s.removeMedia(ctx, course.ThumbnailObjectKey)
	}

	url, err := s.mediaRepo.URL(ctx, objectKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", app_errors.ErrMediaHost, err)
	}
	return url, nil
}

// AddVideo uploads the file to the media host and appends the video to the course.
func (s *CourseService) AddVideo(
	ctx context.Context,
	courseID, userID uuid.UUID,
	roles []string,
	in VideoInput,
	filename string,
	reader io.Reader,
	size int64,
	contentType string,
) (*models.Video, error) {
	if _, err := s.managedCourse(ctx, courseID, userID, roles); err != nil {
		return nil, err
	}
	contentType = detectContentType(filename, contentType)
	if !strings.HasPrefix(contentType, "video/") {
		return nil, app_errors.ErrNotVideo
	}

	objectKey, err := s.mediaRepo.Upload(ctx, models.MediaKindVideo, courseID, filename, reader, size, contentType)
	if err != nil {
		s.log.ErrorErr("failed to upload video", err, "course_id", courseID)
		return nil, fmt.Errorf("%w: %v", app_errors.ErrMediaHost, err)
	}

	video := models.Video{
		ID:              uuid.New(),
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		DurationSeconds: in.DurationSeconds,
		MediaKey:        objectKey,
	}
	if err := s.courseRepo.AppendVideo(ctx, courseID, video); err != nil {
		s.removeMedia(ctx, objectKey)
		return nil, err
	}
	s.log.Info("video added", "course_id", courseID, "video_id", video.ID)
	return &video, nil
}

// ReplaceVideos rewrites the video list. Every entry must reference an existing video; the list
// can reorder, retitle and drop videos. Media of dropped videos is removed afterwards.
func (s *CourseService) ReplaceVideos(ctx context.Context, courseID, userID uuid.UUID, roles []string, in []VideoInput) ([]models.Video, error) {
	course, err := s.managedCourse(ctx, courseID, userID, roles)
	if err != nil {
		return nil, err
	}

	existing := make(map[uuid.UUID]models.Video, len(course.Videos))
	for _, v := range course.Videos {
		existing[v.ID] = v
	}
	videos := make([]models.Video, 0, len(in))
	kept := make(map[uuid.UUID]struct{}, len(in))
	for _, item := range in {
		cur, ok := existing[item.ID]
		if !ok {
			return nil, app_errors.ErrVideoNotInCourse
		}
		if _, dup := kept[item.ID]; dup {
			continue
		}
		kept[item.ID] = struct{}{}
		if t := strings.TrimSpace(item.Title); t != "" {
			cur.Title = t
		}
		cur.Description = item.Description
		if item.DurationSeconds > 0 {
			cur.DurationSeconds = item.DurationSeconds
		}
		videos = append(videos, cur)
	}
	if len(videos) == 0 && course.IsPublished() {
		return nil, app_errors.ErrEmptyVideoList
	}

	if err := s.courseRepo.ReplaceVideos(ctx, courseID, videos); err != nil {
		return nil, err
	}
	for _, v := range course.Videos {
		if _, ok := kept[v.ID]; !ok && v.MediaKey != "" {
			s.removeMedia(ctx, v.MediaKey)
		}
	}
	return videos, nil
}

// GetCourse returns the course card plus its videos. Playable links are only handed out to
// the instructor, admins and students with access. Unpublished courses are hidden from everyone else.
func (s *CourseService) GetCourse(ctx context.Context, courseID, viewerID uuid.UUID, roles []string) (*models.CourseDetail, error) {
	course, err := s.courseRepo.CourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	manager := viewerID != uuid.Nil && canManage(course, viewerID, roles)
	if !course.IsPublished() && !manager {
		return nil, app_errors.ErrCourseNotFound
	}

	access := manager
	if !access && viewerID != uuid.Nil {
		e, err := s.enrollments.EnrollmentByUserCourse(ctx, viewerID, courseID)
		switch {
		case err == nil:
			access = e.HasAccess()
		case !errors.Is(err, app_errors.ErrEnrollmentNotFound):
			return nil, err
		}
	}

	detail := &models.CourseDetail{
		CoursePreview: s.preview(ctx, course, false),
		HasAccess:     access,
		Videos:        make([]models.VideoView, 0, len(course.Videos)),
	}
	for _, v := range course.Videos {
		view := models.VideoView{Video: v}
		if access && v.MediaKey != "" {
			if view.URL, err = s.mediaRepo.URL(ctx, v.MediaKey); err != nil {
				s.log.ErrorErr("failed to sign video url", err, "video_id", v.ID)
			}
		}
		if !access {
			view.MediaKey = ""
		}
		detail.Videos = append(detail.Videos, view)
	}

	if ratings, err := s.reviews.RatingsByCourse(ctx, courseID); err != nil {
		s.log.ErrorErr("failed to count reviews", err, "course_id", courseID)
	} else {
		detail.ReviewCount = len(ratings)
	}
	return detail, nil
}

func (s *CourseService) ListCourses(ctx context.Context, limit, offset int) ([]models.CoursePreview, int, error) {
	courses, err := s.courseRepo.ListPublishedCourses(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.courseRepo.CountPublishedCourses(ctx)
	if err != nil {
		return nil, 0, err
	}
	previews := make([]models.CoursePreview, 0, len(courses))
	for i := range courses {
		previews = append(previews, s.preview(ctx, &courses[i], true))
	}
	return previews, total, nil
}

// RelatedCourses suggests other published courses from the same category.
func (s *CourseService) RelatedCourses(ctx context.Context, courseID uuid.UUID) ([]models.CoursePreview, error) {
	course, err := s.courseRepo.CourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished() {
		return nil, app_errors.ErrCourseNotFound
	}
	previews := make([]models.CoursePreview, 0, relatedCoursesLimit)
	if course.Category == "" {
		return previews, nil
	}
	related, err := s.courseRepo.RelatedCourses(ctx, courseID, course.Category, relatedCoursesLimit)
	if err != nil {
		return nil, err
	}
	for i := range related {
		previews = append(previews, s.preview(ctx, &related[i], true))
	}
	return previews, nil
}

func (s *CourseService) InstructorCourses(ctx context.Context, instructorID uuid.UUID) ([]models.CoursePreview, error) {
	courses, err := s.courseRepo.ListCoursesByInstructor(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	previews := make([]models.CoursePreview, 0, len(courses))
	for i := range courses {
		previews = append(previews, s.preview(ctx, &courses[i], true))
	}
	return previews, nil
}

// Students lists users holding access to the course. Only the instructor and admins may ask.
func (s *CourseService) Students(ctx context.Context, courseID, userID uuid.UUID, roles []string) ([]models.User, error) {
	if _, err := s.managedCourse(ctx, courseID, userID, roles); err != nil {
		return nil, err
	}
	ids, err := s.students.StudentIDs(ctx, courseID)
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.userRepo.UserByID(ctx, id)
		if err != nil {
			s.log.ErrorErr("students: failed to load user", err, "user_id", id)
			continue
		}
		out = append(out, models.User{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	return out, nil
}

// DeleteCourse drops the course with its enrollments, memberships and reviews, then its media.
func (s *CourseService) DeleteCourse(ctx context.Context, courseID, userID uuid.UUID, roles []string) error {
	course, err := s.managedCourse(ctx, courseID, userID, roles)
	if err != nil {
		return err
	}
	if err := s.courseRepo.DeleteCourse(ctx, courseID); err != nil {
		return err
	}
	for _, v := range course.Videos {
		if v.MediaKey != "" {
			s.removeMedia(ctx, v.MediaKey)
		}
	}
	if course.ThumbnailObjectKey != "" {
		s.removeMedia(ctx, course.ThumbnailObjectKey)
	}
	s.log.Info("course deleted", "course_id", courseID, "by", userID)
	return nil
}

func (s *CourseService) preview(ctx context.Context, c *models.Course, short bool) models.CoursePreview {
	p := c.Preview()
	if r := []rune(p.Description); short && len(r) > previewDescriptionLen {
		p.Description = string(r[:previewDescriptionLen]) + "…"
	}
	if c.ThumbnailObjectKey != "" {
		u, err := s.mediaRepo.URL(ctx, c.ThumbnailObjectKey)
		if err != nil {
			s.log.ErrorErr("preview: failed to get thumbnail URL", err, "course_id", c.ID)
		} else {
			p.ThumbnailURL = u
		}
	}
	author, err := s.userRepo.UserByID(ctx, c.InstructorID)
	if err != nil {
		s.log.ErrorErr("preview: failed to get instructor", err, "course_id", c.ID)
	} else {
		p.InstructorName = author.Name
	}
	return p
}

func (s *CourseService) removeMedia(ctx context.Context, objectKey string) {
	if err := s.mediaRepo.Delete(ctx, objectKey); err != nil {
		s.log.ErrorErr("failed to delete media object", err, "object_key", objectKey)
	}
}

func detectContentType(filename, contentType string) string {
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
			return byExt
		}
	}
	return contentType
}

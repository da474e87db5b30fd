package course

import (
	"CourseMarket/internal/delivery/http/controllers/common"
	"CourseMarket/internal/models"
	coursesvc "CourseMarket/internal/service/course"
	"CourseMarket/pkg/logger"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ManagementService interface {
	CreateCourse(ctx context.Context, instructorID uuid.UUID, in coursesvc.CourseInput) (*models.Course, error)
	UpdateCourse(ctx context.Context, courseID, userID uuid.UUID, roles []string, in coursesvc.CourseInput) (*models.Course, error)
	Publish(ctx context.Context, courseID, userID uuid.UUID, roles []string) error
	Archive(ctx context.Context, courseID, userID uuid.UUID, roles []string) error
	UploadThumbnail(ctx context.Context, courseID, userID uuid.UUID, roles []string, filename string, reader io.Reader, size int64, contentType string) (string, error)
	AddVideo(ctx context.Context, courseID, userID uuid.UUID, roles []string, in coursesvc.VideoInput, filename string, reader io.Reader, size int64, contentType string) (*models.Video, error)
	ReplaceVideos(ctx context.Context, courseID, userID uuid.UUID, roles []string, in []coursesvc.VideoInput) ([]models.Video, error)
	Students(ctx context.Context, courseID, userID uuid.UUID, roles []string) ([]models.User, error)
	DeleteCourse(ctx context.Context, courseID, userID uuid.UUID, roles []string) error
}

type ManagementHandler struct {
	log            logger.Log
	service        ManagementService
	maxUploadBytes int64
}

func NewManagementHandler(l logger.Log, s ManagementService, maxUploadBytes int64) *ManagementHandler {
	return &ManagementHandler{
		log:            l.With("handler", "course-management"),
		service:        s,
		maxUploadBytes: maxUploadBytes,
	}
}

type courseRequest struct {
	Title       string `json:"title" binding:"required,notblank,max=200"`
	Description string `json:"description" binding:"required,notblank"`
	Category    string `json:"category" binding:"required,notblank,max=100"`
	Price       int64  `json:"price" binding:"gte=0"`
}

func (r courseRequest) input() coursesvc.CourseInput {
	return coursesvc.CourseInput{Title: r.Title, Description: r.Description, Category: r.Category, Price: r.Price}
}

type videoEntry struct {
	ID              uuid.UUID `json:"id" binding:"required"`
	Title           string    `json:"title" binding:"required,notblank"`
	Description     string    `json:"description"`
	DurationSeconds int       `json:"duration_seconds" binding:"gte=0"`
}

type replaceVideosRequest struct {
	Videos []videoEntry `json:"videos" binding:"required,dive"`
}

// courseTarget resolves the caller and the :course_id param shared by every management route.
func courseTarget(c *gin.Context) (courseID, userID uuid.UUID, roles []string, ok bool) {
	if userID, roles, ok = common.Caller(c); !ok {
		return
	}
	courseID, ok = common.UUIDParam(c, "course_id")
	return
}

func (h *ManagementHandler) CreateCourse(c *gin.Context) {
	userID, _, ok := common.Caller(c)
	if !ok {
		return
	}
	var req courseRequest
	if !common.BindJSON(c, &req) {
		return
	}
	course, err := h.service.CreateCourse(c.Request.Context(), userID, req.input())
	if err != nil {
		common.Error(c, h.log, "create course", err)
		return
	}
	common.OK(c, http.StatusCreated, course)
}

func (h *ManagementHandler) UpdateCourse(c *gin.Context) {
	courseID, userID, roles, ok := courseTarget(c)
	if !ok {
		return
	}
	var req courseRequest
	if !common.BindJSON(c, &req) {
		return
	}
	course, err := h.service.UpdateCourse(c.Request.Context(), courseID, userID, roles, req.input())
	if err != nil {
		common.Error(c, h.log, "update course", err)
		return
	}
	common.OK(c, http.StatusOK, course)
}

func (h *ManagementHandler) PublishCourse(c *gin.Context) {
	courseID, userID, roles, ok := courseTarget(c)
	if !ok {
		return
	}
	if err := h.service.Publish(c.Request.Context(), courseID, userID, roles); err != nil {
		common.Error(c, h.log, "publish course", err)
		return
	}
	common.OK(c, http.StatusOK, gin.H{"course_id": courseID, "status": models.CourseStatusPublished})
}

func (h *ManagementHandler) ArchiveCourse(c *gin.Context) {
	courseID, userID, roles, ok := courseTarget(c)
	if !ok {
		return
	}
	if err := h.service.Archive(c.Request.Context(), courseID, userID, roles); err != nil {
		common.Error(c, h.log, "archive course", err)
		return
	}
	common.OK(c, http.StatusOK, gin.H{"course_id": courseID, "status": models.CourseStatusArchived})
}

// formFile caps the request body and opens the "file" part. The caller must run the returned cleanup.
func (h *ManagementHandler) formFile(c *gin.Context) (*multipart.FileHeader, multipart.File, func(), bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	cleanup := func() {
		if c.Request.MultipartForm != nil {
			_ = c.Request.MultipartForm.RemoveAll()
		}
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		cleanup()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.Fail(c, http.StatusRequestEntityTooLarge, "file is too large")
			return nil, nil, nil, false
		}
		common.Fail(c, http.StatusBadRequest, "file is required")
		return nil, nil, nil, false
	}
	file, err := fileHeader.Open()
	if err != nil {
		cleanup()
		h.log.ErrorErr("cannot open uploaded file", err)
		common.Fail(c, http.StatusInternalServerError, "cannot open uploaded file")
		return nil, nil, nil, false
	}
	return fileHeader, file, func() {
		_ = file.Close()
		cleanup()
	}, true
}

func (h *ManagementHandler) UploadThumbnail(c *gin.Context) {
	courseID, userID, roles, ok := courseTarget(c)
	if !ok {
		return
	}
	fileHeader, file, cleanup, ok := h.formFile(c)
	if !ok {
		return
	}
	defer cleanup()

	url, err := h.service.UploadThumbnail(c.Request.Context(), courseID, userID, roles,
		fileHeader.Filename, file, fileHeader.Size, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		common.Error(c, h.log, "upload thumbnail", err)
		return
	}
	common.OK(c, http.StatusOK, gin.H{"url": url})
}

func (h *ManagementHandler) AddVideo(c *gin.Context) {
	courseID, userID, roles, ok := courseTarget(c)
	if !ok {
		return
	}
	fileHeader, file, cleanup, ok := h.formFile(c)
	if !ok {
		return
	}
	defer cleanup()

	in := coursesvc.VideoInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
	}
	if in.Title == "" {
		common.Fail(c, http.StatusBadRequest, "title is required")
		return
	}
	if d := c.PostForm("duration_seconds"); d != "" {
		secs, err := strconv.Atoi(d)
		if err != nil || secs < 0 {
			common.Fail(c, http.StatusBadRequest, "duration_seconds must be a non-negative integer")
			return
		}
		in.DurationSeconds = secs
	}

	video, err := h.service.AddVideo(c.Request.Context(), courseID, userID, roles, in,
		fileHeader.Filename, file, fileHeader.Size, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		common.Error(c, h.log, "add video", err)
		return
	}
	common.OK(c, http.StatusCreated, video)
}

func (h *ManagementHandler) ReplaceVideos(c *gin.Context) {
	courseID, userID, roles, ok := courseTarget(c)
	if !ok {
		return
	}
	var req replaceVideosRequest
	if !common.BindJSON(c, &req) {
		return
	}
	in := make([]coursesvc.VideoInput, 0, len(req.Videos))
	for _, v := range req.Videos {
		in = append(in, coursesvc.VideoInput{ID: v.ID, Title: v.Title, Description: v.Description, DurationSeconds: v.DurationSeconds})
	}
	videos, err := h.service.ReplaceVideos(c.Request.Context(), courseID, userID, roles, in)
	if err != nil {
		common.Error(c, h.log, "replace videos", err)
		return
	}
	common.OK(c, http.StatusOK, videos)
}

func (h *ManagementHandler) Students(c *gin.Context) {
	courseID, userID, roles, ok := courseTarget(c)
	if !ok {
		return
	}
	students, err := h.service.Students(c.Request.Context(), courseID, userID, roles)
	if err != nil {
		common.Error(c, h.log, "list students", err)
		return
	}
	common.OK(c, http.StatusOK, students)
}

func (h *ManagementHandler) DeleteCourse(c *gin.Context) {
	courseID, userID, roles, ok := courseTarget(c)
	if !ok {
		return
	}
	if err := h.service.DeleteCourse(c.Request.Context(), courseID, userID, roles); err != nil {
		common.Error(c, h.log, "delete course", err)
		return
	}
	c.Status(http.StatusNoContent)
}

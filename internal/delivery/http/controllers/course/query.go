package course

import (
	"CourseMarket/internal/delivery/http/controllers/common"
	"CourseMarket/internal/models"
	"CourseMarket/pkg/logger"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type QueryService interface {
	GetCourse(ctx context.Context, courseID, viewerID uuid.UUID, roles []string) (*models.CourseDetail, error)
	ListCourses(ctx context.Context, limit, offset int) ([]models.CoursePreview, int, error)
	InstructorCourses(ctx context.Context, instructorID uuid.UUID) ([]models.CoursePreview, error)
	RelatedCourses(ctx context.Context, courseID uuid.UUID) ([]models.CoursePreview, error)
}

type QueryHandler struct {
	log     logger.Log
	service QueryService
}

func NewQueryHandler(log logger.Log, s QueryService) *QueryHandler {
	return &QueryHandler{
		log:     log.With("handler", "course-query"),
		service: s,
	}
}

func (h *QueryHandler) ListCourses(c *gin.Context) {
	limit, offset, ok := common.Page(c, defaultPageSize, maxPageSize)
	if !ok {
		return
	}
	previews, total, err := h.service.ListCourses(c.Request.Context(), limit, offset)
	if err != nil {
		common.Error(c, h.log, "list courses", err)
		return
	}
	common.OK(c, http.StatusOK, gin.H{
		"courses": previews,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetCourse is open to anonymous visitors; media links are only filled in for viewers with access.
func (h *QueryHandler) GetCourse(c *gin.Context) {
	courseID, ok := common.UUIDParam(c, "course_id")
	if !ok {
		return
	}
	viewerID, roles := common.OptionalCaller(c)
	detail, err := h.service.GetCourse(c.Request.Context(), courseID, viewerID, roles)
	if err != nil {
		common.Error(c, h.log, "get course", err)
		return
	}
	common.OK(c, http.StatusOK, detail)
}

func (h *QueryHandler) RelatedCourses(c *gin.Context) {
	courseID, ok := common.UUIDParam(c, "course_id")
	if !ok {
		return
	}
	previews, err := h.service.RelatedCourses(c.Request.Context(), courseID)
	if err != nil {
		common.Error(c, h.log, "related courses", err)
		return
	}
	common.OK(c, http.StatusOK, previews)
}

func (h *QueryHandler) MyCourses(c *gin.Context) {
	userID, _, ok := common.Caller(c)
	if !ok {
		return
	}
	previews, err := h.service.InstructorCourses(c.Request.Context(), userID)
	if err != nil {
		common.Error(c, h.log, "instructor courses", err)
		return
	}
	common.OK(c, http.StatusOK, previews)
}

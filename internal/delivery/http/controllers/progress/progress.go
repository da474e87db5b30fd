package progress

import (
	"CourseMarket/internal/delivery/http/controllers/common"
	"CourseMarket/internal/models"
	"CourseMarket/pkg/logger"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Service interface {
	RecordCompletion(ctx context.Context, userID, courseID uuid.UUID, videoIDs ...uuid.UUID) (*models.ProgressSnapshot, error)
	ResetProgress(ctx context.Context, userID, courseID uuid.UUID) (*models.ProgressSnapshot, error)
	CourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*models.CourseProgressReport, error)
	MyCourses(ctx context.Context, userID uuid.UUID) ([]models.EnrolledCourse, error)
}

type Handler struct {
	log     logger.Log
	service Service
}

func NewHandler(l logger.Log, s Service) *Handler {
	return &Handler{
		log:     l.With("handler", "progress"),
		service: s,
	}
}

type trackVideoRequest struct {
	CourseID uuid.UUID `json:"courseId" binding:"required"`
	VideoID  uuid.UUID `json:"videoId" binding:"required"`
}

type markCompletedRequest struct {
	CourseID uuid.UUID   `json:"courseId" binding:"required"`
	VideoIDs []uuid.UUID `json:"videoIds" binding:"required,min=1,max=500"`
}

func (h *Handler) TrackVideo(c *gin.Context) {
	userID, _, ok := common.Caller(c)
	if !ok {
		return
	}
	var req trackVideoRequest
	if !common.BindJSON(c, &req) {
		return
	}
	snap, err := h.service.RecordCompletion(c.Request.Context(), userID, req.CourseID, req.VideoID)
	if err != nil {
		common.Error(c, h.log, "track video", err)
		return
	}
	common.OK(c, http.StatusOK, snap)
}

func (h *Handler) MarkCompleted(c *gin.Context) {
	userID, _, ok := common.Caller(c)
	if !ok {
		return
	}
	var req markCompletedRequest
	if !common.BindJSON(c, &req) {
		return
	}
	snap, err := h.service.RecordCompletion(c.Request.Context(), userID, req.CourseID, req.VideoIDs...)
	if err != nil {
		common.Error(c, h.log, "mark completed", err)
		return
	}
	common.OK(c, http.StatusOK, snap)
}

func (h *Handler) Reset(c *gin.Context) {
	userID, _, ok := common.Caller(c)
	if !ok {
		return
	}
	courseID, ok := common.UUIDParam(c, "course_id")
	if !ok {
		return
	}
	snap, err := h.service.ResetProgress(c.Request.Context(), userID, courseID)
	if err != nil {
		common.Error(c, h.log, "reset progress", err)
		return
	}
	common.OK(c, http.StatusOK, snap)
}

func (h *Handler) CourseProgress(c *gin.Context) {
	userID, _, ok := common.Caller(c)
	if !ok {
		return
	}
	courseID, ok := common.UUIDParam(c, "course_id")
	if !ok {
		return
	}
	report, err := h.service.CourseProgress(c.Request.Context(), userID, courseID)
	if err != nil {
		common.Error(c, h.log, "course progress", err)
		return
	}
	common.OK(c, http.StatusOK, report)
}

func (h *Handler) MyCourses(c *gin.Context) {
	userID, _, ok := common.Caller(c)
	if !ok {
		return
	}
	courses, err := h.service.MyCourses(c.Request.Context(), userID)
	if err != nil {
		common.Error(c, h.log, "my courses", err)
		return
	}
	common.OK(c, http.StatusOK, courses)
}

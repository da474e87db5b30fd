package review

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
	AddOrUpdateReview(ctx context.Context, userID, courseID uuid.UUID, rating int, comment string) (*models.Review, error)
	DeleteReview(ctx context.Context, reviewID, userID uuid.UUID, roles []string) error
	ListReviews(ctx context.Context, courseID uuid.UUID) ([]models.Review, error)
}

type Handler struct {
	log     logger.Log
	service Service
}

func NewHandler(l logger.Log, s Service) *Handler {
	return &Handler{log: l.With("handler", "review"), service: s}
}

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"required,notblank,max=2000"`
}

func (h *Handler) AddOrUpdate(c *gin.Context) {
	userID, _, ok := common.Caller(c)
	if !ok {
		return
	}
	courseID, ok := common.UUIDParam(c, "course_id")
	if !ok {
		return
	}
	var req reviewRequest
	if !common.BindJSON(c, &req) {
		return
	}
	review, err := h.service.AddOrUpdateReview(c.Request.Context(), userID, courseID, req.Rating, req.Comment)
	if err != nil {
		common.Error(c, h.log, "add review", err)
		return
	}
	common.OK(c, http.StatusOK, review)
}

func (h *Handler) List(c *gin.Context) {
	courseID, ok := common.UUIDParam(c, "course_id")
	if !ok {
		return
	}
	reviews, err := h.service.ListReviews(c.Request.Context(), courseID)
	if err != nil {
		common.Error(c, h.log, "list reviews", err)
		return
	}
	common.OK(c, http.StatusOK, reviews)
}

func (h *Handler) Delete(c *gin.Context) {
	userID, roles, ok := common.Caller(c)
	if !ok {
		return
	}
	reviewID, ok := common.UUIDParam(c, "review_id")
	if !ok {
		return
	}
	if err := h.service.DeleteReview(c.Request.Context(), reviewID, userID, roles); err != nil {
		common.Error(c, h.log, "delete review", err)
		return
	}
	c.Status(http.StatusNoContent)
}

package notification

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
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
}

type Handler struct {
	log     logger.Log
	service Service
}

func NewHandler(l logger.Log, s Service) *Handler {
	return &Handler{log: l.With("handler", "notification"), service: s}
}

func (h *Handler) List(c *gin.Context) {
	userID, _, ok := common.Caller(c)
	if !ok {
		return
	}
	list, err := h.service.ListNotifications(c.Request.Context(), userID, c.Query("unread") == "true")
	if err != nil {
		common.Error(c, h.log, "list notifications", err)
		return
	}
	common.OK(c, http.StatusOK, list)
}

func (h *Handler) MarkRead(c *gin.Context) {
	userID, _, ok := common.Caller(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "notification_id")
	if !ok {
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), userID, id); err != nil {
		common.Error(c, h.log, "mark notification read", err)
		return
	}
	c.Status(http.StatusNoContent)
}

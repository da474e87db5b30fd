package notification

import (
	"CourseMarket/internal/models"
	"CourseMarket/pkg/logger"
	"context"

	"github.com/google/uuid"
)

type notificationRepo interface {
	NotificationsByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
}

type NotificationService struct {
	log  logger.Log
	repo notificationRepo
}

func NewNotificationService(log logger.Log, repo notificationRepo) *NotificationService {
	return &NotificationService{log: log.With("service", "notification"), repo: repo}
}

func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	return s.repo.NotificationsByUser(ctx, userID, unreadOnly)
}

// MarkRead only touches notifications owned by the user; anything else reads as not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, id)
}

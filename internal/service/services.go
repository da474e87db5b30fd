package service

import (
	"CourseMarket/internal/service/auth"
	"CourseMarket/internal/service/certificate"
	"CourseMarket/internal/service/course"
	"CourseMarket/internal/service/notification"
	"CourseMarket/internal/service/progress"
	"CourseMarket/internal/service/purchase"
	"CourseMarket/internal/service/review"
)

type Collection struct {
	Auth         *auth.AuthService
	Course       *course.CourseService
	Progress     *progress.ProgressService
	Purchase     *purchase.PurchaseService
	Events       *purchase.EventRouter
	Review       *review.ReviewService
	Certificate  *certificate.CertificateService
	Notification *notification.NotificationService
}

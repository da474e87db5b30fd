package http

import (
	"CourseMarket/internal/config"
	"CourseMarket/internal/delivery/http/controllers/auth"
	"CourseMarket/internal/delivery/http/controllers/certificate"
	"CourseMarket/internal/delivery/http/controllers/course"
	"CourseMarket/internal/delivery/http/controllers/middleware"
	"CourseMarket/internal/delivery/http/controllers/notification"
	"CourseMarket/internal/delivery/http/controllers/progress"
	"CourseMarket/internal/delivery/http/controllers/purchase"
	"CourseMarket/internal/delivery/http/controllers/review"
	"CourseMarket/internal/delivery/http/controllers/status"
	"CourseMarket/internal/models"
	"CourseMarket/internal/service"
	"CourseMarket/pkg/logger"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps are the non-service collaborators the routes need.
type Deps struct {
	Webhooks purchase.EventParser
	Health   map[string]status.Pinger
}

func InitRoutes(l logger.Log, cfg config.HTTPServer, u service.Collection, d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authMw := middleware.NewAuthMiddlewareProvider(l, u.Auth)
	requireAuth := authMw.AuthMiddleware
	admin := middleware.RequireRoles(models.AdminRole)
	instructor := middleware.RequireRoles(models.ProfessorRole, models.AdminRole)

	statusController := status.NewStatusHandler(l, d.Health)
	authController := auth.NewAuthHandler(l, u.Auth)
	courseManagement := course.NewManagementHandler(l, u.Course, cfg.MaxUploadBytes)
	courseQuery := course.NewQueryHandler(l, u.Course)
	progressController := progress.NewHandler(l, u.Progress)
	purchaseController := purchase.NewHandler(l, u.Purchase)
	webhookController := purchase.NewWebhookHandler(l, d.Webhooks, u.Events)
	reviewController := review.NewHandler(l, u.Review)
	certificateController := certificate.NewHandler(l, u.Certificate)
	notificationController := notification.NewHandler(l, u.Notification)

	v1 := r.Group("/v1", middleware.LoggingMiddleware(l))
	{
		v1.GET("/status", statusController.Status)
		v1.GET("/me", requireAuth, authController.Me)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", authController.Login)
			authGroup.POST("/refresh", authController.Refresh)
			authGroup.POST("/logout", requireAuth, authController.Logout)
		}

		v1.POST("/admin/users", requireAuth, admin, authController.CreateUser)

		courses := v1.Group("/courses")
		{
			courses.GET("", courseQuery.ListCourses)
			courses.GET("/:course_id", authMw.OptionalAuth, courseQuery.GetCourse)
			courses.GET("/:course_id/related", courseQuery.RelatedCourses)
			courses.GET("/:course_id/reviews", reviewController.List)
			courses.PUT("/:course_id/reviews", requireAuth, reviewController.AddOrUpdate)

			manage := courses.Group("", requireAuth, instructor)
			{
				manage.POST("", courseManagement.CreateCourse)
				manage.GET("/mine", courseQuery.MyCourses)
				manage.PUT("/:course_id", courseManagement.UpdateCourse)
				manage.PATCH("/:course_id/publish", courseManagement.PublishCourse)
				manage.PATCH("/:course_id/archive", courseManagement.ArchiveCourse)
				manage.PUT("/:course_id/thumbnail", courseManagement.UploadThumbnail)
				manage.POST("/:course_id/videos", courseManagement.AddVideo)
				manage.PUT("/:course_id/videos", courseManagement.ReplaceVideos)
				manage.GET("/:course_id/students", courseManagement.Students)
				manage.DELETE("/:course_id", courseManagement.DeleteCourse)
			}
		}

		v1.DELETE("/reviews/:review_id", requireAuth, reviewController.Delete)

		progressGroup := v1.Group("/progress", requireAuth)
		{
			progressGroup.POST("/track-video", progressController.TrackVideo)
			progressGroup.POST("/mark-completed", progressController.MarkCompleted)
			progressGroup.POST("/reset/:course_id", progressController.Reset)
			progressGroup.GET("/course/:course_id", progressController.CourseProgress)
			progressGroup.GET("/courses", progressController.MyCourses)
		}

		// The webhook is authenticated by its signature, not a bearer token.
		v1.POST("/purchase/webhook", webhookController.Handle)

		purchaseGroup := v1.Group("/purchase", requireAuth)
		{
			purchaseGroup.POST("/initiate", purchaseController.Initiate)
			purchaseGroup.POST("/confirm", purchaseController.Confirm)
			purchaseGroup.POST("/installments/pay", purchaseController.PayNextInstallment)
			purchaseGroup.GET("/enrollments", purchaseController.MyEnrollments)
			purchaseGroup.GET("/installments/pending", purchaseController.PendingInstallments)
			purchaseGroup.PATCH("/:enrollment_id/default", admin, purchaseController.SetDefaulted)
		}

		certs := v1.Group("/certificates")
		{
			certs.GET("/verify/:number", certificateController.Verify)
			certs.GET("/mine", requireAuth, certificateController.ListMine)
			certs.POST("/course/:course_id", requireAuth, certificateController.Generate)
			certs.GET("/:certificate_id", requireAuth, certificateController.Get)
			certs.PATCH("/:certificate_id/revoke", requireAuth, admin, certificateController.Revoke)
		}

		notifications := v1.Group("/notifications", requireAuth)
		{
			notifications.GET("", notificationController.List)
			notifications.PATCH("/:notification_id/read", notificationController.MarkRead)
		}
	}
	return r
}

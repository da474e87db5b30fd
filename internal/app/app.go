package app

import (
	"CourseMarket/internal/app/server"
	"CourseMarket/internal/config"
	"CourseMarket/internal/delivery/http"
	"CourseMarket/internal/delivery/http/controllers/common"
	"CourseMarket/internal/delivery/http/controllers/status"
	"CourseMarket/internal/notify"
	"CourseMarket/internal/payment"
	"CourseMarket/internal/payment/stripe"
	"CourseMarket/internal/scheduler"
	"CourseMarket/internal/service"
	"CourseMarket/internal/service/auth"
	"CourseMarket/internal/service/certificate"
	"CourseMarket/internal/service/completion"
	"CourseMarket/internal/service/course"
	"CourseMarket/internal/service/notification"
	"CourseMarket/internal/service/progress"
	"CourseMarket/internal/service/purchase"
	"CourseMarket/internal/service/review"
	"CourseMarket/internal/storage/minio_storage"
	"CourseMarket/internal/storage/postgres"
	"CourseMarket/internal/storage/redis"
	"CourseMarket/pkg/logger"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func Run(cfg *config.Config) {
	log := logger.New(cfg.Env)
	log.Info("starting", "env", cfg.Env, "address", cfg.HTTPServer.Address)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := postgres.NewPostgresPool(ctx, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.DBName)
	if err != nil {
		log.FatalErr("error connecting to database", err)
	}
	defer pg.Close()
	if cfg.Postgres.Migrate {
		if err := pg.Migrate(ctx); err != nil {
			log.FatalErr("error applying migrations", err)
		}
	}

	minioClient, err := minio_storage.NewMinioStorage(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL)
	if err != nil {
		log.FatalErr("error creating minio client", err)
	}
	mediaBucket := cfg.Minio.Bucket(config.BucketMedia)
	media, err := minio_storage.NewMediaStorage(ctx, minioClient, mediaBucket.Name, mediaBucket.PresignTTL)
	if err != nil {
		log.FatalErr("error preparing media bucket", err)
	}
	certBucket := cfg.Minio.Bucket(config.BucketCertificates)
	certFiles, err := minio_storage.NewCertificateStorage(ctx, minioClient, certBucket.Name, certBucket.PresignTTL)
	if err != nil {
		log.FatalErr("error preparing certificate bucket", err)
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.FatalErr("error connecting to redis", err)
	}
	defer rdb.Close()
	claims := redis.NewEventClaims(rdb, cfg.Redis.EventTTL)

	var mailer notify.Mailer = notify.NewConsoleMailer(log)
	if cfg.SendGrid.APIKey != "" {
		mailer = notify.NewSendGridMailer(cfg.SendGrid.APIKey, cfg.SendGrid.FromName, cfg.SendGrid.FromEmail)
	} else {
		log.Warn("SENDGRID_API_KEY not set, emails are logged only")
	}

	processor := stripe.NewProcessor(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, cfg.Stripe.Currency)

	renderer, err := certificate.NewRenderer()
	if err != nil {
		log.FatalErr("error loading certificate fonts", err)
	}

	tokenRepo := postgres.NewTokensPostgres(pg.Pool)
	userRepo := postgres.NewUserPostgres(pg.Pool)
	courseRepo := postgres.NewCoursePostgres(pg.Pool)
	enrollmentRepo := postgres.NewEnrollmentPostgres(pg.Pool)
	studentRepo := postgres.NewCourseStudentsPostgres(pg.Pool)
	reviewRepo := postgres.NewReviewPostgres(pg.Pool)
	certificateRepo := postgres.NewCertificatePostgres(pg.Pool)
	notificationRepo := postgres.NewNotificationPostgres(pg.Pool)

	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Issuer, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	dispatcher := completion.NewDispatcher(log, notificationRepo, mailer)
	purchaseService := purchase.NewPurchaseService(log, courseRepo, userRepo, enrollmentRepo, studentRepo, processor)

	events := purchase.NewEventRouter(log, claims)
	events.Register(payment.EventPaymentSucceeded, purchaseService.OnPaymentSucceeded)
	events.Register(payment.EventPaymentFailed, purchaseService.OnPaymentFailed)

	services := service.Collection{
		Auth:         auth.NewAuthService(log, jwtManager, userRepo, tokenRepo),
		Course:       course.NewCourseService(log, courseRepo, media, userRepo, enrollmentRepo, studentRepo, reviewRepo),
		Progress:     progress.NewProgressService(log, courseRepo, enrollmentRepo, userRepo, dispatcher),
		Purchase:     purchaseService,
		Events:       events,
		Review:       review.NewReviewService(log, courseRepo, reviewRepo, enrollmentRepo),
		Certificate:  certificate.NewCertificateService(log, certificateRepo, certFiles, courseRepo, userRepo, enrollmentRepo, renderer, cfg.PublicBaseURL),
		Notification: notification.NewNotificationService(log, notificationRepo),
	}

	sched, err := scheduler.New(log, cfg.Scheduler.OverdueSpec, purchaseService)
	if err != nil {
		log.FatalErr("error configuring scheduler", err)
	}

	if err := common.RegisterValidators(); err != nil {
		log.FatalErr("error registering validators", err)
	}
	r := http.InitRoutes(log, cfg.HTTPServer, services, http.Deps{
		Webhooks: processor,
		Health: map[string]status.Pinger{
			"postgres": pg.Pool,
			"redis":    claims,
		},
	})

	srv := server.New(cfg.HTTPServer.Address, cfg.HTTPServer.Timeout, cfg.HTTPServer.IdleTimeout, r)
	srv.Start()
	sched.Start()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		log.Info("app signal", "signal", s.String())
	case err := <-srv.Notify():
		if err != nil {
			log.ErrorErr("http server stopped", err)
		}
	}

	if err := srv.Shutdown(); err != nil {
		log.ErrorErr("http server shutdown", err)
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	sched.Stop(stopCtx)
	log.Info("stopped")
}

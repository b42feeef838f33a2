// Package main runs the festival registration HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-festival/backend/config"
	"github.com/aura-festival/backend/internal/auth"
	"github.com/aura-festival/backend/internal/emaillogs"
	"github.com/aura-festival/backend/internal/events"
	"github.com/aura-festival/backend/internal/mailer"
	"github.com/aura-festival/backend/internal/middleware"
	"github.com/aura-festival/backend/internal/models"
	"github.com/aura-festival/backend/internal/notifications"
	"github.com/aura-festival/backend/internal/registrations"
	"github.com/aura-festival/backend/internal/worker"
	"github.com/aura-festival/backend/pkg/database"
	"github.com/aura-festival/backend/pkg/queue"
	"github.com/aura-festival/backend/pkg/redis"
	"github.com/aura-festival/backend/pkg/response"
	"github.com/aura-festival/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Cfg := storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		EvidenceBucket:       cfg.AWS.EvidenceBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}
	s3Client, err := storage.NewS3(ctx, s3Cfg, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo)

	// Notifications (Redis queue → email worker)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	emailLogRepo := emaillogs.NewRepository(pool)
	emailLogHandler := emaillogs.NewHandler(emailLogRepo, jobQueue, logger)
	dispatcher := notifications.NewDispatcher(jobQueue, emailLogRepo, logger)

	// Registration lifecycle
	registrationRepo := registrations.NewRepository(pool)
	controller := registrations.NewController(registrationRepo, eventRepo, s3Client, dispatcher, logger)
	reviewService := registrations.NewReviewService(registrationRepo)
	registrationHandler := registrations.NewHandler(controller, reviewService, s3Client, logger)

	// In-process email delivery; run cmd/worker instead to scale out.
	smtpMailer := mailer.New(cfg.Email, logger)
	emailProcessor := worker.NewEmailProcessor(emailLogRepo, smtpMailer, jobQueue, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Public event catalog
	router.GET("/events", eventHandler.List)
	router.GET("/events/:id", eventHandler.GetByID)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Users (admin only)
		api.GET("/users", middleware.RequireRole(models.RoleAdmin), authHandler.List)

		// Events (admin)
		api.POST("/events", middleware.RequireRole(models.RoleAdmin), eventHandler.Create)
		api.PATCH("/events/:id", middleware.RequireRole(models.RoleAdmin), eventHandler.Update)

		// Registration lifecycle
		api.POST("/events/:id/register", registrationHandler.Register)
		api.DELETE("/events/:id/registration", registrationHandler.Withdraw)
		api.PATCH("/registrations/:id/verify", middleware.RequireRole(models.RoleAdmin, models.RoleStaff), registrationHandler.Verify)
		api.PATCH("/registrations/:id/reactivate", middleware.RequireRole(models.RoleAdmin, models.RoleStaff), registrationHandler.Reactivate)

		// Staff review queues
		staff := api.Group("", middleware.RequireRole(models.RoleAdmin, models.RoleStaff))
		{
			staff.GET("/registrations/pending", registrationHandler.ListQueue(registrations.QueuePending))
			staff.GET("/registrations/verified", registrationHandler.ListQueue(registrations.QueueVerified))
			staff.GET("/registrations/rejected", registrationHandler.ListQueue(registrations.QueueRejected))
			staff.GET("/registrations/withdrawn", registrationHandler.ListQueue(registrations.QueueWithdrawn))
			staff.GET("/registrations/:id/evidence-url", registrationHandler.EvidenceURL)
			staff.GET("/events/:id/registrations", registrationHandler.ByEvent)
			staff.GET("/events/:id/emails", emailLogHandler.ListByEvent)
			staff.POST("/events/:id/emails/:logId/resend", emailLogHandler.Resend)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go emailProcessor.Run(workerCtx)
	logger.Info("email worker started")

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}

// Package main runs the classroom HTTP server with the dashboard socket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-webinar/classroom/config"
	"github.com/aura-webinar/classroom/internal/auth"
	"github.com/aura-webinar/classroom/internal/clock"
	"github.com/aura-webinar/classroom/internal/deliveries"
	"github.com/aura-webinar/classroom/internal/middleware"
	"github.com/aura-webinar/classroom/internal/models"
	"github.com/aura-webinar/classroom/internal/notify"
	"github.com/aura-webinar/classroom/internal/realtime"
	"github.com/aura-webinar/classroom/internal/recordings"
	"github.com/aura-webinar/classroom/internal/reminders"
	"github.com/aura-webinar/classroom/internal/sessions"
	"github.com/aura-webinar/classroom/pkg/database"
	"github.com/aura-webinar/classroom/pkg/queue"
	"github.com/aura-webinar/classroom/pkg/redis"
	"github.com/aura-webinar/classroom/pkg/response"
	"github.com/aura-webinar/classroom/pkg/storage"
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

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var signer recordings.URLSigner
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			RecordingsBucket:     cfg.AWS.RecordingsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			signer = s3Client
		}
	}

	clk := clock.Real()
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Sessions are the source every reminder engine reconciles against.
	sessionRepo := sessions.NewRepository(pool)

	// Reminders: one engine per user, fired reminders go to the dashboard and the delivery queue.
	sink := notify.NewFanout(logger,
		notify.NewHubSink(hub),
		notify.NewQueueSink(jobQueue, cfg.Reminder.StoreTimeout()),
	)
	registry := reminders.NewRegistry(func(userID uuid.UUID) *reminders.Engine {
		return reminders.NewEngine(reminders.EngineConfig{
			UserID:       userID,
			Store:        reminders.NewRedisStore(rdb.Client, userID),
			Sessions:     sessionRepo,
			Fire:         notify.FireFunc(sink, userID, logger),
			Clock:        clk,
			TickInterval: cfg.Reminder.TickInterval(),
			StoreTimeout: cfg.Reminder.StoreTimeout(),
			Logger:       logger,
		})
	}, logger)
	reminderHandler := reminders.NewHandler(registry, sessionRepo, cfg.Reminder.DefaultLeadMinutes, logger)

	sessionHandler := sessions.NewHandler(sessionRepo, reminderHandler, clk, logger)

	// Recordings
	recordingRepo := recordings.NewRepository(pool)
	recordingHandler := recordings.NewHandler(recordingRepo, sessionRepo, signer, clk, logger)

	// Delivered reminder history
	deliveryRepo := deliveries.NewRepository(pool)
	deliveryHandler := deliveries.NewHandler(deliveryRepo, logger)

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

	staff := middleware.RequireRole(models.RoleInstructor, models.RoleAdmin)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Classes
		api.GET("/classes", sessionHandler.List)
		api.GET("/classes/:id", sessionHandler.Get)
		api.POST("/classes", staff, sessionHandler.Create)
		api.PATCH("/classes/:id", staff, sessionHandler.Update)
		api.DELETE("/classes/:id", staff, sessionHandler.Delete)
		api.PUT("/classes/:id/live", staff, sessionHandler.SetLive)

		// Recordings
		api.POST("/classes/:id/recordings", staff, recordingHandler.Register)
		api.GET("/classes/:id/recording", recordingHandler.Download)

		// Reminders
		api.PUT("/classes/:id/reminder", reminderHandler.Set)
		api.DELETE("/classes/:id/reminder", reminderHandler.Remove)
		api.GET("/reminders", reminderHandler.List)
		api.GET("/notifications", deliveryHandler.List)

		// Dashboard socket (token may come in the query string)
		api.GET("/ws", realtime.ServeWs(realtime.Options{
			Hub:             hub,
			Engines:         registry,
			Sessions:        sessionRepo,
			Clock:           clk,
			CountdownPeriod: cfg.Countdown.Period(),
			Logger:          logger,
		}))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	registry.Shutdown()
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}

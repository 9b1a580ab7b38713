// Package main runs the survey editor HTTP server with WebSocket refresh events and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-survey/backend/config"
	"github.com/aura-survey/backend/internal/auth"
	"github.com/aura-survey/backend/internal/editor"
	"github.com/aura-survey/backend/internal/exports"
	"github.com/aura-survey/backend/internal/middleware"
	"github.com/aura-survey/backend/internal/preview"
	"github.com/aura-survey/backend/internal/realtime"
	"github.com/aura-survey/backend/internal/reorder"
	"github.com/aura-survey/backend/internal/surveys"
	"github.com/aura-survey/backend/pkg/database"
	"github.com/aura-survey/backend/pkg/queue"
	"github.com/aura-survey/backend/pkg/redis"
	"github.com/aura-survey/backend/pkg/response"
	"github.com/aura-survey/backend/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		newLogger("info").Fatal("load config", zap.Error(err))
	}
	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var presigner exports.Presigner
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ExportsBucket:        cfg.AWS.ExportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			presigner = s3Client
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Survey store
	surveyRepo := surveys.NewRepository(pool)
	surveyHandler := surveys.NewHandler(surveyRepo, hub, logger)

	// Editor sessions and previews
	editors := editor.NewRegistry(surveyRepo, editor.Options{
		Sensor:    reorder.NewSensor(cfg.Editor.DragActivationPx),
		OnRefresh: hub.PublishRefresh,
		Logger:    logger,
	})
	editorHandler := editor.NewHandler(editors, logger)
	previews := preview.NewRegistry(time.Duration(cfg.Preview.IdleMinutes)*time.Minute, logger)
	previewHandler := preview.NewHandler(previews, editors, logger)

	// Template exports
	exportRepo := exports.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	exportHandler := exports.NewHandler(exportRepo, jobQueue, presigner, logger)

	sweeper := cron.New()
	if _, err := previews.Schedule(sweeper, cfg.Preview.SweepSpec); err != nil {
		logger.Fatal("preview sweep schedule", zap.Error(err), zap.String("spec", cfg.Preview.SweepSpec))
	}
	sweeper.Start()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		if err := rdb.Healthy(c.Request.Context()); err != nil {
			response.ServiceUnavailable(c, "redis unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok", "editors": editors.Len(), "previews": previews.Len()})
	})

	// Protected API (JWT + editor role)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService), middleware.RequireRole(cfg.JWT.EditorRoles...))
	{
		api.GET("/question-types", surveyHandler.QuestionTypes)

		// Surveys
		api.GET("/surveys", surveyHandler.List)
		api.POST("/surveys", surveyHandler.Create)
		api.GET("/surveys/:id", surveyHandler.Get)
		api.PATCH("/surveys/:id", surveyHandler.BulkUpdate)
		api.POST("/surveys/:id/questions", surveyHandler.CreateQuestion)
		api.PATCH("/surveys/:id/questions/:questionId", surveyHandler.UpdateQuestion)
		api.DELETE("/surveys/:id/questions/:questionId", surveyHandler.DeleteQuestion)
		api.GET("/surveys/:id/section-order", surveyHandler.SectionOrder)
		api.PUT("/surveys/:id/section-order", surveyHandler.UpdateSectionOrder)
		api.PATCH("/surveys/:id/sections/rename", surveyHandler.RenameSection)

		exportHandler.Register(api)
		editorHandler.Register(api)
		previewHandler.Register(api)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtService.Identify, cfg.JWT.EditorRoles...))

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

	<-sweeper.Stop().Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		config.Level = lvl
	}
	logger, _ := config.Build()
	return logger
}

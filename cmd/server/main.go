package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meshy-ar-backend/internal/config"
	"meshy-ar-backend/internal/firestore"
	"meshy-ar-backend/internal/handlers"
	"meshy-ar-backend/internal/meshy"
	"meshy-ar-backend/internal/middleware"
	"meshy-ar-backend/internal/models"
	"meshy-ar-backend/internal/services"
	"meshy-ar-backend/internal/supabase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	meshyClient := meshy.NewClient(cfg.MeshyAPIBaseURL, cfg.MeshyAPIKey)
	storageClient := supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseStorageBucket)

	// Firestore is allowed to be absent: the server still comes up and the
	// routes that need it answer 503, so provider-only routes keep working.
	var videos services.VideoRepository
	var records services.ModelRepository
	fsClient, err := firestore.New(context.Background(), cfg.FirebaseProjectID, cfg.FirebaseCredentialsPath)
	if err != nil {
		logger.Warn("Firestore unavailable, document store routes will return 503", zap.Error(err))
	} else {
		defer fsClient.Close()
		videos = fsClient
		records = fsClient
	}

	service := services.NewModelService(meshyClient, videos, records, storageClient, logger)

	generateHandler := handlers.NewGenerateHandler(service, logger)
	statusHandler := handlers.NewStatusHandler(service, logger)
	fetchHandler := handlers.NewFetchHandler(service, logger)
	modelsHandler := handlers.NewModelsHandler(service, logger)
	streamHandler := handlers.NewStreamHandler(meshyClient, logger)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.CustomRecovery(func(c *gin.Context, _ interface{}) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}))
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	router.Use(middleware.RequestID())

	api := router.Group("/api")
	api.GET("/health", handlers.HealthHandler)
	api.POST("/generate-3d", generateHandler.Generate)
	api.GET("/model-status/:task_id", statusHandler.GetStatus)
	api.POST("/fetch-model", fetchHandler.Fetch)
	api.GET("/models/list", modelsHandler.List)
	api.GET("/models/video/:video_id", modelsHandler.ListForVideo)
	api.GET("/stream-status/:task_id", streamHandler.StreamStatus)
	api.DELETE("/delete-model/:model_id", middleware.AdminAuth(cfg.AdminJWTSecret), modelsHandler.Delete)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Endpoint not found"})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func corsConfig(allowedOrigins string) cors.Config {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", middleware.RequestIDHeader)
	if allowedOrigins == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = strings.Split(allowedOrigins, ",")
	}
	return corsCfg
}

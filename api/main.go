package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/revocity/revocity/api/config"
	"github.com/revocity/revocity/api/handlers"
	"github.com/revocity/revocity/api/metrics"
	"github.com/revocity/revocity/api/middleware"
	"github.com/revocity/revocity/api/repository"
	"github.com/revocity/revocity/api/services"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx := context.Background()

	// Connect to database
	db, err := connectDB(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Auto-migrate the schema
	if err := repository.Migrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	repo := repository.New(db)

	// Initialize services
	var imageStore services.ImageStore
	var localStore *services.LocalImageStore
	if cfg.StorageBackend == "minio" {
		imageStore, err = services.NewMinioImageStore(ctx, cfg, zapLogger)
	} else {
		localStore, err = services.NewLocalImageStore(cfg)
		imageStore = localStore
	}
	if err != nil {
		zapLogger.Fatal("Failed to initialize image storage", zap.Error(err))
	}

	var sweepLock services.SweepLock
	if cfg.RedisURL != "" {
		redisClient, err := services.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		sweepLock = services.NewRedisSweepLock(redisClient, time.Duration(cfg.EscalationLockTTLSec)*time.Second, zapLogger)
	}

	gateway := services.NewAIGateway(cfg)
	if cfg.AIAPIKey == "" {
		zapLogger.Warn("AI_API_KEY not set, analysis endpoints will return fallback results")
	}

	userService := services.NewUserService(repo, zapLogger)
	analyzer := services.NewAnalyzerService(gateway, repo, zapLogger)
	validator := services.NewValidatorService(gateway, zapLogger)
	verifier := services.NewCleanupVerifier(gateway, zapLogger)
	areaService := services.NewAreaService(repo, zapLogger)
	rewardService := services.NewRewardService(repo, zapLogger)
	complaintService := services.NewComplaintService(services.ComplaintDeps{
		Store:    repo,
		Areas:    areaService,
		Rewards:  rewardService,
		Analyzer: analyzer,
		Verifier: verifier,
		Images:   imageStore,
		Geocoder: services.NewGeocodingService(cfg),
		Authz:    userService,
		Logger:   zapLogger,
	})
	escalationService := services.NewEscalationService(repo, sweepLock, zapLogger)

	if cfg.EscalationCronEnabled {
		if err := escalationService.Start(cfg.EscalationCron); err != nil {
			zapLogger.Fatal("Failed to schedule escalation sweeps", zap.Error(err))
		}
		defer escalationService.Stop()
		zapLogger.Info("Escalation sweeps scheduled", zap.String("schedule", cfg.EscalationCron))
	}

	// Initialize handlers
	router := setupRouter(cfg, zapLogger, routerDeps{
		public:     handlers.NewPublicHandler(cfg, db, complaintService),
		analysis:   handlers.NewAnalysisHandler(cfg, analyzer, validator),
		complaints: handlers.NewComplaintHandler(cfg, complaintService),
		community:  handlers.NewCommunityHandler(rewardService, areaService),
		users:      handlers.NewUserHandler(userService),
		admin:      handlers.NewAdminHandler(cfg, complaintService, escalationService, userService),
		localStore: localStore,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		zapLogger.Info("Starting API server", zap.String("app", cfg.AppName), zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func connectDB(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "development" {
		logLevel = logger.Info
	} else {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	return db, nil
}

type routerDeps struct {
	public     *handlers.PublicHandler
	analysis   *handlers.AnalysisHandler
	complaints *handlers.ComplaintHandler
	community  *handlers.CommunityHandler
	users      *handlers.UserHandler
	admin      *handlers.AdminHandler
	localStore *services.LocalImageStore
}

func setupRouter(cfg *config.Config, zapLogger *zap.Logger, h routerDeps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Recovery(zapLogger))
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.ErrorHandler(zapLogger))
	router.Use(middleware.CORS())
	router.Use(metrics.Middleware())

	router.GET("/health", h.public.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Static file serving for the local image backend
	if h.localStore != nil {
		router.Static("/files", h.localStore.Dir())
	}

	aiLimiter := middleware.NewRateLimiter(cfg.AIRatePerSec, cfg.AIRateBurst)

	v1 := router.Group("/v1")
	{
		public := v1.Group("/public")
		{
			public.GET("/transparency", h.public.Transparency)
			public.GET("/areas", h.community.TopAreas)
		}

		authed := v1.Group("")
		authed.Use(middleware.Auth([]byte(cfg.JWTSecret), zapLogger))
		{
			analysis := authed.Group("/analysis")
			analysis.Use(aiLimiter.Middleware())
			{
				analysis.POST("/bin", h.analysis.AnalyzeBin)
				analysis.POST("/validate", h.analysis.ValidateImage)
			}

			authed.GET("/scans", h.analysis.ListScans)

			complaints := authed.Group("/complaints")
			{
				complaints.POST("", h.complaints.Submit)
				complaints.GET("", h.complaints.List)
				complaints.GET("/mine", h.complaints.ListMine)
				complaints.GET("/stats", h.complaints.Stats)
				complaints.GET("/:id", h.complaints.Get)
			}

			rewards := authed.Group("/rewards")
			{
				rewards.GET("/me", h.community.MyRewards)
				rewards.GET("/leaderboard", h.community.Leaderboard)
			}

			areas := authed.Group("/areas")
			{
				areas.GET("", h.community.TopAreas)
				areas.GET("/:key", h.community.GetArea)
			}

			users := authed.Group("/users")
			{
				users.POST("/register", h.users.Register)
				users.GET("/me/role", h.users.MyRole)
			}

			admin := authed.Group("/admin")
			{
				admin.PATCH("/complaints/:id", h.admin.UpdateComplaint)
				admin.POST("/complaints/:id/cleanup/verify", aiLimiter.Middleware(), h.admin.VerifyCleanup)
				admin.POST("/escalations/run", h.admin.RunEscalations)
				admin.GET("/users", h.admin.ListUsers)
				admin.PUT("/users/:uid/role", h.admin.AssignRole)
				admin.DELETE("/users/:uid/role", h.admin.RemoveRole)
			}
		}
	}

	return router
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/kioskpe/letslegal-api/api/swagger"
	"github.com/kioskpe/letslegal-api/internal/handler"
	internalmiddleware "github.com/kioskpe/letslegal-api/internal/middleware"
	"github.com/kioskpe/letslegal-api/internal/repository"
	"github.com/kioskpe/letslegal-api/internal/service"
	"github.com/kioskpe/letslegal-api/pkg/cache"
	"github.com/kioskpe/letslegal-api/pkg/config"
	"github.com/kioskpe/letslegal-api/pkg/database"
	"github.com/kioskpe/letslegal-api/pkg/jobs"
	"github.com/kioskpe/letslegal-api/pkg/logger"
	"github.com/kioskpe/letslegal-api/pkg/mailer"
	corsmiddleware "github.com/kioskpe/letslegal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/kioskpe/letslegal-api/pkg/middleware/requestid"
	"github.com/kioskpe/letslegal-api/pkg/storage"
)

// @title LetsLegal API
// @version 1.0.0
// @description Business services platform: service requests, tracking, documents and inquiries.
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewServiceRequestRepository(db)
	contactRepo := repository.NewContactRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Stats.CacheTTL, logr,
		cfg.Stats.CacheEnabled && redisClient != nil)

	notificationService := service.NewNotificationService(mailer.New(cfg.SMTP), logr, cfg.Notifications.Enabled, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})

	authService := service.NewAuthService(userRepo, notificationService, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		ResetTokenExpiry:   time.Hour,
		Issuer:             cfg.JWT.Issuer,
		FrontendURL:        cfg.FrontendURL,
	})
	requestService := service.NewServiceRequestService(requestRepo, userRepo, notificationService, cacheService, validate, logr, cfg.Stats.CacheTTL)
	contactService := service.NewContactService(contactRepo, notificationService, validate, logr)
	userService := service.NewUserService(userRepo, validate, logr)
	dashboardService := service.NewDashboardService(userRepo, requestRepo, contactRepo, cacheService, logr, cfg.Stats.CacheTTL)

	var exportService *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportService = service.NewExportService(requestRepo, store, signer, logr, cfg.PublicBaseURL)

		go func() {
			ticker := time.NewTicker(cfg.Exports.SignedURLTTL)
			defer ticker.Stop()
			for range ticker.C {
				exportService.Cleanup(cfg.Exports.SignedURLTTL)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationService.Start(ctx)
	defer notificationService.Stop()

	authHandler := handler.NewAuthHandler(authService)
	requestHandler := handler.NewServiceRequestHandler(requestService, exportService)
	contactHandler := handler.NewContactHandler(contactService)
	adminHandler := handler.NewAdminHandler(dashboardService, userService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)

	authed := auth.Group("", internalmiddleware.JWT(authService))
	authed.POST("/logout", authHandler.Logout)
	authed.GET("/me", authHandler.Me)
	authed.PUT("/profile", authHandler.UpdateProfile)
	authed.PUT("/password", authHandler.ChangePassword)

	services := api.Group("/services")
	services.POST("/request", internalmiddleware.OptionalJWT(authService), requestHandler.Submit)
	services.GET("/track/:id", requestHandler.Track)

	mine := services.Group("", internalmiddleware.JWT(authService))
	mine.GET("/my-requests", requestHandler.ListOwn)
	mine.GET("/my-requests/:id", requestHandler.GetOwn)
	mine.POST("/request/:id/document", requestHandler.AttachDocument)

	adminServices := services.Group("", internalmiddleware.JWT(authService), internalmiddleware.RequireAdmin())
	adminServices.GET("/all", requestHandler.ListAll)
	adminServices.GET("/request/:id", requestHandler.GetDetail)
	adminServices.PUT("/request/:id/status", requestHandler.TransitionStatus)
	adminServices.PUT("/request/:id", requestHandler.UpdateDetails)
	adminServices.DELETE("/request/:id", requestHandler.Delete)
	adminServices.GET("/stats", requestHandler.Stats)
	if exportService != nil {
		adminServices.GET("/export", internalmiddleware.Audit(userRepo, "REQUEST_EXPORT", "service_requests"), requestHandler.Export)
		services.GET("/export/download", requestHandler.DownloadExport)
	}

	contact := api.Group("/contact")
	contact.POST("/inquiry", contactHandler.Submit)

	adminContact := contact.Group("", internalmiddleware.JWT(authService), internalmiddleware.RequireAdmin())
	adminContact.GET("/inquiries", contactHandler.List)
	adminContact.PUT("/inquiries/:id/status", contactHandler.UpdateStatus)

	admin := api.Group("/admin", internalmiddleware.JWT(authService), internalmiddleware.RequireAdmin())
	admin.GET("/dashboard", adminHandler.Dashboard)
	admin.GET("/inquiries", contactHandler.List)
	admin.GET("/metrics", metricsHandler.Snapshot)
	admin.GET("/users", adminHandler.ListUsers)
	admin.GET("/users/:id", adminHandler.GetUser)
	admin.PUT("/users/:id", adminHandler.UpdateUser)
	admin.DELETE("/users/:id", adminHandler.DeleteUser)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

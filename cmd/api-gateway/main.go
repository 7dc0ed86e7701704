package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/lms-admin-api/api/swagger"
	"github.com/noah-isme/lms-admin-api/internal/handler"
	"github.com/noah-isme/lms-admin-api/internal/middleware"
	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/repository"
	"github.com/noah-isme/lms-admin-api/internal/service"
	"github.com/noah-isme/lms-admin-api/pkg/cache"
	"github.com/noah-isme/lms-admin-api/pkg/config"
	"github.com/noah-isme/lms-admin-api/pkg/database"
	"github.com/noah-isme/lms-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-admin-api/pkg/middleware/requestid"
)

// @title LMS Admin API
// @version 0.1.0
// @description Authentication and authorization service for the LMS admin platform
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	rbacRepo := repository.NewRBACRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	codec := service.NewTokenCodec(cfg.JWT)
	loader := service.NewContextLoader(userRepo, rbacRepo)
	throttle := service.NewLoginThrottle(redisClient, cfg.Auth.ThrottleMaxAttempts, cfg.Auth.ThrottleWindow, cfg.Auth.ThrottleEnabled)
	metrics := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, rbacRepo, activityRepo, loader, codec, throttle, metrics, validate, logr, cfg.Auth.ResetTokenTTL)
	userSvc := service.NewUserService(userRepo, rbacRepo, validate, logr)
	rbacSvc := service.NewRBACService(rbacRepo, userRepo, validate, logr)
	activitySvc := service.NewActivityService(activityRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc, cfg.Env)
	userHandler := handler.NewUserHandler(userSvc)
	roleHandler := handler.NewRoleHandler(rbacSvc)
	activityHandler := handler.NewActivityHandler(activitySvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
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
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)

		authed := auth.Group("")
		authed.Use(middleware.Auth(codec, loader, metrics))
		{
			authed.POST("/logout", authHandler.Logout)
			authed.POST("/change-password", authHandler.ChangePassword)
			authed.GET("/me", authHandler.Me)
		}
	}

	protected := api.Group("")
	protected.Use(middleware.Auth(codec, loader, metrics))
	{
		users := protected.Group("/users")
		{
			users.GET("", middleware.RBAC(models.RoleAdmin), userHandler.List)
			users.POST("", middleware.RBAC(models.RoleAdmin), userHandler.Create)
			users.GET("/:id", middleware.RBAC(models.RoleAdmin, middleware.SelfScope), userHandler.Get)
			users.PUT("/:id", middleware.RBAC(models.RoleAdmin), userHandler.Update)
			users.DELETE("/:id", middleware.RBAC(models.RoleAdmin), userHandler.Delete)
			users.POST("/:id/roles", middleware.RBAC(models.RoleAdmin), roleHandler.AssignRole)
			users.DELETE("/:id/roles/:role", middleware.RBAC(models.RoleAdmin), roleHandler.RemoveRole)
		}

		roles := protected.Group("/roles")
		roles.Use(middleware.RBAC(models.RoleSuperAdmin))
		{
			roles.GET("", roleHandler.ListRoles)
			roles.POST("", roleHandler.CreateRole)
			roles.PUT("/:name/permissions", roleHandler.SetRolePermissions)
		}
		protected.GET("/permissions", middleware.RBAC(models.RoleSuperAdmin), roleHandler.ListPermissions)

		activity := protected.Group("/login-activity")
		activity.Use(middleware.RBAC(models.RoleAdmin))
		{
			activity.GET("", activityHandler.List)
			activity.GET("/export", activityHandler.Export)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

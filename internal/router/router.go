package router

import (
	"context"
	"net/http"
	"time"

	"github.com/Baaaki/daily-report/internal/config"
	"github.com/Baaaki/daily-report/internal/handler"
	"github.com/Baaaki/daily-report/internal/middleware"
	"github.com/Baaaki/daily-report/internal/service"
	"github.com/Baaaki/daily-report/pkg/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var defaultAllowedOrigins = []string{"http://localhost:3000"}

// Dependencies is everything the HTTP layer needs
type Dependencies struct {
	Config          *config.Config
	EmployeeService *service.EmployeeService
	CSRFStore       *middleware.CSRFStore
	LoginLimiter    *middleware.RateLimiter

	// HealthCheck reports store reachability for /healthz. Nil means always healthy.
	HealthCheck func(ctx context.Context) error
}

func New(deps Dependencies) *gin.Engine {
	cfg := deps.Config

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.HSTSMiddleware(cfg.IsProduction()))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = defaultAllowedOrigins
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.CSRFHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authHandler := handler.NewAuthHandler(
		deps.EmployeeService,
		deps.CSRFStore,
		cfg.JWTSecret,
		cfg.JWTExpiry,
		cfg.IsProduction(),
	)
	employeeHandler := handler.NewEmployeeHandler(deps.EmployeeService)

	authRequired := middleware.AuthMiddleware(cfg.JWTSecret)
	csrfRequired := deps.CSRFStore.Middleware()

	router.GET("/healthz", func(c *gin.Context) {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(c.Request.Context()); err != nil {
				logger.Log.Error("Health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public routes
	auth := router.Group("/api/auth")
	{
		auth.POST("/login", deps.LoginLimiter.Middleware(), authHandler.Login)
		auth.POST("/logout", authRequired, csrfRequired, authHandler.Logout)
	}

	// Admin routes (JWT, stored admin role, CSRF on unsafe methods)
	employees := router.Group("/api/employees")
	employees.Use(
		authRequired,
		middleware.CurrentEmployeeMiddleware(deps.EmployeeService),
		middleware.AdminMiddleware(),
		csrfRequired,
	)
	{
		employees.GET("", employeeHandler.List)
		employees.GET("/:id", employeeHandler.Show)
		employees.POST("", employeeHandler.Create)
		employees.PUT("/:id", employeeHandler.Update)
		employees.DELETE("/:id", employeeHandler.Destroy)
	}

	return router
}

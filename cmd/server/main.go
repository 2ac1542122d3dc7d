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

	"github.com/Baaaki/daily-report/internal/audit"
	"github.com/Baaaki/daily-report/internal/broker"
	"github.com/Baaaki/daily-report/internal/config"
	"github.com/Baaaki/daily-report/internal/database"
	"github.com/Baaaki/daily-report/internal/middleware"
	"github.com/Baaaki/daily-report/internal/repository"
	"github.com/Baaaki/daily-report/internal/router"
	"github.com/Baaaki/daily-report/internal/service"
	"github.com/Baaaki/daily-report/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(!cfg.IsProduction()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to connect database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Log.Fatal("Failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Audit trail: local journal plus the pub/sub feed
	journal, err := audit.Open(cfg.AuditLogPath)
	if err != nil {
		logger.Log.Fatal("Failed to open audit journal", zap.Error(err))
	}
	defer journal.Close()

	events := broker.NewRedisEventBroker(redisClient)
	defer events.Close()

	employeeRepo := repository.NewEmployeeRepository(db)
	employeeService := service.NewEmployeeService(
		employeeRepo,
		database.NewTxManager(db),
		cfg.Pepper,
		service.WithAuditRecorder(audit.Multi(journal, events)),
	)

	engine := router.New(router.Dependencies{
		Config:          cfg,
		EmployeeService: employeeService,
		CSRFStore:       middleware.NewCSRFStore(redisClient, cfg.JWTExpiry),
		LoginLimiter: middleware.NewRateLimiter(redisClient, middleware.RateLimiterConfig{
			Scope:       "login",
			MaxRequests: cfg.RateLimitMaxRequests,
			Window:      cfg.RateLimitWindow,
			BlockTime:   cfg.RateLimitBlockTime,
		}),
		HealthCheck: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				return err
			}
			return redisClient.Ping(ctx).Err()
		},
	})

	srv := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server starting",
			zap.String("addr", cfg.ServerPort),
			zap.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server shutdown failed", zap.Error(err))
	}
}

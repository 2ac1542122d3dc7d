package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/Baaaki/daily-report/internal/config"
	"github.com/Baaaki/daily-report/internal/database"
	"github.com/Baaaki/daily-report/internal/models"
	"github.com/Baaaki/daily-report/internal/repository"
	"github.com/Baaaki/daily-report/internal/service"
	"github.com/Baaaki/daily-report/internal/utils"
	"github.com/Baaaki/daily-report/pkg/logger"
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

	adminCode := os.Getenv("ADMIN_CODE")
	adminName := os.Getenv("ADMIN_NAME")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminCode == "" || adminName == "" || adminPassword == "" {
		logger.Log.Fatal("Missing environment variables: ADMIN_CODE, ADMIN_NAME, ADMIN_PASSWORD")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to connect database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}

	ctx := context.Background()
	employeeRepo := repository.NewEmployeeRepository(db)

	// Check if an active employee with this code already exists
	existing, err := employeeRepo.FindActiveByCode(ctx, adminCode)
	if err != nil {
		logger.Log.Fatal("Failed to look up admin", zap.Error(err))
	}
	if existing != nil {
		logger.Log.Info("Admin employee already exists",
			zap.String("code", existing.Code),
			zap.String("role", string(existing.Role)),
			zap.Bool("password_matches", utils.VerifyPassword(adminPassword, cfg.Pepper, existing.PasswordDigest)),
		)
		return
	}

	employeeService := service.NewEmployeeService(
		employeeRepo,
		database.NewTxManager(db),
		cfg.Pepper,
	)

	admin, errs, err := employeeService.Create(ctx, service.EmployeeInput{
		Code:     adminCode,
		Name:     adminName,
		Password: adminPassword,
		Role:     string(models.RoleAdmin),
	})
	if err != nil {
		logger.Log.Fatal("Failed to create admin", zap.Error(err))
	}
	if len(errs) > 0 {
		logger.Log.Fatal("Admin input rejected", zap.String("errors", strings.Join(errs, " ")))
	}

	logger.Log.Info("Admin employee created successfully",
		zap.Uint("employee_id", admin.ID),
		zap.String("code", admin.Code),
	)
}

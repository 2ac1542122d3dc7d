package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/Baaaki/daily-report/internal/models"
	"github.com/Baaaki/daily-report/internal/utils"
	"gorm.io/gorm"
)

const (
	TestPepper        = "test-pepper"
	TestAdminCode     = "A0001"
	TestAdminPassword = "Admin123456"
	TestUserCode      = "E0001"
	TestUserPassword  = "Test123456"
)

// CreateTestEmployee inserts an employee straight into the table, bypassing the service
func CreateTestEmployee(t *testing.T, db *gorm.DB, code, name, password string, role models.Role) *models.Employee {
	digest, err := utils.HashPassword(password, TestPepper)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	now := time.Now().UTC()
	employee := &models.Employee{
		Code:           code,
		Name:           name,
		PasswordDigest: digest,
		Role:           role,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := db.Create(employee).Error; err != nil {
		t.Fatalf("Failed to create test employee %s: %v", code, err)
	}
	return employee
}

// DefaultAdmin creates the admin employee used to log in during handler tests
func DefaultAdmin(t *testing.T, db *gorm.DB) *models.Employee {
	return CreateTestEmployee(t, db, TestAdminCode, "Admin", TestAdminPassword, models.RoleAdmin)
}

// DefaultGeneral creates a general (non-admin) employee
func DefaultGeneral(t *testing.T, db *gorm.DB) *models.Employee {
	return CreateTestEmployee(t, db, TestUserCode, "Test Employee", TestUserPassword, models.RoleGeneral)
}

// SeedEmployees inserts n general employees coded S0001..Snnnn. They share one digest
// so seeding stays fast.
func SeedEmployees(t *testing.T, db *gorm.DB, n int) []models.Employee {
	digest, err := utils.HashPassword(TestUserPassword, TestPepper)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	now := time.Now().UTC()
	employees := make([]models.Employee, 0, n)
	for i := 1; i <= n; i++ {
		employees = append(employees, models.Employee{
			Code:           fmt.Sprintf("S%04d", i),
			Name:           fmt.Sprintf("Seeded %d", i),
			PasswordDigest: digest,
			Role:           models.RoleGeneral,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	if err := db.Create(&employees).Error; err != nil {
		t.Fatalf("Failed to seed employees: %v", err)
	}
	return employees
}

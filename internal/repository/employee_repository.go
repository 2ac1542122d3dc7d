package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Baaaki/daily-report/internal/database"
	"github.com/Baaaki/daily-report/internal/models"
	"gorm.io/gorm"
)

// PageSize is the number of employees per listing page. Count and page queries both
// use it, so page arithmetic on the client stays consistent.
const PageSize = 10

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrInvalidPage      = errors.New("page must be a positive integer")
	// ErrDuplicateCode is returned when the unique index on active codes rejects a write.
	ErrDuplicateCode = errors.New("employee code already in use")
)

type EmployeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

func active(db *gorm.DB) *gorm.DB {
	return db.Where("deleted = ?", false)
}

// GetPage returns one page of non-deleted employees ordered by id.
// A page past the end yields an empty slice.
func (r *EmployeeRepository) GetPage(ctx context.Context, page int) ([]models.Employee, error) {
	if page < 1 {
		return nil, ErrInvalidPage
	}

	employees := make([]models.Employee, 0, PageSize)
	err := database.Conn(ctx, r.db).
		Scopes(active).
		Order("id ASC").
		Offset((page - 1) * PageSize).
		Limit(PageSize).
		Find(&employees).Error
	if err != nil {
		return nil, err
	}

	return employees, nil
}

func (r *EmployeeRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&models.Employee{}).
		Scopes(active).
		Count(&count).Error
	return count, err
}

// FindByID returns the row whatever its lifecycle state, deleted rows included.
// Callers exposing employees to users must check the flag themselves.
func (r *EmployeeRepository) FindByID(ctx context.Context, id uint) (*models.Employee, error) {
	var employee models.Employee
	err := database.Conn(ctx, r.db).Where("id = ?", id).First(&employee).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &employee, nil
}

// FindByCodeAndDigest is the credential lookup. Only non-deleted rows match.
func (r *EmployeeRepository) FindByCodeAndDigest(ctx context.Context, code, digest string) (*models.Employee, error) {
	var employee models.Employee
	err := database.Conn(ctx, r.db).
		Scopes(active).
		Where("code = ? AND password_digest = ?", code, digest).
		First(&employee).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &employee, nil
}

// FindActiveByCode returns the non-deleted employee holding code, or nil.
func (r *EmployeeRepository) FindActiveByCode(ctx context.Context, code string) (*models.Employee, error) {
	var employee models.Employee
	err := database.Conn(ctx, r.db).
		Scopes(active).
		Where("code = ?", code).
		First(&employee).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &employee, nil
}

// CountByCode counts non-deleted employees holding code.
func (r *EmployeeRepository) CountByCode(ctx context.Context, code string) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&models.Employee{}).
		Scopes(active).
		Where("code = ?", code).
		Count(&count).Error
	return count, err
}

// Insert stores a new employee and returns the assigned id.
func (r *EmployeeRepository) Insert(ctx context.Context, employee *models.Employee) (uint, error) {
	err := r.atomic(ctx, func(tx *gorm.DB) error {
		return translate(tx.Create(employee).Error)
	})
	if err != nil {
		return 0, err
	}
	return employee.ID, nil
}

// Update replaces every column of the row with employee's values.
func (r *EmployeeRepository) Update(ctx context.Context, employee *models.Employee) error {
	return r.atomic(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&models.Employee{}).
			Where("id = ?", employee.ID).
			Updates(map[string]interface{}{
				"code":            employee.Code,
				"name":            employee.Name,
				"password_digest": employee.PasswordDigest,
				"role":            employee.Role,
				"created_at":      employee.CreatedAt,
				"updated_at":      employee.UpdatedAt,
				"deleted":         employee.Deleted,
			})
		if result.Error != nil {
			return translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrEmployeeNotFound
		}
		return nil
	})
}

// SoftDelete flags the row as deleted. The row itself is kept.
func (r *EmployeeRepository) SoftDelete(ctx context.Context, id uint, at time.Time) error {
	return r.atomic(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&models.Employee{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"deleted":    true,
				"updated_at": at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrEmployeeNotFound
		}
		return nil
	})
}

// translate maps a unique index violation to ErrDuplicateCode. The connection must be
// opened with gorm.Config.TranslateError.
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateCode
	}
	return err
}

// atomic runs fn in the caller's transaction, or in a fresh one when there is none.
func (r *EmployeeRepository) atomic(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if database.InTransaction(ctx) {
		return fn(database.Conn(ctx, r.db))
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

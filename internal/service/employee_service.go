package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Baaaki/daily-report/internal/audit"
	"github.com/Baaaki/daily-report/internal/models"
	"github.com/Baaaki/daily-report/internal/repository"
	"github.com/Baaaki/daily-report/internal/utils"
	"github.com/Baaaki/daily-report/pkg/logger"
	"go.uber.org/zap"
)

var (
	// ErrEmployeeNotFound covers both unknown ids and soft-deleted employees.
	ErrEmployeeNotFound = repository.ErrEmployeeNotFound
	// ErrStorage wraps every failure reported by the employee store.
	ErrStorage = errors.New("employee storage failure")
)

// EmployeeStore is the persistence the service needs. *repository.EmployeeRepository
// satisfies it.
type EmployeeStore interface {
	CodeCounter
	GetPage(ctx context.Context, page int) ([]models.Employee, error)
	CountAll(ctx context.Context) (int64, error)
	FindByID(ctx context.Context, id uint) (*models.Employee, error)
	FindByCodeAndDigest(ctx context.Context, code, digest string) (*models.Employee, error)
	Insert(ctx context.Context, employee *models.Employee) (uint, error)
	Update(ctx context.Context, employee *models.Employee) error
	SoftDelete(ctx context.Context, id uint, at time.Time) error
}

// Transactor runs fn atomically. *database.TxManager satisfies it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Clock interface {
	Now() time.Time
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }

type noTransaction struct{}

func (noTransaction) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// EmployeePage is one listing page plus the total used for pagination.
type EmployeePage struct {
	Employees []models.Employee
	Total     int64
	Page      int
	PageSize  int
}

// LastPage is the highest page number holding rows, 1 for an empty listing.
func (p *EmployeePage) LastPage() int {
	if p.Total == 0 || p.PageSize <= 0 {
		return 1
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

type Option func(*EmployeeService)

func WithClock(clock Clock) Option {
	return func(s *EmployeeService) { s.clock = clock }
}

// WithAuditRecorder appends an audit entry after every committed mutation.
func WithAuditRecorder(recorder audit.Recorder) Option {
	return func(s *EmployeeService) { s.audit = recorder }
}

type EmployeeService struct {
	repo      EmployeeStore
	tx        Transactor
	validator *EmployeeValidator
	pepper    string
	clock     Clock
	audit     audit.Recorder
}

func NewEmployeeService(repo EmployeeStore, tx Transactor, pepper string, opts ...Option) *EmployeeService {
	if tx == nil {
		tx = noTransaction{}
	}
	s := &EmployeeService{
		repo:      repo,
		tx:        tx,
		validator: NewEmployeeValidator(repo),
		pepper:    pepper,
		clock:     utcClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate reports whether code and password identify an active employee.
func (s *EmployeeService) Authenticate(ctx context.Context, code, password string) (bool, error) {
	employee, err := s.FindByCredentials(ctx, code, password)
	if err != nil {
		return false, err
	}
	return employee != nil, nil
}

// FindByCredentials returns the active employee matching code and password, or nil.
// Blank input and passwords that cannot be hashed never match. Only store failures
// are returned as errors.
func (s *EmployeeService) FindByCredentials(ctx context.Context, code, password string) (*models.Employee, error) {
	if strings.TrimSpace(code) == "" || strings.TrimSpace(password) == "" {
		return nil, nil
	}

	digest, err := utils.HashPassword(password, s.pepper)
	if err != nil {
		logger.Log.Warn("Rejected credentials that cannot be hashed",
			zap.String("code", code),
			zap.Error(err),
		)
		return nil, nil
	}

	employee, err := s.repo.FindByCodeAndDigest(ctx, code, digest)
	if err != nil {
		logger.Log.Error("Failed to look up credentials",
			zap.String("code", code),
			zap.Error(err),
		)
		return nil, storageError("find by credentials", err)
	}
	if employee == nil || !employee.IsActive() {
		return nil, nil
	}

	return employee, nil
}

// Create validates input with full checks and persists a new employee. A non-empty
// message slice means nothing was written.
func (s *EmployeeService) Create(ctx context.Context, input EmployeeInput) (*models.Employee, []string, error) {
	start := time.Now()

	logger.Log.Debug("Processing employee creation",
		zap.String("code", input.Code),
	)

	digest, hashErr := utils.HashPassword(input.Password, s.pepper)

	role, _ := models.ParseRole(input.Role)
	now := s.clock.Now()
	employee := &models.Employee{
		Code:           input.Code,
		Name:           input.Name,
		PasswordDigest: digest,
		Role:           role,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var messages []string
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		errs, err := s.validator.Validate(ctx, candidateFrom(input), ValidationOptions{
			CheckCodeUniqueness: true,
			CheckPasswordFormat: true,
		})
		if err != nil {
			return err
		}
		if len(errs) > 0 {
			messages = errs
			return nil
		}
		if hashErr != nil {
			logger.Log.Warn("Employee password cannot be hashed",
				zap.String("code", input.Code),
				zap.Error(hashErr),
			)
			messages = []string{MsgPasswordEncoding}
			return nil
		}

		_, err = s.repo.Insert(ctx, employee)
		return err
	})
	if errors.Is(err, repository.ErrDuplicateCode) {
		// Lost a race with a concurrent create of the same code
		messages = []string{MsgCodeDuplicate}
		err = nil
	}
	if err != nil {
		logger.Log.Error("Failed to create employee",
			zap.String("code", input.Code),
			zap.Error(err),
		)
		return nil, nil, storageError("create employee", err)
	}
	if len(messages) > 0 {
		logger.Log.Warn("Employee creation rejected",
			zap.String("code", input.Code),
			zap.Strings("errors", messages),
		)
		return nil, messages, nil
	}

	s.record(audit.Entry{
		EmployeeID: employee.ID,
		Code:       employee.Code,
		Action:     audit.ActionCreated,
		Timestamp:  now,
	})

	logger.Log.Info("Employee created",
		zap.Uint("employee_id", employee.ID),
		zap.String("code", employee.Code),
		zap.String("role", string(employee.Role)),
		zap.Duration("duration", time.Since(start)),
	)

	return employee, nil, nil
}

// Update applies input to the active employee id. The code is re-checked for
// uniqueness only when it changes, and the password is validated and replaced only
// when one is supplied. Name and role always follow input.
func (s *EmployeeService) Update(ctx context.Context, id uint, input EmployeeInput) (*models.Employee, []string, error) {
	start := time.Now()

	logger.Log.Debug("Processing employee update",
		zap.Uint("employee_id", id),
	)

	var (
		updated  *models.Employee
		messages []string
		changes  ChangeSet
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		stored, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if stored == nil || !stored.IsActive() {
			return ErrEmployeeNotFound
		}

		changes = Diff(stored, input)

		next := *stored
		next.Name = input.Name
		if role, ok := models.ParseRole(input.Role); ok {
			next.Role = role
		}
		if changes.CodeChanged {
			next.Code = input.Code
		}

		errs, err := s.validator.Validate(ctx, EmployeeCandidate{
			Code:     next.Code,
			Name:     next.Name,
			Password: input.Password,
			Role:     input.Role,
		}, ValidationOptions{
			CheckCodeUniqueness: changes.CodeChanged,
			CheckPasswordFormat: changes.PasswordSupplied,
		})
		if err != nil {
			return err
		}
		if len(errs) > 0 {
			messages = errs
			return nil
		}
		if changes.PasswordSupplied {
			digest, err := utils.HashPassword(input.Password, s.pepper)
			if err != nil {
				messages = []string{MsgPasswordEncoding}
				return nil
			}
			next.PasswordDigest = digest
		}

		next.Touch(s.clock.Now())
		if err := s.repo.Update(ctx, &next); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if errors.Is(err, repository.ErrDuplicateCode) {
		messages = []string{MsgCodeDuplicate}
		err = nil
	}
	if err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			logger.Log.Warn("Employee to update not found",
				zap.Uint("employee_id", id),
			)
			return nil, nil, ErrEmployeeNotFound
		}
		logger.Log.Error("Failed to update employee",
			zap.Uint("employee_id", id),
			zap.Error(err),
		)
		return nil, nil, storageError("update employee", err)
	}
	if len(messages) > 0 {
		logger.Log.Warn("Employee update rejected",
			zap.Uint("employee_id", id),
			zap.Strings("errors", messages),
		)
		return nil, messages, nil
	}

	s.record(audit.Entry{
		EmployeeID:      updated.ID,
		Code:            updated.Code,
		Action:          audit.ActionUpdated,
		CodeChanged:     changes.CodeChanged,
		PasswordChanged: changes.PasswordSupplied,
		Timestamp:       updated.UpdatedAt,
	})

	logger.Log.Info("Employee updated",
		zap.Uint("employee_id", updated.ID),
		zap.Bool("code_changed", changes.CodeChanged),
		zap.Bool("password_changed", changes.PasswordSupplied),
		zap.Duration("duration", time.Since(start)),
	)

	return updated, nil, nil
}

// Destroy soft-deletes the active employee id. Deleting twice reports not found.
func (s *EmployeeService) Destroy(ctx context.Context, id uint) error {
	var deleted *models.Employee
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		stored, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if stored == nil || !stored.IsActive() {
			return ErrEmployeeNotFound
		}

		stored.MarkDeleted(s.clock.Now())
		if err := s.repo.SoftDelete(ctx, stored.ID, stored.UpdatedAt); err != nil {
			return err
		}
		deleted = stored
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			logger.Log.Warn("Employee to delete not found",
				zap.Uint("employee_id", id),
			)
			return ErrEmployeeNotFound
		}
		logger.Log.Error("Failed to delete employee",
			zap.Uint("employee_id", id),
			zap.Error(err),
		)
		return storageError("delete employee", err)
	}

	s.record(audit.Entry{
		EmployeeID: deleted.ID,
		Code:       deleted.Code,
		Action:     audit.ActionDeleted,
		Timestamp:  deleted.UpdatedAt,
	})

	logger.Log.Info("Employee deleted",
		zap.Uint("employee_id", deleted.ID),
		zap.String("code", deleted.Code),
	)

	return nil
}

// FindOne returns the active employee id.
func (s *EmployeeService) FindOne(ctx context.Context, id uint) (*models.Employee, error) {
	employee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		logger.Log.Error("Failed to get employee",
			zap.Uint("employee_id", id),
			zap.Error(err),
		)
		return nil, storageError("find employee", err)
	}
	if employee == nil || !employee.IsActive() {
		return nil, ErrEmployeeNotFound
	}
	return employee, nil
}

// List returns one page of active employees. Pages below 1 are treated as 1.
func (s *EmployeeService) List(ctx context.Context, page int) (*EmployeePage, error) {
	if page < 1 {
		page = 1
	}

	result := &EmployeePage{Page: page, PageSize: repository.PageSize}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		employees, err := s.repo.GetPage(ctx, page)
		if err != nil {
			return err
		}
		total, err := s.repo.CountAll(ctx)
		if err != nil {
			return err
		}
		result.Employees = employees
		result.Total = total
		return nil
	})
	if err != nil {
		logger.Log.Error("Failed to list employees",
			zap.Int("page", page),
			zap.Error(err),
		)
		return nil, storageError("list employees", err)
	}

	return result, nil
}

// record writes to the audit journal. The mutation is already committed, so a
// failure here is logged and not returned.
func (s *EmployeeService) record(entry audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(entry); err != nil {
		logger.Log.Error("Failed to record audit entry",
			zap.Uint("employee_id", entry.EmployeeID),
			zap.String("action", string(entry.Action)),
			zap.Error(err),
		)
	}
}

func candidateFrom(input EmployeeInput) EmployeeCandidate {
	return EmployeeCandidate{
		Code:     input.Code,
		Name:     input.Name,
		Password: input.Password,
		Role:     input.Role,
	}
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Baaaki/daily-report/internal/audit"
	"github.com/Baaaki/daily-report/internal/database"
	"github.com/Baaaki/daily-report/internal/models"
	"github.com/Baaaki/daily-report/internal/repository"
	"github.com/Baaaki/daily-report/internal/service"
	"github.com/Baaaki/daily-report/internal/testutil"
	"github.com/Baaaki/daily-report/internal/utils"
	"github.com/Baaaki/daily-report/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

type memoryRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (r *memoryRecorder) Record(entry audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memoryRecorder) Entries() []audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Entry(nil), r.entries...)
}

// EmployeeServiceIntegrationTestSuite runs the service against SQLite
type EmployeeServiceIntegrationTestSuite struct {
	suite.Suite
	testDB   *testutil.TestDatabase
	repo     *repository.EmployeeRepository
	clock    *fixedClock
	recorder *memoryRecorder
	svc      *service.EmployeeService
	ctx      context.Context
}

func (s *EmployeeServiceIntegrationTestSuite) SetupSuite() {
	logger.Init(false)

	s.testDB = testutil.SetupTestDatabase(s.T())
	s.repo = repository.NewEmployeeRepository(s.testDB.DB)
	s.ctx = context.Background()
}

func (s *EmployeeServiceIntegrationTestSuite) TearDownSuite() {
	s.testDB.Teardown(s.T())
}

func (s *EmployeeServiceIntegrationTestSuite) SetupTest() {
	testutil.CleanDatabase(s.T(), s.testDB.DB)

	s.clock = &fixedClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	s.recorder = &memoryRecorder{}
	s.svc = service.NewEmployeeService(
		s.repo,
		database.NewTxManager(s.testDB.DB),
		testutil.TestPepper,
		service.WithClock(s.clock),
		service.WithAuditRecorder(s.recorder),
	)
}

func validInput(code string) service.EmployeeInput {
	return service.EmployeeInput{
		Code:     code,
		Name:     "Employee " + code,
		Password: "Password123",
		Role:     "general",
	}
}

func (s *EmployeeServiceIntegrationTestSuite) mustCreate(input service.EmployeeInput) *models.Employee {
	employee, errs, err := s.svc.Create(s.ctx, input)
	require.NoError(s.T(), err)
	require.Empty(s.T(), errs)
	require.NotNil(s.T(), employee)
	return employee
}

// ==================== CREATE ====================

func (s *EmployeeServiceIntegrationTestSuite) TestCreate_Success() {
	employee, errs, err := s.svc.Create(s.ctx, service.EmployeeInput{
		Code:     "E0001",
		Name:     "Taro Yamada",
		Password: "Password123",
		Role:     "1",
	})

	require.NoError(s.T(), err)
	assert.Empty(s.T(), errs)
	require.NotNil(s.T(), employee)
	assert.NotZero(s.T(), employee.ID)
	assert.Equal(s.T(), models.RoleAdmin, employee.Role)
	assert.Equal(s.T(), s.clock.now, employee.CreatedAt)
	assert.Equal(s.T(), s.clock.now, employee.UpdatedAt)
	assert.True(s.T(), employee.IsActive())

	expected, err := utils.HashPassword("Password123", testutil.TestPepper)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), expected, employee.PasswordDigest, "Stored digest must be the hasher output, never the plaintext")

	entries := s.recorder.Entries()
	require.Len(s.T(), entries, 1)
	assert.Equal(s.T(), audit.ActionCreated, entries[0].Action)
	assert.Equal(s.T(), employee.ID, entries[0].EmployeeID)
}

func (s *EmployeeServiceIntegrationTestSuite) TestCreate_AllFieldsInvalid() {
	employee, errs, err := s.svc.Create(s.ctx, service.EmployeeInput{Role: "owner"})

	require.NoError(s.T(), err)
	assert.Nil(s.T(), employee)
	assert.Equal(s.T(), []string{
		service.MsgCodeRequired,
		service.MsgNameRequired,
		service.MsgPasswordRequired,
		service.MsgRoleInvalid,
	}, errs)

	count, err := s.repo.CountAll(s.ctx)
	require.NoError(s.T(), err)
	assert.Zero(s.T(), count, "Rejected creates must not write")
	assert.Empty(s.T(), s.recorder.Entries())
}

func (s *EmployeeServiceIntegrationTestSuite) TestCreate_DuplicateActiveCode() {
	s.mustCreate(validInput("E0001"))

	employee, errs, err := s.svc.Create(s.ctx, validInput("E0001"))

	require.NoError(s.T(), err)
	assert.Nil(s.T(), employee)
	assert.Equal(s.T(), []string{service.MsgCodeDuplicate}, errs)

	count, err := s.repo.CountByCode(s.ctx, "E0001")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), count)
}

func (s *EmployeeServiceIntegrationTestSuite) TestCreate_ReusesDeletedCode() {
	first := s.mustCreate(validInput("E0001"))
	require.NoError(s.T(), s.svc.Destroy(s.ctx, first.ID))

	second := s.mustCreate(validInput("E0001"))

	assert.NotEqual(s.T(), first.ID, second.ID)
}

func (s *EmployeeServiceIntegrationTestSuite) TestCreate_PasswordLengthBounds() {
	input := validInput("E0001")
	input.Password = "short7!"

	_, errs, err := s.svc.Create(s.ctx, input)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{service.MsgPasswordLength}, errs)

	input.Password = strings.Repeat("x", 65)
	_, errs, err = s.svc.Create(s.ctx, input)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{service.MsgPasswordLength}, errs)
}

func (s *EmployeeServiceIntegrationTestSuite) TestCreate_UnhashablePassword() {
	input := validInput("E0001")
	input.Password = "Password\xff123"

	employee, errs, err := s.svc.Create(s.ctx, input)

	require.NoError(s.T(), err)
	assert.Nil(s.T(), employee)
	assert.Equal(s.T(), []string{service.MsgPasswordEncoding}, errs)
}

func (s *EmployeeServiceIntegrationTestSuite) TestCreate_UnhashablePasswordKeepsOtherMessages() {
	employee, errs, err := s.svc.Create(s.ctx, service.EmployeeInput{
		Code:     "",
		Name:     "Taro Yamada",
		Password: "Password\xff123",
		Role:     "owner",
	})

	require.NoError(s.T(), err)
	assert.Nil(s.T(), employee)
	assert.Equal(s.T(), []string{
		service.MsgCodeRequired,
		service.MsgPasswordEncoding,
		service.MsgRoleInvalid,
	}, errs)
}

// blindCounter hides existing codes from the validator, so a write reaches the
// unique index as it would when two creates race.
type blindCounter struct {
	*repository.EmployeeRepository
}

func (blindCounter) CountByCode(ctx context.Context, code string) (int64, error) {
	return 0, nil
}

func (s *EmployeeServiceIntegrationTestSuite) TestCreate_CodeTakenConcurrently() {
	svc := service.NewEmployeeService(
		blindCounter{s.repo},
		database.NewTxManager(s.testDB.DB),
		testutil.TestPepper,
		service.WithClock(s.clock),
	)
	_, errs, err := svc.Create(s.ctx, validInput("E0001"))
	require.NoError(s.T(), err)
	require.Empty(s.T(), errs)

	employee, errs, err := svc.Create(s.ctx, validInput("E0001"))

	require.NoError(s.T(), err, "A unique index rejection is a validation outcome, not a storage failure")
	assert.Nil(s.T(), employee)
	assert.Equal(s.T(), []string{service.MsgCodeDuplicate}, errs)

	count, err := s.repo.CountByCode(s.ctx, "E0001")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), count)
}

func (s *EmployeeServiceIntegrationTestSuite) TestUpdate_CodeTakenConcurrently() {
	svc := service.NewEmployeeService(
		blindCounter{s.repo},
		database.NewTxManager(s.testDB.DB),
		testutil.TestPepper,
		service.WithClock(s.clock),
	)
	s.mustCreate(validInput("E0001"))
	other := s.mustCreate(validInput("E0002"))

	input := validInput("E0001")
	input.Password = ""
	employee, errs, err := svc.Update(s.ctx, other.ID, input)

	require.NoError(s.T(), err)
	assert.Nil(s.T(), employee)
	assert.Equal(s.T(), []string{service.MsgCodeDuplicate}, errs)

	stored, err := s.repo.FindByID(s.ctx, other.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "E0002", stored.Code)
}

// ==================== AUTHENTICATE ====================

func (s *EmployeeServiceIntegrationTestSuite) TestAuthenticate() {
	s.mustCreate(validInput("E0001"))

	tests := []struct {
		name     string
		code     string
		password string
		expected bool
	}{
		{"correct credentials", "E0001", "Password123", true},
		{"wrong password", "E0001", "Password124", false},
		{"unknown code", "E9999", "Password123", false},
		{"blank code", "", "Password123", false},
		{"blank password", "E0001", "", false},
		{"whitespace password", "E0001", "   ", false},
		{"unhashable password", "E0001", "\xff\xfe", false},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			ok, err := s.svc.Authenticate(s.ctx, tt.code, tt.password)

			require.NoError(s.T(), err)
			assert.Equal(s.T(), tt.expected, ok)
		})
	}
}

func (s *EmployeeServiceIntegrationTestSuite) TestAuthenticate_DifferentPepper() {
	s.mustCreate(validInput("E0001"))
	otherPepper := service.NewEmployeeService(
		s.repo,
		database.NewTxManager(s.testDB.DB),
		testutil.TestPepper+"-rotated",
	)

	ok, err := otherPepper.Authenticate(s.ctx, "E0001", "Password123")

	require.NoError(s.T(), err)
	assert.False(s.T(), ok, "Same code and password under another pepper must not authenticate")

	ok, err = s.svc.Authenticate(s.ctx, "E0001", "Password123")
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)
}

func (s *EmployeeServiceIntegrationTestSuite) TestFindByCredentials_ReturnsEmployee() {
	created := s.mustCreate(validInput("E0001"))

	found, err := s.svc.FindByCredentials(s.ctx, "E0001", "Password123")

	require.NoError(s.T(), err)
	require.NotNil(s.T(), found)
	assert.Equal(s.T(), created.ID, found.ID)
}

func (s *EmployeeServiceIntegrationTestSuite) TestAuthenticate_DeletedEmployee() {
	employee := s.mustCreate(validInput("E0001"))
	require.NoError(s.T(), s.svc.Destroy(s.ctx, employee.ID))

	ok, err := s.svc.Authenticate(s.ctx, "E0001", "Password123")

	require.NoError(s.T(), err)
	assert.False(s.T(), ok)
}

// ==================== UPDATE ====================

func (s *EmployeeServiceIntegrationTestSuite) TestUpdate_KeepsPasswordWhenBlank() {
	employee := s.mustCreate(validInput("E0001"))
	s.clock.now = s.clock.now.Add(time.Hour)

	updated, errs, err := s.svc.Update(s.ctx, employee.ID, service.EmployeeInput{
		Code:     "E0001",
		Name:     "Renamed",
		Password: "",
		Role:     "admin",
	})

	require.NoError(s.T(), err)
	assert.Empty(s.T(), errs)
	require.NotNil(s.T(), updated)
	assert.Equal(s.T(), "Renamed", updated.Name)
	assert.Equal(s.T(), models.RoleAdmin, updated.Role)
	assert.Equal(s.T(), employee.PasswordDigest, updated.PasswordDigest)
	assert.True(s.T(), employee.CreatedAt.Equal(updated.CreatedAt))
	assert.Equal(s.T(), s.clock.now, updated.UpdatedAt)

	ok, err := s.svc.Authenticate(s.ctx, "E0001", "Password123")
	require.NoError(s.T(), err)
	assert.True(s.T(), ok, "Old password must keep working")

	entries := s.recorder.Entries()
	require.Len(s.T(), entries, 2)
	assert.Equal(s.T(), audit.ActionUpdated, entries[1].Action)
	assert.False(s.T(), entries[1].PasswordChanged)
	assert.False(s.T(), entries[1].CodeChanged)
}

func (s *EmployeeServiceIntegrationTestSuite) TestUpdate_ReplacesPassword() {
	employee := s.mustCreate(validInput("E0001"))

	input := validInput("E0001")
	input.Password = "BrandNew123"
	_, errs, err := s.svc.Update(s.ctx, employee.ID, input)
	require.NoError(s.T(), err)
	require.Empty(s.T(), errs)

	oldOK, err := s.svc.Authenticate(s.ctx, "E0001", "Password123")
	require.NoError(s.T(), err)
	newOK, err := s.svc.Authenticate(s.ctx, "E0001", "BrandNew123")
	require.NoError(s.T(), err)

	assert.False(s.T(), oldOK)
	assert.True(s.T(), newOK)
}

func (s *EmployeeServiceIntegrationTestSuite) TestUpdate_SameCodeSkipsUniqueness() {
	employee := s.mustCreate(validInput("E0001"))

	_, errs, err := s.svc.Update(s.ctx, employee.ID, validInput("E0001"))

	require.NoError(s.T(), err)
	assert.Empty(s.T(), errs, "Resubmitting the stored code is not a duplicate")
}

func (s *EmployeeServiceIntegrationTestSuite) TestUpdate_CodeTakenByAnother() {
	s.mustCreate(validInput("E0001"))
	second := s.mustCreate(validInput("E0002"))

	input := validInput("E0001")
	input.Password = ""
	updated, errs, err := s.svc.Update(s.ctx, second.ID, input)

	require.NoError(s.T(), err)
	assert.Nil(s.T(), updated)
	assert.Equal(s.T(), []string{service.MsgCodeDuplicate}, errs)

	stored, err := s.svc.FindOne(s.ctx, second.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "E0002", stored.Code, "Rejected updates must not write")
}

func (s *EmployeeServiceIntegrationTestSuite) TestUpdate_ChangesCode() {
	employee := s.mustCreate(validInput("E0001"))

	input := validInput("E0100")
	input.Password = ""
	updated, errs, err := s.svc.Update(s.ctx, employee.ID, input)

	require.NoError(s.T(), err)
	assert.Empty(s.T(), errs)
	assert.Equal(s.T(), "E0100", updated.Code)

	entries := s.recorder.Entries()
	assert.True(s.T(), entries[len(entries)-1].CodeChanged)
}

func (s *EmployeeServiceIntegrationTestSuite) TestUpdate_InvalidSuppliedPassword() {
	employee := s.mustCreate(validInput("E0001"))

	input := validInput("E0001")
	input.Password = "short"
	_, errs, err := s.svc.Update(s.ctx, employee.ID, input)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{service.MsgPasswordLength}, errs)
}

func (s *EmployeeServiceIntegrationTestSuite) TestUpdate_ClockBehindCreation() {
	employee := s.mustCreate(validInput("E0001"))
	s.clock.now = s.clock.now.Add(-24 * time.Hour)

	input := validInput("E0001")
	input.Password = ""
	updated, _, err := s.svc.Update(s.ctx, employee.ID, input)

	require.NoError(s.T(), err)
	assert.False(s.T(), updated.UpdatedAt.Before(updated.CreatedAt))
}

func (s *EmployeeServiceIntegrationTestSuite) TestUpdate_NotFound() {
	_, _, err := s.svc.Update(s.ctx, 4242, validInput("E0001"))
	assert.ErrorIs(s.T(), err, service.ErrEmployeeNotFound)

	employee := s.mustCreate(validInput("E0001"))
	require.NoError(s.T(), s.svc.Destroy(s.ctx, employee.ID))

	_, _, err = s.svc.Update(s.ctx, employee.ID, validInput("E0001"))
	assert.ErrorIs(s.T(), err, service.ErrEmployeeNotFound, "Deleted employees cannot be updated")
}

// ==================== DESTROY / FIND / LIST ====================

func (s *EmployeeServiceIntegrationTestSuite) TestDestroy() {
	employee := s.mustCreate(validInput("E0001"))
	s.clock.now = s.clock.now.Add(time.Minute)

	require.NoError(s.T(), s.svc.Destroy(s.ctx, employee.ID))

	_, err := s.svc.FindOne(s.ctx, employee.ID)
	assert.ErrorIs(s.T(), err, service.ErrEmployeeNotFound)

	raw, err := s.repo.FindByID(s.ctx, employee.ID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), raw, "Soft delete keeps the row")
	assert.True(s.T(), raw.Deleted)

	err = s.svc.Destroy(s.ctx, employee.ID)
	assert.ErrorIs(s.T(), err, service.ErrEmployeeNotFound, "Deleting twice reports not found")

	entries := s.recorder.Entries()
	require.Len(s.T(), entries, 2)
	assert.Equal(s.T(), audit.ActionDeleted, entries[1].Action)
	assert.Equal(s.T(), s.clock.now, entries[1].Timestamp)
}

func (s *EmployeeServiceIntegrationTestSuite) TestDestroy_UnknownID() {
	assert.ErrorIs(s.T(), s.svc.Destroy(s.ctx, 4242), service.ErrEmployeeNotFound)
}

func (s *EmployeeServiceIntegrationTestSuite) TestList() {
	testutil.SeedEmployees(s.T(), s.testDB.DB, 23)
	employees, err := s.repo.GetPage(s.ctx, 1)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.svc.Destroy(s.ctx, employees[0].ID))

	page, err := s.svc.List(s.ctx, 0)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, page.Page)
	assert.Equal(s.T(), 10, page.PageSize)
	assert.Equal(s.T(), int64(22), page.Total)
	assert.Len(s.T(), page.Employees, 10)
	assert.Equal(s.T(), 3, page.LastPage())

	last, err := s.svc.List(s.ctx, 3)
	require.NoError(s.T(), err)
	assert.Len(s.T(), last.Employees, 2)

	beyond, err := s.svc.List(s.ctx, 9)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), beyond.Employees)
}

// ==================== AUDIT ====================

func (s *EmployeeServiceIntegrationTestSuite) TestAuditFailureDoesNotFailMutation() {
	s.recorder.err = errors.New("disk full")

	employee, errs, err := s.svc.Create(s.ctx, validInput("E0001"))

	require.NoError(s.T(), err)
	assert.Empty(s.T(), errs)
	assert.NotNil(s.T(), employee)
}

func (s *EmployeeServiceIntegrationTestSuite) TestJournalRecordsHistory() {
	journal, err := audit.Open(filepath.Join(s.T().TempDir(), "audit.log"))
	require.NoError(s.T(), err)
	defer journal.Close()

	svc := service.NewEmployeeService(s.repo, database.NewTxManager(s.testDB.DB), testutil.TestPepper,
		service.WithAuditRecorder(journal),
	)

	employee, _, err := svc.Create(s.ctx, validInput("E0001"))
	require.NoError(s.T(), err)
	_, _, err = svc.Update(s.ctx, employee.ID, validInput("E0002"))
	require.NoError(s.T(), err)
	require.NoError(s.T(), svc.Destroy(s.ctx, employee.ID))

	history, err := journal.History(employee.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), history, 3)
	assert.Equal(s.T(), audit.ActionCreated, history[0].Action)
	assert.True(s.T(), history[1].CodeChanged)
	assert.True(s.T(), history[1].PasswordChanged)
	assert.Equal(s.T(), audit.ActionDeleted, history[2].Action)
	assert.Equal(s.T(), "E0002", history[2].Code)
}

func TestEmployeeServiceIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(EmployeeServiceIntegrationTestSuite))
}

func TestEmployeeService_StorageUnavailable(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	svc := service.NewEmployeeService(
		repository.NewEmployeeRepository(testDB.DB),
		database.NewTxManager(testDB.DB),
		testutil.TestPepper,
	)
	testDB.Teardown(t)
	ctx := context.Background()

	_, _, err := svc.Create(ctx, validInput("E0001"))
	assert.ErrorIs(t, err, service.ErrStorage)

	_, err = svc.Authenticate(ctx, "E0001", "Password123")
	assert.ErrorIs(t, err, service.ErrStorage)

	_, err = svc.List(ctx, 1)
	assert.ErrorIs(t, err, service.ErrStorage)

	_, err = svc.FindOne(ctx, 1)
	assert.ErrorIs(t, err, service.ErrStorage)

	_, _, err = svc.Update(ctx, 1, validInput("E0001"))
	assert.ErrorIs(t, err, service.ErrStorage)

	assert.ErrorIs(t, svc.Destroy(ctx, 1), service.ErrStorage)
}

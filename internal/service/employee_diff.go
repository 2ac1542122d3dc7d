package service

import (
	"strings"

	"github.com/Baaaki/daily-report/internal/models"
)

// EmployeeInput carries the decoded form fields of a create or update request.
// Role holds the raw form value and is parsed with models.ParseRole.
type EmployeeInput struct {
	Code     string
	Name     string
	Password string
	Role     string
}

// ChangeSet says which conditionally-validated fields an update touches.
type ChangeSet struct {
	CodeChanged      bool
	PasswordSupplied bool
}

// Diff compares an update request with the stored record. Resubmitting the stored
// code is not a change, and a blank password means "keep the current one".
func Diff(stored *models.Employee, input EmployeeInput) ChangeSet {
	return ChangeSet{
		CodeChanged:      input.Code != stored.Code,
		PasswordSupplied: strings.TrimSpace(input.Password) != "",
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Baaaki/daily-report/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validation messages, returned in field order: code, name, password, role.
const (
	MsgCodeRequired     = "Please enter an employee code."
	MsgCodeTooLong      = "Employee code must be at most 20 characters."
	MsgCodeDuplicate    = "The entered employee code already exists."
	MsgNameRequired     = "Please enter a name."
	MsgNameTooLong      = "Name must be at most 50 characters."
	MsgPasswordRequired = "Please enter a password."
	MsgPasswordLength   = "Password must be between 8 and 64 characters."
	MsgPasswordEncoding = "Password contains characters that cannot be stored."
	MsgRoleInvalid      = "Please select a valid role."
)

// CodeCounter counts non-deleted employees holding a code.
type CodeCounter interface {
	CountByCode(ctx context.Context, code string) (int64, error)
}

// EmployeeCandidate is the not-yet-validated shape of a create or update.
// Password is the plaintext, never the digest.
type EmployeeCandidate struct {
	Code     string `validate:"notblank,max=20"`
	Name     string `validate:"notblank,max=50"`
	Password string `validate:"notblank,utf8,min=8,max=64"`
	Role     string `validate:"role"`
}

type ValidationOptions struct {
	CheckCodeUniqueness bool
	CheckPasswordFormat bool
}

var fieldMessages = map[string]map[string]string{
	"Code":     {"notblank": MsgCodeRequired, "max": MsgCodeTooLong},
	"Name":     {"notblank": MsgNameRequired, "max": MsgNameTooLong},
	"Password": {"notblank": MsgPasswordRequired, "utf8": MsgPasswordEncoding, "min": MsgPasswordLength, "max": MsgPasswordLength},
	"Role":     {"role": MsgRoleInvalid},
}

var candidateRules = newCandidateRules()

func newCandidateRules() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("utf8", func(fl validator.FieldLevel) bool {
		return utf8.ValidString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseRole(fl.Field().String())
		return ok
	}); err != nil {
		panic(err)
	}
	return v
}

type EmployeeValidator struct {
	counter CodeCounter
}

func NewEmployeeValidator(counter CodeCounter) *EmployeeValidator {
	return &EmployeeValidator{counter: counter}
}

// Validate returns the messages for every rule candidate breaks, at most one per
// field. An empty slice means the candidate may be persisted. The error return is
// reserved for storage failures during the uniqueness check.
func (v *EmployeeValidator) Validate(ctx context.Context, candidate EmployeeCandidate, opts ValidationOptions) ([]string, error) {
	var err error
	if opts.CheckPasswordFormat {
		err = candidateRules.Struct(candidate)
	} else {
		err = candidateRules.StructExcept(candidate, "Password")
	}

	failed := make(map[string]string)
	if err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, err
		}
		for _, fe := range fieldErrs {
			failed[fe.StructField()] = messageFor(fe)
		}
	}

	errs := []string{}

	if msg, ok := failed["Code"]; ok {
		errs = append(errs, msg)
	} else if opts.CheckCodeUniqueness {
		count, err := v.counter.CountByCode(ctx, candidate.Code)
		if err != nil {
			return nil, fmt.Errorf("count employees by code: %w", err)
		}
		if count > 0 {
			errs = append(errs, MsgCodeDuplicate)
		}
	}

	for _, field := range []string{"Name", "Password", "Role"} {
		if msg, ok := failed[field]; ok {
			errs = append(errs, msg)
		}
	}

	return errs, nil
}

func messageFor(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.StructField()][fe.Tag()]; ok {
		return msg
	}
	return fmt.Sprintf("%s is invalid.", fe.StructField())
}

package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleGeneral Role = "general"
	RoleAdmin   Role = "admin"
)

// ParseRole resolves form input to a Role. Besides the role names it accepts the
// admin flag values "0" (general) and "1" (admin) sent by the legacy form.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(RoleGeneral), "0":
		return RoleGeneral, true
	case string(RoleAdmin), "1":
		return RoleAdmin, true
	default:
		return "", false
	}
}

// Lifecycle is the logical state of an employee row.
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "active"
	LifecycleDeleted Lifecycle = "deleted"
)

// Employee is the persisted employee record. Code is unique among rows that are not
// deleted, so a deleted employee's code can be handed out again.
type Employee struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code           string    `gorm:"type:varchar(20);not null;index:idx_employees_code_active,unique,where:deleted = false" json:"code"`
	Name           string    `gorm:"type:varchar(50);not null" json:"name"`
	PasswordDigest string    `gorm:"type:varchar(255);not null" json:"-"` // Never expose the digest in JSON
	Role           Role      `gorm:"type:varchar(16);not null;default:'general'" json:"role"`
	CreatedAt      time.Time `gorm:"autoCreateTime:false;not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime:false;not null" json:"updated_at"`
	Deleted        bool      `gorm:"not null;default:false;index" json:"deleted"`
}

func (Employee) TableName() string {
	return "employees"
}

func (e *Employee) Lifecycle() Lifecycle {
	if e.Deleted {
		return LifecycleDeleted
	}
	return LifecycleActive
}

func (e *Employee) IsActive() bool {
	return e.Lifecycle() == LifecycleActive
}

func (e *Employee) IsAdmin() bool {
	return e.Role == RoleAdmin
}

// Touch stamps UpdatedAt, never letting it fall behind CreatedAt.
func (e *Employee) Touch(now time.Time) {
	if now.Before(e.CreatedAt) {
		now = e.CreatedAt
	}
	e.UpdatedAt = now
}

// MarkDeleted moves the record to the deleted state. There is no way back.
func (e *Employee) MarkDeleted(now time.Time) {
	e.Deleted = true
	e.Touch(now)
}

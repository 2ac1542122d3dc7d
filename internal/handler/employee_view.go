package handler

import (
	"time"

	"github.com/Baaaki/daily-report/internal/models"
	"github.com/Baaaki/daily-report/internal/service"
)

// EmployeeView is the JSON shape of an employee. The digest never leaves the server.
type EmployeeView struct {
	ID        uint        `json:"id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Role      models.Role `json:"role"`
	IsAdmin   bool        `json:"is_admin"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func ToEmployeeView(employee *models.Employee) EmployeeView {
	return EmployeeView{
		ID:        employee.ID,
		Code:      employee.Code,
		Name:      employee.Name,
		Role:      employee.Role,
		IsAdmin:   employee.IsAdmin(),
		CreatedAt: employee.CreatedAt,
		UpdatedAt: employee.UpdatedAt,
	}
}

func toEmployeeViews(employees []models.Employee) []EmployeeView {
	views := make([]EmployeeView, 0, len(employees))
	for i := range employees {
		views = append(views, ToEmployeeView(&employees[i]))
	}
	return views
}

// EmployeeForm is the create/update request body. On update a blank password keeps
// the current one.
type EmployeeForm struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (f EmployeeForm) ToInput() service.EmployeeInput {
	return service.EmployeeInput{
		Code:     f.Code,
		Name:     f.Name,
		Password: f.Password,
		Role:     f.Role,
	}
}

// echo returns the submitted values for redisplay, password excluded
func (f EmployeeForm) echo() EmployeeForm {
	f.Password = ""
	return f
}

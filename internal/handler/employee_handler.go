package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Baaaki/daily-report/internal/middleware"
	"github.com/Baaaki/daily-report/internal/service"
	"github.com/Baaaki/daily-report/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgRegistered = "Registered successfully."
	msgUpdated    = "Updated successfully."
	msgDeleted    = "Deleted successfully."
)

type EmployeeHandler struct {
	employeeService *service.EmployeeService
}

func NewEmployeeHandler(employeeService *service.EmployeeService) *EmployeeHandler {
	return &EmployeeHandler{
		employeeService: employeeService,
	}
}

// List returns one page of active employees
// GET /api/employees?page=N
func (h *EmployeeHandler) List(c *gin.Context) {
	page := parsePage(c.Query("page"))

	result, err := h.employeeService.List(c.Request.Context(), page)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"employees": toEmployeeViews(result.Employees),
		"count":     result.Total,
		"page":      result.Page,
		"max_row":   result.PageSize,
		"last_page": result.LastPage(),
	})
}

// Show returns one active employee
// GET /api/employees/:id
func (h *EmployeeHandler) Show(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	employee, err := h.employeeService.FindOne(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"employee": ToEmployeeView(employee),
	})
}

// Create registers a new employee
// POST /api/employees
func (h *EmployeeHandler) Create(c *gin.Context) {
	var form EmployeeForm
	if err := c.ShouldBindJSON(&form); err != nil {
		logger.Log.Warn("Employee request parsing failed",
			zap.String("ip", c.ClientIP()),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	logger.Log.Info("Admin registering employee",
		zap.Uint("admin_id", c.GetUint(middleware.ContextEmployeeID)),
		zap.String("code", form.Code),
	)

	employee, errs, err := h.employeeService.Create(c.Request.Context(), form.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	if len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"errors":   errs,
			"employee": form.echo(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  msgRegistered,
		"employee": ToEmployeeView(employee),
	})
}

// Update edits an active employee. A blank password keeps the current one.
// PUT /api/employees/:id
func (h *EmployeeHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var form EmployeeForm
	if err := c.ShouldBindJSON(&form); err != nil {
		logger.Log.Warn("Employee request parsing failed",
			zap.String("ip", c.ClientIP()),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	logger.Log.Info("Admin updating employee",
		zap.Uint("admin_id", c.GetUint(middleware.ContextEmployeeID)),
		zap.Uint("employee_id", id),
	)

	employee, errs, err := h.employeeService.Update(c.Request.Context(), id, form.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	if len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"errors":   errs,
			"employee": form.echo(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  msgUpdated,
		"employee": ToEmployeeView(employee),
	})
}

// Destroy soft-deletes an employee
// DELETE /api/employees/:id
func (h *EmployeeHandler) Destroy(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	logger.Log.Info("Admin deleting employee",
		zap.Uint("admin_id", c.GetUint(middleware.ContextEmployeeID)),
		zap.Uint("employee_id", id),
	)

	if err := h.employeeService.Destroy(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": msgDeleted,
	})
}

// parsePage falls back to page 1 for anything that is not a positive integer
func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// parseID writes a 404 and returns false when the path id is not a valid id
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Employee not found",
		})
		return 0, false
	}
	return uint(id), true
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrEmployeeNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Employee not found",
		})
		return
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error",
	})
}

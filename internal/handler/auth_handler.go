package handler

import (
    "net/http"
    "time"

    "github.com/Baaaki/daily-report/internal/middleware"
    "github.com/Baaaki/daily-report/internal/service"
    "github.com/Baaaki/daily-report/internal/utils"
    "github.com/Baaaki/daily-report/pkg/logger"
    "github.com/gin-gonic/gin"
    "go.uber.org/zap"
)

const msgInvalidCredentials = "Invalid employee code or password"

type AuthHandler struct {
    employeeService *service.EmployeeService
    csrfStore       *middleware.CSRFStore
    jwtSecret       string
    jwtExpiration   time.Duration
    isProduction    bool
}

func NewAuthHandler(employeeService *service.EmployeeService, csrfStore *middleware.CSRFStore, jwtSecret string, jwtExpiration time.Duration, isProduction bool) *AuthHandler {
    return &AuthHandler{
        employeeService: employeeService,
        csrfStore:       csrfStore,
        jwtSecret:       jwtSecret,
        jwtExpiration:   jwtExpiration,
        isProduction:    isProduction,
    }
}

// Blank fields are not a binding error, they simply fail authentication
type LoginRequest struct {
    Code     string `json:"code"`
    Password string `json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
    var req LoginRequest

    // 1. Parse JSON request
    if err := c.ShouldBindJSON(&req); err != nil {
        logger.Log.Warn("Login request parsing failed",
            zap.String("ip", c.ClientIP()),
            zap.Error(err),
        )
        c.JSON(http.StatusBadRequest, gin.H{
            "error": "Invalid request body",
        })
        return
    }

    logger.Log.Info("Employee login attempt",
        zap.String("code", req.Code),
        zap.String("ip", c.ClientIP()),
    )

    // 2. Check credentials
    employee, err := h.employeeService.FindByCredentials(c.Request.Context(), req.Code, req.Password)
    if err != nil {
        respondError(c, err)
        return
    }
    if employee == nil {
        logger.Log.Warn("Login failed",
            zap.String("code", req.Code),
            zap.String("ip", c.ClientIP()),
        )
        c.JSON(http.StatusUnauthorized, gin.H{
            "error": msgInvalidCredentials,
        })
        return
    }

    // 3. Issue session token and its CSRF token
    claims := utils.NewClaims(employee, h.jwtExpiration)
    token, err := utils.SignClaims(claims, h.jwtSecret)
    if err != nil {
        logger.Log.Error("Failed to sign session token",
            zap.Uint("employee_id", employee.ID),
            zap.Error(err),
        )
        c.JSON(http.StatusInternalServerError, gin.H{
            "error": "Internal server error",
        })
        return
    }

    csrfToken, err := h.csrfStore.Issue(c.Request.Context(), claims.ID)
    if err != nil {
        logger.Log.Error("Failed to issue CSRF token",
            zap.Uint("employee_id", employee.ID),
            zap.Error(err),
        )
        c.JSON(http.StatusInternalServerError, gin.H{
            "error": "Internal server error",
        })
        return
    }

    // 4. Set token in HTTP-only cookie
    c.SetSameSite(http.SameSiteLaxMode)
    c.SetCookie(
        middleware.SessionCookie,
        token,
        int(h.jwtExpiration.Seconds()),
        "/",
        "",             // domain (empty = current domain)
        h.isProduction, // secure (HTTPS-only in production)
        true,           // httpOnly (JavaScript cannot access)
    )

    logger.Log.Info("Employee logged in successfully",
        zap.Uint("employee_id", employee.ID),
        zap.String("code", employee.Code),
        zap.String("role", string(employee.Role)),
    )

    // 5. Token stays out of the body, the CSRF token goes in it
    c.JSON(http.StatusOK, gin.H{
        "message":    "Login successful",
        "employee":   ToEmployeeView(employee),
        "csrf_token": csrfToken,
    })
}

func (h *AuthHandler) Logout(c *gin.Context) {
    if claims, ok := middleware.ClaimsFrom(c); ok {
        if err := h.csrfStore.Revoke(c.Request.Context(), claims.ID); err != nil {
            logger.Log.Warn("Failed to revoke CSRF token",
                zap.Uint("employee_id", claims.EmployeeID),
                zap.Error(err),
            )
        }
        logger.Log.Info("Employee logged out",
            zap.Uint("employee_id", claims.EmployeeID),
        )
    }

    c.SetSameSite(http.SameSiteLaxMode)
    c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.isProduction, true)

    c.JSON(http.StatusOK, gin.H{
        "message": "Logged out",
    })
}

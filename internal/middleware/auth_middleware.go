package middleware

import (
    "context"
    "errors"
    "net/http"
    "strings"

    "github.com/Baaaki/daily-report/internal/models"
    "github.com/Baaaki/daily-report/internal/service"
    "github.com/Baaaki/daily-report/internal/utils"
    "github.com/Baaaki/daily-report/pkg/logger"
    "github.com/gin-gonic/gin"
    "go.uber.org/zap"
)

// Context keys set by AuthMiddleware
const (
    ContextEmployeeID   = "employee_id"
    ContextEmployeeRole = "employee_role"
    ContextClaims       = "claims"
    ContextEmployee     = "employee"
)

// SessionCookie is the name of the HttpOnly cookie carrying the JWT
const SessionCookie = "token"

func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
    return func(c *gin.Context) {
        // 1. Get token from "Bearer <token>" or the session cookie
        tokenString, ok := extractToken(c)
        if !ok {
            c.JSON(http.StatusUnauthorized, gin.H{
                "error": "Authentication required",
            })
            c.Abort()
            return
        }

        // 2. Validate token
        claims, err := utils.ValidateToken(tokenString, jwtSecret)
        if err != nil {
            logger.Log.Debug("Rejected session token",
                zap.String("ip", c.ClientIP()),
                zap.Error(err),
            )
            c.JSON(http.StatusUnauthorized, gin.H{
                "error": "Invalid or expired token",
            })
            c.Abort()
            return
        }

        // 3. Add claims to context (handlers can access)
        c.Set(ContextEmployeeID, claims.EmployeeID)
        c.Set(ContextEmployeeRole, claims.Role)
        c.Set(ContextClaims, claims)

        c.Next()
    }
}

// EmployeeFinder loads an active employee. *service.EmployeeService satisfies it.
type EmployeeFinder interface {
    FindOne(ctx context.Context, id uint) (*models.Employee, error)
}

// CurrentEmployeeMiddleware reloads the session's employee so a deleted employee
// loses access at once and the role checked afterwards is the stored one, not the
// one captured in the token. Must run after AuthMiddleware.
func CurrentEmployeeMiddleware(finder EmployeeFinder) gin.HandlerFunc {
    return func(c *gin.Context) {
        claims, ok := ClaimsFrom(c)
        if !ok {
            c.JSON(http.StatusUnauthorized, gin.H{
                "error": "Unauthorized",
            })
            c.Abort()
            return
        }

        employee, err := finder.FindOne(c.Request.Context(), claims.EmployeeID)
        if err != nil {
            if errors.Is(err, service.ErrEmployeeNotFound) {
                logger.Log.Warn("Session of a deleted employee rejected",
                    zap.Uint("employee_id", claims.EmployeeID),
                    zap.String("ip", c.ClientIP()),
                )
                c.JSON(http.StatusUnauthorized, gin.H{
                    "error": "Session is no longer valid",
                })
                c.Abort()
                return
            }

            logger.Log.Error("Failed to load session employee",
                zap.Uint("employee_id", claims.EmployeeID),
                zap.Error(err),
            )
            c.JSON(http.StatusInternalServerError, gin.H{
                "error": "Internal server error",
            })
            c.Abort()
            return
        }

        c.Set(ContextEmployeeRole, employee.Role)
        c.Set(ContextEmployee, employee)

        c.Next()
    }
}

func AdminMiddleware() gin.HandlerFunc {
    return func(c *gin.Context) {
        // Get role from context (set by AuthMiddleware)
        value, exists := c.Get(ContextEmployeeRole)
        if !exists {
            c.JSON(http.StatusUnauthorized, gin.H{
                "error": "Unauthorized",
            })
            c.Abort()
            return
        }

        role, _ := value.(models.Role)
        if role != models.RoleAdmin {
            logger.Log.Warn("Non-admin employee denied",
                zap.Uint("employee_id", c.GetUint(ContextEmployeeID)),
                zap.String("path", c.Request.URL.Path),
            )
            c.JSON(http.StatusForbidden, gin.H{
                "error": "Admin access required",
            })
            c.Abort()
            return
        }

        c.Next()
    }
}

// ClaimsFrom returns the claims stored by AuthMiddleware, if any
func ClaimsFrom(c *gin.Context) (*utils.Claims, bool) {
    value, exists := c.Get(ContextClaims)
    if !exists {
        return nil, false
    }
    claims, ok := value.(*utils.Claims)
    return claims, ok
}

func extractToken(c *gin.Context) (string, bool) {
    if authHeader := c.GetHeader("Authorization"); authHeader != "" {
        tokenString := strings.TrimPrefix(authHeader, "Bearer ")
        if tokenString == authHeader || tokenString == "" {
            return "", false
        }
        return tokenString, true
    }

    tokenString, err := c.Cookie(SessionCookie)
    if err != nil || tokenString == "" {
        return "", false
    }
    return tokenString, true
}

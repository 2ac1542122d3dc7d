package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/Baaaki/daily-report/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims identify the logged-in employee for the lifetime of the session cookie.
// RegisteredClaims.ID is a per-login session id; the CSRF token is keyed on it.
type Claims struct {
	EmployeeID uint        `json:"employee_id"`
	Code       string      `json:"code"`
	Name       string      `json:"name"`
	Role       models.Role `json:"role"`
	jwt.RegisteredClaims
}

func GenerateToken(employee *models.Employee, secretKey string, expiresIn time.Duration) (string, error) {
	return SignClaims(NewClaims(employee, expiresIn), secretKey)
}

// NewClaims builds the claims for a fresh login session of employee.
func NewClaims(employee *models.Employee, expiresIn time.Duration) *Claims {
	now := time.Now()

	return &Claims{
		EmployeeID: employee.ID,
		Code:       employee.Code,
		Name:       employee.Name,
		Role:       employee.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(employee.ID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
}

func SignClaims(claims *Claims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func ValidateToken(tokenString, secretKey string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Verify signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return []byte(secretKey), nil
		},
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeadersMiddleware adds security headers to all responses
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. No MIME sniffing
		c.Header("X-Content-Type-Options", "nosniff")

		// 2. No framing (clickjacking)
		c.Header("X-Frame-Options", "DENY")

		// 3. Legacy browsers only, CSP covers modern ones
		c.Header("X-XSS-Protection", "1; mode=block")

		// 4. The API serves JSON only
		c.Header("Content-Security-Policy",
			"default-src 'none'; "+
				"frame-ancestors 'none';",
		)

		// 5. Referrer Policy
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// 6. Permissions Policy
		c.Header("Permissions-Policy",
			"camera=(), microphone=(), geolocation=(), payment=()",
		)

		// 7. No caching of employee data
		c.Header("Cache-Control", "no-store")

		c.Next()
	}
}

// HSTSMiddleware enforces HTTPS (only for production)
func HSTSMiddleware(isProduction bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isProduction {
			c.Header("Strict-Transport-Security",
				"max-age=31536000; includeSubDomains; preload",
			)
		}
		c.Next()
	}
}

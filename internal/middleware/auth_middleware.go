package middleware

import (
	"strings"

	"slide-capture/internal/logger"
	"slide-capture/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	AuthorizationHeader = "Authorization"
	BearerSchema        = "Bearer "
	StudentIDKey        = "studentID" // Key for storing the student ID in fiber.Ctx locals
)

// OptionalAuth sets the student ID when a valid bearer token is presented and
// otherwise lets the request through anonymously. A nil authService disables it.
func OptionalAuth(authService service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if authService == nil {
			return c.Next()
		}
		authHeader := c.Get(AuthorizationHeader)
		if authHeader == "" {
			return c.Next()
		}

		if !strings.HasPrefix(authHeader, BearerSchema) {
			logger.Get().Debug("OptionalAuth: Authorization scheme is not Bearer, proceeding as anonymous.")
			return c.Next()
		}

		tokenString := strings.TrimPrefix(authHeader, BearerSchema)
		if tokenString == "" {
			logger.Get().Debug("OptionalAuth: Token is empty after trimming Bearer prefix, proceeding as anonymous.")
			return c.Next()
		}

		claims, err := authService.ValidateJWT(tokenString)
		if err != nil {
			logger.Get().Debug("OptionalAuth: JWT validation failed, proceeding as anonymous.", zap.Error(err))
			return c.Next()
		}

		c.Locals(StudentIDKey, claims.StudentID())
		return c.Next()
	}
}

// StudentID returns the authenticated student ID, or "" for anonymous requests.
func StudentID(c *fiber.Ctx) string {
	id, _ := c.Locals(StudentIDKey).(string)
	return id
}

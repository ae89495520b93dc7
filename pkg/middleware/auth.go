package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"transparencia/pkg/auth"
)

// AllowList is the authorization model in its entirety: does a row for this
// email exist.
type AllowList interface {
	Exists(ctx context.Context, email string) (bool, error)
}

func AuthMiddleware(jwtManager *auth.JWTManager, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("Authorization")
		if token == "" {
			logger.Warn("Missing authorization token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization token required",
			})
		}

		// Remove "Bearer " prefix if present
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			logger.Warn("Invalid token", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("email", claims.Email)
		return c.Next()
	}
}

// AdminOnly gates a route group on allow-list membership. It runs after
// AuthMiddleware, which put the authenticated email in the request locals.
func AdminOnly(allowList AllowList, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		email, _ := c.Locals("email").(string)
		if email == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization token required",
			})
		}

		ok, err := allowList.Exists(c.Context(), email)
		if err != nil {
			logger.Error("Allow-list lookup failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Authorization check failed",
			})
		}
		if !ok {
			logger.Warn("Rejected non-administrator", zap.String("email", email))
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Administrator access required",
			})
		}
		return c.Next()
	}
}

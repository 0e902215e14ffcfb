package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/tabledit/internal/config"
	"github.com/localnerve/tabledit/internal/services"
	"github.com/localnerve/tabledit/internal/types"
)

// AuthUser validates that the request has user role authorization
func AuthUser(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, cfg, []string{"user"}, "files.authorization.user")
	}
}

// authorize performs the authorization check
func authorize(c *fiber.Ctx, cfg *config.Config, roles []string, errorType string) error {
	// Lazy-initialize the Authorizer client on the first authenticated
	// request; a failed init is retried on the next one
	if !services.IsAuthorizerInitialized() {
		if err := services.InitAuthorizer(cfg, c.Protocol(), c.Hostname()); err != nil {
			return &types.CustomError{
				Code:    fiber.StatusServiceUnavailable,
				Message: fmt.Sprintf("Authorization service unavailable: %v", err),
				Type:    errorType,
			}
		}
	}

	// Get session cookie
	session := c.Cookies("cookie_session")
	if session == "" {
		return &types.CustomError{
			Code:    fiber.StatusUnauthorized,
			Message: "Authorizer cookie \"cookie_session\" not found",
			Type:    errorType,
		}
	}

	// Validate session
	data, err := services.ValidateSession(session, roles)
	if err != nil {
		return &types.CustomError{
			Code:    fiber.StatusUnauthorized,
			Message: fmt.Sprintf("Invalid session: %v", err),
			Type:    errorType,
		}
	}

	// Set user data in context
	if user, ok := data["user"]; ok {
		c.Locals("user", user)
	}

	return c.Next()
}

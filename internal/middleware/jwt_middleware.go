package middleware

import (
	"errors"
	"strings"

	"oncoai/internal/models"
	"oncoai/internal/services"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

const userLocalsKey = "user"

// AuthRequired is a Fiber middleware that resolves the bearer token to an
// active user and stores it for subsequent handlers.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return Unauthorized(c)
		}

		user, err := authService.ResolveCaller(c.UserContext(), token)
		if err != nil {
			if errors.Is(err, services.ErrInfrastructure) {
				log.WithError(err).Error("failed to resolve caller")
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"message": "Service temporarily unavailable",
				})
			}
			log.WithError(err).WithField("path", c.Path()).Debug("token rejected")
			return Unauthorized(c)
		}

		c.Locals(userLocalsKey, user)
		return c.Next()
	}
}

// CurrentUser returns the user stored by AuthRequired, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocalsKey).(*models.User)
	return user
}

// Unauthorized writes the single 401 response used for every authentication failure.
func Unauthorized(c *fiber.Ctx) error {
	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": "Could not validate credentials",
	})
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" value.
// The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

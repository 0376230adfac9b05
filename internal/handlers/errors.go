package handlers

import (
	"errors"
	"fmt"

	"oncoai/internal/middleware"
	"oncoai/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// respondError translates a service error into its HTTP response. Faults the
// client cannot fix are logged in full and answered with a generic message.
func respondError(c *fiber.Ctx, err error) error {
	var validationErr *services.ValidationError
	var conflictErr *services.ConflictError

	switch {
	case errors.As(err, &validationErr):
		body := fiber.Map{
			"message": "Validation failed",
			"error":   validationErr.Error(),
		}
		if len(validationErr.Columns) > 0 {
			body["columns"] = validationErr.Columns
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)

	case errors.As(err, &conflictErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Registration failed",
			"error":   conflictErr.Error(),
		})

	case errors.Is(err, services.ErrInvalidCredentials):
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid username or password",
		})

	case errors.Is(err, services.ErrUnauthorized):
		return middleware.Unauthorized(c)

	case errors.Is(err, services.ErrInfrastructure):
		log.WithError(err).WithField("path", c.Path()).Error("infrastructure fault")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "Service temporarily unavailable",
		})

	case errors.Is(err, services.ErrPredictionFailed):
		log.WithError(err).WithField("path", c.Path()).Error("prediction failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Prediction failed",
		})

	default:
		log.WithError(err).WithField("path", c.Path()).Error("unhandled error")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}
}

// validationFailed renders validator errors as a per-field map.
func validationFailed(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}
	errorMessages := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

// ErrorHandler is the application-wide Fiber error handler. Errors returned by
// handlers that were not already answered end up here.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		if fiberErr.Code >= fiber.StatusInternalServerError {
			log.WithError(err).WithField("path", c.Path()).Error("request failed")
		}
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"message": fiberErr.Message,
		})
	}
	return respondError(c, err)
}

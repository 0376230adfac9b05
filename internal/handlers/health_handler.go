package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the service banner and the health probe.
type HealthHandler struct {
	store       Pinger
	modelLoaded func() bool
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store Pinger, modelLoaded func() bool) *HealthHandler {
	return &HealthHandler{store: store, modelLoaded: modelLoaded}
}

// RegisterRoutes registers the public informational routes.
func (h *HealthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/", h.HandleRoot)
	router.Get("/health", h.HandleHealth)
}

// HandleRoot returns the service banner.
func (h *HealthHandler) HandleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "OncoAI Survival Service",
	})
}

// HandleHealth reports database reachability and whether a model is loaded.
// It always answers 200; status is "degraded" when either check fails.
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	database := "connected"
	if err := h.store.Ping(c.UserContext()); err != nil {
		log.WithError(err).Warn("health check: database unreachable")
		database = "disconnected"
	}
	modelLoaded := h.modelLoaded()

	status := "healthy"
	if database != "connected" || !modelLoaded {
		status = "degraded"
	}
	return c.JSON(fiber.Map{
		"status":       status,
		"database":     database,
		"model_loaded": modelLoaded,
	})
}

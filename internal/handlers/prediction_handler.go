package handlers

import (
	"errors"
	"io"

	"oncoai/internal/middleware"
	"oncoai/internal/models"
	"oncoai/internal/services"
	"oncoai/internal/tabular"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// uploadField is the multipart field carrying a batch file.
const uploadField = "file"

// PredictionHandler handles HTTP requests for survival predictions.
type PredictionHandler struct {
	predictionService *services.PredictionService
	validate          *validator.Validate
	maxUploadBytes    int64
}

// NewPredictionHandler creates a new PredictionHandler accepting uploads of
// at most maxUploadBytes.
func NewPredictionHandler(predictionService *services.PredictionService, maxUploadBytes int) *PredictionHandler {
	return &PredictionHandler{
		predictionService: predictionService,
		validate:          validator.New(),
		maxUploadBytes:    int64(maxUploadBytes),
	}
}

// RegisterRoutes registers the prediction routes behind authRequired.
func (h *PredictionHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	predictRoutes := router.Group("/predict", authRequired)
	predictRoutes.Post("/", h.HandlePredict)
	predictRoutes.Post("/batch", h.HandleBatchPredict)
	predictRoutes.Post("/batch_predict", h.HandleBatchPredict)
}

// HandlePredict scores a single feature vector.
func (h *PredictionHandler) HandlePredict(c *fiber.Ctx) error {
	var req models.PredictionRequest
	if err := c.BodyParser(&req); err != nil {
		log.WithError(err).Warn("failed to parse prediction request body")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	result, err := h.predictionService.PredictOne(c.UserContext(), req.Features, middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// HandleBatchPredict scores every row of an uploaded CSV or XLSX file.
func (h *PredictionHandler) HandleBatchPredict(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile(uploadField)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "No file uploaded",
			"error":   "multipart field 'file' is required",
		})
	}
	if fileHeader.Size > h.maxUploadBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"message": "File too large",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.WithError(err).Error("failed to open uploaded file")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not read uploaded file",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes))
	if err != nil {
		log.WithError(err).Error("failed to read uploaded file")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not read uploaded file",
		})
	}

	table, err := tabular.Read(fileHeader.Header.Get(fiber.HeaderContentType), data)
	if err != nil {
		log.WithError(err).WithField("filename", fileHeader.Filename).Warn("rejected batch upload")
		message := "Could not parse uploaded file"
		if errors.Is(err, tabular.ErrUnsupportedFormat) {
			message = "Invalid file format, use CSV or Excel"
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": message,
			"error":   err.Error(),
		})
	}

	predictions, err := h.predictionService.PredictBatch(c.UserContext(), table, middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.BatchPredictionResponse{Predictions: predictions})
}

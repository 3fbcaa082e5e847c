package handler

import (
	"strconv"

	"slide-capture/internal/domain"
	"slide-capture/internal/dto"
	"slide-capture/internal/logger"
	"slide-capture/internal/middleware"
	"slide-capture/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// InteractionHandler exposes interaction scopes over HTTP.
type InteractionHandler struct {
	service service.CaptureService
}

// NewInteractionHandler creates a new InteractionHandler instance
func NewInteractionHandler(service service.CaptureService) *InteractionHandler {
	return &InteractionHandler{service: service}
}

// RegisterRoutes mounts the interaction routes under api.
func (h *InteractionHandler) RegisterRoutes(api fiber.Router, vm *middleware.ValidationMiddleware) {
	api.Get("/decks/:deckId/slides/:slideId/interactions", h.ListInteractions)
	api.Delete("/sessions/:sessionId", h.EndSession)

	scope := api.Group("/sessions/:sessionId/decks/:deckId/slides/:slideId/interactions/:interactionId", vm.ValidateScope())
	scope.Post("/mount", h.Mount)
	scope.Delete("/mount", h.Unmount)
	scope.Post("/activate", h.Activate)
	scope.Post("/complete", h.Complete)
	scope.Post("/upload", h.Upload)
}

// ListInteractions handles GET /api/decks/:deckId/slides/:slideId/interactions
func (h *InteractionHandler) ListInteractions(c *fiber.Ctx) error {
	deckID, slideID := c.Params("deckId"), c.Params("slideId")
	interactions, err := h.service.ListInteractions(deckID, slideID)
	if err != nil {
		return err
	}
	return c.JSON(dto.InteractionListResponse{DeckID: deckID, SlideID: slideID, Interactions: interactions})
}

// Mount handles POST .../mount
func (h *InteractionHandler) Mount(c *fiber.Ctx) error {
	scope, _ := middleware.Scope(c)
	status, err := h.service.Mount(scope, middleware.StudentID(c))
	if err != nil {
		return err
	}
	return c.JSON(status)
}

// Unmount handles DELETE .../mount
func (h *InteractionHandler) Unmount(c *fiber.Ctx) error {
	scope, _ := middleware.Scope(c)
	status, err := h.service.Unmount(scope)
	if err != nil {
		return err
	}
	return c.JSON(status)
}

// EndSession handles DELETE /api/sessions/:sessionId
func (h *InteractionHandler) EndSession(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return domain.ValidationErrors{domain.NewMissingFieldError("session_id")}
	}
	return c.JSON(dto.SessionEndResponse{SessionID: sessionID, Unmounted: h.service.EndSession(sessionID)})
}

// Activate handles POST .../activate
func (h *InteractionHandler) Activate(c *fiber.Ctx) error {
	scope, _ := middleware.Scope(c)
	result, err := h.service.Activate(c.UserContext(), scope)
	if err != nil {
		return err
	}
	return respondRecorded(c, result)
}

// Complete handles POST .../complete
func (h *InteractionHandler) Complete(c *fiber.Ctx) error {
	scope, _ := middleware.Scope(c)
	var req dto.CompleteRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Get().Debug("Handler: invalid complete body", zap.Error(err))
		return domain.NewInvalidInputError("request body is not valid JSON")
	}

	result, err := h.service.Complete(c.UserContext(), scope, &req)
	if err != nil {
		return err
	}
	return respondRecorded(c, result)
}

// Upload handles POST .../upload with a multipart "file" field and an
// optional "is_correct" field.
func (h *InteractionHandler) Upload(c *fiber.Ctx) error {
	scope, _ := middleware.Scope(c)
	header, err := c.FormFile("file")
	if err != nil {
		return domain.NewInvalidInputError("no file provided")
	}

	var isCorrect *bool
	if raw := c.FormValue("is_correct"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.ValidationErrors{domain.NewInvalidFormatError("is_correct", raw)}
		}
		isCorrect = &v
	}

	file, err := header.Open()
	if err != nil {
		return domain.NewImageProcessingError(err)
	}
	defer file.Close()

	result, err := h.service.Upload(c.UserContext(), scope, &domain.ImageUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Reader:   file,
	}, isCorrect)
	if err != nil {
		return err
	}
	return respondRecorded(c, result)
}

// Health handles GET /healthz
func (h *InteractionHandler) Health(c *fiber.Ctx) error {
	return c.JSON(dto.HealthResponse{Status: "ok", Scopes: h.service.Scopes()})
}

// respondRecorded answers 200 with the response, or 202 when the candidate
// was rejected and nothing was recorded.
func respondRecorded(c *fiber.Ctx, result *dto.RecordResult) error {
	if !result.Recorded {
		return c.Status(fiber.StatusAccepted).JSON(result)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

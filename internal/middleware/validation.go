package middleware

import (
	"slide-capture/internal/dto"
	"slide-capture/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const scopeKey = "validated_scope"

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.Validator
}

// NewValidationMiddleware creates a new validation middleware instance
func NewValidationMiddleware(v *validation.Validator) *ValidationMiddleware {
	if v == nil {
		v = validation.NewValidator()
	}
	return &ValidationMiddleware{validator: v}
}

// ValidateScope checks the session/deck/slide/interaction path parameters and
// stores them for the handler.
func (vm *ValidationMiddleware) ValidateScope() fiber.Handler {
	return func(c *fiber.Ctx) error {
		params := dto.ScopeParams{
			SessionID:     c.Params("sessionId"),
			DeckID:        c.Params("deckId"),
			SlideID:       c.Params("slideId"),
			InteractionID: c.Params("interactionId"),
		}
		if errs := vm.validator.ValidateStruct(params); len(errs) > 0 {
			return errs // This will be handled by ErrorHandler middleware
		}
		c.Locals(scopeKey, params)
		return c.Next()
	}
}

// Scope returns the parameters stored by ValidateScope.
func Scope(c *fiber.Ctx) (dto.ScopeParams, bool) {
	params, ok := c.Locals(scopeKey).(dto.ScopeParams)
	return params, ok
}

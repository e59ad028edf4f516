package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"shopapi/internal/repositories"
	"shopapi/internal/services"
)

// statusForError maps domain errors to HTTP status codes. Business-rule
// conflicts are 409, absent entities 404, validation problems 400, anything
// unrecognized is an infrastructure failure.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrInvalidStatus):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrIllegalTransition),
		errors.Is(err, services.ErrOrderNotCancellable),
		errors.Is(err, repositories.ErrInsufficientStock),
		errors.Is(err, repositories.ErrOrderStatusStale):
		return fiber.StatusConflict
	case errors.Is(err, repositories.ErrProductNotFound),
		errors.Is(err, repositories.ErrCartNotFound),
		errors.Is(err, repositories.ErrCartItemNotFound),
		errors.Is(err, repositories.ErrOrderNotFound),
		errors.Is(err, repositories.ErrReviewNotFound),
		errors.Is(err, repositories.ErrUserNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// errorResponse writes a uniform JSON error body with the mapped status.
func errorResponse(c *fiber.Ctx, message string, err error) error {
	return c.Status(statusForError(err)).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

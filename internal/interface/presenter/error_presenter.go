package presenter

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/pet-shop-orders/internal/apperr"
)

// retryAfterSeconds is advertised on 503 answers.
const retryAfterSeconds = "2"

// StatusFor maps an error to the HTTP status for its kind.
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.ErrNotAuthenticated:
		return fiber.StatusUnauthorized
	case apperr.ErrForbidden:
		return fiber.StatusForbidden
	case apperr.ErrNotFound:
		return fiber.StatusNotFound
	case apperr.ErrInvalidState, apperr.ErrConflict:
		return fiber.StatusConflict
	case apperr.ErrUpstreamUnavailable:
		return fiber.StatusServiceUnavailable
	case apperr.ErrInvalidInput:
		return fiber.StatusBadRequest
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// Error writes err as {"message", "retryable"} with the matching status.
// Untagged errors are reported as a generic 500 so internals do not leak.
func Error(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "internal server error"
	}
	if status == fiber.StatusServiceUnavailable {
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
	}
	return c.Status(status).JSON(fiber.Map{
		"message":   msg,
		"retryable": apperr.Retryable(err),
	})
}

// BadRequest answers 400 for malformed input the handler rejects itself.
func BadRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": msg, "retryable": false})
}

package session

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// TokenFromCtx extracts the opaque bearer token from the Authorization header.
// The "Bearer " prefix is optional.
func TokenFromCtx(c *fiber.Ctx) string {
	raw := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}

package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/fieldconnect/pkg/util"
)

// RequireOperation rejects callers whose role may not perform op.
func RequireOperation(op Operation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !Allowed(identity, op) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

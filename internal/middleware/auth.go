package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/payvia/payvia/internal/admin"
	"github.com/payvia/payvia/internal/auth"
	"github.com/payvia/payvia/internal/store"
)

// Identity authenticates the bearer token and records its subject as the
// caller identity.
func Identity(tokens *auth.Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		identity, err := tokens.Identity(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		auth.SetCaller(c, identity)
		return c.Next()
	}
}

// RequireAdmin rejects callers other than the recorded administrator.
func RequireAdmin(s store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := admin.Check(c.UserContext(), s, auth.Caller(c))
		switch {
		case err == nil:
			return c.Next()
		case errors.Is(err, admin.ErrUnauthorized):
			return fiber.NewError(http.StatusForbidden, "administrator only")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
}

package account

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/payvia/payvia/internal/auth"
	"github.com/payvia/payvia/internal/validation"
)

// Handler exposes account endpoints.
type Handler struct {
	registry *Registry
}

// NewHandler constructs an account handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

type registerRequest struct {
	Contact string `json:"contact" validate:"required,max=64"`
}

// Register opens an account for the caller.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	acct, err := h.registry.Register(c.UserContext(), auth.Caller(c), req.Contact)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(acct)
}

// Me returns the caller's account.
func (h *Handler) Me(c *fiber.Ctx) error {
	return h.respondWith(c, auth.Caller(c))
}

// Balance returns the caller's balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	identity := auth.Caller(c)
	balance, err := h.registry.Balance(c.UserContext(), identity)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"identity": identity, "balance": balance})
}

// Get returns any account by identity. Mounted behind the admin guard.
func (h *Handler) Get(c *fiber.Ctx) error {
	return h.respondWith(c, c.Params("identity"))
}

// Verify marks an account verified. Mounted behind the admin guard.
func (h *Handler) Verify(c *fiber.Ctx) error {
	identity := c.Params("identity")
	if err := h.registry.Verify(c.UserContext(), identity); err != nil {
		return mapError(err)
	}
	return h.respondWith(c, identity)
}

func (h *Handler) respondWith(c *fiber.Ctx, identity string) error {
	acct, err := h.registry.Get(c.UserContext(), identity)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(acct)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicate):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidIdentity):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

package ledger

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/payvia/payvia/internal/account"
	"github.com/payvia/payvia/internal/auth"
	"github.com/payvia/payvia/internal/validation"
)

// Handler exposes deposit and transfer endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a ledger handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type depositRequest struct {
	Amount int64 `json:"amount" validate:"gt=0"`
}

type transferRequest struct {
	To     string `json:"to" validate:"required"`
	Amount int64  `json:"amount" validate:"gt=0"`
}

// Deposit credits the account named in the path. Mounted behind the admin guard.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req depositRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	identity := c.Params("identity")
	balance, err := h.service.Deposit(c.UserContext(), identity, req.Amount)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"identity": identity,
		"amount":   req.Amount,
		"balance":  balance,
	})
}

// Transfer moves funds from the caller to another account.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.service.Transfer(c.UserContext(), auth.Caller(c), req.To, req.Amount)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"from":         res.From,
		"to":           res.To,
		"amount":       res.Amount,
		"from_balance": res.FromBalance,
		"to_balance":   res.ToBalance,
		"completed_at": res.CompletedAt,
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, account.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInsufficientBalance), errors.Is(err, ErrBalanceOverflow):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

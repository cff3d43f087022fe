package withdrawals

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/payvia/payvia/internal/account"
	"github.com/payvia/payvia/internal/admin"
	"github.com/payvia/payvia/internal/auth"
	"github.com/payvia/payvia/internal/domain"
	"github.com/payvia/payvia/internal/ledger"
	"github.com/payvia/payvia/internal/validation"
)

// Handler exposes withdrawal endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a withdrawal handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Method        string `json:"method" validate:"required,max=32"`
	AccountNumber string `json:"account_number" validate:"required,max=64"`
	USDCAmount    int64  `json:"usdc_amount" validate:"gt=0"`
	UGXAmount     int64  `json:"ugx_amount" validate:"gte=0"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,max=32"`
}

// Create records a pending withdrawal for the caller.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}

	w, err := h.service.Create(c.UserContext(), CreateInput{
		Identity:      auth.Caller(c),
		Method:        req.Method,
		AccountNumber: req.AccountNumber,
		USDCAmount:    req.USDCAmount,
		UGXAmount:     req.UGXAmount,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(w)
}

// List returns the caller's withdrawals.
func (h *Handler) List(c *fiber.Ctx) error {
	list, err := h.service.ListFor(c.UserContext(), auth.Caller(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"withdrawals": list})
}

// UpdateStatus lets the administrator relabel a withdrawal.
func (h *Handler) UpdateStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	id := c.Params("id")
	if err := h.service.UpdateStatus(c.UserContext(), auth.Caller(c), id, domain.Status(req.Status)); err != nil {
		return mapError(err)
	}
	w, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(w)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, account.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, admin.ErrUnauthorized):
		return fiber.NewError(http.StatusForbidden, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

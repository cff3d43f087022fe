package routes

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/payvia/payvia/internal/account"
	"github.com/payvia/payvia/internal/auth"
	"github.com/payvia/payvia/internal/clock"
	"github.com/payvia/payvia/internal/config"
	"github.com/payvia/payvia/internal/ids"
	"github.com/payvia/payvia/internal/ledger"
	"github.com/payvia/payvia/internal/metrics"
	"github.com/payvia/payvia/internal/middleware"
	"github.com/payvia/payvia/internal/notification"
	"github.com/payvia/payvia/internal/payments"
	"github.com/payvia/payvia/internal/store"
	"github.com/payvia/payvia/internal/withdrawals"
)

const tokenTTL = time.Hour

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	Store    store.Store
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Notifier notification.Notifier
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Store == nil {
		return fmt.Errorf("a store is required")
	}
	if d.Cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if d.Clock == nil {
		d.Clock = clock.System()
	}

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", metrics.Handler())

	gen := ids.NewGenerator()
	accountH := account.NewHandler(account.NewRegistry(d.Store, d.Clock))
	ledgerH := ledger.NewHandler(ledger.NewService(d.Store, d.Clock, d.Notifier))
	paymentH := payments.NewHandler(payments.NewService(d.Store, d.Clock, gen, d.Notifier))
	withdrawalH := withdrawals.NewHandler(withdrawals.NewService(d.Store, d.Clock, gen, d.Notifier))

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})

	secured := api.Group("", middleware.Identity(auth.NewTokens(d.Cfg.JWTSecret, tokenTTL)))

	// money-moving routes get replay protection when Redis is available
	money := func(h fiber.Handler) []fiber.Handler {
		if d.Cache == nil {
			return []fiber.Handler{h}
		}
		return []fiber.Handler{middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger), h}
	}

	secured.Post("/accounts", middleware.RateLimit(d.Cache, "register", d.Cfg.RateLimit), accountH.Register)
	secured.Get("/accounts/me", accountH.Me)
	secured.Get("/accounts/me/balance", accountH.Balance)

	secured.Post("/transfers", money(ledgerH.Transfer)...)
	secured.Post("/payments", money(paymentH.Create)...)
	secured.Get("/payments", paymentH.List)
	secured.Post("/withdrawals", money(withdrawalH.Create)...)
	secured.Get("/withdrawals", withdrawalH.List)

	adm := secured.Group("/admin", middleware.RequireAdmin(d.Store))
	adm.Get("/accounts/:identity", accountH.Get)
	adm.Post("/accounts/:identity/verify", accountH.Verify)
	adm.Post("/accounts/:identity/deposits", money(ledgerH.Deposit)...)
	adm.Patch("/payments/:id", paymentH.UpdateStatus)
	adm.Patch("/withdrawals/:id", withdrawalH.UpdateStatus)

	return nil
}

// ErrorHandler renders every error as a JSON body carrying its status text.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := http.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

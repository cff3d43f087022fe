package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/payvia/payvia/internal/auth"
	"github.com/payvia/payvia/internal/logging"
)

func setupIdempotencyApp(t *testing.T, calls *int32) *fiber.App {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		auth.SetCaller(c, c.Get("X-Test-Caller"))
		return c.Next()
	})
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/transfers", func(c *fiber.Ctx) error {
		n := atomic.AddInt32(calls, 1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": n})
	})
	app.Post("/fail", func(c *fiber.Ctx) error {
		atomic.AddInt32(calls, 1)
		return fiber.NewError(fiber.StatusUnprocessableEntity, "insufficient balance")
	})
	return app
}

func post(t *testing.T, app *fiber.App, path, caller, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set("X-Test-Caller", caller)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	var calls int32
	app := setupIdempotencyApp(t, &calls)

	if status, _ := post(t, app, "/transfers", "alice", ""); status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if calls != 0 {
		t.Fatal("handler ran without an idempotency key")
	}
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	var calls int32
	app := setupIdempotencyApp(t, &calls)

	status, first := post(t, app, "/transfers", "alice", "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	status, second := post(t, app, "/transfers", "alice", "abc123")
	if status != fiber.StatusCreated || second != first {
		t.Fatalf("expected replay of %s, got %d %s", first, status, second)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times", calls)
	}
}

func TestIdempotencyKeysAreScopedPerCaller(t *testing.T) {
	var calls int32
	app := setupIdempotencyApp(t, &calls)

	post(t, app, "/transfers", "alice", "shared")
	post(t, app, "/transfers", "bob", "shared")
	if calls != 2 {
		t.Fatalf("expected both callers to reach the handler, got %d", calls)
	}
}

func TestIdempotencyReleasesKeyOnError(t *testing.T) {
	var calls int32
	app := setupIdempotencyApp(t, &calls)

	for i := 0; i < 2; i++ {
		if status, _ := post(t, app, "/fail", "alice", "k1"); status != fiber.StatusUnprocessableEntity {
			t.Fatalf("attempt %d: expected 422, got %d", i, status)
		}
	}
	if calls != 2 {
		t.Fatalf("failed request was cached, handler ran %d times", calls)
	}
}

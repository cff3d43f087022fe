package server

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/payvia/payvia/internal/config"
	"github.com/payvia/payvia/internal/logging"
	"github.com/payvia/payvia/internal/routes"
	"github.com/payvia/payvia/internal/store"
)

func TestNewRequiresStore(t *testing.T) {
	if _, err := New(routes.Deps{Cfg: config.Config{JWTSecret: "s"}, Logger: logging.Discard()}); err == nil {
		t.Fatal("expected error without a store")
	}
}

func TestErrorsRenderAsJSON(t *testing.T) {
	srv, err := New(routes.Deps{
		Cfg:    config.Config{JWTSecret: "s", AppEnv: "test", Port: "0"},
		Store:  store.NewMemory(),
		Logger: logging.Discard(),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	resp, err := srv.App().Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/payments", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	var body map[string]string
	if err := json.Unmarshal(raw, &body); err != nil || body["error"] == "" {
		t.Fatalf("expected json error body, got %s", raw)
	}
}

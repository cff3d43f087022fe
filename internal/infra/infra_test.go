package infra

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/payvia/payvia/internal/config"
	"github.com/payvia/payvia/internal/logging"
	"github.com/payvia/payvia/internal/notification"
	"github.com/payvia/payvia/internal/store"
)

func TestOpenMemory(t *testing.T) {
	b, err := Open(context.Background(), config.Config{StoreBackend: config.BackendMemory})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()
	if _, ok := b.Store.(*store.Memory); !ok {
		t.Fatalf("expected memory store, got %T", b.Store)
	}
	if b.DB != nil || b.Cache != nil {
		t.Fatal("memory backend opened connections")
	}
}

func TestOpenRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	b, err := Open(context.Background(), config.Config{
		StoreBackend: config.BackendRedis,
		RedisURL:     "redis://" + mr.Addr() + "/0",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()
	if _, ok := b.Store.(*store.Redis); !ok {
		t.Fatalf("expected redis store, got %T", b.Store)
	}
	if b.Cache == nil {
		t.Fatal("expected redis client")
	}
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewRedisClient(context.Background(), "://bad"); err == nil {
		t.Fatal("expected error for malformed url")
	}
}

func TestNewNotifierFallsBackToLogger(t *testing.T) {
	n, closeFn := NewNotifier(config.Config{}, logging.Discard())
	defer closeFn()
	if _, ok := n.(*notification.LoggerNotifier); !ok {
		t.Fatalf("expected logger notifier, got %T", n)
	}

	n, closeFn = NewNotifier(config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "t"}, logging.Discard())
	defer closeFn()
	if _, ok := n.(*notification.KafkaNotifier); !ok {
		t.Fatalf("expected kafka notifier, got %T", n)
	}
}

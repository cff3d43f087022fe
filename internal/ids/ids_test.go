package ids

import (
	"strings"
	"testing"
	"time"
)

func TestNewUsesPrefix(t *testing.T) {
	g := NewGenerator()
	id, err := g.New(PaymentPrefix, time.Now())
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	if !strings.HasPrefix(id, "bill_") {
		t.Fatalf("expected bill_ prefix, got %s", id)
	}
	if len(id) != len("bill_")+26 {
		t.Fatalf("unexpected id length %d for %s", len(id), id)
	}
}

func TestSameTickIDsAreUniqueAndOrdered(t *testing.T) {
	g := NewGenerator()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	seen := make(map[string]struct{})
	prev := ""
	for i := 0; i < 500; i++ {
		id, err := g.New(WithdrawalPrefix, at)
		if err != nil {
			t.Fatalf("new id %d: %v", i, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
		if id <= prev {
			t.Fatalf("ids not increasing: %s after %s", id, prev)
		}
		prev = id
	}
}

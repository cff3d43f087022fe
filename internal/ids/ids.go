package ids

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// PaymentPrefix starts every bill payment id.
	PaymentPrefix = "bill_"
	// WithdrawalPrefix starts every withdrawal id.
	WithdrawalPrefix = "withdraw_"
)

// Generator derives request ids from a timestamp plus monotonic entropy, so ids
// minted within the same millisecond stay unique and sort in creation order.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewGenerator builds a generator seeded from crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// New returns prefix followed by a ULID stamped with at.
func (g *Generator) New(prefix string, at time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(at), g.entropy)
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return prefix + id.String(), nil
}

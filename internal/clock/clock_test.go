package clock

import (
	"testing"
	"time"
)

func TestSystemClockNeverGoesBackwards(t *testing.T) {
	c := System()
	prev := c.Now()
	for i := 0; i < 1000; i++ {
		now := c.Now()
		if now.Before(prev) {
			t.Fatalf("clock went backwards: %s < %s", now, prev)
		}
		prev = now
	}
}

func TestSystemClockHoldsLastOnRegression(t *testing.T) {
	c := &systemClock{last: time.Now().Add(time.Hour)}
	if got := c.Now(); !got.Equal(c.last) {
		t.Fatalf("expected held time %s, got %s", c.last, got)
	}
}

func TestManualAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManual(start)
	m.Advance(time.Second)
	m.Advance(-time.Hour)
	if got := m.Now(); !got.Equal(start.Add(time.Second)) {
		t.Fatalf("expected %s, got %s", start.Add(time.Second), got)
	}
}

func TestManualSetOnlyMovesForward(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManual(start)

	m.Set(start.Add(-time.Hour))
	if !m.Now().Equal(start) {
		t.Fatalf("expected %s, got %s", start, m.Now())
	}
	later := start.Add(time.Minute)
	m.Set(later)
	if !m.Now().Equal(later) {
		t.Fatalf("expected %s, got %s", later, m.Now())
	}
}

package batchsize

import (
	"testing"
	"time"
)

// TestAdjust_S6 reproduces §8's S6 scenario: a slow batch halves, a fast
// saturated batch doubles, and the ceiling is never exceeded.
func TestAdjust_S6(t *testing.T) {
	b := DefaultBounds()

	next := Adjust(800, 800, 45*time.Second, b)
	if next != 400 {
		t.Fatalf("after 45s slow batch from 800: got %d, want 400", next)
	}

	next = Adjust(400, 400, 5*time.Second, b)
	if next != 800 {
		t.Fatalf("after 5s saturated batch from 400: got %d, want 800", next)
	}

	next = Adjust(2000, 2000, 1*time.Second, b)
	if next != 2000 {
		t.Fatalf("ceiling exceeded: got %d, want 2000", next)
	}
}

func TestAdjust_ZeroRowsReturnsCurrent(t *testing.T) {
	if got := Adjust(500, 0, time.Second, DefaultBounds()); got != 500 {
		t.Fatalf("got %d, want 500", got)
	}
}

func TestAdjust_UnsaturatedMidRangeHoldsSteady(t *testing.T) {
	// elapsed between target/2 and 1.5*target, or under-filled batch: no change.
	b := DefaultBounds()
	if got := Adjust(1000, 1000, 15*time.Second, b); got != 1000 {
		t.Fatalf("got %d, want 1000", got)
	}
	// fast but not saturated (rowCount < current): no change.
	if got := Adjust(1000, 200, 2*time.Second, b); got != 1000 {
		t.Fatalf("got %d, want 1000", got)
	}
}

func TestAdjust_FloorNeverUndercutMin(t *testing.T) {
	b := DefaultBounds()
	next := Adjust(150, 150, 45*time.Second, b)
	if next != b.Min {
		t.Fatalf("got %d, want floor %d", next, b.Min)
	}
}

func TestInitialSize(t *testing.T) {
	if got := InitialSize(250); got != 250 {
		t.Fatalf("got %d, want 250", got)
	}
	if got := InitialSize(0); got != 1000 {
		t.Fatalf("got %d, want 1000", got)
	}
}

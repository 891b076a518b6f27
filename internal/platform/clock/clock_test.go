package clock

import (
	"testing"
	"time"
)

func TestTickingAdvancesPerRead(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	c := &Ticking{At: start, Step: 250 * time.Millisecond}

	first, second := c.Now(), c.Now()
	if !first.Equal(start) {
		t.Fatalf("first read: expected %s, got %s", start, first)
	}
	if got := second.Sub(first); got != 250*time.Millisecond {
		t.Fatalf("expected 250ms step, got %s", got)
	}
}

func TestFixedAndSystem(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	if got := Fixed(at).Now(); !got.Equal(at) {
		t.Fatalf("fixed clock: expected %s, got %s", at, got)
	}
	if loc := (System{}).Now().Location(); loc != time.UTC {
		t.Fatalf("system clock should report UTC, got %s", loc)
	}
}

package clock

import (
	"sync"
	"time"
)

// Clock is the time source for run timestamps, session creation and exports.
type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always reports the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

// Ticking advances by Step on every read, so consecutive timestamps differ.
type Ticking struct {
	mu   sync.Mutex
	At   time.Time
	Step time.Duration
}

func (t *Ticking) Now() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.At
	t.At = t.At.Add(t.Step)
	return now
}

package clock

import (
	"sync"
	"time"
)

// Manual is a deterministic clock for tests. Sleep does not block: it moves
// the clock forward by the requested duration and records the call, so a
// single goroutine can drive the retry loop without real waiting.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	hook   func(n int)
}

// NewManual constructs a Manual clock starting at the supplied time.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Sleep advances the clock by d and invokes the sleep hook, if any.
func (m *Manual) Sleep(d time.Duration) {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.sleeps = append(m.sleeps, d)
	n := len(m.sleeps)
	hook := m.hook
	m.mu.Unlock()
	if hook != nil {
		hook(n)
	}
}

// OnSleep registers fn to run after every Sleep with the 1-based sleep count.
// Tests use it to mutate the filesystem between polls.
func (m *Manual) OnSleep(fn func(n int)) {
	m.mu.Lock()
	m.hook = fn
	m.mu.Unlock()
}

// Sleeps returns the number of Sleep calls observed.
func (m *Manual) Sleeps() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sleeps)
}

// Slept returns the total duration passed to Sleep.
func (m *Manual) Slept() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total time.Duration
	for _, d := range m.sleeps {
		total += d
	}
	return total
}

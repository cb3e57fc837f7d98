// Package clock abstracts the wall clock so timer evaluation can run
// against a fixed time source in tests. All engine timestamps are Unix
// seconds in UTC.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
	Unix() int64
}

// Real reads the system clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now().UTC() }

func (Real) Unix() int64 { return time.Now().Unix() }

// Fixed is a settable clock for tests.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixed returns a Fixed clock starting at t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t.UTC()}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *Fixed) Unix() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t.Unix()
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.t = t.UTC()
	f.mu.Unlock()
}

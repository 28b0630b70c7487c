// Package clock supplies the current time to reserve operations.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock returns the current unix time in seconds.
type Clock interface {
	Now() int64
}

// System reads the wall clock.
type System struct{}

// Now returns time.Now() in unix seconds.
func (System) Now() int64 { return time.Now().Unix() }

// Fixed is a settable clock for tests and replays.
type Fixed struct {
	now atomic.Int64
}

// NewFixed creates a clock stopped at now.
func NewFixed(now int64) *Fixed {
	f := &Fixed{}
	f.now.Store(now)
	return f
}

// Now returns the stored time.
func (f *Fixed) Now() int64 { return f.now.Load() }

// Set moves the clock to now.
func (f *Fixed) Set(now int64) { f.now.Store(now) }

// Advance moves the clock forward by d seconds.
func (f *Fixed) Advance(d int64) { f.now.Add(d) }

var (
	_ Clock = System{}
	_ Clock = (*Fixed)(nil)
)

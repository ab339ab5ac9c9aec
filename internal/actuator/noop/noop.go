// Package noop provides an Actuator that discards every Advance call,
// recording them for inspection. Used in tests and dry runs where no real
// presentation surface is attached.
package noop

import (
	"context"
	"sync"

	"github.com/mdonmez/autoso/internal/actuator"
)

// Actuator records every Advance call without acting on it.
type Actuator struct {
	mu    sync.Mutex
	calls []uint32
}

var _ actuator.Actuator = (*Actuator)(nil)

// New returns a ready-to-use Actuator.
func New() *Actuator {
	return &Actuator{}
}

// Advance records count and returns nil.
func (a *Actuator) Advance(_ context.Context, count uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, count)
	return nil
}

// Calls returns a copy of every count passed to Advance so far, in order.
func (a *Actuator) Calls() []uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]uint32, len(a.calls))
	copy(out, a.calls)
	return out
}

// Package actuator defines the Actuator capability: the sink that carries
// out a navigator's Forward decisions. The core pipeline never performs OS
// keypress injection itself — that mechanism is explicitly out of scope —
// it only ever calls Advance on an injected Actuator.
package actuator

import "context"

// Actuator advances the presentation by count slides (almost always 1).
// Implementations must be safe for concurrent use, though the default
// pipeline topology calls Advance from a single goroutine
// (NavigationWorker).
type Actuator interface {
	Advance(ctx context.Context, count uint32) error
}

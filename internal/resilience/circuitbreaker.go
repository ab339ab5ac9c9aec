// Package resilience isolates the pipeline from a dying ASR backend: after
// a run of consecutive transcription failures the breaker opens and rejects
// calls immediately, so RecognizerWorker surfaces the outage as a fatal
// session error instead of grinding through a timeout on every frame.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [Breaker.Execute] while the breaker is
// rejecting calls.
var ErrCircuitOpen = errors.New("resilience: circuit open")

// State is the breaker's operating mode.
type State uint8

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects every call with [ErrCircuitOpen] until the reset
	// timeout elapses.
	StateOpen

	// StateHalfOpen lets a single probe call through; its outcome decides
	// whether the breaker closes again or re-opens.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Config tunes a [Breaker]. Zero-valued fields get usable defaults.
type Config struct {
	// Name labels the breaker in log output.
	Name string

	// MaxFailures is how many consecutive failures open the breaker.
	// Default 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before letting a
	// probe call through. Default 30s.
	ResetTimeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Breaker is a three-state circuit breaker safe for concurrent use. Once
// ResetTimeout has elapsed in the open state, exactly one probe call is
// admitted: success closes the breaker, failure re-opens it for another
// full timeout.
type Breaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	logger       *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// New creates a Breaker from cfg.
func New(cfg Config) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Breaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		logger:       cfg.Logger.With("breaker", cfg.Name),
	}
}

// Execute runs fn unless the breaker is rejecting calls, folding fn's
// outcome into the failure accounting. fn's error is returned unchanged so
// callers can tell backend errors apart from [ErrCircuitOpen].
func (b *Breaker) Execute(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.observe(err)
	return err
}

// admit decides whether a call may proceed right now.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.openedAt) < b.resetTimeout {
			return ErrCircuitOpen
		}
		b.state = StateHalfOpen
		b.probing = true
		b.logger.Info("circuit half-open, probing backend")
		return nil
	case StateHalfOpen:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
		return nil
	}
	return nil
}

// observe records one call outcome.
func (b *Breaker) observe(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state != StateClosed {
			b.logger.Info("circuit closed, backend recovered")
		}
		b.state = StateClosed
		b.failures = 0
		b.probing = false
		return
	}

	if b.state == StateHalfOpen {
		b.state = StateOpen
		b.openedAt = time.Now()
		b.probing = false
		b.logger.Warn("probe failed, circuit re-opened")
		return
	}

	b.failures++
	if b.failures >= b.maxFailures {
		b.state = StateOpen
		b.openedAt = time.Now()
		b.logger.Warn("circuit opened", "consecutive_failures", b.failures)
	}
}

// State reports the breaker's current mode. An open breaker whose reset
// timeout has elapsed reports StateHalfOpen; the transition itself happens
// on the next Execute.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.openedAt) >= b.resetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Reset forces the breaker back to closed, clearing all failure state.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.probing = false
	b.logger.Info("circuit manually reset")
}

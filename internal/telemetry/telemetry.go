// Package telemetry records navigation decisions for offline session
// analysis. Recording is always best-effort: a slow or unavailable sink
// must never add latency to NavigationWorker's decision path.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DecisionRecord captures one NavigationWorker decision.
type DecisionRecord struct {
	SessionID      string
	Query          string
	ChunkID        string
	ChunkIndex     uint32
	Case           string // "stay", "forward_jump", "forward_early"
	FusedScore     float64
	SemanticScore  float64
	PhoneticScore  float64
	QueryEmbedding []float32
	DecidedAt      time.Time
}

// Sink persists decision records. Implementations must be safe for
// concurrent use.
type Sink interface {
	Record(ctx context.Context, rec DecisionRecord) error
	Close() error
}

// NoopSink discards every record. It is the default when no sink is
// configured.
type NoopSink struct{}

// Record implements [Sink].
func (NoopSink) Record(context.Context, DecisionRecord) error { return nil }

// Close implements [Sink].
func (NoopSink) Close() error { return nil }

var _ Sink = NoopSink{}

// AsyncSink wraps a [Sink] with a bounded in-memory queue drained by a
// single background goroutine, so callers on the navigation path never
// block on the underlying sink. When the queue is full the oldest queued
// record is dropped to make room for the newest one.
type AsyncSink struct {
	underlying Sink
	logger     *slog.Logger
	capacity   int

	mu      sync.Mutex
	pending []DecisionRecord
	notify  chan struct{}

	writeTimeout time.Duration

	done chan struct{}
	wg   sync.WaitGroup
}

// NewAsyncSink wraps underlying with a background writer bounded to
// capacity pending records. capacity <= 0 is treated as 1.
func NewAsyncSink(underlying Sink, capacity int, logger *slog.Logger) *AsyncSink {
	if capacity <= 0 {
		capacity = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &AsyncSink{
		underlying:   underlying,
		logger:       logger.With("component", "telemetry"),
		capacity:     capacity,
		pending:      make([]DecisionRecord, 0, capacity),
		notify:       make(chan struct{}, 1),
		writeTimeout: 5 * time.Second,
		done:         make(chan struct{}),
	}
	a.wg.Add(1)
	go a.drain()
	return a
}

// Record implements [Sink] by enqueueing rec for asynchronous persistence.
// It never blocks and always returns nil.
func (a *AsyncSink) Record(_ context.Context, rec DecisionRecord) error {
	a.Enqueue(rec)
	return nil
}

// Enqueue queues rec for asynchronous persistence. It never blocks.
func (a *AsyncSink) Enqueue(rec DecisionRecord) {
	a.mu.Lock()
	if len(a.pending) >= a.capacity {
		a.pending = a.pending[1:]
		a.logger.Warn("telemetry queue full, dropping oldest decision record")
	}
	a.pending = append(a.pending, rec)
	a.mu.Unlock()

	select {
	case a.notify <- struct{}{}:
	default:
	}
}

func (a *AsyncSink) drain() {
	defer a.wg.Done()
	for {
		select {
		case <-a.notify:
			a.flush()
		case <-a.done:
			a.flush()
			return
		}
	}
}

func (a *AsyncSink) flush() {
	for {
		a.mu.Lock()
		if len(a.pending) == 0 {
			a.mu.Unlock()
			return
		}
		rec := a.pending[0]
		a.pending = a.pending[1:]
		a.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
		err := a.underlying.Record(ctx, rec)
		cancel()
		if err != nil {
			a.logger.Warn("failed to persist decision record", "error", err, "chunk_id", rec.ChunkID)
		}
	}
}

// Close stops the background writer after draining any queued records, then
// closes the underlying sink.
func (a *AsyncSink) Close() error {
	close(a.done)
	a.wg.Wait()
	return a.underlying.Close()
}

var _ Sink = (*AsyncSink)(nil)

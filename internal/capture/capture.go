// Package capture defines the microphone capture capability injected into
// AudioStreamer.
package capture

import "context"

// Config describes the PCM format AudioStreamer expects from a capture
// [Source].
type Config struct {
	// SampleRateHz is the capture sample rate. The pipeline is 16kHz-only.
	SampleRateHz int

	// Channels is the capture channel count. The pipeline is mono-only.
	Channels int

	// FrameDurationMs is the duration of each frame returned by
	// [Stream.Read].
	FrameDurationMs int
}

// FrameSamples returns the number of int16 samples per channel in one
// frame at cfg's sample rate and frame duration.
func (cfg Config) FrameSamples() int {
	return cfg.SampleRateHz * cfg.FrameDurationMs / 1000
}

// Source opens microphone input streams. A single Source may back multiple
// sessions, though the pipeline's default topology opens exactly one.
type Source interface {
	// Open starts capturing audio in the given format and returns a
	// [Stream] positioned at the current input. Open failure is treated
	// as fatal by AudioStreamer.
	Open(ctx context.Context, cfg Config) (Stream, error)
}

// Stream is one open capture session. Stream is NOT safe for concurrent
// use — AudioStreamer reads from a single goroutine.
type Stream interface {
	// Read blocks until one frame of cfg.FrameSamples() 16-bit signed PCM
	// samples is available, or ctx is done. A transient read error is
	// non-fatal; AudioStreamer logs and continues.
	Read(ctx context.Context) ([]int16, error)

	// Close releases the underlying device.
	Close() error
}

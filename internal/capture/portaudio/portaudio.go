// Package portaudio captures microphone audio via cgo bindings to the
// system PortAudio library.
//
// Building this package requires PortAudio's development headers
// (pkg-config name portaudio-2.0) to be installed on the host; there is no
// portable Go module for it, so it is wired directly rather than through
// go.mod.
package portaudio

/*
#cgo pkg-config: portaudio-2.0

#include <portaudio.h>

static PaError pa_open_default_input(void **stream, int channels, double sampleRate,
                                      unsigned long framesPerBuffer) {
    return Pa_OpenDefaultStream((PaStream**)stream, channels, 0, paInt16, sampleRate,
                                framesPerBuffer, NULL, NULL);
}

static PaError pa_start_stream(void *stream)  { return Pa_StartStream((PaStream*)stream); }
static PaError pa_stop_stream(void *stream)   { return Pa_StopStream((PaStream*)stream); }
static PaError pa_close_stream(void *stream)  { return Pa_CloseStream((PaStream*)stream); }
static PaError pa_read_stream(void *stream, void *buffer, unsigned long frames) {
    return Pa_ReadStream((PaStream*)stream, buffer, frames);
}
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/mdonmez/autoso/internal/capture"
)

var (
	initOnce sync.Once
	initErr  error
)

func paError(code C.PaError) error {
	if code == C.paNoError {
		return nil
	}
	return errors.New(C.GoString(C.Pa_GetErrorText(code)))
}

func initialize() error {
	initOnce.Do(func() {
		initErr = paError(C.Pa_Initialize())
	})
	return initErr
}

// Source opens the host's default microphone device via PortAudio.
type Source struct{}

var _ capture.Source = Source{}

// Open implements [capture.Source].
func (Source) Open(ctx context.Context, cfg capture.Config) (capture.Stream, error) {
	if err := initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}

	framesPerBuffer := C.ulong(cfg.FrameSamples())

	var raw unsafe.Pointer
	if err := paError(C.pa_open_default_input(&raw, C.int(cfg.Channels), C.double(cfg.SampleRateHz), framesPerBuffer)); err != nil {
		return nil, fmt.Errorf("portaudio: open default input: %w", err)
	}
	if err := paError(C.pa_start_stream(raw)); err != nil {
		C.pa_close_stream(raw)
		return nil, fmt.Errorf("portaudio: start stream: %w", err)
	}

	return &stream{raw: raw, frames: int(framesPerBuffer)}, nil
}

type stream struct {
	raw    unsafe.Pointer
	frames int

	mu     sync.Mutex
	closed bool
}

var _ capture.Stream = (*stream)(nil)

// Read implements [capture.Stream]. PortAudio's blocking read has no
// context support, so ctx is only checked before issuing the read.
func (s *stream) Read(ctx context.Context) ([]int16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("portaudio: stream closed")
	}

	buf := make([]int16, s.frames)
	if err := paError(C.pa_read_stream(s.raw, unsafe.Pointer(&buf[0]), C.ulong(s.frames))); err != nil {
		return nil, fmt.Errorf("portaudio: read: %w", err)
	}
	return buf, nil
}

// Close implements [capture.Stream].
func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := paError(C.pa_stop_stream(s.raw)); err != nil {
		C.pa_close_stream(s.raw)
		return fmt.Errorf("portaudio: stop stream: %w", err)
	}
	return paError(C.pa_close_stream(s.raw))
}

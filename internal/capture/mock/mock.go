// Package mock provides test doubles for the capture package interfaces.
//
// Use Source to verify that streams are opened with the expected Config.
// Use Stream to script a sequence of frames (or errors) returned from Read.
package mock

import (
	"context"
	"sync"

	"github.com/mdonmez/autoso/internal/capture"
)

// OpenCall records a single invocation of Source.Open.
type OpenCall struct {
	Cfg capture.Config
}

// Source is a mock implementation of capture.Source.
type Source struct {
	mu sync.Mutex

	// Stream is the Stream returned by Open. If nil, Open returns a new
	// default Stream.
	Stream capture.Stream

	// OpenErr, if non-nil, is returned as the error from Open.
	OpenErr error

	OpenCalls []OpenCall
}

var _ capture.Source = (*Source)(nil)

// Open records the call and returns Stream, OpenErr.
func (s *Source) Open(_ context.Context, cfg capture.Config) (capture.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.OpenCalls = append(s.OpenCalls, OpenCall{Cfg: cfg})
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	if s.Stream != nil {
		return s.Stream, nil
	}
	return &Stream{}, nil
}

// Stream is a mock implementation of capture.Stream.
type Stream struct {
	mu sync.Mutex

	// Frames is returned in order, one per call to Read; once exhausted,
	// Read blocks until ctx is done.
	Frames [][]int16

	// ReadErr, if non-nil, is returned by the call immediately following
	// the last scripted frame.
	ReadErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	ReadCallCount  int
	CloseCallCount int

	next int
}

var _ capture.Stream = (*Stream)(nil)

// Read returns the next scripted frame, ReadErr once frames are exhausted,
// or blocks on ctx when both are exhausted.
func (s *Stream) Read(ctx context.Context) ([]int16, error) {
	s.mu.Lock()
	if s.next < len(s.Frames) {
		frame := s.Frames[s.next]
		s.next++
		s.ReadCallCount++
		s.mu.Unlock()
		return frame, nil
	}
	var err error
	if s.next == len(s.Frames) {
		err = s.ReadErr
	}
	s.next++
	s.ReadCallCount++
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	<-ctx.Done()
	return nil, ctx.Err()
}

// Close records the call and returns CloseErr.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return s.CloseErr
}

// CloseCalls returns the number of Close calls so far. Safe to poll from a
// test goroutine while the stream is in use.
func (s *Stream) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CloseCallCount
}

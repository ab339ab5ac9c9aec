// Package mock provides test doubles for the vad package interfaces.
//
// Use Engine to verify that sessions are created with the expected Config.
// Use Session to inject Event responses and inspect the frames submitted
// for processing.
package mock

import (
	"sync"

	"github.com/mdonmez/autoso/internal/vad"
)

// NewSessionCall records a single invocation of Engine.NewSession.
type NewSessionCall struct {
	Cfg vad.Config
}

// Engine is a mock implementation of vad.Engine.
type Engine struct {
	mu sync.Mutex

	// Session is the Session returned by NewSession. If nil, NewSession
	// returns a new default Session.
	Session vad.Session

	// NewSessionErr, if non-nil, is returned as the error from NewSession.
	NewSessionErr error

	// NewSessionCalls records every call to NewSession in order.
	NewSessionCalls []NewSessionCall
}

var _ vad.Engine = (*Engine)(nil)

// NewSession records the call and returns Session, NewSessionErr.
func (e *Engine) NewSession(cfg vad.Config) (vad.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.NewSessionCalls = append(e.NewSessionCalls, NewSessionCall{Cfg: cfg})
	if e.NewSessionErr != nil {
		return nil, e.NewSessionErr
	}
	if e.Session != nil {
		return e.Session, nil
	}
	return &Session{}, nil
}

// FeedCall records a single invocation of Session.Feed.
type FeedCall struct {
	Frame []int16
}

// Session is a mock implementation of vad.Session.
type Session struct {
	mu sync.Mutex

	// Events is returned in order, one per call to Feed; once exhausted,
	// Feed returns an EventSilenceFrame event.
	Events []vad.Event

	// FeedErr, if non-nil, is returned by every Feed call.
	FeedErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	FeedCalls      []FeedCall
	CloseCallCount int

	next int
}

var _ vad.Session = (*Session)(nil)

// Feed records the call and returns the next scripted Event.
func (s *Session) Feed(frame []int16) (vad.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]int16, len(frame))
	copy(cp, frame)
	s.FeedCalls = append(s.FeedCalls, FeedCall{Frame: cp})
	if s.FeedErr != nil {
		return vad.Event{}, s.FeedErr
	}
	if s.next >= len(s.Events) {
		return vad.Event{Type: vad.EventSilenceFrame}, nil
	}
	ev := s.Events[s.next]
	s.next++
	return ev, nil
}

// Close records the call and returns CloseErr.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return s.CloseErr
}

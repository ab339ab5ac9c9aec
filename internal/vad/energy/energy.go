// Package energy implements vad.Engine with a simple RMS energy
// threshold: a frame is speech when its root-mean-square sample energy
// exceeds a fixed threshold. An RMS gate is crude next to a model-based
// detector, but it needs no model assets, adds no latency, and exposes the
// one continuous dial operators actually adjust; vad/mock exists for tests
// that need deterministic behavior instead.
package energy

import (
	"fmt"
	"math"

	"github.com/mdonmez/autoso/internal/vad"
)

// defaultThreshold is the RMS energy (in 16-bit PCM sample units) above
// which a frame is classified as speech.
const defaultThreshold = 300.0

// Option configures an Engine.
type Option func(*Engine)

// WithThreshold overrides the default RMS energy threshold.
func WithThreshold(threshold float64) Option {
	return func(e *Engine) { e.threshold = threshold }
}

// Engine implements vad.Engine using a fixed RMS threshold.
type Engine struct {
	threshold float64
}

var _ vad.Engine = (*Engine)(nil)

// New returns a ready-to-use Engine.
func New(opts ...Option) *Engine {
	e := &Engine{threshold: defaultThreshold}
	for _, o := range opts {
		o(e)
	}
	return e
}

// NewSession starts a new VAD session.
func (e *Engine) NewSession(cfg vad.Config) (vad.Session, error) {
	if cfg.HangoverFrames < 0 {
		return nil, fmt.Errorf("vad/energy: hangover frames must be non-negative, got %d", cfg.HangoverFrames)
	}
	return &session{engine: e, cfg: cfg}, nil
}

// session implements vad.Session: it buffers speech samples across the
// run and emits EventUtteranceEnd once HangoverFrames consecutive silent
// frames follow a speech run.
type session struct {
	engine *Engine
	cfg    vad.Config

	buffer       []int16
	hadSpeech    bool
	silentFrames int
}

var _ vad.Session = (*session)(nil)

// Feed classifies frame and updates the session's buffered utterance
// state.
func (s *session) Feed(frame []int16) (vad.Event, error) {
	rms := computeRMS(frame)

	if rms < s.engine.threshold {
		if !s.hadSpeech {
			return vad.Event{Type: vad.EventSilenceFrame}, nil
		}
		s.buffer = append(s.buffer, frame...)
		s.silentFrames++
		if s.silentFrames >= s.cfg.HangoverFrames {
			audio := s.buffer
			s.buffer = nil
			s.hadSpeech = false
			s.silentFrames = 0
			return vad.Event{Type: vad.EventUtteranceEnd, Audio: audio}, nil
		}
		return vad.Event{Type: vad.EventSilenceFrame}, nil
	}

	s.hadSpeech = true
	s.silentFrames = 0
	s.buffer = append(s.buffer, frame...)
	return vad.Event{Type: vad.EventSpeechFrame}, nil
}

// Close releases the session's buffered audio.
func (s *session) Close() error {
	s.buffer = nil
	return nil
}

// computeRMS returns the root-mean-square energy of a 16-bit PCM frame.
// Returns 0 for an empty frame.
func computeRMS(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, sample := range frame {
		v := float64(sample)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}

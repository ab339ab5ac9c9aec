// Package streamer implements AudioStreamer: it captures microphone audio,
// segments it into fixed-duration frames, gates each frame through voice
// activity detection, and forwards speech-bearing frames to a bounded
// queue for RecognizerWorker.
package streamer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mdonmez/autoso/internal/activation"
	"github.com/mdonmez/autoso/internal/capture"
	"github.com/mdonmez/autoso/internal/vad"
)

// Frame is one speech-bearing unit of audio placed onto the pipeline's
// audio_q. UtteranceEnd marks the frame at which RecognizerWorker should
// reset the utterance buffered so far; the utterance's audio has already
// arrived through the preceding frames, so RecognizerWorker only needs to
// react to the flag.
type Frame struct {
	Samples      []int16
	CapturedAt   time.Time
	UtteranceEnd bool
}

// Config configures a Streamer.
type Config struct {
	Capture capture.Config
	VAD     vad.Config

	// QueueCapacity bounds the audio_q channel returned by [Streamer.Run].
	// A full queue drops the newest frame; capture must never block.
	QueueCapacity int
}

// Streamer is AudioStreamer: it owns the capture device and VAD session
// for one presentation session and emits gated frames on a bounded queue.
type Streamer struct {
	source capture.Source
	engine vad.Engine
	cfg    Config
	logger *slog.Logger

	framesCaptured func()
	framesDropped  func()
}

// Option configures a Streamer.
type Option func(*Streamer)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Streamer) { s.logger = logger }
}

// WithFramesCapturedCounter registers a callback invoked once per frame
// successfully read from the capture device (speech or silence, before
// the VAD gate). Used to wire an observability counter without coupling
// this package to internal/observe.
func WithFramesCapturedCounter(fn func()) Option {
	return func(s *Streamer) { s.framesCaptured = fn }
}

// WithFramesDroppedCounter registers a callback invoked once per frame
// dropped because audio_q was full.
func WithFramesDroppedCounter(fn func()) Option {
	return func(s *Streamer) { s.framesDropped = fn }
}

// New creates a Streamer. source and engine are injected capabilities;
// cfg.Capture and cfg.VAD configure the device and detector respectively.
func New(source capture.Source, engine vad.Engine, cfg Config, opts ...Option) *Streamer {
	s := &Streamer{
		source: source,
		engine: engine,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("component", "streamer")
	return s
}

// Run drives the AudioStreamer lifecycle against act: it opens the capture
// device and begins emitting frames on the returned channel after an
// [activation.EventStart] and stops (closing the device, but not the
// channel) after an [activation.EventStop], repeating for as many
// start/stop cycles as act delivers. Run returns when ctx is done or act's
// event channel closes.
//
// Device-open failure is fatal and ends the stream. Transient capture
// read errors are logged and skipped.
func (s *Streamer) Run(ctx context.Context, act activation.Activation) (<-chan Frame, error) {
	out := make(chan Frame, max(s.cfg.QueueCapacity, 1))

	go func() {
		defer close(out)

		var (
			sessionCancel context.CancelFunc
			sessionDone   chan error
		)
		stopSession := func() {
			if sessionCancel == nil {
				return
			}
			sessionCancel()
			<-sessionDone
			sessionCancel = nil
			sessionDone = nil
		}
		defer stopSession()

		for {
			// A nil sessionDone blocks its case forever, so the select only
			// observes session exit while one is running.
			select {
			case <-ctx.Done():
				return
			case err := <-sessionDone:
				sessionCancel()
				sessionCancel = nil
				sessionDone = nil
				if err != nil && !errors.Is(err, context.Canceled) {
					s.logger.Error("capture session ended with error", "error", err)
					return
				}
			case ev, ok := <-act.Events():
				if !ok {
					return
				}
				switch ev.Type {
				case activation.EventStart:
					if sessionCancel != nil {
						continue // already capturing; start is idempotent
					}
					sctx, cancel := context.WithCancel(ctx)
					done := make(chan error, 1)
					go func() { done <- s.captureSession(sctx, out) }()
					sessionCancel = cancel
					sessionDone = done
				case activation.EventStop:
					stopSession()
				}
			}
		}
	}()

	return out, nil
}

// captureSession runs one start-to-stop capture session: open the device,
// open a VAD session, and feed frames to out until ctx is done.
func (s *Streamer) captureSession(ctx context.Context, out chan<- Frame) error {
	stream, err := s.source.Open(ctx, s.cfg.Capture)
	if err != nil {
		return fmt.Errorf("streamer: open capture device: %w", err)
	}
	defer stream.Close()

	session, err := s.engine.NewSession(s.cfg.VAD)
	if err != nil {
		return fmt.Errorf("streamer: new VAD session: %w", err)
	}
	defer session.Close()

	s.logger.Info("capture session started")
	defer s.logger.Info("capture session stopped")

	// afterSpeech absorbs VAD flicker inside an utterance: one silent frame
	// immediately following speech is still forwarded so the recognizer
	// sees the trailing audio.
	afterSpeech := false
	for {
		samples, err := stream.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("transient capture read error, skipping frame", "error", err)
			continue
		}
		if s.framesCaptured != nil {
			s.framesCaptured()
		}

		ev, err := session.Feed(samples)
		if err != nil {
			s.logger.Warn("vad error, dropping frame", "error", err)
			continue
		}

		capturedAt := time.Now()
		switch ev.Type {
		case vad.EventSilenceFrame:
			if afterSpeech {
				s.enqueue(out, Frame{Samples: samples, CapturedAt: capturedAt})
			}
			afterSpeech = false
		case vad.EventSpeechFrame:
			afterSpeech = true
			s.enqueue(out, Frame{Samples: samples, CapturedAt: capturedAt})
		case vad.EventUtteranceEnd:
			afterSpeech = false
			s.enqueue(out, Frame{Samples: samples, CapturedAt: capturedAt, UtteranceEnd: true})
		}
	}
}

// enqueue drops the newest frame when out is full; dropping audio beats
// stalling the capture device.
func (s *Streamer) enqueue(out chan<- Frame, f Frame) {
	select {
	case out <- f:
	default:
		if s.framesDropped != nil {
			s.framesDropped()
		}
		s.logger.Warn("audio_q full, dropping frame")
	}
}

// Package vad defines the speech-activity detection capability injected
// into AudioStreamer: a stateful per-session detector that classifies
// incoming PCM frames as speech or silence and reports utterance
// boundaries.
package vad

// Config configures a VAD session.
type Config struct {
	// SampleRateHz is the PCM sample rate of frames passed to Session.Feed.
	SampleRateHz int

	// FrameDurationMs is the expected duration of each frame passed to
	// Session.Feed. Implementations may reject frames of a different size.
	FrameDurationMs int

	// HangoverFrames is the number of consecutive silent frames required
	// after speech before an utterance is considered ended.
	HangoverFrames int
}

// EventType classifies a VAD event.
type EventType int

const (
	// EventSpeechFrame reports that the most recently fed frame contains
	// speech.
	EventSpeechFrame EventType = iota

	// EventSilenceFrame reports that the most recently fed frame is
	// silence and did not end an utterance; this includes silent frames
	// inside the hangover window following speech.
	EventSilenceFrame

	// EventUtteranceEnd reports that a speech run has ended: the hangover
	// window has elapsed with no further speech frames. The bundled
	// speech audio accompanying this event is ready to hand off for
	// transcription.
	EventUtteranceEnd
)

// Event is one classification result from Session.Feed.
type Event struct {
	Type EventType

	// Audio holds the buffered speech samples for an EventUtteranceEnd
	// event. Empty for other event types.
	Audio []int16
}

// Engine constructs VAD sessions. A single Engine may back many concurrent
// sessions (the pipeline's default topology uses exactly one).
type Engine interface {
	NewSession(cfg Config) (Session, error)
}

// Session is a single stateful VAD run over a continuous stream of
// same-sized PCM frames. Session is NOT safe for concurrent use — the
// pipeline's AudioStreamer is its only caller.
type Session interface {
	// Feed classifies one frame of 16-bit signed PCM samples and returns
	// the resulting event.
	Feed(frame []int16) (Event, error)

	// Close releases any resources held by the session.
	Close() error
}

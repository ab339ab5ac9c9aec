// Package asr defines the speech-to-text capability injected into
// RecognizerWorker. A Provider transcribes one complete utterance at a
// time: AudioStreamer's VAD session already delimits utterance boundaries,
// so the provider's only job is turning a bounded PCM buffer into text.
package asr

import "context"

// Provider transcribes a single utterance of 16-bit signed PCM samples.
//
// Implementations must be safe for concurrent use; RecognizerWorker may
// pipeline successive utterances against one shared Provider.
type Provider interface {
	// Transcribe returns the best-effort transcript for samples, or an
	// error if the backend could not produce one. language is an ISO
	// 639-1 code, or "" to use the backend's default.
	Transcribe(ctx context.Context, samples []int16, language string) (string, error)
}

// Package mock provides a test double for asr.Provider.
package mock

import (
	"context"
	"sync"

	"github.com/mdonmez/autoso/internal/asr"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	Samples  []int16
	Language string
}

// Provider returns scripted transcripts in order, one per Transcribe
// call.
type Provider struct {
	mu sync.Mutex

	// Transcripts is returned in order; once exhausted, Transcribe
	// returns "".
	Transcripts []string

	// Err, if non-nil, is returned by every Transcribe call instead of a
	// transcript.
	Err error

	Calls []TranscribeCall

	next int
}

var _ asr.Provider = (*Provider)(nil)

// Transcribe records the call and returns the next scripted transcript.
func (p *Provider) Transcribe(_ context.Context, samples []int16, language string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]int16, len(samples))
	copy(cp, samples)
	p.Calls = append(p.Calls, TranscribeCall{Samples: cp, Language: language})
	if p.Err != nil {
		return "", p.Err
	}
	if p.next >= len(p.Transcripts) {
		return "", nil
	}
	t := p.Transcripts[p.next]
	p.next++
	return t, nil
}

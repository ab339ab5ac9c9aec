// Package remote implements asr.Provider over a websocket connection to an
// external transcription backend, speaking a request/response shape: one
// utterance in, one final transcript out. AudioStreamer's VAD session, not
// the ASR backend, owns utterance buffering here.
package remote

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/mdonmez/autoso/internal/asr"
)

var _ asr.Provider = (*Provider)(nil)

// resultMessage is the wire shape expected back from the remote backend
// after sending one utterance.
type resultMessage struct {
	Text string `json:"text"`
}

// Provider implements asr.Provider by dialing a fresh websocket connection
// per Transcribe call, sending the PCM payload as one binary message, and
// waiting for a single JSON result message in reply.
type Provider struct {
	baseURL string
	apiKey  string
}

// New returns a Provider that dials baseURL (a ws:// or wss:// endpoint)
// for each utterance, authenticating with apiKey when non-empty.
func New(baseURL, apiKey string) *Provider {
	return &Provider{baseURL: baseURL, apiKey: apiKey}
}

// Transcribe dials the remote backend, streams samples as 16-bit
// little-endian PCM, and returns the single transcript it replies with.
func (p *Provider) Transcribe(ctx context.Context, samples []int16, language string) (string, error) {
	u, err := p.buildURL(language)
	if err != nil {
		return "", fmt.Errorf("asr/remote: build url: %w", err)
	}

	headers := http.Header{}
	if p.apiKey != "" {
		headers.Set("Authorization", "Bearer "+p.apiKey)
	}

	conn, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		return "", fmt.Errorf("asr/remote: dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "transcription complete")

	payload := int16ToLEBytes(samples)
	if err := conn.Write(ctx, websocket.MessageBinary, payload); err != nil {
		return "", fmt.Errorf("asr/remote: write audio: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"finalize"}`)); err != nil {
		return "", fmt.Errorf("asr/remote: write finalize: %w", err)
	}

	_, msg, err := conn.Read(ctx)
	if err != nil {
		return "", fmt.Errorf("asr/remote: read result: %w", err)
	}
	var result resultMessage
	if err := json.Unmarshal(msg, &result); err != nil {
		return "", fmt.Errorf("asr/remote: decode result: %w", err)
	}
	return result.Text, nil
}

func (p *Provider) buildURL(language string) (string, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return "", err
	}
	if language != "" {
		q := u.Query()
		q.Set("language", language)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func int16ToLEBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(s))
	}
	return out
}

// Package remote provides a websocket-delivered Actuator: navigation
// decisions are relayed as JSON "advance" messages to a connected
// presenter-side client (a browser extension, a clicker relay) which
// performs the actual OS-level keypress injection. The core pipeline never
// touches the operating system directly.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/mdonmez/autoso/internal/actuator"
)

// advanceMessage is the wire shape sent to the connected client.
type advanceMessage struct {
	Type  string `json:"type"`
	Count uint32 `json:"count"`
}

// Actuator delivers Advance calls as JSON text messages over a single
// websocket connection, dialed once at construction and held for the
// session's lifetime.
type Actuator struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

var _ actuator.Actuator = (*Actuator)(nil)

// Dial connects to a websocket endpoint that will receive advance
// messages. headers may carry authentication (e.g. a bearer token).
func Dial(ctx context.Context, url string, headers http.Header) (*Actuator, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		return nil, fmt.Errorf("actuator/remote: dial: %w", err)
	}
	return &Actuator{conn: conn}, nil
}

// Advance sends an {"type":"advance","count":N} message to the connected
// client.
func (a *Actuator) Advance(ctx context.Context, count uint32) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return fmt.Errorf("actuator/remote: session is closed")
	}
	a.mu.Unlock()

	payload, err := json.Marshal(advanceMessage{Type: "advance", Count: count})
	if err != nil {
		return fmt.Errorf("actuator/remote: marshal: %w", err)
	}
	if err := a.conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return fmt.Errorf("actuator/remote: write: %w", err)
	}
	return nil
}

// Close terminates the websocket connection cleanly.
func (a *Actuator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.conn.Close(websocket.StatusNormalClosure, "session ended")
}

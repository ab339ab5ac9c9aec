package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mdonmez/autoso/internal/activation"
)

// SessionInfo holds metadata about an active presentation session.
type SessionInfo struct {
	// SessionID is the unique identifier for this session.
	SessionID string

	// CorpusName is derived from the session's transcript file name.
	CorpusName string

	// StartedAt is when the session was started.
	StartedAt time.Time

	// StartedBy identifies who started the session (an operator ID, or ""
	// when started by an unattended process).
	StartedBy string
}

// SessionManager enforces that at most one presentation session runs at a
// time and wraps an [App]'s Run lifecycle with Start/Stop semantics. Only
// one session can be active at a time (enforced by mutex). All exported
// methods are safe for concurrent use.
type SessionManager struct {
	mu     sync.Mutex
	active bool
	info   SessionInfo
	cancel context.CancelFunc
	runErr chan error

	// closers are called in reverse order during Stop.
	closers []func() error

	app        *App
	activation activation.Activation
	corpusName string
}

// SessionManagerConfig holds all dependencies for a [SessionManager].
type SessionManagerConfig struct {
	// App is the pipeline to run for the session's lifetime.
	App *App

	// Activation gates the AudioStreamer's capture on/off within a running
	// session (e.g. a SIGUSR1 toggle or a manually driven test double).
	Activation activation.Activation

	// CorpusName labels the session in logs and SessionInfo, e.g. derived
	// from the configured transcript file's base name.
	CorpusName string
}

// NewSessionManager creates a SessionManager with the given dependencies.
func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	return &SessionManager{
		app:        cfg.App,
		activation: cfg.Activation,
		corpusName: cfg.CorpusName,
	}
}

// Start begins a new presentation session: it runs the wrapped App's
// pipeline in the background until Stop is called or the pipeline exits on
// its own (a fatal device or circuit-breaker error).
//
// Returns an error if a session is already active.
func (sm *SessionManager) Start(_ context.Context, startedBy string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.active {
		return fmt.Errorf("session: a session is already active (id=%s)", sm.info.SessionID)
	}

	now := time.Now().UTC()
	sessionID := fmt.Sprintf("session-%s-%s", sanitizeName(sm.corpusName), uuid.NewString()[:8])

	sessionCtx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)

	go func() {
		runErr <- sm.app.Run(sessionCtx, sm.activation)
	}()

	sm.active = true
	sm.cancel = cancel
	sm.runErr = runErr
	sm.closers = []func() error{sm.app.Close}
	sm.info = SessionInfo{
		SessionID:  sessionID,
		CorpusName: sm.corpusName,
		StartedAt:  now,
		StartedBy:  startedBy,
	}

	slog.Info("session started",
		"session_id", sessionID,
		"corpus", sm.corpusName,
		"started_by", startedBy,
	)

	return nil
}

// Stop gracefully ends the active session: it cancels the pipeline's
// context, waits (bounded by stopTimeout) for Run to return, and runs
// teardown closers.
//
// Returns an error if no session is active.
func (sm *SessionManager) Stop(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.active {
		return fmt.Errorf("session: no active session to stop")
	}

	sessionID := sm.info.SessionID

	sm.cancel()

	select {
	case err := <-sm.runErr:
		if err != nil {
			slog.Warn("session: pipeline returned an error on stop", "session_id", sessionID, "err", err)
		}
	case <-time.After(stopTimeout):
		slog.Warn("session: pipeline did not stop within timeout", "session_id", sessionID)
	case <-ctx.Done():
	}

	for i := len(sm.closers) - 1; i >= 0; i-- {
		if err := sm.closers[i](); err != nil {
			slog.Warn("session: closer error", "session_id", sessionID, "index", i, "err", err)
		}
	}

	sm.active = false
	sm.cancel = nil
	sm.runErr = nil
	sm.closers = nil
	sm.info = SessionInfo{}

	slog.Info("session stopped", "session_id", sessionID)

	return nil
}

// stopTimeout bounds how long Stop waits for the pipeline goroutine to
// return before proceeding with teardown regardless.
const stopTimeout = 10 * time.Second

// IsActive reports whether a session is currently running.
func (sm *SessionManager) IsActive() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.active
}

// Info returns metadata about the active session.
// Returns the zero value if no session is active.
func (sm *SessionManager) Info() SessionInfo {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.info
}

// CorpusNameFromPath derives a CorpusName from a transcript file path, for
// callers that want a sensible default without inventing their own label.
func CorpusNameFromPath(transcriptPath string) string {
	base := filepath.Base(transcriptPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimSuffix(base, "_transcript")
	if base == "" || base == "." {
		return "default"
	}
	return base
}

// sanitizeName replaces spaces with hyphens and lowercases a name for use
// in session IDs.
func sanitizeName(name string) string {
	if name == "" {
		name = "default"
	}
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "-")
	return name
}

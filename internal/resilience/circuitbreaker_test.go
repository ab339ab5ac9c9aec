package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBackend = errors.New("backend down")

func open(t *testing.T, b *Breaker, failures int) {
	t.Helper()
	for i := 0; i < failures; i++ {
		_ = b.Execute(func() error { return errBackend })
	}
	if got := b.State(); got != StateOpen {
		t.Fatalf("state = %v after %d failures, want open", got, failures)
	}
}

func TestExecute_ForwardsCallsWhileClosed(t *testing.T) {
	b := New(Config{Name: "asr"})

	called := false
	if err := b.Execute(func() error { called = true; return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("fn was not called")
	}
}

func TestExecute_ReturnsBackendErrorUnchanged(t *testing.T) {
	b := New(Config{Name: "asr", MaxFailures: 3})

	err := b.Execute(func() error { return errBackend })
	if !errors.Is(err, errBackend) {
		t.Fatalf("err = %v, want the backend error", err)
	}
	if errors.Is(err, ErrCircuitOpen) {
		t.Fatal("a forwarded failure must not look like a rejection")
	}
}

func TestExecute_OpensAfterConsecutiveFailures(t *testing.T) {
	b := New(Config{Name: "asr", MaxFailures: 3, ResetTimeout: time.Hour})
	open(t, b, 3)

	err := b.Execute(func() error { t.Fatal("must not reach the backend"); return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestExecute_SuccessClearsFailureStreak(t *testing.T) {
	b := New(Config{Name: "asr", MaxFailures: 3})

	_ = b.Execute(func() error { return errBackend })
	_ = b.Execute(func() error { return errBackend })
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errBackend })
	_ = b.Execute(func() error { return errBackend })

	if got := b.State(); got != StateClosed {
		t.Fatalf("state = %v, want closed: the streak restarted after a success", got)
	}
}

func TestExecute_SuccessfulProbeClosesBreaker(t *testing.T) {
	b := New(Config{Name: "asr", MaxFailures: 2, ResetTimeout: 10 * time.Millisecond})
	open(t, b, 2)

	time.Sleep(15 * time.Millisecond)
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("state = %v, want half-open after the reset timeout", got)
	}

	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe call failed: %v", err)
	}
	if got := b.State(); got != StateClosed {
		t.Fatalf("state = %v, want closed after a successful probe", got)
	}
}

func TestExecute_FailedProbeReopensBreaker(t *testing.T) {
	b := New(Config{Name: "asr", MaxFailures: 2, ResetTimeout: 10 * time.Millisecond})
	open(t, b, 2)

	time.Sleep(15 * time.Millisecond)
	if err := b.Execute(func() error { return errBackend }); !errors.Is(err, errBackend) {
		t.Fatalf("err = %v, want the probe's backend error", err)
	}

	// Re-opened with a fresh timeout: calls are rejected again.
	err := b.Execute(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen after a failed probe", err)
	}
}

func TestExecute_AdmitsOnlyOneProbe(t *testing.T) {
	b := New(Config{Name: "asr", MaxFailures: 2, ResetTimeout: 10 * time.Millisecond})
	open(t, b, 2)

	time.Sleep(15 * time.Millisecond)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = b.Execute(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	// While the probe is in flight, further calls are rejected.
	err := b.Execute(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen while probing", err)
	}
	close(release)
}

func TestReset_ForcesClosed(t *testing.T) {
	b := New(Config{Name: "asr", MaxFailures: 2, ResetTimeout: time.Hour})
	open(t, b, 2)

	b.Reset()
	if got := b.State(); got != StateClosed {
		t.Fatalf("state = %v, want closed after Reset", got)
	}
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("unexpected error after Reset: %v", err)
	}
}

func TestState_String(t *testing.T) {
	for _, tt := range []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(42), "unknown"},
	} {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

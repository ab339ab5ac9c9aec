package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func get(t *testing.T, h *Handler, path string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s response: %v", path, err)
	}
	return rec, body
}

func TestHealthz_AlwaysOK(t *testing.T) {
	rec, body := get(t, New(), "/healthz")

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body.Status != "ok" {
		t.Errorf("body status = %q, want ok", body.Status)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestHealthz_IgnoresFailingProbes(t *testing.T) {
	h := New(Checker{Name: "corpus", Check: func(context.Context) error {
		return errors.New("corpus not loaded")
	}})

	rec, _ := get(t, h, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("liveness must not depend on readiness probes, got %d", rec.Code)
	}
}

func TestReadyz_AllProbesPass(t *testing.T) {
	h := New(
		Checker{Name: "corpus", Check: func(context.Context) error { return nil }},
		Checker{Name: "providers", Check: func(context.Context) error { return nil }},
	)

	rec, body := get(t, h, "/readyz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body.Status != "ok" {
		t.Errorf("body status = %q, want ok", body.Status)
	}
	for _, name := range []string{"corpus", "providers"} {
		if body.Checks[name] != "ok" {
			t.Errorf("check %q = %q, want ok", name, body.Checks[name])
		}
	}
}

func TestReadyz_FailingProbeReturns503(t *testing.T) {
	h := New(
		Checker{Name: "corpus", Check: func(context.Context) error { return nil }},
		Checker{Name: "embedder", Check: func(context.Context) error {
			return errors.New("backend unreachable")
		}},
	)

	rec, body := get(t, h, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if body.Status != "fail" {
		t.Errorf("body status = %q, want fail", body.Status)
	}
	if body.Checks["corpus"] != "ok" {
		t.Errorf("passing check should still report ok, got %q", body.Checks["corpus"])
	}
	if body.Checks["embedder"] != "fail: backend unreachable" {
		t.Errorf("failing check = %q, want the probe error", body.Checks["embedder"])
	}
}

func TestReadyz_ProbesSeeADeadline(t *testing.T) {
	h := New(Checker{Name: "deadline", Check: func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("no deadline set")
		}
		return nil
	}})

	rec, _ := get(t, h, "/readyz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d (probe should have seen a deadline)", rec.Code, http.StatusOK)
	}
}

func TestReadyz_NoProbesIsReady(t *testing.T) {
	rec, body := get(t, New(), "/readyz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body.Status != "ok" {
		t.Errorf("body status = %q, want ok", body.Status)
	}
}

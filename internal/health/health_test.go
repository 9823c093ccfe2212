package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// probe invokes fn and decodes the JSON body.
func probe(t *testing.T, fn http.HandlerFunc, path string) (int, probeResult) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	fn(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
	var res probeResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec.Code, res
}

func passing(name string) Checker {
	return Checker{Name: name, Check: func(context.Context) error { return nil }}
}

func failing(name, msg string) Checker {
	return Checker{Name: name, Check: func(context.Context) error { return errors.New(msg) }}
}

func TestHealthz_AlwaysOK(t *testing.T) {
	t.Parallel()

	// Liveness ignores dependency state entirely.
	h := New(failing("postgres", "connection refused"))

	code, res := probe(t, h.Healthz, "/healthz")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want %d", code, http.StatusOK)
	}
	if res.Status != "ok" {
		t.Errorf("body status = %q, want %q", res.Status, "ok")
	}
	if len(res.Checks) != 0 {
		t.Errorf("healthz reported checks: %v", res.Checks)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		checkers   []Checker
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "no checkers",
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name:       "all pass",
			checkers:   []Checker{passing("postgres"), passing("embeddings")},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantChecks: map[string]string{"postgres": "ok", "embeddings": "ok"},
		},
		{
			name:       "one fails",
			checkers:   []Checker{passing("embeddings"), failing("postgres", "connection refused")},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "fail",
			wantChecks: map[string]string{
				"embeddings": "ok",
				"postgres":   "fail: connection refused",
			},
		},
		{
			name:       "all fail",
			checkers:   []Checker{failing("postgres", "down"), failing("spacy", "timeout")},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "fail",
			wantChecks: map[string]string{
				"postgres": "fail: down",
				"spacy":    "fail: timeout",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, res := probe(t, New(tt.checkers...).Readyz, "/readyz")
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d", code, tt.wantCode)
			}
			if res.Status != tt.wantStatus {
				t.Errorf("body status = %q, want %q", res.Status, tt.wantStatus)
			}
			if len(res.Checks) != len(tt.wantChecks) {
				t.Fatalf("checks = %v, want %v", res.Checks, tt.wantChecks)
			}
			for name, want := range tt.wantChecks {
				if got := res.Checks[name]; got != want {
					t.Errorf("check %q = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestReadyz_ChecksRunConcurrently(t *testing.T) {
	t.Parallel()

	// Two checks that each block until the other has started can only
	// both complete if Readyz fans them out.
	first := make(chan struct{})
	second := make(chan struct{})
	h := New(
		Checker{Name: "a", Check: func(ctx context.Context) error {
			close(first)
			select {
			case <-second:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}},
		Checker{Name: "b", Check: func(ctx context.Context) error {
			close(second)
			select {
			case <-first:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}},
	)

	code, res := probe(t, h.Readyz, "/readyz")
	if code != http.StatusOK {
		t.Fatalf("status = %d, body %+v", code, res)
	}
}

func TestReadyz_CancelledRequestContext(t *testing.T) {
	t.Parallel()

	h := New(Checker{Name: "postgres", Check: func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Second):
			return nil
		}
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestRegister_MountsProbeRoutes(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	New(passing("postgres")).Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

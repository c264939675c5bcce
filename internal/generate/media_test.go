package generate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type instantSleeper struct {
	slept int
}

func (s *instantSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.slept++
	return ctx.Err()
}

// fakeMediaBackend serves the create/poll contract, walking through the
// scripted statuses one poll at a time.
type fakeMediaBackend struct {
	t        *testing.T
	statuses []string
	output   any
	polls    int
}

func (f *fakeMediaBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/predictions", func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Token test-token" {
			f.t.Errorf("unexpected Authorization header: %q", auth)
		}
		f.respond(w, f.statuses[0])
	})
	mux.HandleFunc("GET /v1/predictions/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.polls++
		idx := f.polls
		if idx >= len(f.statuses) {
			idx = len(f.statuses) - 1
		}
		f.respond(w, f.statuses[idx])
	})
	return mux
}

func (f *fakeMediaBackend) respond(w http.ResponseWriter, status string) {
	resp := map[string]any{"id": "job-1", "status": status}
	if status == "succeeded" && f.output != nil {
		resp["output"] = f.output
	}
	if status == "failed" {
		resp["error"] = "NSFW content detected"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func newTestMediaClient(t *testing.T, backend *fakeMediaBackend, maxAttempts int) (*MediaClient, *instantSleeper) {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	sleeper := &instantSleeper{}
	client := NewMediaClient(MediaConfig{
		BaseURL:      srv.URL,
		APIToken:     "test-token",
		ModelVersion: "test-model",
		PollInterval: time.Millisecond,
		MaxAttempts:  maxAttempts,
	}, "").WithSleeper(sleeper)
	return client, sleeper
}

func TestMediaClientImmediateSuccess(t *testing.T) {
	backend := &fakeMediaBackend{t: t, statuses: []string{"succeeded"}, output: []string{"https://cdn.example/bg.webp"}}
	client, sleeper := newTestMediaClient(t, backend, 5)

	uri, err := client.Generate(context.Background(), Request{Prompt: "ocean"})
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if uri != "https://cdn.example/bg.webp" {
		t.Fatalf("unexpected uri: %s", uri)
	}
	if sleeper.slept != 0 {
		t.Fatalf("expected no sleeps for immediate success, got %d", sleeper.slept)
	}
}

func TestMediaClientSlowSuccess(t *testing.T) {
	backend := &fakeMediaBackend{
		t:        t,
		statuses: []string{"starting", "processing", "processing", "succeeded"},
		output:   "https://cdn.example/one.webp",
	}
	client, _ := newTestMediaClient(t, backend, 10)

	uri, err := client.Generate(context.Background(), Request{Prompt: "forest"})
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if uri != "https://cdn.example/one.webp" {
		t.Fatalf("unexpected uri: %s", uri)
	}
	if backend.polls != 3 {
		t.Fatalf("expected 3 polls, got %d", backend.polls)
	}
}

func TestMediaClientTimeoutAfterAttemptBudget(t *testing.T) {
	backend := &fakeMediaBackend{t: t, statuses: []string{"processing"}}
	client, sleeper := newTestMediaClient(t, backend, 4)

	_, err := client.Generate(context.Background(), Request{Prompt: "stars"})

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if genErr.Kind != ErrTimeout {
		t.Fatalf("Kind = %s, want %s", genErr.Kind, ErrTimeout)
	}
	if sleeper.slept != 4 {
		t.Fatalf("expected 4 bounded sleeps, got %d", sleeper.slept)
	}
}

func TestMediaClientTerminalFailure(t *testing.T) {
	backend := &fakeMediaBackend{t: t, statuses: []string{"starting", "failed"}}
	client, _ := newTestMediaClient(t, backend, 5)

	_, err := client.Generate(context.Background(), Request{Prompt: "garden"})

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if genErr.Kind != ErrRemoteFailure {
		t.Fatalf("Kind = %s, want %s", genErr.Kind, ErrRemoteFailure)
	}
}

func TestMediaClientCanceledJobIsFailure(t *testing.T) {
	backend := &fakeMediaBackend{t: t, statuses: []string{"starting", "canceled"}}
	client, _ := newTestMediaClient(t, backend, 5)

	_, err := client.Generate(context.Background(), Request{Prompt: "garden"})

	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.Kind != ErrRemoteFailure {
		t.Fatalf("expected remote_failure for canceled job, got %v", err)
	}
}

func TestMediaClientSucceededWithoutOutput(t *testing.T) {
	backend := &fakeMediaBackend{t: t, statuses: []string{"succeeded"}}
	client, _ := newTestMediaClient(t, backend, 5)

	_, err := client.Generate(context.Background(), Request{Prompt: "cosmos"})

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if genErr.Kind != ErrMissingOutput {
		t.Fatalf("Kind = %s, want %s", genErr.Kind, ErrMissingOutput)
	}
}

func TestVendorStatusMapping(t *testing.T) {
	cases := []struct {
		raw  string
		want JobStatus
	}{
		{"starting", StatusQueued},
		{"queued", StatusQueued},
		{"processing", StatusRunning},
		{"succeeded", StatusSucceeded},
		{"canceled", StatusCanceled},
		{"failed", StatusFailed},
		{"weird", StatusFailed},
	}
	for _, tc := range cases {
		if got := vendorStatus(tc.raw); got != tc.want {
			t.Fatalf("vendorStatus(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

package webex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestSession builds a session against srv with instant sleeps, recording
// each backoff duration into the returned slice.
func newTestSession(srv *httptest.Server, opts ...Option) (*Session, *[]time.Duration) {
	slept := &[]time.Duration{}
	cfg := DefaultSessionConfig()
	cfg.BaseURL = srv.URL
	cfg.Authorization = "test-token"
	all := append([]Option{WithSleep(func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	})}, opts...)
	return NewSession(cfg, testLogger(), all...), slept
}

func TestPages_SinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	s, _ := newTestSession(srv)
	pages := s.Get(context.Background(), "people")

	var bodies []string
	for pages.Next() {
		bodies = append(bodies, string(pages.Page().Body))
	}
	if err := pages.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bodies) != 1 || bodies[0] != `{"ok":true}` {
		t.Errorf("bodies = %v, want one page", bodies)
	}
}

func TestPages_FollowsLinkHeader(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/people":
			w.Header().Set("Link", fmt.Sprintf(`<%s/people2>; rel="next"`, srv.URL))
			fmt.Fprint(w, `{"page":1}`)
		case "/people2":
			// Relative next link resolves against the base URL.
			w.Header().Set("Link", `<people3>; rel="next"`)
			fmt.Fprint(w, `{"page":2}`)
		case "/people3":
			fmt.Fprint(w, `{"page":3}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	s, _ := newTestSession(srv)
	pages := s.Get(context.Background(), "people")

	var got []string
	for pages.Next() {
		got = append(got, string(pages.Page().Body))
	}
	if err := pages.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{`{"page":1}`, `{"page":2}`, `{"page":3}`}
	if len(got) != len(want) {
		t.Fatalf("pages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("page %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestPages_RepeatingNextLinkTerminates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Always point back at ourselves.
		w.Header().Set("Link", `<people>; rel="next"`)
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	s, _ := newTestSession(srv)
	pages := s.Get(context.Background(), "people")

	n := 0
	for pages.Next() {
		n++
		if n > 2 {
			t.Fatal("iterator did not stop on repeating next link")
		}
	}
	if pages.Err() == nil {
		t.Fatal("expected pagination loop error, got nil")
	}
	if n != 1 {
		t.Errorf("yielded %d pages, want 1", n)
	}
}

func TestPages_RetryAfter429(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	s, slept := newTestSession(srv)
	pages := s.Get(context.Background(), "people")

	if !pages.Next() {
		t.Fatalf("Next = false, err = %v", pages.Err())
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (one retry)", calls)
	}
	if len(*slept) != 1 || (*slept)[0] != 3*time.Second {
		t.Errorf("slept = %v, want [3s]", *slept)
	}
}

func TestPages_RetryAfterDefault(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests) // no Retry-After hint
			return
		}
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	s, slept := newTestSession(srv)
	pages := s.Get(context.Background(), "people")

	if !pages.Next() {
		t.Fatalf("Next = false, err = %v", pages.Err())
	}
	if len(*slept) != 1 || (*slept)[0] != 15*time.Second {
		t.Errorf("slept = %v, want [15s]", *slept)
	}
}

func TestPages_RetriesExhausted(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := DefaultSessionConfig()
	cfg.BaseURL = srv.URL
	cfg.MaxRetries = 2
	s := NewSession(cfg, testLogger(), WithSleep(func(context.Context, time.Duration) error { return nil }))

	pages := s.Get(context.Background(), "people")
	if pages.Next() {
		t.Fatal("Next = true, want exhaustion")
	}
	if !errors.Is(pages.Err(), ErrRetriesExhausted) {
		t.Fatalf("err = %v, want ErrRetriesExhausted", pages.Err())
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", calls)
	}
}

func TestPages_ProxyAuthWithoutPrompterIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusProxyAuthRequired)
	}))
	defer srv.Close()

	s, _ := newTestSession(srv)
	pages := s.Get(context.Background(), "people")
	if pages.Next() {
		t.Fatal("Next = true, want failure")
	}
	var statusErr *StatusError
	if !errors.As(pages.Err(), &statusErr) || statusErr.Status != http.StatusProxyAuthRequired {
		t.Fatalf("err = %v, want 407 StatusError", pages.Err())
	}
}

func TestPages_ProxyAuthPromptAndRetry(t *testing.T) {
	var calls int
	var gotProxyAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusProxyAuthRequired)
			return
		}
		gotProxyAuth = r.Header.Get("Proxy-Authorization")
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	prompted := 0
	s, _ := newTestSession(srv, WithProxyCredentials(func() (string, string, error) {
		prompted++
		return "alice", "s3cret", nil
	}))

	pages := s.Get(context.Background(), "people")
	if !pages.Next() {
		t.Fatalf("Next = false, err = %v", pages.Err())
	}
	if prompted != 1 {
		t.Errorf("prompted %d times, want 1", prompted)
	}
	if gotProxyAuth != basicAuth("alice", "s3cret") {
		t.Errorf("Proxy-Authorization = %q", gotProxyAuth)
	}
}

func TestPages_FatalStatusNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"no access","trackingId":"NA_abc123"}`)
	}))
	defer srv.Close()

	s, _ := newTestSession(srv)
	pages := s.Get(context.Background(), "people")
	if pages.Next() {
		t.Fatal("Next = true, want failure")
	}
	var statusErr *StatusError
	if !errors.As(pages.Err(), &statusErr) {
		t.Fatalf("err = %v, want StatusError", pages.Err())
	}
	if statusErr.Status != http.StatusForbidden || statusErr.Message != "no access" || statusErr.TrackingID != "NA_abc123" {
		t.Errorf("StatusError = %+v", statusErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry of fatal status)", calls)
	}
}

func TestPages_TransportErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	cfg := DefaultSessionConfig()
	cfg.BaseURL = srv.URL
	s := NewSession(cfg, testLogger())

	pages := s.Get(context.Background(), "people")
	if pages.Next() {
		t.Fatal("Next = true, want transport error")
	}
	if pages.Err() == nil {
		t.Fatal("expected transport error, got nil")
	}
}

func TestNormalizeURL(t *testing.T) {
	cfg := DefaultSessionConfig()
	cfg.BaseURL = "https://example.com/v1"
	s := NewSession(cfg, testLogger())

	tests := []struct {
		in   string
		want string
	}{
		{"people", "https://example.com/v1/people"},
		{"/people", "https://example.com/v1/people"},
		{"https://other.example.com/next?page=2", "https://other.example.com/next?page=2"},
	}
	for _, tt := range tests {
		if got := s.normalizeURL(tt.in); got != tt.want {
			t.Errorf("normalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNextLink(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"empty", "", ""},
		{"single next", `<https://api.example.com/p2>; rel="next"`, "https://api.example.com/p2"},
		{"multiple entries", `<https://api.example.com/p1>; rel="prev", <https://api.example.com/p3>; rel="next"`, "https://api.example.com/p3"},
		{"no next", `<https://api.example.com/p1>; rel="prev"`, ""},
		{"unquoted rel", `<https://api.example.com/p2>; rel=next`, "https://api.example.com/p2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextLink(tt.header); got != tt.want {
				t.Errorf("nextLink(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestPages_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := DefaultSessionConfig()
	cfg.BaseURL = srv.URL
	s := NewSession(cfg, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pages := s.Get(ctx, "people")
	if pages.Next() {
		t.Fatal("Next = true, want cancellation")
	}
	if !errors.Is(pages.Err(), context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", pages.Err())
	}
}

// Package webex provides the resilient HTTP access layer shared by every
// webextools workflow: a retrying, pagination-following request session, the
// resource path catalog, and access-token helpers.
package webex

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the production Webex REST API root.
const DefaultBaseURL = "https://webexapis.com/v1"

const (
	defaultMaxRetries = 6
	defaultTimeout    = 10 * time.Second

	// defaultRetryAfter applies when a 429 omits the Retry-After header.
	defaultRetryAfter = 15 * time.Second

	// maxPages caps one request cycle so a misbehaving server that keeps
	// advertising next links cannot spin the iterator forever.
	maxPages = 1000
)

// ProxyCredentialFunc supplies proxy credentials after a 407 response.
type ProxyCredentialFunc func() (username, password string, err error)

// SleepFunc blocks for the given duration or until the context is cancelled.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SessionConfig holds Webex session configuration.
type SessionConfig struct {
	BaseURL       string        // endpoint root for relative URLs
	Authorization string        // bearer token, sent on every request when set
	MaxRetries    int           // retry budget per request cycle
	Timeout       time.Duration // per-request timeout, not a budget for the whole cycle
}

// DefaultSessionConfig returns configuration pointing to the production API.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		BaseURL:    DefaultBaseURL,
		MaxRetries: defaultMaxRetries,
		Timeout:    defaultTimeout,
	}
}

// Session executes logical HTTP calls as lazy sequences of per-page
// responses, retrying on rate limits and transient proxy-auth failures.
//
// A Session carries mutable state (cookies, installed proxy credentials)
// and must not be shared across concurrently running iterations.
type Session struct {
	baseURL     string
	auth        string
	maxRetries  int
	client      *http.Client
	logger      *slog.Logger
	promptProxy ProxyCredentialFunc
	proxyAuth   string // Proxy-Authorization header value, set after a 407 prompt
	sleep       SleepFunc
}

// Option configures a Session beyond its SessionConfig.
type Option func(*Session)

// WithHTTPClient replaces the underlying HTTP client. The caller owns the
// client's timeout and cookie jar configuration.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) { s.client = c }
}

// WithProxyCredentials installs the callback invoked on a 407 response.
// Without it, proxy authentication failures are fatal.
func WithProxyCredentials(fn ProxyCredentialFunc) Option {
	return func(s *Session) { s.promptProxy = fn }
}

// WithSleep replaces the backoff sleep, used by tests to avoid real delays.
func WithSleep(fn SleepFunc) Option {
	return func(s *Session) { s.sleep = fn }
}

// NewSession creates a session from cfg. Zero-valued cfg fields fall back to
// DefaultSessionConfig values.
func NewSession(cfg SessionConfig, logger *slog.Logger, opts ...Option) *Session {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	// Cookies set by one response are replayed (newest wins) on later
	// requests within this session.
	jar, _ := cookiejar.New(nil)

	s := &Session{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		auth:       cfg.Authorization,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: cfg.Timeout, Jar: jar},
		logger:     logger.With("component", "session"),
		sleep:      sleepContext,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Page is one HTTP response within a paginated request cycle. The body is
// fully read before the page is handed out, so abandoning the iterator never
// leaves a dangling connection.
type Page struct {
	Status int
	Header http.Header
	Body   []byte
}

// Pages iterates the responses of one logical request, one element per page.
// The sequence is finite and not restartable; advancing it is the only
// trigger for further network calls. Use it like database/sql rows:
//
//	pages := session.Get(ctx, "people")
//	for pages.Next() {
//		page := pages.Page()
//		...
//	}
//	if err := pages.Err(); err != nil {
//		...
//	}
type Pages struct {
	s       *Session
	ctx     context.Context
	method  string
	url     string // next URL to fetch, empty when exhausted
	body    []byte // request body, resent on retries and follow-up pages
	page    *Page
	err     error
	retries int
	fetched int
}

// Request starts a request cycle. A non-nil body is marshaled to JSON once
// and resent on every fetch of the cycle. Relative URLs are resolved against
// the session base URL; absolute URLs are used verbatim.
func (s *Session) Request(ctx context.Context, method, rawURL string, body any) *Pages {
	p := &Pages{s: s, ctx: ctx, method: method, url: rawURL}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			p.err = fmt.Errorf("marshal request body: %w", err)
			p.url = ""
			return p
		}
		p.body = data
	}
	return p
}

// Get starts a GET request cycle.
func (s *Session) Get(ctx context.Context, url string) *Pages {
	return s.Request(ctx, http.MethodGet, url, nil)
}

// Post starts a POST request cycle with a JSON body.
func (s *Session) Post(ctx context.Context, url string, body any) *Pages {
	return s.Request(ctx, http.MethodPost, url, body)
}

// Put starts a PUT request cycle with a JSON body.
func (s *Session) Put(ctx context.Context, url string, body any) *Pages {
	return s.Request(ctx, http.MethodPut, url, body)
}

// Patch starts a PATCH request cycle with a JSON body.
func (s *Session) Patch(ctx context.Context, url string, body any) *Pages {
	return s.Request(ctx, http.MethodPatch, url, body)
}

// Delete starts a DELETE request cycle.
func (s *Session) Delete(ctx context.Context, url string) *Pages {
	return s.Request(ctx, http.MethodDelete, url, nil)
}

// Next advances to the next page, fetching it from the network. It reports
// false when the sequence is exhausted or failed; check Err afterwards.
func (p *Pages) Next() bool {
	if p.err != nil || p.url == "" {
		return false
	}

	current := p.s.normalizeURL(p.url)
	for {
		page, disp, err := p.s.fetch(p.ctx, p.method, current, p.body)

		switch disp {
		case dispOK:
			p.page = page
			p.fetched++
			p.url = ""
			if next := nextLink(page.Header.Get("Link")); next != "" {
				resolved := p.s.normalizeURL(next)
				switch {
				case resolved == current:
					p.err = fmt.Errorf("pagination loop: next link repeats %s", current)
				case p.fetched >= maxPages:
					p.err = fmt.Errorf("pagination exceeded %d pages at %s", maxPages, current)
				default:
					p.url = next
				}
			}
			return true

		case dispRateLimited:
			rl := err.(*RateLimitError)
			if p.retries >= p.s.maxRetries {
				p.err = fmt.Errorf("%w: %v", ErrRetriesExhausted, rl)
				return false
			}
			p.retries++
			p.s.logger.Debug("rate limited, backing off",
				"url", current, "retry_after", rl.RetryAfter,
				"attempt", p.retries, "max_retries", p.s.maxRetries)
			if err := p.s.sleep(p.ctx, rl.RetryAfter); err != nil {
				p.err = err
				return false
			}

		case dispProxyAuthRequired:
			if p.s.promptProxy == nil {
				p.err = err
				return false
			}
			if p.retries >= p.s.maxRetries {
				p.err = fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
				return false
			}
			p.retries++
			user, pass, perr := p.s.promptProxy()
			if perr != nil {
				p.err = fmt.Errorf("proxy credentials: %w", perr)
				return false
			}
			p.s.proxyAuth = basicAuth(user, pass)

		default:
			p.err = err
			return false
		}
	}
}

// Page returns the page produced by the last successful Next.
func (p *Pages) Page() *Page { return p.page }

// Err returns the error that terminated the sequence, if any.
func (p *Pages) Err() error { return p.err }

// disposition classifies one response for the retry loop; an explicit tag
// switch rather than control flow by error unwinding.
type disposition int

const (
	dispOK disposition = iota
	dispRateLimited
	dispProxyAuthRequired
	dispFatal
)

// fetch performs one network call and classifies the outcome.
func (s *Session) fetch(ctx context.Context, method, fullURL string, body []byte) (*Page, disposition, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, dispFatal, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.auth != "" {
		req.Header.Set("Authorization", "Bearer "+s.auth)
	}
	if s.proxyAuth != "" {
		req.Header.Set("Proxy-Authorization", s.proxyAuth)
	}

	s.logger.Debug("http request", "method", method, "url", fullURL)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, dispFatal, fmt.Errorf("%s %s: %w", method, fullURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, dispFatal, fmt.Errorf("read response from %s: %w", fullURL, err)
	}

	s.logger.Debug("http response", "status", resp.StatusCode, "url", fullURL)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return &Page{Status: resp.StatusCode, Header: resp.Header, Body: respBody}, dispOK, nil
	case http.StatusTooManyRequests:
		return nil, dispRateLimited, &RateLimitError{URL: fullURL, RetryAfter: retryAfter(resp.Header)}
	case http.StatusProxyAuthRequired:
		return nil, dispProxyAuthRequired, newStatusError(resp.StatusCode, fullURL, respBody)
	default:
		return nil, dispFatal, newStatusError(resp.StatusCode, fullURL, respBody)
	}
}

// normalizeURL resolves a scheme-less URL against the session base.
func (s *Session) normalizeURL(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
		return raw
	}
	return s.baseURL + "/" + strings.TrimPrefix(raw, "/")
}

// retryAfter reads the Retry-After hint in seconds, defaulting when absent
// or malformed.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

// nextLink extracts the rel="next" target from an RFC 8288 Link header.
func nextLink(header string) string {
	for _, entry := range strings.Split(header, ",") {
		sections := strings.Split(entry, ";")
		if len(sections) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(sections[0]), "<>")
		for _, param := range sections[1:] {
			k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
			if ok && strings.TrimSpace(k) == "rel" && strings.Trim(strings.TrimSpace(v), `"`) == "next" {
				return target
			}
		}
	}
	return ""
}

func basicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cuemby/clanrelay/pkg/log"
	"github.com/rs/zerolog"
)

const (
	// DefaultURL is the clan-log endpoint for the home clan
	DefaultURL = "https://query.idleclans.com/api/Clan/logs/clan/KlutzCo"

	defaultTimeout  = 15 * time.Second
	defaultAttempts = 3
	defaultBackoff  = 1 * time.Second
	maxBodyBytes    = 16 << 20
)

// FetchError is a failed fetch attempt: a transport error, a non-2xx status,
// or a body that is not a JSON array.
type FetchError struct {
	URL        string
	Attempt    int
	StatusCode int // 0 when no response was received
	Err        error
	// Exhausted is set on the error returned once every attempt has failed
	Exhausted bool
}

func (e *FetchError) Error() string {
	prefix := fmt.Sprintf("fetch %s attempt %d", e.URL, e.Attempt)
	if e.Exhausted {
		prefix = fmt.Sprintf("fetch %s failed after %d attempts", e.URL, e.Attempt)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d", prefix, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Page is the result of one successful fetch
type Page struct {
	Records  []json.RawMessage
	Attempts int
}

// Option configures Client behavior
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout. Default: 15s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithAttempts sets the number of attempts per fetch. Default: 3.
func WithAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithBackoff sets the delay before the second attempt; it doubles for each
// later attempt. Default: 1s.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// Client fetches windows of the clan log
type Client struct {
	baseURL    string
	httpClient *http.Client
	attempts   int
	backoff    time.Duration
	userAgent  string
	logger     zerolog.Logger
}

// New creates a client for the clan-log endpoint. Any query string on rawURL
// is dropped; the window size is appended per request.
func New(rawURL string, opts ...Option) (*Client, error) {
	base, err := BaseURL(rawURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:    base,
		httpClient: newHTTPClient(defaultTimeout),
		attempts:   defaultAttempts,
		backoff:    defaultBackoff,
		userAgent:  "clanrelay",
		logger:     log.WithComponent("upstream"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL validates rawURL and strips its query string and fragment
func BaseURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid clan log url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid clan log url %q: scheme must be http or https", rawURL)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// URL returns the configured base URL
func (c *Client) URL() string {
	return c.baseURL
}

// FetchLogs requests the newest limit entries of the clan log.
//
// Each attempt that fails is followed by a backoff of base, 2*base, 4*base...
// before the next one. When all attempts fail the last *FetchError is returned
// with Exhausted set. Nothing is remembered between calls.
func (c *Client) FetchLogs(ctx context.Context, limit int) (*Page, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	fullURL := c.baseURL + "?" + q.Encode()

	var lastErr *FetchError
	delay := c.backoff
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
			delay *= 2
		}

		records, err := c.fetchOnce(ctx, fullURL, attempt)
		if err == nil {
			return &Page{Records: records, Attempts: attempt}, nil
		}
		lastErr = err

		c.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("limit", limit).
			Msg("Clan log fetch attempt failed")

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	lastErr.Exhausted = true
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, fullURL string, attempt int) ([]json.RawMessage, *FetchError) {
	fail := func(status int, err error) *FetchError {
		return &FetchError{URL: fullURL, Attempt: attempt, StatusCode: status, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fail(0, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fail(0, fmt.Errorf("failed to read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fail(resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fail(0, fmt.Errorf("response is not a JSON array: %w", err))
	}
	return records, nil
}

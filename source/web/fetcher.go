package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"time"

	"github.com/c360studio/specgen/source/weburl"
)

// Fetch defaults.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxBytes  = 2 << 20
	DefaultUserAgent = "specgen/1.0 (+spec fetcher)"
	maxRedirects     = 5
)

// ErrTooLarge is returned when a response body exceeds the size limit.
var ErrTooLarge = errors.New("content too large")

// Page is a fetched HTTP response body.
type Page struct {
	URL         *url.URL
	Body        []byte
	ContentType string
	StatusCode  int
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithPolicy replaces the strict URL policy.
func WithPolicy(p weburl.Policy) FetcherOption {
	return func(f *Fetcher) { f.policy = p }
}

// WithMaxBytes sets the body size limit.
func WithMaxBytes(n int64) FetcherOption {
	return func(f *Fetcher) { f.maxBytes = n }
}

// WithFetchTimeout sets the overall request timeout.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.timeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) { f.userAgent = ua }
}

// Fetcher downloads pages while refusing to talk to private networks.
// Hostnames are resolved inside the dialer and every resolved address is
// checked, so DNS answers cannot redirect a request to an internal host.
type Fetcher struct {
	client    *http.Client
	policy    weburl.Policy
	timeout   time.Duration
	maxBytes  int64
	userAgent string

	// lookup resolves hostnames; replaced in tests.
	lookup func(ctx context.Context, host string) ([]netip.Addr, error)
}

// NewFetcher creates a fetcher with the strict policy.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		policy:    weburl.Strict,
		timeout:   DefaultTimeout,
		maxBytes:  DefaultMaxBytes,
		userAgent: DefaultUserAgent,
		lookup: func(ctx context.Context, host string) ([]netip.Addr, error) {
			return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
		},
	}
	for _, opt := range opts {
		opt(f)
	}

	transport := &http.Transport{
		DialContext:           f.dial,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: f.timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
	f.client = &http.Client{
		Transport: transport,
		Timeout:   f.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (max %d)", maxRedirects)
			}
			if err := f.policy.Check(req.URL); err != nil {
				return fmt.Errorf("redirect blocked: %w", err)
			}
			return nil
		},
	}
	return f
}

func (f *Fetcher) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	var addrs []netip.Addr
	if ip, err := netip.ParseAddr(host); err == nil {
		addrs = []netip.Addr{ip}
	} else {
		addrs, err = f.lookup(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("DNS lookup failed: %w", err)
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no addresses for %s", host)
	}
	for _, ip := range addrs {
		if err := f.policy.CheckAddr(ip); err != nil {
			return nil, err
		}
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	var lastErr error
	for _, ip := range addrs {
		conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("connect %s: %w", host, lastErr)
}

// Fetch retrieves rawURL. Non-200 responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := f.policy.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/markdown,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w (exceeds %d bytes)", ErrTooLarge, f.maxBytes)
	}

	return &Page{
		URL:         resp.Request.URL,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}, nil
}

package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/onionwatch/onionwatch/internal/envelope"
	"github.com/onionwatch/onionwatch/internal/model"
	"github.com/onionwatch/onionwatch/internal/tor"
)

// PlaceholderBody is stored (base64-encoded) as an item's body when its
// detail page cannot be fetched. One item's fetch failure never aborts the
// whole collection; the placeholder keeps the item count equal to the
// listing row count so downstream classification stays aligned.
const PlaceholderBody = `{"message": "Error fetching content"}`

// FailureKind classifies a whole-collection failure.
type FailureKind int

const (
	// KindUnreachable means the listing page could not be fetched:
	// transport error, timeout, or a non-2xx response.
	KindUnreachable FailureKind = iota

	// KindFormatMismatch means the listing page was fetched but does not
	// contain the expected table structure.
	KindFormatMismatch
)

// String returns a human-readable description of the failure kind.
func (k FailureKind) String() string {
	switch k {
	case KindUnreachable:
		return "target unreachable"
	case KindFormatMismatch:
		return "unexpected page format"
	default:
		return "unknown failure"
	}
}

// CollectError is the terminal error for a collection run. Per-item detail
// failures are not errors; they surface as placeholder bodies instead.
type CollectError struct {
	// Kind classifies the failure.
	Kind FailureKind

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *CollectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

// Unwrap returns the underlying error.
func (e *CollectError) Unwrap() error {
	return e.Err
}

// Collector extracts items from a remote listing. Implementations carry the
// site-specific parsing rules; the job engine only sees this contract.
type Collector interface {
	// Collect fetches the listing at target through the given proxy and
	// returns the extracted items in listing order.
	Collect(ctx context.Context, target string, proxy tor.ProxyConfig) ([]model.Item, error)
}

// ClientFactory builds an HTTP client for the given proxy configuration.
// Injected so tests can collect from local servers without a proxy.
type ClientFactory func(proxy tor.ProxyConfig) (*http.Client, error)

// Marketplace collects items from a darknet marketplace listing page.
//
// Design decision: Detail pages are fetched with bounded parallelism rather
// than strictly sequentially. Each fetch goes through Tor and routinely takes
// seconds, so a 50-row listing collected sequentially can run for minutes.
// Results are written into an index-addressed slice, which preserves listing
// order regardless of fetch completion order.
type Marketplace struct {
	// newClient builds the proxied HTTP client per collection run.
	newClient ClientFactory

	// timeout applies to each outbound request.
	timeout time.Duration

	// userAgent is sent on every request.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// fetchLimit bounds concurrent detail-page fetches.
	fetchLimit int
}

// MarketplaceOption configures a Marketplace collector.
type MarketplaceOption func(*Marketplace)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) MarketplaceOption {
	return func(m *Marketplace) {
		m.timeout = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) MarketplaceOption {
	return func(m *Marketplace) {
		m.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) MarketplaceOption {
	return func(m *Marketplace) {
		m.maxBodySize = size
	}
}

// WithFetchLimit sets the maximum number of concurrent detail-page fetches.
// A limit of 1 makes detail fetches strictly sequential.
func WithFetchLimit(n int) MarketplaceOption {
	return func(m *Marketplace) {
		if n > 0 {
			m.fetchLimit = n
		}
	}
}

// WithClientFactory overrides how the proxied HTTP client is built.
func WithClientFactory(f ClientFactory) MarketplaceOption {
	return func(m *Marketplace) {
		m.newClient = f
	}
}

// NewMarketplace creates a marketplace collector.
func NewMarketplace(opts ...MarketplaceOption) *Marketplace {
	m := &Marketplace{
		timeout:     30 * time.Second,
		userAgent:   "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0",
		maxBodySize: 10 * 1024 * 1024, // 10MB
		fetchLimit:  4,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.newClient == nil {
		m.newClient = func(proxy tor.ProxyConfig) (*http.Client, error) {
			c, err := tor.NewClient(proxy, m.timeout)
			if err != nil {
				return nil, err
			}
			return c.NewHTTPClient(), nil
		}
	}
	return m
}

// Collect implements the Collector interface.
//
// The listing page is fetched first; any failure there is terminal for the
// run. Each row's detail page is then fetched through the same client, and a
// failure there only replaces that one item's body with PlaceholderBody.
func (m *Marketplace) Collect(ctx context.Context, target string, proxy tor.ProxyConfig) ([]model.Item, error) {
	base, err := url.Parse(target)
	if err != nil {
		return nil, &CollectError{Kind: KindUnreachable, Err: fmt.Errorf("invalid target address: %w", err)}
	}
	if err := tor.ValidateOnionHost(base.Hostname()); err != nil {
		return nil, &CollectError{Kind: KindUnreachable, Err: err}
	}

	client, err := m.newClient(proxy)
	if err != nil {
		return nil, &CollectError{Kind: KindUnreachable, Err: err}
	}

	body, err := m.fetch(ctx, client, target)
	if err != nil {
		return nil, &CollectError{Kind: KindUnreachable, Err: err}
	}

	items, err := parseListing(strings.NewReader(body), base)
	if err != nil {
		return nil, &CollectError{Kind: KindFormatMismatch, Err: err}
	}

	m.fetchBodies(ctx, client, items)
	return items, nil
}

// fetchBodies fills in each item's Content field by fetching its detail
// page. Failures are recorded per item; this function never fails as a
// whole.
func (m *Marketplace) fetchBodies(ctx context.Context, client *http.Client, items []model.Item) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.fetchLimit)

	for i := range items {
		g.Go(func() error {
			items[i].Content = m.fetchBody(ctx, client, items[i].Link)
			return nil
		})
	}

	// Goroutines only record per-item outcomes, never errors.
	_ = g.Wait() //nolint:errcheck // per-item failures are data, not errors
}

// fetchBody fetches one detail page and extracts its body text,
// base64-encoded for embedding in the item. Returns the encoded
// PlaceholderBody when the page cannot be fetched or parsed, and an empty
// string when the page loads but holds no recognizable content region.
func (m *Marketplace) fetchBody(ctx context.Context, client *http.Client, link string) string {
	page, err := m.fetch(ctx, client, link)
	if err != nil {
		return envelope.EncodeBody(PlaceholderBody)
	}

	text, ok := parseBody(strings.NewReader(page))
	if !ok {
		return ""
	}
	return envelope.EncodeBody(text)
}

// fetch performs a single GET and returns the response body.
// Non-2xx responses are errors.
func (m *Marketplace) fetch(ctx context.Context, client *http.Client, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}

	req.Header.Set("User-Agent", m.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, m.maxBodySize))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

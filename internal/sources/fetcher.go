// Package sources assesses how trustworthy a list of source URLs is, optionally reading the pages.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxPageBytes = 2 << 20
	maxPageChars = 5000
	userAgent    = "WikiAI-SourceInspector/1.0"
)

var (
	ErrUnsupportedScheme = errors.New("only http and https sources can be fetched")
	ErrBlockedAddress    = errors.New("source does not resolve to a public address")
)

// Shared and carrier-grade NAT space; IsPrivate does not cover it.
var nonPublicPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
}

type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher refuses to connect to loopback, private and link-local addresses,
// including ones reached through DNS or redirects.
func NewFetcher(timeout time.Duration) *Fetcher {
	return newFetcher(timeout, true)
}

func newFetcher(timeout time.Duration, publicOnly bool) *Fetcher {
	dialer := &net.Dialer{Timeout: timeout}
	if publicOnly {
		dialer.Control = rejectNonPublic
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// rejectNonPublic runs after DNS resolution, once per connection attempt.
func rejectNonPublic(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil || !isPublic(addr) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

func isPublic(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsInterfaceLocalMulticast() ||
		addr.IsMulticast() || addr.IsUnspecified() {
		return false
	}
	for _, p := range nonPublicPrefixes {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}

// Fetch returns the visible body text of rawURL, cut to maxPageChars characters.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrUnsupportedScheme
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, nav, footer, header").Remove()
	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")

	if runes := []rune(text); len(runes) > maxPageChars {
		text = string(runes[:maxPageChars])
	}

	return text, nil
}

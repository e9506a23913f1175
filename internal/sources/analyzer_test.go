package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikiai/backend/internal/trust"
)

type stubFetcher struct {
	pages map[string]string

	mu    sync.Mutex
	calls []string
}

func (s *stubFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, rawURL)
	s.mu.Unlock()

	if text, ok := s.pages[rawURL]; ok {
		return text, nil
	}
	return "", errors.New("not found")
}

type blockingFetcher struct{}

func (blockingFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestAnalyze_URLOnly(t *testing.T) {
	fetcher := &stubFetcher{}
	a := NewAnalyzer(fetcher)

	got := a.Analyze(context.Background(), []string{"https://www.education.gouv.qc.ca/", "https://blog.example.com"}, false)
	require.Len(t, got, 2)

	assert.Equal(t, trust.Assessment{
		URL:            "https://www.education.gouv.qc.ca/",
		TrustScore:     0.98,
		TrustLevel:     trust.LevelVeryReliable,
		Recommendation: trust.RecommendSource,
	}, got[0])
	assert.Equal(t, 0.5, got[1].TrustScore)
	assert.Empty(t, fetcher.calls)
}

func TestAnalyze_InspectAddsContentBonus(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		"https://example.net/article": "Une étude publiée avec ses sources et une bibliographie complète.",
	}}
	a := NewAnalyzer(fetcher)

	got := a.Analyze(context.Background(), []string{"https://example.net/article", "https://example.net/missing"}, true)
	require.Len(t, got, 2)

	assert.Greater(t, got[0].TrustScore, 0.5)
	assert.Equal(t, 0.5, got[1].TrustScore)
	assert.ElementsMatch(t, []string{"https://example.net/article", "https://example.net/missing"}, fetcher.calls)
}

func TestAnalyze_InspectBudgetBoundsTheRequest(t *testing.T) {
	a := NewAnalyzer(blockingFetcher{}, WithInspectBudget(50*time.Millisecond))

	urls := make([]string, 20)
	for i := range urls {
		urls[i] = "https://example.org/page"
	}

	start := time.Now()
	got := a.Analyze(context.Background(), urls, true)

	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, got, 20)
	for _, assessment := range got {
		assert.Equal(t, 0.6, assessment.TrustScore)
	}
}

func TestAnalyze_LoopbackSourceIsScoredOnURLOnly(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("<html><body>étude avec sources et bibliographie</body></html>"))
	}))
	defer srv.Close()

	a := NewAnalyzer(NewFetcher(2 * time.Second))
	got := a.Analyze(context.Background(), []string{srv.URL}, true)

	require.Len(t, got, 1)
	assert.Equal(t, trust.Assess(srv.URL, ""), got[0])
	assert.Zero(t, hits.Load())
}

func TestFetcher_ExtractsVisibleText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><nav>menu</nav><h1>Référence</h1>
<script>track()</script><p>Contenu   vérifié.</p><footer>pied</footer></body></html>`))
	}))
	defer srv.Close()

	text, err := newFetcher(5*time.Second, false).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Référence Contenu vérifié.", text)
}

func TestFetcher_Truncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>" + strings.Repeat("é", maxPageChars+100) + "</p></body></html>"))
	}))
	defer srv.Close()

	text, err := newFetcher(5*time.Second, false).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, []rune(text), maxPageChars)
}

func TestFetcher_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := newFetcher(5*time.Second, false)

	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "status 404")

	_, err = f.Fetch(context.Background(), "ftp://example.com/file")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestFetcher_RejectsNonPublicAddresses(t *testing.T) {
	f := NewFetcher(2 * time.Second)

	for _, target := range []string{
		"http://127.0.0.1:1/",
		"http://169.254.169.254/latest/meta-data/",
		"http://10.0.0.1/",
		"http://[::1]:1/",
	} {
		_, err := f.Fetch(context.Background(), target)
		assert.ErrorIs(t, err, ErrBlockedAddress, target)
	}
}

func TestIsPublic(t *testing.T) {
	for addr, want := range map[string]bool{
		"93.184.216.34":   true,
		"2606:4700::1111": true,
		"127.0.0.1":       false,
		"10.1.2.3":        false,
		"172.16.0.1":      false,
		"192.168.1.1":     false,
		"169.254.169.254": false,
		"100.64.0.1":      false,
		"0.0.0.0":         false,
		"::1":             false,
		"fe80::1":         false,
		"fd00::1":         false,
		"::ffff:10.0.0.1": false,
	} {
		assert.Equal(t, want, isPublic(netip.MustParseAddr(addr)), addr)
	}
}

package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type substringMatcher struct {
	term  string
	title string
}

func (m substringMatcher) Match(html []byte) (bool, string) {
	if bytes.Contains(bytes.ToLower(html), bytes.ToLower([]byte(m.term))) {
		return true, m.title
	}
	return false, ""
}

type countingFetcher struct {
	inFlight    int64
	maxInFlight int64
	total       int64
	hold        time.Duration
	body        []byte
}

func (f *countingFetcher) Fetch(_ context.Context, rawURL, _, _ string) (Page, error) {
	current := atomic.AddInt64(&f.inFlight, 1)
	defer atomic.AddInt64(&f.inFlight, -1)
	for {
		observed := atomic.LoadInt64(&f.maxInFlight)
		if current <= observed || atomic.CompareAndSwapInt64(&f.maxInFlight, observed, current) {
			break
		}
	}
	atomic.AddInt64(&f.total, 1)
	time.Sleep(f.hold)
	return Page{URL: rawURL, StatusCode: 200, Body: f.body}, nil
}

func newEngineForTest(cfg Config, robots *RobotsCache, fetcher Fetcher, matcher Matcher) *Engine {
	executor := NewFetchExecutor(
		fetcher,
		nil,
		NewBackoffPolicy(cfg.MaxAttempts, 10*time.Millisecond, 100*time.Millisecond),
		staticIdentity{},
		time.Minute,
		nil,
		zap.NewNop(),
	)
	return NewEngine(
		cfg,
		robots,
		NewDomainLimiter(),
		NewStrategyDispatcher(cfg.RenderDomains),
		executor,
		matcher,
		staticIdentity{},
		nil,
		zap.NewNop(),
	)
}

// allowAllServer serves a permissive robots.txt and a fixed page body.
func allowAllServer(t *testing.T, body string, pageHits *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nAllow: /\n")
			return
		}
		if pageHits != nil {
			atomic.AddInt64(pageHits, 1)
		}
		fmt.Fprint(w, body)
	}))
}

func TestEngineConcurrencyBound(t *testing.T) {
	srv := allowAllServer(t, "irrelevant", nil)
	defer srv.Close()

	seeds := make([]string, 10)
	for i := range seeds {
		seeds[i] = fmt.Sprintf("%s/page/%d", srv.URL, i)
	}
	cfg := Config{Seeds: seeds, Concurrency: 2, MaxAttempts: 1}

	fetcher := &countingFetcher{hold: 30 * time.Millisecond, body: []byte("nothing relevant")}
	robots := NewRobotsCache(5*time.Second, time.Millisecond, 16, nil, zap.NewNop())
	engine := newEngineForTest(cfg, robots, fetcher, substringMatcher{term: "zzz"})

	results, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, results)
	require.EqualValues(t, 10, atomic.LoadInt64(&fetcher.total))
	require.LessOrEqual(t, atomic.LoadInt64(&fetcher.maxInFlight), int64(2),
		"never more than Concurrency fetches in flight")
}

func TestEngineEndToEndMatch(t *testing.T) {
	srv := allowAllServer(t, `<html><head><title>Aktuelle Ausschreibungen</title></head><body>Neue Bücher im Angebot</body></html>`, nil)
	defer srv.Close()

	seed := srv.URL + "/"
	cfg := Config{Seeds: []string{seed}, Concurrency: 2, MaxAttempts: 1}

	robots := NewRobotsCache(5*time.Second, time.Millisecond, 16, nil, zap.NewNop())
	fetcher := &countingFetcher{body: []byte(`<html><head><title>Aktuelle Ausschreibungen</title></head><body>Neue Bücher im Angebot</body></html>`)}
	engine := newEngineForTest(cfg, robots, fetcher, substringMatcher{term: "Bücher", title: "Aktuelle Ausschreibungen"})

	results, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Aktuelle Ausschreibungen", results[0].Title)
	require.Equal(t, seed, results[0].URL)
	require.Zero(t, engine.ErrorCount())
}

func TestEngineRobotsBlockedMakesNoPageRequest(t *testing.T) {
	var pageHits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
			return
		}
		atomic.AddInt64(&pageHits, 1)
		fmt.Fprint(w, "should never be served")
	}))
	defer srv.Close()

	cfg := Config{Seeds: []string{srv.URL + "/"}, Concurrency: 2, MaxAttempts: 1}

	robots := NewRobotsCache(5*time.Second, time.Millisecond, 16, nil, zap.NewNop())
	fetcher := &countingFetcher{body: []byte("unused")}
	engine := newEngineForTest(cfg, robots, fetcher, substringMatcher{term: "Bücher"})

	results, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, results)
	require.Zero(t, atomic.LoadInt64(&fetcher.total),
		"blocked URLs must never reach the executor")
	require.Zero(t, atomic.LoadInt64(&pageHits),
		"no request beyond robots.txt itself may hit the blocked domain")
	require.Zero(t, engine.ErrorCount(), "robots blocks are skips, not errors")
}

func TestEngineResultsAreSubsetOfSeeds(t *testing.T) {
	srv := allowAllServer(t, "Bücher everywhere", nil)
	defer srv.Close()

	seeds := []string{
		srv.URL + "/eins",
		srv.URL + "/zwei",
		srv.URL + "/drei",
	}
	seedSet := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		seedSet[s] = struct{}{}
	}
	cfg := Config{Seeds: seeds, Concurrency: 3, MaxAttempts: 1}

	robots := NewRobotsCache(5*time.Second, time.Millisecond, 16, nil, zap.NewNop())
	fetcher := &countingFetcher{body: []byte("Bücher everywhere")}
	engine := newEngineForTest(cfg, robots, fetcher, substringMatcher{term: "Bücher", title: "T"})

	results, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, rec := range results {
		_, ok := seedSet[rec.URL]
		require.True(t, ok, "record URL %q must be one of the seeds", rec.URL)
	}
}

func TestEngineFailedURLYieldsNoRecordButRunCompletes(t *testing.T) {
	srv := allowAllServer(t, "Bücher", nil)
	defer srv.Close()

	cfg := Config{
		Seeds:       []string{srv.URL + "/ok", srv.URL + "/broken"},
		Concurrency: 2,
		MaxAttempts: 2,
	}

	robots := NewRobotsCache(5*time.Second, time.Millisecond, 16, nil, zap.NewNop())
	fetcher := &selectiveFetcher{failPath: "/broken", body: []byte("Bücher")}
	engine := newEngineForTest(cfg, robots, fetcher, substringMatcher{term: "Bücher", title: "T"})

	results, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, srv.URL+"/ok", results[0].URL)
	require.Equal(t, 1, engine.ErrorCount())
}

type selectiveFetcher struct {
	failPath string
	body     []byte
	mu       sync.Mutex
}

func (f *selectiveFetcher) Fetch(_ context.Context, rawURL, _, _ string) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPath != "" && strings.HasSuffix(rawURL, f.failPath) {
		return Page{}, newFetchError(KindPermanent, rawURL, fmt.Errorf("status 404"))
	}
	return Page{URL: rawURL, StatusCode: 200, Body: f.body}, nil
}

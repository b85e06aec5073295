package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// StaticFetcher retrieves pages over plain HTTP using a Colly collector.
// Direct fetches clone the base collector; its HTTP backend is shared
// between clones, so proxied fetches get a dedicated collector with its own
// transport instead. Setting a proxy on a clone would rewrite the shared
// transport under every in-flight fetch.
type StaticFetcher struct {
	baseCollector *colly.Collector
	cfg           Config
	logger        *zap.Logger
}

// NewStaticFetcher constructs a configured Colly-based fetcher. Robots
// handling is disabled on the collector; the RobotsCache gates URLs before
// they ever reach a fetcher.
func NewStaticFetcher(cfg Config, logger *zap.Logger) (*StaticFetcher, error) {
	f := &StaticFetcher{cfg: cfg, logger: logger}
	f.baseCollector = f.newCollector()
	return f, nil
}

func (f *StaticFetcher) newCollector() *colly.Collector {
	c := colly.NewCollector(colly.Async(true))
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	c.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          128,
		MaxIdleConnsPerHost:   32,
		MaxConnsPerHost:       f.cfg.Concurrency * 2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: f.cfg.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})
	c.SetRequestTimeout(f.cfg.RequestTimeout)
	return c
}

// Fetch retrieves rawURL once. Status >= 400 is a failure; 429 carries the
// server's Retry-After so the executor can honor it.
func (f *StaticFetcher) Fetch(ctx context.Context, rawURL, userAgent, proxyURL string) (Page, error) {
	var collector *colly.Collector
	if proxyURL == "" {
		collector = f.baseCollector.Clone()
	} else {
		collector = f.newCollector()
		if err := collector.SetProxy(proxyURL); err != nil {
			return Page{}, newFetchError(KindPermanent, rawURL, fmt.Errorf("set proxy: %w", err))
		}
	}
	collector.UserAgent = userAgent

	start := time.Now()
	resultCh := make(chan staticResult, 1)
	var once sync.Once
	send := func(res staticResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		headers := http.Header{}
		if r.Headers != nil {
			for k, v := range *r.Headers {
				cp := make([]string, len(v))
				copy(cp, v)
				headers[k] = cp
			}
		}
		send(staticResult{page: Page{
			URL:        rawURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte{}, r.Body...),
			Duration:   time.Since(start),
		}})
	})

	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(staticResult{err: f.classify(rawURL, r, err)})
	})

	if err := collector.Visit(rawURL); err != nil {
		return Page{}, newFetchError(KindPermanent, rawURL, err)
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}
		return res.page, res.err
	default:
		return Page{}, newFetchError(KindTransient, rawURL, errors.New("fetch produced no result"))
	}
}

// classify turns a Colly error callback into a kinded FetchError.
func (f *StaticFetcher) classify(rawURL string, r *colly.Response, err error) error {
	if r == nil || r.StatusCode == 0 {
		return newFetchError(KindOf(err), rawURL, err)
	}
	kind := classifyStatus(r.StatusCode)
	if kind == "" {
		kind = KindOf(err)
	}
	fe := newFetchError(kind, rawURL, fmt.Errorf("status %d: %w", r.StatusCode, err))
	if kind == KindRateLimited && r.Headers != nil {
		fe.RetryAfter = parseRetryAfter(r.Headers.Get("Retry-After"))
	}
	return fe
}

// parseRetryAfter reads a Retry-After value in seconds or HTTP-date form;
// zero means the header was absent or unusable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}

type staticResult struct {
	page Page
	err  error
}

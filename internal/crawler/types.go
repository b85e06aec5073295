// Package crawler defines core types shared across the crawl pipeline.
package crawler

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Strategy selects the fetch path used for a URL.
type Strategy string

// Fetch strategies.
const (
	StrategyStatic   Strategy = "static"
	StrategyRendered Strategy = "rendered"
)

// Domain is the scheme+host identity of a URL. All robots-policy and
// rate-limit state is keyed by Domain, never by full URL.
type Domain string

// DomainOf extracts the Domain from a raw URL. Scheme and host are
// lowercased so lookups are stable regardless of seed spelling.
func DomainOf(rawURL string) (Domain, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q has no scheme or host", rawURL)
	}
	return Domain(strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)), nil
}

// Host returns the host name of the domain without scheme or port.
func (d Domain) Host() string {
	_, host, ok := strings.Cut(string(d), "://")
	if !ok {
		host = string(d)
	}
	if name, _, err := net.SplitHostPort(host); err == nil {
		return name
	}
	return host
}

// FetchTask captures one URL's fetch in progress. Attempt counts from zero
// and increments on each retry; the task is discarded on a terminal outcome.
type FetchTask struct {
	URL      string
	Strategy Strategy
	Attempt  int
}

// Page is the result of a single successful fetch.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Rendered   bool
	Duration   time.Duration
}

// MatchRecord is one criteria hit: the page title and the seed URL that
// produced it. Immutable once created.
type MatchRecord struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}
